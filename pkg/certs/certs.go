// Package certs holds the pinned root certificate the attestation verifier
// trusts. The root ships with the client at build time and is not
// configurable at runtime.
package certs

import (
	"crypto/x509"
	_ "embed"
	"fmt"
)

//go:embed aws_nitro_root.der
var rootDER []byte

// RootDER returns a copy of the pinned root certificate in DER form.
func RootDER() []byte {
	out := make([]byte, len(rootDER))
	copy(out, rootDER)
	return out
}

// Root parses the pinned root certificate.
func Root() (*x509.Certificate, error) {
	cert, err := x509.ParseCertificate(rootDER)
	if err != nil {
		return nil, fmt.Errorf("failed to parse pinned root certificate: %w", err)
	}
	return cert, nil
}
