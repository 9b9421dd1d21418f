package attest

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"crypto/sha512"
	"crypto/x509"
	"fmt"
	"time"
)

// validateCertificateChain checks the document's CA bundle and leaf
// certificate against the pinned root:
//
//  1. cabundle[0] must byte-equal the pinned root's DER encoding.
//  2. Every certificate must parse and its validity window must contain now.
//  3. Every certificate after the first must name its predecessor as issuer
//     and carry a signature that verifies under the predecessor's key.
//  4. The leaf must chain to the last bundled certificate the same way.
//
// It returns the parsed leaf certificate on success.
func validateCertificateChain(doc *Document, rootDER []byte, now time.Time) (*x509.Certificate, error) {
	if len(doc.CABundle) == 0 {
		return nil, fmt.Errorf("%w: certificate bundle is empty", ErrChainInvalid)
	}
	if !bytes.Equal(doc.CABundle[0], rootDER) {
		return nil, fmt.Errorf("%w: bundle root does not match the pinned root", ErrChainInvalid)
	}

	bundle := make([]*x509.Certificate, len(doc.CABundle))
	for i, der := range doc.CABundle {
		cert, err := x509.ParseCertificate(der)
		if err != nil {
			return nil, fmt.Errorf("%w: failed to parse certificate %d: %v", ErrChainInvalid, i, err)
		}
		if err := checkValidityWindow(cert, now); err != nil {
			return nil, fmt.Errorf("%w: certificate %d %v", ErrChainInvalid, i, err)
		}
		bundle[i] = cert
	}

	leaf, err := x509.ParseCertificate(doc.Certificate)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to parse leaf certificate: %v", ErrChainInvalid, err)
	}
	if err := checkValidityWindow(leaf, now); err != nil {
		return nil, fmt.Errorf("%w: leaf certificate %v", ErrChainInvalid, err)
	}

	for i := 1; i < len(bundle); i++ {
		if !bytes.Equal(bundle[i].RawIssuer, bundle[i-1].RawSubject) {
			return nil, fmt.Errorf("%w: certificate %d issuer does not match certificate %d subject",
				ErrChainInvalid, i, i-1)
		}
		if err := verifyCertificateSignature(bundle[i], bundle[i-1]); err != nil {
			return nil, fmt.Errorf("%w: certificate %d: %v", ErrChainInvalid, i, err)
		}
	}

	issuer := bundle[len(bundle)-1]
	if !bytes.Equal(leaf.RawIssuer, issuer.RawSubject) {
		return nil, fmt.Errorf("%w: leaf issuer does not match certificate %d subject",
			ErrChainInvalid, len(bundle)-1)
	}
	if err := verifyCertificateSignature(leaf, issuer); err != nil {
		return nil, fmt.Errorf("%w: leaf certificate: %v", ErrChainInvalid, err)
	}

	return leaf, nil
}

func checkValidityWindow(cert *x509.Certificate, now time.Time) error {
	if now.Before(cert.NotBefore) {
		return fmt.Errorf("is not yet valid (not before %s)", cert.NotBefore)
	}
	if now.After(cert.NotAfter) {
		return fmt.Errorf("is expired (not after %s)", cert.NotAfter)
	}
	return nil
}

// verifyCertificateSignature verifies child's signature under parent's public
// key, using the signature algorithm declared on child. Only the two ECDSA
// algorithms used by the platform are accepted; anything else is an error,
// never a silent skip.
func verifyCertificateSignature(child, parent *x509.Certificate) error {
	point, err := ecPointFromCertificate(parent)
	if err != nil {
		return fmt.Errorf("issuer public key: %v", err)
	}
	pub, err := publicKeyFromPoint(point)
	if err != nil {
		return fmt.Errorf("issuer public key: %v", err)
	}

	var digest []byte
	switch child.SignatureAlgorithm {
	case x509.ECDSAWithSHA256:
		sum := sha256.Sum256(child.RawTBSCertificate)
		digest = sum[:]
	case x509.ECDSAWithSHA384:
		sum := sha512.Sum384(child.RawTBSCertificate)
		digest = sum[:]
	default:
		return fmt.Errorf("unsupported signature algorithm %s", child.SignatureAlgorithm)
	}

	if !ecdsa.VerifyASN1(pub, digest, child.Signature) {
		return fmt.Errorf("signature does not verify under issuer key")
	}
	return nil
}
