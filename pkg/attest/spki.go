package attest

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/asn1"
	"fmt"
	"math/big"
)

// Uncompressed point sizes: 0x04 marker + two coordinates.
const (
	pointSizeP256 = 1 + 2*32
	pointSizeP384 = 1 + 2*48
)

type subjectPublicKeyInfo struct {
	Algorithm pkix.AlgorithmIdentifier
	PublicKey asn1.BitString
}

// ecPointFromCertificate walks the certificate's SubjectPublicKeyInfo
// structure and returns exactly the uncompressed EC point held in its BIT
// STRING. The walk is structural; any ambiguity in the encoding is an error
// rather than a best-effort guess.
func ecPointFromCertificate(cert *x509.Certificate) ([]byte, error) {
	var spki subjectPublicKeyInfo
	rest, err := asn1.Unmarshal(cert.RawSubjectPublicKeyInfo, &spki)
	if err != nil {
		return nil, fmt.Errorf("failed to parse subject public key info: %w", err)
	}
	if len(rest) != 0 {
		return nil, fmt.Errorf("trailing bytes after subject public key info")
	}
	if spki.PublicKey.BitLength%8 != 0 {
		return nil, fmt.Errorf("public key bit string is not byte-aligned")
	}

	point := spki.PublicKey.Bytes
	if len(point) != pointSizeP256 && len(point) != pointSizeP384 {
		return nil, fmt.Errorf("unexpected public key length %d", len(point))
	}
	if point[0] != 0x04 {
		return nil, fmt.Errorf("public key is not an uncompressed EC point")
	}
	return point, nil
}

// publicKeyFromPoint reconstructs an ECDSA public key from an uncompressed
// point, selecting the curve by point size.
func publicKeyFromPoint(point []byte) (*ecdsa.PublicKey, error) {
	var curve elliptic.Curve
	switch len(point) {
	case pointSizeP256:
		curve = elliptic.P256()
	case pointSizeP384:
		curve = elliptic.P384()
	default:
		return nil, fmt.Errorf("unsupported EC point length %d", len(point))
	}

	coordSize := (len(point) - 1) / 2
	x := new(big.Int).SetBytes(point[1 : 1+coordSize])
	y := new(big.Int).SetBytes(point[1+coordSize:])
	if !curve.IsOnCurve(x, y) {
		return nil, fmt.Errorf("EC point is not on %s", curve.Params().Name)
	}
	return &ecdsa.PublicKey{Curve: curve, X: x, Y: y}, nil
}
