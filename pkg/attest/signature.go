package attest

import (
	"crypto/ecdsa"
	"crypto/sha512"
	"crypto/x509"
	"math/big"

	"github.com/fxamacker/cbor/v2"
)

// sigStructure is the canonical COSE Sig_structure for a COSE_Sign1 message
// with no external additional authenticated data.
type sigStructure struct {
	_           struct{} `cbor:",toarray"`
	Context     string
	Protected   []byte
	ExternalAAD []byte
	Payload     []byte
}

// verifyDocumentSignature reconstructs the canonical signing input and
// verifies the envelope signature against the leaf certificate's key. The
// platform signs with fixed-length (r || s) ECDSA over P-384 with SHA-384.
//
// Every failure path returns the same opaque ErrSignatureInvalid so callers
// cannot learn which half of the check failed.
func verifyDocumentSignature(envelope *COSESign1, leaf *x509.Certificate) error {
	point, err := ecPointFromCertificate(leaf)
	if err != nil || len(point) != pointSizeP384 {
		return ErrSignatureInvalid
	}
	pub, err := publicKeyFromPoint(point)
	if err != nil {
		return ErrSignatureInvalid
	}

	// 48 bytes each for r and s.
	if len(envelope.Signature) != 96 {
		return ErrSignatureInvalid
	}
	r := new(big.Int).SetBytes(envelope.Signature[:48])
	s := new(big.Int).SetBytes(envelope.Signature[48:])

	signed, err := cbor.Marshal(sigStructure{
		Context:     "Signature1",
		Protected:   envelope.Protected,
		ExternalAAD: []byte{},
		Payload:     envelope.Payload,
	})
	if err != nil {
		return ErrSignatureInvalid
	}
	digest := sha512.Sum384(signed)

	if !ecdsa.Verify(pub, digest[:], r, s) {
		return ErrSignatureInvalid
	}
	return nil
}
