package attest

import "github.com/fxamacker/cbor/v2"

// COSESign1 represents a COSE_Sign1 message structure. The unprotected
// header map is carried in the envelope but never consulted.
type COSESign1 struct {
	_           struct{} `cbor:",toarray"`
	Protected   []byte
	Unprotected cbor.RawMessage
	Payload     []byte
	Signature   []byte
}

// Document represents the attestation document carried in the COSE_Sign1
// payload.
type Document struct {
	// ModuleID is the identity of the issuing module.
	ModuleID string `cbor:"module_id"`

	// Digest is the digest function used for calculating the register values.
	// Can be: "SHA256" | "SHA384" | "SHA512"
	Digest string `cbor:"digest"`

	// Timestamp is the UTC time when the document was created, in seconds
	// since the Unix epoch. Negative encodings are a decode error.
	Timestamp uint64 `cbor:"timestamp"`

	// PCRs is the map of all locked platform measurement registers at the
	// moment the attestation document was generated. Negative register
	// indices are a decode error.
	PCRs map[uint][]byte `cbor:"pcrs"`

	// Certificate is the certificate used to sign the document, DER encoded.
	Certificate []byte `cbor:"certificate"`

	// CABundle is the issuing CA bundle for the signing certificate, ordered
	// from the root to the leaf's immediate issuer.
	CABundle [][]byte `cbor:"cabundle"`

	// PublicKey is an optional key exchange public key the attestation
	// consumer can use to bootstrap a secure channel.
	PublicKey []byte `cbor:"public_key,omitempty"`

	// UserData is additional signed user data, as defined by protocol.
	UserData []byte `cbor:"user_data,omitempty"`

	// Nonce is the cryptographic nonce the attestation consumer provided as
	// a proof of freshness.
	Nonce []byte `cbor:"nonce,omitempty"`
}
