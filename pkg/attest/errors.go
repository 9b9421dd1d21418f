package attest

// DecodeError is a typed error for malformed attestation envelopes.
type DecodeError string

func (e DecodeError) Error() string { return string(e) }

// VerificationError is a typed error for attestation documents that decode
// cleanly but fail verification.
type VerificationError string

func (e VerificationError) Error() string { return string(e) }

const (
	// ErrMalformedEnvelope is returned when the envelope is not a valid
	// base64-encoded COSE_Sign1 structure.
	ErrMalformedEnvelope = DecodeError("malformed attestation envelope")
	// ErrMalformedDocument is returned when the envelope payload is not a
	// valid attestation document.
	ErrMalformedDocument = DecodeError("malformed attestation document")

	// ErrMissingField is returned when a mandatory document field is absent.
	ErrMissingField = VerificationError("attestation document is missing a mandatory field")
	// ErrNonceMissing is returned when the document carries no nonce.
	ErrNonceMissing = VerificationError("attestation document has no nonce")
	// ErrNonceMismatch is returned when the document nonce does not equal the requested nonce.
	ErrNonceMismatch = VerificationError("attestation nonce mismatch")
	// ErrChainInvalid is returned when the certificate chain cannot be validated against the pinned root.
	ErrChainInvalid = VerificationError("certificate chain validation failed")
	// ErrSignatureInvalid is returned when the document signature does not verify.
	// The error is deliberately opaque about which part of the check failed.
	ErrSignatureInvalid = VerificationError("signature verification failed")
	// ErrPCRMissing is returned when an expected measurement register is absent from the document.
	ErrPCRMissing = VerificationError("expected measurement register missing")
	// ErrPCRMismatch is returned when a measurement register does not equal its expected value.
	ErrPCRMismatch = VerificationError("measurement register mismatch")
)
