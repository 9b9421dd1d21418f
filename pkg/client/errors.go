package client

import "fmt"

// ClientError is a typed error for secure channel establishment failures.
type ClientError string

func (e ClientError) Error() string { return string(e) }

const (
	// ErrAttestationFetch is returned when the attestation document could not
	// be fetched from the remote party.
	ErrAttestationFetch = ClientError("could not fetch attestation")
	// ErrAttestationInvalid is returned when the fetched document fails
	// verification.
	ErrAttestationInvalid = ClientError("attestation invalid")
	// ErrKeyExchange is returned for key exchange transport failures,
	// malformed key exchange responses, and verified documents that carry no
	// exchange public key.
	ErrKeyExchange = ClientError("key exchange failed")
	// ErrSessionKeyMalformed is returned when the delivered session key does
	// not decrypt to exactly 32 bytes.
	ErrSessionKeyMalformed = ClientError("session key malformed")
	// ErrNoSession is returned when an encrypted call is attempted before a
	// handshake has succeeded.
	ErrNoSession = ClientError("no established session")
)

// APIError is an HTTP-level error from the remote service.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
}
