package client

// AttestationResponse is the attestation fetch response body.
type AttestationResponse struct {
	AttestationDocument string `json:"attestation_document"`
}

// KeyExchangeRequest is the key exchange request body.
type KeyExchangeRequest struct {
	ClientPublicKey string `json:"client_public_key"`
	Nonce           string `json:"nonce"`
}

// KeyExchangeResponse is the key exchange response body.
type KeyExchangeResponse struct {
	EncryptedSessionKey string `json:"encrypted_session_key"`
	SessionID           string `json:"session_id"`
}

// EncryptedRequest wraps a sealed request body: base64(nonce || ciphertext).
type EncryptedRequest struct {
	Encrypted string `json:"encrypted"`
}

// EncryptedResponse wraps a sealed response body.
type EncryptedResponse struct {
	Encrypted string `json:"encrypted"`
}
