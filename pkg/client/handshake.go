package client

import (
	"context"
	"encoding/base64"
	"fmt"

	"github.com/gofrs/uuid"

	"github.com/enclavekit/enclavekit/pkg/envelope"
)

// EstablishSession performs the attested handshake:
//
//  1. Generate a fresh nonce.
//  2. Fetch an attestation document for that nonce.
//  3. Verify it (decode, nonce, chain, signature, measurements).
//  4. Extract the attested exchange public key.
//  5. Generate a local X25519 key pair and post it to the key exchange
//     endpoint, bearer-authenticated when a token is already held.
//  6. Compute the shared secret and decrypt the delivered session key.
//  7. Store {session id, session key} atomically.
//
// Failure at any step leaves prior session state untouched. Nothing is
// retried internally; a retrying caller must start over with a fresh nonce.
func (c *Client) EstablishSession(ctx context.Context) error {
	nonce := uuid.Must(uuid.NewV4()).String()
	logger := c.logger.With().Str("component", "handshake").Logger()
	logger.Debug().Str("nonce", nonce).Msg("starting attested handshake")

	var attestResp AttestationResponse
	if err := c.getJSON(ctx, "/attestation/"+nonce, &attestResp); err != nil {
		handshakesTotal.WithLabelValues(resultAttestationFetch).Inc()
		return fmt.Errorf("%w: %v", ErrAttestationFetch, err)
	}

	doc, err := c.verifier.Verify(attestResp.AttestationDocument, nonce)
	if err != nil {
		handshakesTotal.WithLabelValues(resultAttestationVerify).Inc()
		return fmt.Errorf("%w: %v", ErrAttestationInvalid, err)
	}
	// The document is valid attestation-wise; lacking an exchange key is a
	// key exchange failure, and retrying the whole handshake is safe.
	if len(doc.PublicKey) == 0 {
		handshakesTotal.WithLabelValues(resultKeyExchange).Inc()
		return fmt.Errorf("%w: document carries no exchange public key", ErrKeyExchange)
	}

	keyPair, err := envelope.GenerateKeyPair()
	if err != nil {
		handshakesTotal.WithLabelValues(resultKeyExchange).Inc()
		return fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}

	var exchangeResp KeyExchangeResponse
	err = c.postJSON(ctx, "/key_exchange", KeyExchangeRequest{
		ClientPublicKey: base64.StdEncoding.EncodeToString(keyPair.Public),
		Nonce:           nonce,
	}, &exchangeResp)
	if err != nil {
		handshakesTotal.WithLabelValues(resultKeyExchange).Inc()
		return fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}

	sharedSecret, err := keyPair.SharedSecret(doc.PublicKey)
	if err != nil {
		handshakesTotal.WithLabelValues(resultKeyExchange).Inc()
		return fmt.Errorf("%w: %v", ErrKeyExchange, err)
	}

	sessionKey, err := envelope.DecryptSessionKey(sharedSecret, exchangeResp.EncryptedSessionKey)
	if err != nil {
		handshakesTotal.WithLabelValues(resultSessionKey).Inc()
		return fmt.Errorf("%w: %v", ErrSessionKeyMalformed, err)
	}

	sessionID, err := uuid.FromString(exchangeResp.SessionID)
	if err != nil {
		handshakesTotal.WithLabelValues(resultKeyExchange).Inc()
		return fmt.Errorf("%w: invalid session id: %v", ErrKeyExchange, err)
	}

	// Every step has succeeded; replace any prior session in one write.
	c.store.SetSession(sessionID, sessionKey)
	handshakesTotal.WithLabelValues(resultOK).Inc()
	logger.Info().
		Str("sessionId", sessionID.String()).
		Str("moduleId", doc.ModuleID).
		Msg("established attested session")
	return nil
}
