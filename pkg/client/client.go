// Package client establishes and uses an attested secure channel with a
// remote enclave service. A handshake verifies the remote party's
// attestation for a fresh nonce, performs an X25519 exchange with the
// attested public key, and stores the delivered session key; the transport
// layer then wraps every request/response body under that key.
package client

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/enclavekit/enclavekit/pkg/attest"
	"github.com/enclavekit/enclavekit/pkg/envelope"
	"github.com/enclavekit/enclavekit/pkg/session"
)

// SessionIDHeader carries the session identifier on encrypted calls,
// alongside the Authorization bearer header when tokens are held.
const SessionIDHeader = "x-session-id"

// Client talks to a remote enclave service. It is safe for concurrent use;
// concurrent handshakes race last-write-wins over the session store without
// corrupting it.
type Client struct {
	httpClient *http.Client
	baseURL    string
	verifier   attest.Verifier
	store      *session.Store
	logger     zerolog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client, e.g. to set timeouts.
// Callers own timeout and retry policy; the client never retries internally.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) { c.httpClient = httpClient }
}

// WithVsockTransport dials the service over vsock instead of TCP, for
// clients running beside the enclave.
func WithVsockTransport(port uint32) Option {
	return func(c *Client) { c.httpClient = NewVsockHTTPClient(port) }
}

// WithLogger attaches a logger. The default discards everything.
func WithLogger(logger zerolog.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// WithExpectedPCRs pins measurement register values that every attestation
// must carry byte-exactly.
func WithExpectedPCRs(pcrs map[uint][]byte) Option {
	return func(c *Client) { c.verifier.ExpectedPCRs = pcrs }
}

// WithInsecureMockAttestation skips certificate chain and signature
// verification for local development against a simulator. The nonce check
// still applies. Never enable this against a production target; the decision
// is the caller's configuration, not anything the remote party claims.
func WithInsecureMockAttestation() Option {
	return func(c *Client) { c.verifier.InsecureSkipVerification = true }
}

// WithRootCertificate overrides the pinned root certificate DER. Tests and
// local tooling pin a synthetic root this way.
func WithRootCertificate(rootDER []byte) Option {
	return func(c *Client) { c.verifier.RootDER = rootDER }
}

// WithCurrentTime overrides the clock used for certificate validity windows.
func WithCurrentTime(now func() time.Time) Option {
	return func(c *Client) { c.verifier.CurrentTime = now }
}

// New creates a client for the service at baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{},
		baseURL:    strings.TrimRight(baseURL, "/"),
		store:      session.NewStore(),
		logger:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// IsLoopbackURL reports whether baseURL targets a loopback address. Callers
// commonly use this to decide whether to enable mock attestation for local
// development.
func IsLoopbackURL(baseURL string) bool {
	u, err := url.Parse(baseURL)
	if err != nil {
		return false
	}
	host := u.Hostname()
	return host == "localhost" || host == "127.0.0.1" || host == "::1"
}

// Sessions exposes the session store to the transport layer.
func (c *Client) Sessions() *session.Store {
	return c.store
}

// Session returns a snapshot of the current session.
func (c *Client) Session() (session.State, bool) {
	return c.store.Session()
}

// EncryptPayload seals plaintext under the current session key and returns
// base64(nonce || ciphertext) for use as an EncryptedRequest body.
func (c *Client) EncryptPayload(plaintext []byte) (string, error) {
	state, ok := c.store.Session()
	if !ok {
		return "", ErrNoSession
	}
	sealed, err := envelope.Seal(&state.Key, plaintext)
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sealed), nil
}

// DecryptPayload opens a base64-encoded sealed response body under the
// current session key.
func (c *Client) DecryptPayload(encryptedB64 string) ([]byte, error) {
	state, ok := c.store.Session()
	if !ok {
		return nil, ErrNoSession
	}
	sealed, err := base64.StdEncoding.DecodeString(encryptedB64)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid base64", envelope.ErrDecryption)
	}
	return envelope.Open(&state.Key, sealed)
}

// HealthCheck calls the service's unencrypted health endpoint.
func (c *Client) HealthCheck(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/health-check", nil)
	if err != nil {
		return "", err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", err
	}
	if resp.StatusCode != http.StatusOK {
		return "", &APIError{Status: resp.StatusCode, Message: string(body)}
	}
	return string(body), nil
}

// getJSON issues a GET and decodes a JSON response body into out.
func (c *Client) getJSON(ctx context.Context, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	return c.doJSON(req, out)
}

// postJSON issues a POST with a JSON body, optionally bearer-authenticated,
// and decodes a JSON response body into out.
func (c *Client) postJSON(ctx context.Context, path string, in, out any) error {
	reqBytes, err := json.Marshal(in)
	if err != nil {
		return fmt.Errorf("failed to marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(reqBytes))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if token := c.store.AccessToken(); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return c.doJSON(req, out)
}

func (c *Client) doJSON(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close() //nolint:errcheck

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &APIError{Status: resp.StatusCode, Message: string(body)}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return fmt.Errorf("failed to unmarshal response: %w", err)
	}
	return nil
}
