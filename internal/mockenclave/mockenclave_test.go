package mockenclave_test

import (
	"encoding/base64"
	"encoding/json"
	"net/http"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/enclavekit/enclavekit/internal/mockenclave"
	"github.com/enclavekit/enclavekit/pkg/attest"
)

func newServer(t *testing.T, opts ...mockenclave.Option) *mockenclave.Server {
	t.Helper()
	logger := zerolog.Nop()
	sim, err := mockenclave.New(&logger, opts...)
	require.NoError(t, err)
	return sim
}

func TestAttestationEndpoint(t *testing.T) {
	t.Parallel()
	sim := newServer(t)
	app := sim.App()

	req, err := http.NewRequest(http.MethodGet, "/attestation/nonce-1", nil)
	require.NoError(t, err)
	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var body map[string]string
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&body))

	verifier := &attest.Verifier{RootDER: sim.RootDER()}
	doc, err := verifier.Verify(body["attestation_document"], "nonce-1")
	require.NoError(t, err)
	require.NotEmpty(t, doc.PublicKey)
}

func TestKeyExchangeRejectsBadPublicKey(t *testing.T) {
	t.Parallel()
	sim := newServer(t)
	app := sim.App()

	body := `{"client_public_key":"` + base64.StdEncoding.EncodeToString([]byte("short")) + `","nonce":"n"}`
	req, err := http.NewRequest(http.MethodPost, "/key_exchange", strings.NewReader(body))
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := app.Test(req)
	require.NoError(t, err)
	defer resp.Body.Close() //nolint:errcheck
	require.Equal(t, http.StatusBadRequest, resp.StatusCode)
}
