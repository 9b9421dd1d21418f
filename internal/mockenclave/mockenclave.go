// Package mockenclave simulates the enclave service's attestation surface
// for local development and end-to-end tests. Documents are signed over a
// synthetic certificate chain; clients must pin the simulator's root to
// verify them.
package mockenclave

import (
	"encoding/base64"
	"errors"
	"strings"
	"sync/atomic"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofrs/uuid"
	"github.com/rs/zerolog"

	"github.com/enclavekit/enclavekit/pkg/attest/attesttest"
	"github.com/enclavekit/enclavekit/pkg/envelope"
)

// moduleID is the identity the simulator attests as.
const moduleID = "i-0000mock0000000000-enc000000000000"

// Server simulates the enclave API.
type Server struct {
	signer         *attesttest.Signer
	exchangeKey    *envelope.KeyPair
	logger          *zerolog.Logger
	mismatchNonce   atomic.Bool
	omitExchangeKey bool
	sessionKeySize  int
}

// Option configures simulator misbehavior for tests.
type Option func(*Server)

// WithMismatchedNonce makes every attestation document carry a nonce that
// differs from the requested one.
func WithMismatchedNonce() Option {
	return func(s *Server) { s.mismatchNonce.Store(true) }
}

// WithSessionKeySize overrides the size of delivered session keys.
func WithSessionKeySize(size int) Option {
	return func(s *Server) { s.sessionKeySize = size }
}

// WithoutExchangeKey makes attestation documents omit the exchange public
// key while staying otherwise valid.
func WithoutExchangeKey() Option {
	return func(s *Server) { s.omitExchangeKey = true }
}

// SetMismatchedNonce toggles nonce mismatching on a running simulator.
func (s *Server) SetMismatchedNonce(v bool) { s.mismatchNonce.Store(v) }

// New creates a simulator with a fresh synthetic chain and exchange key.
func New(logger *zerolog.Logger, opts ...Option) (*Server, error) {
	signer, err := attesttest.NewSigner(time.Now())
	if err != nil {
		return nil, err
	}
	exchangeKey, err := envelope.GenerateKeyPair()
	if err != nil {
		return nil, err
	}
	s := &Server{
		signer:         signer,
		exchangeKey:    exchangeKey,
		logger:         logger,
		sessionKeySize: envelope.KeySize,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// RootDER returns the synthetic root certificate clients must pin.
func (s *Server) RootDER() []byte {
	return s.signer.RootDER()
}

// App builds the fiber app serving the simulated enclave API.
func (s *Server) App() *fiber.App {
	app := fiber.New(fiber.Config{
		ErrorHandler: func(c *fiber.Ctx, err error) error {
			return errorHandler(c, err, s.logger)
		},
		DisableStartupMessage: true,
	})
	app.Use(recover.New(recover.Config{EnableStackTrace: true}))
	app.Use(cors.New())

	app.Get("/", healthCheck)
	app.Get("/health-check", healthCheck)
	app.Get("/attestation/:nonce", s.getAttestation)
	app.Post("/key_exchange", s.keyExchange)
	return app
}

func healthCheck(ctx *fiber.Ctx) error {
	return ctx.SendString("Mock enclave is up and running")
}

func (s *Server) getAttestation(ctx *fiber.Ctx) error {
	nonce := ctx.Params("nonce")
	if nonce == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing nonce")
	}
	if s.mismatchNonce.Load() {
		nonce += "-mismatch"
	}
	exchangePublic := s.exchangeKey.Public
	if s.omitExchangeKey {
		exchangePublic = nil
	}

	document, err := s.signer.Envelope(attesttest.DocumentSpec{
		ModuleID:  moduleID,
		Nonce:     nonce,
		PublicKey: exchangePublic,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to forge attestation document")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to produce attestation document")
	}

	return ctx.JSON(map[string]string{"attestation_document": document})
}

type keyExchangeRequest struct {
	ClientPublicKey string `json:"client_public_key"`
	Nonce           string `json:"nonce"`
}

func (s *Server) keyExchange(ctx *fiber.Ctx) error {
	var req keyExchangeRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid request body")
	}
	if req.Nonce == "" {
		return fiber.NewError(fiber.StatusBadRequest, "Missing nonce")
	}

	clientPublic, err := base64.StdEncoding.DecodeString(req.ClientPublicKey)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid client public key")
	}
	sharedSecret, err := s.exchangeKey.SharedSecret(clientPublic)
	if err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "Invalid client public key")
	}

	sessionKey, err := envelope.RandomBytes(s.sessionKeySize)
	if err != nil {
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to generate session key")
	}
	sealed, err := envelope.Seal(&sharedSecret, sessionKey)
	if err != nil {
		s.logger.Error().Err(err).Msg("Failed to seal session key")
		return fiber.NewError(fiber.StatusInternalServerError, "Failed to seal session key")
	}

	sessionID := uuid.Must(uuid.NewV4())
	s.logger.Debug().Str("sessionId", sessionID.String()).Msg("Issued mock session")

	return ctx.JSON(map[string]string{
		"encrypted_session_key": base64.StdEncoding.EncodeToString(sealed),
		"session_id":            sessionID.String(),
	})
}

// errorHandler logs recovered errors and returns JSON instead of a string.
func errorHandler(ctx *fiber.Ctx, err error, logger *zerolog.Logger) error {
	code := fiber.StatusInternalServerError
	message := "Internal error."

	var e *fiber.Error
	if errors.As(err, &e) {
		code = e.Code
		message = e.Message
	}

	if code != fiber.StatusNotFound {
		logger.Err(err).Int("httpStatusCode", code).
			Str("httpPath", strings.TrimPrefix(ctx.Path(), "/")).
			Str("httpMethod", ctx.Method()).
			Msg("caught an error from http request")
	}

	return ctx.Status(code).JSON(map[string]any{"code": code, "message": message})
}
