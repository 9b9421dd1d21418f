package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/enclavekit/enclavekit/pkg/certs"
	"github.com/enclavekit/enclavekit/pkg/client"
	"github.com/enclavekit/enclavekit/pkg/config"
	"github.com/enclavekit/enclavekit/pkg/server"
)

func main() {
	logger := server.DefaultLogger("enclave-probe")

	settingsFile := flag.String("settings", "settings.yaml", "settings file")
	flag.Parse()
	settings, err := config.LoadSettings(*settingsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Couldn't load settings.")
	}
	server.SetLevel(logger, settings.LogLevel)

	pins, err := settings.ExpectedPCRBytes()
	if err != nil {
		logger.Fatal().Err(err).Msg("Couldn't decode expected PCR values.")
	}

	opts := []client.Option{client.WithLogger(*logger)}
	if pins != nil {
		opts = append(opts, client.WithExpectedPCRs(pins))
	}
	if settings.MockAttestation {
		logger.Warn().Msg("Mock attestation enabled; chain and signature checks are skipped")
		opts = append(opts, client.WithInsecureMockAttestation())
	} else {
		root, err := certs.Root()
		if err != nil {
			logger.Fatal().Err(err).Msg("Couldn't parse the pinned root certificate.")
		}
		logger.Info().
			Str("subject", root.Subject.String()).
			Time("notAfter", root.NotAfter).
			Msg("Pinning root certificate.")
	}
	if settings.VsockDialPort != 0 {
		opts = append(opts, client.WithVsockTransport(settings.VsockDialPort))
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	c := client.New(settings.BaseURL, opts...)
	if err := c.EstablishSession(ctx); err != nil {
		logger.Fatal().Err(err).Msg("Handshake failed.")
	}

	state, ok := c.Session()
	if !ok {
		logger.Fatal().Msg("Handshake succeeded but no session was stored.")
	}
	logger.Info().Str("sessionId", state.ID.String()).Msg("Attested session established.")
}
