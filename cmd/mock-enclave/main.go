package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/sync/errgroup"

	"github.com/enclavekit/enclavekit/internal/mockenclave"
	"github.com/enclavekit/enclavekit/pkg/config"
	"github.com/enclavekit/enclavekit/pkg/server"
)

func main() {
	logger := server.DefaultLogger("mock-enclave")

	settingsFile := flag.String("settings", "settings.yaml", "settings file")
	flag.Parse()
	settings, err := config.LoadSettings(*settingsFile)
	if err != nil {
		logger.Fatal().Err(err).Msg("Couldn't load settings.")
	}
	server.SetLevel(logger, settings.LogLevel)

	sim, err := mockenclave.New(logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to create mock enclave.")
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	group, groupCtx := errgroup.WithContext(ctx)

	logger.Info().Str("port", strconv.Itoa(settings.MonPort)).Msg("Starting monitoring server")
	server.RunFiber(groupCtx, createMonitoringServer(), ":"+strconv.Itoa(settings.MonPort), group)
	logger.Info().Str("port", strconv.Itoa(settings.Port)).Msg("Starting mock enclave server")
	server.RunFiber(groupCtx, sim.App(), ":"+strconv.Itoa(settings.Port), group)

	if err := group.Wait(); err != nil {
		logger.Fatal().Err(err).Msg("Failed to run servers.")
	}
}

func createMonitoringServer() *fiber.App {
	monApp := fiber.New(fiber.Config{DisableStartupMessage: true})
	monApp.Get("/", func(c *fiber.Ctx) error { return nil })
	monApp.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))
	return monApp
}
