// Package server carries shared helpers for running the module's HTTP apps.
package server

import (
	"context"
	"fmt"
	"net"

	"github.com/gofiber/fiber/v2"
	"golang.org/x/sync/errgroup"
)

type fiberApp interface {
	Shutdown() error
	Listen(addr string) error
	Listener(listener net.Listener) error
}

// RunFiber runs a fiber server under group, shutting it down when ctx is done.
func RunFiber(ctx context.Context, app fiberApp, addr string, group *errgroup.Group) {
	group.Go(func() error {
		if err := app.Listen(addr); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})
}

// RunFiberWithListener runs a fiber server on an existing listener under
// group, shutting it down when ctx is done.
func RunFiberWithListener(ctx context.Context, app *fiber.App, listener net.Listener, group *errgroup.Group) {
	group.Go(func() error {
		if err := app.Listener(listener); err != nil {
			return fmt.Errorf("failed to start server: %w", err)
		}
		return nil
	})
	group.Go(func() error {
		<-ctx.Done()
		if err := app.Shutdown(); err != nil {
			return fmt.Errorf("failed to shutdown server: %w", err)
		}
		return nil
	})
}
