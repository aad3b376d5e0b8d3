package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/chimera-red/chimera/internal/adapters/driver"
	"github.com/chimera-red/chimera/internal/adapters/events"
	"github.com/chimera-red/chimera/internal/adapters/storage"
	"github.com/chimera-red/chimera/internal/adapters/web"
	"github.com/chimera-red/chimera/internal/app"
	"github.com/chimera-red/chimera/internal/command"
	"github.com/chimera-red/chimera/internal/config"
	"github.com/chimera-red/chimera/internal/core/ports"
	"github.com/chimera-red/chimera/internal/telemetry"
)

func main() {
	// Structured logging on stderr; stdout is the event stream.
	logger := slog.New(slog.NewJSONHandler(os.Stderr, nil))
	slog.SetDefault(logger)
	log.SetOutput(os.Stderr)

	cfg := config.Load()

	telemetry.InitMetrics()
	shutdownTracer, err := telemetry.InitTracer()
	if err != nil {
		slog.Error("Failed to init tracer", "error", err)
	} else {
		defer func() {
			if err := shutdownTracer(context.Background()); err != nil {
				slog.Error("Failed to shutdown tracer", "error", err)
			}
		}()
	}

	var radioDriver ports.RadioDriver
	if cfg.MockMode {
		mac, _ := net.ParseMAC("02:00:00:c4:11:22")
		radioDriver = driver.NewMockDriver(mac)
		slog.Info("Running with mock radio")
	} else {
		radioDriver = driver.NewPcapDriver(cfg.Interface)
	}
	defer radioDriver.Close()

	store, err := storage.NewSQLiteAdapter(cfg.DBPath)
	if err != nil {
		slog.Error("Failed to open database", "error", err, "path", cfg.DBPath)
		os.Exit(1)
	}
	defer store.Close()

	hub := web.NewWSHub()
	publisher := events.NewFanout(events.NewJSONLinePublisher(os.Stdout), hub)

	application := app.New(cfg, radioDriver, store, publisher)
	defer application.Shutdown()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	slog.Info("Chimera starting", "interface", cfg.Interface, "addr", cfg.Addr)

	server := web.NewServer(cfg.Addr, application, hub)
	go func() {
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server error", "error", err)
			cancel()
		}
	}()
	defer server.Shutdown(context.Background())

	go application.RunStatsTicker(ctx)

	// Control protocol on stdin until EOF or signal.
	dispatcher := command.NewDispatcher(application, publisher)
	if err := dispatcher.Run(ctx, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		slog.Error("Command loop error", "error", err)
	}
}
