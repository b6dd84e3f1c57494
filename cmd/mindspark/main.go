package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mindspark/internal/app"
	"mindspark/internal/config"
	"mindspark/internal/logger"
	"mindspark/internal/observability"
	"mindspark/internal/service"
)

func main() {
	mode := flag.String("mode", "", "Backend mode: remote or local (default: MINDSPARK_MODE or remote)")
	store := flag.String("store", "", "Local store driver: sql, redis or memory (default: STORE_DRIVER or sql)")
	debug := flag.Bool("debug", false, "Enable debug logging")
	flag.Parse()

	cfg := config.Load()
	if *mode != "" {
		cfg.BackendMode = *mode
	}
	if *store != "" {
		cfg.StoreDriver = *store
	}
	if *debug {
		cfg.Debug = true
	}
	if cfg.BackendMode != config.ModeRemote && cfg.BackendMode != config.ModeLocal {
		fmt.Fprintf(os.Stderr, "invalid mode %q: use remote or local\n", cfg.BackendMode)
		os.Exit(2)
	}

	log, err := logger.New(cfg.LogMode, cfg.Debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to create logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, log, cfg.ServiceName)
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			log.Warn("failed to shutdown tracing", "error", err)
		}
	}()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Fatal("failed to start", "error", err)
	}
	defer a.Close()

	updates, onChange := snapshotFeed()
	session := a.NewSession(service.RealScheduler{}, onChange)

	t := newTerminal(os.Stdin, os.Stdout, session, a.Certificates, cfg.DefaultCount, updates)
	if err := t.Run(ctx); err != nil {
		log.Error("terminal stopped", "error", err)
		os.Exit(1)
	}
}
