package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"mediascribe/config"
	"mediascribe/web"
)

// runServe starts the browser UI and blocks until interrupted
func (a *app) runServe(args []string) int {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	addr := fs.String("addr", a.cfg.ListenAddr, "listen address")
	if err := fs.Parse(args); err != nil {
		return 2
	}

	if err := config.CheckAPIKey(); err != nil {
		a.logger.Warn("no API key configured; transcription requests will fail",
			slog.String("help", "set GEMINI_API_KEY"))
	}

	srv := web.NewServer(web.Options{
		Addr:       *addr,
		Connect:    a.connect,
		HTTPClient: a.fetchClient(),
		Version:    version,
		Logger:     a.logger,
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() { errCh <- srv.Start() }()

	select {
	case err := <-errCh:
		if err != nil {
			fmt.Fprintln(a.stderr, errorStyle.Render("Error: "+err.Error()))
			return 1
		}
		return 0
	case <-ctx.Done():
	}

	a.logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		a.logger.Error("shutdown failed", slog.String("error", err.Error()))
		return 1
	}
	return 0
}
