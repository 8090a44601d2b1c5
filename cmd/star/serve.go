package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dreamware/starlane/internal/config"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start this star and keep it running until terminated",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context())
		},
	}
}

func runServe(ctx context.Context) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	n, err := buildNode(runCtx, cfg)
	if err != nil {
		return err
	}

	go func() {
		if err := n.runLanes(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			n.log.WithError(err).Error("star: lanes stopped")
		}
	}()

	admin := n.adminServer()
	go func() {
		n.log.WithField("addr", admin.Addr).Info("star: admin surface listening")
		if err := admin.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			n.log.WithError(err).Fatal("star: admin surface failed")
		}
	}()

	starDone := make(chan error, 1)
	go func() { starDone <- n.star.Run(runCtx) }()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	routerStoppedEarly := false
	select {
	case <-stop:
		n.log.Info("star: shutdown signal received")
	case err := <-starDone:
		routerStoppedEarly = true
		if err != nil && !errors.Is(err, context.Canceled) {
			n.log.WithError(err).Error("star: router stopped unexpectedly")
		}
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()
	if err := admin.Shutdown(shutdownCtx); err != nil {
		n.log.WithError(err).Warn("star: admin shutdown error")
	}

	if !routerStoppedEarly {
		<-starDone
	}
	n.log.Info("star: stopped")
	return nil
}
