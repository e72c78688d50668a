package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"tailscale.com/tsnet"

	"github.com/meltforce/liftlog/internal/config"
	"github.com/meltforce/liftlog/internal/library"
	"github.com/meltforce/liftlog/internal/server"
	"github.com/meltforce/liftlog/internal/session"
	"github.com/meltforce/liftlog/internal/settings"
	"github.com/meltforce/liftlog/internal/timer"
)

const shutdownTimeout = 10 * time.Second

var serveMemory bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API, on the tailnet when tailscale is enabled",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().BoolVar(&serveMemory, "memory", false, "keep data in memory instead of PostgreSQL")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, log, err := setup(cmd)
	if err != nil {
		return err
	}
	log.Info("liftlog starting", "version", Version)
	ctx := cmd.Context()

	store, closeStore, err := openStore(ctx, cfg, serveMemory, log)
	if err != nil {
		return err
	}
	defer closeStore()

	lib, err := library.Load(cfg.Library.Path)
	if err != nil {
		return err
	}
	if cfg.Library.Watch {
		if err := lib.Watch(ctx, log); err != nil {
			return err
		}
		log.Info("watching exercise library", "path", cfg.Library.Path)
	}

	prefs, err := settings.Open(cfg.Settings.Path, cfg.Training.Analytics())
	if err != nil {
		return err
	}
	defer prefs.Close()

	srv := server.New(server.Deps{
		Store:    store,
		Library:  lib,
		Settings: prefs,
		Session:  sessionOptions(cfg, log),
	}, log)

	if err := srv.ResumeActive(ctx); err != nil {
		log.Warn("could not resume active session", "error", err)
	}

	listener, cleanup, err := listen(cfg, srv, log)
	if err != nil {
		return err
	}
	defer cleanup()

	httpSrv := &http.Server{Handler: srv}
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- httpSrv.Serve(listener)
	}()

	select {
	case err := <-serveErr:
		if !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "error", err)
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", "error", err)
	}
	if err := srv.Close(shutdownCtx); err != nil {
		log.Error("closing live session", "error", err)
	}
	log.Info("server stopped")
	return nil
}

// sessionOptions configures every workout the server runs.
func sessionOptions(cfg *config.Config, log *slog.Logger) session.Options {
	return session.Options{
		Logger:             log,
		DefaultRestSeconds: cfg.Training.DefaultRestSeconds,
		Notifier: timer.NotifierFunc(func() {
			log.Info("rest timer expired")
		}),
		OnPersistError: func(err error) {
			log.Warn("session write failed, will reconcile", "error", err)
		},
	}
}

// listen opens the tsnet listener when tailscale is enabled and a plain TCP
// listener otherwise.
func listen(cfg *config.Config, srv *server.Server, log *slog.Logger) (net.Listener, func(), error) {
	if !cfg.Tailscale.Enabled {
		addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
		ln, err := net.Listen("tcp", addr)
		if err != nil {
			return nil, nil, fmt.Errorf("listen %s: %w", addr, err)
		}
		log.Info("server starting", "addr", addr, "mode", "dev (no tailscale)")
		return ln, func() {}, nil
	}

	ts := &tsnet.Server{
		Hostname: cfg.Tailscale.Hostname,
		Dir:      cfg.Tailscale.StateDir,
	}
	if err := ts.Start(); err != nil {
		return nil, nil, fmt.Errorf("tsnet start: %w", err)
	}
	lc, err := ts.LocalClient()
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet local client: %w", err)
	}
	srv.SetTailscale(lc)

	ln, err := ts.Listen("tcp", ":80")
	if err != nil {
		ts.Close()
		return nil, nil, fmt.Errorf("tsnet listen: %w", err)
	}
	log.Info("tsnet server starting", "hostname", cfg.Tailscale.Hostname)
	return ln, func() { ts.Close() }, nil
}
