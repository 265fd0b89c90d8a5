package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/timtanatarov/daydi-spa/internal/api"
	"github.com/timtanatarov/daydi-spa/internal/auth"
	"github.com/timtanatarov/daydi-spa/internal/certs"
	"github.com/timtanatarov/daydi-spa/internal/config"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP server",
	Long: `Runs the contact API until SIGINT or SIGTERM.

Routes:
  GET  /health       liveness probe
  POST /contact      append one submission
  POST /sheets/init  write headers and formatting (bearer token when
                     server.init_token_hash is set)`,
	RunE: runServe,
}

func runServe(cmd *cobra.Command, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ln, err := net.Listen("tcp", cfg.Server.Addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", cfg.Server.Addr, err)
	}
	return serve(ctx, ln, cfg, logger)
}

// newServer builds the HTTP server for cfg.
func newServer(cfg *config.Config, log *zap.Logger) (*http.Server, error) {
	client, err := newSheetClient(cfg, log)
	if err != nil {
		return nil, err
	}
	guard, err := auth.NewTokenGuard(cfg.Server.InitTokenHash)
	if err != nil {
		return nil, err
	}
	loc, err := cfg.Location()
	if err != nil {
		return nil, err
	}
	timeout, err := cfg.RequestTimeout()
	if err != nil {
		return nil, err
	}

	handlers := &api.Handlers{
		Sheet:    client,
		Log:      log,
		Location: loc,
		Timeout:  timeout,
	}
	srv := &http.Server{
		Handler:           api.NewRouter(handlers, guard),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          zap.NewStdLog(log),
	}
	if cfg.Server.TLSCertFile != "" {
		tlsConfig, err := certs.NewCertManager(cfg.Server.TLSCertFile, cfg.Server.TLSKeyFile, log).TLSConfig()
		if err != nil {
			return nil, err
		}
		srv.TLSConfig = tlsConfig
	}
	if !guard.Enabled() {
		log.Warn("POST /sheets/init is not protected; set server.init_token_hash to require a token")
	}
	return srv, nil
}

// serve runs the server on ln until ctx is done, then shuts it down within
// the configured shutdown timeout.
func serve(ctx context.Context, ln net.Listener, cfg *config.Config, log *zap.Logger) error {
	srv, err := newServer(cfg, log)
	if err != nil {
		_ = ln.Close()
		return err
	}
	shutdownTimeout, err := cfg.ShutdownTimeout()
	if err != nil {
		_ = ln.Close()
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		log.Info("server listening",
			zap.String("addr", ln.Addr().String()),
			zap.String("backend", cfg.Sheets.Backend),
			zap.Bool("tls", srv.TLSConfig != nil),
		)
		var err error
		if srv.TLSConfig != nil {
			err = srv.ServeTLS(ln, "", "")
		} else {
			err = srv.Serve(ln)
		}
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	})
	g.Go(func() error {
		<-gctx.Done()
		sctx := context.Background()
		if shutdownTimeout > 0 {
			var cancel context.CancelFunc
			sctx, cancel = context.WithTimeout(sctx, shutdownTimeout)
			defer cancel()
		}
		log.Info("shutting down")
		return srv.Shutdown(sctx)
	})
	return g.Wait()
}
