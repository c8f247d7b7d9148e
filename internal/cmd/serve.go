package cmd

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/routemeta/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the road-type analysis HTTP API",
	RunE:  runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().String("addr", "127.0.0.1:8080", "Listen address (host:port)")
	serveCmd.Flags().Int64("max-body-bytes", 4<<20, "Maximum request body size in bytes")
	serveCmd.Flags().Int("max-points", 10000, "Maximum points per route (0 disables the limit)")
	serveCmd.Flags().Int("max-concurrent", 4, "Max concurrent route analyses")
	serveCmd.Flags().String("cors-origin", "*", "Access-Control-Allow-Origin header value")
	serveCmd.Flags().Duration("engine-timeout", 8*time.Second, "Classification timeout per route")
	serveCmd.Flags().Int("engine-workers", 16, "Concurrent point classifications per route")

	mustBind := func(key string, name string) {
		if err := viper.BindPFlag(key, serveCmd.Flags().Lookup(name)); err != nil {
			panic(fmt.Sprintf("failed to bind flag: %v", err))
		}
	}

	mustBind("serve.addr", "addr")
	mustBind("serve.max_body_bytes", "max-body-bytes")
	mustBind("serve.max_points", "max-points")
	mustBind("serve.max_concurrent", "max-concurrent")
	mustBind("serve.cors_origin", "cors-origin")
	mustBind("engine.timeout", "engine-timeout")
	mustBind("engine.workers", "engine-workers")
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rt, err := newEngineRuntime(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("failed to close cache", "error", err)
		}
	}()

	api := server.NewAPI(rt.engine, server.APIConfig{
		MaxBodyBytes:  cfg.Serve.MaxBodyBytes,
		MaxPoints:     cfg.Serve.MaxPoints,
		MaxConcurrent: cfg.Serve.MaxConcurrent,
		CORSOrigin:    cfg.Serve.CORSOrigin,
		Registry:      rt.registry,
		Cache:         rt.cached,
		Source:        rt.source,
	}, logger.With("component", "server"))

	srv := &http.Server{
		Addr:              cfg.Serve.Addr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.Serve.ReadTimeout,
		WriteTimeout:      cfg.Serve.WriteTimeout,
	}

	logger.Info("api server listening",
		"addr", cfg.Serve.Addr,
		"data_source", rt.source.Name(),
		"cache", cfg.Cache.Backend,
		"engine_workers", cfg.Engine.Workers,
		"engine_timeout", cfg.Engine.Timeout,
		"max_concurrent", cfg.Serve.MaxConcurrent,
	)

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down api server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
