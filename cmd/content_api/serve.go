package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/jonathan/content-pipeline/internal/config"
	"github.com/jonathan/content-pipeline/internal/logging"
	"github.com/jonathan/content-pipeline/internal/observability"
	"github.com/jonathan/content-pipeline/internal/server"
	"github.com/jonathan/content-pipeline/internal/server/ratelimit"
)

// storePingInterval is how often serve checks database reachability.
const storePingInterval = 30 * time.Second

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the REST API server",
	Long:  `Start an HTTP server exposing client management and content generation endpoints.`,
	RunE:  runServe,
}

func init() {
	serveCmd.Flags().IntVar(&servePort, "port", 0, "Port to listen on (overrides PORT)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	settings, log, err := loadSettings()
	if err != nil {
		return err
	}
	if servePort != 0 {
		settings.Port = servePort
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.InitTracing(ctx, log, observability.TracingConfig{
		ServiceName: "content-pipeline",
		Environment: settings.LogMode,
		Version:     settings.AppVersion,
	})
	defer func() {
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(flushCtx); err != nil {
			log.Warn("tracing shutdown failed", "error", err)
		}
	}()

	a, err := newApp(ctx, settings, log)
	if err != nil {
		return err
	}
	defer a.Close()

	jwtCfg, err := settings.JWT()
	if err != nil {
		return err
	}
	if jwtCfg == nil {
		log.Warn("SECRET_KEY not set; API authentication is disabled")
	}

	limiter, err := newRateLimiter(settings)
	if err != nil {
		return err
	}

	srv := server.New(server.Config{
		Port:           settings.Port,
		AppName:        settings.AppName,
		Version:        settings.AppVersion,
		AllowedOrigins: settings.AllowedOrigins,
		JWT:            jwtCfg,
		RateLimiter:    limiter,
	}, a.store, a.pipeline, log)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return srv.Start(gctx)
	})
	g.Go(func() error {
		watchStore(gctx, a, log)
		return nil
	})
	return g.Wait()
}

// newRateLimiter uses Redis when REDIS_ADDR is set so limits hold across replicas.
func newRateLimiter(settings *config.Settings) (*ratelimit.Limiter, error) {
	cfg := ratelimit.LoadConfig(settings.RateLimitEnabled)
	if settings.RedisAddr == "" || !cfg.Enabled {
		return ratelimit.NewLimiter(cfg), nil
	}
	limiter, err := ratelimit.NewRedisLimiter(cfg, settings.RedisAddr, os.Getenv("REDIS_PASSWORD"))
	if err != nil {
		return nil, fmt.Errorf("failed to create redis rate limiter: %w", err)
	}
	return limiter, nil
}

// watchStore logs when the database stops answering pings.
func watchStore(ctx context.Context, a *app, log *logging.Logger) {
	ticker := time.NewTicker(storePingInterval)
	defer ticker.Stop()
	healthy := true
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err := a.store.Ping(pingCtx)
			cancel()
			switch {
			case err != nil && healthy:
				log.Error("database ping failed", "error", err)
			case err == nil && !healthy:
				log.Info("database reachable again")
			}
			healthy = err == nil
		}
	}
}
