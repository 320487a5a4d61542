package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"modelgw/internal/backend"
	"modelgw/internal/config"
	"modelgw/internal/httpapi"
	"modelgw/internal/manager"
)

const shutdownGrace = 5 * time.Second

func newServeCmd(a *app) *cobra.Command {
	var (
		addr, modelsDir, defaultModel, backendName, workerURL string
		corsOrigins                                           string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP gateway",
		RunE: func(cmd *cobra.Command, args []string) error {
			f := cmd.Flags()
			if f.Changed("addr") {
				a.cfg.Addr = addr
			}
			if f.Changed("models-dir") {
				a.cfg.ModelsDir = modelsDir
			}
			if f.Changed("default-model") {
				a.cfg.DefaultModel = defaultModel
			}
			if f.Changed("backend") {
				a.cfg.Backend = backendName
			}
			if f.Changed("worker-url") {
				a.cfg.WorkerURL = workerURL
			}
			if f.Changed("cors-origins") {
				a.cfg.CORS.Enabled = true
				a.cfg.CORS.AllowedOrigins = splitCSV(corsOrigins)
			}
			if err := a.cfg.Validate(); err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return a.serve(ctx)
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "HTTP listen address, e.g. :8000")
	cmd.Flags().StringVar(&modelsDir, "models-dir", "", "Directory of model descriptors")
	cmd.Flags().StringVar(&defaultModel, "default-model", "", "Model used when a request names none")
	cmd.Flags().StringVar(&backendName, "backend", "", "Backend: openai|echo")
	cmd.Flags().StringVar(&workerURL, "worker-url", "", "Base URL of the OpenAI-compatible worker")
	cmd.Flags().StringVar(&corsOrigins, "cors-origins", "", "Comma-separated allowed CORS origins (enables CORS)")
	return cmd
}

// serve runs the gateway until ctx is cancelled, then drains and shuts down.
func (a *app) serve(ctx context.Context) error {
	reg, err := a.loadRegistry()
	if err != nil {
		return err
	}
	adapter := newAdapter(a.cfg, a.log)
	mgr := manager.NewWithConfig(manager.ManagerConfig{
		Registry:      reg,
		Adapter:       adapter,
		BackendName:   a.cfg.Backend,
		DefaultModel:  a.cfg.DefaultModel,
		MaxQueueDepth: a.cfg.MaxQueueDepth,
		MaxWait:       time.Duration(a.cfg.MaxWaitSeconds) * time.Second,
		Publisher:     manager.LogPublisher{Log: a.log},
		Logger:        &a.log,
	})

	configureHTTP(ctx, a.cfg, a.log)
	srv := &http.Server{
		Addr:              a.cfg.Addr,
		Handler:           httpapi.NewMux(mgr),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("addr", a.cfg.Addr).Str("backend", a.cfg.Backend).Str("models_dir", a.cfg.ModelsDir).Msg("modelgw listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}
	a.log.Info().Msg("shutting down")
	mgr.Drain()
	sctx, cancel := context.WithTimeout(context.Background(), shutdownGrace)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		a.log.Warn().Err(err).Msg("graceful shutdown error")
	}
	return nil
}

func newAdapter(cfg config.Config, log zerolog.Logger) backend.Adapter {
	switch cfg.Backend {
	case config.BackendEcho:
		return backend.Echo{}
	default:
		return backend.NewOpenAIWorker(backend.OpenAIWorkerConfig{
			BaseURL:        cfg.WorkerURL,
			APIKey:         cfg.WorkerAPIKey,
			RequestTimeout: time.Duration(cfg.RequestTimeoutSeconds) * time.Second,
			ConnectTimeout: time.Duration(cfg.ConnectTimeoutSeconds) * time.Second,
			Logger:         &log,
		})
	}
}

// configureHTTP applies cfg to the httpapi package settings. Generations
// are bounded by the queue wait plus the worker timeout.
func configureHTTP(base context.Context, cfg config.Config, log zerolog.Logger) {
	httpapi.SetLogger(log)
	httpapi.SetRequestLogLevel(cfg.LogLevel)
	httpapi.SetMaxBodyBytes(cfg.MaxBodyBytes)
	if cfg.RequestTimeoutSeconds > 0 {
		httpapi.SetGenerationTimeoutSeconds(int64(cfg.RequestTimeoutSeconds + cfg.MaxWaitSeconds))
	} else {
		httpapi.SetGenerationTimeoutSeconds(0)
	}
	httpapi.SetCORSOptions(cfg.CORS.Enabled, cfg.CORS.AllowedOrigins, cfg.CORS.AllowedMethods, cfg.CORS.AllowedHeaders)
	httpapi.SetRateLimit(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
	httpapi.SetBaseContext(base)
}

func splitCSV(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}
