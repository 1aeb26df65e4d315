package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"veritas-hq/sentinel/pkg/config"
	"veritas-hq/sentinel/pkg/policy/source"
	"veritas-hq/sentinel/pkg/telemetry/logging"
	"veritas-hq/sentinel/pkg/telemetry/metrics"
	"veritas-hq/sentinel/pkg/telemetry/tracing"
)

var runFlags struct {
	logLevel string
	dryRun   bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the moderation service",
	Long: `Start the moderation service with the specified configuration.

The service loads policies, connects to the scoring provider, and keeps
the rate limiter and tenant cache warm. Metrics are exposed on the
configured address when enabled.

Examples:
  # Start with default config
  sentinel run

  # Start with custom config
  sentinel run --config /etc/sentinel/config.yaml

  # Validate config without starting
  sentinel run --dry-run`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runService(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}

	logger, err := logging.New(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	if runFlags.dryRun {
		fmt.Println("configuration valid")
		return nil
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTracing, err := tracing.Setup(ctx, tracing.Config{
		Enabled:     cfg.Telemetry.Tracing.Enabled,
		Endpoint:    cfg.Telemetry.Tracing.Endpoint,
		ServiceName: cfg.Telemetry.Tracing.ServiceName,
		SampleRate:  cfg.Telemetry.Tracing.SampleRate,
		Insecure:    cfg.Telemetry.Tracing.Insecure,
	})
	if err != nil {
		return fmt.Errorf("setup tracing: %w", err)
	}
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(shutdownCtx); err != nil {
			logger.Warn("tracing shutdown failed", "error", err)
		}
	}()

	prov, err := buildProvider(cfg.Provider)
	if err != nil {
		return err
	}
	defer prov.Close()
	logger.Info("provider ready", "name", prov.GetName(), "type", prov.GetType())

	src, err := buildPolicySource(cfg.Policy, logger)
	if err != nil {
		return err
	}
	store, err := buildPolicyStore(ctx, src)
	if err != nil {
		return err
	}
	logger.Info("policies loaded", "count", store.Len(), "mode", cfg.Policy.Mode)

	lim, backend, err := buildLimiter(ctx, cfg.Limits)
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}

	tenants, err := buildTenantCache(cfg.Tenants)
	if err != nil {
		return err
	}

	m := metrics.New()
	m.TrackSizes(lim.TenantCount, func() int {
		if tenants == nil {
			return 0
		}
		return tenants.Len()
	})

	// Background jobs: limiter sweep, state persistence, git policy sync.
	jobs := cron.New()
	if _, err := jobs.AddFunc(cfg.Limits.SweepSchedule, func() {
		if removed := lim.Sweep(); removed > 0 {
			logger.Debug("swept idle tenants from limiter", "removed", removed)
		}
	}); err != nil {
		return fmt.Errorf("limits: bad sweep_schedule: %w", err)
	}
	if backend != nil {
		if _, err := jobs.AddFunc("@every 1m", func() {
			if err := backend.Save(ctx, lim.Snapshot()); err != nil {
				logger.Warn("persist limiter state failed", "error", err)
			}
		}); err != nil {
			return err
		}
	}

	switch s := src.(type) {
	case *source.FileSource:
		if cfg.Policy.Watch {
			go func() {
				if err := s.Watch(ctx, store); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("policy watch stopped", "error", err)
				}
			}()
		}
	case *source.GitSource:
		schedule := fmt.Sprintf("@every %s", cfg.Policy.SyncInterval)
		if _, err := jobs.AddFunc(schedule, func() {
			policies, err := s.Load(ctx)
			if err != nil {
				logger.Warn("policy sync failed", "error", err)
				return
			}
			if err := store.Replace(policies); err != nil {
				logger.Warn("policy sync rejected", "error", err)
				return
			}
			logger.Info("policies synced", "count", store.Len())
		}); err != nil {
			return err
		}
	}
	jobs.Start()
	defer jobs.Stop()

	var metricsSrv *http.Server
	if cfg.Telemetry.Metrics.Enabled {
		mux := http.NewServeMux()
		mux.Handle("/metrics", m.Handler())
		metricsSrv = &http.Server{Addr: cfg.Telemetry.Metrics.ListenAddress, Handler: mux}
		go func() {
			logger.Info("metrics listening", "address", metricsSrv.Addr)
			if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				logger.Error("metrics server failed", "error", err)
			}
		}()
	}

	logger.Info("sentinel running",
		"default_policy", cfg.Policy.DefaultPolicy,
		"rate_window", cfg.Limits.Window,
		"rate_cap", cfg.Limits.Cap)

	<-ctx.Done()
	logger.Info("shutting down")

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics shutdown failed", "error", err)
		}
	}
	if backend != nil {
		saveCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := backend.Save(saveCtx, lim.Snapshot()); err != nil {
			logger.Warn("final limiter save failed", "error", err)
		}
	}
	return nil
}
