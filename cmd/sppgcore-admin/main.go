// Command sppgcore-admin runs maintenance operations against the SPPG
// dashboard's Redis store: the expired-session sweep, tenant cache
// flushes, and a store health check.
//
// Configuration comes from the environment (optionally via a .env file):
// REDIS_ADDR, REDIS_PASSWORD, REDIS_DB.
package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/gizihub/sppgcore"
	"github.com/gizihub/sppgcore/audit"
)

const opTimeout = 30 * time.Second

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "sppgcore-admin",
		Short:         "Maintenance operations for the SPPG dashboard core",
		SilenceUsage:  true,
		SilenceErrors: false,
	}

	root.AddCommand(newSweepCmd())
	root.AddCommand(newFlushTenantCmd())
	root.AddCommand(newHealthCmd())
	return root
}

func buildCore(logger *zap.Logger) (*sppgcore.Core, func(), error) {
	// Missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	addr := os.Getenv("REDIS_ADDR")
	if addr == "" {
		addr = "localhost:6379"
	}
	db := 0
	if raw := os.Getenv("REDIS_DB"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			return nil, nil, fmt.Errorf("invalid REDIS_DB %q: %w", raw, err)
		}
		db = parsed
	}

	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       db,
	})

	core, err := sppgcore.New().
		WithRedis(client).
		WithLogger(logger).
		WithAuditSink(audit.NewLoggerSink(logger.Named("audit"))).
		Build()
	if err != nil {
		_ = client.Close()
		return nil, nil, err
	}

	cleanup := func() {
		core.Close()
		_ = client.Close()
	}
	return core, cleanup, nil
}

func newLogger() (*zap.Logger, error) {
	if os.Getenv("SPPGCORE_DEBUG") != "" {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}

func newSweepCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "sweep",
		Short: "Delete sessions past their app-level expiry",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			core, cleanup, err := buildCore(logger)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			removed := core.Sessions.CleanupExpired(ctx)
			logger.Info("session sweep complete", zap.Int("removed", removed))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d expired sessions\n", removed)
			return nil
		},
	}
}

func newFlushTenantCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "flush-tenant <tenant-id>",
		Short: "Delete every cache entry and tag index of a tenant",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			core, cleanup, err := buildCore(logger)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			tenantID := args[0]
			removed := core.Cache.InvalidateTenant(ctx, tenantID)
			logger.Info("tenant cache flushed",
				zap.String("tenantId", tenantID),
				zap.Int("removed", removed))
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d keys for tenant %s\n", removed, tenantID)
			return nil
		},
	}
}

func newHealthCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "health",
		Short: "Ping the store and print cache statistics",
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger, err := newLogger()
			if err != nil {
				return err
			}
			defer func() { _ = logger.Sync() }()

			core, cleanup, err := buildCore(logger)
			if err != nil {
				return err
			}
			defer cleanup()

			ctx, cancel := context.WithTimeout(cmd.Context(), opTimeout)
			defer cancel()

			health := core.Cache.HealthCheck(ctx)
			stats := core.Cache.StatsSnapshot(ctx)
			keys, err := core.Store.DBSize(ctx)
			if err != nil {
				logger.Warn("dbsize failed", zap.Error(err))
			}

			fmt.Fprintf(cmd.OutOrStdout(), "healthy: %v\nlatency: %s\ncache entries: %d\ntotal keys: %d\nmemory: %d bytes\nhit rate: %.2f\n",
				health.Healthy, health.Latency, stats.EntryCount, keys, stats.MemoryUsedBytes, stats.HitRate)

			if !health.Healthy {
				return fmt.Errorf("store unhealthy")
			}
			return nil
		},
	}
}
