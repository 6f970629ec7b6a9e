package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/ehr/intake/internal/config"
	"github.com/ehr/intake/internal/platform/db"
	"github.com/ehr/intake/internal/registrystub"
)

func registryStubCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "registry-stub",
		Short: "Run a local stand-in for the patient registry",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			logger := newLogger(cfg)
			port, _ := cmd.Flags().GetString("port")
			if port == "" {
				port = cfg.StubPort
			}

			ctx := context.Background()
			store := registrystub.NewMemoryStore(registrystub.DefaultAttributeTypes)
			if cfg.StubDatabaseURL != "" {
				pool, err := openStubPool(ctx, cfg)
				if err != nil {
					return err
				}
				defer pool.Close()

				count, err := db.NewMigrator(pool, registrystub.Migrations()).Up(ctx)
				if err != nil {
					return fmt.Errorf("migration failed: %w", err)
				}
				logger.Info().Int("applied", count).Msg("registry stub schema ready")
				store = registrystub.NewPGStore(pool)
			}

			e := registrystub.NewServer(store, logger).Echo(registrystub.ServerConfig{
				Username: cfg.RegistryUsername,
				Password: cfg.RegistryPassword,
			})

			go func() {
				addr := ":" + port
				logger.Info().Str("addr", addr).Bool("postgres", cfg.StubDatabaseURL != "").Msg("starting registry stub")
				if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
					logger.Error().Err(err).Msg("registry stub error")
				}
			}()

			quit := make(chan os.Signal, 1)
			signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
			<-quit

			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return e.Shutdown(shutdownCtx)
		},
	}
	cmd.Flags().String("port", "", "Listen port (defaults to STUB_PORT)")
	return cmd
}

func openStubPool(ctx context.Context, cfg *config.Config) (*pgxpool.Pool, error) {
	if cfg.StubDatabaseURL == "" {
		return nil, fmt.Errorf("STUB_DATABASE_URL is required")
	}
	return db.NewPool(ctx, db.PoolConfig{
		URL:      cfg.StubDatabaseURL,
		MaxConns: cfg.DBMaxConns,
		MinConns: cfg.DBMinConns,
	})
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run registry stub database migrations",
	}

	// migrate up
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply pending migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openStubPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			count, err := db.NewMigrator(pool, registrystub.Migrations()).Up(ctx)
			if err != nil {
				return fmt.Errorf("migration failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d migration(s) successfully.\n", count)
			return nil
		},
	})

	// migrate status
	cmd.AddCommand(&cobra.Command{
		Use:   "status",
		Short: "Show migration status",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}

			ctx := context.Background()
			pool, err := openStubPool(ctx, cfg)
			if err != nil {
				return err
			}
			defer pool.Close()

			statuses, err := db.NewMigrator(pool, registrystub.Migrations()).Status(ctx)
			if err != nil {
				return fmt.Errorf("failed to get migration status: %w", err)
			}
			printMigrationStatus(cmd.OutOrStdout(), statuses)
			return nil
		},
	})

	return cmd
}

func printMigrationStatus(w io.Writer, statuses []db.MigrationStatus) {
	fmt.Fprintf(w, "%-10s %-40s %-10s %s\n", "VERSION", "NAME", "STATUS", "APPLIED AT")
	fmt.Fprintln(w, "---------- ---------------------------------------- ---------- --------------------")
	for _, s := range statuses {
		status := "pending"
		appliedAt := ""
		if s.Applied {
			status = "applied"
			if s.AppliedAt != nil {
				appliedAt = s.AppliedAt.Format("2006-01-02 15:04:05")
			}
		}
		fmt.Fprintf(w, "%-10d %-40s %-10s %s\n", s.Version, s.Name, status, appliedAt)
	}
}
