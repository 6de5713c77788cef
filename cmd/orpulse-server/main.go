package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/orpulse/orpulse/internal/config"
	"github.com/orpulse/orpulse/internal/domain/refdata"
	"github.com/orpulse/orpulse/internal/domain/schedgen"
	"github.com/orpulse/orpulse/internal/platform/db"
	"github.com/orpulse/orpulse/internal/platform/middleware"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "orpulse-server",
		Short: "OR schedule data engine",
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(generateCmd())
	rootCmd.AddCommand(purgeCmd())
	rootCmd.AddCommand(migrateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newLogger() zerolog.Logger {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()
	if os.Getenv("ENV") == "development" {
		logger = zerolog.New(zerolog.ConsoleWriter{Out: os.Stdout}).With().Timestamp().Logger()
	}
	return logger
}

// setup loads config and opens the connection pool, shared by all commands.
func setup(ctx context.Context) (*config.Config, *pgxpool.Pool, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	pool, err := db.NewPool(ctx, cfg.DatabaseURL, cfg.DBMaxConns, cfg.DBMinConns)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to database: %w", err)
	}
	return cfg, pool, nil
}

func newService(cfg *config.Config, pool *pgxpool.Pool, logger zerolog.Logger) *schedgen.Service {
	reader := refdata.NewReaderPG(pool)
	writer := schedgen.NewWriterPG(pool, cfg.GenBatchSize, logger)
	engine := schedgen.NewThresholdEngine()
	return schedgen.NewService(reader, writer, engine, logger)
}

func serveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Start the API server",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServer()
		},
	}
}

func runServer() error {
	logger := newLogger()

	ctx := context.Background()
	cfg, pool, err := setup(ctx)
	if err != nil {
		logger.Fatal().Err(err).Msg("startup failed")
	}
	defer pool.Close()
	logger.Info().Msg("connected to database")

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true

	e.Use(middleware.Recovery(logger))
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(logger))

	e.GET("/health", db.HealthHandler(pool))

	svc := newService(cfg, pool, logger)
	handler := schedgen.NewHandler(svc)

	admin := e.Group("/api/v1/admin", middleware.BodyLimit(cfg.MaxBodySize))
	handler.RegisterRoutes(admin)

	// Graceful shutdown
	go func() {
		addr := ":" + cfg.Port
		logger.Info().Str("addr", addr).Msg("starting server")
		if err := e.Start(addr); err != nil && err != http.ErrServerClosed {
			logger.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info().Msg("shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Fatal().Err(err).Msg("server shutdown failed")
	}
	logger.Info().Msg("server stopped")
	return nil
}

func generateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic case schedule",
		RunE: func(cmd *cobra.Command, args []string) error {
			facility, _ := cmd.Flags().GetString("facility")
			fromStr, _ := cmd.Flags().GetString("from")
			toStr, _ := cmd.Flags().GetString("to")
			seed, _ := cmd.Flags().GetInt64("seed")
			specPath, _ := cmd.Flags().GetString("spec")

			logger := newLogger()
			ctx := context.Background()

			cfg, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if facility == "" {
				facility = cfg.FacilityID
			}
			facilityID, err := uuid.Parse(facility)
			if err != nil {
				return fmt.Errorf("invalid facility id %q: %w", facility, err)
			}

			from, err := time.Parse("2006-01-02", fromStr)
			if err != nil {
				return fmt.Errorf("invalid --from date: %w", err)
			}
			to, err := time.Parse("2006-01-02", toStr)
			if err != nil {
				return fmt.Errorf("invalid --to date: %w", err)
			}

			surgeons, err := loadSurgeonSpecs(specPath)
			if err != nil {
				return err
			}

			if seed == 0 {
				seed = cfg.GenSeed
			}

			svc := newService(cfg, pool, logger)
			result := svc.Generate(ctx, schedgen.Request{
				FacilityID: facilityID,
				From:       from,
				To:         to,
				Seed:       seed,
				Surgeons:   surgeons,
				Progress: func(p schedgen.Progress) {
					fmt.Printf("[%s] %d/%d %s\n", p.Phase, p.Current, p.Total, p.Message)
				},
			})

			if !result.Success {
				return fmt.Errorf("generation failed: %s", result.Error)
			}
			fmt.Printf("Generated %d cases (%d milestones, %d staff assignments, %d implants).\n",
				result.CasesGenerated, result.Details.Milestones, result.Details.Staff, result.Details.Implants)
			fmt.Printf("Perturbations: %d cancelled, %d delayed, %d flagged, %d unvalidated.\n",
				result.Details.Cancelled, result.Details.Delayed, result.Details.Flagged, result.Details.Unvalidated)
			return nil
		},
	}
	cmd.Flags().String("facility", "", "Facility UUID (defaults to FACILITY_ID)")
	cmd.Flags().String("from", "", "Range start, YYYY-MM-DD")
	cmd.Flags().String("to", "", "Range end, YYYY-MM-DD")
	cmd.Flags().Int64("seed", 0, "RNG seed (0 uses GEN_SEED, else wall clock)")
	cmd.Flags().String("spec", "", "Path to surgeon spec JSON file")
	cmd.MarkFlagRequired("from")
	cmd.MarkFlagRequired("to")
	cmd.MarkFlagRequired("spec")
	return cmd
}

func purgeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Delete a facility's generated case data",
		RunE: func(cmd *cobra.Command, args []string) error {
			facility, _ := cmd.Flags().GetString("facility")

			logger := newLogger()
			ctx := context.Background()

			cfg, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if facility == "" {
				facility = cfg.FacilityID
			}
			facilityID, err := uuid.Parse(facility)
			if err != nil {
				return fmt.Errorf("invalid facility id %q: %w", facility, err)
			}

			svc := newService(cfg, pool, logger)
			deleted, err := svc.Purge(ctx, facilityID)
			if err != nil {
				return fmt.Errorf("purge failed: %w", err)
			}
			fmt.Printf("Deleted %d cases.\n", deleted)
			return nil
		},
	}
	cmd.Flags().String("facility", "", "Facility UUID (defaults to FACILITY_ID)")
	return cmd
}

func migrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			statusOnly, _ := cmd.Flags().GetBool("status")
			dir, _ := cmd.Flags().GetString("dir")

			ctx := context.Background()
			cfg, pool, err := setup(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if dir == "" {
				dir = cfg.MigrationsDir
			}
			migrator := db.NewMigrator(pool, dir)

			if statusOnly {
				statuses, err := migrator.Status(ctx)
				if err != nil {
					return fmt.Errorf("migration status: %w", err)
				}
				for _, s := range statuses {
					state := "pending"
					if s.Applied {
						state = "applied " + s.AppliedAt.Format(time.RFC3339)
					}
					fmt.Printf("%03d %-30s %s\n", s.Version, s.Name, state)
				}
				return nil
			}

			applied, err := migrator.Up(ctx)
			if err != nil {
				return fmt.Errorf("migrate: %w", err)
			}
			fmt.Printf("Applied %d migrations.\n", applied)
			return nil
		},
	}
	cmd.Flags().Bool("status", false, "Show migration status without applying")
	cmd.Flags().String("dir", "", "Migrations directory (defaults to MIGRATIONS_DIR)")
	return cmd
}

func loadSurgeonSpecs(path string) ([]schedgen.SurgeonSpec, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read surgeon spec file: %w", err)
	}
	var specs []schedgen.SurgeonSpec
	if err := json.Unmarshal(data, &specs); err != nil {
		return nil, fmt.Errorf("parse surgeon spec file: %w", err)
	}
	return specs, nil
}
