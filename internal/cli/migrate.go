package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"footy-quiz-service/internal/config"
	"footy-quiz-service/internal/infra/memory"
	"footy-quiz-service/internal/infra/postgres"
	"footy-quiz-service/internal/logging"
	"github.com/spf13/cobra"
)

// NewMigrateCmd applies database migrations.
func NewMigrateCmd(configPath *string) *cobra.Command {
	var seed bool
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Run database migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runMigrations(cmd.Context(), *configPath, seed)
		},
	}
	cmd.Flags().BoolVar(&seed, "seed", false, "import the sample football catalog after migrating")
	return cmd
}

func runMigrations(ctx context.Context, configPath string, seed bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	return runMigrationsWithConfig(ctx, cfg, logging.New(os.Stderr, cfg.LogLevel()), seed)
}

func runMigrationsWithConfig(ctx context.Context, cfg config.Config, log *slog.Logger, seed bool) error {
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}

	db := postgres.Open(cfg.Postgres.URL)
	defer db.Close()

	group, err := postgres.Migrate(ctx, db)
	if err != nil {
		return err
	}
	if group.IsZero() {
		log.Info("no new migrations")
	} else {
		log.Info("migrations applied", "group", group.String())
	}

	if seed {
		if err := postgres.NewStore(db).ImportCatalog(ctx, memory.SampleCatalog()); err != nil {
			return err
		}
		log.Info("sample catalog imported")
	}
	return nil
}
