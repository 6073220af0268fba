package cmd

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/artifacts"
	"github.com/ojscutt/sl-pitchfork/internal/adapters/secondary/postgres"
	"github.com/ojscutt/sl-pitchfork/internal/config"
	"github.com/ojscutt/sl-pitchfork/internal/core/domain"
	"github.com/ojscutt/sl-pitchfork/internal/core/services"
)

var workerRun string

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Execute one queued inference run",
	Long: `Executes a single pending inference run against the shared database
and artifact store, then exits. This is the entrypoint of the Kubernetes Job
the cluster launcher creates; configuration comes from the same environment
variables the server reads.`,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().StringVar(&workerRun, "run", "", "UUID of the run to execute")
	workerCmd.MarkFlagRequired("run")
}

func runWorker(cmd *cobra.Command, args []string) error {
	id, err := uuid.Parse(workerRun)
	if err != nil {
		return fmt.Errorf("invalid run id %q: %w", workerRun, err)
	}

	cfg, err := config.Load()
	if err != nil {
		return err
	}
	if cfg.Logger.Format == "json" {
		log.SetFormatter(&log.JSONFormatter{})
	}

	poolCfg, err := pgxpool.ParseConfig(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("parse db config: %w", err)
	}
	pool, err := pgxpool.NewWithConfig(context.Background(), poolCfg)
	if err != nil {
		return fmt.Errorf("create db pool: %w", err)
	}
	defer pool.Close()

	store, err := artifacts.NewStore(cfg.Artifacts.Dir)
	if err != nil {
		return err
	}

	emulatorRepo := postgres.NewEmulatorRepository(pool)
	runRepo := postgres.NewInferenceRunRepository(pool)
	emulatorSvc := services.NewEmulatorService(emulatorRepo, runRepo, store)
	runSvc := services.NewInferenceRunService(runRepo, emulatorSvc, store, nil, nil)

	// SIGTERM cancels the run context so the executor records CANCELED
	// before the pod disappears.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.WithField("run_id", id).Info("cluster worker starting")
	if err := runSvc.Execute(ctx, id, domain.RunnerCluster); err != nil {
		log.WithError(err).WithField("run_id", id).Error("run execution failed")
		return err
	}
	log.WithField("run_id", id).Info("cluster worker finished")
	return nil
}
