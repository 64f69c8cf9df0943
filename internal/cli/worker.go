package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"smartexpense/internal/log"
	"smartexpense/internal/worker"
)

var errAMQPRequired = errors.New("AMQP_URL must be set to run the backup worker")

var backupWorkerCmd = &cobra.Command{
	Use:   "backup-worker",
	Short: "Consume queued backup requests",
	Long:  `Take backup requests off the AMQP queue and write each snapshot to BACKUP_DIR.`,
	Args:  cobra.NoArgs,
	RunE:  runBackupWorker,
}

func init() {
	rootCmd.AddCommand(backupWorkerCmd)
}

func runBackupWorker(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if !cfg.AMQPEnabled() {
		return errAMQPRequired
	}
	ctx, stop := GracefulShutdown(cmd.Context(), logger)
	defer stop()

	app, err := NewApp(ctx, cfg, logger, appOptions{amqp: true})
	if err != nil {
		logger.Error("Failed to initialize backup worker", log.FieldError, err)
		return err
	}
	defer app.Close()

	logger.Info("Starting smartexpense backup worker",
		"queue", cfg.AMQPQueue,
		"backup_dir", cfg.BackupDir)
	return worker.NewBackupWorker(app.AMQP, app.Backups, worker.DefaultHandleTimeout, logger).Run(ctx)
}
