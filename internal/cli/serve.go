package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smartexpense/internal/cache"
	apphttp "smartexpense/internal/http"
	"smartexpense/internal/log"
	"smartexpense/internal/worker"
)

const (
	shutdownTimeout = 30 * time.Second
	janitorInterval = 5 * time.Minute
)

var withWorker bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve the JSON API. With AMQP configured, backups can be queued; pass
--with-worker to also consume the queue in this process.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().BoolVar(&withWorker, "with-worker", false, "consume queued backup requests in-process")
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	ctx, stop := GracefulShutdown(cmd.Context(), logger)
	defer stop()

	app, err := NewApp(ctx, cfg, logger, appOptions{session: true, sheets: true, amqp: true})
	if err != nil {
		logger.Error("Failed to initialize application", log.FieldError, err)
		return err
	}
	defer app.Close()

	srv := apphttp.NewServer(":"+cfg.Port, apphttp.Deps{
		Session:  app.Session,
		Ledger:   app.Ledger,
		Advisor:  app.Advisor,
		Exporter: app.Exporter,
		Backups:  app.Backups,
		Records:  app.Records,
		History:  app.History,
		Logger:   logger,
	}, apphttp.Options{
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
		AuthRateLimit:      cfg.AuthRateLimit,
	})

	janitor := cache.NewJanitor(logger)
	janitor.Register(app.Advisor.Cache())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("Starting smartexpense server",
			"port", cfg.Port,
			"backend", cfg.DataBackend,
			"ai_online", app.Advisor.Online(),
			"sheets", app.Exporter.SheetsEnabled(),
			"queue", app.Backups.QueueEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	g.Go(func() error { return srv.RunMaintenance(gctx) })
	g.Go(func() error { return janitor.Run(gctx, janitorInterval) })

	if withWorker {
		if app.AMQP == nil {
			logger.Warn("--with-worker ignored: AMQP_URL is not set")
		} else {
			w := worker.NewBackupWorker(app.AMQP, app.Backups, worker.DefaultHandleTimeout, logger)
			g.Go(func() error { return w.Run(gctx) })
		}
	}

	if err := g.Wait(); err != nil {
		logger.Error("Server stopped with error", log.FieldError, err)
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
