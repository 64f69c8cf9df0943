package cli

import (
	"context"
	"errors"
	"fmt"

	"smartexpense/internal/accounts"
	"smartexpense/internal/advisor"
	"smartexpense/internal/amqp"
	"smartexpense/internal/backend"
	"smartexpense/internal/backup"
	"smartexpense/internal/config"
	"smartexpense/internal/export"
	apphttp "smartexpense/internal/http"
	"smartexpense/internal/log"
	"smartexpense/internal/records"
	"smartexpense/internal/services"
	"smartexpense/internal/session"
	"smartexpense/internal/sheets"
	gsheet "smartexpense/internal/sheets/google"
)

// App holds the services shared by every command.
type App struct {
	Config   *config.Config
	Logger   *log.Logger
	Records  *records.Store
	Accounts *accounts.Directory
	Ledger   *services.LedgerService
	Exporter *export.Exporter
	Backups  *backup.Service
	History  apphttp.BackupHistory

	// Set only by the serve command.
	Session *session.Manager
	Advisor *advisor.Advisor

	// AMQP is nil unless a broker URL is configured.
	AMQP *amqp.Client

	backend *backend.BackendResult
}

type appOptions struct {
	session bool
	sheets  bool
	amqp    bool
}

// NewApp opens the configured record store and builds the services the
// command asked for. Close releases what it opened.
func NewApp(ctx context.Context, cfg *config.Config, logger *log.Logger, opts appOptions) (*App, error) {
	backendCfg, err := backend.FromAppConfig(cfg)
	if err != nil {
		return nil, err
	}
	res, err := backend.NewFactory(logger).CreateBackend(ctx, backendCfg)
	if err != nil {
		return nil, fmt.Errorf("create %s backend: %w", backendCfg.Type, err)
	}

	app := &App{Config: cfg, Logger: logger, backend: res}
	app.Records = records.New(res.Store, logger)
	app.Accounts = accounts.NewDirectory(app.Records, logger)
	app.Ledger = services.NewLedgerService(app.Records, logger)

	var sheet sheets.TableWriter
	if opts.sheets && cfg.SheetsEnabled() {
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      cfg.GoogleSpreadsheetID,
			SheetName:          cfg.GoogleSheetName,
			ServiceAccountJSON: cfg.GoogleServiceAccountJSON,
			ServiceAccountFile: cfg.GoogleServiceAccountFile,
			Logger:             logger.WithComponent(log.ComponentExport),
		})
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init google sheets: %w", err)
		}
		sheet = client
		logger.Info("Google Sheets export enabled", "spreadsheet_id", cfg.GoogleSpreadsheetID)
	}
	app.Exporter = export.New(sheet, logger)

	backupOpts := []backup.Option{backup.WithLogger(logger)}
	if recorder, ok := res.Store.(backup.Recorder); ok {
		backupOpts = append(backupOpts, backup.WithRecorder(recorder))
	}
	if history, ok := res.Store.(apphttp.BackupHistory); ok {
		app.History = history
	}
	if opts.amqp && cfg.AMQPEnabled() {
		client, err := amqp.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("init amqp: %w", err)
		}
		app.AMQP = client
		backupOpts = append(backupOpts, backup.WithPublisher(client))
		logger.Info("Queued backups enabled", "exchange", cfg.AMQPExchange, "queue", cfg.AMQPQueue)
	}
	app.Backups = backup.NewService(app.Records, cfg.BackupDir, backupOpts...)

	if opts.session {
		codes := session.NewCodeIssuer(cfg.VerificationMode, cfg.VerificationCode, logger)
		app.Session, err = session.NewManager(ctx, app.Accounts, app.Records, codes, logger)
		if err != nil {
			app.Close()
			return nil, fmt.Errorf("restore session: %w", err)
		}

		provider, err := advisor.NewProvider(advisor.Config{
			Provider: cfg.AIProvider,
			APIKey:   cfg.AIAPIKey,
			Model:    cfg.AIModel,
			BaseURL:  cfg.AIBaseURL,
			Timeout:  cfg.AITimeout,
		})
		if err != nil {
			app.Close()
			return nil, err
		}
		if provider == nil {
			logger.Warn("No AI API key configured, tips will show the offline message")
		}
		app.Advisor = advisor.New(provider, cfg.AITimeout, cfg.AICacheTTL, logger)
	}

	return app, nil
}

func (a *App) Close() error {
	var errs []error
	if a.AMQP != nil {
		errs = append(errs, a.AMQP.Close())
	}
	if err := a.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}
	return errors.Join(errs...)
}
