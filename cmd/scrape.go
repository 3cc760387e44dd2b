package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/seguimed/cmpscrape/internal/config"
	"github.com/seguimed/cmpscrape/internal/input"
	"github.com/seguimed/cmpscrape/internal/logging"
	"github.com/seguimed/cmpscrape/internal/metrics"
	"github.com/seguimed/cmpscrape/internal/notify"
	"github.com/seguimed/cmpscrape/internal/registry"
	"github.com/seguimed/cmpscrape/internal/store"
)

type scrapeFlags struct {
	csvPath    string
	dbHost     string
	dbPort     int
	dbUser     string
	dbPassword string
	dbName     string
	failedCSV  string
	errorLog   string
	retries    int
	headed     bool
}

// newScrapeCmd creates the 'scrape' subcommand, which runs the full lookup
// pipeline for every identifier in the input file.
func newScrapeCmd() *cobra.Command {
	flags := &scrapeFlags{}
	cmd := &cobra.Command{
		Use:   "scrape",
		Short: "Runs the registry lookup for every CMP number in a CSV",
		Long: `Reads CMP numbers from the first column of the given CSV, looks each
one up on the registry portal and persists status plus specialties. Numbers
whose retries are exhausted are appended to the failure ledger; per-identifier
failures do not change the exit code.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runScrape(cmd, flags)
		},
	}

	cmd.Flags().StringVar(&flags.csvPath, "csv", "", "CSV whose first column holds CMP numbers")
	cmd.Flags().StringVar(&flags.dbHost, "db-host", "", "database host (overrides config)")
	cmd.Flags().IntVar(&flags.dbPort, "db-port", 0, "database port (overrides config)")
	cmd.Flags().StringVar(&flags.dbUser, "db-user", "", "database user (overrides config)")
	cmd.Flags().StringVar(&flags.dbPassword, "db-password", "", "database password (overrides config)")
	cmd.Flags().StringVar(&flags.dbName, "db-name", "", "database name (overrides config)")
	cmd.Flags().StringVar(&flags.failedCSV, "failed-csv", "", "failure ledger path (overrides config)")
	cmd.Flags().StringVar(&flags.errorLog, "error-log", "", "error log path (overrides config)")
	cmd.Flags().IntVar(&flags.retries, "retries", 0, "retries per CMP before ledgering (overrides config)")
	cmd.Flags().BoolVar(&flags.headed, "headed", false, "run the browser with a visible window")
	_ = cmd.MarkFlagRequired("csv")

	return cmd
}

func runScrape(cmd *cobra.Command, flags *scrapeFlags) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	applyFlagOverrides(cmd, flags, &cfg)

	logger, err := logging.New(logging.Config{Development: cfg.Logging.Development})
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	ctx := cmd.Context()

	cmps, err := input.ReadIdentifiers(flags.csvPath)
	if err != nil {
		return err
	}
	if len(cmps) == 0 {
		logger.Error("No CMP identifiers in input file", zap.String("path", flags.csvPath))
		return fmt.Errorf("no CMP identifiers in %s", flags.csvPath)
	}

	st, err := store.New(ctx, cfg.DB.DSN())
	if err != nil {
		return err
	}
	defer st.Close()
	if err := st.EnsureSchema(ctx); err != nil {
		return err
	}

	mailer := notify.NewMailer(notify.Config{
		Host:     cfg.Mail.Host,
		Port:     cfg.Mail.Port,
		Username: cfg.Mail.Username,
		Password: cfg.Mail.Password,
		From:     cfg.Mail.FromAddress,
		FromName: cfg.Mail.FromName,
		To:       cfg.Mail.To,
		UseSSL:   cfg.Mail.UseSSL(),
	}, logger)

	orchestrator := registry.NewOrchestrator(buildRunConfig(cfg), st, mailer, metrics.New(), logger)

	logger.Info("Starting scrape run",
		zap.Int("identifiers", len(cmps)), zap.Int("retries", cfg.Scraper.Retries))
	if _, err := orchestrator.Run(ctx, cmps); err != nil {
		return fmt.Errorf("scrape run: %w", err)
	}
	return nil
}

// applyFlagOverrides lets explicit flags win over file and environment
// configuration.
func applyFlagOverrides(cmd *cobra.Command, flags *scrapeFlags, cfg *config.Config) {
	if cmd.Flags().Changed("db-host") {
		cfg.DB.Host = flags.dbHost
	}
	if cmd.Flags().Changed("db-port") {
		cfg.DB.Port = flags.dbPort
	}
	if cmd.Flags().Changed("db-user") {
		cfg.DB.User = flags.dbUser
	}
	if cmd.Flags().Changed("db-password") {
		cfg.DB.Password = flags.dbPassword
	}
	if cmd.Flags().Changed("db-name") {
		cfg.DB.Name = flags.dbName
	}
	if cmd.Flags().Changed("failed-csv") {
		cfg.Scraper.FailedCSV = flags.failedCSV
	}
	if cmd.Flags().Changed("error-log") {
		cfg.Scraper.ErrorLog = flags.errorLog
	}
	if cmd.Flags().Changed("retries") {
		cfg.Scraper.Retries = flags.retries
	}
	if cmd.Flags().Changed("headed") {
		cfg.Scraper.Headed = flags.headed
	}
}

func buildRunConfig(cfg config.Config) registry.RunConfig {
	workflow := registry.DefaultWorkflowConfig()
	if cfg.Scraper.BaseURL != "" {
		workflow.BaseURL = cfg.Scraper.BaseURL
	}
	if cfg.Scraper.SiteKey != "" {
		workflow.SiteKey = cfg.Scraper.SiteKey
	}
	if cfg.Scraper.Action != "" {
		workflow.Action = cfg.Scraper.Action
	}

	return registry.RunConfig{
		Browser: registry.BrowserConfig{
			Headless:  !cfg.Scraper.Headed,
			UserAgent: cfg.Scraper.UserAgent,
			Locale:    cfg.Scraper.Locale,
		},
		Workflow:     workflow,
		Retries:      cfg.Scraper.Retries,
		Backoff:      time.Duration(cfg.Scraper.BackoffSeconds) * time.Second,
		PaceQPS:      cfg.Scraper.PaceQPS,
		DebugDir:     cfg.Scraper.DebugDir,
		FailedPath:   cfg.Scraper.FailedCSV,
		ErrorLogPath: cfg.Scraper.ErrorLog,
	}
}
