// Command meal-dashboard serves the weekly meal planning dashboard and
// offers one-shot commands over the same state.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"meal-dashboard/internal/airtable"
	"meal-dashboard/internal/app"
	"meal-dashboard/internal/config"
	"meal-dashboard/internal/database"
	"meal-dashboard/internal/logging"
	"meal-dashboard/internal/metrics"
	"meal-dashboard/internal/settings"
	"meal-dashboard/internal/telegram"
)

var (
	configPath string
	debug      bool
)

var rootCmd = &cobra.Command{
	Use:   "meal-dashboard",
	Short: "Weekly meal planning dashboard backed by Airtable and Telegram",
	Long: `meal-dashboard shows the meals planned in Airtable for a week, their
nutrition averages, and a chat with the Telegram recipe bot.

Run 'meal-dashboard serve' for the web dashboard.`,
	SilenceUsage: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to a YAML configuration file")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "Enable debug logging")

	rootCmd.AddCommand(serveCmd, weekCmd, sendCmd, settingsCmd, metricsCmd, metricsCleanupCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runtime holds what every command opens: configuration, logger, database
// and the stores built on it.
type runtime struct {
	cfg      *config.Config
	log      *zap.Logger
	db       *database.DB
	creds    *config.CredentialsHolder
	settings *settings.Store
	metrics  *metrics.Store
}

func openRuntime() (*runtime, error) {
	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log, err := logging.New(level)
	if err != nil {
		return nil, err
	}

	db, err := database.NewDB(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	return &runtime{
		cfg:      cfg,
		log:      log,
		db:       db,
		creds:    config.NewCredentialsHolder(cfg.SeedCredentials()),
		settings: settings.NewStore(db.SQL),
		metrics:  metrics.NewStore(db.SQL),
	}, nil
}

// newApp wires the adapters to a fresh App. Call Init or Start on it.
func (rt *runtime) newApp(opts ...app.Option) *app.App {
	bot := telegram.NewClient(rt.cfg.Telegram, rt.creds, rt.log)
	recipes := airtable.NewClient(rt.cfg.Airtable, rt.creds)

	opts = append([]app.Option{
		app.WithSettingsStore(rt.settings),
		app.WithMetrics(rt.metrics),
		app.WithPollInterval(rt.cfg.Telegram.PollInterval),
	}, opts...)
	return app.New(recipes, bot, rt.creds, rt.log, opts...)
}

func (rt *runtime) Close() {
	if err := rt.db.Close(); err != nil {
		rt.log.Warn("Failed to close database", zap.Error(err))
	}
	_ = rt.log.Sync()
}
