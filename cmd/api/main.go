// Package main is the entry point for the dashboard server and its tools.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/capitalize-ai/covid-dashboard/internal/config"
	"github.com/capitalize-ai/covid-dashboard/internal/warehouse"
	"github.com/capitalize-ai/covid-dashboard/pkg/logger"
)

var (
	// Global flags
	logLevel string

	cfg *config.Config
	log *logger.Logger
)

var rootCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "COVID-19 case dashboard with an assistant chat",
	Long: `Serves a dashboard that charts COVID-19 case counts from Snowflake
and hosts a chat with an LLM assistant.

Configuration comes from environment variables, optionally layered over a
YAML file named by CONFIG_FILE. SNOWFLAKE_ACCOUNT, SNOWFLAKE_USERNAME and
SNOWFLAKE_PASSWORD are required.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load()
		if err != nil {
			return err
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}

		if os.Getenv("ENV") == "development" {
			log, err = logger.NewDevelopment()
		} else {
			log, err = logger.New(cfg.LogLevel)
		}
		if err != nil {
			return fmt.Errorf("failed to create logger: %w", err)
		}
		logger.SetGlobal(log)
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if log != nil {
			_ = log.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "override LOG_LEVEL (debug, info, warn, error)")
	rootCmd.AddCommand(serveCmd, countriesCmd, eventsCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		if log != nil {
			log.Error("command failed", zap.Error(err))
		} else {
			fmt.Fprintln(os.Stderr, err)
		}
		os.Exit(1)
	}
}

func warehouseConfig(c *config.Config) warehouse.Config {
	return warehouse.Config{
		Account:   c.SnowflakeAccount,
		User:      c.SnowflakeUser,
		Password:  c.SnowflakePassword,
		Role:      c.SnowflakeRole,
		Warehouse: c.SnowflakeWarehouse,
		Database:  c.SnowflakeDatabase,
		Schema:    c.SnowflakeSchema,
		Table:     c.CasesTable,
	}
}
