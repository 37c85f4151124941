package main

import (
	"ProjectIVR/database/postgres"
	callsRepository "ProjectIVR/internal/api/calls/repository"
	callsService "ProjectIVR/internal/api/calls/service"
	"ProjectIVR/internal/config"
	"ProjectIVR/pkg/log"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

var (
	envFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:           "ivrctl",
	Short:         "Operate the IVR service: exports, reports, tokens and the live feed",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, os.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&envFile, "env-file", ".env", "dotenv file to load before running")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "log at debug level")
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func newLogger() *logrus.Logger {
	logger := log.NewLogger()
	if verbose {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.WarnLevel)
	}
	return logger
}

func loadSettings() (config.Settings, error) {
	settings, err := config.LoadSettings()
	if err != nil {
		return config.Settings{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// openCalls connects to the database and returns the call record service.
// The caller closes the returned db.
func openCalls(logger *logrus.Logger) (callsService.ICallsService, *sqlx.DB, error) {
	db, err := postgres.New()
	if err != nil {
		return nil, nil, fmt.Errorf("connect database: %w", err)
	}
	return callsService.NewCallsService(logger, callsRepository.New(db, logger)), db, nil
}
