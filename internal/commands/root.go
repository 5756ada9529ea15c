// Package commands implements the cumgpa command line.
package commands

import (
	"context"
	"log/slog"

	"github.com/spf13/cobra"

	"cumgpa/internal/config"
	"cumgpa/internal/dataprocessing"
	apperrors "cumgpa/internal/errors"
	"cumgpa/internal/warehouse"
	"cumgpa/pkg/contracts"
)

// YearStore is a YearSource that holds resources until closed.
type YearStore interface {
	dataprocessing.YearSource
	Close()
}

// Deps holds the collaborators the commands open at run time.
type Deps struct {
	OpenYearStore func(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (YearStore, error)
}

// DefaultDeps connects to the PostgreSQL warehouse.
func DefaultDeps() Deps {
	return Deps{
		OpenYearStore: func(ctx context.Context, cfg config.DatabaseConfig, logger *slog.Logger) (YearStore, error) {
			store, err := warehouse.New(ctx, cfg, logger)
			if err != nil {
				return nil, err
			}
			return store, nil
		},
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

// NewRootCmd creates the cumgpa root command.
func NewRootCmd(deps Deps) *cobra.Command {
	var gf globalFlags

	root := &cobra.Command{
		Use:   "cumgpa",
		Short: "Compute cumulative high school GPA from marks and prior-year coursegrades",
		Long: `cumgpa assembles one school year's student marks from the warehouse,
restricts them to the students of a biographic roster, aggregates credits and
grade points per student and year, adds any prior-year coursegrade files and
writes the cumulative GPA per student.`,
		Version:       contracts.Version,
		SilenceErrors: true,
		SilenceUsage:  true,
	}

	root.PersistentFlags().StringVar(&gf.configPath, "config", "", "path to a YAML config file (default: cumgpa.yaml or configs/cumgpa.yaml)")
	root.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "log level override (debug, info, warn, error)")

	root.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return apperrors.NewMalformedArgumentError(err.Error())
	})

	root.AddCommand(
		NewRunCmd(&gf, deps),
		NewValidateCmd(&gf),
		NewVersionCmd(),
	)
	return root
}

// loadConfig loads the configuration and applies global flag overrides.
func loadConfig(gf *globalFlags) (*config.Config, error) {
	cfg, err := config.Load(gf.configPath)
	if err != nil {
		return nil, apperrors.NewConfigError("load configuration", err)
	}
	if gf.logLevel != "" {
		cfg.Logging.Level = gf.logLevel
		if err := cfg.Validate(); err != nil {
			return nil, apperrors.NewConfigError("invalid --log-level", err)
		}
	}
	return cfg, nil
}
