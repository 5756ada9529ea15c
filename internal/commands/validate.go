package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	apperrors "cumgpa/internal/errors"
	"cumgpa/internal/files"
	"cumgpa/internal/infrastructure"
)

// NewValidateCmd creates the validate command. It reads the roster and
// every prior-year file and checks the output location, without touching
// the warehouse or writing anything.
func NewValidateCmd(gf *globalFlags) *cobra.Command {
	var f runFlags
	cmd := &cobra.Command{
		Use:   "validate [LABEL=PATH ...]",
		Short: "Check the input files and output location of a run",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if err := f.apply(cmd, cfg); err != nil {
				return err
			}
			logger, err := infrastructure.InitializeLogger(cfg.Logging)
			if err != nil {
				return apperrors.NewConfigError("initialize logger", err)
			}
			defer infrastructure.CloseLogFile()

			req, err := f.request(args)
			if err != nil {
				return err
			}
			format, err := preflight(req, cfg.Output.Format, logger)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			roster, err := files.RosterReader{Logger: logger}.LoadRoster(ctx, req.RosterPath)
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "roster   %s: %d students\n", req.RosterPath, len(roster))

			prior := files.PriorReader{Logger: logger}
			for _, p := range req.Prior {
				rows, err := prior.LoadPriorCourses(ctx, p.Path)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "prior    %s (%s): %d coursegrades\n", p.Path, p.Label, len(rows))
			}
			fmt.Fprintf(out, "output   %s: %s\n", req.OutputPath, format)
			fmt.Fprintln(out, "OK")
			return nil
		},
	}
	f.bind(cmd, false)
	return cmd
}
