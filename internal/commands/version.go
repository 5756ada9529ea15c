package commands

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"cumgpa/pkg/contracts"
)

// NewVersionCmd creates the version command.
func NewVersionCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			if !asJSON {
				fmt.Fprintln(out, contracts.GetFullVersionString())
				return nil
			}
			enc := json.NewEncoder(out)
			enc.SetIndent("", "  ")
			return enc.Encode(contracts.GetVersionInfo())
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print version information as JSON")
	return cmd
}
