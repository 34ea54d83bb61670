package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcglinch/structuredproducts/internal/version"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print build information",
	// no config needed to report the build
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "notecalc %s\n", version.String())
	},
}
