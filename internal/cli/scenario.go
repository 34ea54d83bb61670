package cli

import (
	"github.com/spf13/cobra"

	"github.com/jmcglinch/structuredproducts/internal/app"
)

var (
	scenarioFrom      float64
	scenarioTo        float64
	scenarioPoints    int
	scenarioCSVPath   string
	scenarioPNGPath   string
	scenarioMaxPoints int
)

var scenarioCmd = &cobra.Command{
	Use:   "scenario",
	Short: "Sweep final index values and export the payoff as CSV and/or PNG",
	RunE: func(cmd *cobra.Command, args []string) error {
		return getApp().Scenario(cmd.Context(), app.ScenarioOptions{
			From:      scenarioFrom,
			To:        scenarioTo,
			Points:    scenarioPoints,
			CSVPath:   scenarioCSVPath,
			PNGPath:   scenarioPNGPath,
			MaxPoints: scenarioMaxPoints,
		}, cmd.OutOrStdout())
	},
}

func init() {
	scenarioCmd.Flags().Float64Var(&scenarioFrom, "from", 0, "Lowest final index value (defaults to half the strike)")
	scenarioCmd.Flags().Float64Var(&scenarioTo, "to", 0, "Highest final index value (defaults to twice the strike)")
	scenarioCmd.Flags().IntVar(&scenarioPoints, "points", 0, "Number of index values to evaluate (defaults to config)")
	scenarioCmd.Flags().StringVar(&scenarioPNGPath, "png", "", "Path to write PNG chart")
	scenarioCmd.Flags().StringVar(&scenarioCSVPath, "csv", "", "Path to write CSV data")
	scenarioCmd.Flags().IntVar(&scenarioMaxPoints, "max-points", 0, "Maximum data points to export (defaults to config)")
}
