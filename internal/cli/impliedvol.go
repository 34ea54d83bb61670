package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/jmcglinch/structuredproducts/internal/pricing"
)

var (
	ivTarget    float64
	ivStart     float64
	ivIncrement float64
)

var impliedVolCmd = &cobra.Command{
	Use:   "implied-vol",
	Short: "Solve for the volatility that reproduces a call price",
	RunE: func(cmd *cobra.Command, args []string) error {
		res, err := getApp().ImpliedVolatility(cmd.Context(), pricing.Query{
			Days:       optionDays,
			Underlying: optionUnderlying,
			Strike:     optionStrike,
			Rate:       optionRate,
			Target:     ivTarget,
			Start:      ivStart,
			Increment:  ivIncrement,
		})
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if !res.Found() {
			fmt.Fprintf(out, "%s after %d iterations\n", res.Status, res.Iterations)
			return nil
		}
		fmt.Fprintf(out, "%s (%d iterations)\n", strconv.FormatFloat(res.Volatility, 'f', 4, 64), res.Iterations)
		return nil
	},
}

func init() {
	addOptionFlags(impliedVolCmd)
	impliedVolCmd.Flags().Float64Var(&ivTarget, "target", 0, "Observed call price")
	impliedVolCmd.Flags().Float64Var(&ivStart, "start", 0, "First volatility to try (defaults to config)")
	impliedVolCmd.Flags().Float64Var(&ivIncrement, "increment", 0, "Volatility step (defaults to config)")
	_ = impliedVolCmd.MarkFlagRequired("target")
}
