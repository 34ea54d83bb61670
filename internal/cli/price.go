package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmcglinch/structuredproducts/internal/pricing"
)

var (
	optionDays       int
	optionUnderlying float64
	optionStrike     float64
	optionVolatility float64
	optionRate       float64
)

var priceCmd = &cobra.Command{
	Use:   "price",
	Short: "Price a European call with Black-Scholes",
	RunE: func(cmd *cobra.Command, args []string) error {
		value, err := getApp().Price(pricing.Request{
			Days:       optionDays,
			Underlying: optionUnderlying,
			Strike:     optionStrike,
			Volatility: optionVolatility,
			Rate:       optionRate,
		})
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), value.StringFixed(4))
		return nil
	},
}

// addOptionFlags registers the contract inputs shared by price and implied-vol.
func addOptionFlags(cmd *cobra.Command) {
	cmd.Flags().IntVar(&optionDays, "days", 0, "Days until expiration")
	cmd.Flags().Float64Var(&optionUnderlying, "underlying", 0, "Current underlying price")
	cmd.Flags().Float64Var(&optionStrike, "strike", 0, "Strike price")
	cmd.Flags().Float64Var(&optionRate, "rate", 0, "Annual risk-free rate, continuously compounded")
	_ = cmd.MarkFlagRequired("days")
	_ = cmd.MarkFlagRequired("underlying")
	_ = cmd.MarkFlagRequired("strike")
}

func init() {
	addOptionFlags(priceCmd)
	priceCmd.Flags().Float64Var(&optionVolatility, "volatility", 0, "Annualized volatility")
	_ = priceCmd.MarkFlagRequired("volatility")
}
