package cli

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"github.com/jmcglinch/structuredproducts/internal/app"
)

var (
	valueMarketPrice string
	valueIndexValue  string
	valueShares      string
	valueNotify      bool
)

var valueCmd = &cobra.Command{
	Use:   "value",
	Short: "Print the valuation summary of the configured note",
	RunE: func(cmd *cobra.Command, args []string) error {
		opts := app.ValueOptions{Notify: valueNotify}

		var err error
		if opts.MarketPrice, err = parseDecimalFlag("market-price", valueMarketPrice); err != nil {
			return err
		}
		if opts.IndexValue, err = parseDecimalFlag("index-value", valueIndexValue); err != nil {
			return err
		}
		if opts.SharesHeld, err = parseDecimalFlag("shares", valueShares); err != nil {
			return err
		}
		if (opts.MarketPrice == nil) != (opts.IndexValue == nil) {
			return fmt.Errorf("--market-price and --index-value must be given together")
		}
		if valueNotify && opts.MarketPrice == nil {
			return fmt.Errorf("--notify needs --market-price and --index-value")
		}

		return getApp().Value(cmd.Context(), opts, cmd.OutOrStdout())
	},
}

func parseDecimalFlag(name, raw string) (*decimal.Decimal, error) {
	if raw == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return nil, fmt.Errorf("invalid --%s value: %w", name, err)
	}
	return &d, nil
}

func init() {
	valueCmd.Flags().StringVar(&valueMarketPrice, "market-price", "", "Current market price of the note")
	valueCmd.Flags().StringVar(&valueIndexValue, "index-value", "", "Current level of the underlying index")
	valueCmd.Flags().StringVar(&valueShares, "shares", "", "Notes held, for the hedging conversions")
	valueCmd.Flags().BoolVar(&valueNotify, "notify", false, "Send a Telegram alert when the trading discount reaches the threshold")
}
