package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmcglinch/structuredproducts/internal/alerting"
	"github.com/jmcglinch/structuredproducts/internal/note"
	"github.com/jmcglinch/structuredproducts/internal/pricing"
	"github.com/jmcglinch/structuredproducts/internal/report"
)

// notApplicable marks metrics that need a term the note does not carry.
const notApplicable = "n/a"

// Value prints every metric that can be derived for the configured note.
func (a *App) Value(ctx context.Context, opts ValueOptions, out io.Writer) error {
	terms, err := a.loadTerms()
	if err != nil {
		return err
	}

	summary := report.Summary{
		Title:    fmt.Sprintf("%s (%s)", terms.Name, terms.Symbol),
		Subtitle: fmt.Sprintf("%s on %s (%s), %s to %s", terms.Underwriter, terms.UnderlyingName, terms.UnderlyingSymbol, terms.IssuedAt.Format(time.DateOnly), terms.MaturityAt.Format(time.DateOnly)),
	}

	summary.Add("Structure", terms.Structure().String())
	summary.Add("Duration (days)", strconv.Itoa(terms.DurationInDays()))
	summary.Add("Duration (years)", strconv.Itoa(terms.DurationInYears()))
	summary.AddDecimal("Participation rate", terms.EffectiveParticipationRate(), 2)
	summary.AddDecimal("Money in the bank", terms.MoneyInTheBank(), 2)

	mib, err := terms.FinalIndexMIBValue()
	if err := a.addMetric(&summary, "Final index MIB value", mib, err, 2); err != nil {
		return err
	}
	callPrice, err := terms.EmbeddedCallPrice()
	if err := a.addMetric(&summary, "Embedded call price", callPrice, err, 3); err != nil {
		return err
	}

	iv, err := terms.ImpliedVolatilityOfEmbeddedCall(ctx, a.newSolver())
	switch {
	case err == nil && iv.Found():
		summary.Add("Embedded call implied volatility", strconv.FormatFloat(iv.Volatility, 'f', 2, 64))
	case err == nil:
		summary.Add("Embedded call implied volatility", iv.Status.String())
	case errors.Is(err, note.ErrMissingTerm), errors.Is(err, pricing.ErrNonPriceable):
		summary.Add("Embedded call implied volatility", notApplicable)
	default:
		return err
	}

	summary.AddDecimal("Break-even final index value", terms.BreakEvenFinalIndexValue(), 2)
	summary.AddDecimal("Multiplier", terms.Multiplier(), 2)
	maxIndex, err := terms.MaxPriceInTermsOfIndexValue()
	if err := a.addMetric(&summary, "Max price as index value", maxIndex, err, 2); err != nil {
		return err
	}

	var alert *alerting.Notification
	if opts.MarketPrice != nil && opts.IndexValue != nil {
		alert, err = a.addMarketMetrics(&summary, terms, *opts.MarketPrice, *opts.IndexValue)
		if err != nil {
			return err
		}
	}

	if opts.SharesHeld != nil {
		summary.AddDecimal("Index-equivalent shares", terms.IndexEquivalentShares(*opts.SharesHeld), 2)
		summary.Add("Index calls to write", strconv.FormatInt(terms.NumberOfCallsToWrite(*opts.SharesHeld), 10))
	}

	if err := report.WriteSummary(out, summary); err != nil {
		return err
	}

	if alert != nil && (opts.Notify || a.Config.Alerting.Enabled) {
		return a.notify(ctx, *alert)
	}
	return nil
}

// addMarketMetrics appends the trading-discount block and returns the
// notification to send when the discount crosses the configured threshold.
func (a *App) addMarketMetrics(summary *report.Summary, terms *note.Terms, marketPrice, indexValue decimal.Decimal) (*alerting.Notification, error) {
	summary.AddDecimal("Market price", marketPrice, 2)
	summary.AddDecimal("Index value", indexValue, 2)

	csv, err := terms.CashSurrenderValue(indexValue)
	if err != nil {
		return nil, err
	}
	summary.AddNullDecimal("Cash-surrender value", csv, 2)

	discount, err := terms.TradingDiscount(marketPrice, indexValue)
	if err != nil {
		return nil, err
	}
	summary.AddNullDecimal("Trading discount", discount, 2)

	pct, err := terms.TradingDiscountAsPercentOfCurrentMarketPrice(marketPrice, indexValue)
	if err != nil && !errors.Is(err, pricing.ErrNonPriceable) {
		return nil, err
	}
	if err != nil {
		summary.Add("Trading discount (% of market)", notApplicable)
	} else {
		summary.AddNullDecimal("Trading discount (% of market)", pct, 2)
	}

	protection, err := terms.TradingDiscountAsDownsideProtection(marketPrice, indexValue)
	downside := decimal.NullDecimal{}
	if err := a.addMetric(summary, "Downside protection", protection, err, 2); err != nil {
		return nil, err
	}
	if err == nil {
		downside = decimal.NewNullDecimal(protection)
	}

	if !csv.Valid || !pct.Valid {
		return nil, nil
	}
	threshold := decimal.NewFromFloat(a.Config.Alerting.DiscountThreshold)
	if !alerting.ShouldAlert(pct.Decimal, threshold) {
		return nil, nil
	}

	return &alerting.Notification{
		AsOf:               time.Now().UTC(),
		Symbol:             terms.Symbol,
		Name:               terms.Name,
		MarketPrice:        marketPrice,
		IndexValue:         indexValue,
		CashSurrenderValue: csv.Decimal,
		Discount:           discount.Decimal,
		DiscountPct:        pct.Decimal,
		ThresholdPct:       threshold,
		DownsideProtection: downside,
	}, nil
}

func (a *App) notify(ctx context.Context, alert alerting.Notification) error {
	notifier := a.newNotifier()
	if notifier == nil {
		a.Logger.Warn().Str("symbol", alert.Symbol).Msg("discount above threshold but no notifier configured")
		return nil
	}
	if err := notifier.Notify(ctx, alert); err != nil {
		return fmt.Errorf("send discount alert: %w", err)
	}
	a.Logger.Info().
		Str("symbol", alert.Symbol).
		Str("discount_pct", alert.DiscountPct.String()).
		Msg("discount alert sent")
	return nil
}

// addMetric records value, or n/a when the note lacks the inputs for it.
// Any other error is returned.
func (a *App) addMetric(summary *report.Summary, metric string, value decimal.Decimal, err error, places int32) error {
	if err == nil {
		summary.AddDecimal(metric, value, places)
		return nil
	}
	if errors.Is(err, note.ErrMissingTerm) || errors.Is(err, pricing.ErrNonPriceable) {
		a.Logger.Debug().Err(err).Str("metric", metric).Msg("metric not applicable")
		summary.Add(metric, notApplicable)
		return nil
	}
	return fmt.Errorf("%s: %w", metric, err)
}
