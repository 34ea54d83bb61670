package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math"

	"github.com/shopspring/decimal"

	"github.com/jmcglinch/structuredproducts/internal/note"
	"github.com/jmcglinch/structuredproducts/internal/report"
)

var (
	defaultScenarioLow  = decimal.RequireFromString("0.5")
	defaultScenarioHigh = decimal.NewFromInt(2)
)

// Scenario values the configured note across a range of final index values
// and writes the result as CSV and/or a payoff chart. Return statistics of the
// sweep are printed to out.
func (a *App) Scenario(ctx context.Context, opts ScenarioOptions, out io.Writer) error {
	if opts.CSVPath == "" && opts.PNGPath == "" {
		return errors.New("scenario needs --csv or --png output")
	}
	for _, bound := range []float64{opts.From, opts.To, a.Config.Scenario.From, a.Config.Scenario.To} {
		if math.IsNaN(bound) || math.IsInf(bound, 0) {
			return fmt.Errorf("scenario bounds must be finite, got %v", bound)
		}
	}

	terms, err := a.loadTerms()
	if err != nil {
		return err
	}

	from, to, points := a.scenarioRange(terms, opts)
	if from.GreaterThanOrEqual(to) {
		return fmt.Errorf("scenario range is empty: from %s to %s", from, to)
	}
	if points < 2 {
		return errors.New("scenario needs at least two points")
	}

	results, err := sweep(ctx, terms, from, to, points)
	if err != nil {
		return err
	}

	summary, err := report.SummarizeScenario(results)
	if err != nil {
		return err
	}

	maxPoints := a.Config.ResolveMaxPoints(opts.MaxPoints)
	results = report.Downsample(results, maxPoints)

	a.Logger.Info().
		Str("symbol", terms.Symbol).
		Str("from", from.String()).
		Str("to", to.String()).
		Int("points", len(results)).
		Msg("scenario computed")

	if opts.CSVPath != "" {
		if err := report.WriteScenarioCSV(opts.CSVPath, results); err != nil {
			return fmt.Errorf("write scenario csv: %w", err)
		}
		a.Logger.Info().Str("path", opts.CSVPath).Msg("scenario csv written")
	}

	if opts.PNGPath != "" {
		chartOpts := report.ChartOptions{
			Title:      fmt.Sprintf("%s payoff at maturity", terms.Symbol),
			Width:      a.Config.Export.ChartWidth,
			Height:     a.Config.Export.ChartHeight,
			IssuePrice: terms.IssuePrice,
		}
		if err := report.WriteScenarioPNG(opts.PNGPath, results, chartOpts); err != nil {
			return fmt.Errorf("write scenario chart: %w", err)
		}
		a.Logger.Info().Str("path", opts.PNGPath).Msg("scenario chart written")
	}

	title := fmt.Sprintf("%s scenario %s to %s", terms.Symbol, from.StringFixed(2), to.StringFixed(2))
	return report.WriteSummary(out, summary.Summary(title))
}

// scenarioRange resolves flag overrides, then config, then a range of half
// to twice the strike.
func (a *App) scenarioRange(terms *note.Terms, opts ScenarioOptions) (decimal.Decimal, decimal.Decimal, int) {
	from := decimal.NewFromFloat(firstPositive(opts.From, a.Config.Scenario.From))
	if from.IsZero() {
		from = terms.UnderlyingStrikePrice.Mul(defaultScenarioLow)
	}
	to := decimal.NewFromFloat(firstPositive(opts.To, a.Config.Scenario.To))
	if to.IsZero() {
		to = terms.UnderlyingStrikePrice.Mul(defaultScenarioHigh)
	}
	points := opts.Points
	if points <= 0 {
		points = a.Config.Scenario.Points
	}
	return from, to, points
}

func sweep(ctx context.Context, terms *note.Terms, from, to decimal.Decimal, points int) ([]report.ScenarioPoint, error) {
	step := to.Sub(from).Div(decimal.NewFromInt(int64(points - 1)))
	out := make([]report.ScenarioPoint, 0, points)

	for i := 0; i < points; i++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		level := from.Add(step.Mul(decimal.NewFromInt(int64(i)))).Round(2)
		if i == points-1 {
			level = to.Round(2)
		}

		value, err := terms.CashSurrenderValue(level)
		if err != nil {
			return nil, fmt.Errorf("value at %s: %w", level, err)
		}

		point := report.ScenarioPoint{FinalIndexValue: level, CashSurrenderValue: value}
		if value.Valid {
			ret := value.Decimal.Div(terms.IssuePrice).Sub(decimal.NewFromInt(1)).Round(4)
			point.Return = decimal.NewNullDecimal(ret)
		}
		out = append(out, point)
	}
	return out, nil
}

func firstPositive(values ...float64) float64 {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
