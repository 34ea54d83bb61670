package note

import (
	"context"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmcglinch/structuredproducts/internal/pricing"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func nullDec(s string) decimal.NullDecimal {
	return decimal.NewNullDecimal(dec(s))
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "want %s, got %s", want, got)
}

// stockIndexReturnSecurity is the seven-year participation note used in the
// worked examples: issued at 10 on a midcap index struck at 166.1.
func stockIndexReturnSecurity() *Terms {
	return &Terms{
		Name:                  "Stock Index Return Security",
		Symbol:                "SIS",
		Underwriter:           "XYZ Investment Bank",
		UnderlyingName:        "S&P Midcap 400 index",
		UnderlyingSymbol:      "MID",
		IssuePrice:            dec("10"),
		IssuedAt:              date(1993, time.June, 2),
		MaturityAt:            date(2000, time.June, 2),
		ParticipationRate:     nullDec("1.15"),
		AnnualInterest:        dec("0.055"),
		VolatilityEstimate:    dec("0.5"),
		UnderlyingStrikePrice: dec("166.1"),
	}
}

// cappedNote turns the example into a five-year bull spread capped at 25.
func cappedNote() *Terms {
	terms := stockIndexReturnSecurity()
	terms.MaxPrice = nullDec("25")
	terms.UnderlyingStrikePrice = dec("150")
	terms.ParticipationRate = decimal.NullDecimal{}
	terms.IssuedAt = date(1995, time.June, 2)
	terms.AnnualInterest = decimal.Zero
	return terms
}

func TestDuration(t *testing.T) {
	terms := stockIndexReturnSecurity()
	assert.Equal(t, 2557, terms.DurationInDays())
	assert.Equal(t, 7, terms.DurationInYears())

	capped := cappedNote()
	assert.Equal(t, 1827, capped.DurationInDays())
	assert.Equal(t, 5, capped.DurationInYears())
}

func TestMoneyInTheBank(t *testing.T) {
	assertDecimal(t, "14.70", stockIndexReturnSecurity().MoneyInTheBank())
}

func TestFinalIndexMIBValue(t *testing.T) {
	got, err := stockIndexReturnSecurity().FinalIndexMIBValue()
	require.NoError(t, err)
	assertDecimal(t, "233.98", got)
}

func TestFinalIndexMIBValueNeedsParticipationRate(t *testing.T) {
	terms := stockIndexReturnSecurity()
	terms.ParticipationRate = decimal.NullDecimal{}

	_, err := terms.FinalIndexMIBValue()
	assert.ErrorIs(t, err, ErrMissingTerm)

	_, err = terms.EmbeddedCallPrice()
	assert.ErrorIs(t, err, ErrMissingTerm)
}

func TestEmbeddedCallPrice(t *testing.T) {
	got, err := stockIndexReturnSecurity().EmbeddedCallPrice()
	require.NoError(t, err)
	assertDecimal(t, "4.087", got)
}

func TestImpliedVolatilityOfEmbeddedCall(t *testing.T) {
	solver := pricing.NewSolver(pricing.SolverOptions{}, zerolog.Nop())

	res, err := stockIndexReturnSecurity().ImpliedVolatilityOfEmbeddedCall(context.Background(), solver)
	require.NoError(t, err)
	require.Equal(t, pricing.StatusFound, res.Status)
	assert.Equal(t, 0.25, res.Volatility)
}

type recordingSolver struct {
	query  pricing.Query
	result pricing.Result
}

func (r *recordingSolver) ImpliedVolatility(_ context.Context, q pricing.Query) (pricing.Result, error) {
	r.query = q
	return r.result, nil
}

func TestImpliedVolatilityOfEmbeddedCallQuery(t *testing.T) {
	solver := &recordingSolver{result: pricing.Result{Status: pricing.StatusFound, Volatility: 0.2453}}

	res, err := stockIndexReturnSecurity().ImpliedVolatilityOfEmbeddedCall(context.Background(), solver)
	require.NoError(t, err)
	assert.Equal(t, 0.25, res.Volatility)

	assert.Equal(t, 2557, solver.query.Days)
	assert.Equal(t, 10.0, solver.query.Underlying)
	assert.Equal(t, 10.0, solver.query.Strike)
	assert.Equal(t, 0.055, solver.query.Rate)
	assert.Equal(t, 4.087, solver.query.Target)
	assert.Equal(t, 0.01, solver.query.Start)
	assert.Equal(t, 0.0001, solver.query.Increment)
}

func TestImpliedVolatilityOfEmbeddedCallKeepsNotFound(t *testing.T) {
	solver := &recordingSolver{result: pricing.Result{Status: pricing.StatusExceededBounds, Iterations: 10}}

	res, err := stockIndexReturnSecurity().ImpliedVolatilityOfEmbeddedCall(context.Background(), solver)
	require.NoError(t, err)
	assert.Equal(t, pricing.StatusExceededBounds, res.Status)
	assert.Zero(t, res.Volatility)
}

func TestCashSurrenderValueParticipation(t *testing.T) {
	got, err := stockIndexReturnSecurity().CashSurrenderValue(dec("233.98"))
	require.NoError(t, err)
	require.True(t, got.Valid)
	assertDecimal(t, "14.70", got.Decimal)
}

func TestCashSurrenderValueIsPrincipalProtected(t *testing.T) {
	got, err := stockIndexReturnSecurity().CashSurrenderValue(dec("120"))
	require.NoError(t, err)
	require.True(t, got.Valid)
	assertDecimal(t, "10", got.Decimal)
}

func TestCashSurrenderValueBullSpread(t *testing.T) {
	terms := cappedNote()
	require.Equal(t, StructureBullSpread, terms.Structure())

	got, err := terms.CashSurrenderValue(dec("210"))
	require.NoError(t, err)
	require.True(t, got.Valid)
	assertDecimal(t, "13.58", got.Decimal)
	assertDecimal(t, "13.6", got.Decimal.Round(1))
}

func TestBullSpreadComponents(t *testing.T) {
	terms := cappedNote()

	cash := terms.CashValForBullSpread(dec("210"))
	assertDecimal(t, "14", cash)

	legs, err := terms.ValOfBullSpreadCalls(cash)
	require.NoError(t, err)
	assertDecimal(t, "7.29", legs.Long)
	assertDecimal(t, "3.71", legs.Short)
	assertDecimal(t, "7.3", legs.Long.Round(1))
	assertDecimal(t, "3.7", legs.Short.Round(1))
}

func TestValOfBullSpreadCallsNeedsMaxPrice(t *testing.T) {
	_, err := stockIndexReturnSecurity().ValOfBullSpreadCalls(dec("14"))
	assert.ErrorIs(t, err, ErrMissingTerm)
}

func TestCashSurrenderValueUndefinedForConflictingTerms(t *testing.T) {
	withParticipation := cappedNote()
	withParticipation.ParticipationRate = nullDec("1.15")

	withAdjustment := cappedNote()
	withAdjustment.AdjustmentFactor = nullDec("0.0875")

	for name, terms := range map[string]*Terms{
		"participation": withParticipation,
		"adjustment":    withAdjustment,
	} {
		t.Run(name, func(t *testing.T) {
			assert.Equal(t, StructureConflicting, terms.Structure())
			for _, level := range []string{"0.01", "150", "210", "5000"} {
				got, err := terms.CashSurrenderValue(dec(level))
				require.NoError(t, err)
				assert.False(t, got.Valid, "level %s", level)
			}
		})
	}
}

func TestDefaultParticipationDoesNotConflictWithCap(t *testing.T) {
	terms := cappedNote()
	terms.ParticipationRate = nullDec("1")
	assert.Equal(t, StructureBullSpread, terms.Structure())
}

func TestCashSurrenderValueWithAdjustment(t *testing.T) {
	terms := cappedNote()
	terms.AdjustmentFactor = nullDec("0.0875")
	terms.MaxPrice = decimal.NullDecimal{}
	terms.UnderlyingStrikePrice = dec("1100")

	got, err := terms.CashSurrenderValue(dec("2200"))
	require.NoError(t, err)
	require.True(t, got.Valid)
	assertDecimal(t, "18.25", got.Decimal)
}

func TestCashSurrenderValueNonPriceableBullSpread(t *testing.T) {
	terms := cappedNote()
	terms.MaturityAt = terms.IssuedAt

	_, err := terms.CashSurrenderValue(dec("210"))
	assert.ErrorIs(t, err, pricing.ErrNonPriceable)
}

func TestParticipationDefaultIsExplicit(t *testing.T) {
	terms := stockIndexReturnSecurity()
	terms.ParticipationRate = decimal.NullDecimal{}

	first, err := terms.CashSurrenderValue(dec("233.98"))
	require.NoError(t, err)
	second, err := terms.CashSurrenderValue(dec("233.98"))
	require.NoError(t, err)
	assert.True(t, first.Decimal.Equal(second.Decimal))
	assertDecimal(t, "14.09", first.Decimal)

	assertDecimal(t, "1", terms.EffectiveParticipationRate())
	assert.False(t, terms.ParticipationRate.Valid, "valuation must not write defaults")

	assert.True(t, terms.MaterializeDefaults())
	require.True(t, terms.ParticipationRate.Valid)
	assertDecimal(t, "1", terms.ParticipationRate.Decimal)
	assert.False(t, terms.MaterializeDefaults())

	third, err := terms.CashSurrenderValue(dec("233.98"))
	require.NoError(t, err)
	assert.True(t, first.Decimal.Equal(third.Decimal))
}

func TestTradingDiscount(t *testing.T) {
	terms := stockIndexReturnSecurity()
	market, index := dec("13"), dec("238.54")

	discount, err := terms.TradingDiscount(market, index)
	require.NoError(t, err)
	require.True(t, discount.Valid)
	assertDecimal(t, "2.02", discount.Decimal)

	pct, err := terms.TradingDiscountAsPercentOfCurrentMarketPrice(market, index)
	require.NoError(t, err)
	require.True(t, pct.Valid)
	assertDecimal(t, "0.16", pct.Decimal)

	protection, err := terms.TradingDiscountAsDownsideProtection(market, index)
	require.NoError(t, err)
	assertDecimal(t, "0.12", protection)
}

func TestTradingDiscountUndefinedForConflictingTerms(t *testing.T) {
	terms := cappedNote()
	terms.ParticipationRate = nullDec("1.15")

	discount, err := terms.TradingDiscount(dec("13"), dec("210"))
	require.NoError(t, err)
	assert.False(t, discount.Valid)

	pct, err := terms.TradingDiscountAsPercentOfCurrentMarketPrice(dec("13"), dec("210"))
	require.NoError(t, err)
	assert.False(t, pct.Valid)
}

func TestTradingDiscountNonPriceable(t *testing.T) {
	terms := stockIndexReturnSecurity()

	_, err := terms.TradingDiscountAsPercentOfCurrentMarketPrice(decimal.Zero, dec("238.54"))
	assert.ErrorIs(t, err, pricing.ErrNonPriceable)

	_, err = terms.TradingDiscountAsDownsideProtection(dec("13"), decimal.Zero)
	assert.ErrorIs(t, err, pricing.ErrNonPriceable)

	terms.ParticipationRate = decimal.NullDecimal{}
	_, err = terms.TradingDiscountAsDownsideProtection(dec("13"), dec("238.54"))
	assert.ErrorIs(t, err, ErrMissingTerm)
}

func TestBreakEvenFinalIndexValue(t *testing.T) {
	terms := stockIndexReturnSecurity()
	assertDecimal(t, "166.1", terms.BreakEvenFinalIndexValue())

	terms.AdjustmentFactor = nullDec("0.0875")
	terms.UnderlyingStrikePrice = dec("1100")
	assertDecimal(t, "1205.48", terms.BreakEvenFinalIndexValue())
}

func TestMaxPriceInTermsOfIndexValue(t *testing.T) {
	got, err := cappedNote().MaxPriceInTermsOfIndexValue()
	require.NoError(t, err)
	assertDecimal(t, "375", got)

	_, err = stockIndexReturnSecurity().MaxPriceInTermsOfIndexValue()
	assert.ErrorIs(t, err, ErrMissingTerm)
}

func TestHedgingConversions(t *testing.T) {
	terms := stockIndexReturnSecurity()
	terms.UnderlyingStrikePrice = dec("700")

	assertDecimal(t, "70", terms.Multiplier())
	assertDecimal(t, "214.29", terms.IndexEquivalentShares(dec("15000")))
	assert.Equal(t, int64(2), terms.NumberOfCallsToWrite(dec("15000")))
}
