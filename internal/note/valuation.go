package note

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmcglinch/structuredproducts/internal/pricing"
)

const (
	daysPerYear = 365

	moneyPlaces      = 2
	callPricePlaces  = 3
	volatilityPlaces = 2

	// Scan used to back the embedded call's volatility out of its price.
	embeddedCallStartVolatility = 0.01
	embeddedCallIncrement       = 0.0001
)

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// VolatilitySolver backs implied volatility out of an option price.
type VolatilitySolver interface {
	ImpliedVolatility(ctx context.Context, q pricing.Query) (pricing.Result, error)
}

// BullSpreadLegs holds the values of the long and short calls of a capped note.
type BullSpreadLegs struct {
	Long  decimal.Decimal
	Short decimal.Decimal
}

// DurationInDays is the whole number of calendar days from issue to maturity.
func (t *Terms) DurationInDays() int {
	return int(dayNumber(t.MaturityAt) - dayNumber(t.IssuedAt))
}

// DurationInYears rounds the term to the nearest whole year.
func (t *Terms) DurationInYears() int {
	return int(math.Round(float64(t.DurationInDays()) / daysPerYear))
}

// MoneyInTheBank is the issue price grown at the risk-free rate, compounded
// continuously over the whole-year term.
func (t *Terms) MoneyInTheBank() decimal.Decimal {
	growth := math.Exp(t.AnnualInterest.InexactFloat64() * float64(t.DurationInYears()))
	return roundFloat(t.IssuePrice.InexactFloat64()*growth, moneyPlaces)
}

// FinalIndexMIBValue is the final index level at which the participation
// payoff equals MoneyInTheBank.
func (t *Terms) FinalIndexMIBValue() (decimal.Decimal, error) {
	v, err := t.finalIndexMIB()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return v.Round(moneyPlaces), nil
}

func (t *Terms) finalIndexMIB() (decimal.Decimal, error) {
	c1, err := t.participationNotional()
	if err != nil {
		return decimal.Decimal{}, err
	}
	return indexLevelForPayoff(t.MoneyInTheBank(), t.IssuePrice, c1, t.UnderlyingStrikePrice), nil
}

// EmbeddedCallPrice values the call implied by the participation structure,
// rounded to three places.
func (t *Terms) EmbeddedCallPrice() (decimal.Decimal, error) {
	mib, err := t.finalIndexMIB()
	if err != nil {
		return decimal.Decimal{}, err
	}
	ratio := mib.Div(t.UnderlyingStrikePrice).Sub(one)
	return t.IssuePrice.Mul(ratio).Round(callPricePlaces), nil
}

// ImpliedVolatilityOfEmbeddedCall backs out the volatility that prices an
// at-the-money call on the issue price at EmbeddedCallPrice. A found
// volatility is rounded to two places.
func (t *Terms) ImpliedVolatilityOfEmbeddedCall(ctx context.Context, solver VolatilitySolver) (pricing.Result, error) {
	callPrice, err := t.EmbeddedCallPrice()
	if err != nil {
		return pricing.Result{}, err
	}

	issue := t.IssuePrice.InexactFloat64()
	res, err := solver.ImpliedVolatility(ctx, pricing.Query{
		Days:       t.DurationInDays(),
		Underlying: issue,
		Strike:     issue,
		Rate:       t.AnnualInterest.InexactFloat64(),
		Target:     callPrice.InexactFloat64(),
		Start:      embeddedCallStartVolatility,
		Increment:  embeddedCallIncrement,
	})
	if err != nil {
		return pricing.Result{}, fmt.Errorf("embedded call volatility: %w", err)
	}
	if res.Found() {
		res.Volatility = roundFloat(res.Volatility, volatilityPlaces).InexactFloat64()
	}
	return res, nil
}

// CashSurrenderValue values the note for a hypothetical final index value.
// The result is invalid (not computable) when the terms are conflicting.
// Participation notes never return less than the issue price.
func (t *Terms) CashSurrenderValue(finalIndexValue decimal.Decimal) (decimal.NullDecimal, error) {
	if t.hasAdjustment() {
		finalIndexValue = one.Sub(t.AdjustmentFactor.Decimal).Mul(finalIndexValue)
	}

	switch t.Structure() {
	case StructureConflicting:
		return decimal.NullDecimal{}, nil
	case StructureBullSpread:
		legs, err := t.ValOfBullSpreadCalls(t.bullSpreadCash(finalIndexValue))
		if err != nil {
			return decimal.NullDecimal{}, err
		}
		value := t.IssuePrice.Add(legs.Long).Sub(legs.Short)
		return decimal.NewNullDecimal(value.Round(moneyPlaces)), nil
	default:
		growth := finalIndexValue.Div(t.UnderlyingStrikePrice).Sub(one)
		value := t.IssuePrice.Add(t.IssuePrice.Mul(t.EffectiveParticipationRate()).Mul(growth))
		value = decimal.Max(t.IssuePrice, value)
		return decimal.NewNullDecimal(value.Round(moneyPlaces)), nil
	}
}

// CashValForBullSpread scales the issue price by the index's move from strike.
func (t *Terms) CashValForBullSpread(finalIndexValue decimal.Decimal) decimal.Decimal {
	return t.bullSpreadCash(finalIndexValue).Round(moneyPlaces)
}

func (t *Terms) bullSpreadCash(finalIndexValue decimal.Decimal) decimal.Decimal {
	return t.IssuePrice.Mul(finalIndexValue.Div(t.UnderlyingStrikePrice))
}

// ValOfBullSpreadCalls prices the long call struck at the issue price and
// the short call struck at the max price, each rounded to two places.
func (t *Terms) ValOfBullSpreadCalls(cashVal decimal.Decimal) (BullSpreadLegs, error) {
	if !t.MaxPrice.Valid {
		return BullSpreadLegs{}, fmt.Errorf("%w: max price", ErrMissingTerm)
	}

	req := pricing.Request{
		Days:       t.DurationInDays(),
		Underlying: cashVal.InexactFloat64(),
		Volatility: t.VolatilityEstimate.InexactFloat64(),
		Rate:       t.AnnualInterest.InexactFloat64(),
	}

	req.Strike = t.IssuePrice.InexactFloat64()
	long, err := pricing.Price(req)
	if err != nil {
		return BullSpreadLegs{}, fmt.Errorf("price long call: %w", err)
	}

	req.Strike = t.MaxPrice.Decimal.InexactFloat64()
	short, err := pricing.Price(req)
	if err != nil {
		return BullSpreadLegs{}, fmt.Errorf("price short call: %w", err)
	}

	return BullSpreadLegs{Long: long.Round(moneyPlaces), Short: short.Round(moneyPlaces)}, nil
}

// TradingDiscount is the cash-surrender value at the current index level
// less the note's market price.
func (t *Terms) TradingDiscount(marketPrice, indexValue decimal.Decimal) (decimal.NullDecimal, error) {
	csv, err := t.CashSurrenderValue(indexValue)
	if err != nil || !csv.Valid {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(csv.Decimal.Sub(marketPrice).Round(moneyPlaces)), nil
}

// TradingDiscountAsPercentOfCurrentMarketPrice expresses TradingDiscount as
// a fraction of the market price.
func (t *Terms) TradingDiscountAsPercentOfCurrentMarketPrice(marketPrice, indexValue decimal.Decimal) (decimal.NullDecimal, error) {
	if marketPrice.IsZero() {
		return decimal.NullDecimal{}, fmt.Errorf("%w: market price is zero", pricing.ErrNonPriceable)
	}
	discount, err := t.TradingDiscount(marketPrice, indexValue)
	if err != nil || !discount.Valid {
		return decimal.NullDecimal{}, err
	}
	return decimal.NewNullDecimal(discount.Decimal.Div(marketPrice).Round(moneyPlaces)), nil
}

// TradingDiscountAsDownsideProtection is how far the index may fall, as a
// fraction of its current value, before a buyer at marketPrice breaks even.
func (t *Terms) TradingDiscountAsDownsideProtection(marketPrice, indexValue decimal.Decimal) (decimal.Decimal, error) {
	c1, err := t.participationNotional()
	if err != nil {
		return decimal.Decimal{}, err
	}
	if indexValue.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: index value is zero", pricing.ErrNonPriceable)
	}
	breakEven := indexLevelForPayoff(marketPrice, t.IssuePrice, c1, t.UnderlyingStrikePrice)
	return indexValue.Sub(breakEven).Div(indexValue).Round(moneyPlaces), nil
}

// BreakEvenFinalIndexValue is the final index level needed to recover the
// issue price once the adjustment factor has been applied.
func (t *Terms) BreakEvenFinalIndexValue() decimal.Decimal {
	if !t.hasAdjustment() {
		return t.UnderlyingStrikePrice
	}
	return t.UnderlyingStrikePrice.Div(one.Sub(t.AdjustmentFactor.Decimal)).Round(moneyPlaces)
}

// MaxPriceInTermsOfIndexValue converts the cap into an index level.
func (t *Terms) MaxPriceInTermsOfIndexValue() (decimal.Decimal, error) {
	if !t.MaxPrice.Valid {
		return decimal.Decimal{}, fmt.Errorf("%w: max price", ErrMissingTerm)
	}
	return t.MaxPrice.Decimal.Div(t.IssuePrice).Mul(t.UnderlyingStrikePrice).Round(moneyPlaces), nil
}

// Multiplier is the number of index points represented by one note.
func (t *Terms) Multiplier() decimal.Decimal {
	return t.multiplier().Round(moneyPlaces)
}

func (t *Terms) multiplier() decimal.Decimal {
	return t.UnderlyingStrikePrice.Div(t.IssuePrice)
}

// IndexEquivalentShares converts a holding of notes into index units.
func (t *Terms) IndexEquivalentShares(sharesHeld decimal.Decimal) decimal.Decimal {
	return sharesHeld.Div(t.multiplier()).Round(moneyPlaces)
}

// NumberOfCallsToWrite is the count of 100-unit index calls that cover the
// holding.
func (t *Terms) NumberOfCallsToWrite(sharesHeld decimal.Decimal) int64 {
	return t.IndexEquivalentShares(sharesHeld).Div(hundred).Round(0).IntPart()
}

// participationNotional is issue price times participation rate; the
// participation rate must be present.
func (t *Terms) participationNotional() (decimal.Decimal, error) {
	if !t.ParticipationRate.Valid {
		return decimal.Decimal{}, fmt.Errorf("%w: participation rate", ErrMissingTerm)
	}
	c1 := t.IssuePrice.Mul(t.ParticipationRate.Decimal)
	if c1.IsZero() {
		return decimal.Decimal{}, fmt.Errorf("%w: participation notional is zero", pricing.ErrNonPriceable)
	}
	return c1, nil
}

// indexLevelForPayoff inverts the participation payoff: the final index level
// at which issue + c1*(level/strike - 1) equals payoff.
func indexLevelForPayoff(payoff, issue, c1, strike decimal.Decimal) decimal.Decimal {
	return payoff.Sub(issue).Add(c1).Mul(strike).Div(c1)
}

func dayNumber(ts time.Time) int64 {
	y, m, d := ts.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).Unix() / 86400
}

func roundFloat(v float64, places int32) decimal.Decimal {
	return decimal.NewFromFloat(v).Round(places)
}
