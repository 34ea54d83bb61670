package pricing

import (
	"errors"
	"fmt"
	"math"

	"github.com/shopspring/decimal"
)

const (
	daysPerYear = 365
	pricePlaces = 4
)

// ErrNonPriceable marks inputs for which the closed-form price is undefined.
var ErrNonPriceable = errors.New("pricing: non-priceable input")

// Request carries the Black-Scholes inputs for one European call.
type Request struct {
	Days       int     // days to maturity
	Underlying float64 // current price of the underlying
	Strike     float64
	Volatility float64 // annualised, as a decimal
	Rate       float64 // annual risk-free rate, as a decimal
}

// Validate reports whether the request can be priced.
func (r Request) Validate() error {
	if r.Days <= 0 {
		return fmt.Errorf("%w: days to maturity must be positive, got %d", ErrNonPriceable, r.Days)
	}
	positives := []struct {
		name  string
		value float64
	}{
		{"underlying", r.Underlying},
		{"strike", r.Strike},
		{"volatility", r.Volatility},
	}
	for _, p := range positives {
		if math.IsNaN(p.value) || math.IsInf(p.value, 0) || p.value <= 0 {
			return fmt.Errorf("%w: %s must be positive and finite, got %v", ErrNonPriceable, p.name, p.value)
		}
	}
	if math.IsNaN(r.Rate) || math.IsInf(r.Rate, 0) {
		return fmt.Errorf("%w: rate must be finite, got %v", ErrNonPriceable, r.Rate)
	}
	return nil
}

// Price returns the Black-Scholes value of a European call rounded to four
// places. The normal distribution is evaluated with the five-term polynomial
// approximation in normCDF so results agree with published tables.
func Price(req Request) (decimal.Decimal, error) {
	if err := req.Validate(); err != nil {
		return decimal.Decimal{}, err
	}

	value := callValue(req)
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return decimal.Decimal{}, fmt.Errorf("%w: call value is not finite", ErrNonPriceable)
	}
	return decimal.NewFromFloat(value).Round(pricePlaces), nil
}

func callValue(req Request) float64 {
	t := float64(req.Days) / daysPerYear
	volSqrtT := req.Volatility * math.Sqrt(t)

	d1 := (math.Log(req.Underlying/req.Strike) + (req.Rate+req.Volatility*req.Volatility/2)*t) / volSqrtT
	d2 := d1 - volSqrtT

	return req.Underlying*normCDF(d1) - req.Strike*math.Exp(-req.Rate*t)*normCDF(d2)
}

// normCDF approximates the cumulative standard normal distribution
// (Abramowitz & Stegun 26.2.17, Zelen-Severo coefficients).
func normCDF(x float64) float64 {
	y := 1 / (1 + 0.2316419*math.Abs(x))
	z := 0.3989423 * math.Exp(-x*x/2)
	tail := z * (1.330274*math.Pow(y, 5) -
		1.821256*math.Pow(y, 4) +
		1.781478*math.Pow(y, 3) -
		0.356538*y*y +
		0.3193815*y)
	if x < 0 {
		return tail
	}
	return 1 - tail
}
