package pricing

import (
	"context"
	"errors"
	"fmt"
	"math"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

const (
	matchPlaces = 2

	defaultMaxIterations = 200_000
	defaultMaxVolatility = 10.0
	defaultCheckEvery    = 1024
)

// ErrInvalidQuery indicates the search parameters cannot drive a scan.
var ErrInvalidQuery = errors.New("pricing: invalid implied volatility query")

// Status tags the outcome of an implied volatility search.
type Status int

const (
	// StatusFound means a trial volatility reproduced the target price.
	StatusFound Status = iota
	// StatusNotFound means the scan reached the degenerate region where the
	// call is worth the underlying itself.
	StatusNotFound
	// StatusExceededBounds means the iteration or volatility cap was hit.
	StatusExceededBounds
)

func (s Status) String() string {
	switch s {
	case StatusFound:
		return "found"
	case StatusNotFound:
		return "not_found"
	case StatusExceededBounds:
		return "exceeded_bounds"
	default:
		return fmt.Sprintf("status(%d)", int(s))
	}
}

// Result is the outcome of a search. Volatility is only meaningful when
// Status is StatusFound.
type Result struct {
	Status     Status
	Volatility float64
	Iterations int
}

// Found reports whether the search produced a volatility.
func (r Result) Found() bool {
	return r.Status == StatusFound
}

// Query describes an implied volatility search. Every input except the
// volatility is fixed; the scan starts at Start and steps by Increment.
type Query struct {
	Days       int
	Underlying float64
	Strike     float64
	Rate       float64
	Target     float64
	Start      float64
	Increment  float64
}

// SolverOptions bound the scan.
type SolverOptions struct {
	MaxIterations int
	MaxVolatility float64
	// CheckEvery is how many trials run between context checks.
	CheckEvery int
}

// Solver backs out implied volatility with a linear scan over Price.
type Solver struct {
	opts   SolverOptions
	logger zerolog.Logger
}

// NewSolver constructs a Solver, filling unset options with defaults.
func NewSolver(opts SolverOptions, logger zerolog.Logger) *Solver {
	if opts.MaxIterations <= 0 {
		opts.MaxIterations = defaultMaxIterations
	}
	if opts.MaxVolatility <= 0 {
		opts.MaxVolatility = defaultMaxVolatility
	}
	if opts.CheckEvery <= 0 {
		opts.CheckEvery = defaultCheckEvery
	}
	return &Solver{opts: opts, logger: logger.With().Str("component", "iv_solver").Logger()}
}

// Options returns the effective bounds.
func (s *Solver) Options() SolverOptions {
	return s.opts
}

// ImpliedVolatility scans upward from q.Start until the priced call matches
// q.Target at two decimal places. A priced value that rounds to the
// underlying price ends the scan as StatusNotFound.
func (s *Solver) ImpliedVolatility(ctx context.Context, q Query) (Result, error) {
	if !isFinite(q.Start) || !isFinite(q.Increment) || q.Start <= 0 || q.Increment <= 0 {
		return Result{}, fmt.Errorf("%w: start and increment must be positive and finite", ErrInvalidQuery)
	}
	inputs := []struct {
		name  string
		value float64
	}{
		{"target", q.Target},
		{"underlying", q.Underlying},
		{"strike", q.Strike},
		{"rate", q.Rate},
	}
	for _, in := range inputs {
		if !isFinite(in.value) {
			return Result{}, fmt.Errorf("%w: %s must be finite, got %v", ErrNonPriceable, in.name, in.value)
		}
	}

	target := decimal.NewFromFloat(q.Target).Round(matchPlaces)
	sentinel := decimal.NewFromFloat(q.Underlying).Round(matchPlaces)

	req := Request{Days: q.Days, Underlying: q.Underlying, Strike: q.Strike, Rate: q.Rate}
	v := q.Start
	for i := 0; i < s.opts.MaxIterations; i++ {
		if i%s.opts.CheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return Result{}, err
			}
		}
		if v > s.opts.MaxVolatility {
			return s.finish(Result{Status: StatusExceededBounds, Iterations: i}), nil
		}

		req.Volatility = v
		priced, err := Price(req)
		if err != nil {
			return Result{}, err
		}

		rounded := priced.Round(matchPlaces)
		switch {
		case rounded.Equal(target):
			return s.finish(Result{Status: StatusFound, Volatility: v, Iterations: i + 1}), nil
		case rounded.Equal(sentinel):
			return s.finish(Result{Status: StatusNotFound, Iterations: i + 1}), nil
		}
		v += q.Increment
	}

	return s.finish(Result{Status: StatusExceededBounds, Iterations: s.opts.MaxIterations}), nil
}

func isFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

func (s *Solver) finish(res Result) Result {
	s.logger.Debug().
		Str("status", res.Status.String()).
		Int("iterations", res.Iterations).
		Float64("volatility", res.Volatility).
		Msg("implied volatility search finished")
	return res
}
