package note

import (
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidTerms wraps validation failures of a Terms value.
	ErrInvalidTerms = errors.New("note: invalid terms")
	// ErrMissingTerm indicates an operation needs an optional term that is not set.
	ErrMissingTerm = errors.New("note: required term not set")
)

// Terms describes one indexed note. The record is owned by whoever loads it;
// valuation reads from it and only MaterializeDefaults writes to it.
type Terms struct {
	Name             string
	Symbol           string
	Underwriter      string
	UnderlyingName   string
	UnderlyingSymbol string

	IssuePrice decimal.Decimal
	// MaxPrice caps the payoff (bull spread structure).
	MaxPrice   decimal.NullDecimal
	IssuedAt   time.Time
	MaturityAt time.Time

	ParticipationRate decimal.NullDecimal
	// AdjustmentFactor is a haircut applied to the final index value.
	AdjustmentFactor decimal.NullDecimal

	AnnualInterest        decimal.Decimal
	VolatilityEstimate    decimal.Decimal
	UnderlyingStrikePrice decimal.Decimal
}

// Structure classifies the payoff described by a set of terms.
type Structure int

const (
	StructurePlain Structure = iota
	StructureBullSpread
	// StructureConflicting terms mix a cap with a haircut or a custom
	// participation rate; their cash-surrender value is undefined.
	StructureConflicting
)

func (s Structure) String() string {
	switch s {
	case StructurePlain:
		return "participation"
	case StructureBullSpread:
		return "bull_spread"
	case StructureConflicting:
		return "conflicting"
	default:
		return fmt.Sprintf("structure(%d)", int(s))
	}
}

// Validate checks the static invariants of the terms. Conflicting structures
// are accepted here and surface as undefined valuations instead.
func (t *Terms) Validate() error {
	if !t.IssuePrice.IsPositive() {
		return fmt.Errorf("%w: issue price must be positive", ErrInvalidTerms)
	}
	if t.MaxPrice.Valid && !t.MaxPrice.Decimal.GreaterThan(t.IssuePrice) {
		return fmt.Errorf("%w: max price %s must exceed issue price %s", ErrInvalidTerms, t.MaxPrice.Decimal, t.IssuePrice)
	}
	if t.IssuedAt.IsZero() || t.MaturityAt.IsZero() {
		return fmt.Errorf("%w: issue and maturity dates are required", ErrInvalidTerms)
	}
	if !t.MaturityAt.After(t.IssuedAt) {
		return fmt.Errorf("%w: maturity %s must be after issue %s", ErrInvalidTerms,
			t.MaturityAt.Format(time.DateOnly), t.IssuedAt.Format(time.DateOnly))
	}
	if t.ParticipationRate.Valid && !t.ParticipationRate.Decimal.IsPositive() {
		return fmt.Errorf("%w: participation rate must be positive", ErrInvalidTerms)
	}
	if t.AdjustmentFactor.Valid {
		af := t.AdjustmentFactor.Decimal
		if af.IsNegative() || af.GreaterThanOrEqual(decimal.NewFromInt(1)) {
			return fmt.Errorf("%w: adjustment factor %s outside [0,1)", ErrInvalidTerms, af)
		}
	}
	if !t.VolatilityEstimate.IsPositive() {
		return fmt.Errorf("%w: volatility estimate must be positive", ErrInvalidTerms)
	}
	if !t.UnderlyingStrikePrice.IsPositive() {
		return fmt.Errorf("%w: underlying strike price must be positive", ErrInvalidTerms)
	}
	return nil
}

// Structure reports which payoff formula applies to the terms.
func (t *Terms) Structure() Structure {
	if !t.MaxPrice.Valid {
		return StructurePlain
	}
	if t.hasAdjustment() || t.hasCustomParticipation() {
		return StructureConflicting
	}
	return StructureBullSpread
}

// EffectiveParticipationRate returns the participation rate, treating an
// absent value as full participation. It never modifies the terms.
func (t *Terms) EffectiveParticipationRate() decimal.Decimal {
	if t.ParticipationRate.Valid {
		return t.ParticipationRate.Decimal
	}
	return decimal.NewFromInt(1)
}

// MaterializeDefaults writes the default participation rate onto terms that
// lack one and reports whether anything changed. Callers that share a Terms
// value across goroutines must serialise this call.
func (t *Terms) MaterializeDefaults() bool {
	if t.ParticipationRate.Valid {
		return false
	}
	t.ParticipationRate = decimal.NewNullDecimal(decimal.NewFromInt(1))
	return true
}

func (t *Terms) hasAdjustment() bool {
	return t.AdjustmentFactor.Valid && !t.AdjustmentFactor.Decimal.IsZero()
}

func (t *Terms) hasCustomParticipation() bool {
	return t.ParticipationRate.Valid && !t.ParticipationRate.Decimal.Equal(decimal.NewFromInt(1))
}
