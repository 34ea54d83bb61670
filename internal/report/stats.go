package report

import (
	"fmt"

	"github.com/montanaflynn/stats"
	"github.com/shopspring/decimal"
)

// ScenarioStats summarise the returns of the defined points of a sweep.
type ScenarioStats struct {
	Defined   int
	Undefined int
	MinReturn decimal.Decimal
	MaxReturn decimal.Decimal
	Mean      decimal.Decimal
	Median    decimal.Decimal
}

// SummarizeScenario computes return statistics over the defined points.
func SummarizeScenario(points []ScenarioPoint) (ScenarioStats, error) {
	var out ScenarioStats
	returns := make([]float64, 0, len(points))
	for _, p := range points {
		if !p.Return.Valid {
			out.Undefined++
			continue
		}
		returns = append(returns, p.Return.Decimal.InexactFloat64())
	}
	out.Defined = len(returns)
	if out.Defined == 0 {
		return out, nil
	}

	data := stats.Float64Data(returns)
	lo, err := data.Min()
	if err != nil {
		return out, fmt.Errorf("min return: %w", err)
	}
	hi, err := data.Max()
	if err != nil {
		return out, fmt.Errorf("max return: %w", err)
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return out, fmt.Errorf("mean return: %w", err)
	}
	median, err := stats.Median(data)
	if err != nil {
		return out, fmt.Errorf("median return: %w", err)
	}

	out.MinReturn = decimal.NewFromFloat(lo).Round(4)
	out.MaxReturn = decimal.NewFromFloat(hi).Round(4)
	out.Mean = decimal.NewFromFloat(mean).Round(4)
	out.Median = decimal.NewFromFloat(median).Round(4)
	return out, nil
}

// Summary renders the statistics for WriteSummary.
func (s ScenarioStats) Summary(title string) Summary {
	sum := Summary{Title: title}
	sum.Add("Defined points", fmt.Sprint(s.Defined))
	sum.Add("Undefined points", fmt.Sprint(s.Undefined))
	if s.Defined == 0 {
		return sum
	}
	sum.AddDecimal("Min return", s.MinReturn, 4)
	sum.AddDecimal("Max return", s.MaxReturn, 4)
	sum.AddDecimal("Mean return", s.Mean, 4)
	sum.AddDecimal("Median return", s.Median, 4)
	return sum
}
