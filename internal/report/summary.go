package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/shopspring/decimal"
)

// Undefined is printed for values that cannot be computed for a note.
const Undefined = "undefined"

// Line is one metric of a valuation summary.
type Line struct {
	Metric string
	Value  string
}

// Summary is a titled list of metrics.
type Summary struct {
	Title    string
	Subtitle string
	Lines    []Line
}

// Add appends a metric.
func (s *Summary) Add(metric, value string) {
	s.Lines = append(s.Lines, Line{Metric: metric, Value: value})
}

// AddDecimal appends a metric rendered with a fixed number of places.
func (s *Summary) AddDecimal(metric string, value decimal.Decimal, places int32) {
	s.Add(metric, value.StringFixed(places))
}

// AddNullDecimal appends a metric that may be undefined.
func (s *Summary) AddNullDecimal(metric string, value decimal.NullDecimal, places int32) {
	if !value.Valid {
		s.Add(metric, Undefined)
		return
	}
	s.AddDecimal(metric, value.Decimal, places)
}

// WriteSummary renders the summary as a two-column table.
func WriteSummary(w io.Writer, s Summary) error {
	if s.Title != "" {
		if _, err := fmt.Fprintln(w, s.Title); err != nil {
			return err
		}
	}
	if s.Subtitle != "" {
		if _, err := fmt.Fprintln(w, s.Subtitle); err != nil {
			return err
		}
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Value"})
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(false)
	table.SetColumnAlignment([]int{tablewriter.ALIGN_LEFT, tablewriter.ALIGN_RIGHT})

	for _, line := range s.Lines {
		table.Append([]string{sanitizeInline(line.Metric), sanitizeInline(line.Value)})
	}

	table.Render()
	return nil
}

func sanitizeInline(v string) string {
	cleaned := strings.ReplaceAll(v, "\n", " ")
	cleaned = strings.ReplaceAll(cleaned, "\r", " ")
	return cleaned
}
