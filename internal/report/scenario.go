package report

import (
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"

	"github.com/gocarina/gocsv"
	"github.com/shopspring/decimal"
	chart "github.com/wcharczuk/go-chart/v2"
)

// ScenarioPoint is the note's value at one hypothetical final index level.
type ScenarioPoint struct {
	FinalIndexValue    decimal.Decimal
	CashSurrenderValue decimal.NullDecimal
	// Return is the cash-surrender value relative to the issue price.
	Return decimal.NullDecimal
}

type scenarioRecord struct {
	FinalIndexValue    string `csv:"final_index_value"`
	CashSurrenderValue string `csv:"cash_surrender_value"`
	Return             string `csv:"return"`
	Defined            bool   `csv:"defined"`
}

// ChartOptions size and label the payoff chart.
type ChartOptions struct {
	Title      string
	Width      int
	Height     int
	IssuePrice decimal.Decimal
}

// Downsample keeps at most max evenly spaced points, always including both ends.
func Downsample(points []ScenarioPoint, max int) []ScenarioPoint {
	if max <= 0 || len(points) <= max {
		return points
	}
	if max == 1 {
		return points[:1]
	}

	result := make([]ScenarioPoint, 0, max)
	step := float64(len(points)-1) / float64(max-1)
	for i := 0; i < max; i++ {
		idx := int(math.Round(step * float64(i)))
		if idx >= len(points) {
			idx = len(points) - 1
		}
		result = append(result, points[idx])
	}
	return result
}

// WriteScenarioCSV writes one row per point.
func WriteScenarioCSV(path string, points []ScenarioPoint) error {
	if err := ensureDir(path); err != nil {
		return err
	}

	records := make([]scenarioRecord, 0, len(points))
	for _, p := range points {
		records = append(records, scenarioRecord{
			FinalIndexValue:    p.FinalIndexValue.StringFixed(2),
			CashSurrenderValue: nullString(p.CashSurrenderValue, 2),
			Return:             nullString(p.Return, 4),
			Defined:            p.CashSurrenderValue.Valid,
		})
	}

	return createAndWrite(path, func(w io.Writer) error {
		return gocsv.Marshal(&records, w)
	})
}

// WriteScenarioPNG draws the payoff diagram of the defined points.
func WriteScenarioPNG(path string, points []ScenarioPoint, opts ChartOptions) error {
	x := make([]float64, 0, len(points))
	y := make([]float64, 0, len(points))
	for _, p := range points {
		if !p.CashSurrenderValue.Valid {
			continue
		}
		x = append(x, p.FinalIndexValue.InexactFloat64())
		y = append(y, p.CashSurrenderValue.Decimal.InexactFloat64())
	}
	if len(x) < 2 {
		return errors.New("scenario has fewer than two defined points to chart")
	}

	if err := ensureDir(path); err != nil {
		return err
	}

	width, height := opts.Width, opts.Height
	if width <= 0 {
		width = 1280
	}
	if height <= 0 {
		height = 720
	}

	priceFormatter := func(v interface{}) string {
		return chart.FloatValueFormatterWithFormat(v, "%.2f")
	}

	series := []chart.Series{
		chart.ContinuousSeries{
			Name:    "Cash-surrender value",
			XValues: x,
			YValues: y,
		},
	}
	if opts.IssuePrice.IsPositive() {
		issue := opts.IssuePrice.InexactFloat64()
		series = append(series, chart.ContinuousSeries{
			Name:    "Issue price",
			XValues: []float64{x[0], x[len(x)-1]},
			YValues: []float64{issue, issue},
		})
	}

	graph := chart.Chart{
		Title:  opts.Title,
		Width:  width,
		Height: height,
		XAxis: chart.XAxis{
			Name:           "Final index value",
			ValueFormatter: priceFormatter,
		},
		YAxis: chart.YAxis{
			Name:           "Note value",
			ValueFormatter: priceFormatter,
		},
		Series: series,
	}
	graph.Elements = []chart.Renderable{chart.Legend(&graph)}

	return createAndWrite(path, func(w io.Writer) error {
		return graph.Render(chart.PNG, w)
	})
}

func createAndWrite(path string, write func(io.Writer) error) error {
	file, err := os.Create(path)
	if err != nil {
		return err
	}
	return writeAndClose(file, write)
}

// writeAndClose reports a failed Close as well, since that is where buffered
// data reaches the disk.
func writeAndClose(wc io.WriteCloser, write func(io.Writer) error) (err error) {
	defer func() {
		if cerr := wc.Close(); cerr != nil {
			err = errors.Join(err, fmt.Errorf("close: %w", cerr))
		}
	}()
	return write(wc)
}

func nullString(d decimal.NullDecimal, places int32) string {
	if !d.Valid {
		return ""
	}
	return d.Decimal.StringFixed(places)
}

func ensureDir(path string) error {
	dir := filepath.Dir(path)
	if dir == "." || dir == "" {
		return nil
	}
	return os.MkdirAll(dir, 0o755)
}
