package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jmcglinch/structuredproducts/internal/note"
)

const sampleConfig = `
logging:
  level: debug
note:
  name: Stock Index Return Security
  symbol: SIS
  underwriter: XYZ Investment Bank
  underlying_name: S&P Midcap 400 index
  underlying_symbol: MID
  issue_price: 10
  issued_at: 1993-06-02
  maturity_at: "2000-06-02"
  participation_rate: 1.15
  annual_interest: "0.055"
  volatility_estimate: 0.5
  underlying_strike_price: 166.1
alerting:
  discount_threshold: 0.1
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "notecalc.yaml")
	if err := os.WriteFile(path, []byte(body), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.App.Name != "test" {
		t.Fatalf("app.name = %q", cfg.App.Name)
	}
	if cfg.Solver.StartVolatility != 0.01 || cfg.Solver.Increment != 0.0001 {
		t.Fatalf("unexpected solver defaults: %+v", cfg.Solver)
	}
	if cfg.Solver.MaxIterations != 200000 {
		t.Fatalf("max_iterations = %d", cfg.Solver.MaxIterations)
	}
	if cfg.Alerting.Telegram.Timeout != 10*time.Second {
		t.Fatalf("telegram timeout = %s", cfg.Alerting.Telegram.Timeout)
	}
	if cfg.Logging.Output != "stderr" {
		t.Fatalf("logging.output = %q", cfg.Logging.Output)
	}
	if cfg.Note.Configured() {
		t.Fatal("note should not be configured")
	}
}

func TestLoadNoteTerms(t *testing.T) {
	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Fatalf("logging.level = %q", cfg.Logging.Level)
	}
	if cfg.Alerting.DiscountThreshold != 0.1 {
		t.Fatalf("discount threshold = %v", cfg.Alerting.DiscountThreshold)
	}

	terms, err := cfg.Note.Terms()
	if err != nil {
		t.Fatalf("terms: %v", err)
	}

	if terms.Symbol != "SIS" || terms.UnderlyingSymbol != "MID" || terms.Underwriter != "XYZ Investment Bank" {
		t.Fatalf("unexpected metadata: %+v", terms)
	}
	if !terms.IssuePrice.Equal(decimal.NewFromInt(10)) {
		t.Fatalf("issue price = %s", terms.IssuePrice)
	}
	if !terms.AnnualInterest.Equal(decimal.RequireFromString("0.055")) {
		t.Fatalf("annual interest = %s", terms.AnnualInterest)
	}
	if !terms.ParticipationRate.Valid || !terms.ParticipationRate.Decimal.Equal(decimal.RequireFromString("1.15")) {
		t.Fatalf("participation rate = %+v", terms.ParticipationRate)
	}
	if terms.MaxPrice.Valid || terms.AdjustmentFactor.Valid {
		t.Fatal("absent optional terms must stay absent")
	}
	if got := terms.DurationInDays(); got != 2557 {
		t.Fatalf("duration = %d", got)
	}
}

func TestLoadEnvironmentOverride(t *testing.T) {
	t.Setenv("NOTECALC_SOLVER_MAX_ITERATIONS", "500")
	t.Setenv("NOTECALC_NOTE_ISSUE_PRICE", "12.5")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Solver.MaxIterations != 500 {
		t.Fatalf("max_iterations = %d", cfg.Solver.MaxIterations)
	}
	if !cfg.Note.IssuePrice.Equal(decimal.RequireFromString("12.5")) {
		t.Fatalf("issue price = %s", cfg.Note.IssuePrice)
	}
}

func TestNoteTermsValidation(t *testing.T) {
	cfg, err := Load(writeConfig(t, strings.Replace(sampleConfig, "  issue_price: 10\n", "  issue_price: 10\n  max_price: 9\n", 1)))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if _, err := cfg.Note.Terms(); !errors.Is(err, note.ErrInvalidTerms) {
		t.Fatalf("expected invalid terms, got %v", err)
	}
}

func TestLoadRejectsInvalidDecimal(t *testing.T) {
	if _, err := Load(writeConfig(t, "note:\n  issue_price: ten\n")); err == nil {
		t.Fatal("non-numeric issue price should fail")
	}
}

func TestValidate(t *testing.T) {
	cases := map[string]string{
		"logging format":    "logging:\n  format: xml\n",
		"solver increment":  "solver:\n  increment: 0\n",
		"solver bounds":     "solver:\n  max_volatility: 0.001\n",
		"scenario points":   "scenario:\n  points: 1\n",
		"scenario range":    "scenario:\n  from: 300\n  to: 200\n",
		"export points":     "export:\n  max_data_points: -1\n",
		"telegram token":    "alerting:\n  telegram:\n    enabled: true\n    chat_id: x\n",
		"negative discount": "alerting:\n  discount_threshold: -0.2\n",
	}
	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, body)); err == nil {
				t.Fatalf("%s: expected validation error", name)
			}
		})
	}
}

func TestResolveMaxPoints(t *testing.T) {
	cfg := &Config{Export: ExportConfig{MaxDataPoints: 50}}
	if cfg.ResolveMaxPoints(0) != 50 || cfg.ResolveMaxPoints(7) != 7 {
		t.Fatal("ResolveMaxPoints should prefer a positive override")
	}
}

func TestLoadEnvFile(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	body := "NOTECALC_ALERTING_TELEGRAM_BOT_TOKEN=from-dotenv\nNOTECALC_ALERTING_TELEGRAM_CHAT_ID=42\nNOTECALC_LOGGING_LEVEL=warn\n"
	if err := os.WriteFile(envPath, []byte(body), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("NOTECALC_LOGGING_LEVEL", "error")
	// registered so the variable is cleared once the test ends
	for _, key := range []string{"NOTECALC_ALERTING_TELEGRAM_BOT_TOKEN", "NOTECALC_ALERTING_TELEGRAM_CHAT_ID"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	if err := LoadEnvFile(envPath); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("NOTECALC_ALERTING_TELEGRAM_BOT_TOKEN"); got != "from-dotenv" {
		t.Fatalf("bot token = %q", got)
	}
	if got := os.Getenv("NOTECALC_LOGGING_LEVEL"); got != "error" {
		t.Fatalf("existing variables must win, got %q", got)
	}

	// the YAML carries no telegram credentials; they come from the dotenv file
	cfg, err := Load(writeConfig(t, "app:\n  name: test\n"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Alerting.Telegram.BotToken != "from-dotenv" || cfg.Alerting.Telegram.ChatID != "42" {
		t.Fatalf("telegram credentials not picked up: %+v", cfg.Alerting.Telegram)
	}

	if err := LoadEnvFile(filepath.Join(dir, "missing.env")); err != nil {
		t.Fatalf("missing file should be ignored: %v", err)
	}
}
