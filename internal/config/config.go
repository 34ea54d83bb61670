package config

import (
	"fmt"
	"reflect"
	"strings"
	"time"

	"github.com/go-viper/mapstructure/v2"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"github.com/jmcglinch/structuredproducts/internal/logging"
	"github.com/jmcglinch/structuredproducts/internal/note"
)

// DateLayout is the layout of issue and maturity dates in configuration.
const DateLayout = time.DateOnly

// Config materialises application configuration.
type Config struct {
	App      AppConfig      `mapstructure:"app"`
	Logging  logging.Config `mapstructure:"logging"`
	Solver   SolverConfig   `mapstructure:"solver"`
	Note     NoteConfig     `mapstructure:"note"`
	Scenario ScenarioConfig `mapstructure:"scenario"`
	Alerting AlertingConfig `mapstructure:"alerting"`
	Export   ExportConfig   `mapstructure:"export"`
}

// AppConfig general metadata.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
}

// SolverConfig bounds the implied volatility scan.
type SolverConfig struct {
	StartVolatility float64 `mapstructure:"start_volatility"`
	Increment       float64 `mapstructure:"increment"`
	MaxIterations   int     `mapstructure:"max_iterations"`
	MaxVolatility   float64 `mapstructure:"max_volatility"`
	CheckEvery      int     `mapstructure:"check_every"`
}

// NoteConfig holds the terms of the note under evaluation. Optional terms
// are pointers so that absence survives decoding.
type NoteConfig struct {
	Name             string `mapstructure:"name"`
	Symbol           string `mapstructure:"symbol"`
	Underwriter      string `mapstructure:"underwriter"`
	UnderlyingName   string `mapstructure:"underlying_name"`
	UnderlyingSymbol string `mapstructure:"underlying_symbol"`

	IssuePrice            decimal.Decimal  `mapstructure:"issue_price"`
	MaxPrice              *decimal.Decimal `mapstructure:"max_price"`
	IssuedAt              time.Time        `mapstructure:"issued_at"`
	MaturityAt            time.Time        `mapstructure:"maturity_at"`
	ParticipationRate     *decimal.Decimal `mapstructure:"participation_rate"`
	AdjustmentFactor      *decimal.Decimal `mapstructure:"adjustment_factor"`
	AnnualInterest        decimal.Decimal  `mapstructure:"annual_interest"`
	VolatilityEstimate    decimal.Decimal  `mapstructure:"volatility_estimate"`
	UnderlyingStrikePrice decimal.Decimal  `mapstructure:"underlying_strike_price"`
}

// ScenarioConfig describes the sweep of hypothetical final index values.
// Zero bounds are resolved relative to the strike.
type ScenarioConfig struct {
	From   float64 `mapstructure:"from"`
	To     float64 `mapstructure:"to"`
	Points int     `mapstructure:"points"`
}

// AlertingConfig defines discount alert thresholds and routing.
type AlertingConfig struct {
	Enabled bool `mapstructure:"enabled"`
	// DiscountThreshold is a fraction of the market price.
	DiscountThreshold float64        `mapstructure:"discount_threshold"`
	Telegram          TelegramConfig `mapstructure:"telegram"`
}

// TelegramConfig describes the Telegram alert channel.
type TelegramConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	BotToken string        `mapstructure:"bot_token"`
	ChatID   string        `mapstructure:"chat_id"`
	APIBase  string        `mapstructure:"api_base"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ExportConfig sets CLI export behaviour.
type ExportConfig struct {
	MaxDataPoints int `mapstructure:"max_data_points"`
	ChartWidth    int `mapstructure:"chart_width"`
	ChartHeight   int `mapstructure:"chart_height"`
}

// Load builds configuration from file, environment, and defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("NOTECALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("notecalc")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}

	if err := readConfig(v); err != nil {
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg, decodeHook()); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func readConfig(v *viper.Viper) error {
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return nil
		}
		return fmt.Errorf("read config: %w", err)
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "notecalc")
	v.SetDefault("app.environment", "development")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.output", "stderr")

	v.SetDefault("solver.start_volatility", 0.01)
	v.SetDefault("solver.increment", 0.0001)
	v.SetDefault("solver.max_iterations", 200000)
	v.SetDefault("solver.max_volatility", 10.0)
	v.SetDefault("solver.check_every", 1024)

	v.SetDefault("scenario.points", 101)

	v.SetDefault("alerting.enabled", false)
	v.SetDefault("alerting.discount_threshold", 0.05)
	v.SetDefault("alerting.telegram.enabled", false)
	v.SetDefault("alerting.telegram.bot_token", "")
	v.SetDefault("alerting.telegram.chat_id", "")
	v.SetDefault("alerting.telegram.api_base", "https://api.telegram.org")
	v.SetDefault("alerting.telegram.timeout", "10s")

	v.SetDefault("export.max_data_points", 1000)
	v.SetDefault("export.chart_width", 1280)
	v.SetDefault("export.chart_height", 720)
}

func decodeHook() viper.DecoderConfigOption {
	return func(dc *mapstructure.DecoderConfig) {
		dc.TagName = "mapstructure"
		dc.DecodeHook = mapstructure.ComposeDecodeHookFunc(
			mapstructure.StringToTimeDurationHookFunc(),
			mapstructure.StringToTimeHookFunc(DateLayout),
			mapstructure.StringToSliceHookFunc(","),
			stringToDecimalHookFunc(),
		)
	}
}

var decimalType = reflect.TypeOf(decimal.Decimal{})

// stringToDecimalHookFunc decodes YAML numbers and strings into decimals.
// Strings keep their exact digits; floats go through their shortest form.
func stringToDecimalHookFunc() mapstructure.DecodeHookFuncType {
	return func(from reflect.Type, to reflect.Type, data interface{}) (interface{}, error) {
		if to != decimalType {
			return data, nil
		}
		switch value := data.(type) {
		case string:
			d, err := decimal.NewFromString(strings.TrimSpace(value))
			if err != nil {
				return nil, fmt.Errorf("parse decimal %q: %w", value, err)
			}
			return d, nil
		case float64:
			return decimal.NewFromFloat(value), nil
		case float32:
			return decimal.NewFromFloat32(value), nil
		case int:
			return decimal.NewFromInt(int64(value)), nil
		case int64:
			return decimal.NewFromInt(value), nil
		default:
			return data, nil
		}
	}
}

// Validate performs basic sanity checks on the configuration values.
func (c *Config) Validate() error {
	if err := c.Logging.Validate(); err != nil {
		return err
	}
	if c.Solver.StartVolatility <= 0 {
		return fmt.Errorf("solver.start_volatility must be greater than zero")
	}
	if c.Solver.Increment <= 0 {
		return fmt.Errorf("solver.increment must be greater than zero")
	}
	if c.Solver.MaxIterations <= 0 {
		return fmt.Errorf("solver.max_iterations must be greater than zero")
	}
	if c.Solver.MaxVolatility <= c.Solver.StartVolatility {
		return fmt.Errorf("solver.max_volatility must exceed solver.start_volatility")
	}
	if c.Scenario.Points < 2 {
		return fmt.Errorf("scenario.points must be at least 2")
	}
	if c.Scenario.From < 0 || c.Scenario.To < 0 {
		return fmt.Errorf("scenario bounds cannot be negative")
	}
	if c.Scenario.To != 0 && c.Scenario.From >= c.Scenario.To {
		return fmt.Errorf("scenario.from must be below scenario.to")
	}
	if c.Export.MaxDataPoints <= 0 {
		return fmt.Errorf("export.max_data_points must be greater than zero")
	}
	if c.Alerting.DiscountThreshold < 0 {
		return fmt.Errorf("alerting.discount_threshold cannot be negative")
	}
	if c.Alerting.Telegram.Enabled {
		if c.Alerting.Telegram.BotToken == "" {
			return fmt.Errorf("alerting.telegram.bot_token must be set")
		}
		if c.Alerting.Telegram.ChatID == "" {
			return fmt.Errorf("alerting.telegram.chat_id must be set")
		}
	}
	return nil
}

// ResolveMaxPoints returns either the CLI override or config default.
func (c *Config) ResolveMaxPoints(override int) int {
	if override > 0 {
		return override
	}
	return c.Export.MaxDataPoints
}

// Configured reports whether a note has been described at all.
func (n NoteConfig) Configured() bool {
	return !n.IssuePrice.IsZero() || !n.UnderlyingStrikePrice.IsZero()
}

// Terms converts the configured note into validated terms.
func (n NoteConfig) Terms() (*note.Terms, error) {
	terms := &note.Terms{
		Name:                  n.Name,
		Symbol:                n.Symbol,
		Underwriter:           n.Underwriter,
		UnderlyingName:        n.UnderlyingName,
		UnderlyingSymbol:      n.UnderlyingSymbol,
		IssuePrice:            n.IssuePrice,
		MaxPrice:              optional(n.MaxPrice),
		IssuedAt:              n.IssuedAt,
		MaturityAt:            n.MaturityAt,
		ParticipationRate:     optional(n.ParticipationRate),
		AdjustmentFactor:      optional(n.AdjustmentFactor),
		AnnualInterest:        n.AnnualInterest,
		VolatilityEstimate:    n.VolatilityEstimate,
		UnderlyingStrikePrice: n.UnderlyingStrikePrice,
	}
	if err := terms.Validate(); err != nil {
		return nil, fmt.Errorf("note: %w", err)
	}
	return terms, nil
}

func optional(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(*d)
}
