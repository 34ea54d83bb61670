package app

import (
	"context"
	"errors"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/jmcglinch/structuredproducts/internal/alerting"
	"github.com/jmcglinch/structuredproducts/internal/config"
	"github.com/jmcglinch/structuredproducts/internal/note"
	"github.com/jmcglinch/structuredproducts/internal/pricing"
)

// App aggregates configuration and shared dependencies for the CLI commands.
type App struct {
	Config *config.Config
	Logger zerolog.Logger
}

// NewApp constructs a new application handle.
func NewApp(cfg *config.Config, logger zerolog.Logger) *App {
	return &App{Config: cfg, Logger: logger.With().Str("component", "app").Logger()}
}

func (a *App) newSolver() *pricing.Solver {
	return pricing.NewSolver(pricing.SolverOptions{
		MaxIterations: a.Config.Solver.MaxIterations,
		MaxVolatility: a.Config.Solver.MaxVolatility,
		CheckEvery:    a.Config.Solver.CheckEvery,
	}, a.Logger)
}

func (a *App) newNotifier() alerting.Notifier {
	if a.Config.Alerting.Telegram.Enabled {
		cfg := a.Config.Alerting.Telegram
		return alerting.NewTelegramNotifier(cfg.BotToken, cfg.ChatID, cfg.APIBase, cfg.Timeout, a.Logger)
	}
	return nil
}

// loadTerms converts the configured note and materialises its defaults.
func (a *App) loadTerms() (*note.Terms, error) {
	if !a.Config.Note.Configured() {
		return nil, errors.New("note not configured; add a note section to the config file")
	}

	terms, err := a.Config.Note.Terms()
	if err != nil {
		return nil, err
	}
	if terms.MaterializeDefaults() {
		a.Logger.Info().Str("symbol", terms.Symbol).Msg("participation rate not set; defaulting to 1")
	}
	return terms, nil
}

// Price values a single European call.
func (a *App) Price(req pricing.Request) (decimal.Decimal, error) {
	value, err := pricing.Price(req)
	if err != nil {
		return decimal.Decimal{}, err
	}
	a.Logger.Debug().Int("days", req.Days).Str("value", value.String()).Msg("call priced")
	return value, nil
}

// ImpliedVolatility runs the configured solver. Unset start and increment
// fall back to the solver section of the config.
func (a *App) ImpliedVolatility(ctx context.Context, q pricing.Query) (pricing.Result, error) {
	if q.Start <= 0 {
		q.Start = a.Config.Solver.StartVolatility
	}
	if q.Increment <= 0 {
		q.Increment = a.Config.Solver.Increment
	}
	return a.newSolver().ImpliedVolatility(ctx, q)
}

// ValueOptions carry the optional market inputs of the value command.
type ValueOptions struct {
	MarketPrice *decimal.Decimal
	IndexValue  *decimal.Decimal
	SharesHeld  *decimal.Decimal
	Notify      bool
}

// ScenarioOptions configure the scenario sweep.
type ScenarioOptions struct {
	From      float64
	To        float64
	Points    int
	CSVPath   string
	PNGPath   string
	MaxPoints int
}
