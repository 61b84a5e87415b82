package store

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"sentiment-trader/internal/engine"
	"sentiment-trader/internal/strategy"
	"sentiment-trader/internal/symbols"
)

var ErrInvalidConfig = errors.New("invalid config")

var validate = validator.New()

type Config struct {
	Mode string `yaml:"mode" default:"DRY_RUN" validate:"oneof=DRY_RUN LIVE"`

	Strategy struct {
		ID   string `yaml:"id" default:"BBS@STS" validate:"required"`
		Name string `yaml:"name" default:"Sentiment Trading Strategy"`
	} `yaml:"strategy"`

	Symbols struct {
		// Mapping entries are "BROKER_SYMBOL:TICKER", evaluated in this order.
		Mapping []string `yaml:"mapping" validate:"required,min=1,dive,required"`
		Type    string   `yaml:"type" default:"stock" validate:"oneof=stock etf future forex crypto index"`
	} `yaml:"symbols"`

	Risk struct {
		Threshold      float64 `yaml:"threshold" default:"0.2" validate:"gt=0"`
		ExpectedReturn float64 `yaml:"expected_return" default:"5.0" validate:"gt=0"`
		// MaxPositions defaults to the number of symbols.
		MaxPositions int `yaml:"max_positions" validate:"gte=0"`
		// MaxTrades defaults to max_positions / symbols, at least 1.
		MaxTrades int `yaml:"max_trades" validate:"gte=0"`
		// CapWithinCycle counts a cycle's own entries against max_positions.
		CapWithinCycle bool `yaml:"cap_within_cycle"`
	} `yaml:"risk"`

	Window struct {
		Start            string `yaml:"start" default:"00:00"`
		Finish           string `yaml:"finish" default:"23:59"`
		End              string `yaml:"end" default:"23:59"`
		IterationMinutes int    `yaml:"iteration_minutes" default:"15" validate:"gte=1,lte=1440"`
		Period           string `yaml:"period" default:"month" validate:"oneof=month week day 24/7"`
		Timezone         string `yaml:"timezone" default:"Local"`
	} `yaml:"window"`

	Flags struct {
		MoneyManagement bool `yaml:"money_management"`
		AutoTrade       bool `yaml:"auto_trade"`
		Debug           bool `yaml:"debug"`
		Notifications   bool `yaml:"notifications"`
	} `yaml:"flags"`

	Execution struct {
		Exchange        string  `yaml:"exchange" default:"NSE"`
		Product         string  `yaml:"product" default:"MIS" validate:"oneof=MIS CNC NRML"`
		Quantity        int     `yaml:"quantity" default:"1" validate:"gte=1"`
		Capital         float64 `yaml:"capital" default:"100000" validate:"gt=0"`
		RiskPerTradePct float64 `yaml:"risk_per_trade_pct" default:"1.0" validate:"gt=0,lte=100"`
	} `yaml:"execution"`

	Sentiment struct {
		Provider     string             `yaml:"provider" default:"NEWS" validate:"oneof=NEWS STATIC"`
		FeedURL      string             `yaml:"feed_url" default:"https://news.google.com/rss/search?q=%s+stock&hl=en-US&gl=US&ceid=US:en"`
		MaxArticles  int                `yaml:"max_articles" default:"20" validate:"gte=1"`
		CacheMinutes int                `yaml:"cache_minutes" default:"10" validate:"gte=0"`
		Static       map[string]float64 `yaml:"static"`
	} `yaml:"sentiment"`

	Server struct {
		Addr string `yaml:"addr" default:":8080"`
	} `yaml:"server"`

	Logs struct {
		RetentionDays int `yaml:"retention_days" default:"7" validate:"gte=0"`
	} `yaml:"logs"`
}

// Validate checks tags first, then the relations between fields.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		var verrs validator.ValidationErrors
		if errors.As(err, &verrs) {
			msgs := make([]string, 0, len(verrs))
			for _, fe := range verrs {
				msgs = append(msgs, fieldMessage(fe))
			}
			return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(msgs, "; "))
		}
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if _, err := c.Settings(); err != nil {
		return err
	}
	// Delivery lots settle into holdings overnight, where no order tag or net
	// position ties them to the strategy any more.
	if c.Mode == "LIVE" && c.Execution.Product == "CNC" && c.Window.Period != "day" {
		return fmt.Errorf("%w: execution.product CNC needs window.period day in LIVE mode, got %s", ErrInvalidConfig, c.Window.Period)
	}
	return nil
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Namespace()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "oneof":
		return fmt.Sprintf("%s must be one of: %s", field, strings.ReplaceAll(fe.Param(), " ", ", "))
	case "gt":
		return fmt.Sprintf("%s must be greater than %s", field, fe.Param())
	case "gte", "min":
		return fmt.Sprintf("%s must be at least %s", field, fe.Param())
	case "lte", "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

// Location resolves the window timezone.
func (c *Config) Location() (*time.Location, error) {
	switch c.Window.Timezone {
	case "", "Local":
		return time.Local, nil
	}
	loc, err := time.LoadLocation(c.Window.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w: timezone %q: %v", ErrInvalidConfig, c.Window.Timezone, err)
	}
	return loc, nil
}

// Settings turns the file into the engine's explicit run settings.
func (c *Config) Settings() (engine.Settings, error) {
	mapping, err := symbols.FromEntries(c.Symbols.Mapping)
	if err != nil {
		return engine.Settings{}, fmt.Errorf("%w: symbols.mapping: %w", ErrInvalidConfig, err)
	}

	loc, err := c.Location()
	if err != nil {
		return engine.Settings{}, err
	}

	var w engine.TradingWindow
	for _, f := range []struct {
		name string
		in   string
		out  *time.Duration
	}{
		{"start", c.Window.Start, &w.Start},
		{"finish", c.Window.Finish, &w.Finish},
		{"end", c.Window.End, &w.End},
	} {
		d, err := engine.ParseClock(f.in)
		if err != nil {
			return engine.Settings{}, fmt.Errorf("%w: window.%s: %w", ErrInvalidConfig, f.name, err)
		}
		*f.out = d
	}
	w.Interval = time.Duration(c.Window.IterationMinutes) * time.Minute
	w.Period = engine.Period(c.Window.Period)
	w.Location = loc

	maxPositions := c.Risk.MaxPositions
	if maxPositions == 0 {
		maxPositions = mapping.Len()
	}
	maxTrades := c.Risk.MaxTrades
	if maxTrades == 0 {
		maxTrades = strategy.MaxTradesFor(maxPositions, mapping.Len())
	}

	s := engine.Settings{
		StrategyID: c.Strategy.ID,
		Mapping:    mapping,
		AssetClass: c.Symbols.Type,
		Risk: strategy.RiskConfig{
			Threshold:      c.Risk.Threshold,
			ExpectedReturn: c.Risk.ExpectedReturn,
			MaxPositions:   maxPositions,
			MaxTrades:      maxTrades,
			CapWithinCycle: c.Risk.CapWithinCycle,
		},
		Window:          w,
		AutoTrade:       c.Flags.AutoTrade,
		MoneyManagement: c.Flags.MoneyManagement,
		Debug:           c.Flags.Debug,
		Notifications:   c.Flags.Notifications,
	}
	if err := s.Validate(); err != nil {
		return engine.Settings{}, fmt.Errorf("%w: %w", ErrInvalidConfig, err)
	}
	return s, nil
}

func LoadConfig(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	return ParseConfig(b)
}

func ParseConfig(b []byte) (*Config, error) {
	var c Config
	if err := defaults.Set(&c); err != nil {
		return nil, fmt.Errorf("config defaults: %w", err)
	}
	if err := yaml.Unmarshal(b, &c); err != nil {
		return nil, err
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &c, nil
}
