package checkout

import (
	"fmt"
	"strings"

	"github.com/alovak/checkoutflow-playground/internal/logging"
	"github.com/alovak/checkoutflow-playground/internal/money"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvPrefix is the prefix of environment overrides, e.g.
// CHECKOUT_JOURNAL__DSN sets journal.dsn.
const EnvPrefix = "CHECKOUT_"

// Config is a configuration for the checkout application
type Config struct {
	HTTPAddr string `koanf:"http_addr"`
	// Currency is the ISO code carts are priced in. Only USD is wired.
	Currency string         `koanf:"currency"`
	Discount DiscountConfig `koanf:"discount"`
	Payment  PaymentConfig  `koanf:"payment"`
	Journal  JournalConfig  `koanf:"journal"`
	Log      logging.Config `koanf:"log"`
}

type DiscountConfig struct {
	MinItems int   `koanf:"min_items"`
	Percent  int64 `koanf:"percent"`
}

type PaymentConfig struct {
	// Gateway selects the payment capability. Only "dev" is available.
	Gateway string `koanf:"gateway"`
	// DeclineAbove makes the dev gateway decline larger amounts, e.g. "500.00".
	DeclineAbove string `koanf:"decline_above"`
}

type JournalConfig struct {
	// Backend is mem or pg.
	Backend string `koanf:"backend"`
	DSN     string `koanf:"dsn"`
}

func DefaultConfig() *Config {
	policy := DefaultDiscountPolicy()
	return &Config{
		HTTPAddr: "localhost:9090",
		Currency: "USD",
		Discount: DiscountConfig{MinItems: policy.MinItems, Percent: policy.Percent},
		Payment:  PaymentConfig{Gateway: "dev"},
		Journal:  JournalConfig{Backend: "mem"},
		Log:      logging.DefaultConfig(),
	}
}

// LoadConfig layers defaults, the optional YAML file at path and
// CHECKOUT_* environment variables.
func LoadConfig(path string) (*Config, error) {
	k := koanf.New(".")

	def := DefaultConfig()
	if err := k.Load(confmap.Provider(map[string]interface{}{
		"http_addr":             def.HTTPAddr,
		"currency":              def.Currency,
		"discount.min_items":    def.Discount.MinItems,
		"discount.percent":      def.Discount.Percent,
		"payment.gateway":       def.Payment.Gateway,
		"payment.decline_above": def.Payment.DeclineAbove,
		"journal.backend":       def.Journal.Backend,
		"journal.dsn":           def.Journal.DSN,
		"log.level":             def.Log.Level,
		"log.format":            def.Log.Format,
		"log.file":              def.Log.File,
	}, "."), nil); err != nil {
		return nil, fmt.Errorf("load defaults: %w", err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load %s: %w", path, err)
		}
	}

	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		s = strings.TrimPrefix(s, EnvPrefix)
		s = strings.ReplaceAll(s, "__", ".")
		return strings.ToLower(s)
	}), nil); err != nil {
		return nil, fmt.Errorf("env overlay: %w", err)
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return fmt.Errorf("http_addr required")
	}
	if !strings.EqualFold(c.Currency, money.USD{}.Unit().String()) {
		return fmt.Errorf("unsupported currency %q", c.Currency)
	}
	if c.Discount.MinItems < 0 {
		return fmt.Errorf("discount.min_items must not be negative")
	}
	if c.Discount.Percent < 0 || c.Discount.Percent > 100 {
		return fmt.Errorf("discount.percent must be within 0..100")
	}
	if c.Payment.Gateway != "dev" {
		return fmt.Errorf("unsupported payment.gateway=%s", c.Payment.Gateway)
	}
	if c.Payment.DeclineAbove != "" {
		if _, err := money.Parse[money.USD](c.Payment.DeclineAbove); err != nil {
			return fmt.Errorf("payment.decline_above: %w", err)
		}
	}
	switch c.Journal.Backend {
	case "mem":
	case "pg":
		if c.Journal.DSN == "" {
			return fmt.Errorf("journal.dsn is required for pg backend")
		}
	default:
		return fmt.Errorf("unsupported journal.backend=%s", c.Journal.Backend)
	}
	return nil
}

// DiscountPolicy returns the configured policy.
func (c *Config) DiscountPolicy() DiscountPolicy {
	return DiscountPolicy{MinItems: c.Discount.MinItems, Percent: c.Discount.Percent}
}
