// Package config handles configuration for the storefront bot: defaults,
// an optional YAML file, STOREFRONT_* environment variables and finally
// command-line flags, each layer overriding the previous one.
package config

import (
	"errors"
	"fmt"
	"time"
)

// PaymentInstructions is shown to requesters after they pick a plan.
type PaymentInstructions struct {
	CardNumber    string `yaml:"card_number"`
	BankName      string `yaml:"bank_name"`
	AccountHolder string `yaml:"account_holder"`
	Contact       string `yaml:"contact"`
	Currency      string `yaml:"currency"`
}

// Config holds runtime settings for the bot server.
//
// Fields:
//   - BotToken: Telegram bot token. Required.
//   - PanelBaseURL: panel API base; endpoint names are appended verbatim.
//   - PanelAdminToken: bearer token of the panel operator account.
//   - OperatorIDs: chat IDs allowed to list, confirm and cancel orders.
//   - AdminHTTPAddr / AdminGRPCAddr: operator APIs, empty disables.
//   - AdminToken: bearer token the operator APIs require. Required when
//     either API is enabled.
//   - RedisAddr: when set, pending orders and confirm locks live in Redis.
//   - MySQLDSN: when set, lifecycle events are journaled to MySQL.
//   - PendingTTL: when positive, older pending orders are expired.
type Config struct {
	BotToken        string
	TelegramWorkers int

	PanelBaseURL        string
	PanelAdminToken     string
	PanelRequestTimeout time.Duration

	OperatorIDs []int64
	Payment     PaymentInstructions

	AdminHTTPAddr string
	AdminGRPCAddr string
	AdminToken    string

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	MySQLDSN         string
	JournalWorkers   int
	JournalQueueSize int

	PendingTTL    time.Duration
	SweepInterval time.Duration

	LogLevel string
}

// LoadDefaults populates Config with development defaults.
func (c *Config) LoadDefaults() {
	c.TelegramWorkers = 4
	c.PanelBaseURL = "http://localhost:8000/api.php?path="
	c.PanelRequestTimeout = 15 * time.Second
	c.Payment = PaymentInstructions{
		CardNumber:    "0000-0000-0000-0000",
		BankName:      "Example Bank",
		AccountHolder: "Account Holder",
		Contact:       "@support",
		Currency:      "Toman",
	}
	c.AdminHTTPAddr = "127.0.0.1:8080"
	c.AdminGRPCAddr = "127.0.0.1:50051"
	c.JournalWorkers = 2
	c.JournalQueueSize = 1000
	c.SweepInterval = time.Minute
	c.LogLevel = "info"
}

// Load builds a Config from defaults, then the YAML file named by
// -c/--config, then the environment, then the remaining flags.
func Load(args []string, getenv func(string) string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()

	fv, err := parseFlags(args)
	if err != nil {
		return nil, err
	}
	if fv.configFile != "" {
		if err := applyFile(cfg, fv.configFile); err != nil {
			return nil, err
		}
	}
	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}
	fv.apply(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the settings the bot cannot run without.
func (c *Config) Validate() error {
	var errs []error
	if c.BotToken == "" {
		errs = append(errs, errors.New("bot token is required"))
	}
	if c.PanelBaseURL == "" {
		errs = append(errs, errors.New("panel base url is required"))
	}
	if c.PanelAdminToken == "" {
		errs = append(errs, errors.New("panel admin token is required"))
	}
	if len(c.OperatorIDs) == 0 {
		errs = append(errs, errors.New("at least one operator id is required"))
	}
	if c.PanelRequestTimeout <= 0 {
		errs = append(errs, fmt.Errorf("panel request timeout must be positive, got %s", c.PanelRequestTimeout))
	}
	if c.TelegramWorkers < 1 {
		errs = append(errs, fmt.Errorf("telegram workers must be at least 1, got %d", c.TelegramWorkers))
	}
	if c.JournalWorkers < 1 || c.JournalQueueSize < 1 {
		errs = append(errs, errors.New("journal workers and queue size must be at least 1"))
	}
	if (c.AdminHTTPAddr != "" || c.AdminGRPCAddr != "") && c.AdminToken == "" {
		errs = append(errs, errors.New("admin token is required when an admin api is enabled"))
	}
	if c.PendingTTL < 0 {
		errs = append(errs, errors.New("pending ttl must not be negative"))
	}
	if c.PendingTTL > 0 && c.SweepInterval <= 0 {
		errs = append(errs, errors.New("sweep interval must be positive when pending ttl is set"))
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}
