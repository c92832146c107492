package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// fileConfig mirrors the YAML layout. It is pre-filled from the current
// Config so keys missing from the file keep their earlier value.
type fileConfig struct {
	Telegram struct {
		Token   string `yaml:"token"`
		Workers int    `yaml:"workers"`
	} `yaml:"telegram"`
	Panel struct {
		BaseURL        string        `yaml:"base_url"`
		AdminToken     string        `yaml:"admin_token"`
		RequestTimeout time.Duration `yaml:"request_timeout"`
	} `yaml:"panel"`
	Operators []int64             `yaml:"operators"`
	Payment   PaymentInstructions `yaml:"payment"`
	Admin     struct {
		HTTPAddr string `yaml:"http_addr"`
		GRPCAddr string `yaml:"grpc_addr"`
		Token    string `yaml:"token"`
	} `yaml:"admin"`
	Redis struct {
		Addr     string `yaml:"addr"`
		Password string `yaml:"password"`
		DB       int    `yaml:"db"`
	} `yaml:"redis"`
	MySQL struct {
		DSN string `yaml:"dsn"`
	} `yaml:"mysql"`
	Journal struct {
		Workers   int `yaml:"workers"`
		QueueSize int `yaml:"queue_size"`
	} `yaml:"journal"`
	Orders struct {
		PendingTTL    time.Duration `yaml:"pending_ttl"`
		SweepInterval time.Duration `yaml:"sweep_interval"`
	} `yaml:"orders"`
	Log struct {
		Level string `yaml:"level"`
	} `yaml:"log"`
}

func applyFile(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config: read %s: %w", path, err)
	}
	return applyYAML(cfg, data)
}

func applyYAML(cfg *Config, data []byte) error {
	var fc fileConfig
	fc.Telegram.Token = cfg.BotToken
	fc.Telegram.Workers = cfg.TelegramWorkers
	fc.Panel.BaseURL = cfg.PanelBaseURL
	fc.Panel.AdminToken = cfg.PanelAdminToken
	fc.Panel.RequestTimeout = cfg.PanelRequestTimeout
	fc.Operators = cfg.OperatorIDs
	fc.Payment = cfg.Payment
	fc.Admin.HTTPAddr = cfg.AdminHTTPAddr
	fc.Admin.GRPCAddr = cfg.AdminGRPCAddr
	fc.Admin.Token = cfg.AdminToken
	fc.Redis.Addr = cfg.RedisAddr
	fc.Redis.Password = cfg.RedisPassword
	fc.Redis.DB = cfg.RedisDB
	fc.MySQL.DSN = cfg.MySQLDSN
	fc.Journal.Workers = cfg.JournalWorkers
	fc.Journal.QueueSize = cfg.JournalQueueSize
	fc.Orders.PendingTTL = cfg.PendingTTL
	fc.Orders.SweepInterval = cfg.SweepInterval
	fc.Log.Level = cfg.LogLevel

	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("config: parse yaml: %w", err)
	}

	cfg.BotToken = fc.Telegram.Token
	cfg.TelegramWorkers = fc.Telegram.Workers
	cfg.PanelBaseURL = fc.Panel.BaseURL
	cfg.PanelAdminToken = fc.Panel.AdminToken
	cfg.PanelRequestTimeout = fc.Panel.RequestTimeout
	cfg.OperatorIDs = fc.Operators
	cfg.Payment = fc.Payment
	cfg.AdminHTTPAddr = fc.Admin.HTTPAddr
	cfg.AdminGRPCAddr = fc.Admin.GRPCAddr
	cfg.AdminToken = fc.Admin.Token
	cfg.RedisAddr = fc.Redis.Addr
	cfg.RedisPassword = fc.Redis.Password
	cfg.RedisDB = fc.Redis.DB
	cfg.MySQLDSN = fc.MySQL.DSN
	cfg.JournalWorkers = fc.Journal.Workers
	cfg.JournalQueueSize = fc.Journal.QueueSize
	cfg.PendingTTL = fc.Orders.PendingTTL
	cfg.SweepInterval = fc.Orders.SweepInterval
	cfg.LogLevel = fc.Log.Level
	return nil
}
