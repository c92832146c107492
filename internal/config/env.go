package config

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const envPrefix = "STOREFRONT_"

// applyEnv overlays STOREFRONT_* variables. Secrets are expected to come
// from here rather than from the config file.
func applyEnv(cfg *Config, getenv func(string) string) error {
	if getenv == nil {
		return nil
	}
	get := func(name string) string {
		return strings.TrimSpace(getenv(envPrefix + name))
	}

	setString := func(name string, dst *string) {
		if v := get(name); v != "" {
			*dst = v
		}
	}
	setString("BOT_TOKEN", &cfg.BotToken)
	setString("PANEL_BASE_URL", &cfg.PanelBaseURL)
	setString("PANEL_ADMIN_TOKEN", &cfg.PanelAdminToken)
	setString("ADMIN_HTTP_ADDR", &cfg.AdminHTTPAddr)
	setString("ADMIN_GRPC_ADDR", &cfg.AdminGRPCAddr)
	setString("ADMIN_TOKEN", &cfg.AdminToken)
	setString("REDIS_ADDR", &cfg.RedisAddr)
	setString("REDIS_PASSWORD", &cfg.RedisPassword)
	setString("MYSQL_DSN", &cfg.MySQLDSN)
	setString("LOG_LEVEL", &cfg.LogLevel)
	setString("PAYMENT_CARD_NUMBER", &cfg.Payment.CardNumber)
	setString("PAYMENT_BANK_NAME", &cfg.Payment.BankName)
	setString("PAYMENT_ACCOUNT_HOLDER", &cfg.Payment.AccountHolder)
	setString("PAYMENT_CONTACT", &cfg.Payment.Contact)
	setString("PAYMENT_CURRENCY", &cfg.Payment.Currency)

	if v := get("OPERATOR_IDS"); v != "" {
		ids, err := ParseIDList(v)
		if err != nil {
			return fmt.Errorf("config: %sOPERATOR_IDS: %w", envPrefix, err)
		}
		cfg.OperatorIDs = ids
	}
	if v := get("REDIS_DB"); v != "" {
		db, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %sREDIS_DB: %w", envPrefix, err)
		}
		cfg.RedisDB = db
	}
	if v := get("PANEL_REQUEST_TIMEOUT"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sPANEL_REQUEST_TIMEOUT: %w", envPrefix, err)
		}
		cfg.PanelRequestTimeout = d
	}
	if v := get("PENDING_TTL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("config: %sPENDING_TTL: %w", envPrefix, err)
		}
		cfg.PendingTTL = d
	}
	return nil
}

// ParseIDList parses a comma separated list of numeric chat IDs.
func ParseIDList(s string) ([]int64, error) {
	var ids []int64
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid id %q: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
