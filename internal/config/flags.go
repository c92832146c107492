package config

import (
	"time"

	"github.com/spf13/pflag"
)

// flagValues holds parsed command-line values. Only flags that were set
// explicitly override earlier layers.
type flagValues struct {
	fs         *pflag.FlagSet
	configFile string

	botToken        string
	telegramWorkers int
	panelBaseURL    string
	panelTimeout    time.Duration
	operatorIDs     []int64
	adminHTTPAddr   string
	adminGRPCAddr   string
	redisAddr       string
	redisDB         int
	mysqlDSN        string
	journalWorkers  int
	journalQueue    int
	pendingTTL      time.Duration
	sweepInterval   time.Duration
	logLevel        string
}

// parseFlags parses the server flags:
//
//	-c, --config string            YAML config file
//	    --bot-token string         Telegram bot token
//	    --telegram-workers int     update handler workers
//	    --panel-url string         panel API base URL
//	    --panel-timeout duration   per-request panel timeout
//	    --operators int64Slice     operator chat IDs
//	    --admin-http string        admin HTTP listen address ("" disables)
//	    --admin-grpc string        admin gRPC listen address ("" disables)
//	    --redis-addr string        Redis address for the ledger
//	    --redis-db int             Redis database number
//	    --mysql-dsn string         MySQL DSN for the order journal
//	    --journal-workers int      journal writer workers
//	    --journal-queue int        journal event queue size
//	    --pending-ttl duration     expire pending orders older than this (0 disables)
//	    --sweep-interval duration  expiry sweep interval
//	    --log-level string         debug, info, warn or error
//
// The panel admin token is intentionally not a flag; use the file or
// STOREFRONT_PANEL_ADMIN_TOKEN.
func parseFlags(args []string) (*flagValues, error) {
	fv := &flagValues{}
	fs := pflag.NewFlagSet("storefront", pflag.ContinueOnError)

	fs.StringVarP(&fv.configFile, "config", "c", "", "path to YAML config file")
	fs.StringVar(&fv.botToken, "bot-token", "", "Telegram bot token")
	fs.IntVar(&fv.telegramWorkers, "telegram-workers", 0, "number of update handler workers")
	fs.StringVar(&fv.panelBaseURL, "panel-url", "", "panel API base URL")
	fs.DurationVar(&fv.panelTimeout, "panel-timeout", 0, "per-request panel timeout")
	fs.Int64SliceVar(&fv.operatorIDs, "operators", nil, "operator chat IDs")
	fs.StringVar(&fv.adminHTTPAddr, "admin-http", "", "admin HTTP listen address")
	fs.StringVar(&fv.adminGRPCAddr, "admin-grpc", "", "admin gRPC listen address")
	fs.StringVar(&fv.redisAddr, "redis-addr", "", "Redis address for the order ledger")
	fs.IntVar(&fv.redisDB, "redis-db", 0, "Redis database number")
	fs.StringVar(&fv.mysqlDSN, "mysql-dsn", "", "MySQL DSN for the order journal")
	fs.IntVar(&fv.journalWorkers, "journal-workers", 0, "journal writer workers")
	fs.IntVar(&fv.journalQueue, "journal-queue", 0, "journal event queue size")
	fs.DurationVar(&fv.pendingTTL, "pending-ttl", 0, "expire pending orders older than this")
	fs.DurationVar(&fv.sweepInterval, "sweep-interval", 0, "expiry sweep interval")
	fs.StringVar(&fv.logLevel, "log-level", "", "log level")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	fv.fs = fs
	return fv, nil
}

func (fv *flagValues) apply(cfg *Config) {
	changed := fv.fs.Changed
	if changed("bot-token") {
		cfg.BotToken = fv.botToken
	}
	if changed("telegram-workers") {
		cfg.TelegramWorkers = fv.telegramWorkers
	}
	if changed("panel-url") {
		cfg.PanelBaseURL = fv.panelBaseURL
	}
	if changed("panel-timeout") {
		cfg.PanelRequestTimeout = fv.panelTimeout
	}
	if changed("operators") {
		cfg.OperatorIDs = fv.operatorIDs
	}
	if changed("admin-http") {
		cfg.AdminHTTPAddr = fv.adminHTTPAddr
	}
	if changed("admin-grpc") {
		cfg.AdminGRPCAddr = fv.adminGRPCAddr
	}
	if changed("redis-addr") {
		cfg.RedisAddr = fv.redisAddr
	}
	if changed("redis-db") {
		cfg.RedisDB = fv.redisDB
	}
	if changed("mysql-dsn") {
		cfg.MySQLDSN = fv.mysqlDSN
	}
	if changed("journal-workers") {
		cfg.JournalWorkers = fv.journalWorkers
	}
	if changed("journal-queue") {
		cfg.JournalQueueSize = fv.journalQueue
	}
	if changed("pending-ttl") {
		cfg.PendingTTL = fv.pendingTTL
	}
	if changed("sweep-interval") {
		cfg.SweepInterval = fv.sweepInterval
	}
	if changed("log-level") {
		cfg.LogLevel = fv.logLevel
	}
}
