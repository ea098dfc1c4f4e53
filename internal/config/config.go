package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	Server     ServerConfig
	DB         DBConfig
	JWT        JWTConfig
	Auth       AuthConfig
	S3         S3Config
	Source     SourceConfig
	Log        LogConfig
	CORS       CORSConfig
	Audit      AuditConfig
	Normalizer NormalizerConfig
	Email      EmailConfig
	Webhook    WebhookConfig
	Watch      WatchConfig
}

// WebhookConfig holds JSON webhook targets for alerts and run summaries.
type WebhookConfig struct {
	AlertURL    string        `mapstructure:"alert_url"`
	SummaryURL  string        `mapstructure:"summary_url"`
	Timeout     time.Duration `mapstructure:"timeout"`
	MaxAttempts int           `mapstructure:"max_attempts"`
	Backoff     time.Duration `mapstructure:"backoff"`
}

// Enabled reports whether any webhook target is configured.
func (w WebhookConfig) Enabled() bool {
	return w.AlertURL != "" || w.SummaryURL != ""
}

// EmailConfig holds audit summary email settings.
type EmailConfig struct {
	Provider     string   `mapstructure:"provider"`
	Region       string   `mapstructure:"region"`
	FromAddress  string   `mapstructure:"from_address"`
	FromName     string   `mapstructure:"from_name"`
	Recipients   []string `mapstructure:"recipients"`
	DashboardURL string   `mapstructure:"dashboard_url"`
}

// CORSConfig holds CORS settings.
type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port          string        `mapstructure:"port"`
	ReadTimeout   time.Duration `mapstructure:"read_timeout"`
	WriteTimeout  time.Duration `mapstructure:"write_timeout"`
	Environment   string        `mapstructure:"environment"`
	MaxUploadMB   int64         `mapstructure:"max_upload_mb"`
	ShutdownGrace time.Duration `mapstructure:"shutdown_grace"`
}

// DBConfig holds audit store settings. Driver is "postgres" or "sqlite".
type DBConfig struct {
	Driver     string `mapstructure:"driver"`
	Host       string `mapstructure:"host"`
	Port       int    `mapstructure:"port"`
	User       string `mapstructure:"user"`
	Password   string `mapstructure:"password"`
	Name       string `mapstructure:"name"`
	SSLMode    string `mapstructure:"sslmode"`
	MaxOpen    int    `mapstructure:"max_open"`
	MaxIdle    int    `mapstructure:"max_idle"`
	SQLitePath string `mapstructure:"sqlite_path"`
}

// DSN returns the PostgreSQL connection string.
func (d *DBConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.Name, d.SSLMode,
	)
}

// JWTConfig holds JWT signing and expiry settings.
type JWTConfig struct {
	Secret            string        `mapstructure:"secret"`
	AccessTokenExpiry time.Duration `mapstructure:"access_expiry"`
	Issuer            string        `mapstructure:"issuer"`
}

// AuthConfig holds API client credentials as client id to bcrypt hash.
type AuthConfig struct {
	Clients map[string]string
}

// S3Config holds AWS S3 settings.
type S3Config struct {
	Region        string `mapstructure:"region"`
	Bucket        string `mapstructure:"bucket"`
	Endpoint      string `mapstructure:"endpoint"`
	AccessKey     string `mapstructure:"access_key"`
	SecretKey     string `mapstructure:"secret_key"`
	PresignExpiry int64  `mapstructure:"presign_expiry"`
	ArchivePrefix string `mapstructure:"archive_prefix"`
	Archive       bool   `mapstructure:"archive"`
}

// SourceConfig selects where order exports are read from.
type SourceConfig struct {
	Provider   string `mapstructure:"provider"`
	LocalRoot  string `mapstructure:"local_root"`
	NameFilter string `mapstructure:"name_filter"`
}

// LogConfig holds logging settings.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// AuditConfig holds pipeline settings.
type AuditConfig struct {
	Workers               int      `mapstructure:"workers"`
	RulesFile             string   `mapstructure:"rules_file"`
	AlertFailureThreshold float64  `mapstructure:"alert_failure_threshold"`
	DefaultFolderIDs      []string `mapstructure:"default_folder_ids"`
	HistoryLimit          int      `mapstructure:"history_limit"`
}

// NormalizerConfig holds the header alias sets used to read exports.
type NormalizerConfig struct {
	IDAliases         []string `mapstructure:"id_aliases"`
	StatusAliases     []string `mapstructure:"status_aliases"`
	ReasonAliases     []string `mapstructure:"reason_aliases"`
	SignedDateAliases []string `mapstructure:"signed_date_aliases"`
	SentDateAliases   []string `mapstructure:"sent_date_aliases"`
	AnnotationColumns []string `mapstructure:"annotation_columns"`
}

// WatchConfig holds the local folder watcher settings.
type WatchConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Debounce time.Duration `mapstructure:"debounce"`
}

// Load reads configuration from environment variables with the ORDERAUDIT_ prefix.
func Load() (*Config, error) {
	v := viper.New()
	v.SetEnvPrefix("ORDERAUDIT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Server defaults
	v.SetDefault("server.port", ":8080")
	v.SetDefault("server.read_timeout", "30s")
	v.SetDefault("server.write_timeout", "120s")
	v.SetDefault("server.environment", "development")
	v.SetDefault("server.max_upload_mb", 25)
	v.SetDefault("server.shutdown_grace", "10s")

	// DB defaults
	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", 5432)
	v.SetDefault("db.user", "orderaudit")
	v.SetDefault("db.password", "orderaudit_secret")
	v.SetDefault("db.name", "orderaudit_db")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.max_open", 25)
	v.SetDefault("db.max_idle", 10)
	v.SetDefault("db.sqlite_path", "audit_history.db")

	// JWT defaults
	v.SetDefault("jwt.secret", "change-me-in-production")
	v.SetDefault("jwt.access_expiry", "1h")
	v.SetDefault("jwt.issuer", "orderaudit")

	v.SetDefault("auth.clients", "")

	// S3 defaults
	v.SetDefault("s3.region", "us-east-1")
	v.SetDefault("s3.bucket", "orderaudit-exports")
	v.SetDefault("s3.endpoint", "")
	v.SetDefault("s3.presign_expiry", 3600)
	v.SetDefault("s3.archive_prefix", "audit-records")
	v.SetDefault("s3.archive", false)

	// Source defaults
	v.SetDefault("source.provider", "local")
	v.SetDefault("source.local_root", "exports")
	v.SetDefault("source.name_filter", "OrderTemplate")

	// Log defaults
	v.SetDefault("log.level", "debug")
	v.SetDefault("log.format", "console")

	v.SetDefault("cors.allowed_origins", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173")

	// Audit defaults
	v.SetDefault("audit.workers", 4)
	v.SetDefault("audit.rules_file", "")
	v.SetDefault("audit.alert_failure_threshold", 50.0)
	v.SetDefault("audit.default_folder_ids", "")
	v.SetDefault("audit.history_limit", 25)

	// Normalizer defaults
	v.SetDefault("normalizer.id_aliases", "order_id,orderid,id,order number,order #,document id")
	v.SetDefault("normalizer.status_aliases", "status,order status,signature status,signed by physician status")
	v.SetDefault("normalizer.reason_aliases", "remarks,remark,reason,failure reason")
	v.SetDefault("normalizer.signed_date_aliases", "signed by physician date,signed date,signature date")
	v.SetDefault("normalizer.sent_date_aliases", "sent to physician date,sent date")
	v.SetDefault("normalizer.annotation_columns",
		"sent to physician status,wav document upload status,signed by physician status,uploaded signed order status,order upload status")

	// Email defaults
	v.SetDefault("email.provider", "noop")
	v.SetDefault("email.region", "us-east-1")
	v.SetDefault("email.from_address", "audits@orderaudit.local")
	v.SetDefault("email.from_name", "Order Audit")
	v.SetDefault("email.recipients", "")
	v.SetDefault("email.dashboard_url", "http://localhost:3000")

	// Webhook defaults
	v.SetDefault("webhook.alert_url", "")
	v.SetDefault("webhook.summary_url", "")
	v.SetDefault("webhook.timeout", "10s")
	v.SetDefault("webhook.max_attempts", 3)
	v.SetDefault("webhook.backoff", "1s")

	// Watch defaults
	v.SetDefault("watch.enabled", false)
	v.SetDefault("watch.debounce", "5s")

	// Bind environment variables explicitly for nested keys
	envBindings := map[string]string{
		"server.port":                     "ORDERAUDIT_SERVER_PORT",
		"server.read_timeout":             "ORDERAUDIT_SERVER_READ_TIMEOUT",
		"server.write_timeout":            "ORDERAUDIT_SERVER_WRITE_TIMEOUT",
		"server.environment":              "ORDERAUDIT_SERVER_ENVIRONMENT",
		"server.max_upload_mb":            "ORDERAUDIT_SERVER_MAX_UPLOAD_MB",
		"server.shutdown_grace":           "ORDERAUDIT_SERVER_SHUTDOWN_GRACE",
		"db.driver":                       "ORDERAUDIT_DB_DRIVER",
		"db.host":                         "ORDERAUDIT_DB_HOST",
		"db.port":                         "ORDERAUDIT_DB_PORT",
		"db.user":                         "ORDERAUDIT_DB_USER",
		"db.password":                     "ORDERAUDIT_DB_PASSWORD",
		"db.name":                         "ORDERAUDIT_DB_NAME",
		"db.sslmode":                      "ORDERAUDIT_DB_SSLMODE",
		"db.max_open":                     "ORDERAUDIT_DB_MAX_OPEN",
		"db.max_idle":                     "ORDERAUDIT_DB_MAX_IDLE",
		"db.sqlite_path":                  "ORDERAUDIT_DB_SQLITE_PATH",
		"jwt.secret":                      "ORDERAUDIT_JWT_SECRET",
		"jwt.access_expiry":               "ORDERAUDIT_JWT_ACCESS_EXPIRY",
		"jwt.issuer":                      "ORDERAUDIT_JWT_ISSUER",
		"auth.clients":                    "ORDERAUDIT_AUTH_CLIENTS",
		"s3.region":                       "ORDERAUDIT_S3_REGION",
		"s3.bucket":                       "ORDERAUDIT_S3_BUCKET",
		"s3.endpoint":                     "ORDERAUDIT_S3_ENDPOINT",
		"s3.access_key":                   "ORDERAUDIT_S3_ACCESS_KEY",
		"s3.secret_key":                   "ORDERAUDIT_S3_SECRET_KEY",
		"s3.presign_expiry":               "ORDERAUDIT_S3_PRESIGN_EXPIRY",
		"s3.archive_prefix":               "ORDERAUDIT_S3_ARCHIVE_PREFIX",
		"s3.archive":                      "ORDERAUDIT_S3_ARCHIVE",
		"source.provider":                 "ORDERAUDIT_SOURCE_PROVIDER",
		"source.local_root":               "ORDERAUDIT_SOURCE_LOCAL_ROOT",
		"source.name_filter":              "ORDERAUDIT_SOURCE_NAME_FILTER",
		"log.level":                       "ORDERAUDIT_LOG_LEVEL",
		"log.format":                      "ORDERAUDIT_LOG_FORMAT",
		"cors.allowed_origins":            "ORDERAUDIT_CORS_ALLOWED_ORIGINS",
		"audit.workers":                   "ORDERAUDIT_AUDIT_WORKERS",
		"audit.rules_file":                "ORDERAUDIT_AUDIT_RULES_FILE",
		"audit.alert_failure_threshold":   "ORDERAUDIT_AUDIT_ALERT_FAILURE_THRESHOLD",
		"audit.default_folder_ids":        "ORDERAUDIT_AUDIT_DEFAULT_FOLDER_IDS",
		"audit.history_limit":             "ORDERAUDIT_AUDIT_HISTORY_LIMIT",
		"normalizer.id_aliases":           "ORDERAUDIT_NORMALIZER_ID_ALIASES",
		"normalizer.status_aliases":       "ORDERAUDIT_NORMALIZER_STATUS_ALIASES",
		"normalizer.reason_aliases":       "ORDERAUDIT_NORMALIZER_REASON_ALIASES",
		"normalizer.signed_date_aliases":  "ORDERAUDIT_NORMALIZER_SIGNED_DATE_ALIASES",
		"normalizer.sent_date_aliases":    "ORDERAUDIT_NORMALIZER_SENT_DATE_ALIASES",
		"normalizer.annotation_columns":   "ORDERAUDIT_NORMALIZER_ANNOTATION_COLUMNS",
		"email.provider":                  "ORDERAUDIT_EMAIL_PROVIDER",
		"email.region":                    "ORDERAUDIT_EMAIL_REGION",
		"email.from_address":              "ORDERAUDIT_EMAIL_FROM_ADDRESS",
		"email.from_name":                 "ORDERAUDIT_EMAIL_FROM_NAME",
		"email.recipients":                "ORDERAUDIT_EMAIL_RECIPIENTS",
		"email.dashboard_url":             "ORDERAUDIT_EMAIL_DASHBOARD_URL",
		"webhook.alert_url":               "ORDERAUDIT_WEBHOOK_ALERT_URL",
		"webhook.summary_url":             "ORDERAUDIT_WEBHOOK_SUMMARY_URL",
		"webhook.timeout":                 "ORDERAUDIT_WEBHOOK_TIMEOUT",
		"webhook.max_attempts":            "ORDERAUDIT_WEBHOOK_MAX_ATTEMPTS",
		"webhook.backoff":                 "ORDERAUDIT_WEBHOOK_BACKOFF",
		"watch.enabled":                   "ORDERAUDIT_WATCH_ENABLED",
		"watch.debounce":                  "ORDERAUDIT_WATCH_DEBOUNCE",
	}
	for key, env := range envBindings {
		_ = v.BindEnv(key, env)
	}

	cfg := &Config{}

	// Hosting platforms set a PORT env var. Use it if ORDERAUDIT_SERVER_PORT is not explicitly set.
	serverPort := v.GetString("server.port")
	if port := os.Getenv("PORT"); port != "" && os.Getenv("ORDERAUDIT_SERVER_PORT") == "" {
		serverPort = ":" + port
	}

	cfg.Server = ServerConfig{
		Port:          serverPort,
		ReadTimeout:   v.GetDuration("server.read_timeout"),
		WriteTimeout:  v.GetDuration("server.write_timeout"),
		Environment:   v.GetString("server.environment"),
		MaxUploadMB:   v.GetInt64("server.max_upload_mb"),
		ShutdownGrace: v.GetDuration("server.shutdown_grace"),
	}
	cfg.DB = DBConfig{
		Driver:     strings.ToLower(v.GetString("db.driver")),
		Host:       v.GetString("db.host"),
		Port:       v.GetInt("db.port"),
		User:       v.GetString("db.user"),
		Password:   v.GetString("db.password"),
		Name:       v.GetString("db.name"),
		SSLMode:    v.GetString("db.sslmode"),
		MaxOpen:    v.GetInt("db.max_open"),
		MaxIdle:    v.GetInt("db.max_idle"),
		SQLitePath: v.GetString("db.sqlite_path"),
	}
	if cfg.DB.Driver != "postgres" && cfg.DB.Driver != "sqlite" {
		return nil, fmt.Errorf("unsupported db driver %q", cfg.DB.Driver)
	}
	cfg.JWT = JWTConfig{
		Secret:            v.GetString("jwt.secret"),
		AccessTokenExpiry: v.GetDuration("jwt.access_expiry"),
		Issuer:            v.GetString("jwt.issuer"),
	}

	clients, err := parseClients(v.GetString("auth.clients"))
	if err != nil {
		return nil, err
	}
	cfg.Auth = AuthConfig{Clients: clients}

	cfg.S3 = S3Config{
		Region:        v.GetString("s3.region"),
		Bucket:        v.GetString("s3.bucket"),
		Endpoint:      v.GetString("s3.endpoint"),
		AccessKey:     v.GetString("s3.access_key"),
		SecretKey:     v.GetString("s3.secret_key"),
		PresignExpiry: v.GetInt64("s3.presign_expiry"),
		ArchivePrefix: v.GetString("s3.archive_prefix"),
		Archive:       v.GetBool("s3.archive"),
	}
	cfg.Source = SourceConfig{
		Provider:   strings.ToLower(v.GetString("source.provider")),
		LocalRoot:  v.GetString("source.local_root"),
		NameFilter: v.GetString("source.name_filter"),
	}
	if cfg.Source.Provider != "local" && cfg.Source.Provider != "s3" {
		return nil, fmt.Errorf("unsupported source provider %q", cfg.Source.Provider)
	}
	cfg.Log = LogConfig{
		Level:  v.GetString("log.level"),
		Format: v.GetString("log.format"),
	}
	cfg.CORS = CORSConfig{
		AllowedOrigins: splitList(v.GetString("cors.allowed_origins")),
	}

	cfg.Audit = AuditConfig{
		Workers:               v.GetInt("audit.workers"),
		RulesFile:             v.GetString("audit.rules_file"),
		AlertFailureThreshold: v.GetFloat64("audit.alert_failure_threshold"),
		DefaultFolderIDs:      splitList(v.GetString("audit.default_folder_ids")),
		HistoryLimit:          v.GetInt("audit.history_limit"),
	}
	if cfg.Audit.Workers < 1 {
		cfg.Audit.Workers = 1
	}

	cfg.Normalizer = NormalizerConfig{
		IDAliases:         splitList(v.GetString("normalizer.id_aliases")),
		StatusAliases:     splitList(v.GetString("normalizer.status_aliases")),
		ReasonAliases:     splitList(v.GetString("normalizer.reason_aliases")),
		SignedDateAliases: splitList(v.GetString("normalizer.signed_date_aliases")),
		SentDateAliases:   splitList(v.GetString("normalizer.sent_date_aliases")),
		AnnotationColumns: splitList(v.GetString("normalizer.annotation_columns")),
	}

	cfg.Email = EmailConfig{
		Provider:     v.GetString("email.provider"),
		Region:       v.GetString("email.region"),
		FromAddress:  v.GetString("email.from_address"),
		FromName:     v.GetString("email.from_name"),
		Recipients:   splitList(v.GetString("email.recipients")),
		DashboardURL: v.GetString("email.dashboard_url"),
	}

	cfg.Webhook = WebhookConfig{
		AlertURL:    v.GetString("webhook.alert_url"),
		SummaryURL:  v.GetString("webhook.summary_url"),
		Timeout:     v.GetDuration("webhook.timeout"),
		MaxAttempts: v.GetInt("webhook.max_attempts"),
		Backoff:     v.GetDuration("webhook.backoff"),
	}
	if cfg.Webhook.MaxAttempts < 1 {
		cfg.Webhook.MaxAttempts = 1
	}

	cfg.Watch = WatchConfig{
		Enabled:  v.GetBool("watch.enabled"),
		Debounce: v.GetDuration("watch.debounce"),
	}

	return cfg, nil
}

// splitList parses a comma-separated setting, dropping blanks.
func splitList(raw string) []string {
	var out []string
	for _, item := range strings.Split(raw, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			out = append(out, item)
		}
	}
	return out
}

// parseClients reads "id:hash,id:hash". Bcrypt hashes contain no commas.
func parseClients(raw string) (map[string]string, error) {
	clients := make(map[string]string)
	for _, entry := range splitList(raw) {
		id, hash, ok := strings.Cut(entry, ":")
		id = strings.TrimSpace(id)
		if !ok || id == "" || strings.TrimSpace(hash) == "" {
			return nil, fmt.Errorf("invalid auth client entry %q; expected id:bcrypt-hash", entry)
		}
		clients[id] = strings.TrimSpace(hash)
	}
	return clients, nil
}
