package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	App          AppConfig
	DB           DBConfig
	Redis        RedisConfig
	Paystack     PaystackConfig
	Delivery     DeliveryConfig
	SMS          SMSConfig
	Admin        AdminConfig
	Monitor      MonitorConfig
	FeatureFlags FeatureFlagsConfig
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process(EnvPrefix, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}
	if err := cfg.DB.ensureDSN(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

type AppConfig struct {
	Env          string `envconfig:"ISELLDATA_APP_ENV" required:"true"`
	Port         string `envconfig:"ISELLDATA_APP_PORT" required:"true"`
	BaseURL      string `envconfig:"ISELLDATA_APP_BASE_URL" default:"https://iselldata.com"`
	LogLevel     string `envconfig:"ISELLDATA_LOG_LEVEL" default:"info"`
	LogWarnStack bool   `envconfig:"ISELLDATA_LOG_WARN_STACK" default:"false"`
}

func (a AppConfig) IsDev() bool {
	return strings.EqualFold(a.Env, AppEnvDev)
}

func (a AppConfig) IsProd() bool {
	return strings.EqualFold(a.Env, AppEnvProd)
}

// TrackingURL builds the customer-facing tracking link embedded in SMS messages.
func (a AppConfig) TrackingURL(trackingID string) string {
	return strings.TrimRight(a.BaseURL, "/") + "/track/" + trackingID
}

type DBConfig struct {
	DSN    string `envconfig:"ISELLDATA_DB_DSN"`
	Driver string `envconfig:"ISELLDATA_DB_DRIVER" default:"postgres"`

	LegacyHost     string `envconfig:"ISELLDATA_DB_HOST"`
	LegacyPort     int    `envconfig:"ISELLDATA_DB_PORT" default:"5432"`
	LegacyUser     string `envconfig:"ISELLDATA_DB_USER"`
	LegacyPassword string `envconfig:"ISELLDATA_DB_PASSWORD"`
	LegacyName     string `envconfig:"ISELLDATA_DB_NAME"`
	LegacySSLMode  string `envconfig:"ISELLDATA_DB_SSLMODE" default:"disable"`

	MaxOpenConns    int           `envconfig:"ISELLDATA_DB_MAX_OPEN_CONNS" default:"20"`
	MaxIdleConns    int           `envconfig:"ISELLDATA_DB_MAX_IDLE_CONNS" default:"10"`
	ConnMaxLifetime time.Duration `envconfig:"ISELLDATA_DB_CONN_MAX_LIFETIME" default:"1h"`
	ConnMaxIdleTime time.Duration `envconfig:"ISELLDATA_DB_CONN_MAX_IDLE_TIME" default:"10m"`
}

type RedisConfig struct {
	URL          string        `envconfig:"ISELLDATA_REDIS_URL" required:"true"`
	Address      string        `envconfig:"ISELLDATA_REDIS_ADDR"`
	Password     string        `envconfig:"ISELLDATA_REDIS_PASSWORD"`
	DB           int           `envconfig:"ISELLDATA_REDIS_DB" default:"0"`
	PoolSize     int           `envconfig:"ISELLDATA_REDIS_POOL_SIZE" default:"10"`
	MinIdleConns int           `envconfig:"ISELLDATA_REDIS_MIN_IDLE_CONNS" default:"2"`
	DialTimeout  time.Duration `envconfig:"ISELLDATA_REDIS_DIAL_TIMEOUT" default:"5s"`
	ReadTimeout  time.Duration `envconfig:"ISELLDATA_REDIS_READ_TIMEOUT" default:"5s"`
	WriteTimeout time.Duration `envconfig:"ISELLDATA_REDIS_WRITE_TIMEOUT" default:"5s"`
}

type PaystackConfig struct {
	BaseURL       string        `envconfig:"ISELLDATA_PAYSTACK_BASE_URL" default:"https://api.paystack.co"`
	SecretKey     string        `envconfig:"ISELLDATA_PAYSTACK_SECRET_KEY" required:"true"`
	WebhookSecret string        `envconfig:"ISELLDATA_PAYSTACK_WEBHOOK_SECRET"`
	VerifyTimeout time.Duration `envconfig:"ISELLDATA_PAYSTACK_VERIFY_TIMEOUT" default:"10s"`
}

// SigningSecret returns the secret used for webhook HMAC verification.
// Paystack signs webhooks with the account secret key unless a dedicated
// webhook secret is configured.
func (p PaystackConfig) SigningSecret() string {
	if s := strings.TrimSpace(p.WebhookSecret); s != "" {
		return s
	}
	return p.SecretKey
}

type DeliveryConfig struct {
	BaseURL         string        `envconfig:"ISELLDATA_DELIVERY_BASE_URL" required:"true"`
	APIKey          string        `envconfig:"ISELLDATA_DELIVERY_API_KEY" required:"true"`
	WebhookURL      string        `envconfig:"ISELLDATA_DELIVERY_WEBHOOK_URL"`
	BalanceTimeout  time.Duration `envconfig:"ISELLDATA_DELIVERY_BALANCE_TIMEOUT" default:"10s"`
	PurchaseTimeout time.Duration `envconfig:"ISELLDATA_DELIVERY_PURCHASE_TIMEOUT" default:"15s"`
}

type SMSConfig struct {
	BaseURL     string        `envconfig:"ISELLDATA_SMS_BASE_URL" required:"true"`
	APIKey      string        `envconfig:"ISELLDATA_SMS_API_KEY" required:"true"`
	SenderID    string        `envconfig:"ISELLDATA_SMS_SENDER_ID" default:"iSellData"`
	AdminPhone  string        `envconfig:"ISELLDATA_SMS_ADMIN_PHONE" required:"true"`
	SendTimeout time.Duration `envconfig:"ISELLDATA_SMS_SEND_TIMEOUT" default:"5s"`
}

type AdminConfig struct {
	APIKey string `envconfig:"ISELLDATA_ADMIN_API_KEY" required:"true"`
}

type MonitorConfig struct {
	Window time.Duration `envconfig:"ISELLDATA_MONITOR_WINDOW" default:"24h"`
}

type FeatureFlagsConfig struct {
	UseSQLite   bool `envconfig:"ISELLDATA_USE_SQLITE" default:"false"`
	AutoMigrate bool `envconfig:"ISELLDATA_AUTO_MIGRATE" default:"false"`
}

func (db *DBConfig) ensureDSN() error {
	if db.DSN != "" {
		return nil
	}

	missing := []string{}
	legacyValues := map[string]string{
		EnvDBHost: db.LegacyHost,
		EnvDBUser: db.LegacyUser,
		EnvDBName: db.LegacyName,
	}
	for _, env := range legacyDBEnvVars {
		if legacyValues[env] == "" {
			missing = append(missing, env)
		}
	}

	if len(missing) > 0 {
		return fmt.Errorf("either %s or %s are required", EnvDBDSN, strings.Join(missing, ", "))
	}

	userInfo := url.User(db.LegacyUser)
	if db.LegacyPassword != "" {
		userInfo = url.UserPassword(db.LegacyUser, db.LegacyPassword)
	}

	u := &url.URL{
		Scheme: "postgres",
		User:   userInfo,
		Host:   fmt.Sprintf("%s:%d", db.LegacyHost, db.LegacyPort),
		Path:   db.LegacyName,
	}

	if db.LegacySSLMode != "" {
		q := u.Query()
		q.Set("sslmode", db.LegacySSLMode)
		u.RawQuery = q.Encode()
	}

	db.DSN = u.String()
	return nil
}
