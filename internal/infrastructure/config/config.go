package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App          AppConfig
	Database     DatabaseConfig
	Redis        RedisConfig
	JWT          JWTConfig
	Log          LogConfig
	HTTP         HTTPConfig
	OTP          OTPConfig
	Notification NotificationConfig
	Telemetry    TelemetryConfig
}

// LogConfig holds logging configuration
type LogConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
	Output string // stdout, stderr, or file path
}

// AppConfig holds application-specific settings
type AppConfig struct {
	Name string
	Env  string
	Port string
}

// IsProduction reports whether Env is prod or production
func (a AppConfig) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(a.Env))
	return env == "prod" || env == "production"
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int // in minutes
	ConnMaxIdleTime int // in minutes
	LogLevel        string
}

// RedisConfig holds Redis connection settings
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     int
	Password string
	DB       int
}

// Addr returns host:port
func (r RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

// JWTConfig holds JWT settings
type JWTConfig struct {
	Secret                 string
	AccessTokenExpiration  time.Duration
	RefreshTokenExpiration time.Duration
	Issuer                 string
	RefreshSecret          string
	MaxRefreshCount        int
}

// HTTPConfig holds HTTP server configuration
type HTTPConfig struct {
	ReadTimeout          time.Duration
	WriteTimeout         time.Duration
	IdleTimeout          time.Duration
	MaxHeaderBytes       int
	MaxBodySize          int64
	RateLimitEnabled     bool
	RateLimitRequests    int
	RateLimitWindow      time.Duration
	OTPRateLimitRequests int           // per client IP on OTP request/verify endpoints
	OTPRateLimitWindow   time.Duration // window for OTPRateLimitRequests
	CORSAllowOrigins     []string
	CORSAllowMethods     []string
	CORSAllowHeaders     []string
	TrustedProxies       []string
}

// OTPConfig holds one-time passcode settings
type OTPConfig struct {
	Secret             string
	HybridTTL          time.Duration
	EmailTTL           time.Duration
	MaxAttempts        int
	RateLimitWindow    time.Duration
	RateLimitThreshold int
	ResendWindow       time.Duration
	DeliveryTimeout    time.Duration
	LockTimeout        time.Duration
	TestBypassEnabled  bool
	TestCode           string
}

// NotificationConfig selects and configures the OTP delivery transports
type NotificationConfig struct {
	EmailDriver string // smtp, log
	SMTP        SMTPConfig
	SMSDriver   string // http, log
	SMS         SMSConfig
}

// SMTPConfig holds outgoing mail settings
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// SMSConfig holds the SMS gateway settings
type SMSConfig struct {
	BaseURL string
	APIKey  string
	Sender  string
	Timeout time.Duration
}

// TelemetryConfig holds OpenTelemetry metrics configuration
type TelemetryConfig struct {
	Enabled           bool
	CollectorEndpoint string // OTEL Collector gRPC endpoint (e.g., "localhost:4317")
	ServiceName       string
	Insecure          bool // Use insecure (non-TLS) connection (development only)
	ExportInterval    time.Duration
	SamplingRatio     float64 // 0 disables span sampling, 1 samples everything
}

// Load loads configuration from TOML file and environment variables
// Priority (highest to lowest):
// 1. Environment variables with MERCHANT_ prefix (e.g., MERCHANT_OTP_SECRET)
// 2. config.toml
// 3. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")
	v.AddConfigPath("/app")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
		// Config file not found is OK, we'll use defaults and env vars
	}

	return LoadFrom(v)
}

// LoadFrom builds the configuration from an already prepared viper instance
func LoadFrom(v *viper.Viper) (*Config, error) {
	v.SetEnvPrefix("MERCHANT")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	v.SetDefault("telemetry.sampling_ratio", 1.0)

	cfg := &Config{
		App: AppConfig{
			Name: v.GetString("app.name"),
			Env:  v.GetString("app.env"),
			Port: v.GetString("app.port"),
		},
		Database: DatabaseConfig{
			Host:            v.GetString("database.host"),
			Port:            v.GetInt("database.port"),
			User:            v.GetString("database.user"),
			Password:        v.GetString("database.password"),
			DBName:          v.GetString("database.dbname"),
			SSLMode:         v.GetString("database.sslmode"),
			MaxOpenConns:    v.GetInt("database.max_open_conns"),
			MaxIdleConns:    v.GetInt("database.max_idle_conns"),
			ConnMaxLifetime: v.GetInt("database.conn_max_lifetime"),
			ConnMaxIdleTime: v.GetInt("database.conn_max_idle_time"),
			LogLevel:        v.GetString("database.log_level"),
		},
		Redis: RedisConfig{
			Enabled:  v.GetBool("redis.enabled"),
			Host:     v.GetString("redis.host"),
			Port:     v.GetInt("redis.port"),
			Password: v.GetString("redis.password"),
			DB:       v.GetInt("redis.db"),
		},
		JWT: JWTConfig{
			Secret:                 v.GetString("jwt.secret"),
			AccessTokenExpiration:  v.GetDuration("jwt.access_token_expiration"),
			RefreshTokenExpiration: v.GetDuration("jwt.refresh_token_expiration"),
			Issuer:                 v.GetString("jwt.issuer"),
			RefreshSecret:          v.GetString("jwt.refresh_secret"),
			MaxRefreshCount:        v.GetInt("jwt.max_refresh_count"),
		},
		Log: LogConfig{
			Level:  v.GetString("log.level"),
			Format: v.GetString("log.format"),
			Output: v.GetString("log.output"),
		},
		HTTP: HTTPConfig{
			ReadTimeout:          v.GetDuration("http.read_timeout"),
			WriteTimeout:         v.GetDuration("http.write_timeout"),
			IdleTimeout:          v.GetDuration("http.idle_timeout"),
			MaxHeaderBytes:       v.GetInt("http.max_header_bytes"),
			MaxBodySize:          v.GetInt64("http.max_body_size"),
			RateLimitEnabled:     v.GetBool("http.rate_limit_enabled"),
			RateLimitRequests:    v.GetInt("http.rate_limit_requests"),
			RateLimitWindow:      v.GetDuration("http.rate_limit_window"),
			OTPRateLimitRequests: v.GetInt("http.otp_rate_limit_requests"),
			OTPRateLimitWindow:   v.GetDuration("http.otp_rate_limit_window"),
			CORSAllowOrigins:     v.GetStringSlice("http.cors_allow_origins"),
			CORSAllowMethods:     v.GetStringSlice("http.cors_allow_methods"),
			CORSAllowHeaders:     v.GetStringSlice("http.cors_allow_headers"),
			TrustedProxies:       v.GetStringSlice("http.trusted_proxies"),
		},
		OTP: OTPConfig{
			Secret:             v.GetString("otp.secret"),
			HybridTTL:          v.GetDuration("otp.hybrid_ttl"),
			EmailTTL:           v.GetDuration("otp.email_ttl"),
			MaxAttempts:        v.GetInt("otp.max_attempts"),
			RateLimitWindow:    v.GetDuration("otp.rate_limit_window"),
			RateLimitThreshold: v.GetInt("otp.rate_limit_threshold"),
			ResendWindow:       v.GetDuration("otp.resend_window"),
			DeliveryTimeout:    v.GetDuration("otp.delivery_timeout"),
			LockTimeout:        v.GetDuration("otp.lock_timeout"),
			TestBypassEnabled:  v.GetBool("otp.test_bypass_enabled"),
			TestCode:           v.GetString("otp.test_code"),
		},
		Notification: NotificationConfig{
			EmailDriver: v.GetString("notification.email_driver"),
			SMTP: SMTPConfig{
				Host:     v.GetString("notification.smtp.host"),
				Port:     v.GetInt("notification.smtp.port"),
				Username: v.GetString("notification.smtp.username"),
				Password: v.GetString("notification.smtp.password"),
				From:     v.GetString("notification.smtp.from"),
			},
			SMSDriver: v.GetString("notification.sms_driver"),
			SMS: SMSConfig{
				BaseURL: v.GetString("notification.sms.base_url"),
				APIKey:  v.GetString("notification.sms.api_key"),
				Sender:  v.GetString("notification.sms.sender"),
				Timeout: v.GetDuration("notification.sms.timeout"),
			},
		},
		Telemetry: TelemetryConfig{
			Enabled:           v.GetBool("telemetry.enabled"),
			CollectorEndpoint: v.GetString("telemetry.collector_endpoint"),
			ServiceName:       v.GetString("telemetry.service_name"),
			Insecure:          v.GetBool("telemetry.insecure"),
			ExportInterval:    v.GetDuration("telemetry.export_interval"),
			SamplingRatio:     v.GetFloat64("telemetry.sampling_ratio"),
		},
	}

	applyDefaults(cfg)

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// applyDefaults sets default values for any empty config fields
func applyDefaults(cfg *Config) {
	if cfg.App.Name == "" {
		cfg.App.Name = "merchant-backend"
	}
	if cfg.App.Env == "" {
		cfg.App.Env = "development"
	}
	if cfg.App.Port == "" {
		cfg.App.Port = "8080"
	}
	if cfg.Database.Host == "" {
		cfg.Database.Host = "localhost"
	}
	if cfg.Database.Port == 0 {
		cfg.Database.Port = 5432
	}
	if cfg.Database.User == "" {
		cfg.Database.User = "postgres"
	}
	if cfg.Database.DBName == "" {
		cfg.Database.DBName = "merchant"
	}
	if cfg.Database.SSLMode == "" {
		cfg.Database.SSLMode = "disable"
	}
	if cfg.Database.MaxOpenConns == 0 {
		cfg.Database.MaxOpenConns = 25
	}
	if cfg.Database.MaxIdleConns == 0 {
		cfg.Database.MaxIdleConns = 5
	}
	if cfg.Database.ConnMaxLifetime == 0 {
		cfg.Database.ConnMaxLifetime = 60
	}
	if cfg.Database.ConnMaxIdleTime == 0 {
		cfg.Database.ConnMaxIdleTime = 30
	}
	if cfg.Database.LogLevel == "" {
		cfg.Database.LogLevel = "warn"
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.JWT.AccessTokenExpiration == 0 {
		cfg.JWT.AccessTokenExpiration = 15 * time.Minute
	}
	if cfg.JWT.RefreshTokenExpiration == 0 {
		cfg.JWT.RefreshTokenExpiration = 168 * time.Hour
	}
	if cfg.JWT.Issuer == "" {
		cfg.JWT.Issuer = "merchant-backend"
	}
	if cfg.JWT.MaxRefreshCount == 0 {
		cfg.JWT.MaxRefreshCount = 10
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "console"
	}
	if cfg.Log.Output == "" {
		cfg.Log.Output = "stdout"
	}
	if cfg.HTTP.ReadTimeout == 0 {
		cfg.HTTP.ReadTimeout = 15 * time.Second
	}
	if cfg.HTTP.WriteTimeout == 0 {
		cfg.HTTP.WriteTimeout = 15 * time.Second
	}
	if cfg.HTTP.IdleTimeout == 0 {
		cfg.HTTP.IdleTimeout = 60 * time.Second
	}
	if cfg.HTTP.MaxHeaderBytes == 0 {
		cfg.HTTP.MaxHeaderBytes = 1 << 20 // 1MB
	}
	if cfg.HTTP.MaxBodySize == 0 {
		cfg.HTTP.MaxBodySize = 1 << 20 // 1MB
	}
	if cfg.HTTP.RateLimitRequests == 0 {
		cfg.HTTP.RateLimitRequests = 100
	}
	if cfg.HTTP.RateLimitWindow == 0 {
		cfg.HTTP.RateLimitWindow = time.Minute
	}
	if cfg.HTTP.OTPRateLimitRequests == 0 {
		cfg.HTTP.OTPRateLimitRequests = 10
	}
	if cfg.HTTP.OTPRateLimitWindow == 0 {
		cfg.HTTP.OTPRateLimitWindow = time.Minute
	}
	// CORS origins have no wildcard fallback: cross-origin calls stay blocked until configured.
	if len(cfg.HTTP.CORSAllowMethods) == 0 {
		cfg.HTTP.CORSAllowMethods = []string{"GET", "POST", "OPTIONS"}
	}
	if len(cfg.HTTP.CORSAllowHeaders) == 0 {
		cfg.HTTP.CORSAllowHeaders = []string{"Content-Type", "Authorization", "X-Request-ID"}
	}
	if cfg.OTP.HybridTTL == 0 {
		cfg.OTP.HybridTTL = 5 * time.Minute
	}
	if cfg.OTP.EmailTTL == 0 {
		cfg.OTP.EmailTTL = 10 * time.Minute
	}
	if cfg.OTP.MaxAttempts == 0 {
		cfg.OTP.MaxAttempts = 5
	}
	if cfg.OTP.RateLimitWindow == 0 {
		cfg.OTP.RateLimitWindow = 10 * time.Minute
	}
	if cfg.OTP.RateLimitThreshold == 0 {
		cfg.OTP.RateLimitThreshold = 3
	}
	if cfg.OTP.ResendWindow == 0 {
		cfg.OTP.ResendWindow = 10 * time.Minute
	}
	if cfg.OTP.DeliveryTimeout == 0 {
		cfg.OTP.DeliveryTimeout = 10 * time.Second
	}
	if cfg.OTP.LockTimeout == 0 {
		cfg.OTP.LockTimeout = 5 * time.Second
	}
	if cfg.OTP.TestCode == "" {
		cfg.OTP.TestCode = "123456"
	}
	if cfg.Notification.EmailDriver == "" {
		cfg.Notification.EmailDriver = "log"
	}
	if cfg.Notification.SMSDriver == "" {
		cfg.Notification.SMSDriver = "log"
	}
	if cfg.Notification.SMTP.Port == 0 {
		cfg.Notification.SMTP.Port = 587
	}
	if cfg.Notification.SMS.Timeout == 0 {
		cfg.Notification.SMS.Timeout = 10 * time.Second
	}
	if cfg.Telemetry.CollectorEndpoint == "" {
		cfg.Telemetry.CollectorEndpoint = "localhost:4317"
	}
	if cfg.Telemetry.ServiceName == "" {
		cfg.Telemetry.ServiceName = cfg.App.Name
	}
	if cfg.Telemetry.ExportInterval == 0 {
		cfg.Telemetry.ExportInterval = 60 * time.Second
	}
}

// validate performs validation on the configuration
func (c *Config) validate() error {
	if c.Database.MaxOpenConns <= 0 {
		return fmt.Errorf("database.max_open_conns must be positive")
	}
	if c.Database.MaxIdleConns < 0 {
		return fmt.Errorf("database.max_idle_conns cannot be negative")
	}
	if c.Database.MaxIdleConns > c.Database.MaxOpenConns {
		return fmt.Errorf("database.max_idle_conns (%d) cannot exceed database.max_open_conns (%d)",
			c.Database.MaxIdleConns, c.Database.MaxOpenConns)
	}
	if c.OTP.MaxAttempts <= 0 || c.OTP.RateLimitThreshold <= 0 {
		return fmt.Errorf("otp.max_attempts and otp.rate_limit_threshold must be positive")
	}
	if len(c.OTP.TestCode) != 6 {
		return fmt.Errorf("otp.test_code must be 6 digits")
	}
	switch c.Notification.EmailDriver {
	case "smtp", "log":
	default:
		return fmt.Errorf("notification.email_driver must be smtp or log, got %q", c.Notification.EmailDriver)
	}
	switch c.Notification.SMSDriver {
	case "http", "log":
	default:
		return fmt.Errorf("notification.sms_driver must be http or log, got %q", c.Notification.SMSDriver)
	}

	if c.App.IsProduction() {
		if c.OTP.TestBypassEnabled {
			return fmt.Errorf("otp.test_bypass_enabled must be false in production")
		}
		if len(c.OTP.Secret) < 32 {
			return fmt.Errorf("otp.secret must be at least 32 characters in production")
		}
		if len(c.JWT.Secret) < 32 {
			return fmt.Errorf("jwt.secret must be at least 32 characters in production")
		}
		if c.Database.Password == "" {
			return fmt.Errorf("database.password is required in production")
		}
		if c.Database.SSLMode == "disable" {
			return fmt.Errorf("database.sslmode cannot be 'disable' in production")
		}
		if c.Notification.EmailDriver == "log" || c.Notification.SMSDriver == "log" {
			return fmt.Errorf("log notification drivers cannot be used in production")
		}
		for _, origin := range c.HTTP.CORSAllowOrigins {
			if origin == "*" {
				return fmt.Errorf("cors_allow_origins cannot be '*' in production (use specific origins)")
			}
		}
	} else {
		if c.OTP.Secret == "" {
			return fmt.Errorf("otp.secret is required")
		}
		if c.JWT.Secret == "" {
			return fmt.Errorf("jwt.secret is required")
		}
	}

	return nil
}

// DSN returns the database connection string with properly escaped values
func (d *DatabaseConfig) DSN() string {
	u := url.URL{
		Scheme: "postgres",
		User:   url.UserPassword(d.User, d.Password),
		Host:   fmt.Sprintf("%s:%d", d.Host, d.Port),
		Path:   d.DBName,
	}
	q := u.Query()
	q.Set("sslmode", d.SSLMode)
	u.RawQuery = q.Encode()
	return u.String()
}
