package config

import "time"

// Config is the main application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Database     DatabaseConfig     `mapstructure:"database"`
	Redis        RedisConfig        `mapstructure:"redis"`
	Auth         AuthConfig         `mapstructure:"auth"`
	CORS         CORSConfig         `mapstructure:"cors"`
	RateLimit    RateLimitConfig    `mapstructure:"rate_limit"`
	Logging      LoggingConfig      `mapstructure:"logging"`
	Uploads      UploadsConfig      `mapstructure:"uploads"`
	Scheduler    SchedulerConfig    `mapstructure:"scheduler"`
	Integrations IntegrationsConfig `mapstructure:"integrations"`
}

type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	Port        string `mapstructure:"port"`
	// BaseURL is the public site URL used in sitemaps and emails.
	BaseURL string `mapstructure:"base_url"`
}

// IsDevelopment reports whether the app runs with development defaults.
func (a AppConfig) IsDevelopment() bool {
	return a.Environment == "" || a.Environment == "development" || a.Environment == "test"
}

type DatabaseConfig struct {
	// Driver is "postgres" or "sqlite".
	Driver          string `mapstructure:"driver"`
	URL             string `mapstructure:"url"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"` // minutes
}

type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Address  string `mapstructure:"address"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type AuthConfig struct {
	JWTSecret      string `mapstructure:"jwt_secret"`
	JWTExpiryHours int    `mapstructure:"jwt_expiry_hours"`
	BcryptCost     int    `mapstructure:"bcrypt_cost"`
	CookieSecure   bool   `mapstructure:"cookie_secure"`
}

// TokenTTL returns the JWT lifetime.
func (a AuthConfig) TokenTTL() time.Duration {
	return time.Duration(a.JWTExpiryHours) * time.Hour
}

type CORSConfig struct {
	AllowOrigins []string `mapstructure:"allow_origins"`
}

type RateLimitConfig struct {
	Enabled       bool `mapstructure:"enabled"`
	Requests      int  `mapstructure:"requests"`
	WindowSeconds int  `mapstructure:"window_seconds"`
}

type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

type UploadsConfig struct {
	Dir        string `mapstructure:"dir"`
	PublicPath string `mapstructure:"public_path"`
	MaxBytes   int64  `mapstructure:"max_bytes"`
}

type SchedulerConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	DealExpiryCron string `mapstructure:"deal_expiry_cron"`
}

type IntegrationsConfig struct {
	Nominatim     NominatimConfig     `mapstructure:"nominatim"`
	Google        GoogleConfig        `mapstructure:"google"`
	Sirene        SireneConfig        `mapstructure:"sirene"`
	AWS           AWSConfig           `mapstructure:"aws"`
	Twilio        TwilioConfig        `mapstructure:"twilio"`
	Stripe        StripeConfig        `mapstructure:"stripe"`
	Elasticsearch ElasticsearchConfig `mapstructure:"elasticsearch"`
}

type NominatimConfig struct {
	BaseURL   string `mapstructure:"base_url"`
	UserAgent string `mapstructure:"user_agent"`
}

type GoogleConfig struct {
	GeocodingURL string `mapstructure:"geocoding_url"`
	APIKey       string `mapstructure:"api_key"`
}

type SireneConfig struct {
	BaseURL        string `mapstructure:"base_url"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
}

type AWSConfig struct {
	Region string    `mapstructure:"region"`
	SES    SESConfig `mapstructure:"ses"`
}

type SESConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	FromEmail string `mapstructure:"from_email"`
}

type TwilioConfig struct {
	Enabled    bool   `mapstructure:"enabled"`
	AccountSID string `mapstructure:"account_sid"`
	AuthToken  string `mapstructure:"auth_token"`
	FromNumber string `mapstructure:"from_number"`
}

type StripeConfig struct {
	SecretKey     string `mapstructure:"secret_key"`
	WebhookSecret string `mapstructure:"webhook_secret"`
}

type ElasticsearchConfig struct {
	Addresses []string `mapstructure:"addresses"`
	Username  string   `mapstructure:"username"`
	Password  string   `mapstructure:"password"`
	Index     string   `mapstructure:"index"`
}

// Enabled reports whether a search cluster is configured.
func (e ElasticsearchConfig) Enabled() bool {
	return len(e.Addresses) > 0 && e.Addresses[0] != ""
}
