package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

var defaults = map[string]interface{}{
	"app.name":                                "envie2sortir",
	"app.environment":                         "development",
	"app.port":                                "8080",
	"app.base_url":                            "http://localhost:3000",
	"database.driver":                         "postgres",
	"database.url":                            "",
	"database.max_open_conns":                 25,
	"database.max_idle_conns":                 10,
	"database.conn_max_lifetime":              5,
	"redis.enabled":                           false,
	"redis.address":                           "localhost:6379",
	"redis.password":                          "",
	"redis.db":                                0,
	"auth.jwt_secret":                         "",
	"auth.jwt_expiry_hours":                   24,
	"auth.bcrypt_cost":                        12,
	"auth.cookie_secure":                      true,
	"cors.allow_origins":                      []string{"http://localhost:3000"},
	"rate_limit.enabled":                      true,
	"rate_limit.requests":                     30,
	"rate_limit.window_seconds":               60,
	"logging.level":                           "info",
	"logging.format":                          "console",
	"uploads.dir":                             "./uploads",
	"uploads.public_path":                     "/uploads",
	"uploads.max_bytes":                       5 << 20,
	"scheduler.enabled":                       true,
	"scheduler.deal_expiry_cron":              "0 3 * * *",
	"integrations.nominatim.base_url":         "https://nominatim.openstreetmap.org",
	"integrations.nominatim.user_agent":       "envie2sortir/1.0",
	"integrations.google.geocoding_url":       "https://maps.googleapis.com/maps/api/geocode/json",
	"integrations.google.api_key":             "",
	"integrations.sirene.base_url":            "https://recherche-entreprises.api.gouv.fr",
	"integrations.sirene.timeout_seconds":     10,
	"integrations.aws.region":                 "eu-west-3",
	"integrations.aws.ses.enabled":            false,
	"integrations.aws.ses.from_email":         "noreply@envie2sortir.fr",
	"integrations.twilio.enabled":             false,
	"integrations.twilio.account_sid":         "",
	"integrations.twilio.auth_token":          "",
	"integrations.twilio.from_number":         "",
	"integrations.stripe.secret_key":          "",
	"integrations.stripe.webhook_secret":      "",
	"integrations.elasticsearch.addresses":    []string{},
	"integrations.elasticsearch.username":     "",
	"integrations.elasticsearch.password":     "",
	"integrations.elasticsearch.index":        "establishments",
}

// Load reads config.yaml (plus config.<env>.yaml) and environment overrides.
func Load() (*Config, error) {
	loadEnvFile()
	return LoadFrom(viper.New(), "./configs", ".")
}

// LoadFrom reads configuration with the given viper instance and search paths.
func LoadFrom(v *viper.Viper, paths ...string) (*Config, error) {
	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	for _, p := range paths {
		v.AddConfigPath(p)
	}

	// DATABASE_URL overrides database.url, and so on
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading base config: %w", err)
		}
	}

	env := v.GetString("app.environment")
	v.SetConfigName("config." + env)
	_ = v.MergeInConfig()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	overrideFromLegacyEnv(&cfg)
	applyDefaults(&cfg)

	if err := validateConfig(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func loadEnvFile() {
	possiblePaths := []string{".env", "../.env", "../../.env"}
	if rootDir := findProjectRoot(); rootDir != "" {
		possiblePaths = append(possiblePaths, filepath.Join(rootDir, ".env"))
	}

	for _, path := range possiblePaths {
		if _, err := os.Stat(path); err == nil {
			if err := godotenv.Load(path); err == nil {
				return
			}
		}
	}
}

func findProjectRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}

// overrideFromLegacyEnv honours the short variable names used by existing deployments.
func overrideFromLegacyEnv(cfg *Config) {
	if val := os.Getenv("PORT"); val != "" {
		cfg.App.Port = val
	}
	if val := os.Getenv("DB_URL"); val != "" && cfg.Database.URL == "" {
		cfg.Database.URL = val
	}
	if val := os.Getenv("JWT_SECRET"); val != "" && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = val
	}
	if val := os.Getenv("TWILIO_ACCOUNT_SID"); val != "" && cfg.Integrations.Twilio.AccountSID == "" {
		cfg.Integrations.Twilio.AccountSID = val
	}
	if val := os.Getenv("TWILIO_AUTH_TOKEN"); val != "" && cfg.Integrations.Twilio.AuthToken == "" {
		cfg.Integrations.Twilio.AuthToken = val
	}
	if val := os.Getenv("TWILIO_PHONE_NUMBER"); val != "" && cfg.Integrations.Twilio.FromNumber == "" {
		cfg.Integrations.Twilio.FromNumber = val
	}
	if val := os.Getenv("GOOGLE_MAPS_API_KEY"); val != "" && cfg.Integrations.Google.APIKey == "" {
		cfg.Integrations.Google.APIKey = val
	}
}

func applyDefaults(cfg *Config) {
	if cfg.Auth.JWTExpiryHours <= 0 {
		cfg.Auth.JWTExpiryHours = 24
	}
	if cfg.Auth.BcryptCost < 4 {
		cfg.Auth.BcryptCost = 12
	}
	if cfg.RateLimit.Requests <= 0 {
		cfg.RateLimit.Requests = 30
	}
	if cfg.RateLimit.WindowSeconds <= 0 {
		cfg.RateLimit.WindowSeconds = 60
	}
	if cfg.Uploads.MaxBytes <= 0 {
		cfg.Uploads.MaxBytes = 5 << 20
	}
	if cfg.Integrations.Elasticsearch.Index == "" {
		cfg.Integrations.Elasticsearch.Index = "establishments"
	}
	if cfg.App.IsDevelopment() && cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = "dev-secret-change-me"
	}
	if cfg.App.IsDevelopment() && cfg.Database.URL == "" {
		cfg.Database.Driver = "sqlite"
		cfg.Database.URL = "envie2sortir.db"
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Auth.JWTSecret == "" {
		return errors.New("auth.jwt_secret is required")
	}
	switch cfg.Database.Driver {
	case "postgres", "sqlite":
	default:
		return fmt.Errorf("unsupported database driver %q", cfg.Database.Driver)
	}
	if cfg.Database.URL == "" {
		return errors.New("database.url is required")
	}
	if cfg.Integrations.AWS.SES.Enabled && cfg.Integrations.AWS.SES.FromEmail == "" {
		return errors.New("integrations.aws.ses.from_email is required when SES is enabled")
	}
	if cfg.Integrations.Twilio.Enabled && (cfg.Integrations.Twilio.AccountSID == "" || cfg.Integrations.Twilio.AuthToken == "") {
		return errors.New("twilio credentials are required when twilio is enabled")
	}
	return nil
}
