package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"envie2sortir-backend/config"
	"envie2sortir-backend/logger"
	"envie2sortir-backend/utils"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"gorm.io/gorm"
)

var (
	configPath string
	verbose    bool
	timeout    time.Duration
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "e2s-admin",
	Short: "Maintenance tasks for the Envie2Sortir backend",
	Long: `Maintenance tasks run against the configured database.

Available commands:
  migrate          - Run schema migrations
  fix-coordinates  - Geocode establishments with missing or out-of-France coordinates
  seed             - Insert professionals and establishments from a YAML file
  verify-sirets    - Re-run the SIRET lookup for unverified professionals
  reset-password   - Set a new password for a user or professional`,
	SilenceUsage: true,
}

// env is what every command needs once configuration is loaded.
type env struct {
	cfg   *config.Config
	db    *gorm.DB
	redis *redis.Client
}

func bootstrap(ctx context.Context) (*env, error) {
	var (
		cfg *config.Config
		err error
	)
	if configPath != "" {
		cfg, err = config.LoadFrom(viper.New(), configPath)
	} else {
		cfg, err = config.Load()
	}
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	level := cfg.Logging.Level
	if verbose {
		level = "debug"
	}
	logger.SetDefault(logger.NewStructured(level, "console"))
	utils.ConfigureAuth(cfg.Auth.JWTSecret, cfg.Auth.TokenTTL(), cfg.Auth.BcryptCost)

	db, err := config.ConnectDB(cfg.Database)
	if err != nil {
		return nil, err
	}

	rdb, err := config.ConnectRedis(ctx, cfg.Redis)
	if err != nil {
		logger.L().Warn("redis unavailable, lookups will not be cached", map[string]interface{}{"error": err})
		rdb = nil
	}

	return &env{cfg: cfg, db: db, redis: rdb}, nil
}

// commandContext bounds a command by the --timeout flag.
func commandContext(cmd *cobra.Command) (context.Context, context.CancelFunc) {
	return context.WithTimeout(cmd.Context(), timeout)
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Config file directory (default: ./configs then .)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 30*time.Minute, "Operation timeout")

	rootCmd.AddCommand(migrateCmd)
	rootCmd.AddCommand(fixCoordinatesCmd)
	rootCmd.AddCommand(seedCmd)
	rootCmd.AddCommand(verifySiretsCmd)
	rootCmd.AddCommand(resetPasswordCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
