package config

import (
	"fmt"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/viper"
)

// Config holds everything the application reads from the environment.
type Config struct {
	// web application port
	Port int

	// postgres connection settings
	DBHost     string
	DBPort     string
	DBUser     string
	DBPassword string
	DBName     string

	// session settings
	JWTSecret       string
	SessionTTLHours int
	CookieSecure    bool

	// blob storage: where uploaded files land on disk and the public
	// URL prefix they are served under
	StorageDir     string
	StorageBaseURL string
}

func Load() (*Config, error) {
	viper.AutomaticEnv()

	viper.SetDefault("PORT", 8080)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "todoapp")
	viper.SetDefault("SESSION_TTL_HOURS", 72)
	viper.SetDefault("COOKIE_SECURE", false)
	viper.SetDefault("STORAGE_DIR", "storage/public")
	viper.SetDefault("STORAGE_BASE_URL", "/storage")

	cfg := &Config{
		Port:            viper.GetInt("PORT"),
		DBHost:          viper.GetString("DB_HOST"),
		DBPort:          viper.GetString("DB_PORT"),
		DBUser:          viper.GetString("DB_USER"),
		DBPassword:      viper.GetString("DB_PASSWORD"),
		DBName:          viper.GetString("DB_NAME"),
		JWTSecret:       viper.GetString("JWT_SECRET"),
		SessionTTLHours: viper.GetInt("SESSION_TTL_HOURS"),
		CookieSecure:    viper.GetBool("COOKIE_SECURE"),
		StorageDir:      viper.GetString("STORAGE_DIR"),
		StorageBaseURL:  viper.GetString("STORAGE_BASE_URL"),
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is not set")
	}

	return cfg, nil
}

func (c *Config) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		c.DBHost, c.DBUser, c.DBPassword, c.DBName, c.DBPort)
}
