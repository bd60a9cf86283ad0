package loam

import (
	"fmt"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config holds everything the server needs, populated from the environment.
type Config struct {
	Addr          string `envconfig:"ADDR" default:":8080"`
	BaseURL       string `envconfig:"BASE_URL" default:"http://localhost:8080"`
	DatabasePath  string `envconfig:"DATABASE_PATH" default:"data/loam.db"`
	UploadDir     string `envconfig:"UPLOAD_DIR" default:"uploads"`
	ThemesDir     string `envconfig:"THEMES_DIR" default:"themes"`
	SessionSecret string `envconfig:"SESSION_SECRET" required:"true"`
	CookieSecure  bool   `envconfig:"COOKIE_SECURE" default:"false"`
	Debug         bool   `envconfig:"DEBUG" default:"false"`
}

// LoadConfig reads .env when present, then the environment.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()
	var c Config
	if err := envconfig.Process("LOAM", &c); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &c, nil
}
