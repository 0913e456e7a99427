package config

import (
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Port           int    `envconfig:"PORT" default:"8080"`
	JWTSecret      string `envconfig:"JWT_SECRET" default:"dev-secret-change-in-production"`
	AssetDir       string `envconfig:"ASSET_DIR" default:"./data/assets"`
	AllowedOrigins string `envconfig:"ALLOWED_ORIGINS" default:"http://localhost:5173,http://localhost:3000"`
	LogLevel       string `envconfig:"LOG_LEVEL" default:"info"`
	FfmpegPath     string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	PlaygroundID   string `envconfig:"PLAYGROUND_SESSION" default:"sess_playground"`

	GridSpacing float64 `envconfig:"GRID_SPACING" default:"50"`
	GridExtent  float64 `envconfig:"GRID_EXTENT" default:"50000"`
	MinZoom     float64 `envconfig:"MIN_ZOOM" default:"0.05"`
	MaxZoom     float64 `envconfig:"MAX_ZOOM" default:"20"`

	// AutoArmSelection starts a lasso on every empty-space touch instead of
	// requiring the selection toggle.
	AutoArmSelection  bool          `envconfig:"AUTO_ARM_SELECTION" default:"false"`
	DoubleTapInterval time.Duration `envconfig:"DOUBLE_TAP_INTERVAL" default:"250ms"`
	DoubleTapDistance float64       `envconfig:"DOUBLE_TAP_DISTANCE" default:"20"`

	SessionTokenTTL time.Duration `envconfig:"SESSION_TOKEN_TTL" default:"24h"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Origins splits AllowedOrigins on commas.
func (c *Config) Origins() []string {
	var out []string
	for _, o := range strings.Split(c.AllowedOrigins, ",") {
		if o = strings.TrimSpace(o); o != "" {
			out = append(out, o)
		}
	}
	return out
}

// Level parses LogLevel for slog.
func (c *Config) Level() (slog.Level, error) {
	var l slog.Level
	if err := l.UnmarshalText([]byte(c.LogLevel)); err != nil {
		return slog.LevelInfo, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}
	return l, nil
}
