// Package config loads deck server and client settings from a TOML file.
package config

import (
	"fmt"
	"os"
	"time"

	"github.com/BurntSushi/toml"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type Config struct {
	Server ServerConfig `toml:"server"`
	Client ClientConfig `toml:"client"`
	Log    LogConfig    `toml:"log"`
}

type ServerConfig struct {
	Port        string `toml:"port"`
	UploadDir   string `toml:"upload_dir"`
	MaxUploadMB int64  `toml:"max_upload_mb"`
	CardSize    int    `toml:"card_size"`
	CardsPerRow int    `toml:"cards_per_row"`
}

type ClientConfig struct {
	BaseURL     string   `toml:"base_url"`
	Layout      string   `toml:"layout"`
	Radius      float64  `toml:"radius"`
	ProbeImages bool     `toml:"probe_images"`
	Timeout     Duration `toml:"timeout"` // zero means no timeout
	ExportDir   string   `toml:"export_dir"`
}

type LogConfig struct {
	Level       string `toml:"level"`
	Development bool   `toml:"development"`
}

// Duration decodes TOML strings such as "30s".
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

func Default() Config {
	return Config{
		Server: ServerConfig{
			Port:        "8080",
			UploadDir:   "uploads",
			MaxUploadMB: 10,
			CardSize:    300,
			CardsPerRow: 4,
		},
		Client: ClientConfig{
			BaseURL:     "http://localhost:8080",
			Layout:      "circular",
			Radius:      60,
			ProbeImages: true,
			ExportDir:   ".",
		},
		Log: LogConfig{Level: "info"},
	}
}

// Load reads path over the defaults. An empty path yields the defaults.
// PORT in the environment overrides server.port.
func Load(path string) (Config, error) {
	cfg := Default()
	if path != "" {
		md, err := toml.DecodeFile(path, &cfg)
		if err != nil {
			return cfg, fmt.Errorf("load config %s: %w", path, err)
		}
		if undecoded := md.Undecoded(); len(undecoded) > 0 {
			return cfg, fmt.Errorf("load config %s: unknown keys %v", path, undecoded)
		}
	}
	if port := os.Getenv("PORT"); port != "" {
		cfg.Server.Port = port
	}
	return cfg, nil
}

// NewLogger builds a zap logger for lc. verbose forces debug level.
func NewLogger(lc LogConfig, verbose bool) (*zap.Logger, error) {
	zc := zap.NewProductionConfig()
	if lc.Development {
		zc = zap.NewDevelopmentConfig()
	}
	level := zapcore.InfoLevel
	if lc.Level != "" {
		if err := level.UnmarshalText([]byte(lc.Level)); err != nil {
			return nil, fmt.Errorf("log level %q: %w", lc.Level, err)
		}
	}
	if verbose {
		level = zapcore.DebugLevel
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
