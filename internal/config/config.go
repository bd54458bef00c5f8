package config

import (
	"errors"
	"io/fs"
	"log/slog"
	"strings"

	"github.com/joho/godotenv"
)

type Config struct {
	Server  ServerConfig
	Storage StorageConfig
	Log     LogConfig
}

type ServerConfig struct {
	Port int
}

type StorageConfig struct {
	DataDir string
	// Scope namespaces the editor's keys inside the local store.
	Scope string
}

type LogConfig struct {
	Level string
}

// SlogLevel maps the configured level name to a slog.Level. Unknown names
// fall back to info.
func (c LogConfig) SlogLevel() slog.Level {
	switch strings.ToLower(strings.TrimSpace(c.Level)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

func defaults() Config {
	return Config{
		Server: ServerConfig{
			Port: 4100,
		},
		Storage: StorageConfig{
			DataDir: defaultDataDir(),
			Scope:   "default",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from the platform-native backend and the
// environment.
//
// On macOS the backend is UserDefaults (domain: com.profiled.app).
// On Linux the backend is a JSON file at $XDG_CONFIG_HOME/profiled/config.json.
//
// A .env file in the working directory is loaded first; variables already set
// in the environment win. Environment variables (PROFILED_*) override backend
// values on all platforms.
func Load() (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	return loadWith(newPlatformBackend())
}

func loadWith(b ConfigBackend) (Config, error) {
	cfg := defaults()

	if err := applyBackend(&cfg, b); err != nil {
		return Config{}, err
	}

	applyEnvOverrides(&cfg)

	if strings.TrimSpace(cfg.Storage.Scope) == "" {
		cfg.Storage.Scope = "default"
	}
	return cfg, nil
}
