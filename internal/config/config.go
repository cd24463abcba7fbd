package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/toml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/dpshade/pocket-forms/internal/storage"
)

// EnvPrefix is the prefix of environment overrides, e.g. POCKET_FORMS_SERVER_PORT
const EnvPrefix = "POCKET_FORMS_"

// DirEnvVar overrides the data directory
const DirEnvVar = "POCKET_FORMS_DIR"

// FileName is the config file looked up in the data directory
const FileName = "config.toml"

// Config represents the application configuration
type Config struct {
	Storage struct {
		Dir     string `koanf:"dir"`
		Backend string `koanf:"backend"`
	} `koanf:"storage"`

	Server struct {
		Host  string `koanf:"host"`
		Port  int    `koanf:"port"`
		Watch bool   `koanf:"watch"`
	} `koanf:"server"`

	Submit struct {
		Timeout time.Duration `koanf:"timeout"`
	} `koanf:"submit"`

	Log struct {
		Level string `koanf:"level"`
		File  string `koanf:"file"`
	} `koanf:"log"`

	UI struct {
		GlamourStyle string `koanf:"glamour_style"`
		WordWrap     int    `koanf:"word_wrap"`
	} `koanf:"ui"`

	// Path is the config file that was loaded, if any
	Path string `koanf:"-"`
}

func defaults() map[string]interface{} {
	return map[string]interface{}{
		"storage.dir":      "",
		"storage.backend":  storage.BackendFile,
		"server.host":      "localhost",
		"server.port":      8080,
		"server.watch":     false,
		"submit.timeout":   "10s",
		"log.level":        "",
		"log.file":         "",
		"ui.glamour_style": "auto",
		"ui.word_wrap":     80,
	}
}

// Load builds the configuration from defaults, an optional TOML file and
// POCKET_FORMS_* environment variables, in increasing priority. An empty
// configPath looks for config.toml in the data directory.
func Load(configPath string) (*Config, error) {
	var k = koanf.New(".")

	if err := k.Load(confmap.Provider(defaults(), "."), nil); err != nil {
		return nil, fmt.Errorf("error loading defaults: %w", err)
	}

	// Environment is read twice: first so POCKET_FORMS_DIR can locate the
	// config file, then again so it overrides values from that file.
	if err := loadEnv(k); err != nil {
		return nil, err
	}

	if configPath == "" {
		dir, err := storage.ResolveDir(k.String("storage.dir"))
		if err == nil {
			candidate := filepath.Join(dir, FileName)
			if _, statErr := os.Stat(candidate); statErr == nil {
				configPath = candidate
			}
		}
	}

	if configPath != "" {
		if err := k.Load(file.Provider(configPath), toml.Parser()); err != nil {
			return nil, fmt.Errorf("error loading config %s: %w", configPath, err)
		}
		if err := loadEnv(k); err != nil {
			return nil, err
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, fmt.Errorf("error unmarshalling config: %w", err)
	}
	cfg.Path = configPath

	if cfg.Storage.Dir == "" {
		dir, err := storage.DefaultDir()
		if err != nil {
			return nil, err
		}
		cfg.Storage.Dir = dir
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func loadEnv(k *koanf.Koanf) error {
	err := k.Load(env.Provider(EnvPrefix, ".", envKey), nil)
	if err != nil {
		return fmt.Errorf("error loading environment: %w", err)
	}
	return nil
}

// envKey maps POCKET_FORMS_SECTION_SOME_KEY to section.some_key.
// POCKET_FORMS_DIR is an alias of storage.dir.
func envKey(s string) string {
	s = strings.ToLower(strings.TrimPrefix(s, EnvPrefix))
	if s == "dir" {
		return "storage.dir"
	}
	return strings.Replace(s, "_", ".", 1)
}

// Validate validates the configuration
func Validate(cfg *Config) error {
	switch strings.ToLower(cfg.Storage.Backend) {
	case storage.BackendFile, storage.BackendSQLite:
	default:
		return fmt.Errorf("storage.backend must be %q or %q, got %q", storage.BackendFile, storage.BackendSQLite, cfg.Storage.Backend)
	}

	if cfg.Server.Port <= 0 || cfg.Server.Port > 65535 {
		return fmt.Errorf("server.port must be between 1 and 65535, got %d", cfg.Server.Port)
	}

	if cfg.Submit.Timeout <= 0 {
		return fmt.Errorf("submit.timeout must be positive")
	}

	return nil
}

// StorageOptions returns the storage settings
func (c *Config) StorageOptions() storage.Options {
	return storage.Options{Dir: c.Storage.Dir, Backend: c.Storage.Backend}
}

// LogDir returns the directory for error and debug logs
func (c *Config) LogDir() string {
	return filepath.Join(c.Storage.Dir, "logs")
}

// InitConfig writes a sample configuration file
func InitConfig(configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("configuration file already exists at %s", configPath)
	}

	if err := os.MkdirAll(filepath.Dir(configPath), 0755); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	sampleConfig := `# pocket-forms configuration

[storage]
# file (store.json) or sqlite (store.db)
backend = "file"

[server]
host = "localhost"
port = 8080
# reload templates when another process edits the store
watch = false

[submit]
timeout = "10s"

[log]
# debug, info, warn or error; empty disables logging
level = ""

[ui]
glamour_style = "auto"
word_wrap = 80
`

	return os.WriteFile(configPath, []byte(sampleConfig), 0644)
}
