package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

// Duration wraps time.Duration so TOML values like "500ms" decode.
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

type Config struct {
	URL         string `toml:"url"`
	UserID      string `toml:"user_id"`
	GroupPrefix string `toml:"group_prefix"`

	Timeout             Duration `toml:"timeout"`
	ProbeTimeout        Duration `toml:"probe_timeout"`
	SessionStartTimeout Duration `toml:"session_start_timeout"`
	MaxRetries          int      `toml:"max_retries"`
	RetryBaseDelay      Duration `toml:"retry_base_delay"`

	SearchTopK      int    `toml:"search_top_k"`
	RetrieveMethod  string `toml:"retrieve_method"`
	ContextMaxChars int    `toml:"context_max_chars"`

	CursorBackend string   `toml:"cursor_backend"` // "file", "sqlite" or "redis"
	OffsetDir     string   `toml:"offset_dir"`
	SQLitePath    string   `toml:"sqlite_path"`
	RedisURL      string   `toml:"redis_url"`
	RedisPrefix   string   `toml:"redis_prefix"`
	Retention     Duration `toml:"retention"`

	ClaudeRoot string `toml:"claude_root"`
	Debug      bool   `toml:"debug"`

	// Path is the config file that was read, empty if none existed.
	Path string `toml:"-"`
}

func Load() (*Config, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return nil, err
	}
	return load(home, os.Getenv)
}

func Default(home string) *Config {
	return &Config{
		URL:                 "http://localhost:1995",
		UserID:              "claude-code-user",
		GroupPrefix:         "cc",
		Timeout:             Duration{10 * time.Second},
		ProbeTimeout:        Duration{5 * time.Second},
		SessionStartTimeout: Duration{5 * time.Second},
		MaxRetries:          2,
		RetryBaseDelay:      Duration{500 * time.Millisecond},
		SearchTopK:          10,
		RetrieveMethod:      "rrf",
		ContextMaxChars:     4000,
		CursorBackend:       "file",
		OffsetDir:           filepath.Join(home, ".evermemos-plugin", "offsets"),
		SQLitePath:          filepath.Join(home, ".evermemos-plugin", "cursors.db"),
		RedisPrefix:         "memsync:cursor:",
		Retention:           Duration{7 * 24 * time.Hour},
		ClaudeRoot:          filepath.Join(home, ".claude", "projects"),
	}
}

func load(home string, getenv func(string) string) (*Config, error) {
	cfg := Default(home)
	cfgDir := filepath.Join(home, ".config", "memsync")

	cfgPath := getenv("MEMSYNC_CONFIG")
	if cfgPath == "" {
		cfgPath = filepath.Join(cfgDir, "config.toml")
	}
	cfgPath = expandHome(cfgPath, home)
	if _, err := os.Stat(cfgPath); err == nil {
		if _, err := toml.DecodeFile(cfgPath, cfg); err != nil {
			return nil, fmt.Errorf("parse config %s: %w", cfgPath, err)
		}
		cfg.Path = cfgPath
	}

	// values from the env file never override the real environment
	envPath := filepath.Join(cfgDir, ".env")
	if _, err := os.Stat(envPath); err == nil {
		fileEnv, err := godotenv.Read(envPath)
		if err != nil {
			return nil, fmt.Errorf("parse env file %s: %w", envPath, err)
		}
		base := getenv
		getenv = func(key string) string {
			if v := base(key); v != "" {
				return v
			}
			return fileEnv[key]
		}
	}

	if err := applyEnv(cfg, getenv); err != nil {
		return nil, err
	}

	// expand ~ in paths
	cfg.OffsetDir = expandHome(cfg.OffsetDir, home)
	cfg.SQLitePath = expandHome(cfg.SQLitePath, home)
	cfg.ClaudeRoot = expandHome(cfg.ClaudeRoot, home)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func applyEnv(cfg *Config, getenv func(string) string) error {
	setString := func(key string, dst *string) {
		if v := getenv(key); v != "" {
			*dst = v
		}
	}
	setInt := func(key string, dst *int) error {
		v := getenv(key)
		if v == "" {
			return nil
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("env %s: %w", key, err)
		}
		*dst = n
		return nil
	}

	setString("EVERMEMOS_URL", &cfg.URL)
	setString("EVERMEMOS_USER_ID", &cfg.UserID)
	setString("EVERMEMOS_GROUP_PREFIX", &cfg.GroupPrefix)
	setString("EVERMEMOS_RETRIEVE_METHOD", &cfg.RetrieveMethod)
	setString("MEMSYNC_CURSOR_BACKEND", &cfg.CursorBackend)
	setString("MEMSYNC_REDIS_URL", &cfg.RedisURL)
	setString("MEMSYNC_OFFSET_DIR", &cfg.OffsetDir)

	var timeoutMs int
	if err := setInt("EVERMEMOS_TIMEOUT_MS", &timeoutMs); err != nil {
		return err
	}
	if timeoutMs != 0 {
		cfg.Timeout = Duration{time.Duration(timeoutMs) * time.Millisecond}
	}
	if err := setInt("EVERMEMOS_SEARCH_TOP_K", &cfg.SearchTopK); err != nil {
		return err
	}
	if err := setInt("EVERMEMOS_CONTEXT_MAX_CHARS", &cfg.ContextMaxChars); err != nil {
		return err
	}
	if v := getenv("EVERMEMOS_DEBUG"); v != "" {
		cfg.Debug = v == "true"
	}
	return nil
}

// Validate rejects settings the engine cannot run with.
func (c *Config) Validate() error {
	switch c.CursorBackend {
	case "file", "sqlite":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("cursor_backend redis requires redis_url")
		}
		if c.RedisPrefix == "" {
			return fmt.Errorf("cursor_backend redis requires a non-empty redis_prefix")
		}
	default:
		return fmt.Errorf("unknown cursor_backend %q", c.CursorBackend)
	}
	if c.URL == "" {
		return fmt.Errorf("url must not be empty")
	}
	if c.Timeout.Duration <= 0 || c.ProbeTimeout.Duration <= 0 || c.SessionStartTimeout.Duration <= 0 {
		return fmt.Errorf("timeouts must be positive")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("max_retries must not be negative")
	}
	if c.Retention.Duration <= 0 {
		return fmt.Errorf("retention must be positive")
	}
	return nil
}

func expandHome(path, home string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		return filepath.Join(home, path[2:])
	}
	return path
}
