package config

import (
	_ "embed"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
)

//go:embed default.toml
var defaultConf []byte

// Config is the full server configuration
type Config struct {
	Server  ServerConfig  `toml:"server"`
	Data    DataConfig    `toml:"data"`
	Jobs    JobsConfig    `toml:"jobs"`
	Refresh RefreshConfig `toml:"refresh"`
	LLM     LLMConfig     `toml:"llm"`
	Log     LogConfig     `toml:"log"`
}

type ServerConfig struct {
	Host        string   `toml:"host"`
	Port        int      `toml:"port"`
	CORSOrigins []string `toml:"cors_origins"`
	GinMode     string   `toml:"gin_mode"`
}

type DataConfig struct {
	Dir string `toml:"dir"`
	DB  string `toml:"db"`
}

type JobsConfig struct {
	Workers   int    `toml:"workers"`
	QueueSize int    `toml:"queue_size"`
	Transcode bool   `toml:"transcode"`
	Quality   string `toml:"quality"` // max height passed to yt-dlp, e.g. "1080"
}

type RefreshConfig struct {
	Interval  Duration `toml:"interval"`
	PerMinute int      `toml:"per_minute"` // channel fetches allowed per minute
}

type LLMConfig struct {
	Model       string   `toml:"model"`
	Host        string   `toml:"host"`
	Endpoint    string   `toml:"endpoint"`
	APIKey      string   `toml:"api_key"`
	Temperature float64  `toml:"temperature"`
	Timeout     Duration `toml:"timeout"`
}

type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"` // text, json or logfmt
}

// Duration decodes TOML strings such as "30m"
type Duration struct {
	time.Duration
}

func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", string(text), err)
	}
	d.Duration = v
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the embedded default configuration with environment overrides applied
func Default() *Config {
	var cfg Config
	if err := toml.Unmarshal(defaultConf, &cfg); err != nil {
		panic(fmt.Sprintf("failed to parse embedded default config: %v", err))
	}
	applyEnv(&cfg)
	return &cfg
}

// Load reads the TOML file at path over the defaults. A missing file is not
// an error; the defaults are used.
func Load(path string) (*Config, error) {
	var cfg Config
	if err := toml.Unmarshal(defaultConf, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse embedded default config: %w", err)
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if _, err := toml.Decode(string(data), &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
			}
		case os.IsNotExist(err):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	applyEnv(&cfg)
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate rejects settings the server cannot run with
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port %d", c.Server.Port)
	}
	if c.Jobs.Workers < 1 {
		return fmt.Errorf("jobs.workers must be at least 1")
	}
	if c.Jobs.QueueSize < 1 {
		return fmt.Errorf("jobs.queue_size must be at least 1")
	}
	if c.Refresh.PerMinute < 1 {
		return fmt.Errorf("refresh.per_minute must be at least 1")
	}
	return nil
}

// Addr returns the listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// VideosDir is where downloaded media and subtitles are written
func (c *Config) VideosDir() string {
	return filepath.Join(c.Data.Dir, "videos")
}

// DBPath returns the catalog database location
func (c *Config) DBPath() string {
	if filepath.IsAbs(c.Data.DB) {
		return c.Data.DB
	}
	return filepath.Join(c.Data.Dir, c.Data.DB)
}

// EnsureDirectories creates the data directories
func (c *Config) EnsureDirectories() error {
	if err := os.MkdirAll(c.VideosDir(), 0o755); err != nil {
		return fmt.Errorf("create videos dir: %w", err)
	}
	return nil
}
