package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/panesync/panesync/internal/robocopy"
	"github.com/panesync/panesync/internal/utils"
)

var (
	home, _           = os.UserHomeDir()
	DefaultConfigPath = filepath.Join(home, ".panesync", "config.json")
)

const (
	// MaxThreads is the highest thread count the copy tool accepts.
	MaxThreads          = 128
	DefaultHistoryLimit = 10
)

type Config struct {
	// TargetDir is the default destination when no target pane or
	// argument is given.
	TargetDir    string `json:"target_dir,omitempty"`
	Threads      int    `json:"threads"`
	ByteProgress bool   `json:"byte_progress"`
	HistoryLimit int    `json:"history_limit"`
	Path         string `json:"-"`
}

func Default() *Config {
	return &Config{
		Threads:      robocopy.DefaultThreads,
		HistoryLimit: DefaultHistoryLimit,
	}
}

func (c *Config) Validate() error {
	if c.Threads < 1 || c.Threads > MaxThreads {
		return fmt.Errorf("threads must be between 1 and %d, got %d", MaxThreads, c.Threads)
	}
	if c.HistoryLimit < 1 {
		return fmt.Errorf("history_limit must be positive, got %d", c.HistoryLimit)
	}
	return nil
}

func (c *Config) Save(path string) error {
	if err := utils.EnsureParent(path); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(path, data, 0644)
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, err
	}

	cfg.Path = path
	if cfg.Threads == 0 {
		cfg.Threads = robocopy.DefaultThreads
	}
	if cfg.HistoryLimit == 0 {
		cfg.HistoryLimit = DefaultHistoryLimit
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	return &cfg, nil
}

// LoadOrDefault loads the config at path, falling back to defaults when
// the file does not exist.
func LoadOrDefault(path string) (*Config, error) {
	cfg, err := Load(path)
	if os.IsNotExist(err) {
		cfg = Default()
		cfg.Path = path
		return cfg, nil
	}
	return cfg, err
}
