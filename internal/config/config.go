package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

type Config struct {
	User          UserConfig     `toml:"user"`
	Planner       PlannerConfig  `toml:"planner"`
	Schedule      ScheduleConfig `toml:"schedule"`
	Calendar      CalendarConfig `toml:"calendar"`
	Store         StoreConfig    `toml:"store"`
	Notifications NotifyConfig   `toml:"notifications"`
}

type UserConfig struct {
	ID string `toml:"id"`
}

type PlannerConfig struct {
	BlockMinutes int    `toml:"block_minutes"`
	Strategy     string `toml:"strategy"` // only "first_fit"
}

type ScheduleConfig struct {
	IntervalMinutes int    `toml:"interval_minutes"`
	WorkStart       string `toml:"work_start"`
	WorkEnd         string `toml:"work_end"`
	WorkDays        []int  `toml:"work_days"` // 1 = Monday ... 7 = Sunday
	Cron            string `toml:"cron"`      // optional, overrides interval_minutes
}

type CalendarConfig struct {
	Sources []string `toml:"sources"` // ICS URLs or file paths
}

type StoreConfig struct {
	Path string `toml:"path"` // empty means the default location
}

type NotifyConfig struct {
	Enabled bool `toml:"enabled"`
}

func DefaultConfig() Config {
	return Config{
		User: UserConfig{
			ID: "demo",
		},
		Planner: PlannerConfig{
			BlockMinutes: 30,
			Strategy:     "first_fit",
		},
		Schedule: ScheduleConfig{
			IntervalMinutes: 60,
			WorkStart:       "09:00",
			WorkEnd:         "17:00",
			WorkDays:        []int{1, 2, 3, 4, 5},
		},
		Notifications: NotifyConfig{
			Enabled: true,
		},
	}
}

func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("finding home directory: %w", err)
	}
	return filepath.Join(home, ".config", "dailyroutine"), nil
}

func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile reads the config at path over the defaults. A missing file is not
// an error.
func LoadFile(path string) (*Config, error) {
	cfg := DefaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return &cfg, nil
		}
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := toml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(&cfg)

	return &cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DAILYROUTINE_USER"); v != "" {
		cfg.User.ID = v
	}
	if v := os.Getenv("DAILYROUTINE_DB"); v != "" {
		cfg.Store.Path = v
	}
	if v := os.Getenv("DAILYROUTINE_CALENDAR"); v != "" {
		cfg.Calendar.Sources = strings.Split(v, ",")
	}
}

func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// WriteDefault writes the default configuration to path.
func WriteDefault(path string) error {
	out, err := toml.Marshal(DefaultConfig())
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}
	return os.WriteFile(path, out, 0644)
}
