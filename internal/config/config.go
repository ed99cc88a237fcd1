package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// Config holds application configuration values
type Config struct {
	// Logging
	LogLevel string `yaml:"log_level"`
	JSONLog  bool   `yaml:"json_log"`

	// Storage
	DataDir string `yaml:"data_dir"`

	// Scraping
	BaseURL           string        `yaml:"base_url"`
	Engine            string        `yaml:"engine"`
	UserAgent         string        `yaml:"user_agent"`
	Proxies           []string      `yaml:"proxies"`
	Headers           []string      `yaml:"headers"`
	ProxyCooldown     time.Duration `yaml:"proxy_cooldown"`
	ChromePath        string        `yaml:"chrome_path"`
	Headless          bool          `yaml:"headless"`
	NavigationTimeout time.Duration `yaml:"navigation_timeout"`
	WaitTimeout       time.Duration `yaml:"wait_timeout"`

	// Retry and pacing
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
	BatchDelay     time.Duration `yaml:"batch_delay"`
	HostRPS        float64       `yaml:"host_rps"`
	HostBurst      int           `yaml:"host_burst"`
}

// Load builds a Config by layering defaults, an optional YAML file,
// MTGMETA_* environment variables and CLI flags, in that order.
// Caller should pass the executing *cobra.Command so flags can be read.
func Load(cmd *cobra.Command) (*Config, error) {
	cfg := Defaults()

	path := os.Getenv(EnvPrefix + "CONFIG")
	if cmd != nil {
		if f := cmd.Flags().Lookup("config"); f != nil && f.Value.String() != "" {
			path = f.Value.String()
		}
	}
	if path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	if err := cfg.applyEnv(); err != nil {
		return nil, err
	}

	if cmd != nil {
		if err := cfg.applyFlags(cmd); err != nil {
			return nil, err
		}
	}

	if err := validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// loadFile overlays the keys present in a YAML file; absent keys keep
// their current values.
func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() error {
	str := func(name string, dst *string) {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			*dst = v
		}
	}
	str("LOG_LEVEL", &c.LogLevel)
	str("DATA_DIR", &c.DataDir)
	str("BASE_URL", &c.BaseURL)
	str("ENGINE", &c.Engine)
	str("USER_AGENT", &c.UserAgent)
	str("CHROME_PATH", &c.ChromePath)

	if v := os.Getenv(EnvPrefix + "PROXIES"); v != "" {
		c.Proxies = splitList(v)
	}

	for name, dst := range map[string]*time.Duration{
		"NAVIGATION_TIMEOUT": &c.NavigationTimeout,
		"WAIT_TIMEOUT":       &c.WaitTimeout,
		"RETRY_BASE_DELAY":   &c.RetryBaseDelay,
		"BATCH_DELAY":        &c.BatchDelay,
	} {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*dst = d
		}
	}

	for name, dst := range map[string]*bool{
		"JSON_LOG": &c.JSONLog,
		"HEADLESS": &c.Headless,
	} {
		if v := os.Getenv(EnvPrefix + name); v != "" {
			b, err := strconv.ParseBool(v)
			if err != nil {
				return fmt.Errorf("invalid %s%s: %w", EnvPrefix, name, err)
			}
			*dst = b
		}
	}

	if v := os.Getenv(EnvPrefix + "RETRY_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid %sRETRY_ATTEMPTS: %w", EnvPrefix, err)
		}
		c.RetryAttempts = n
	}
	if v := os.Getenv(EnvPrefix + "HOST_RPS"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("invalid %sHOST_RPS: %w", EnvPrefix, err)
		}
		c.HostRPS = f
	}

	return nil
}

// applyFlags overrides values with flags the user explicitly set
func (c *Config) applyFlags(cmd *cobra.Command) error {
	flags := cmd.Flags()
	changed := func(name string) bool {
		f := flags.Lookup(name)
		return f != nil && f.Changed
	}

	var err error
	if changed("verbose") {
		if v, _ := flags.GetBool("verbose"); v {
			c.LogLevel = "debug"
		}
	}
	if changed("quiet") {
		if v, _ := flags.GetBool("quiet"); v {
			c.LogLevel = "error"
		}
	}
	if changed("json") {
		c.JSONLog, _ = flags.GetBool("json")
	}
	if changed("data-dir") {
		c.DataDir, _ = flags.GetString("data-dir")
	}
	if changed("engine") {
		c.Engine, _ = flags.GetString("engine")
	}
	if changed("user-agent") {
		c.UserAgent, _ = flags.GetString("user-agent")
	}
	if changed("proxy") {
		c.Proxies, _ = flags.GetStringSlice("proxy")
	}
	if changed("header") {
		c.Headers, _ = flags.GetStringArray("header")
	}
	if changed("chrome-path") {
		c.ChromePath, _ = flags.GetString("chrome-path")
	}
	if changed("headless") {
		c.Headless, _ = flags.GetBool("headless")
	}
	if changed("timeout") {
		if c.NavigationTimeout, err = flags.GetDuration("timeout"); err != nil {
			return err
		}
	}
	if changed("retries") {
		c.RetryAttempts, _ = flags.GetInt("retries")
	}
	if changed("batch-delay") {
		if c.BatchDelay, err = flags.GetDuration("batch-delay"); err != nil {
			return err
		}
	}
	return nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
