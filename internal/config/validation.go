package config

import (
	"fmt"

	"github.com/law-makers/mtgmeta/internal/utils/headers"
	urlutil "github.com/law-makers/mtgmeta/internal/utils/url"
	"github.com/rs/zerolog"
)

func validate(c *Config) error {
	if _, err := zerolog.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("unknown log level %q", c.LogLevel)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data dir must not be empty")
	}
	if err := urlutil.ValidateURL(c.BaseURL); err != nil {
		return fmt.Errorf("base url: %w", err)
	}
	if _, err := headers.Parse(c.Headers); err != nil {
		return err
	}
	if c.Engine != EngineBrowser && c.Engine != EngineStatic {
		return fmt.Errorf("engine must be %q or %q, got %q", EngineBrowser, EngineStatic, c.Engine)
	}
	if c.NavigationTimeout <= 0 {
		return fmt.Errorf("navigation timeout must be > 0")
	}
	if c.WaitTimeout <= 0 {
		return fmt.Errorf("wait timeout must be > 0")
	}
	if c.RetryAttempts < 1 || c.RetryAttempts > MaxRetryAttempts {
		return fmt.Errorf("retry attempts must be between 1 and %d", MaxRetryAttempts)
	}
	if c.RetryBaseDelay < 0 {
		return fmt.Errorf("retry base delay must be >= 0")
	}
	if c.BatchDelay <= 0 {
		return fmt.Errorf("batch delay must be > 0")
	}
	if c.HostRPS <= 0 {
		return fmt.Errorf("host rps must be > 0")
	}
	if c.HostBurst < 1 {
		return fmt.Errorf("host burst must be >= 1")
	}
	return nil
}
