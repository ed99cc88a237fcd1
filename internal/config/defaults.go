package config

import "time"

// Default constants for application configuration
const (
	DefaultLogLevel          = "info"
	DefaultJSONLog           = false
	DefaultDataDir           = "data"
	DefaultBaseURL           = "https://www.mtggoldfish.com"
	DefaultEngine            = EngineBrowser
	DefaultUserAgent         = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	DefaultHeadless          = true
	DefaultNavigationTimeout = 60 * time.Second
	DefaultWaitTimeout       = 30 * time.Second
	DefaultRetryAttempts     = 3
	DefaultRetryBaseDelay    = 2 * time.Second
	DefaultBatchDelay        = 2 * time.Second
	DefaultHostRPS           = 1.0
	DefaultHostBurst         = 2
	DefaultProxyCooldown     = 5 * time.Minute

	MaxRetryAttempts = 10

	// EnvPrefix prefixes every environment override
	EnvPrefix = "MTGMETA_"
)

// Engines
const (
	EngineBrowser = "browser"
	EngineStatic  = "static"
)

// Defaults returns a Config populated with the default values
func Defaults() *Config {
	return &Config{
		LogLevel:          DefaultLogLevel,
		JSONLog:           DefaultJSONLog,
		DataDir:           DefaultDataDir,
		BaseURL:           DefaultBaseURL,
		Engine:            DefaultEngine,
		UserAgent:         DefaultUserAgent,
		Headless:          DefaultHeadless,
		NavigationTimeout: DefaultNavigationTimeout,
		WaitTimeout:       DefaultWaitTimeout,
		RetryAttempts:     DefaultRetryAttempts,
		RetryBaseDelay:    DefaultRetryBaseDelay,
		BatchDelay:        DefaultBatchDelay,
		HostRPS:           DefaultHostRPS,
		HostBurst:         DefaultHostBurst,
		ProxyCooldown:     DefaultProxyCooldown,
	}
}
