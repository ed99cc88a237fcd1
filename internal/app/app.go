// Package app provides the core application initialization and lifecycle management.
package app

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/law-makers/mtgmeta/internal/config"
	"github.com/law-makers/mtgmeta/internal/deck"
	"github.com/law-makers/mtgmeta/internal/extract"
	"github.com/law-makers/mtgmeta/internal/metagame"
	"github.com/law-makers/mtgmeta/internal/proxy"
	"github.com/law-makers/mtgmeta/internal/ratelimit"
	"github.com/law-makers/mtgmeta/internal/retry"
	"github.com/law-makers/mtgmeta/internal/store"
	"github.com/law-makers/mtgmeta/internal/utils/headers"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Application holds all application dependencies and manages their lifecycle.
//
// It is created once per command invocation. Sessions are opened and closed
// by the services themselves, so Close only has bookkeeping left to do.
type Application struct {
	Config    *config.Config
	Logger    *zerolog.Logger
	Store     *store.Store
	Limiter   *ratelimit.HostLimiter
	Proxies   *proxy.Rotator
	Pacer     *ratelimit.Pacer
	Extractor extract.Extractor
	Metagame  *metagame.Service
	Decks     *deck.Service
	startTime time.Time
}

// New creates and initializes a new Application with all dependencies.
//
// It performs the following initialization steps:
//   - Configures logging based on the provided config
//   - Creates the per-host rate limiter and the proxy rotator
//   - Creates the page extractor selected by cfg.Engine
//   - Creates the snapshot store and both scraping services
func New(ctx context.Context, cfg *config.Config) (*Application, error) {
	if cfg == nil {
		return nil, fmt.Errorf("config is required")
	}

	logger := ConfigureLogging(cfg, os.Stderr)

	limiter := ratelimit.NewHostLimiter(cfg.HostRPS, cfg.HostBurst)
	logger.Debug().
		Float64("host_rps", cfg.HostRPS).
		Int("host_burst", cfg.HostBurst).
		Msg("Rate limiter initialized")

	proxies := proxy.NewRotator(cfg.Proxies, cfg.ProxyCooldown)
	if proxies.Len() > 0 {
		logger.Debug().Int("proxies", proxies.Len()).Msg("Proxy rotation enabled")
	}

	extractor, err := newExtractor(cfg, limiter, proxies)
	if err != nil {
		return nil, err
	}
	logger.Debug().Str("engine", extractor.Name()).Msg("Extractor initialized")

	st := store.New(cfg.DataDir)
	policy := retry.Policy{
		MaxAttempts: cfg.RetryAttempts,
		BaseDelay:   cfg.RetryBaseDelay,
	}
	pacer := ratelimit.NewPacer(cfg.BatchDelay)

	mg := metagame.NewService(extractor, st, metagame.Options{
		BaseURL:     cfg.BaseURL,
		WaitTimeout: cfg.WaitTimeout,
		Retry:       policy,
	})
	decks := deck.NewService(extractor, st, mg, deck.Options{
		BaseURL:     cfg.BaseURL,
		WaitTimeout: cfg.WaitTimeout,
		Retry:       policy,
		Pacer:       pacer,
	})

	app := &Application{
		Config:    cfg,
		Logger:    &logger,
		Store:     st,
		Limiter:   limiter,
		Proxies:   proxies,
		Pacer:     pacer,
		Extractor: extractor,
		Metagame:  mg,
		Decks:     decks,
		startTime: time.Now(),
	}

	logger.Debug().Str("data_dir", st.Root()).Msg("Application initialized successfully")
	return app, nil
}

// ConfigureLogging sets the global zerolog level and writer from cfg and
// returns the resulting logger. Console output goes to w unless JSON logs
// are requested.
func ConfigureLogging(cfg *config.Config, w io.Writer) zerolog.Logger {
	level, err := zerolog.ParseLevel(strings.ToLower(cfg.LogLevel))
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var logWriter io.Writer
	if cfg.JSONLog {
		logWriter = w
	} else {
		logWriter = zerolog.ConsoleWriter{Out: w, TimeFormat: time.Kitchen}
	}

	log.Logger = zerolog.New(logWriter).With().Timestamp().Logger()

	log.Debug().
		Str("level", level.String()).
		Bool("json", cfg.JSONLog).
		Msg("Logger initialized")

	return log.Logger
}

func newExtractor(cfg *config.Config, limiter *ratelimit.HostLimiter, proxies *proxy.Rotator) (extract.Extractor, error) {
	extraHeaders, err := headers.Parse(cfg.Headers)
	if err != nil {
		return nil, err
	}

	opts := extract.Options{
		UserAgent:         cfg.UserAgent,
		Headers:           extraHeaders,
		NavigationTimeout: cfg.NavigationTimeout,
		Limiter:           limiter,
		Proxies:           proxies,
	}

	switch cfg.Engine {
	case config.EngineStatic:
		return extract.NewStatic(opts), nil
	case config.EngineBrowser, "":
		return extract.NewBrowser(extract.BrowserOptions{
			Options:    opts,
			ChromePath: cfg.ChromePath,
			Headless:   cfg.Headless,
		}), nil
	default:
		return nil, fmt.Errorf("unknown engine %q", cfg.Engine)
	}
}

// Close releases application resources. Browser processes belong to
// sessions and are gone by the time a command returns.
func (a *Application) Close(ctx context.Context) error {
	uptime := time.Since(a.startTime)
	a.Logger.Debug().Dur("uptime", uptime).Msg("Application shutdown complete")
	return nil
}

// Uptime returns how long the application has been running.
func (a *Application) Uptime() time.Duration {
	return time.Since(a.startTime)
}
