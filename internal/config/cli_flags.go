package config

import "github.com/spf13/cobra"

// RegisterFlags registers common CLI flags on the provided root command
func RegisterFlags(cmd *cobra.Command) {
	if cmd == nil {
		return
	}

	pf := cmd.PersistentFlags()
	pf.BoolP("verbose", "v", false, "Enable debug logging")
	pf.BoolP("quiet", "q", false, "Suppress all output except errors")
	pf.Bool("json", false, "Emit logs as JSON")
	pf.String("config", "", "Path to a YAML configuration file (optional)")
	pf.String("data-dir", DefaultDataDir, "Directory holding stored snapshots")
	pf.String("engine", DefaultEngine, "Page engine: browser (headless Chrome) or static (plain HTTP)")
	pf.StringSlice("proxy", nil, "HTTP/SOCKS5 proxy, repeat or comma-separate to rotate")
	pf.String("user-agent", "", "Custom user agent string")
	pf.StringArrayP("header", "H", nil, "Extra request header \"Key: Value\" (repeatable)")
	pf.String("chrome-path", "", "Path to the Chrome/Chromium executable")
	pf.Bool("headless", DefaultHeadless, "Run Chrome headless")
	pf.Duration("timeout", DefaultNavigationTimeout, "Page navigation timeout")
	pf.Int("retries", DefaultRetryAttempts, "Attempts per page before giving up")
	pf.Duration("batch-delay", DefaultBatchDelay, "Pause between decks of a batch")
}
