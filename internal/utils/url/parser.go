package urlutil

import (
	"fmt"
	"net/url"
	"strings"
)

// ValidateURL checks that urlStr is an absolute http(s) URL
func ValidateURL(urlStr string) error {
	parsed, err := url.Parse(urlStr)
	if err != nil {
		return fmt.Errorf("invalid URL: %w", err)
	}

	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("invalid URL scheme: must be http or https, got %s", parsed.Scheme)
	}

	if parsed.Host == "" {
		return fmt.Errorf("invalid URL: missing host")
	}

	return nil
}

// SitePath reduces input to a site-relative path. Absolute URLs must point
// at base's host; query and fragment are dropped either way, so a link
// copied from the browser ("https://host/archetype/x#paper") and a bare
// path ("/archetype/x") normalize to the same value.
func SitePath(base, input string) (string, error) {
	input = strings.TrimSpace(input)
	u, err := url.Parse(input)
	if err != nil {
		return "", fmt.Errorf("invalid URL: %w", err)
	}

	if u.IsAbs() {
		b, err := url.Parse(base)
		if err != nil {
			return "", fmt.Errorf("invalid base URL: %w", err)
		}
		if !strings.EqualFold(u.Hostname(), b.Hostname()) {
			return "", fmt.Errorf("URL host %q does not match %q", u.Host, b.Host)
		}
	}

	p := u.Path
	if p != "" && !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return strings.TrimRight(p, "/"), nil
}
