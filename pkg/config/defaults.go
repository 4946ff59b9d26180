package config

import "strings"

const (
	// DefaultHomePage replaces a bare "/" request target.
	DefaultHomePage = "/index.html"

	// DefaultMetricsListen is the default /metrics endpoint address.
	DefaultMetricsListen = ":9090"
)

// ApplyDefaults fills in zero-valued configuration fields.
func ApplyDefaults(cfg *Config) {
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.Format == "" {
		cfg.Logging.Format = "text"
	}
	if cfg.Logging.Output == "" {
		cfg.Logging.Output = "stdout"
	}

	cfg.Server.ApplyDefaults()

	if cfg.Site.HomePage == "" {
		cfg.Site.HomePage = DefaultHomePage
	}
	// Request targets always carry a leading slash, so the home page
	// must too or the rewrite would never match a stored resource.
	if !strings.HasPrefix(cfg.Site.HomePage, "/") {
		cfg.Site.HomePage = "/" + cfg.Site.HomePage
	}

	if cfg.Store.Type == "" {
		cfg.Store.Type = "filesystem"
	}

	if cfg.Metrics.Listen == "" {
		cfg.Metrics.Listen = DefaultMetricsListen
	}
}
