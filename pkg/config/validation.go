package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/go-playground/validator/v10"
)

// validate is the singleton validator instance
var validate *validator.Validate

func init() {
	validate = validator.New()
}

// Validate checks the configuration using struct tags plus custom rules
// that cannot be expressed declaratively.
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return formatValidationError(err)
	}

	return validateCustomRules(cfg)
}

func validateCustomRules(cfg *Config) error {
	// The filesystem store serves straight off disk, so the site root
	// must exist and be a directory before the server starts, and the
	// home page must resolve to a servable file under it.
	if cfg.Store.Type == "filesystem" {
		root := filesystemRoot(cfg)
		if root == "" {
			return fmt.Errorf("site: root is required for the filesystem store")
		}

		info, err := os.Stat(root)
		if err != nil {
			return fmt.Errorf("site: root %q is not accessible: %w", root, err)
		}
		if !info.IsDir() {
			return fmt.Errorf("site: root %q is not a directory", root)
		}

		home := filepath.Join(root, filepath.FromSlash(cfg.Site.HomePage))
		homeInfo, err := os.Stat(home)
		if err != nil || homeInfo.IsDir() {
			return fmt.Errorf("site: home page %q is not servable under root %q",
				cfg.Site.HomePage, root)
		}
	}

	if cfg.Metrics.Enabled && cfg.Metrics.Listen == "" {
		return fmt.Errorf("metrics: listen address is required when metrics are enabled")
	}

	return nil
}

// filesystemRoot resolves the filesystem store root, letting the
// store-specific path override the site root.
func filesystemRoot(cfg *Config) string {
	if path, ok := cfg.Store.Filesystem["path"].(string); ok && path != "" {
		return path
	}
	return cfg.Site.Root
}

// formatValidationError converts validator errors into user-friendly messages.
func formatValidationError(err error) error {
	if validationErrs, ok := err.(validator.ValidationErrors); ok {
		if len(validationErrs) > 0 {
			e := validationErrs[0]
			return fmt.Errorf("%s: validation failed on '%s' tag (value: %v)",
				e.Namespace(), e.Tag(), e.Value())
		}
	}
	return err
}
