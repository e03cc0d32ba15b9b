package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

// TestNewConfig verifies that NewConfig returns a Config with all expected default values.
// Changes to defaults must be intentional: these tests fail when they move.
func TestNewConfig(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()

	t.Run("default Timeout is 20 seconds", func(t *testing.T) {
		t.Parallel()
		if cfg.Timeout != 20*time.Second {
			t.Errorf("expected Timeout to be 20s, got %v", cfg.Timeout)
		}
	})

	t.Run("default MaxPages is 100", func(t *testing.T) {
		t.Parallel()
		if cfg.MaxPages != 100 {
			t.Errorf("expected MaxPages to be 100, got %d", cfg.MaxPages)
		}
	})

	t.Run("default CrawlDepth is 5", func(t *testing.T) {
		t.Parallel()
		if cfg.CrawlDepth != 5 {
			t.Errorf("expected CrawlDepth to be 5, got %d", cfg.CrawlDepth)
		}
	})

	t.Run("default scope is same origin", func(t *testing.T) {
		t.Parallel()
		if cfg.CrossOrigin || cfg.FollowSubdomains {
			t.Error("expected same-origin crawling by default")
		}
	})

	t.Run("default probe limits", func(t *testing.T) {
		t.Parallel()
		if cfg.ProbeBudget != 8 || cfg.ProbeWorkers != 4 {
			t.Errorf("expected budget 8 and workers 4, got %d and %d", cfg.ProbeBudget, cfg.ProbeWorkers)
		}
	})

	t.Run("default listen address is loopback", func(t *testing.T) {
		t.Parallel()
		if !strings.HasPrefix(cfg.ListenAddress, "127.0.0.1:") {
			t.Errorf("expected loopback listen address, got %q", cfg.ListenAddress)
		}
	})

	t.Run("site configs are initialized", func(t *testing.T) {
		t.Parallel()
		if cfg.SiteConfigs == nil || cfg.SiteConfigs.Sites == nil {
			t.Error("expected empty site configs")
		}
	})
}

// TestConfigValidate tests the Validate method with various configurations.
// Each test case is designed to test one specific validation rule.
func TestConfigValidate(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name    string
		modify  func(*Config)
		wantErr error
	}{
		{"valid config returns nil", func(_ *Config) {}, nil},
		{"zero timeout", func(c *Config) { c.Timeout = 0 }, ErrInvalidTimeout},
		{"negative scan budget", func(c *Config) { c.ScanBudget = -time.Second }, ErrInvalidScanBudget},
		{"zero scan budget disables it", func(c *Config) { c.ScanBudget = 0 }, nil},
		{"negative depth", func(c *Config) { c.CrawlDepth = -1 }, ErrInvalidCrawlDepth},
		{"zero depth is allowed", func(c *Config) { c.CrawlDepth = 0 }, nil},
		{"zero max pages", func(c *Config) { c.MaxPages = 0 }, ErrInvalidMaxPages},
		{"zero batch size", func(c *Config) { c.BatchSize = 0 }, ErrInvalidBatchSize},
		{"json and markdown", func(c *Config) { c.JSONReport = true; c.MarkdownReport = true }, ErrConflictingReportFormats},
		{"negative body size", func(c *Config) { c.MaxBodySize = -1 }, ErrInvalidMaxBodySize},
		{"negative rate limit", func(c *Config) { c.RateLimit = -1 }, ErrInvalidRateLimit},
		{"negative probe budget", func(c *Config) { c.ProbeBudget = -1 }, ErrInvalidProbeLimits},
		{"zero probe workers", func(c *Config) { c.ProbeWorkers = 0 }, ErrInvalidProbeLimits},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			cfg := NewConfig()
			tc.modify(cfg)

			err := cfg.Validate()
			if tc.wantErr == nil {
				if err != nil {
					t.Errorf("expected nil, got %v", err)
				}
				return
			}
			if !errors.Is(err, tc.wantErr) {
				t.Errorf("expected %v, got %v", tc.wantErr, err)
			}
		})
	}
}

// TestConfigValidateScan tests the scan-specific target check.
func TestConfigValidateScan(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	if err := cfg.ValidateScan(); !errors.Is(err, ErrNoTarget) {
		t.Errorf("expected ErrNoTarget, got %v", err)
	}

	cfg.Targets = []string{"https://example.com/"}
	if err := cfg.ValidateScan(); err != nil {
		t.Errorf("expected nil, got %v", err)
	}

	cfg.Timeout = 0
	if err := cfg.ValidateScan(); !errors.Is(err, ErrInvalidTimeout) {
		t.Errorf("expected ErrInvalidTimeout, got %v", err)
	}
}

// TestFileGetSiteConfig tests merging of site-specific configuration over defaults.
func TestFileGetSiteConfig(t *testing.T) {
	t.Parallel()

	file := &File{
		Defaults: SiteConfig{
			Cookie:  "default=abc",
			Depth:   3,
			Headers: map[string]string{"X-Team": "qa"},
		},
		Sites: map[string]SiteConfig{
			"app.example.com": {
				Cookie:         "session=xyz",
				MaxPages:       20,
				Headers:        map[string]string{"Authorization": "Bearer token"},
				IgnorePatterns: []string{"/logout*"},
			},
			"Localhost:8080": {
				Depth: 1,
			},
		},
	}

	t.Run("site overrides defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("app.example.com")
		if got.Cookie != "session=xyz" {
			t.Errorf("Cookie = %q", got.Cookie)
		}
		if got.Depth != 3 {
			t.Errorf("Depth = %d, expected default 3", got.Depth)
		}
		if got.MaxPages != 20 {
			t.Errorf("MaxPages = %d, expected 20", got.MaxPages)
		}
		if got.Headers["X-Team"] != "qa" || got.Headers["Authorization"] != "Bearer token" {
			t.Errorf("Headers = %v, expected merged headers", got.Headers)
		}
		if len(got.IgnorePatterns) != 1 {
			t.Errorf("IgnorePatterns = %v", got.IgnorePatterns)
		}
	})

	t.Run("merging does not mutate defaults", func(t *testing.T) {
		t.Parallel()

		_ = file.GetSiteConfig("app.example.com")
		if _, ok := file.Defaults.Headers["Authorization"]; ok {
			t.Error("defaults were mutated by merge")
		}
	})

	t.Run("host match is case-insensitive", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("localhost:8080")
		if got.Depth != 1 {
			t.Errorf("Depth = %d, expected 1", got.Depth)
		}
	})

	t.Run("unknown host gets defaults", func(t *testing.T) {
		t.Parallel()

		got := file.GetSiteConfig("other.example.com")
		if got.Cookie != "default=abc" || got.Depth != 3 {
			t.Errorf("expected defaults, got %+v", got)
		}
	})
}

// TestConfigScanOptions tests building per-target scan options.
func TestConfigScanOptions(t *testing.T) {
	t.Parallel()

	cfg := NewConfig()
	cfg.SiteConfigs = &File{
		Sites: map[string]SiteConfig{
			"app.example.com": {Depth: 2, MaxPages: 10, Cookie: "session=xyz"},
		},
	}

	opts := cfg.ScanOptions("https://APP.example.com/login")
	if opts.MaxDepth != 2 || opts.MaxPages != 10 {
		t.Errorf("expected site overrides, got depth %d pages %d", opts.MaxDepth, opts.MaxPages)
	}
	if opts.Cookie != "session=xyz" {
		t.Errorf("Cookie = %q", opts.Cookie)
	}
	if !opts.SameOriginOnly {
		t.Error("expected same-origin scope by default")
	}

	other := cfg.ScanOptions("https://other.example.com/")
	if other.MaxDepth != DefaultCrawlDepth || other.MaxPages != DefaultMaxPages {
		t.Errorf("expected global limits, got depth %d pages %d", other.MaxDepth, other.MaxPages)
	}

	cfg.CrossOrigin = true
	if cfg.ScanOptions("https://other.example.com/").SameOriginOnly {
		t.Error("expected CrossOrigin to disable same-origin scope")
	}
}

// TestLoadConfigFile tests the LoadConfigFile function.
func TestLoadConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns ErrConfigNotFound for non-existent file", func(t *testing.T) {
		t.Parallel()

		cfg, err := LoadConfigFile("/nonexistent/path/.devscan")
		if !errors.Is(err, ErrConfigNotFound) {
			t.Fatalf("expected ErrConfigNotFound, got: %v", err)
		}
		if cfg != nil {
			t.Error("expected nil config when file not found")
		}
	})

	t.Run("loads valid YAML config", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".devscan")
		content := `defaults:
  depth: 4
  cookie: "default=abc"
sites:
  shop.example.com:
    depth: 2
    maxPages: 50
    cookie: "session=xyz"
    headers:
      Authorization: "Bearer token"
    ignorePatterns:
      - "/logout*"
    followPatterns:
      - "/catalog/*"
`
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Defaults.Depth != 4 {
			t.Errorf("expected default depth 4, got %d", cfg.Defaults.Depth)
		}
		site, ok := cfg.Sites["shop.example.com"]
		if !ok {
			t.Fatal("expected shop.example.com in sites")
		}
		if site.MaxPages != 50 {
			t.Errorf("expected maxPages 50, got %d", site.MaxPages)
		}
		if site.Headers["Authorization"] != "Bearer token" {
			t.Error("expected Authorization header")
		}
		if len(site.FollowPatterns) != 1 {
			t.Errorf("expected 1 follow pattern, got %d", len(site.FollowPatterns))
		}
	})

	t.Run("returns error for invalid YAML", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".devscan")
		if err := os.WriteFile(configPath, []byte(`invalid: yaml: content: [}`), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if _, err := LoadConfigFile(configPath); err == nil {
			t.Error("expected error for invalid YAML")
		}
	})

	t.Run("initializes nil Sites map", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), ".devscan")
		if err := os.WriteFile(configPath, []byte("defaults:\n  depth: 2\n"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg, err := LoadConfigFile(configPath)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.Sites == nil {
			t.Error("expected Sites map to be initialized")
		}
	})
}

// TestFindConfigFile tests the FindConfigFile function.
func TestFindConfigFile(t *testing.T) {
	t.Parallel()

	t.Run("returns explicit path if exists", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "custom.yaml")
		if err := os.WriteFile(configPath, []byte("defaults: {}"), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		if result := FindConfigFile(configPath); result != configPath {
			t.Errorf("expected %q, got %q", configPath, result)
		}
	})

	t.Run("returns empty for non-existent explicit path", func(t *testing.T) {
		t.Parallel()

		if result := FindConfigFile("/nonexistent/path/config.yaml"); result != "" {
			t.Errorf("expected empty string, got %q", result)
		}
	})
}

// TestLoad tests resolving the config file into a Config.
func TestLoad(t *testing.T) {
	t.Parallel()

	t.Run("explicit missing file is an error", func(t *testing.T) {
		t.Parallel()

		cfg := NewConfig()
		cfg.ConfigFilePath = "/nonexistent/path/.devscan"
		if err := Load(cfg); !errors.Is(err, ErrConfigNotFound) {
			t.Errorf("expected ErrConfigNotFound, got %v", err)
		}
	})

	t.Run("explicit file is loaded", func(t *testing.T) {
		t.Parallel()

		configPath := filepath.Join(t.TempDir(), "devscan.yaml")
		content := "sites:\n  localhost:8080:\n    depth: 1\n"
		if err := os.WriteFile(configPath, []byte(content), 0600); err != nil {
			t.Fatalf("failed to write test config: %v", err)
		}

		cfg := NewConfig()
		cfg.ConfigFilePath = configPath
		if err := Load(cfg); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if cfg.SiteFor("http://localhost:8080/").Depth != 1 {
			t.Error("expected site config to be loaded")
		}
	})
}

// TestXDGConfigDir tests the XDG config directory helpers.
func TestXDGConfigDir(t *testing.T) {
	t.Parallel()

	dir := XDGConfigDir()
	if dir == "" || filepath.Base(dir) != AppName {
		t.Errorf("unexpected XDG config dir %q", dir)
	}
	if filepath.Dir(XDGConfigFile()) != dir {
		t.Errorf("config file %q not inside %q", XDGConfigFile(), dir)
	}
}
