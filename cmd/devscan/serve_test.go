package main

import (
	"testing"

	"github.com/nao1215/devscan/internal/config"
)

// TestNewServeCmd tests the serve command creation.
func TestNewServeCmd(t *testing.T) {
	t.Parallel()

	cmd := NewServeCmd()

	t.Run("has addr flag", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("addr")
		if flag == nil {
			t.Fatal("expected addr flag")
		}
		if flag.DefValue != config.DefaultListenAddress {
			t.Errorf("expected default %q, got %q", config.DefaultListenAddress, flag.DefValue)
		}
	})

	t.Run("exposes metrics by default", func(t *testing.T) {
		t.Parallel()
		flag := cmd.Flags().Lookup("metrics")
		if flag == nil || flag.DefValue != "true" {
			t.Fatalf("expected metrics flag defaulting to true, got %+v", flag)
		}
	})

	t.Run("shares crawl flags with scan", func(t *testing.T) {
		t.Parallel()
		for _, name := range []string{"depth", "max-pages", "timeout", "budget", "rate-limit", "config"} {
			if cmd.Flags().Lookup(name) == nil {
				t.Errorf("expected %s flag", name)
			}
		}
	})
}

// TestRunServeCmdRejectsInvalidConfig tests validation before listening.
func TestRunServeCmdRejectsInvalidConfig(t *testing.T) {
	t.Parallel()

	_, _, err := runCLI(t, "serve", "-c", "/nonexistent/devscan.yaml")
	if err == nil {
		t.Fatal("expected error for missing config file")
	}

	_, _, err = runCLI(t, "serve", "-p", "0")
	if err == nil {
		t.Fatal("expected error for zero max pages")
	}
}
