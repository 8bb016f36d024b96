package fsprovider

import (
	"testing"
	"time"
)

func TestLoadConfigDefaults(t *testing.T) {
	for _, env := range []string{envRoot, envWatch, envStepDelay} {
		t.Setenv(env, "")
	}

	cfg := LoadConfig()

	if cfg.Root != DefaultRoot {
		t.Errorf("Root = %q, want %q", cfg.Root, DefaultRoot)
	}
	if cfg.Watch {
		t.Error("Watch should be false by default")
	}
	if cfg.StepDelay != 0 {
		t.Errorf("StepDelay = %v, want 0", cfg.StepDelay)
	}
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	t.Setenv(envRoot, "/srv/scenes")
	t.Setenv(envWatch, "1")
	t.Setenv(envStepDelay, "25ms")

	cfg := LoadConfig()

	if cfg.Root != "/srv/scenes" {
		t.Errorf("Root = %q, want /srv/scenes", cfg.Root)
	}
	if !cfg.Watch {
		t.Error("Watch should be true")
	}
	if cfg.StepDelay != 25*time.Millisecond {
		t.Errorf("StepDelay = %v, want 25ms", cfg.StepDelay)
	}
}

func TestLoadConfigInvalidStepDelayIgnored(t *testing.T) {
	t.Setenv(envStepDelay, "soon")

	if cfg := LoadConfig(); cfg.StepDelay != 0 {
		t.Errorf("StepDelay = %v, want 0", cfg.StepDelay)
	}
}
