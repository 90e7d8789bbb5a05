package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

type testConfig struct {
	MaxToolRounds int           `split_words:"true" default:"5"`
	ReasonTimeout time.Duration `split_words:"true" default:"60s"`
	Name          string        `envconfig:"NAME"`
}

// Not parallel: these tests mutate the process environment.

func TestExportEnvironmentKeepsProcessValues(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.env")
	content := "CFGTEST_NAME=from-file\nCFGTEST_MAX_TOOL_ROUNDS=3\n"
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write env file: %v", err)
	}

	t.Setenv("CFGTEST_NAME", "from-process")
	t.Setenv("CFGTEST_MAX_TOOL_ROUNDS", "")
	os.Unsetenv("CFGTEST_MAX_TOOL_ROUNDS")

	if err := exportEnvironment(path); err != nil {
		t.Fatalf("exportEnvironment() error = %v", err)
	}
	if got := os.Getenv("CFGTEST_NAME"); got != "from-process" {
		t.Fatalf("process value was overwritten: %q", got)
	}
	if got := os.Getenv("CFGTEST_MAX_TOOL_ROUNDS"); got != "3" {
		t.Fatalf("file value not exported: %q", got)
	}
}

func TestNewAppliesDefaults(t *testing.T) {
	t.Setenv("CFGDEFAULT_NAME", "agent")

	conf, err := New[testConfig]("CFGDEFAULT")
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if conf.Name != "agent" || conf.MaxToolRounds != 5 || conf.ReasonTimeout != time.Minute {
		t.Fatalf("unexpected config: %+v", conf)
	}
}
