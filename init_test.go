package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phobologic/jimbo/internal/config"
)

// TestGenerateConfigLoads verifies that the generated file loads back to the
// defaults.
func TestGenerateConfigLoads(t *testing.T) {
	t.Parallel()
	content, err := generateConfig(config.Default())
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(content, "# jimbo configuration.") {
		t.Errorf("missing header:\n%s", content)
	}

	path := filepath.Join(t.TempDir(), "jimbo.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Session != config.Default().Session {
		t.Errorf("session = %+v, want defaults", cfg.Session)
	}
}

// TestInitDryRun verifies that --dry-run prints the config and writes nothing.
func TestInitDryRun(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, "out.yaml")

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"init", "--dry-run", "-c", filepath.Join(dir, "none.yaml"), path},
		nil, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stdout.String(), "settle: 3s") {
		t.Errorf("dry run output missing settle:\n%s", stdout.String())
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("--dry-run should not create the file")
	}
}

// TestInitWritesFile verifies that init creates the file and refuses to
// overwrite it without --force.
func TestInitWritesFile(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()
	path := filepath.Join(dir, ".jimbo.yaml")
	cfgFlag := []string{"-c", filepath.Join(dir, "none.yaml")}

	var stdout, stderr bytes.Buffer
	if err := run(context.Background(), append([]string{"init", path}, cfgFlag...), nil, &stdout, &stderr); err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if !strings.Contains(stderr.String(), "wrote default config") {
		t.Errorf("stderr missing confirmation: %s", stderr.String())
	}
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(string(data), "click_hold: 4s") {
		t.Errorf("file missing click_hold:\n%s", data)
	}

	if err := os.WriteFile(path, []byte("# mine\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = run(context.Background(), append([]string{"init", path}, cfgFlag...), nil, &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Fatalf("expected already exists error, got %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) != "# mine\n" {
		t.Error("existing file was modified")
	}

	if err := run(context.Background(), append([]string{"init", "--force", path}, cfgFlag...), nil, &stdout, &stderr); err != nil {
		t.Fatalf("run --force: %v", err)
	}
	if data, _ := os.ReadFile(path); string(data) == "# mine\n" {
		t.Error("--force did not overwrite")
	}
}

// TestInitRepairsBrokenConfig verifies that init --force can replace a config
// file that no longer loads.
func TestInitRepairsBrokenConfig(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), ".jimbo.yaml")
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	err := run(context.Background(), []string{"init", "--force", "-c", path, path}, nil, &stdout, &stderr)
	if err != nil {
		t.Fatalf("run: %v\nstderr: %s", err, stderr.String())
	}
	if _, err := config.Load(path); err != nil {
		t.Errorf("rewritten config does not load: %v", err)
	}

	// other commands still refuse the broken file
	if err := os.WriteFile(path, []byte("logging:\n  level: loud\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	err = run(context.Background(), []string{"classify", "-c", path}, strings.NewReader("x"), &stdout, &stderr)
	if err == nil || !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("classify err = %v, want invalid config", err)
	}
}
