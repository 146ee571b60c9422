package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeTemplateHIR(t *testing.T) string {
	t.Helper()
	var stdout, stderr bytes.Buffer
	code := Run([]string{"hircompile", "alphahir", "new"}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("alphahir new exited %d: %s", code, stderr.String())
	}
	path := filepath.Join(t.TempDir(), "simple_return.json")
	if err := os.WriteFile(path, stdout.Bytes(), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestCLILintOnValidHIR(t *testing.T) {
	path := writeTemplateHIR(t)
	var stdout, stderr bytes.Buffer
	code := Run([]string{"hircompile", "lint", path}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("lint exited %d: %s", code, stderr.String())
	}
	var report map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &report); err != nil {
		t.Fatalf("lint output not JSON: %v", err)
	}
	if ok, _ := report["OK"].(bool); !ok {
		t.Errorf("expected OK admissibility report, got %v", report)
	}
}

func TestCLIInitCreatesWorkspace(t *testing.T) {
	workDir := t.TempDir()
	cfgPath := filepath.Join(workDir, "hircompile.yaml")
	wsDir := filepath.Join(workDir, "ws")
	if err := os.WriteFile(cfgPath, []byte("workspace_dir: "+wsDir+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{"hircompile", "init", "--config", cfgPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("init exited %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(filepath.Join(wsDir, "objects")); err != nil {
		t.Errorf("expected objects dir to exist: %v", err)
	}
}

func TestCLIRunProducesCanaryReceipt(t *testing.T) {
	hirPath := writeTemplateHIR(t)
	workDir := t.TempDir()
	cfgPath := filepath.Join(workDir, "hircompile.yaml")
	wsDir := filepath.Join(workDir, "ws")
	if err := os.WriteFile(cfgPath, []byte("workspace_dir: "+wsDir+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var stdout, stderr bytes.Buffer
	code := Run([]string{"hircompile", "run", "--config", cfgPath, hirPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("run exited %d: %s", code, stderr.String())
	}

	var result map[string]any
	if err := json.Unmarshal(stdout.Bytes(), &result); err != nil {
		t.Fatalf("run output not JSON: %v", err)
	}
	if result["hid_struct"] == "" || result["hid_struct"] == nil {
		t.Errorf("expected non-empty hid_struct in output: %v", result)
	}
}

func TestCLIBundleWritesZip(t *testing.T) {
	hirPath := writeTemplateHIR(t)
	workDir := t.TempDir()
	cfgPath := filepath.Join(workDir, "hircompile.yaml")
	wsDir := filepath.Join(workDir, "ws")
	if err := os.WriteFile(cfgPath, []byte("workspace_dir: "+wsDir+"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	bundlePath := filepath.Join(workDir, "out.zip")

	var stdout, stderr bytes.Buffer
	code := Run([]string{"hircompile", "bundle", "--config", cfgPath, "--out", bundlePath, hirPath}, &stdout, &stderr)
	if code != 0 {
		t.Fatalf("bundle exited %d: %s", code, stderr.String())
	}
	if _, err := os.Stat(bundlePath); err != nil {
		t.Errorf("expected bundle file to exist: %v", err)
	}
}

func TestCLIUnknownSubcommand(t *testing.T) {
	var stdout, stderr bytes.Buffer
	code := Run([]string{"hircompile", "frobnicate"}, &stdout, &stderr)
	if code != 2 {
		t.Errorf("expected exit code 2 for unknown subcommand, got %d", code)
	}
}
