package config

import (
	"os"
	"path/filepath"
	"reflect"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("Failed to write config: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	path := writeConfig(t, `
server:
  port: 9090
  max_upload_mb: 10
  shutdown_timeout: 5s
storage:
  backend: minio
  scratch_dir: /tmp/scratch
  minio:
    endpoint: "localhost:9000"
    access_key: "minioadmin"
    secret_key: "minioadmin"
    bucket: "outputs"
retention:
  days: 7
  sweep_interval: 15m
ocr:
  languages: [eng]
  dpi: 300
log:
  level: debug
  format: json
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 9090 {
		t.Errorf("Expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadBytes() != 10<<20 {
		t.Errorf("Expected 10 MiB upload limit, got %d", cfg.Server.MaxUploadBytes())
	}
	if cfg.Server.ShutdownTimeout != 5*time.Second {
		t.Errorf("Expected shutdown timeout 5s, got %v", cfg.Server.ShutdownTimeout)
	}
	if cfg.Storage.Backend != "minio" || cfg.Storage.Minio.Endpoint != "localhost:9000" || cfg.Storage.Minio.Bucket != "outputs" {
		t.Errorf("Unexpected storage config %+v", cfg.Storage)
	}
	if cfg.Storage.OutputDir != "data/outputs" {
		t.Errorf("Expected default output dir, got %s", cfg.Storage.OutputDir)
	}
	if cfg.Retention.Duration() != 7*24*time.Hour || cfg.Retention.SweepInterval != 15*time.Minute {
		t.Errorf("Unexpected retention %+v", cfg.Retention)
	}
	if !reflect.DeepEqual(cfg.OCR.Languages, []string{"eng"}) || cfg.OCR.DPI != 300 {
		t.Errorf("Unexpected OCR config %+v", cfg.OCR)
	}
	if cfg.Log.Level != "debug" || cfg.Log.Format != "json" {
		t.Errorf("Unexpected log config %+v", cfg.Log)
	}
}

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, "{}\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Server.MaxUploadMB != 50 {
		t.Errorf("Expected default upload limit 50, got %d", cfg.Server.MaxUploadMB)
	}
	if cfg.Retention.Days != 30 || cfg.Retention.SweepInterval != time.Hour {
		t.Errorf("Unexpected default retention %+v", cfg.Retention)
	}
	if !reflect.DeepEqual(cfg.OCR.Languages, []string{"tur", "eng"}) || cfg.OCR.DPI != 200 {
		t.Errorf("Unexpected default OCR config %+v", cfg.OCR)
	}
	if cfg.Storage.Backend != "fs" {
		t.Errorf("Expected fs backend, got %s", cfg.Storage.Backend)
	}
	if !reflect.DeepEqual(cfg, Default()) {
		t.Errorf("Empty file should match Default()")
	}
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err != nil {
		t.Fatalf("Missing file should yield defaults, got %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("Expected default port, got %d", cfg.Server.Port)
	}
}

func TestLoadInvalid(t *testing.T) {
	tests := map[string]string{
		"bad yaml":        "server: [",
		"unknown backend": "storage:\n  backend: s3\n",
		"minio no host":   "storage:\n  backend: minio\n",
		"bad port":        "server:\n  port: 70000\n",
	}
	for name, content := range tests {
		t.Run(name, func(t *testing.T) {
			if _, err := Load(writeConfig(t, content)); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestApplyEnv(t *testing.T) {
	env := map[string]string{
		"PDFWORKS_SCRATCH_DIR":   "/scratch",
		"PDFWORKS_PORT":          "9000",
		"PDFWORKS_OCR_LANGUAGES": "deu+eng",
	}
	lookup := func(k string) (string, bool) { v, ok := env[k]; return v, ok }

	var cfg Config
	if err := cfg.applyEnv(lookup); err != nil {
		t.Fatalf("applyEnv: %v", err)
	}
	if cfg.Storage.ScratchDir != "/scratch" || cfg.Server.Port != 9000 {
		t.Errorf("Overrides not applied: %+v", cfg)
	}
	if !reflect.DeepEqual(cfg.OCR.Languages, []string{"deu", "eng"}) {
		t.Errorf("Unexpected languages %v", cfg.OCR.Languages)
	}

	env["PDFWORKS_PORT"] = "eighty"
	if err := cfg.applyEnv(lookup); err == nil {
		t.Errorf("Expected error for non-numeric port")
	}
}

func TestLoadEnvOverridesFile(t *testing.T) {
	t.Setenv("PDFWORKS_OUTPUT_DIR", "/srv/outputs")
	cfg, err := Load(writeConfig(t, "storage:\n  output_dir: /var/out\n"))
	if err != nil {
		t.Fatalf("Failed to load config: %v", err)
	}
	if cfg.Storage.OutputDir != "/srv/outputs" {
		t.Errorf("Expected env override, got %s", cfg.Storage.OutputDir)
	}
}
