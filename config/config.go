package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/wudi/pdfworks/observability"
	"github.com/wudi/pdfworks/storage"
)

type Config struct {
	Server    ServerConfig            `yaml:"server"`
	Storage   StorageConfig           `yaml:"storage"`
	Retention RetentionConfig         `yaml:"retention"`
	OCR       OCRConfig               `yaml:"ocr"`
	Log       observability.LogConfig `yaml:"log"`
}

type ServerConfig struct {
	Port            int           `yaml:"port"`
	MaxUploadMB     int           `yaml:"max_upload_mb"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// MaxUploadBytes returns the upload limit in bytes.
func (s ServerConfig) MaxUploadBytes() int64 {
	return int64(s.MaxUploadMB) << 20
}

type StorageConfig struct {
	Backend     string              `yaml:"backend"` // fs, minio
	ScratchDir  string              `yaml:"scratch_dir"`
	OutputDir   string              `yaml:"output_dir"`
	RecordsFile string              `yaml:"records_file"`
	Minio       storage.MinioConfig `yaml:"minio"`
}

type RetentionConfig struct {
	Days          int           `yaml:"days"`
	SweepInterval time.Duration `yaml:"sweep_interval"`
}

// Duration returns the retention window.
func (r RetentionConfig) Duration() time.Duration {
	return time.Duration(r.Days) * 24 * time.Hour
}

type OCRConfig struct {
	Languages []string `yaml:"languages"`
	DPI       int      `yaml:"dpi"`
	MaxSide   int      `yaml:"max_side"`
	Renderer  string   `yaml:"renderer"` // path to pdftoppm
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	cfg := &Config{}
	cfg.setDefaults()
	return cfg
}

// Load reads the YAML file at path, fills defaults and applies PDFWORKS_*
// environment overrides. An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	var cfg Config
	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, fs.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("config: read %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("config: parse %s: %w", path, err)
			}
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	cfg.setDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) setDefaults() {
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
	if c.Server.MaxUploadMB == 0 {
		c.Server.MaxUploadMB = 50
	}
	if c.Server.ShutdownTimeout == 0 {
		c.Server.ShutdownTimeout = 10 * time.Second
	}
	if c.Storage.Backend == "" {
		c.Storage.Backend = "fs"
	}
	if c.Storage.ScratchDir == "" {
		c.Storage.ScratchDir = "data/temp"
	}
	if c.Storage.OutputDir == "" {
		c.Storage.OutputDir = "data/outputs"
	}
	if c.Storage.RecordsFile == "" {
		c.Storage.RecordsFile = "data/records.json"
	}
	if c.Storage.Minio.Bucket == "" {
		c.Storage.Minio.Bucket = "pdfworks"
	}
	if c.Retention.Days == 0 {
		c.Retention.Days = 30
	}
	if c.Retention.SweepInterval == 0 {
		c.Retention.SweepInterval = time.Hour
	}
	if len(c.OCR.Languages) == 0 {
		c.OCR.Languages = []string{"tur", "eng"}
	}
	if c.OCR.DPI == 0 {
		c.OCR.DPI = 200
	}
	if c.OCR.MaxSide == 0 {
		c.OCR.MaxSide = 2000
	}
	if c.OCR.Renderer == "" {
		c.OCR.Renderer = "pdftoppm"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	str := map[string]*string{
		"PDFWORKS_SCRATCH_DIR":      &c.Storage.ScratchDir,
		"PDFWORKS_OUTPUT_DIR":       &c.Storage.OutputDir,
		"PDFWORKS_RECORDS_FILE":     &c.Storage.RecordsFile,
		"PDFWORKS_STORAGE_BACKEND":  &c.Storage.Backend,
		"PDFWORKS_MINIO_ENDPOINT":   &c.Storage.Minio.Endpoint,
		"PDFWORKS_MINIO_ACCESS_KEY": &c.Storage.Minio.AccessKey,
		"PDFWORKS_MINIO_SECRET_KEY": &c.Storage.Minio.SecretKey,
		"PDFWORKS_LOG_LEVEL":        &c.Log.Level,
		"PDFWORKS_LOG_FORMAT":       &c.Log.Format,
	}
	for key, dst := range str {
		if v, ok := lookup(key); ok && v != "" {
			*dst = v
		}
	}
	ints := map[string]*int{
		"PDFWORKS_PORT":           &c.Server.Port,
		"PDFWORKS_MAX_UPLOAD_MB":  &c.Server.MaxUploadMB,
		"PDFWORKS_RETENTION_DAYS": &c.Retention.Days,
	}
	for key, dst := range ints {
		v, ok := lookup(key)
		if !ok || v == "" {
			continue
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("config: %s: %w", key, err)
		}
		*dst = n
	}
	if v, ok := lookup("PDFWORKS_OCR_LANGUAGES"); ok && v != "" {
		c.OCR.Languages = splitList(v)
	}
	return nil
}

func splitList(v string) []string {
	var out []string
	for _, s := range strings.FieldsFunc(v, func(r rune) bool { return r == ',' || r == '+' }) {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// Validate rejects settings the server cannot start with.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "fs":
	case "minio":
		if c.Storage.Minio.Endpoint == "" {
			return errors.New("config: storage.minio.endpoint is required for the minio backend")
		}
	default:
		return fmt.Errorf("config: unknown storage backend %q", c.Storage.Backend)
	}
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		return fmt.Errorf("config: invalid port %d", c.Server.Port)
	}
	if c.Server.MaxUploadMB < 0 {
		return fmt.Errorf("config: invalid max_upload_mb %d", c.Server.MaxUploadMB)
	}
	if c.Retention.Days < 0 {
		return fmt.Errorf("config: invalid retention days %d", c.Retention.Days)
	}
	if c.OCR.DPI < 0 {
		return fmt.Errorf("config: invalid ocr dpi %d", c.OCR.DPI)
	}
	return nil
}
