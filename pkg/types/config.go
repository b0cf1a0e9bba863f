// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// ServerConfig holds settings for the HTTP service.
type ServerConfig struct {
	// Addr is the listen address (e.g. ":8050").
	Addr string `json:"addr" yaml:"addr" mapstructure:"addr"`

	// MaxUploadBytes caps the size of an uploaded paper (default 32 MiB).
	MaxUploadBytes int64 `json:"max_upload_bytes" yaml:"max_upload_bytes" mapstructure:"max_upload_bytes"`

	// SessionTTL is how long an idle session survives before it is swept.
	SessionTTL time.Duration `json:"session_ttl" yaml:"session_ttl" mapstructure:"session_ttl"`

	// SweepInterval is how often idle sessions are looked for.
	SweepInterval time.Duration `json:"sweep_interval" yaml:"sweep_interval" mapstructure:"sweep_interval"`

	// ShutdownTimeout bounds graceful shutdown of in-flight requests.
	ShutdownTimeout time.Duration `json:"shutdown_timeout" yaml:"shutdown_timeout" mapstructure:"shutdown_timeout"`
}

// ExtractionBackend identifies the tool that turns an upload into text.
type ExtractionBackend string

const (
	BackendNative     ExtractionBackend = "native"
	BackendPdftotext  ExtractionBackend = "pdftotext"
	BackendMarkitdown ExtractionBackend = "markitdown"
	BackendPlain      ExtractionBackend = "plain"
)

// SegmenterConfig holds settings for text extraction and sentence splitting.
type SegmenterConfig struct {
	// Backend selects the extraction tool: native, pdftotext, markitdown, or plain.
	Backend ExtractionBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// PdftotextPath is the poppler pdftotext binary used by the pdftotext backend.
	PdftotextPath string `json:"pdftotext_path" yaml:"pdftotext_path" mapstructure:"pdftotext_path"`

	// MarkitdownImage is the container image used by the markitdown backend.
	MarkitdownImage string `json:"markitdown_image" yaml:"markitdown_image" mapstructure:"markitdown_image"`

	// Timeout bounds a single extraction run.
	Timeout time.Duration `json:"timeout" yaml:"timeout" mapstructure:"timeout"`
}

// StoreBackend identifies where session snapshots live while a session is active.
type StoreBackend string

const (
	StoreMemory StoreBackend = "memory"
	StoreSQLite StoreBackend = "sqlite"
)

// StoreConfig holds settings for the session store.
type StoreConfig struct {
	// Backend selects memory or sqlite.
	Backend StoreBackend `json:"backend" yaml:"backend" mapstructure:"backend"`

	// DSN is the SQLite data source. The default is a private in-memory
	// database, so nothing outlives the process.
	DSN string `json:"dsn" yaml:"dsn" mapstructure:"dsn"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `json:"level" yaml:"level" mapstructure:"level"`

	// Format is text or json.
	Format string `json:"format" yaml:"format" mapstructure:"format"`
}

// Config groups all service configuration.
type Config struct {
	Server    ServerConfig    `json:"server" yaml:"server" mapstructure:"server"`
	Segmenter SegmenterConfig `json:"segmenter" yaml:"segmenter" mapstructure:"segmenter"`
	Store     StoreConfig     `json:"store" yaml:"store" mapstructure:"store"`
	Log       LogConfig       `json:"log" yaml:"log" mapstructure:"log"`
}

// DefaultConfig returns the configuration used when no file, flag, or
// environment variable overrides a value.
func DefaultConfig() Config {
	return Config{
		Server: ServerConfig{
			Addr:            ":8050",
			MaxUploadBytes:  32 << 20,
			SessionTTL:      2 * time.Hour,
			SweepInterval:   5 * time.Minute,
			ShutdownTimeout: 5 * time.Second,
		},
		Segmenter: SegmenterConfig{
			Backend:         BackendNative,
			PdftotextPath:   "pdftotext",
			MarkitdownImage: "markitdown:latest",
			Timeout:         2 * time.Minute,
		},
		Store: StoreConfig{
			Backend: StoreMemory,
			DSN:     ":memory:",
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}
