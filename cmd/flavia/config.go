// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/viper"

	"github.com/pdiddy/flavia/internal/logging"
	"github.com/pdiddy/flavia/pkg/types"
)

// setDefaults registers every configuration key with its default value so
// that environment variables and Unmarshal see the full key set.
func setDefaults(v *viper.Viper) {
	d := types.DefaultConfig()

	v.SetDefault("server.addr", d.Server.Addr)
	v.SetDefault("server.max_upload_bytes", d.Server.MaxUploadBytes)
	v.SetDefault("server.session_ttl", d.Server.SessionTTL)
	v.SetDefault("server.sweep_interval", d.Server.SweepInterval)
	v.SetDefault("server.shutdown_timeout", d.Server.ShutdownTimeout)

	v.SetDefault("segmenter.backend", string(d.Segmenter.Backend))
	v.SetDefault("segmenter.pdftotext_path", d.Segmenter.PdftotextPath)
	v.SetDefault("segmenter.markitdown_image", d.Segmenter.MarkitdownImage)
	v.SetDefault("segmenter.timeout", d.Segmenter.Timeout)

	v.SetDefault("store.backend", string(d.Store.Backend))
	v.SetDefault("store.dsn", d.Store.DSN)

	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// loadConfig decodes v into a Config. Flags bound to empty values fall
// back to the defaults.
func loadConfig(v *viper.Viper) (types.Config, error) {
	var cfg types.Config
	if err := v.Unmarshal(&cfg); err != nil {
		return types.Config{}, fmt.Errorf("decoding config: %w", err)
	}

	d := types.DefaultConfig()
	if cfg.Log.Level == "" {
		cfg.Log.Level = d.Log.Level
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = d.Log.Format
	}
	if cfg.Segmenter.Backend == "" {
		cfg.Segmenter.Backend = d.Segmenter.Backend
	}
	if cfg.Store.Backend == "" {
		cfg.Store.Backend = d.Store.Backend
	}
	return cfg, nil
}

// newLogger builds the process logger from cfg, writing to stderr.
func newLogger(cfg types.LogConfig) (*slog.Logger, error) {
	return logging.New(os.Stderr, cfg.Level, cfg.Format)
}
