// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pdiddy/flavia/internal/segment"
	"github.com/pdiddy/flavia/internal/store"
	"github.com/pdiddy/flavia/pkg/types"
)

func TestLoadConfigDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, types.DefaultConfig(), cfg)
}

func TestLoadConfigFileAndEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "flavia.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
server:
  addr: ":9000"
  session_ttl: 30m
segmenter:
  backend: pdftotext
store:
  backend: sqlite
  dsn: /tmp/flavia-test.db
`), 0o644))
	t.Setenv("FLAVIA_LOG_LEVEL", "debug")

	v := viper.New()
	v.SetConfigFile(path)
	setDefaults(v)
	v.SetEnvPrefix("FLAVIA")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	require.NoError(t, v.ReadInConfig())

	cfg, err := loadConfig(v)
	require.NoError(t, err)
	assert.Equal(t, ":9000", cfg.Server.Addr)
	assert.Equal(t, 30*time.Minute, cfg.Server.SessionTTL)
	assert.Equal(t, 5*time.Minute, cfg.Server.SweepInterval, "unset keys keep defaults")
	assert.Equal(t, types.BackendPdftotext, cfg.Segmenter.Backend)
	assert.Equal(t, types.StoreSQLite, cfg.Store.Backend)
	assert.Equal(t, "/tmp/flavia-test.db", cfg.Store.DSN)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestOpenStore(t *testing.T) {
	ctx := context.Background()

	s, err := openStore(ctx, types.StoreConfig{Backend: types.StoreMemory})
	require.NoError(t, err)
	assert.IsType(t, &store.Memory{}, s)

	s, err = openStore(ctx, types.StoreConfig{Backend: types.StoreSQLite, DSN: ":memory:"})
	require.NoError(t, err)
	assert.IsType(t, &store.SQLite{}, s)
	require.NoError(t, s.Close())

	_, err = openStore(ctx, types.StoreConfig{Backend: "redis"})
	assert.Error(t, err)
}

func TestPrintSentences(t *testing.T) {
	result := segment.BatchResult{
		Files: []segment.FileResult{
			{Path: "a.txt", Sentences: []string{"One.", "Two."}},
			{Path: "b.pdf", Err: errors.New("broken")},
		},
		Segmented: 1,
		Failed:    1,
	}

	var buf bytes.Buffer
	printSentences(&buf, result)
	assert.Equal(t, "== a.txt ==\n0\tOne.\n1\tTwo.\n", buf.String())

	buf.Reset()
	printSentences(&buf, segment.BatchResult{Files: result.Files[:1]})
	assert.Equal(t, "0\tOne.\n1\tTwo.\n", buf.String())
}
