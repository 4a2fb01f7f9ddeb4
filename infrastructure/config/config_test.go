package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"kujisan/application/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeFile(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestDefaultIsValid(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())

	assert.Equal(t, 170.0, cfg.Layout.NodeWidth)
	assert.Equal(t, 70.0, cfg.Layout.NodeHeight)
	assert.Equal(t, 60.0, cfg.Layout.NodeSpacing)
	assert.Equal(t, 100.0, cfg.Layout.LayerSpacing)
	assert.Equal(t, BranchCacheRefetch, cfg.Tree.BranchCache)
	assert.Equal(t, "production", cfg.CMS.Dataset)
	assert.False(t, cfg.CMS.UseCDN)
}

func TestLoadConfigLayersFileThenEnv(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tree.yaml", `
environment: staging
source:
  kind: sanity
cms:
  project_id: abc123
  timeout: 3s
tree:
  branch_cache: cache
  session_ttl: 10m
layout:
  placement: linear
`)

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("SANITY_DATASET", "staging")
	t.Setenv("MAX_SESSIONS", "5")

	cfg, err := LoadConfig()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.Environment)
	assert.Equal(t, SourceSanity, cfg.Source.Kind)
	assert.Equal(t, "abc123", cfg.CMS.ProjectID)
	assert.Equal(t, 3*time.Second, cfg.CMS.Timeout)
	assert.Equal(t, "staging", cfg.CMS.Dataset)
	assert.Equal(t, BranchCacheCache, cfg.Tree.BranchCache)
	assert.Equal(t, 10*time.Minute, cfg.Tree.SessionTTL)
	assert.Equal(t, 5, cfg.Tree.MaxSessions)
	assert.Equal(t, ports.PlacementLinear, cfg.Layout.Placement)
	// untouched sections keep their defaults
	assert.Equal(t, 170.0, cfg.Layout.NodeWidth)
	assert.Equal(t, []string{"defaults", path, "environment"}, cfg.LoadedFrom)
	assert.Equal(t, path, cfg.FilePath())
}

func TestLoadConfigMissingFileUsesDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "absent.yaml"))

	cfg, err := LoadConfig()
	require.NoError(t, err)
	assert.Equal(t, []string{"defaults", "environment"}, cfg.LoadedFrom)
	assert.Empty(t, cfg.FilePath())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:    "sanity without project",
			mutate:  func(c *Config) { c.Source.Kind = SourceSanity },
			wantErr: "SANITY_PROJECT_ID",
		},
		{
			name: "fixture in production",
			mutate: func(c *Config) {
				c.Environment = "production"
			},
			wantErr: "production",
		},
		{
			name:    "unknown cache mode",
			mutate:  func(c *Config) { c.Tree.BranchCache = "sometimes" },
			wantErr: "BranchCache",
		},
		{
			name:    "unknown placement",
			mutate:  func(c *Config) { c.Layout.Placement = "random" },
			wantErr: "Placement",
		},
		{
			name:    "zero node width",
			mutate:  func(c *Config) { c.Layout.NodeWidth = 0 },
			wantErr: "NodeWidth",
		},
		{
			name: "tracing without endpoint",
			mutate: func(c *Config) {
				c.Features.EnableTracing = true
			},
			wantErr: "TRACING_ENDPOINT",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestWatcherReloadNotifiesListeners(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tree.yaml", "layout:\n  node_spacing: 60\n")

	current, err := LoadFile(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, current, zap.NewNop())
	require.NoError(t, err)
	w.debounce = 10 * time.Millisecond
	w.Start()
	defer w.Stop()

	changed := make(chan *Config, 4)
	w.OnChange(func(c *Config) { changed <- c })

	require.NoError(t, os.WriteFile(path, []byte("layout:\n  node_spacing: 80\n"), 0o644))

	select {
	case next := <-changed:
		assert.Equal(t, 80.0, next.Layout.NodeSpacing)
		assert.Equal(t, 80.0, w.Current().Layout.NodeSpacing)
	case <-time.After(5 * time.Second):
		t.Fatal("watcher did not report the change")
	}
}

func TestWatcherKeepsCurrentOnInvalidFile(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "tree.yaml", "layout:\n  placement: balanced\n")
	current, err := LoadFile(path)
	require.NoError(t, err)

	w, err := NewWatcher(path, current, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	require.NoError(t, os.WriteFile(path, []byte("layout:\n  placement: spiral\n"), 0o644))
	w.reload()

	assert.Same(t, current, w.Current())
}
