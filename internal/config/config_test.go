package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func parse(t *testing.T, args ...string) Config {
	t.Helper()
	cfg := NewConfig()
	cmd := &cobra.Command{Use: "navfix", RunE: func(*cobra.Command, []string) error { return nil }}
	cfg.InitFlags(cmd)
	cmd.SetArgs(args)
	require.NoError(t, cmd.Execute())
	require.NoError(t, cfg.LoadFromViper())
	return cfg
}

func TestDefaults(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := parse(t)

	assert.Empty(t, cfg.Dir)
	assert.False(t, cfg.DryRun)
	assert.False(t, cfg.Git)
	assert.Positive(t, cfg.Concurrency)
	assert.Equal(t, 300*time.Millisecond, cfg.Debounce)
	assert.Empty(t, cfg.ConfigFile)
}

func TestFlags(t *testing.T) {
	t.Chdir(t.TempDir())
	cfg := parse(t, "--dir", "site/docs", "-n", "--concurrency", "3", "--git", "--debounce", "1s", "--report", "out.yaml", "-v")

	assert.Equal(t, "site/docs", cfg.Dir)
	assert.True(t, cfg.DryRun)
	assert.True(t, cfg.Git)
	assert.True(t, cfg.Verbose)
	assert.Equal(t, 3, cfg.Concurrency)
	assert.Equal(t, time.Second, cfg.Debounce)
	assert.Equal(t, "out.yaml", cfg.Report)
}

func TestEnvironment(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("NAVFIX_DIR", "/srv/docs")
	t.Setenv("NAVFIX_DRY_RUN", "true")

	cfg := parse(t)
	assert.Equal(t, "/srv/docs", cfg.Dir)
	assert.True(t, cfg.DryRun)
}

func TestConfigFile(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "navfix.yaml"), []byte("dir: content\nconcurrency: 2\n"), 0o600))

	cfg := parse(t)
	assert.Equal(t, "content", cfg.Dir)
	assert.Equal(t, 2, cfg.Concurrency)
	assert.Equal(t, "navfix.yaml", filepath.Base(cfg.ConfigFile))
}

func TestExplicitConfigFileMustParse(t *testing.T) {
	dir := t.TempDir()
	t.Chdir(dir)
	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("dir: [unclosed\n"), 0o600))

	cfg := NewConfig()
	cmd := &cobra.Command{Use: "navfix", RunE: func(*cobra.Command, []string) error { return nil }}
	cfg.InitFlags(cmd)
	cmd.SetArgs([]string{"--config", bad})
	require.NoError(t, cmd.Execute())
	assert.Error(t, cfg.LoadFromViper())
}

func TestContentRoot(t *testing.T) {
	dir := t.TempDir()

	cfg := Config{Dir: dir}
	root, err := cfg.ContentRoot()
	require.NoError(t, err)
	assert.Equal(t, dir, root)

	t.Chdir(dir)
	require.NoError(t, os.Mkdir(filepath.Join(dir, DocsDirName), 0o750))
	root, err = firstExisting([]string{filepath.Join(dir, "missing"), DocsDirName})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, DocsDirName), root)

	root, err = firstExisting([]string{filepath.Join(dir, "missing"), filepath.Join(dir, "also-missing")})
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "missing"), root)
}
