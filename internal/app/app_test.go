package app

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/sirprodigle/navfix/internal/config"
	"github.com/sirprodigle/navfix/internal/logger"
)

type harness struct {
	app    *App
	afs    afero.Fs
	out    *bytes.Buffer
	errOut *bytes.Buffer
}

func newHarness(t *testing.T, cfg config.Config, files map[string]string, dirs ...string) *harness {
	t.Helper()
	afs := afero.NewMemMapFs()
	for _, dir := range dirs {
		require.NoError(t, afs.MkdirAll(dir, 0o755))
	}
	for path, content := range files {
		require.NoError(t, afero.WriteFile(afs, path, []byte(content), 0o644))
	}

	var out, errOut bytes.Buffer
	log := logger.New(false, logger.WithOutput(&out), logger.WithErrorOutput(&errOut), logger.WithColor(false))
	if cfg.Dir == "" {
		cfg.Dir = "/docs"
	}
	return &harness{
		app:    New(&cfg, WithFilesystem(afs), WithLogger(log)),
		afs:    afs,
		out:    &out,
		errOut: &errOut,
	}
}

func (h *harness) read(t *testing.T, path string) string {
	t.Helper()
	data, err := afero.ReadFile(h.afs, path)
	require.NoError(t, err)
	return string(data)
}

func (h *harness) exists(t *testing.T, path string) bool {
	t.Helper()
	ok, err := afero.Exists(h.afs, path)
	require.NoError(t, err)
	return ok
}

func TestRunFixesTree(t *testing.T) {
	h := newHarness(t, config.NewConfig(), map[string]string{
		"/docs/index.md":           "See [Topic](topic.md) and [Web](https://example.com/topic.md).\n",
		"/docs/topic.md":           "# Topic\n![d](topic_diagram.png)\n",
		"/docs/topic_diagram.png":  "png",
		"/docs/topic/details.md":   "[Back](../index.md)\n",
		"/docs/My Page.md":         "# Mine\n",
		"/docs/My Page/extra.md":   "",
		"/docs/links.md":           "[mine](My%20Page.md)\n",
		"/docs/untouched/index.md": "[home](../index.md)\n",
	})

	require.NoError(t, h.app.Run(context.Background()))

	assert.False(t, h.exists(t, "/docs/topic.md"))
	assert.Equal(t, "# Topic\n![d](topic_diagram.png)\n", h.read(t, "/docs/topic/index.md"))
	assert.True(t, h.exists(t, "/docs/topic/topic_diagram.png"))
	assert.True(t, h.exists(t, "/docs/My Page/index.md"))

	assert.Equal(t, "See [Topic](topic/) and [Web](https://example.com/topic.md).\n", h.read(t, "/docs/index.md"))
	assert.Equal(t, "[mine](My%20Page/)\n", h.read(t, "/docs/links.md"))
	assert.Equal(t, "[home](../index.md)\n", h.read(t, "/docs/untouched/index.md"))

	assert.Equal(t, ""+
		"Fixing MkDocs structure in /docs\n"+
		"Files reorganized:\n"+
		"  - Moved My Page.md -> My Page/index.md\n"+
		"  - Moved topic.md -> topic/index.md\n"+
		"  - Moved topic_diagram.png -> topic/topic_diagram.png\n"+
		"References updated:\n"+
		"  - Updated references in index.md\n"+
		"  - Updated references in links.md\n"+
		"Structure fix complete: 3 files moved, 2 files updated\n",
		h.out.String())
	assert.Empty(t, h.errOut.String())
}

func TestRunIsIdempotent(t *testing.T) {
	h := newHarness(t, config.NewConfig(), map[string]string{
		"/docs/index.md":       "[A](a.md)\n",
		"/docs/a.md":           "# A\n",
		"/docs/a/child.md":     "",
		"/docs/b/index.md":     "[A](../a.md)\n",
		"/docs/b/nested.md":    "",
		"/docs/b/nested/c.png": "",
	})

	require.NoError(t, h.app.Run(context.Background()))
	first := h.read(t, "/docs/b/index.md")
	assert.Equal(t, "[A](../a/)\n", first)

	h.out.Reset()
	require.NoError(t, h.app.Run(context.Background()))
	assert.Equal(t, ""+
		"Fixing MkDocs structure in /docs\n"+
		"No duplicate entries found that need fixing\n"+
		"No references needed updating\n"+
		"Structure fix complete: 0 files moved, 0 files updated\n",
		h.out.String())
	assert.Equal(t, first, h.read(t, "/docs/b/index.md"))
}

func TestRunNothingToFix(t *testing.T) {
	h := newHarness(t, config.NewConfig(), map[string]string{
		"/docs/index.md": "# Home\n",
	})

	require.NoError(t, h.app.Run(context.Background()))
	assert.Contains(t, h.out.String(), "Structure fix complete: 0 files moved, 0 files updated")
}

func TestRunMissingContentRoot(t *testing.T) {
	h := newHarness(t, config.NewConfig(), nil)

	err := h.app.Run(context.Background())
	require.ErrorIs(t, err, ErrContentRootMissing)
	assert.Contains(t, h.errOut.String(), "content root does not exist: /docs")
	assert.Empty(t, h.out.String())
}

func TestRunContentRootIsFile(t *testing.T) {
	h := newHarness(t, config.NewConfig(), map[string]string{"/docs": "not a dir"})

	err := h.app.Run(context.Background())
	assert.ErrorIs(t, err, ErrContentRootMissing)
}

func TestDryRunLeavesTreeUntouched(t *testing.T) {
	cfg := config.NewConfig()
	cfg.DryRun = true
	files := map[string]string{
		"/docs/index.md":   "[T](topic.md)\n",
		"/docs/topic.md":   "# Topic\n",
		"/docs/topic/a.md": "",
	}
	h := newHarness(t, cfg, files)

	require.NoError(t, h.app.Run(context.Background()))

	for path, content := range files {
		assert.Equal(t, content, h.read(t, path))
	}
	assert.False(t, h.exists(t, "/docs/topic/index.md"))
	assert.Contains(t, h.out.String(), "  - Moved topic.md -> topic/index.md\n")
	assert.Contains(t, h.out.String(), "Structure fix complete: 1 files moved, 1 files updated\n")
}

func TestRunWritesReport(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Report = filepath.Join(t.TempDir(), "report.yaml")
	h := newHarness(t, cfg, map[string]string{
		"/docs/index.md":   "[T](topic.md)\n",
		"/docs/topic.md":   "# Topic\n",
		"/docs/topic/a.md": "",
	})

	require.NoError(t, h.app.Run(context.Background()))

	// #nosec G304 -- test reads from its own temp dir
	data, err := os.ReadFile(cfg.Report)
	require.NoError(t, err)

	var got map[string]any
	require.NoError(t, yaml.Unmarshal(data, &got))
	assert.Equal(t, "/docs", got["root"])
	assert.Equal(t, []any{"index.md"}, got["updated"])
	summary, ok := got["summary"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, 1, summary["files_moved"])
	assert.Equal(t, 1, summary["files_updated"])
}

func TestRunGitFallsBackOnMemoryFilesystem(t *testing.T) {
	cfg := config.NewConfig()
	cfg.Git = true
	h := newHarness(t, cfg, map[string]string{
		"/docs/topic.md":   "# Topic\n",
		"/docs/topic/a.md": "",
	})

	require.NoError(t, h.app.Run(context.Background()))
	assert.True(t, h.exists(t, "/docs/topic/index.md"))
	assert.Contains(t, h.out.String(), "moving without git")
}

func TestRunGitAwareOnDisk(t *testing.T) {
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)

	docs := filepath.Join(dir, "docs")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "topic"), 0o750))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "topic.md"), []byte("# Topic\n"), 0o600))
	require.NoError(t, os.WriteFile(filepath.Join(docs, "index.md"), []byte("[T](topic.md)\n"), 0o600))
	_, err = wt.Add("docs/topic.md")
	require.NoError(t, err)

	cfg := config.NewConfig()
	cfg.Dir = docs
	cfg.Git = true
	var out bytes.Buffer
	log := logger.New(false, logger.WithOutput(&out), logger.WithErrorOutput(&out), logger.WithColor(false))

	require.NoError(t, New(&cfg, WithLogger(log)).Run(context.Background()))

	idx, err := repo.Storer.Index()
	require.NoError(t, err)
	_, err = idx.Entry("docs/topic/index.md")
	assert.NoError(t, err)
	_, err = idx.Entry("docs/topic.md")
	assert.Error(t, err)

	// #nosec G304 -- test reads from its own temp dir
	data, err := os.ReadFile(filepath.Join(docs, "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "[T](topic/)\n", string(data))
}

func TestValidate(t *testing.T) {
	h := newHarness(t, config.NewConfig(), map[string]string{
		"/docs/index.md":       "[ok](topic/)\n[gone](gone.md)\n",
		"/docs/topic/index.md": "",
	})

	err := h.app.Validate(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "found 1 broken links")
	assert.Contains(t, h.errOut.String(), "index.md:2: gone.md\n    target file not found: gone.md\n")
}

func TestValidateCleanTree(t *testing.T) {
	h := newHarness(t, config.NewConfig(), map[string]string{
		"/docs/index.md":       "[ok](topic/)\n",
		"/docs/topic/index.md": "[up](../index.md)\n",
	})

	require.NoError(t, h.app.Validate(context.Background()))
	assert.Contains(t, h.out.String(), "All links are valid")
}

func TestValidateMissingContentRoot(t *testing.T) {
	h := newHarness(t, config.NewConfig(), nil)
	assert.ErrorIs(t, h.app.Validate(context.Background()), ErrContentRootMissing)
}
