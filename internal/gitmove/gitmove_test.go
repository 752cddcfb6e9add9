package gitmove

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/go-git/go-git/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sirprodigle/navfix/internal/fsys"
)

func initRepo(t *testing.T) (string, *git.Worktree) {
	t.Helper()
	dir := t.TempDir()
	repo, err := git.PlainInit(dir, false)
	require.NoError(t, err)
	wt, err := repo.Worktree()
	require.NoError(t, err)
	return dir, wt
}

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o750))
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
}

func TestMoveTrackedFileUpdatesIndex(t *testing.T) {
	dir, wt := initRepo(t)
	docs := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(docs, "topic.md"), "# Topic")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "topic"), 0o750))
	_, err := wt.Add("docs/topic.md")
	require.NoError(t, err)

	m, err := Open(fsys.NewOS(), docs, nil)
	require.NoError(t, err)

	require.NoError(t, m.Move(filepath.Join(docs, "topic.md"), filepath.Join(docs, "topic", "index.md")))

	// #nosec G304 -- test reads from its own temp dir
	data, err := os.ReadFile(filepath.Join(docs, "topic", "index.md"))
	require.NoError(t, err)
	assert.Equal(t, "# Topic", string(data))

	tracked, err := m.IsTracked("docs/topic/index.md")
	require.NoError(t, err)
	assert.True(t, tracked)

	tracked, err = m.IsTracked("docs/topic.md")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestMoveUntrackedFallsBackToFilesystem(t *testing.T) {
	dir, _ := initRepo(t)
	docs := filepath.Join(dir, "docs")
	writeFile(t, filepath.Join(docs, "topic.png"), "png")
	require.NoError(t, os.MkdirAll(filepath.Join(docs, "topic"), 0o750))

	m, err := Open(fsys.NewOS(), docs, nil)
	require.NoError(t, err)

	require.NoError(t, m.Move(filepath.Join(docs, "topic.png"), filepath.Join(docs, "topic", "topic.png")))

	_, err = os.Stat(filepath.Join(docs, "topic", "topic.png"))
	require.NoError(t, err)

	tracked, err := m.IsTracked("docs/topic/topic.png")
	require.NoError(t, err)
	assert.False(t, tracked)
}

func TestOpenOutsideRepository(t *testing.T) {
	_, err := Open(fsys.NewOS(), t.TempDir(), nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, git.ErrRepositoryNotExists)
}

func TestRelative(t *testing.T) {
	dir, _ := initRepo(t)
	m, err := Open(fsys.NewOS(), dir, nil)
	require.NoError(t, err)

	rel, ok := m.relative(filepath.Join(dir, "docs", "a.md"))
	assert.True(t, ok)
	assert.Equal(t, "docs/a.md", rel)

	_, ok = m.relative(filepath.Join(filepath.Dir(dir), "elsewhere.md"))
	assert.False(t, ok)
}
