// Package gitmove moves files the way "git mv" does when they are tracked,
// so the relocated index documents keep their history.
package gitmove

import (
	"fmt"
	"path/filepath"
	"strings"

	"github.com/go-git/go-git/v5"

	"github.com/sirprodigle/navfix/internal/fsys"
	"github.com/sirprodigle/navfix/internal/logger"
)

// Mover is an fsys.FS whose Move stages tracked files in the git index.
// Everything else is served by the wrapped tree.
type Mover struct {
	fsys.FS
	repo     *git.Repository
	worktree *git.Worktree
	root     string
	log      *logger.Logger
}

// Open finds the repository enclosing dir. The wrapped tree must be the OS
// filesystem: go-git moves files on disk itself.
func Open(tree fsys.FS, dir string, log *logger.Logger) (*Mover, error) {
	if log == nil {
		log = logger.Discard()
	}
	repo, err := git.PlainOpenWithOptions(dir, &git.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("open git repository for %s: %w", dir, err)
	}
	worktree, err := repo.Worktree()
	if err != nil {
		return nil, fmt.Errorf("open git worktree: %w", err)
	}
	root, err := filepath.Abs(worktree.Filesystem.Root())
	if err != nil {
		return nil, fmt.Errorf("resolve worktree root: %w", err)
	}
	return &Mover{
		FS:       tree,
		repo:     repo,
		worktree: worktree,
		root:     root,
		log:      log,
	}, nil
}

// Root is the worktree directory.
func (m *Mover) Root() string {
	return m.root
}

// Move renames src to dst, through the git index when src is tracked.
func (m *Mover) Move(src, dst string) error {
	relSrc, okSrc := m.relative(src)
	relDst, okDst := m.relative(dst)
	if !okSrc || !okDst {
		return m.FS.Move(src, dst)
	}

	tracked, err := m.IsTracked(relSrc)
	if err != nil {
		return err
	}
	if !tracked {
		m.log.Trace("%s is not tracked, moving without git", relSrc)
		return m.FS.Move(src, dst)
	}

	if _, err := m.worktree.Move(relSrc, relDst); err != nil {
		return fmt.Errorf("git mv %s %s: %w", relSrc, relDst, err)
	}
	m.log.Debug("git mv %s %s", relSrc, relDst)
	return nil
}

// IsTracked reports whether a worktree-relative, slash separated path has an
// entry in the git index.
func (m *Mover) IsTracked(rel string) (bool, error) {
	idx, err := m.repo.Storer.Index()
	if err != nil {
		return false, fmt.Errorf("read git index: %w", err)
	}
	_, err = idx.Entry(rel)
	return err == nil, nil
}

// relative converts path to a worktree-relative slash path. ok is false for
// paths outside the worktree.
func (m *Mover) relative(path string) (string, bool) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return "", false
	}
	rel, err := filepath.Rel(m.root, abs)
	if err != nil || rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}
