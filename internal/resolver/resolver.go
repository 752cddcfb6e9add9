// Package resolver finds markdown documents that share a base name with a
// sibling directory and turns each document into that directory's index.
//
// Given docs/topic.md next to docs/topic/, MkDocs renders two navigation
// entries for the same subject. Resolve moves topic.md to topic/index.md and
// carries topic_*.* and topic.{png,jpg,jpeg,gif,svg} along with it.
package resolver

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/sirprodigle/navfix/internal/fsys"
	"github.com/sirprodigle/navfix/internal/logger"
	"github.com/sirprodigle/navfix/internal/scanner"
)

// ImageExtensions are the exact-match assets that follow a relocated document.
var ImageExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".svg"}

type Kind int

const (
	KindDocument Kind = iota
	KindAsset
)

func (k Kind) String() string {
	switch k {
	case KindDocument:
		return "document"
	case KindAsset:
		return "asset"
	default:
		return "unknown"
	}
}

// Move records one relocation. Paths are as seen by the filesystem.
type Move struct {
	Source      string
	Destination string
	Kind        Kind
}

// Mover performs a single relocation. fsys.FS satisfies it; gitmove wraps it.
type Mover interface {
	Move(src, dst string) error
}

type Options struct {
	// Mover overrides how entries are moved. Defaults to the tree itself.
	Mover  Mover
	Logger *logger.Logger
}

// Error aborts a pass part way through. Moves lists what had already been
// done so callers can report it.
type Error struct {
	Moves []Move
	Err   error
}

func (e *Error) Error() string {
	return fmt.Sprintf("collision resolution aborted after %d moves: %v", len(e.Moves), e.Err)
}

func (e *Error) Unwrap() error {
	return e.Err
}

type resolver struct {
	tree  fsys.FS
	mover Mover
	log   *logger.Logger
	moves []Move
}

// Resolve walks root and relocates every colliding document. Moves are
// returned in traversal order. The first failure stops the walk; the
// returned error is then an *Error.
func Resolve(ctx context.Context, tree fsys.FS, root string, opts Options) ([]Move, error) {
	r := &resolver{
		tree:  tree,
		mover: opts.Mover,
		log:   opts.Logger,
	}
	if r.mover == nil {
		r.mover = tree
	}
	if r.log == nil {
		r.log = logger.Discard()
	}

	if err := r.walk(ctx, root); err != nil {
		return r.moves, &Error{Moves: r.moves, Err: err}
	}
	return r.moves, nil
}

func (r *resolver) walk(ctx context.Context, dir string) error {
	entries, err := r.tree.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}

	for _, entry := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}

		path := filepath.Join(dir, entry.Name())

		// The listing is a snapshot; assets relocated earlier in this loop
		// are gone by now.
		info, err := r.tree.Stat(path)
		if errors.Is(err, fs.ErrNotExist) {
			r.log.Trace("skipping %s: already moved", path)
			continue
		}
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		switch {
		case info.IsDir():
			if err := r.walk(ctx, path); err != nil {
				return err
			}
		case scanner.IsMarkdown(info.Name()):
			if err := r.resolveDocument(dir, info.Name()); err != nil {
				return err
			}
		}
	}
	return nil
}

func (r *resolver) resolveDocument(dir, name string) error {
	base := scanner.BaseName(name)
	if base == "" {
		return nil
	}

	target := filepath.Join(dir, base)
	info, err := r.tree.Stat(target)
	if errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("stat %s: %w", target, err)
	}
	if !info.IsDir() {
		return nil
	}

	index := filepath.Join(target, scanner.IndexName)
	exists, err := r.tree.Exists(index)
	if err != nil {
		return fmt.Errorf("stat %s: %w", index, err)
	}
	if exists {
		r.log.Debug("leaving %s in place: %s already exists", filepath.Join(dir, name), index)
		return nil
	}

	if err := r.move(filepath.Join(dir, name), index, KindDocument); err != nil {
		return err
	}
	return r.relocateAssets(dir, base, target)
}

// relocateAssets moves files in dir named base_* or base.<image ext> into
// target. Existing files in target are never replaced.
func (r *resolver) relocateAssets(dir, base, target string) error {
	entries, err := r.tree.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read directory %s: %w", dir, err)
	}

	var assets []string
	prefix := base + "_"
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasPrefix(entry.Name(), prefix) {
			assets = append(assets, entry.Name())
		}
	}
	for _, ext := range ImageExtensions {
		name := base + ext
		exists, err := r.tree.Exists(filepath.Join(dir, name))
		if err != nil {
			return fmt.Errorf("stat %s: %w", filepath.Join(dir, name), err)
		}
		if exists {
			assets = append(assets, name)
		}
	}

	for _, name := range assets {
		src := filepath.Join(dir, name)
		dst := filepath.Join(target, name)
		exists, err := r.tree.Exists(dst)
		if err != nil {
			return fmt.Errorf("stat %s: %w", dst, err)
		}
		if exists {
			r.log.Warn("Not moving %s: %s already exists", src, dst)
			continue
		}
		if err := r.move(src, dst, KindAsset); err != nil {
			return err
		}
	}
	return nil
}

func (r *resolver) move(src, dst string, kind Kind) error {
	if err := r.mover.Move(src, dst); err != nil {
		return fmt.Errorf("move %s -> %s: %w", src, dst, err)
	}
	r.log.Debug("moved %s %s -> %s", kind, src, dst)
	r.moves = append(r.moves, Move{Source: src, Destination: dst, Kind: kind})
	return nil
}
