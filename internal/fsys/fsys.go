// Package fsys is the narrow filesystem surface navfix works against. Both
// passes only ever list directories, move entries and read or write whole
// documents, so that is all FS exposes.
package fsys

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/afero"
)

// FS is implemented by Tree and by movers that wrap it (see gitmove).
type FS interface {
	ReadDir(dir string) ([]fs.FileInfo, error)
	Stat(path string) (fs.FileInfo, error)
	Exists(path string) (bool, error)
	Move(src, dst string) error
	ReadFile(path string) ([]byte, error)
	WriteFile(path string, data []byte) error
}

// Tree adapts an afero.Fs to FS.
type Tree struct {
	fs afero.Fs
}

// New wraps an arbitrary afero filesystem.
func New(afs afero.Fs) *Tree {
	return &Tree{fs: afs}
}

// NewOS returns a Tree backed by the real disk.
func NewOS() *Tree {
	return New(afero.NewOsFs())
}

// NewMem returns an empty in-memory Tree.
func NewMem() *Tree {
	return New(afero.NewMemMapFs())
}

// Afero exposes the underlying filesystem.
func (t *Tree) Afero() afero.Fs {
	return t.fs
}

// ReadDir lists dir sorted by name.
func (t *Tree) ReadDir(dir string) ([]fs.FileInfo, error) {
	return afero.ReadDir(t.fs, dir)
}

func (t *Tree) Stat(path string) (fs.FileInfo, error) {
	return t.fs.Stat(path)
}

// Exists reports whether path exists. A missing path is not an error.
func (t *Tree) Exists(path string) (bool, error) {
	_, err := t.fs.Stat(path)
	if err == nil {
		return true, nil
	}
	if errors.Is(err, fs.ErrNotExist) {
		return false, nil
	}
	return false, err
}

// Move renames src to dst. It refuses to replace an existing dst.
func (t *Tree) Move(src, dst string) error {
	exists, err := t.Exists(dst)
	if err != nil {
		return err
	}
	if exists {
		return &fs.PathError{Op: "move", Path: dst, Err: fs.ErrExist}
	}
	return t.fs.Rename(src, dst)
}

func (t *Tree) ReadFile(path string) ([]byte, error) {
	return afero.ReadFile(t.fs, path)
}

// WriteFile replaces path with data. The content is staged in a temporary
// file in the same directory and renamed into place, so a failed write never
// leaves a half-written document behind. The original mode is kept.
func (t *Tree) WriteFile(path string, data []byte) (err error) {
	mode := os.FileMode(0o644)
	if info, statErr := t.fs.Stat(path); statErr == nil {
		mode = info.Mode().Perm()
	}

	tmp, err := afero.TempFile(t.fs, filepath.Dir(path), "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer func() {
		if err != nil {
			_ = t.fs.Remove(tmpName)
		}
	}()

	if _, err = tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err = tmp.Close(); err != nil {
		return err
	}
	if err = t.fs.Chmod(tmpName, mode); err != nil {
		return err
	}
	return t.fs.Rename(tmpName, path)
}

// Snapshot copies the tree rooted at root from src into a fresh in-memory
// Tree, keeping absolute paths. Dry runs operate on the snapshot.
func Snapshot(src afero.Fs, root string) (*Tree, error) {
	mem := afero.NewMemMapFs()
	err := afero.Walk(src, root, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return mem.MkdirAll(path, info.Mode().Perm()|0o700)
		}
		if !info.Mode().IsRegular() {
			return nil
		}
		data, err := afero.ReadFile(src, path)
		if err != nil {
			return err
		}
		return afero.WriteFile(mem, path, data, info.Mode().Perm())
	})
	if err != nil {
		return nil, fmt.Errorf("snapshot %s: %w", root, err)
	}
	return New(mem), nil
}
