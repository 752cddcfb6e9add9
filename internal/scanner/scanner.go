package scanner

import (
	"context"
	"path/filepath"
	"strings"

	"github.com/sirprodigle/navfix/internal/fsys"
)

const (
	MarkdownExt = ".md"
	IndexName   = "index" + MarkdownExt
)

// ScanDirectory returns every markdown document under dir, depth first in
// name order.
func ScanDirectory(ctx context.Context, tree fsys.FS, dir string) ([]string, error) {
	var markdownFiles []string

	var walk func(dir string) error
	walk = func(dir string) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		entries, err := tree.ReadDir(dir)
		if err != nil {
			return err
		}
		for _, entry := range entries {
			path := filepath.Join(dir, entry.Name())
			if entry.IsDir() {
				if err := walk(path); err != nil {
					return err
				}
				continue
			}
			if IsMarkdown(entry.Name()) {
				markdownFiles = append(markdownFiles, path)
			}
		}
		return nil
	}

	if err := walk(dir); err != nil {
		return nil, err
	}
	return markdownFiles, nil
}

func IsMarkdown(filename string) bool {
	return strings.HasSuffix(filename, MarkdownExt)
}

// IsIndex reports whether path names a directory index document.
func IsIndex(path string) bool {
	return filepath.Base(path) == IndexName
}

// BaseName strips the markdown extension from a file name.
func BaseName(filename string) string {
	return strings.TrimSuffix(filename, MarkdownExt)
}
