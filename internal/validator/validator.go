// Package validator reports relative links in markdown documents whose
// targets do not exist in the content tree.
package validator

import (
	"context"
	"fmt"
	"net/url"
	"path"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"github.com/sirprodigle/navfix/internal/cache"
	"github.com/sirprodigle/navfix/internal/fsys"
	"github.com/sirprodigle/navfix/internal/logger"
	"github.com/sirprodigle/navfix/internal/scanner"
	"github.com/sirprodigle/navfix/internal/workers"
)

var schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)

// BrokenLink is a link that does not resolve. File is the absolute path of
// the document containing it.
type BrokenLink struct {
	File   string
	Line   int
	Kind   LinkKind
	Link   string
	Reason string
}

type Options struct {
	Concurrency int
	Logger      *logger.Logger
}

type Validator struct {
	tree  fsys.FS
	root  string
	index *cache.IndexCache
	log   *logger.Logger
}

func New(tree fsys.FS, root string, log *logger.Logger) *Validator {
	if log == nil {
		log = logger.Discard()
	}
	return &Validator{
		tree:  tree,
		root:  root,
		index: cache.NewIndexCache(tree),
		log:   log,
	}
}

// Validate checks every document under root. Broken links are sorted by
// file, then line.
func Validate(ctx context.Context, tree fsys.FS, root string, opts Options) ([]BrokenLink, error) {
	v := New(tree, root, opts.Logger)

	docs, err := scanner.ScanDirectory(ctx, tree, root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}
	v.log.Debug("Validating %d markdown documents", len(docs))

	var (
		mu     sync.Mutex
		broken []BrokenLink
	)
	pool := workers.NewWorkerPool(opts.Concurrency, v.log)
	err = pool.Run(ctx, docs, func(_ context.Context, path string) error {
		found, err := v.ValidateDocument(path)
		if err != nil {
			return err
		}
		mu.Lock()
		broken = append(broken, found...)
		mu.Unlock()
		return nil
	})
	stats := pool.GetStats()
	v.log.Debug("Validation pass: %d documents checked, %d failed", stats.Completed, stats.Failed)
	if err != nil {
		return nil, err
	}

	sort.Slice(broken, func(i, j int) bool {
		if broken[i].File != broken[j].File {
			return broken[i].File < broken[j].File
		}
		if broken[i].Line != broken[j].Line {
			return broken[i].Line < broken[j].Line
		}
		return broken[i].Link < broken[j].Link
	})
	return broken, nil
}

// ValidateDocument returns the broken links of a single document.
func (v *Validator) ValidateDocument(docPath string) ([]BrokenLink, error) {
	data, err := v.tree.ReadFile(docPath)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", docPath, err)
	}

	var broken []BrokenLink
	for _, link := range ExtractLinks(data) {
		reason, err := v.check(link.Destination, docPath)
		if err != nil {
			return nil, err
		}
		if reason == "" {
			continue
		}
		broken = append(broken, BrokenLink{
			File:   docPath,
			Line:   link.Line,
			Kind:   link.Kind,
			Link:   link.Destination,
			Reason: reason,
		})
	}
	return broken, nil
}

// check returns an empty reason when link resolves or is out of scope.
func (v *Validator) check(link, docPath string) (string, error) {
	switch {
	case link == "", strings.HasPrefix(link, "#"):
		return "", nil
	case strings.HasPrefix(link, "//"), schemePattern.MatchString(link):
		return "", nil
	case strings.HasPrefix(link, "/"):
		return "absolute paths are not recommended for relative documentation", nil
	}

	linkPath := link
	if i := strings.IndexAny(linkPath, "#?"); i >= 0 {
		linkPath = linkPath[:i]
	}
	decoded, err := url.PathUnescape(linkPath)
	if err != nil {
		return fmt.Sprintf("invalid percent-encoding: %v", err), nil
	}

	target := filepath.Join(filepath.Dir(docPath), filepath.FromSlash(decoded))

	switch {
	case strings.HasSuffix(decoded, "/"):
		ok, err := v.index.HasIndex(target)
		if err != nil || ok {
			return "", err
		}
		return "directory has no " + scanner.IndexName + ": " + v.rel(target), nil

	case path.Ext(decoded) == "":
		for _, candidate := range []string{target, target + scanner.MarkdownExt} {
			if ok, err := v.tree.Exists(candidate); err != nil || ok {
				return "", err
			}
		}
		if ok, err := v.index.HasIndex(target); err != nil || ok {
			return "", err
		}

	default:
		if ok, err := v.tree.Exists(target); err != nil || ok {
			return "", err
		}
	}
	return "target file not found: " + v.rel(target), nil
}

func (v *Validator) rel(target string) string {
	rel, err := filepath.Rel(v.root, target)
	if err != nil {
		return target
	}
	return filepath.ToSlash(rel)
}
