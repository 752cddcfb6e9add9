// Package rewriter repairs links that point at a markdown document which is
// now a directory index.
//
// After the resolver has moved topic.md to topic/index.md, a link such as
// [See Topic](topic.md) is rewritten to [See Topic](topic/). Only the inline
// form [text](target.md) on a single line is recognised.
package rewriter

import (
	"context"
	"fmt"
	"net/url"
	"path/filepath"
	"regexp"
	"sort"
	"strings"
	"sync"

	"golang.org/x/text/unicode/norm"

	"github.com/sirprodigle/navfix/internal/cache"
	"github.com/sirprodigle/navfix/internal/fsys"
	"github.com/sirprodigle/navfix/internal/logger"
	"github.com/sirprodigle/navfix/internal/scanner"
	"github.com/sirprodigle/navfix/internal/workers"
)

var (
	// [text](target.md) - text in group 1, target in group 2
	linkPattern = regexp.MustCompile(`\[([^\]\n]*)\]\(([^)\n]+\.md)\)`)

	schemePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9+.\-]*:`)
)

type Options struct {
	// Concurrency bounds how many documents are processed at once. Zero
	// means one worker per CPU.
	Concurrency int
	Logger      *logger.Logger
}

// Rewriter holds the per-pass state. The index cache is only valid for the
// filesystem state it was created against.
type Rewriter struct {
	tree  fsys.FS
	index *cache.IndexCache
	log   *logger.Logger
}

func New(tree fsys.FS, log *logger.Logger) *Rewriter {
	if log == nil {
		log = logger.Discard()
	}
	return &Rewriter{
		tree:  tree,
		index: cache.NewIndexCache(tree),
		log:   log,
	}
}

// Rewrite scans every document under root and rewrites links whose target
// has become a directory with an index document. It returns the documents
// that were modified, sorted. The first read or write failure aborts the pass.
func Rewrite(ctx context.Context, tree fsys.FS, root string, opts Options) ([]string, error) {
	rw := New(tree, opts.Logger)

	docs, err := scanner.ScanDirectory(ctx, tree, root)
	if err != nil {
		return nil, fmt.Errorf("scan %s: %w", root, err)
	}

	var (
		mu      sync.Mutex
		updated []string
	)
	pool := workers.NewWorkerPool(opts.Concurrency, rw.log)
	err = pool.Run(ctx, docs, func(_ context.Context, path string) error {
		changed, err := rw.RewriteDocument(path)
		if err != nil {
			return err
		}
		if changed {
			mu.Lock()
			updated = append(updated, path)
			mu.Unlock()
		}
		return nil
	})
	sort.Strings(updated)
	stats := pool.GetStats()
	rw.log.Debug("Rewrite pass: %d documents processed, %d failed", stats.Completed, stats.Failed)
	if err != nil {
		return updated, err
	}

	hits, misses := rw.index.Stats()
	rw.log.Debug("Index lookups: %d cached, %d checked on disk", hits, misses)
	return updated, nil
}

// RewriteDocument rewrites the links of one document in place. The document
// is only written when its content changed.
func (rw *Rewriter) RewriteDocument(path string) (bool, error) {
	data, err := rw.tree.ReadFile(path)
	if err != nil {
		return false, fmt.Errorf("read %s: %w", path, err)
	}

	content := string(data)
	rewritten, err := rw.RewriteLinks(content, path)
	if err != nil {
		return false, fmt.Errorf("rewrite %s: %w", path, err)
	}
	if rewritten == content {
		return false, nil
	}

	if err := rw.tree.WriteFile(path, []byte(rewritten)); err != nil {
		return false, fmt.Errorf("write %s: %w", path, err)
	}
	rw.log.Debug("Updated references in %s", path)
	return true, nil
}

// RewriteLinks returns content with every fixable link rewritten. docPath is
// the location of the document the content belongs to.
func (rw *Rewriter) RewriteLinks(content, docPath string) (string, error) {
	matches := linkPattern.FindAllStringSubmatchIndex(content, -1)
	if len(matches) == 0 {
		return content, nil
	}

	docDir := filepath.Dir(docPath)
	isIndex := scanner.IsIndex(docPath)

	var b strings.Builder
	b.Grow(len(content))
	last := 0
	for _, m := range matches {
		text := content[m[2]:m[3]]
		target := content[m[4]:m[5]]

		newTarget, changed, err := rw.fixTarget(target, docDir, isIndex)
		if err != nil {
			return "", err
		}
		if !changed {
			continue
		}

		rw.log.Trace("%s: %s -> %s", docPath, target, newTarget)
		b.WriteString(content[last:m[0]])
		b.WriteString("[" + text + "](" + newTarget + ")")
		last = m[1]
	}
	b.WriteString(content[last:])
	return b.String(), nil
}

func (rw *Rewriter) fixTarget(target, docDir string, isIndex bool) (string, bool, error) {
	if isExternal(target) {
		return target, false, nil
	}

	decoded := unescape(target)
	if strings.HasPrefix(decoded, "/") {
		return target, false, nil
	}

	if isIndex {
		fixed, ok, err := rw.fixSelfReference(target, docDir)
		if err != nil {
			return "", false, err
		}
		if ok {
			return fixed, fixed != target, nil
		}
	}

	fixed, ok, err := rw.directoryTarget(decoded, docDir)
	if err != nil || !ok {
		return target, false, err
	}
	return fixed, fixed != target, nil
}

// fixSelfReference handles links inside an index document that still carry
// the document's own directory as their first segment, as written before the
// document was moved into that directory. The segment is dropped only when
// the link does not resolve as written. The rest of the link keeps its
// original escaping.
func (rw *Rewriter) fixSelfReference(target, docDir string) (string, bool, error) {
	rawHead, rawRest, found := strings.Cut(target, "/")
	if !found || rawRest == "" || !sameName(unescape(rawHead), filepath.Base(docDir)) {
		return "", false, nil
	}

	exists, err := rw.tree.Exists(filepath.Join(docDir, filepath.FromSlash(unescape(target))))
	if err != nil || exists {
		return "", false, err
	}

	fixed, ok, err := rw.directoryTarget(unescape(rawRest), docDir)
	if err != nil {
		return "", false, err
	}
	if ok {
		return fixed, true, nil
	}
	return encodeSpaces(rawRest), true, nil
}

// directoryTarget resolves link against docDir. If the document it names has
// a directory with an index document, the relative directory link is
// returned with a trailing slash.
func (rw *Rewriter) directoryTarget(link, docDir string) (string, bool, error) {
	resolved := filepath.Join(docDir, filepath.FromSlash(link))
	if !scanner.IsMarkdown(resolved) {
		return "", false, nil
	}

	candidate := strings.TrimSuffix(resolved, scanner.MarkdownExt)
	found, err := rw.index.HasIndex(candidate)
	if err != nil || !found {
		return "", false, err
	}

	rel, err := filepath.Rel(docDir, candidate)
	if err != nil {
		return "", false, fmt.Errorf("relative path from %s to %s: %w", docDir, candidate, err)
	}
	return encodeSpaces(filepath.ToSlash(rel)) + "/", true, nil
}

// sameName compares path segments regardless of Unicode normalization form,
// so a link typed in NFC matches a directory stored in NFD.
func sameName(a, b string) bool {
	return norm.NFC.String(a) == norm.NFC.String(b)
}

func unescape(s string) string {
	decoded, err := url.PathUnescape(s)
	if err != nil {
		return s
	}
	return decoded
}

func isExternal(target string) bool {
	return strings.HasPrefix(target, "//") || schemePattern.MatchString(target)
}

func encodeSpaces(s string) string {
	return strings.ReplaceAll(s, " ", "%20")
}
