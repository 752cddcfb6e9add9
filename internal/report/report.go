// Package report writes a machine-readable summary of a run.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/sirprodigle/navfix/internal/resolver"
	"github.com/sirprodigle/navfix/internal/validator"
)

type Move struct {
	Source      string `yaml:"source"`
	Destination string `yaml:"destination"`
	Kind        string `yaml:"kind"`
}

type BrokenLink struct {
	File   string `yaml:"file"`
	Line   int    `yaml:"line"`
	Kind   string `yaml:"kind"`
	Link   string `yaml:"link"`
	Reason string `yaml:"reason"`
}

type Summary struct {
	FilesMoved   int `yaml:"files_moved"`
	FilesUpdated int `yaml:"files_updated"`
	BrokenLinks  int `yaml:"broken_links"`
}

// Report paths are relative to Root and slash separated.
type Report struct {
	Root        string       `yaml:"root"`
	GeneratedAt time.Time    `yaml:"generated_at"`
	DryRun      bool         `yaml:"dry_run"`
	Moves       []Move       `yaml:"moves,omitempty"`
	Updated     []string     `yaml:"updated,omitempty"`
	BrokenLinks []BrokenLink `yaml:"broken_links,omitempty"`
	Summary     Summary      `yaml:"summary"`
}

func New(root string, dryRun bool) *Report {
	return &Report{
		Root:        root,
		GeneratedAt: time.Now().UTC(),
		DryRun:      dryRun,
	}
}

func (r *Report) AddMoves(moves []resolver.Move) {
	for _, m := range moves {
		r.Moves = append(r.Moves, Move{
			Source:      r.rel(m.Source),
			Destination: r.rel(m.Destination),
			Kind:        m.Kind.String(),
		})
	}
	r.Summary.FilesMoved = len(r.Moves)
}

func (r *Report) AddUpdated(paths []string) {
	for _, p := range paths {
		r.Updated = append(r.Updated, r.rel(p))
	}
	r.Summary.FilesUpdated = len(r.Updated)
}

func (r *Report) AddBrokenLinks(links []validator.BrokenLink) {
	for _, l := range links {
		r.BrokenLinks = append(r.BrokenLinks, BrokenLink{
			File:   r.rel(l.File),
			Line:   l.Line,
			Kind:   string(l.Kind),
			Link:   l.Link,
			Reason: l.Reason,
		})
	}
	r.Summary.BrokenLinks = len(r.BrokenLinks)
}

func (r *Report) Marshal() ([]byte, error) {
	return yaml.Marshal(r)
}

// WriteFile stores the report as YAML at path.
func (r *Report) WriteFile(path string) error {
	data, err := r.Marshal()
	if err != nil {
		return fmt.Errorf("encode report: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write report %s: %w", path, err)
	}
	return nil
}

func (r *Report) rel(path string) string {
	rel, err := filepath.Rel(r.Root, path)
	if err != nil {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}
