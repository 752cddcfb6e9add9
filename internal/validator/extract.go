package validator

import (
	"bytes"
	"regexp"

	"github.com/yuin/goldmark"
	gmast "github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/parser"
	"github.com/yuin/goldmark/text"
)

type LinkKind string

const (
	LinkKindInline LinkKind = "inline"
	LinkKindImage  LinkKind = "image"
	LinkKindHTML   LinkKind = "html"
)

var (
	// Inline HTML in markdown: <a href="..."> and <img src="...">.
	htmlAnchorPattern = regexp.MustCompile(`<a\b[^>]*?\bhref=["']([^"']+)["']`)
	htmlImagePattern  = regexp.MustCompile(`<img\b[^>]*?\bsrc=["']([^"']+)["']`)
)

// Link is a link destination found in a markdown body.
type Link struct {
	Kind        LinkKind
	Destination string
	Line        int
}

// ExtractLinks parses source and returns inline links, images and the href
// and src attributes of embedded HTML in document order. Reference-style
// links are returned with their resolved destination.
func ExtractLinks(source []byte) []Link {
	md := goldmark.New()
	ctx := parser.NewContext()
	root := md.Parser().Parse(text.NewReader(source), parser.WithContext(ctx))

	var links []Link
	_ = gmast.Walk(root, func(n gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if !entering {
			return gmast.WalkContinue, nil
		}
		switch node := n.(type) {
		case *gmast.Link:
			links = append(links, Link{Kind: LinkKindInline, Destination: string(node.Destination), Line: lineOf(node, source)})
		case *gmast.Image:
			links = append(links, Link{Kind: LinkKindImage, Destination: string(node.Destination), Line: lineOf(node, source)})
		case *gmast.RawHTML:
			var raw []byte
			for i := 0; i < node.Segments.Len(); i++ {
				seg := node.Segments.At(i)
				raw = append(raw, seg.Value(source)...)
			}
			if node.Segments.Len() > 0 {
				links = append(links, htmlLinks(raw, lineAt(source, node.Segments.At(0).Start))...)
			}
		case *gmast.HTMLBlock:
			lines := node.Lines()
			for i := 0; i < lines.Len(); i++ {
				seg := lines.At(i)
				links = append(links, htmlLinks(seg.Value(source), lineAt(source, seg.Start))...)
			}
		}
		return gmast.WalkContinue, nil
	})
	return links
}

// lineOf returns the 1-based line a link starts on. Inline nodes carry no
// position of their own, so the first text leaf below the link, however deeply
// nested in emphasis or code spans, or else the enclosing block is used.
func lineOf(n gmast.Node, source []byte) int {
	offset := -1
	_ = gmast.Walk(n, func(c gmast.Node, entering bool) (gmast.WalkStatus, error) {
		if t, ok := c.(*gmast.Text); ok && entering {
			offset = t.Segment.Start
			return gmast.WalkStop, nil
		}
		return gmast.WalkContinue, nil
	})
	if offset < 0 {
		for p := n.Parent(); p != nil; p = p.Parent() {
			if p.Type() == gmast.TypeBlock && p.Lines().Len() > 0 {
				offset = p.Lines().At(0).Start
				break
			}
		}
	}
	return lineAt(source, offset)
}

func lineAt(source []byte, offset int) int {
	if offset < 0 || offset > len(source) {
		return 0
	}
	return bytes.Count(source[:offset], []byte("\n")) + 1
}

func htmlLinks(raw []byte, line int) []Link {
	var links []Link
	for _, m := range htmlAnchorPattern.FindAllSubmatch(raw, -1) {
		links = append(links, Link{Kind: LinkKindHTML, Destination: string(m[1]), Line: line})
	}
	for _, m := range htmlImagePattern.FindAllSubmatch(raw, -1) {
		links = append(links, Link{Kind: LinkKindHTML, Destination: string(m[1]), Line: line})
	}
	return links
}
