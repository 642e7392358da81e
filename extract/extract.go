// Package extract pulls absolute HTTP(S) URLs out of markup and plain text
// files.
package extract

import (
	"fmt"
	"io"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"go.uber.org/zap"
	"golang.org/x/net/html"

	"github.com/lukemcguire/zombielinks/urlutil"
)

// DefaultMarkupExtensions lists the file extensions parsed as HTML-like markup.
var DefaultMarkupExtensions = []string{".html", ".htm", ".cshtml", ".razor", ".vue", ".svelte", ".xhtml"}

// linkAttributes are read from every element of a markup document.
var linkAttributes = []string{"href", "src", "content", "data-href", "data-src"}

// textURL stops at ASCII and Unicode whitespace, quotes, angle brackets and
// closing brackets.
var textURL = regexp.MustCompile(`(?i)\bhttps?://[^\s\p{Z}"'<>)\]]+`)

// Extractor finds the absolute URLs referenced by a source file.
// It holds no per-file state and is safe for concurrent use.
type Extractor struct {
	markup map[string]struct{}
	parse  func(io.Reader) (*html.Node, error)
	logger *zap.Logger
}

// New creates an Extractor that treats files with the given extensions as
// markup. A nil or empty list falls back to DefaultMarkupExtensions.
func New(markupExtensions []string, logger *zap.Logger) *Extractor {
	if len(markupExtensions) == 0 {
		markupExtensions = DefaultMarkupExtensions
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	markup := make(map[string]struct{}, len(markupExtensions))
	for _, ext := range markupExtensions {
		ext = strings.ToLower(strings.TrimSpace(ext))
		if ext == "" {
			continue
		}
		if !strings.HasPrefix(ext, ".") {
			ext = "." + ext
		}
		markup[ext] = struct{}{}
	}

	return &Extractor{markup: markup, parse: html.Parse, logger: logger}
}

// IsMarkup reports whether path is parsed as a DOM tree.
func (e *Extractor) IsMarkup(path string) bool {
	_, ok := e.markup[strings.ToLower(filepath.Ext(path))]
	return ok
}

// Links returns the deduplicated absolute http(s) URLs referenced by content.
//
// Markup files contribute the trimmed values of link-like attributes on every
// element. All files are additionally scanned as plain text, with trailing
// sentence punctuation removed from each match. A markup parse failure only
// drops the attribute pass.
func (e *Extractor) Links(path, content string) []string {
	seen := make(map[string]struct{})
	var links []string

	add := func(candidate string) {
		if !urlutil.IsAbsoluteHTTP(candidate) {
			return
		}
		if _, dup := seen[candidate]; dup {
			return
		}
		seen[candidate] = struct{}{}
		links = append(links, candidate)
	}

	if e.IsMarkup(path) {
		values, err := e.attributeValues(strings.NewReader(content))
		if err != nil {
			e.logger.Debug("markup parse failed, using text scan only",
				zap.String("path", path), zap.Error(err))
		}
		for _, value := range values {
			add(value)
		}
	}

	for _, match := range textURL.FindAllString(content, -1) {
		add(urlutil.TrimTrailingPunctuation(match))
	}

	return links
}

// attributeValues parses r as a tolerant HTML document and returns every
// non-empty link attribute value.
func (e *Extractor) attributeValues(r io.Reader) ([]string, error) {
	root, err := e.parse(r)
	if err != nil {
		return nil, fmt.Errorf("parse markup: %w", err)
	}

	var values []string
	goquery.NewDocumentFromNode(root).Find("*").Each(func(_ int, sel *goquery.Selection) {
		for _, attr := range linkAttributes {
			value, exists := sel.Attr(attr)
			if !exists {
				continue
			}
			if value = strings.TrimSpace(value); value != "" {
				values = append(values, value)
			}
		}
	})
	return values, nil
}
