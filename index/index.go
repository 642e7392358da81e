// Package index builds the mapping from each unique URL to the files that
// reference it.
package index

import (
	"io/fs"
	"slices"

	"go.uber.org/zap"

	"github.com/lukemcguire/zombielinks/extract"
	"github.com/lukemcguire/zombielinks/source"
	"github.com/lukemcguire/zombielinks/urlutil"
)

// ReferenceSet maps a URL to the set of file paths that reference it.
// It is built sequentially and must not be mutated once checking begins.
type ReferenceSet struct {
	refs map[string]map[string]struct{}
}

// NewReferenceSet returns an empty ReferenceSet.
func NewReferenceSet() *ReferenceSet {
	return &ReferenceSet{refs: make(map[string]map[string]struct{})}
}

// Add records that file references url. Adding the same pair twice is a no-op.
func (s *ReferenceSet) Add(url, file string) {
	files, ok := s.refs[url]
	if !ok {
		files = make(map[string]struct{})
		s.refs[url] = files
	}
	files[file] = struct{}{}
}

// Len returns the number of unique URLs.
func (s *ReferenceSet) Len() int {
	return len(s.refs)
}

// Contains reports whether url was referenced by any file.
func (s *ReferenceSet) Contains(url string) bool {
	_, ok := s.refs[url]
	return ok
}

// URLs returns every unique URL in sorted order.
func (s *ReferenceSet) URLs() []string {
	urls := make([]string, 0, len(s.refs))
	for url := range s.refs {
		urls = append(urls, url)
	}
	slices.Sort(urls)
	return urls
}

// Files returns the sorted paths referencing url, or nil if it is unknown.
func (s *ReferenceSet) Files(url string) []string {
	set, ok := s.refs[url]
	if !ok {
		return nil
	}
	files := make([]string, 0, len(set))
	for file := range set {
		files = append(files, file)
	}
	slices.Sort(files)
	return files
}

// Builder runs extraction and ignore filtering over source files.
type Builder struct {
	extractor *extract.Extractor
	ignore    *urlutil.IgnoreMatcher
	logger    *zap.Logger
}

// NewBuilder creates a Builder. A nil ignore matcher ignores nothing.
func NewBuilder(extractor *extract.Extractor, ignore *urlutil.IgnoreMatcher, logger *zap.Logger) *Builder {
	if logger == nil {
		logger = zap.NewNop()
	}
	if extractor == nil {
		extractor = extract.New(nil, logger)
	}
	return &Builder{
		extractor: extractor,
		ignore:    ignore,
		logger:    logger,
	}
}

// Build indexes files one at a time. Ignored URLs never enter the set.
func (b *Builder) Build(files []source.File) *ReferenceSet {
	set := NewReferenceSet()
	for _, file := range files {
		links := b.extractor.Links(file.Path, file.Content)
		for _, link := range links {
			if b.ignore.Match(link) {
				b.logger.Debug("ignoring url", zap.String("url", link), zap.String("path", file.Path))
				continue
			}
			set.Add(link, file.Path)
		}
		b.logger.Debug("indexed file", zap.String("path", file.Path), zap.Int("links", len(links)))
	}
	return set
}

// BuildFS reads paths from fsys and indexes the readable ones. It returns the
// set and the number of files that were actually scanned.
func (b *Builder) BuildFS(fsys fs.FS, paths []string) (*ReferenceSet, int) {
	files := source.Load(fsys, paths, b.logger)
	return b.Build(files), len(files)
}
