// Package source discovers candidate files under a root directory and reads
// their content for link extraction.
package source

import (
	"errors"
	"fmt"
	"io/fs"
	"slices"
	"strings"

	"github.com/gobwas/glob"
	"go.uber.org/zap"
)

// DefaultInclude matches the markup and documentation files scanned when no
// include patterns are configured.
var DefaultInclude = []string{"**/*.{html,htm,cshtml,razor,vue,jsx,tsx,svelte,md}"}

// DefaultExclude keeps dependency and VCS directories out of the scan.
var DefaultExclude = []string{"**/node_modules/**", "**/.git/**"}

// File is a source file path and its content, read once.
type File struct {
	Path    string
	Content string
}

// Finder walks a file system and selects files matching include globs that
// do not match any exclude glob.
type Finder struct {
	include []glob.Glob
	exclude []glob.Glob
	dot     bool // an include pattern names a dot segment
	logger  *zap.Logger
}

// NewFinder compiles include and exclude patterns. Patterns use `/` as the
// separator and support `*`, `**`, `?`, `[...]` and `{a,b}`. Each `**/`
// segment may also match zero directories, so `**/*.md` matches README.md and
// `docs/**/*.md` matches docs/index.md.
//
// Files and directories whose name starts with a dot are skipped unless an
// include pattern names a dot segment, such as `.github/**/*.md`.
func NewFinder(include, exclude []string, logger *zap.Logger) (*Finder, error) {
	if len(include) == 0 {
		include = DefaultInclude
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	inc, err := compileGlobs(include)
	if err != nil {
		return nil, fmt.Errorf("compile include globs: %w", err)
	}
	exc, err := compileGlobs(exclude)
	if err != nil {
		return nil, fmt.Errorf("compile exclude globs: %w", err)
	}
	dot := slices.ContainsFunc(include, namesDotSegment)
	return &Finder{include: inc, exclude: exc, dot: dot, logger: logger}, nil
}

func namesDotSegment(pattern string) bool {
	pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "./")
	return strings.HasPrefix(pattern, ".") || strings.Contains(pattern, "/.")
}

// expandDoubleStar returns pattern with every combination of its `**/`
// segments kept or removed.
func expandDoubleStar(pattern string) []string {
	i := strings.Index(pattern, "**/")
	if i < 0 {
		return []string{pattern}
	}
	var out []string
	for _, rest := range expandDoubleStar(pattern[i+3:]) {
		out = append(out, pattern[:i+3]+rest, pattern[:i]+rest)
	}
	return out
}

func isHidden(path string) bool {
	for segment := range strings.SplitSeq(path, "/") {
		if strings.HasPrefix(segment, ".") && segment != "." {
			return true
		}
	}
	return false
}

func compileGlobs(patterns []string) ([]glob.Glob, error) {
	var compiled []glob.Glob
	for _, pattern := range patterns {
		pattern = strings.TrimPrefix(strings.TrimSpace(pattern), "./")
		if pattern == "" {
			continue
		}
		for _, variant := range expandDoubleStar(pattern) {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				return nil, fmt.Errorf("pattern %q: %w", pattern, err)
			}
			compiled = append(compiled, g)
		}
	}
	return compiled, nil
}

func matchAny(globs []glob.Glob, name string) bool {
	for _, g := range globs {
		if g.Match(name) {
			return true
		}
	}
	return false
}

// Find returns the slash-separated paths of matching files in lexical order.
// Unreadable subdirectories are skipped; only a failure to read the root
// itself is returned as an error.
func (f *Finder) Find(fsys fs.FS) ([]string, error) {
	var paths []string

	err := fs.WalkDir(fsys, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			if path == "." {
				return walkErr
			}
			f.logger.Debug("skipping unreadable path", zap.String("path", path), zap.Error(walkErr))
			if entry != nil && entry.IsDir() {
				return fs.SkipDir
			}
			return nil
		}

		if entry.IsDir() {
			if path == "." {
				return nil
			}
			if (!f.dot && isHidden(path)) || matchAny(f.exclude, path+"/") {
				return fs.SkipDir
			}
			return nil
		}
		if !f.dot && isHidden(path) {
			return nil
		}

		if !isRegularFile(fsys, path, entry) {
			return nil
		}
		if !matchAny(f.include, path) || matchAny(f.exclude, path) {
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk files: %w", err)
	}

	f.logger.Debug("files matched", zap.Int("count", len(paths)))
	return paths, nil
}

// isRegularFile accepts regular files and symlinks that resolve to one.
func isRegularFile(fsys fs.FS, path string, entry fs.DirEntry) bool {
	if entry.Type().IsRegular() {
		return true
	}
	if entry.Type()&fs.ModeSymlink == 0 {
		return false
	}
	info, err := fs.Stat(fsys, path)
	return err == nil && info.Mode().IsRegular()
}

// Load reads each path from fsys. Files that cannot be read are logged and
// left out of the result.
func Load(fsys fs.FS, paths []string, logger *zap.Logger) []File {
	if logger == nil {
		logger = zap.NewNop()
	}

	files := make([]File, 0, len(paths))
	for _, path := range paths {
		data, err := fs.ReadFile(fsys, path)
		if err != nil {
			logger.Debug("skipping unreadable file", zap.String("path", path), zap.Error(err))
			continue
		}
		files = append(files, File{Path: path, Content: string(data)})
	}
	return files
}

// IsNotExist reports whether err was caused by a missing root directory.
func IsNotExist(err error) bool {
	return errors.Is(err, fs.ErrNotExist)
}
