package watch

import (
	"path"
	"path/filepath"
	"strings"
)

// PatternFilter selects the vault files whose changes are reported.
// Patterns are slash-separated globs tried against the file name and
// against the path relative to Root; a pattern ending in "/" names a
// directory and matches everything below it. Files that are hidden or
// live in a hidden directory, such as the state directory, never match.
type PatternFilter struct {
	Root    string
	Include []string
	Exclude []string
}

// NewPatternFilter creates a filter for the vault at root.
func NewPatternFilter(root string, include, exclude []string) *PatternFilter {
	return &PatternFilter{
		Root:    root,
		Include: include,
		Exclude: exclude,
	}
}

// Relative returns p relative to the vault root with forward slashes.
// Paths already relative are only cleaned.
func (f *PatternFilter) Relative(p string) string {
	if f.Root != "" && filepath.IsAbs(p) {
		if rel, err := filepath.Rel(f.Root, p); err == nil {
			p = rel
		}
	}
	return path.Clean(filepath.ToSlash(p))
}

// Matches reports whether a change to p should be reported. Excludes win
// over includes; without includes every visible file inside the vault
// passes.
func (f *PatternFilter) Matches(p string) bool {
	rel := f.Relative(p)
	if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
		return false
	}
	for _, seg := range strings.Split(rel, "/") {
		if strings.HasPrefix(seg, ".") && seg != "." {
			return false
		}
	}

	for _, pattern := range f.Exclude {
		if matchPattern(pattern, rel) {
			return false
		}
	}
	if len(f.Include) == 0 {
		return true
	}
	for _, pattern := range f.Include {
		if matchPattern(pattern, rel) {
			return true
		}
	}
	return false
}

func matchPattern(pattern, rel string) bool {
	pattern = strings.TrimPrefix(filepath.ToSlash(pattern), "./")
	if dir, ok := strings.CutSuffix(pattern, "/"); ok {
		return rel == dir || strings.HasPrefix(rel, dir+"/")
	}
	if matched, _ := path.Match(pattern, path.Base(rel)); matched {
		return true
	}
	matched, _ := path.Match(pattern, rel)
	return matched
}
