package watcher

import (
	"path/filepath"
	"strings"
)

// defaultIgnorePatterns are always ignored regardless of configuration.
// They cover partial downloads and editor or sync-tool temporaries that
// may carry a .json extension while still being written.
var defaultIgnorePatterns = []string{
	".*",
	"*~",
	"*.tmp",
	"*.tmp.*",
	"*.part",
	"*.crdownload",
	"*.swp",
	"#*#",
	"tmp",
	"archive",
}

// Filter checks paths against glob patterns. Each path component is
// matched, so "archive" also ignores "snapshots/archive/old.json".
type Filter struct {
	patterns []string
}

// NewFilter merges the default patterns with extra, dropping duplicates.
func NewFilter(extra []string) *Filter {
	seen := make(map[string]struct{}, len(defaultIgnorePatterns)+len(extra))
	var merged []string
	for _, list := range [][]string{defaultIgnorePatterns, extra} {
		for _, p := range list {
			if _, ok := seen[p]; ok || p == "" {
				continue
			}
			seen[p] = struct{}{}
			merged = append(merged, p)
		}
	}
	return &Filter{patterns: merged}
}

// ShouldIgnore returns true if any component of path matches a pattern.
func (f *Filter) ShouldIgnore(path string) bool {
	for _, component := range strings.Split(filepath.Clean(path), string(filepath.Separator)) {
		if component == "." || component == ".." || component == "" {
			continue
		}
		for _, pattern := range f.patterns {
			if matched, _ := filepath.Match(pattern, component); matched {
				return true
			}
		}
	}
	return false
}
