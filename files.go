package wtr

import (
	"fmt"
	"path/filepath"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
)

// ResolveFiles expands test file patterns. Patterns use doublestar syntax,
// so "**" matches any number of directories; node_modules and dot
// directories below the static part of a pattern are skipped. Plain paths
// are kept as given. The result is sorted and unique.
func ResolveFiles(patterns ...string) ([]string, error) {
	unique := map[string]bool{}
	for _, pattern := range patterns {
		pattern = filepath.ToSlash(filepath.Clean(pattern))
		if !strings.ContainsAny(pattern, "*?[{") {
			unique[filepath.FromSlash(pattern)] = true
			continue
		}
		matches, err := doublestar.FilepathGlob(filepath.FromSlash(pattern), doublestar.WithFilesOnly())
		if err != nil {
			return nil, fmt.Errorf("invalid file pattern %v: %w", pattern, err)
		}
		base, _ := doublestar.SplitPattern(pattern)
		for _, match := range matches {
			if skipped(base, match) {
				continue
			}
			unique[filepath.Clean(match)] = true
		}
	}
	ret := make([]string, 0, len(unique))
	for file := range unique {
		ret = append(ret, file)
	}
	sort.Strings(ret)
	return ret, nil
}

// skipped reports whether match sits in an ignored directory below base.
func skipped(base, match string) bool {
	rel, err := filepath.Rel(filepath.FromSlash(base), match)
	if err != nil {
		return false
	}
	segments := strings.Split(filepath.ToSlash(rel), "/")
	for _, dir := range segments[:len(segments)-1] {
		if skipDir(dir) {
			return true
		}
	}
	return false
}

func skipDir(name string) bool {
	return name == "node_modules" || (strings.HasPrefix(name, ".") && name != "." && name != "..")
}
