// Package selector expands command-line paths into the files a lint
// tool should examine.
package selector

import (
	"io/fs"
	"os"
	"path/filepath"
	"strings"
)

// Matcher reports whether a file is of interest to a tool.
// Implemented by toolspec.Matcher.
type Matcher interface {
	Match(path string) bool
}

// Rule is the selection rule of one tool.
type Rule struct {
	Match    Matcher
	Excludes []string // plain substrings, no globbing
	FullPath bool     // test excludes against the whole path instead of the basename
}

// Select returns the files under paths accepted by rule, in input order.
// Directories are walked recursively in lexical order. Paths that do not
// exist, and anything that is neither a regular file nor a directory, are
// skipped. An empty paths list means the current directory.
//
// Select does not de-duplicate: overlapping inputs yield repeated entries.
func Select(paths []string, rule Rule) []string {
	if len(paths) == 0 {
		paths = []string{"."}
	}

	var out []string
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			continue
		}
		switch {
		case info.Mode().IsRegular():
			if rule.accepts(p) {
				out = append(out, p)
			}
		case info.IsDir():
			out = append(out, walk(p, rule)...)
		}
	}
	return out
}

func walk(root string, rule Rule) []string {
	var out []string
	_ = filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			// Unreadable directories are skipped, not fatal.
			if d != nil && d.IsDir() && path != root {
				return fs.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			// Symlinks are followed only when they point at regular files.
			if d.Type()&fs.ModeSymlink == 0 {
				return nil
			}
			info, err := os.Stat(path)
			if err != nil || !info.Mode().IsRegular() {
				return nil
			}
		}
		if rule.accepts(path) {
			out = append(out, path)
		}
		return nil
	})
	return out
}

func (r Rule) accepts(path string) bool {
	if !r.Match.Match(path) {
		return false
	}
	return !r.excluded(path)
}

func (r Rule) excluded(path string) bool {
	subject := filepath.Base(path)
	if r.FullPath {
		subject = path
	}
	for _, ex := range r.Excludes {
		if ex != "" && strings.Contains(subject, ex) {
			return true
		}
	}
	return false
}
