// Package toolspec describes the lint tools lintbox knows how to run.
// Each tool is a ToolSpec value: which files it looks at, which flags it
// accepts, and which image provides it. Per-tool behaviour lives here as
// data so the runner itself stays generic.
package toolspec

import (
	"embed"
	"fmt"
	"io/fs"
	"path/filepath"
	"strings"
)

//go:embed dockerfiles
var dockerfiles embed.FS

// EmptyPolicy decides what happens when no files were selected.
type EmptyPolicy string

const (
	// EmptySkip reports "nothing to check" and succeeds without running a container.
	EmptySkip EmptyPolicy = "skip"
	// EmptySentinel passes "." to the tool and lets it decide.
	EmptySentinel EmptyPolicy = "sentinel"
	// EmptyInvoke runs the tool with an empty file list.
	EmptyInvoke EmptyPolicy = "invoke"
)

// ParseEmptyPolicy parses a policy name from configuration.
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch p := EmptyPolicy(s); p {
	case EmptySkip, EmptySentinel, EmptyInvoke:
		return p, nil
	}
	return "", fmt.Errorf("unknown empty policy %q (want skip, sentinel or invoke)", s)
}

// ExcludeBy selects what an exclude pattern is matched against.
type ExcludeBy int

const (
	// ExcludeBase matches exclude substrings against the file's basename.
	ExcludeBase ExcludeBy = iota
	// ExcludePath matches exclude substrings against the whole path.
	ExcludePath
)

// FlagKind is the value shape of a tool option.
type FlagKind int

const (
	FlagString FlagKind = iota
	FlagInt
	FlagBool
	FlagList
	// FlagConfig is a host file passed to the tool by its container path.
	FlagConfig
	// FlagCache is a host directory mounted read-write for the tool's cache.
	FlagCache
)

// FlagSpec is one tool-wide option. Options are emitted in the order
// they are declared on the ToolSpec.
type FlagSpec struct {
	Name    string   // CLI flag name, e.g. "linelength"
	Arg     string   // argument passed to the tool, e.g. "--linelength"
	Kind    FlagKind // value shape
	Default string   // applied when the option is unset; "" means no default
	Choices []string // allowed values, if restricted
	Group   string   // mutually exclusive group name
	Writes  bool     // the tool writes into the workspace when set
	Usage   string
}

// Matcher is the file predicate of a tool.
type Matcher struct {
	Names      []string // exact basenames, e.g. CMakeLists.txt
	Extensions []string // extensions without the leading dot, e.g. "cpp", "cmake.in"
}

// Match reports whether the basename of path is a file the tool checks.
func (m Matcher) Match(path string) bool {
	base := filepath.Base(path)
	for _, n := range m.Names {
		if base == n {
			return true
		}
	}
	for _, ext := range m.Extensions {
		if strings.HasSuffix(base, "."+ext) {
			return true
		}
	}
	return false
}

// WithExtensions returns a copy of m that matches exts instead of its
// own extensions. Exact names are kept.
func (m Matcher) WithExtensions(exts []string) Matcher {
	out := Matcher{Names: m.Names}
	for _, e := range exts {
		out.Extensions = append(out.Extensions, strings.TrimPrefix(e, "."))
	}
	return out
}

// ToolSpec is the static description of one wrapped lint tool.
type ToolSpec struct {
	Name        string // subcommand name
	Description string
	Kind        string // human name of the file kind, e.g. "C/C++"
	Command     string // entry command inside the image
	Image       string // image tag built for the tool
	Dockerfile  string // Dockerfile name inside the build context

	Match     Matcher
	ExcludeBy ExcludeBy
	Empty     EmptyPolicy
	Flags     []FlagSpec

	// ReportFlag is the tool argument that takes the xunit report path.
	ReportFlag string
	// CustomExtensions allows --extensions to replace Match.Extensions.
	CustomExtensions bool
}

// Flag returns the flag named name.
func (t ToolSpec) Flag(name string) (FlagSpec, bool) {
	for _, f := range t.Flags {
		if f.Name == name {
			return f, true
		}
	}
	return FlagSpec{}, false
}

// BuildContext returns the embedded build context of the tool.
func (t ToolSpec) BuildContext() (fs.FS, error) {
	sub, err := fs.Sub(dockerfiles, "dockerfiles/"+t.Name)
	if err != nil {
		return nil, fmt.Errorf("build context for %s: %w", t.Name, err)
	}
	if _, err := fs.Stat(sub, t.Dockerfile); err != nil {
		return nil, fmt.Errorf("build context for %s: %w", t.Name, err)
	}
	return sub, nil
}
