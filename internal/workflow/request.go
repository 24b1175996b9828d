package workflow

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"github.com/deixis/lintbox/internal/config"
	"github.com/deixis/lintbox/internal/pathmap"
	"github.com/deixis/lintbox/internal/toolspec"
)

// Options maps a tool option (a FlagSpec name) to its value. Scalar
// options hold one value; list options hold any number.
type Options map[string][]string

// RunRequest is one resolved invocation of a tool.
type RunRequest struct {
	Tool       string
	WorkDir    string   // host directory mounted as the workspace; default: current directory
	Paths      []string // files and directories; default: the work directory
	Excludes   []string // added to the configured excludes
	Extensions []string // replaces the tool's extensions, where it allows that
	ReportFile string   // xunit report to produce, relative to WorkDir or absolute
	Options    Options  // explicitly set options; they win over config and defaults
}

// Result is the outcome of one run.
type Result struct {
	RunID     string
	Tool      string
	Image     string
	WorkDir   string
	Files     []string // selected host files
	Args      []string // in-container argv
	Mounts    []pathmap.Mount
	Lines     []string // rewritten output, up to the configured max_output
	LineCount int      // all lines relayed, including those not kept
	Truncated bool
	ExitCode  int
	Skipped   bool // nothing to lint; no container was run
	Failure   *Failure
	Started   time.Time
	Duration  time.Duration
}

// UsageError reports an invalid request. The CLI exits 2 on it.
type UsageError struct {
	Msg string
}

func (e *UsageError) Error() string { return e.Msg }

func usageErrorf(format string, args ...any) error {
	return &UsageError{Msg: fmt.Sprintf(format, args...)}
}

// resolveOptions merges configured and explicit options over the tool
// defaults. Precedence is explicit > config > default. The defaults of a
// mutually exclusive group apply only when no member of the group was set.
func resolveOptions(spec toolspec.ToolSpec, configured map[string]config.Values, explicit Options) (Options, error) {
	out := make(Options)

	// Explicit members of a group displace configured ones.
	explicitGroups := make(map[string]string)
	for name := range explicit {
		f, ok := spec.Flag(name)
		if !ok {
			return nil, usageErrorf("%s has no option --%s", spec.Name, name)
		}
		if f.Group == "" {
			continue
		}
		if other, dup := explicitGroups[f.Group]; dup {
			a, b := sorted2(other, name)
			return nil, usageErrorf("--%s and --%s are mutually exclusive", a, b)
		}
		explicitGroups[f.Group] = name
	}
	for name, vals := range configured {
		f, ok := spec.Flag(name)
		if !ok {
			return nil, usageErrorf("%s has no option %q", spec.Name, name)
		}
		if _, shadowed := explicitGroups[f.Group]; f.Group != "" && shadowed {
			continue
		}
		out[name] = vals
	}
	for name, vals := range explicit {
		out[name] = vals
	}

	setGroups := make(map[string]bool)
	for name := range out {
		if f, _ := spec.Flag(name); f.Group != "" {
			setGroups[f.Group] = true
		}
	}
	for _, f := range spec.Flags {
		if _, ok := out[f.Name]; ok || f.Default == "" {
			continue
		}
		if f.Group != "" && setGroups[f.Group] {
			continue
		}
		out[f.Name] = []string{f.Default}
	}

	for name, vals := range out {
		f, _ := spec.Flag(name)
		if err := checkValues(f, vals); err != nil {
			return nil, err
		}
	}
	return out, nil
}

func checkValues(f toolspec.FlagSpec, vals []string) error {
	if f.Kind != toolspec.FlagList && len(vals) > 1 {
		return usageErrorf("--%s takes a single value, got %d", f.Name, len(vals))
	}
	for _, v := range vals {
		switch f.Kind {
		case toolspec.FlagInt:
			if _, err := strconv.Atoi(v); err != nil {
				return usageErrorf("--%s: %q is not an integer", f.Name, v)
			}
		case toolspec.FlagBool:
			if _, err := strconv.ParseBool(v); err != nil {
				return usageErrorf("--%s: %q is not a boolean", f.Name, v)
			}
		}
		if len(f.Choices) > 0 && !slices.Contains(f.Choices, v) {
			return usageErrorf("--%s: invalid choice %q (choose from %s)", f.Name, v, strings.Join(f.Choices, ", "))
		}
	}
	return nil
}

// hostFiles returns the config file and cache directory named by opts.
// A config file that does not exist is dropped with a warning, and a
// cache directory of os.DevNull means no cache.
func (e *Engine) hostFiles(spec toolspec.ToolSpec, opts Options, workDir string) (configFile, cacheDir string) {
	for _, f := range spec.Flags {
		vals := opts[f.Name]
		if len(vals) == 0 || vals[0] == "" {
			continue
		}
		switch f.Kind {
		case toolspec.FlagConfig:
			p := absUnder(workDir, vals[0])
			if _, err := os.Stat(p); err != nil {
				e.logger().Warn("config file not found, running without it", "tool", spec.Name, "path", vals[0])
				delete(opts, f.Name)
				continue
			}
			configFile = p
		case toolspec.FlagCache:
			if vals[0] == os.DevNull {
				delete(opts, f.Name)
				continue
			}
			cacheDir = absUnder(workDir, vals[0])
		}
	}
	return configFile, cacheDir
}

// writes reports whether opts enable an option that writes to the workspace.
func writes(spec toolspec.ToolSpec, opts Options) bool {
	for _, f := range spec.Flags {
		if !f.Writes {
			continue
		}
		if vals := opts[f.Name]; len(vals) > 0 {
			if b, _ := strconv.ParseBool(vals[0]); b {
				return true
			}
		}
	}
	return false
}

func sorted2(a, b string) (string, string) {
	if b < a {
		return b, a
	}
	return a, b
}
