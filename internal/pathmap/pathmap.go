// Package pathmap translates host paths into the container's view of the
// workspace, plans the bind mounts a run needs, and maps container paths
// in tool output back to what the user typed.
package pathmap

import (
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"
)

// Container-side locations.
const (
	DefaultWorkspace = "/workspace"
	CacheTarget      = "/cache"

	auxRoot      = "/lintbox"
	configTarget = auxRoot + "/config"
	reportTarget = auxRoot + "/report"
	sourceTarget = auxRoot + "/src"
)

// Mount is a bind mount of a host path into the container.
type Mount struct {
	Source   string `json:"source"` // absolute host path
	Target   string `json:"target"` // absolute container path
	ReadOnly bool   `json:"read_only"`
}

func (m Mount) String() string {
	mode := "rw"
	if m.ReadOnly {
		mode = "ro"
	}
	return m.Source + ":" + m.Target + ":" + mode
}

// Mapper maps between a host directory and its container mount point.
type Mapper struct {
	HostRoot      string // absolute host working directory
	ContainerRoot string // e.g. /workspace

	// reverse holds auxiliary mounts that output rewriting maps back to
	// their host directory. Set by Plan.
	reverse []Mount
}

// New returns a Mapper for hostRoot mounted at containerRoot.
func New(hostRoot, containerRoot string) *Mapper {
	if containerRoot == "" {
		containerRoot = DefaultWorkspace
	}
	return &Mapper{
		HostRoot:      filepath.Clean(hostRoot),
		ContainerRoot: path.Clean(containerRoot),
	}
}

// Relative returns hostPath relative to the host root in slash form.
// The second result is false when hostPath lies outside the host root.
func (m *Mapper) Relative(hostPath string) (string, bool) {
	abs := hostPath
	if !filepath.IsAbs(abs) {
		abs = filepath.Join(m.HostRoot, abs)
	}
	rel, err := filepath.Rel(m.HostRoot, abs)
	if err != nil {
		return "", false
	}
	if rel == ".." || strings.HasPrefix(rel, ".."+string(filepath.Separator)) {
		return "", false
	}
	return filepath.ToSlash(rel), true
}

// ToContainer returns the container path of hostPath, reached through
// the workspace mount. The second result is false when hostPath lies
// outside the host root and needs a mount of its own.
func (m *Mapper) ToContainer(hostPath string) (string, bool) {
	rel, ok := m.Relative(hostPath)
	if !ok {
		return "", false
	}
	return path.Join(m.ContainerRoot, rel), true
}

// Request lists the host paths a run hands to the tool.
type Request struct {
	Files      []string // target files, relative to the host root or absolute
	ConfigFile string   // optional; must exist
	ReportFile string   // optional; created by the tool
	CacheDir   string   // optional; created if missing
	Writable   bool     // the tool rewrites files in the workspace
}

// Plan is the mount layout of one run and the container paths of every
// host path in the Request.
type Plan struct {
	Mounts     []Mount // Mounts[0] is the workspace mount
	Files      []string
	ConfigPath string
	ReportPath string
	CachePath  string
}

// Plan computes the mounts for req. Report and cache directories are
// created on the host so they can be bind-mounted. A mount is read-write
// only when the tool writes under it.
func (m *Mapper) Plan(req Request) (*Plan, error) {
	m.reverse = nil

	workspace := Mount{Source: m.HostRoot, Target: m.ContainerRoot, ReadOnly: !req.Writable}
	p := &Plan{}
	var extra []Mount

	srcDirs := make(map[string]string) // host dir -> container dir
	for _, f := range req.Files {
		if rel, ok := m.Relative(f); ok {
			p.Files = append(p.Files, rel)
			continue
		}
		abs, err := filepath.Abs(f)
		if err != nil {
			return nil, fmt.Errorf("resolving %s: %w", f, err)
		}
		dir := filepath.Dir(abs)
		target, ok := srcDirs[dir]
		if !ok {
			target = sourceTarget + "/" + strconv.Itoa(len(srcDirs))
			srcDirs[dir] = target
			mnt := Mount{Source: dir, Target: target, ReadOnly: !req.Writable}
			extra = append(extra, mnt)
			m.reverse = append(m.reverse, mnt)
		}
		p.Files = append(p.Files, path.Join(target, filepath.Base(abs)))
	}

	if req.ConfigFile != "" {
		abs, err := m.abs(req.ConfigFile)
		if err != nil {
			return nil, err
		}
		if cp, ok := m.ToContainer(abs); ok {
			p.ConfigPath = cp
		} else {
			target := path.Join(configTarget, filepath.Base(abs))
			extra = append(extra, Mount{Source: abs, Target: target, ReadOnly: true})
			p.ConfigPath = target
		}
	}

	if req.ReportFile != "" {
		abs, err := m.abs(req.ReportFile)
		if err != nil {
			return nil, err
		}
		dir := filepath.Dir(abs)
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating report directory: %w", err)
		}
		base := filepath.Base(abs)
		rel, inside := m.Relative(dir)
		switch {
		case inside && rel == ".":
			workspace.ReadOnly = false
			p.ReportPath = path.Join(m.ContainerRoot, base)
		case inside:
			target := path.Join(m.ContainerRoot, rel)
			if workspace.ReadOnly {
				extra = append(extra, Mount{Source: dir, Target: target})
			}
			p.ReportPath = path.Join(target, base)
		default:
			mnt := Mount{Source: dir, Target: reportTarget}
			extra = append(extra, mnt)
			m.reverse = append(m.reverse, mnt)
			p.ReportPath = path.Join(reportTarget, base)
		}
	}

	if req.CacheDir != "" {
		abs, err := m.abs(req.CacheDir)
		if err != nil {
			return nil, err
		}
		if err := os.MkdirAll(abs, 0o755); err != nil {
			return nil, fmt.Errorf("creating cache directory: %w", err)
		}
		extra = append(extra, Mount{Source: abs, Target: CacheTarget})
		p.CachePath = CacheTarget
	}

	p.Mounts = append([]Mount{workspace}, extra...)
	return p, nil
}

func (m *Mapper) abs(p string) (string, error) {
	if filepath.IsAbs(p) {
		return filepath.Clean(p), nil
	}
	return filepath.Join(m.HostRoot, p), nil
}

// Rewrite maps container paths in a line of tool output back to host
// paths. The workspace prefix is deleted so paths read as the user passed
// them; auxiliary mounts are replaced by their host directory. Only
// occurrences at the start of the line or of a token are touched, so a
// path that merely contains the container root is left alone. Host
// directories of auxiliary mounts are never rewritten, which keeps
// Rewrite idempotent when such a directory lies under the container root.
func (m *Mapper) Rewrite(line string) string {
	rules := make([]prefixRule, 0, 2*len(m.reverse)+1)
	for _, r := range m.reverse {
		src := hostDir(r.Source)
		rules = append(rules, prefixRule{old: src, repl: src})
	}
	for _, r := range m.reverse {
		rules = append(rules, prefixRule{old: r.Target + "/", repl: hostDir(r.Source)})
	}
	rules = append(rules, prefixRule{old: m.ContainerRoot + "/"})
	return replaceAnchored(line, rules)
}

func hostDir(dir string) string {
	return strings.TrimSuffix(dir, string(filepath.Separator)) + string(filepath.Separator)
}

type prefixRule struct {
	old, repl string
}

// replaceAnchored rewrites s in a single left to right pass. At each
// anchored position the first matching rule wins; replaced text is never
// scanned again.
func replaceAnchored(s string, rules []prefixRule) string {
	found := false
	for _, r := range rules {
		if r.old != r.repl && strings.Contains(s, r.old) {
			found = true
			break
		}
	}
	if !found {
		return s
	}

	var b strings.Builder
	b.Grow(len(s))
	anchored := true
	for i := 0; i < len(s); {
		if anchored {
			if r, ok := matchRule(s[i:], rules); ok {
				b.WriteString(r.repl)
				i += len(r.old)
				// An empty replacement keeps the anchor, so repeated prefixes collapse.
				if r.repl != "" {
					anchored = isBoundary(r.repl[len(r.repl)-1])
				}
				continue
			}
		}
		b.WriteByte(s[i])
		anchored = isBoundary(s[i])
		i++
	}
	return b.String()
}

func matchRule(s string, rules []prefixRule) (prefixRule, bool) {
	for _, r := range rules {
		if strings.HasPrefix(s, r.old) {
			return r, true
		}
	}
	return prefixRule{}, false
}

func isBoundary(c byte) bool {
	switch c {
	case ' ', '\t', ':', '(', '[', '{', '"', '\'', '=', ',', '<':
		return true
	}
	return false
}
