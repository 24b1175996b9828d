// Package config loads and validates the optional .lintbox.yaml file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/deixis/lintbox/internal/toolspec"
)

// FileName is the name of the configuration file.
const FileName = ".lintbox.yaml"

// Default values, applied when neither a flag nor the file sets them.
const (
	DefaultTimeout   = 30 * time.Minute // covers the first image build
	DefaultMaxOutput = 1 << 20          // 1 MB, MCP responses only
	DefaultEngine    = "docker"
	DefaultROSDistro = "jazzy"
	DefaultWorkspace = "/workspace"
)

var engines = []string{"docker", "docker-cli", "podman"}

// Config holds the parsed .lintbox.yaml configuration.
// All fields are optional; zero values represent defaults.
type Config struct {
	Version        int                   `yaml:"version"`
	Engine         string                `yaml:"engine"`
	RawTimeout     string                `yaml:"timeout"`    // e.g. "10m", "90s"
	RawMaxOutput   int                   `yaml:"max_output"` // bytes
	WorkspaceMount string                `yaml:"workspace_mount"`
	BuildDir       string                `yaml:"build_dir"`
	RawROSDistro   string                `yaml:"ros_distro"`
	RawHostUser    *bool                 `yaml:"host_user"`
	HistoryDir     string                `yaml:"history_dir"`
	MetricsFile    string                `yaml:"metrics_file"`
	Tools          map[string]ToolConfig `yaml:"tools"`
}

// ToolConfig overrides the defaults of one tool.
type ToolConfig struct {
	Image    string            `yaml:"image"`    // image tag to build and run
	Excludes []string          `yaml:"excludes"` // appended to --exclude
	Options  map[string]Values `yaml:"options"`  // flag name -> value(s)
	Empty    string            `yaml:"empty"`    // skip, sentinel or invoke
}

// Values is an option value. YAML may give it as a scalar or a list.
type Values []string

func (v *Values) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		*v = Values{node.Value}
		return nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return err
		}
		*v = list
		return nil
	default:
		return fmt.Errorf("line %d: option value must be a string or a list", node.Line)
	}
}

// Timeout returns the configured timeout or the default.
func (c *Config) Timeout() time.Duration {
	if c.RawTimeout != "" {
		d, err := time.ParseDuration(c.RawTimeout)
		if err == nil && d > 0 {
			return d
		}
	}
	return DefaultTimeout
}

// MaxOutputBytes returns the configured max output size or the default.
func (c *Config) MaxOutputBytes() int {
	if c.RawMaxOutput > 0 {
		return c.RawMaxOutput
	}
	return DefaultMaxOutput
}

// EngineName returns the configured container engine or the default.
func (c *Config) EngineName() string {
	if c.Engine != "" {
		return c.Engine
	}
	return DefaultEngine
}

// ContainerWorkspace returns where the working directory is mounted.
func (c *Config) ContainerWorkspace() string {
	if c.WorkspaceMount != "" {
		return c.WorkspaceMount
	}
	return DefaultWorkspace
}

// ROSDistro returns the ROS distribution the images are built on.
func (c *Config) ROSDistro() string {
	if c.RawROSDistro != "" {
		return c.RawROSDistro
	}
	return DefaultROSDistro
}

// HostUser reports whether containers run as the invoking user. It
// defaults to true everywhere but Windows, where bind mounts do not carry
// Unix ownership.
func (c *Config) HostUser() bool {
	if c.RawHostUser != nil {
		return *c.RawHostUser
	}
	return runtime.GOOS != "windows"
}

// BuildRoot returns the directory build contexts are materialized in.
func (c *Config) BuildRoot() string {
	if c.BuildDir != "" {
		return c.BuildDir
	}
	return filepath.Join(cacheDir(), "build")
}

// HistoryRoot returns the directory run records are stored in.
func (c *Config) HistoryRoot() string {
	if c.HistoryDir != "" {
		return c.HistoryDir
	}
	return filepath.Join(cacheDir(), "runs")
}

// Tool returns the overrides for tool, or an empty ToolConfig.
func (c *Config) Tool(name string) ToolConfig {
	return c.Tools[name]
}

func cacheDir() string {
	dir, err := os.UserCacheDir()
	if err != nil {
		dir = os.TempDir()
	}
	return filepath.Join(dir, "lintbox")
}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if c.Engine != "" && !contains(engines, c.Engine) {
		errs = append(errs, fmt.Errorf("engine: unknown engine %q (want one of %v)", c.Engine, engines))
	}
	if c.RawTimeout != "" {
		if d, err := time.ParseDuration(c.RawTimeout); err != nil || d <= 0 {
			errs = append(errs, fmt.Errorf("timeout: invalid duration %q", c.RawTimeout))
		}
	}
	if c.WorkspaceMount != "" && !strings.HasPrefix(c.WorkspaceMount, "/") {
		errs = append(errs, fmt.Errorf("workspace_mount: %q is not an absolute path", c.WorkspaceMount))
	}
	for name, tc := range c.Tools {
		spec, ok := toolspec.Lookup(name)
		if !ok {
			errs = append(errs, fmt.Errorf("tools.%s: unknown tool", name))
			continue
		}
		if tc.Empty != "" {
			if _, err := toolspec.ParseEmptyPolicy(tc.Empty); err != nil {
				errs = append(errs, fmt.Errorf("tools.%s.empty: %w", name, err))
			}
		}
		for opt := range tc.Options {
			if _, ok := spec.Flag(opt); !ok {
				errs = append(errs, fmt.Errorf("tools.%s.options: %s has no option %q", name, spec.Name, opt))
			}
		}
	}
	return errors.Join(errs...)
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// LoadResult holds the parsed config and the discovered project root.
type LoadResult struct {
	Config *Config
	Root   string // directory holding .lintbox.yaml or .git; falls back to the start directory
	Path   string // the file that was read, empty if none
}

// Load reads .lintbox.yaml for the project containing dir. The project
// root is the first directory, walking upward from dir, that holds the
// file or a .git entry. If no file exists, a default Config is returned.
// Relative paths in the file are resolved against the root.
func Load(dir string) (*LoadResult, error) {
	dir, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("resolving %s: %w", dir, err)
	}
	root := findRoot(dir)

	path := filepath.Join(root, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &LoadResult{Config: &Config{}, Root: root}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", FileName, err)
	}

	cfg := &Config{}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", FileName, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid %s: %w", path, err)
	}
	cfg.resolve(root)
	return &LoadResult{Config: cfg, Root: root, Path: path}, nil
}

// resolve makes paths absolute and keys tools by their canonical name.
// Relative paths, including config file and cache options, are taken
// from the project root, not the directory lintbox runs in.
func (c *Config) resolve(root string) {
	for _, p := range []*string{&c.BuildDir, &c.HistoryDir, &c.MetricsFile} {
		if *p != "" && !filepath.IsAbs(*p) {
			*p = filepath.Join(root, *p)
		}
	}
	if len(c.Tools) > 0 {
		tools := make(map[string]ToolConfig, len(c.Tools))
		for name, tc := range c.Tools {
			spec, _ := toolspec.Lookup(name)
			resolveOptionPaths(spec, tc.Options, root)
			tools[spec.Name] = tc
		}
		c.Tools = tools
	}
}

func resolveOptionPaths(spec toolspec.ToolSpec, opts map[string]Values, root string) {
	for name, vals := range opts {
		f, ok := spec.Flag(name)
		if !ok || (f.Kind != toolspec.FlagConfig && f.Kind != toolspec.FlagCache) {
			continue
		}
		if len(vals) > 0 && vals[0] != "" && !filepath.IsAbs(vals[0]) {
			vals[0] = filepath.Join(root, vals[0])
		}
	}
}

// findRoot walks upward from dir looking for the config file or .git.
func findRoot(dir string) string {
	for d := dir; ; {
		for _, marker := range []string{FileName, ".git"} {
			if _, err := os.Stat(filepath.Join(d, marker)); err == nil {
				return d
			}
		}
		parent := filepath.Dir(d)
		if parent == d {
			return dir
		}
		d = parent
	}
}
