package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}
}

func TestLoad_FromRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "version: 1\ntimeout: 10m\nengine: podman\n")

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != dir {
		t.Errorf("Root = %q, want %q", res.Root, dir)
	}
	if res.Path != filepath.Join(dir, FileName) {
		t.Errorf("Path = %q", res.Path)
	}
	if res.Config.Version != 1 {
		t.Errorf("Config.Version = %d, want 1", res.Config.Version)
	}
	if got := res.Config.Timeout(); got != 10*time.Minute {
		t.Errorf("Timeout() = %v, want 10m", got)
	}
	if got := res.Config.EngineName(); got != "podman" {
		t.Errorf("EngineName() = %q, want podman", got)
	}
}

func TestLoad_FromSubdirectory(t *testing.T) {
	root := t.TempDir()
	writeFile(t, filepath.Join(root, FileName), "version: 2\n")

	sub := filepath.Join(root, "src", "pkg")
	if err := os.MkdirAll(sub, 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(sub)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != root {
		t.Errorf("Root = %q, want %q", res.Root, root)
	}
	if res.Config.Version != 2 {
		t.Errorf("Config.Version = %d, want 2", res.Config.Version)
	}
}

func TestLoad_StopsAtGitRoot(t *testing.T) {
	outer := t.TempDir()
	writeFile(t, filepath.Join(outer, FileName), "version: 9\n")
	repo := filepath.Join(outer, "repo")
	if err := os.MkdirAll(filepath.Join(repo, ".git"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(repo)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if res.Root != repo {
		t.Errorf("Root = %q, want %q", res.Root, repo)
	}
	if res.Config.Version != 0 {
		t.Errorf("read config above the repository root, Version = %d", res.Config.Version)
	}
	if res.Path != "" {
		t.Errorf("Path = %q, want empty", res.Path)
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg := res.Config
	if cfg.Timeout() != DefaultTimeout {
		t.Errorf("Timeout() = %v", cfg.Timeout())
	}
	if cfg.MaxOutputBytes() != DefaultMaxOutput {
		t.Errorf("MaxOutputBytes() = %d", cfg.MaxOutputBytes())
	}
	if cfg.EngineName() != DefaultEngine {
		t.Errorf("EngineName() = %q", cfg.EngineName())
	}
	if cfg.ContainerWorkspace() != "/workspace" {
		t.Errorf("ContainerWorkspace() = %q", cfg.ContainerWorkspace())
	}
	if cfg.ROSDistro() != DefaultROSDistro {
		t.Errorf("ROSDistro() = %q", cfg.ROSDistro())
	}
	if !strings.HasSuffix(cfg.BuildRoot(), filepath.Join("lintbox", "build")) {
		t.Errorf("BuildRoot() = %q", cfg.BuildRoot())
	}
}

func TestLoad_ToolOverrides(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
tools:
  ament_cpplint:
    excludes: [third_party]
    options:
      linelength: 120
      filters: -whitespace/braces
  pep257:
    empty: skip
    options:
      add-ignore: [D100, D104]
`)

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cpp := res.Config.Tool("cpplint")
	if got := cpp.Options["linelength"]; len(got) != 1 || got[0] != "120" {
		t.Errorf("linelength = %v, want [120]", got)
	}
	if len(cpp.Excludes) != 1 || cpp.Excludes[0] != "third_party" {
		t.Errorf("Excludes = %v", cpp.Excludes)
	}
	pep := res.Config.Tool("pep257")
	if got := pep.Options["add-ignore"]; len(got) != 2 || got[1] != "D104" {
		t.Errorf("add-ignore = %v", got)
	}
	if pep.Empty != "skip" {
		t.Errorf("Empty = %q", pep.Empty)
	}
}

func TestLoad_ResolvesRelativePaths(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), "history_dir: .lintbox/runs\nmetrics_file: /var/lib/node/lintbox.prom\n")

	res, err := Load(dir)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := res.Config.HistoryRoot(); got != filepath.Join(dir, ".lintbox", "runs") {
		t.Errorf("HistoryRoot() = %q", got)
	}
	if got := res.Config.MetricsFile; got != "/var/lib/node/lintbox.prom" {
		t.Errorf("MetricsFile = %q", got)
	}
}

func TestLoad_ResolvesOptionPathsFromRoot(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, filepath.Join(dir, FileName), `
tools:
  mypy:
    options:
      config: tools/mypy.ini
      cache-dir: .mypy_cache
  flake8:
    options:
      config: /etc/flake8.cfg
`)
	if err := os.Mkdir(filepath.Join(dir, "src"), 0o755); err != nil {
		t.Fatal(err)
	}

	res, err := Load(filepath.Join(dir, "src"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	mypy := res.Config.Tool("mypy")
	if got := mypy.Options["config"]; len(got) != 1 || got[0] != filepath.Join(dir, "tools", "mypy.ini") {
		t.Errorf("config = %v", got)
	}
	if got := mypy.Options["cache-dir"]; len(got) != 1 || got[0] != filepath.Join(dir, ".mypy_cache") {
		t.Errorf("cache-dir = %v", got)
	}
	if got := res.Config.Tool("flake8").Options["config"]; got[0] != "/etc/flake8.cfg" {
		t.Errorf("absolute config = %v", got)
	}
}

func TestLoad_Invalid(t *testing.T) {
	cases := map[string]string{
		"engine":  "engine: lxc\n",
		"timeout": "timeout: soon\n",
		"tool":    "tools:\n  golint: {}\n",
		"option":  "tools:\n  flake8:\n    options:\n      reformat: true\n",
		"empty":   "tools:\n  flake8:\n    empty: maybe\n",
		"mount":   "workspace_mount: workspace\n",
		"yaml":    "tools: [\n",
	}
	for name, content := range cases {
		t.Run(name, func(t *testing.T) {
			dir := t.TempDir()
			writeFile(t, filepath.Join(dir, FileName), content)
			if _, err := Load(dir); err == nil {
				t.Errorf("Load accepted %q", content)
			}
		})
	}
}

func TestHostUser(t *testing.T) {
	off := false
	cfg := &Config{RawHostUser: &off}
	if cfg.HostUser() {
		t.Error("HostUser() = true, want false when disabled")
	}
}
