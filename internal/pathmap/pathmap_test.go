package pathmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestToContainer(t *testing.T) {
	m := New("/home/u/ws", "")

	got, ok := m.ToContainer("/home/u/ws/src/a.cpp")
	require.True(t, ok)
	assert.Equal(t, "/workspace/src/a.cpp", got)

	got, ok = m.ToContainer("src/a.cpp")
	require.True(t, ok)
	assert.Equal(t, "/workspace/src/a.cpp", got)

	got, ok = m.ToContainer("/home/u/ws")
	require.True(t, ok)
	assert.Equal(t, "/workspace", got)

	_, ok = m.ToContainer("/home/u/other/a.cpp")
	assert.False(t, ok)
	_, ok = m.ToContainer("/home/u/ws2/a.cpp")
	assert.False(t, ok)
}

func TestRewrite_StripsWorkspace(t *testing.T) {
	m := New("/home/u/ws", "/workspace")

	line := "/workspace/src/a.cpp:3:  Missing space  [whitespace/comma] [3]"
	want := "src/a.cpp:3:  Missing space  [whitespace/comma] [3]"
	assert.Equal(t, want, m.Rewrite(line))
	assert.Equal(t, want, m.Rewrite(m.Rewrite(line)))
}

func TestRewrite_TokenAnchored(t *testing.T) {
	m := New("/home/u/ws", "/workspace")

	assert.Equal(t, "checked a.py and b.py", m.Rewrite("checked /workspace/a.py and /workspace/b.py"))
	assert.Equal(t, `file="a.xml"`, m.Rewrite(`file="/workspace/a.xml"`))
	// Paths that only contain the root are left alone.
	assert.Equal(t, "/opt/workspace/a.py", m.Rewrite("/opt/workspace/a.py"))
	assert.Equal(t, "no paths here", m.Rewrite("no paths here"))
}

func TestPlan_FilesInsideWorkspace(t *testing.T) {
	root := t.TempDir()
	m := New(root, "")

	p, err := m.Plan(Request{Files: []string{"src/a.py", filepath.Join(root, "b.py")}})
	require.NoError(t, err)

	assert.Equal(t, []string{"src/a.py", "b.py"}, p.Files)
	require.Len(t, p.Mounts, 1)
	assert.Equal(t, Mount{Source: root, Target: DefaultWorkspace, ReadOnly: true}, p.Mounts[0])
}

func TestPlan_FilesOutsideWorkspace(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	m := New(root, "")

	a := filepath.Join(other, "a.py")
	b := filepath.Join(other, "b.py")
	p, err := m.Plan(Request{Files: []string{"x.py", a, b}})
	require.NoError(t, err)

	assert.Equal(t, []string{"x.py", "/lintbox/src/0/a.py", "/lintbox/src/0/b.py"}, p.Files)
	require.Len(t, p.Mounts, 2)
	assert.Equal(t, Mount{Source: other, Target: "/lintbox/src/0", ReadOnly: true}, p.Mounts[1])

	assert.Equal(t, a+":1:1: E101 indentation", m.Rewrite("/lintbox/src/0/a.py:1:1: E101 indentation"))
}

func TestPlan_FilesOutsideWorkspaceWritable(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	m := New(root, "")

	p, err := m.Plan(Request{Files: []string{filepath.Join(other, "a.cpp")}, Writable: true})
	require.NoError(t, err)

	require.Len(t, p.Mounts, 2)
	assert.False(t, p.Mounts[0].ReadOnly)
	assert.Equal(t, Mount{Source: other, Target: "/lintbox/src/0"}, p.Mounts[1])
}

func TestRewrite_SourceUnderContainerRoot(t *testing.T) {
	m := New("/workspace/proj", "/workspace")

	p, err := m.Plan(Request{Files: []string{"/workspace/other/a.cpp", "b.cpp"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"/lintbox/src/0/a.cpp", "b.cpp"}, p.Files)

	line := "/lintbox/src/0/a.cpp:3: error"
	once := m.Rewrite(line)
	assert.Equal(t, "/workspace/other/a.cpp:3: error", once)
	assert.Equal(t, once, m.Rewrite(once))

	// Both mappings apply within one line.
	assert.Equal(t, "b.cpp:1: x, /workspace/other/a.cpp:2: y",
		m.Rewrite("/workspace/b.cpp:1: x, /lintbox/src/0/a.cpp:2: y"))
}

func TestPlan_ReportInWorkingDirectory(t *testing.T) {
	root := t.TempDir()
	m := New(root, "")

	p, err := m.Plan(Request{Files: []string{"a.py"}, ReportFile: "report.xml"})
	require.NoError(t, err)

	assert.Equal(t, "/workspace/report.xml", p.ReportPath)
	require.Len(t, p.Mounts, 1)
	assert.False(t, p.Mounts[0].ReadOnly)
}

func TestPlan_ReportInSubdirectory(t *testing.T) {
	root := t.TempDir()
	m := New(root, "")

	p, err := m.Plan(Request{ReportFile: "out/test_results/r.xml"})
	require.NoError(t, err)

	dir := filepath.Join(root, "out", "test_results")
	assert.DirExists(t, dir)
	assert.Equal(t, "/workspace/out/test_results/r.xml", p.ReportPath)
	require.Len(t, p.Mounts, 2)
	assert.True(t, p.Mounts[0].ReadOnly)
	assert.Equal(t, Mount{Source: dir, Target: "/workspace/out/test_results"}, p.Mounts[1])
}

func TestPlan_ReportInSubdirectoryWritableWorkspace(t *testing.T) {
	root := t.TempDir()
	m := New(root, "")

	p, err := m.Plan(Request{ReportFile: "out/r.xml", Writable: true})
	require.NoError(t, err)

	assert.Equal(t, "/workspace/out/r.xml", p.ReportPath)
	require.Len(t, p.Mounts, 1)
	assert.False(t, p.Mounts[0].ReadOnly)
}

func TestPlan_ReportOutsideWorkspace(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	m := New(root, "")

	report := filepath.Join(other, "reports", "r.xml")
	p, err := m.Plan(Request{ReportFile: report})
	require.NoError(t, err)

	assert.Equal(t, "/lintbox/report/r.xml", p.ReportPath)
	require.Len(t, p.Mounts, 2)
	assert.Equal(t, Mount{Source: filepath.Dir(report), Target: "/lintbox/report"}, p.Mounts[1])
	assert.Equal(t, "wrote "+report, m.Rewrite("wrote /lintbox/report/r.xml"))
}

func TestPlan_Config(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	m := New(root, "")

	p, err := m.Plan(Request{ConfigFile: "setup.cfg"})
	require.NoError(t, err)
	assert.Equal(t, "/workspace/setup.cfg", p.ConfigPath)
	assert.Len(t, p.Mounts, 1)

	cfg := filepath.Join(other, "mypy.ini")
	require.NoError(t, os.WriteFile(cfg, []byte("[mypy]\n"), 0o644))
	p, err = m.Plan(Request{ConfigFile: cfg})
	require.NoError(t, err)
	assert.Equal(t, "/lintbox/config/mypy.ini", p.ConfigPath)
	require.Len(t, p.Mounts, 2)
	assert.Equal(t, Mount{Source: cfg, Target: "/lintbox/config/mypy.ini", ReadOnly: true}, p.Mounts[1])
}

func TestPlan_CacheDir(t *testing.T) {
	root := t.TempDir()
	m := New(root, "")

	p, err := m.Plan(Request{CacheDir: ".mypy_cache"})
	require.NoError(t, err)

	assert.DirExists(t, filepath.Join(root, ".mypy_cache"))
	assert.Equal(t, CacheTarget, p.CachePath)
	require.Len(t, p.Mounts, 2)
	assert.Equal(t, Mount{Source: filepath.Join(root, ".mypy_cache"), Target: CacheTarget}, p.Mounts[1])
}

func TestPlan_ResetsReverseMappings(t *testing.T) {
	root := t.TempDir()
	other := t.TempDir()
	m := New(root, "")

	_, err := m.Plan(Request{Files: []string{filepath.Join(other, "a.py")}})
	require.NoError(t, err)
	_, err = m.Plan(Request{Files: []string{"a.py"}})
	require.NoError(t, err)

	assert.Equal(t, "/lintbox/src/0/a.py", m.Rewrite("/lintbox/src/0/a.py"))
}

func TestMount_String(t *testing.T) {
	assert.Equal(t, "/a:/b:ro", Mount{Source: "/a", Target: "/b", ReadOnly: true}.String())
	assert.Equal(t, "/a:/b:rw", Mount{Source: "/a", Target: "/b"}.String())
}
