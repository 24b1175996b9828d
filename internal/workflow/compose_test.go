package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/deixis/lintbox/internal/config"
	"github.com/deixis/lintbox/internal/pathmap"
	"github.com/deixis/lintbox/internal/toolspec"
)

func lookup(t *testing.T, name string) toolspec.ToolSpec {
	t.Helper()
	spec, ok := toolspec.Lookup(name)
	require.True(t, ok, name)
	return spec
}

func TestCompose_Order(t *testing.T) {
	spec := lookup(t, "cpplint")
	opts, err := resolveOptions(spec, nil, Options{
		"output":  {"junit"},
		"filters": {"-whitespace/braces,-build/include"},
		"root":    {"include"},
	})
	require.NoError(t, err)

	plan := &pathmap.Plan{Files: []string{"src/a.cpp", "src/b.hpp"}, ReportPath: "/workspace/r.xml"}
	assert.Equal(t, []string{
		"ament_cpplint",
		"--filter", "-whitespace/braces,-build/include",
		"--root", "include",
		"--output", "junit",
		"--linelength", "100",
		"--xunit-file", "/workspace/r.xml",
		"src/a.cpp", "src/b.hpp",
	}, Compose(spec, opts, plan))
}

func TestCompose_GroupDefaults(t *testing.T) {
	spec := lookup(t, "pep257")
	plan := &pathmap.Plan{Files: []string{"a.py"}}

	opts, err := resolveOptions(spec, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"ament_pep257", "--convention", "ament", "a.py"}, Compose(spec, opts, plan))

	// Setting any member of the group drops the group's defaults.
	opts, err = resolveOptions(spec, nil, Options{"ignore": {"D100", "D104"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ament_pep257", "--ignore", "D100", "D104", "--", "a.py"}, Compose(spec, opts, plan))

	// A list followed by the report flag needs no separator.
	plan.ReportPath = "/workspace/r.xml"
	opts, err = resolveOptions(spec, nil, Options{"add-select": {"D413"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ament_pep257", "--convention", "ament", "--add-select", "D413", "--xunit-file", "/workspace/r.xml", "a.py"}, Compose(spec, opts, plan))
}

func TestResolveOptions_ExplicitGroupMemberShadowsConfig(t *testing.T) {
	spec := lookup(t, "pep257")
	opts, err := resolveOptions(spec,
		map[string]config.Values{"convention": {"google"}, "add-ignore": {"D203"}},
		Options{"select": {"D100"}},
	)
	require.NoError(t, err)
	assert.Equal(t, Options{"select": {"D100"}, "add-ignore": {"D203"}}, opts)
}

func TestResolveOptions_MutuallyExclusive(t *testing.T) {
	spec := lookup(t, "pep257")
	_, err := resolveOptions(spec, nil, Options{"ignore": {"D100"}, "convention": {"google"}})
	assert.EqualError(t, err, "--convention and --ignore are mutually exclusive")
}

func TestCompose_BoolAndChoices(t *testing.T) {
	spec := lookup(t, "uncrustify")
	plan := &pathmap.Plan{Files: []string{"a.c"}}

	opts, err := resolveOptions(spec, nil, Options{"reformat": {"false"}, "language": {"C++"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"ament_uncrustify", "-l", "C++", "a.c"}, Compose(spec, opts, plan))
	assert.False(t, writes(spec, opts))

	opts, err = resolveOptions(spec, nil, Options{"reformat": {"true"}})
	require.NoError(t, err)
	assert.True(t, writes(spec, opts))

	_, err = resolveOptions(spec, nil, Options{"language": {"Rust"}})
	assert.Error(t, err)
}

func TestCompose_ConfigNeedsPlanPath(t *testing.T) {
	spec := lookup(t, "flake8")
	opts := Options{"config": {"setup.cfg"}, "linelength": {"99"}}

	assert.Equal(t, []string{"ament_flake8", "--linelength", "99"}, Compose(spec, opts, &pathmap.Plan{}))
	assert.Equal(t, []string{"ament_flake8", "--config", "/lintbox/config/setup.cfg", "--linelength", "99"},
		Compose(spec, opts, &pathmap.Plan{ConfigPath: "/lintbox/config/setup.cfg"}))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, ExitCode(&Result{}, nil))
	assert.Equal(t, 3, ExitCode(&Result{ExitCode: 3}, nil))
	assert.Equal(t, 1, ExitCode(&Result{Failure: &Failure{Kind: FailureEngine}}, nil))
	assert.Equal(t, 2, ExitCode(nil, &UsageError{Msg: "bad"}))
}
