package toolspec

import (
	"sort"
	"strings"
)

const (
	reportFlag = "--xunit-file"
	dockerfile = "Dockerfile"
)

var (
	cExtensions   = []string{"c", "cc", "h", "hh"}
	cppExtensions = []string{"cpp", "cxx", "hpp", "hxx"}
	pyExtensions  = []string{"py"}
)

// Conventions accepted by pep257's --convention.
var Conventions = []string{"ament", "google", "numpy", "pep257"}

var registry = []ToolSpec{
	{
		Name:        "cpplint",
		Description: "Check C/C++ code against the Google style conventions using cpplint.",
		Kind:        "C/C++",
		Command:     "ament_cpplint",
		Image:       "ament_cpplint_linter",
		Dockerfile:  dockerfile,
		Match:       Matcher{Extensions: concat(cExtensions, cppExtensions)},
		ExcludeBy:   ExcludePath,
		Empty:       EmptySkip,
		Flags: []FlagSpec{
			{Name: "filters", Arg: "--filter", Kind: FlagString, Usage: "comma separated list of category filters to apply"},
			{Name: "root", Arg: "--root", Kind: FlagString, Usage: "the --root option for cpplint"},
			{Name: "output", Arg: "--output", Kind: FlagString, Usage: "the --output option for cpplint"},
			{Name: "linelength", Arg: "--linelength", Kind: FlagInt, Default: "100", Usage: "the maximum line length"},
		},
		ReportFlag: reportFlag,
	},
	{
		Name:        "flake8",
		Description: "Check Python code using flake8.",
		Kind:        "Python",
		Command:     "ament_flake8",
		Image:       "ament_flake8_linter",
		Dockerfile:  dockerfile,
		Match:       Matcher{Extensions: pyExtensions},
		ExcludeBy:   ExcludeBase,
		Empty:       EmptySkip,
		Flags: []FlagSpec{
			{Name: "config", Arg: "--config", Kind: FlagConfig, Usage: "the flake8 config file"},
			{Name: "linelength", Arg: "--linelength", Kind: FlagInt, Usage: "the maximum line length (default: specified in the config file)"},
		},
		ReportFlag: reportFlag,
	},
	{
		Name:        "mypy",
		Description: "Check Python code using mypy.",
		Kind:        "Python",
		Command:     "ament_mypy",
		Image:       "ament_mypy_linter",
		Dockerfile:  dockerfile,
		Match:       Matcher{Extensions: pyExtensions},
		ExcludeBy:   ExcludeBase,
		Empty:       EmptyInvoke,
		Flags: []FlagSpec{
			{Name: "config", Arg: "--config", Kind: FlagConfig, Usage: "the mypy config file"},
			{Name: "cache-dir", Arg: "--cache-dir", Kind: FlagCache, Usage: "host directory mypy places its cache in (default: no cache)"},
		},
		ReportFlag: reportFlag,
	},
	{
		Name:        "pep257",
		Description: "Check docstrings against the style conventions in PEP 257.",
		Kind:        "Python",
		Command:     "ament_pep257",
		Image:       "ament_pep257_linter",
		Dockerfile:  dockerfile,
		Match:       Matcher{Extensions: pyExtensions},
		ExcludeBy:   ExcludeBase,
		Empty:       EmptyInvoke,
		Flags: []FlagSpec{
			{Name: "ignore", Arg: "--ignore", Kind: FlagList, Group: "codes", Usage: "error codes pydocstyle should NOT check for"},
			{Name: "select", Arg: "--select", Kind: FlagList, Group: "codes", Usage: "basic list of error codes pydocstyle checks for"},
			{Name: "convention", Arg: "--convention", Kind: FlagString, Group: "codes", Default: "ament", Choices: Conventions, Usage: "preset list of error codes"},
			{Name: "add-ignore", Arg: "--add-ignore", Kind: FlagList, Usage: "extra error codes to ignore"},
			{Name: "add-select", Arg: "--add-select", Kind: FlagList, Usage: "extra error codes to check"},
		},
		ReportFlag: reportFlag,
	},
	{
		Name:        "uncrustify",
		Description: "Check C/C++ code style using uncrustify.",
		Kind:        "C/C++",
		Command:     "ament_uncrustify",
		Image:       "ament_uncrustify_linter",
		Dockerfile:  dockerfile,
		Match:       Matcher{Extensions: concat(cExtensions, cppExtensions)},
		ExcludeBy:   ExcludeBase,
		Empty:       EmptyInvoke,
		Flags: []FlagSpec{
			{Name: "language", Arg: "-l", Kind: FlagString, Choices: []string{"C", "C++", "CPP"}, Usage: "force a language instead of choosing one by file extension"},
			{Name: "reformat", Arg: "--reformat", Kind: FlagBool, Writes: true, Usage: "reformat the files in place"},
			{Name: "linelength", Arg: "--linelength", Kind: FlagInt, Usage: "the maximum line length (default: specified in the config file)"},
		},
		ReportFlag: reportFlag,
	},
	{
		Name:             "xmllint",
		Description:      "Check XML markup using xmllint.",
		Kind:             "XML",
		Command:          "ament_xmllint",
		Image:            "ament_xmllint_linter",
		Dockerfile:       dockerfile,
		Match:            Matcher{Extensions: []string{"xml"}},
		ExcludeBy:        ExcludeBase,
		Empty:            EmptyInvoke,
		ReportFlag:       reportFlag,
		CustomExtensions: true,
	},
	{
		Name:        "lint_cmake",
		Description: "Check CMake code against the style conventions.",
		Kind:        "CMake",
		Command:     "ament_lint_cmake",
		Image:       "ament_lint_cmake_linter",
		Dockerfile:  dockerfile,
		Match: Matcher{
			Names:      []string{"CMakeLists.txt"},
			Extensions: []string{"cmake", "cmake.in"},
		},
		ExcludeBy: ExcludeBase,
		Empty:     EmptySentinel,
		Flags: []FlagSpec{
			{Name: "filters", Arg: "--filters", Kind: FlagString, Usage: "filters for lint_cmake"},
			{Name: "linelength", Arg: "--linelength", Kind: FlagInt, Default: "140", Usage: "the maximum line length"},
		},
		ReportFlag: reportFlag,
	},
}

var aliases = map[string]string{
	"lint-cmake": "lint_cmake",
	"cmake":      "lint_cmake",
	"pydocstyle": "pep257",
}

// All returns every known tool in declaration order.
func All() []ToolSpec {
	out := make([]ToolSpec, len(registry))
	copy(out, registry)
	return out
}

// Names returns the names of every known tool.
func Names() []string {
	names := make([]string, 0, len(registry))
	for _, t := range registry {
		names = append(names, t.Name)
	}
	return names
}

// Lookup finds a tool by name or alias. Names are case-insensitive and
// an "ament_" prefix is ignored, so "ament_cpplint" finds cpplint.
func Lookup(name string) (ToolSpec, bool) {
	name = strings.TrimPrefix(strings.ToLower(name), "ament_")
	if real, ok := aliases[name]; ok {
		name = real
	}
	for _, t := range registry {
		if t.Name == name {
			return t, true
		}
	}
	return ToolSpec{}, false
}

// Aliases returns the alternative names of tool.
func Aliases(tool string) []string {
	var out []string
	for alias, real := range aliases {
		if real == tool {
			out = append(out, alias)
		}
	}
	sort.Strings(out)
	return out
}

func concat(parts ...[]string) []string {
	var out []string
	for _, p := range parts {
		out = append(out, p...)
	}
	return out
}
