package report

import (
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
)

// Diagnostic is one finding reported by a tool.
type Diagnostic struct {
	Tool    string `json:"tool"`
	File    string `json:"file"`
	Line    int    `json:"line"`
	Col     int    `json:"col,omitempty"`
	Code    string `json:"code,omitempty"` // E501, D100, whitespace/comma, arg-type, ...
	Message string `json:"message"`
}

var (
	// file:line[:col]: message, or file:line message (pep257).
	locationRe = regexp.MustCompile(`^([^:\s][^:]*):(\d+)(?::(\d+))?(?::|\s)\s*(.*)$`)
	// E501 line too long / D100: Missing docstring
	leadingCodeRe = regexp.MustCompile(`^([A-Z]{1,3}\d{2,4}):?\s+(.*)$`)
	// message  [category/name] [3] / message  [arg-type]
	trailingCodeRe = regexp.MustCompile(`^(.*?)\s*\[([\w./-]+)\](?:\s*\[\d\])?$`)
)

// Parse extracts the diagnostics from lines of tool output. Lines that do
// not start with a file location are ignored.
func Parse(tool string, lines []string) []Diagnostic {
	var out []Diagnostic
	for _, line := range lines {
		if d, ok := parseLine(line); ok {
			d.Tool = tool
			out = append(out, d)
		}
	}
	return out
}

func parseLine(line string) (Diagnostic, bool) {
	m := locationRe.FindStringSubmatch(strings.TrimSpace(line))
	if m == nil {
		return Diagnostic{}, false
	}
	d := Diagnostic{File: m[1]}
	d.Line, _ = strconv.Atoi(m[2])
	if m[3] != "" {
		d.Col, _ = strconv.Atoi(m[3])
	}
	msg := strings.TrimSpace(m[4])
	if c := leadingCodeRe.FindStringSubmatch(msg); c != nil {
		d.Code, msg = c[1], c[2]
	} else if c := trailingCodeRe.FindStringSubmatch(msg); c != nil {
		msg, d.Code = c[1], c[2]
	}
	d.Message = msg
	return d, true
}

// ByFile returns the diagnostics reported against file. Paths are
// compared after cleaning, so "./a.py" matches "a.py".
func ByFile(diags []Diagnostic, file string) []Diagnostic {
	want := filepath.Clean(file)
	var out []Diagnostic
	for _, d := range diags {
		if filepath.Clean(d.File) == want {
			out = append(out, d)
		}
	}
	return out
}

// Files returns the distinct files with diagnostics, in first-seen order.
func Files(diags []Diagnostic) []string {
	seen := make(map[string]bool)
	var out []string
	for _, d := range diags {
		if !seen[d.File] {
			seen[d.File] = true
			out = append(out, d.File)
		}
	}
	return out
}
