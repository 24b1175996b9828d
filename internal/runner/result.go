package runner

// Result holds the output of a command execution.
type Result struct {
	ExitCode  int    // process exit code
	Stdout    []byte // captured stdout (may be truncated)
	Stderr    []byte // captured stderr (may be truncated)
	Truncated bool   // true if output exceeded the size cap
}

// Output returns stdout followed by stderr.
func (r *Result) Output() string {
	return string(r.Stdout) + string(r.Stderr)
}
