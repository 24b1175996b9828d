package workflow

import (
	"strconv"

	"github.com/deixis/lintbox/internal/pathmap"
	"github.com/deixis/lintbox/internal/toolspec"
)

// Compose builds the in-container argv: the base command, each option in
// declared order, the report flag, and finally the files. Config and cache
// options take their container paths from plan.
func Compose(spec toolspec.ToolSpec, opts Options, plan *pathmap.Plan) []string {
	argv := []string{spec.Command}
	openList := false // the last option takes a variable number of values

	for _, f := range spec.Flags {
		vals := opts[f.Name]
		if len(vals) == 0 {
			continue
		}
		switch f.Kind {
		case toolspec.FlagBool:
			if b, _ := strconv.ParseBool(vals[0]); !b {
				continue
			}
			argv = append(argv, f.Arg)
		case toolspec.FlagList:
			argv = append(argv, f.Arg)
			argv = append(argv, vals...)
		case toolspec.FlagConfig:
			if plan.ConfigPath == "" {
				continue
			}
			argv = append(argv, f.Arg, plan.ConfigPath)
		case toolspec.FlagCache:
			if plan.CachePath == "" {
				continue
			}
			argv = append(argv, f.Arg, plan.CachePath)
		default:
			argv = append(argv, f.Arg, vals[len(vals)-1])
		}
		openList = f.Kind == toolspec.FlagList
	}

	if plan.ReportPath != "" && spec.ReportFlag != "" {
		argv = append(argv, spec.ReportFlag, plan.ReportPath)
		openList = false
	}

	if openList && len(plan.Files) > 0 {
		// Keep the files from being read as more list values.
		argv = append(argv, "--")
	}
	return append(argv, plan.Files...)
}
