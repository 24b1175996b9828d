package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/deixis/lintbox/internal/toolspec"
	"github.com/deixis/lintbox/internal/workflow"
)

// Flags every tool command accepts besides its own options.
const (
	excludeFlag    = "exclude"
	xunitFlag      = "xunit-file"
	extensionsFlag = "extensions"
)

// newToolCmd builds the subcommand of one tool. Its flags are generated
// from the tool's FlagSpecs; only flags set on the command line are
// passed on, so config values and defaults apply to the rest.
func newToolCmd(spec toolspec.ToolSpec) *cobra.Command {
	cmd := &cobra.Command{
		Use:     spec.Name + " [paths...]",
		Short:   spec.Description,
		Aliases: toolspec.Aliases(spec.Name),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTool(cmd, spec, args)
		},
	}

	fs := cmd.Flags()
	fs.StringSlice(excludeFlag, nil, "skip files whose name contains this substring (repeatable, comma separated)")
	fs.String(xunitFlag, "", "generate an xunit compliant XML file")
	if spec.CustomExtensions {
		fs.StringSlice(extensionsFlag, spec.Match.Extensions, "file extensions to check")
	}
	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		if name == "excludes" {
			name = excludeFlag
		}
		return pflag.NormalizedName(name)
	})

	groups := make(map[string][]string)
	for _, f := range spec.Flags {
		addToolFlag(fs, f)
		if f.Group != "" {
			groups[f.Group] = append(groups[f.Group], f.Name)
		}
	}
	for _, names := range groups {
		cmd.MarkFlagsMutuallyExclusive(names...)
	}
	return cmd
}

func addToolFlag(fs *pflag.FlagSet, f toolspec.FlagSpec) {
	usage := f.Usage
	if len(f.Choices) > 0 {
		usage += " (one of " + strings.Join(f.Choices, ", ") + ")"
	}
	switch f.Kind {
	case toolspec.FlagInt:
		def, _ := strconv.Atoi(f.Default)
		fs.Int(f.Name, def, usage)
	case toolspec.FlagBool:
		fs.Bool(f.Name, f.Default == "true", usage)
	case toolspec.FlagList:
		fs.StringSlice(f.Name, nil, usage)
	default:
		fs.String(f.Name, f.Default, usage)
	}
}

// toolRequest turns the parsed command line into a RunRequest.
func toolRequest(fs *pflag.FlagSet, spec toolspec.ToolSpec, args []string) (workflow.RunRequest, error) {
	req := workflow.RunRequest{
		Tool:    spec.Name,
		Paths:   args,
		Options: make(workflow.Options),
	}
	var err error
	if req.Excludes, err = fs.GetStringSlice(excludeFlag); err != nil {
		return req, err
	}
	if req.ReportFile, err = fs.GetString(xunitFlag); err != nil {
		return req, err
	}
	if spec.CustomExtensions && fs.Changed(extensionsFlag) {
		if req.Extensions, err = fs.GetStringSlice(extensionsFlag); err != nil {
			return req, err
		}
	}

	for _, f := range spec.Flags {
		if !fs.Changed(f.Name) {
			continue
		}
		if f.Kind == toolspec.FlagList {
			vals, err := fs.GetStringSlice(f.Name)
			if err != nil {
				return req, err
			}
			req.Options[f.Name] = vals
			continue
		}
		req.Options[f.Name] = []string{fs.Lookup(f.Name).Value.String()}
	}
	return req, nil
}

func runTool(cmd *cobra.Command, spec toolspec.ToolSpec, args []string) error {
	req, err := toolRequest(cmd.Flags(), spec, args)
	if err != nil {
		return err
	}
	loaded, err := loadConfig()
	if err != nil {
		return &exitError{code: workflow.ExitUsage, err: err}
	}

	engine, err := newEngine(loaded, newLogger())
	if err != nil {
		return &exitError{code: workflow.ExitFailure, err: err}
	}
	defer engine.Containers.Close()

	res, err := engine.Run(cmd.Context(), req, os.Stdout)
	code := workflow.ExitCode(res, err)
	if err != nil {
		return &exitError{code: code, err: fmt.Errorf("%s: %w", spec.Name, err)}
	}
	if code != 0 {
		// The tool's output, or the failure, is already on the terminal.
		return &exitError{code: code}
	}
	return nil
}
