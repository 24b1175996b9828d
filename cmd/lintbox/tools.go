package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/deixis/lintbox/internal/report"
	"github.com/deixis/lintbox/internal/toolspec"
	"github.com/deixis/lintbox/internal/workflow"
)

func newToolsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tools",
		Short: "List the lint tools and the files they check",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			writeTools(cmd.OutOrStdout())
		},
	}
}

func writeTools(out io.Writer) {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOOL\tIMAGE\tFILES\tALIASES")
	for _, spec := range toolspec.All() {
		var files []string
		files = append(files, spec.Match.Names...)
		for _, ext := range spec.Match.Extensions {
			files = append(files, "*."+ext)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", spec.Name, spec.Image,
			strings.Join(files, " "), strings.Join(toolspec.Aliases(spec.Name), ", "))
	}
	_ = tw.Flush()
}

func newInspectCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "inspect [run-id [file]]",
		Short: "Show recorded runs and their diagnostics",
		Long: `Without arguments, list recent runs. With a run ID (or a unique prefix of
one), summarise its findings per file. With a file, print that file's
diagnostics.`,
		Args: cobra.MaximumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			loaded, err := loadConfig()
			if err != nil {
				return &exitError{code: workflow.ExitUsage, err: err}
			}
			store := report.NewDiskStore(loaded.Config.HistoryRoot())
			out := cmd.OutOrStdout()

			if len(args) == 0 {
				if err := listRuns(out, store, 20); err != nil {
					return &exitError{code: workflow.ExitFailure, err: err}
				}
				return nil
			}

			rec, err := store.Load(args[0])
			if err != nil {
				return &exitError{code: workflow.ExitFailure, err: fmt.Errorf("loading run %s: %w", args[0], err)}
			}
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(rec)
			}
			if len(args) == 2 {
				writeDiagnostics(out, report.ByFile(rec.Diagnostics(), args[1]))
				return nil
			}
			writeSummary(out, rec)
			return nil
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print the run record as JSON")
	return cmd
}

func listRuns(out io.Writer, store *report.DiskStore, limit int) error {
	ids, err := store.IDs()
	if err != nil {
		return err
	}
	if len(ids) > limit {
		ids = ids[:limit]
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "RUN\tTOOL\tSTATUS\tFILES\tSTARTED")
	for _, id := range ids {
		rec, err := store.Load(id)
		if err != nil {
			continue
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\n", rec.ID, rec.Tool, rec.Status(), len(rec.Files),
			rec.Started.Local().Format(time.DateTime))
	}
	return tw.Flush()
}

func writeSummary(out io.Writer, rec *report.RunRecord) {
	fmt.Fprintf(out, "Run: %s (%s)\n", rec.ID, rec.Tool)
	fmt.Fprintf(out, "Status: %s (exit %d)\n", rec.Status(), rec.ExitCode)
	if rec.Error != "" {
		fmt.Fprintf(out, "Error: %s\n", rec.Error)
	}
	fmt.Fprintf(out, "Work dir: %s\n", rec.WorkDir)
	if rec.Image != "" {
		fmt.Fprintf(out, "Image: %s\n", rec.Image)
	}
	if len(rec.Args) > 0 {
		fmt.Fprintf(out, "Command: %s\n", strings.Join(rec.Args, " "))
	}

	diags := rec.Diagnostics()
	if len(diags) == 0 {
		return
	}
	counts := make(map[string]int)
	for _, d := range diags {
		counts[d.File]++
	}
	fmt.Fprintln(out)
	for _, f := range report.Files(diags) {
		fmt.Fprintf(out, "  %s: %d\n", f, counts[f])
	}
}

func writeDiagnostics(out io.Writer, diags []report.Diagnostic) {
	for _, d := range diags {
		loc := fmt.Sprintf("%s:%d", d.File, d.Line)
		if d.Col > 0 {
			loc += ":" + fmt.Sprint(d.Col)
		}
		if d.Code != "" {
			fmt.Fprintf(out, "%s: [%s] %s\n", loc, d.Code, d.Message)
		} else {
			fmt.Fprintf(out, "%s: %s\n", loc, d.Message)
		}
	}
}
