// Command lintbox runs the ament lint tools in containers.
package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"log/slog"
	"os"
	"os/signal"
	"time"

	"github.com/spf13/cobra"

	"github.com/deixis/lintbox"
	"github.com/deixis/lintbox/internal/config"
	"github.com/deixis/lintbox/internal/container"
	"github.com/deixis/lintbox/internal/metrics"
	"github.com/deixis/lintbox/internal/report"
	"github.com/deixis/lintbox/internal/runner"
	"github.com/deixis/lintbox/internal/toolspec"
	"github.com/deixis/lintbox/internal/workflow"
)

// Global flags.
var (
	engineFlag  string
	timeoutFlag time.Duration
	verbose     bool
)

func main() {
	log.SetFlags(0)
	log.SetPrefix("lintbox: ")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	os.Exit(exitStatus(err))
}

// exitError carries the process exit status out of a command. Errors
// cobra returns on its own are flag or argument errors.
type exitError struct {
	code int
	err  error // already reported when nil
}

func (e *exitError) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitError) Unwrap() error { return e.err }

func exitStatus(err error) int {
	if err == nil {
		return 0
	}
	var ee *exitError
	if errors.As(err, &ee) {
		if ee.err != nil {
			log.Print(ee.err)
		}
		return ee.code
	}
	log.Print(err)
	return workflow.ExitUsage
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "lintbox",
		Short: "Run the ROS 2 ament linters in containers",
		Long: `lintbox runs cpplint, flake8, mypy, pep257, uncrustify, xmllint and
lint_cmake inside containers built on demand, so none of them needs to be
installed on the host. Tool output and exit codes pass through unchanged.`,
		SilenceErrors: true,
		SilenceUsage:  true,
	}
	root.PersistentFlags().StringVar(&engineFlag, "engine", "", "container engine: docker, docker-cli or podman (default from config, else docker)")
	root.PersistentFlags().DurationVar(&timeoutFlag, "timeout", 0, "override the configured timeout (e.g. 5m)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "show image build progress and debug logs")

	for _, spec := range toolspec.All() {
		root.AddCommand(newToolCmd(spec))
	}
	root.AddCommand(newToolsCmd(), newInspectCmd(), newServeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), lintbox.Version)
		},
	}
}

func newLogger() *slog.Logger {
	level := slog.LevelWarn
	if verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))
}

// loadConfig reads the project config for the current directory and
// applies the global flag overrides.
func loadConfig() (*config.LoadResult, error) {
	wd, err := os.Getwd()
	if err != nil {
		return nil, fmt.Errorf("determining working directory: %w", err)
	}
	loaded, err := config.Load(wd)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	cfg := loaded.Config
	if engineFlag != "" {
		cfg.Engine = engineFlag
	}
	if timeoutFlag > 0 {
		cfg.RawTimeout = timeoutFlag.String()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return loaded, nil
}

// commandRunner executes the docker or podman binary for the CLI engines.
func commandRunner(loaded *config.LoadResult) *runner.Runner {
	return &runner.Runner{
		Dir:       loaded.Root,
		Timeout:   loaded.Config.Timeout(),
		MaxOutput: loaded.Config.MaxOutputBytes(),
		Env:       []string{"DOCKER_CLI_HINTS=false"},
	}
}

// newEngine wires a workflow.Engine for the loaded config. The caller
// closes the container engine.
func newEngine(loaded *config.LoadResult, logger *slog.Logger) (*workflow.Engine, error) {
	cfg := loaded.Config
	containers, err := container.Open(cfg.EngineName(), commandRunner(loaded))
	if err != nil {
		return nil, &workflow.Failure{Kind: workflow.FailureEngine, Err: err}
	}
	e := &workflow.Engine{
		Config:     cfg,
		Containers: containers,
		Store:      report.NewDiskStore(cfg.HistoryRoot()),
		Logger:     logger,
		Verbose:    verbose,
	}
	if cfg.MetricsFile != "" {
		e.Metrics = metrics.New(false)
	}
	return e, nil
}
