package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	mcpsdk "github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	lintmcp "github.com/deixis/lintbox/internal/mcp"
	"github.com/deixis/lintbox/internal/metrics"
	"github.com/deixis/lintbox/internal/report"
	"github.com/deixis/lintbox/internal/workflow"
)

// historyCache is the number of run records the server keeps in memory.
const historyCache = 16

func newServeCmd() *cobra.Command {
	var (
		httpAddr     string
		instructions bool
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the MCP server on stdio or HTTP",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if instructions {
				fmt.Fprint(cmd.OutOrStdout(), lintmcp.Instructions)
				return nil
			}
			if err := serve(cmd.Context(), httpAddr); err != nil {
				return &exitError{code: workflow.ExitFailure, err: err}
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&httpAddr, "http", "", "serve streamable HTTP on this address (e.g. :9090) instead of stdio")
	cmd.Flags().BoolVar(&instructions, "instructions", false, "print model instructions and exit")
	return cmd
}

func serve(ctx context.Context, httpAddr string) error {
	loaded, err := loadConfig()
	if err != nil {
		return err
	}
	engine, err := newEngine(loaded, newLogger())
	if err != nil {
		return err
	}
	defer engine.Containers.Close()

	engine.Store = report.NewLRUStore(historyCache, report.NewDiskStore(loaded.Config.HistoryRoot()))
	engine.Metrics = metrics.New(true)
	engine.Verbose = false

	server := lintmcp.NewServer(engine, loaded.Root)

	if httpAddr != "" {
		return serveHTTP(ctx, server, engine.Metrics, httpAddr)
	}
	return server.Run(ctx, &mcpsdk.StdioTransport{})
}

func serveHTTP(ctx context.Context, server *mcpsdk.Server, rec *metrics.Recorder, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(rec.Registry, promhttp.HandlerOpts{}))
	mux.Handle("/", mcpsdk.NewStreamableHTTPHandler(
		func(_ *http.Request) *mcpsdk.Server { return server },
		nil,
	))

	httpServer := &http.Server{
		Addr:    addr,
		Handler: mux,
	}

	go func() {
		<-ctx.Done()
		_ = httpServer.Close()
	}()

	log.Printf("listening on %s", addr)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("http server: %w", err)
	}
	return nil
}
