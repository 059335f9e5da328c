package main

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"sceneqc/internal/logging"
	"sceneqc/internal/mcp"
	"sceneqc/internal/metrics"
	"sceneqc/internal/store"
)

type serveFlags struct {
	db          string
	jobs        int
	root        string
	metricsFile string
}

func newServeCmd(g *globalFlags) *cobra.Command {
	fl := &serveFlags{}
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve check_scene, list_runs and list_checks as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runServe(cmd, g, fl)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fl.db, "db", "", "Record runs in this SQLite DB (enables list_runs)")
	f.IntVarP(&fl.jobs, "jobs", "j", 0, "Concurrent primitive evaluations per run (0 = GOMAXPROCS)")
	f.StringVar(&fl.root, "root", "", "Directory relative scene paths resolve against (default: cwd)")
	f.StringVar(&fl.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after each run")
	return cmd
}

func runServe(cmd *cobra.Command, g *globalFlags, fl *serveFlags) error {
	logger := logging.New("serve")
	cfg := mcp.Config{Root: fl.root, Jobs: g.cfg.Jobs, Version: version}
	if cmd.Flags().Changed("jobs") {
		cfg.Jobs = fl.jobs
	}

	dbPath := g.cfg.DB
	if cmd.Flags().Changed("db") {
		dbPath = fl.db
	}
	if dbPath != "" {
		st, err := store.Open(dbPath)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		cfg.Store = st
	}

	metricsFile := g.cfg.MetricsFile
	if cmd.Flags().Changed("metrics-file") {
		metricsFile = fl.metricsFile
	}
	if metricsFile != "" {
		cfg.Metrics = metrics.New()
		defer func() {
			if err := cfg.Metrics.WriteFile(metricsFile); err != nil {
				logger.Warn("metrics not written", "error", err)
			}
		}()
	}

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()
	mcp.WatchParent(ctx, cancel)

	logger.Info("MCP server starting", "db", dbPath, "jobs", cfg.Jobs)
	return mcp.NewServer(cfg).Run(ctx)
}
