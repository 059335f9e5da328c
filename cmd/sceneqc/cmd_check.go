package main

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"sceneqc/internal/config"
	"sceneqc/internal/logging"
	"sceneqc/internal/metrics"
	"sceneqc/internal/runner"
	"sceneqc/internal/store"
	"sceneqc/internal/watch"
)

type checkFlags struct {
	format      string
	checks      []string
	jobs        int
	verbose     bool
	db          string
	metricsFile string
	watch       bool
	timeout     time.Duration
	debounce    time.Duration
}

func newCheckCmd(g *globalFlags) *cobra.Command {
	fl := &checkFlags{}
	cmd := &cobra.Command{
		Use:   "check <scene>",
		Short: "Validate a scene and print the report",
		Long: `Loads the scene (YAML or JSON, with its sublayers), evaluates every primitive
and prints the report. Exits 1 when any primitive fails or could not be read.

With --db the run is recorded and findings new since the previous run of the
same scene are counted. With --watch the scene is re-checked on every change
to it or one of its sublayers until interrupted.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runCheck(cmd, g, fl, args[0])
		},
	}
	f := cmd.Flags()
	f.StringVarP(&fl.format, "format", "f", "text", "Output format: text, markdown, json, jsonl, yaml")
	f.StringSliceVar(&fl.checks, "checks", nil, "Checks to run (default primvars; also: material-binding)")
	f.IntVarP(&fl.jobs, "jobs", "j", 0, "Concurrent primitive evaluations (0 = GOMAXPROCS)")
	f.BoolVarP(&fl.verbose, "verbose", "v", false, "Also show passing/skipped prims and info notes")
	f.StringVar(&fl.db, "db", "", "Record the run in this SQLite DB (e.g. "+store.DefaultDBPath+")")
	f.StringVar(&fl.metricsFile, "metrics-file", "", "Write Prometheus metrics to this textfile after each run")
	f.BoolVarP(&fl.watch, "watch", "w", false, "Re-run on every change to the scene or its sublayers")
	f.DurationVar(&fl.timeout, "timeout", 0, "Abort a run after this long (0 = no limit)")
	f.DurationVar(&fl.debounce, "debounce", 0, "Quiet period before a watched change re-runs")
	return cmd
}

// merge applies explicitly set flags over the resolved config.
func (fl *checkFlags) merge(cmd *cobra.Command, cfg config.Config) (config.Config, error) {
	f := cmd.Flags()
	if f.Changed("format") {
		cfg.Format = fl.format
	}
	if f.Changed("checks") {
		cfg.Checks = fl.checks
	}
	if f.Changed("jobs") {
		cfg.Jobs = fl.jobs
	}
	if f.Changed("verbose") {
		cfg.Verbose = fl.verbose
	}
	if f.Changed("db") {
		cfg.DB = fl.db
	}
	if f.Changed("metrics-file") {
		cfg.MetricsFile = fl.metricsFile
	}
	if f.Changed("timeout") {
		cfg.Timeout = fl.timeout
	}
	if f.Changed("debounce") {
		cfg.Debounce = fl.debounce
	}
	return cfg, cfg.Validate()
}

func runCheck(cmd *cobra.Command, g *globalFlags, fl *checkFlags, scenePath string) error {
	cfg, err := fl.merge(cmd, g.cfg)
	if err != nil {
		return err
	}
	// History is keyed by the absolute scene path.
	if scenePath, err = filepath.Abs(scenePath); err != nil {
		return err
	}
	if _, err := runner.ResolveChecks(cfg.Checks); err != nil {
		return err
	}

	opts := runner.Options{Checks: cfg.Checks, Jobs: cfg.Jobs, Timeout: cfg.Timeout}
	if cfg.DB != "" {
		st, err := store.Open(cfg.DB)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}
		defer st.Close()
		opts.Store = st
	}
	if cfg.MetricsFile != "" {
		opts.Metrics = metrics.New()
	}

	out := cmd.OutOrStdout()
	if !fl.watch {
		ok, err := checkOnce(cmd.Context(), out, scenePath, cfg, opts)
		if err != nil {
			return err
		}
		if !ok {
			return errFindings
		}
		return nil
	}

	w, err := watch.New(scenePath, cfg.Debounce, func(ctx context.Context) error {
		if cfg.Format == "text" || cfg.Format == "markdown" {
			fmt.Fprintf(out, "=== %s  %s ===\n", time.Now().Format(time.TimeOnly), scenePath)
		}
		_, err := checkOnce(ctx, out, scenePath, cfg, opts)
		return err
	})
	if err != nil {
		return err
	}
	logging.New("check").Info("watching scene", "scene", scenePath)
	return w.Run(cmd.Context())
}

// checkOnce runs and prints one validation. ok reports whether the report
// passed; err is set only when no report could be produced.
func checkOnce(ctx context.Context, out io.Writer, scenePath string, cfg config.Config, opts runner.Options) (ok bool, err error) {
	res, err := runner.Run(ctx, scenePath, opts)
	if opts.Metrics != nil {
		if werr := opts.Metrics.WriteFile(cfg.MetricsFile); werr != nil {
			logging.New("check").Warn("metrics not written", "error", werr)
		}
	}
	if err != nil {
		return false, err
	}
	if err := writeReport(out, res.Report, cfg.Format, cfg.Verbose); err != nil {
		return false, err
	}
	if opts.Store != nil && (cfg.Format == "text" || cfg.Format == "markdown") {
		fmt.Fprintf(out, "Run #%d recorded (%d new finding(s) since the previous run)\n", res.RunID, len(res.New))
	}
	return res.Report.OK(), nil
}
