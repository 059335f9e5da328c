package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"sceneqc/internal/display"
	"sceneqc/internal/format"
	"sceneqc/internal/store"
)

type historyFlags struct {
	db      string
	limit   int
	newOnly bool
	format  string
}

func newHistoryCmd(g *globalFlags) *cobra.Command {
	fl := &historyFlags{}
	cmd := &cobra.Command{
		Use:   "history [scene]",
		Short: "List recorded runs, or the findings new in the latest run",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			sceneID := ""
			if len(args) == 1 {
				abs, err := filepath.Abs(args[0])
				if err != nil {
					return err
				}
				sceneID = abs
			}
			return runHistory(cmd, g, fl, sceneID)
		},
	}
	f := cmd.Flags()
	f.StringVar(&fl.db, "db", "", "Run history DB (default: config db, else "+store.DefaultDBPath+")")
	f.IntVarP(&fl.limit, "limit", "n", 20, "Maximum number of runs to list (0 = all)")
	f.BoolVar(&fl.newOnly, "new", false, "Show the findings of the latest run that the run before it did not have")
	f.StringVarP(&fl.format, "format", "f", "text", "Output format: text or markdown")
	return cmd
}

func runHistory(cmd *cobra.Command, g *globalFlags, fl *historyFlags, sceneID string) error {
	mode, err := format.ParseMode(fl.format)
	if err != nil {
		return err
	}
	dbPath := fl.db
	if dbPath == "" {
		dbPath = g.cfg.DB
	}
	if dbPath == "" {
		dbPath = store.DefaultDBPath
	}
	st, err := store.Open(dbPath)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer st.Close()

	out := cmd.OutOrStdout()
	if fl.newOnly {
		runs, err := st.ListRuns(sceneID, 1)
		if err != nil {
			return err
		}
		if len(runs) == 0 {
			fmt.Fprintln(out, "No runs recorded.")
			return nil
		}
		fresh, err := st.NewFindings(runs[0].ID)
		if err != nil {
			return err
		}
		tb := format.NewTable(mode)
		tb.Title(fmt.Sprintf("New findings in run #%d (%s)", runs[0].ID, displayPath(runs[0].Scene)))
		tb.Header("Path", "Primvar", "Time", "Expected", "Actual", "Severity", "Reason")
		tb.Columns(format.ColumnConfig{Number: 1, MaxWidth: 48})
		for _, f := range fresh {
			tb.Row(f.Path, f.Primvar, f.Time.String(), f.Expected, f.Actual, string(f.Severity), display.Reason(string(f.Reason)))
		}
		if tb.Len() == 0 {
			fmt.Fprintf(out, "Run #%d has no new findings.\n", runs[0].ID)
			return nil
		}
		fmt.Fprintln(out, tb.String())
		return nil
	}

	runs, err := st.ListRuns(sceneID, fl.limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(out, "No runs recorded.")
		return nil
	}
	tb := format.NewTable(mode)
	tb.Title("Runs")
	tb.Header("ID", "Started", "Scene", "Result", "Prims", "Fail", "Read errors", "Errors", "Warnings", "Duration")
	tb.Columns(format.ColumnConfig{Number: 1, Align: format.AlignRight})
	for _, r := range runs {
		result := "PASS"
		if !r.OK {
			result = "FAIL"
		}
		s := r.Summary
		tb.Row(r.ID, r.StartedAt, displayPath(r.Scene), result,
			s.Primitives, s.Fail, s.SkippedWithError, s.Errors, s.Warnings,
			format.FmtDuration(time.Duration(r.DurationMS)*time.Millisecond))
	}
	fmt.Fprintln(out, tb.String())
	return nil
}

// displayPath shows a recorded scene relative to the working directory when
// it lives below it.
func displayPath(p string) string {
	wd, err := os.Getwd()
	if err != nil {
		return p
	}
	rel, err := filepath.Rel(wd, p)
	if err != nil || strings.HasPrefix(rel, "..") {
		return p
	}
	return rel
}
