// Package runner executes one validation run end to end: load the scene,
// walk it with the selected checks, then record history and metrics.
package runner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"sceneqc/internal/consistency"
	"sceneqc/internal/logging"
	"sceneqc/internal/matbind"
	"sceneqc/internal/metrics"
	"sceneqc/internal/report"
	"sceneqc/internal/scene"
	"sceneqc/internal/store"
	"sceneqc/internal/walker"
)

// ErrUnknownCheck is returned for check names not in the registry.
var ErrUnknownCheck = errors.New("unknown check")

// DefaultChecks is the check set when none is selected.
var DefaultChecks = []string{consistency.CheckName}

var registry = map[string]walker.Check{
	consistency.CheckName: consistency.Check{},
	matbind.CheckName:     matbind.Check{},
}

// CheckNames lists every registered check, sorted.
func CheckNames() []string {
	out := make([]string, 0, len(registry))
	for name := range registry {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// ResolveChecks maps names to checks, keeping order and dropping repeats.
// An empty list selects DefaultChecks.
func ResolveChecks(names []string) ([]walker.Check, error) {
	if len(names) == 0 {
		names = DefaultChecks
	}
	seen := map[string]bool{}
	var out []walker.Check
	for _, n := range names {
		n = strings.TrimSpace(n)
		if n == "" || seen[n] {
			continue
		}
		c, ok := registry[n]
		if !ok {
			return nil, fmt.Errorf("%w %q (available: %s)", ErrUnknownCheck, n, strings.Join(CheckNames(), ", "))
		}
		seen[n] = true
		out = append(out, c)
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("no checks selected")
	}
	return out, nil
}

// Options configures Run. Store and Metrics are optional.
type Options struct {
	Checks  []string
	Jobs    int
	Timeout time.Duration
	Store   store.Store
	Metrics *metrics.Metrics
}

// Result is a finished run. RunID and New are only set with a Store.
type Result struct {
	Report   *report.Report
	Duration time.Duration
	RunID    int64
	// New holds the findings absent from the previous run of the scene.
	New []report.Finding
}

// Run validates the scene file at path. Errors are fatal: the scene could
// not be loaded, a check name is unknown, or ctx ended. Defects in the
// scene are reported in Result, never as errors.
func Run(ctx context.Context, path string, opts Options) (*Result, error) {
	logger := logging.New("runner")
	checks, err := ResolveChecks(opts.Checks)
	if err != nil {
		return nil, err
	}
	if opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.Timeout)
		defer cancel()
	}

	failed := func() {
		if opts.Metrics != nil {
			opts.Metrics.RunFailed()
		}
	}
	start := time.Now()
	stage, err := scene.LoadFile(path)
	if err != nil {
		failed()
		return nil, fmt.Errorf("load scene: %w", err)
	}
	wo := walker.Options{Jobs: opts.Jobs, Checks: checks}
	if opts.Metrics != nil {
		wo.Observe = opts.Metrics.ObservePrim
	}
	r, err := walker.Walk(ctx, stage, path, wo)
	if err != nil {
		failed()
		return nil, err
	}
	res := &Result{Report: r, Duration: time.Since(start)}
	if opts.Metrics != nil {
		opts.Metrics.ObserveRun(r, res.Duration)
	}

	if opts.Store != nil {
		id, err := opts.Store.SaveRun(&store.Run{
			StartedAt:  start.UTC().Format(time.RFC3339),
			DurationMS: res.Duration.Milliseconds(),
		}, r)
		if err != nil {
			return nil, fmt.Errorf("save run: %w", err)
		}
		res.RunID = id
		if res.New, err = opts.Store.NewFindings(id); err != nil {
			return nil, fmt.Errorf("diff run: %w", err)
		}
		logger.Info("run recorded", "run_id", id, "new_findings", len(res.New))
	}
	return res, nil
}
