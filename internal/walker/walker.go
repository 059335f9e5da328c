// Package walker traverses a stage and runs checks on every primitive.
package walker

import (
	"context"
	"fmt"
	"runtime"
	"sort"
	"time"

	"golang.org/x/sync/errgroup"

	"sceneqc/internal/logging"
	"sceneqc/internal/report"
	"sceneqc/internal/scene"
)

// Check evaluates one primitive. stage is the stage prim belongs to, for
// checks that resolve relationships. Implementations must be safe to call
// from several goroutines and must not mutate the stage.
type Check interface {
	Name() string
	Run(ctx context.Context, stage scene.Stage, prim scene.Prim) report.Outcome
}

// Options configures a walk.
type Options struct {
	// Jobs bounds concurrent primitive evaluations; <= 0 means GOMAXPROCS.
	Jobs   int
	Checks []Check
	// Observe, when set, is called from the worker goroutines once per
	// primitive after evaluation.
	Observe func(report.PrimResult, time.Duration)
}

// Paths returns every primitive path below the root in pre-order, children
// sorted by path. Only a failure to list the root is returned as an error;
// failures deeper down are returned per path so the walk can go on.
func Paths(stage scene.Stage) ([]string, map[string]error, error) {
	root := stage.Root()
	top, err := stage.Children(root)
	if err != nil {
		return nil, nil, fmt.Errorf("list stage root: %w", err)
	}
	var (
		paths []string
		errs  = map[string]error{}
	)
	var visit func(p string)
	visit = func(p string) {
		paths = append(paths, p)
		kids, err := stage.Children(p)
		if err != nil {
			errs[p] = fmt.Errorf("list children: %w", err)
			return
		}
		for _, k := range sortedCopy(kids) {
			visit(k)
		}
	}
	for _, p := range sortedCopy(top) {
		visit(p)
	}
	return paths, errs, nil
}

// Walk evaluates every primitive of stage. Primitives run concurrently; the
// report keeps traversal order. A failing primitive never stops the walk.
// The only errors are a stage root that cannot be listed and ctx ending.
func Walk(ctx context.Context, stage scene.Stage, sceneID string, opts Options) (*report.Report, error) {
	logger := logging.New("walker")
	paths, listErrs, err := Paths(stage)
	if err != nil {
		return nil, err
	}
	jobs := opts.Jobs
	if jobs <= 0 {
		jobs = runtime.GOMAXPROCS(0)
	}
	checkNames := make([]string, len(opts.Checks))
	for i, c := range opts.Checks {
		checkNames[i] = c.Name()
	}
	logger.Info("walking stage", "scene", sceneID, "prims", len(paths), "jobs", jobs, "checks", checkNames)

	results := make([]report.PrimResult, len(paths))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(jobs)
	for i, p := range paths {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			start := time.Now()
			results[i] = evaluate(gctx, stage, p, opts.Checks, listErrs[p])
			if opts.Observe != nil {
				opts.Observe(results[i], time.Since(start))
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("walk %s: %w", sceneID, err)
	}

	r := report.New(sceneID, checkNames, results)
	logger.Info("walk complete", "scene", sceneID,
		"pass", r.Summary.Pass, "fail", r.Summary.Fail,
		"skipped", r.Summary.Skipped, "skipped_with_error", r.Summary.SkippedWithError)
	return r, nil
}

// evaluate runs all checks on one primitive, turning panics and read
// failures into recorded errors.
func evaluate(ctx context.Context, stage scene.Stage, p string, checks []Check, listErr error) report.PrimResult {
	logger := logging.New("walker")
	prim, err := stage.Prim(p)
	if err != nil {
		logger.Warn("prim unreadable", "path", p, "error", err)
		return report.NewPrimResult(p, "", report.Outcome{Errors: []string{err.Error()}})
	}
	outcomes := make([]report.Outcome, 0, len(checks)+1)
	for _, c := range checks {
		outcomes = append(outcomes, runCheck(ctx, c, stage, prim))
	}
	if listErr != nil {
		outcomes = append(outcomes, report.Outcome{NotApplicable: true, Errors: []string{listErr.Error()}})
	}
	res := report.NewPrimResult(p, prim.Kind(), outcomes...)
	if len(res.Errors) > 0 {
		logger.Warn("prim read errors", "path", p, "errors", res.Errors)
	}
	logger.Debug("prim evaluated", "path", p, "kind", prim.Kind(), "status", res.Status, "findings", len(res.Findings))
	return res
}

func runCheck(ctx context.Context, c Check, stage scene.Stage, prim scene.Prim) (out report.Outcome) {
	defer func() {
		if r := recover(); r != nil {
			out = report.Outcome{Errors: []string{fmt.Sprintf("%s check panicked: %v", c.Name(), r)}}
		}
	}()
	return c.Run(ctx, stage, prim)
}

func sortedCopy(in []string) []string {
	out := append([]string(nil), in...)
	sort.Strings(out)
	return out
}
