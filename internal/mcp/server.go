// Package mcp exposes scene validation as Model Context Protocol tools so an
// agent can check scenes and read run history over stdio.
package mcp

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"sceneqc/internal/format"
	"sceneqc/internal/logging"
	"sceneqc/internal/metrics"
	"sceneqc/internal/report"
	"sceneqc/internal/runner"
	"sceneqc/internal/store"

	sdkmcp "github.com/modelcontextprotocol/go-sdk/mcp"
)

// DefaultCheckTimeout bounds a check_scene call without timeout_ms.
var DefaultCheckTimeout = 2 * time.Minute

// Config is what the server needs from the CLI.
type Config struct {
	// Root resolves relative scene paths; empty means the working directory.
	Root    string
	Jobs    int
	Store   store.Store
	Metrics *metrics.Metrics
	Version string
}

// Server wraps the MCP SDK server. Runs are serialized so the history
// store sees them in call order.
type Server struct {
	MCPServer *sdkmcp.Server
	cfg       Config

	mu sync.Mutex
}

// NewServer creates an MCP server with the check_scene, list_runs and
// list_checks tools.
func NewServer(cfg Config) *Server {
	if cfg.Root == "" {
		cfg.Root, _ = os.Getwd()
	}
	if cfg.Version == "" {
		cfg.Version = "dev"
	}
	s := &Server{cfg: cfg}
	s.MCPServer = sdkmcp.NewServer(
		&sdkmcp.Implementation{Name: "sceneqc", Version: cfg.Version},
		nil,
	)
	s.registerTools()
	return s
}

func (s *Server) registerTools() {
	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "check_scene",
		Description: "Validate primvar/topology consistency of a scene file and return the findings.",
	}, s.handleCheckScene)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_runs",
		Description: "List recorded validation runs, newest first, optionally for one scene.",
	}, s.handleListRuns)

	sdkmcp.AddTool(s.MCPServer, &sdkmcp.Tool{
		Name:        "list_checks",
		Description: "List the available check names and the default selection.",
	}, s.handleListChecks)
}

// --- Tool input/output types ---

type checkSceneInput struct {
	Scene     string   `json:"scene" jsonschema:"path to the scene document (.yaml or .json)"`
	Checks    []string `json:"checks,omitempty" jsonschema:"check names (default: primvars)"`
	Verbose   bool     `json:"verbose,omitempty" jsonschema:"include info notes and passing prims in the text summary"`
	TimeoutMS int      `json:"timeout_ms,omitempty" jsonschema:"max run time in milliseconds"`
}

type checkSceneOutput struct {
	OK          bool            `json:"ok"`
	Summary     report.Summary  `json:"summary"`
	Findings    []report.Record `json:"findings"`
	Skipped     []skippedPrim   `json:"skipped_with_error,omitempty"`
	RunID       int64           `json:"run_id,omitempty"`
	NewFindings int             `json:"new_findings"`
	Text        string          `json:"text"`
}

type skippedPrim struct {
	Path   string   `json:"path"`
	Errors []string `json:"errors"`
}

type listRunsInput struct {
	Scene string `json:"scene,omitempty" jsonschema:"only runs of this scene path"`
	Limit int    `json:"limit,omitempty" jsonschema:"maximum number of runs (default 20)"`
}

type runInfo struct {
	ID         int64          `json:"id"`
	Scene      string         `json:"scene"`
	Checks     []string       `json:"checks"`
	StartedAt  string         `json:"started_at"`
	DurationMS int64          `json:"duration_ms"`
	OK         bool           `json:"ok"`
	Summary    report.Summary `json:"summary"`
}

type listRunsOutput struct {
	Runs []runInfo `json:"runs"`
}

type listChecksInput struct{}

type listChecksOutput struct {
	Checks  []string `json:"checks"`
	Default []string `json:"default"`
}

// --- Tool handlers ---

func (s *Server) handleCheckScene(ctx context.Context, _ *sdkmcp.CallToolRequest, input checkSceneInput) (*sdkmcp.CallToolResult, checkSceneOutput, error) {
	logger := logging.New("mcp")
	if input.Scene == "" {
		return nil, checkSceneOutput{}, fmt.Errorf("scene is required")
	}
	path := input.Scene
	if !filepath.IsAbs(path) {
		path = filepath.Join(s.cfg.Root, path)
	}
	timeout := DefaultCheckTimeout
	if input.TimeoutMS > 0 {
		timeout = time.Duration(input.TimeoutMS) * time.Millisecond
	}

	s.mu.Lock()
	res, err := runner.Run(ctx, path, runner.Options{
		Checks:  input.Checks,
		Jobs:    s.cfg.Jobs,
		Timeout: timeout,
		Store:   s.cfg.Store,
		Metrics: s.cfg.Metrics,
	})
	s.mu.Unlock()
	if err != nil {
		logger.Warn("check_scene failed", "scene", path, "error", err)
		return nil, checkSceneOutput{}, fmt.Errorf("check_scene: %w", err)
	}

	r := res.Report
	out := checkSceneOutput{
		OK:          r.OK(),
		Summary:     r.Summary,
		Findings:    []report.Record{},
		RunID:       res.RunID,
		NewFindings: len(res.New),
		Text:        format.Report(r, format.Markdown, format.ReportOptions{Verbose: input.Verbose}),
	}
	for _, f := range r.Findings() {
		if f.Severity == report.SeverityInfo && !input.Verbose {
			continue
		}
		out.Findings = append(out.Findings, report.RecordOf(f))
	}
	for _, p := range r.Primitives {
		if p.Status == report.StatusSkippedWithError {
			out.Skipped = append(out.Skipped, skippedPrim{Path: p.Path, Errors: p.Errors})
		}
	}
	logger.Info("check_scene done", "scene", path, "ok", out.OK, "findings", len(out.Findings))
	return nil, out, nil
}

func (s *Server) handleListRuns(_ context.Context, _ *sdkmcp.CallToolRequest, input listRunsInput) (*sdkmcp.CallToolResult, listRunsOutput, error) {
	if s.cfg.Store == nil {
		return nil, listRunsOutput{}, fmt.Errorf("run history is disabled (no --db)")
	}
	limit := input.Limit
	if limit <= 0 {
		limit = 20
	}
	sceneID := input.Scene
	if sceneID != "" && !filepath.IsAbs(sceneID) {
		sceneID = filepath.Join(s.cfg.Root, sceneID)
	}
	runs, err := s.cfg.Store.ListRuns(sceneID, limit)
	if err != nil {
		return nil, listRunsOutput{}, fmt.Errorf("list_runs: %w", err)
	}
	out := listRunsOutput{Runs: []runInfo{}}
	for _, r := range runs {
		out.Runs = append(out.Runs, runInfo{
			ID: r.ID, Scene: r.Scene, Checks: r.Checks, StartedAt: r.StartedAt,
			DurationMS: r.DurationMS, OK: r.OK, Summary: r.Summary,
		})
	}
	return nil, out, nil
}

func (s *Server) handleListChecks(_ context.Context, _ *sdkmcp.CallToolRequest, _ listChecksInput) (*sdkmcp.CallToolResult, listChecksOutput, error) {
	return nil, listChecksOutput{Checks: runner.CheckNames(), Default: runner.DefaultChecks}, nil
}

// Run serves over stdio until ctx ends or the client disconnects.
func (s *Server) Run(ctx context.Context) error {
	return s.MCPServer.Run(ctx, &sdkmcp.StdioTransport{})
}
