package watch_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"sceneqc/internal/watch"
)

func TestWatcher_RerunsOnSublayerChange(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	shot := filepath.Join(dir, "shot.yaml")
	if err := os.WriteFile(base, []byte("prims: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shot, []byte("sublayers: [base.yaml]\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	runs := make(chan struct{}, 16)
	w, err := watch.New(shot, 20*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	wait := func(what string) {
		t.Helper()
		select {
		case <-runs:
		case <-time.After(5 * time.Second):
			t.Fatalf("timed out waiting for %s", what)
		}
	}
	wait("initial run")

	// A file outside the layer stack must not trigger a run.
	if err := os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-runs:
		t.Fatal("unrelated file triggered a run")
	case <-time.After(200 * time.Millisecond):
	}

	if err := os.WriteFile(base, []byte("prims:\n  - path: /a\n    kind: mesh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	wait("rerun after sublayer edit")

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Errorf("Run returned %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
}

func TestWatcher_BrokenSceneStillWatched(t *testing.T) {
	dir := t.TempDir()
	shot := filepath.Join(dir, "shot.yaml")
	if err := os.WriteFile(shot, []byte("prims: [\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runs := make(chan struct{}, 16)
	w, err := watch.New(shot, 20*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("no initial run")
	}
	if err := os.WriteFile(shot, []byte("prims: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("fixing the root file did not trigger a run")
	}
}

func TestWatcher_MissingSublayerKeepsSiblingsWatched(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "base.yaml")
	shot := filepath.Join(dir, "shot.yaml")
	if err := os.WriteFile(base, []byte("prims: []\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(shot, []byte("sublayers: [missing.yaml, base.yaml]\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	runs := make(chan struct{}, 16)
	w, err := watch.New(shot, 20*time.Millisecond, func(context.Context) error {
		runs <- struct{}{}
		return nil
	})
	if err != nil {
		t.Fatal(err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = w.Run(ctx) }()

	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("no initial run")
	}
	if err := os.WriteFile(base, []byte("prims:\n  - path: /a\n    kind: mesh\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	select {
	case <-runs:
	case <-time.After(5 * time.Second):
		t.Fatal("editing a loadable sublayer did not trigger a run")
	}
}
