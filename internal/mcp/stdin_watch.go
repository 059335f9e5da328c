package mcp

import (
	"context"
	"os"
	"time"

	"sceneqc/internal/logging"
)

// ParentPollInterval is how often WatchParent checks the parent pid.
var ParentPollInterval = 2 * time.Second

// WatchParent calls cancelFn when the process is re-parented, which means
// the MCP client that spawned it exited without closing stdio.
//
// It must not read stdin: the SDK's StdioTransport owns it.
//
// The goroutine exits when ctx is canceled or parent death is detected.
func WatchParent(ctx context.Context, cancelFn context.CancelFunc) {
	ppid := os.Getppid()
	logger := logging.New("mcp")
	interval := ParentPollInterval
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if os.Getppid() != ppid {
					logger.Warn("parent process exited, shutting down", "parent_pid", ppid)
					cancelFn()
					return
				}
			}
		}
	}()
}
