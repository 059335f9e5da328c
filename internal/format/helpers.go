package format

import (
	"fmt"
	"time"

	"sceneqc/internal/report"
)

// FmtDuration formats a duration as "Xm Ys", "Ys" or "Nms".
func FmtDuration(d time.Duration) string {
	if d < time.Second {
		return fmt.Sprintf("%dms", d.Milliseconds())
	}
	s := int(d.Seconds())
	if s >= 60 {
		return fmt.Sprintf("%dm %ds", s/60, s%60)
	}
	return fmt.Sprintf("%ds", s)
}

// Truncate shortens s to maxLen characters, appending "..." if truncated.
func Truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return s[:maxLen]
	}
	return s[:maxLen-3] + "..."
}

// StatusMark returns a one-glyph marker for a primitive status.
func StatusMark(s report.Status) string {
	switch s {
	case report.StatusPass:
		return "✓"
	case report.StatusFail:
		return "✗"
	case report.StatusSkippedWithError:
		return "!"
	default:
		return "-"
	}
}
