// internal/uptime/uptime.go
package uptime

import (
	"fmt"
	"strings"
	"time"
)

// Clock records the process start instant. It is read-only after creation
// and safe to share between the pipeline and the health server.
type Clock struct {
	start time.Time
}

// NewClock creates a Clock anchored at the current instant.
func NewClock() *Clock {
	return &Clock{start: time.Now()}
}

// NewClockAt creates a Clock anchored at the given instant.
func NewClockAt(start time.Time) *Clock {
	return &Clock{start: start}
}

// Elapsed returns the time since the clock was anchored.
func (c *Clock) Elapsed() time.Duration {
	return time.Since(c.start)
}

// Human returns the elapsed time as a human-readable duration string.
func (c *Clock) Human() string {
	return Format(int64(c.Elapsed().Seconds()))
}

// Format renders a second count as "1d 1h 1m 1s". Leading zero units are
// omitted; seconds are always shown.
func Format(seconds int64) string {
	if seconds < 0 {
		seconds = 0
	}
	days := seconds / 86400
	seconds %= 86400
	hours := seconds / 3600
	seconds %= 3600
	minutes := seconds / 60
	seconds %= 60

	var parts []string
	if days > 0 {
		parts = append(parts, fmt.Sprintf("%dd", days))
	}
	if hours > 0 {
		parts = append(parts, fmt.Sprintf("%dh", hours))
	}
	if minutes > 0 {
		parts = append(parts, fmt.Sprintf("%dm", minutes))
	}
	parts = append(parts, fmt.Sprintf("%ds", seconds))
	return strings.Join(parts, " ")
}
