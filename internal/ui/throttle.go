package ui

import (
	"time"

	cmap "github.com/orcaman/concurrent-map/v2"
)

// ThrottleWindow is the minimum time between two log entries
// for the same cause.
const ThrottleWindow = 1 * time.Minute

// lastEmit maps a cause to the time it was last logged. Both the
// control loop and the IPC handlers log through this map.
var lastEmit = cmap.New[time.Time]()

// ThrottledWarning logs a warning at most once per ThrottleWindow
// per unique cause.
func ThrottledWarning(cause string, format string, a ...interface{}) {
	if throttle(cause) {
		return
	}
	Warning(format, a...)
}

// ThrottledError logs an error at most once per ThrottleWindow
// per unique cause.
func ThrottledError(cause string, format string, a ...interface{}) {
	if throttle(cause) {
		return
	}
	Error(format, a...)
}

func throttle(cause string) bool {
	now := time.Now()
	last, ok := lastEmit.Get(cause)
	if ok && now.Sub(last) < ThrottleWindow {
		return true
	}
	lastEmit.Set(cause, now)
	return false
}
