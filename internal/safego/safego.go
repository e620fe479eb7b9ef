// Package safego launches background goroutines that cannot take the process
// down. Asynchronous work in the index (lifecycle notifications, download
// counting) runs fire-and-forget, and an unrecovered panic in one of those
// goroutines would either die silently or crash the server.
package safego

import "log/slog"

// Go runs fn in a new goroutine. A panic in fn is recovered and logged,
// tagged with name so the failing call site is identifiable.
func Go(name string, fn func()) {
	go func() {
		defer func() {
			if r := recover(); r != nil {
				slog.Error("recovered panic in background goroutine", "name", name, "panic", r)
			}
		}()
		fn()
	}()
}
