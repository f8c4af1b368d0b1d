package observability

import (
	"runtime/debug"
)

// RecoverPanic recovers from a panic and logs it with the stack trace.
// Call in a defer statement. The panic is not re-raised; a single
// request's failure must never take down the process.
func RecoverPanic(logger *Logger, context string) {
	if r := recover(); r != nil {
		logger.WithField("panic", r).
			WithField("stack", string(debug.Stack())).
			WithField("context", context).
			Error("panic recovered")
	}
}
