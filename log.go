package triedex

import "go.uber.org/zap"

// newNopLogger returns a logger that discards everything, used when Options
// does not supply one.
func newNopLogger() *zap.Logger {
	return zap.NewNop()
}
