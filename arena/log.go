package arena

// logging functions

import (
	"github.com/intuitivelabs/slog"
)

const logName = "arenakit"

// internal constants
const (
	pDBG  = "DBG: " + logName + ": "
	pWARN = "WARNING: " + logName + ": "
	pERR  = "ERROR: " + logName + ": "
	pBUG  = "BUG: " + logName + ": "
)

// Log is the package logger. Invalid frees and corruption skips log at
// LWARN; replace Log with a more verbose instance to see them:
//
//	arena.Log = slog.New(slog.LDBG, slog.LlocInfoS, slog.LStdErr)
var Log slog.Log = slog.New(slog.LERR, slog.LlocInfoS, slog.LStdErr)

// WARNon is a shorthand for checking if logging at LWARN level is enabled.
func WARNon() bool {
	return Log.WARNon()
}

// WARN is a shorthand for logging a warning message.
func WARN(f string, a ...interface{}) {
	Log.LLog(slog.LWARN, 1, pWARN, f, a...)
}

// ERRon is a shorthand for checking if logging at LERR level is enabled.
func ERRon() bool {
	return Log.ERRon()
}

// ERR is a shorthand for logging an error message.
func ERR(f string, a ...interface{}) {
	Log.LLog(slog.LERR, 1, pERR, f, a...)
}

// BUG is a shorthand for logging an internal inconsistency.
func BUG(f string, a ...interface{}) {
	Log.LLog(slog.LBUG, 1, pBUG, f, a...)
}

// DBG is a shorthand for logging a debug message.
func DBG(f string, a ...interface{}) {
	Log.LLog(slog.LDBG, 1, pDBG, f, a...)
}
