//+build default debug !nodebug

package bridge

// logging functions, debug version

import (
	"github.com/intuitivelabs/slog"
)

// DBGon is a shorthand for checking if generic debug logging is enabled.
func DBGon() bool {
	return Log.DBGon()
}

// DBG is a shorthand for logging a debug message.
func DBG(f string, a ...interface{}) {
	Log.LLog(slog.LDBG, 1, "DBG: bridge:", f, a...)
}
