// Package logx builds the console logger shared by the engine, the store and
// the command-line tool.
package logx

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

var callerOnce sync.Once

// NewLogger returns a zerolog logger writing human-readable lines to w at
// level and above. A nil w means stderr, which keeps stdout free for results.
func NewLogger(w io.Writer, level zerolog.Level) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	callerOnce.Do(func() {
		zerolog.CallerMarshalFunc = func(pc uintptr, file string, line int) string {
			// Pad for alignment
			return fmt.Sprintf("%-20s", fmt.Sprintf("%s:%d", filepath.Base(file), line))
		}
	})
	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Caller().Logger()
}

// Level maps a -v count to a level: warnings by default, then info, debug
// and trace.
func Level(verbosity int) zerolog.Level {
	switch {
	case verbosity <= 0:
		return zerolog.WarnLevel
	case verbosity == 1:
		return zerolog.InfoLevel
	case verbosity == 2:
		return zerolog.DebugLevel
	}
	return zerolog.TraceLevel
}
