// Package logger builds the loggers used by the solver components.
//
// Components accept an injectable sink that receives one line of text
// per event; a nil sink means silence. Formatting is done by
// github.com/rs/zerolog with a console writer.
package logger

import (
	"strings"

	"github.com/rs/zerolog"
)

// Sink receives one formatted log line per call. It may be invoked
// from multiple goroutines and must not block indefinitely: incumbent
// updates are reported on the coordinator's critical path.
type Sink func(line string)

type sinkWriter struct {
	sink Sink
}

func (w sinkWriter) Write(p []byte) (int, error) {
	w.sink(strings.TrimRight(string(p), "\r\n"))
	return len(p), nil
}

// New returns a logger emitting console-formatted lines to sink. A nil
// sink disables logging entirely.
func New(sink Sink) zerolog.Logger {
	if sink == nil {
		return zerolog.Nop()
	}
	out := zerolog.ConsoleWriter{
		Out:          sinkWriter{sink: sink},
		NoColor:      true,
		PartsExclude: []string{zerolog.TimestampFieldName},
	}
	return zerolog.New(out)
}
