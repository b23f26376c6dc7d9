// Package logging builds the prefixed loggers used across the tool, with
// optional rotated file output.
package logging

import (
	"io"
	"log"
	"os"

	"gopkg.in/natefinch/lumberjack.v2"
)

// New returns a logger with the given bracket prefix, e.g. "[syncer] ".
// When file is non-empty, output goes to stderr and a size-rotated log
// file; otherwise stderr only.
func New(prefix, file string) *log.Logger {
	var w io.Writer = os.Stderr
	if file != "" {
		w = io.MultiWriter(os.Stderr, &lumberjack.Logger{
			Filename:   file,
			MaxSize:    10, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	return log.New(w, prefix, log.LstdFlags)
}
