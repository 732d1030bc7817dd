package main

import (
	"io"
	stdlog "log"
	"os"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// openLogOutput opens the log file for appending. Without a path, logs are
// discarded to os.DevNull; the terminal belongs to the dashboard.
func openLogOutput(path string) (*os.File, error) {
	if path != "" {
		if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
			return nil, err
		}
		f, err := os.OpenFile(filepath.Clean(path), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0600)
		if err != nil {
			return nil, err
		}
		return f, nil
	}
	return os.OpenFile(os.DevNull, os.O_WRONLY, 0)
}

// setupLogging points the global zerolog logger, and the standard library
// logger used by net/http, at out.
func setupLogging(debug bool, out io.Writer) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
	stdlog.SetFlags(0)
	stdlog.SetOutput(out)
}
