// Package logging builds the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
	"os"
	"strings"

	"gopkg.in/natefinch/lumberjack.v2"
)

// Params selects the log sink and level.
type Params struct {
	Level slog.Level
	// FileName, when set, routes logs to a rotating file instead of Stderr.
	FileName   string
	MaxSizeMB  int
	MaxBackups int
	// Stderr receives logs when FileName is empty. Defaults to os.Stderr.
	Stderr io.Writer
}

// Setup installs a JSON slog logger as the default and returns it with a
// closer for the underlying file, if any.
func Setup(p Params) (*slog.Logger, io.Closer) {
	var (
		out    io.Writer
		closer io.Closer = nopCloser{}
	)

	switch {
	case p.FileName != "":
		name := p.FileName
		if !strings.HasSuffix(name, ".log") {
			name += ".log"
		}
		lj := &lumberjack.Logger{
			Filename:   name,
			MaxSize:    p.MaxSizeMB, // megabytes
			MaxBackups: p.MaxBackups,
			LocalTime:  false,
			Compress:   true,
		}
		out, closer = lj, lj
	case p.Stderr != nil:
		out = p.Stderr
	default:
		out = os.Stderr
	}

	logger := slog.New(slog.NewJSONHandler(out, &slog.HandlerOptions{
		Level: p.Level,
	}))
	slog.SetDefault(logger)
	return logger, closer
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
