package logging

import (
	"errors"
	"io"
	"os"
	"time"

	log "github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// ErrNil indicates that a nil/null pointer was encountered.
var ErrNil = errors.New("nil pointer")

// Config selects the format, level and destination of log output.
type Config struct {
	Level      string
	Format     string // json, textcolour, textnocolour
	Output     string // stdout, stderr or a file path
	MaxAgeDays int
}

// Configure applies cfg to logger. A nil logger configures the logrus standard logger.
// The returned closer releases a rotated log file, if one was opened.
func Configure(logger *log.Logger, cfg *Config) (io.Closer, error) {
	if cfg == nil {
		return nil, ErrNil
	}
	if logger == nil {
		logger = log.StandardLogger()
	}

	switch cfg.Format {
	case "json":
		logger.SetFormatter(&log.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	case "textcolour":
		logger.SetFormatter(&log.TextFormatter{
			ForceColors:     true,
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	case "textnocolour":
		logger.SetFormatter(&log.TextFormatter{
			DisableColors:   true,
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		})
	default:
		logger.SetFormatter(&log.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339Nano,
		}) // with colour if TTY, without otherwise
	}

	var closer io.Closer = nopCloser{}
	switch cfg.Output {
	case "", "stderr":
		logger.SetOutput(os.Stderr)
	case "stdout":
		logger.SetOutput(os.Stdout)
	default:
		lj := &lumberjack.Logger{
			Filename:   cfg.Output,
			MaxSize:    100, // megabytes
			MaxBackups: 5,
			MaxAge:     cfg.MaxAgeDays,
			Compress:   true,
		}
		logger.SetOutput(lj)
		closer = lj
	}

	if level, err := log.ParseLevel(cfg.Level); err == nil {
		logger.SetLevel(level)
	} else {
		logger.SetLevel(log.WarnLevel)
		logger.WithError(err).Warn("unknown log level, using warn")
	}
	return closer, nil
}

// Component returns an entry tagged with the component name.
func Component(logger *log.Logger, name string) *log.Entry {
	if logger == nil {
		logger = log.StandardLogger()
	}
	return logger.WithField("component", name)
}

// Discard is an entry that writes nowhere. Library packages use it when no logger is injected.
func Discard() *log.Entry {
	l := log.New()
	l.SetOutput(io.Discard)
	return log.NewEntry(l)
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }
