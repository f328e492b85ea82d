// Package logger provides structured logging for the delay tracker.
package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/natefinch/lumberjack"
	"github.com/rs/zerolog"
)

// Logger defines the logging methods used across the service
type Logger interface {
	Debug(msg string, fields ...interface{})
	Info(msg string, fields ...interface{})
	Warn(msg string, fields ...interface{})
	Error(msg string, fields ...interface{})
	Fatal(msg string, fields ...interface{})
}

type loggerImpl struct {
	zl zerolog.Logger
}

// New creates a logger writing to the given writers
func New(level string, writers ...io.Writer) Logger {
	multi := io.MultiWriter(writers...)
	zl := zerolog.New(multi).With().Timestamp().Logger().Level(parseLevel(level))
	return &loggerImpl{zl: zl}
}

// ConsoleWriter returns a human-readable stdout writer
func ConsoleWriter() io.Writer {
	return zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
}

// FileWriter returns a rotating file writer
func FileWriter(path string) io.Writer {
	return &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // megabytes
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}
}

// Nop returns a logger that discards everything. Used in tests.
func Nop() Logger {
	return &loggerImpl{zl: zerolog.Nop()}
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

func (l *loggerImpl) Debug(msg string, fields ...interface{}) {
	logWithFields(l.zl.Debug(), msg, fields...)
}

func (l *loggerImpl) Info(msg string, fields ...interface{}) {
	logWithFields(l.zl.Info(), msg, fields...)
}

func (l *loggerImpl) Warn(msg string, fields ...interface{}) {
	logWithFields(l.zl.Warn(), msg, fields...)
}

func (l *loggerImpl) Error(msg string, fields ...interface{}) {
	logWithFields(l.zl.Error(), msg, fields...)
}

func (l *loggerImpl) Fatal(msg string, fields ...interface{}) {
	logWithFields(l.zl.Fatal(), msg, fields...)
}

// logWithFields treats fields as alternating key-value pairs
func logWithFields(event *zerolog.Event, msg string, fields ...interface{}) {
	if len(fields)%2 == 0 {
		for i := 0; i < len(fields); i += 2 {
			key, ok := fields[i].(string)
			if !ok {
				continue
			}
			if key == "error" {
				if err, ok := fields[i+1].(error); ok && err != nil {
					event = event.Err(err)
					continue
				}
			}
			event = event.Interface(key, fields[i+1])
		}
	}
	event.Msg(msg)
}
