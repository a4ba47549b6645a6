package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// Logger writes to stdout and to a rotated file under the log directory.
type Logger struct {
	*logrus.Logger
	file io.Closer
}

// New creates the log directory if needed and returns a logger at the given level.
func New(dir, level string) (*Logger, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create logs folder failed: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   filepath.Join(dir, "service.log"),
		MaxSize:    50,
		MaxBackups: 7,
		MaxAge:     30,
		Compress:   true,
	}

	l := logrus.New()
	l.SetOutput(io.MultiWriter(os.Stdout, rotator))
	l.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	return &Logger{Logger: l, file: rotator}, nil
}

// NewWriter returns a logger without file rotation. Used by the CLI and tests.
func NewWriter(w io.Writer, level string) *Logger {
	l := logrus.New()
	l.SetOutput(w)
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	return &Logger{Logger: l}
}

// Discard returns a logger that drops everything.
func Discard() *Logger {
	return NewWriter(io.Discard, "panic")
}

// WithComponent tags entries with the emitting component.
func (l *Logger) WithComponent(name string) *logrus.Entry {
	return l.WithField("component", name)
}

func (l *Logger) Close() {
	if l.file == nil {
		return
	}
	if err := l.file.Close(); err != nil {
		return
	}
}
