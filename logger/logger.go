package logger

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New returns a logrus logger writing to stderr. Unknown levels fall back
// to info. Every entry carries the calling file and line.
func New(level, format string) *logrus.Logger {
	return newWithOutput(os.Stderr, level, format)
}

func newWithOutput(w io.Writer, level, format string) *logrus.Logger {
	l := logrus.New()
	l.SetOutput(w)
	if format == "text" {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		l.SetFormatter(&logrus.JSONFormatter{})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)
	l.SetReportCaller(true)
	return l
}
