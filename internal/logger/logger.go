package logger

import (
	"os"

	"github.com/sirupsen/logrus"
)

// Log is the process wide entry. It is usable before Init so tests and
// package init code never hit a nil logger.
var Log = logrus.NewEntry(logrus.StandardLogger())

// Init configures the global logger from the LOG_LEVEL / LOG_FORMAT values.
func Init(level, format string) {
	l := logrus.New()
	l.SetOutput(os.Stderr)

	if format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	} else {
		l.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	l.SetLevel(lvl)

	Log = l.WithField("service", "plaza")
}
