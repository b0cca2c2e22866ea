package util

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// SetupLogger configures the standard logrus logger for JSON output at level.
// Unknown levels fall back to info.
func SetupLogger(level string, out io.Writer) {
	if out == nil {
		out = os.Stdout
	}
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetOutput(out)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}
