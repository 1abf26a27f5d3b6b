// Package logging configures the process-wide logrus logger.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
	prefixed "github.com/x-cray/logrus-prefixed-formatter"
)

// Setup points the standard logrus logger at w with the prefixed text
// formatter and the given level ("debug", "info", ...). Unknown levels fall
// back to info.
func Setup(w io.Writer, level string) {
	if w == nil {
		w = os.Stdout
	}
	logrus.SetOutput(w)
	logrus.SetFormatter(&prefixed.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
		ForceFormatting: true,
	})
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	logrus.SetLevel(lvl)
}

// For returns an entry tagged with a component prefix, rendered as "[Component]".
func For(component string) *logrus.Entry {
	return logrus.WithField("prefix", component)
}
