// Package log provides the process-wide structured logger used throughout
// pintosim. It is a thin call-shape wrapper around logrus so that call
// sites read the way gVisor's pkg/log call sites do (Infof, Warningf,
// Debugf) without pintosim depending on gVisor's own (unavailable) logger.
package log

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

var std = logrus.New()

func init() {
	std.SetOutput(os.Stderr)
	std.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		DisableColors:   false,
		TimestampFormat: "15:04:05.000000",
	})
}

// SetOutput redirects all log output, e.g. to a debug-log file.
func SetOutput(w io.Writer) {
	std.SetOutput(w)
}

// SetLevel controls whether Debugf lines are emitted.
func SetLevel(debug bool) {
	if debug {
		std.SetLevel(logrus.DebugLevel)
		return
	}
	std.SetLevel(logrus.InfoLevel)
}

// Infof logs at info level.
func Infof(format string, args ...any) { std.Infof(format, args...) }

// Warningf logs at warn level.
func Warningf(format string, args ...any) { std.Warnf(format, args...) }

// Debugf logs at debug level.
func Debugf(format string, args ...any) { std.Debugf(format, args...) }

// Fields returns a logger scoped to a set of structured fields, e.g. a
// process id, for call sites that want to tag a whole sequence of log
// lines with the same context.
func Fields(kv map[string]any) *logrus.Entry {
	return std.WithFields(logrus.Fields(kv))
}
