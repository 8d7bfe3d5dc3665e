// Package corelog configures the structured logger shared across the
// core's packages. Logging is via logrus, in the style the rest of the
// pack's P2P/crypto codebases use it: leveled, field-tagged entries
// rather than ad hoc fmt.Printf calls.
package corelog

import (
	"io"
	"os"

	"github.com/sirupsen/logrus"
)

// New builds a *logrus.Logger writing to path (or stderr if path is
// empty), at Debug level when debug is true and Info otherwise.
func New(path string, debug bool) (*logrus.Logger, error) {
	logger := logrus.New()
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	var out io.Writer = os.Stderr
	if path != "" {
		f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return nil, err
		}
		out = f
	}
	logger.SetOutput(out)

	if debug {
		logger.SetLevel(logrus.DebugLevel)
	} else {
		logger.SetLevel(logrus.InfoLevel)
	}
	return logger, nil
}
