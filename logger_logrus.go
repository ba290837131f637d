package wsconsole

import (
	"github.com/sirupsen/logrus"
)

// logrusLogger adapts a logrus entry to the logger interface.
type logrusLogger struct {
	*logrus.Entry
}

// NewLogrusLogger wraps l. Fields added with WithField end up as logrus fields.
func NewLogrusLogger(l *logrus.Logger) logger {
	return logrusLogger{Entry: logrus.NewEntry(l)}
}

func (l logrusLogger) WithField(key string, value any) logger {
	return logrusLogger{Entry: l.Entry.WithField(key, value)}
}

// LevelFromVerbosity maps a -v count to a logrus level.
func LevelFromVerbosity(v int) logrus.Level {
	switch {
	case v <= 0:
		return logrus.WarnLevel
	case v == 1:
		return logrus.InfoLevel
	default:
		return logrus.DebugLevel
	}
}
