// Package logging adapts logrus entries to core.Logger.
package logging

import (
	"github.com/Swind/go-threading/core"
	"github.com/sirupsen/logrus"
)

// Logger writes core.Logger calls to a logrus entry.
type Logger struct {
	entry *logrus.Entry
}

var _ core.Logger = (*Logger)(nil)

// New wraps entry. A nil entry logs through the logrus standard logger.
// containerd/log's log.G(ctx) returns a suitable entry.
func New(entry *logrus.Entry) *Logger {
	if entry == nil {
		entry = logrus.NewEntry(logrus.StandardLogger())
	}
	return &Logger{entry: entry}
}

func (l *Logger) Debug(msg string, fields ...core.Field) { l.with(fields).Debug(msg) }
func (l *Logger) Info(msg string, fields ...core.Field)  { l.with(fields).Info(msg) }
func (l *Logger) Warn(msg string, fields ...core.Field)  { l.with(fields).Warn(msg) }
func (l *Logger) Error(msg string, fields ...core.Field) { l.with(fields).Error(msg) }

func (l *Logger) with(fields []core.Field) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	lf := make(logrus.Fields, len(fields))
	for _, f := range fields {
		lf[f.Key] = f.Value
	}
	return l.entry.WithFields(lf)
}
