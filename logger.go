package nfsd3

import "github.com/sirupsen/logrus"

// Logger is the structured logging surface the server and its
// handlers use. Applications can supply their own implementation to
// route server diagnostics into an existing logging pipeline; the
// binary entry point that configures the default one is an external
// collaborator (§1), not this package's concern.
type Logger interface {
	Debug(msg string, fields ...LogField)
	Info(msg string, fields ...LogField)
	Warn(msg string, fields ...LogField)
	Error(msg string, fields ...LogField)
}

// LogField is one structured key/value pair attached to a log line.
type LogField struct {
	Key   string
	Value interface{}
}

// logrusLogger adapts logrus.FieldLogger to the Logger interface,
// grounded on the logrus usage in this corpus's own NFS bridge
// service (orbstack-swift-nio/scon).
type logrusLogger struct {
	entry *logrus.Entry
}

// NewLogrusLogger wraps l (nil selects logrus.StandardLogger) as a
// Logger.
func NewLogrusLogger(l *logrus.Logger) Logger {
	if l == nil {
		l = logrus.StandardLogger()
	}
	return &logrusLogger{entry: logrus.NewEntry(l)}
}

func (l *logrusLogger) withFields(fields []LogField) *logrus.Entry {
	if len(fields) == 0 {
		return l.entry
	}
	f := make(logrus.Fields, len(fields))
	for _, field := range fields {
		f[field.Key] = field.Value
	}
	return l.entry.WithFields(f)
}

func (l *logrusLogger) Debug(msg string, fields ...LogField) { l.withFields(fields).Debug(msg) }
func (l *logrusLogger) Info(msg string, fields ...LogField)  { l.withFields(fields).Info(msg) }
func (l *logrusLogger) Warn(msg string, fields ...LogField)  { l.withFields(fields).Warn(msg) }
func (l *logrusLogger) Error(msg string, fields ...LogField) { l.withFields(fields).Error(msg) }

// noopLogger discards everything; used by tests and by embedders that
// want the server silent.
type noopLogger struct{}

func (noopLogger) Debug(string, ...LogField) {}
func (noopLogger) Info(string, ...LogField)  {}
func (noopLogger) Warn(string, ...LogField)  {}
func (noopLogger) Error(string, ...LogField) {}

// NewNoopLogger returns a Logger that discards all messages.
func NewNoopLogger() Logger { return noopLogger{} }
