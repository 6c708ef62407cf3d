// Package log is the console's logging facade. Components depend on Logger;
// only this package knows about logrus.
package log

// Logger is the printf-style logger handed to every component.
type Logger interface {
	Debugf(format string, args ...interface{})
	Infof(format string, args ...interface{})
	Warnf(format string, args ...interface{})
	Errorf(format string, args ...interface{})
	Fatalf(format string, args ...interface{})

	// WithField returns a Logger that appends key=value to every line.
	WithField(key string, value interface{}) Logger
	WithFields(fields map[string]interface{}) Logger
}
