package core

// Logger is any service that can record application events.
// args may hold errors, maps of extra data or other values worth reporting along with msg.
type Logger interface {
	Debug(msg string, args ...interface{})
	Info(msg string, args ...interface{})
	Warn(msg string, args ...interface{})
	Error(msg string, args ...interface{})
	Fatal(msg string, args ...interface{})
}
