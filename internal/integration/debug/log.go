package debug

// Logger is the logging surface used by the debug integration. The
// application logger satisfies it.
type Logger interface {
	Debug(msg string, args ...any)
	Info(msg string, args ...any)
	Warn(msg string, args ...any)
	Error(msg string, args ...any)
}

// Notifier surfaces messages to the user.
type Notifier interface {
	// Warn shows a warning the user should notice.
	Warn(msg string)

	// Status shows a transient status message.
	Status(msg string)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Info(string, ...any)  {}
func (nopLogger) Warn(string, ...any)  {}
func (nopLogger) Error(string, ...any) {}

type nopNotifier struct{}

func (nopNotifier) Warn(string)   {}
func (nopNotifier) Status(string) {}

// NopLogger discards all log output.
var NopLogger Logger = nopLogger{}

// NopNotifier discards all user messages.
var NopNotifier Notifier = nopNotifier{}
