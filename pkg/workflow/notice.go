package workflow

import "context"

// Level grades a Notice.
type Level int

const (
	LevelInfo Level = iota
	LevelSuccess
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelSuccess:
		return "success"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	}
	return "info"
}

// Notice is a user-facing message produced by the controller.
type Notice struct {
	Level Level
	Title string
	Text  string
	Err   error
}

// Notifier shows notices to the operator.
type Notifier interface {
	Notify(ctx context.Context, n Notice)
}

// NotifierFunc adapts a func to Notifier.
type NotifierFunc func(ctx context.Context, n Notice)

// Notify implements Notifier.
func (f NotifierFunc) Notify(ctx context.Context, n Notice) { f(ctx, n) }

type discardNotifier struct{}

func (discardNotifier) Notify(context.Context, Notice) {}
