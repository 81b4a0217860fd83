// Package notify delivers short operational messages (new critical tickets,
// failed uploads) to people.
package notify

import (
	"context"
	"errors"
	"log/slog"
)

type Message struct {
	Subject string   `json:"subject"`
	Body    string   `json:"body"`
	To      []string `json:"to,omitempty"`
	// Critical marks messages that should interrupt, e.g. desktop alerts.
	Critical bool `json:"critical,omitempty"`
}

type Notifier interface {
	Notify(ctx context.Context, msg Message) error
}

// Log writes messages to the application log.
type Log struct {
	logger *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{logger: logger}
}

func (l *Log) Notify(ctx context.Context, msg Message) error {
	level := slog.LevelInfo
	if msg.Critical {
		level = slog.LevelWarn
	}
	l.logger.Log(ctx, level, "notification",
		"subject", msg.Subject,
		"to", msg.To,
		"critical", msg.Critical,
	)
	return nil
}

// Multi fans a message out to every notifier. All are attempted; the errors
// of those that failed are joined.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, msg Message) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, msg); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// When forwards messages to n only while enabled reports true. Dropped
// messages are not an error.
func When(enabled func() bool, n Notifier) Notifier {
	return gated{enabled: enabled, next: n}
}

type gated struct {
	enabled func() bool
	next    Notifier
}

func (g gated) Notify(ctx context.Context, msg Message) error {
	if !g.enabled() {
		return nil
	}
	return g.next.Notify(ctx, msg)
}
