package notify

import (
	"context"
	"errors"
)

// Multi fans notifications out to several notifiers. Every notifier is
// called even when an earlier one fails; errors are joined.
type Multi struct {
	notifiers []Notifier
}

// NewMulti returns a Notifier that writes to all of notifiers.
func NewMulti(notifiers ...Notifier) *Multi {
	return &Multi{notifiers: notifiers}
}

func (m *Multi) Notify(ctx context.Context, notifications []Notification) error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Notify(ctx, notifications); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m *Multi) Close() error {
	var errs []error
	for _, n := range m.notifiers {
		if err := n.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
