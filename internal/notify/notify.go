// Package notify delivers risk notifications produced by the analysis
// service. Notifiers are composable: Multi fans out, Async decouples the
// caller from slow channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/cortexbuild/cortex/internal/logging"
	"github.com/cortexbuild/cortex/internal/models"
)

// ErrClosed is returned by notifiers that no longer accept notifications.
var ErrClosed = errors.New("notifier is closed")

// Notification is one message for one recipient on one channel.
type Notification struct {
	Channel   string `json:"channel" yaml:"channel"`
	Recipient string `json:"recipient" yaml:"recipient"`
	Message   string `json:"message" yaml:"message"`
}

func (n Notification) String() string {
	return fmt.Sprintf("%s/%s: %s", n.Channel, n.Recipient, n.Message)
}

// Notifier delivers notifications.
type Notifier interface {
	Notify(ctx context.Context, notifications []Notification) error
	Close() error
}

// Noop discards every notification.
type Noop struct{}

func (Noop) Notify(context.Context, []Notification) error { return nil }
func (Noop) Close() error                                 { return nil }

// Log writes notifications to the application log.
type Log struct {
	logger *logging.Logger
}

// NewLog returns a Notifier that logs at info level.
func NewLog() *Log {
	return &Log{logger: logging.GetLogger("notify")}
}

func (l *Log) Notify(ctx context.Context, notifications []Notification) error {
	logger := l.logger.WithContext(ctx)
	for _, n := range notifications {
		logger.InfoWithFields(n.Message,
			logging.Field("channel", n.Channel),
			logging.Field("recipient", n.Recipient),
		)
	}
	return nil
}

func (l *Log) Close() error { return nil }

// Recipient subscribes an address on a channel to patterns at or above
// MinRiskLevel.
type Recipient struct {
	Channel      string           `json:"channel" yaml:"channel"`
	Address      string           `json:"address" yaml:"address"`
	MinRiskLevel models.RiskLevel `json:"minRiskLevel" yaml:"minRiskLevel"`
}

// Wants reports whether the recipient should hear about a pattern at level.
func (r Recipient) Wants(level models.RiskLevel) bool {
	return level.AtLeast(r.MinRiskLevel)
}
