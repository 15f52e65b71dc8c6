package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/cortexbuild/cortex/internal/logging"
)

// DefaultSubjectPrefix prefixes every published subject.
const DefaultSubjectPrefix = "cortex.notifications"

// NATSConfig configures the NATS connection.
type NATSConfig struct {
	URL           string        `yaml:"url" json:"url"`
	Name          string        `yaml:"name" json:"name"`
	SubjectPrefix string        `yaml:"subjectPrefix" json:"subjectPrefix"`
	MaxReconnects int           `yaml:"maxReconnects" json:"maxReconnects"`
	ReconnectWait time.Duration `yaml:"reconnectWait" json:"reconnectWait"`
	Timeout       time.Duration `yaml:"timeout" json:"timeout"`
}

// Publisher is the subset of *nats.Conn used for delivery.
type Publisher interface {
	Publish(subject string, data []byte) error
	FlushWithContext(ctx context.Context) error
	Close()
}

// NATS publishes each notification as JSON on
// <prefix>.<channel>.<recipient>.
type NATS struct {
	conn   Publisher
	prefix string
}

// ConnectNATS dials the server described by cfg.
func ConnectNATS(cfg NATSConfig) (*nats.Conn, error) {
	logger := logging.GetLogger("notify.nats")
	name := cfg.Name
	if name == "" {
		name = "cortex"
	}
	opts := []nats.Option{
		nats.Name(name),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("NATS reconnected to %s", nc.ConnectedUrl())
		}),
	}
	if cfg.ReconnectWait > 0 {
		opts = append(opts, nats.ReconnectWait(cfg.ReconnectWait))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, nats.Timeout(cfg.Timeout))
	}

	url := cfg.URL
	if url == "" {
		url = nats.DefaultURL
	}
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}
	return nc, nil
}

// NewNATS publishes through conn. An empty prefix uses DefaultSubjectPrefix.
func NewNATS(conn Publisher, prefix string) *NATS {
	if prefix == "" {
		prefix = DefaultSubjectPrefix
	}
	return &NATS{conn: conn, prefix: prefix}
}

func (n *NATS) Notify(ctx context.Context, notifications []Notification) error {
	for _, note := range notifications {
		data, err := json.Marshal(note)
		if err != nil {
			return fmt.Errorf("encode notification: %w", err)
		}
		subject := n.Subject(note)
		if err := n.conn.Publish(subject, data); err != nil {
			return fmt.Errorf("publish to %s: %w", subject, err)
		}
	}
	if len(notifications) == 0 {
		return nil
	}
	if err := n.conn.FlushWithContext(ctx); err != nil {
		return fmt.Errorf("flush NATS connection: %w", err)
	}
	return nil
}

// Subject returns the subject a notification is published on.
func (n *NATS) Subject(note Notification) string {
	return strings.Join([]string{n.prefix, subjectToken(note.Channel), subjectToken(note.Recipient)}, ".")
}

func (n *NATS) Close() error {
	n.conn.Close()
	return nil
}

// subjectToken replaces characters NATS treats as separators or wildcards.
func subjectToken(s string) string {
	if s == "" {
		return "_"
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case '.', '*', '>', ' ', '\t':
			return '_'
		}
		return r
	}, s)
}
