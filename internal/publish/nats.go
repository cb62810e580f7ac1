package publish

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/roach88/droproute/internal/ir"
)

// DefaultSubject is the subject prefix used when none is configured.
const DefaultSubject = "droproute.electrodes"

// Conn is the subset of *nats.Conn the publisher uses.
type Conn interface {
	PublishMsg(m *nats.Msg) error
	FlushWithContext(ctx context.Context) error
	Drain() error
}

// NATSConfig contains NATS connection configuration.
type NATSConfig struct {
	URL     string
	Subject string

	MaxReconnects int
	ReconnectWait time.Duration
	Timeout       time.Duration

	// FlushTimeout bounds the flush done when a run stops.
	FlushTimeout time.Duration
}

// DefaultNATSConfig returns default NATS configuration.
func DefaultNATSConfig() NATSConfig {
	return NATSConfig{
		URL:           nats.DefaultURL,
		Subject:       DefaultSubject,
		MaxReconnects: -1, // Unlimited
		ReconnectWait: 2 * time.Second,
		Timeout:       5 * time.Second,
		FlushTimeout:  5 * time.Second,
	}
}

// NATS publishes frames on <subject>.active and status events on
// <subject>.status. Every frame carries a Nats-Msg-Id of <run_id>-<seq> so
// a JetStream stream on these subjects deduplicates redeliveries.
type NATS struct {
	conn         Conn
	subject      string
	flushTimeout time.Duration
	logger       *slog.Logger
}

// DialNATS connects to cfg.URL and returns a publisher on the connection.
func DialNATS(cfg NATSConfig, logger *slog.Logger) (*NATS, error) {
	if logger == nil {
		logger = slog.Default()
	}
	nc, err := nats.Connect(cfg.URL,
		nats.Name("droproute"),
		nats.MaxReconnects(cfg.MaxReconnects),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("nats disconnected", "error", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Info("nats reconnected", "url", c.ConnectedUrl())
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to nats at %s: %w", cfg.URL, err)
	}
	n := NewNATS(nc, cfg.Subject, logger)
	n.flushTimeout = cfg.FlushTimeout
	return n, nil
}

// NewNATS creates a publisher on an existing connection.
// An empty subject uses DefaultSubject.
func NewNATS(conn Conn, subject string, logger *slog.Logger) *NATS {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &NATS{
		conn:         conn,
		subject:      subject,
		flushTimeout: DefaultNATSConfig().FlushTimeout,
		logger:       logger,
	}
}

// ActiveSubject returns the subject frames are published on.
func (n *NATS) ActiveSubject() string { return n.subject + "." + TypeActive }

// StatusSubject returns the subject status events are published on.
func (n *NATS) StatusSubject() string { return n.subject + "." + TypeStatus }

// PublishActive implements engine.Publisher.
func (n *NATS) PublishActive(_ context.Context, frame ir.Frame) error {
	data, err := Encode(FrameMessage(frame))
	if err != nil {
		return err
	}
	msg := nats.NewMsg(n.ActiveSubject())
	msg.Data = data
	msg.Header.Set(nats.MsgIdHdr, frame.RunID+"-"+strconv.FormatInt(frame.Seq, 10))
	if err := n.conn.PublishMsg(msg); err != nil {
		return fmt.Errorf("nats publish %s: %w", msg.Subject, err)
	}
	return nil
}

// StatusChanged implements engine.StatusObserver. On stop the connection is
// flushed so subscribers see every frame before the stop event is reported
// as delivered.
func (n *NATS) StatusChanged(ctx context.Context, ev ir.StatusEvent) {
	data, err := Encode(StatusMessage(ev))
	if err != nil {
		n.logger.Error("encode status", "run_id", ev.RunID, "error", err)
		return
	}
	msg := nats.NewMsg(n.StatusSubject())
	msg.Data = data
	if err := n.conn.PublishMsg(msg); err != nil {
		n.logger.Error("nats publish status", "run_id", ev.RunID, "status", ev.Status, "error", err)
		return
	}

	if ev.Status != ir.StatusStopped {
		return
	}
	fctx, cancel := context.WithTimeout(ctx, n.flushTimeout)
	defer cancel()
	if err := n.conn.FlushWithContext(fctx); err != nil {
		n.logger.Warn("nats flush", "run_id", ev.RunID, "error", err)
	}
}

// Close drains the connection.
func (n *NATS) Close() error {
	return n.conn.Drain()
}
