package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/kafkax"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/segmentio/kafka-go"
)

type Publisher interface {
	Publish(ctx context.Context, ev Event) error
	Close() error
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes each event to the topic named by its type, keyed by
// the aggregate id so one appointment's events stay ordered.
type KafkaPublisher struct {
	writer messageWriter
}

func NewKafkaPublisher(brokers []string) *KafkaPublisher {
	return &KafkaPublisher{writer: &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{},
		AllowAutoTopicCreation: true,
		BatchTimeout:           50 * time.Millisecond,
	}}
}

func (p *KafkaPublisher) Publish(ctx context.Context, ev Event) error {
	msg := kafka.Message{
		Topic:   ev.Type,
		Key:     []byte(ev.AggregateID),
		Value:   ev.Payload,
		Headers: kafkax.EventHeaders(ev.ID, ev.Type),
	}
	msg.Headers = kafkax.InjectTraceHeaders(ctx, msg.Headers)
	return p.writer.WriteMessages(ctx, msg)
}

func (p *KafkaPublisher) Close() error { return p.writer.Close() }

// Noop drops every event. Used when no brokers are configured.
type Noop struct{}

func (Noop) Publish(context.Context, Event) error { return nil }
func (Noop) Close() error                         { return nil }

// NewPublisher returns a Kafka publisher, or Noop when brokers is empty.
func NewPublisher(brokers []string, logger *slog.Logger) Publisher {
	if len(brokers) == 0 {
		logger.Warn("event publishing disabled (no kafka brokers configured)")
		return Noop{}
	}
	return NewKafkaPublisher(brokers)
}

// Notifier turns appointment lifecycle changes into events. Failures are
// logged and swallowed; a booking never fails because an event was lost.
type Notifier struct {
	pub     Publisher
	prefix  string
	logger  *slog.Logger
	timeout time.Duration
	now     func() time.Time
}

func NewNotifier(pub Publisher, prefix string, logger *slog.Logger) *Notifier {
	return &Notifier{pub: pub, prefix: prefix, logger: logger, timeout: 5 * time.Second, now: time.Now}
}

// Confirm announces a newly booked appointment.
func (n *Notifier) Confirm(ctx context.Context, a model.Appointment) {
	ev, err := Booked(n.prefix, a)
	if err != nil {
		n.logger.Error("encode booked event failed", "appointment_id", a.ID, "err", err)
		return
	}
	n.publish(ctx, ev)
}

func (n *Notifier) Cancelled(ctx context.Context, appointmentID string) {
	ev, err := Cancelled(n.prefix, appointmentID, n.now())
	if err != nil {
		n.logger.Error("encode cancelled event failed", "appointment_id", appointmentID, "err", err)
		return
	}
	n.publish(ctx, ev)
}

func (n *Notifier) publish(ctx context.Context, ev Event) {
	// The request may already be finishing; keep trace values but not its deadline.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), n.timeout)
	defer cancel()
	if err := n.pub.Publish(ctx, ev); err != nil {
		n.logger.Warn("event publish failed", "event_type", ev.Type, "event_id", ev.ID, "aggregate_id", ev.AggregateID, "err", err)
		return
	}
	n.logger.Debug("event published", "event_type", ev.Type, "event_id", ev.ID, "aggregate_id", ev.AggregateID)
}
