package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/md-rashed-zaman/barberbook/libs/kv"
	otelx "github.com/md-rashed-zaman/barberbook/libs/otel"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/validation"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/semaphore"
)

// DefaultSlot is the key holding the whole appointment collection.
const DefaultSlot = "@barbearia_agendamentos"

var (
	// ErrStorage wraps every failure to read or write the backing slot.
	ErrStorage = errors.New("storage fault")
	// ErrCorrupt marks a slot whose payload cannot be decoded. It is always
	// reported together with ErrStorage.
	ErrCorrupt = errors.New("stored appointments are corrupt")
	// ErrSlotTaken is returned by SaveIfAvailable when (date, time) is already booked.
	ErrSlotTaken = errors.New("slot already booked")
	// ErrNotFound is for callers that must turn an absent record into an error.
	// GetByID itself reports absence as nil, nil.
	ErrNotFound = errors.New("appointment not found")
)

// Store owns the persisted appointment collection. Every mutation is a
// read-modify-write of the whole slot executed inside a single FIFO critical
// section, so concurrent callers in one process never lose each other's writes.
type Store struct {
	backend   kv.Store
	slot      string
	logger    *slog.Logger
	writer    *semaphore.Weighted
	now       func() time.Time
	newID     func() string
	opTimeout time.Duration
	tracer    trace.Tracer
}

type Option func(*Store)

func WithSlot(slot string) Option {
	return func(s *Store) {
		if slot != "" {
			s.slot = slot
		}
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.now = now
		}
	}
}

func WithIDGenerator(newID func() string) Option {
	return func(s *Store) {
		if newID != nil {
			s.newID = newID
		}
	}
}

// WithOpTimeout bounds each backend call. Zero disables the bound.
func WithOpTimeout(d time.Duration) Option {
	return func(s *Store) {
		s.opTimeout = d
	}
}

func New(backend kv.Store, opts ...Option) *Store {
	s := &Store{
		backend:   backend,
		slot:      DefaultSlot,
		logger:    slog.Default(),
		writer:    semaphore.NewWeighted(1),
		now:       time.Now,
		newID:     validation.GenerateID,
		opTimeout: 5 * time.Second,
		tracer:    otelx.Tracer("barberbook/storage"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Save assigns id and createdAt to form and appends it to the collection.
// It does not check the slot; callers that need that use SaveIfAvailable.
func (s *Store) Save(ctx context.Context, form model.Form) (model.Appointment, error) {
	ctx, span := s.start(ctx, "store.save")
	defer span.End()

	var saved model.Appointment
	err := s.mutate(ctx, func(appts []model.Appointment) ([]model.Appointment, error) {
		saved = s.build(form)
		return append(appts, saved), nil
	})
	if err != nil {
		return model.Appointment{}, s.fail(span, "save appointment", err)
	}
	span.SetAttributes(attribute.String("appointment.id", saved.ID))
	return saved, nil
}

// SaveIfAvailable is Save with the availability check performed inside the
// critical section. It returns ErrSlotTaken when (date, time) is already claimed.
func (s *Store) SaveIfAvailable(ctx context.Context, form model.Form) (model.Appointment, error) {
	ctx, span := s.start(ctx, "store.save_if_available")
	defer span.End()

	var saved model.Appointment
	err := s.mutate(ctx, func(appts []model.Appointment) ([]model.Appointment, error) {
		for _, a := range appts {
			if a.SameSlot(form.Date, form.Time) {
				return nil, ErrSlotTaken
			}
		}
		saved = s.build(form)
		return append(appts, saved), nil
	})
	if errors.Is(err, ErrSlotTaken) {
		span.SetAttributes(attribute.Bool("slot.taken", true))
		return model.Appointment{}, err
	}
	if err != nil {
		return model.Appointment{}, s.fail(span, "save appointment", err)
	}
	span.SetAttributes(attribute.String("appointment.id", saved.ID))
	return saved, nil
}

// List returns the collection in insertion order. An empty or missing slot
// yields an empty, non-nil slice.
func (s *Store) List(ctx context.Context) ([]model.Appointment, error) {
	ctx, span := s.start(ctx, "store.list")
	defer span.End()

	appts, err := s.read(ctx)
	if err != nil {
		return nil, s.fail(span, "list appointments", err)
	}
	span.SetAttributes(attribute.Int("appointments.count", len(appts)))
	return appts, nil
}

// ListRecent returns List sorted by createdAt, newest first. Ties keep insertion order.
func (s *Store) ListRecent(ctx context.Context) ([]model.Appointment, error) {
	appts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	sort.SliceStable(appts, func(i, j int) bool {
		return appts[i].CreatedAt.After(appts[j].CreatedAt)
	})
	return appts, nil
}

// GetByID returns nil, nil when no appointment has the id.
func (s *Store) GetByID(ctx context.Context, id string) (*model.Appointment, error) {
	appts, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	for i := range appts {
		if appts[i].ID == id {
			a := appts[i]
			return &a, nil
		}
	}
	return nil, nil
}

// CheckAvailability reports whether no stored appointment claims (date, time).
// The answer can be stale by the time the caller acts on it.
func (s *Store) CheckAvailability(ctx context.Context, date, clock string) (bool, error) {
	ctx, span := s.start(ctx, "store.check_availability")
	defer span.End()
	span.SetAttributes(attribute.String("slot.date", date), attribute.String("slot.time", clock))

	appts, err := s.read(ctx)
	if err != nil {
		return false, s.fail(span, "check availability", err)
	}
	for _, a := range appts {
		if a.SameSlot(date, clock) {
			return false, nil
		}
	}
	return true, nil
}

// Delete removes the appointment with id and writes the collection back.
// Deleting an unknown id still rewrites the slot and reports true.
func (s *Store) Delete(ctx context.Context, id string) (bool, error) {
	ctx, span := s.start(ctx, "store.delete")
	defer span.End()
	span.SetAttributes(attribute.String("appointment.id", id))

	err := s.mutate(ctx, func(appts []model.Appointment) ([]model.Appointment, error) {
		kept := appts[:0]
		for _, a := range appts {
			if a.ID != id {
				kept = append(kept, a)
			}
		}
		return kept, nil
	})
	if err != nil {
		return false, s.fail(span, "delete appointment", err)
	}
	return true, nil
}

// Clear drops the whole slot. Meant for resetting an environment.
func (s *Store) Clear(ctx context.Context) error {
	ctx, span := s.start(ctx, "store.clear")
	defer span.End()

	if err := s.writer.Acquire(ctx, 1); err != nil {
		return s.fail(span, "clear appointments", err)
	}
	defer s.writer.Release(1)

	bctx, cancel := s.bound(ctx)
	defer cancel()
	if err := s.backend.Delete(bctx, s.slot); err != nil {
		return s.fail(span, "clear appointments", err)
	}
	s.logger.Info("appointment slot cleared", "slot", s.slot)
	return nil
}

// Ping checks the backing store.
func (s *Store) Ping(ctx context.Context) error {
	bctx, cancel := s.bound(ctx)
	defer cancel()
	return s.backend.Ping(bctx)
}

func (s *Store) build(form model.Form) model.Appointment {
	return model.Appointment{
		ID:         s.newID(),
		ClientName: form.ClientName,
		Date:       form.Date,
		Time:       form.Time,
		Service:    form.Service,
		CreatedAt:  s.now(),
	}
}

// mutate runs fn over the current collection and writes its result back, all
// while holding the writer gate. Waiters are admitted in arrival order.
func (s *Store) mutate(ctx context.Context, fn func([]model.Appointment) ([]model.Appointment, error)) error {
	if err := s.writer.Acquire(ctx, 1); err != nil {
		return err
	}
	defer s.writer.Release(1)

	appts, err := s.read(ctx)
	if err != nil {
		return err
	}
	next, err := fn(appts)
	if err != nil {
		return err
	}
	return s.write(ctx, next)
}

func (s *Store) read(ctx context.Context) ([]model.Appointment, error) {
	bctx, cancel := s.bound(ctx)
	defer cancel()

	payload, ok, err := s.backend.Get(bctx, s.slot)
	if err != nil {
		return nil, err
	}
	if !ok || payload == "" {
		return []model.Appointment{}, nil
	}
	appts, err := decode(payload)
	if err != nil {
		s.logger.Error("appointment slot is corrupt", "slot", s.slot, "err", err)
		return nil, fmt.Errorf("%w: %v", ErrCorrupt, err)
	}
	return appts, nil
}

func (s *Store) write(ctx context.Context, appts []model.Appointment) error {
	payload, err := encode(appts)
	if err != nil {
		return err
	}
	bctx, cancel := s.bound(ctx)
	defer cancel()
	return s.backend.Set(bctx, s.slot, payload)
}

func (s *Store) bound(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.opTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.opTimeout)
}

func (s *Store) start(ctx context.Context, name string) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, name, trace.WithAttributes(attribute.String("kv.slot", s.slot)))
}

// fail records err on the span, logs it and wraps it as a storage fault.
func (s *Store) fail(span trace.Span, op string, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, op)
	s.logger.Warn("appointment store operation failed", "op", op, "slot", s.slot, "err", err)
	if errors.Is(err, ErrStorage) {
		return err
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStorage, err)
}
