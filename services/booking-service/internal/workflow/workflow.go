// Package workflow runs a single booking attempt from submitted form to
// confirmed appointment. There are no retries; after any failure the caller
// is back in Editing and must resubmit.
package workflow

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/storage"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/validation"
)

type State string

const (
	StateEditing              State = "editing"
	StateValidating           State = "validating"
	StateCheckingAvailability State = "checking_availability"
	StatePersisting           State = "persisting"
	StateConfirmed            State = "confirmed"
	StateError                State = "error"
)

const (
	MsgInvalidName    = "Por favor, insira um nome válido (mínimo 2 caracteres)."
	MsgInvalidDate    = "Por favor, insira uma data válida no formato dd/mm/yyyy."
	MsgInvalidTime    = "Por favor, insira um horário válido no formato hh:mm."
	MsgNotFuture      = "Por favor, selecione uma data e horário futuros."
	MsgInvalidService = "Por favor, selecione um serviço válido."
	MsgConflict       = "Este horário já está ocupado. Por favor, escolha outro."
	MsgPersistence    = "Não foi possível realizar o agendamento. Tente novamente."
)

var (
	ErrConflict    = errors.New(MsgConflict)
	ErrPersistence = errors.New(MsgPersistence)
)

// ValidationError names the first form field that failed and the message to show.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string { return e.Field + ": " + e.Message }

// Store is the part of storage.Store the workflow drives.
type Store interface {
	CheckAvailability(ctx context.Context, date, clock string) (bool, error)
	SaveIfAvailable(ctx context.Context, form model.Form) (model.Appointment, error)
}

// Confirmer receives every appointment that reaches Confirmed.
type Confirmer interface {
	Confirm(ctx context.Context, a model.Appointment)
}

type ConfirmerFunc func(ctx context.Context, a model.Appointment)

func (f ConfirmerFunc) Confirm(ctx context.Context, a model.Appointment) { f(ctx, a) }

// Outcome describes one run. Path lists every state entered, in order.
type Outcome struct {
	State       State
	Path        []State
	Appointment *model.Appointment
}

type Workflow struct {
	store   Store
	confirm Confirmer
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
}

type Option func(*Workflow)

func WithClock(now func() time.Time) Option {
	return func(w *Workflow) {
		if now != nil {
			w.now = now
		}
	}
}

// WithLocation sets the shop's wall clock used for date and time checks.
func WithLocation(loc *time.Location) Option {
	return func(w *Workflow) {
		if loc != nil {
			w.loc = loc
		}
	}
}

func WithConfirmer(c Confirmer) Option {
	return func(w *Workflow) {
		if c != nil {
			w.confirm = c
		}
	}
}

func New(store Store, logger *slog.Logger, opts ...Option) *Workflow {
	if logger == nil {
		logger = slog.Default()
	}
	w := &Workflow{
		store:   store,
		confirm: ConfirmerFunc(func(context.Context, model.Appointment) {}),
		logger:  logger,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// Submit runs the form through validation, the availability check and
// persistence. The returned error is a *ValidationError, ErrConflict or
// ErrPersistence (wrapping the storage cause).
func (w *Workflow) Submit(ctx context.Context, form model.Form) (Outcome, error) {
	run := &run{w: w, out: Outcome{State: StateEditing, Path: []State{StateEditing}}}

	run.enter(StateValidating)
	if verr := w.validate(form); verr != nil {
		return run.fail(verr, "field", verr.Field)
	}
	form.Time = validation.CanonicalTime(form.Time)

	run.enter(StateCheckingAvailability)
	free, err := w.store.CheckAvailability(ctx, form.Date, form.Time)
	if err != nil {
		return run.fail(errors.Join(ErrPersistence, err))
	}
	if !free {
		return run.fail(ErrConflict, "date", form.Date, "time", form.Time)
	}

	run.enter(StatePersisting)
	saved, err := w.store.SaveIfAvailable(ctx, form)
	if errors.Is(err, storage.ErrSlotTaken) {
		// Lost the slot to a concurrent booking after the check.
		return run.fail(ErrConflict, "date", form.Date, "time", form.Time)
	}
	if err != nil {
		return run.fail(errors.Join(ErrPersistence, err))
	}

	run.enter(StateConfirmed)
	run.out.Appointment = &saved
	w.logger.Info("appointment confirmed", "appointment_id", saved.ID, "date", saved.Date, "time", saved.Time, "service", saved.Service)
	w.confirm.Confirm(ctx, saved)
	return run.out, nil
}

// validate applies the checks in order and reports the first failure.
func (w *Workflow) validate(form model.Form) *ValidationError {
	now := w.now().In(w.loc)
	switch {
	case !validation.IsValidName(form.ClientName):
		return &ValidationError{Field: "clientName", Message: MsgInvalidName}
	case !validation.IsValidDateAt(form.Date, now):
		return &ValidationError{Field: "date", Message: MsgInvalidDate}
	case !validation.IsValidTime(form.Time):
		return &ValidationError{Field: "time", Message: MsgInvalidTime}
	case !validation.IsFutureDateTimeAt(form.Date, form.Time, now):
		return &ValidationError{Field: "time", Message: MsgNotFuture}
	case !form.Service.Valid():
		return &ValidationError{Field: "service", Message: MsgInvalidService}
	}
	return nil
}

type run struct {
	w   *Workflow
	out Outcome
}

func (r *run) enter(s State) {
	r.w.logger.Debug("booking transition", "from", r.out.State, "to", s)
	r.out.State = s
	r.out.Path = append(r.out.Path, s)
}

func (r *run) fail(err error, attrs ...any) (Outcome, error) {
	from := r.out.State
	r.enter(StateError)
	r.w.logger.Warn("booking rejected", append([]any{"state", from, "err", err}, attrs...)...)
	r.enter(StateEditing)
	return r.out, err
}
