package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

const DefaultTopicPrefix = "barberbook.appointment"

// Event is a domain event envelope. The Kafka topic equals Type.
type Event struct {
	ID          string
	Type        string
	AggregateID string
	Payload     []byte
}

type bookedPayload struct {
	AppointmentID string            `json:"appointment_id"`
	ClientName    string            `json:"client_name"`
	Date          string            `json:"date"`
	Time          string            `json:"time"`
	Service       model.ServiceKind `json:"service"`
	CreatedAt     time.Time         `json:"created_at"`
}

type cancelledPayload struct {
	AppointmentID string    `json:"appointment_id"`
	CancelledAt   time.Time `json:"cancelled_at"`
}

func BookedType(prefix string) string    { return topic(prefix, "booked.v1") }
func CancelledType(prefix string) string { return topic(prefix, "cancelled.v1") }

func topic(prefix, suffix string) string {
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return prefix + "." + suffix
}

func Booked(prefix string, a model.Appointment) (Event, error) {
	payload, err := json.Marshal(bookedPayload{
		AppointmentID: a.ID,
		ClientName:    a.ClientName,
		Date:          a.Date,
		Time:          a.Time,
		Service:       a.Service,
		CreatedAt:     a.CreatedAt.UTC(),
	})
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.NewString(), Type: BookedType(prefix), AggregateID: a.ID, Payload: payload}, nil
}

func Cancelled(prefix, appointmentID string, at time.Time) (Event, error) {
	payload, err := json.Marshal(cancelledPayload{AppointmentID: appointmentID, CancelledAt: at.UTC()})
	if err != nil {
		return Event{}, err
	}
	return Event{ID: uuid.NewString(), Type: CancelledType(prefix), AggregateID: appointmentID, Payload: payload}, nil
}
