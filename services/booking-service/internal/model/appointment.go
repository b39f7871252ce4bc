package model

import (
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/validation"
)

// ServiceKind is the kind of work booked. The set is closed.
type ServiceKind string

const (
	ServiceHaircut ServiceKind = "haircut"
	ServiceBeard   ServiceKind = "beard"
	ServiceBoth    ServiceKind = "both"
)

var ServiceKinds = []ServiceKind{ServiceHaircut, ServiceBeard, ServiceBoth}

func (k ServiceKind) Valid() bool {
	switch k {
	case ServiceHaircut, ServiceBeard, ServiceBoth:
		return true
	}
	return false
}

// Form is the raw booking request as typed by the client.
type Form struct {
	ClientName string      `json:"clientName"`
	Date       string      `json:"date"` // dd/mm/yyyy
	Time       string      `json:"time"` // hh:mm, 24h
	Service    ServiceKind `json:"service"`
}

// Appointment is a persisted booking. Date and Time are never changed after
// creation; a correction is a cancel followed by a new booking.
type Appointment struct {
	ID         string      `json:"id"`
	ClientName string      `json:"clientName"`
	Date       string      `json:"date"`
	Time       string      `json:"time"`
	Service    ServiceKind `json:"service"`
	CreatedAt  time.Time   `json:"createdAt"`
}

// SameSlot reports whether the appointment claims the given (date, time) pair.
// Times compare in canonical form, so "9:30" and "09:30" collide.
func (a Appointment) SameSlot(date, clock string) bool {
	return a.Date == date && validation.CanonicalTime(a.Time) == validation.CanonicalTime(clock)
}
