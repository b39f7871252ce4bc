// Package catalog holds the shop's fixed presentation data: identity, weekly
// hours, services on offer and the bookable times shown to clients.
package catalog

import (
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/availability"
	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

const (
	ShopName   = "Barbearia Tulla"
	ShopSlogan = "Onde o estilo encontra a tradição"
)

type Hours struct {
	Day    time.Weekday `json:"-"`
	Label  string       `json:"day"`
	Open   string       `json:"open,omitempty"`
	Close  string       `json:"close,omitempty"`
	Closed bool         `json:"closed"`
}

type Service struct {
	Kind  model.ServiceKind `json:"kind"`
	Label string            `json:"label"`
}

type Shop struct {
	Name     string    `json:"name"`
	Slogan   string    `json:"slogan"`
	Hours    []Hours   `json:"hours"`
	Services []Service `json:"services"`
	Times    []string  `json:"times"`
}

var weekly = []Hours{
	{Day: time.Monday, Label: "Segunda-feira", Open: "08:00", Close: "18:00"},
	{Day: time.Tuesday, Label: "Terça-feira", Open: "08:00", Close: "18:00"},
	{Day: time.Wednesday, Label: "Quarta-feira", Open: "08:00", Close: "18:00"},
	{Day: time.Thursday, Label: "Quinta-feira", Open: "08:00", Close: "18:00"},
	{Day: time.Friday, Label: "Sexta-feira", Open: "08:00", Close: "19:00"},
	{Day: time.Saturday, Label: "Sábado", Open: "08:00", Close: "17:00"},
	{Day: time.Sunday, Label: "Domingo", Closed: true},
}

var serviceLabels = map[model.ServiceKind]string{
	model.ServiceHaircut: "Corte de Cabelo",
	model.ServiceBeard:   "Barba",
	model.ServiceBoth:    "Corte + Barba",
}

// ServiceLabel returns the display name of kind, or the raw kind if unknown.
func ServiceLabel(kind model.ServiceKind) string {
	if l, ok := serviceLabels[kind]; ok {
		return l
	}
	return string(kind)
}

func Services() []Service {
	out := make([]Service, 0, len(model.ServiceKinds))
	for _, k := range model.ServiceKinds {
		out = append(out, Service{Kind: k, Label: ServiceLabel(k)})
	}
	return out
}

func WeeklyHours() []Hours {
	return append([]Hours(nil), weekly...)
}

// ClosedDays lists the weekdays the shop does not open.
func ClosedDays() []time.Weekday {
	var out []time.Weekday
	for _, h := range weekly {
		if h.Closed {
			out = append(out, h.Day)
		}
	}
	return out
}

// BookableTimes is every half hour from 08:00 to 18:00 inclusive.
func BookableTimes() []string {
	return availability.Every(8*time.Hour, 18*time.Hour, 30*time.Minute)
}

func Info() Shop {
	return Shop{
		Name:     ShopName,
		Slogan:   ShopSlogan,
		Hours:    WeeklyHours(),
		Services: Services(),
		Times:    BookableTimes(),
	}
}
