package storage

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/model"
)

// record is the persisted shape of an appointment. createdAt is written as
// RFC 3339 and read back from either RFC 3339 or epoch milliseconds.
type record struct {
	ID         string            `json:"id"`
	ClientName string            `json:"clientName"`
	Date       string            `json:"date"`
	Time       string            `json:"time"`
	Service    model.ServiceKind `json:"service"`
	CreatedAt  stamp             `json:"createdAt"`
}

type stamp time.Time

func (s stamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(time.Time(s).UTC().Format(time.RFC3339Nano))
}

func (s *stamp) UnmarshalJSON(b []byte) error {
	raw := strings.TrimSpace(string(b))
	if raw == "null" || raw == `""` {
		*s = stamp(time.Time{})
		return nil
	}
	if unq, err := strconv.Unquote(raw); err == nil {
		raw = unq
	}
	if t, err := time.Parse(time.RFC3339Nano, raw); err == nil {
		*s = stamp(t)
		return nil
	}
	if ms, err := strconv.ParseInt(raw, 10, 64); err == nil {
		*s = stamp(time.UnixMilli(ms).UTC())
		return nil
	}
	return fmt.Errorf("createdAt: unrecognised timestamp %q", raw)
}

func encode(appts []model.Appointment) (string, error) {
	recs := make([]record, 0, len(appts))
	for _, a := range appts {
		recs = append(recs, record{
			ID:         a.ID,
			ClientName: a.ClientName,
			Date:       a.Date,
			Time:       a.Time,
			Service:    a.Service,
			CreatedAt:  stamp(a.CreatedAt),
		})
	}
	b, err := json.Marshal(recs)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func decode(payload string) ([]model.Appointment, error) {
	var recs []record
	if err := json.Unmarshal([]byte(payload), &recs); err != nil {
		return nil, err
	}
	appts := make([]model.Appointment, 0, len(recs))
	for _, r := range recs {
		appts = append(appts, model.Appointment{
			ID:         r.ID,
			ClientName: r.ClientName,
			Date:       r.Date,
			Time:       r.Time,
			Service:    r.Service,
			CreatedAt:  time.Time(r.CreatedAt),
		})
	}
	return appts, nil
}
