package availability

import (
	"time"

	"github.com/md-rashed-zaman/barberbook/services/booking-service/internal/validation"
)

// OpenSlots returns the candidate "hh:mm" times on date that are not already
// booked and start strictly after now. A date falling on one of the closed
// weekdays, or one that does not parse, has no open slots. Candidates that do
// not parse are skipped. The result keeps the order of candidates.
//
// date is "dd/mm/yyyy" and is interpreted in now's location.
func OpenSlots(date string, candidates []string, booked []string, now time.Time, closed ...time.Weekday) []string {
	day, ok := validation.ParseDate(date, now.Location())
	if !ok {
		return []string{}
	}
	for _, wd := range closed {
		if day.Weekday() == wd {
			return []string{}
		}
	}

	taken := make(map[string]struct{}, len(booked))
	for _, b := range booked {
		taken[b] = struct{}{}
	}

	open := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if _, dup := taken[c]; dup {
			continue
		}
		start, ok := validation.Combine(date, c, now.Location())
		if !ok || !start.After(now) {
			continue
		}
		open = append(open, c)
	}
	return open
}

// Every returns "hh:mm" labels from first to last inclusive, step apart.
func Every(first, last, step time.Duration) []string {
	if step <= 0 || last < first {
		return nil
	}
	var out []string
	for t := first; t <= last; t += step {
		h := int(t / time.Hour)
		m := int((t % time.Hour) / time.Minute)
		out = append(out, twoDigits(h)+":"+twoDigits(m))
	}
	return out
}

func twoDigits(n int) string {
	return string([]byte{byte('0' + n/10), byte('0' + n%10)})
}
