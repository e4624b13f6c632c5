package delays

import (
	"math"
	"strings"
	"time"

	"github.com/travigo/vgnwatch/pkg/ctdf"
)

// Offset-less timestamps are read as UTC, matching how both times of a departure are written by the API
var timestampLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04",
}

type DepartureDelay struct {
	Departure    *ctdf.Departure `json:"departure" groups:"basic,detailed"`
	DelayMinutes *int            `json:"delay_minutes" groups:"basic,detailed"`
}

func (d DepartureDelay) HasDelay() bool {
	return d.DelayMinutes != nil
}

func ParseTimestamp(text string) (time.Time, bool) {
	text = strings.TrimSpace(text)
	if text == "" {
		return time.Time{}, false
	}

	for _, layout := range timestampLayouts {
		if parsed, err := time.Parse(layout, text); err == nil {
			return parsed, true
		}
	}

	return time.Time{}, false
}

// DelayMinutes rounds the difference to whole minutes. Halves round to the nearest even minute,
// so 90s is 2 minutes and 30s is 0 minutes.
func DelayMinutes(scheduled time.Time, actual time.Time) int {
	return int(math.RoundToEven(actual.Sub(scheduled).Seconds() / 60))
}

// ComputeDelays annotates every departure. Departures with an unparseable time are kept with a nil delay.
func ComputeDelays(departures []*ctdf.Departure) []DepartureDelay {
	annotated := make([]DepartureDelay, 0, len(departures))

	for _, departure := range departures {
		if departure == nil {
			continue
		}

		departureDelay := DepartureDelay{Departure: departure}

		scheduled, scheduledOK := ParseTimestamp(departure.ScheduledTime)
		actual, actualOK := ParseTimestamp(departure.ActualTime)
		if scheduledOK && actualOK {
			minutes := DelayMinutes(scheduled, actual)
			departureDelay.DelayMinutes = &minutes
		}

		annotated = append(annotated, departureDelay)
	}

	return annotated
}

func validDelays(delays []DepartureDelay) []int {
	var minutes []int
	for _, delay := range delays {
		if delay.HasDelay() {
			minutes = append(minutes, *delay.DelayMinutes)
		}
	}

	return minutes
}
