package models

import "time"

// CalendarEvent is the provider-neutral shape of one calendar event.
// HasStart is false for events whose start could not be resolved; such
// events are never stored. Cancelled events arrive with Status
// "cancelled" and usually no start at all.
type CalendarEvent struct {
	ID          string
	Status      string
	Summary     string
	Description string
	Start       time.Time
	HasStart    bool
}
