package models

import "time"

// BookingSelection is the immutable outcome of the first three wizard steps:
// which services, which master, and which time slot on which day. It is
// passed by value to every downstream component and never mutated.
type BookingSelection struct {
	ServiceIDs []string  `json:"serviceIds" binding:"required,min=1"`
	MasterID   string    `json:"masterId" binding:"required"`
	Start      time.Time `json:"start" binding:"required"`
	End        time.Time `json:"end" binding:"required"`
	Date       string    `json:"date"` // calendar date shown to the client, e.g. "2025-06-01"
}
