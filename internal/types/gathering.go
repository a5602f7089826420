package types

import (
	"time"

	"gorm.io/datatypes"
)

// GuestEntry is one confirmation: the guest's name plus the items they
// committed to bring. One entry is appended per confirm call; the same name
// may appear more than once.
type GuestEntry struct {
	Name  string   `json:"name"`
	Items []string `json:"items"`
}

// Gathering is a scheduled event record. The guest and item sequences are
// append-only: they only ever shrink when the whole record is cancelled.
type Gathering struct {
	ID              string                          `gorm:"type:uuid;primaryKey" json:"id"`
	Date            string                          `gorm:"not null;column:date" json:"date"`
	Time            string                          `gorm:"not null;column:time" json:"time"`
	Location        string                          `gorm:"not null;column:location" json:"location"`
	ProvidedItems   datatypes.JSONSlice[string]     `gorm:"column:provided_items" json:"providedItems"`
	ConfirmedGuests datatypes.JSONSlice[GuestEntry] `gorm:"column:confirmed_guests" json:"confirmedGuests"`
	DeclinedGuests  datatypes.JSONSlice[string]     `gorm:"column:declined_guests" json:"declinedGuests"`
	InvitedUsers    datatypes.JSONSlice[string]     `gorm:"column:invited_users" json:"invitedUsers"`
	CreatedBy       string                          `gorm:"not null;column:created_by" json:"createdBy"`
	CreatedAt       time.Time                       `gorm:"not null" json:"createdAt"`
	// Version guards read-modify-write cycles; every successful update bumps
	// it and a stale writer gets a conflict instead of overwriting.
	Version int64 `gorm:"not null;default:0" json:"-"`
}

func (Gathering) TableName() string {
	return "gathering"
}

// EventLayout is the wire format for a gathering's calendar date and clock
// time, composed in local time with no timezone conversion.
const (
	DateLayout = "02/01/2006"
	TimeLayout = "15:04"
)

// EventInstant composes Date and Time into the event's local-time instant.
func (g *Gathering) EventInstant() (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, g.Date+" "+g.Time, time.Local)
}

// IsInvited reports whether userID is on the fixed invite list.
func (g *Gathering) IsInvited(userID string) bool {
	for _, u := range g.InvitedUsers {
		if u == userID {
			return true
		}
	}
	return false
}

// HasResponded reports whether name appears in either guest list.
func (g *Gathering) HasResponded(name string) bool {
	for _, e := range g.ConfirmedGuests {
		if e.Name == name {
			return true
		}
	}
	for _, d := range g.DeclinedGuests {
		if d == name {
			return true
		}
	}
	return false
}
