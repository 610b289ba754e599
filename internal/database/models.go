// Package database provides database access for the lunar birthday service.
package database

import (
	"time"
)

// Birthday is a recurring lunar anniversary for one person. It carries no
// year: the reminders derived from it cover every supported year.
type Birthday struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name"`
	LunarMonth  int       `json:"lunar_month"`   // Ordinal lunar month, 1-12
	LunarDay    int       `json:"lunar_day"`     // 1-30
	IsLeapMonth bool      `json:"is_leap_month"` // True for the leap copy of LunarMonth
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Reminder is one all-day calendar entry on a Gregorian date.
type Reminder struct {
	ID          int64     `json:"id"`
	BirthdayID  int64     `json:"birthday_id"`
	Summary     string    `json:"summary"`     // e.g. "Ana's Lunar Birthday"
	Description string    `json:"description"` // e.g. "Lunar Birthday Reminder"
	Date        string    `json:"date"`        // ISO 8601 format: YYYY-MM-DD
	AllDay      bool      `json:"all_day"`
	CreatedAt   time.Time `json:"created_at"`
}

// -----------------------------------------------------------------
// Composite types for API responses
// -----------------------------------------------------------------

// BirthdayWithReminders pairs a birthday with the number of reminder
// entries scheduled for it.
type BirthdayWithReminders struct {
	Birthday
	ReminderCount int `json:"reminder_count"`
}

// ReminderFilter narrows ListReminders. Zero values mean no constraint.
type ReminderFilter struct {
	BirthdayID int64
	From       string // inclusive, YYYY-MM-DD
	To         string // inclusive, YYYY-MM-DD
	Query      string // substring of the summary
	Limit      int
	Offset     int
}
