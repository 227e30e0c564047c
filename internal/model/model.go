package model

import "time"

// TimeFormat is the textual form used everywhere a timestamp leaves the
// system. Reporting consumers parse exactly this layout.
const (
	TimeFormat = "2006-01-02 15:04:05"
	DateFormat = "2006-01-02"
)

type Role string

const (
	RoleAdmin   Role = "admin"
	RoleStaff   Role = "staff"
	RoleStudent Role = "student"
)

func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleStudent:
		return true
	}
	return false
}

// CanManageEvents reports whether the role may create or delete events and
// read organization reports.
func (r Role) CanManageEvents() bool {
	switch r {
	case RoleAdmin, RoleStaff:
		return true
	case RoleStudent:
		return false
	}
	return false
}

type RegistrationStatus string

const (
	StatusPending   RegistrationStatus = "pending"
	StatusConfirmed RegistrationStatus = "confirmed"
	StatusCancelled RegistrationStatus = "cancelled"
	StatusWaitlist  RegistrationStatus = "waitlist"
)

type Organization struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	Address   string    `db:"address,omitempty" json:"address,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

type Account struct {
	ID          int64     `db:"id" json:"id"`
	OrgID       int64     `db:"org_id" json:"org_id"`
	Username    string    `db:"username" json:"username"`
	Email       string    `db:"email" json:"email"`
	FullName    string    `db:"full_name" json:"full_name"`
	Role        Role      `db:"role" json:"role"`
	StudentID   string    `db:"student_id,omitempty" json:"student_id,omitempty"`
	Department  string    `db:"department,omitempty" json:"department,omitempty"`
	YearOfStudy int       `db:"year_of_study,omitempty" json:"year_of_study,omitempty"`
	Phone       string    `db:"phone,omitempty" json:"phone,omitempty"`
	Active      bool      `db:"is_active" json:"is_active"`
	CreatedAt   time.Time `db:"created_at" json:"created_at"`
}

type Event struct {
	ID          int64  `db:"id" json:"id"`
	OrgID       int64  `db:"org_id" json:"org_id"`
	CreatedBy   int64  `db:"created_by" json:"created_by"`
	Title       string `db:"title" json:"title"`
	Description string `db:"description,omitempty" json:"description,omitempty"`
	EventType   string `db:"event_type" json:"event_type"`
	Venue       string `db:"venue,omitempty" json:"venue,omitempty"`
	StartTime   time.Time `db:"start_time" json:"start_time"`
	EndTime     time.Time `db:"end_time" json:"end_time"`
	// nil means unlimited capacity.
	MaxParticipants      *int       `db:"max_participants" json:"max_participants,omitempty"`
	RegistrationDeadline *time.Time `db:"registration_deadline" json:"registration_deadline,omitempty"`
	Active               bool       `db:"is_active" json:"is_active"`
	RequiresApproval     bool       `db:"requires_approval" json:"requires_approval"`
	CreatedAt            time.Time  `db:"created_at" json:"created_at"`
}

// RegistrationOpenAt reports whether the event accepts registrations at the
// given instant: before the deadline when one is set, otherwise before the
// event starts.
func (e *Event) RegistrationOpenAt(now time.Time) bool {
	if e.RegistrationDeadline != nil {
		return now.Before(*e.RegistrationDeadline)
	}
	return now.Before(e.StartTime)
}

type Registration struct {
	ID           int64              `db:"id" json:"id"`
	AccountID    int64              `db:"account_id" json:"account_id"`
	EventID      int64              `db:"event_id" json:"event_id"`
	Status       RegistrationStatus `db:"status" json:"status"`
	RegisteredAt time.Time          `db:"registered_at" json:"registered_at"`
}

type CheckIn struct {
	ID          int64     `db:"id" json:"id"`
	AccountID   int64     `db:"account_id" json:"account_id"`
	EventID     int64     `db:"event_id" json:"event_id"`
	CheckInTime time.Time `db:"check_in_time" json:"check_in_time"`
	Notes       string    `db:"notes,omitempty" json:"notes,omitempty"`
}

type Feedback struct {
	ID        int64     `db:"id" json:"id"`
	AccountID int64     `db:"account_id" json:"account_id"`
	EventID   int64     `db:"event_id" json:"event_id"`
	Rating    int       `db:"rating" json:"rating"`
	Comment   string    `db:"comment,omitempty" json:"comment,omitempty"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

// Report projections. Computed on demand from the store, never materialized.

type ParticipantStats struct {
	AccountID         int64  `db:"account_id" json:"account_id"`
	FullName          string `db:"full_name" json:"full_name"`
	StudentID         string `db:"student_id" json:"student_id"`
	RegistrationCount int    `db:"registration_count" json:"registration_count"`
	CheckInCount      int    `db:"checkin_count" json:"checkin_count"`
}

type EventTypeStats struct {
	EventType         string `db:"event_type" json:"event_type"`
	EventCount        int    `db:"event_count" json:"event_count"`
	RegistrationCount int    `db:"registration_count" json:"registration_count"`
}

type AttendanceEntry struct {
	AccountName string    `db:"full_name" json:"account_name"`
	CheckInTime time.Time `db:"check_in_time" json:"check_in_time"`
	Notes       string    `db:"notes" json:"notes,omitempty"`
}

type RegistrationEntry struct {
	RegistrationID int64              `db:"id" json:"registration_id"`
	AccountName    string             `db:"full_name" json:"account_name"`
	StudentID      string             `db:"student_id" json:"student_id"`
	EventTitle     string             `db:"title" json:"event_title"`
	Status         RegistrationStatus `db:"status" json:"status"`
	RegisteredAt   time.Time          `db:"registered_at" json:"registered_at"`
}

type FeedbackEntry struct {
	AccountName string    `db:"full_name" json:"account_name"`
	StudentID   string    `db:"student_id" json:"student_id"`
	Rating      int       `db:"rating" json:"rating"`
	Comment     string    `db:"comment" json:"comment,omitempty"`
	SubmittedAt time.Time `db:"created_at" json:"submitted_at"`
}

// EventSummary is an Event with its derived counters.
type EventSummary struct {
	Event
	RegistrationCount int  `json:"registration_count"`
	CheckInCount      int  `json:"check_in_count"`
	RegistrationOpen  bool `json:"is_registration_open"`
}
