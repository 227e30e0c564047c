package dto

import (
	"time"

	"github.com/wb-go/wbf/ginext"

	"campushub/internal/model"
)

const (
	FieldIncorrect     = "FIELD_INCORRECT"
	ServiceUnavailable = "SERVICE_UNAVAILABLE"
	InternalError      = "Service is currently unavailable. Please try again later."

	CodeNotFound           = "NOT_FOUND"
	CodeForbidden          = "FORBIDDEN"
	CodeRegistrationClosed = "REGISTRATION_CLOSED"
	CodeAlreadyRegistered  = "ALREADY_REGISTERED"
	CodeEventFull          = "EVENT_FULL"
	CodeNotRegistered      = "NOT_REGISTERED"
	CodeAlreadyCheckedIn   = "ALREADY_CHECKED_IN"
	CodeCheckInRequired    = "CHECKIN_REQUIRED"
	CodeAlreadySubmitted   = "ALREADY_SUBMITTED"
	CodeConflict           = "ALREADY_EXISTS"
	CodeAccountHasEvents   = "ACCOUNT_HAS_EVENTS"
)

type Response struct {
	Status string `json:"status"`
	Error  *Error `json:"error,omitempty"`
	Data   any    `json:"data,omitempty"`
}

type Error struct {
	Code string `json:"code"`
	Desc string `json:"desc"`
}

// --- requests ---

type CreateOrganizationRequest struct {
	Name    string `json:"name" validate:"required,max=100"`
	Code    string `json:"code" validate:"required,max=10"`
	Address string `json:"address"`
}

type CreateAccountRequest struct {
	OrgID       int64  `json:"org_id" validate:"required,positive"`
	Username    string `json:"username" validate:"required,min=3,max=64"`
	Email       string `json:"email" validate:"required,email"`
	FullName    string `json:"full_name" validate:"required,max=100"`
	Role        string `json:"role" validate:"required,role"`
	StudentID   string `json:"student_id,omitempty"`
	Department  string `json:"department,omitempty"`
	YearOfStudy int    `json:"year_of_study,omitempty"`
	Phone       string `json:"phone,omitempty"`
}

type CreateEventRequest struct {
	Title                string     `json:"title" validate:"required,max=200"`
	Description          string     `json:"description"`
	EventType            string     `json:"event_type" validate:"required,max=50"`
	Venue                string     `json:"venue"`
	StartTime            time.Time  `json:"start_time" validate:"required"`
	EndTime              time.Time  `json:"end_time" validate:"required"`
	MaxParticipants      *int       `json:"max_participants,omitempty"`
	RegistrationDeadline *time.Time `json:"registration_deadline,omitempty"`
	RequiresApproval     bool       `json:"requires_approval"`
}

type CheckInRequest struct {
	Notes string `json:"notes,omitempty" validate:"max=500"`
}

type TrustedCheckInRequest struct {
	AccountID int64  `json:"account_id" validate:"required,positive"`
	EventID   int64  `json:"event_id" validate:"required,positive"`
	Notes     string `json:"notes,omitempty" validate:"max=500"`
}

type FeedbackRequest struct {
	Rating  int    `json:"rating" validate:"required,rating"`
	Comment string `json:"comment,omitempty" validate:"max=1000"`
}

// --- responses ---
// Timestamps leave the service in the fixed YYYY-MM-DD HH:MM:SS form the
// reporting consumers expect.

type OrganizationResponse struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	Code      string `json:"code"`
	Address   string `json:"address,omitempty"`
	CreatedAt string `json:"created_at"`
}

type AccountResponse struct {
	ID          int64  `json:"id"`
	OrgID       int64  `json:"org_id"`
	Username    string `json:"username"`
	Email       string `json:"email"`
	FullName    string `json:"full_name"`
	Role        string `json:"role"`
	StudentID   string `json:"student_id,omitempty"`
	Department  string `json:"department,omitempty"`
	YearOfStudy int    `json:"year_of_study,omitempty"`
	Active      bool   `json:"is_active"`
	CreatedAt   string `json:"created_at"`
}

type EventResponse struct {
	ID                   int64  `json:"id"`
	OrgID                int64  `json:"org_id"`
	CreatedBy            int64  `json:"created_by"`
	Title                string `json:"title"`
	Description          string `json:"description,omitempty"`
	EventType            string `json:"event_type"`
	Venue                string `json:"venue,omitempty"`
	StartTime            string `json:"start_time"`
	EndTime              string `json:"end_time"`
	MaxParticipants      *int   `json:"max_participants,omitempty"`
	RegistrationDeadline string `json:"registration_deadline,omitempty"`
	RequiresApproval     bool   `json:"requires_approval"`
	RegistrationCount    int    `json:"registration_count"`
	CheckInCount         int    `json:"check_in_count"`
	RegistrationOpen     bool   `json:"is_registration_open"`
}

type RegistrationResponse struct {
	ID           int64  `json:"id"`
	AccountID    int64  `json:"account_id"`
	EventID      int64  `json:"event_id"`
	Status       string `json:"status"`
	RegisteredAt string `json:"registered_at"`
}

type CheckInResponse struct {
	ID          int64  `json:"id"`
	AccountID   int64  `json:"account_id"`
	EventID     int64  `json:"event_id"`
	CheckInTime string `json:"check_in_time"`
	Notes       string `json:"notes,omitempty"`
}

type FeedbackResponse struct {
	ID        int64  `json:"id"`
	AccountID int64  `json:"account_id"`
	EventID   int64  `json:"event_id"`
	Rating    int    `json:"rating"`
	Comment   string `json:"comment,omitempty"`
	CreatedAt string `json:"created_at"`
}

type ParticipantStatsResponse struct {
	AccountID         int64  `json:"account_id"`
	Name              string `json:"name"`
	StudentID         string `json:"student_id"`
	RegistrationCount int    `json:"registration_count"`
	CheckInCount      int    `json:"checkin_count"`
}

type EventTypeStatsResponse struct {
	EventType         string `json:"event_type"`
	EventCount        int    `json:"event_count"`
	RegistrationCount int    `json:"registration_count"`
}

type AttendanceEntryResponse struct {
	AccountName string `json:"account_name"`
	CheckInTime string `json:"check_in_time"`
	Notes       string `json:"notes,omitempty"`
}

type RegistrationEntryResponse struct {
	RegistrationID int64  `json:"registration_id"`
	AccountName    string `json:"account_name"`
	StudentID      string `json:"student_id"`
	EventTitle     string `json:"event_title"`
	Status         string `json:"status"`
	RegisteredAt   string `json:"registered_at"`
}

type FeedbackEntryResponse struct {
	AccountName string `json:"account_name"`
	StudentID   string `json:"student_id"`
	Rating      int    `json:"rating"`
	Comment     string `json:"comment,omitempty"`
	SubmittedAt string `json:"submitted_at"`
}

// --- converters ---

func FormatTime(t time.Time) string {
	return t.Format(model.TimeFormat)
}

func formatTimePtr(t *time.Time) string {
	if t == nil {
		return ""
	}
	return FormatTime(*t)
}

func NewOrganizationResponse(o *model.Organization) OrganizationResponse {
	return OrganizationResponse{
		ID:        o.ID,
		Name:      o.Name,
		Code:      o.Code,
		Address:   o.Address,
		CreatedAt: FormatTime(o.CreatedAt),
	}
}

func NewAccountResponse(a *model.Account) AccountResponse {
	return AccountResponse{
		ID:          a.ID,
		OrgID:       a.OrgID,
		Username:    a.Username,
		Email:       a.Email,
		FullName:    a.FullName,
		Role:        string(a.Role),
		StudentID:   a.StudentID,
		Department:  a.Department,
		YearOfStudy: a.YearOfStudy,
		Active:      a.Active,
		CreatedAt:   FormatTime(a.CreatedAt),
	}
}

func NewEventResponse(s *model.EventSummary) EventResponse {
	return EventResponse{
		ID:                   s.ID,
		OrgID:                s.OrgID,
		CreatedBy:            s.CreatedBy,
		Title:                s.Title,
		Description:          s.Description,
		EventType:            s.EventType,
		Venue:                s.Venue,
		StartTime:            FormatTime(s.StartTime),
		EndTime:              FormatTime(s.EndTime),
		MaxParticipants:      s.MaxParticipants,
		RegistrationDeadline: formatTimePtr(s.RegistrationDeadline),
		RequiresApproval:     s.RequiresApproval,
		RegistrationCount:    s.RegistrationCount,
		CheckInCount:         s.CheckInCount,
		RegistrationOpen:     s.RegistrationOpen,
	}
}

func NewRegistrationResponse(r *model.Registration) RegistrationResponse {
	return RegistrationResponse{
		ID:           r.ID,
		AccountID:    r.AccountID,
		EventID:      r.EventID,
		Status:       string(r.Status),
		RegisteredAt: FormatTime(r.RegisteredAt),
	}
}

func NewCheckInResponse(c *model.CheckIn) CheckInResponse {
	return CheckInResponse{
		ID:          c.ID,
		AccountID:   c.AccountID,
		EventID:     c.EventID,
		CheckInTime: FormatTime(c.CheckInTime),
		Notes:       c.Notes,
	}
}

func NewFeedbackResponse(f *model.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:        f.ID,
		AccountID: f.AccountID,
		EventID:   f.EventID,
		Rating:    f.Rating,
		Comment:   f.Comment,
		CreatedAt: FormatTime(f.CreatedAt),
	}
}

func NewParticipantStatsResponse(stats []model.ParticipantStats) []ParticipantStatsResponse {
	out := make([]ParticipantStatsResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, ParticipantStatsResponse{
			AccountID:         s.AccountID,
			Name:              s.FullName,
			StudentID:         s.StudentID,
			RegistrationCount: s.RegistrationCount,
			CheckInCount:      s.CheckInCount,
		})
	}
	return out
}

func NewEventTypeStatsResponse(stats []model.EventTypeStats) []EventTypeStatsResponse {
	out := make([]EventTypeStatsResponse, 0, len(stats))
	for _, s := range stats {
		out = append(out, EventTypeStatsResponse{
			EventType:         s.EventType,
			EventCount:        s.EventCount,
			RegistrationCount: s.RegistrationCount,
		})
	}
	return out
}

func NewAttendanceResponse(entries []model.AttendanceEntry) []AttendanceEntryResponse {
	out := make([]AttendanceEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, AttendanceEntryResponse{
			AccountName: e.AccountName,
			CheckInTime: FormatTime(e.CheckInTime),
			Notes:       e.Notes,
		})
	}
	return out
}

func NewRegistrationsReportResponse(entries []model.RegistrationEntry) []RegistrationEntryResponse {
	out := make([]RegistrationEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, RegistrationEntryResponse{
			RegistrationID: e.RegistrationID,
			AccountName:    e.AccountName,
			StudentID:      e.StudentID,
			EventTitle:     e.EventTitle,
			Status:         string(e.Status),
			RegisteredAt:   FormatTime(e.RegisteredAt),
		})
	}
	return out
}

func NewFeedbackReportResponse(entries []model.FeedbackEntry) []FeedbackEntryResponse {
	out := make([]FeedbackEntryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, FeedbackEntryResponse{
			AccountName: e.AccountName,
			StudentID:   e.StudentID,
			Rating:      e.Rating,
			Comment:     e.Comment,
			SubmittedAt: FormatTime(e.SubmittedAt),
		})
	}
	return out
}

// --- response writers ---

func BadResponseError(c *ginext.Context, code, desc string) {
	c.JSON(400, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: desc},
	})
}

func ErrorResponse(c *ginext.Context, httpStatus int, code, desc string) {
	c.JSON(httpStatus, Response{
		Status: "error",
		Error:  &Error{Code: code, Desc: desc},
	})
}

func InternalServerError(c *ginext.Context) {
	c.JSON(500, Response{
		Status: "error",
		Error:  &Error{Code: ServiceUnavailable, Desc: InternalError},
	})
}

func SuccessResponse(c *ginext.Context, data any) {
	c.JSON(200, Response{Status: "ok", Data: data})
}

func SuccessCreatedResponse(c *ginext.Context, data any) {
	c.JSON(201, Response{Status: "ok", Data: data})
}
