// Package report computes per-organization statistics from participation
// data. Everything is derived on demand; callers needing repeated reads
// cache at their own boundary.
package report

import (
	"context"

	"github.com/rs/zerolog"

	"campushub/internal/model"
)

// Default ranking sizes: the dashboard shows three top participants, the
// standalone report five.
const (
	DashboardTopLimit = 3
	ReportTopLimit    = 5
)

type Store interface {
	TopParticipants(ctx context.Context, orgID int64, limit int) ([]model.ParticipantStats, error)
	EventTypeBreakdown(ctx context.Context, orgID int64) ([]model.EventTypeStats, error)
	AttendanceByEvent(ctx context.Context, eventID int64) ([]model.AttendanceEntry, error)
	RegistrationsByOrg(ctx context.Context, orgID int64) ([]model.RegistrationEntry, error)
	FeedbackByEvent(ctx context.Context, eventID int64) ([]model.FeedbackEntry, error)
}

type Aggregator struct {
	store Store
	log   *zerolog.Logger
}

func NewAggregator(store Store, log *zerolog.Logger) *Aggregator {
	return &Aggregator{store: store, log: log}
}

// TopParticipants ranks students by registration count descending, ties
// broken by check-in count. Students with zero registrations never appear.
// orgID 0 ranks across all organizations; the gateway only allows that for
// privileged callers.
func (a *Aggregator) TopParticipants(ctx context.Context, orgID int64, limit int) ([]model.ParticipantStats, error) {
	if limit <= 0 {
		limit = ReportTopLimit
	}
	return a.store.TopParticipants(ctx, orgID, limit)
}

// EventTypeBreakdown returns event and registration totals for every event
// type in the organization. Event types whose events have no registrations
// still contribute their event count.
func (a *Aggregator) EventTypeBreakdown(ctx context.Context, orgID int64) ([]model.EventTypeStats, error) {
	return a.store.EventTypeBreakdown(ctx, orgID)
}

// Attendance lists every check-in for one event: who, when, and any notes.
func (a *Aggregator) Attendance(ctx context.Context, eventID int64) ([]model.AttendanceEntry, error) {
	return a.store.AttendanceByEvent(ctx, eventID)
}

// Registrations is the organization-wide audit projection, cancelled rows
// included.
func (a *Aggregator) Registrations(ctx context.Context, orgID int64) ([]model.RegistrationEntry, error) {
	return a.store.RegistrationsByOrg(ctx, orgID)
}

// EventFeedback lists submitted feedback for one event.
func (a *Aggregator) EventFeedback(ctx context.Context, eventID int64) ([]model.FeedbackEntry, error) {
	return a.store.FeedbackByEvent(ctx, eventID)
}
