package repo

import (
	"context"
	"fmt"

	"campushub/internal/model"
)

const topParticipantsSelect = `
	SELECT a.id, a.full_name, COALESCE(a.student_id, ''),
	       COUNT(DISTINCT r.id) AS registration_count,
	       COUNT(DISTINCT c.id) AS checkin_count
	FROM accounts a
	JOIN registrations r ON r.account_id = a.id
	LEFT JOIN check_ins c ON c.account_id = a.id
	WHERE a.role = 'student'
`

// TopParticipants ranks students by registration count, ties broken by
// check-in count. orgID 0 means all organizations (privileged callers only;
// scoping is the gateway's job). Students without registrations are excluded
// by the inner join.
func (r *Repository) TopParticipants(ctx context.Context, orgID int64, limit int) ([]model.ParticipantStats, error) {
	query := topParticipantsSelect
	args := []any{limit}
	if orgID != 0 {
		query += ` AND a.org_id = $2`
		args = append(args, orgID)
	}
	query += `
	GROUP BY a.id, a.full_name, a.student_id
	ORDER BY registration_count DESC, checkin_count DESC
	LIMIT $1`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query top participants: %w", err)
	}
	defer rows.Close()

	var stats []model.ParticipantStats
	for rows.Next() {
		var s model.ParticipantStats
		if err := rows.Scan(&s.AccountID, &s.FullName, &s.StudentID,
			&s.RegistrationCount, &s.CheckInCount); err != nil {
			return nil, fmt.Errorf("failed to scan participant stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

// EventTypeBreakdown counts events and registrations per event type. The
// outer join keeps event types whose events have no registrations.
func (r *Repository) EventTypeBreakdown(ctx context.Context, orgID int64) ([]model.EventTypeStats, error) {
	query := `
		SELECT e.event_type,
		       COUNT(DISTINCT e.id) AS event_count,
		       COUNT(r.id) AS registration_count
		FROM events e
		LEFT JOIN registrations r ON r.event_id = e.id
		WHERE e.org_id = $1
		GROUP BY e.event_type
		ORDER BY e.event_type
	`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query event type breakdown: %w", err)
	}
	defer rows.Close()

	var stats []model.EventTypeStats
	for rows.Next() {
		var s model.EventTypeStats
		if err := rows.Scan(&s.EventType, &s.EventCount, &s.RegistrationCount); err != nil {
			return nil, fmt.Errorf("failed to scan event type stats: %w", err)
		}
		stats = append(stats, s)
	}
	return stats, rows.Err()
}

func (r *Repository) AttendanceByEvent(ctx context.Context, eventID int64) ([]model.AttendanceEntry, error) {
	query := `
		SELECT a.full_name, c.check_in_time, COALESCE(c.notes, '')
		FROM check_ins c
		JOIN accounts a ON a.id = c.account_id
		WHERE c.event_id = $1
		ORDER BY c.check_in_time ASC
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query attendance: %w", err)
	}
	defer rows.Close()

	var entries []model.AttendanceEntry
	for rows.Next() {
		var e model.AttendanceEntry
		if err := rows.Scan(&e.AccountName, &e.CheckInTime, &e.Notes); err != nil {
			return nil, fmt.Errorf("failed to scan attendance entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// RegistrationsByOrg is the flat audit projection: every registration in the
// organization regardless of status, cancelled included.
func (r *Repository) RegistrationsByOrg(ctx context.Context, orgID int64) ([]model.RegistrationEntry, error) {
	query := `
		SELECT r.id, a.full_name, COALESCE(a.student_id, ''), e.title, r.status, r.registered_at
		FROM registrations r
		JOIN accounts a ON a.id = r.account_id
		JOIN events e ON e.id = r.event_id
		WHERE a.org_id = $1
		ORDER BY r.registered_at DESC
	`
	rows, err := r.db.QueryContext(ctx, query, orgID)
	if err != nil {
		return nil, fmt.Errorf("failed to query registrations report: %w", err)
	}
	defer rows.Close()

	var entries []model.RegistrationEntry
	for rows.Next() {
		var e model.RegistrationEntry
		if err := rows.Scan(&e.RegistrationID, &e.AccountName, &e.StudentID,
			&e.EventTitle, &e.Status, &e.RegisteredAt); err != nil {
			return nil, fmt.Errorf("failed to scan registration entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

func (r *Repository) FeedbackByEvent(ctx context.Context, eventID int64) ([]model.FeedbackEntry, error) {
	query := `
		SELECT a.full_name, COALESCE(a.student_id, ''), f.rating, COALESCE(f.comment, ''), f.created_at
		FROM feedback f
		JOIN accounts a ON a.id = f.account_id
		WHERE f.event_id = $1
		ORDER BY f.created_at ASC
	`
	rows, err := r.db.QueryContext(ctx, query, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to query feedback: %w", err)
	}
	defer rows.Close()

	var entries []model.FeedbackEntry
	for rows.Next() {
		var e model.FeedbackEntry
		if err := rows.Scan(&e.AccountName, &e.StudentID, &e.Rating, &e.Comment, &e.SubmittedAt); err != nil {
			return nil, fmt.Errorf("failed to scan feedback entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
