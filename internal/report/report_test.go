package report

import (
	"context"
	"sort"
	"testing"

	"github.com/rs/zerolog"

	"campushub/internal/model"
)

// rankStore serves a fixed participant table and records the arguments it
// was queried with, applying ordering and limit the way the SQL projection
// does.
type rankStore struct {
	participants []model.ParticipantStats

	gotOrgID int64
	gotLimit int
}

func (s *rankStore) TopParticipants(_ context.Context, orgID int64, limit int) ([]model.ParticipantStats, error) {
	s.gotOrgID = orgID
	s.gotLimit = limit

	ranked := make([]model.ParticipantStats, len(s.participants))
	copy(ranked, s.participants)
	sort.SliceStable(ranked, func(i, j int) bool {
		if ranked[i].RegistrationCount != ranked[j].RegistrationCount {
			return ranked[i].RegistrationCount > ranked[j].RegistrationCount
		}
		return ranked[i].CheckInCount > ranked[j].CheckInCount
	})
	if limit < len(ranked) {
		ranked = ranked[:limit]
	}
	return ranked, nil
}

func (s *rankStore) EventTypeBreakdown(context.Context, int64) ([]model.EventTypeStats, error) {
	return nil, nil
}

func (s *rankStore) AttendanceByEvent(context.Context, int64) ([]model.AttendanceEntry, error) {
	return nil, nil
}

func (s *rankStore) RegistrationsByOrg(context.Context, int64) ([]model.RegistrationEntry, error) {
	return nil, nil
}

func (s *rankStore) FeedbackByEvent(context.Context, int64) ([]model.FeedbackEntry, error) {
	return nil, nil
}

func TestTopParticipantsDefaultLimit(t *testing.T) {
	store := &rankStore{}
	log := zerolog.Nop()
	agg := NewAggregator(store, &log)

	if _, err := agg.TopParticipants(context.Background(), 7, 0); err != nil {
		t.Fatal(err)
	}
	if store.gotLimit != ReportTopLimit {
		t.Fatalf("limit 0 should fall back to %d, store saw %d", ReportTopLimit, store.gotLimit)
	}
	if store.gotOrgID != 7 {
		t.Fatalf("org filter not passed through, store saw %d", store.gotOrgID)
	}

	if _, err := agg.TopParticipants(context.Background(), 7, DashboardTopLimit); err != nil {
		t.Fatal(err)
	}
	if store.gotLimit != DashboardTopLimit {
		t.Fatalf("explicit limit overridden, store saw %d", store.gotLimit)
	}
}

func TestTopParticipantsRanking(t *testing.T) {
	// Three students with registration counts 5, 3, 3; the tie resolves on
	// check-in counts 4 versus 2.
	store := &rankStore{participants: []model.ParticipantStats{
		{AccountID: 1, FullName: "Low Tie", RegistrationCount: 3, CheckInCount: 2},
		{AccountID: 2, FullName: "Leader", RegistrationCount: 5, CheckInCount: 1},
		{AccountID: 3, FullName: "High Tie", RegistrationCount: 3, CheckInCount: 4},
	}}
	log := zerolog.Nop()
	agg := NewAggregator(store, &log)

	got, err := agg.TopParticipants(context.Background(), 0, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 {
		t.Fatalf("limit not applied, got %d rows", len(got))
	}
	if got[0].AccountID != 2 || got[1].AccountID != 3 {
		t.Fatalf("wrong ranking: %+v", got)
	}
}
