package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"campushub/internal/model"
	"campushub/internal/repo"
)

type pair struct{ accountID, eventID int64 }

// memStore mirrors the repository contract, including the sentinel errors
// and the registration rule chain that the SQL transaction enforces.
type memStore struct {
	nextID        int64
	organizations map[int64]*model.Organization
	accounts      map[int64]*model.Account
	events        map[int64]*model.Event
	registrations map[pair]*model.Registration
	checkIns      map[pair]*model.CheckIn
	feedback      map[pair]*model.Feedback
}

func newMemStore() *memStore {
	return &memStore{
		organizations: make(map[int64]*model.Organization),
		accounts:      make(map[int64]*model.Account),
		events:        make(map[int64]*model.Event),
		registrations: make(map[pair]*model.Registration),
		checkIns:      make(map[pair]*model.CheckIn),
		feedback:      make(map[pair]*model.Feedback),
	}
}

func (s *memStore) id() int64 {
	s.nextID++
	return s.nextID
}

func (s *memStore) GetAccountByID(_ context.Context, id int64) (*model.Account, error) {
	a, ok := s.accounts[id]
	if !ok {
		return nil, repo.ErrAccountNotFound
	}
	copied := *a
	return &copied, nil
}

func (s *memStore) GetEventByID(_ context.Context, id int64) (*model.Event, error) {
	e, ok := s.events[id]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	copied := *e
	return &copied, nil
}

func (s *memStore) CreateOrganization(_ context.Context, o *model.Organization) (int64, error) {
	for _, existing := range s.organizations {
		if existing.Code == o.Code {
			return 0, repo.ErrDuplicateOrganization
		}
	}
	o.ID = s.id()
	s.organizations[o.ID] = o
	return o.ID, nil
}

func (s *memStore) CreateAccount(_ context.Context, a *model.Account) (int64, error) {
	for _, existing := range s.accounts {
		if existing.Username == a.Username || existing.Email == a.Email {
			return 0, repo.ErrDuplicateAccount
		}
	}
	a.ID = s.id()
	a.Active = true
	s.accounts[a.ID] = a
	return a.ID, nil
}

func (s *memStore) DeactivateAccount(_ context.Context, id int64) error {
	a, ok := s.accounts[id]
	if !ok {
		return repo.ErrAccountNotFound
	}
	a.Active = false
	return nil
}

func (s *memStore) DeleteAccount(_ context.Context, id int64) error {
	if _, ok := s.accounts[id]; !ok {
		return repo.ErrAccountNotFound
	}
	for _, e := range s.events {
		if e.CreatedBy == id {
			return repo.ErrAccountHasEvents
		}
	}
	delete(s.accounts, id)
	return nil
}

func (s *memStore) CountAuthoredEvents(_ context.Context, accountID int64) (int, error) {
	count := 0
	for _, e := range s.events {
		if e.CreatedBy == accountID {
			count++
		}
	}
	return count, nil
}

func (s *memStore) CreateEvent(_ context.Context, e *model.Event) (int64, error) {
	e.ID = s.id()
	e.Active = true
	s.events[e.ID] = e
	return e.ID, nil
}

func (s *memStore) DeleteEvent(_ context.Context, id int64) error {
	if _, ok := s.events[id]; !ok {
		return repo.ErrEventNotFound
	}
	delete(s.events, id)
	for p := range s.registrations {
		if p.eventID == id {
			delete(s.registrations, p)
		}
	}
	for p := range s.checkIns {
		if p.eventID == id {
			delete(s.checkIns, p)
		}
	}
	for p := range s.feedback {
		if p.eventID == id {
			delete(s.feedback, p)
		}
	}
	return nil
}

func (s *memStore) RegisterTx(_ context.Context, accountID, orgID, eventID int64, now time.Time) (*model.Registration, error) {
	event, ok := s.events[eventID]
	if !ok {
		return nil, repo.ErrEventNotFound
	}
	if event.OrgID != orgID {
		return nil, repo.ErrWrongOrganization
	}
	closeAt := event.StartTime
	if event.RegistrationDeadline != nil {
		closeAt = *event.RegistrationDeadline
	}
	if !now.Before(closeAt) {
		return nil, repo.ErrRegistrationClosed
	}
	if _, exists := s.registrations[pair{accountID, eventID}]; exists {
		return nil, repo.ErrDuplicateRegistration
	}
	if event.MaxParticipants != nil {
		confirmed := 0
		for p, r := range s.registrations {
			if p.eventID == eventID && r.Status == model.StatusConfirmed {
				confirmed++
			}
		}
		if confirmed >= *event.MaxParticipants {
			return nil, repo.ErrEventFull
		}
	}
	reg := &model.Registration{
		ID:           s.id(),
		AccountID:    accountID,
		EventID:      eventID,
		Status:       model.StatusConfirmed,
		RegisteredAt: now,
	}
	s.registrations[pair{accountID, eventID}] = reg
	return reg, nil
}

func (s *memStore) GetRegistration(_ context.Context, accountID, eventID int64) (*model.Registration, error) {
	r, ok := s.registrations[pair{accountID, eventID}]
	if !ok {
		return nil, repo.ErrRegistrationNotFound
	}
	copied := *r
	return &copied, nil
}

func (s *memStore) UpdateRegistrationStatus(_ context.Context, registrationID int64, status model.RegistrationStatus) error {
	for _, r := range s.registrations {
		if r.ID == registrationID {
			r.Status = status
			return nil
		}
	}
	return repo.ErrRegistrationNotFound
}

func (s *memStore) HasCheckIn(_ context.Context, accountID, eventID int64) (bool, error) {
	_, ok := s.checkIns[pair{accountID, eventID}]
	return ok, nil
}

func (s *memStore) CreateCheckIn(_ context.Context, c *model.CheckIn) (int64, error) {
	key := pair{c.AccountID, c.EventID}
	if _, exists := s.checkIns[key]; exists {
		return 0, repo.ErrDuplicateCheckIn
	}
	c.ID = s.id()
	s.checkIns[key] = c
	return c.ID, nil
}

func (s *memStore) HasFeedback(_ context.Context, accountID, eventID int64) (bool, error) {
	_, ok := s.feedback[pair{accountID, eventID}]
	return ok, nil
}

func (s *memStore) CreateFeedback(_ context.Context, f *model.Feedback) (int64, error) {
	key := pair{f.AccountID, f.EventID}
	if _, exists := s.feedback[key]; exists {
		return 0, repo.ErrDuplicateFeedback
	}
	f.ID = s.id()
	s.feedback[key] = f
	return f.ID, nil
}

// --- fixtures ---

var testNow = time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestEngine() (*Engine, *memStore) {
	store := newMemStore()
	log := zerolog.Nop()
	return New(store, &log), store
}

func seedAccount(s *memStore, orgID int64, role model.Role) *model.Account {
	a := &model.Account{
		ID:     s.id(),
		OrgID:  orgID,
		Role:   role,
		Active: true,
	}
	a.Username = "user" + string(rune('a'+len(s.accounts)))
	s.accounts[a.ID] = a
	return a
}

func seedEvent(s *memStore, orgID int64, capacity *int, deadline *time.Time) *model.Event {
	e := &model.Event{
		ID:                   s.id(),
		OrgID:                orgID,
		CreatedBy:            1,
		Title:                "Workshop",
		EventType:            "workshop",
		StartTime:            testNow.Add(24 * time.Hour),
		EndTime:              testNow.Add(26 * time.Hour),
		MaxParticipants:      capacity,
		RegistrationDeadline: deadline,
		Active:               true,
	}
	s.events[e.ID] = e
	return e
}

func intPtr(v int) *int { return &v }

// --- registration ---

func TestRegisterConfirms(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	reg, err := eng.Register(context.Background(), acct.ID, event.ID, testNow)
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if reg.Status != model.StatusConfirmed {
		t.Fatalf("expected confirmed, got %s", reg.Status)
	}
	if !reg.RegisteredAt.Equal(testNow) {
		t.Fatalf("registered_at should be the injected clock, got %v", reg.RegisteredAt)
	}
}

func TestRegisterMissingEvent(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)

	if _, err := eng.Register(context.Background(), acct.ID, 999, testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterMissingAccount(t *testing.T) {
	eng, store := newTestEngine()
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.Register(context.Background(), 999, event.ID, testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestRegisterCrossOrganization(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 2, nil, nil)

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected ErrForbidden, got %v", err)
	}
}

func TestRegisterClosedByDeadline(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	deadline := testNow.Add(-time.Hour)
	event := seedEvent(store, 1, nil, &deadline)

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected ErrRegistrationClosed, got %v", err)
	}
}

func TestRegisterClosedByStartTimeWithoutDeadline(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)
	event.StartTime = testNow.Add(-time.Minute)

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected ErrRegistrationClosed, got %v", err)
	}
}

func TestRegisterClosedBeatsCapacityCheck(t *testing.T) {
	// First failure wins: a closed full event reports closed, not full.
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	deadline := testNow.Add(-time.Hour)
	event := seedEvent(store, 1, intPtr(0), &deadline)

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); !errors.Is(err, ErrRegistrationClosed) {
		t.Fatalf("expected ErrRegistrationClosed, got %v", err)
	}
}

func TestRegisterCapacityExhausted(t *testing.T) {
	eng, store := newTestEngine()
	a := seedAccount(store, 1, model.RoleStudent)
	b := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, intPtr(1), nil)

	if _, err := eng.Register(context.Background(), a.ID, event.ID, testNow); err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	if _, err := eng.Register(context.Background(), b.ID, event.ID, testNow); !errors.Is(err, ErrEventFull) {
		t.Fatalf("expected ErrEventFull, got %v", err)
	}
}

func TestCancelledRegistrationNeverFreesThePair(t *testing.T) {
	// Capacity one. A takes the seat, B bounces, A cancels. A can never
	// re-register (one row per pair, forever), while B now fits.
	eng, store := newTestEngine()
	a := seedAccount(store, 1, model.RoleStudent)
	b := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, intPtr(1), nil)

	if _, err := eng.Register(context.Background(), a.ID, event.ID, testNow); err != nil {
		t.Fatalf("register A failed: %v", err)
	}
	if _, err := eng.Register(context.Background(), b.ID, event.ID, testNow); !errors.Is(err, ErrEventFull) {
		t.Fatalf("expected ErrEventFull for B, got %v", err)
	}

	if _, err := eng.Cancel(context.Background(), a.ID, event.ID); err != nil {
		t.Fatalf("cancel A failed: %v", err)
	}
	if _, err := eng.Register(context.Background(), a.ID, event.ID, testNow); !errors.Is(err, ErrAlreadyRegistered) {
		t.Fatalf("expected ErrAlreadyRegistered for A after cancel, got %v", err)
	}

	if _, err := eng.Register(context.Background(), b.ID, event.ID, testNow); err != nil {
		t.Fatalf("B should fit after A's cancellation: %v", err)
	}
	if len(store.registrations) != 2 {
		t.Fatalf("expected exactly one row per pair, got %d rows", len(store.registrations))
	}
}

func TestCancelIsIdempotent(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	first, err := eng.Cancel(context.Background(), acct.ID, event.ID)
	if err != nil {
		t.Fatalf("first cancel failed: %v", err)
	}
	second, err := eng.Cancel(context.Background(), acct.ID, event.ID)
	if err != nil {
		t.Fatalf("second cancel should be a no-op success: %v", err)
	}
	if first.Status != model.StatusCancelled || second.Status != model.StatusCancelled {
		t.Fatalf("both cancels should report cancelled")
	}
	if len(store.registrations) != 1 {
		t.Fatalf("cancel must never create or delete rows, got %d", len(store.registrations))
	}
}

func TestCancelMissingRegistration(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.Cancel(context.Background(), acct.ID, event.ID); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

// --- check-in ---

func TestCheckInRequiresConfirmedRegistration(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.CheckIn(context.Background(), acct.ID, event.ID, "", testNow); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered without registration, got %v", err)
	}

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := eng.Cancel(context.Background(), acct.ID, event.ID); err != nil {
		t.Fatalf("cancel failed: %v", err)
	}
	if _, err := eng.CheckIn(context.Background(), acct.ID, event.ID, "", testNow); !errors.Is(err, ErrNotRegistered) {
		t.Fatalf("expected ErrNotRegistered for cancelled registration, got %v", err)
	}
}

func TestCheckInOncePerPair(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	checkIn, err := eng.CheckIn(context.Background(), acct.ID, event.ID, "front desk", testNow)
	if err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	if checkIn.Notes != "front desk" {
		t.Fatalf("notes not recorded: %q", checkIn.Notes)
	}
	if _, err := eng.CheckIn(context.Background(), acct.ID, event.ID, "", testNow); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestTrustedCheckInSkipsRegistration(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.CheckInTrusted(context.Background(), acct.ID, event.ID, "kiosk", testNow); err != nil {
		t.Fatalf("trusted check-in should not require registration: %v", err)
	}
	if _, err := eng.CheckInTrusted(context.Background(), acct.ID, event.ID, "", testNow); !errors.Is(err, ErrAlreadyCheckedIn) {
		t.Fatalf("expected ErrAlreadyCheckedIn, got %v", err)
	}
}

func TestTrustedCheckInRequiresExistence(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.CheckInTrusted(context.Background(), 999, event.ID, "", testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing account, got %v", err)
	}
	if _, err := eng.CheckInTrusted(context.Background(), acct.ID, 999, "", testNow); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for missing event, got %v", err)
	}
}

// --- feedback ---

func checkedInStudent(t *testing.T, eng *Engine, store *memStore) (*model.Account, *model.Event) {
	t.Helper()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)
	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := eng.CheckIn(context.Background(), acct.ID, event.ID, "", testNow); err != nil {
		t.Fatalf("check-in failed: %v", err)
	}
	return acct, event
}

func TestSubmitFeedback(t *testing.T) {
	eng, store := newTestEngine()
	acct, event := checkedInStudent(t, eng, store)

	fb, err := eng.SubmitFeedback(context.Background(), acct.ID, event.ID, 4, "great talk", testNow)
	if err != nil {
		t.Fatalf("feedback failed: %v", err)
	}
	if fb.Rating != 4 || fb.Comment != "great talk" {
		t.Fatalf("feedback fields wrong: %+v", fb)
	}

	if _, err := eng.SubmitFeedback(context.Background(), acct.ID, event.ID, 5, "", testNow); !errors.Is(err, ErrAlreadySubmitted) {
		t.Fatalf("expected ErrAlreadySubmitted, got %v", err)
	}
}

func TestSubmitFeedbackStudentsOnly(t *testing.T) {
	eng, store := newTestEngine()
	event := seedEvent(store, 1, nil, nil)
	for _, role := range []model.Role{model.RoleAdmin, model.RoleStaff} {
		acct := seedAccount(store, 1, role)
		if _, err := eng.SubmitFeedback(context.Background(), acct.ID, event.ID, 3, "", testNow); !errors.Is(err, ErrForbidden) {
			t.Fatalf("expected ErrForbidden for %s, got %v", role, err)
		}
	}
}

func TestSubmitFeedbackRequiresCheckIn(t *testing.T) {
	eng, store := newTestEngine()
	acct := seedAccount(store, 1, model.RoleStudent)
	event := seedEvent(store, 1, nil, nil)

	if _, err := eng.Register(context.Background(), acct.ID, event.ID, testNow); err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if _, err := eng.SubmitFeedback(context.Background(), acct.ID, event.ID, 3, "", testNow); !errors.Is(err, ErrCheckInRequired) {
		t.Fatalf("expected ErrCheckInRequired, got %v", err)
	}
}

func TestSubmitFeedbackRatingBounds(t *testing.T) {
	eng, store := newTestEngine()
	acct, event := checkedInStudent(t, eng, store)

	for _, rating := range []int{0, 6, -1} {
		if _, err := eng.SubmitFeedback(context.Background(), acct.ID, event.ID, rating, "", testNow); !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("expected ErrInvalidInput for rating %d, got %v", rating, err)
		}
	}
	if _, err := eng.SubmitFeedback(context.Background(), acct.ID, event.ID, 1, "", testNow); err != nil {
		t.Fatalf("rating 1 should be accepted: %v", err)
	}
}
