// Package engine holds the participation rules: how an account moves from
// aware of an event to registered, checked in, and having given feedback.
// Every temporal check takes the current time as an argument so callers and
// tests control the clock.
package engine

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"campushub/internal/model"
	"campushub/internal/repo"
)

// Store is the slice of the entity store the engine needs. Uniqueness of the
// (account, event) pairs and the atomicity of RegisterTx are the store's
// responsibility; the engine's own existence checks only provide the friendly
// first-failure answer.
type Store interface {
	GetAccountByID(ctx context.Context, id int64) (*model.Account, error)
	GetEventByID(ctx context.Context, id int64) (*model.Event, error)
	CreateOrganization(ctx context.Context, o *model.Organization) (int64, error)
	CreateAccount(ctx context.Context, a *model.Account) (int64, error)
	DeactivateAccount(ctx context.Context, id int64) error
	DeleteAccount(ctx context.Context, id int64) error
	CountAuthoredEvents(ctx context.Context, accountID int64) (int, error)
	CreateEvent(ctx context.Context, e *model.Event) (int64, error)
	DeleteEvent(ctx context.Context, id int64) error

	RegisterTx(ctx context.Context, accountID, orgID, eventID int64, now time.Time) (*model.Registration, error)
	GetRegistration(ctx context.Context, accountID, eventID int64) (*model.Registration, error)
	UpdateRegistrationStatus(ctx context.Context, registrationID int64, status model.RegistrationStatus) error
	HasCheckIn(ctx context.Context, accountID, eventID int64) (bool, error)
	CreateCheckIn(ctx context.Context, c *model.CheckIn) (int64, error)
	HasFeedback(ctx context.Context, accountID, eventID int64) (bool, error)
	CreateFeedback(ctx context.Context, f *model.Feedback) (int64, error)
}

type Engine struct {
	store Store
	log   *zerolog.Logger
}

func New(store Store, log *zerolog.Logger) *Engine {
	return &Engine{store: store, log: log}
}

// Register creates a confirmed registration for the account on the event.
// Preconditions, first failure wins: the event exists in the account's
// organization, the registration window is open at `now`, no registration of
// any status exists for the pair, and the confirmed count is below capacity.
// The store runs all checks and the insert in a single transaction.
func (e *Engine) Register(ctx context.Context, accountID, eventID int64, now time.Time) (*model.Registration, error) {
	acct, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, translate(err)
	}

	reg, err := e.store.RegisterTx(ctx, accountID, acct.OrgID, eventID, now)
	if err != nil {
		return nil, translate(err)
	}

	e.log.Info().
		Int64("account_id", accountID).
		Int64("event_id", eventID).
		Int64("registration_id", reg.ID).
		Msg("registration confirmed")
	return reg, nil
}

// Cancel marks the registration cancelled. The row is kept for audit and the
// pair can never re-register. Cancelling twice is a no-op success.
func (e *Engine) Cancel(ctx context.Context, accountID, eventID int64) (*model.Registration, error) {
	reg, err := e.store.GetRegistration(ctx, accountID, eventID)
	if err != nil {
		return nil, translate(err)
	}
	if reg.Status == model.StatusCancelled {
		return reg, nil
	}

	if err := e.store.UpdateRegistrationStatus(ctx, reg.ID, model.StatusCancelled); err != nil {
		return nil, translate(err)
	}
	reg.Status = model.StatusCancelled

	e.log.Info().
		Int64("registration_id", reg.ID).
		Msg("registration cancelled")
	return reg, nil
}

// CheckIn is the strict attendance path: a confirmed registration is
// required. There is no time-window restriction against the event schedule.
func (e *Engine) CheckIn(ctx context.Context, accountID, eventID int64, notes string, now time.Time) (*model.CheckIn, error) {
	reg, err := e.store.GetRegistration(ctx, accountID, eventID)
	if err != nil {
		if errors.Is(err, repo.ErrRegistrationNotFound) {
			return nil, ErrNotRegistered
		}
		return nil, translate(err)
	}
	if reg.Status != model.StatusConfirmed {
		return nil, ErrNotRegistered
	}

	return e.createCheckIn(ctx, accountID, eventID, notes, now)
}

// CheckInTrusted is the relaxed attendance path for trusted integrations
// such as an on-site kiosk: it only requires that the account and event
// exist. It bypasses registration checks and ordinary access control, so it
// must never be reachable from session-authenticated end users.
func (e *Engine) CheckInTrusted(ctx context.Context, accountID, eventID int64, notes string, now time.Time) (*model.CheckIn, error) {
	if _, err := e.store.GetAccountByID(ctx, accountID); err != nil {
		return nil, translate(err)
	}
	if _, err := e.store.GetEventByID(ctx, eventID); err != nil {
		return nil, translate(err)
	}

	return e.createCheckIn(ctx, accountID, eventID, notes, now)
}

func (e *Engine) createCheckIn(ctx context.Context, accountID, eventID int64, notes string, now time.Time) (*model.CheckIn, error) {
	exists, err := e.store.HasCheckIn(ctx, accountID, eventID)
	if err != nil {
		return nil, translate(err)
	}
	if exists {
		return nil, ErrAlreadyCheckedIn
	}

	checkIn := &model.CheckIn{
		AccountID:   accountID,
		EventID:     eventID,
		CheckInTime: now,
		Notes:       notes,
	}
	if _, err := e.store.CreateCheckIn(ctx, checkIn); err != nil {
		return nil, translate(err)
	}

	e.log.Info().
		Int64("account_id", accountID).
		Int64("event_id", eventID).
		Msg("checked in")
	return checkIn, nil
}

// SubmitFeedback records a one-time rating for an attended event. Only
// students may submit; a check-in must exist; feedback is immutable once
// written.
func (e *Engine) SubmitFeedback(ctx context.Context, accountID, eventID int64, rating int, comment string, now time.Time) (*model.Feedback, error) {
	acct, err := e.store.GetAccountByID(ctx, accountID)
	if err != nil {
		return nil, translate(err)
	}
	if acct.Role != model.RoleStudent {
		return nil, ErrForbidden
	}

	checkedIn, err := e.store.HasCheckIn(ctx, accountID, eventID)
	if err != nil {
		return nil, translate(err)
	}
	if !checkedIn {
		return nil, ErrCheckInRequired
	}

	submitted, err := e.store.HasFeedback(ctx, accountID, eventID)
	if err != nil {
		return nil, translate(err)
	}
	if submitted {
		return nil, ErrAlreadySubmitted
	}

	if rating < 1 || rating > 5 {
		return nil, ErrInvalidInput
	}

	feedback := &model.Feedback{
		AccountID: accountID,
		EventID:   eventID,
		Rating:    rating,
		Comment:   comment,
		CreatedAt: now,
	}
	if _, err := e.store.CreateFeedback(ctx, feedback); err != nil {
		return nil, translate(err)
	}

	e.log.Info().
		Int64("account_id", accountID).
		Int64("event_id", eventID).
		Int("rating", rating).
		Msg("feedback submitted")
	return feedback, nil
}
