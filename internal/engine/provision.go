package engine

import (
	"context"
	"strings"

	"campushub/internal/model"
)

// Provisioning operations. Organizations are created once and immutable
// afterwards; account roles are fixed at creation.

func (e *Engine) CreateOrganization(ctx context.Context, org *model.Organization) (*model.Organization, error) {
	org.Name = strings.TrimSpace(org.Name)
	org.Code = strings.TrimSpace(org.Code)
	if org.Name == "" || org.Code == "" {
		return nil, ErrInvalidInput
	}

	if _, err := e.store.CreateOrganization(ctx, org); err != nil {
		return nil, translate(err)
	}
	e.log.Info().Int64("org_id", org.ID).Str("code", org.Code).Msg("organization created")
	return org, nil
}

func (e *Engine) CreateAccount(ctx context.Context, acct *model.Account) (*model.Account, error) {
	acct.Username = strings.TrimSpace(acct.Username)
	acct.Email = strings.TrimSpace(acct.Email)
	if acct.Username == "" || acct.Email == "" || acct.FullName == "" || !acct.Role.Valid() {
		return nil, ErrInvalidInput
	}

	if _, err := e.store.CreateAccount(ctx, acct); err != nil {
		return nil, translate(err)
	}
	e.log.Info().
		Int64("account_id", acct.ID).
		Str("role", string(acct.Role)).
		Msg("account created")
	return acct, nil
}

func (e *Engine) DeactivateAccount(ctx context.Context, accountID int64) error {
	return translate(e.store.DeactivateAccount(ctx, accountID))
}

// DeleteAccount removes an account and its participation rows. An account
// that still authors events cannot be deleted; the caller must reassign or
// delete those events first. The store's RESTRICT constraint backs this up.
func (e *Engine) DeleteAccount(ctx context.Context, accountID int64) error {
	authored, err := e.store.CountAuthoredEvents(ctx, accountID)
	if err != nil {
		return translate(err)
	}
	if authored > 0 {
		return ErrAccountHasEvents
	}
	if err := e.store.DeleteAccount(ctx, accountID); err != nil {
		return translate(err)
	}
	e.log.Info().Int64("account_id", accountID).Msg("account deleted")
	return nil
}

// CreateEvent publishes an event in the creator's organization. Only staff
// and admin roles may publish. requires_approval is stored but drives no
// registration transition.
func (e *Engine) CreateEvent(ctx context.Context, creatorID int64, event *model.Event) (*model.Event, error) {
	creator, err := e.store.GetAccountByID(ctx, creatorID)
	if err != nil {
		return nil, translate(err)
	}
	if !creator.Role.CanManageEvents() {
		return nil, ErrForbidden
	}

	if strings.TrimSpace(event.Title) == "" || strings.TrimSpace(event.EventType) == "" {
		return nil, ErrInvalidInput
	}
	if !event.EndTime.After(event.StartTime) {
		return nil, ErrInvalidInput
	}
	if event.MaxParticipants != nil && *event.MaxParticipants <= 0 {
		return nil, ErrInvalidInput
	}

	event.OrgID = creator.OrgID
	event.CreatedBy = creatorID
	if _, err := e.store.CreateEvent(ctx, event); err != nil {
		return nil, translate(err)
	}
	e.log.Info().
		Int64("event_id", event.ID).
		Int64("org_id", event.OrgID).
		Msg("event created")
	return event, nil
}

// DeleteEvent removes the event together with its registrations, check-ins
// and feedback (store cascade). The caller must manage events in the event's
// own organization.
func (e *Engine) DeleteEvent(ctx context.Context, callerID, eventID int64) error {
	caller, err := e.store.GetAccountByID(ctx, callerID)
	if err != nil {
		return translate(err)
	}
	if !caller.Role.CanManageEvents() {
		return ErrForbidden
	}

	event, err := e.store.GetEventByID(ctx, eventID)
	if err != nil {
		return translate(err)
	}
	if event.OrgID != caller.OrgID {
		return ErrForbidden
	}

	if err := e.store.DeleteEvent(ctx, eventID); err != nil {
		return translate(err)
	}
	e.log.Info().Int64("event_id", eventID).Msg("event deleted")
	return nil
}
