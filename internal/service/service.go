package service

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/rs/zerolog"
	"github.com/wb-go/wbf/ginext"

	"campushub/cmd/middleware"
	"campushub/internal/dto"
	"campushub/internal/engine"
	"campushub/internal/model"
	"campushub/internal/rabbit"
	"campushub/internal/repo"
	"campushub/internal/report"
	"campushub/pkg/validator"
)

type Service struct {
	engine  *engine.Engine
	reports *report.Aggregator
	repo    *repo.Repository
	log     *zerolog.Logger
	rbt     *rabbit.Client
}

func New(eng *engine.Engine, reports *report.Aggregator, repository *repo.Repository, log *zerolog.Logger, rbt *rabbit.Client) *Service {
	return &Service{
		engine:  eng,
		reports: reports,
		repo:    repository,
		log:     log,
		rbt:     rbt,
	}
}

// --- identity helpers ---

func callerID(ctx *ginext.Context) (int64, bool) {
	v, exists := ctx.Get(middleware.CtxAccountID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func callerOrgID(ctx *ginext.Context) (int64, bool) {
	v, exists := ctx.Get(middleware.CtxOrgID)
	if !exists {
		return 0, false
	}
	id, ok := v.(int64)
	return id, ok
}

func callerRole(ctx *ginext.Context) model.Role {
	v, exists := ctx.Get(middleware.CtxRole)
	if !exists {
		return ""
	}
	role, _ := v.(string)
	return model.Role(role)
}

func unauthorized(ctx *ginext.Context) {
	dto.ErrorResponse(ctx, 401, dto.CodeForbidden, "Missing caller identity")
}

func pathID(ctx *ginext.Context, name string) (int64, error) {
	return strconv.ParseInt(ctx.Param(name), 10, 64)
}

func (s *Service) respondDomainError(ctx *ginext.Context, err error) {
	switch {
	case errors.Is(err, engine.ErrNotFound):
		dto.ErrorResponse(ctx, 404, dto.CodeNotFound, "Not found")
	case errors.Is(err, engine.ErrForbidden):
		dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Operation not allowed for this caller")
	case errors.Is(err, engine.ErrRegistrationClosed):
		dto.ErrorResponse(ctx, 409, dto.CodeRegistrationClosed, "Registration is closed for this event")
	case errors.Is(err, engine.ErrAlreadyRegistered):
		dto.ErrorResponse(ctx, 409, dto.CodeAlreadyRegistered, "Already registered for this event")
	case errors.Is(err, engine.ErrEventFull):
		dto.ErrorResponse(ctx, 409, dto.CodeEventFull, "Event is full")
	case errors.Is(err, engine.ErrNotRegistered):
		dto.ErrorResponse(ctx, 409, dto.CodeNotRegistered, "A confirmed registration is required")
	case errors.Is(err, engine.ErrAlreadyCheckedIn):
		dto.ErrorResponse(ctx, 409, dto.CodeAlreadyCheckedIn, "Already checked in for this event")
	case errors.Is(err, engine.ErrCheckInRequired):
		dto.ErrorResponse(ctx, 409, dto.CodeCheckInRequired, "Check-in is required before feedback")
	case errors.Is(err, engine.ErrAlreadySubmitted):
		dto.ErrorResponse(ctx, 409, dto.CodeAlreadySubmitted, "Feedback already submitted")
	case errors.Is(err, engine.ErrInvalidInput):
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid input")
	case errors.Is(err, engine.ErrConflict):
		dto.ErrorResponse(ctx, 409, dto.CodeConflict, "Already exists")
	case errors.Is(err, engine.ErrAccountHasEvents):
		dto.ErrorResponse(ctx, 409, dto.CodeAccountHasEvents, "Account still owns events")
	default:
		s.log.Error().Err(err).Msg("unexpected engine error")
		dto.InternalServerError(ctx)
	}
}

// --- provisioning ---

func (s *Service) CreateOrganization(ctx *ginext.Context) {
	if callerRole(ctx) != model.RoleAdmin {
		dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Admin role required")
		return
	}

	var req dto.CreateOrganizationRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	org, err := s.engine.CreateOrganization(ctx.Request.Context(), &model.Organization{
		Name:    req.Name,
		Code:    req.Code,
		Address: req.Address,
	})
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, dto.NewOrganizationResponse(org))
}

func (s *Service) CreateAccount(ctx *ginext.Context) {
	if callerRole(ctx) != model.RoleAdmin {
		dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Admin role required")
		return
	}

	var req dto.CreateAccountRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	acct, err := s.engine.CreateAccount(ctx.Request.Context(), &model.Account{
		OrgID:       req.OrgID,
		Username:    req.Username,
		Email:       req.Email,
		FullName:    req.FullName,
		Role:        model.Role(req.Role),
		StudentID:   req.StudentID,
		Department:  req.Department,
		YearOfStudy: req.YearOfStudy,
		Phone:       req.Phone,
	})
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, dto.NewAccountResponse(acct))
}

func (s *Service) DeleteAccount(ctx *ginext.Context) {
	if callerRole(ctx) != model.RoleAdmin {
		dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Admin role required")
		return
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid account ID")
		return
	}
	if err := s.engine.DeleteAccount(ctx.Request.Context(), id); err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

func (s *Service) DeactivateAccount(ctx *ginext.Context) {
	if callerRole(ctx) != model.RoleAdmin {
		dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Admin role required")
		return
	}
	id, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid account ID")
		return
	}
	if err := s.engine.DeactivateAccount(ctx.Request.Context(), id); err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

// --- events ---

func (s *Service) CreateEvent(ctx *ginext.Context) {
	creatorID, ok := callerID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}

	var req dto.CreateEventRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	event, err := s.engine.CreateEvent(ctx.Request.Context(), creatorID, &model.Event{
		Title:                req.Title,
		Description:          req.Description,
		EventType:            req.EventType,
		Venue:                req.Venue,
		StartTime:            req.StartTime,
		EndTime:              req.EndTime,
		MaxParticipants:      req.MaxParticipants,
		RegistrationDeadline: req.RegistrationDeadline,
		RequiresApproval:     req.RequiresApproval,
	})
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}

	dto.SuccessCreatedResponse(ctx, dto.NewEventResponse(&model.EventSummary{
		Event:            *event,
		RegistrationOpen: event.RegistrationOpenAt(time.Now().UTC()),
	}))
}

func (s *Service) summarize(ctx *ginext.Context, event *model.Event, now time.Time) (*model.EventSummary, error) {
	regCount, err := s.repo.CountConfirmed(ctx.Request.Context(), event.ID)
	if err != nil {
		return nil, err
	}
	checkInCount, err := s.repo.CountCheckIns(ctx.Request.Context(), event.ID)
	if err != nil {
		return nil, err
	}
	return &model.EventSummary{
		Event:             *event,
		RegistrationCount: regCount,
		CheckInCount:      checkInCount,
		RegistrationOpen:  event.RegistrationOpenAt(now),
	}, nil
}

func (s *Service) ListEvents(ctx *ginext.Context) {
	orgID, ok := callerOrgID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}

	events, err := s.repo.ListEventsByOrg(ctx.Request.Context(), orgID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list events")
		dto.InternalServerError(ctx)
		return
	}

	now := time.Now().UTC()
	resp := make([]dto.EventResponse, 0, len(events))
	for i := range events {
		summary, err := s.summarize(ctx, &events[i], now)
		if err != nil {
			s.log.Error().Err(err).Int64("event_id", events[i].ID).Msg("failed to summarize event")
			continue
		}
		resp = append(resp, dto.NewEventResponse(summary))
	}
	dto.SuccessResponse(ctx, resp)
}

func (s *Service) GetEvent(ctx *ginext.Context) {
	orgID, ok := callerOrgID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		if errors.Is(err, repo.ErrEventNotFound) {
			dto.ErrorResponse(ctx, 404, dto.CodeNotFound, "Event not found")
			return
		}
		s.log.Error().Err(err).Msg("failed to get event")
		dto.InternalServerError(ctx)
		return
	}
	if event.OrgID != orgID {
		dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Event belongs to another organization")
		return
	}

	summary, err := s.summarize(ctx, event, time.Now().UTC())
	if err != nil {
		s.log.Error().Err(err).Msg("failed to summarize event")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NewEventResponse(summary))
}

func (s *Service) DeleteEvent(ctx *ginext.Context) {
	accountID, ok := callerID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}
	if err := s.engine.DeleteEvent(ctx.Request.Context(), accountID, eventID); err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessResponse(ctx, nil)
}

// --- participation ---

func (s *Service) Register(ctx *ginext.Context) {
	accountID, ok := callerID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	reg, err := s.engine.Register(ctx.Request.Context(), accountID, eventID, time.Now().UTC())
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}

	s.notify(ctx, dto.KindRegistrationConfirmed, accountID, eventID, 0)
	s.scheduleReminder(ctx, accountID, eventID)

	dto.SuccessCreatedResponse(ctx, dto.NewRegistrationResponse(reg))
}

func (s *Service) CancelRegistration(ctx *ginext.Context) {
	accountID, ok := callerID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	reg, err := s.engine.Cancel(ctx.Request.Context(), accountID, eventID)
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}

	s.notify(ctx, dto.KindRegistrationCancelled, accountID, eventID, 0)

	dto.SuccessResponse(ctx, dto.NewRegistrationResponse(reg))
}

func (s *Service) CheckIn(ctx *ginext.Context) {
	accountID, ok := callerID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	var req dto.CheckInRequest
	if ctx.Request.ContentLength > 0 {
		if err := ctx.ShouldBindJSON(&req); err != nil {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
			return
		}
	}

	checkIn, err := s.engine.CheckIn(ctx.Request.Context(), accountID, eventID, req.Notes, time.Now().UTC())
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, dto.NewCheckInResponse(checkIn))
}

// TrustedCheckIn serves kiosk integrations behind the API-key gate: no
// session identity, no registration requirement, existence checks only.
func (s *Service) TrustedCheckIn(ctx *ginext.Context) {
	var req dto.TrustedCheckInRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}
	if verr := validator.Validate(ctx, req); verr != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, fmt.Sprintf("%v", verr))
		return
	}

	checkIn, err := s.engine.CheckInTrusted(ctx.Request.Context(), req.AccountID, req.EventID, req.Notes, time.Now().UTC())
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, dto.NewCheckInResponse(checkIn))
}

func (s *Service) SubmitFeedback(ctx *ginext.Context) {
	accountID, ok := callerID(ctx)
	if !ok {
		unauthorized(ctx)
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	var req dto.FeedbackRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid JSON format")
		return
	}

	feedback, err := s.engine.SubmitFeedback(ctx.Request.Context(), accountID, eventID, req.Rating, req.Comment, time.Now().UTC())
	if err != nil {
		s.respondDomainError(ctx, err)
		return
	}
	dto.SuccessCreatedResponse(ctx, dto.NewFeedbackResponse(feedback))
}

// --- notifications ---

func (s *Service) notify(ctx *ginext.Context, kind string, accountID, eventID int64, delaySeconds int) {
	if s.rbt == nil {
		return
	}
	msg := dto.NotificationMessage{
		Kind:      kind,
		AccountID: accountID,
		EventID:   eventID,
	}
	payload, err := json.Marshal(msg)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to marshal notification message")
		return
	}
	if err := s.rbt.Publish(payload, delaySeconds); err != nil {
		s.log.Error().Err(err).Str("kind", kind).Msg("failed to publish notification")
	}
}

// scheduleReminder queues a delayed reminder that fires an hour before the
// event starts. Best effort; registration already succeeded.
func (s *Service) scheduleReminder(ctx *ginext.Context, accountID, eventID int64) {
	event, err := s.repo.GetEventByID(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Int64("event_id", eventID).Msg("failed to load event for reminder")
		return
	}
	delay := time.Until(event.StartTime.Add(-time.Hour))
	if delay <= 0 {
		return
	}
	s.notify(ctx, dto.KindEventReminder, accountID, eventID, int(delay.Seconds()))
}
