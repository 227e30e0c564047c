package service

import (
	"strconv"

	"github.com/wb-go/wbf/ginext"

	"campushub/internal/dto"
	"campushub/internal/model"
	"campushub/internal/report"
)

// Report routes require a staff or admin caller and are scoped to the
// caller's organization. An admin may pass org_id=0 to rank across all
// organizations.

func (s *Service) requireReporting(ctx *ginext.Context) (orgID int64, ok bool) {
	if !callerRole(ctx).CanManageEvents() {
		dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Staff or admin role required")
		return 0, false
	}
	orgID, idOK := callerOrgID(ctx)
	if !idOK {
		unauthorized(ctx)
		return 0, false
	}
	return orgID, true
}

func (s *Service) TopParticipants(ctx *ginext.Context) {
	orgID, ok := s.requireReporting(ctx)
	if !ok {
		return
	}

	if raw := ctx.Query("org_id"); raw != "" {
		requested, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid org_id")
			return
		}
		if requested != orgID && callerRole(ctx) != model.RoleAdmin {
			dto.ErrorResponse(ctx, 403, dto.CodeForbidden, "Cross-organization reports require admin role")
			return
		}
		orgID = requested
	}

	limit := report.ReportTopLimit
	if raw := ctx.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid limit")
			return
		}
		limit = parsed
	}

	stats, err := s.reports.TopParticipants(ctx.Request.Context(), orgID, limit)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to rank top participants")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NewParticipantStatsResponse(stats))
}

func (s *Service) EventTypeBreakdown(ctx *ginext.Context) {
	orgID, ok := s.requireReporting(ctx)
	if !ok {
		return
	}

	stats, err := s.reports.EventTypeBreakdown(ctx.Request.Context(), orgID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to compute event type breakdown")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NewEventTypeStatsResponse(stats))
}

func (s *Service) AttendanceReport(ctx *ginext.Context) {
	if _, ok := s.requireReporting(ctx); !ok {
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	entries, err := s.reports.Attendance(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build attendance report")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NewAttendanceResponse(entries))
}

func (s *Service) RegistrationsReport(ctx *ginext.Context) {
	orgID, ok := s.requireReporting(ctx)
	if !ok {
		return
	}

	entries, err := s.reports.Registrations(ctx.Request.Context(), orgID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to build registrations report")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NewRegistrationsReportResponse(entries))
}

func (s *Service) EventFeedback(ctx *ginext.Context) {
	if _, ok := s.requireReporting(ctx); !ok {
		return
	}
	eventID, err := pathID(ctx, "id")
	if err != nil {
		dto.BadResponseError(ctx, dto.FieldIncorrect, "Invalid event ID")
		return
	}

	entries, err := s.reports.EventFeedback(ctx.Request.Context(), eventID)
	if err != nil {
		s.log.Error().Err(err).Msg("failed to list event feedback")
		dto.InternalServerError(ctx)
		return
	}
	dto.SuccessResponse(ctx, dto.NewFeedbackReportResponse(entries))
}
