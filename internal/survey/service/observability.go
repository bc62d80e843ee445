package service

import (
	"context"
	"errors"
	"time"

	"pollbook/internal/audit"
	"pollbook/internal/survey/models"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/requestcontext"
)

func (s *Service) logAudit(ctx context.Context, event audit.Event, attributes ...any) {
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(event.Action), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(event.Action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, event); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to emit audit event", "event", string(event.Action), "error", err)
	}
}

func (s *Service) incrementSurveysCreated() {
	if s.metrics != nil {
		s.metrics.IncrementSurveysCreated()
	}
}

func (s *Service) incrementVotesCast() {
	if s.metrics != nil {
		s.metrics.IncrementVotesCast()
	}
}

func (s *Service) incrementVotesRejected(err error) {
	if s.metrics != nil {
		s.metrics.IncrementVotesRejected(rejectReason(err))
	}
}

func (s *Service) observeVote(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveVote(start)
	}
}

func (s *Service) observeCreateSurvey(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveCreateSurvey(start)
	}
}

func (s *Service) observeResults(start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveResults(start)
	}
}

func rejectReason(err error) string {
	switch {
	case errors.Is(err, models.ErrUnauthorized):
		return "unauthorized"
	case errors.Is(err, models.ErrSurveyNotFound):
		return "survey_not_found"
	case errors.Is(err, models.ErrSurveyNotStarted):
		return "not_started"
	case errors.Is(err, models.ErrSurveyEnded):
		return "ended"
	case errors.Is(err, models.ErrInvalidCandidate):
		return "invalid_candidate"
	case errors.Is(err, models.ErrAlreadyVoted):
		return "already_voted"
	default:
		return string(dErrors.CodeOf(err))
	}
}
