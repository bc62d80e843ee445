package models

import dErrors "pollbook/pkg/domain-errors"

// Engine errors. Callers match them with errors.Is; the HTTP layer maps their codes.
var (
	ErrInvalidCandidateSet = dErrors.New(dErrors.CodeValidation, "candidate list must not be empty")
	ErrInvalidTimeWindow   = dErrors.New(dErrors.CodeValidation, "start_time must be before end_time")
	ErrSurveyNotFound      = dErrors.New(dErrors.CodeNotFound, "survey not found")
	ErrSurveyNotOpen       = dErrors.New(dErrors.CodeConflict, "survey is not open for voting")
	ErrInvalidCandidate    = dErrors.New(dErrors.CodeValidation, "candidate is not part of this survey")
	ErrAlreadyVoted        = dErrors.New(dErrors.CodeConflict, "voter has already voted in this survey")
	ErrUnauthorized        = dErrors.New(dErrors.CodeUnauthorized, "caller is not authenticated as the acting address")

	// ErrSurveyNotStarted and ErrSurveyEnded refine ErrSurveyNotOpen and both match it.
	ErrSurveyNotStarted = dErrors.Wrap(ErrSurveyNotOpen, dErrors.CodeConflict, "survey has not started")
	ErrSurveyEnded      = dErrors.Wrap(ErrSurveyNotOpen, dErrors.CodeConflict, "survey has ended")
)
