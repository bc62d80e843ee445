package handler

import (
	"strings"

	"pollbook/internal/survey/service"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
)

const (
	maxNameLength        = 256
	maxDescriptionLength = 4096
	maxCandidates        = 256
)

// InitializeRequest is the body of POST /admin/initialize. Admin defaults to
// the authenticated identity.
type InitializeRequest struct {
	Admin string `json:"admin"`

	admin id.Address
}

func (r *InitializeRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	return parseOptionalAddress(r.Admin, "admin", &r.admin)
}

// CreateSurveyRequest is the body of POST /surveys. Times are unix seconds.
// Candidate-set and window rules are enforced by the engine.
type CreateSurveyRequest struct {
	Creator     string   `json:"creator"`
	Name        string   `json:"name"`
	Description string   `json:"description"`
	StartTime   uint64   `json:"start_time"`
	EndTime     uint64   `json:"end_time"`
	Candidates  []string `json:"candidates"`

	creator    id.Address
	candidates []id.Address
}

func (r *CreateSurveyRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if len(r.Candidates) > maxCandidates {
		return dErrors.New(dErrors.CodeValidation, "at most 256 candidates are allowed")
	}
	r.Name = strings.TrimSpace(r.Name)
	r.Description = strings.TrimSpace(r.Description)
	if r.Name == "" {
		return dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(r.Name) > maxNameLength {
		return dErrors.New(dErrors.CodeValidation, "name must be at most 256 characters")
	}
	if len(r.Description) > maxDescriptionLength {
		return dErrors.New(dErrors.CodeValidation, "description must be at most 4096 characters")
	}
	if err := parseOptionalAddress(r.Creator, "creator", &r.creator); err != nil {
		return err
	}
	candidates, err := id.ParseAddresses(r.Candidates)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid candidate address")
	}
	r.candidates = candidates
	return nil
}

func (r *CreateSurveyRequest) toInput() service.CreateSurveyInput {
	return service.CreateSurveyInput{
		Creator:     r.creator,
		Name:        r.Name,
		Description: r.Description,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Candidates:  r.candidates,
	}
}

// VoteRequest is the body of POST /surveys/{surveyID}/votes. Voter defaults to
// the authenticated identity.
type VoteRequest struct {
	Voter     string `json:"voter"`
	Candidate string `json:"candidate"`

	voter     id.Address
	candidate id.Address
}

func (r *VoteRequest) Validate() error {
	if r == nil {
		return dErrors.New(dErrors.CodeBadRequest, "request body is required")
	}
	if strings.TrimSpace(r.Candidate) == "" {
		return dErrors.New(dErrors.CodeValidation, "candidate is required")
	}
	candidate, err := id.ParseAddress(r.Candidate)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid candidate address")
	}
	r.candidate = candidate
	return parseOptionalAddress(r.Voter, "voter", &r.voter)
}

func parseOptionalAddress(raw, field string, dst *id.Address) error {
	if strings.TrimSpace(raw) == "" {
		return nil
	}
	addr, err := id.ParseAddress(raw)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeValidation, "invalid "+field+" address")
	}
	*dst = addr
	return nil
}
