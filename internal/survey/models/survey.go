package models

import (
	"slices"
	"strings"

	id "pollbook/pkg/domain"
)

// Survey is immutable once created.
//
// Invariants:
//   - Candidates is non-empty; duplicates are kept in the order given
//   - StartTime < EndTime, both unix seconds on the ledger clock
type Survey struct {
	ID          id.SurveyID  `json:"id"`
	Creator     id.Address   `json:"creator"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	StartTime   uint64       `json:"start_time"`
	EndTime     uint64       `json:"end_time"`
	Candidates  []id.Address `json:"candidates"`
}

// NewSurvey validates the candidate set before the time window.
func NewSurvey(surveyID id.SurveyID, creator id.Address, name, description string, start, end uint64, candidates []id.Address) (*Survey, error) {
	if err := ValidateDraft(start, end, candidates); err != nil {
		return nil, err
	}
	return &Survey{
		ID:          surveyID,
		Creator:     creator,
		Name:        strings.TrimSpace(name),
		Description: strings.TrimSpace(description),
		StartTime:   start,
		EndTime:     end,
		Candidates:  slices.Clone(candidates),
	}, nil
}

// ValidateDraft checks the creation preconditions that need no stored state.
func ValidateDraft(start, end uint64, candidates []id.Address) error {
	if len(candidates) == 0 {
		return ErrInvalidCandidateSet
	}
	if start >= end {
		return ErrInvalidTimeWindow
	}
	return nil
}

// PhaseAt derives the lifecycle phase for a ledger time. Both bounds are inclusive.
func (s *Survey) PhaseAt(now uint64) Phase {
	switch {
	case now < s.StartTime:
		return PhaseCreated
	case now > s.EndTime:
		return PhaseClosed
	default:
		return PhaseOpen
	}
}

// CheckOpen returns nil when votes are accepted at now.
func (s *Survey) CheckOpen(now uint64) error {
	switch s.PhaseAt(now) {
	case PhaseCreated:
		return ErrSurveyNotStarted
	case PhaseClosed:
		return ErrSurveyEnded
	default:
		return nil
	}
}

func (s *Survey) HasCandidate(candidate id.Address) bool {
	return slices.Contains(s.Candidates, candidate)
}

// DistinctCandidates returns the candidate list without repeats, first occurrence wins.
func (s *Survey) DistinctCandidates() []id.Address {
	seen := make(map[id.Address]struct{}, len(s.Candidates))
	out := make([]id.Address, 0, len(s.Candidates))
	for _, c := range s.Candidates {
		if _, ok := seen[c]; ok {
			continue
		}
		seen[c] = struct{}{}
		out = append(out, c)
	}
	return out
}

// Phase is derived at call time and never stored.
type Phase string

const (
	PhaseCreated Phase = "created"
	PhaseOpen    Phase = "open"
	PhaseClosed  Phase = "closed"
)

// CandidateTally is one row of a results listing.
type CandidateTally struct {
	Candidate id.Address `json:"candidate"`
	Votes     uint64     `json:"votes"`
}

// Results lists tallies in the survey's candidate order. A candidate listed
// twice appears twice with the same tally.
type Results struct {
	SurveyID   id.SurveyID      `json:"survey_id"`
	Tallies    []CandidateTally `json:"tallies"`
	TotalVotes uint64           `json:"total_votes"`
}


// SurveyListing pairs a stored survey with the phase derived when it was read.
type SurveyListing struct {
	Survey Survey
	Phase  Phase
}

// SurveyPage is one window of surveys in id order. Total is the survey count
// seen by the same read.
type SurveyPage struct {
	Surveys []SurveyListing
	Total   uint64
	Offset  uint64
	Limit   uint64
}
