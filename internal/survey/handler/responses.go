package handler

import (
	"pollbook/internal/audit"
	"pollbook/internal/survey/models"
	id "pollbook/pkg/domain"
)

type SurveyResponse struct {
	ID          id.SurveyID  `json:"id"`
	Creator     id.Address   `json:"creator"`
	Name        string       `json:"name"`
	Description string       `json:"description"`
	StartTime   uint64       `json:"start_time"`
	EndTime     uint64       `json:"end_time"`
	Candidates  []id.Address `json:"candidates"`
	Phase       models.Phase `json:"phase"`
}

type SurveyListResponse struct {
	Surveys []SurveyResponse `json:"surveys"`
	Total   uint64           `json:"total"`
	Offset  uint64           `json:"offset"`
	Limit   uint64           `json:"limit"`
}

type CreateSurveyResponse struct {
	SurveyID id.SurveyID    `json:"survey_id"`
	Survey   SurveyResponse `json:"survey"`
}

type VoteResponse struct {
	Success   bool        `json:"success"`
	SurveyID  id.SurveyID `json:"survey_id"`
	Voter     id.Address  `json:"voter"`
	Candidate id.Address  `json:"candidate"`
}

type TallyResponse struct {
	Candidate id.Address `json:"candidate"`
	Votes     uint64     `json:"votes"`
}

type ResultsResponse struct {
	SurveyID   id.SurveyID     `json:"survey_id"`
	Results    []TallyResponse `json:"results"`
	TotalVotes uint64          `json:"total_votes"`
}

type TotalVotesResponse struct {
	SurveyID   id.SurveyID `json:"survey_id"`
	TotalVotes uint64      `json:"total_votes"`
}

// VoterStatusResponse answers has_voted and get_vote together. Candidate is
// null when the voter has not voted.
type VoterStatusResponse struct {
	SurveyID  id.SurveyID `json:"survey_id"`
	Voter     id.Address  `json:"voter"`
	HasVoted  bool        `json:"has_voted"`
	Candidate *id.Address `json:"candidate"`
}

type CountResponse struct {
	Count uint64 `json:"count"`
}

type VoteFeeResponse struct {
	VoteFee models.Amount `json:"vote_fee"`
	Unit    string        `json:"unit"`
}

// AuditTrailResponse lists the retained events for a survey, oldest first.
type AuditTrailResponse struct {
	SurveyID id.SurveyID   `json:"survey_id"`
	Events   []audit.Event `json:"events"`
}

type InitializeResponse struct {
	Initialized bool          `json:"initialized"`
	VoteFee     models.Amount `json:"vote_fee"`
}

func toSurveyResponse(s *models.Survey, phase models.Phase) SurveyResponse {
	return SurveyResponse{
		ID:          s.ID,
		Creator:     s.Creator,
		Name:        s.Name,
		Description: s.Description,
		StartTime:   s.StartTime,
		EndTime:     s.EndTime,
		Candidates:  s.Candidates,
		Phase:       phase,
	}
}

func toSurveyListResponse(p *models.SurveyPage) SurveyListResponse {
	out := SurveyListResponse{
		Surveys: make([]SurveyResponse, 0, len(p.Surveys)),
		Total:   p.Total,
		Offset:  p.Offset,
		Limit:   p.Limit,
	}
	for i := range p.Surveys {
		out.Surveys = append(out.Surveys, toSurveyResponse(&p.Surveys[i].Survey, p.Surveys[i].Phase))
	}
	return out
}

func toResultsResponse(r *models.Results) ResultsResponse {
	out := ResultsResponse{
		SurveyID:   r.SurveyID,
		Results:    make([]TallyResponse, 0, len(r.Tallies)),
		TotalVotes: r.TotalVotes,
	}
	for _, t := range r.Tallies {
		out.Results = append(out.Results, TallyResponse{Candidate: t.Candidate, Votes: t.Votes})
	}
	return out
}
