package survey

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cucumber/godog"
)

// TestContext is the slice of the suite context these steps need.
type TestContext interface {
	POST(ctx context.Context, path string, body any, headers map[string]string) error
	GET(ctx context.Context, path string, headers map[string]string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	Wallet(alias string) string
	BearerHeaders(alias string) map[string]string
	SurveyID(alias string) (string, bool)
	SetSurveyID(alias, id string)
}

// RegisterSteps registers survey lifecycle steps.
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &surveySteps{tc: tc}

	ctx.Step(`^"([^"]*)" creates survey "([^"]*)" open now for (\d+) seconds with candidates "([^"]*)"$`, steps.createOpenSurvey)
	ctx.Step(`^"([^"]*)" creates survey "([^"]*)" starting in (\d+) seconds with candidates "([^"]*)"$`, steps.createFutureSurvey)
	ctx.Step(`^"([^"]*)" creates a survey with no candidates$`, steps.createEmptySurvey)
	ctx.Step(`^"([^"]*)" votes for "([^"]*)" in survey "([^"]*)"$`, steps.vote)
	ctx.Step(`^someone votes anonymously in survey "([^"]*)"$`, steps.voteAnonymously)

	ctx.Step(`^I request the results of survey "([^"]*)"$`, steps.requestResults)
	ctx.Step(`^I request survey "([^"]*)"$`, steps.requestSurvey)
	ctx.Step(`^I check whether "([^"]*)" voted in survey "([^"]*)"$`, steps.requestVoterStatus)
	ctx.Step(`^candidate "([^"]*)" should have (\d+) votes?$`, steps.candidateShouldHave)
	ctx.Step(`^the results should total (\d+) votes?$`, steps.resultsShouldTotal)
}

type surveySteps struct {
	tc TestContext
}

func (s *surveySteps) create(ctx context.Context, creator, alias string, start, end uint64, candidates []string) error {
	wallets := make([]string, 0, len(candidates))
	for _, c := range candidates {
		wallets = append(wallets, s.tc.Wallet(c))
	}
	body := map[string]any{
		"name":       alias,
		"start_time": start,
		"end_time":   end,
		"candidates": wallets,
	}
	if err := s.tc.POST(ctx, "/surveys", body, s.tc.BearerHeaders(creator)); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != http.StatusCreated {
		return nil
	}
	surveyID, err := s.tc.GetResponseField("survey_id")
	if err != nil {
		return err
	}
	s.tc.SetSurveyID(alias, fmt.Sprint(surveyID))
	return nil
}

func (s *surveySteps) createOpenSurvey(ctx context.Context, creator, alias string, seconds int, candidates string) error {
	now := uint64(time.Now().Unix())
	return s.create(ctx, creator, alias, now-5, now+uint64(seconds), splitList(candidates))
}

func (s *surveySteps) createFutureSurvey(ctx context.Context, creator, alias string, seconds int, candidates string) error {
	now := uint64(time.Now().Unix())
	start := now + uint64(seconds)
	return s.create(ctx, creator, alias, start, start+3600, splitList(candidates))
}

func (s *surveySteps) createEmptySurvey(ctx context.Context, creator string) error {
	now := uint64(time.Now().Unix())
	return s.create(ctx, creator, "empty", now, now+60, nil)
}

func (s *surveySteps) path(alias, suffix string) (string, error) {
	surveyID, ok := s.tc.SurveyID(alias)
	if !ok {
		return "", fmt.Errorf("survey %q was never created", alias)
	}
	return "/surveys/" + surveyID + suffix, nil
}

func (s *surveySteps) vote(ctx context.Context, voter, candidate, alias string) error {
	path, err := s.path(alias, "/votes")
	if err != nil {
		return err
	}
	return s.tc.POST(ctx, path, map[string]any{"candidate": s.tc.Wallet(candidate)}, s.tc.BearerHeaders(voter))
}

func (s *surveySteps) voteAnonymously(ctx context.Context, alias string) error {
	path, err := s.path(alias, "/votes")
	if err != nil {
		return err
	}
	return s.tc.POST(ctx, path, map[string]any{"candidate": "GANY"}, nil)
}

func (s *surveySteps) requestResults(ctx context.Context, alias string) error {
	path, err := s.path(alias, "/results")
	if err != nil {
		return err
	}
	return s.tc.GET(ctx, path, nil)
}

func (s *surveySteps) requestSurvey(ctx context.Context, alias string) error {
	path, err := s.path(alias, "")
	if err != nil {
		return err
	}
	return s.tc.GET(ctx, path, nil)
}

func (s *surveySteps) requestVoterStatus(ctx context.Context, voter, alias string) error {
	path, err := s.path(alias, "/voters/"+s.tc.Wallet(voter))
	if err != nil {
		return err
	}
	return s.tc.GET(ctx, path, nil)
}

type resultsBody struct {
	Results []struct {
		Candidate string `json:"candidate"`
		Votes     uint64 `json:"votes"`
	} `json:"results"`
	TotalVotes uint64 `json:"total_votes"`
}

func (s *surveySteps) results() (*resultsBody, error) {
	var body resultsBody
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &body); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	return &body, nil
}

func (s *surveySteps) candidateShouldHave(_ context.Context, candidate string, want int) error {
	body, err := s.results()
	if err != nil {
		return err
	}
	wallet := s.tc.Wallet(candidate)
	for _, row := range body.Results {
		if row.Candidate == wallet {
			if row.Votes != uint64(want) {
				return fmt.Errorf("candidate %s has %d votes, want %d", candidate, row.Votes, want)
			}
			return nil
		}
	}
	return fmt.Errorf("candidate %s missing from results %s", candidate, s.tc.GetLastResponseBody())
}

func (s *surveySteps) resultsShouldTotal(_ context.Context, want int) error {
	body, err := s.results()
	if err != nil {
		return err
	}
	if body.TotalVotes != uint64(want) {
		return fmt.Errorf("total_votes = %d, want %d", body.TotalVotes, want)
	}
	return nil
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
