package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/suite"

	"pollbook/internal/audit"
	"pollbook/internal/ledger"
	"pollbook/internal/survey/metrics"
	"pollbook/internal/survey/models"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/requestcontext"
)

const (
	creator id.Address = "GCREATOR"
	admin   id.Address = "GADMIN"
	candX   id.Address = "GX"
	candY   id.Address = "GY"
)

type ServiceSuite struct {
	suite.Suite
	store   *ledger.InMemory
	audit   *audit.MemoryStore
	metrics *metrics.Metrics
	service *Service
}

func TestServiceSuite(t *testing.T) {
	suite.Run(t, new(ServiceSuite))
}

func (s *ServiceSuite) SetupTest() {
	s.store = ledger.NewInMemory()
	s.audit = audit.NewMemoryStore()
	s.metrics = metrics.New(prometheus.NewRegistry())
	s.service = New(s.store,
		WithAuditPublisher(audit.NewPublisher(s.audit)),
		WithMetrics(s.metrics),
	)
}

// as returns a context authenticated as addr at ledger time unix.
func as(addr id.Address, unix int64) context.Context {
	ctx := requestcontext.WithIdentity(context.Background(), addr)
	return requestcontext.WithTime(ctx, time.Unix(unix, 0))
}

func (s *ServiceSuite) createSurvey(candidates ...id.Address) id.SurveyID {
	created, err := s.service.CreateSurvey(as(creator, 500), CreateSurveyInput{
		Creator:    creator,
		Name:       "Lunch",
		StartTime:  1000,
		EndTime:    2000,
		Candidates: candidates,
	})
	s.Require().NoError(err)
	return created.ID
}

func (s *ServiceSuite) vote(surveyID id.SurveyID, voter, candidate id.Address, at int64) error {
	return s.service.Vote(as(voter, at), surveyID, voter, candidate)
}

func (s *ServiceSuite) tallies(surveyID id.SurveyID) map[id.Address]uint64 {
	results, err := s.service.Results(context.Background(), surveyID)
	s.Require().NoError(err)
	out := make(map[id.Address]uint64)
	for _, t := range results.Tallies {
		out[t.Candidate] = t.Votes
	}
	return out
}

// assertConsistent checks tally, vote record and roster agreement for a survey.
func (s *ServiceSuite) assertConsistent(surveyID id.SurveyID, voters []id.Address) {
	ctx := context.Background()
	results, err := s.service.Results(ctx, surveyID)
	s.Require().NoError(err)

	counted := make(map[id.Address]uint64)
	for _, v := range voters {
		c, ok, err := s.service.GetVote(ctx, surveyID, v)
		s.Require().NoError(err)
		if ok {
			counted[c]++
		}
	}
	var sum uint64
	seen := make(map[id.Address]bool)
	for _, t := range results.Tallies {
		s.Equal(counted[t.Candidate], t.Votes, "tally drift for %s", t.Candidate)
		if !seen[t.Candidate] {
			sum += t.Votes
			seen[t.Candidate] = true
		}
	}
	total, err := s.service.TotalVotes(ctx, surveyID)
	s.Require().NoError(err)
	s.Equal(sum, total)
	s.Equal(total, results.TotalVotes)
}

func (s *ServiceSuite) TestSingleVoteThenDuplicate() {
	surveyID := s.createSurvey(candX, candY)

	s.Require().NoError(s.vote(surveyID, "GV1", candX, 1500))
	s.Equal(map[id.Address]uint64{candX: 1, candY: 0}, s.tallies(surveyID))

	voted, err := s.service.HasVoted(context.Background(), surveyID, "GV1")
	s.Require().NoError(err)
	s.True(voted)

	for _, c := range []id.Address{candX, candY} {
		err := s.vote(surveyID, "GV1", c, 1600)
		s.Require().ErrorIs(err, models.ErrAlreadyVoted)
	}
	s.Equal(map[id.Address]uint64{candX: 1, candY: 0}, s.tallies(surveyID))

	got, ok, err := s.service.GetVote(context.Background(), surveyID, "GV1")
	s.Require().NoError(err)
	s.True(ok)
	s.Equal(candX, got)
	s.assertConsistent(surveyID, []id.Address{"GV1"})
}

func (s *ServiceSuite) TestEmptyCandidateSet() {
	s.createSurvey(candX)

	_, err := s.service.CreateSurvey(as(creator, 500), CreateSurveyInput{
		Creator: creator, StartTime: 1000, EndTime: 2000,
	})
	s.Require().ErrorIs(err, models.ErrInvalidCandidateSet)
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	count, err := s.service.SurveyCount(context.Background())
	s.Require().NoError(err)
	s.Equal(uint64(1), count)
}

func (s *ServiceSuite) TestInvertedWindow() {
	_, err := s.service.CreateSurvey(as(creator, 500), CreateSurveyInput{
		Creator: creator, StartTime: 2000, EndTime: 1000, Candidates: []id.Address{candX},
	})
	s.Require().ErrorIs(err, models.ErrInvalidTimeWindow)

	count, err := s.service.SurveyCount(context.Background())
	s.Require().NoError(err)
	s.Zero(count)
	_, found, err := s.service.GetSurvey(context.Background(), 1)
	s.Require().NoError(err)
	s.False(found)
}

func (s *ServiceSuite) TestUnknownCandidate() {
	surveyID := s.createSurvey(candX, candY)

	err := s.vote(surveyID, "GV1", "GZ", 1500)
	s.Require().ErrorIs(err, models.ErrInvalidCandidate)

	total, err := s.service.TotalVotes(context.Background(), surveyID)
	s.Require().NoError(err)
	s.Zero(total)
	voted, err := s.service.HasVoted(context.Background(), surveyID, "GV1")
	s.Require().NoError(err)
	s.False(voted)
	s.Equal(map[id.Address]uint64{candX: 0, candY: 0}, s.tallies(surveyID))
}

func (s *ServiceSuite) TestTwoVotersSameCandidate() {
	surveyID := s.createSurvey(candX, candY)

	s.Require().NoError(s.vote(surveyID, "GV1", candY, 1200))
	s.Require().NoError(s.vote(surveyID, "GV2", candY, 1300))

	results, err := s.service.Results(context.Background(), surveyID)
	s.Require().NoError(err)
	s.Equal([]models.CandidateTally{{Candidate: candX, Votes: 0}, {Candidate: candY, Votes: 2}}, results.Tallies)
	s.Equal(uint64(2), results.TotalVotes)
	s.assertConsistent(surveyID, []id.Address{"GV1", "GV2"})
}

func (s *ServiceSuite) TestSequentialIDs() {
	for want := id.SurveyID(1); want <= 5; want++ {
		s.Equal(want, s.createSurvey(candX))
	}
	count, err := s.service.SurveyCount(context.Background())
	s.Require().NoError(err)
	s.Equal(uint64(5), count)
	s.Equal(float64(5), testutil.ToFloat64(s.metrics.SurveysCreated))
}

func (s *ServiceSuite) TestListSurveys() {
	for range 5 {
		s.createSurvey(candX, candY)
	}

	s.Run("window in id order with derived phase", func() {
		page, err := s.service.ListSurveys(as(creator, 1500), 1, 2)
		s.Require().NoError(err)
		s.Equal(uint64(5), page.Total)
		s.Equal(uint64(1), page.Offset)
		s.Equal(uint64(2), page.Limit)
		s.Require().Len(page.Surveys, 2)
		s.Equal(id.SurveyID(2), page.Surveys[0].Survey.ID)
		s.Equal(id.SurveyID(3), page.Surveys[1].Survey.ID)
		s.Equal(models.PhaseOpen, page.Surveys[0].Phase)
	})

	s.Run("phase follows the request time", func() {
		page, err := s.service.ListSurveys(as(creator, 2500), 0, 1)
		s.Require().NoError(err)
		s.Require().Len(page.Surveys, 1)
		s.Equal(models.PhaseClosed, page.Surveys[0].Phase)
	})

	s.Run("zero limit uses the default", func() {
		page, err := s.service.ListSurveys(context.Background(), 0, 0)
		s.Require().NoError(err)
		s.Equal(DefaultListLimit, page.Limit)
		s.Len(page.Surveys, 5)
	})

	s.Run("limit is clamped", func() {
		page, err := s.service.ListSurveys(context.Background(), 0, MaxListLimit+1)
		s.Require().NoError(err)
		s.Equal(MaxListLimit, page.Limit)
	})

	s.Run("offset past the end is empty", func() {
		page, err := s.service.ListSurveys(context.Background(), 5, 10)
		s.Require().NoError(err)
		s.Equal(uint64(5), page.Total)
		s.NotNil(page.Surveys)
		s.Empty(page.Surveys)
	})
}

func (s *ServiceSuite) TestListSurveysOnEmptyLedger() {
	page, err := s.service.ListSurveys(context.Background(), 0, 10)
	s.Require().NoError(err)
	s.Zero(page.Total)
	s.Empty(page.Surveys)
}

func (s *ServiceSuite) TestCreateSurveyRecordsState() {
	surveyID := s.createSurvey(candX, candY)
	ctx := context.Background()

	survey, found, err := s.service.GetSurvey(ctx, surveyID)
	s.Require().NoError(err)
	s.Require().True(found)
	s.Equal(creator, survey.Creator)
	s.Equal([]id.Address{candX, candY}, survey.Candidates)
	s.Equal(models.PhaseCreated, s.service.Phase(as("", 999), survey))
	s.Equal(models.PhaseOpen, s.service.Phase(as("", 2000), survey))
	s.Equal(models.PhaseClosed, s.service.Phase(as("", 2001), survey))

	for _, key := range []ledger.Key{
		ledger.SurveyKey(surveyID),
		ledger.VoterListKey(surveyID),
		ledger.VoteCountKey(surveyID, candX),
		ledger.SurveyCountKey,
	} {
		at, ok, err := s.store.ExpiresAt(ctx, key)
		s.Require().NoError(err)
		s.True(ok, "lifetime for %s", key)
		s.True(at.Equal(time.Unix(500, 0).Add(DefaultKeyTTL)), "lifetime for %s", key)
	}

	events, err := s.audit.ListBySurvey(ctx, surveyID)
	s.Require().NoError(err)
	s.Require().Len(events, 1)
	s.Equal(audit.EventSurveyCreated, events[0].Action)
}

func (s *ServiceSuite) TestDuplicateCandidatesAreNotDeduplicated() {
	surveyID := s.createSurvey(candX, candY, candX)
	s.Require().NoError(s.vote(surveyID, "GV1", candX, 1500))

	results, err := s.service.Results(context.Background(), surveyID)
	s.Require().NoError(err)
	s.Equal([]models.CandidateTally{
		{Candidate: candX, Votes: 1},
		{Candidate: candY, Votes: 0},
		{Candidate: candX, Votes: 1},
	}, results.Tallies)
	s.Equal(uint64(1), results.TotalVotes)
	s.assertConsistent(surveyID, []id.Address{"GV1"})
}

func (s *ServiceSuite) TestVoteOutsideWindow() {
	surveyID := s.createSurvey(candX)

	s.Run("before start", func() {
		err := s.vote(surveyID, "GV1", candX, 999)
		s.Require().ErrorIs(err, models.ErrSurveyNotOpen)
		s.Require().ErrorIs(err, models.ErrSurveyNotStarted)
	})

	s.Run("after end", func() {
		err := s.vote(surveyID, "GV1", candX, 2001)
		s.Require().ErrorIs(err, models.ErrSurveyNotOpen)
		s.Require().ErrorIs(err, models.ErrSurveyEnded)
	})

	s.Run("bounds are inclusive", func() {
		s.Require().NoError(s.vote(surveyID, "GV2", candX, 1000))
		s.Require().NoError(s.vote(surveyID, "GV3", candX, 2000))
	})

	voted, err := s.service.HasVoted(context.Background(), surveyID, "GV1")
	s.Require().NoError(err)
	s.False(voted)
	s.Equal(map[id.Address]uint64{candX: 2}, s.tallies(surveyID))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.VotesRejected.WithLabelValues("not_started")))
	s.Equal(float64(1), testutil.ToFloat64(s.metrics.VotesRejected.WithLabelValues("ended")))
}

func (s *ServiceSuite) TestVoteCheckOrder() {
	surveyID := s.createSurvey(candX)

	s.Run("identity is checked before the survey exists", func() {
		err := s.service.Vote(as("GOTHER", 1500), 99, "GV1", candX)
		s.Require().ErrorIs(err, models.ErrUnauthorized)
	})

	s.Run("unknown survey before window", func() {
		err := s.vote(99, "GV1", candX, 1)
		s.Require().ErrorIs(err, models.ErrSurveyNotFound)
	})

	s.Run("window before candidate", func() {
		err := s.vote(surveyID, "GV1", "GZ", 1)
		s.Require().ErrorIs(err, models.ErrSurveyNotOpen)
	})

	s.Run("candidate before prior vote", func() {
		s.Require().NoError(s.vote(surveyID, "GV1", candX, 1500))
		err := s.vote(surveyID, "GV1", "GZ", 1500)
		s.Require().ErrorIs(err, models.ErrInvalidCandidate)
	})
}

func (s *ServiceSuite) TestUnauthorized() {
	s.Run("create as someone else", func() {
		_, err := s.service.CreateSurvey(as("GMALLORY", 500), CreateSurveyInput{
			Creator: creator, StartTime: 1000, EndTime: 2000, Candidates: []id.Address{candX},
		})
		s.Require().ErrorIs(err, models.ErrUnauthorized)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("unauthenticated create", func() {
		_, err := s.service.CreateSurvey(context.Background(), CreateSurveyInput{
			Creator: creator, StartTime: 1000, EndTime: 2000, Candidates: []id.Address{candX},
		})
		s.Require().ErrorIs(err, models.ErrUnauthorized)
	})

	s.Run("empty identity never authorizes", func() {
		err := s.service.Initialize(context.Background(), "")
		s.Require().ErrorIs(err, models.ErrUnauthorized)
	})
}

func (s *ServiceSuite) TestAccessorsOnAbsentData() {
	ctx := context.Background()

	total, err := s.service.TotalVotes(ctx, 42)
	s.Require().NoError(err)
	s.Zero(total)

	voted, err := s.service.HasVoted(ctx, 42, "GV1")
	s.Require().NoError(err)
	s.False(voted)

	_, ok, err := s.service.GetVote(ctx, 42, "GV1")
	s.Require().NoError(err)
	s.False(ok)

	survey, found, err := s.service.GetSurvey(ctx, 42)
	s.Require().NoError(err)
	s.False(found)
	s.Nil(survey)

	_, err = s.service.Results(ctx, 42)
	s.Require().ErrorIs(err, models.ErrSurveyNotFound)

	fee, err := s.service.VoteFee(ctx)
	s.Require().NoError(err)
	s.Equal("1000000", fee.String())
}

func (s *ServiceSuite) TestInitializeIsIdempotent() {
	svc := New(s.store, WithVoteFee(models.NewAmount(250)), WithAuditPublisher(audit.NewPublisher(s.audit)))

	s.Require().NoError(svc.Initialize(as(admin, 10), admin))
	fee, err := svc.VoteFee(context.Background())
	s.Require().NoError(err)
	s.Equal("250", fee.String())

	_, err = svc.CreateSurvey(as(creator, 500), CreateSurveyInput{
		Creator: creator, StartTime: 1000, EndTime: 2000, Candidates: []id.Address{candX},
	})
	s.Require().NoError(err)

	other := New(s.store, WithVoteFee(models.NewAmount(999)))
	s.Require().NoError(other.Initialize(as(admin, 20), admin))

	count, err := svc.SurveyCount(context.Background())
	s.Require().NoError(err)
	s.Equal(uint64(1), count, "re-initializing keeps the survey counter")
	fee, err = other.VoteFee(context.Background())
	s.Require().NoError(err)
	s.Equal("250", fee.String(), "re-initializing keeps the fee")

	events, err := s.audit.ListByActor(context.Background(), admin)
	s.Require().NoError(err)
	s.Len(events, 1)
}

func (s *ServiceSuite) TestConcurrentSameVoter() {
	surveyID := s.createSurvey(candX, candY)
	runConcurrentSameVoter(s.T(), s.service, surveyID)
	s.assertConsistent(surveyID, []id.Address{"GRACER"})
}

func (s *ServiceSuite) TestConcurrentDistinctVoters() {
	surveyID := s.createSurvey(candX, candY)
	const voters = 40

	var wg sync.WaitGroup
	all := make([]id.Address, voters)
	for i := range voters {
		all[i] = id.Address(fmt.Sprintf("GV%02d", i))
		candidate := candX
		if i%3 == 0 {
			candidate = candY
		}
		wg.Add(1)
		go func(voter, candidate id.Address) {
			defer wg.Done()
			s.NoError(s.vote(surveyID, voter, candidate, 1500))
		}(all[i], candidate)
	}
	wg.Wait()

	s.Equal(map[id.Address]uint64{candX: 26, candY: 14}, s.tallies(surveyID))
	s.assertConsistent(surveyID, all)
}

func (s *ServiceSuite) TestStoreFailureIsUnavailable() {
	s.Require().NoError(s.store.Close())
	_, err := s.service.SurveyCount(context.Background())
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeUnavailable))

	err = s.vote(1, "GV1", candX, 1500)
	s.Require().Error(err)
	s.False(errors.Is(err, models.ErrSurveyNotFound))
}

// runConcurrentSameVoter races one voter against itself and expects exactly one success.
func runConcurrentSameVoter(t *testing.T, svc *Service, surveyID id.SurveyID) {
	t.Helper()
	const attempts = 16
	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := range attempts {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			candidate := candX
			if i%2 == 1 {
				candidate = candY
			}
			errs[i] = svc.Vote(as("GRACER", 1500), surveyID, "GRACER", candidate)
		}(i)
	}
	wg.Wait()

	var ok, dup int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, models.ErrAlreadyVoted):
			dup++
		default:
			t.Errorf("unexpected error: %v", err)
		}
	}
	if ok != 1 || dup != attempts-1 {
		t.Fatalf("want 1 success and %d duplicates, got %d and %d", attempts-1, ok, dup)
	}
}
