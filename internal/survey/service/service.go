// Package service is the survey engine: survey creation, vote recording and
// tally reads over the ledger.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"pollbook/internal/audit"
	"pollbook/internal/ledger"
	"pollbook/internal/survey/metrics"
	"pollbook/internal/survey/models"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/platform/sentinel"
	"pollbook/pkg/requestcontext"
)

// DefaultKeyTTL is how far each write pushes a key's recorded lifetime.
const DefaultKeyTTL = 100 * 24 * time.Hour

const (
	DefaultListLimit uint64 = 20
	MaxListLimit     uint64 = 100
)

type AuditPublisher interface {
	Emit(ctx context.Context, event audit.Event) error
}

// Service owns surveys, vote records, tallies and rosters. Every public
// operation is one ledger transaction.
type Service struct {
	store          ledger.Store
	logger         *slog.Logger
	auditPublisher AuditPublisher
	metrics        *metrics.Metrics
	tracer         trace.Tracer
	keyTTL         time.Duration
	voteFee        models.Amount
}

type Option func(s *Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		s.tracer = tracer
	}
}

// WithKeyTTL sets the lifetime extension applied after each write.
func WithKeyTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.keyTTL = ttl
		}
	}
}

// WithVoteFee sets the fee Initialize records.
func WithVoteFee(fee models.Amount) Option {
	return func(s *Service) {
		s.voteFee = fee
	}
}

func New(store ledger.Store, opts ...Option) *Service {
	s := &Service{
		store:   store,
		tracer:  otel.Tracer("pollbook/survey"),
		keyTTL:  DefaultKeyTTL,
		voteFee: models.NewAmount(models.DefaultVoteFee),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateSurveyInput carries create_survey arguments. Times are unix seconds.
type CreateSurveyInput struct {
	Creator     id.Address
	Name        string
	Description string
	StartTime   uint64
	EndTime     uint64
	Candidates  []id.Address
}

// Initialize records the vote fee and a zero survey counter when absent.
// A second call changes nothing.
func (s *Service) Initialize(ctx context.Context, admin id.Address) error {
	if err := authorize(ctx, admin); err != nil {
		return err
	}

	var wrote bool
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		wrote = false
		hasFee, err := tx.Has(ctx, ledger.VoteFeeKey)
		if err != nil {
			return err
		}
		if !hasFee {
			if err := tx.Put(ctx, ledger.VoteFeeKey, []byte(s.voteFee.String())); err != nil {
				return err
			}
			wrote = true
		}
		hasCount, err := tx.Has(ctx, ledger.SurveyCountKey)
		if err != nil {
			return err
		}
		if !hasCount {
			if err := ledger.PutUint64(ctx, tx, ledger.SurveyCountKey, 0); err != nil {
				return err
			}
			wrote = true
		}
		return s.extend(ctx, tx, ledger.VoteFeeKey, ledger.SurveyCountKey)
	})
	if err != nil {
		return translateStoreErr(err, "failed to initialize ledger")
	}

	if wrote {
		s.logAudit(ctx, audit.Event{Action: audit.EventLedgerInitialized, Actor: admin},
			"admin", admin, "vote_fee", s.voteFee.String())
	}
	return nil
}

// CreateSurvey allocates the next sequential id and persists the survey with
// an empty roster and a zero tally per candidate.
func (s *Service) CreateSurvey(ctx context.Context, in CreateSurveyInput) (*models.Survey, error) {
	start := time.Now()
	defer s.observeCreateSurvey(start)

	ctx, span := s.tracer.Start(ctx, "survey.CreateSurvey")
	defer span.End()

	if err := authorize(ctx, in.Creator); err != nil {
		return nil, recordSpanErr(span, err)
	}
	if err := models.ValidateDraft(in.StartTime, in.EndTime, in.Candidates); err != nil {
		return nil, recordSpanErr(span, err)
	}

	var created *models.Survey
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		count, err := ledger.Uint64Or(ctx, tx, ledger.SurveyCountKey, 0)
		if err != nil {
			return err
		}
		surveyID := id.SurveyID(count + 1)
		survey, err := models.NewSurvey(surveyID, in.Creator, in.Name, in.Description, in.StartTime, in.EndTime, in.Candidates)
		if err != nil {
			return err
		}

		if err := ledger.CreateJSON(ctx, tx, ledger.SurveyKey(surveyID), survey); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return dErrors.Wrap(err, dErrors.CodeConflict, "survey id allocation raced, retry")
			}
			return err
		}
		if err := ledger.PutUint64(ctx, tx, ledger.SurveyCountKey, uint64(surveyID)); err != nil {
			return err
		}
		if err := ledger.PutJSON(ctx, tx, ledger.VoterListKey(surveyID), []id.Address{}); err != nil {
			return err
		}

		written := []ledger.Key{ledger.SurveyKey(surveyID), ledger.SurveyCountKey, ledger.VoterListKey(surveyID)}
		for _, c := range survey.DistinctCandidates() {
			key := ledger.VoteCountKey(surveyID, c)
			if err := ledger.PutUint64(ctx, tx, key, 0); err != nil {
				return err
			}
			written = append(written, key)
		}
		if err := s.extend(ctx, tx, written...); err != nil {
			return err
		}
		created = survey
		return nil
	})
	if err != nil {
		return nil, recordSpanErr(span, translateStoreErr(err, "failed to create survey"))
	}

	span.SetAttributes(attribute.Int64("survey.id", int64(created.ID)))
	s.incrementSurveysCreated()
	s.logAudit(ctx, audit.Event{Action: audit.EventSurveyCreated, Actor: in.Creator, SurveyID: created.ID},
		"survey_id", created.ID, "creator", in.Creator, "candidates", len(created.Candidates))
	return created, nil
}

// Vote records one vote. Checks run in order and the first failure aborts
// with no writes: caller identity, survey existence, open window, candidate
// membership, prior vote. On success the vote record, the tally increment and
// the roster append commit together.
func (s *Service) Vote(ctx context.Context, surveyID id.SurveyID, voter, candidate id.Address) error {
	start := time.Now()
	defer s.observeVote(start)

	ctx, span := s.tracer.Start(ctx, "survey.Vote", trace.WithAttributes(
		attribute.Int64("survey.id", int64(surveyID)),
	))
	defer span.End()

	if err := authorize(ctx, voter); err != nil {
		s.incrementVotesRejected(err)
		return recordSpanErr(span, err)
	}

	now := ledgerTime(ctx)
	err := s.store.RunInTx(ctx, func(ctx context.Context, tx ledger.Tx) error {
		survey, found, err := ledger.GetJSON[models.Survey](ctx, tx, ledger.SurveyKey(surveyID))
		if err != nil {
			return err
		}
		if !found {
			return models.ErrSurveyNotFound
		}
		if err := survey.CheckOpen(now); err != nil {
			return err
		}
		if !survey.HasCandidate(candidate) {
			return models.ErrInvalidCandidate
		}

		voteKey := ledger.VoteKey(surveyID, voter)
		if err := tx.Create(ctx, voteKey, []byte(candidate)); err != nil {
			if errors.Is(err, sentinel.ErrAlreadyUsed) {
				return models.ErrAlreadyVoted
			}
			return err
		}

		tallyKey := ledger.VoteCountKey(surveyID, candidate)
		tally, err := ledger.Uint64Or(ctx, tx, tallyKey, 0)
		if err != nil {
			return err
		}
		if err := ledger.PutUint64(ctx, tx, tallyKey, tally+1); err != nil {
			return err
		}

		rosterKey := ledger.VoterListKey(surveyID)
		roster, _, err := ledger.GetJSON[[]id.Address](ctx, tx, rosterKey)
		if err != nil {
			return err
		}
		if err := ledger.PutJSON(ctx, tx, rosterKey, append(roster, voter)); err != nil {
			return err
		}

		return s.extend(ctx, tx, voteKey, tallyKey, rosterKey, ledger.SurveyKey(surveyID))
	})
	if err != nil {
		err = translateStoreErr(err, "failed to record vote")
		s.incrementVotesRejected(err)
		return recordSpanErr(span, err)
	}

	s.incrementVotesCast()
	s.logAudit(ctx, audit.Event{Action: audit.EventVoteCast, Actor: voter, SurveyID: surveyID, Subject: candidate.String()},
		"survey_id", surveyID, "voter", voter, "candidate", candidate)
	return nil
}

// Results reads one tally per listed candidate, in list order.
func (s *Service) Results(ctx context.Context, surveyID id.SurveyID) (*models.Results, error) {
	start := time.Now()
	defer s.observeResults(start)

	ctx, span := s.tracer.Start(ctx, "survey.Results", trace.WithAttributes(
		attribute.Int64("survey.id", int64(surveyID)),
	))
	defer span.End()

	var results *models.Results
	err := s.store.View(ctx, func(ctx context.Context, r ledger.Reader) error {
		survey, found, err := ledger.GetJSON[models.Survey](ctx, r, ledger.SurveyKey(surveyID))
		if err != nil {
			return err
		}
		if !found {
			return models.ErrSurveyNotFound
		}

		tallies := make([]models.CandidateTally, 0, len(survey.Candidates))
		for _, c := range survey.Candidates {
			n, err := ledger.Uint64Or(ctx, r, ledger.VoteCountKey(surveyID, c), 0)
			if err != nil {
				return err
			}
			tallies = append(tallies, models.CandidateTally{Candidate: c, Votes: n})
		}
		roster, _, err := ledger.GetJSON[[]id.Address](ctx, r, ledger.VoterListKey(surveyID))
		if err != nil {
			return err
		}
		results = &models.Results{SurveyID: surveyID, Tallies: tallies, TotalVotes: uint64(len(roster))}
		return nil
	})
	if err != nil {
		return nil, recordSpanErr(span, translateStoreErr(err, "failed to load results"))
	}
	return results, nil
}

// TotalVotes is the roster length, 0 for unknown surveys.
func (s *Service) TotalVotes(ctx context.Context, surveyID id.SurveyID) (uint64, error) {
	roster, _, err := ledger.GetJSON[[]id.Address](ctx, s.store, ledger.VoterListKey(surveyID))
	if err != nil {
		return 0, translateStoreErr(err, "failed to load voter roster")
	}
	return uint64(len(roster)), nil
}

func (s *Service) HasVoted(ctx context.Context, surveyID id.SurveyID, voter id.Address) (bool, error) {
	ok, err := s.store.Has(ctx, ledger.VoteKey(surveyID, voter))
	if err != nil {
		return false, translateStoreErr(err, "failed to check vote")
	}
	return ok, nil
}

// GetVote returns the candidate voter chose; ok is false when no vote exists.
func (s *Service) GetVote(ctx context.Context, surveyID id.SurveyID, voter id.Address) (id.Address, bool, error) {
	raw, err := s.store.Get(ctx, ledger.VoteKey(surveyID, voter))
	if errors.Is(err, sentinel.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, translateStoreErr(err, "failed to load vote")
	}
	return id.Address(raw), true, nil
}

// GetSurvey returns nil, false for unknown ids.
func (s *Service) GetSurvey(ctx context.Context, surveyID id.SurveyID) (*models.Survey, bool, error) {
	survey, found, err := ledger.GetJSON[models.Survey](ctx, s.store, ledger.SurveyKey(surveyID))
	if err != nil {
		return nil, false, translateStoreErr(err, "failed to load survey")
	}
	if !found {
		return nil, false, nil
	}
	return &survey, true, nil
}

func (s *Service) SurveyCount(ctx context.Context) (uint64, error) {
	n, err := ledger.Uint64Or(ctx, s.store, ledger.SurveyCountKey, 0)
	if err != nil {
		return 0, translateStoreErr(err, "failed to load survey count")
	}
	return n, nil
}

// ListSurveys reads the survey count and surveys offset+1..offset+limit in
// one view. A zero limit means DefaultListLimit; larger limits are clamped to
// MaxListLimit. Ids whose survey record is gone are skipped.
func (s *Service) ListSurveys(ctx context.Context, offset, limit uint64) (*models.SurveyPage, error) {
	if limit == 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	ctx, span := s.tracer.Start(ctx, "survey.ListSurveys", trace.WithAttributes(
		attribute.Int64("list.offset", int64(offset)),
		attribute.Int64("list.limit", int64(limit)),
	))
	defer span.End()

	now := ledgerTime(ctx)
	var page *models.SurveyPage
	err := s.store.View(ctx, func(ctx context.Context, r ledger.Reader) error {
		total, err := ledger.Uint64Or(ctx, r, ledger.SurveyCountKey, 0)
		if err != nil {
			return err
		}
		page = &models.SurveyPage{Surveys: []models.SurveyListing{}, Total: total, Offset: offset, Limit: limit}
		if offset >= total {
			return nil
		}
		last := min(offset+limit, total)
		for n := offset + 1; n <= last; n++ {
			survey, found, err := ledger.GetJSON[models.Survey](ctx, r, ledger.SurveyKey(id.SurveyID(n)))
			if err != nil {
				return err
			}
			if !found {
				continue
			}
			page.Surveys = append(page.Surveys, models.SurveyListing{Survey: survey, Phase: survey.PhaseAt(now)})
		}
		return nil
	})
	if err != nil {
		return nil, recordSpanErr(span, translateStoreErr(err, "failed to list surveys"))
	}
	return page, nil
}

// VoteFee returns the recorded fee, or the default when Initialize never ran.
func (s *Service) VoteFee(ctx context.Context) (models.Amount, error) {
	raw, err := s.store.Get(ctx, ledger.VoteFeeKey)
	if errors.Is(err, sentinel.ErrNotFound) {
		return models.NewAmount(models.DefaultVoteFee), nil
	}
	if err != nil {
		return models.Amount{}, translateStoreErr(err, "failed to load vote fee")
	}
	fee, err := models.ParseAmount(string(raw))
	if err != nil {
		return models.Amount{}, dErrors.Wrap(sentinel.ErrInvalidState, dErrors.CodeInternal, "stored vote fee is corrupt")
	}
	return fee, nil
}

// Phase derives the survey phase at the request's ledger time.
func (s *Service) Phase(ctx context.Context, survey *models.Survey) models.Phase {
	return survey.PhaseAt(ledgerTime(ctx))
}

func (s *Service) extend(ctx context.Context, tx ledger.Tx, keys ...ledger.Key) error {
	for _, key := range keys {
		if err := tx.Extend(ctx, key, s.keyTTL); err != nil {
			return err
		}
	}
	return nil
}

// authorize checks that the request was authenticated as addr.
func authorize(ctx context.Context, addr id.Address) error {
	if addr.IsNil() || requestcontext.Identity(ctx) != addr {
		return models.ErrUnauthorized
	}
	return nil
}

// ledgerTime is the request time in unix seconds; instants before the epoch read as 0.
func ledgerTime(ctx context.Context) uint64 {
	sec := requestcontext.Now(ctx).Unix()
	if sec < 0 {
		return 0
	}
	return uint64(sec)
}

// translateStoreErr keeps coded errors and maps store facts onto codes.
func translateStoreErr(err error, msg string) error {
	var coded *dErrors.Error
	if errors.As(err, &coded) {
		return err
	}
	switch {
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
		return dErrors.Wrap(err, dErrors.CodeTimeout, msg)
	case errors.Is(err, sentinel.ErrUnavailable):
		return dErrors.Wrap(err, dErrors.CodeUnavailable, msg)
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, msg)
	}
}

func recordSpanErr(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, string(dErrors.CodeOf(err)))
	return err
}
