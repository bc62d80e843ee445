package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"pollbook/internal/audit"
	"pollbook/internal/survey/models"
	"pollbook/internal/survey/service"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/platform/httputil"
	"pollbook/pkg/requestcontext"
)

// Service is the survey engine surface the transport needs.
type Service interface {
	Initialize(ctx context.Context, admin id.Address) error
	CreateSurvey(ctx context.Context, in service.CreateSurveyInput) (*models.Survey, error)
	Vote(ctx context.Context, surveyID id.SurveyID, voter, candidate id.Address) error
	Results(ctx context.Context, surveyID id.SurveyID) (*models.Results, error)
	TotalVotes(ctx context.Context, surveyID id.SurveyID) (uint64, error)
	HasVoted(ctx context.Context, surveyID id.SurveyID, voter id.Address) (bool, error)
	GetVote(ctx context.Context, surveyID id.SurveyID, voter id.Address) (id.Address, bool, error)
	GetSurvey(ctx context.Context, surveyID id.SurveyID) (*models.Survey, bool, error)
	ListSurveys(ctx context.Context, offset, limit uint64) (*models.SurveyPage, error)
	SurveyCount(ctx context.Context) (uint64, error)
	VoteFee(ctx context.Context) (models.Amount, error)
	Phase(ctx context.Context, survey *models.Survey) models.Phase
}

// AuditReader lists retained audit events for one survey, oldest first.
type AuditReader interface {
	ListBySurvey(ctx context.Context, surveyID id.SurveyID) ([]audit.Event, error)
}

// Handler wires survey endpoints to the engine.
type Handler struct {
	service Service
	audit   AuditReader
	logger  *slog.Logger
}

type Option func(*Handler)

// WithAuditReader mounts GET /admin/surveys/{surveyID}/audit.
func WithAuditReader(reader AuditReader) Option {
	return func(h *Handler) {
		h.audit = reader
	}
}

func New(service Service, logger *slog.Logger, opts ...Option) *Handler {
	h := &Handler{service: service, logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the public survey routes. requireAuth guards mutations.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/surveys", func(r chi.Router) {
		r.With(requireAuth).Post("/", h.HandleCreateSurvey)
		r.Get("/", h.HandleListSurveys)
		r.Get("/count", h.HandleSurveyCount)
		r.Get("/vote-fee", h.HandleVoteFee)
		r.Route("/{surveyID}", func(r chi.Router) {
			r.Get("/", h.HandleGetSurvey)
			r.With(requireAuth).Post("/votes", h.HandleVote)
			r.Get("/results", h.HandleResults)
			r.Get("/total-votes", h.HandleTotalVotes)
			r.Get("/voters/{voter}", h.HandleVoterStatus)
		})
	})
}

// RegisterAdmin mounts the admin routes; the caller applies admin middleware.
func (h *Handler) RegisterAdmin(r chi.Router) {
	r.Post("/admin/initialize", h.HandleInitialize)
	if h.audit != nil {
		r.Get("/admin/surveys/{surveyID}/audit", h.HandleAuditTrail)
	}
}

// HandleInitialize handles POST /admin/initialize.
func (h *Handler) HandleInitialize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[InitializeRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	admin := req.admin
	if admin.IsNil() {
		admin = requestcontext.Identity(ctx)
	}

	if err := h.service.Initialize(ctx, admin); err != nil {
		h.logFailure(ctx, "initialize failed", requestID, err, "admin", admin)
		httputil.WriteError(w, err)
		return
	}
	fee, err := h.service.VoteFee(ctx)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, InitializeResponse{Initialized: true, VoteFee: fee})
}

// HandleCreateSurvey handles POST /surveys.
func (h *Handler) HandleCreateSurvey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	req, ok := httputil.DecodeAndPrepare[CreateSurveyRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in := req.toInput()
	if in.Creator.IsNil() {
		in.Creator = requestcontext.Identity(ctx)
	}

	survey, err := h.service.CreateSurvey(ctx, in)
	if err != nil {
		h.logFailure(ctx, "create survey failed", requestID, err, "creator", in.Creator)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "survey created",
		"request_id", requestID,
		"survey_id", survey.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	httputil.WriteJSON(w, http.StatusCreated, CreateSurveyResponse{
		SurveyID: survey.ID,
		Survey:   toSurveyResponse(survey, h.service.Phase(ctx, survey)),
	})
}

// HandleVote handles POST /surveys/{surveyID}/votes.
func (h *Handler) HandleVote(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	surveyID, ok := parseSurveyID(w, r)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[VoteRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	voter := req.voter
	if voter.IsNil() {
		voter = requestcontext.Identity(ctx)
	}

	if err := h.service.Vote(ctx, surveyID, voter, req.candidate); err != nil {
		h.logFailure(ctx, "vote rejected", requestID, err, "survey_id", surveyID, "voter", voter)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, VoteResponse{
		Success:   true,
		SurveyID:  surveyID,
		Voter:     voter,
		Candidate: req.candidate,
	})
}

// HandleGetSurvey handles GET /surveys/{surveyID}.
func (h *Handler) HandleGetSurvey(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	surveyID, ok := parseSurveyID(w, r)
	if !ok {
		return
	}
	survey, found, err := h.service.GetSurvey(ctx, surveyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !found {
		httputil.WriteError(w, models.ErrSurveyNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSurveyResponse(survey, h.service.Phase(ctx, survey)))
}

// HandleListSurveys handles GET /surveys?offset=&limit=.
func (h *Handler) HandleListSurveys(w http.ResponseWriter, r *http.Request) {
	offset, err := parseQueryUint(r, "offset")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	limit, err := parseQueryUint(r, "limit")
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListSurveys(r.Context(), offset, limit)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toSurveyListResponse(page))
}

// HandleResults handles GET /surveys/{surveyID}/results.
func (h *Handler) HandleResults(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := parseSurveyID(w, r)
	if !ok {
		return
	}
	results, err := h.service.Results(r.Context(), surveyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, toResultsResponse(results))
}

// HandleTotalVotes handles GET /surveys/{surveyID}/total-votes.
func (h *Handler) HandleTotalVotes(w http.ResponseWriter, r *http.Request) {
	surveyID, ok := parseSurveyID(w, r)
	if !ok {
		return
	}
	total, err := h.service.TotalVotes(r.Context(), surveyID)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TotalVotesResponse{SurveyID: surveyID, TotalVotes: total})
}

// HandleVoterStatus handles GET /surveys/{surveyID}/voters/{voter}.
func (h *Handler) HandleVoterStatus(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	surveyID, ok := parseSurveyID(w, r)
	if !ok {
		return
	}
	voter, err := id.ParseAddress(chi.URLParam(r, "voter"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}

	candidate, voted, err := h.service.GetVote(ctx, surveyID, voter)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	resp := VoterStatusResponse{SurveyID: surveyID, Voter: voter, HasVoted: voted}
	if voted {
		resp.Candidate = &candidate
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleAuditTrail handles GET /admin/surveys/{surveyID}/audit.
func (h *Handler) HandleAuditTrail(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	surveyID, ok := parseSurveyID(w, r)
	if !ok {
		return
	}
	events, err := h.audit.ListBySurvey(ctx, surveyID)
	if err != nil {
		h.logFailure(ctx, "audit read failed", requestcontext.RequestID(ctx), err, "survey_id", surveyID)
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInternal, "failed to read audit trail"))
		return
	}
	httputil.WriteJSON(w, http.StatusOK, AuditTrailResponse{SurveyID: surveyID, Events: events})
}

// HandleSurveyCount handles GET /surveys/count.
func (h *Handler) HandleSurveyCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.SurveyCount(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

// HandleVoteFee handles GET /surveys/vote-fee.
func (h *Handler) HandleVoteFee(w http.ResponseWriter, r *http.Request) {
	fee, err := h.service.VoteFee(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, VoteFeeResponse{VoteFee: fee, Unit: "stroops"})
}

func parseSurveyID(w http.ResponseWriter, r *http.Request) (id.SurveyID, bool) {
	surveyID, err := id.ParseSurveyID(chi.URLParam(r, "surveyID"))
	if err != nil {
		httputil.WriteError(w, err)
		return 0, false
	}
	return surveyID, true
}

// parseQueryUint returns 0 when the parameter is absent.
func parseQueryUint(r *http.Request, name string) (uint64, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, dErrors.New(dErrors.CodeValidation, name+" must be a non-negative integer")
	}
	return n, nil
}

// logFailure logs server-side failures at error level and client mistakes at info.
func (h *Handler) logFailure(ctx context.Context, msg, requestID string, err error, attrs ...any) {
	args := append([]any{"request_id", requestID, "error", err}, attrs...)
	if dErrors.ToHTTPStatus(dErrors.CodeOf(err)) >= http.StatusInternalServerError {
		h.logger.ErrorContext(ctx, msg, args...)
		return
	}
	h.logger.InfoContext(ctx, msg, args...)
}
