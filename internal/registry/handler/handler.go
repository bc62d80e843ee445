package handler

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"pollbook/internal/registry/models"
	"pollbook/internal/registry/service"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/platform/httputil"
	"pollbook/pkg/requestcontext"
)

// Service is the registry surface the transport needs.
type Service interface {
	RegisterCandidate(ctx context.Context, in service.CandidateInput) (bool, error)
	GetCandidate(ctx context.Context, wallet id.Address) (*models.Candidate, bool, error)
	ListCandidates(ctx context.Context) ([]id.Address, error)
	CandidateCount(ctx context.Context) (uint64, error)
	RegisterUser(ctx context.Context, in service.UserInput) (bool, error)
	GetUser(ctx context.Context, wallet id.Address) (*models.User, bool, error)
	ListUsers(ctx context.Context) ([]id.Address, error)
	UserCount(ctx context.Context) (uint64, error)
}

type Handler struct {
	service Service
	logger  *slog.Logger
}

func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts /candidates and /users. requireAuth guards registration.
func (h *Handler) Register(r chi.Router, requireAuth func(http.Handler) http.Handler) {
	r.Route("/candidates", func(r chi.Router) {
		r.With(requireAuth).Post("/", h.HandleRegisterCandidate)
		r.Get("/", h.HandleListCandidates)
		r.Get("/count", h.HandleCandidateCount)
		r.Get("/{wallet}", h.HandleGetCandidate)
	})
	r.Route("/users", func(r chi.Router) {
		r.With(requireAuth).Post("/", h.HandleRegisterUser)
		r.Get("/", h.HandleListUsers)
		r.Get("/count", h.HandleUserCount)
		r.Get("/{wallet}", h.HandleGetUser)
	})
}

// HandleRegisterCandidate handles POST /candidates. 201 when created, 200 with
// registered=false when the wallet was already present.
func (h *Handler) HandleRegisterCandidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterCandidateRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in := req.toInput()
	if in.Wallet.IsNil() {
		in.Wallet = requestcontext.Identity(ctx)
	}

	created, err := h.service.RegisterCandidate(ctx, in)
	if err != nil {
		h.logger.InfoContext(ctx, "candidate registration failed", "request_id", requestID, "wallet", in.Wallet, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, registerStatus(created), RegisterResponse{Registered: created, Wallet: in.Wallet})
}

func (h *Handler) HandleGetCandidate(w http.ResponseWriter, r *http.Request) {
	wallet, ok := parseWallet(w, r)
	if !ok {
		return
	}
	candidate, found, err := h.service.GetCandidate(r.Context(), wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !found {
		httputil.WriteError(w, models.ErrNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, candidate)
}

func (h *Handler) HandleListCandidates(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.service.ListCandidates(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Wallets: wallets})
}

func (h *Handler) HandleCandidateCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.CandidateCount(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

// HandleRegisterUser handles POST /users.
func (h *Handler) HandleRegisterUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[RegisterUserRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	in := req.toInput()
	if in.Wallet.IsNil() {
		in.Wallet = requestcontext.Identity(ctx)
	}

	created, err := h.service.RegisterUser(ctx, in)
	if err != nil {
		h.logger.InfoContext(ctx, "user registration failed", "request_id", requestID, "wallet", in.Wallet, "error", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, registerStatus(created), RegisterResponse{Registered: created, Wallet: in.Wallet})
}

func (h *Handler) HandleGetUser(w http.ResponseWriter, r *http.Request) {
	wallet, ok := parseWallet(w, r)
	if !ok {
		return
	}
	user, found, err := h.service.GetUser(r.Context(), wallet)
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	if !found {
		httputil.WriteError(w, models.ErrNotFound)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, user)
}

func (h *Handler) HandleListUsers(w http.ResponseWriter, r *http.Request) {
	wallets, err := h.service.ListUsers(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, ListResponse{Wallets: wallets})
}

func (h *Handler) HandleUserCount(w http.ResponseWriter, r *http.Request) {
	count, err := h.service.UserCount(r.Context())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountResponse{Count: count})
}

func registerStatus(created bool) int {
	if created {
		return http.StatusCreated
	}
	return http.StatusOK
}

func parseWallet(w http.ResponseWriter, r *http.Request) (id.Address, bool) {
	wallet, err := id.ParseAddress(chi.URLParam(r, "wallet"))
	if err != nil {
		httputil.WriteError(w, dErrors.Wrap(err, dErrors.CodeInvalidInput, "invalid wallet address"))
		return "", false
	}
	return wallet, true
}
