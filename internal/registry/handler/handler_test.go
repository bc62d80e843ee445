package handler

import (
	"io"
	"log/slog"
	"net/http"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"pollbook/internal/registry/handler/mocks"
	"pollbook/internal/registry/models"
	"pollbook/internal/registry/service"
	id "pollbook/pkg/domain"
	dErrors "pollbook/pkg/domain-errors"
	"pollbook/pkg/testutil"
)

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

type HandlerSuite struct {
	suite.Suite
	service *mocks.MockService
	router  chi.Router
}

func TestHandlerSuite(t *testing.T) {
	suite.Run(t, new(HandlerSuite))
}

func (s *HandlerSuite) SetupTest() {
	s.service = mocks.NewMockService(gomock.NewController(s.T()))
	h := New(s.service, slog.New(slog.NewTextHandler(io.Discard, nil)))
	s.router = chi.NewRouter()
	h.Register(s.router, func(next http.Handler) http.Handler { return next })
}

func (s *HandlerSuite) TestRegisterCandidate() {
	s.Run("created", func() {
		s.service.EXPECT().RegisterCandidate(gomock.Any(), service.CandidateInput{
			Wallet: "GC1", Name: "Juan Perez Lopez", RFC: "PELJ850101ABC",
		}).Return(true, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/candidates", map[string]string{
			"name": "Juan Perez Lopez", "rfc": "pelj850101abc",
		})
		rr := testutil.DoRequest(s.router, testutil.WithIdentity(req, "GC1"))
		s.Equal(http.StatusCreated, rr.Code)
		s.JSONEq(`{"registered":true,"wallet":"GC1"}`, rr.Body.String())
	})

	s.Run("already registered", func() {
		s.service.EXPECT().RegisterCandidate(gomock.Any(), gomock.Any()).Return(false, nil)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/candidates", map[string]string{
			"wallet": "GC1", "name": "Juan", "rfc": "RFC1",
		})
		rr := testutil.DoRequest(s.router, testutil.WithIdentity(req, "GC1"))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"registered":false,"wallet":"GC1"}`, rr.Body.String())
	})

	s.Run("rfc required", func() {
		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/candidates", map[string]string{"name": "Juan"})
		rr := testutil.DoRequest(s.router, testutil.WithIdentity(req, "GC1"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
	})

	s.Run("unauthorized", func() {
		s.service.EXPECT().RegisterCandidate(gomock.Any(), gomock.Any()).Return(false, models.ErrUnauthorized)

		req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/candidates", map[string]string{
			"wallet": "GC2", "name": "Juan", "rfc": "RFC1",
		})
		rr := testutil.DoRequest(s.router, testutil.WithIdentity(req, "GC1"))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func (s *HandlerSuite) TestRegisterUser() {
	s.service.EXPECT().RegisterUser(gomock.Any(), service.UserInput{
		Wallet:           "GU1",
		FirstName:        "Maria",
		PaternalLastName: "Garcia",
		MaternalLastName: "Rodriguez",
		Phone:            "9876543210",
		Email:            "maria@example.com",
	}).Return(true, nil)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/users", map[string]string{
		"first_name":         "Maria",
		"paternal_last_name": "Garcia",
		"maternal_last_name": "Rodriguez",
		"phone":              "9876543210",
		"email":              "Maria@Example.com",
	})
	rr := testutil.DoRequest(s.router, testutil.WithIdentity(req, "GU1"))
	s.Equal(http.StatusCreated, rr.Code)
}

func (s *HandlerSuite) TestRegisterUserRejectsBadEmail() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/users", map[string]string{
		"first_name": "Maria", "paternal_last_name": "Garcia", "email": "not-an-email",
	})
	rr := testutil.DoRequest(s.router, testutil.WithIdentity(req, "GU1"))
	testutil.AssertStatusAndError(s.T(), rr, http.StatusBadRequest, string(dErrors.CodeValidation))
}

func (s *HandlerSuite) TestReads() {
	s.Run("get candidate", func() {
		s.service.EXPECT().GetCandidate(gomock.Any(), id.Address("GC1")).
			Return(&models.Candidate{Wallet: "GC1", Name: "Juan", RFC: "RFC1", Timestamp: 42}, true, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/candidates/GC1", nil))
		s.Equal(http.StatusOK, rr.Code)
		s.JSONEq(`{"wallet":"GC1","name":"Juan","rfc":"RFC1","timestamp":42}`, rr.Body.String())
	})

	s.Run("absent user is 404", func() {
		s.service.EXPECT().GetUser(gomock.Any(), id.Address("GU9")).Return(nil, false, nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/users/GU9", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusNotFound, string(dErrors.CodeNotFound))
	})

	s.Run("list and count", func() {
		s.service.EXPECT().ListCandidates(gomock.Any()).Return([]id.Address{"GC2", "GC1"}, nil)
		s.service.EXPECT().UserCount(gomock.Any()).Return(uint64(4), nil)

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/candidates", nil))
		s.JSONEq(`{"wallets":["GC2","GC1"]}`, rr.Body.String())
		rr = testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/users/count", nil))
		s.JSONEq(`{"count":4}`, rr.Body.String())
	})

	s.Run("store failure", func() {
		s.service.EXPECT().CandidateCount(gomock.Any()).
			Return(uint64(0), dErrors.New(dErrors.CodeUnavailable, "ledger unavailable"))

		rr := testutil.DoRequest(s.router, testutil.NewJSONRequest(s.T(), http.MethodGet, "/candidates/count", nil))
		testutil.AssertStatusAndError(s.T(), rr, http.StatusServiceUnavailable, string(dErrors.CodeUnavailable))
	})
}
