package handler

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	"hometrust/internal/account/service"
	"hometrust/internal/account/store"
	jwttoken "hometrust/internal/jwt_token"
	id "hometrust/pkg/domain"
)

type AccountHandlerSuite struct {
	suite.Suite
	router     chi.Router
	tokens     *jwttoken.Service
	adminToken string
}

func (s *AccountHandlerSuite) SetupTest() {
	s.tokens = jwttoken.NewService("test-signing-key", "hometrust-test")
	accounts := service.New(store.NewInMemory(), service.WithFreeMailBlocklist([]string{"gmail.com"}))

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(accounts, logger, s.tokens).Register(s.router)

	var err error
	s.adminToken, err = s.tokens.GenerateAccessToken(id.NewAccountID(), "admin", time.Hour)
	s.Require().NoError(err)
}

func TestAccountHandlerSuite(t *testing.T) {
	suite.Run(t, new(AccountHandlerSuite))
}

func (s *AccountHandlerSuite) register(email, role string) *httptest.ResponseRecorder {
	body, err := json.Marshal(map[string]string{"email": email, "role": role})
	s.Require().NoError(err)
	req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader(body))
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *AccountHandlerSuite) TestRegister() {
	s.Run("created", func() {
		rec := s.register("agent@realty.example", "agent")
		s.Require().Equal(http.StatusCreated, rec.Code)

		var body struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.NotEmpty(body.ID)
		s.Equal("active", body.Status)
	})

	s.Run("duplicate email conflicts", func() {
		rec := s.register("dup@realty.example", "landlord")
		s.Require().Equal(http.StatusCreated, rec.Code)

		rec = s.register("dup@realty.example", "agent")
		s.Equal(http.StatusConflict, rec.Code)
	})

	s.Run("company on free mail is forbidden", func() {
		rec := s.register("holdings@gmail.com", "company")
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("unknown role is a bad request", func() {
		rec := s.register("someone@realty.example", "visitor")
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("malformed body", func() {
		req := httptest.NewRequest(http.MethodPost, "/accounts", bytes.NewReader([]byte("{")))
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *AccountHandlerSuite) TestAdminQueries() {
	rec := s.register("agent@realty.example", "agent")
	s.Require().Equal(http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&created))

	s.Run("list requires admin", func() {
		req := httptest.NewRequest(http.MethodGet, "/accounts", nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("list with status filter", func() {
		req := httptest.NewRequest(http.MethodGet, "/accounts?status=active", nil)
		req.Header.Set("Authorization", "Bearer "+s.adminToken)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Require().Equal(http.StatusOK, rec.Code)

		var accounts []map[string]any
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&accounts))
		s.Len(accounts, 1)
	})

	s.Run("get by id", func() {
		req := httptest.NewRequest(http.MethodGet, "/accounts/"+created.ID, nil)
		req.Header.Set("Authorization", "Bearer "+s.adminToken)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("get unknown id", func() {
		req := httptest.NewRequest(http.MethodGet, "/accounts/"+id.NewAccountID().String(), nil)
		req.Header.Set("Authorization", "Bearer "+s.adminToken)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}
