package handler

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/suite"

	accountmodels "hometrust/internal/account/models"
	accountstore "hometrust/internal/account/store"
	"hometrust/internal/artifact"
	"hometrust/internal/listing/service"
	listingstore "hometrust/internal/listing/store"
	jwttoken "hometrust/internal/jwt_token"
	id "hometrust/pkg/domain"
)

type ListingHandlerSuite struct {
	suite.Suite
	router     chi.Router
	tokens     *jwttoken.Service
	accounts   *accountstore.InMemory
	owner      *accountmodels.Account
	ownerToken string
	adminToken string
	now        time.Time
}

func (s *ListingHandlerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.tokens = jwttoken.NewService("test-signing-key", "hometrust-test")
	s.accounts = accountstore.NewInMemory()

	listings := service.New(listingstore.NewInMemory(), s.accounts, artifact.NewInMemoryStore())

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(listings, logger, s.tokens).Register(s.router)

	owner, err := accountmodels.NewAccount(id.NewAccountID(), "landlord@realty.example", accountmodels.RoleLandlord, s.now)
	s.Require().NoError(err)
	owner.ApplyVerificationApproved(s.now)
	s.Require().NoError(s.accounts.Create(context.Background(), owner))
	s.owner = owner

	s.ownerToken, err = s.tokens.GenerateAccessToken(owner.ID, "landlord", time.Hour)
	s.Require().NoError(err)
	s.adminToken, err = s.tokens.GenerateAccessToken(id.NewAccountID(), "admin", time.Hour)
	s.Require().NoError(err)
}

func TestListingHandlerSuite(t *testing.T) {
	suite.Run(t, new(ListingHandlerSuite))
}

func (s *ListingHandlerSuite) create(token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	req := httptest.NewRequest(http.MethodPost, "/listings", &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *ListingHandlerSuite) TestCreate() {
	s.Run("created", func() {
		rec := s.create(s.ownerToken, map[string]string{"title": "Sunny 2BR"})
		s.Require().Equal(http.StatusCreated, rec.Code)

		var body struct {
			ID      string `json:"id"`
			OwnerID string `json:"owner_id"`
			Title   string `json:"title"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.NotEmpty(body.ID)
		s.Equal(s.owner.ID.String(), body.OwnerID)
		s.Equal("Sunny 2BR", body.Title)
	})

	s.Run("created with proof of address", func() {
		rec := s.create(s.ownerToken, map[string]string{
			"title":                   "Row house",
			"proof_of_address_base64": base64.StdEncoding.EncodeToString(bytes.Repeat([]byte{1}, 1024)),
			"proof_of_address_mime":   "application/pdf",
		})
		s.Require().Equal(http.StatusCreated, rec.Code)

		var body struct {
			Proof *artifact.Ref `json:"proof_of_address"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Require().NotNil(body.Proof)
		s.Equal("application/pdf", body.Proof.Mime)
	})

	s.Run("unauthenticated", func() {
		rec := s.create("", map[string]string{"title": "Sunny 2BR"})
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("unverified owner is forbidden", func() {
		other, err := accountmodels.NewAccount(id.NewAccountID(), "new@realty.example", accountmodels.RoleAgent, s.now)
		s.Require().NoError(err)
		s.Require().NoError(s.accounts.Create(context.Background(), other))
		token, err := s.tokens.GenerateAccessToken(other.ID, "agent", time.Hour)
		s.Require().NoError(err)

		rec := s.create(token, map[string]string{"title": "Garage"})
		s.Equal(http.StatusForbidden, rec.Code)
	})

	s.Run("invalid proof encoding", func() {
		rec := s.create(s.ownerToken, map[string]string{
			"title":                   "Row house",
			"proof_of_address_base64": "!!nope!!",
		})
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *ListingHandlerSuite) TestQueries() {
	rec := s.create(s.ownerToken, map[string]string{"title": "Sunny 2BR"})
	s.Require().Equal(http.StatusCreated, rec.Code)
	var created struct {
		ID string `json:"id"`
	}
	s.Require().NoError(json.NewDecoder(rec.Body).Decode(&created))

	s.Run("public get", func() {
		req := httptest.NewRequest(http.MethodGet, "/listings/"+created.ID, nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("owner lists own listings", func() {
		req := httptest.NewRequest(http.MethodGet, "/listings/mine", nil)
		req.Header.Set("Authorization", "Bearer "+s.ownerToken)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Require().Equal(http.StatusOK, rec.Code)

		var listings []map[string]any
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&listings))
		s.Len(listings, 1)
	})

	s.Run("flagged view requires admin", func() {
		req := httptest.NewRequest(http.MethodGet, "/listings?flagged=true", nil)
		req.Header.Set("Authorization", "Bearer "+s.ownerToken)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusForbidden, rec.Code)

		req = httptest.NewRequest(http.MethodGet, "/listings?flagged=true", nil)
		req.Header.Set("Authorization", "Bearer "+s.adminToken)
		rec = httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("unknown listing id", func() {
		req := httptest.NewRequest(http.MethodGet, "/listings/"+id.NewListingID().String(), nil)
		rec := httptest.NewRecorder()
		s.router.ServeHTTP(rec, req)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}
