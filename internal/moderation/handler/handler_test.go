package handler

import (
	"bytes"
	"context"
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
	claimmodels "hometrust/internal/claim/models"
	claimstore "hometrust/internal/claim/store"
	jwttoken "hometrust/internal/jwt_token"
	listingmodels "hometrust/internal/listing/models"
	listingstore "hometrust/internal/listing/store"
	"hometrust/internal/moderation/service"
	"hometrust/internal/modlog"
	"hometrust/internal/notify"
	id "hometrust/pkg/domain"
	txcontext "hometrust/pkg/platform/tx"
)

type ModerationHandlerSuite struct {
	suite.Suite
	router     chi.Router
	tokens     *jwttoken.Service
	accounts   *accountstore.InMemory
	claims     *claimstore.InMemory
	listings   *listingstore.InMemory
	outbox     *notify.InMemory
	adminToken string
	userToken  string
	now        time.Time
}

func (s *ModerationHandlerSuite) SetupTest() {
	s.now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	s.tokens = jwttoken.NewService("test-signing-key", "hometrust-test")
	s.accounts = accountstore.NewInMemory()
	s.claims = claimstore.NewInMemory()
	s.listings = listingstore.NewInMemory()
	s.outbox = notify.NewInMemory()

	moderation := service.New(s.accounts, s.claims, s.listings,
		modlog.NewInMemory(), s.outbox, txcontext.Passthrough{})

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s.router = chi.NewRouter()
	New(moderation, logger, s.tokens).Register(s.router)

	adminID := id.NewAccountID()
	var err error
	s.adminToken, err = s.tokens.GenerateAccessToken(adminID, "admin", time.Hour)
	s.Require().NoError(err)
	s.userToken, err = s.tokens.GenerateAccessToken(id.NewAccountID(), "agent", time.Hour)
	s.Require().NoError(err)
}

func TestModerationHandlerSuite(t *testing.T) {
	suite.Run(t, new(ModerationHandlerSuite))
}

func (s *ModerationHandlerSuite) request(method, path, token string, body any) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		s.Require().NoError(json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	s.router.ServeHTTP(rec, req)
	return rec
}

func (s *ModerationHandlerSuite) seedAccount() *accountmodels.Account {
	account, err := accountmodels.NewAccount(id.NewAccountID(), id.NewAccountID().String()+"@realty.example", accountmodels.RoleAgent, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.accounts.Create(context.Background(), account))
	return account
}

func (s *ModerationHandlerSuite) seedListing(ownerID id.AccountID) *listingmodels.Listing {
	listing, err := listingmodels.NewListing(id.NewListingID(), ownerID, "Sunny 2BR", s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.listings.Create(context.Background(), listing))
	return listing
}

func (s *ModerationHandlerSuite) seedPendingClaim(accountID id.AccountID) *claimmodels.Claim {
	payload := claimmodels.NationalIDPayload{
		Document: artifact.Ref{URL: "mem://doc", Size: 1024, Mime: "image/jpeg"},
		Selfie:   artifact.Ref{URL: "mem://selfie", Size: 1024, Mime: "image/png"},
	}
	claim, err := claimmodels.NewClaim(id.NewClaimID(), accountID, payload, s.now)
	s.Require().NoError(err)
	s.Require().NoError(s.claims.Create(context.Background(), claim))
	return claim
}

func (s *ModerationHandlerSuite) TestAuthBoundary() {
	account := s.seedAccount()

	s.Run("no token", func() {
		rec := s.request(http.MethodPost, "/moderation/accounts/"+account.ID.String()+"/ban", "", nil)
		s.Equal(http.StatusUnauthorized, rec.Code)
	})

	s.Run("non-admin token", func() {
		rec := s.request(http.MethodPost, "/moderation/accounts/"+account.ID.String()+"/ban", s.userToken, nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})
}

func (s *ModerationHandlerSuite) TestReviewClaim() {
	account := s.seedAccount()
	claim := s.seedPendingClaim(account.ID)

	s.Run("approve", func() {
		rec := s.request(http.MethodPost, "/moderation/claims/"+claim.ID.String()+"/review", s.adminToken,
			map[string]string{"decision": "approved", "admin_message": "welcome"})
		s.Require().Equal(http.StatusOK, rec.Code)

		var body struct {
			Status string `json:"status"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal("approved", body.Status)
	})

	s.Run("second review is unprocessable", func() {
		rec := s.request(http.MethodPost, "/moderation/claims/"+claim.ID.String()+"/review", s.adminToken,
			map[string]string{"decision": "rejected", "reason": "late"})
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("rejection without reason is a bad request", func() {
		other := s.seedPendingClaim(s.seedAccount().ID)
		rec := s.request(http.MethodPost, "/moderation/claims/"+other.ID.String()+"/review", s.adminToken,
			map[string]string{"decision": "rejected"})
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("unknown claim", func() {
		rec := s.request(http.MethodPost, "/moderation/claims/"+id.NewClaimID().String()+"/review", s.adminToken,
			map[string]string{"decision": "approved"})
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *ModerationHandlerSuite) TestAccountLifecycle() {
	account := s.seedAccount()
	listing := s.seedListing(account.ID)
	base := "/moderation/accounts/" + account.ID.String()

	s.Run("suspend with window", func() {
		until := s.now.Add(72 * time.Hour)
		rec := s.request(http.MethodPost, base+"/suspend", s.adminToken,
			map[string]any{"reason": "spam listings", "until": until})
		s.Require().Equal(http.StatusOK, rec.Code)

		var body struct {
			Status string `json:"status"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.Equal("suspended", body.Status)
	})

	s.Run("ban cascades to listings", func() {
		rec := s.request(http.MethodPost, base+"/ban", s.adminToken, map[string]string{"reason": "fraud"})
		s.Require().Equal(http.StatusOK, rec.Code)

		stored, err := s.listings.FindByID(context.Background(), listing.ID)
		s.Require().NoError(err)
		s.True(stored.Flagged)
		s.Equal(listingmodels.FlagSourceAccountStatus, stored.FlagSource)
	})

	s.Run("ban again conflicts with state", func() {
		rec := s.request(http.MethodPost, base+"/ban", s.adminToken, nil)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("activate restores listings", func() {
		rec := s.request(http.MethodPost, base+"/activate", s.adminToken, map[string]string{"reason": "appeal accepted"})
		s.Require().Equal(http.StatusOK, rec.Code)

		stored, err := s.listings.FindByID(context.Background(), listing.ID)
		s.Require().NoError(err)
		s.False(stored.Flagged)
	})

	s.Run("delete removes everything", func() {
		rec := s.request(http.MethodDelete, base, s.adminToken, map[string]string{"reason": "closure request"})
		s.Require().Equal(http.StatusNoContent, rec.Code)

		rec = s.request(http.MethodPost, base+"/ban", s.adminToken, nil)
		s.Equal(http.StatusNotFound, rec.Code)
	})
}

func (s *ModerationHandlerSuite) TestListingModeration() {
	account := s.seedAccount()
	listing := s.seedListing(account.ID)
	base := "/moderation/listings/" + listing.ID.String()

	s.Run("flag with reason", func() {
		rec := s.request(http.MethodPost, base+"/flag", s.adminToken, map[string]string{"reason": "misleading photos"})
		s.Require().Equal(http.StatusOK, rec.Code)

		var body struct {
			Flagged    bool   `json:"flagged"`
			FlagSource string `json:"flag_source"`
		}
		s.Require().NoError(json.NewDecoder(rec.Body).Decode(&body))
		s.True(body.Flagged)
		s.Equal("content", body.FlagSource)
	})

	s.Run("unflag with empty body", func() {
		rec := s.request(http.MethodPost, base+"/unflag", s.adminToken, nil)
		s.Equal(http.StatusOK, rec.Code)
	})

	s.Run("verify address twice", func() {
		rec := s.request(http.MethodPost, base+"/verify-address", s.adminToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code)

		rec = s.request(http.MethodPost, base+"/verify-address", s.adminToken, nil)
		s.Equal(http.StatusUnprocessableEntity, rec.Code)
	})

	s.Run("delete then act on tombstone", func() {
		rec := s.request(http.MethodDelete, base, s.adminToken, map[string]string{"reason": "duplicate"})
		s.Require().Equal(http.StatusNoContent, rec.Code)

		rec = s.request(http.MethodPost, base+"/flag", s.adminToken, map[string]string{"reason": "again"})
		s.Equal(http.StatusNotFound, rec.Code)
	})

	s.Run("malformed listing id", func() {
		rec := s.request(http.MethodPost, "/moderation/listings/not-a-uuid/flag", s.adminToken, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})
}

func (s *ModerationHandlerSuite) TestModerationLog() {
	account := s.seedAccount()
	rec := s.request(http.MethodPost, "/moderation/accounts/"+account.ID.String()+"/suspend", s.adminToken, map[string]string{"reason": "spam"})
	s.Require().Equal(http.StatusOK, rec.Code)

	s.Run("recent activity", func() {
		rec := s.request(http.MethodGet, "/moderation/log", s.adminToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var body struct {
			Entries []modlog.Entry `json:"entries"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Require().Len(body.Entries, 1)
		s.Equal(modlog.ActionSuspended, body.Entries[0].Action)
	})

	s.Run("target history", func() {
		rec := s.request(http.MethodGet, "/moderation/log/account/"+account.ID.String(), s.adminToken, nil)
		s.Require().Equal(http.StatusOK, rec.Code)
		var body struct {
			Entries []modlog.Entry `json:"entries"`
		}
		s.Require().NoError(json.Unmarshal(rec.Body.Bytes(), &body))
		s.Require().Len(body.Entries, 1)
		s.Equal("spam", body.Entries[0].Reason)
	})

	s.Run("bad limit", func() {
		rec := s.request(http.MethodGet, "/moderation/log?limit=abc", s.adminToken, nil)
		s.Equal(http.StatusBadRequest, rec.Code)
	})

	s.Run("non-admin forbidden", func() {
		rec := s.request(http.MethodGet, "/moderation/log", s.userToken, nil)
		s.Equal(http.StatusForbidden, rec.Code)
	})
}
