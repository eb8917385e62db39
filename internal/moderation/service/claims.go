package service

import (
	"context"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	accountmodels "hometrust/internal/account/models"
	claimmodels "hometrust/internal/claim/models"
	"hometrust/internal/modlog"
	"hometrust/internal/notify"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/requestcontext"
)

// ReviewInput is an admin's decision on a pending claim.
type ReviewInput struct {
	ClaimID       id.ClaimID
	Decision      claimmodels.ClaimStatus
	Reason        string
	AdminMessage  string
	NameMatchHint *bool
}

// ReviewClaim settles a pending claim. Approval flips the owner's verified
// flag; rejection records the reason. The claim write, the account write, and
// the audit entry commit together; the notification follows after commit.
func (s *Service) ReviewClaim(ctx context.Context, input ReviewInput) (*claimmodels.Claim, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.ReviewClaim",
		trace.WithAttributes(
			attribute.String("claim.id", input.ClaimID.String()),
			attribute.String("claim.decision", string(input.Decision)),
		))
	defer span.End()

	adminID, err := s.actingAdmin(ctx)
	if err != nil {
		return nil, err
	}
	if input.Decision != claimmodels.StatusApproved && input.Decision != claimmodels.StatusRejected {
		return nil, dErrors.New(dErrors.CodeValidation, "decision must be approved or rejected")
	}

	now := requestcontext.Now(ctx)
	var claim *claimmodels.Claim
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		claim, txErr = s.claims.Execute(ctx, input.ClaimID,
			func(c *claimmodels.Claim) error {
				if input.Decision == claimmodels.StatusRejected {
					return c.CanReject(input.Reason)
				}
				return c.CanReview()
			},
			func(c *claimmodels.Claim) {
				c.RecordNameMatchHint(input.NameMatchHint)
				if input.Decision == claimmodels.StatusApproved {
					c.ApplyApproval(adminID, input.AdminMessage, now)
				} else {
					c.ApplyRejection(adminID, input.Reason, input.AdminMessage, now)
				}
			},
		)
		if txErr != nil {
			return translate(txErr, "claim")
		}

		_, txErr = s.accounts.Execute(ctx, claim.AccountID,
			func(*accountmodels.Account) error { return nil },
			func(a *accountmodels.Account) {
				if input.Decision == claimmodels.StatusApproved {
					a.ApplyVerificationApproved(now)
				} else {
					a.ApplyVerificationRejected(now)
				}
			},
		)
		if txErr != nil {
			return translate(txErr, "account")
		}

		action := modlog.ActionClaimApproved
		if input.Decision == claimmodels.StatusRejected {
			action = modlog.ActionClaimRejected
		}
		entry := modlog.NewEntry(adminID, modlog.TargetClaim, uuid.UUID(claim.ID), action, input.Reason, now)
		if txErr := s.logbook.Append(ctx, entry); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	template := notify.TemplateClaimApproved
	if input.Decision == claimmodels.StatusRejected {
		template = notify.TemplateClaimRejected
	}
	s.enqueue(ctx, claim.AccountID, template, notificationPayload(input.Reason, input.AdminMessage))

	s.metrics.IncClaimReviewed(string(input.Decision))
	s.logger.InfoContext(ctx, "trust claim reviewed",
		"claim_id", claim.ID.String(),
		"account_id", claim.AccountID.String(),
		"decision", string(input.Decision),
		"admin_id", adminID.String(),
	)
	return claim, nil
}

// PurgeClaim removes a terminal rejected claim. The only path that deletes a
// claim outside the account deletion cascade.
func (s *Service) PurgeClaim(ctx context.Context, claimID id.ClaimID) error {
	ctx, span := s.tracer.Start(ctx, "moderation.PurgeClaim",
		trace.WithAttributes(attribute.String("claim.id", claimID.String())))
	defer span.End()

	adminID, err := s.actingAdmin(ctx)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		claim, txErr := s.claims.FindByID(ctx, claimID)
		if txErr != nil {
			return translate(txErr, "claim")
		}
		if txErr := claim.CanPurge(); txErr != nil {
			return txErr
		}
		if txErr := s.claims.Delete(ctx, claimID); txErr != nil {
			return translate(txErr, "claim")
		}
		entry := modlog.NewEntry(adminID, modlog.TargetClaim, uuid.UUID(claimID), modlog.ActionClaimPurged, "", now)
		if txErr := s.logbook.Append(ctx, entry); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "trust claim purged",
		"claim_id", claimID.String(),
		"admin_id", adminID.String(),
	)
	return nil
}

func notificationPayload(reason, adminMessage string) map[string]string {
	payload := make(map[string]string)
	if reason = strings.TrimSpace(reason); reason != "" {
		payload["reason"] = reason
	}
	if adminMessage = strings.TrimSpace(adminMessage); adminMessage != "" {
		payload["admin_message"] = adminMessage
	}
	if len(payload) == 0 {
		return nil
	}
	return payload
}
