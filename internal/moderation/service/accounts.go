package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	accountmodels "hometrust/internal/account/models"
	listingmodels "hometrust/internal/listing/models"
	"hometrust/internal/modlog"
	"hometrust/internal/notify"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/requestcontext"
)

// SuspendAccount moves an account to suspended. Owned listings are not
// mutated: suspension hides them through derived visibility, which reverses
// by itself when the account is activated again.
func (s *Service) SuspendAccount(ctx context.Context, accountID id.AccountID, reason string, until *time.Time) (*accountmodels.Account, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.SuspendAccount",
		trace.WithAttributes(attribute.String("account.id", accountID.String())))
	defer span.End()

	adminID, err := s.actingAdmin(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var account *accountmodels.Account
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		account, txErr = s.accounts.Execute(ctx, accountID,
			func(a *accountmodels.Account) error { return a.CanSuspend() },
			func(a *accountmodels.Account) { a.ApplySuspension(reason, until, now) },
		)
		if txErr != nil {
			return translate(txErr, "account")
		}
		entry := modlog.NewEntry(adminID, modlog.TargetAccount, uuid.UUID(accountID), modlog.ActionSuspended, reason, now)
		if txErr := s.logbook.Append(ctx, entry); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := notificationPayload(reason, "")
	if until != nil {
		if payload == nil {
			payload = make(map[string]string)
		}
		payload["until"] = until.Format(time.RFC3339)
	}
	s.enqueue(ctx, accountID, notify.TemplateSuspended, payload)

	s.metrics.IncAccountAction("suspend")
	s.logger.InfoContext(ctx, "account suspended",
		"account_id", accountID.String(),
		"admin_id", adminID.String(),
	)
	return account, nil
}

// BanAccount moves an account to banned and delists every owned listing with
// an account-status flag. The flag is a real persisted mutation so a later
// per-listing unflag cannot re-expose a banned account's listings. Listings
// already flagged for content keep their content flag.
func (s *Service) BanAccount(ctx context.Context, accountID id.AccountID, reason string) (*accountmodels.Account, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.BanAccount",
		trace.WithAttributes(attribute.String("account.id", accountID.String())))
	defer span.End()

	adminID, err := s.actingAdmin(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var account *accountmodels.Account
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		account, txErr = s.accounts.Execute(ctx, accountID,
			func(a *accountmodels.Account) error { return a.CanBan() },
			func(a *accountmodels.Account) { a.ApplyBan(reason, now) },
		)
		if txErr != nil {
			return translate(txErr, "account")
		}

		owned, txErr := s.listings.ListByOwner(ctx, accountID)
		if txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to list owned listings")
		}
		for _, listing := range owned {
			if listing.Flagged {
				continue
			}
			_, txErr = s.listings.Execute(ctx, listing.ID,
				func(l *listingmodels.Listing) error { return l.CanFlag() },
				func(l *listingmodels.Listing) {
					l.ApplyFlag(listingmodels.FlagSourceAccountStatus, listingmodels.ReasonAccountBanned, now)
				},
			)
			if txErr != nil {
				return translate(txErr, "listing")
			}
			entry := modlog.NewEntry(adminID, modlog.TargetListing, uuid.UUID(listing.ID), modlog.ActionFlagged, listingmodels.ReasonAccountBanned, now)
			if txErr := s.logbook.Append(ctx, entry); txErr != nil {
				return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
			}
		}

		entry := modlog.NewEntry(adminID, modlog.TargetAccount, uuid.UUID(accountID), modlog.ActionBanned, reason, now)
		if txErr := s.logbook.Append(ctx, entry); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, accountID, notify.TemplateBanned, notificationPayload(reason, ""))

	s.metrics.IncAccountAction("ban")
	s.logger.InfoContext(ctx, "account banned",
		"account_id", accountID.String(),
		"admin_id", adminID.String(),
	)
	return account, nil
}

// ActivateAccount moves a suspended or banned account back to active and
// clears the cascade flags on its listings. Content flags survive: activation
// must not un-hide a listing separately flagged for abuse.
func (s *Service) ActivateAccount(ctx context.Context, accountID id.AccountID, reason string) (*accountmodels.Account, error) {
	ctx, span := s.tracer.Start(ctx, "moderation.ActivateAccount",
		trace.WithAttributes(attribute.String("account.id", accountID.String())))
	defer span.End()

	adminID, err := s.actingAdmin(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var account *accountmodels.Account
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		account, txErr = s.accounts.Execute(ctx, accountID,
			func(a *accountmodels.Account) error { return a.CanActivate() },
			func(a *accountmodels.Account) { a.ApplyActivation(reason, now) },
		)
		if txErr != nil {
			return translate(txErr, "account")
		}

		owned, txErr := s.listings.ListByOwner(ctx, accountID)
		if txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to list owned listings")
		}
		for _, listing := range owned {
			if !listing.Flagged || listing.FlagSource != listingmodels.FlagSourceAccountStatus {
				continue
			}
			// The cascade clears its own flags directly; the per-listing
			// unflag guard only blocks admin-initiated unflags.
			_, txErr = s.listings.Execute(ctx, listing.ID,
				func(*listingmodels.Listing) error { return nil },
				func(l *listingmodels.Listing) { l.ApplyUnflag(now) },
			)
			if txErr != nil {
				return translate(txErr, "listing")
			}
			entry := modlog.NewEntry(adminID, modlog.TargetListing, uuid.UUID(listing.ID), modlog.ActionUnflagged, reason, now)
			if txErr := s.logbook.Append(ctx, entry); txErr != nil {
				return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
			}
		}

		entry := modlog.NewEntry(adminID, modlog.TargetAccount, uuid.UUID(accountID), modlog.ActionActivated, reason, now)
		if txErr := s.logbook.Append(ctx, entry); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.enqueue(ctx, accountID, notify.TemplateActivated, notificationPayload(reason, ""))

	s.metrics.IncAccountAction("activate")
	s.logger.InfoContext(ctx, "account activated",
		"account_id", accountID.String(),
		"admin_id", adminID.String(),
	)
	return account, nil
}

// DeleteAccount removes the account along with every owned listing and claim.
// Irreversible; there is no undelete.
func (s *Service) DeleteAccount(ctx context.Context, accountID id.AccountID, reason string) error {
	ctx, span := s.tracer.Start(ctx, "moderation.DeleteAccount",
		trace.WithAttributes(attribute.String("account.id", accountID.String())))
	defer span.End()

	adminID, err := s.actingAdmin(ctx)
	if err != nil {
		return err
	}

	now := requestcontext.Now(ctx)
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		if _, txErr := s.accounts.FindByID(ctx, accountID); txErr != nil {
			return translate(txErr, "account")
		}

		owned, txErr := s.listings.ListByOwner(ctx, accountID)
		if txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to list owned listings")
		}
		for _, listing := range owned {
			entry := modlog.NewEntry(adminID, modlog.TargetListing, uuid.UUID(listing.ID), modlog.ActionListingDeleted, reason, now)
			if txErr := s.logbook.Append(ctx, entry); txErr != nil {
				return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
			}
		}

		if txErr := s.listings.DeleteByOwner(ctx, accountID); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to delete owned listings")
		}
		if txErr := s.claims.DeleteByAccount(ctx, accountID); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to delete owned claims")
		}
		if txErr := s.accounts.Delete(ctx, accountID); txErr != nil {
			return translate(txErr, "account")
		}

		entry := modlog.NewEntry(adminID, modlog.TargetAccount, uuid.UUID(accountID), modlog.ActionDeleted, reason, now)
		if txErr := s.logbook.Append(ctx, entry); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
		}
		return nil
	})
	if err != nil {
		return err
	}

	s.enqueue(ctx, accountID, notify.TemplateAccountDeleted, notificationPayload(reason, ""))

	s.metrics.IncAccountAction("delete")
	s.logger.InfoContext(ctx, "account deleted",
		"account_id", accountID.String(),
		"admin_id", adminID.String(),
	)
	return nil
}
