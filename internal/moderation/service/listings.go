package service

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	listingmodels "hometrust/internal/listing/models"
	"hometrust/internal/modlog"
	"hometrust/internal/notify"
	id "hometrust/pkg/domain"
	dErrors "hometrust/pkg/domain-errors"
	"hometrust/pkg/requestcontext"
)

// FlagListing hides a listing for a content reason.
func (s *Service) FlagListing(ctx context.Context, listingID id.ListingID, reason string) (*listingmodels.Listing, error) {
	return s.mutateListing(ctx, "moderation.FlagListing", listingID,
		func(l *listingmodels.Listing) error { return l.CanFlag() },
		func(l *listingmodels.Listing) {
			l.ApplyFlag(listingmodels.FlagSourceContent, reason, requestcontext.Now(ctx))
		},
		modlog.ActionFlagged, reason, notify.TemplateFlagged, "flag")
}

// UnflagListing clears a content flag. A cascade flag cannot be cleared here:
// the owner account has to be activated instead.
func (s *Service) UnflagListing(ctx context.Context, listingID id.ListingID) (*listingmodels.Listing, error) {
	return s.mutateListing(ctx, "moderation.UnflagListing", listingID,
		func(l *listingmodels.Listing) error { return l.CanUnflag() },
		func(l *listingmodels.Listing) { l.ApplyUnflag(requestcontext.Now(ctx)) },
		modlog.ActionUnflagged, "", notify.TemplateUnflagged, "unflag")
}

// DeleteListing tombstones a listing, independent of the owner's state.
func (s *Service) DeleteListing(ctx context.Context, listingID id.ListingID, reason string) (*listingmodels.Listing, error) {
	return s.mutateListing(ctx, "moderation.DeleteListing", listingID,
		func(l *listingmodels.Listing) error { return l.CanDelete() },
		func(l *listingmodels.Listing) { l.ApplyDelete(requestcontext.Now(ctx)) },
		modlog.ActionListingDeleted, reason, notify.TemplateListingDeleted, "delete")
}

// VerifyListingAddress marks the listing address verified, one way.
func (s *Service) VerifyListingAddress(ctx context.Context, listingID id.ListingID) (*listingmodels.Listing, error) {
	return s.mutateListing(ctx, "moderation.VerifyListingAddress", listingID,
		func(l *listingmodels.Listing) error { return l.CanVerifyAddress() },
		func(l *listingmodels.Listing) { l.ApplyVerifyAddress(requestcontext.Now(ctx)) },
		modlog.ActionAddressChecked, "", notify.TemplateAddressVerified, "verify_address")
}

// mutateListing runs the shared single-listing moderation cycle: transition
// under lock, audit entry in the same transaction, notification to the owner
// after commit.
func (s *Service) mutateListing(
	ctx context.Context,
	spanName string,
	listingID id.ListingID,
	validate func(*listingmodels.Listing) error,
	mutate func(*listingmodels.Listing),
	action string,
	reason string,
	template notify.TemplateKind,
	metricAction string,
) (*listingmodels.Listing, error) {
	ctx, span := s.tracer.Start(ctx, spanName,
		trace.WithAttributes(attribute.String("listing.id", listingID.String())))
	defer span.End()

	adminID, err := s.actingAdmin(ctx)
	if err != nil {
		return nil, err
	}

	now := requestcontext.Now(ctx)
	var listing *listingmodels.Listing
	err = s.runner.RunInTx(ctx, func(ctx context.Context) error {
		var txErr error
		listing, txErr = s.listings.Execute(ctx, listingID, validate, mutate)
		if txErr != nil {
			return translate(txErr, "listing")
		}
		entry := modlog.NewEntry(adminID, modlog.TargetListing, uuid.UUID(listingID), action, reason, now)
		if txErr := s.logbook.Append(ctx, entry); txErr != nil {
			return dErrors.Wrap(txErr, dErrors.CodeInternal, "failed to write moderation log")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	payload := notificationPayload(reason, "")
	if listing.Title != "" {
		if payload == nil {
			payload = make(map[string]string)
		}
		payload["listing_title"] = listing.Title
	}
	s.enqueue(ctx, listing.OwnerID, template, payload)

	s.metrics.IncListingAction(metricAction)
	s.logger.InfoContext(ctx, "listing moderated",
		"listing_id", listingID.String(),
		"action", action,
		"admin_id", adminID.String(),
	)
	return listing, nil
}
