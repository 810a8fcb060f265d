package service

import (
	"context"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/queue"
)

// TransitionResult is returned by the sale lifecycle operations.
type TransitionResult struct {
	Listing  model.Listing `json:"listing"`
	Warnings []string      `json:"warnings,omitempty"`
}

// StartTransaction commits the owner of the intent's listing to the member
// who expressed the intent.  The listing moves FOR_SALE -> IN_TRANSACTION
// with the intent's member as negotiating partner.
func (s *Service) StartTransaction(ctx context.Context, a Actor, intentID uint64) (TransitionResult, error) {
	var listing model.Listing
	var buyerID uint64
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, in, err := s.lockIntentListing(ctx, tx, a, intentID)
		if err != nil {
			return err
		}
		if l.Status != model.StatusForSale {
			return ErrInvalidState
		}
		partner := in.UserID
		if err := tx.SetListingState(ctx, l.ID, model.StatusInTransaction, &partner); err != nil {
			return err
		}
		l.Status = model.StatusInTransaction
		l.PartnerID = &partner
		listing, buyerID = l, partner
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	res := TransitionResult{Listing: listing}
	res.Warnings = s.notify(ctx, buyerID, "transaction_started", map[string]any{
		"listing_id":   listing.ID,
		"listing_name": listing.Name,
		"price":        listing.Price,
	})
	s.publish(ctx, queue.TransactionStarted, listing, a.UserID, uint64Ptr(buyerID))
	return res, nil
}

// CompleteTransaction marks the listing SOLD.  The intent must belong to
// the listing's current negotiating partner.  The partner stays recorded.
func (s *Service) CompleteTransaction(ctx context.Context, a Actor, intentID uint64) (TransitionResult, error) {
	var listing model.Listing
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, in, err := s.lockIntentListing(ctx, tx, a, intentID)
		if err != nil {
			return err
		}
		if l.Status != model.StatusInTransaction || !l.IsPartner(in.UserID) {
			return ErrInvalidState
		}
		if err := tx.SetListingState(ctx, l.ID, model.StatusSold, l.PartnerID); err != nil {
			return err
		}
		l.Status = model.StatusSold
		listing = l
		return nil
	})
	if err != nil {
		return TransitionResult{}, err
	}

	res := TransitionResult{Listing: listing}
	buyerID := *listing.PartnerID
	res.Warnings = s.notify(ctx, buyerID, "transaction_completed", map[string]any{
		"listing_id":   listing.ID,
		"listing_name": listing.Name,
		"price":        listing.Price,
	})
	s.publish(ctx, queue.TransactionCompleted, listing, a.UserID, uint64Ptr(buyerID))
	return res, nil
}

// lockIntentListing resolves the intent, row-locks its listing and checks
// that the actor owns it.  The intent is read again under the lock so a
// concurrent withdrawal is observed.
func (s *Service) lockIntentListing(ctx context.Context, tx Tx, a Actor, intentID uint64) (model.Listing, model.PurchaseIntent, error) {
	in, err := s.store.IntentByID(ctx, intentID)
	if err != nil {
		return model.Listing{}, model.PurchaseIntent{}, err
	}
	l, err := tx.LockListing(ctx, in.ListingID)
	if err != nil {
		return model.Listing{}, model.PurchaseIntent{}, err
	}
	if l.OwnerID != a.UserID {
		return model.Listing{}, model.PurchaseIntent{}, ErrAuthorization
	}
	in, err = tx.FindIntent(ctx, in.UserID, in.ListingID)
	if err != nil {
		return model.Listing{}, model.PurchaseIntent{}, err
	}
	return l, in, nil
}
