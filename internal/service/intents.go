package service

import (
	"context"
	"errors"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/queue"
)

// IntentResult is returned by AddIntent.  AlreadyExpressed is true when
// the member had expressed interest before; nothing changed in that case.
type IntentResult struct {
	Intent           model.PurchaseIntent `json:"intent"`
	AlreadyExpressed bool                 `json:"already_expressed"`
	Warnings         []string             `json:"warnings,omitempty"`
}

// AddIntent records that the actor wants to buy a FOR_SALE listing owned
// by someone else.  The owner is notified on first creation only.
func (s *Service) AddIntent(ctx context.Context, a Actor, listingID uint64) (IntentResult, error) {
	var res IntentResult
	var listing model.Listing
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, err := s.lockVisible(ctx, tx, a, listingID)
		if err != nil {
			return err
		}
		if l.OwnerID == a.UserID {
			return ErrSelfDealing
		}
		if l.Status != model.StatusForSale {
			return ErrInvalidState
		}
		listing = l
		existing, err := tx.FindIntent(ctx, a.UserID, l.ID)
		switch {
		case err == nil:
			res.Intent, res.AlreadyExpressed = existing, true
			return nil
		case !errors.Is(err, ErrNotFound):
			return err
		}
		in := model.PurchaseIntent{UserID: a.UserID, ListingID: l.ID}
		if err := tx.InsertIntent(ctx, &in); err != nil {
			return err
		}
		res.Intent = in
		return nil
	})
	if err != nil {
		return IntentResult{}, err
	}
	if res.AlreadyExpressed {
		return res, nil
	}

	res.Warnings = s.notify(ctx, listing.OwnerID, "intent_created", map[string]any{
		"listing_id":   listing.ID,
		"listing_name": listing.Name,
		"buyer_id":     a.UserID,
	})
	s.publish(ctx, queue.IntentCreated, listing, a.UserID, uint64Ptr(listing.OwnerID))
	return res, nil
}

// WithdrawIntent removes the actor's own intent on a listing.  Once the
// actor has been chosen as partner the intent backs the transaction and
// can no longer be withdrawn.
func (s *Service) WithdrawIntent(ctx context.Context, a Actor, listingID uint64) error {
	return s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, err := s.lockVisible(ctx, tx, a, listingID)
		if err != nil {
			return err
		}
		if l.Status != model.StatusForSale && l.IsPartner(a.UserID) {
			return ErrInvalidState
		}
		in, err := tx.FindIntent(ctx, a.UserID, l.ID)
		if err != nil {
			return err
		}
		return tx.DeleteIntent(ctx, in.ID)
	})
}

// ListSentIntents returns the intents the actor expressed, each labelled
// with the listing's status from the actor's point of view.
func (s *Service) ListSentIntents(ctx context.Context, a Actor) ([]model.IntentEntry, error) {
	rows, err := s.store.IntentsSentBy(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DisplayStatus = model.DeriveDisplayStatus(rows[i].Listing.Listing, rows[i].Intent.UserID)
	}
	return rows, nil
}

// ListReceivedIntents returns the intents on listings the actor owns.
// "mine" in the label means the intent's member is the partner.
func (s *Service) ListReceivedIntents(ctx context.Context, a Actor) ([]model.IntentEntry, error) {
	rows, err := s.store.IntentsReceivedBy(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DisplayStatus = model.DeriveDisplayStatus(rows[i].Listing.Listing, rows[i].Intent.UserID)
	}
	return rows, nil
}
