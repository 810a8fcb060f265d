package service

import (
	"context"
	"errors"

	"github.com/iliyamo/kinder-market/internal/model"
)

// ToggleResult reports the favorite state after a toggle.
type ToggleResult struct {
	Added bool `json:"added"`
}

// ToggleFavorite bookmarks a listing or removes an existing bookmark.  The
// listing row lock serializes concurrent toggles; the unique constraint on
// the pair is the backstop.
func (s *Service) ToggleFavorite(ctx context.Context, a Actor, listingID uint64) (ToggleResult, error) {
	var res ToggleResult
	err := s.store.InTx(ctx, func(ctx context.Context, tx Tx) error {
		l, err := s.lockVisible(ctx, tx, a, listingID)
		if err != nil {
			return err
		}
		exists, err := tx.FavoriteExists(ctx, a.UserID, l.ID)
		if err != nil {
			return err
		}
		if exists {
			res.Added = false
			return tx.DeleteFavorite(ctx, a.UserID, l.ID)
		}
		if err := tx.InsertFavorite(ctx, a.UserID, l.ID); err != nil && !errors.Is(err, ErrDuplicate) {
			return err
		}
		res.Added = true
		return nil
	})
	if err != nil {
		return ToggleResult{}, err
	}
	return res, nil
}

// ListFavorites returns the actor's bookmarks, newest first.
func (s *Service) ListFavorites(ctx context.Context, a Actor) ([]model.FavoriteEntry, error) {
	rows, err := s.store.FavoritesByUser(ctx, a.UserID)
	if err != nil {
		return nil, err
	}
	for i := range rows {
		rows[i].DisplayStatus = model.DeriveDisplayStatus(rows[i].Listing.Listing, a.UserID)
	}
	return rows, nil
}
