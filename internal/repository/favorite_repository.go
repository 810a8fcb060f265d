package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kinder-market/internal/model"
)

// FavoriteRepo reads and writes the favorites table.  (user_id,
// listing_id) is the primary key.
type FavoriteRepo struct {
	db *sql.DB
}

// NewFavoriteRepo returns a FavoriteRepo bound to db.
func NewFavoriteRepo(db *sql.DB) *FavoriteRepo { return &FavoriteRepo{db: db} }

// ExistsTx reports whether the pair is bookmarked.
func (r *FavoriteRepo) ExistsTx(ctx context.Context, tx *sql.Tx, userID, listingID uint64) (bool, error) {
	var one int
	err := tx.QueryRowContext(ctx,
		`SELECT 1 FROM favorites WHERE user_id = ? AND listing_id = ?`, userID, listingID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, translate(err, "check favorite")
}

// CreateTx bookmarks the listing.  An existing pair yields
// service.ErrDuplicate.
func (r *FavoriteRepo) CreateTx(ctx context.Context, tx *sql.Tx, userID, listingID uint64) error {
	_, err := tx.ExecContext(ctx, `INSERT INTO favorites (user_id, listing_id) VALUES (?, ?)`, userID, listingID)
	return translate(err, "insert favorite")
}

// DeleteTx removes the bookmark if present.
func (r *FavoriteRepo) DeleteTx(ctx context.Context, tx *sql.Tx, userID, listingID uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM favorites WHERE user_id = ? AND listing_id = ?`, userID, listingID)
	return translate(err, "delete favorite")
}

// Among returns which of listingIDs userID bookmarked, in one query.
func (r *FavoriteRepo) Among(ctx context.Context, userID uint64, listingIDs []uint64) (map[uint64]bool, error) {
	out := make(map[uint64]bool, len(listingIDs))
	if len(listingIDs) == 0 {
		return out, nil
	}
	args := make([]any, 0, len(listingIDs)+1)
	args = append(args, userID)
	for _, id := range listingIDs {
		args = append(args, id)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT listing_id FROM favorites WHERE user_id = ? AND listing_id IN (`+placeholders(len(listingIDs))+`)`,
		args...)
	if err != nil {
		return nil, translate(err, "query favorites")
	}
	defer rows.Close()
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, translate(err, "scan favorite")
		}
		out[id] = true
	}
	return out, translate(rows.Err(), "query favorites")
}

// ListByUser returns the user's bookmarks, newest first.
func (r *FavoriteRepo) ListByUser(ctx context.Context, userID uint64) ([]model.FavoriteEntry, error) {
	q := `SELECT ` + listingColumns + `, mi.ref, f.created_at
		FROM favorites f
		JOIN listings l ON l.id = f.listing_id
		LEFT JOIN listing_images mi ON mi.id = l.main_image_id
		WHERE f.user_id = ?
		ORDER BY f.created_at DESC, l.id DESC`
	rows, err := r.db.QueryContext(ctx, q, userID)
	if err != nil {
		return nil, translate(err, "list favorites")
	}
	defer rows.Close()
	out := []model.FavoriteEntry{}
	for rows.Next() {
		var (
			e   model.FavoriteEntry
			ref sql.NullString
		)
		l, err := scanListing(rows, &ref, &e.CreatedAt)
		if err != nil {
			return nil, translate(err, "scan favorite")
		}
		e.Listing = model.ListingCard{Listing: l}
		if ref.Valid {
			e.Listing.MainImageRef = &ref.String
		}
		out = append(out, e)
	}
	return out, translate(rows.Err(), "list favorites")
}
