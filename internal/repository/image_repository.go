package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kinder-market/internal/model"
)

// ImageRepo stores listing image metadata.  The binaries live in the
// image store; rows only keep the reference.
type ImageRepo struct {
	db *sql.DB
}

// NewImageRepo returns an ImageRepo bound to db.
func NewImageRepo(db *sql.DB) *ImageRepo { return &ImageRepo{db: db} }

// CreateTx inserts img and fills in its ID.
func (r *ImageRepo) CreateTx(ctx context.Context, tx *sql.Tx, img *model.ListingImage) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO listing_images (listing_id, ref, display_order) VALUES (?, ?, ?)`,
		img.ListingID, img.Ref, img.DisplayOrder)
	if err != nil {
		return translate(err, "insert image")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate(err, "insert image")
	}
	img.ID = uint64(id)
	return nil
}

// ListByListing returns a listing's images, main image first.
func (r *ImageRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.ListingImage, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, listing_id, ref, display_order, created_at, updated_at
		 FROM listing_images WHERE listing_id = ? ORDER BY display_order`, listingID)
	if err != nil {
		return nil, translate(err, "list images")
	}
	defer rows.Close()
	out := []model.ListingImage{}
	for rows.Next() {
		var img model.ListingImage
		if err := rows.Scan(&img.ID, &img.ListingID, &img.Ref, &img.DisplayOrder, &img.CreatedAt, &img.UpdatedAt); err != nil {
			return nil, translate(err, "scan image")
		}
		out = append(out, img)
	}
	return out, translate(rows.Err(), "list images")
}
