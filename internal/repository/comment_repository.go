package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kinder-market/internal/model"
)

// CommentRepo reads and writes the comments table.
type CommentRepo struct {
	db *sql.DB
}

// NewCommentRepo returns a CommentRepo bound to db.
func NewCommentRepo(db *sql.DB) *CommentRepo { return &CommentRepo{db: db} }

// CreateTx inserts c and fills in its ID and timestamps.
func (r *CommentRepo) CreateTx(ctx context.Context, tx *sql.Tx, c *model.Comment) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO comments (user_id, listing_id, body) VALUES (?, ?, ?)`, c.UserID, c.ListingID, c.Body)
	if err != nil {
		return translate(err, "insert comment")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate(err, "insert comment")
	}
	err = tx.QueryRowContext(ctx, `SELECT id, created_at, updated_at FROM comments WHERE id = ?`, id).
		Scan(&c.ID, &c.CreatedAt, &c.UpdatedAt)
	return translate(err, "reload comment")
}

// ListByListing returns a listing's thread in posting order.
func (r *CommentRepo) ListByListing(ctx context.Context, listingID uint64) ([]model.CommentEntry, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT c.id, c.user_id, c.listing_id, c.body, c.created_at, c.updated_at, u.name, u.display_name
		 FROM comments c
		 JOIN users u ON u.id = c.user_id
		 WHERE c.listing_id = ?
		 ORDER BY c.created_at, c.id`, listingID)
	if err != nil {
		return nil, translate(err, "list comments")
	}
	defer rows.Close()
	out := []model.CommentEntry{}
	for rows.Next() {
		var (
			e           model.CommentEntry
			author      model.User
			displayName sql.NullString
		)
		if err := rows.Scan(&e.ID, &e.UserID, &e.ListingID, &e.Body, &e.CreatedAt, &e.UpdatedAt,
			&author.Name, &displayName); err != nil {
			return nil, translate(err, "scan comment")
		}
		if displayName.Valid {
			author.DisplayName = &displayName.String
		}
		e.Author = model.UserSummary{ID: e.UserID, Name: author.PublicName()}
		out = append(out, e)
	}
	return out, translate(rows.Err(), "list comments")
}
