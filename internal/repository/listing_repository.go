package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/kinder-market/internal/model"
)

// ListingRepo reads and writes the listings table.  Methods with a Tx
// suffix run inside a caller supplied transaction; the caller commits or
// rolls back.
type ListingRepo struct {
	db *sql.DB
}

// NewListingRepo returns a ListingRepo bound to db.
func NewListingRepo(db *sql.DB) *ListingRepo { return &ListingRepo{db: db} }

const listingColumns = `l.id, l.owner_id, l.organization_id, l.category_id, l.name, l.price,
	l.size, l.item_condition, l.description, l.status, l.partner_id, l.main_image_id,
	l.created_at, l.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

// scanListing reads listingColumns followed by any extra columns.
func scanListing(r rowScanner, extra ...any) (model.Listing, error) {
	var (
		l       model.Listing
		partner sql.NullInt64
		mainImg sql.NullInt64
	)
	dest := []any{
		&l.ID, &l.OwnerID, &l.OrganizationID, &l.CategoryID, &l.Name, &l.Price,
		&l.Size, &l.Condition, &l.Description, &l.Status, &partner, &mainImg,
		&l.CreatedAt, &l.UpdatedAt,
	}
	if err := r.Scan(append(dest, extra...)...); err != nil {
		return model.Listing{}, err
	}
	l.PartnerID = nullID(partner)
	l.MainImageID = nullID(mainImg)
	return l, nil
}

// scanCard reads listingColumns followed by the main image ref.
func scanCard(r rowScanner) (model.ListingCard, error) {
	var ref sql.NullString
	l, err := scanListing(r, &ref)
	if err != nil {
		return model.ListingCard{}, err
	}
	c := model.ListingCard{Listing: l}
	if ref.Valid {
		c.MainImageRef = &ref.String
	}
	return c, nil
}

func nullID(n sql.NullInt64) *uint64 {
	if !n.Valid {
		return nil
	}
	v := uint64(n.Int64)
	return &v
}

func nullable(id *uint64) any {
	if id == nil {
		return nil
	}
	return *id
}

func getListing(ctx context.Context, q execer, id uint64, forUpdate bool) (model.Listing, error) {
	query := `SELECT ` + listingColumns + ` FROM listings l WHERE l.id = ?`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	l, err := scanListing(q.QueryRowContext(ctx, query, id))
	return l, translate(err, "load listing")
}

// GetByID loads a listing without locking it.
func (r *ListingRepo) GetByID(ctx context.Context, id uint64) (model.Listing, error) {
	return getListing(ctx, r.db, id, false)
}

// LockTx loads a listing with SELECT ... FOR UPDATE.  The row lock is
// held until tx ends, which serializes every mutation of the listing.
func (r *ListingRepo) LockTx(ctx context.Context, tx *sql.Tx, id uint64) (model.Listing, error) {
	return getListing(ctx, tx, id, true)
}

// CreateTx inserts l and fills in its ID and timestamps.
func (r *ListingRepo) CreateTx(ctx context.Context, tx *sql.Tx, l *model.Listing) error {
	const q = `INSERT INTO listings
		(owner_id, organization_id, category_id, name, price, size, item_condition, description, status)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := tx.ExecContext(ctx, q, l.OwnerID, l.OrganizationID, l.CategoryID, l.Name, l.Price,
		l.Size, l.Condition, l.Description, l.Status)
	if err != nil {
		return translate(err, "insert listing")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate(err, "insert listing")
	}
	// Query back the row to pick up the database defaults.
	stored, err := getListing(ctx, tx, uint64(id), false)
	if err != nil {
		return err
	}
	*l = stored
	return nil
}

// UpdateDetailsTx writes the editable fields of l.
func (r *ListingRepo) UpdateDetailsTx(ctx context.Context, tx *sql.Tx, l model.Listing) error {
	const q = `UPDATE listings
		SET name = ?, price = ?, category_id = ?, size = ?, item_condition = ?, description = ?
		WHERE id = ?`
	_, err := tx.ExecContext(ctx, q, l.Name, l.Price, l.CategoryID, l.Size, l.Condition, l.Description, l.ID)
	return translate(err, "update listing")
}

// SetStateTx writes status and partner together so the pair never
// disagrees.
func (r *ListingRepo) SetStateTx(ctx context.Context, tx *sql.Tx, id uint64, status model.Status, partnerID *uint64) error {
	_, err := tx.ExecContext(ctx,
		`UPDATE listings SET status = ?, partner_id = ? WHERE id = ?`,
		status, nullable(partnerID), id)
	return translate(err, "set listing state")
}

// SetMainImageTx points the listing at its main image.
func (r *ListingRepo) SetMainImageTx(ctx context.Context, tx *sql.Tx, listingID, imageID uint64) error {
	_, err := tx.ExecContext(ctx, `UPDATE listings SET main_image_id = ? WHERE id = ?`, imageID, listingID)
	return translate(err, "set main image")
}

// DeleteTx removes a listing and every row attached to it and returns the
// image refs that were attached.
func (r *ListingRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) ([]string, error) {
	rows, err := tx.QueryContext(ctx, `SELECT ref FROM listing_images WHERE listing_id = ? ORDER BY display_order`, id)
	if err != nil {
		return nil, translate(err, "list listing images")
	}
	var refs []string
	for rows.Next() {
		var ref string
		if err := rows.Scan(&ref); err != nil {
			rows.Close()
			return nil, translate(err, "scan image ref")
		}
		refs = append(refs, ref)
	}
	if err := rows.Close(); err != nil {
		return nil, translate(err, "list listing images")
	}

	if _, err := tx.ExecContext(ctx, `UPDATE listings SET main_image_id = NULL WHERE id = ?`, id); err != nil {
		return nil, translate(err, "clear main image")
	}
	for _, stmt := range []string{
		`DELETE FROM listing_images WHERE listing_id = ?`,
		`DELETE FROM favorites WHERE listing_id = ?`,
		`DELETE FROM comments WHERE listing_id = ?`,
		`DELETE FROM purchase_intents WHERE listing_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return nil, translate(err, "delete listing children")
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM listings WHERE id = ?`, id)
	if err != nil {
		return nil, translate(err, "delete listing")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return nil, translate(sql.ErrNoRows, "delete listing")
	}
	return refs, nil
}

// IDsByOwnerTx returns the ids of every listing owned by ownerID.
func (r *ListingRepo) IDsByOwnerTx(ctx context.Context, tx *sql.Tx, ownerID uint64) ([]uint64, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id FROM listings WHERE owner_id = ? ORDER BY id`, ownerID)
	if err != nil {
		return nil, translate(err, "list owner listings")
	}
	defer rows.Close()
	var ids []uint64
	for rows.Next() {
		var id uint64
		if err := rows.Scan(&id); err != nil {
			return nil, translate(err, "scan listing id")
		}
		ids = append(ids, id)
	}
	return ids, translate(rows.Err(), "list owner listings")
}

// ReleasePartnerTx clears userID as negotiating partner.  Listings in
// transaction go back on sale; sold listings keep their status.
func (r *ListingRepo) ReleasePartnerTx(ctx context.Context, tx *sql.Tx, userID uint64) error {
	const q = `UPDATE listings
		SET status = CASE WHEN status = ? THEN ? ELSE status END,
		    partner_id = NULL
		WHERE partner_id = ?`
	_, err := tx.ExecContext(ctx, q, model.StatusInTransaction, model.StatusForSale, userID)
	return translate(err, "release partner")
}

const cardFrom = ` FROM listings l LEFT JOIN listing_images mi ON mi.id = l.main_image_id`

// ListByOwner returns the owner's listings, newest first.
func (r *ListingRepo) ListByOwner(ctx context.Context, ownerID uint64) ([]model.ListingCard, error) {
	q := `SELECT ` + listingColumns + `, mi.ref` + cardFrom + `
		WHERE l.owner_id = ?
		ORDER BY l.created_at DESC, l.id DESC`
	return r.queryCards(ctx, q, ownerID)
}

func (r *ListingRepo) queryCards(ctx context.Context, q string, args ...any) ([]model.ListingCard, error) {
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, translate(err, "query listings")
	}
	defer rows.Close()
	out := []model.ListingCard{}
	for rows.Next() {
		c, err := scanCard(rows)
		if err != nil {
			return nil, translate(err, "scan listing")
		}
		out = append(out, c)
	}
	return out, translate(rows.Err(), "query listings")
}

// placeholders returns "?, ?, ?" for n arguments.
func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?, ", n), ", ")
}
