package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kinder-market/internal/model"
)

// IntentRepo reads and writes the purchase_intents table.  A member holds
// at most one intent per listing.
type IntentRepo struct {
	db *sql.DB
}

// NewIntentRepo returns an IntentRepo bound to db.
func NewIntentRepo(db *sql.DB) *IntentRepo { return &IntentRepo{db: db} }

const intentColumns = `i.id, i.user_id, i.listing_id, i.created_at, i.updated_at`

func scanIntent(r rowScanner) (model.PurchaseIntent, error) {
	var in model.PurchaseIntent
	err := r.Scan(&in.ID, &in.UserID, &in.ListingID, &in.CreatedAt, &in.UpdatedAt)
	return in, err
}

// GetByID loads one intent.
func (r *IntentRepo) GetByID(ctx context.Context, id uint64) (model.PurchaseIntent, error) {
	in, err := scanIntent(r.db.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM purchase_intents i WHERE i.id = ?`, id))
	return in, translate(err, "load intent")
}

// FindTx loads the intent of userID on listingID.
func (r *IntentRepo) FindTx(ctx context.Context, tx *sql.Tx, userID, listingID uint64) (model.PurchaseIntent, error) {
	in, err := scanIntent(tx.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM purchase_intents i WHERE i.user_id = ? AND i.listing_id = ?`,
		userID, listingID))
	return in, translate(err, "find intent")
}

// CreateTx inserts in and fills in its ID and timestamps.
func (r *IntentRepo) CreateTx(ctx context.Context, tx *sql.Tx, in *model.PurchaseIntent) error {
	res, err := tx.ExecContext(ctx,
		`INSERT INTO purchase_intents (user_id, listing_id) VALUES (?, ?)`, in.UserID, in.ListingID)
	if err != nil {
		return translate(err, "insert intent")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate(err, "insert intent")
	}
	stored, err := scanIntent(tx.QueryRowContext(ctx,
		`SELECT `+intentColumns+` FROM purchase_intents i WHERE i.id = ?`, id))
	if err != nil {
		return translate(err, "reload intent")
	}
	*in = stored
	return nil
}

// DeleteTx removes one intent.
func (r *IntentRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	_, err := tx.ExecContext(ctx, `DELETE FROM purchase_intents WHERE id = ?`, id)
	return translate(err, "delete intent")
}

// Exists reports whether userID holds an intent on listingID.
func (r *IntentRepo) Exists(ctx context.Context, userID, listingID uint64) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx,
		`SELECT 1 FROM purchase_intents WHERE user_id = ? AND listing_id = ?`, userID, listingID).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	return err == nil, translate(err, "check intent")
}

// intentEntries joins intents with their listing and the counterpart
// user selected by counterpartCol.
func (r *IntentRepo) intentEntries(ctx context.Context, counterpartCol, whereCol string, id uint64) ([]model.IntentEntry, error) {
	q := `SELECT ` + intentColumns + `, ` + listingColumns + `, mi.ref, u.id, u.name, u.display_name
		FROM purchase_intents i
		JOIN listings l ON l.id = i.listing_id
		LEFT JOIN listing_images mi ON mi.id = l.main_image_id
		JOIN users u ON u.id = ` + counterpartCol + `
		WHERE ` + whereCol + ` = ?
		ORDER BY i.created_at DESC, i.id DESC`
	rows, err := r.db.QueryContext(ctx, q, id)
	if err != nil {
		return nil, translate(err, "list intents")
	}
	defer rows.Close()
	out := []model.IntentEntry{}
	for rows.Next() {
		var (
			e           model.IntentEntry
			partner     sql.NullInt64
			mainImg     sql.NullInt64
			ref         sql.NullString
			displayName sql.NullString
			cp          model.User
		)
		l := &e.Listing.Listing
		err := rows.Scan(
			&e.Intent.ID, &e.Intent.UserID, &e.Intent.ListingID, &e.Intent.CreatedAt, &e.Intent.UpdatedAt,
			&l.ID, &l.OwnerID, &l.OrganizationID, &l.CategoryID, &l.Name, &l.Price,
			&l.Size, &l.Condition, &l.Description, &l.Status, &partner, &mainImg,
			&l.CreatedAt, &l.UpdatedAt,
			&ref, &cp.ID, &cp.Name, &displayName,
		)
		if err != nil {
			return nil, translate(err, "scan intent")
		}
		l.PartnerID = nullID(partner)
		l.MainImageID = nullID(mainImg)
		if ref.Valid {
			e.Listing.MainImageRef = &ref.String
		}
		if displayName.Valid {
			cp.DisplayName = &displayName.String
		}
		e.Counterpart = model.UserSummary{ID: cp.ID, Name: cp.PublicName()}
		out = append(out, e)
	}
	return out, translate(rows.Err(), "list intents")
}

// SentBy lists the intents userID expressed with the listing owner as
// counterpart.
func (r *IntentRepo) SentBy(ctx context.Context, userID uint64) ([]model.IntentEntry, error) {
	return r.intentEntries(ctx, "l.owner_id", "i.user_id", userID)
}

// ReceivedBy lists intents on ownerID's listings with the interested
// member as counterpart.
func (r *IntentRepo) ReceivedBy(ctx context.Context, ownerID uint64) ([]model.IntentEntry, error) {
	return r.intentEntries(ctx, "i.user_id", "l.owner_id", ownerID)
}
