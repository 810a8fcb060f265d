package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/utils"
)

// UserRepo reads and writes the users table.
type UserRepo struct {
	db *sql.DB
}

// NewUserRepo returns a UserRepo bound to db.
func NewUserRepo(db *sql.DB) *UserRepo { return &UserRepo{db: db} }

// NewUser is the input of Create.
type NewUser struct {
	Email          string
	Name           string
	DisplayName    string
	Password       string
	OrganizationID uint64
}

const userColumns = `id, email, name, display_name, organization_id, password_hash, is_active, is_staff, created_at, updated_at`

func scanUser(r rowScanner) (model.User, error) {
	var (
		u           model.User
		displayName sql.NullString
		orgID       sql.NullInt64
	)
	err := r.Scan(&u.ID, &u.Email, &u.Name, &displayName, &orgID, &u.PasswordHash,
		&u.IsActive, &u.IsStaff, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return model.User{}, err
	}
	if displayName.Valid {
		u.DisplayName = &displayName.String
	}
	u.OrganizationID = nullID(orgID)
	return u, nil
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Create hashes the password, inserts the member and returns its ID.  A
// taken email yields service.ErrDuplicate.
func (r *UserRepo) Create(ctx context.Context, nu NewUser, cost int) (uint64, error) {
	hash, err := utils.HashPassword(nu.Password, cost)
	if err != nil {
		return 0, err
	}
	var displayName any
	if dn := strings.TrimSpace(nu.DisplayName); dn != "" {
		displayName = dn
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO users (email, name, display_name, organization_id, password_hash) VALUES (?, ?, ?, ?, ?)`,
		normalizeEmail(nu.Email), strings.TrimSpace(nu.Name), displayName, nu.OrganizationID, hash)
	if err != nil {
		return 0, translate(err, "insert user")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, translate(err, "insert user")
	}
	return uint64(id), nil
}

// GetByEmail fetches a user by normalized email.
func (r *UserRepo) GetByEmail(ctx context.Context, email string) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ? LIMIT 1`, normalizeEmail(email)))
	return u, translate(err, "load user by email")
}

// GetByID fetches a user by id.
func (r *UserRepo) GetByID(ctx context.Context, id uint64) (model.User, error) {
	u, err := scanUser(r.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ? LIMIT 1`, id))
	return u, translate(err, "load user")
}

// DeleteTx removes the user with the favorites, comments, intents and
// refresh tokens they own.  Listings must already be gone.
func (r *UserRepo) DeleteTx(ctx context.Context, tx *sql.Tx, id uint64) error {
	for _, stmt := range []string{
		`DELETE FROM favorites WHERE user_id = ?`,
		`DELETE FROM comments WHERE user_id = ?`,
		`DELETE FROM purchase_intents WHERE user_id = ?`,
		`DELETE FROM refresh_tokens WHERE user_id = ?`,
	} {
		if _, err := tx.ExecContext(ctx, stmt, id); err != nil {
			return translate(err, "delete user rows")
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return translate(err, "delete user")
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return translate(sql.ErrNoRows, "delete user")
	}
	return nil
}
