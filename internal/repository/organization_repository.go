package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kinder-market/internal/model"
)

// OrganizationRepo reads the organizations table.  Organizations are
// maintained out of band by staff.
type OrganizationRepo struct {
	db *sql.DB
}

// NewOrganizationRepo returns an OrganizationRepo bound to db.
func NewOrganizationRepo(db *sql.DB) *OrganizationRepo { return &OrganizationRepo{db: db} }

// GetByID loads one organization.
func (r *OrganizationRepo) GetByID(ctx context.Context, id uint64) (model.Organization, error) {
	var o model.Organization
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, enrollment_code, zip_code, prefecture, address, created_at, updated_at
		 FROM organizations WHERE id = ?`, id).
		Scan(&o.ID, &o.Name, &o.EnrollmentCode, &o.ZipCode, &o.Prefecture, &o.Address, &o.CreatedAt, &o.UpdatedAt)
	return o, translate(err, "load organization")
}
