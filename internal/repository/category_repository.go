package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/kinder-market/internal/model"
)

// CategoryRepo reads and writes the categories table.
type CategoryRepo struct {
	db *sql.DB
}

// NewCategoryRepo returns a CategoryRepo bound to db.
func NewCategoryRepo(db *sql.DB) *CategoryRepo { return &CategoryRepo{db: db} }

// GetByID loads one category.
func (r *CategoryRepo) GetByID(ctx context.Context, id uint64) (model.Category, error) {
	var c model.Category
	err := r.db.QueryRowContext(ctx, `SELECT id, name FROM categories WHERE id = ?`, id).Scan(&c.ID, &c.Name)
	return c, translate(err, "load category")
}

// List returns every category ordered by name.
func (r *CategoryRepo) List(ctx context.Context) ([]model.Category, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name FROM categories ORDER BY name`)
	if err != nil {
		return nil, translate(err, "list categories")
	}
	defer rows.Close()
	out := []model.Category{}
	for rows.Next() {
		var c model.Category
		if err := rows.Scan(&c.ID, &c.Name); err != nil {
			return nil, translate(err, "scan category")
		}
		out = append(out, c)
	}
	return out, translate(rows.Err(), "list categories")
}

// Create inserts c and fills in its ID.  A taken name yields
// service.ErrDuplicate.
func (r *CategoryRepo) Create(ctx context.Context, c *model.Category) error {
	res, err := r.db.ExecContext(ctx, `INSERT INTO categories (name) VALUES (?)`, c.Name)
	if err != nil {
		return translate(err, "insert category")
	}
	id, err := res.LastInsertId()
	if err != nil {
		return translate(err, "insert category")
	}
	c.ID = uint64(id)
	return nil
}
