package repository

import (
	"context"
	"strings"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/service"
)

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// buildListingWhere turns a validated query into a WHERE clause and its
// arguments.  Criteria are ANDed; multi-valued criteria match any of
// their values.
func buildListingWhere(q service.ListingQuery) (string, []any) {
	where := []string{"l.status = ?", "l.organization_id = ?", "l.owner_id <> ?"}
	args := []any{q.Status, q.OrganizationID, q.ExcludeOwnerID}

	if q.Keyword != "" {
		kw := "%" + likeEscaper.Replace(strings.ToLower(q.Keyword)) + "%"
		where = append(where, "(LOWER(l.name) LIKE ? OR LOWER(l.description) LIKE ?)")
		args = append(args, kw, kw)
	}
	if len(q.CategoryIDs) > 0 {
		where = append(where, "l.category_id IN ("+placeholders(len(q.CategoryIDs))+")")
		for _, id := range q.CategoryIDs {
			args = append(args, id)
		}
	}
	if q.PriceMin != nil {
		where = append(where, "l.price >= ?")
		args = append(args, *q.PriceMin)
	}
	if q.PriceMax != nil {
		where = append(where, "l.price <= ?")
		args = append(args, *q.PriceMax)
	}
	if len(q.Sizes) > 0 {
		where = append(where, "l.size IN ("+placeholders(len(q.Sizes))+")")
		for _, s := range q.Sizes {
			args = append(args, s)
		}
	}
	if len(q.Conditions) > 0 {
		where = append(where, "l.item_condition IN ("+placeholders(len(q.Conditions))+")")
		for _, c := range q.Conditions {
			args = append(args, c)
		}
	}
	return strings.Join(where, " AND "), args
}

// Count returns the number of listings matching q.
func (r *ListingRepo) Count(ctx context.Context, q service.ListingQuery) (int, error) {
	cond, args := buildListingWhere(q)
	var total int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM listings l WHERE `+cond, args...).Scan(&total)
	return total, translate(err, "count listings")
}

// Find returns one page of listings matching q, newest first.
func (r *ListingRepo) Find(ctx context.Context, q service.ListingQuery, limit, offset int) ([]model.ListingCard, error) {
	cond, args := buildListingWhere(q)
	query := `SELECT ` + listingColumns + `, mi.ref` + cardFrom + `
		WHERE ` + cond + `
		ORDER BY l.created_at DESC, l.id DESC
		LIMIT ? OFFSET ?`
	return r.queryCards(ctx, query, append(args, limit, offset)...)
}
