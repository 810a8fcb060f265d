package service

import (
	"context"
	"strconv"
	"strings"

	"github.com/iliyamo/kinder-market/internal/model"
)

// PageSize is the fixed number of listings per search page.
const PageSize = 10

// RawFilter carries search criteria exactly as received from the client.
// Multi-valued fields may hold repeated values or comma separated lists.
type RawFilter struct {
	Keyword    string
	Categories []string
	PriceMin   string
	PriceMax   string
	Sizes      []string
	Conditions []string
	Page       string
}

// Filter is a validated search.  Nil or empty fields are inactive.
type Filter struct {
	Keyword     string
	CategoryIDs []uint64
	PriceMin    *uint32
	PriceMax    *uint32
	Sizes       []model.Size
	Conditions  []model.Condition
	Page        int
}

// ParseFilter validates raw criteria.  An unusable page token falls back
// to page 1 instead of failing.
func ParseFilter(raw RawFilter) (Filter, error) {
	f := Filter{Keyword: strings.TrimSpace(raw.Keyword), Page: 1}

	for _, v := range splitValues(raw.Categories) {
		id, err := strconv.ParseUint(v, 10, 64)
		if err != nil || id == 0 {
			return Filter{}, invalid("category", "invalid category "+strconv.Quote(v))
		}
		f.CategoryIDs = appendUnique(f.CategoryIDs, id)
	}

	var err error
	if f.PriceMin, err = parsePrice("price_min", raw.PriceMin); err != nil {
		return Filter{}, err
	}
	if f.PriceMax, err = parsePrice("price_max", raw.PriceMax); err != nil {
		return Filter{}, err
	}
	if f.PriceMin != nil && f.PriceMax != nil && *f.PriceMin > *f.PriceMax {
		return Filter{}, invalid("price_min", "must not be greater than price_max")
	}

	for _, v := range splitValues(raw.Sizes) {
		sz, err := model.ParseSize(v)
		if err != nil {
			return Filter{}, invalid("size", err.Error())
		}
		f.Sizes = appendUnique(f.Sizes, sz)
	}
	for _, v := range splitValues(raw.Conditions) {
		c, err := model.ParseCondition(v)
		if err != nil {
			return Filter{}, invalid("condition", err.Error())
		}
		f.Conditions = appendUnique(f.Conditions, c)
	}

	if p, err := strconv.Atoi(strings.TrimSpace(raw.Page)); err == nil && p > 0 {
		f.Page = p
	}
	return f, nil
}

func parsePrice(field, raw string) (*uint32, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	n, err := strconv.ParseUint(raw, 10, 32)
	if err != nil {
		return nil, invalid(field, "must be a non-negative integer")
	}
	v := uint32(n)
	return &v, nil
}

func splitValues(in []string) []string {
	var out []string
	for _, v := range in {
		for _, p := range strings.Split(v, ",") {
			if p = strings.TrimSpace(p); p != "" {
				out = append(out, p)
			}
		}
	}
	return out
}

func appendUnique[T comparable](s []T, v T) []T {
	for _, x := range s {
		if x == v {
			return s
		}
	}
	return append(s, v)
}

// SearchItem is one search hit with the viewer's favorite flag.
type SearchItem struct {
	model.ListingCard
	Favorited bool `json:"favorited"`
}

// SearchPage is one page of search results.
type SearchPage struct {
	Items      []SearchItem `json:"items"`
	Page       int          `json:"page"`
	PageSize   int          `json:"page_size"`
	TotalPages int          `json:"total_pages"`
	Total      int          `json:"total"`
}

// Search returns a page of FOR_SALE listings of the actor's organization,
// excluding the actor's own listings.  A page beyond the end is clamped
// to the last page.
func (s *Service) Search(ctx context.Context, a Actor, f Filter) (SearchPage, error) {
	if a.OrganizationID == nil {
		return SearchPage{}, ErrAuthorization
	}
	q := ListingQuery{
		Filter:         f,
		Status:         model.StatusForSale,
		OrganizationID: *a.OrganizationID,
		ExcludeOwnerID: a.UserID,
	}
	total, err := s.store.CountListings(ctx, q)
	if err != nil {
		return SearchPage{}, err
	}
	page, pages := clampPage(f.Page, total)
	out := SearchPage{Items: []SearchItem{}, Page: page, PageSize: PageSize, TotalPages: pages, Total: total}
	if total == 0 {
		return out, nil
	}

	cards, err := s.store.FindListings(ctx, q, PageSize, (page-1)*PageSize)
	if err != nil {
		return SearchPage{}, err
	}
	ids := make([]uint64, len(cards))
	for i, c := range cards {
		ids[i] = c.ID
	}
	favs, err := s.store.FavoritedAmong(ctx, a.UserID, ids)
	if err != nil {
		return SearchPage{}, err
	}
	for _, c := range cards {
		out.Items = append(out.Items, SearchItem{ListingCard: c, Favorited: favs[c.ID]})
	}
	return out, nil
}

// clampPage returns the page to serve and the number of pages.  There is
// always at least one page, even when total is zero.
func clampPage(requested, total int) (page, pages int) {
	pages = (total + PageSize - 1) / PageSize
	if pages < 1 {
		pages = 1
	}
	page = requested
	if page < 1 {
		page = 1
	}
	if page > pages {
		page = pages
	}
	return page, pages
}
