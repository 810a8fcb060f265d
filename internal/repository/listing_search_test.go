package repository

import (
	"reflect"
	"testing"

	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/service"
)

func TestBuildListingWhereBase(t *testing.T) {
	cond, args := buildListingWhere(service.ListingQuery{Status: model.StatusForSale, OrganizationID: 4, ExcludeOwnerID: 9})
	if cond != "l.status = ? AND l.organization_id = ? AND l.owner_id <> ?" {
		t.Fatalf("cond = %q", cond)
	}
	if !reflect.DeepEqual(args, []any{model.StatusForSale, uint64(4), uint64(9)}) {
		t.Fatalf("args = %v", args)
	}
}

func TestBuildListingWhereAllCriteria(t *testing.T) {
	lo, hi := uint32(100), uint32(900)
	q := service.ListingQuery{
		Filter: service.Filter{
			Keyword:     "50%_Off",
			CategoryIDs: []uint64{1, 2},
			PriceMin:    &lo,
			PriceMax:    &hi,
			Sizes:       []model.Size{model.Size90, model.SizeM},
			Conditions:  []model.Condition{model.ConditionNew},
		},
		Status:         model.StatusForSale,
		OrganizationID: 4,
		ExcludeOwnerID: 9,
	}
	cond, args := buildListingWhere(q)

	want := "l.status = ? AND l.organization_id = ? AND l.owner_id <> ?" +
		" AND (LOWER(l.name) LIKE ? OR LOWER(l.description) LIKE ?)" +
		" AND l.category_id IN (?, ?)" +
		" AND l.price >= ? AND l.price <= ?" +
		" AND l.size IN (?, ?)" +
		" AND l.item_condition IN (?)"
	if cond != want {
		t.Fatalf("cond =\n%s\nwant\n%s", cond, want)
	}
	wantArgs := []any{
		model.StatusForSale, uint64(4), uint64(9),
		`%50\%\_off%`, `%50\%\_off%`,
		uint64(1), uint64(2),
		uint32(100), uint32(900),
		model.Size90, model.SizeM,
		model.ConditionNew,
	}
	if !reflect.DeepEqual(args, wantArgs) {
		t.Fatalf("args = %#v", args)
	}
}

func TestPlaceholders(t *testing.T) {
	for n, want := range map[int]string{0: "", 1: "?", 3: "?, ?, ?"} {
		if got := placeholders(n); got != want {
			t.Errorf("placeholders(%d) = %q, want %q", n, got, want)
		}
	}
}
