package handler

import (
	"net/http"
	"net/url"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/kinder-market/internal/service"
)

// rawFilter maps query parameters onto search criteria.  Multi-valued
// parameters may repeat or hold comma separated values.
func rawFilter(q url.Values) service.RawFilter {
	return service.RawFilter{
		Keyword:    q.Get("keyword"),
		Categories: q["category"],
		PriceMin:   q.Get("price_min"),
		PriceMax:   q.Get("price_max"),
		Sizes:      q["size"],
		Conditions: q["condition"],
		Page:       q.Get("page"),
	}
}

// Search handles GET /v1/listings.
func (h *MarketHandler) Search(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	f, err := service.ParseFilter(rawFilter(c.QueryParams()))
	if err != nil {
		return respondError(c, h.Log, err)
	}
	page, err := h.Svc.Search(c.Request().Context(), a, f)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, page)
}
