package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// ToggleFavorite handles POST /v1/listings/:id/favorite.
func (h *MarketHandler) ToggleFavorite(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Svc.ToggleFavorite(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// Favorites handles GET /v1/favorites.
func (h *MarketHandler) Favorites(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	items, err := h.Svc.ListFavorites(c.Request().Context(), a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// AddIntent handles POST /v1/listings/:id/intent.  A repeated request
// answers 200 instead of 201.
func (h *MarketHandler) AddIntent(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Svc.AddIntent(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	status := http.StatusCreated
	if res.AlreadyExpressed {
		status = http.StatusOK
	}
	return c.JSON(status, res)
}

// WithdrawIntent handles DELETE /v1/listings/:id/intent.
func (h *MarketHandler) WithdrawIntent(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	if err := h.Svc.WithdrawIntent(c.Request().Context(), a, id); err != nil {
		return respondError(c, h.Log, err)
	}
	return c.NoContent(http.StatusNoContent)
}

// SentIntents handles GET /v1/intents/sent.
func (h *MarketHandler) SentIntents(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	items, err := h.Svc.ListSentIntents(c.Request().Context(), a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// ReceivedIntents handles GET /v1/intents/received.
func (h *MarketHandler) ReceivedIntents(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	items, err := h.Svc.ListReceivedIntents(c.Request().Context(), a)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// StartTransaction handles POST /v1/intents/:id/start.
func (h *MarketHandler) StartTransaction(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Svc.StartTransaction(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

// CompleteTransaction handles POST /v1/intents/:id/complete.
func (h *MarketHandler) CompleteTransaction(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	res, err := h.Svc.CompleteTransaction(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, res)
}

type commentReq struct {
	Body string `json:"body" form:"body"`
}

// Comments handles GET /v1/listings/:id/comments.
func (h *MarketHandler) Comments(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	items, err := h.Svc.ListComments(c.Request().Context(), a, id)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": items})
}

// AddComment handles POST /v1/listings/:id/comments.
func (h *MarketHandler) AddComment(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	id, err := pathID(c, "id")
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req commentReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	res, err := h.Svc.AddComment(c.Request().Context(), a, id, req.Body)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, res)
}

type categoryReq struct {
	Name string `json:"name" form:"name"`
}

// Categories handles GET /v1/categories.
func (h *MarketHandler) Categories(c echo.Context) error {
	cats, err := h.Svc.ListCategories(c.Request().Context())
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"items": cats})
}

// CreateCategory handles POST /v1/categories (staff only).
func (h *MarketHandler) CreateCategory(c echo.Context) error {
	a, err := loadActor(c, h.Users)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	var req categoryReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	cat, err := h.Svc.CreateCategory(c.Request().Context(), a, req.Name)
	if err != nil {
		return respondError(c, h.Log, err)
	}
	return c.JSON(http.StatusCreated, cat)
}
