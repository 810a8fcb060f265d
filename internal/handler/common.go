package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
	"go.uber.org/zap"

	"github.com/iliyamo/kinder-market/internal/middleware"
	"github.com/iliyamo/kinder-market/internal/model"
	"github.com/iliyamo/kinder-market/internal/service"
)

const internalErrorMessage = "something went wrong, please retry later"

// UserLoader loads the member behind an authenticated request.
type UserLoader interface {
	UserByID(ctx context.Context, id uint64) (model.User, error)
}

var errNoUser = errors.New("invalid user_id in context")

// getUserID returns the user id stored by middleware.JWTAuth.
func getUserID(c echo.Context) (uint64, error) {
	id, err := cast.ToUint64E(c.Get(middleware.ContextUserID))
	if err != nil || id == 0 {
		return 0, errNoUser
	}
	return id, nil
}

// loadActor resolves the authenticated member into a service.Actor.  A
// token whose user no longer exists or is inactive is treated as
// unauthenticated.
func loadActor(c echo.Context, users UserLoader) (service.Actor, error) {
	id, err := getUserID(c)
	if err != nil {
		return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	u, err := users.UserByID(c.Request().Context(), id)
	if errors.Is(err, service.ErrNotFound) || (err == nil && !u.IsActive) {
		return service.Actor{}, echo.NewHTTPError(http.StatusUnauthorized, "unauthorized")
	}
	if err != nil {
		return service.Actor{}, err
	}
	return service.ActorFor(u), nil
}

// pathID parses a positive numeric path parameter.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, &service.ValidationError{Field: name, Message: "must be a positive integer"}
	}
	return id, nil
}

// respondError writes the JSON error response for err.  Unexpected errors
// are logged with the request path and user and hidden behind a generic
// message.
func respondError(c echo.Context, log *zap.Logger, err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return c.JSON(he.Code, echo.Map{"error": he.Message})
	}
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": ve.Message, "field": ve.Field})
	case errors.Is(err, service.ErrValidation):
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	case errors.Is(err, service.ErrAuthorization):
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	case errors.Is(err, service.ErrNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": "not found"})
	case errors.Is(err, service.ErrInvalidState):
		return c.JSON(http.StatusConflict, echo.Map{"error": "listing is not in a state that allows this"})
	case errors.Is(err, service.ErrSelfDealing):
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "not allowed on your own listing"})
	}
	uid, _ := getUserID(c)
	log.Error("request failed",
		zap.String("method", c.Request().Method),
		zap.String("path", c.Request().URL.Path),
		zap.Uint64("user_id", uid),
		zap.Error(err))
	return c.JSON(http.StatusInternalServerError, echo.Map{"error": internalErrorMessage})
}
