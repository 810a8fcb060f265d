package middleware

import (
	"github.com/labstack/echo/v4"
	"github.com/spf13/cast"
)

// userKey returns the authenticated user id as a string for use in cache
// and rate limit keys, or "anon" when the request is unauthenticated.
func userKey(c echo.Context) string {
	if v := c.Get(ContextUserID); v != nil {
		if s := cast.ToString(v); s != "" && s != "0" {
			return s
		}
	}
	return "anon"
}
