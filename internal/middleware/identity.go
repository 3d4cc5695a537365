package middleware

// identity.go normalizes the authenticated identity stored by JWTAuth
// into a string key for rate limiting and cache partitioning.  JWT
// numeric claims decode as float64, so the raw context value is not
// usable as a key directly.

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// identityKey returns a stable string for the authenticated user, or
// "anon" for unauthenticated requests.
func identityKey(c echo.Context) string {
	switch v := c.Get("user_id").(type) {
	case string:
		if v != "" {
			return v
		}
	case float64:
		return strconv.FormatUint(uint64(v), 10)
	case uint64:
		return strconv.FormatUint(v, 10)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	}
	return "anon"
}
