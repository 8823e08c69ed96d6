// Package handler contains the Echo HTTP handlers.  Handlers stay thin:
// they bind and validate transport-level input, call a service or
// repository, and translate typed errors into status codes.  Business
// rules live in internal/service and internal/repository.
package handler

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

// getUserID reads the authenticated user's id injected by the JWT
// middleware.  Numeric JWT claims decode as float64; tokens minted by
// other issuers may carry the subject as a string.
func getUserID(c echo.Context) uint64 {
	switch v := c.Get("user_id").(type) {
	case float64:
		return uint64(v)
	case uint64:
		return v
	case string:
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return 0
}
