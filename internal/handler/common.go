package handler // handler defines http handlers

import (
	"errors"  // errors provides the sentinel used in getSessionID
	"strconv" // strconv converts path parameters to numeric types

	"github.com/labstack/echo/v4" // echo defines request context types
)

// getSessionID extracts the session identifier the SessionAuth
// middleware stored in the context.  Every lock and booking operation
// is attributed to this identity.
func getSessionID(c echo.Context) (string, error) {
	if v, ok := c.Get("session_id").(string); ok && v != "" {
		return v, nil
	}
	return "", errors.New("missing session_id in context")
}

// pathID parses a positive uint64 path parameter such as :id or
// :seatId.  Zero and malformed values are rejected.
func pathID(c echo.Context, name string) (uint64, error) {
	n, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || n == 0 {
		return 0, errors.New("invalid " + name)
	}
	return n, nil
}
