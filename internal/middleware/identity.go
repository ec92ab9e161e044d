package middleware

// identity.go holds the helpers that move the authenticated user id through
// the Echo context.  JWTAuth stores it; handlers and the other middleware
// read it back.

import (
    "strconv"

    "github.com/labstack/echo/v4"
)

// UserIDKey names the context slot JWTAuth fills with the caller's id.
const UserIDKey = "user_id"

// SetUserID records id as the authenticated caller.
func SetUserID(c echo.Context, id uint64) { c.Set(UserIDKey, id) }

// UserID returns the authenticated caller's id.  ok is false on routes that
// are not behind JWTAuth.
func UserID(c echo.Context) (id uint64, ok bool) {
    id, ok = c.Get(UserIDKey).(uint64)
    return id, ok && id != 0
}

// userKey renders the caller for request log fields.  It returns
// "anon" when no user is authenticated.
func userKey(c echo.Context) string {
    if id, ok := UserID(c); ok {
        return strconv.FormatUint(id, 10)
    }
    return "anon"
}
