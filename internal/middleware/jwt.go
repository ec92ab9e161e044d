package middleware // declare the middleware package; contains reusable HTTP middleware functions

import (
    "errors"   // distinguish expired tokens from malformed ones
    "net/http" // HTTP status codes for responses
    "strings"  // string utilities for prefix checking and trimming

    "github.com/labstack/echo/v4" // Echo framework used for defining middleware and handlers

    "github.com/iliyamo/mindful-backend/internal/utils" // session token verification
)

// JWTAuth returns an Echo middleware that validates a Bearer session token
// and injects the token's user id into the request context.  The provided
// secret must match the one used when issuing tokens.  Handlers behind it
// read the caller with UserID(c).
func JWTAuth(secret string) echo.MiddlewareFunc {
    return func(next echo.HandlerFunc) echo.HandlerFunc {
        // The returned handler is invoked for each incoming HTTP request.
        return func(c echo.Context) error {
            // A valid header is "Bearer " followed by the JWT.
            auth := c.Request().Header.Get("Authorization")
            if !strings.HasPrefix(auth, "Bearer ") {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token is missing"})
            }
            raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))

            // Signature, algorithm and expiry are all checked here.
            uid, err := utils.ParseSessionToken(secret, raw)
            if errors.Is(err, utils.ErrTokenExpired) {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token has expired"})
            }
            if err != nil {
                return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Token is invalid"})
            }

            SetUserID(c, uid)
            // Call the next handler in the chain and return its result.
            return next(c)
        }
    }
}
