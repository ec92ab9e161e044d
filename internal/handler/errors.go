package handler

import (
    "errors"
    "net/http"

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"
)

// HTTPErrorHandler renders errors that escape handlers (unknown routes,
// wrong methods, body limits, panics recovered by echo) in the same
// {"error": "..."} envelope the handlers use.
func HTTPErrorHandler(err error, c echo.Context) {
    if c.Response().Committed {
        return
    }
    code := http.StatusInternalServerError
    msg := "Internal server error"

    var he *echo.HTTPError
    if errors.As(err, &he) {
        code = he.Code
        switch code {
        case http.StatusNotFound:
            msg = "Not found"
        case http.StatusMethodNotAllowed:
            msg = "Method not allowed"
        case http.StatusRequestEntityTooLarge:
            msg = "File too large"
        default:
            if s, ok := he.Message.(string); ok && s != "" {
                msg = s
            } else {
                msg = http.StatusText(code)
            }
        }
    }
    if code >= 500 {
        logrus.WithError(err).WithField("path", c.Request().URL.Path).Error("unhandled error")
    }

    if c.Request().Method == http.MethodHead {
        err = c.NoContent(code)
    } else {
        err = c.JSON(code, map[string]string{"error": msg})
    }
    if err != nil {
        logrus.WithError(err).Warn("write error response")
    }
}
