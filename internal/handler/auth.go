package handler

import (
    "errors"   // errors.Is on repository sentinels
    "net/http" // HTTP status codes and primitives
    "strings"  // string manipulation utilities
    "time"     // token lifetime

    "github.com/labstack/echo/v4" // Echo framework for HTTP routing
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/mindful-backend/internal/middleware" // registration counter
    "github.com/iliyamo/mindful-backend/internal/model"
    "github.com/iliyamo/mindful-backend/internal/repository" // DB repositories
    "github.com/iliyamo/mindful-backend/internal/utils"      // helper functions (hashing, token issuing)
)

// AuthHandler bundles dependencies for auth endpoints.
type AuthHandler struct {
    Secret   string
    TokenTTL time.Duration
    Users    UserStore
}

func NewAuthHandler(secret string, ttl time.Duration, users UserStore) *AuthHandler {
    if ttl <= 0 {
        ttl = 24 * time.Hour
    }
    return &AuthHandler{Secret: secret, TokenTTL: ttl, Users: users}
}

// ----- DTOs -----

type registerReq struct {
    Name            string `json:"name" validate:"required"`
    Email           string `json:"email" validate:"required,email"`
    Password        string `json:"password" validate:"required"`
    ConfirmPassword string `json:"confirm_password" validate:"required"`
}

func (r *registerReq) normalize() {
    r.Name = strings.TrimSpace(r.Name)
    r.Email = strings.TrimSpace(r.Email)
}

type loginReq struct {
    Email    string `json:"email" validate:"required"`
    Password string `json:"password" validate:"required"`
}

func (r *loginReq) normalize() { r.Email = strings.TrimSpace(r.Email) }

type loginResp struct {
    Token     string          `json:"token"`
    ExpiresAt model.Timestamp `json:"expires_at"`
    User      *model.User     `json:"user"`
}

// Register creates a user.  Emails are compared exactly, so addresses that
// differ only in case are distinct accounts.
func (h *AuthHandler) Register(c echo.Context) error {
    var req registerReq
    if msg := bindRequest(c, &req); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    if req.Password != req.ConfirmPassword {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Passwords do not match"})
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    u, err := h.Users.Create(ctx, req.Name, req.Email, req.Password)
    switch {
    case errors.Is(err, repository.ErrEmailExists):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "User already exists"})
    case errors.Is(err, utils.ErrPasswordTooLong):
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Password must be at most 72 bytes"})
    case err != nil:
        logFailure(c, err, "register")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to register user"})
    }

    middleware.RecordRegistration()
    logrus.WithField("user_id", u.ID).Info("user registered")
    return c.JSON(http.StatusCreated, echo.Map{"message": "User registered successfully", "user": u})
}

// Login verifies the credentials and issues a session token.  Unknown
// emails and wrong passwords get the same answer.
func (h *AuthHandler) Login(c echo.Context) error {
    var req loginReq
    if msg := bindRequest(c, &req); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }

    ctx, cancel := storeCtx(c)
    defer cancel()

    u, err := h.Users.GetByEmail(ctx, req.Email)
    if err != nil {
        if errors.Is(err, repository.ErrUserNotFound) {
            return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
        }
        logFailure(c, err, "login")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to log in"})
    }
    if !h.Users.VerifyPassword(u, req.Password) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "Invalid credentials"})
    }

    tok, err := utils.NewSessionToken(h.Secret, u.ID, h.TokenTTL)
    if err != nil {
        logFailure(c, err, "issue_token")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to issue token"})
    }
    return c.JSON(http.StatusOK, loginResp{Token: tok.Token, ExpiresAt: model.NewTimestamp(tok.Exp), User: u})
}

// ListUsers returns every registered user without credentials.
func (h *AuthHandler) ListUsers(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    users, err := h.Users.List(ctx)
    if err != nil {
        logFailure(c, err, "list_users")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch users"})
    }
    return c.JSON(http.StatusOK, users)
}
