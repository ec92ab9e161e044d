package handler // handler defines http handlers

import (
    "context" // per-request store timeouts
    "strconv" // path ids are decimal
    "time"    // timeout durations

    "github.com/labstack/echo/v4"
    "github.com/sirupsen/logrus"

    "github.com/iliyamo/mindful-backend/internal/middleware"
    "github.com/iliyamo/mindful-backend/internal/model"
)

// storeTimeout bounds every database call made on behalf of a request.
const storeTimeout = 5 * time.Second

// UserStore is the credential store used by the auth and post handlers.
type UserStore interface {
    Create(ctx context.Context, name, email, password string) (*model.User, error)
    GetByEmail(ctx context.Context, email string) (*model.User, error)
    GetByID(ctx context.Context, id uint64) (*model.User, error)
    List(ctx context.Context) ([]*model.User, error)
    VerifyPassword(u *model.User, candidate string) bool
}

// PostStore persists posts, comments and upvoter sets.
type PostStore interface {
    Create(ctx context.Context, p *model.Post) error
    ListByUser(ctx context.Context, userID uint64) ([]*model.Post, error)
    ListAll(ctx context.Context, viewer uint64, category string) ([]*model.Post, error)
    Delete(ctx context.Context, id, requester uint64) error
    ToggleUpvote(ctx context.Context, id, userID uint64) (int, bool, error)
    AddComment(ctx context.Context, postID, userID uint64, username, content string) (*model.Comment, error)
    ListComments(ctx context.Context, postID uint64) ([]model.Comment, error)
}

// MoodStore persists the mood journal.
type MoodStore interface {
    Create(ctx context.Context, m *model.MoodEntry) error
    ListByUser(ctx context.Context, userID uint64) ([]*model.MoodEntry, error)
}

// Invalidator drops cached responses after a write.
type Invalidator interface {
    Invalidate(ctx context.Context)
}

// storeCtx derives the context for store calls from the request.
func storeCtx(c echo.Context) (context.Context, context.CancelFunc) {
    return context.WithTimeout(c.Request().Context(), storeTimeout)
}

// currentUser returns the id JWTAuth put in the context.  Routes using it
// are always mounted behind JWTAuth, so a missing id is 0.
func currentUser(c echo.Context) uint64 {
    id, _ := middleware.UserID(c)
    return id
}

// pathID parses a numeric path parameter.
func pathID(c echo.Context, name string) (uint64, bool) {
    id, err := strconv.ParseUint(c.Param(name), 10, 64)
    return id, err == nil && id > 0
}

// logFailure records an unexpected store or filesystem error with the
// request it belongs to.  The client only sees a generic message.
func logFailure(c echo.Context, err error, what string) {
    middleware.RecordError(what)
    logrus.WithError(err).WithFields(logrus.Fields{
        "method":  c.Request().Method,
        "path":    c.Path(),
        "user_id": currentUser(c),
    }).Error(what + " failed")
}

func invalidate(c echo.Context, inv Invalidator) {
    if inv != nil {
        inv.Invalidate(c.Request().Context())
    }
}
