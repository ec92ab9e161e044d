package handler

import (
    "errors"
    "net/http"
    "strings"

    "github.com/labstack/echo/v4"

    "github.com/iliyamo/mindful-backend/internal/model"
    q "github.com/iliyamo/mindful-backend/internal/queue"
    "github.com/iliyamo/mindful-backend/internal/repository"
    "github.com/iliyamo/mindful-backend/internal/service"
)

// PostHandler serves the community endpoints.  Every route is behind
// JWTAuth.
type PostHandler struct {
    Posts  PostStore
    Users  UserStore
    Events service.EventPublisher
}

func NewPostHandler(posts PostStore, users UserStore, events service.EventPublisher) *PostHandler {
    if events == nil {
        events = service.NopPublisher{}
    }
    return &PostHandler{Posts: posts, Users: users, Events: events}
}

type createPostReq struct {
    Title    string `json:"title" validate:"required" msg:"Post title is required"`
    Content  string `json:"content" validate:"required" msg:"Post content is required"`
    Category string `json:"category" validate:"required" msg:"Post category is required"`
}

func (r *createPostReq) normalize() {
    r.Title = strings.TrimSpace(r.Title)
    r.Category = strings.TrimSpace(r.Category)
    if strings.TrimSpace(r.Content) == "" {
        r.Content = ""
    }
}

type commentReq struct {
    CommentContent string `json:"comment_content" validate:"required" msg:"Comment content is required"`
}

func (r *commentReq) normalize() {
    if strings.TrimSpace(r.CommentContent) == "" {
        r.CommentContent = ""
    }
}

// Create stores a new post for the caller.
func (h *PostHandler) Create(c echo.Context) error {
    var req createPostReq
    if msg := bindRequest(c, &req); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    uid := currentUser(c)

    ctx, cancel := storeCtx(c)
    defer cancel()

    p := &model.Post{UserID: uid, Title: req.Title, Content: req.Content, Category: req.Category}
    if err := h.Posts.Create(ctx, p); err != nil {
        logFailure(c, err, "create_post")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to create post"})
    }

    ev := q.NewActivityEvent(q.EventPostCreated, uid)
    ev.PostID, ev.Category = p.ID, p.Category
    service.PublishAsync(h.Events, ev)
    return c.JSON(http.StatusCreated, echo.Map{"message": "Post created", "post": p})
}

// List returns the caller's own posts.
func (h *PostHandler) List(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    posts, err := h.Posts.ListByUser(ctx, currentUser(c))
    if err != nil {
        logFailure(c, err, "list_posts")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch posts"})
    }
    return c.JSON(http.StatusOK, posts)
}

// Feed returns every user's posts, optionally filtered by ?category=.
func (h *PostHandler) Feed(c echo.Context) error {
    ctx, cancel := storeCtx(c)
    defer cancel()

    posts, err := h.Posts.ListAll(ctx, currentUser(c), c.QueryParam("category"))
    if err != nil {
        logFailure(c, err, "feed")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch posts"})
    }
    return c.JSON(http.StatusOK, posts)
}

// Delete removes a post owned by the caller.
func (h *PostHandler) Delete(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid post id"})
    }
    ctx, cancel := storeCtx(c)
    defer cancel()

    switch err := h.Posts.Delete(ctx, id, currentUser(c)); {
    case errors.Is(err, repository.ErrPostNotFound):
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Post not found"})
    case errors.Is(err, repository.ErrForbidden):
        return c.JSON(http.StatusForbidden, echo.Map{"error": "Not authorized"})
    case err != nil:
        logFailure(c, err, "delete_post")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to delete post"})
    }
    return c.JSON(http.StatusOK, echo.Map{"message": "Post deleted"})
}

// Upvote toggles the caller's membership in the post's upvoter set.
func (h *PostHandler) Upvote(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid post id"})
    }
    uid := currentUser(c)
    ctx, cancel := storeCtx(c)
    defer cancel()

    count, upvoted, err := h.Posts.ToggleUpvote(ctx, id, uid)
    if errors.Is(err, repository.ErrPostNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Post not found"})
    }
    if err != nil {
        logFailure(c, err, "upvote")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to update upvote"})
    }

    ev := q.NewActivityEvent(q.EventPostUpvoted, uid)
    ev.PostID, ev.Upvoted = id, upvoted
    service.PublishAsync(h.Events, ev)

    msg := "Post upvoted"
    if !upvoted {
        msg = "Upvote removed"
    }
    return c.JSON(http.StatusOK, echo.Map{"message": msg, "upvotes": count, "upvoted": upvoted})
}

// AddComment appends a comment signed with the caller's current name.
func (h *PostHandler) AddComment(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid post id"})
    }
    var req commentReq
    if msg := bindRequest(c, &req); msg != "" {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": msg})
    }
    uid := currentUser(c)

    ctx, cancel := storeCtx(c)
    defer cancel()

    u, err := h.Users.GetByID(ctx, uid)
    if errors.Is(err, repository.ErrUserNotFound) {
        return c.JSON(http.StatusUnauthorized, echo.Map{"error": "User not found"})
    }
    if err != nil {
        logFailure(c, err, "load_user")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add comment"})
    }

    cm, err := h.Posts.AddComment(ctx, id, uid, u.Name, req.CommentContent)
    if errors.Is(err, repository.ErrPostNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Post not found"})
    }
    if err != nil {
        logFailure(c, err, "add_comment")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to add comment"})
    }

    ev := q.NewActivityEvent(q.EventPostCommented, uid)
    ev.PostID = id
    service.PublishAsync(h.Events, ev)
    return c.JSON(http.StatusCreated, echo.Map{"message": "Comment added", "comment": cm})
}

// ListComments returns a post's comments oldest first.
func (h *PostHandler) ListComments(c echo.Context) error {
    id, ok := pathID(c, "id")
    if !ok {
        return c.JSON(http.StatusBadRequest, echo.Map{"error": "Invalid post id"})
    }
    ctx, cancel := storeCtx(c)
    defer cancel()

    comments, err := h.Posts.ListComments(ctx, id)
    if errors.Is(err, repository.ErrPostNotFound) {
        return c.JSON(http.StatusNotFound, echo.Map{"error": "Post not found"})
    }
    if err != nil {
        logFailure(c, err, "list_comments")
        return c.JSON(http.StatusInternalServerError, echo.Map{"error": "Failed to fetch comments"})
    }
    return c.JSON(http.StatusOK, comments)
}
