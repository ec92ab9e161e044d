package model

// Post is a community post.  Comments are returned in creation order.
// Upvotes is the size of the upvoter set; Upvoted reports whether the user
// who asked for the post is a member of that set.
type Post struct {
    ID        uint64    `json:"_id"`
    UserID    uint64    `json:"user_id"`
    Title     string    `json:"title"`
    Content   string    `json:"content"`
    Category  string    `json:"category"`
    Comments  []Comment `json:"comments"`
    Upvotes   int       `json:"upvotes"`
    Upvoted   bool      `json:"upvoted"`
    CreatedAt Timestamp `json:"created_at"`
}

// Comment is appended to a post.  Username is a snapshot of the author's
// display name taken when the comment was written.
type Comment struct {
    ID        uint64    `json:"id"`
    PostID    uint64    `json:"post_id"`
    UserID    uint64    `json:"user_id"`
    Username  string    `json:"username"`
    Content   string    `json:"content"`
    CreatedAt Timestamp `json:"created_at"`
}
