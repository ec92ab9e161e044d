// Package queue defines message payloads exchanged over the message broker
// and the consumer that records them.
package queue

import "time"

// ActivityQueue is the durable queue activity events are published to.
const ActivityQueue = "mindful.activity"

// Activity event types.
const (
    EventPostCreated   = "post.created"
    EventPostCommented = "post.commented"
    EventPostUpvoted   = "post.upvoted"
    EventMoodLogged    = "mood.logged"
)

// ActivityEvent is published after a community or journal write succeeds.
// It carries identifiers only; consumers that need the content read it
// from the primary database.
type ActivityEvent struct {
    Type       string `json:"type"`
    UserID     uint64 `json:"user_id"`
    PostID     uint64 `json:"post_id,omitempty"`
    Category   string `json:"category,omitempty"`
    Mood       string `json:"mood,omitempty"`
    Upvoted    bool   `json:"upvoted,omitempty"`
    OccurredAt string `json:"occurred_at"`
}

// NewActivityEvent stamps an event of type typ with the current UTC time.
func NewActivityEvent(typ string, userID uint64) ActivityEvent {
    return ActivityEvent{Type: typ, UserID: userID, OccurredAt: time.Now().UTC().Format(time.RFC3339)}
}
