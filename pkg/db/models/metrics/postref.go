package metrics

import "time"

// PostRef identifies one post together with its creation time, as returned by
// phase-transition candidate queries.
type PostRef struct {
	OwnerID       string    `ch:"owner_id"`
	PostID        string    `ch:"post_id"`
	PostCreatedAt time.Time `ch:"post_created_at"`
}
