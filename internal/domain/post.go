package domain

import (
	"time"
)

// Post is a short text entry written by a user.
type Post struct {
	ID             string    `json:"id"`
	AuthorID       string    `json:"author_id"`
	AuthorUsername string    `json:"author_username,omitempty"`
	Content        string    `json:"content"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// PostUpdate lists the fields to change on a post.
type PostUpdate struct {
	Content *string
}
