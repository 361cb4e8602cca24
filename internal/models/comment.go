package models

import "time"

type Comment struct {
	ID          int64         `json:"id"`
	ArticleID   int64         `json:"article_id"`
	UserID      *int64        `json:"user_id,omitempty"`
	AuthorName  string        `json:"author_name"`
	AuthorEmail string        `json:"-"`
	Content     string        `json:"content"`
	Status      CommentStatus `json:"status"`
	CreatedAt   time.Time     `json:"created_at"`

	// Filled by admin listings.
	ArticleTitle string `json:"article_title,omitempty"`
	ArticleSlug  string `json:"article_slug,omitempty"`
	UserName     string `json:"user_name,omitempty"`
}

// DisplayName is the name shown next to the comment.
func (c *Comment) DisplayName() string {
	if c.UserName != "" {
		return c.UserName
	}
	if c.AuthorName != "" {
		return c.AuthorName
	}
	return "Anonymous"
}

// CommentInput is a public comment submission.
type CommentInput struct {
	AuthorName  string
	AuthorEmail string
	Content     string
}
