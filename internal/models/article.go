package models

import "time"

// Article represents a blog post
type Article struct {
	ID              int64         `json:"id"`
	Title           string        `json:"title"`
	Slug            string        `json:"slug"`
	Excerpt         string        `json:"excerpt"`
	Content         string        `json:"content"`
	FeaturedImageID *int64        `json:"featured_image_id,omitempty"`
	CategoryID      *int64        `json:"category_id,omitempty"`
	UserID          *int64        `json:"user_id,omitempty"`
	Status          ArticleStatus `json:"status"`
	PublishedAt     *time.Time    `json:"published_at,omitempty"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`

	// Joined relations, filled by the queries that need them.
	Category      *Category `json:"category,omitempty"`
	Author        *Author   `json:"author,omitempty"`
	FeaturedImage *Media    `json:"featured_image,omitempty"`
	Tags          []Tag     `json:"tags,omitempty"`
}

// Author is the public view of an article's writer.
type Author struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

func (a *Article) IsPublished() bool {
	return a.Status == ArticlePublished
}

// LastModified is the date reported in the sitemap.
func (a *Article) LastModified() time.Time {
	if !a.UpdatedAt.IsZero() {
		return a.UpdatedAt
	}
	return a.CreatedAt
}

// TagIDs returns the ids of the loaded tags.
func (a *Article) TagIDs() []int64 {
	ids := make([]int64, 0, len(a.Tags))
	for _, t := range a.Tags {
		ids = append(ids, t.ID)
	}
	return ids
}

// ArticleInput carries the editable fields of an article.
type ArticleInput struct {
	Title           string
	Excerpt         string
	Content         string
	CategoryID      *int64
	FeaturedImageID *int64
	Status          ArticleStatus
	TagIDs          []int64
}

// StatusCounts holds article totals per status.
type StatusCounts map[ArticleStatus]int
