package models

import "time"

// DefaultTagColor is used when a tag is saved without a colour.
const DefaultTagColor = "#C07459"

type Category struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Description   string    `json:"description"`
	ArticlesCount int       `json:"articles_count"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

type Tag struct {
	ID            int64     `json:"id"`
	Name          string    `json:"name"`
	Slug          string    `json:"slug"`
	Color         string    `json:"color"`
	ArticlesCount int       `json:"articles_count"`
	CreatedAt     time.Time `json:"created_at"`
}
