package models

import "time"

// Setting value types, deciding the form widget.
const (
	SettingText     = "text"
	SettingTextarea = "textarea"
	SettingWysiwyg  = "wysiwyg"
	SettingURL      = "url"
	SettingImage    = "image"
)

type Setting struct {
	ID        int64     `json:"id"`
	Key       string    `json:"key"`
	Value     *string   `json:"value"`
	Type      string    `json:"type"`
	Group     string    `json:"group"`
	Label     string    `json:"label"`
	UpdatedAt time.Time `json:"updated_at"`
}

// StringValue returns the value or an empty string when unset.
func (s *Setting) StringValue() string {
	if s.Value == nil {
		return ""
	}
	return *s.Value
}

// SettingGroup summarises a group for the settings index.
type SettingGroup struct {
	Name  string
	Label string
	Count int
}

// DashboardStats feeds the admin dashboard.
type DashboardStats struct {
	Articles        int
	Drafts          int
	Categories      int
	Media           int
	PendingComments int
	RecentArticles  []Article
}
