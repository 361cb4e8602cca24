package models

import "time"

// Image variants written for every upload.
const (
	VariantOriginal  = "original"
	VariantThumbnail = "thumbnail"
	VariantMedium    = "medium"
	VariantLarge     = "large"
)

// Variants lists every stored variant of an upload.
var Variants = []string{VariantOriginal, VariantThumbnail, VariantMedium, VariantLarge}

// Media is an uploaded image. Path is the folder key holding its variants.
type Media struct {
	ID           int64     `json:"id"`
	Filename     string    `json:"filename"`
	OriginalName string    `json:"original_name"`
	Path         string    `json:"path"`
	MimeType     string    `json:"mime_type"`
	Size         int64     `json:"size"`
	Alt          string    `json:"alt"`
	UserID       *int64    `json:"user_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// URL returns the public URL of a variant; unknown names give the original.
func (m *Media) URL(variant string) string {
	switch variant {
	case VariantThumbnail, VariantMedium, VariantLarge:
	default:
		variant = VariantOriginal
	}
	return "/uploads/" + m.Path + "/" + variant + ".jpg"
}

// ObjectKey is the storage key of a variant.
func (m *Media) ObjectKey(variant string) string {
	return m.Path + "/" + variant + ".jpg"
}

func (m *Media) ThumbnailURL() string { return m.URL(VariantThumbnail) }
func (m *Media) OriginalURL() string  { return m.URL(VariantOriginal) }
