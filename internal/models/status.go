package models

// ArticleStatus is the publication state of an article.
type ArticleStatus string

const (
	ArticleDraft     ArticleStatus = "draft"
	ArticlePublished ArticleStatus = "published"
	ArticleArchived  ArticleStatus = "archived"
)

// ArticleStatuses lists the statuses in display order.
var ArticleStatuses = []ArticleStatus{ArticleDraft, ArticlePublished, ArticleArchived}

func (s ArticleStatus) Valid() bool {
	switch s {
	case ArticleDraft, ArticlePublished, ArticleArchived:
		return true
	}
	return false
}

func (s ArticleStatus) Label() string {
	switch s {
	case ArticlePublished:
		return "Published"
	case ArticleArchived:
		return "Archived"
	default:
		return "Draft"
	}
}

// BadgeClass returns the CSS classes of the status badge.
func (s ArticleStatus) BadgeClass() string {
	switch s {
	case ArticlePublished:
		return "bg-green-100 text-green-800"
	case ArticleArchived:
		return "bg-gray-100 text-gray-800"
	default:
		return "bg-yellow-100 text-yellow-800"
	}
}

// CommentStatus is the moderation state of a comment.
type CommentStatus string

const (
	CommentPending  CommentStatus = "pending"
	CommentApproved CommentStatus = "approved"
	CommentRejected CommentStatus = "rejected"
)

func (s CommentStatus) Valid() bool {
	switch s {
	case CommentPending, CommentApproved, CommentRejected:
		return true
	}
	return false
}

func (s CommentStatus) Label() string {
	switch s {
	case CommentApproved:
		return "Approved"
	case CommentRejected:
		return "Rejected"
	default:
		return "Pending"
	}
}

func (s CommentStatus) BadgeClass() string {
	switch s {
	case CommentApproved:
		return "bg-green-100 text-green-800"
	case CommentRejected:
		return "bg-red-100 text-red-800"
	default:
		return "bg-yellow-100 text-yellow-800"
	}
}
