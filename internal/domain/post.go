package domain

import (
	"strings"
	"time"
)

// PostType classifies a post.
type PostType string

const (
	PostTypeGeneral  PostType = "general"
	PostTypeQuestion PostType = "question"
	PostTypeReview   PostType = "review"
	PostTypeNews     PostType = "news"
)

// IsValid reports whether t is a known post type.
func (t PostType) IsValid() bool {
	switch t {
	case PostTypeGeneral, PostTypeQuestion, PostTypeReview, PostTypeNews:
		return true
	}
	return false
}

// Post is a community post. Deleted posts keep their row with DeletedAt set.
type Post struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Content   string     `json:"content"`
	PostType  PostType   `json:"postType"`
	Company   string     `json:"company,omitempty"`
	Industry  string     `json:"industry,omitempty"`
	JobTitle  string     `json:"jobTitle,omitempty"`
	Location  string     `json:"location,omitempty"`
	Tags      []string   `json:"tags"`
	Publisher string     `json:"publisher"`
	CreatedBy string     `json:"createdBy"`
	UpdatedBy *string    `json:"updatedBy,omitempty"`
	DeletedBy *string    `json:"-"`
	DeletedAt *time.Time `json:"-"`
	CreatedAt time.Time  `json:"createdAt"`
	UpdatedAt time.Time  `json:"updatedAt"`
}

// IsDeleted reports whether the post was soft-deleted.
func (p *Post) IsDeleted() bool {
	return p.DeletedAt != nil
}

// CanUpdate reports whether userID may edit the post. Only the creator can.
func (p *Post) CanUpdate(userID string) bool {
	return p.CreatedBy == userID
}

// CanDelete reports whether the caller may delete the post: the creator or
// an admin.
func (p *Post) CanDelete(userID, role string) bool {
	return p.CreatedBy == userID || HasRole(role, RoleAdmin)
}

// PostFilter narrows a post listing. Empty fields do not filter.
type PostFilter struct {
	// Company and JobTitle match case-insensitive substrings.
	Company  string
	JobTitle string
	PostType PostType
	// Tags matches posts carrying any of them.
	Tags []string
}

// ParseTags splits a comma-separated tag list, dropping blanks.
func ParseTags(s string) []string {
	var tags []string
	for _, part := range strings.Split(s, ",") {
		if tag := strings.TrimSpace(part); tag != "" {
			tags = append(tags, tag)
		}
	}
	return tags
}
