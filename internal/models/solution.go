package models

import (
	"time"

	"github.com/google/uuid"
)

type Solution struct {
	ID          uuid.UUID `json:"id"`
	Title       string    `json:"title"`
	Slug        string    `json:"slug"`
	AuthorID    uuid.UUID `json:"author_id"`
	Content     string    `json:"content"`
	ContentHTML string    `json:"content_html"`
	Summary     string    `json:"summary"`
	IsPublished bool      `json:"is_published"`
	ViewCount   int       `json:"view_count"`
	Tags        []Tag     `json:"tags"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// TagNames returns the tag names in display order.
func (s *Solution) TagNames() []string {
	names := make([]string, 0, len(s.Tags))
	for _, t := range s.Tags {
		names = append(names, t.Name)
	}
	return names
}

type Tag struct {
	ID        uuid.UUID `json:"id"`
	Name      string    `json:"name"`
	Slug      string    `json:"slug"`
	CreatedAt time.Time `json:"created_at"`
}

type SolutionVersion struct {
	ID            uuid.UUID `json:"id"`
	SolutionID    uuid.UUID `json:"solution_id"`
	VersionNumber int       `json:"version_number"`
	Content       string    `json:"content"`
	ChangeComment string    `json:"change_comment"`
	CreatedBy     uuid.UUID `json:"created_by"`
	CreatedAt     time.Time `json:"created_at"`
}

type ListSolutionsParams struct {
	AuthorID uuid.UUID
	Query    string
	Tag      string
	Limit    int
}

type CreateSolutionParams struct {
	AuthorID    uuid.UUID
	Title       string
	Content     string
	Tags        []string
	IsPublished bool
}

// UpdateSolutionParams carries optional fields; nil means unchanged.
type UpdateSolutionParams struct {
	AuthorID    uuid.UUID
	Slug        string
	Title       *string
	Content     *string
	Tags        []string
	IsPublished *bool
	Comment     string
}
