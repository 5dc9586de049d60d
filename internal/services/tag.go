package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/solutionbase/internal/models"
)

// MinSolutionTags is the number of distinct tags a solution must carry.
const MinSolutionTags = 5

// MaxTagNameLength is the longest tag name accepted, in characters.
const MaxTagNameLength = 50

const maxTagSlugAttempts = 20

var (
	ErrTooFewTags = errors.New("at least 5 tags are required")
	ErrTagTooLong = errors.New("tag names must be at most 50 characters")
)

// NormalizeTagNames trims names, drops blanks and removes case-insensitive
// duplicates, keeping the first spelling seen.
func NormalizeTagNames(names []string) []string {
	seen := make(map[string]struct{}, len(names))
	out := make([]string, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		key := strings.ToLower(name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, name)
	}
	return out
}

// ValidateTagNames normalizes names and checks the tag set a solution may
// carry.
func ValidateTagNames(names []string) ([]string, error) {
	out := NormalizeTagNames(names)
	for _, name := range out {
		if utf8.RuneCountInString(name) > MaxTagNameLength {
			return nil, fmt.Errorf("%w: %q", ErrTagTooLong, name)
		}
	}
	if len(out) < MinSolutionTags {
		return nil, ErrTooFewTags
	}
	return out, nil
}

// ResolveTags finds or creates one tag per name, matching existing tags
// case-insensitively. New tags keep the caller's spelling. It runs on q so
// it can join the caller's transaction.
func ResolveTags(ctx context.Context, q Querier, names []string) ([]models.Tag, error) {
	tags := make([]models.Tag, 0, len(names))
	for _, name := range names {
		tag, err := resolveTag(ctx, q, name)
		if err != nil {
			return nil, err
		}
		tags = append(tags, tag)
	}
	return tags, nil
}

func resolveTag(ctx context.Context, q Querier, name string) (models.Tag, error) {
	tag, err := findTagByName(ctx, q, name)
	if err == nil {
		return tag, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return models.Tag{}, fmt.Errorf("looking up tag %q: %w", name, err)
	}

	base := Slugify(name)
	if base == "" {
		base = "tag"
	}
	slug := base
	for attempt := 1; attempt <= maxTagSlugAttempts; attempt++ {
		err = q.QueryRow(ctx,
			`INSERT INTO tags (name, slug) VALUES ($1, $2)
			 ON CONFLICT DO NOTHING
			 RETURNING id, name, slug, created_at`,
			name, slug,
		).Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt)
		if err == nil {
			return tag, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.Tag{}, fmt.Errorf("creating tag %q: %w", name, err)
		}

		// Either the name was inserted concurrently or the slug belongs to
		// a differently named tag.
		if tag, err = findTagByName(ctx, q, name); err == nil {
			return tag, nil
		}
		if !errors.Is(err, pgx.ErrNoRows) {
			return models.Tag{}, fmt.Errorf("looking up tag %q: %w", name, err)
		}
		slug = fmt.Sprintf("%s-%d", base, attempt)
	}
	return models.Tag{}, fmt.Errorf("no free slug for tag %q", name)
}

func findTagByName(ctx context.Context, q Querier, name string) (models.Tag, error) {
	var tag models.Tag
	err := q.QueryRow(ctx,
		`SELECT id, name, slug, created_at FROM tags WHERE LOWER(name) = LOWER($1)`,
		name,
	).Scan(&tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt)
	return tag, err
}

// setSolutionTags replaces the tag links of a solution.
func setSolutionTags(ctx context.Context, q Querier, solutionID uuid.UUID, tags []models.Tag) error {
	if _, err := q.Exec(ctx, "DELETE FROM solution_tags WHERE solution_id = $1", solutionID); err != nil {
		return fmt.Errorf("clearing solution tags: %w", err)
	}
	for _, tag := range tags {
		if _, err := q.Exec(ctx,
			`INSERT INTO solution_tags (solution_id, tag_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`,
			solutionID, tag.ID,
		); err != nil {
			return fmt.Errorf("linking tag %q: %w", tag.Name, err)
		}
	}
	return nil
}

// loadTags returns the tags of each solution keyed by solution id, ordered
// by name.
func loadTags(ctx context.Context, q Querier, solutionIDs []uuid.UUID) (map[uuid.UUID][]models.Tag, error) {
	byID := make(map[uuid.UUID][]models.Tag, len(solutionIDs))
	if len(solutionIDs) == 0 {
		return byID, nil
	}

	rows, err := q.Query(ctx,
		`SELECT st.solution_id, t.id, t.name, t.slug, t.created_at
		 FROM solution_tags st
		 JOIN tags t ON t.id = st.tag_id
		 WHERE st.solution_id = ANY($1)
		 ORDER BY LOWER(t.name)`,
		solutionIDs,
	)
	if err != nil {
		return nil, fmt.Errorf("querying solution tags: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var solutionID uuid.UUID
		var tag models.Tag
		if err := rows.Scan(&solutionID, &tag.ID, &tag.Name, &tag.Slug, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning solution tag: %w", err)
		}
		byID[solutionID] = append(byID[solutionID], tag)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating solution tags: %w", err)
	}
	return byID, nil
}
