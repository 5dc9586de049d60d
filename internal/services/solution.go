package services

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/solutionbase/internal/logging"
	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services/ai"
)

const (
	DefaultSolutionLimit = 10
	MaxSolutionLimit     = 100
	maxTitleLength       = 255
	maxCommentLength     = 255

	InitialVersionComment = "Initial version"

	solutionSlugConstraint = "solutions_slug_key"
	maxCreateAttempts      = 3
)

var (
	ErrSolutionNotFound = errors.New("solution not found")
	ErrTitleRequired    = errors.New("title is required")
	ErrTitleTooLong     = errors.New("title must be at most 255 characters")
	ErrContentRequired  = errors.New("content is required")
)

const solutionColumns = `s.id, s.title, s.slug, s.author_id, s.content, s.content_html, s.summary,
	s.is_published, s.view_count, s.created_at, s.updated_at`

type SolutionService struct {
	db         DB
	renderer   *MarkdownRenderer
	summarizer ai.Summarizer
}

func NewSolutionService(db DB, renderer *MarkdownRenderer, summarizer ai.Summarizer) *SolutionService {
	if renderer == nil {
		renderer = NewMarkdownRenderer()
	}
	if summarizer == nil {
		summarizer = ai.LocalSummarizer{}
	}
	return &SolutionService{db: db, renderer: renderer, summarizer: summarizer}
}

func scanSolution(row Row) (*models.Solution, error) {
	s := &models.Solution{}
	err := row.Scan(&s.ID, &s.Title, &s.Slug, &s.AuthorID, &s.Content, &s.ContentHTML, &s.Summary,
		&s.IsPublished, &s.ViewCount, &s.CreatedAt, &s.UpdatedAt)
	return s, err
}

// escapeLike quotes LIKE wildcards so user input matches literally.
func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// ClampLimit applies the list default and upper bound. Callers reject
// values below one before calling it.
func ClampLimit(limit int) int {
	if limit <= 0 {
		return DefaultSolutionLimit
	}
	if limit > MaxSolutionLimit {
		return MaxSolutionLimit
	}
	return limit
}

// List returns the author's solutions, most recently updated first. Query
// matches title or content and Tag matches any tag name, both as
// case-insensitive substrings.
func (s *SolutionService) List(ctx context.Context, params models.ListSolutionsParams) ([]models.Solution, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+solutionColumns+`
		 FROM solutions s
		 WHERE s.author_id = $1
		   AND ($2::text = '' OR s.title ILIKE '%' || $2 || '%' OR s.content ILIKE '%' || $2 || '%')
		   AND ($3::text = '' OR EXISTS (
		         SELECT 1 FROM solution_tags st
		         JOIN tags t ON t.id = st.tag_id
		         WHERE st.solution_id = s.id AND t.name ILIKE '%' || $3 || '%'))
		 ORDER BY s.updated_at DESC
		 LIMIT $4`,
		params.AuthorID, escapeLike(params.Query), escapeLike(params.Tag), ClampLimit(params.Limit),
	)
	if err != nil {
		return nil, fmt.Errorf("querying solutions: %w", err)
	}
	defer rows.Close()

	solutions := []models.Solution{}
	for rows.Next() {
		sol, err := scanSolution(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning solution: %w", err)
		}
		solutions = append(solutions, *sol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating solutions: %w", err)
	}

	ids := make([]uuid.UUID, len(solutions))
	for i := range solutions {
		ids[i] = solutions[i].ID
	}
	tags, err := loadTags(ctx, s.db, ids)
	if err != nil {
		return nil, err
	}
	for i := range solutions {
		solutions[i].Tags = tagsOrEmpty(tags[solutions[i].ID])
	}
	return solutions, nil
}

// GetForAuthor returns the solution only when authorID wrote it. Missing and
// foreign solutions are both ErrSolutionNotFound.
func (s *SolutionService) GetForAuthor(ctx context.Context, authorID uuid.UUID, slug string) (*models.Solution, error) {
	return s.get(ctx, s.db,
		`SELECT `+solutionColumns+` FROM solutions s WHERE s.slug = $1 AND s.author_id = $2`,
		slug, authorID)
}

// GetBySlug returns any solution by slug regardless of author.
func (s *SolutionService) GetBySlug(ctx context.Context, slug string) (*models.Solution, error) {
	return s.get(ctx, s.db,
		`SELECT `+solutionColumns+` FROM solutions s WHERE s.slug = $1`,
		slug)
}

func (s *SolutionService) get(ctx context.Context, q Querier, sql string, args ...any) (*models.Solution, error) {
	sol, err := scanSolution(q.QueryRow(ctx, sql, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSolutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting solution: %w", err)
	}

	tags, err := loadTags(ctx, q, []uuid.UUID{sol.ID})
	if err != nil {
		return nil, err
	}
	sol.Tags = tagsOrEmpty(tags[sol.ID])
	return sol, nil
}

func validateTitle(title string) (string, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return "", ErrTitleRequired
	}
	if len([]rune(title)) > maxTitleLength {
		return "", ErrTitleTooLong
	}
	return title, nil
}

// Create stores a new solution with its tags and version 1 in one
// transaction.
func (s *SolutionService) Create(ctx context.Context, params models.CreateSolutionParams) (*models.Solution, error) {
	title, err := validateTitle(params.Title)
	if err != nil {
		return nil, err
	}
	if strings.TrimSpace(params.Content) == "" {
		return nil, ErrContentRequired
	}
	tagNames, err := ValidateTagNames(params.Tags)
	if err != nil {
		return nil, err
	}

	html, err := s.renderer.Render(params.Content)
	if err != nil {
		return nil, err
	}
	summary := s.summarize(ctx, params.Content)

	// A concurrent create can take the chosen slug between the lookup and
	// the insert; the slug is picked again on a fresh transaction.
	for attempt := 1; ; attempt++ {
		sol, err := s.create(ctx, params, title, html, summary, tagNames)
		if isUniqueViolation(err, solutionSlugConstraint) && attempt < maxCreateAttempts {
			logging.FromContext(ctx).Debug("Solution slug taken concurrently, retrying", map[string]interface{}{
				"attempt": attempt,
			})
			continue
		}
		return sol, err
	}
}

func (s *SolutionService) create(ctx context.Context, params models.CreateSolutionParams, title, html, summary string, tagNames []string) (*models.Solution, error) {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin create solution transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	slug, err := uniqueSlug(ctx, tx, Slugify(title))
	if err != nil {
		return nil, err
	}

	sol, err := scanSolution(tx.QueryRow(ctx,
		`INSERT INTO solutions AS s (title, slug, author_id, content, content_html, summary, is_published)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)
		 RETURNING `+solutionColumns,
		title, slug, params.AuthorID, params.Content, html, summary, params.IsPublished,
	))
	if err != nil {
		return nil, fmt.Errorf("inserting solution: %w", err)
	}

	tags, err := ResolveTags(ctx, tx, tagNames)
	if err != nil {
		return nil, err
	}
	if err := setSolutionTags(ctx, tx, sol.ID, tags); err != nil {
		return nil, err
	}
	if _, err := insertVersion(ctx, tx, sol.ID, params.AuthorID, params.Content, InitialVersionComment); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit create solution: %w", err)
	}
	committed = true

	sol.Tags = sortTags(tags)
	return sol, nil
}

// Update applies the supplied fields to the author's solution, replaces its
// tags when given and records a new version, all in one transaction. Input
// is validated before anything is written, and the row is locked while it
// is read and rewritten.
func (s *SolutionService) Update(ctx context.Context, params models.UpdateSolutionParams) (*models.Solution, error) {
	var tagNames []string
	if params.Tags != nil {
		var err error
		if tagNames, err = ValidateTagNames(params.Tags); err != nil {
			return nil, err
		}
	}
	var title string
	if params.Title != nil {
		t, err := validateTitle(*params.Title)
		if err != nil {
			return nil, err
		}
		title = t
	}
	if params.Content != nil && strings.TrimSpace(*params.Content) == "" {
		return nil, ErrContentRequired
	}
	comment := truncateRunes(strings.TrimSpace(params.Comment), maxCommentLength)

	// Rendering and summaries run before the row lock is taken.
	var html, summary string
	if params.Content != nil {
		var err error
		if html, err = s.renderer.Render(*params.Content); err != nil {
			return nil, err
		}
		summary = s.summarize(ctx, *params.Content)
	}

	tx, err := s.db.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin update solution transaction: %w", err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	current, err := s.get(ctx, tx,
		`SELECT `+solutionColumns+` FROM solutions s WHERE s.slug = $1 AND s.author_id = $2 FOR UPDATE`,
		params.Slug, params.AuthorID)
	if err != nil {
		return nil, err
	}

	if params.Title != nil {
		current.Title = title
	}
	if params.Content != nil && *params.Content != current.Content {
		current.Content = *params.Content
		current.ContentHTML = html
		current.Summary = summary
	}
	if params.IsPublished != nil {
		current.IsPublished = *params.IsPublished
	}

	sol, err := scanSolution(tx.QueryRow(ctx,
		`UPDATE solutions AS s
		 SET title = $1, content = $2, content_html = $3, summary = $4, is_published = $5, updated_at = NOW()
		 WHERE s.id = $6 AND s.author_id = $7
		 RETURNING `+solutionColumns,
		current.Title, current.Content, current.ContentHTML, current.Summary, current.IsPublished,
		current.ID, params.AuthorID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrSolutionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("updating solution: %w", err)
	}

	var tags []models.Tag
	if params.Tags != nil {
		tags, err = ResolveTags(ctx, tx, tagNames)
		if err != nil {
			return nil, err
		}
		if err := setSolutionTags(ctx, tx, sol.ID, tags); err != nil {
			return nil, err
		}
	} else {
		tags = current.Tags
	}

	if _, err := insertVersion(ctx, tx, sol.ID, params.AuthorID, sol.Content, comment); err != nil {
		return nil, err
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit update solution: %w", err)
	}
	committed = true

	sol.Tags = sortTags(tags)
	return sol, nil
}

func (s *SolutionService) summarize(ctx context.Context, content string) string {
	summary, err := s.summarizer.Summarize(ctx, content)
	if err != nil {
		logging.FromContext(ctx).Warn("Summary generation failed", map[string]interface{}{
			"error": err.Error(),
		})
		return ""
	}
	return summary
}

// uniqueSlug returns base, or base-N with the smallest free N.
func uniqueSlug(ctx context.Context, q Querier, base string) (string, error) {
	if base == "" {
		base = "solution"
	}

	rows, err := q.Query(ctx,
		`SELECT slug FROM solutions WHERE slug = $1 OR slug LIKE $2`,
		base, escapeLike(base)+"-%",
	)
	if err != nil {
		return "", fmt.Errorf("querying slugs: %w", err)
	}
	defer rows.Close()

	taken := make(map[string]struct{})
	for rows.Next() {
		var slug string
		if err := rows.Scan(&slug); err != nil {
			return "", fmt.Errorf("scanning slug: %w", err)
		}
		taken[slug] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return "", fmt.Errorf("iterating slugs: %w", err)
	}

	if _, ok := taken[base]; !ok {
		return base, nil
	}
	for n := 1; ; n++ {
		candidate := fmt.Sprintf("%s-%d", base, n)
		if _, ok := taken[candidate]; !ok {
			return candidate, nil
		}
	}
}

func tagsOrEmpty(tags []models.Tag) []models.Tag {
	if tags == nil {
		return []models.Tag{}
	}
	return tags
}

func sortTags(tags []models.Tag) []models.Tag {
	out := append([]models.Tag{}, tags...)
	slices.SortStableFunc(out, func(a, b models.Tag) int {
		return strings.Compare(strings.ToLower(a.Name), strings.ToLower(b.Name))
	})
	return out
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
