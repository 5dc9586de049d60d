package mcp

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	mcpgo "github.com/mark3labs/mcp-go/mcp"

	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services"
)

const defaultUpdateComment = "Updated via MCP"

type solutionListItem struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	ViewCount int       `json:"view_count"`
}

type solutionDetail struct {
	ID        uuid.UUID `json:"id"`
	Title     string    `json:"title"`
	Slug      string    `json:"slug"`
	Content   string    `json:"content"`
	Summary   string    `json:"summary"`
	Tags      []string  `json:"tags"`
	CreatedAt string    `json:"created_at"`
	UpdatedAt string    `json:"updated_at"`
	ViewCount int       `json:"view_count"`
}

type solutionRef struct {
	ID      uuid.UUID `json:"id"`
	Title   string    `json:"title"`
	Slug    string    `json:"slug"`
	Summary string    `json:"summary"`
	URL     string    `json:"url"`
}

type listSolutionsResult struct {
	Solutions []solutionListItem `json:"solutions"`
}

type getSolutionResult struct {
	Solution solutionDetail `json:"solution"`
}

type writeSolutionResult struct {
	Solution solutionRef `json:"solution"`
	Message  string      `json:"message"`
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339)
}

// SolutionURL is the public path of a solution page.
func SolutionURL(slug string) string {
	return "/solutions/" + slug + "/"
}

func newSolutionRef(s *models.Solution) solutionRef {
	return solutionRef{ID: s.ID, Title: s.Title, Slug: s.Slug, Summary: s.Summary, URL: SolutionURL(s.Slug)}
}

// serviceError translates repository errors into JSON-RPC errors. Errors it
// does not know are returned unchanged and end up as internal errors.
func serviceError(err error) error {
	switch {
	case errors.Is(err, services.ErrSolutionNotFound):
		return errNotFound
	case errors.Is(err, services.ErrTooFewTags):
		return InvalidParams("At least 5 tags are required")
	case errors.Is(err, services.ErrTagTooLong):
		return InvalidParams("Tags must be at most %d characters", services.MaxTagNameLength)
	case errors.Is(err, services.ErrTitleRequired):
		return InvalidParams("Title must not be empty")
	case errors.Is(err, services.ErrTitleTooLong):
		return InvalidParams("Title must be at most 255 characters")
	case errors.Is(err, services.ErrContentRequired):
		return InvalidParams("Content must not be empty")
	}
	return err
}

type solutionHandlers struct {
	repo services.SolutionRepository
}

func boolPtr(b bool) *bool {
	return &b
}

// methods returns the solution tools. Their definitions double as the
// catalogue served by list_tools and tools/list.
func (h *solutionHandlers) methods() []Method {
	listTool := mcpgo.NewTool("list_solutions",
		mcpgo.WithDescription("List your solutions, most recently updated first. Filter by text in the title or content, or by tag name."),
		mcpgo.WithToolAnnotation(mcpgo.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
		mcpgo.WithString("query",
			mcpgo.Description("Case-insensitive text to find in the title or content"),
		),
		mcpgo.WithString("tag",
			mcpgo.Description("Case-insensitive text to find in a tag name"),
		),
		mcpgo.WithNumber("limit",
			mcpgo.Description("Maximum number of solutions to return (default 10, max 100)"),
			mcpgo.Min(1),
			mcpgo.DefaultNumber(services.DefaultSolutionLimit),
		),
	)
	getTool := mcpgo.NewTool("get_solution",
		mcpgo.WithDescription("Get one of your solutions by slug, including its full markdown content."),
		mcpgo.WithToolAnnotation(mcpgo.ToolAnnotation{ReadOnlyHint: boolPtr(true)}),
		mcpgo.WithString("slug",
			mcpgo.Required(),
			mcpgo.Description("Slug of the solution"),
		),
	)
	createTool := mcpgo.NewTool("create_solution",
		mcpgo.WithDescription("Create a solution written in markdown. At least 5 distinct tags are required."),
		mcpgo.WithToolAnnotation(mcpgo.ToolAnnotation{ReadOnlyHint: boolPtr(false)}),
		mcpgo.WithString("title",
			mcpgo.Required(),
			mcpgo.Description("Title of the solution"),
		),
		mcpgo.WithString("content",
			mcpgo.Required(),
			mcpgo.Description("Markdown content"),
		),
		mcpgo.WithArray("tags",
			mcpgo.Required(),
			mcpgo.Description("Tag names, at least 5"),
			mcpgo.WithStringItems(),
		),
		mcpgo.WithBoolean("is_published",
			mcpgo.Description("Whether the solution is public (default true)"),
			mcpgo.DefaultBool(true),
		),
	)
	updateTool := mcpgo.NewTool("update_solution",
		mcpgo.WithDescription("Update one of your solutions. Omitted fields are left unchanged and every update is recorded as a new version."),
		mcpgo.WithToolAnnotation(mcpgo.ToolAnnotation{ReadOnlyHint: boolPtr(false)}),
		mcpgo.WithString("slug",
			mcpgo.Required(),
			mcpgo.Description("Slug of the solution to update"),
		),
		mcpgo.WithString("title",
			mcpgo.Description("New title"),
		),
		mcpgo.WithString("content",
			mcpgo.Description("New markdown content"),
		),
		mcpgo.WithArray("tags",
			mcpgo.Description("Replacement tag names, at least 5"),
			mcpgo.WithStringItems(),
		),
		mcpgo.WithBoolean("is_published",
			mcpgo.Description("Whether the solution is public"),
		),
		mcpgo.WithString("comment",
			mcpgo.Description("Change comment for the version history (default \""+defaultUpdateComment+"\")"),
		),
	)

	return []Method{
		{Name: "list_solutions", Aliases: []string{"get_solutions"}, Tool: &listTool, Handler: h.listSolutions},
		{Name: "get_solution", Tool: &getTool, Handler: h.getSolution},
		{Name: "create_solution", Tool: &createTool, Handler: h.createSolution},
		{Name: "update_solution", Tool: &updateTool, Handler: h.updateSolution},
	}
}

func (h *solutionHandlers) listSolutions(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	query, perr := optionalString(req, "query")
	if perr != nil {
		return nil, perr
	}
	tag, perr := optionalString(req, "tag")
	if perr != nil {
		return nil, perr
	}
	limit, perr := optionalLimit(req)
	if perr != nil {
		return nil, perr
	}

	params := models.ListSolutionsParams{AuthorID: caller.ID, Limit: limit}
	if query != nil {
		params.Query = *query
	}
	if tag != nil {
		params.Tag = *tag
	}

	solutions, err := h.repo.List(ctx, params)
	if err != nil {
		return nil, serviceError(err)
	}

	items := make([]solutionListItem, 0, len(solutions))
	for i := range solutions {
		s := &solutions[i]
		items = append(items, solutionListItem{
			ID:        s.ID,
			Title:     s.Title,
			Slug:      s.Slug,
			Summary:   s.Summary,
			Tags:      s.TagNames(),
			CreatedAt: formatTime(s.CreatedAt),
			UpdatedAt: formatTime(s.UpdatedAt),
			ViewCount: s.ViewCount,
		})
	}
	return listSolutionsResult{Solutions: items}, nil
}

func (h *solutionHandlers) getSolution(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	slug, ok := nonEmptyString(req, "slug")
	if !ok {
		return nil, InvalidParams("Solution slug is required")
	}

	s, err := h.repo.GetForAuthor(ctx, caller.ID, slug)
	if err != nil {
		return nil, serviceError(err)
	}
	return getSolutionResult{Solution: solutionDetail{
		ID:        s.ID,
		Title:     s.Title,
		Slug:      s.Slug,
		Content:   s.Content,
		Summary:   s.Summary,
		Tags:      s.TagNames(),
		CreatedAt: formatTime(s.CreatedAt),
		UpdatedAt: formatTime(s.UpdatedAt),
		ViewCount: s.ViewCount,
	}}, nil
}

func (h *solutionHandlers) createSolution(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	title, hasTitle := nonEmptyString(req, "title")
	content, hasContent := nonEmptyString(req, "content")
	if !hasTitle || !hasContent || !present(req, "tags") {
		return nil, InvalidParams("Title, content, and tags are required")
	}
	tags, perr := optionalTags(req)
	if perr != nil {
		return nil, perr
	}
	if _, err := services.ValidateTagNames(tags); err != nil {
		return nil, serviceError(err)
	}
	published, perr := optionalBool(req, "is_published")
	if perr != nil {
		return nil, perr
	}

	params := models.CreateSolutionParams{
		AuthorID:    caller.ID,
		Title:       title,
		Content:     content,
		Tags:        tags,
		IsPublished: true,
	}
	if published != nil {
		params.IsPublished = *published
	}

	s, err := h.repo.Create(ctx, params)
	if err != nil {
		return nil, serviceError(err)
	}
	return writeSolutionResult{Solution: newSolutionRef(s), Message: "Solution created successfully"}, nil
}

func (h *solutionHandlers) updateSolution(ctx context.Context, caller *models.User, req mcpgo.CallToolRequest) (any, error) {
	slug, ok := nonEmptyString(req, "slug")
	if !ok {
		return nil, InvalidParams("Solution slug is required")
	}

	params := models.UpdateSolutionParams{AuthorID: caller.ID, Slug: slug, Comment: defaultUpdateComment}
	var perr *Error
	if params.Title, perr = optionalString(req, "title"); perr != nil {
		return nil, perr
	}
	if params.Content, perr = optionalString(req, "content"); perr != nil {
		return nil, perr
	}
	if params.Tags, perr = optionalTags(req); perr != nil {
		return nil, perr
	}
	if params.Tags != nil {
		if _, err := services.ValidateTagNames(params.Tags); err != nil {
			return nil, serviceError(err)
		}
	}
	if params.IsPublished, perr = optionalBool(req, "is_published"); perr != nil {
		return nil, perr
	}
	comment, perr := optionalString(req, "comment")
	if perr != nil {
		return nil, perr
	}
	if comment != nil && *comment != "" {
		params.Comment = *comment
	}

	s, err := h.repo.Update(ctx, params)
	if err != nil {
		return nil, serviceError(err)
	}
	return writeSolutionResult{Solution: newSolutionRef(s), Message: "Solution updated successfully"}, nil
}
