package mcp

import (
	"context"
	"net/http/httptest"
	"sort"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services"
	"github.com/HammerMeetNail/solutionbase/internal/testutil"
)

// memoryRepo is an in-memory SolutionRepository with the same ownership
// rules as the Postgres one.
type memoryRepo struct {
	solutions []*models.Solution
	updates   []models.UpdateSolutionParams
	lastList  models.ListSolutionsParams
	err       error
	panicOn   string
}

func (r *memoryRepo) add(author uuid.UUID, title, slug, content string, tags ...string) *models.Solution {
	s := testutil.NewSolution(author, title, slug, content, tags...)
	s.CreatedAt = s.CreatedAt.Add(time.Duration(len(r.solutions)) * time.Hour)
	s.UpdatedAt = s.CreatedAt
	r.solutions = append(r.solutions, s)
	return s
}

func (r *memoryRepo) List(ctx context.Context, params models.ListSolutionsParams) ([]models.Solution, error) {
	r.lastList = params
	if r.panicOn == "list" {
		panic("boom")
	}
	if r.err != nil {
		return nil, r.err
	}
	var out []models.Solution
	for _, s := range r.solutions {
		if s.AuthorID != params.AuthorID {
			continue
		}
		q := strings.ToLower(params.Query)
		if q != "" && !strings.Contains(strings.ToLower(s.Title), q) && !strings.Contains(strings.ToLower(s.Content), q) {
			continue
		}
		if params.Tag != "" && !hasTagLike(s, params.Tag) {
			continue
		}
		out = append(out, *s)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })
	if limit := services.ClampLimit(params.Limit); len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func hasTagLike(s *models.Solution, tag string) bool {
	for _, t := range s.Tags {
		if strings.Contains(strings.ToLower(t.Name), strings.ToLower(tag)) {
			return true
		}
	}
	return false
}

func (r *memoryRepo) GetForAuthor(ctx context.Context, authorID uuid.UUID, slug string) (*models.Solution, error) {
	if r.err != nil {
		return nil, r.err
	}
	for _, s := range r.solutions {
		if s.Slug == slug && s.AuthorID == authorID {
			cp := *s
			return &cp, nil
		}
	}
	return nil, services.ErrSolutionNotFound
}

func (r *memoryRepo) Create(ctx context.Context, params models.CreateSolutionParams) (*models.Solution, error) {
	if r.err != nil {
		return nil, r.err
	}
	tags, err := services.ValidateTagNames(params.Tags)
	if err != nil {
		return nil, err
	}
	s := r.add(params.AuthorID, params.Title, services.Slugify(params.Title), params.Content, tags...)
	s.IsPublished = params.IsPublished
	cp := *s
	return &cp, nil
}

func (r *memoryRepo) Update(ctx context.Context, params models.UpdateSolutionParams) (*models.Solution, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.updates = append(r.updates, params)
	for _, s := range r.solutions {
		if s.Slug != params.Slug || s.AuthorID != params.AuthorID {
			continue
		}
		if params.Title != nil {
			s.Title = *params.Title
		}
		if params.Content != nil {
			s.Content = *params.Content
		}
		if params.IsPublished != nil {
			s.IsPublished = *params.IsPublished
		}
		if params.Tags != nil {
			s.Tags = nil
			for _, name := range services.NormalizeTagNames(params.Tags) {
				s.Tags = append(s.Tags, models.Tag{ID: uuid.New(), Name: name})
			}
		}
		cp := *s
		return &cp, nil
	}
	return nil, services.ErrSolutionNotFound
}

// fakeAuthenticator accepts "Bearer <username>" for the users it knows.
type fakeAuthenticator struct {
	users map[string]*models.User
	err   error
}

func (f *fakeAuthenticator) Authenticate(ctx context.Context, header string) (*models.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	secret, ok := strings.CutPrefix(header, "Bearer ")
	if !ok {
		return nil, services.ErrInvalidToken
	}
	u, ok := f.users[secret]
	if !ok {
		return nil, services.ErrInvalidToken
	}
	return u, nil
}

type testEnv struct {
	server *Server
	repo   *memoryRepo
	auth   *fakeAuthenticator
	alice  *models.User
	bob    *models.User
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	alice := testutil.NewUser("alice")
	bob := testutil.NewUser("bob")
	env := &testEnv{
		repo:  &memoryRepo{},
		auth:  &fakeAuthenticator{users: map[string]*models.User{"alice": alice, "bob": bob}},
		alice: alice,
		bob:   bob,
	}
	server, err := NewServer(Config{Solutions: env.repo, Authenticator: env.auth, Version: "test"})
	if err != nil {
		t.Fatalf("NewServer: %v", err)
	}
	env.server = server
	return env
}

// post sends body as the given user; an empty user sends no Authorization.
func (e *testEnv) post(t *testing.T, user, body string) *httptest.ResponseRecorder {
	t.Helper()
	rr := httptest.NewRecorder()
	e.server.ServeHTTP(rr, testutil.NewBearerRequest("/api/mcp/", user, body))
	return rr
}
