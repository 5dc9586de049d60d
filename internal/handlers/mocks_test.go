package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services"
)

type mockUserService struct {
	CreateFunc        func(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByIDFunc       func(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmailFunc    func(ctx context.Context, email string) (*models.User, error)
	GetByUsernameFunc func(ctx context.Context, username string) (*models.User, error)
}

func (m *mockUserService) Create(ctx context.Context, params models.CreateUserParams) (*models.User, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, params)
	}
	return nil, nil
}

func (m *mockUserService) GetByID(ctx context.Context, id uuid.UUID) (*models.User, error) {
	if m.GetByIDFunc != nil {
		return m.GetByIDFunc(ctx, id)
	}
	return nil, services.ErrUserNotFound
}

func (m *mockUserService) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.GetByEmailFunc != nil {
		return m.GetByEmailFunc(ctx, email)
	}
	return nil, services.ErrUserNotFound
}

func (m *mockUserService) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	if m.GetByUsernameFunc != nil {
		return m.GetByUsernameFunc(ctx, username)
	}
	return nil, services.ErrUserNotFound
}

type mockAuthService struct {
	HashPasswordFunc    func(password string) (string, error)
	VerifyPasswordFunc  func(hash, password string) bool
	CreateSessionFunc   func(ctx context.Context, userID uuid.UUID) (string, error)
	ValidateSessionFunc func(ctx context.Context, token string) (*models.User, error)
	DeleteSessionFunc   func(ctx context.Context, token string) error
}

func (m *mockAuthService) HashPassword(password string) (string, error) {
	if m.HashPasswordFunc != nil {
		return m.HashPasswordFunc(password)
	}
	return "hashed_" + password, nil
}

func (m *mockAuthService) VerifyPassword(hash, password string) bool {
	if m.VerifyPasswordFunc != nil {
		return m.VerifyPasswordFunc(hash, password)
	}
	return false
}

func (m *mockAuthService) CreateSession(ctx context.Context, userID uuid.UUID) (string, error) {
	if m.CreateSessionFunc != nil {
		return m.CreateSessionFunc(ctx, userID)
	}
	return "session-token", nil
}

func (m *mockAuthService) ValidateSession(ctx context.Context, token string) (*models.User, error) {
	if m.ValidateSessionFunc != nil {
		return m.ValidateSessionFunc(ctx, token)
	}
	return nil, services.ErrSessionNotFound
}

func (m *mockAuthService) DeleteSession(ctx context.Context, token string) error {
	if m.DeleteSessionFunc != nil {
		return m.DeleteSessionFunc(ctx, token)
	}
	return nil
}

type mockAccessTokenService struct {
	IssueFunc  func(ctx context.Context, userID uuid.UUID, name string, ttlDays *int) (*models.AccessToken, string, error)
	ListFunc   func(ctx context.Context, userID uuid.UUID) ([]models.AccessToken, error)
	RevokeFunc func(ctx context.Context, userID, tokenID uuid.UUID) error
}

func (m *mockAccessTokenService) Issue(ctx context.Context, userID uuid.UUID, name string, ttlDays *int) (*models.AccessToken, string, error) {
	if m.IssueFunc != nil {
		return m.IssueFunc(ctx, userID, name, ttlDays)
	}
	return nil, "", nil
}

func (m *mockAccessTokenService) List(ctx context.Context, userID uuid.UUID) ([]models.AccessToken, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, userID)
	}
	return nil, nil
}

func (m *mockAccessTokenService) Revoke(ctx context.Context, userID, tokenID uuid.UUID) error {
	if m.RevokeFunc != nil {
		return m.RevokeFunc(ctx, userID, tokenID)
	}
	return nil
}

type mockSolutionReader struct {
	GetBySlugFunc func(ctx context.Context, slug string) (*models.Solution, error)
}

func (m *mockSolutionReader) GetBySlug(ctx context.Context, slug string) (*models.Solution, error) {
	if m.GetBySlugFunc != nil {
		return m.GetBySlugFunc(ctx, slug)
	}
	return nil, services.ErrSolutionNotFound
}

type mockVersionService struct {
	ListFunc func(ctx context.Context, solutionID uuid.UUID) ([]models.SolutionVersion, error)
	GetFunc  func(ctx context.Context, solutionID uuid.UUID, number int) (*services.VersionDetail, error)
}

func (m *mockVersionService) List(ctx context.Context, solutionID uuid.UUID) ([]models.SolutionVersion, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, solutionID)
	}
	return []models.SolutionVersion{}, nil
}

func (m *mockVersionService) Get(ctx context.Context, solutionID uuid.UUID, number int) (*services.VersionDetail, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, solutionID, number)
	}
	return nil, services.ErrVersionNotFound
}
