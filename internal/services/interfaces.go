package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/solutionbase/internal/models"
)

// UserServiceInterface defines the contract for user operations.
type UserServiceInterface interface {
	Create(ctx context.Context, params models.CreateUserParams) (*models.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
}

// AuthServiceInterface defines the contract for session authentication.
type AuthServiceInterface interface {
	HashPassword(password string) (string, error)
	VerifyPassword(hash, password string) bool
	CreateSession(ctx context.Context, userID uuid.UUID) (token string, err error)
	ValidateSession(ctx context.Context, token string) (*models.User, error)
	DeleteSession(ctx context.Context, token string) error
}

// AccessTokenServiceInterface defines the contract for bearer tokens.
type AccessTokenServiceInterface interface {
	Issue(ctx context.Context, userID uuid.UUID, name string, ttlDays *int) (*models.AccessToken, string, error)
	List(ctx context.Context, userID uuid.UUID) ([]models.AccessToken, error)
	Revoke(ctx context.Context, userID, tokenID uuid.UUID) error
}

// TokenAuthenticator resolves an Authorization header to a user.
type TokenAuthenticator interface {
	Authenticate(ctx context.Context, header string) (*models.User, error)
}

// SolutionRepository is the solution store as seen by the MCP handlers.
type SolutionRepository interface {
	List(ctx context.Context, params models.ListSolutionsParams) ([]models.Solution, error)
	GetForAuthor(ctx context.Context, authorID uuid.UUID, slug string) (*models.Solution, error)
	Create(ctx context.Context, params models.CreateSolutionParams) (*models.Solution, error)
	Update(ctx context.Context, params models.UpdateSolutionParams) (*models.Solution, error)
}

// SolutionReader looks up solutions regardless of author.
type SolutionReader interface {
	GetBySlug(ctx context.Context, slug string) (*models.Solution, error)
}

// VersionServiceInterface defines the contract for version history.
type VersionServiceInterface interface {
	List(ctx context.Context, solutionID uuid.UUID) ([]models.SolutionVersion, error)
	Get(ctx context.Context, solutionID uuid.UUID, number int) (*VersionDetail, error)
}

var (
	_ UserServiceInterface        = (*UserService)(nil)
	_ AuthServiceInterface        = (*AuthService)(nil)
	_ AccessTokenServiceInterface = (*AccessTokenService)(nil)
	_ TokenAuthenticator          = (*AccessTokenService)(nil)
	_ SolutionRepository          = (*SolutionService)(nil)
	_ SolutionReader              = (*SolutionService)(nil)
	_ VersionServiceInterface     = (*VersionService)(nil)
)
