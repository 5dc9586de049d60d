package services

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/solutionbase/internal/logging"
	"github.com/HammerMeetNail/solutionbase/internal/models"
)

const (
	AccessTokenPrefix   = "sb_"
	DefaultTokenTTLDays = 365
	maxTokenNameLength  = 100
	tokenPrefixChars    = 8
	bearerScheme        = "Bearer "
	lastUsedTimeout     = 5 * time.Second
)

var (
	ErrTokenNotFound    = errors.New("access token not found")
	ErrInvalidToken     = errors.New("invalid or expired token")
	ErrInvalidTokenName = errors.New("token name must be 1-100 characters")
)

type AccessTokenService struct {
	db         DB
	defaultTTL int
	now        func() time.Time
	// background runs the last-used touch; tests replace it to run inline.
	background func(func())
}

// NewAccessTokenService uses defaultTTLDays when Issue is called without a
// TTL. A non-positive default means tokens never expire.
func NewAccessTokenService(db DB, defaultTTLDays int) *AccessTokenService {
	return &AccessTokenService{
		db:         db,
		defaultTTL: defaultTTLDays,
		now:        time.Now,
		background: func(f func()) { go f() },
	}
}

func hashAccessToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}

// generateAccessToken returns a secret carrying 256 bits of entropy in the
// URL-safe base64 alphabet, and its display prefix.
func generateAccessToken() (secret, prefix string, err error) {
	raw := make([]byte, 32)
	if _, err := rand.Read(raw); err != nil {
		return "", "", fmt.Errorf("generating random bytes: %w", err)
	}
	secret = AccessTokenPrefix + base64.RawURLEncoding.EncodeToString(raw)
	return secret, secret[:len(AccessTokenPrefix)+tokenPrefixChars], nil
}

// Issue creates a token for userID. A nil ttlDays applies the service
// default; a value <= 0 issues a token that never expires. The secret is
// returned once and only its hash is stored.
func (s *AccessTokenService) Issue(ctx context.Context, userID uuid.UUID, name string, ttlDays *int) (*models.AccessToken, string, error) {
	name = strings.TrimSpace(name)
	if name == "" || utf8.RuneCountInString(name) > maxTokenNameLength {
		return nil, "", ErrInvalidTokenName
	}

	secret, prefix, err := generateAccessToken()
	if err != nil {
		return nil, "", err
	}

	days := s.defaultTTL
	if ttlDays != nil {
		days = *ttlDays
	}
	var expiresAt *time.Time
	if days > 0 {
		t := s.now().Add(time.Duration(days) * 24 * time.Hour)
		expiresAt = &t
	}

	token := &models.AccessToken{}
	err = s.db.QueryRow(ctx,
		`INSERT INTO access_tokens (user_id, name, token_hash, token_prefix, expires_at)
		 VALUES ($1, $2, $3, $4, $5)
		 RETURNING id, user_id, name, token_prefix, is_active, expires_at, last_used_at, created_at`,
		userID, name, hashAccessToken(secret), prefix, expiresAt,
	).Scan(&token.ID, &token.UserID, &token.Name, &token.TokenPrefix, &token.IsActive, &token.ExpiresAt, &token.LastUsedAt, &token.CreatedAt)
	if err != nil {
		return nil, "", fmt.Errorf("inserting access token: %w", err)
	}

	return token, secret, nil
}

// List returns the user's tokens, newest first.
func (s *AccessTokenService) List(ctx context.Context, userID uuid.UUID) ([]models.AccessToken, error) {
	rows, err := s.db.Query(ctx,
		`SELECT id, user_id, name, token_prefix, is_active, expires_at, last_used_at, created_at
		 FROM access_tokens WHERE user_id = $1 ORDER BY created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying access tokens: %w", err)
	}
	defer rows.Close()

	tokens := []models.AccessToken{}
	for rows.Next() {
		var t models.AccessToken
		if err := rows.Scan(&t.ID, &t.UserID, &t.Name, &t.TokenPrefix, &t.IsActive, &t.ExpiresAt, &t.LastUsedAt, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning access token: %w", err)
		}
		tokens = append(tokens, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating access tokens: %w", err)
	}

	return tokens, nil
}

// Revoke deactivates a token owned by userID. Revoking an already revoked
// token succeeds.
func (s *AccessTokenService) Revoke(ctx context.Context, userID, tokenID uuid.UUID) error {
	result, err := s.db.Exec(ctx,
		"UPDATE access_tokens SET is_active = false WHERE id = $1 AND user_id = $2",
		tokenID, userID,
	)
	if err != nil {
		return fmt.Errorf("revoking access token: %w", err)
	}
	if result.RowsAffected() == 0 {
		return ErrTokenNotFound
	}
	return nil
}

// Authenticate resolves an Authorization header value to the token owner.
// Every rejection is ErrInvalidToken; storage faults are joined to it so
// callers can log them.
func (s *AccessTokenService) Authenticate(ctx context.Context, header string) (*models.User, error) {
	if !strings.HasPrefix(header, bearerScheme) {
		return nil, ErrInvalidToken
	}
	secret := strings.TrimSpace(header[len(bearerScheme):])
	if secret == "" {
		return nil, ErrInvalidToken
	}

	var token models.AccessToken
	user := &models.User{}
	err := s.db.QueryRow(ctx,
		`SELECT t.id, t.is_active, t.expires_at,
		        u.id, u.username, u.email, u.password_hash, u.created_at, u.updated_at
		 FROM access_tokens t
		 JOIN users u ON u.id = t.user_id
		 WHERE t.token_hash = $1`,
		hashAccessToken(secret),
	).Scan(&token.ID, &token.IsActive, &token.ExpiresAt,
		&user.ID, &user.Username, &user.Email, &user.PasswordHash, &user.CreatedAt, &user.UpdatedAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrInvalidToken
	}
	if err != nil {
		return nil, fmt.Errorf("%w: looking up token: %w", ErrInvalidToken, err)
	}

	if !token.IsValid(s.now()) {
		return nil, ErrInvalidToken
	}

	s.touchLastUsed(ctx, token.ID)
	return user, nil
}

func (s *AccessTokenService) touchLastUsed(ctx context.Context, tokenID uuid.UUID) {
	bg := context.WithoutCancel(ctx)
	log := logging.FromContext(ctx)
	s.background(func() {
		ctx, cancel := context.WithTimeout(bg, lastUsedTimeout)
		defer cancel()
		if _, err := s.db.Exec(ctx, "UPDATE access_tokens SET last_used_at = NOW() WHERE id = $1", tokenID); err != nil {
			log.Warn("Failed to update token last_used_at", map[string]interface{}{
				"token_id": tokenID.String(),
				"error":    err.Error(),
			})
		}
	})
}
