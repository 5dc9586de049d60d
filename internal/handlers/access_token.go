package handlers

import (
	"errors"
	"net/http"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/solutionbase/internal/logging"
	"github.com/HammerMeetNail/solutionbase/internal/mcp"
	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services"
)

const maxTokenTTLDays = 3650

// AccessTokenHandler manages the bearer tokens a user hands to assistants.
type AccessTokenHandler struct {
	tokens      services.AccessTokenServiceInterface
	mcpEndpoint string
}

func NewAccessTokenHandler(tokens services.AccessTokenServiceInterface, mcpEndpoint string) *AccessTokenHandler {
	return &AccessTokenHandler{tokens: tokens, mcpEndpoint: mcpEndpoint}
}

// CreateAccessTokenRequest names the token. ExpiresInDays of zero or less
// issues a token that never expires; omitting it uses the server default.
type CreateAccessTokenRequest struct {
	Name          string `json:"name"`
	ExpiresInDays *int   `json:"expires_in_days,omitempty"`
}

type CreateAccessTokenResponse struct {
	Token     *models.AccessToken `json:"token_metadata"`
	Secret    string              `json:"token"` // shown once
	MCPConfig mcp.ClientConfig    `json:"mcp_config"`
	Warning   string              `json:"warning"`
}

type ListAccessTokensResponse struct {
	Tokens []models.AccessToken `json:"tokens"`
}

func (h *AccessTokenHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req CreateAccessTokenRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ExpiresInDays != nil && *req.ExpiresInDays > maxTokenTTLDays {
		writeError(w, http.StatusBadRequest, "expires_in_days must be at most 3650")
		return
	}

	token, secret, err := h.tokens.Issue(r.Context(), user.ID, req.Name, req.ExpiresInDays)
	if errors.Is(err, services.ErrInvalidTokenName) {
		writeError(w, http.StatusBadRequest, "Name must be 1-100 characters")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("Error issuing access token", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusCreated, CreateAccessTokenResponse{
		Token:     token,
		Secret:    secret,
		MCPConfig: mcp.NewClientConfig(h.mcpEndpoint, secret),
		Warning:   "Save this token now. You won't be able to see it again.",
	})
}

func (h *AccessTokenHandler) List(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	tokens, err := h.tokens.List(r.Context(), user.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("Error listing access tokens", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}
	if tokens == nil {
		tokens = []models.AccessToken{}
	}

	writeJSON(w, http.StatusOK, ListAccessTokensResponse{Tokens: tokens})
}

// Revoke handles DELETE /api/tokens/{id}.
func (h *AccessTokenHandler) Revoke(w http.ResponseWriter, r *http.Request) {
	user := GetUserFromContext(r.Context())
	if user == nil {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	tokenID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid token ID")
		return
	}

	err = h.tokens.Revoke(r.Context(), user.ID, tokenID)
	if errors.Is(err, services.ErrTokenNotFound) {
		writeError(w, http.StatusNotFound, "Token not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("Error revoking access token", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, map[string]string{"message": "Token revoked"})
}
