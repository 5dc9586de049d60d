package handlers

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/HammerMeetNail/solutionbase/internal/logging"
	"github.com/HammerMeetNail/solutionbase/internal/models"
	"github.com/HammerMeetNail/solutionbase/internal/services"
)

// VersionHandler exposes solution history. Published solutions are visible
// to everyone; drafts only to their author.
type VersionHandler struct {
	solutions services.SolutionReader
	versions  services.VersionServiceInterface
}

func NewVersionHandler(solutions services.SolutionReader, versions services.VersionServiceInterface) *VersionHandler {
	return &VersionHandler{solutions: solutions, versions: versions}
}

type ListVersionsResponse struct {
	Solution string                   `json:"solution"`
	Versions []models.SolutionVersion `json:"versions"`
}

// List handles GET /api/solutions/{slug}/versions.
func (h *VersionHandler) List(w http.ResponseWriter, r *http.Request) {
	solution, ok := h.visibleSolution(w, r)
	if !ok {
		return
	}

	versions, err := h.versions.List(r.Context(), solution.ID)
	if err != nil {
		logging.FromContext(r.Context()).Error("Error listing versions", map[string]interface{}{
			"error":       err.Error(),
			"solution_id": solution.ID.String(),
		})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, ListVersionsResponse{Solution: solution.Slug, Versions: versions})
}

// Get handles GET /api/solutions/{slug}/versions/{number}.
func (h *VersionHandler) Get(w http.ResponseWriter, r *http.Request) {
	number, err := strconv.Atoi(r.PathValue("number"))
	if err != nil || number < 1 {
		writeError(w, http.StatusBadRequest, "Invalid version number")
		return
	}

	solution, ok := h.visibleSolution(w, r)
	if !ok {
		return
	}

	detail, err := h.versions.Get(r.Context(), solution.ID, number)
	if errors.Is(err, services.ErrVersionNotFound) {
		writeError(w, http.StatusNotFound, "Version not found")
		return
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("Error getting version", map[string]interface{}{
			"error":       err.Error(),
			"solution_id": solution.ID.String(),
			"version":     number,
		})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return
	}

	writeJSON(w, http.StatusOK, detail)
}

func (h *VersionHandler) visibleSolution(w http.ResponseWriter, r *http.Request) (*models.Solution, bool) {
	solution, err := h.lookup(r.Context(), r.PathValue("slug"))
	if errors.Is(err, services.ErrSolutionNotFound) {
		writeError(w, http.StatusNotFound, "Solution not found")
		return nil, false
	}
	if err != nil {
		logging.FromContext(r.Context()).Error("Error getting solution", map[string]interface{}{"error": err.Error()})
		writeError(w, http.StatusInternalServerError, "Internal server error")
		return nil, false
	}

	if !solution.IsPublished {
		user := GetUserFromContext(r.Context())
		if user == nil || user.ID != solution.AuthorID {
			writeError(w, http.StatusNotFound, "Solution not found")
			return nil, false
		}
	}
	return solution, true
}

func (h *VersionHandler) lookup(ctx context.Context, slug string) (*models.Solution, error) {
	if slug == "" {
		return nil, services.ErrSolutionNotFound
	}
	return h.solutions.GetBySlug(ctx, slug)
}
