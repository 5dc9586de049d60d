package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/solutionbase/internal/models"
)

var ErrVersionNotFound = errors.New("version not found")

const versionColumns = `id, solution_id, version_number, content, change_comment, created_by, created_at`

// VersionDetail is one version plus its diff against the previous version.
// Diff is empty for version 1.
type VersionDetail struct {
	Version models.SolutionVersion `json:"version"`
	Diff    string                 `json:"diff"`
}

type VersionService struct {
	db DB
}

func NewVersionService(db DB) *VersionService {
	return &VersionService{db: db}
}

func scanVersion(row Row) (models.SolutionVersion, error) {
	var v models.SolutionVersion
	err := row.Scan(&v.ID, &v.SolutionID, &v.VersionNumber, &v.Content, &v.ChangeComment, &v.CreatedBy, &v.CreatedAt)
	return v, err
}

// insertVersion appends the next version number for a solution. It must
// run inside the transaction that changed the solution.
func insertVersion(ctx context.Context, q Querier, solutionID, authorID uuid.UUID, content, comment string) (models.SolutionVersion, error) {
	v, err := scanVersion(q.QueryRow(ctx,
		`INSERT INTO solution_versions (solution_id, version_number, content, change_comment, created_by)
		 SELECT $1, COALESCE(MAX(version_number), 0) + 1, $2, $3, $4
		 FROM solution_versions WHERE solution_id = $1
		 RETURNING `+versionColumns,
		solutionID, content, comment, authorID,
	))
	if err != nil {
		return models.SolutionVersion{}, fmt.Errorf("inserting solution version: %w", err)
	}
	return v, nil
}

// List returns versions newest first.
func (s *VersionService) List(ctx context.Context, solutionID uuid.UUID) ([]models.SolutionVersion, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+versionColumns+` FROM solution_versions
		 WHERE solution_id = $1 ORDER BY version_number DESC`,
		solutionID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying versions: %w", err)
	}
	defer rows.Close()

	versions := []models.SolutionVersion{}
	for rows.Next() {
		v, err := scanVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning version: %w", err)
		}
		versions = append(versions, v)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating versions: %w", err)
	}
	return versions, nil
}

// Get returns one version and its unified diff to the previous version.
func (s *VersionService) Get(ctx context.Context, solutionID uuid.UUID, number int) (*VersionDetail, error) {
	current, err := scanVersion(s.db.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM solution_versions
		 WHERE solution_id = $1 AND version_number = $2`,
		solutionID, number,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrVersionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("getting version: %w", err)
	}

	detail := &VersionDetail{Version: current}
	if number <= 1 {
		return detail, nil
	}

	previous, err := scanVersion(s.db.QueryRow(ctx,
		`SELECT `+versionColumns+` FROM solution_versions
		 WHERE solution_id = $1 AND version_number < $2
		 ORDER BY version_number DESC LIMIT 1`,
		solutionID, number,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return detail, nil
	}
	if err != nil {
		return nil, fmt.Errorf("getting previous version: %w", err)
	}

	detail.Diff, err = VersionDiff(previous.Content, current.Content, previous.VersionNumber, current.VersionNumber)
	if err != nil {
		return nil, err
	}
	return detail, nil
}
