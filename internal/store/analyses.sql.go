package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

const createOrUpdateAnalysis = `-- name: CreateOrUpdateAnalysis :exec
INSERT INTO analyses (
id, role, file_key, score, report, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (id)
DO UPDATE SET
    role = EXCLUDED.role,
    file_key = EXCLUDED.file_key,
    score = EXCLUDED.score,
    report = EXCLUDED.report
`

type CreateOrUpdateAnalysisParams struct {
	ID        uuid.UUID
	Role      string
	FileKey   sql.NullString
	Score     int32
	Report    json.RawMessage
	CreatedAt time.Time
}

func (q *Queries) CreateOrUpdateAnalysis(ctx context.Context, arg CreateOrUpdateAnalysisParams) error {
	_, err := q.db.ExecContext(ctx, createOrUpdateAnalysis,
		arg.ID,
		arg.Role,
		arg.FileKey,
		arg.Score,
		arg.Report,
		arg.CreatedAt,
	)
	return err
}

const getAnalysis = `-- name: GetAnalysis :one
SELECT id, role, file_key, score, report, created_at FROM analyses
WHERE id = $1
`

func (q *Queries) GetAnalysis(ctx context.Context, id uuid.UUID) (Analysis, error) {
	row := q.db.QueryRowContext(ctx, getAnalysis, id)
	var i Analysis
	err := row.Scan(
		&i.ID,
		&i.Role,
		&i.FileKey,
		&i.Score,
		&i.Report,
		&i.CreatedAt,
	)
	return i, err
}

const getLatestAnalysis = `-- name: GetLatestAnalysis :one
SELECT id, role, file_key, score, report, created_at FROM analyses
ORDER BY created_at DESC
LIMIT 1
`

func (q *Queries) GetLatestAnalysis(ctx context.Context) (Analysis, error) {
	row := q.db.QueryRowContext(ctx, getLatestAnalysis)
	var i Analysis
	err := row.Scan(
		&i.ID,
		&i.Role,
		&i.FileKey,
		&i.Score,
		&i.Report,
		&i.CreatedAt,
	)
	return i, err
}
