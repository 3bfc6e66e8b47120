// Package store persists analysis reports in Postgres.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	_ "embed"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/google/uuid"
	_ "github.com/lib/pq"
)

//go:embed schema.sql
var schema string

var (
	// ErrNotFound is returned when no report matches.
	ErrNotFound = errors.New("analysis not found")
	// ErrInvalidID is returned for ids that are not UUIDs.
	ErrInvalidID = errors.New("invalid analysis id")
)

// ReportStore saves and loads analysis reports.
type ReportStore interface {
	Save(ctx context.Context, report *pipeline.Report) error
	Get(ctx context.Context, id string) (*pipeline.Report, error)
	Latest(ctx context.Context) (*pipeline.Report, error)
}

type querier interface {
	CreateOrUpdateAnalysis(ctx context.Context, arg CreateOrUpdateAnalysisParams) error
	GetAnalysis(ctx context.Context, id uuid.UUID) (Analysis, error)
	GetLatestAnalysis(ctx context.Context) (Analysis, error)
}

// Open connects to Postgres and verifies the connection.
func Open(ctx context.Context, url string) (*sql.DB, error) {
	if strings.TrimSpace(url) == "" {
		return nil, errors.New("database url is required")
	}

	db, err := sql.Open("postgres", url)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping database: %w", err)
	}

	return db, nil
}

// EnsureSchema creates the analyses table when it does not exist.
func EnsureSchema(ctx context.Context, db DBTX) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply schema: %w", err)
	}
	return nil
}

// Reports is the Postgres-backed ReportStore.
type Reports struct {
	q querier
}

func NewReports(db DBTX) *Reports {
	return &Reports{q: New(db)}
}

func (r *Reports) Save(ctx context.Context, report *pipeline.Report) error {
	id, err := uuid.Parse(report.ID)
	if err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidID, report.ID)
	}

	body, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	createdAt := report.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	err = r.q.CreateOrUpdateAnalysis(ctx, CreateOrUpdateAnalysisParams{
		ID:        id,
		Role:      report.Role,
		FileKey:   sql.NullString{String: report.FileKey, Valid: report.FileKey != ""},
		Score:     int32(report.Score.Score),
		Report:    body,
		CreatedAt: createdAt,
	})
	if err != nil {
		return fmt.Errorf("save analysis %s: %w", report.ID, err)
	}
	return nil
}

func (r *Reports) Get(ctx context.Context, id string) (*pipeline.Report, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", ErrInvalidID, id)
	}

	row, err := r.q.GetAnalysis(ctx, parsed)
	if err != nil {
		return nil, notFound(err, "get analysis "+id)
	}
	return decode(row)
}

func (r *Reports) Latest(ctx context.Context) (*pipeline.Report, error) {
	row, err := r.q.GetLatestAnalysis(ctx)
	if err != nil {
		return nil, notFound(err, "get latest analysis")
	}
	return decode(row)
}

func notFound(err error, op string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return fmt.Errorf("%s: %w", op, err)
}

func decode(row Analysis) (*pipeline.Report, error) {
	var report pipeline.Report
	if err := json.Unmarshal(row.Report, &report); err != nil {
		return nil, fmt.Errorf("decode analysis %s: %w", row.ID, err)
	}
	return &report, nil
}

// Memory keeps reports in process. It is used when no database is configured.
type Memory struct {
	mu      sync.RWMutex
	reports map[string]*pipeline.Report
	latest  string
}

func NewMemory() *Memory {
	return &Memory{reports: make(map[string]*pipeline.Report)}
}

func (m *Memory) Save(_ context.Context, report *pipeline.Report) error {
	if report == nil || report.ID == "" {
		return ErrInvalidID
	}

	cp := *report
	m.mu.Lock()
	defer m.mu.Unlock()
	m.reports[report.ID] = &cp
	m.latest = report.ID
	return nil
}

func (m *Memory) Get(_ context.Context, id string) (*pipeline.Report, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	report, ok := m.reports[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *report
	return &cp, nil
}

func (m *Memory) Latest(ctx context.Context) (*pipeline.Report, error) {
	m.mu.RLock()
	latest := m.latest
	m.mu.RUnlock()

	if latest == "" {
		return nil, ErrNotFound
	}
	return m.Get(ctx, latest)
}
