package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/scoring"
	"github.com/google/uuid"
)

type fakeQuerier struct {
	rows   map[uuid.UUID]Analysis
	latest uuid.UUID
	err    error
	saved  CreateOrUpdateAnalysisParams
}

func newFakeQuerier() *fakeQuerier {
	return &fakeQuerier{rows: make(map[uuid.UUID]Analysis)}
}

func (f *fakeQuerier) CreateOrUpdateAnalysis(_ context.Context, arg CreateOrUpdateAnalysisParams) error {
	if f.err != nil {
		return f.err
	}
	f.saved = arg
	f.rows[arg.ID] = Analysis{
		ID:        arg.ID,
		Role:      arg.Role,
		FileKey:   arg.FileKey,
		Score:     arg.Score,
		Report:    arg.Report,
		CreatedAt: arg.CreatedAt,
	}
	f.latest = arg.ID
	return nil
}

func (f *fakeQuerier) GetAnalysis(_ context.Context, id uuid.UUID) (Analysis, error) {
	if f.err != nil {
		return Analysis{}, f.err
	}
	row, ok := f.rows[id]
	if !ok {
		return Analysis{}, sql.ErrNoRows
	}
	return row, nil
}

func (f *fakeQuerier) GetLatestAnalysis(ctx context.Context) (Analysis, error) {
	if f.latest == uuid.Nil {
		return Analysis{}, sql.ErrNoRows
	}
	return f.GetAnalysis(ctx, f.latest)
}

func sampleReport() *pipeline.Report {
	return &pipeline.Report{
		ID:            uuid.NewString(),
		Role:          "Full Stack",
		FileKey:       "resumes/cv.pdf",
		Skills:        []string{"react"},
		MissingSkills: []string{"docker"},
		SemanticMatch: 0.42,
		Suggestions:   []string{"Add Docker."},
		Score:         scoring.Score(1, 1, 0.42),
		CreatedAt:     time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestReportsRoundTrip(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	reports := &Reports{q: q}
	report := sampleReport()

	if err := reports.Save(context.Background(), report); err != nil {
		t.Fatalf("save: %v", err)
	}
	if q.saved.Score != int32(report.Score.Score) || q.saved.Role != "Full Stack" {
		t.Fatalf("unexpected params %+v", q.saved)
	}
	if !q.saved.FileKey.Valid || q.saved.FileKey.String != "resumes/cv.pdf" {
		t.Fatalf("unexpected file key %+v", q.saved.FileKey)
	}
	if !json.Valid(q.saved.Report) {
		t.Fatalf("report column is not valid json")
	}

	got, err := reports.Get(context.Background(), report.ID)
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.ID != report.ID || got.Score != report.Score || got.Skills[0] != "react" {
		t.Fatalf("unexpected report %+v", got)
	}

	latest, err := reports.Latest(context.Background())
	if err != nil {
		t.Fatalf("latest: %v", err)
	}
	if latest.ID != report.ID {
		t.Fatalf("expected latest %s, got %s", report.ID, latest.ID)
	}
}

func TestReportsErrors(t *testing.T) {
	t.Parallel()

	q := newFakeQuerier()
	reports := &Reports{q: q}

	if _, err := reports.Get(context.Background(), "not-a-uuid"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if _, err := reports.Get(context.Background(), uuid.NewString()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := reports.Latest(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound for empty table, got %v", err)
	}

	dbErr := errors.New("connection reset")
	q.err = dbErr
	if _, err := reports.Get(context.Background(), uuid.NewString()); !errors.Is(err, dbErr) || errors.Is(err, ErrNotFound) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
	if err := reports.Save(context.Background(), sampleReport()); !errors.Is(err, dbErr) {
		t.Fatalf("expected wrapped db error, got %v", err)
	}
}

func TestMemory(t *testing.T) {
	t.Parallel()

	m := NewMemory()
	ctx := context.Background()

	if _, err := m.Latest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	first, second := sampleReport(), sampleReport()
	for _, r := range []*pipeline.Report{first, second} {
		if err := m.Save(ctx, r); err != nil {
			t.Fatalf("save: %v", err)
		}
	}

	latest, err := m.Latest(ctx)
	if err != nil || latest.ID != second.ID {
		t.Fatalf("expected latest %s, got %v (%v)", second.ID, latest, err)
	}
	if got, err := m.Get(ctx, first.ID); err != nil || got.ID != first.ID {
		t.Fatalf("expected %s, got %v (%v)", first.ID, got, err)
	}
	if _, err := m.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := m.Save(ctx, &pipeline.Report{}); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}
