package queue

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/scoring"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/store"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

type stubAnalyzer struct {
	err error
	got pipeline.DocumentRequest
}

func (s *stubAnalyzer) AnalyzeDocument(_ context.Context, req pipeline.DocumentRequest) (*pipeline.Report, error) {
	s.got = req
	if s.err != nil {
		return nil, s.err
	}
	return &pipeline.Report{ID: "generated", Role: req.Role, FileKey: req.Key, Score: scoring.Score(3, 2, 0.5)}, nil
}

type recordingPublisher struct {
	mu      sync.Mutex
	updates []Update
	err     error
}

func (p *recordingPublisher) Publish(_ context.Context, u Update) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, u)
	return p.err
}

func (p *recordingPublisher) statuses() []Status {
	out := make([]Status, 0, len(p.updates))
	for _, u := range p.updates {
		out = append(out, u.Status)
	}
	return out
}

type fakeDelivery struct {
	acked, nacked, requeued bool
}

func (d *fakeDelivery) Ack(bool) error { d.acked = true; return nil }

func (d *fakeDelivery) Nack(_ bool, requeue bool) error {
	d.nacked = true
	d.requeued = requeue
	return nil
}

const analysisID = "5b0f7c1e-2d4a-4b8e-9a51-0c7f3d2e6a11"

func body(t *testing.T, msg Message) []byte {
	t.Helper()
	b, err := json.Marshal(msg)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return b
}

func newHandler(a DocumentAnalyzer, reports store.ReportStore, p Publisher) *Handler {
	h := NewHandler(a, reports, p, zap.NewNop())
	h.now = func() time.Time { return time.Date(2024, 5, 1, 0, 0, 0, 0, time.UTC) }
	return h
}

func TestHandleCompletes(t *testing.T) {
	t.Parallel()

	analyzer := &stubAnalyzer{}
	reports := store.NewMemory()
	publisher := &recordingPublisher{}
	h := newHandler(analyzer, reports, publisher)

	err := h.Handle(context.Background(), body(t, Message{ID: analysisID, FileKey: "resumes/cv.pdf", Domain: "Full Stack", JD: "React dev"}))
	if err != nil {
		t.Fatalf("handle: %v", err)
	}

	if analyzer.got.Key != "resumes/cv.pdf" || analyzer.got.Role != "Full Stack" || analyzer.got.JobDescription != "React dev" {
		t.Fatalf("unexpected request %+v", analyzer.got)
	}

	saved, err := reports.Get(context.Background(), analysisID)
	if err != nil {
		t.Fatalf("report not saved under message id: %v", err)
	}
	if saved.FileKey != "resumes/cv.pdf" {
		t.Fatalf("unexpected saved report %+v", saved)
	}

	got := publisher.statuses()
	if len(got) != 2 || got[0] != StatusProcessing || got[1] != StatusCompleted {
		t.Fatalf("unexpected statuses %v", got)
	}
	last := publisher.updates[1]
	if last.Score == nil || *last.Score != saved.Score.Score {
		t.Fatalf("completed update must carry the score, got %+v", last)
	}
	if last.AnalysisID != analysisID || last.Timestamp.IsZero() {
		t.Fatalf("unexpected update %+v", last)
	}
}

func TestHandleAnalysisFailure(t *testing.T) {
	t.Parallel()

	analyzeErr := &pipeline.DocumentError{Stage: "fetch", Cause: errors.New("no such key")}
	publisher := &recordingPublisher{}
	h := newHandler(&stubAnalyzer{err: analyzeErr}, store.NewMemory(), publisher)

	err := h.Handle(context.Background(), body(t, Message{ID: analysisID, FileKey: "k", Domain: "Full Stack", JD: "jd"}))
	if !errors.Is(err, analyzeErr) {
		t.Fatalf("expected analysis error, got %v", err)
	}

	got := publisher.statuses()
	if len(got) != 2 || got[1] != StatusFailed {
		t.Fatalf("unexpected statuses %v", got)
	}
}

func TestHandleRejectsInvalidMessages(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name string
		body []byte
	}{
		{name: "malformed json", body: []byte("{")},
		{name: "missing file key", body: []byte(`{"domain":"Full Stack","jd":"x"}`)},
		{name: "bad id", body: []byte(`{"id":"nope","fileKey":"k","domain":"Full Stack","jd":"x"}`)},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			analyzer := &stubAnalyzer{}
			h := newHandler(analyzer, nil, &recordingPublisher{})
			if err := h.Handle(context.Background(), tt.body); err == nil {
				t.Fatalf("expected error")
			}
			if analyzer.got.Key != "" {
				t.Fatalf("analyzer must not run for invalid messages")
			}
		})
	}
}

func TestHandleIgnoresPublishErrors(t *testing.T) {
	t.Parallel()

	h := newHandler(&stubAnalyzer{}, nil, &recordingPublisher{err: errors.New("channel closed")})
	if err := h.Handle(context.Background(), body(t, Message{FileKey: "k", Domain: "Cybersecurity", JD: "jd"})); err != nil {
		t.Fatalf("publish failures must not fail the analysis: %v", err)
	}
}

func TestDecodeGeneratesID(t *testing.T) {
	t.Parallel()

	msg, err := Decode([]byte(`{"fileKey":"k","domain":"Full Stack","jd":"x"}`), validator.New())
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	if msg.ID == "" {
		t.Fatalf("expected generated id")
	}
}

func TestSettle(t *testing.T) {
	t.Parallel()

	valid := body(t, Message{ID: analysisID, FileKey: "k", Domain: "Full Stack", JD: "jd"})

	t.Run("ack on success", func(t *testing.T) {
		t.Parallel()
		d := &fakeDelivery{}
		settle(context.Background(), d, valid, newHandler(&stubAnalyzer{}, nil, nil), zap.NewNop())
		if !d.acked || d.nacked {
			t.Fatalf("expected ack, got %+v", d)
		}
	})

	t.Run("reject on failure", func(t *testing.T) {
		t.Parallel()
		d := &fakeDelivery{}
		settle(context.Background(), d, []byte("{"), newHandler(&stubAnalyzer{}, nil, nil), zap.NewNop())
		if !d.nacked || d.requeued {
			t.Fatalf("expected nack without requeue, got %+v", d)
		}
	})

	t.Run("requeue on shutdown", func(t *testing.T) {
		t.Parallel()
		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		d := &fakeDelivery{}
		publisher := &recordingPublisher{}
		settle(ctx, d, valid, newHandler(&stubAnalyzer{err: context.Canceled}, nil, publisher), zap.NewNop())
		if !d.nacked || !d.requeued {
			t.Fatalf("expected requeue, got %+v", d)
		}
		got := publisher.statuses()
		if len(got) != 2 || got[0] != StatusProcessing || got[1] != StatusQueued {
			t.Fatalf("a requeued analysis must not be reported as failed, got %v", got)
		}
	})
}

func TestRoutingKey(t *testing.T) {
	t.Parallel()

	if got := RoutingKey("abc"); got != "analysis.abc" {
		t.Fatalf("unexpected routing key %q", got)
	}
}
