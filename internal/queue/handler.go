package queue

import (
	"context"
	"fmt"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/store"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// DocumentAnalyzer is the part of pipeline.Analyzer the worker needs.
type DocumentAnalyzer interface {
	AnalyzeDocument(ctx context.Context, req pipeline.DocumentRequest) (*pipeline.Report, error)
}

// Handler processes one delivery: it announces processing, runs the analysis,
// stores the report and announces the outcome.
type Handler struct {
	analyzer  DocumentAnalyzer
	reports   store.ReportStore
	publisher Publisher
	validate  *validator.Validate
	logger    *zap.Logger
	now       func() time.Time
}

func NewHandler(analyzer DocumentAnalyzer, reports store.ReportStore, publisher Publisher, log *zap.Logger) *Handler {
	return &Handler{
		analyzer:  analyzer,
		reports:   reports,
		publisher: publisher,
		validate:  validator.New(),
		logger:    logger.OrNop(log),
		now:       time.Now,
	}
}

// Handle returns an error when the message could not be analyzed; the caller decides
// whether to ack. Publish failures are logged only.
func (h *Handler) Handle(ctx context.Context, body []byte) error {
	msg, err := Decode(body, h.validate)
	if err != nil {
		if msg.ID != "" {
			h.publish(ctx, Update{AnalysisID: msg.ID, Status: StatusFailed, Message: "invalid analysis request"})
		}
		return err
	}

	log := h.logger.With(logger.AnalysisFields(msg.ID, msg.Domain)...)
	log.Info("processing queued analysis", zap.String("file_key", msg.FileKey))
	h.publish(ctx, Update{AnalysisID: msg.ID, Status: StatusProcessing, Message: "analysis started"})

	report, err := h.analyzer.AnalyzeDocument(ctx, pipeline.DocumentRequest{
		Key:            msg.FileKey,
		Role:           msg.Domain,
		JobDescription: msg.JD,
	})
	if err != nil {
		log.Error("queued analysis failed", zap.Error(err))
		h.fail(ctx, msg.ID, "analysis failed")
		return fmt.Errorf("analyze %s: %w", msg.ID, err)
	}
	report.ID = msg.ID

	if h.reports != nil {
		if err := h.reports.Save(ctx, report); err != nil {
			log.Error("failed to save analysis", zap.Error(err))
			h.fail(ctx, msg.ID, "analysis could not be saved")
			return err
		}
	}

	score := report.Score.Score
	h.publish(ctx, Update{AnalysisID: msg.ID, Status: StatusCompleted, Message: "analysis completed", Score: &score})
	log.Info("queued analysis completed", zap.Int("score", score))

	return nil
}

// fail announces a terminal failure, unless ctx was cancelled: the delivery is then
// requeued and the analysis goes back to queued.
func (h *Handler) fail(ctx context.Context, id, message string) {
	if ctx.Err() != nil {
		h.publish(ctx, Update{AnalysisID: id, Status: StatusQueued, Message: "analysis interrupted, requeued"})
		return
	}
	h.publish(ctx, Update{AnalysisID: id, Status: StatusFailed, Message: message})
}

func (h *Handler) publish(ctx context.Context, update Update) {
	if h.publisher == nil {
		return
	}
	update.Timestamp = h.now().UTC()
	if err := h.publisher.Publish(ctx, update); err != nil {
		h.logger.Warn("failed to publish update",
			zap.String(logger.FieldAnalysisID, update.AnalysisID),
			zap.String("status", string(update.Status)),
			zap.Error(err),
		)
	}
}
