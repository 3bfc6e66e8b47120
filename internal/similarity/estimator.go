// Package similarity estimates how topically close a résumé is to a job description.
package similarity

import (
	"context"
	"errors"
	"fmt"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"go.uber.org/zap"
)

// Method records which path produced a score.
type Method string

const (
	MethodEmpty     Method = "empty"
	MethodEmbedding Method = "embedding"
	MethodTFIDF     Method = "tfidf"
)

// Result is a similarity score in [0,1] and how it was obtained.
// Err carries the embedding failure when the lexical fallback was used.
type Result struct {
	Score  float64
	Method Method
	Err    error
}

var errNoEmbedder = errors.New("embedding service is not configured")

// Estimator prefers embeddings and falls back to a lexical score.
type Estimator struct {
	embedder ai.Embedder
	lexical  Lexical
	logger   *zap.Logger
}

// NewEstimator builds an Estimator. A nil embedder sends every request to the lexical path;
// a nil lexical scorer defaults to TFIDF.
func NewEstimator(embedder ai.Embedder, lexical Lexical, log *zap.Logger) *Estimator {
	if lexical == nil {
		lexical = TFIDF{}
	}
	return &Estimator{
		embedder: embedder,
		lexical:  lexical,
		logger:   logger.OrNop(log),
	}
}

// Estimate never fails: embedding errors are logged and answered by the lexical scorer.
func (e *Estimator) Estimate(ctx context.Context, resumeText, jobDescription string) Result {
	if resumeText == "" || jobDescription == "" {
		return Result{Score: 0, Method: MethodEmpty}
	}

	score, err := e.embed(ctx, resumeText, jobDescription)
	if err == nil {
		e.logger.Debug("similarity computed from embeddings", zap.Float64("similarity", score))
		return Result{Score: score, Method: MethodEmbedding}
	}

	fallback := e.lexical.Similarity(resumeText, jobDescription)
	log := e.logger.Warn
	if errors.Is(err, errNoEmbedder) {
		log = e.logger.Debug
	}
	log("embedding failed, falling back to tf-idf",
		zap.Error(err),
		zap.Float64("similarity", fallback),
	)

	return Result{Score: fallback, Method: MethodTFIDF, Err: err}
}

func (e *Estimator) embed(ctx context.Context, resumeText, jobDescription string) (float64, error) {
	if e.embedder == nil {
		return 0, errNoEmbedder
	}

	resumeVec, err := e.embedder.Embed(ctx, resumeText)
	if err != nil {
		return 0, fmt.Errorf("embed resume: %w", err)
	}

	jobVec, err := e.embedder.Embed(ctx, jobDescription)
	if err != nil {
		return 0, fmt.Errorf("embed job description: %w", err)
	}

	cos, err := Cosine(resumeVec, jobVec)
	if err != nil {
		return 0, fmt.Errorf("cosine similarity: %w", err)
	}

	return clamp01(Round2(cos)), nil
}
