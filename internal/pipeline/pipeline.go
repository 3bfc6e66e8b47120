// Package pipeline runs one résumé through skill matching, similarity, suggestions and scoring.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/analysis"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/extract"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/scoring"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/similarity"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/skills"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/suggest"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// ErrNoDocument is returned when a document request names neither a key nor a local path.
var ErrNoDocument = errors.New("document key or path is required")

// Fetcher copies a stored document to a local file.
type Fetcher interface {
	Download(ctx context.Context, key string) (string, error)
}

// SimilarityEstimator never fails; see similarity.Estimator.
type SimilarityEstimator interface {
	Estimate(ctx context.Context, resumeText, jobDescription string) similarity.Result
}

// Suggester never fails; see suggest.Generator.
type Suggester interface {
	Generate(ctx context.Context, mc analysis.MatchContext) suggest.Result
}

// Request is an analysis over text that is already extracted.
type Request struct {
	Role           string
	ResumeText     string
	JobDescription string
}

// DocumentRequest points at a stored object (Key) or a local file (Path).
type DocumentRequest struct {
	Key            string
	Path           string
	Role           string
	JobDescription string
}

// Report is the outcome of one analysis.
type Report struct {
	ID                  string            `json:"id"`
	Role                string            `json:"role"`
	FileKey             string            `json:"fileKey,omitempty"`
	Skills              []string          `json:"skills"`
	MissingSkills       []string          `json:"missingSkills"`
	SemanticMatch       float64           `json:"semanticMatch"`
	SimilarityMethod    similarity.Method `json:"similarityMethod"`
	Suggestions         []string          `json:"suggestions"`
	SuggestionsFallback bool              `json:"suggestionsFallback"`
	Score               scoring.Breakdown `json:"score"`
	CreatedAt           time.Time         `json:"createdAt"`
}

// Deps are the analyzer collaborators. Matcher, Estimator and Suggester are required;
// Fetcher and Extractor are needed only for document requests.
type Deps struct {
	Matcher   skills.Matcher
	Estimator SimilarityEstimator
	Suggester Suggester
	Fetcher   Fetcher
	Extractor extract.Extractor
	Logger    *zap.Logger
}

type Analyzer struct {
	matcher   skills.Matcher
	estimator SimilarityEstimator
	suggester Suggester
	fetcher   Fetcher
	extractor extract.Extractor
	logger    *zap.Logger
	newID     func() string
	now       func() time.Time
}

func New(deps Deps) (*Analyzer, error) {
	if deps.Matcher == nil {
		return nil, errors.New("skill matcher is required")
	}
	if deps.Estimator == nil {
		return nil, errors.New("similarity estimator is required")
	}
	if deps.Suggester == nil {
		return nil, errors.New("suggestion generator is required")
	}

	return &Analyzer{
		matcher:   deps.Matcher,
		estimator: deps.Estimator,
		suggester: deps.Suggester,
		fetcher:   deps.Fetcher,
		extractor: deps.Extractor,
		logger:    logger.OrNop(deps.Logger),
		newID:     uuid.NewString,
		now:       time.Now,
	}, nil
}

// Analyze scores already-extracted résumé text against a role and job description.
// Model failures degrade to fallbacks; only a cancelled context is returned as an error.
func (a *Analyzer) Analyze(ctx context.Context, req Request) (*Report, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	id := a.newID()
	log := a.logger.With(logger.AnalysisFields(id, req.Role)...)

	matched := a.matcher.Match(req.ResumeText, req.Role)
	log.Debug("skills matched",
		zap.Int("found", len(matched.Found)),
		zap.Int("not_found", len(matched.NotFound)),
	)

	sim := a.estimator.Estimate(ctx, req.ResumeText, req.JobDescription)
	log.Debug("similarity estimated",
		zap.Float64("similarity", sim.Score),
		zap.String("method", string(sim.Method)),
	)

	mc := analysis.BuildContext(matched.Found, sim.Score, req.Role, req.JobDescription, req.ResumeText)

	var (
		suggestions suggest.Result
		breakdown   scoring.Breakdown
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		suggestions = a.suggester.Generate(gctx, mc)
		return nil
	})
	g.Go(func() error {
		breakdown = scoring.Score(len(matched.Found), len(matched.NotFound), sim.Score)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("analyze resume: %w", err)
	}

	report := &Report{
		ID:                  id,
		Role:                req.Role,
		Skills:              matched.Found,
		MissingSkills:       matched.NotFound,
		SemanticMatch:       sim.Score,
		SimilarityMethod:    sim.Method,
		Suggestions:         suggestions.Suggestions,
		SuggestionsFallback: suggestions.Fallback,
		Score:               breakdown,
		CreatedAt:           a.now().UTC(),
	}

	log.Info("analysis completed",
		zap.Int("score", breakdown.Score),
		zap.Bool("suggestions_fallback", suggestions.Fallback),
	)

	return report, nil
}

// AnalyzeDocument fetches and extracts a résumé, then analyzes it. Fetch and extraction
// errors are returned; a downloaded copy is removed once its text is read.
func (a *Analyzer) AnalyzeDocument(ctx context.Context, req DocumentRequest) (*Report, error) {
	text, err := a.documentText(ctx, req)
	if err != nil {
		return nil, err
	}

	report, err := a.Analyze(ctx, Request{
		Role:           req.Role,
		ResumeText:     text,
		JobDescription: req.JobDescription,
	})
	if err != nil {
		return nil, err
	}
	report.FileKey = req.Key

	return report, nil
}

// AnalyzeBatch analyzes documents with at most limit in flight. Reports keep the input order.
func (a *Analyzer) AnalyzeBatch(ctx context.Context, reqs []DocumentRequest, limit int) ([]*Report, error) {
	reports := make([]*Report, len(reqs))

	g, gctx := errgroup.WithContext(ctx)
	if limit > 0 {
		g.SetLimit(limit)
	}

	for i, req := range reqs {
		i, req := i, req
		g.Go(func() error {
			report, err := a.AnalyzeDocument(gctx, req)
			if err != nil {
				return fmt.Errorf("analyze %s: %w", req.name(), err)
			}
			reports[i] = report
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

func (a *Analyzer) documentText(ctx context.Context, req DocumentRequest) (string, error) {
	if a.extractor == nil {
		return "", errors.New("document extractor is not configured")
	}

	path := strings.TrimSpace(req.Path)
	if path == "" {
		key := strings.TrimSpace(req.Key)
		if key == "" {
			return "", ErrNoDocument
		}
		if a.fetcher == nil {
			return "", errors.New("document storage is not configured")
		}

		downloaded, err := a.fetcher.Download(ctx, key)
		if err != nil {
			return "", &DocumentError{Stage: "fetch", Cause: err}
		}
		defer func() {
			if err := os.Remove(downloaded); err != nil && !errors.Is(err, os.ErrNotExist) {
				a.logger.Warn("failed to remove downloaded document", zap.String("path", downloaded), zap.Error(err))
			}
		}()
		path = downloaded
	}

	text, err := a.extractor.Extract(ctx, path)
	if err != nil {
		return "", &DocumentError{Stage: "extract", Cause: err}
	}
	return text, nil
}

func (r DocumentRequest) name() string {
	if r.Path != "" {
		return r.Path
	}
	return r.Key
}
