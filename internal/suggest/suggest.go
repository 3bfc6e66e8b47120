// Package suggest asks a generative model for résumé improvement suggestions.
package suggest

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	_ "embed"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/analysis"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/utils"
	"go.uber.org/zap"
)

//go:embed prompt.md
var promptTemplate string

const defaultMaxLogLength = 200

var errNoCompleter = errors.New("suggestion model is not configured")

// Fallback is returned whenever the model cannot be used.
func Fallback() []string {
	return []string{
		"Highlight missing core skills relevant to the role.",
		"Improve alignment between resume content and job description.",
		"Add measurable impact to project descriptions.",
	}
}

// Result holds the suggestions and whether they came from the static fallback.
// Model suggestions are the non-blank lines of the response, trimmed.
// Err is the model failure that caused the fallback.
type Result struct {
	Suggestions []string
	Fallback    bool
	Err         error
}

// Options tunes the completion request. Zero values select the defaults.
type Options struct {
	MaxTokens    int
	Temperature  *float64
	MaxLogLength int
}

type Generator struct {
	completer   ai.Completer
	logger      *zap.Logger
	maxTokens   int
	temperature float64
	maxLogLen   int
}

func NewGenerator(completer ai.Completer, log *zap.Logger, opts Options) *Generator {
	g := &Generator{
		completer:   completer,
		logger:      logger.OrNop(log),
		maxTokens:   ai.DefaultMaxTokens,
		temperature: ai.DefaultTemperature,
		maxLogLen:   defaultMaxLogLength,
	}
	if opts.MaxTokens > 0 {
		g.maxTokens = opts.MaxTokens
	}
	if opts.Temperature != nil {
		g.temperature = *opts.Temperature
	}
	if opts.MaxLogLength > 0 {
		g.maxLogLen = opts.MaxLogLength
	}
	if named, ok := completer.(ai.Named); ok {
		g.logger = logger.WithCommonFields(g.logger, named.Provider(), named.Model())
	}
	return g
}

// Generate makes one completion call. Every failure yields Fallback(); there are no retries.
func (g *Generator) Generate(ctx context.Context, mc analysis.MatchContext) Result {
	suggestions, err := g.generate(ctx, mc)
	if err != nil {
		g.logger.Warn("suggestion generation failed, using fallback suggestions", zap.Error(err))
		return Result{Suggestions: Fallback(), Fallback: true, Err: err}
	}
	return Result{Suggestions: suggestions}
}

func (g *Generator) generate(ctx context.Context, mc analysis.MatchContext) ([]string, error) {
	if g.completer == nil {
		return nil, errNoCompleter
	}

	prompt := BuildPrompt(mc)

	g.logger.Info("requesting suggestions",
		zap.Int("max_tokens", g.maxTokens),
		zap.Float64("temperature", g.temperature),
	)
	g.logger.Debug("suggestion prompt",
		zap.Int("prompt_length", utf8.RuneCountInString(prompt)),
		zap.String("prompt_preview", utils.TruncateForLog(prompt, g.maxLogLen)),
	)

	raw, err := g.completer.Complete(ctx, ai.CompletionRequest{
		Role:        ai.RoleUser,
		Prompt:      prompt,
		MaxTokens:   g.maxTokens,
		Temperature: g.temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("complete prompt: %w", err)
	}

	g.logger.Debug("suggestion response",
		zap.Int("response_length", utf8.RuneCountInString(raw)),
		zap.String("response_preview", utils.TruncateForLog(raw, g.maxLogLen)),
	)

	lines := ParseLines(raw)
	if len(lines) == 0 {
		return nil, ai.ErrEmptyResponse
	}
	return lines, nil
}

// BuildPrompt renders the suggestion prompt for mc.
func BuildPrompt(mc analysis.MatchContext) string {
	r := strings.NewReplacer(
		"{{ROLE}}", mc.Role,
		"{{RESUME}}", mc.ResumeText,
		"{{SEMANTIC_SCORE}}", strconv.FormatFloat(mc.SemanticMatch, 'f', -1, 64),
		"{{JOB_DESCRIPTION}}", mc.JobDescriptionExcerpt,
	)
	return r.Replace(promptTemplate)
}

// ParseLines splits a model response into one suggestion per non-blank line.
func ParseLines(raw string) []string {
	parts := strings.Split(raw, "\n")
	lines := make([]string, 0, len(parts))
	for _, part := range parts {
		if line := strings.TrimSpace(part); line != "" {
			lines = append(lines, line)
		}
	}
	return lines
}
