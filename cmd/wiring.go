package cmd

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai/bedrock"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai/gemini"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/extract"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/logger"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/pipeline"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/secrets"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/similarity"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/skills"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/storage"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/store"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/suggest"
	"go.uber.org/zap"
)

const (
	providerGemini  = "gemini"
	providerBedrock = "bedrock"
	providerNone    = "none"
)

// model is a provider that can both complete and embed.
type model interface {
	ai.Completer
	ai.Embedder
}

// components is everything a command may need, built once from the config.
type components struct {
	catalog  *skills.Catalog
	analyzer *pipeline.Analyzer
	storage  *storage.Store
}

func newCatalog(cfg *Config) (*skills.Catalog, error) {
	if len(cfg.Roles) == 0 {
		return skills.MustDefault(), nil
	}

	table := make(map[string][]string, len(cfg.Roles))
	for _, role := range cfg.Roles {
		if _, ok := table[role.Name]; ok {
			return nil, fmt.Errorf("roles config: role %q is listed twice", role.Name)
		}
		table[role.Name] = role.Skills
	}

	catalog, err := skills.NewCatalog(table)
	if err != nil {
		return nil, fmt.Errorf("roles config: %w", err)
	}
	return catalog, nil
}

// newModel returns the configured provider, or nil for "none". Without a model every
// similarity uses TF-IDF and every suggestion list is the static fallback.
func newModel(ctx context.Context, cfg *AIConfig, log *zap.Logger) (model, error) {
	provider := strings.TrimSpace(strings.ToLower(cfg.Provider))

	switch provider {
	case "", providerGemini:
		apiKey, err := secrets.Load(secrets.Source{
			Name:  "gemini api key",
			Value: cfg.Gemini.APIKey,
			File:  cfg.Gemini.APIKeyFile,
			Env:   "GEMINI_API_KEY",
		})
		if err != nil {
			return nil, fmt.Errorf("%w (set ai.gemini.api-key-file or GEMINI_API_KEY)", err)
		}

		client, err := gemini.NewClient(ctx, apiKey, gemini.Config{
			Model:          cfg.Gemini.Model,
			EmbeddingModel: cfg.Gemini.EmbeddingModel,
			Timeout:        cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		log.Debug("ai provider ready", append(logger.CommonFields(client.Provider(), client.Model()),
			zap.String("embedding_model", client.EmbeddingModel()))...)
		return client, nil

	case providerBedrock:
		client, err := bedrock.NewClient(ctx, bedrock.Config{
			Region:         cfg.Bedrock.Region,
			Model:          cfg.Bedrock.Model,
			EmbeddingModel: cfg.Bedrock.EmbeddingModel,
			Timeout:        cfg.Timeout,
		})
		if err != nil {
			return nil, err
		}
		log.Debug("ai provider ready", append(logger.CommonFields(client.Provider(), client.Model()),
			zap.String("embedding_model", client.EmbeddingModel()))...)
		return client, nil

	case providerNone:
		return nil, nil

	default:
		return nil, fmt.Errorf("unsupported ai provider: %s", cfg.Provider)
	}
}

// newStorage returns nil when no bucket is configured.
func newStorage(ctx context.Context, cfg *StorageConfig) (*storage.Store, error) {
	if strings.TrimSpace(cfg.Bucket) == "" {
		return nil, nil
	}

	secretKey, err := secrets.Optional(secrets.Source{
		Name:  "storage secret key",
		Value: cfg.SecretKey,
		File:  cfg.SecretKeyFile,
	})
	if err != nil {
		return nil, err
	}

	return storage.New(ctx, storage.Config{
		Bucket:       cfg.Bucket,
		Region:       cfg.Region,
		Endpoint:     cfg.Endpoint,
		AccessKey:    cfg.AccessKey,
		SecretKey:    secretKey,
		UsePathStyle: cfg.PathStyle,
		DownloadDir:  cfg.DownloadDir,
		PresignTTL:   cfg.PresignTTL,
		Timeout:      cfg.Timeout,
	})
}

func newComponents(ctx context.Context, cfg *Config, log *zap.Logger) (*components, error) {
	catalog, err := newCatalog(cfg)
	if err != nil {
		return nil, err
	}

	m, err := newModel(ctx, cfg.AI, log)
	if err != nil {
		return nil, fmt.Errorf("building ai provider: %w", err)
	}

	var (
		completer ai.Completer
		embedder  ai.Embedder
	)
	if m != nil {
		completer, embedder = m, m
	} else {
		log.Warn("no ai provider configured, using tf-idf similarity and fallback suggestions")
	}

	objects, err := newStorage(ctx, cfg.Storage)
	if err != nil {
		return nil, fmt.Errorf("building object storage: %w", err)
	}

	deps := pipeline.Deps{
		Matcher:   skills.NewSubstringMatcher(catalog),
		Estimator: similarity.NewEstimator(embedder, similarity.TFIDF{}, log),
		Suggester: suggest.NewGenerator(completer, log, suggest.Options{
			MaxTokens:    cfg.AI.Suggestions.MaxTokens,
			Temperature:  cfg.AI.Suggestions.Temperature,
			MaxLogLength: cfg.AI.MaxLogLength,
		}),
		Extractor: extract.NewFiles(),
		Logger:    log,
	}
	if objects != nil {
		deps.Fetcher = objects
	}

	analyzer, err := pipeline.New(deps)
	if err != nil {
		return nil, err
	}

	return &components{catalog: catalog, analyzer: analyzer, storage: objects}, nil
}

// openReports returns a Postgres store when database.url is set, otherwise an in-process one.
// The returned close func is never nil.
func openReports(ctx context.Context, cfg *DatabaseConfig, log *zap.Logger) (store.ReportStore, func(), error) {
	if strings.TrimSpace(cfg.URL) == "" {
		log.Info("no database configured, keeping analyses in memory")
		return store.NewMemory(), func() {}, nil
	}

	db, err := store.Open(ctx, cfg.URL)
	if err != nil {
		return nil, nil, err
	}
	if err := store.EnsureSchema(ctx, db); err != nil {
		db.Close()
		return nil, nil, err
	}

	return store.NewReports(db), closer(db, log), nil
}

func closer(db *sql.DB, log *zap.Logger) func() {
	return func() {
		if err := db.Close(); err != nil && !errors.Is(err, sql.ErrConnDone) {
			log.Warn("closing database", zap.Error(err))
		}
	}
}
