// Package bedrock talks to Amazon Bedrock: Nova for completions, Titan for embeddings.
package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai"
	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
	"github.com/mitchellh/mapstructure"
)

const (
	provider = "bedrock"

	defaultRegion         = "us-east-1"
	defaultModel          = "amazon.nova-micro-v1:0"
	defaultEmbeddingModel = "amazon.titan-embed-text-v2:0"
	defaultTimeout        = 30 * time.Second

	jsonContentType = "application/json"
)

var errNotInitialized = errors.New("bedrock client is not initialized")

type invoker interface {
	InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, optFns ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error)
}

// Config selects the region, models and per-call timeout. Empty fields use the defaults.
type Config struct {
	Region         string
	Model          string
	EmbeddingModel string
	Timeout        time.Duration
}

// Client implements ai.Completer and ai.Embedder over the Bedrock runtime API.
type Client struct {
	runtime        invoker
	modelName      string
	embeddingModel string
	timeout        time.Duration
}

// NewClient loads the default AWS credential chain for cfg.Region.
func NewClient(ctx context.Context, cfg Config) (*Client, error) {
	region := strings.TrimSpace(cfg.Region)
	if region == "" {
		region = defaultRegion
	}

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(region))
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return newClient(bedrockruntime.NewFromConfig(awsCfg), cfg), nil
}

func newClient(runtime invoker, cfg Config) *Client {
	c := &Client{
		runtime:        runtime,
		modelName:      strings.TrimSpace(cfg.Model),
		embeddingModel: strings.TrimSpace(cfg.EmbeddingModel),
		timeout:        cfg.Timeout,
	}
	if c.modelName == "" {
		c.modelName = defaultModel
	}
	if c.embeddingModel == "" {
		c.embeddingModel = defaultEmbeddingModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	return c
}

type novaRequest struct {
	Messages        []novaMessage   `json:"messages"`
	InferenceConfig inferenceConfig `json:"inferenceConfig"`
}

type novaMessage struct {
	Role    string     `json:"role"`
	Content []novaText `json:"content"`
}

type novaText struct {
	Text string `json:"text" mapstructure:"text"`
}

type inferenceConfig struct {
	MaxTokens   int     `json:"maxTokens"`
	Temperature float64 `json:"temperature"`
}

type novaResponse struct {
	Output struct {
		Message struct {
			Content []novaText `mapstructure:"content"`
		} `mapstructure:"message"`
	} `mapstructure:"output"`
}

// Complete invokes a Nova model with a single user message.
func (c *Client) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	if c == nil || c.runtime == nil {
		return "", errNotInitialized
	}

	role := req.Role
	if role == "" {
		role = ai.RoleUser
	}

	body, err := json.Marshal(novaRequest{
		Messages: []novaMessage{{
			Role:    role,
			Content: []novaText{{Text: req.Prompt}},
		}},
		InferenceConfig: inferenceConfig{
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal nova request: %w", err)
	}

	raw, err := c.invoke(ctx, c.modelName, body)
	if err != nil {
		return "", err
	}

	var decoded map[string]any
	if err := json.Unmarshal(raw, &decoded); err != nil {
		return "", fmt.Errorf("parse nova response: %w", err)
	}

	var resp novaResponse
	if err := mapstructure.Decode(decoded, &resp); err != nil {
		return "", fmt.Errorf("decode nova response: %w", err)
	}

	content := resp.Output.Message.Content
	if len(content) == 0 {
		return "", fmt.Errorf("nova response has no content: %w", ai.ErrEmptyResponse)
	}

	text := strings.TrimSpace(content[0].Text)
	if text == "" {
		return "", ai.ErrEmptyResponse
	}
	return text, nil
}

type titanRequest struct {
	InputText string `json:"inputText"`
}

type titanResponse struct {
	Embedding []float64 `json:"embedding"`
}

// Embed invokes a Titan text embedding model.
func (c *Client) Embed(ctx context.Context, text string) ([]float64, error) {
	if c == nil || c.runtime == nil {
		return nil, errNotInitialized
	}

	body, err := json.Marshal(titanRequest{InputText: text})
	if err != nil {
		return nil, fmt.Errorf("marshal titan request: %w", err)
	}

	raw, err := c.invoke(ctx, c.embeddingModel, body)
	if err != nil {
		return nil, err
	}

	var resp titanResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("parse titan response: %w", err)
	}
	if len(resp.Embedding) == 0 {
		return nil, errors.New("titan response has no embedding")
	}
	return resp.Embedding, nil
}

func (c *Client) invoke(ctx context.Context, model string, body []byte) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	out, err := c.runtime.InvokeModel(ctx, &bedrockruntime.InvokeModelInput{
		ModelId:     aws.String(model),
		Body:        body,
		ContentType: aws.String(jsonContentType),
		Accept:      aws.String(jsonContentType),
	})
	if err != nil {
		var apiErr smithy.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("invoke model %s: %s: %w", model, apiErr.ErrorMessage(), err)
		}
		return nil, fmt.Errorf("invoke model %s: %w", model, err)
	}
	if out == nil || len(out.Body) == 0 {
		return nil, fmt.Errorf("invoke model %s: %w", model, ai.ErrEmptyResponse)
	}

	return out.Body, nil
}

func (c *Client) Provider() string { return provider }

func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.modelName
}

func (c *Client) EmbeddingModel() string {
	if c == nil {
		return ""
	}
	return c.embeddingModel
}
