package bedrock

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/smithy-go"
)

type fakeRuntime struct {
	body  []byte
	err   error
	input *bedrockruntime.InvokeModelInput
	calls int
}

func (f *fakeRuntime) InvokeModel(ctx context.Context, params *bedrockruntime.InvokeModelInput, _ ...func(*bedrockruntime.Options)) (*bedrockruntime.InvokeModelOutput, error) {
	f.calls++
	f.input = params
	if _, ok := ctx.Deadline(); !ok {
		return nil, errors.New("expected a deadline on the context")
	}
	if f.err != nil {
		return nil, f.err
	}
	return &bedrockruntime.InvokeModelOutput{Body: f.body}, nil
}

const novaOK = `{"output":{"message":{"role":"assistant","content":[{"text":"Add Kubernetes projects.\nQuantify cost savings."}]}},"stopReason":"end_turn"}`

func TestCompleteBuildsNovaRequest(t *testing.T) {
	fake := &fakeRuntime{body: []byte(novaOK)}
	c := newClient(fake, Config{})

	out, err := c.Complete(context.Background(), ai.CompletionRequest{
		Role:        ai.RoleUser,
		Prompt:      "You are an ATS assistant.",
		MaxTokens:   150,
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "Add Kubernetes projects.\nQuantify cost savings." {
		t.Fatalf("unexpected output %q", out)
	}

	if aws.ToString(fake.input.ModelId) != "amazon.nova-micro-v1:0" {
		t.Fatalf("unexpected model %q", aws.ToString(fake.input.ModelId))
	}
	if aws.ToString(fake.input.ContentType) != "application/json" || aws.ToString(fake.input.Accept) != "application/json" {
		t.Fatalf("unexpected content types: %+v", fake.input)
	}

	var body map[string]any
	if err := json.Unmarshal(fake.input.Body, &body); err != nil {
		t.Fatalf("request body is not json: %v", err)
	}
	want := `{"inferenceConfig":{"maxTokens":150,"temperature":0.3},"messages":[{"content":[{"text":"You are an ATS assistant."}],"role":"user"}]}`
	normalized, _ := json.Marshal(body)
	if string(normalized) != want {
		t.Fatalf("unexpected request body:\n got %s\nwant %s", normalized, want)
	}
}

func TestCompleteMalformedResponses(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"not json":         `{"output":`,
		"missing output":   `{"stopReason":"end_turn"}`,
		"empty content":    `{"output":{"message":{"content":[]}}}`,
		"blank text":       `{"output":{"message":{"content":[{"text":"  "}]}}}`,
		"wrong shape":      `{"output":{"message":{"content":"text"}}}`,
		"empty body bytes": ``,
	}

	for name, body := range cases {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			_, err := newClient(&fakeRuntime{body: []byte(body)}, Config{}).Complete(context.Background(), ai.CompletionRequest{Prompt: "p"})
			if err == nil {
				t.Fatalf("expected error for %s", name)
			}
		})
	}
}

func TestCompleteSurfacesServiceErrorMessage(t *testing.T) {
	fake := &fakeRuntime{err: &smithy.GenericAPIError{Code: "AccessDeniedException", Message: "You don't have access to the model"}}

	_, err := newClient(fake, Config{}).Complete(context.Background(), ai.CompletionRequest{Prompt: "p"})
	if err == nil {
		t.Fatalf("expected error")
	}
	if !strings.Contains(err.Error(), "You don't have access to the model") {
		t.Fatalf("expected service message in error, got %v", err)
	}

	var apiErr smithy.APIError
	if !errors.As(err, &apiErr) || apiErr.ErrorCode() != "AccessDeniedException" {
		t.Fatalf("expected wrapped api error, got %v", err)
	}
}

func TestEmbed(t *testing.T) {
	fake := &fakeRuntime{body: []byte(`{"embedding":[0.1,0.2,0.3],"inputTextTokenCount":3}`)}
	c := newClient(fake, Config{EmbeddingModel: "amazon.titan-embed-text-v1"})

	vec, err := c.Embed(context.Background(), "python sql")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(vec) != 3 || vec[2] != 0.3 {
		t.Fatalf("unexpected vector %v", vec)
	}
	if aws.ToString(fake.input.ModelId) != "amazon.titan-embed-text-v1" {
		t.Fatalf("unexpected model %q", aws.ToString(fake.input.ModelId))
	}
	if string(fake.input.Body) != `{"inputText":"python sql"}` {
		t.Fatalf("unexpected body %s", fake.input.Body)
	}
}

func TestEmbedErrors(t *testing.T) {
	t.Parallel()

	for name, fake := range map[string]*fakeRuntime{
		"transport":       {err: errors.New("connection reset by peer")},
		"not json":        {body: []byte(`nope`)},
		"empty embedding": {body: []byte(`{"embedding":[]}`)},
	} {
		t.Run(name, func(t *testing.T) {
			t.Parallel()
			if _, err := newClient(fake, Config{}).Embed(context.Background(), "x"); err == nil {
				t.Fatalf("expected error")
			}
		})
	}
}

func TestNilClient(t *testing.T) {
	var c *Client
	if _, err := c.Complete(context.Background(), ai.CompletionRequest{Prompt: "p"}); err == nil {
		t.Fatalf("expected error from nil client")
	}
	if c.Model() != "" {
		t.Fatalf("expected empty model for nil client")
	}
}
