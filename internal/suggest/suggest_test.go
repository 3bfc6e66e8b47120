package suggest

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/ai"
	"github.com/Navaneetha-Krishnan-MV/Resume-Analyzer/internal/analysis"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type stubCompleter struct {
	response string
	err      error
	block    bool
	last     ai.CompletionRequest
	calls    int
}

func (s *stubCompleter) Complete(ctx context.Context, req ai.CompletionRequest) (string, error) {
	s.calls++
	s.last = req
	if s.block {
		<-ctx.Done()
		return "", ctx.Err()
	}
	if s.err != nil {
		return "", s.err
	}
	return s.response, nil
}

func (s *stubCompleter) Provider() string { return "stub" }
func (s *stubCompleter) Model() string    { return "stub-model" }

func testContext() analysis.MatchContext {
	return analysis.BuildContext(nil, 0.73, "Machine Learning", "Looking for an ML engineer with PyTorch.", "# Jane Doe\n- Python, pandas")
}

func TestGenerateSplitsResponseLines(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{response: "1. Add PyTorch projects.\n\n2. Quantify model accuracy gains.\r\n   \n3. Mention SQL work.\n"}
	got := NewGenerator(stub, zap.NewNop(), Options{}).Generate(context.Background(), testContext())

	want := []string{"1. Add PyTorch projects.", "2. Quantify model accuracy gains.", "3. Mention SQL work."}
	if !reflect.DeepEqual(got.Suggestions, want) {
		t.Fatalf("unexpected suggestions: %q", got.Suggestions)
	}
	if got.Fallback || got.Err != nil {
		t.Fatalf("expected model suggestions, got fallback=%v err=%v", got.Fallback, got.Err)
	}
}

func TestGenerateSendsFixedParameters(t *testing.T) {
	t.Parallel()

	stub := &stubCompleter{response: "ok"}
	NewGenerator(stub, nil, Options{}).Generate(context.Background(), testContext())

	if stub.calls != 1 {
		t.Fatalf("expected a single request, got %d", stub.calls)
	}
	if stub.last.Role != ai.RoleUser {
		t.Fatalf("unexpected role %q", stub.last.Role)
	}
	if stub.last.MaxTokens != 150 || stub.last.Temperature != 0.3 {
		t.Fatalf("unexpected inference config: %+v", stub.last)
	}

	for _, fragment := range []string{
		"Role: Machine Learning",
		"Resume data: # Jane Doe\n- Python, pandas (in markdown format)",
		"Semantic score: 0.73 out of 40",
		"Job description: Looking for an ML engineer with PyTorch.",
		"Do not invent skills.",
	} {
		if !strings.Contains(stub.last.Prompt, fragment) {
			t.Fatalf("prompt is missing %q:\n%s", fragment, stub.last.Prompt)
		}
	}
}

func TestGenerateHonoursOptions(t *testing.T) {
	t.Parallel()

	temp := 0.0
	stub := &stubCompleter{response: "ok"}
	NewGenerator(stub, nil, Options{MaxTokens: 300, Temperature: &temp}).Generate(context.Background(), testContext())

	if stub.last.MaxTokens != 300 || stub.last.Temperature != 0 {
		t.Fatalf("options not applied: %+v", stub.last)
	}
}

func TestGenerateFallsBackOnEveryFailure(t *testing.T) {
	t.Parallel()

	var syntaxErr *json.SyntaxError
	badJSON := json.Unmarshal([]byte("{not json"), &map[string]any{})
	if !errors.As(badJSON, &syntaxErr) {
		t.Fatalf("expected json syntax error, got %v", badJSON)
	}

	cases := []struct {
		name      string
		completer ai.Completer
		timeout   time.Duration
	}{
		{name: "transport error", completer: &stubCompleter{err: errors.New("dial tcp: connection refused")}},
		{name: "bad json", completer: &stubCompleter{err: badJSON}},
		{name: "service error", completer: &stubCompleter{err: errors.New("ValidationException: model not enabled")}},
		{name: "empty response", completer: &stubCompleter{response: ""}},
		{name: "blank lines only", completer: &stubCompleter{response: "\n \n\t\n"}},
		{name: "timeout", completer: &stubCompleter{block: true}, timeout: 10 * time.Millisecond},
		{name: "no completer", completer: nil},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			ctx := context.Background()
			if tc.timeout > 0 {
				var cancel context.CancelFunc
				ctx, cancel = context.WithTimeout(ctx, tc.timeout)
				defer cancel()
			}

			core, logs := observer.New(zapcore.WarnLevel)
			got := NewGenerator(tc.completer, zap.New(core), Options{}).Generate(ctx, testContext())

			if !reflect.DeepEqual(got.Suggestions, Fallback()) {
				t.Fatalf("expected fallback suggestions, got %q", got.Suggestions)
			}
			if len(got.Suggestions) != 3 {
				t.Fatalf("expected 3 fallback suggestions, got %d", len(got.Suggestions))
			}
			if !got.Fallback || got.Err == nil {
				t.Fatalf("expected fallback flag and error, got %+v", got)
			}
			if logs.FilterMessage("suggestion generation failed, using fallback suggestions").Len() != 1 {
				t.Fatalf("expected fallback to be logged")
			}
		})
	}
}

func TestGenerateLogsProviderFields(t *testing.T) {
	t.Parallel()

	core, logs := observer.New(zapcore.InfoLevel)
	NewGenerator(&stubCompleter{response: "ok"}, zap.New(core), Options{}).Generate(context.Background(), testContext())

	entries := logs.FilterMessage("requesting suggestions").All()
	if len(entries) != 1 {
		t.Fatalf("expected request to be logged once, got %d", len(entries))
	}
	if entries[0].ContextMap()["ai_provider"] != "stub" {
		t.Fatalf("expected provider field, got %v", entries[0].ContextMap())
	}
}

func TestFallbackReturnsFreshSlice(t *testing.T) {
	t.Parallel()

	first := Fallback()
	first[0] = "mutated"
	if Fallback()[0] == "mutated" {
		t.Fatalf("fallback list must not be shared")
	}
}

func TestBuildPromptDoesNotExpandPlaceholdersInInput(t *testing.T) {
	t.Parallel()

	mc := analysis.BuildContext(nil, 0.5, "{{RESUME}}", "jd", "resume body")
	prompt := BuildPrompt(mc)
	if !strings.Contains(prompt, "Role: {{RESUME}}") {
		t.Fatalf("placeholder text from input must be left as is:\n%s", prompt)
	}
}
