package llm

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	anthropic "github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/option"
	"github.com/sashabaranov/go-openai"
)

type mockMessager struct {
	response *anthropic.Message
	err      error
	params   anthropic.MessageNewParams
}

func (m *mockMessager) New(_ context.Context, params anthropic.MessageNewParams, _ ...option.RequestOption) (*anthropic.Message, error) {
	m.params = params
	return m.response, m.err
}

func withMockClient(mock *mockMessager) func() {
	old := newAnthropicClient
	newAnthropicClient = func(_, _ string) AnthropicMessager { return mock }
	return func() { newAnthropicClient = old }
}

type assertErr string

func (e assertErr) Error() string { return string(e) }

func TestClassify(t *testing.T) {
	for _, tc := range []struct {
		err  error
		want FailureClass
	}{
		{err: nil, want: FailureNone},
		{err: context.DeadlineExceeded, want: FailureTimeout},
		{err: context.Canceled, want: FailureClient},
		{err: fmt.Errorf("openai API error: %w", context.Canceled), want: FailureClient},
		{err: assertErr("status code: 429 too many requests"), want: FailureRateLimit},
		{err: assertErr("status code: 400 bad request"), want: FailureClient},
		{err: assertErr("status=503 upstream error"), want: FailureServer},
		{err: assertErr("failed after 5 retries while waiting 4 seconds"), want: FailureServer},
	} {
		if got := Classify(tc.err); got != tc.want {
			t.Fatalf("Classify(%v) = %v, want %v", tc.err, got, tc.want)
		}
	}
}

func TestBackoffDelay(t *testing.T) {
	if backoffDelay(1) != time.Second {
		t.Fatal("attempt 1 should be 1s")
	}
	if backoffDelay(2) != 2*time.Second {
		t.Fatal("attempt 2 should be 2s")
	}
}

func TestRetryingRetriesTransientOnly(t *testing.T) {
	calls := 0
	flaky := CompleterFunc(func(context.Context, Request) (string, error) {
		calls++
		if calls < 3 {
			return "", assertErr("status code: 503 overloaded")
		}
		return "ok", nil
	})
	r := &Retrying{next: flaky, attempts: 3, sleep: func(context.Context, time.Duration) error { return nil }}
	out, err := r.Complete(context.Background(), Request{Prompt: "hi"})
	if err != nil || out != "ok" {
		t.Fatalf("got %q, %v", out, err)
	}
	if calls != 3 {
		t.Fatalf("expected 3 calls, got %d", calls)
	}

	calls = 0
	bad := CompleterFunc(func(context.Context, Request) (string, error) {
		calls++
		return "", assertErr("status code: 401 unauthorized")
	})
	r = &Retrying{next: bad, attempts: 3, sleep: func(context.Context, time.Duration) error { return nil }}
	if _, err := r.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error")
	}
	if calls != 1 {
		t.Fatalf("client errors must not be retried, got %d calls", calls)
	}
}

func TestRetryingStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	cancelled := CompleterFunc(func(ctx context.Context, _ Request) (string, error) {
		calls++
		cancel()
		return "", fmt.Errorf("anthropic API error: %w", ctx.Err())
	})
	r := &Retrying{next: cancelled, attempts: 3, sleep: func(context.Context, time.Duration) error { return nil }}
	if _, err := r.Complete(ctx, Request{}); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected context.Canceled, got %v", err)
	}
	if calls != 1 {
		t.Fatalf("cancelled calls must not be retried, got %d calls", calls)
	}
}

func TestWithTimeoutBoundsCall(t *testing.T) {
	slow := CompleterFunc(func(ctx context.Context, _ Request) (string, error) {
		<-ctx.Done()
		return "", ctx.Err()
	})
	c := WithTimeout(slow, 10*time.Millisecond)
	_, err := c.Complete(context.Background(), Request{})
	if !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", err)
	}
	if WithTimeout(slow, 0) == nil {
		t.Fatal("zero timeout should return the inner completer")
	}
}

func TestAnthropicCompleterJoinsTextBlocks(t *testing.T) {
	mock := &mockMessager{response: &anthropic.Message{Content: []anthropic.ContentBlockUnion{
		{Type: "text", Text: `{"gender":`},
		{Type: "text", Text: `"male"}`},
	}}}
	defer withMockClient(mock)()

	c, err := NewAnthropicCompleter("test-key", "", "")
	if err != nil {
		t.Fatalf("NewAnthropicCompleter: %v", err)
	}
	if c.ModelName() != DefaultAnthropicModel {
		t.Fatalf("unexpected model %q", c.ModelName())
	}
	out, err := c.Complete(context.Background(), Request{
		System: "extract",
		Prompt: "I am male",
		History: []Message{
			{Role: RoleAssistant, Content: "Welcome!"},
			{Role: RoleUser, Content: "hi"},
			{Role: RoleAssistant, Content: "What's your gender?"},
		},
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != `{"gender":"male"}` {
		t.Fatalf("unexpected output %q", out)
	}
	// Leading assistant turn dropped; prompt appended as final user turn.
	if len(mock.params.Messages) != 3 {
		t.Fatalf("expected 3 messages, got %d", len(mock.params.Messages))
	}
	if string(mock.params.Messages[0].Role) != "user" || string(mock.params.Messages[2].Role) != "user" {
		t.Fatalf("expected user-first and user-last turns")
	}
}

func TestAnthropicCompleterRejectsBadRole(t *testing.T) {
	defer withMockClient(&mockMessager{})()
	c, _ := NewAnthropicCompleter("test-key", "m", "")
	_, err := c.Complete(context.Background(), Request{History: []Message{{Role: "system", Content: "x"}}})
	if err == nil {
		t.Fatal("expected invalid role error")
	}
}

func TestAnthropicMessagesMergesConsecutiveRoles(t *testing.T) {
	out := anthropicMessages([]Message{
		{Role: RoleUser, Content: "a"},
		{Role: RoleUser, Content: "b"},
	}, "c")
	if len(out) != 1 {
		t.Fatalf("expected merged single turn, got %d", len(out))
	}
}

func TestNewAnthropicCompleterRequiresKey(t *testing.T) {
	if _, err := NewAnthropicCompleter(" ", "", ""); err == nil {
		t.Fatal("expected missing key error")
	}
}

type mockOpenAI struct {
	req  openai.ChatCompletionRequest
	resp openai.ChatCompletionResponse
	err  error
}

func (m *mockOpenAI) CreateChatCompletion(_ context.Context, req openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	m.req = req
	return m.resp, m.err
}

func TestOpenAICompleter(t *testing.T) {
	mock := &mockOpenAI{resp: openai.ChatCompletionResponse{Choices: []openai.ChatCompletionChoice{
		{Message: openai.ChatCompletionMessage{Content: "What's your gender?"}},
	}}}
	c := &OpenAICompleter{client: mock, model: "gpt-test"}
	out, err := c.Complete(context.Background(), Request{
		System:      "coach",
		Prompt:      "ask",
		History:     []Message{{Role: RoleAssistant, Content: "hello"}},
		Temperature: 0.3,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "What's your gender?" {
		t.Fatalf("unexpected output %q", out)
	}
	if len(mock.req.Messages) != 3 {
		t.Fatalf("expected system+history+prompt, got %d", len(mock.req.Messages))
	}
	if mock.req.Messages[0].Role != openai.ChatMessageRoleSystem || mock.req.Messages[1].Role != openai.ChatMessageRoleAssistant {
		t.Fatalf("unexpected roles: %+v", mock.req.Messages)
	}

	mock.resp = openai.ChatCompletionResponse{}
	if _, err := c.Complete(context.Background(), Request{}); err == nil {
		t.Fatal("expected error for empty choices")
	}
}

func TestOpenAICompleterSendsZeroTemperature(t *testing.T) {
	var payload map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := json.NewDecoder(r.Body).Decode(&payload); err != nil {
			t.Errorf("decode request: %v", err)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"choices":[{"index":0,"message":{"role":"assistant","content":"ok"}}]}`))
	}))
	defer srv.Close()

	c, err := NewOpenAICompleter("test-key", "gpt-test", srv.URL)
	if err != nil {
		t.Fatalf("NewOpenAICompleter: %v", err)
	}
	out, err := c.Complete(context.Background(), Request{System: "extract", Prompt: "170cm", Temperature: 0})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if out != "ok" {
		t.Fatalf("unexpected output %q", out)
	}
	temp, ok := payload["temperature"].(float64)
	if !ok {
		t.Fatalf("temperature missing from request: %v", payload)
	}
	if temp < 0 || temp > 1e-6 {
		t.Fatalf("temperature = %v, want effectively zero", temp)
	}
}

func TestNewUnknownProvider(t *testing.T) {
	if _, err := New(Options{Provider: "mystery"}); err == nil {
		t.Fatal("expected unknown provider error")
	}
}

func TestNewOpenAIRequiresKey(t *testing.T) {
	t.Setenv("OPENAI_API_KEY", "")
	if _, err := New(Options{Provider: ProviderOpenAI}); err == nil {
		t.Fatal("expected missing key error")
	}
}

func TestTracedPassesThrough(t *testing.T) {
	c := WithTracing(CompleterFunc(func(context.Context, Request) (string, error) { return "x", nil }), "test")
	out, err := c.Complete(context.Background(), Request{})
	if err != nil || out != "x" {
		t.Fatalf("got %q, %v", out, err)
	}
}
