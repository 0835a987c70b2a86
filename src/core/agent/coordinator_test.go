package agent_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"os"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"docqa/src/core/agent"
	"docqa/src/core/chunker"
	"docqa/src/core/docstore"
	"docqa/src/core/index"
	"docqa/src/core/ingest"
	"docqa/src/core/retrieval"
	"docqa/src/infrastructure/integrations/unstructured"
)

// scriptedProvider replays a fixed sequence of model replies; the last step
// repeats once the script runs out.
type scriptedProvider struct {
	steps []func(turns []agent.Turn, tools []agent.Tool) (*agent.ChatResponse, error)
	calls int
}

func (p *scriptedProvider) Chat(ctx context.Context, turns []agent.Turn, tools []agent.Tool) (*agent.ChatResponse, error) {
	i := p.calls
	if i >= len(p.steps) {
		i = len(p.steps) - 1
	}
	p.calls++
	return p.steps[i](turns, tools)
}

func answerStep(text string) func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error) {
	return func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error) {
		return &agent.ChatResponse{Kind: agent.KindAnswer, Text: text}, nil
	}
}

func toolStep(name, args string) func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error) {
	return func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error) {
		return &agent.ChatResponse{
			Kind: agent.KindToolCall,
			Call: &agent.ToolCall{Name: name, Arguments: json.RawMessage(args)},
		}, nil
	}
}

// memFileStore serves file payloads from memory.
type memFileStore struct {
	files map[string][]byte
}

func (m *memFileStore) ReadFile(path string) ([]byte, error) {
	data, ok := m.files[path]
	if !ok {
		return nil, os.ErrNotExist
	}
	return data, nil
}

func (m *memFileStore) ReadFileAsStream(path string) (io.ReadCloser, error) {
	return nil, os.ErrNotExist
}

func (m *memFileStore) ListFiles(path string) ([]string, error) {
	return nil, os.ErrNotExist
}

func (m *memFileStore) GetFileStats(path string) (int, int64, error) {
	return 0, 0, os.ErrNotExist
}

type keywordEncoder struct {
	keywords []string
}

func (e *keywordEncoder) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v := make([]float32, len(e.keywords)+1)
		lower := strings.ToLower(text)
		for j, kw := range e.keywords {
			if strings.Contains(lower, kw) {
				v[j] = 1
			}
		}
		v[len(e.keywords)] = 0.1
		vectors[i] = v
	}
	return vectors, nil
}

func (e *keywordEncoder) Dimension() int {
	return len(e.keywords) + 1
}

// newQARegistry wires the standard tool catalog over in-memory backends
// seeded with the given files.
func newQARegistry(t *testing.T, files map[string][]byte) *agent.Registry {
	t.Helper()

	store := docstore.NewMemoryStore()
	ids, err := docstore.NewIDGenerator(1)
	if err != nil {
		t.Fatalf("NewIDGenerator() error = %v", err)
	}
	splitter, err := chunker.NewBoundary(40, 10)
	if err != nil {
		t.Fatalf("NewBoundary() error = %v", err)
	}
	ingestSvc := ingest.NewService(
		&memFileStore{files: files},
		unstructured.NewExtractor(nil),
		splitter,
		store, store, ids,
	)

	encoder := &keywordEncoder{keywords: []string{"capital", "population"}}
	vectors, err := index.NewMemory(encoder.Dimension())
	if err != nil {
		t.Fatalf("NewMemory() error = %v", err)
	}
	retrievalSvc := retrieval.NewService(encoder, vectors, store, store)

	return agent.NewRegistry(agent.StandardTools(ingestSvc, retrievalSvc, 3)...)
}

func TestAnswerEndToEnd(t *testing.T) {
	registry := newQARegistry(t, map[string][]byte{
		"paris.txt": []byte("Paris is the capital of France. It has a population of about 2.1 million."),
	})

	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		toolStep(agent.ToolProcessFiles, `{"file_refs": ["paris.txt"]}`),
		toolStep(agent.ToolBuildIndex, `{}`),
		toolStep(agent.ToolRetrieveContext, `{"query": "What is the capital of France?", "k": 1}`),
		answerStep("Paris is the capital of France."),
	}}

	c := agent.NewCoordinator(provider, registry, agent.Config{MaxToolCalls: 5})
	answer, err := c.Answer(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if !strings.Contains(answer.Text, "Paris") {
		t.Errorf("answer text = %q, want mention of Paris", answer.Text)
	}
	if answer.Degraded {
		t.Error("answer marked degraded on a successful run")
	}
	if len(answer.Sources) == 0 {
		t.Fatal("answer has no sources despite retrieval")
	}
	if answer.Sources[0].SourceDocument != "paris.txt" {
		t.Errorf("source document = %q, want paris.txt", answer.Sources[0].SourceDocument)
	}
	if !strings.Contains(answer.Sources[0].Text, "capital") {
		t.Errorf("cited chunk = %q, want the capital sentence", answer.Sources[0].Text)
	}
}

func TestAnswerStopsAtToolBudget(t *testing.T) {
	var dispatched atomic.Int32
	registry := agent.NewRegistry(agent.Tool{
		Name: "noop",
		Handler: func(ctx context.Context, args json.RawMessage) (json.RawMessage, error) {
			dispatched.Add(1)
			return json.RawMessage(`{}`), nil
		},
	})

	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		toolStep("noop", `{}`),
	}}

	c := agent.NewCoordinator(provider, registry, agent.Config{MaxToolCalls: 2})
	answer, err := c.Answer(context.Background(), "keep calling tools")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if got := dispatched.Load(); got != 2 {
		t.Errorf("dispatched %d tool calls, want exactly 2", got)
	}
	if !answer.Degraded {
		t.Error("answer not marked degraded after budget exhaustion")
	}
	if answer.Text == "" {
		t.Error("degraded answer has empty text")
	}
}

func TestAnswerDegradedCarriesSources(t *testing.T) {
	registry := newQARegistry(t, map[string][]byte{
		"paris.txt": []byte("Paris is the capital of France. It has a population of about 2.1 million."),
	})

	// The model retrieves useful context but never produces an answer; the
	// degraded reply must still surface what was found.
	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		toolStep(agent.ToolProcessFiles, `{"file_refs": ["paris.txt"]}`),
		toolStep(agent.ToolBuildIndex, `{}`),
		toolStep(agent.ToolRetrieveContext, `{"query": "capital", "k": 1}`),
	}}

	c := agent.NewCoordinator(provider, registry, agent.Config{MaxToolCalls: 3})
	answer, err := c.Answer(context.Background(), "What is the capital of France?")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}

	if !answer.Degraded {
		t.Fatal("answer not marked degraded")
	}
	if len(answer.Sources) == 0 {
		t.Fatal("degraded answer lost the retrieved sources")
	}
	if !strings.Contains(answer.Text, "capital") {
		t.Errorf("degraded answer = %q, want retrieved passage included", answer.Text)
	}
}

func TestAnswerRecoversFromFailedToolCall(t *testing.T) {
	registry := agent.NewRegistry()

	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		toolStep("no_such_tool", `{}`),
		answerStep("I cannot answer with the given information."),
	}}

	c := agent.NewCoordinator(provider, registry, agent.Config{MaxToolCalls: 5})
	answer, err := c.Answer(context.Background(), "anything")
	if err != nil {
		t.Fatalf("Answer() error = %v, want recovery via failed tool result", err)
	}
	if answer.Degraded {
		t.Error("answer marked degraded after recoverable tool failure")
	}
}

func TestAnswerRetriesTransportFailures(t *testing.T) {
	attempts := 0
	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error) {
			attempts++
			if attempts < 3 {
				return nil, errors.New("connection refused")
			}
			return &agent.ChatResponse{Kind: agent.KindAnswer, Text: "recovered"}, nil
		},
	}}

	c := agent.NewCoordinator(provider, agent.NewRegistry(), agent.Config{
		MaxRetries:     2,
		RetryBaseDelay: time.Millisecond,
	})
	answer, err := c.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v, want success after retries", err)
	}
	if answer.Text != "recovered" {
		t.Errorf("answer = %q, want recovered", answer.Text)
	}
	if attempts != 3 {
		t.Errorf("provider called %d times, want 3", attempts)
	}
}

func TestAnswerFailsAfterRetryExhaustion(t *testing.T) {
	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error) {
			return nil, errors.New("connection refused")
		},
	}}

	c := agent.NewCoordinator(provider, agent.NewRegistry(), agent.Config{
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	})
	_, err := c.Answer(context.Background(), "q")

	var failed *agent.SessionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Answer() error = %v, want SessionFailedError", err)
	}
	if !errors.Is(err, agent.ErrLLMFailure) {
		t.Errorf("Answer() error = %v, want wrapped ErrLLMFailure", err)
	}
	if provider.calls != 2 {
		t.Errorf("provider called %d times, want 2 (initial + 1 retry)", provider.calls)
	}
}

func TestAnswerRetriesMalformedResponses(t *testing.T) {
	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error) {
			// Neither an answer nor a tool call.
			return &agent.ChatResponse{Kind: agent.KindAnswer, Text: ""}, nil
		},
		answerStep("fine now"),
	}}

	c := agent.NewCoordinator(provider, agent.NewRegistry(), agent.Config{
		MaxRetries:     1,
		RetryBaseDelay: time.Millisecond,
	})
	answer, err := c.Answer(context.Background(), "q")
	if err != nil {
		t.Fatalf("Answer() error = %v", err)
	}
	if answer.Text != "fine now" {
		t.Errorf("answer = %q, want fine now", answer.Text)
	}
}

func TestAnswerCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	provider := &scriptedProvider{steps: []func([]agent.Turn, []agent.Tool) (*agent.ChatResponse, error){
		answerStep("never reached"),
	}}

	c := agent.NewCoordinator(provider, agent.NewRegistry(), agent.Config{})
	_, err := c.Answer(ctx, "q")

	var failed *agent.SessionFailedError
	if !errors.As(err, &failed) {
		t.Fatalf("Answer() error = %v, want SessionFailedError", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Answer() error = %v, want wrapped context.Canceled", err)
	}
}
