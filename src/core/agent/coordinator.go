package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"docqa/src/core/retrieval"
	"docqa/src/infrastructure/log"
)

var ErrLLMFailure = errors.New("llm request failed")

// ResponseKind tags what the model decided to do.
type ResponseKind string

const (
	KindAnswer   ResponseKind = "answer"
	KindToolCall ResponseKind = "tool_call"
)

// ChatResponse is the model's reply to one reasoning step: either a final
// natural-language answer or exactly one tool call.
type ChatResponse struct {
	Kind ResponseKind
	Text string
	Call *ToolCall
}

// ChatProvider is the stateless boundary to the text-generation API.
type ChatProvider interface {
	Chat(ctx context.Context, turns []Turn, tools []Tool) (*ChatResponse, error)
}

// Answer is the terminal output of one session. Sources lists the context
// chunks actually retrieved during the session, for citation display.
// Degraded marks a best-effort answer forced by the tool budget.
type Answer struct {
	Text     string                   `json:"text"`
	Sources  []retrieval.ContextChunk `json:"sources"`
	Degraded bool                     `json:"degraded"`
}

// SessionFailedError reports an unrecoverable session failure together with
// whatever context had been retrieved before it.
type SessionFailedError struct {
	Reason  error
	Sources []retrieval.ContextChunk
}

func (e *SessionFailedError) Error() string {
	return fmt.Sprintf("session failed: %v", e.Reason)
}

func (e *SessionFailedError) Unwrap() error {
	return e.Reason
}

// Config bounds the orchestration loop.
type Config struct {
	// MaxToolCalls is the tool dispatch budget per question.
	MaxToolCalls int
	// MaxRetries is the number of retries after a failed model request.
	MaxRetries int
	// RetryBaseDelay seeds the exponential backoff between retries.
	RetryBaseDelay time.Duration
	// RequestTimeout bounds each individual model request.
	RequestTimeout time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxToolCalls <= 0 {
		c.MaxToolCalls = 5
	}
	if c.MaxRetries < 0 {
		c.MaxRetries = 0
	}
	if c.RetryBaseDelay <= 0 {
		c.RetryBaseDelay = 200 * time.Millisecond
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 60 * time.Second
	}
	return c
}

const systemPrompt = "You are an expert Q&A assistant. Answer the user's question based only on context " +
	"retrieved from the indexed documents. Use the retrieve_context tool to fetch relevant " +
	"passages before answering; call at most one tool per step. If the retrieved context does " +
	"not contain the information, state that you cannot answer with the given information. " +
	"Do not use external knowledge. Be concise and directly address the question."

// Coordinator drives one bounded conversation per question, alternating
// between model reasoning and tool dispatch until the model produces a
// final answer or the tool budget runs out.
type Coordinator struct {
	provider ChatProvider
	registry *Registry
	cfg      Config
}

func NewCoordinator(provider ChatProvider, registry *Registry, cfg Config) *Coordinator {
	return &Coordinator{
		provider: provider,
		registry: registry,
		cfg:      cfg.withDefaults(),
	}
}

// Answer runs the orchestration loop for one user question. The session
// transcript is created here and discarded when the call returns; a
// cancelled context aborts between steps and never mid-dispatch.
func (c *Coordinator) Answer(ctx context.Context, question string) (*Answer, error) {
	session := NewSession()
	session.Append(Turn{Role: RoleSystem, Content: systemPrompt})
	session.Append(Turn{Role: RoleUser, Content: question})

	logger := log.WithValues("session", session.ID)
	logger.Info("question accepted", "question", question)

	var sources []retrieval.ContextChunk
	dispatches := 0
	for {
		if err := ctx.Err(); err != nil {
			return nil, &SessionFailedError{Reason: err, Sources: sources}
		}

		resp, err := c.chatWithRetry(ctx, session)
		if err != nil {
			return nil, &SessionFailedError{Reason: err, Sources: sources}
		}

		if resp.Kind == KindAnswer {
			logger.Info("final answer produced", "tool_calls", dispatches)
			return &Answer{Text: resp.Text, Sources: sources}, nil
		}

		if dispatches >= c.cfg.MaxToolCalls {
			logger.Info("tool budget exhausted, degrading", "budget", c.cfg.MaxToolCalls)
			return &Answer{Text: degradedAnswer(question, sources), Sources: sources, Degraded: true}, nil
		}
		dispatches++

		session.Append(Turn{Role: RoleAssistant, Call: resp.Call})
		result := c.registry.Dispatch(ctx, *resp.Call)
		if result.OK && resp.Call.Name == ToolRetrieveContext {
			sources = appendSources(sources, result.Payload)
		}
		session.Append(Turn{Role: RoleTool, Result: &result})
		logger.V(1).Info("tool dispatched", "tool", resp.Call.Name, "ok", result.OK)
	}
}

// chatWithRetry sends the transcript to the model, retrying transport
// failures and malformed replies with exponential backoff before giving up.
func (c *Coordinator) chatWithRetry(ctx context.Context, session *Session) (*ChatResponse, error) {
	tools := c.registry.Specs()

	var lastErr error
	for attempt := 0; attempt <= c.cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(retryDelay(c.cfg.RetryBaseDelay, attempt-1)):
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		reqCtx, cancel := context.WithTimeout(ctx, c.cfg.RequestTimeout)
		resp, err := c.provider.Chat(reqCtx, session.Turns(), tools)
		cancel()
		if err == nil {
			err = validateResponse(resp)
		}
		if err == nil {
			return resp, nil
		}
		lastErr = err
		log.Error(err, "model request failed", "attempt", attempt+1)
	}
	return nil, fmt.Errorf("%w after %d attempts: %v", ErrLLMFailure, c.cfg.MaxRetries+1, lastErr)
}

func validateResponse(resp *ChatResponse) error {
	switch {
	case resp == nil:
		return errors.New("empty response")
	case resp.Kind == KindAnswer && resp.Text != "":
		return nil
	case resp.Kind == KindToolCall && resp.Call != nil && resp.Call.Name != "":
		return nil
	default:
		return fmt.Errorf("malformed response: kind %q", resp.Kind)
	}
}

func retryDelay(base time.Duration, attempt int) time.Duration {
	d := base << attempt
	if d > 5*time.Second {
		d = 5 * time.Second
	}
	return d
}

func appendSources(sources []retrieval.ContextChunk, payload json.RawMessage) []retrieval.ContextChunk {
	var chunks []retrieval.ContextChunk
	if err := json.Unmarshal(payload, &chunks); err != nil {
		log.Error(err, "failed to decode retrieved context payload")
		return sources
	}
	seen := make(map[int64]bool, len(sources))
	for _, s := range sources {
		seen[s.ChunkID] = true
	}
	for _, c := range chunks {
		if !seen[c.ChunkID] {
			sources = append(sources, c)
		}
	}
	return sources
}

// degradedAnswer composes a best-effort reply from whatever context was
// retrieved before the budget ran out.
func degradedAnswer(question string, sources []retrieval.ContextChunk) string {
	if len(sources) == 0 {
		return "I could not retrieve relevant information from the indexed documents " +
			"within the allowed number of steps, so I cannot answer the question."
	}
	var b strings.Builder
	b.WriteString("The answer could not be fully composed within the allowed number of steps. ")
	b.WriteString("The most relevant passages found for the question are:\n")
	for i, s := range sources {
		if i >= 3 {
			break
		}
		fmt.Fprintf(&b, "\n[%s] %s\n", s.SourceDocument, strings.TrimSpace(s.Text))
	}
	return b.String()
}
