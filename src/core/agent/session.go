package agent

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Role identifies who produced a transcript turn.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleTool      Role = "tool"
)

// ToolCall is a request by the model to invoke a registered tool. ID
// correlates the call with its result turn.
type ToolCall struct {
	ID        string          `json:"id"`
	Name      string          `json:"name"`
	Arguments json.RawMessage `json:"arguments"`
}

// ToolResult reports the outcome of one tool dispatch.
type ToolResult struct {
	CallID  string          `json:"call_id"`
	OK      bool            `json:"ok"`
	Payload json.RawMessage `json:"payload,omitempty"`
	Error   string          `json:"error,omitempty"`
}

// Turn is one entry of the session transcript: plain content for
// system/user/assistant text, Call for an assistant tool request, Result
// for the corresponding tool turn.
type Turn struct {
	Role    Role        `json:"role"`
	Content string      `json:"content,omitempty"`
	Call    *ToolCall   `json:"tool_call,omitempty"`
	Result  *ToolResult `json:"tool_result,omitempty"`
}

// Session is the ordered transcript of one question-answering exchange. It
// lives in memory only and is discarded when the exchange ends.
type Session struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	turns     []Turn
}

func NewSession() *Session {
	return &Session{
		ID:        uuid.New().String(),
		CreatedAt: time.Now().UTC(),
	}
}

func (s *Session) Append(t Turn) {
	s.turns = append(s.turns, t)
}

// Turns returns a copy of the transcript in order.
func (s *Session) Turns() []Turn {
	out := make([]Turn, len(s.turns))
	copy(out, s.turns)
	return out
}

func (s *Session) Len() int {
	return len(s.turns)
}
