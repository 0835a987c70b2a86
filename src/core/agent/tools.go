package agent

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"docqa/src/infrastructure/log"
)

var (
	ErrUnknownTool          = errors.New("unknown tool")
	ErrInvalidToolArguments = errors.New("invalid tool arguments")
)

// Handler executes a validated tool call and returns its JSON payload.
type Handler func(ctx context.Context, args json.RawMessage) (json.RawMessage, error)

// Tool is one entry of the fixed capability catalog. Parameters is the JSON
// schema object advertised to the model.
type Tool struct {
	Name        string
	Description string
	Parameters  json.RawMessage
	Handler     Handler
}

// Registry is a closed dispatch table keyed by exact tool name. An unknown
// name is a data error reported back to the model, never a process fault.
type Registry struct {
	tools map[string]Tool
	order []string
}

func NewRegistry(tools ...Tool) *Registry {
	r := &Registry{tools: make(map[string]Tool, len(tools))}
	for _, t := range tools {
		if _, ok := r.tools[t.Name]; !ok {
			r.order = append(r.order, t.Name)
		}
		r.tools[t.Name] = t
	}
	return r
}

// Specs returns the catalog in registration order, for the model prompt.
func (r *Registry) Specs() []Tool {
	specs := make([]Tool, 0, len(r.order))
	for _, name := range r.order {
		specs = append(specs, r.tools[name])
	}
	return specs
}

// Dispatch runs the named tool synchronously. All failures, including an
// unknown name or rejected arguments, come back as a failed ToolResult so
// the reasoning loop can recover.
func (r *Registry) Dispatch(ctx context.Context, call ToolCall) ToolResult {
	if call.ID == "" {
		call.ID = uuid.New().String()
	}

	tool, ok := r.tools[call.Name]
	if !ok {
		return ToolResult{
			CallID: call.ID,
			Error:  fmt.Sprintf("%v: %q", ErrUnknownTool, call.Name),
		}
	}

	payload, err := tool.Handler(ctx, call.Arguments)
	if err != nil {
		log.Debug("tool call failed", "tool", call.Name, "error", err.Error())
		return ToolResult{CallID: call.ID, Error: err.Error()}
	}
	return ToolResult{CallID: call.ID, OK: true, Payload: payload}
}

// decodeArgs strictly decodes a tool argument payload into v. Unknown or
// malformed fields are an argument error, not a fault.
func decodeArgs(raw json.RawMessage, v interface{}) error {
	if len(raw) == 0 {
		raw = json.RawMessage("{}")
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidToolArguments, err)
	}
	return nil
}
