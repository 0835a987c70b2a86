package ollama

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"docqa/src/core/agent"
	"docqa/src/core/index"
)

// Provider adapts the Ollama client to the encoder and chat-provider ports
// of the core packages.
type Provider struct {
	client         *Client
	chatModel      string
	embeddingModel string
	dimension      int
}

func NewProvider(client *Client, chatModel, embeddingModel string, dimension int) *Provider {
	return &Provider{
		client:         client,
		chatModel:      chatModel,
		embeddingModel: embeddingModel,
		dimension:      dimension,
	}
}

// Encode embeds each text in order. Every vector is validated against the
// configured dimension before it reaches the index.
func (p *Provider) Encode(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	for i, text := range texts {
		v, err := p.client.GetEmbedding(ctx, p.embeddingModel, text)
		if err != nil {
			return nil, fmt.Errorf("failed to embed text %d: %w", i, err)
		}
		if len(v) != p.dimension {
			return nil, fmt.Errorf("%w: model %s returned dimension %d, expected %d",
				index.ErrDimensionMismatch, p.embeddingModel, len(v), p.dimension)
		}
		vectors[i] = v
	}
	return vectors, nil
}

func (p *Provider) Dimension() int {
	return p.dimension
}

// Chat sends the session transcript and tool catalog to the model and maps
// its reply onto the coordinator's answer-or-tool-call shape.
func (p *Provider) Chat(ctx context.Context, turns []agent.Turn, tools []agent.Tool) (*agent.ChatResponse, error) {
	messages := make([]Message, 0, len(turns))
	for _, t := range turns {
		messages = append(messages, toMessage(t))
	}

	defs := make([]ToolDefinition, len(tools))
	for i, t := range tools {
		defs[i] = ToolDefinition{
			Type: "function",
			Function: FunctionDefinition{
				Name:        t.Name,
				Description: t.Description,
				Parameters:  t.Parameters,
			},
		}
	}

	msg, err := p.client.Chat(ctx, p.chatModel, messages, defs)
	if err != nil {
		return nil, err
	}

	if len(msg.ToolCalls) > 0 {
		call := msg.ToolCalls[0]
		return &agent.ChatResponse{
			Kind: agent.KindToolCall,
			Call: &agent.ToolCall{
				ID:        uuid.New().String(),
				Name:      call.Function.Name,
				Arguments: call.Function.Arguments,
			},
		}, nil
	}
	return &agent.ChatResponse{Kind: agent.KindAnswer, Text: msg.Content}, nil
}

func toMessage(t agent.Turn) Message {
	switch {
	case t.Call != nil:
		return Message{
			Role: string(t.Role),
			ToolCalls: []ToolCall{{
				Function: FunctionCall{Name: t.Call.Name, Arguments: t.Call.Arguments},
			}},
		}
	case t.Result != nil:
		content := string(t.Result.Payload)
		if !t.Result.OK {
			content = fmt.Sprintf(`{"error": %q}`, t.Result.Error)
		}
		return Message{Role: string(agent.RoleTool), Content: content}
	default:
		return Message{Role: string(t.Role), Content: t.Content}
	}
}
