package ai

import (
	"context"
	"fmt"
	"io"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/schema"

	"github.com/Chauhan0050r/GPT-clone/internal/config"
	"github.com/Chauhan0050r/GPT-clone/internal/model/chat"
)

// TokenStream yields assistant reply fragments. Recv returns io.EOF when the
// provider signals completion; every fragment is non-empty text. A stream is
// finite and not restartable.
type TokenStream interface {
	Recv() (string, error)
	Close()
}

// Gateway wraps the completion provider behind a conversation-in,
// fragment-stream-out contract.
type Gateway struct {
	chatModel model.ChatModel
}

// NewGateway constructs the provider chat model. Missing or invalid
// credentials fail here, at startup, not per request.
func NewGateway(ctx context.Context, cfg config.AIConfig) (*Gateway, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}
	return &Gateway{chatModel: chatModel}, nil
}

// Stream submits the full conversation and returns a fresh fragment stream.
func (g *Gateway) Stream(ctx context.Context, conversation []chat.Turn) (TokenStream, error) {
	reader, err := g.chatModel.Stream(ctx, toSchemaMessages(conversation))
	if err != nil {
		return nil, fmt.Errorf("failed to stream completion: %w", err)
	}
	return &modelStream{reader: reader}, nil
}

func toSchemaMessages(conversation []chat.Turn) []*schema.Message {
	messages := make([]*schema.Message, 0, len(conversation))
	for _, turn := range conversation {
		switch turn.Role {
		case chat.RoleUser:
			messages = append(messages, schema.UserMessage(turn.Content))
		case chat.RoleAssistant:
			messages = append(messages, schema.AssistantMessage(turn.Content, nil))
		}
	}
	return messages
}

// modelStream adapts the eino stream reader, dropping empty deltas so that
// every fragment carries text.
type modelStream struct {
	reader *schema.StreamReader[*schema.Message]
}

func (s *modelStream) Recv() (string, error) {
	for {
		chunk, err := s.reader.Recv()
		if err != nil {
			if err == io.EOF {
				return "", io.EOF
			}
			return "", err
		}
		if chunk == nil || chunk.Content == "" {
			continue
		}
		return chunk.Content, nil
	}
}

func (s *modelStream) Close() {
	s.reader.Close()
}
