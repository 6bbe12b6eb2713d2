// Package engine owns the conversational session engine: live model
// handles bound to a system instruction and a running history.
package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/cloudwego/eino/components/model"
	"github.com/cloudwego/eino/components/prompt"
	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/config"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
)

// historyLimit caps the live turns sent with each request. The resume
// transcript rides in the system instruction and is not counted here.
const historyLimit = 10

// Conversation is one live session handle. Reply must not be called
// concurrently; the handle serializes callers itself.
type Conversation interface {
	Reply(ctx context.Context, message string) (string, error)
}

// Service builds and runs the chat chain for all live handles.
type Service struct {
	chatModel model.ChatModel
	chain     compose.Runnable[map[string]any, *schema.Message]
	logger    zerolog.Logger
}

// NewService compiles the prompt->model chain once; handles share it.
func NewService(ctx context.Context, cfg config.AIConfig, logger zerolog.Logger) (*Service, error) {
	chatModel, err := cfg.NewChatModel(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to create chat model: %w", err)
	}

	promptTemplate := prompt.FromMessages(
		schema.FString,
		schema.SystemMessage("{system}"),
		schema.MessagesPlaceholder("history", true),
		schema.UserMessage("{query}"),
	)

	chain := compose.NewChain[map[string]any, *schema.Message]()
	chain.AppendChatTemplate(promptTemplate)
	chain.AppendChatModel(chatModel)

	runnable, err := chain.Compile(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to compile chat chain: %w", err)
	}

	return &Service{
		chatModel: chatModel,
		chain:     runnable,
		logger:    logger.With().Str("component", "engine").Logger(),
	}, nil
}

// newServiceWithChain exists for tests that substitute the compiled
// chain with a fake runnable.
func newServiceWithChain(chain compose.Runnable[map[string]any, *schema.Message], logger zerolog.Logger) *Service {
	return &Service{chain: chain, logger: logger}
}

// Start builds a fresh handle seeded with the system instruction for
// the given profile. An empty profile yields the generic instruction.
func (s *Service) Start(_ context.Context, profile identity.Profile) (Conversation, error) {
	return s.newHandle(systemInstruction(profile)), nil
}

// Resume builds a handle whose instruction also carries the full prior
// transcript rendered as dialogue lines, so the model has the
// conversational context without a native continue-session primitive.
func (s *Service) Resume(_ context.Context, profile identity.Profile, history []chat.Message) (Conversation, error) {
	return s.newHandle(resumeInstruction(profile, history)), nil
}

func (s *Service) newHandle(system string) *Handle {
	return &Handle{svc: s, system: system}
}

// Handle holds the in-memory state needed to generate the next reply.
// Never persisted; rehydration rebuilds it from the transcript store.
type Handle struct {
	svc    *Service
	mu     sync.Mutex
	system string
	turns  []*schema.Message
}

// Reply sends one user turn and returns one agent turn. The mutex
// makes the handle single-writer; a second connection sharing the
// handle queues behind the first.
func (h *Handle) Reply(ctx context.Context, message string) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	input := map[string]any{
		"system":  h.system,
		"history": h.recentTurns(),
		"query":   message,
	}

	response, err := h.svc.chain.Invoke(ctx, input)
	if err != nil {
		return "", fmt.Errorf("failed to run chat chain: %w", err)
	}

	h.turns = append(h.turns,
		schema.UserMessage(message),
		schema.AssistantMessage(response.Content, nil),
	)

	h.svc.logger.Debug().Int("length", len(response.Content)).Msg("generated reply")
	return response.Content, nil
}

func (h *Handle) recentTurns() []*schema.Message {
	if len(h.turns) <= historyLimit {
		return h.turns
	}
	return h.turns[len(h.turns)-historyLimit:]
}
