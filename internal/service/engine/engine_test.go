package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/cloudwego/eino/compose"
	"github.com/cloudwego/eino/schema"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/chat"
	"github.com/ilam0602/glg-mobile-messages-ws/internal/model/identity"
)

// fakeChain satisfies compose.Runnable without a model behind it.
type fakeChain struct {
	invoke func(input map[string]any) (*schema.Message, error)
}

func (f *fakeChain) Invoke(_ context.Context, input map[string]any, _ ...compose.Option) (*schema.Message, error) {
	return f.invoke(input)
}

func (f *fakeChain) Stream(context.Context, map[string]any, ...compose.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) Collect(context.Context, *schema.StreamReader[map[string]any], ...compose.Option) (*schema.Message, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeChain) Transform(context.Context, *schema.StreamReader[map[string]any], ...compose.Option) (*schema.StreamReader[*schema.Message], error) {
	return nil, errors.New("not implemented")
}

func newEchoService(t *testing.T) *Service {
	t.Helper()
	chain := &fakeChain{invoke: func(input map[string]any) (*schema.Message, error) {
		query, _ := input["query"].(string)
		return schema.AssistantMessage("echo: "+query, nil), nil
	}}
	return newServiceWithChain(chain, zerolog.Nop())
}

func TestHandleReplyAccumulatesTurns(t *testing.T) {
	svc := newEchoService(t)
	ctx := context.Background()

	conv, err := svc.Start(ctx, identity.Profile{Name: "Jordan"})
	require.NoError(t, err)

	reply, err := conv.Reply(ctx, "hello")
	require.NoError(t, err)
	assert.Equal(t, "echo: hello", reply)

	handle := conv.(*Handle)
	require.Len(t, handle.turns, 2)
	assert.Equal(t, schema.User, handle.turns[0].Role)
	assert.Equal(t, schema.Assistant, handle.turns[1].Role)
}

func TestHandleReplyCapsHistory(t *testing.T) {
	ctx := context.Background()

	var sentHistory []*schema.Message
	chain := &fakeChain{invoke: func(input map[string]any) (*schema.Message, error) {
		sentHistory, _ = input["history"].([]*schema.Message)
		return schema.AssistantMessage("ok", nil), nil
	}}
	svc := newServiceWithChain(chain, zerolog.Nop())

	conv, err := svc.Start(ctx, identity.Profile{})
	require.NoError(t, err)

	for i := 0; i < historyLimit; i++ {
		_, err := conv.Reply(ctx, fmt.Sprintf("turn %d", i))
		require.NoError(t, err)
	}

	assert.LessOrEqual(t, len(sentHistory), historyLimit)
}

func TestHandleReplyPropagatesChainError(t *testing.T) {
	chain := &fakeChain{invoke: func(map[string]any) (*schema.Message, error) {
		return nil, errors.New("model unavailable")
	}}
	svc := newServiceWithChain(chain, zerolog.Nop())

	conv, err := svc.Start(context.Background(), identity.Profile{})
	require.NoError(t, err)

	_, err = conv.Reply(context.Background(), "hi")
	require.Error(t, err)

	handle := conv.(*Handle)
	assert.Empty(t, handle.turns, "failed turns must not pollute history")
}

func TestSystemInstructionPersonalization(t *testing.T) {
	generic := systemInstruction(identity.Profile{})
	assert.Contains(t, generic, "Paige")
	assert.Contains(t, generic, "debt resolution")
	assert.NotContains(t, generic, "program details:")

	personalized := systemInstruction(identity.Profile{Name: "Jordan", ProgramDetails: "36-month plan"})
	assert.Contains(t, personalized, "Jordan")
	assert.Contains(t, personalized, "36-month plan")
}

func TestResumeInstructionRendersTranscript(t *testing.T) {
	history := []chat.Message{
		{Sender: chat.SenderUser, Body: "hi", Timestamp: 100},
		{Sender: chat.SenderAgent, Body: "hello", Timestamp: 101},
	}

	instruction := resumeInstruction(identity.Profile{}, history)
	require.Contains(t, instruction, "Conversation History:")

	userIdx := strings.Index(instruction, "User: hi")
	botIdx := strings.Index(instruction, "Bot: hello")
	require.NotEqual(t, -1, userIdx)
	require.NotEqual(t, -1, botIdx)
	assert.Less(t, userIdx, botIdx, "transcript must replay in order")

	assert.Equal(t, systemInstruction(identity.Profile{}), resumeInstruction(identity.Profile{}, nil))
}
