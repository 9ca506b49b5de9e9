package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
)

type fakeChat struct {
	reply      string
	err        error
	lastParams openai.ChatCompletionNewParams
}

func (f *fakeChat) New(_ context.Context, params openai.ChatCompletionNewParams, _ ...option.RequestOption) (*openai.ChatCompletion, error) {
	f.lastParams = params
	if f.err != nil {
		return nil, f.err
	}
	return &openai.ChatCompletion{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: f.reply}},
		},
	}, nil
}

func newSuggestionFixture(t *testing.T, chat ChatCompleter) (*SuggestionService, *ticketFixture) {
	t.Helper()
	tickets := newTicketFixture(t)
	svc := &SuggestionService{
		chat:        chat,
		tickets:     tickets.service,
		model:       "test-model",
		maxComments: 2,
		logger:      zap.NewNop(),
	}
	return svc, tickets
}

func TestSuggestReply_Success(t *testing.T) {
	chat := &fakeChat{reply: "  Thanks for reaching out, try resetting your password.  "}
	svc, f := newSuggestionFixture(t, chat)

	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	ticket, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title:       "cannot log in",
		Description: "password rejected since yesterday",
		Category:    domain.CategoryTechnical,
	})
	require.NoError(t, err)
	for _, body := range []string{"first", "second", "third"} {
		_, err = f.service.AddComment(context.Background(), creator, ticket.ID, body)
		require.NoError(t, err)
	}

	reply, err := svc.SuggestReply(context.Background(), creator, ticket.ID)
	require.NoError(t, err)
	assert.Equal(t, "Thanks for reaching out, try resetting your password.", reply)

	// prompt carries the ticket context and only the newest comments
	require.Len(t, chat.lastParams.Messages, 2)
	prompt := chat.lastParams.Messages[1].OfUser.Content.OfString.Value
	assert.Contains(t, prompt, "cannot log in")
	assert.Contains(t, prompt, "third")
	assert.Contains(t, prompt, "second")
	assert.False(t, strings.Contains(prompt, "first"))
}

func TestSuggestReply_AccessDenied(t *testing.T) {
	svc, f := newSuggestionFixture(t, &fakeChat{reply: "x"})

	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	stranger := f.seedUser(t, "stranger@example.com", domain.RoleUser)
	ticket, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "private matter", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	_, err = svc.SuggestReply(context.Background(), stranger, ticket.ID)
	assertCode(t, err, "PERMISSION_DENIED")
}

func TestSuggestReply_UpstreamFailureIsUnavailable(t *testing.T) {
	svc, f := newSuggestionFixture(t, &fakeChat{err: errors.New("rate limited")})

	creator := f.seedUser(t, "user@example.com", domain.RoleUser)
	ticket, err := f.service.Create(context.Background(), creator, TicketCreateInput{
		Title: "anything", Category: domain.CategoryGeneral,
	})
	require.NoError(t, err)

	_, err = svc.SuggestReply(context.Background(), creator, ticket.ID)
	assertCode(t, err, "UNAVAILABLE")
}

func TestNewSuggestionService_DisabledWithoutKey(t *testing.T) {
	assert.Nil(t, NewSuggestionService(config.AIConfig{}, nil, zap.NewNop()))
}
