package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/access"
	"github.com/spec-kit/helpdesk/internal/config"
	"github.com/spec-kit/helpdesk/internal/domain"
	apperrors "github.com/spec-kit/helpdesk/pkg/util"
)

const suggesterSystemPrompt = "You are a support agent drafting a reply to a customer ticket. " +
	"Write a short, professional response the agent could send as-is. " +
	"Address the customer's problem directly; do not invent details."

// ChatCompleter is the slice of the OpenAI client the suggester needs.
type ChatCompleter interface {
	New(ctx context.Context, params openai.ChatCompletionNewParams, opts ...option.RequestOption) (*openai.ChatCompletion, error)
}

// SuggestionService drafts reply suggestions for tickets using the chat
// completions API. It is optional: without an API key the service is nil
// and the route reports UNAVAILABLE.
type SuggestionService struct {
	chat        ChatCompleter
	tickets     *TicketService
	model       string
	maxComments int
	logger      *zap.Logger
}

// NewSuggestionService wires the suggester, or returns nil when no API key
// is configured.
func NewSuggestionService(cfg config.AIConfig, tickets *TicketService, logger *zap.Logger) *SuggestionService {
	if cfg.APIKey == "" {
		return nil
	}
	client := openai.NewClient(option.WithAPIKey(cfg.APIKey))
	return &SuggestionService{
		chat:        &client.Chat.Completions,
		tickets:     tickets,
		model:       cfg.Model,
		maxComments: cfg.MaxComments,
		logger:      logger,
	}
}

// SuggestReply produces a draft reply for the ticket. Access follows the
// same gate as reads. Upstream failures surface as UNAVAILABLE so callers
// can distinguish a degraded suggester from a broken service.
func (s *SuggestionService) SuggestReply(ctx context.Context, identity *domain.User, ticketID string) (string, error) {
	ticket, err := s.tickets.loadResolved(ctx, ticketID)
	if err != nil {
		return "", err
	}
	if !access.Evaluate(identity, ticket).CanModify {
		return "", apperrors.NewPermissionDenied("access denied")
	}

	completion, err := s.chat.New(ctx, openai.ChatCompletionNewParams{
		Model: s.model,
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(suggesterSystemPrompt),
			openai.UserMessage(s.buildPrompt(ticket)),
		},
	})
	if err != nil {
		s.logger.Warn("reply suggestion failed",
			zap.String("ticket_id", ticketID), zap.Error(err))
		return "", apperrors.NewUnavailable("reply suggestion is temporarily unavailable")
	}
	if len(completion.Choices) == 0 {
		return "", apperrors.NewUnavailable("reply suggestion is temporarily unavailable")
	}
	reply := strings.TrimSpace(completion.Choices[0].Message.Content)
	if reply == "" {
		return "", apperrors.NewUnavailable("reply suggestion is temporarily unavailable")
	}
	return reply, nil
}

func (s *SuggestionService) buildPrompt(ticket *domain.Ticket) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Ticket: %s\n", ticket.Title)
	fmt.Fprintf(&b, "Category: %s | Priority: %s | Status: %s\n", ticket.Category, ticket.Priority, ticket.Status)
	if ticket.Description != "" {
		fmt.Fprintf(&b, "Description: %s\n", ticket.Description)
	}

	comments := ticket.Comments
	if s.maxComments > 0 && len(comments) > s.maxComments {
		comments = comments[len(comments)-s.maxComments:]
	}
	if len(comments) > 0 {
		b.WriteString("\nRecent conversation:\n")
		for _, c := range comments {
			author := c.AuthorID
			if c.Author != nil {
				author = c.Author.FirstName + " " + c.Author.LastName
			}
			fmt.Fprintf(&b, "- %s: %s\n", author, c.Body)
		}
	}
	b.WriteString("\nDraft a reply to the customer.")
	return b.String()
}
