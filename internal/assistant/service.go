package assistant

import (
	"context"
	"fmt"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
)

// Completer is the upstream API surface the service needs. It is satisfied
// by *Client and stubbed in tests.
type Completer interface {
	Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error)
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

// Service composes prompts from admin-managed templates and per-user
// custom instructions, then calls the upstream assistant.
type Service struct {
	client  Completer
	prompts repository.PromptRepository
	logger  *logrus.Logger
}

// NewService creates the assistant service.
func NewService(client Completer, prompts repository.PromptRepository, logger *logrus.Logger) *Service {
	return &Service{
		client:  client,
		prompts: prompts,
		logger:  logger,
	}
}

// Lookup generates content for a word. The template for the action becomes
// the system prompt, with the user's custom instruction appended when set.
func (s *Service) Lookup(
	ctx context.Context,
	user *models.User,
	word string,
	action models.LookupAction,
) (string, error) {
	tmpl, err := s.prompts.GetTemplate(ctx, action)
	if err != nil {
		s.logger.WithError(err).WithField("action", action).Error("Failed to load prompt template")
		return "", fmt.Errorf("failed to load prompt template: %w", err)
	}

	systemPrompt := buildSystemPrompt(tmpl.Template, word, user.CustomInstruction)

	result, err := s.client.Complete(ctx, systemPrompt, word)
	if err != nil {
		return "", err
	}

	s.logger.WithFields(logrus.Fields{
		"user_id": user.UserID.String(),
		"action":  action,
	}).Debug("Assistant lookup completed")

	return strings.TrimSpace(result), nil
}

// Speak synthesizes audio for the given text.
func (s *Service) Speak(ctx context.Context, text string) ([]byte, error) {
	return s.client.Synthesize(ctx, text)
}

// buildSystemPrompt substitutes the word into the template and appends the
// custom instruction as a trailing directive.
func buildSystemPrompt(template, word, customInstruction string) string {
	prompt := template
	if strings.Contains(template, "%s") {
		prompt = fmt.Sprintf(template, word)
	}
	if instruction := strings.TrimSpace(customInstruction); instruction != "" {
		prompt += "\n\nAdditional instruction for this user: " + instruction
	}
	return prompt
}
