// Package startup runs one-time initialization tasks when the service
// boots, currently the seeding of default prompt templates.
package startup

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/viper"

	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/models"
	"github.com/lexivault/vocab-web-app/api-service/internal/repository"
)

// PromptSeeder installs default prompt templates for any lookup action
// that has none stored yet. Admin-edited templates are never overwritten.
type PromptSeeder struct {
	config  *config.Config
	prompts repository.PromptRepository
	logger  *logrus.Logger
}

// NewPromptSeeder creates a prompt seeder.
func NewPromptSeeder(cfg *config.Config, prompts repository.PromptRepository, logger *logrus.Logger) *PromptSeeder {
	return &PromptSeeder{
		config:  cfg,
		prompts: prompts,
		logger:  logger,
	}
}

// Seed loads the default templates from the YAML config and stores each
// one whose action has no template yet.
func (s *PromptSeeder) Seed(ctx context.Context) error {
	if !s.config.Prompts.SeedEnabled {
		s.logger.Debug("Prompt template seeding disabled")
		return nil
	}

	defaults, err := s.loadDefaults()
	if err != nil {
		return fmt.Errorf("failed to load default prompt templates: %w", err)
	}

	seeded := 0
	for action, template := range defaults {
		if !models.ValidLookupAction(action) {
			s.logger.WithField("action", action).Warn("Skipping unknown action in prompt config")
			continue
		}

		if _, getErr := s.prompts.GetTemplate(ctx, action); getErr == nil {
			continue
		}

		tmpl := &models.PromptTemplate{Action: action, Template: template}
		if upsertErr := s.prompts.UpsertTemplate(ctx, tmpl); upsertErr != nil {
			return fmt.Errorf("failed to seed template for %s: %w", action, upsertErr)
		}
		seeded++
	}

	if seeded > 0 {
		s.logger.WithField("count", seeded).Info("Seeded default prompt templates")
	}
	return nil
}

// loadDefaults reads configs/<name>.yaml via viper. Built-in fallbacks
// cover a missing file so a fresh deployment still has working prompts.
func (s *PromptSeeder) loadDefaults() (map[models.LookupAction]string, error) {
	v := viper.New()
	v.SetConfigName(s.config.Prompts.ConfigName)
	v.SetConfigType("yaml")
	v.AddConfigPath("./configs")
	v.AddConfigPath(".")

	v.SetDefault("templates.define", "Give a concise dictionary-style definition of the word %s, "+
		"followed by its part of speech. Keep it under three sentences.")
	v.SetDefault("templates.example", "Write three short example sentences using the word %s in "+
		"different contexts.")
	v.SetDefault("templates.synonyms", "List up to eight synonyms for the word %s, ordered from "+
		"most to least common, with a one-line nuance note for each.")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
		s.logger.Debug("No prompt config file found, using built-in defaults")
	}

	return map[models.LookupAction]string{
		models.ActionDefine:   v.GetString("templates.define"),
		models.ActionExample:  v.GetString("templates.example"),
		models.ActionSynonyms: v.GetString("templates.synonyms"),
	}, nil
}
