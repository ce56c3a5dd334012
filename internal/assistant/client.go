// Package assistant calls the upstream AI provider for word content
// generation and text-to-speech synthesis.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/sirupsen/logrus"

	"github.com/lexivault/vocab-web-app/api-service/internal/config"
	"github.com/lexivault/vocab-web-app/api-service/internal/constants"
)

const (
	chatCompletionsPath = "/chat/completions"
	speechPath          = "/audio/speech"
)

// Client is the HTTP client for the OpenAI-compatible assistant API.
// It handles request marshaling, authentication, and error parsing.
type Client struct {
	httpClient *http.Client
	config     *config.AssistantConfig
	logger     *logrus.Logger
}

// NewClient creates an assistant API client from configuration.
func NewClient(cfg *config.AssistantConfig, logger *logrus.Logger) *Client {
	return &Client{
		httpClient: &http.Client{Timeout: cfg.Timeout},
		config:     cfg,
		logger:     logger,
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

type speechRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
	Voice string `json:"voice"`
}

// Complete sends a chat completion request and returns the generated text.
// The system prompt carries the template-derived instruction; the user
// message carries the word itself.
func (c *Client) Complete(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	reqBody := chatRequest{
		Model: c.config.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
	}

	resp, err := c.post(ctx, chatCompletionsPath, reqBody)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", c.parseErrorResponse(resp)
	}

	var completion chatResponse
	if decodeErr := json.NewDecoder(resp.Body).Decode(&completion); decodeErr != nil {
		return "", fmt.Errorf("failed to decode completion response: %w", decodeErr)
	}
	if len(completion.Choices) == 0 {
		return "", errors.New("assistant returned no choices")
	}

	return completion.Choices[0].Message.Content, nil
}

// Synthesize sends a text-to-speech request and returns raw MP3 audio.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	reqBody := speechRequest{
		Model: c.config.SpeechModel,
		Input: text,
		Voice: c.config.Voice,
	}

	resp, err := c.post(ctx, speechPath, reqBody)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, c.parseErrorResponse(resp)
	}

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read audio response: %w", err)
	}
	return audio, nil
}

func (c *Client) post(ctx context.Context, path string, body interface{}) (*http.Response, error) {
	bodyBytes, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request body: %w", err)
	}

	url := c.config.BaseURL + path
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to create HTTP request: %w", err)
	}

	req.Header.Set(constants.HeaderContentType, constants.ContentTypeJSON)
	req.Header.Set(constants.HeaderAuthorization, constants.BearerPrefix+c.config.APIKey)

	c.logger.WithFields(logrus.Fields{
		"url":   url,
		"model": c.config.Model,
	}).Debug("Sending assistant API request")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.logger.WithFields(logrus.Fields{
			"url":   url,
			"error": err,
		}).Error("Assistant API request failed")
		return nil, fmt.Errorf("assistant request failed: %w", err)
	}

	return resp, nil
}

func (c *Client) parseErrorResponse(resp *http.Response) error {
	var errResp struct {
		Error struct {
			Message string `json:"message"`
			Type    string `json:"type"`
		} `json:"error"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&errResp); err != nil || errResp.Error.Message == "" {
		return fmt.Errorf("assistant API returned HTTP %d", resp.StatusCode)
	}

	return fmt.Errorf("assistant API returned HTTP %d: %s", resp.StatusCode, errResp.Error.Message)
}
