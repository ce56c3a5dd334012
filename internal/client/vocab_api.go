package client

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"github.com/lexivault/vocab-web-app/api-service/internal/models"
)

// Lookup returns generated content for a word. Cache hits never touch the
// network; misses go through the monitor so failures count toward session
// health.
func (c *Client) Lookup(ctx context.Context, word string, action models.LookupAction) (string, error) {
	if cached, ok := c.cache.Get(word, string(action)); ok {
		return cached, nil
	}

	var resp models.LookupResponse
	err := c.monitor.WrapAPICall("/api/v1/lookup", func() error {
		return c.doJSON(ctx, http.MethodPost, "/api/v1/lookup", &models.LookupRequest{
			Word:   word,
			Action: action,
		}, &resp)
	})
	if err != nil {
		return "", err
	}

	c.cache.Set(word, string(action), resp.Result)
	return resp.Result, nil
}

// Speech returns synthesized MP3 audio for a text, cached separately from
// text lookups.
func (c *Client) Speech(ctx context.Context, text string) ([]byte, error) {
	if cached, ok := c.cache.GetAudio(text); ok {
		return cached, nil
	}

	var resp models.SpeechResponse
	err := c.monitor.WrapAPICall("/api/v1/speech", func() error {
		return c.doJSON(ctx, http.MethodPost, "/api/v1/speech", &models.SpeechRequest{Text: text}, &resp)
	})
	if err != nil {
		return nil, err
	}

	audio, err := base64.StdEncoding.DecodeString(resp.Audio)
	if err != nil {
		return nil, fmt.Errorf("failed to decode audio payload: %w", err)
	}

	c.cache.SetAudio(text, audio)
	return audio, nil
}

// ListWords returns one page of the word list.
func (c *Client) ListWords(ctx context.Context, search string, page, perPage int) (*models.WordListResponse, error) {
	query := url.Values{}
	if search != "" {
		query.Set("search", search)
	}
	if page > 0 {
		query.Set("page", strconv.Itoa(page))
	}
	if perPage > 0 {
		query.Set("per_page", strconv.Itoa(perPage))
	}

	path := "/api/v1/words"
	if encoded := query.Encode(); encoded != "" {
		path += "?" + encoded
	}

	var resp models.WordListResponse
	err := c.monitor.WrapAPICall("/api/v1/words", func() error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// AddWord adds a word to the personal list.
func (c *Client) AddWord(ctx context.Context, word string) (*models.VocabWord, error) {
	var resp models.VocabWord
	err := c.monitor.WrapAPICall("/api/v1/words", func() error {
		return c.doJSON(ctx, http.MethodPost, "/api/v1/words", &models.AddWordRequest{Word: word}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteWord removes a word from the personal list.
func (c *Client) DeleteWord(ctx context.Context, wordID int64) error {
	path := fmt.Sprintf("/api/v1/words/%d", wordID)
	return c.monitor.WrapAPICall(path, func() error {
		return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
	})
}

// ListNotes returns the notes attached to a word.
func (c *Client) ListNotes(ctx context.Context, wordID int64) ([]models.Note, error) {
	path := fmt.Sprintf("/api/v1/words/%d/notes", wordID)

	var resp struct {
		Notes []models.Note `json:"notes"`
	}
	err := c.monitor.WrapAPICall(path, func() error {
		return c.doJSON(ctx, http.MethodGet, path, nil, &resp)
	})
	if err != nil {
		return nil, err
	}
	return resp.Notes, nil
}

// AddNote attaches a note to a word.
func (c *Client) AddNote(ctx context.Context, wordID int64, body string) (*models.Note, error) {
	path := fmt.Sprintf("/api/v1/words/%d/notes", wordID)

	var resp models.Note
	err := c.monitor.WrapAPICall(path, func() error {
		return c.doJSON(ctx, http.MethodPost, path, &models.NoteRequest{Body: body}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// UpdateNote replaces a note's body.
func (c *Client) UpdateNote(ctx context.Context, noteID int64, body string) (*models.Note, error) {
	path := fmt.Sprintf("/api/v1/notes/%d", noteID)

	var resp models.Note
	err := c.monitor.WrapAPICall(path, func() error {
		return c.doJSON(ctx, http.MethodPut, path, &models.NoteRequest{Body: body}, &resp)
	})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// DeleteNote removes a note.
func (c *Client) DeleteNote(ctx context.Context, noteID int64) error {
	path := fmt.Sprintf("/api/v1/notes/%d", noteID)
	return c.monitor.WrapAPICall(path, func() error {
		return c.doJSON(ctx, http.MethodDelete, path, nil, nil)
	})
}
