// Package anki submits notes to a running AnkiConnect instance.
package anki

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"notion2anki/internal/logger"
	"notion2anki/internal/models"
)

const apiVersion = 6

// Config selects where notes go. Deck, model and field names are passed to
// AnkiConnect untouched.
type Config struct {
	URL        string
	Deck       string
	Model      string
	FrontField string
	BackField  string
	Tags       []string
	Timeout    time.Duration
}

// Client talks to AnkiConnect over its JSON action protocol.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.URL == "" {
		cfg.URL = "http://localhost:8765"
	}
	if cfg.Deck == "" {
		cfg.Deck = "Notion Import"
	}
	if cfg.Model == "" {
		cfg.Model = "Basic"
	}
	if cfg.FrontField == "" {
		cfg.FrontField = "Front"
	}
	if cfg.BackField == "" {
		cfg.BackField = "Back"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.OrNop(log).Named("anki"),
	}
}

// Error is a failure reported by AnkiConnect, either through the HTTP status
// or through the error field of an otherwise successful response.
type Error struct {
	Action  string
	Status  int
	Message string
}

func (e *Error) Error() string {
	if e.Status != 0 && e.Status != http.StatusOK {
		return fmt.Sprintf("ankiconnect %s: status=%d: %s", e.Action, e.Status, e.Message)
	}
	return fmt.Sprintf("ankiconnect %s: %s", e.Action, e.Message)
}

type request struct {
	Action  string `json:"action"`
	Version int    `json:"version"`
	Params  any    `json:"params,omitempty"`
}

type response struct {
	Result json.RawMessage `json:"result"`
	Error  *string         `json:"error"`
}

type note struct {
	DeckName  string            `json:"deckName"`
	ModelName string            `json:"modelName"`
	Fields    map[string]string `json:"fields"`
	Tags      []string          `json:"tags,omitempty"`
}

// AddCard creates one note from the flashcard.
func (c *Client) AddCard(ctx context.Context, card models.Flashcard) error {
	params := map[string]any{
		"note": note{
			DeckName:  c.cfg.Deck,
			ModelName: c.cfg.Model,
			Fields: map[string]string{
				c.cfg.FrontField: card.Question,
				c.cfg.BackField:  card.Answer,
			},
			Tags: c.cfg.Tags,
		},
	}

	var noteID int64
	if err := c.invoke(ctx, "addNote", params, &noteID); err != nil {
		return err
	}
	c.log.Info("added card", zap.String("question", card.Question), zap.Int64("note", noteID))
	return nil
}

// Version returns the AnkiConnect protocol version; useful as a health check.
func (c *Client) Version(ctx context.Context) (int, error) {
	var v int
	if err := c.invoke(ctx, "version", nil, &v); err != nil {
		return 0, err
	}
	return v, nil
}

func (c *Client) invoke(ctx context.Context, action string, params any, result any) error {
	reqBody, err := json.Marshal(request{Action: action, Version: apiVersion, Params: params})
	if err != nil {
		return fmt.Errorf("marshal %s request: %w", action, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.URL, bytes.NewReader(reqBody))
	if err != nil {
		return fmt.Errorf("create http request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("execute %s request: %w", action, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &Error{Action: action, Status: resp.StatusCode, Message: strings.TrimSpace(string(body))}
	}

	var out response
	if err := json.Unmarshal(body, &out); err != nil {
		return fmt.Errorf("unmarshal %s response: %w, body=%s", action, err, string(body))
	}
	if out.Error != nil {
		return &Error{Action: action, Status: resp.StatusCode, Message: *out.Error}
	}
	if result != nil && len(out.Result) > 0 && string(out.Result) != "null" {
		if err := json.Unmarshal(out.Result, result); err != nil {
			return fmt.Errorf("decode %s result: %w", action, err)
		}
	}
	return nil
}
