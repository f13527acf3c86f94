// Package notion reads pages and their blocks from the Notion API.
package notion

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"notion2anki/internal/logger"
	"notion2anki/internal/models"
)

const (
	defaultBaseURL = "https://api.notion.com/v1"
	defaultVersion = "2022-06-28"
	pageSize       = 100
)

// Config holds the Notion connection settings.
type Config struct {
	APIKey         string
	DatabaseID     string
	BaseURL        string
	Version        string
	StatusProperty string
	ReadyStatus    string
	Timeout        time.Duration
}

// Client lists ready pages of a database and fetches their blocks.
type Client struct {
	cfg        Config
	httpClient *http.Client
	log        *zap.Logger
}

func NewClient(cfg Config, log *zap.Logger) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = defaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Version == "" {
		cfg.Version = defaultVersion
	}
	if cfg.StatusProperty == "" {
		cfg.StatusProperty = "Status"
	}
	if cfg.ReadyStatus == "" {
		cfg.ReadyStatus = "Ready to Import"
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: cfg.Timeout},
		log:        logger.OrNop(log).Named("notion"),
	}
}

// APIError is a non-2xx response from Notion.
type APIError struct {
	Status  int    `json:"status"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("notion api error: status=%d code=%s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("notion api error: status=%d: %s", e.Status, e.Message)
}

type page struct {
	ID         string                     `json:"id"`
	Properties map[string]json.RawMessage `json:"properties"`
}

type queryResponse struct {
	Results    []page `json:"results"`
	HasMore    bool   `json:"has_more"`
	NextCursor string `json:"next_cursor"`
}

type childrenResponse struct {
	Results    []map[string]json.RawMessage `json:"results"`
	HasMore    bool                         `json:"has_more"`
	NextCursor string                       `json:"next_cursor"`
}

type blockContent struct {
	RichText []models.RichText `json:"rich_text"`
	Language string            `json:"language"`
}

// ListReadyDocuments returns every database page whose status property
// equals the configured ready value, in the order Notion returns them.
func (c *Client) ListReadyDocuments(ctx context.Context) ([]models.DocumentRef, error) {
	endpoint := fmt.Sprintf("%s/databases/%s/query", c.cfg.BaseURL, url.PathEscape(c.cfg.DatabaseID))

	var docs []models.DocumentRef
	cursor := ""
	for {
		body := map[string]any{
			"filter": map[string]any{
				"property": c.cfg.StatusProperty,
				"select": map[string]any{
					"equals": c.cfg.ReadyStatus,
				},
			},
			"page_size": pageSize,
		}
		if cursor != "" {
			body["start_cursor"] = cursor
		}

		payload, err := c.do(ctx, http.MethodPost, endpoint, body)
		if err != nil {
			return nil, fmt.Errorf("query database: %w", err)
		}

		var resp queryResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			return nil, fmt.Errorf("decode database query: %w", err)
		}
		for _, p := range resp.Results {
			docs = append(docs, models.DocumentRef{ID: p.ID, Title: pageTitle(p)})
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}

	c.log.Debug("listed ready pages", zap.Int("count", len(docs)))
	return docs, nil
}

// GetBlocks fetches the top-level blocks of a page. A response body that
// cannot be decoded yields zero blocks rather than an error.
func (c *Client) GetBlocks(ctx context.Context, pageID string) ([]models.Block, error) {
	var blocks []models.Block
	cursor := ""
	for {
		q := url.Values{}
		q.Set("page_size", fmt.Sprint(pageSize))
		if cursor != "" {
			q.Set("start_cursor", cursor)
		}
		endpoint := fmt.Sprintf("%s/blocks/%s/children?%s", c.cfg.BaseURL, url.PathEscape(pageID), q.Encode())

		payload, err := c.do(ctx, http.MethodGet, endpoint, nil)
		if err != nil {
			return nil, fmt.Errorf("fetch blocks of %s: %w", pageID, err)
		}

		var resp childrenResponse
		if err := json.Unmarshal(payload, &resp); err != nil {
			c.log.Warn("unparseable block payload, treating page as empty",
				zap.String("page", pageID), zap.Error(err))
			return nil, nil
		}
		for _, raw := range resp.Results {
			blocks = append(blocks, decodeBlock(raw))
		}

		if !resp.HasMore || resp.NextCursor == "" {
			break
		}
		cursor = resp.NextCursor
	}
	return blocks, nil
}

// decodeBlock converts one raw block. Blocks whose content cannot be read
// keep their position as a typeless block.
func decodeBlock(raw map[string]json.RawMessage) models.Block {
	var blockType string
	if err := json.Unmarshal(raw["type"], &blockType); err != nil {
		return models.Block{}
	}
	block := models.Block{Type: models.BlockType(blockType)}

	content, ok := raw[blockType]
	if !ok {
		return block
	}
	var bc blockContent
	if err := json.Unmarshal(content, &bc); err != nil {
		return block
	}
	block.RichText = bc.RichText
	block.Language = bc.Language
	return block
}

func pageTitle(p page) string {
	for _, prop := range p.Properties {
		var title struct {
			Type  string            `json:"type"`
			Title []models.RichText `json:"title"`
		}
		if err := json.Unmarshal(prop, &title); err != nil || title.Type != "title" {
			continue
		}
		var b strings.Builder
		for _, t := range title.Title {
			b.WriteString(t.PlainText)
		}
		return b.String()
	}
	return ""
}

func (c *Client) do(ctx context.Context, method, endpoint string, body any) ([]byte, error) {
	var reader io.Reader
	if body != nil {
		reqBody, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(reqBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, endpoint, reader)
	if err != nil {
		return nil, fmt.Errorf("create http request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	req.Header.Set("Notion-Version", c.cfg.Version)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("execute request: %w", err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read response body: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(payload, apiErr) != nil || apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(payload))
		}
		apiErr.Status = resp.StatusCode
		return nil, apiErr
	}
	return payload, nil
}
