package knowledge

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	contractx "github.com/tanpawarit/chative-commerce-agent/agent/contract"
)

const maxResponseSizeBytes = 4 << 20

type Config struct {
	URL            string        `envconfig:"URL" split_words:"true"`
	APIKey         string        `envconfig:"API_KEY" split_words:"true"`
	Collection     string        `split_words:"true" default:"knowledge_base"`
	Timeout        time.Duration `split_words:"true" default:"10s"`
	SearchLimit    int           `split_words:"true" default:"5"`
	ScoreThreshold float64       `split_words:"true" default:"0.7"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.URL) != ""
}

// Document is a knowledge-base entry. Payload keys: doc_id, audience, title,
// content, category, url.
type Document struct {
	ID       string  `json:"id"`
	Title    string  `json:"title,omitempty"`
	Content  string  `json:"content"`
	Category string  `json:"category,omitempty"`
	URL      string  `json:"url,omitempty"`
	Score    float64 `json:"score,omitempty"`
}

// qdrantStatus accepts both `"ok"` and `{"error": "..."}`.
type qdrantStatus struct {
	State string
	Error string
}

func (s *qdrantStatus) UnmarshalJSON(b []byte) error {
	if len(b) > 0 && b[0] == '"' {
		var v string
		if err := json.Unmarshal(b, &v); err != nil {
			return err
		}
		s.State = strings.ToLower(v)
		return nil
	}
	var obj struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(b, &obj); err != nil {
		return err
	}
	if obj.Error != "" {
		s.State = "error"
		s.Error = obj.Error
	}
	return nil
}

type qdrantEnvelope[T any] struct {
	Status qdrantStatus `json:"status"`
	Result T            `json:"result"`
}

type qdrantPoint struct {
	ID      json.RawMessage `json:"id"`
	Score   float64         `json:"score"`
	Payload map[string]any  `json:"payload"`
}

type qdrantScrollResult struct {
	Points []qdrantPoint `json:"points"`
}

type matchCondition struct {
	Key   string         `json:"key"`
	Match map[string]any `json:"match"`
}

type qdrantFilter struct {
	Must []matchCondition `json:"must,omitempty"`
}

func matchValue(key string, value any) matchCondition {
	return matchCondition{Key: key, Match: map[string]any{"value": value}}
}

// Client talks to the Qdrant REST API.
type Client struct {
	baseURL    string
	apiKey     string
	collection string
	httpClient *http.Client
}

var _ contractx.Retriever = (*Client)(nil)

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qdrant url is required")
	}
	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}
	collection := strings.TrimSpace(cfg.Collection)
	if collection == "" {
		return nil, errors.New("qdrant collection is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(cfg.APIKey),
		collection: collection,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func MustNewClient(cfg Config) *Client {
	c, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return c
}

// Lookup returns the content of the document whose doc_id and audience match exactly.
func (c *Client) Lookup(ctx context.Context, id string, audience string) (string, bool, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return "", false, nil
	}
	filter := qdrantFilter{Must: []matchCondition{matchValue("doc_id", id)}}
	if audience = strings.TrimSpace(audience); audience != "" {
		filter.Must = append(filter.Must, matchValue("audience", audience))
	}
	body := map[string]any{
		"filter":       filter,
		"limit":        1,
		"with_payload": true,
		"with_vector":  false,
	}

	var resp qdrantEnvelope[qdrantScrollResult]
	if err := c.do(ctx, http.MethodPost, c.pointsPath("scroll"), body, &resp); err != nil {
		return "", false, err
	}
	if len(resp.Result.Points) == 0 {
		return "", false, nil
	}
	doc := toDocument(resp.Result.Points[0])
	if strings.TrimSpace(doc.Content) == "" {
		return "", false, nil
	}
	return doc.Content, true, nil
}

// Search runs a similarity search. audience, when set, restricts the payload audience.
func (c *Client) Search(ctx context.Context, vector []float32, limit int, threshold float64, audience string) ([]Document, error) {
	if limit <= 0 || len(vector) == 0 {
		return nil, nil
	}
	body := map[string]any{
		"vector":       vector,
		"limit":        limit,
		"with_payload": true,
	}
	if threshold > 0 {
		body["score_threshold"] = threshold
	}
	if audience = strings.TrimSpace(audience); audience != "" {
		body["filter"] = qdrantFilter{Must: []matchCondition{matchValue("audience", audience)}}
	}

	var resp qdrantEnvelope[[]qdrantPoint]
	if err := c.do(ctx, http.MethodPost, c.pointsPath("search"), body, &resp); err != nil {
		return nil, err
	}
	docs := make([]Document, 0, len(resp.Result))
	for _, p := range resp.Result {
		docs = append(docs, toDocument(p))
	}
	return docs, nil
}

func (c *Client) pointsPath(op string) string {
	return fmt.Sprintf("/collections/%s/points/%s", url.PathEscape(c.collection), op)
}

func (c *Client) do(ctx context.Context, method, path string, body any, out any) error {
	var buf io.Reader = http.NoBody
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("qdrant: marshal request: %w", err)
		}
		buf = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, buf)
	if err != nil {
		return fmt.Errorf("qdrant: new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: qdrant %s %s: %v", contractx.ErrDependency, method, path, err)
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSizeBytes))
	if err != nil {
		return fmt.Errorf("%w: qdrant read response: %v", contractx.ErrDependency, err)
	}
	if resp.StatusCode >= 400 {
		return fmt.Errorf("%w: qdrant %s %s -> http %d: %s", contractx.ErrDependency, method, path, resp.StatusCode, strings.TrimSpace(string(payload)))
	}
	if out == nil || len(payload) == 0 {
		return nil
	}
	if err := json.Unmarshal(payload, out); err != nil {
		return fmt.Errorf("qdrant: decode response: %w", err)
	}
	return nil
}

func toDocument(p qdrantPoint) Document {
	doc := Document{
		ID:       stringFrom(p.Payload["doc_id"]),
		Title:    stringFrom(p.Payload["title"]),
		Content:  stringFrom(p.Payload["content"]),
		Category: stringFrom(p.Payload["category"]),
		URL:      stringFrom(p.Payload["url"]),
		Score:    p.Score,
	}
	if doc.Content == "" {
		doc.Content = stringFrom(p.Payload["text"])
	}
	if doc.ID == "" {
		doc.ID = strings.Trim(string(p.ID), `"`)
	}
	return doc
}

func stringFrom(v any) string {
	switch t := v.(type) {
	case string:
		return t
	case nil:
		return ""
	default:
		return fmt.Sprint(t)
	}
}
