package qstash

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
)

const eventHeader = "Upstash-Forward-X-Event-Type"

type Config struct {
	URL      string        `split_words:"true" default:"https://qstash.upstash.io"`
	Token    string        `split_words:"true"`
	URLGroup string        `envconfig:"URL_GROUP" default:"commerce-events"`
	Timeout  time.Duration `split_words:"true" default:"10s"`
}

func (c Config) Enabled() bool {
	return strings.TrimSpace(c.Token) != ""
}

// Client publishes messages to a QStash URL group. Each message carries its
// topic in a forwarded header so subscribers can route on it.
type Client struct {
	baseURL    string
	token      string
	urlGroup   string
	httpClient *http.Client
}

type publishResponse struct {
	MessageID string `json:"messageId"`
	URL       string `json:"url"`
	Error     string `json:"error"`
}

func NewClient(cfg Config) (*Client, error) {
	baseURL := strings.TrimSpace(cfg.URL)
	if baseURL == "" {
		return nil, errors.New("qstash url is required")
	}

	if _, err := url.ParseRequestURI(baseURL); err != nil {
		return nil, err
	}

	token := strings.TrimSpace(cfg.Token)
	if token == "" {
		return nil, errors.New("qstash token is required")
	}
	group := strings.TrimSpace(cfg.URLGroup)
	if group == "" {
		return nil, errors.New("qstash url group is required")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	client := &Client{
		baseURL:  strings.TrimRight(baseURL, "/"),
		token:    token,
		urlGroup: group,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}

	return client, nil
}

func MustNew(cfg Config) *Client {
	client, err := NewClient(cfg)
	if err != nil {
		panic(err)
	}
	return client
}

// Publish sends payload as JSON to every endpoint of the URL group.
func (c *Client) Publish(ctx context.Context, topic string, payload any) error {
	topic = strings.TrimSpace(topic)
	if topic == "" {
		return errors.New("qstash topic is required")
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal qstash payload: %w", err)
	}

	endpoint := c.baseURL + "/v2/publish/" + url.PathEscape(c.urlGroup)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("build qstash request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(eventHeader, topic)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("execute qstash request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("read qstash response: %w", err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return fmt.Errorf("qstash http status=%d body=%s", resp.StatusCode, string(raw))
	}

	// A URL group answers with one entry per endpoint.
	var parsed []publishResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return nil
	}
	for _, r := range parsed {
		if r.Error != "" {
			return fmt.Errorf("qstash delivery to %s: %s", r.URL, r.Error)
		}
	}
	return nil
}
