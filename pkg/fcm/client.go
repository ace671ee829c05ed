package fcm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	pkgerrors "github.com/tobiadeyinka/chowdash-backend/pkg/errors"
)

const (
	defaultBaseURL             = "https://fcm.googleapis.com"
	requestBodyReadLimit int64 = 1024
)

var (
	errProjectIDRequired = errors.New("fcm project id is required")
)

// TokenSource yields a bearer token for the FCM HTTP v1 API. Production
// wiring uses the service account credentials already loaded for Pub/Sub.
type TokenSource func(ctx context.Context) (string, error)

// Client sends push notifications through the FCM HTTP v1 API.
type Client struct {
	httpClient  *http.Client
	baseURL     string
	projectID   string
	tokenSource TokenSource
}

// Option configures optional client behavior.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithBaseURL overrides the configured API base URL.
func WithBaseURL(baseURL string) Option {
	return func(c *Client) {
		trimmed := strings.TrimSpace(baseURL)
		if trimmed != "" {
			c.baseURL = trimmed
		}
	}
}

// WithTokenSource sets the bearer token provider for outgoing requests.
func WithTokenSource(source TokenSource) Option {
	return func(c *Client) {
		if source != nil {
			c.tokenSource = source
		}
	}
}

// NewClient builds the FCM client for a GCP project.
func NewClient(projectID string, opts ...Option) (*Client, error) {
	trimmedProject := strings.TrimSpace(projectID)
	if trimmedProject == "" {
		return nil, errProjectIDRequired
	}

	client := &Client{
		projectID:  trimmedProject,
		baseURL:    defaultBaseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}

	for _, opt := range opts {
		if opt != nil {
			opt(client)
		}
	}

	if client.httpClient == nil {
		client.httpClient = &http.Client{Timeout: 10 * time.Second}
	}
	if client.baseURL == "" {
		client.baseURL = defaultBaseURL
	}

	return client, nil
}

// Message is a single push notification addressed to one device token.
type Message struct {
	Token string
	Title string
	Body  string
	Data  map[string]string
}

// Send delivers a push notification and returns the FCM message name.
func (c *Client) Send(ctx context.Context, msg Message) (string, error) {
	if c == nil {
		return "", pkgerrors.New(pkgerrors.CodeDependency, "fcm client not configured")
	}
	if strings.TrimSpace(msg.Token) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "device token is required")
	}
	if strings.TrimSpace(msg.Title) == "" && strings.TrimSpace(msg.Body) == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "notification title or body is required")
	}

	payload := map[string]any{
		"message": map[string]any{
			"token": msg.Token,
			"notification": map[string]string{
				"title": msg.Title,
				"body":  msg.Body,
			},
			"data": msg.Data,
		},
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "marshal fcm request")
	}

	endpoint := fmt.Sprintf("%s/v1/projects/%s/messages:send", strings.TrimRight(c.baseURL, "/"), c.projectID)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(data))
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "build fcm request")
	}
	httpReq.Header.Set("Content-Type", "application/json")

	if c.tokenSource != nil {
		token, err := c.tokenSource(ctx)
		if err != nil {
			return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "fetch fcm access token")
		}
		httpReq.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "execute fcm request")
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		msgBody, _ := io.ReadAll(io.LimitReader(resp.Body, requestBodyReadLimit))
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, fmt.Errorf("status %d: %s", resp.StatusCode, strings.TrimSpace(string(msgBody))), "fcm send failed")
	}

	var apiResp struct {
		Name string `json:"name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return "", pkgerrors.Wrap(pkgerrors.CodeDependency, err, "decode fcm response")
	}
	return apiResp.Name, nil
}
