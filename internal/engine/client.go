package engine

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

	"github.com/google/uuid"
)

const userAgent = "easel/0.1.0"

// ErrNoPromptID indicates the engine acknowledged a submission without
// assigning a job id.
var ErrNoPromptID = errors.New("engine response missing prompt_id")

// Client provides access to the generative engine API.
type Client struct {
	baseURL    string
	apiKey     string
	clientID   string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client. The supplied client is
// shared by every request the Client issues, including concurrent artifact
// downloads, so it must be safe for concurrent use.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		if client != nil {
			c.httpClient = client
		}
	}
}

// WithClientID overrides the generated client id sent with submissions.
func WithClientID(id string) Option {
	return func(c *Client) {
		if strings.TrimSpace(id) != "" {
			c.clientID = id
		}
	}
}

// New creates an engine client for the given base URL. apiKey may be empty
// for unauthenticated engines.
func New(baseURL, apiKey string, opts ...Option) (*Client, error) {
	baseURL = strings.TrimSpace(baseURL)
	if baseURL == "" {
		return nil, errors.New("engine base url required")
	}
	client := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     strings.TrimSpace(apiKey),
		clientID:   uuid.NewString(),
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// SystemStats probes the engine. Any transport failure or non-success status
// means the engine is unreachable or unhealthy.
func (c *Client) SystemStats(ctx context.Context) (*SystemStats, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/system_stats", nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("probe engine: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("engine probe returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var stats SystemStats
	if err := json.NewDecoder(resp.Body).Decode(&stats); err != nil {
		return nil, fmt.Errorf("decode system stats: %w", err)
	}
	return &stats, nil
}

type promptRequest struct {
	Prompt   Workflow `json:"prompt"`
	ClientID string   `json:"client_id"`
}

type promptResponse struct {
	PromptID string `json:"prompt_id"`
}

// SubmitWorkflow posts the workflow graph for execution and returns the
// engine-assigned prompt id.
func (c *Client) SubmitWorkflow(ctx context.Context, workflow Workflow) (string, error) {
	body, err := json.Marshal(promptRequest{Prompt: workflow, ClientID: c.clientID})
	if err != nil {
		return "", fmt.Errorf("encode prompt request: %w", err)
	}

	req, err := c.newRequest(ctx, http.MethodPost, c.baseURL+"/prompt", bytes.NewReader(body))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit workflow: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("workflow submission returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var ack promptResponse
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return "", fmt.Errorf("decode submission response: %w", err)
	}
	if strings.TrimSpace(ack.PromptID) == "" {
		return "", ErrNoPromptID
	}
	return ack.PromptID, nil
}

// History fetches the job record for promptID. The engine keys its history
// response by prompt id; an absent key means the engine has not registered
// the job yet and is reported as found=false, not an error.
func (c *Client) History(ctx context.Context, promptID string) (*HistoryEntry, bool, error) {
	req, err := c.newRequest(ctx, http.MethodGet, c.baseURL+"/history/"+url.PathEscape(promptID), nil)
	if err != nil {
		return nil, false, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, false, fmt.Errorf("fetch history: %w", err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, false, fmt.Errorf("history request returned %d: %s", resp.StatusCode, readErrorBody(resp.Body))
	}

	var payload map[string]HistoryEntry
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, false, fmt.Errorf("decode history response: %w", err)
	}

	entry, ok := payload[promptID]
	if !ok {
		return nil, false, nil
	}
	return &entry, true, nil
}

// View downloads one artifact's raw bytes.
func (c *Client) View(ctx context.Context, ref ArtifactRef) ([]byte, error) {
	endpoint, err := url.Parse(c.baseURL + "/view")
	if err != nil {
		return nil, fmt.Errorf("parse view url: %w", err)
	}
	params := url.Values{}
	params.Set("filename", ref.Filename)
	params.Set("subfolder", ref.Subfolder)
	params.Set("type", ref.Type)
	endpoint.RawQuery = params.Encode()

	req, err := c.newRequest(ctx, http.MethodGet, endpoint.String(), nil)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", ref.Filename, err)
	}
	defer drainAndClose(resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("download %s returned %d: %s", ref.Filename, resp.StatusCode, readErrorBody(resp.Body))
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ref.Filename, err)
	}
	return data, nil
}

func (c *Client) newRequest(ctx context.Context, method, endpoint string, body io.Reader) (*http.Request, error) {
	req, err := http.NewRequestWithContext(ctx, method, endpoint, body)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	return req, nil
}

func readErrorBody(body io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(body, 2048))
	return strings.TrimSpace(string(data))
}

func drainAndClose(body io.ReadCloser) {
	_, _ = io.Copy(io.Discard, body)
	_ = body.Close()
}
