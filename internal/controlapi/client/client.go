// Package client is the control API's HTTP client, used by someipctl.
package client

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// Client talks to a someipd control API server.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      string
}

// New creates a Client for baseURL (e.g. "http://127.0.0.1:8090").
func New(baseURL string) *Client {
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

// WithToken returns a copy of the client carrying the given bearer token.
func (c *Client) WithToken(token string) *Client {
	return &Client{baseURL: c.baseURL, httpClient: c.httpClient, token: token}
}

// APIError is an error response from the control API.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("control API error (%d): %s", e.StatusCode, e.Message)
}

// envelope mirrors controlapi.Response without importing the server
// package, keeping the client independent of server internals.
type envelope struct {
	Status string          `json:"status"`
	Error  string          `json:"error,omitempty"`
	Data   json.RawMessage `json:"data,omitempty"`
}

func (c *Client) do(method, path string, result any) error {
	req, err := http.NewRequest(method, c.baseURL+path, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if len(body) > 0 {
		if jsonErr := json.Unmarshal(body, &env); jsonErr != nil {
			if resp.StatusCode >= 400 {
				return &APIError{StatusCode: resp.StatusCode, Message: string(body)}
			}
			return fmt.Errorf("failed to decode response: %w", jsonErr)
		}
	}

	if resp.StatusCode >= 400 {
		msg := env.Error
		if msg == "" {
			msg = string(body)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}

	if result != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, result); err != nil {
			return fmt.Errorf("failed to decode response data: %w", err)
		}
	}
	return nil
}

func (c *Client) post(path string, result any) error {
	req, err := http.NewRequest(http.MethodPost, c.baseURL+path, bytes.NewReader(nil))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}

	var env envelope
	if len(body) > 0 {
		_ = json.Unmarshal(body, &env)
	}
	if resp.StatusCode >= 400 {
		msg := env.Error
		if msg == "" {
			msg = string(body)
		}
		return &APIError{StatusCode: resp.StatusCode, Message: msg}
	}
	if result != nil && len(env.Data) > 0 {
		return json.Unmarshal(env.Data, result)
	}
	return nil
}

// HealthView is the liveness probe payload.
type HealthView struct {
	StartedAt time.Time `json:"started_at"`
	Uptime    string    `json:"uptime"`
}

// Health calls GET /health.
func (c *Client) Health() (*HealthView, error) {
	var v HealthView
	if err := c.do(http.MethodGet, "/health", &v); err != nil {
		return nil, err
	}
	return &v, nil
}

// EndpointView is one interned endpoint.
type EndpointView struct {
	Address       string `json:"address"`
	Port          int    `json:"port"`
	Protocol      string `json:"protocol"`
	Secured       bool   `json:"secured"`
	Variant       string `json:"variant"`
	PeerCount     int    `json:"peer_count,omitempty"`
	ReassemblyKey int    `json:"reassembly_keys,omitempty"`
}

// Endpoints calls GET /api/v1/endpoints.
func (c *Client) Endpoints() ([]EndpointView, error) {
	var v []EndpointView
	if err := c.do(http.MethodGet, "/api/v1/endpoints", &v); err != nil {
		return nil, err
	}
	return v, nil
}

// ConnectionView is one TCP connection.
type ConnectionView struct {
	LocalAddr     string `json:"local_addr"`
	RemoteAddr    string `json:"remote_addr"`
	Role          string `json:"role"`
	State         string `json:"state"`
	Users         int64  `json:"users"`
	CorrelationID string `json:"correlation_id"`
}

// Connections calls GET /api/v1/connections.
func (c *Client) Connections() ([]ConnectionView, error) {
	var v []ConnectionView
	if err := c.do(http.MethodGet, "/api/v1/connections", &v); err != nil {
		return nil, err
	}
	return v, nil
}

// RegistrationView is one routing table entry.
type RegistrationView struct {
	ServiceID    uint16 `json:"service_id"`
	MajorVersion uint8  `json:"major_version"`
	InstanceID   uint16 `json:"instance_id"`
}

// RouterTable calls GET /api/v1/router.
func (c *Client) RouterTable() ([]RegistrationView, error) {
	var v []RegistrationView
	if err := c.do(http.MethodGet, "/api/v1/router", &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Disconnect calls POST /api/v1/connections/{addr}/disconnect.
func (c *Client) Disconnect(addr string) error {
	return c.post("/api/v1/connections/"+addr+"/disconnect", nil)
}
