// Package api implements the HTTP client for the Brickstore backend: the
// login endpoint, the Genie conversation endpoints and the dashboard
// config/token endpoints. Everything is JSON over HTTPS; responses are
// consumed strictly through the shapes below and treated as opaque past them.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"

	"brickstore/internal/logging"
)

// Client talks to the Brickstore backend.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for the given base URL.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 120 * time.Second},
	}
}

// AuthError is a login rejected by the backend, either bad credentials or an
// unreachable server. It is recovered locally; the session store stays
// unauthenticated.
type AuthError struct {
	StatusCode int
	Message    string
}

func (e *AuthError) Error() string {
	if e.StatusCode == 0 {
		return fmt.Sprintf("login failed: %s", e.Message)
	}
	return fmt.Sprintf("login failed (%d): %s", e.StatusCode, e.Message)
}

// RequestError is a network or backend failure on a non-login endpoint.
type RequestError struct {
	Op         string
	StatusCode int
	Err        error
}

func (e *RequestError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s failed (%d): %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Op, e.Err)
}

func (e *RequestError) Unwrap() error { return e.Err }

// LoginResponse carries the credential fields returned on a successful login.
type LoginResponse struct {
	Message        string `json:"message"`
	FirstName      string `json:"first_name"`
	LastName       string `json:"last_name"`
	Email          string `json:"email"`
	Company        string `json:"company"`
	AssistantToken string `json:"assistant_token"`
	AccessToken    string `json:"access_token"`
}

// Login verifies credentials against the backend.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResponse, error) {
	body, err := json.Marshal(map[string]string{
		"email":    email,
		"password": password,
	})
	if err != nil {
		return nil, &AuthError{Message: err.Error()}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/login", bytes.NewReader(body))
	if err != nil {
		return nil, &AuthError{Message: err.Error()}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		logging.APIError("login request failed: %v", err)
		return nil, &AuthError{Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorBody(resp.Body)
		logging.APIError("login rejected (%d): %s", resp.StatusCode, msg)
		return nil, &AuthError{StatusCode: resp.StatusCode, Message: msg}
	}

	var lr LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&lr); err != nil {
		return nil, &AuthError{Message: fmt.Sprintf("malformed login response: %v", err)}
	}

	logging.API("login ok for %s", lr.Email)
	return &lr, nil
}

// TurnRequest is one Genie question. ConversationID is empty on the first
// turn and fixed thereafter.
type TurnRequest struct {
	AssistantToken string `json:"assistant_token"`
	Question       string `json:"question"`
	ConversationID string `json:"conversation_id,omitempty"`
	Company        string `json:"user_company"`
}

// TurnResponse is the assistant's reply to one turn. Either QueryResult (a
// JSON-encoded row array) plus Description, or plain Content.
type TurnResponse struct {
	ConversationID string `json:"conversation_id"`
	QueryResult    string `json:"query_result,omitempty"`
	Description    string `json:"description,omitempty"`
	Content        string `json:"content,omitempty"`
}

// StartConversation opens a new Genie conversation with the first question.
func (c *Client) StartConversation(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	return c.turn(ctx, "start_conversation", req)
}

// ContinueConversation asks a follow-up question within an existing
// conversation.
func (c *Client) ContinueConversation(ctx context.Context, req TurnRequest) (*TurnResponse, error) {
	return c.turn(ctx, "continue_conversation", req)
}

func (c *Client) turn(ctx context.Context, op string, turnReq TurnRequest) (*TurnResponse, error) {
	reqLog := logging.WithRequestID(logging.CategoryAPI, uuid.NewString())

	body, err := json.Marshal(turnReq)
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/genie/"+op, bytes.NewReader(body))
	if err != nil {
		return nil, &RequestError{Op: op, Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	reqLog.Info("%s conversation_id=%q", op, turnReq.ConversationID)

	resp, err := c.http.Do(req)
	if err != nil {
		reqLog.Error("%s: %v", op, err)
		return nil, &RequestError{Op: op, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg := readErrorBody(resp.Body)
		reqLog.Error("%s rejected (%d): %s", op, resp.StatusCode, msg)
		return nil, &RequestError{Op: op, StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", msg)}
	}

	var tr TurnResponse
	if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
		return nil, &RequestError{Op: op, Err: fmt.Errorf("malformed response: %w", err)}
	}

	return &tr, nil
}

// DashboardConfig identifies the embedded dashboard.
type DashboardConfig struct {
	InstanceURL string `json:"instance_url"`
	WorkspaceID string `json:"workspace_id"`
	DashboardID string `json:"dashboard_id"`
}

// DashboardConfig fetches the embedding target for the current deployment.
func (c *Client) DashboardConfig(ctx context.Context) (*DashboardConfig, error) {
	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/dashboard/config", strings.NewReader("{}"))
	if err != nil {
		return nil, &RequestError{Op: "dashboard_config", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &RequestError{Op: "dashboard_config", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, &RequestError{Op: "dashboard_config", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", readErrorBody(resp.Body))}
	}

	var dc DashboardConfig
	if err := json.NewDecoder(resp.Body).Decode(&dc); err != nil {
		return nil, &RequestError{Op: "dashboard_config", Err: fmt.Errorf("malformed response: %w", err)}
	}
	return &dc, nil
}

// TokenRequest carries the row-level-security inputs for a scoped dashboard
// token.
type TokenRequest struct {
	ExternalData     string `json:"external_data"`
	ExternalViewerID string `json:"external_viewer_id"`
	DashboardName    string `json:"dashboard_name"`
}

// DashboardToken mints a scoped embedding token. The token is opaque; expired
// ones are simply replaced by asking again.
func (c *Client) DashboardToken(ctx context.Context, tokenReq TokenRequest) (string, error) {
	body, err := json.Marshal(tokenReq)
	if err != nil {
		return "", &RequestError{Op: "dashboard_token", Err: err}
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/api/dashboard/get_token", bytes.NewReader(body))
	if err != nil {
		return "", &RequestError{Op: "dashboard_token", Err: err}
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", &RequestError{Op: "dashboard_token", Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", &RequestError{Op: "dashboard_token", StatusCode: resp.StatusCode, Err: fmt.Errorf("%s", readErrorBody(resp.Body))}
	}

	var tok struct {
		Token string `json:"token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&tok); err != nil {
		return "", &RequestError{Op: "dashboard_token", Err: fmt.Errorf("malformed response: %w", err)}
	}
	if tok.Token == "" {
		return "", &RequestError{Op: "dashboard_token", Err: fmt.Errorf("empty token in response")}
	}

	logging.Dashboard("minted token for %s", tokenReq.DashboardName)
	return tok.Token, nil
}

func readErrorBody(r io.Reader) string {
	data, _ := io.ReadAll(io.LimitReader(r, 4096))
	var wrapped struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &wrapped); err == nil && wrapped.Message != "" {
		return wrapped.Message
	}
	return strings.TrimSpace(string(data))
}
