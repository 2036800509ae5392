// Package client is a small Go client for the deposit HTTP API.
package client

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
	"sync"
	"time"
)

const (
	StatusPending   = "pending"
	StatusCompleted = "completed"
	StatusRejected  = "rejected"
)

// APIError is a non-2xx response.
type APIError struct {
	StatusCode int
	Message    string `json:"error"`
	// DepositStatus is set on 409 responses from settlement.
	DepositStatus string `json:"status"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// IsStatus reports whether err is an *APIError with the given HTTP status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}

type Deposit struct {
	DepositID  string     `json:"depositId"`
	Account    string     `json:"account"`
	Amount     string     `json:"amount"`
	ContactRef string     `json:"contactRef"`
	Status     string     `json:"status"`
	CreatedAt  time.Time  `json:"createdAt"`
	SettledAt  *time.Time `json:"settledAt,omitempty"`
}

type Status struct {
	DepositID string     `json:"depositId"`
	Status    string     `json:"status"`
	SettledAt *time.Time `json:"settledAt,omitempty"`
}

// Terminal reports whether the deposit can no longer change.
func (s Status) Terminal() bool {
	return s.Status == StatusCompleted || s.Status == StatusRejected
}

type Client struct {
	baseURL string
	http    *http.Client

	mu    sync.RWMutex
	token string
}

func New(baseURL string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: 10 * time.Second}
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
	}
}

// SetToken sets the bearer token used for authenticated calls.
func (c *Client) SetToken(token string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.token = token
}

func (c *Client) Register(ctx context.Context, username, password string) error {
	body := map[string]string{"username": username, "password": password}

	return c.do(ctx, http.MethodPost, "/register", body, nil)
}

// Login authenticates and stores the issued token on the client.
func (c *Client) Login(ctx context.Context, username, password string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}

	err := c.do(ctx, http.MethodPost, "/login", map[string]string{"username": username, "password": password}, &out)
	if err != nil {
		return "", err
	}

	c.SetToken(out.Token)

	return out.Token, nil
}

// SubmitDeposit submits a pending deposit. amount is a decimal string such as "100.00".
func (c *Client) SubmitDeposit(ctx context.Context, account, amount, contactRef string) (Deposit, error) {
	var out Deposit

	err := c.do(ctx, http.MethodPost, "/deposits", map[string]string{
		"account":    account,
		"amount":     amount,
		"contactRef": contactRef,
	}, &out)

	return out, err
}

func (c *Client) PollStatus(ctx context.Context, depositID string) (Status, error) {
	var out Status

	err := c.do(ctx, http.MethodGet, "/deposits/"+url.PathEscape(depositID)+"/status", nil, &out)

	return out, err
}

// Settle applies decision ("approve" or "reject"). Requires an operator token.
func (c *Client) Settle(ctx context.Context, depositID, decision string) (Status, error) {
	var out Status

	err := c.do(ctx, http.MethodPost, "/deposits/"+url.PathEscape(depositID)+"/settle",
		map[string]string{"decision": decision}, &out)

	return out, err
}

func (c *Client) Balance(ctx context.Context, accountID string) (string, error) {
	var out struct {
		Balance string `json:"balance"`
	}

	err := c.do(ctx, http.MethodGet, "/accounts/"+url.PathEscape(accountID)+"/balance", nil, &out)

	return out.Balance, err
}

// ErrInvalidInterval is returned by AwaitSettlement for a non-positive interval.
var ErrInvalidInterval = errors.New("poll interval must be positive")

// AwaitSettlement polls the deposit status every interval until it is terminal
// or ctx ends.
func (c *Client) AwaitSettlement(ctx context.Context, depositID string, interval time.Duration) (Status, error) {
	if interval <= 0 {
		return Status{}, fmt.Errorf("await settlement of %s: %w: %s", depositID, ErrInvalidInterval, interval)
	}

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		st, err := c.PollStatus(ctx, depositID)
		if err != nil {
			return Status{}, err
		}

		if st.Terminal() {
			return st, nil
		}

		select {
		case <-ctx.Done():
			return st, fmt.Errorf("await settlement of %s: %w", depositID, ctx.Err())
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader

	if in != nil {
		buf, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}

		body = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}

	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		_ = json.Unmarshal(raw, apiErr)
		if apiErr.Message == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}

		return apiErr
	}

	if out == nil {
		return nil
	}

	err = json.Unmarshal(raw, out)
	if err != nil {
		return fmt.Errorf("decode response: %w", err)
	}

	return nil
}
