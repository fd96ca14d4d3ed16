// internal/api/client.go
//
// Typed HTTP client for the MonadType rewards backend, used by the terminal
// client. Every endpoint answers with a {"success":..,"error":..} envelope;
// failures come back as *Error.

package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Error is a non-success response from the backend.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("api: %d %s", e.Status, e.Message)
}

const msgAlreadyClaimed = "Level reward already claimed"

// IsAlreadyClaimed reports whether err is the backend refusing a repeat claim.
func IsAlreadyClaimed(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Message == msgAlreadyClaimed
}

// IsRateLimited reports whether err is a 429.
func IsRateLimited(err error) bool {
	var e *Error
	return errors.As(err, &e) && e.Status == http.StatusTooManyRequests
}

type ClaimResult struct {
	TxHash       string   `json:"txHash"`
	RewardAmount string   `json:"rewardAmount"`
	Level        int      `json:"level"`
	Score        *float64 `json:"score,omitempty"`
}

type PlayerStats struct {
	Address       string `json:"address"`
	ClaimedLevels []int  `json:"claimedLevels"`
	HighestLevel  int    `json:"highestLevel"`
}

type StatsReport struct {
	Address string  `json:"address"`
	Level   int     `json:"level"`
	Score   float64 `json:"score"`
	Tokens  string  `json:"tokens,omitempty"`
}

type LeaderboardEntry struct {
	Address    string `json:"address"`
	Level      int    `json:"level"`
	Score      int    `json:"score"`
	Tokens     string `json:"tokens"`
	LastPlayed string `json:"lastPlayed"`
}

type Claim struct {
	Address   string    `json:"address"`
	Level     int       `json:"level"`
	Score     *int      `json:"score,omitempty"`
	Reward    string    `json:"reward"`
	TxHash    string    `json:"txHash"`
	CreatedAt time.Time `json:"createdAt"`
}

type Client struct {
	base string
	hc   *http.Client

	mu    sync.RWMutex
	token string
}

// New returns a client for the backend at baseURL. A nil hc uses a client
// with a generous timeout, since claims wait for the transaction to be mined.
func New(baseURL string, hc *http.Client) *Client {
	if hc == nil {
		hc = &http.Client{Timeout: 3 * time.Minute}
	}
	return &Client{base: strings.TrimRight(baseURL, "/"), hc: hc}
}

// SetToken attaches a wallet session token to subsequent requests.
func (c *Client) SetToken(tok string) {
	c.mu.Lock()
	c.token = tok
	c.mu.Unlock()
}

// HasToken reports whether a session token is set.
func (c *Client) HasToken() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.token != ""
}

func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/api/health", nil, nil)
}

func (c *Client) ClaimReward(ctx context.Context, address string, level int) (ClaimResult, error) {
	var out ClaimResult
	err := c.do(ctx, http.MethodPost, "/api/claim-reward",
		map[string]any{"playerAddress": address, "level": level}, &out)
	return out, err
}

func (c *Client) LevelComplete(ctx context.Context, address string, level int, score float64) (ClaimResult, error) {
	var out ClaimResult
	err := c.do(ctx, http.MethodPost, "/api/level-complete",
		map[string]any{"address": address, "level": level, "score": score}, &out)
	return out, err
}

func (c *Client) PlayerStats(ctx context.Context, address string) (PlayerStats, error) {
	var out struct {
		Data PlayerStats `json:"data"`
	}
	err := c.do(ctx, http.MethodGet, "/api/player-stats/"+url.PathEscape(address), nil, &out)
	return out.Data, err
}

func (c *Client) UpdateStats(ctx context.Context, r StatsReport) error {
	return c.do(ctx, http.MethodPost, "/api/update-stats", r, nil)
}

func (c *Client) Leaderboard(ctx context.Context) ([]LeaderboardEntry, error) {
	var out struct {
		Entries []LeaderboardEntry `json:"entries"`
	}
	err := c.do(ctx, http.MethodGet, "/api/leaderboard", nil, &out)
	return out.Entries, err
}

// Balance returns the token balance as a decimal string ("30.0").
func (c *Client) Balance(ctx context.Context, address string) (string, error) {
	var out struct {
		Balance string `json:"balance"`
	}
	err := c.do(ctx, http.MethodGet, "/api/balance/"+url.PathEscape(address), nil, &out)
	return out.Balance, err
}

func (c *Client) Claims(ctx context.Context, address string, limit int) ([]Claim, error) {
	var out struct {
		Claims []Claim `json:"claims"`
	}
	path := "/api/claims/" + url.PathEscape(address)
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	err := c.do(ctx, http.MethodGet, path, nil, &out)
	return out.Claims, err
}

// Nonce starts wallet sign-in and returns the message to sign.
func (c *Client) Nonce(ctx context.Context, address string) (nonce, message string, err error) {
	var out struct {
		Nonce   string `json:"nonce"`
		Message string `json:"message"`
	}
	err = c.do(ctx, http.MethodPost, "/api/auth/nonce", map[string]any{"address": address}, &out)
	return out.Nonce, out.Message, err
}

// Verify completes sign-in. The returned token is not attached automatically.
func (c *Client) Verify(ctx context.Context, address, signature string) (string, time.Time, error) {
	var out struct {
		Token     string    `json:"token"`
		ExpiresAt time.Time `json:"expiresAt"`
	}
	err := c.do(ctx, http.MethodPost, "/api/auth/verify",
		map[string]any{"address": address, "signature": signature}, &out)
	return out.Token, out.ExpiresAt, err
}

type envelope struct {
	Success bool   `json:"success"`
	Error   string `json:"error"`
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("api: encode %s: %w", path, err)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base+path, body)
	if err != nil {
		return fmt.Errorf("api: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")
	c.mu.RLock()
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	c.mu.RUnlock()

	res, err := c.hc.Do(req)
	if err != nil {
		return fmt.Errorf("api: %s %s: %w", method, path, err)
	}
	defer res.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return fmt.Errorf("api: read %s: %w", path, err)
	}

	var env envelope
	if jsonErr := json.Unmarshal(raw, &env); jsonErr != nil {
		if res.StatusCode >= 400 {
			return &Error{Status: res.StatusCode, Message: http.StatusText(res.StatusCode)}
		}
		return fmt.Errorf("api: decode %s: %w", path, jsonErr)
	}
	if res.StatusCode >= 400 || !env.Success {
		msg := env.Error
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		return &Error{Status: res.StatusCode, Message: msg}
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return fmt.Errorf("api: decode %s: %w", path, err)
		}
	}
	return nil
}
