// Package client talks to the icarus API and keeps the view state a front end renders.
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
	"strconv"
	"strings"
	"time"
)

const DefaultTimeout = 10 * time.Second

// ErrNotAuthenticated means there is no usable session; the caller has to log in again.
var ErrNotAuthenticated = errors.New("not authenticated")

// APIError is a non-2xx answer from the server.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("status %d", e.Status)
	}
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

func (e *APIError) Is(target error) bool {
	return target == ErrNotAuthenticated && e.Status == http.StatusUnauthorized
}

// Entry mirrors the server entry. ProteinAmount is kept loose (json.Number or string) and
// read through Amount.
type Entry struct {
	ID            string    `json:"_id"`
	MealName      string    `json:"mealName"`
	ProteinAmount any       `json:"proteinAmount"`
	CreatedAt     time.Time `json:"createdAt"`
}

type DayTotal struct {
	Date         string  `json:"date"`
	TotalProtein float64 `json:"totalProtein"`
	Entries      int     `json:"entries"`
}

type History struct {
	ReferenceDate string     `json:"referenceDate"`
	ProteinGoal   string     `json:"proteinGoal"`
	Days          []DayTotal `json:"days"`
}

// NewEntry is an entry to add or import. Time is optional: RFC 3339 or YYYY-MM-DD.
type NewEntry struct {
	MealName      string `json:"mealName"`
	ProteinAmount string `json:"proteinAmount"`
	Time          string `json:"time,omitempty"`
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
	now     func() time.Time
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock sets the clock whose local time is sent as "today".
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

func New(baseURL string, timeout time.Duration, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) SetToken(token string) { c.token = token }
func (c *Client) Token() string         { return c.token }

func (c *Client) Signup(ctx context.Context, email, username, password string) error {
	body := map[string]string{"email": email, "username": username, "password": password}
	return c.do(ctx, http.MethodPost, "/signup", nil, body, nil)
}

// Login stores the returned token on the client and returns it.
func (c *Client) Login(ctx context.Context, email, password string) (string, error) {
	var out struct {
		Success bool   `json:"success"`
		Token   string `json:"token"`
		Message string `json:"message"`
	}
	body := map[string]string{"email": email, "password": password}
	if err := c.do(ctx, http.MethodPost, "/login", nil, body, &out); err != nil {
		return "", err
	}
	if !out.Success || out.Token == "" {
		return "", &APIError{Status: http.StatusUnauthorized, Message: out.Message}
	}
	c.token = out.Token
	return out.Token, nil
}

func (c *Client) Logout(ctx context.Context) error {
	err := c.do(ctx, http.MethodPost, "/logout", nil, nil, nil)
	c.token = ""
	return err
}

// Verify returns the username behind the current token.
func (c *Client) Verify(ctx context.Context) (string, error) {
	if c.token == "" {
		return "", ErrNotAuthenticated
	}
	var out struct {
		Status bool   `json:"status"`
		User   string `json:"user"`
	}
	if err := c.do(ctx, http.MethodPost, "/", nil, nil, &out); err != nil {
		return "", err
	}
	if !out.Status {
		return "", ErrNotAuthenticated
	}
	return out.User, nil
}

func (c *Client) GetGoal(ctx context.Context) (string, error) {
	var out struct {
		ProteinGoal string `json:"proteinGoal"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/getProteinGoal", nil, nil, &out); err != nil {
		return "", err
	}
	return out.ProteinGoal, nil
}

func (c *Client) SetGoal(ctx context.Context, goal string) error {
	return c.do(ctx, http.MethodPost, "/user/updateProteinGoal", nil, map[string]string{"proteinGoal": goal}, nil)
}

func (c *Client) AddEntry(ctx context.Context, e NewEntry) (*Entry, error) {
	var out Entry
	if err := c.do(ctx, http.MethodPost, "/user/addEntry", nil, e, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) DeleteEntry(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/user/deleteEntry/"+url.PathEscape(id), nil, nil, nil)
}

func (c *Client) TodayEntries(ctx context.Context) ([]Entry, error) {
	var out struct {
		TodaysEntries []Entry `json:"todaysEntries"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/getTodaysEntries", c.today(), nil, &out); err != nil {
		return nil, err
	}
	return out.TodaysEntries, nil
}

func (c *Client) TodaySum(ctx context.Context) (float64, error) {
	var out struct {
		TotalProteinToday float64 `json:"totalProteinToday"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/sumTodaysEntries", c.today(), nil, &out); err != nil {
		return 0, err
	}
	return out.TotalProteinToday, nil
}

func (c *Client) PastEntries(ctx context.Context) ([]Entry, error) {
	var out struct {
		PastEntries []Entry `json:"pastEntries"`
	}
	if err := c.do(ctx, http.MethodGet, "/user/getAllPastEntries", c.today(), nil, &out); err != nil {
		return nil, err
	}
	return out.PastEntries, nil
}

// Import sends all entries in one request; the server stores all of them or none.
func (c *Client) Import(ctx context.Context, list []NewEntry) (int, error) {
	var out struct {
		Imported int `json:"imported"`
	}
	body := map[string]any{"entries": list}
	if err := c.do(ctx, http.MethodPost, "/user/importEntries", nil, body, &out); err != nil {
		return 0, err
	}
	return out.Imported, nil
}

// DailyTotals fetches per-day totals; days <= 0 leaves the choice to the server default.
func (c *Client) DailyTotals(ctx context.Context, days int) (*History, error) {
	q := c.today()
	if days > 0 {
		q.Set("days", strconv.Itoa(days))
	}
	var out History
	if err := c.do(ctx, http.MethodGet, "/user/dailyTotals", q, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// today is the "time" parameter naming the caller's local now.
func (c *Client) today() url.Values {
	return url.Values{"time": {c.now().Format(time.RFC3339)}}
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, method, u, body)
	if err != nil {
		return err
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		var msg struct {
			Message string `json:"message"`
		}
		_ = json.Unmarshal(raw, &msg)
		if msg.Message == "" {
			msg.Message = strings.TrimSpace(string(raw))
		}
		return &APIError{Status: resp.StatusCode, Message: msg.Message}
	}

	if out == nil || len(raw) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	return dec.Decode(out)
}
