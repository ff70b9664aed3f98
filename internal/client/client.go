// Package client is a typed HTTP client for the NutriTrack API.
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

	"github.com/harrylevesque/nutritrack/internal/models"
)

// DefaultBaseURL is used when no server is configured.
const DefaultBaseURL = "http://localhost:8080"

// Error is a non-2xx API response.
type Error struct {
	Status  int
	Message string
}

func (e *Error) Error() string {
	return fmt.Sprintf("status %d: %s", e.Status, e.Message)
}

// IsStatus reports whether err is an API error with the given status.
func IsStatus(err error, status int) bool {
	var apiErr *Error
	return errors.As(err, &apiErr) && apiErr.Status == status
}

type Client struct {
	baseURL string
	http    *http.Client
	token   string
}

type Option func(*Client)

// WithHTTPClient replaces the default client, which has a 15s timeout.
func WithHTTPClient(h *http.Client) Option { return func(c *Client) { c.http = h } }

// WithToken sets the bearer token sent with every request.
func WithToken(token string) Option { return func(c *Client) { c.token = token } }

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: 15 * time.Second},
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) SetToken(token string) { c.token = token }

func (c *Client) Token() string { return c.token }

// do sends in as JSON when non-nil and decodes the response into out when
// non-nil.
func (c *Client) do(ctx context.Context, method, path string, query url.Values, in, out any) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
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
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var e struct {
			Error string `json:"error"`
		}
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		return &Error{Status: resp.StatusCode, Message: msg}
	}
	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type Health struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
	Time    string `json:"time"`
}

func (c *Client) Health(ctx context.Context) (*Health, error) {
	var h Health
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil, &h); err != nil {
		return nil, err
	}
	return &h, nil
}

// Register creates an account and keeps the returned token.
func (c *Client) Register(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	return c.authenticate(ctx, "/api/v1/auth/register", email, password)
}

// Login keeps the returned token for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*models.TokenResponse, error) {
	return c.authenticate(ctx, "/api/v1/auth/login", email, password)
}

func (c *Client) authenticate(ctx context.Context, path, email, password string) (*models.TokenResponse, error) {
	var tok models.TokenResponse
	err := c.do(ctx, http.MethodPost, path, nil, models.CredentialsRequest{Email: email, Password: password}, &tok)
	if err != nil {
		return nil, err
	}
	c.token = tok.Token
	return &tok, nil
}

// Logout revokes the current token and forgets it.
func (c *Client) Logout(ctx context.Context) error {
	if err := c.do(ctx, http.MethodPost, "/api/v1/auth/logout", nil, nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) Onboard(ctx context.Context, req models.CreateUserRequest) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPost, "/api/v1/users", nil, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) Me(ctx context.Context) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, nil, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateMe(ctx context.Context, req models.UpdateUserRequest) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/me", nil, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateGoals(ctx context.Context, req models.UpdateGoalsRequest) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/me/goals", nil, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

func (c *Client) UpdateSettings(ctx context.Context, req models.UpdateSettingsRequest) (*models.User, error) {
	var u models.User
	if err := c.do(ctx, http.MethodPut, "/api/v1/users/me/settings", nil, req, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// DeleteMe removes the profile and account. The token stops working.
func (c *Client) DeleteMe(ctx context.Context) error {
	if err := c.do(ctx, http.MethodDelete, "/api/v1/users/me", nil, nil, nil); err != nil {
		return err
	}
	c.token = ""
	return nil
}

func (c *Client) SearchFoods(ctx context.Context, req models.FoodSearchRequest) (*models.FoodSearchResponse, error) {
	q := url.Values{}
	if req.Query != "" {
		q.Set("q", req.Query)
	}
	if req.Category != "" {
		q.Set("category", req.Category)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Offset > 0 {
		q.Set("offset", strconv.Itoa(req.Offset))
	}
	var res models.FoodSearchResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/foods", q, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) GetFood(ctx context.Context, id string) (*models.Food, error) {
	var f models.Food
	if err := c.do(ctx, http.MethodGet, "/api/v1/foods/"+url.PathEscape(id), nil, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) FoodByBarcode(ctx context.Context, code string) (*models.Food, error) {
	var f models.Food
	if err := c.do(ctx, http.MethodGet, "/api/v1/foods/barcode/"+url.PathEscape(code), nil, nil, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) FoodsByCategory(ctx context.Context, category string) (*models.FoodCategoryResponse, error) {
	var res models.FoodCategoryResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/foods/category/"+url.PathEscape(category), nil, nil, &res); err != nil {
		return nil, err
	}
	return &res, nil
}

func (c *Client) CreateFood(ctx context.Context, req models.CreateFoodRequest) (*models.Food, error) {
	var f models.Food
	if err := c.do(ctx, http.MethodPost, "/api/v1/foods", nil, req, &f); err != nil {
		return nil, err
	}
	return &f, nil
}

func (c *Client) CreateMeal(ctx context.Context, req models.CreateMealRequest) (*models.Meal, error) {
	var m models.Meal
	if err := c.do(ctx, http.MethodPost, "/api/v1/meals", nil, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) ListMeals(ctx context.Context, f models.MealFilter) ([]*models.Meal, error) {
	q := url.Values{}
	for k, v := range map[string]string{"date": f.Date, "from": f.From, "to": f.To, "mealType": f.MealType} {
		if v != "" {
			q.Set(k, v)
		}
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var res models.MealListResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/meals", q, nil, &res); err != nil {
		return nil, err
	}
	return res.Meals, nil
}

func (c *Client) UpdateMeal(ctx context.Context, id string, req models.UpdateMealRequest) (*models.Meal, error) {
	var m models.Meal
	if err := c.do(ctx, http.MethodPut, "/api/v1/meals/"+url.PathEscape(id), nil, req, &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (c *Client) DeleteMeal(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/v1/meals/"+url.PathEscape(id), nil, nil, nil)
}

// DailyLog returns one day with its meals and, after onboarding, progress.
func (c *Client) DailyLog(ctx context.Context, date string) (*models.DailyLog, error) {
	var l models.DailyLog
	if err := c.do(ctx, http.MethodGet, "/api/v1/daily-logs/"+url.PathEscape(date), nil, nil, &l); err != nil {
		return nil, err
	}
	return &l, nil
}

func (c *Client) DailyLogs(ctx context.Context, f models.DailyLogFilter) ([]*models.DailyLog, error) {
	q := url.Values{}
	if f.From != "" {
		q.Set("from", f.From)
	}
	if f.To != "" {
		q.Set("to", f.To)
	}
	if f.Limit > 0 {
		q.Set("limit", strconv.Itoa(f.Limit))
	}
	var res models.DailyLogsResponse
	if err := c.do(ctx, http.MethodGet, "/api/v1/daily-logs", q, nil, &res); err != nil {
		return nil, err
	}
	return res.Logs, nil
}
