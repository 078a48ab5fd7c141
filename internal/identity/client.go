package identity

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"turnos/shift-service/internal/models"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// Client talks to the external identity service over HTTP.
type Client struct {
	baseURL string
	http    *http.Client
}

func NewClient(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http: &http.Client{
			Timeout:   10 * time.Second,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		},
	}
}

// UserByNumberID fetches the user record used for login bootstrapping;
// it is the only lookup that returns the password field.
func (c *Client) UserByNumberID(ctx context.Context, id string) (models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/user-service/users/by-number-id/"+id, "", &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (c *Client) UserByID(ctx context.Context, id, token string) (models.User, error) {
	var user models.User
	if err := c.getJSON(ctx, "/user-service/users/"+id, token, &user); err != nil {
		return models.User{}, err
	}
	return user, nil
}

func (c *Client) Users(ctx context.Context, token string) ([]models.User, error) {
	var users []models.User
	if err := c.getJSON(ctx, "/user-service/users", token, &users); err != nil {
		return nil, err
	}
	return users, nil
}

// loginResponse tolerates both response shapes the identity service has
// shipped: the bare {token} one and {authenticated, user, token, message}.
type loginResponse struct {
	Authenticated bool        `json:"authenticated"`
	User          models.User `json:"user"`
	Token         string      `json:"token"`
	Message       string      `json:"message"`
}

func (c *Client) Login(ctx context.Context, userName, password string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"userName": userName,
		"password": password,
	})
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/user-service/login", bytes.NewReader(payload))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return "", fmt.Errorf("%w: login status %d", ErrNoToken, resp.StatusCode)
	}

	var body loginResponse
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return "", fmt.Errorf("decode login response: %w", err)
	}
	if body.Token == "" {
		return "", ErrNoToken
	}
	return body.Token, nil
}

func (c *Client) getJSON(ctx context.Context, path, token string, target interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return err
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNotFound {
		return ErrUserNotFound
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("%w: status %d for %s", ErrUnavailable, resp.StatusCode, path)
	}
	return json.NewDecoder(resp.Body).Decode(target)
}
