// Package api is the HTTP backend. It speaks to a JSON CRUD API exposing the
// collection under /items and registers itself with the crud core as "http".
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
	"time"

	"github.com/fbz-tec/crudx/core/config"
	"github.com/fbz-tec/crudx/core/crud"
	"github.com/fbz-tec/crudx/core/model"
	"github.com/fbz-tec/crudx/internal/logger"
	"github.com/google/uuid"
)

const (
	itemsPath = "items"

	optToken = "token"
	optProbe = "probe"

	// maxErrorBody caps how much of an error response is read for its message.
	maxErrorBody = 64 * 1024
)

// item is the wire form of a user. ID and Age are omitted when unset so a
// create request carries only what the caller supplied.
type item struct {
	ID   *int64 `json:"id,omitempty"`
	Name string `json:"name"`
	Age  *int   `json:"age,omitempty"`
}

func (it item) user() model.User {
	u := model.User{Name: it.Name}
	if it.ID != nil {
		u.ID = *it.ID
	}
	if it.Age != nil {
		u.Age = *it.Age
	}
	return u
}

func fromUser(u model.User) item {
	id, age := u.ID, u.Age
	return item{ID: &id, Name: u.Name, Age: &age}
}

// Client is the HTTP backend.
type Client struct {
	base     *url.URL
	http     *http.Client
	user     string
	password string
	token    string
}

func init() {
	crud.MustRegister("http", Open)
}

// Open builds a Client for cfg.Endpoint and, unless the probe option is false,
// checks that GET /items answers with JSON.
func Open(ctx context.Context, cfg config.ConnectionConfig) (crud.Backend, error) {
	c, err := NewClient(cfg)
	if err != nil {
		return nil, err
	}

	if cfg.BoolOption(optProbe, true) {
		if err := c.probe(ctx); err != nil {
			c.Close()
			return nil, err
		}
	}
	return c, nil
}

// NewClient validates the endpoint and prepares a Client without contacting
// the server.
func NewClient(cfg config.ConnectionConfig) (*Client, error) {
	base, err := url.Parse(strings.TrimSpace(cfg.Endpoint))
	if err != nil {
		return nil, fmt.Errorf("%w: invalid endpoint: %w", crud.ErrProtocolMismatch, err)
	}
	if base.Scheme != "http" && base.Scheme != "https" {
		return nil, fmt.Errorf("%w: endpoint scheme must be http or https, got %q", crud.ErrProtocolMismatch, base.Scheme)
	}
	if base.Host == "" {
		return nil, fmt.Errorf("%w: endpoint %q has no host", crud.ErrProtocolMismatch, cfg.Endpoint)
	}
	if !strings.HasSuffix(base.Path, "/") {
		base.Path += "/"
	}

	user, password := cfg.Credentials.User, cfg.Credentials.Password
	if base.User != nil {
		// userinfo in the endpoint becomes basic auth so it never reaches logged URLs
		if user == "" {
			user = base.User.Username()
			password, _ = base.User.Password()
		}
		base.User = nil
	}

	return &Client{
		base:     base,
		http:     &http.Client{Timeout: cfg.Timeout},
		user:     user,
		password: password,
		token:    cfg.Option(optToken, ""),
	}, nil
}

func (c *Client) probe(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, c.collectionURL(), nil)
	if err != nil {
		return fmt.Errorf("%w: %w", crud.ErrUnreachable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized, resp.StatusCode == http.StatusForbidden:
		return fmt.Errorf("%w: %s", crud.ErrAuthFailed, resp.Status)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return fmt.Errorf("%w: probe returned %s", crud.ErrProtocolMismatch, resp.Status)
	}

	var items []item
	if err := json.NewDecoder(resp.Body).Decode(&items); err != nil {
		return fmt.Errorf("%w: probe response is not a JSON item list: %w", crud.ErrProtocolMismatch, err)
	}
	logger.Debug("Endpoint probe successful (%d items)", len(items))
	return nil
}

func (c *Client) Create(ctx context.Context, name string, age int) (model.User, error) {
	body := item{Name: name, Age: &age}
	var created item
	if err := c.roundTrip(ctx, http.MethodPost, c.collectionURL(), body, &created); err != nil {
		return model.User{}, err
	}
	if created.ID == nil {
		return model.User{}, fmt.Errorf("%w: created item has no id", crud.ErrDecode)
	}
	return created.user(), nil
}

func (c *Client) ReadAll(ctx context.Context) ([]model.User, error) {
	var items []item
	if err := c.roundTrip(ctx, http.MethodGet, c.collectionURL(), nil, &items); err != nil {
		return nil, err
	}

	users := make([]model.User, len(items))
	for i, it := range items {
		users[i] = it.user()
	}
	return users, nil
}

func (c *Client) Get(ctx context.Context, id int64) (model.User, error) {
	var it item
	if err := c.roundTrip(ctx, http.MethodGet, c.itemURL(id), nil, &it); err != nil {
		return model.User{}, err
	}
	return it.user(), nil
}

// Update reads the current item so the PUT carries the full record, then
// replaces its age.
func (c *Client) Update(ctx context.Context, id int64, age int) (model.User, error) {
	current, err := c.Get(ctx, id)
	if err != nil {
		return model.User{}, err
	}
	current.ID = id
	current.Age = age

	var updated item
	err = c.roundTrip(ctx, http.MethodPut, c.itemURL(id), fromUser(current), &updated)
	if errors.Is(err, crud.ErrDecode) {
		// some APIs answer a PUT with an empty or non-item body
		return current, nil
	}
	if err != nil {
		return model.User{}, err
	}
	if updated.ID == nil || updated.Age == nil {
		return current, nil
	}
	return updated.user(), nil
}

func (c *Client) Delete(ctx context.Context, id int64) error {
	return c.roundTrip(ctx, http.MethodDelete, c.itemURL(id), nil, nil)
}

// Close drops idle keep-alive connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}

func (c *Client) collectionURL() string {
	return c.base.JoinPath(itemsPath).String()
}

func (c *Client) itemURL(id int64) string {
	return c.base.JoinPath(itemsPath, strconv.FormatInt(id, 10)).String()
}

// roundTrip sends in (if any) as JSON and decodes a 2xx response into out
// (if any).
func (c *Client) roundTrip(ctx context.Context, method, target string, in, out any) error {
	var body io.Reader
	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	resp, err := c.do(ctx, method, target, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if err := statusError(resp); err != nil {
		return err
	}
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: %s %s: %w", crud.ErrDecode, method, target, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, target string, body io.Reader) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, method, target, body)
	if err != nil {
		return nil, err
	}

	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	} else if c.user != "" {
		req.SetBasicAuth(c.user, c.password)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	logger.Debug("%s %s -> %s in %v", method, target, resp.Status, time.Since(start))
	return resp, nil
}

// statusError turns a non-2xx response into an error, preferring the message
// the server put in its body.
func statusError(resp *http.Response) error {
	if resp.StatusCode >= 200 && resp.StatusCode <= 299 {
		return nil
	}

	msg := resp.Status
	var payload struct {
		Error   string `json:"error"`
		Detail  any    `json:"detail"`
		Message string `json:"message"`
	}
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxErrorBody)).Decode(&payload); err == nil {
		switch {
		case payload.Error != "":
			msg = payload.Error
		case payload.Message != "":
			msg = payload.Message
		case payload.Detail != nil:
			msg = fmt.Sprint(payload.Detail)
		}
	}

	switch resp.StatusCode {
	case http.StatusNotFound:
		return fmt.Errorf("%w: %s", crud.ErrNotFound, msg)
	case http.StatusBadRequest, http.StatusUnprocessableEntity:
		return fmt.Errorf("%w: %s", crud.ErrValidation, msg)
	default:
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
}
