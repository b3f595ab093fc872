package api

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/idilsaglam/simpletodo/internal/logger"
	"github.com/idilsaglam/simpletodo/internal/metrics"
	"github.com/idilsaglam/simpletodo/internal/model"
)

// maxErrorBody bounds how much of a failed response is kept in StatusError.
const maxErrorBody = 512

// ErrEmptyResponse is returned when a 2xx response that must carry an item has no body.
var ErrEmptyResponse = errors.New("empty response body")

// Client talks to the todo backend.
type Client struct {
	base  *url.URL
	http  *http.Client
	token string
}

type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-request timeout of the default http.Client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.http.Timeout = d }
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// New creates a client for the backend rooted at baseURL.
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, errors.Wrapf(err, "parsing base url %q failed", baseURL)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, errors.Errorf("base url %q is not absolute", baseURL)
	}
	c := &Client{base: u, http: &http.Client{Timeout: 10 * time.Second}}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

// List fetches all items.
func (c *Client) List(ctx context.Context) ([]model.Todo, error) {
	var todos []model.Todo
	if err := c.do(ctx, http.MethodGet, "todos", nil, &todos); err != nil && !errors.Is(err, ErrEmptyResponse) {
		return nil, err
	}
	if todos == nil {
		todos = []model.Todo{}
	}
	return todos, nil
}

// Create posts a new, not yet done item and returns it as stored by the backend.
func (c *Client) Create(ctx context.Context, text string) (model.Todo, error) {
	var created model.Todo
	if err := c.do(ctx, http.MethodPost, "todos", model.NewTodo{Todo: text, Done: false}, &created); err != nil {
		return model.Todo{}, err
	}
	return created, nil
}

// Update replaces the item with the given one.
func (c *Client) Update(ctx context.Context, t model.Todo) (model.Todo, error) {
	updated := t
	err := c.do(ctx, http.MethodPut, "todos/"+strconv.Itoa(t.ID), t, &updated)
	if errors.Is(err, ErrEmptyResponse) {
		return t, nil
	}
	if err != nil {
		return model.Todo{}, err
	}
	return updated, nil
}

// Delete removes the item. Any 2xx counts as acknowledgement.
func (c *Client) Delete(ctx context.Context, id int) error {
	return c.do(ctx, http.MethodDelete, "todos/"+strconv.Itoa(id), nil, nil)
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	u := c.base.JoinPath(path)
	log := logger.With(logrus.Fields{
		"method":     method,
		"url":        u.String(),
		"request_id": uuid.NewString(),
	})

	var body io.Reader
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return errors.Wrapf(err, "encoding %s %s body failed", method, path)
		}
		body = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u.String(), body)
	if err != nil {
		return errors.Wrapf(err, "building %s %s failed", method, path)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", log.Data["request_id"].(string))
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	start := time.Now()
	res, err := c.http.Do(req)
	metrics.APIDuration.WithLabelValues(method).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.APIRequests.WithLabelValues(method, "error").Inc()
		log.WithError(err).Warn("request failed")
		return errors.Wrapf(err, "%s %s failed", method, path)
	}
	defer res.Body.Close()
	metrics.APIRequests.WithLabelValues(method, strconv.Itoa(res.StatusCode)).Inc()
	log = log.WithField("status", res.StatusCode)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		log.Warn("unexpected status")
		return &StatusError{
			Method:     method,
			Path:       "/" + path,
			StatusCode: res.StatusCode,
			Body:       strings.TrimSpace(string(b)),
		}
	}
	log.Debug("request done")

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}
	raw, err := io.ReadAll(res.Body)
	if err != nil {
		return errors.Wrapf(err, "reading %s %s response failed", method, path)
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return errors.Wrapf(ErrEmptyResponse, "%s %s", method, path)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return errors.Wrapf(err, "decoding %s %s response failed", method, path)
	}
	return nil
}
