// Package remote is the HTTP client for the remote alignment authority.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/roach88/aligner/internal/model"
)

const defaultTimeout = 30 * time.Second

// Client talks to the authority's /api/projects endpoints. Any status other
// than 200 or 201, and any transport error, is a TransportFailure.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithToken sends "Authorization: Bearer <token>" on every request.
func WithToken(token string) Option {
	return func(c *Client) { c.token = token }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.log = l }
}

// New creates a Client for baseURL, e.g. "http://localhost:8080".
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.log = c.log.With("adapter", "remote")
	return c
}

// ProjectPayload registers a project with the authority.
type ProjectPayload struct {
	ID      string         `json:"id"`
	Name    string         `json:"name"`
	Corpora []model.Corpus `json:"corpora"`
}

type linksPage struct {
	Links []model.ServerLink `json:"links"`
}

// PatchJournal uploads journal entries in one request.
func (c *Client) PatchJournal(ctx context.Context, projectID string, entries []model.JournalEntryDTO) error {
	body, err := json.Marshal(entries)
	if err != nil {
		return fmt.Errorf("remote: encode journal: %w", err)
	}
	resp, err := c.do(ctx, "remote.patch", http.MethodPatch, c.linksPath(projectID), nil, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	c.log.DebugContext(ctx, "journal uploaded", slog.String("project", projectID), slog.Int("entries", len(entries)))
	return nil
}

// FetchLinks reads one page of the authority's links. Pages start at 0.
func (c *Client) FetchLinks(ctx context.Context, projectID string, page, limit int) ([]model.ServerLink, error) {
	q := url.Values{}
	q.Set("page", strconv.Itoa(page))
	q.Set("limit", strconv.Itoa(limit))
	resp, err := c.do(ctx, "remote.fetch", http.MethodGet, c.linksPath(projectID), q, nil)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, model.NewError(model.ErrCodeTransportFailure, "remote.fetch", "read body", err)
	}
	var p linksPage
	if err := json.Unmarshal(raw, &p); err != nil {
		return nil, model.NewError(model.ErrCodeTransportFailure, "remote.fetch", "decode links", err)
	}
	return p.Links, nil
}

// CreateProject registers a project before its first alignment sync.
func (c *Client) CreateProject(ctx context.Context, p ProjectPayload) error {
	body, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("remote: encode project: %w", err)
	}
	resp, err := c.do(ctx, "remote.create_project", http.MethodPost, "/api/projects", nil, body)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (c *Client) linksPath(projectID string) string {
	return "/api/projects/" + url.PathEscape(projectID) + "/alignment_links"
}

func (c *Client) do(ctx context.Context, op, method, path string, query url.Values, body []byte) (*http.Response, error) {
	reqURL := c.baseURL + path
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, reqURL, reader)
	if err != nil {
		return nil, fmt.Errorf("%s: create request: %w", op, err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		c.log.ErrorContext(ctx, "request failed", slog.String("op", op), slog.String("error", err.Error()))
		return nil, model.NewError(model.ErrCodeTransportFailure, op, method+" "+path, err)
	}
	if resp.StatusCode != http.StatusOK && resp.StatusCode != http.StatusCreated {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		c.log.WarnContext(ctx, "unexpected status",
			slog.String("op", op), slog.Int("status", resp.StatusCode), slog.String("body", string(snippet)))
		return nil, model.NewError(model.ErrCodeTransportFailure, op,
			fmt.Sprintf("%s %s: unexpected status %d", method, path, resp.StatusCode), nil)
	}
	return resp, nil
}
