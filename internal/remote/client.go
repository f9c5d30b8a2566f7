// Package remote implements domain.RemoteStore against the taskmate HTTP API.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/msomdec/taskmate/internal/domain"
	"golang.org/x/oauth2"
)

// Client talks to the backend over HTTP. Authenticated calls carry the stored
// session's access token as a bearer credential.
type Client struct {
	baseURL  *url.URL
	timeout  time.Duration
	http     *http.Client
	sessions SessionStore
	now      func() time.Time
}

var _ domain.RemoteStore = (*Client)(nil)

// Option customises a Client.
type Option func(*Client)

// WithHTTPClient sets the underlying HTTP client. Bearer auth is layered on
// top of its transport.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithClock replaces time.Now for session expiry checks.
func WithClock(now func() time.Time) Option {
	return func(c *Client) { c.now = now }
}

// New creates a Client for the API rooted at baseURL. Each call is bounded by
// timeout when it is positive.
func New(baseURL string, timeout time.Duration, sessions SessionStore, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse server url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("server url %q must be http or https", baseURL)
	}

	c := &Client{
		baseURL:  u,
		timeout:  timeout,
		http:     http.DefaultClient,
		sessions: sessions,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// GetSession returns the stored session. An expired session is discarded and
// reported as no session.
func (c *Client) GetSession(ctx context.Context) (*domain.Session, error) {
	session, err := c.sessions.Load()
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, nil
	}
	if session.Expired(c.now()) {
		slog.Debug("discarding expired session", "expires_at", session.ExpiresAt)
		if err := c.sessions.Clear(); err != nil {
			return nil, err
		}
		return nil, nil
	}
	return session, nil
}

func (c *Client) SignInWithPassword(ctx context.Context, email, password string) (*domain.Session, error) {
	return c.authenticate(ctx, "sign in", "/auth/v1/token?grant_type=password",
		credentialsBody{Email: email, Password: password})
}

func (c *Client) SignUp(ctx context.Context, email, password string, metadata map[string]string) (*domain.Session, error) {
	return c.authenticate(ctx, "sign up", "/auth/v1/signup",
		credentialsBody{Email: email, Password: password, Data: metadata})
}

// SignOut revokes the token on the server and always forgets it locally.
func (c *Client) SignOut(ctx context.Context) error {
	hc, err := c.authedClient(ctx)
	if errors.Is(err, domain.ErrNoSession) {
		return nil
	}
	if err != nil {
		return err
	}

	remoteErr := c.do(ctx, hc, http.MethodPost, "/auth/v1/logout", nil, nil, nil)
	if err := c.sessions.Clear(); err != nil {
		return errors.Join(remoteErr, err)
	}
	if remoteErr != nil {
		return fmt.Errorf("sign out: %w", remoteErr)
	}
	return nil
}

func (c *Client) authenticate(ctx context.Context, op, path string, body credentialsBody) (*domain.Session, error) {
	var resp sessionBody
	if err := c.do(ctx, c.http, http.MethodPost, path, body, &resp, nil); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Message != "" {
			return nil, &domain.AuthError{Op: op, Message: apiErr.Message, Err: err}
		}
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	if resp.AccessToken == "" || resp.User == nil {
		return nil, fmt.Errorf("%s: response carried no session", op)
	}

	session := resp.toSession(c.now())
	if err := c.sessions.Save(session); err != nil {
		return nil, err
	}
	return session, nil
}

func (c *Client) GetProfile(ctx context.Context, id string) (*domain.ProfileRecord, error) {
	hc, err := c.authedClient(ctx)
	if err != nil {
		return nil, err
	}

	var rows []domain.ProfileRecord
	q := url.Values{"id": {"eq." + id}, "select": {"*"}}
	if err := c.do(ctx, hc, http.MethodGet, "/rest/v1/profiles?"+q.Encode(), nil, &rows, nil); err != nil {
		return nil, fmt.Errorf("get profile: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrNotFound
	}
	return &rows[0], nil
}

func (c *Client) InsertProfile(ctx context.Context, rec *domain.ProfileRecord) error {
	return c.writeProfile(ctx, rec, nil)
}

func (c *Client) UpsertProfile(ctx context.Context, rec *domain.ProfileRecord) error {
	return c.writeProfile(ctx, rec, http.Header{"Prefer": {"resolution=merge-duplicates"}})
}

func (c *Client) writeProfile(ctx context.Context, rec *domain.ProfileRecord, header http.Header) error {
	hc, err := c.authedClient(ctx)
	if err != nil {
		return err
	}
	if err := c.do(ctx, hc, http.MethodPost, "/rest/v1/profiles", rec, nil, header); err != nil {
		return fmt.Errorf("write profile: %w", err)
	}
	return nil
}

func (c *Client) ListTasks(ctx context.Context, filter domain.TaskFilter) ([]domain.Task, error) {
	hc, err := c.authedClient(ctx)
	if err != nil {
		return nil, err
	}

	q := filterQuery(filter)
	q.Set("select", "*")
	q.Set("order", "created_at.desc")

	var tasks []domain.Task
	if err := c.do(ctx, hc, http.MethodGet, "/rest/v1/tasks?"+q.Encode(), nil, &tasks, nil); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	if tasks == nil {
		tasks = []domain.Task{}
	}
	return tasks, nil
}

func (c *Client) InsertTask(ctx context.Context, task *domain.Task) error {
	hc, err := c.authedClient(ctx)
	if err != nil {
		return err
	}

	body := taskInsertBody{UserID: task.OwnerID, Title: task.Title, IsCompleted: task.Completed}
	var rows []domain.Task
	if err := c.do(ctx, hc, http.MethodPost, "/rest/v1/tasks", body, &rows, nil); err != nil {
		return fmt.Errorf("insert task: %w", err)
	}
	if len(rows) == 1 {
		*task = rows[0]
	}
	return nil
}

func (c *Client) UpdateTasks(ctx context.Context, filter domain.TaskFilter, patch domain.TaskPatch) error {
	hc, err := c.authedClient(ctx)
	if err != nil {
		return err
	}

	body := taskPatchBody{Title: patch.Title, IsCompleted: patch.Completed}
	path := "/rest/v1/tasks?" + filterQuery(filter).Encode()
	if err := c.do(ctx, hc, http.MethodPatch, path, body, nil, nil); err != nil {
		return fmt.Errorf("update tasks: %w", err)
	}
	return nil
}

func (c *Client) DeleteTasks(ctx context.Context, filter domain.TaskFilter) error {
	hc, err := c.authedClient(ctx)
	if err != nil {
		return err
	}

	path := "/rest/v1/tasks?" + filterQuery(filter).Encode()
	if err := c.do(ctx, hc, http.MethodDelete, path, nil, nil, nil); err != nil {
		return fmt.Errorf("delete tasks: %w", err)
	}
	return nil
}

// CountTasks issues a HEAD request and reads the total from Content-Range.
func (c *Client) CountTasks(ctx context.Context, filter domain.TaskFilter) (int, error) {
	hc, err := c.authedClient(ctx)
	if err != nil {
		return 0, err
	}

	var header http.Header
	path := "/rest/v1/tasks?" + filterQuery(filter).Encode()
	capture := func(resp *http.Response) { header = resp.Header }
	if err := c.doCapture(ctx, hc, http.MethodHead, path, nil, nil, http.Header{"Prefer": {"count=exact"}}, capture); err != nil {
		return 0, fmt.Errorf("count tasks: %w", err)
	}
	return parseContentRange(header.Get("Content-Range"))
}

// authedClient wraps the base HTTP client with the stored session's token.
func (c *Client) authedClient(ctx context.Context) (*http.Client, error) {
	session, err := c.GetSession(ctx)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, domain.ErrNoSession
	}

	src := oauth2.StaticTokenSource(&oauth2.Token{
		AccessToken: session.AccessToken,
		TokenType:   "Bearer",
	})
	return oauth2.NewClient(context.WithValue(ctx, oauth2.HTTPClient, c.http), src), nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any, header http.Header) error {
	return c.doCapture(ctx, hc, method, path, in, out, header, nil)
}

func (c *Client) doCapture(ctx context.Context, hc *http.Client, method, path string, in, out any, header http.Header, capture func(*http.Response)) error {
	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.String()+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	for k, vs := range header {
		for _, v := range vs {
			req.Header.Add(k, v)
		}
	}

	start := time.Now()
	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, req.URL.Path, err)
	}
	defer resp.Body.Close()
	slog.Debug("remote call", "method", method, "path", req.URL.Path, "status", resp.StatusCode, "duration", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if capture != nil {
		capture(resp)
	}
	if out == nil || resp.StatusCode == http.StatusNoContent || method == http.MethodHead {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	var body errorBody
	if json.Unmarshal(data, &body) == nil {
		apiErr.Code = body.Error
		apiErr.Message = body.Message
	}
	return apiErr
}

func filterQuery(filter domain.TaskFilter) url.Values {
	q := url.Values{}
	if filter.ID != nil {
		q.Set("id", "eq."+strconv.FormatInt(*filter.ID, 10))
	}
	if filter.OwnerID != "" {
		q.Set("user_id", "eq."+filter.OwnerID)
	}
	if filter.Completed != nil {
		q.Set("is_completed", "eq."+strconv.FormatBool(*filter.Completed))
	}
	return q
}

// parseContentRange reads the total from "<range>/<total>".
func parseContentRange(v string) (int, error) {
	_, total, ok := strings.Cut(v, "/")
	if !ok || total == "*" {
		return 0, fmt.Errorf("missing count in Content-Range %q", v)
	}
	n, err := strconv.Atoi(total)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("bad count in Content-Range %q", v)
	}
	return n, nil
}
