// Package megaplan implements the source-tracker client. The Megaplan API
// serves inconsistent field casing across installations, so all response
// parsing is tolerant: every field is read under its snake_case and legacy
// PascalCase names.
package megaplan

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/tidwall/gjson"

	"github.com/mesh-intelligence/opsync/pkg/types"
)

const (
	userAgent      = "opsync/0.1"
	requestTimeout = 30 * time.Second
)

// Client talks to the Megaplan REST API with Basic Auth.
type Client struct {
	baseURL  string
	username string
	password string
	pageSize int
	http     *http.Client
	log      *slog.Logger
}

// New builds a Client from credentials. pageSize bounds every list request.
func New(cfg types.MegaplanConfig, pageSize int, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:  strings.TrimRight(cfg.BaseURL, "/"),
		username: cfg.Username,
		password: cfg.Password,
		pageSize: pageSize,
		http:     &http.Client{Timeout: requestTimeout},
		log:      log,
	}
}

// Verify checks that the credentials are accepted by requesting one page of
// tasks.
func (c *Client) Verify(ctx context.Context) error {
	query := url.Values{"limit": {"1"}}
	body, err := c.get(ctx, "/tasks", query)
	if err != nil {
		return err
	}
	if !gjson.GetBytes(body, "data").Exists() {
		return &types.APIError{
			Service: "megaplan",
			Method:  http.MethodGet,
			URL:     c.baseURL + "/tasks",
			Status:  http.StatusOK,
			Body:    "response has no data envelope",
		}
	}
	return nil
}

// ListTasks returns every task of a project, walking the offset cursor the
// API hands back in data.next. A non-zero since narrows the listing to
// tasks updated at or after it.
func (c *Client) ListTasks(ctx context.Context, projectID string, since time.Time, includeClosed bool) ([]*types.Task, error) {
	var tasks []*types.Task
	offset := ""
	for {
		query := url.Values{
			"project": {projectID},
			"limit":   {fmt.Sprintf("%d", c.pageSize)},
		}
		if offset != "" {
			query.Set("offset", offset)
		}
		if !since.IsZero() {
			query.Set("updated_after", since.UTC().Format(time.RFC3339))
		}
		if includeClosed {
			query.Set("include_closed", "true")
		}

		body, err := c.get(ctx, "/tasks", query)
		if err != nil {
			return nil, err
		}

		items := gjson.GetBytes(body, "data.items")
		for _, item := range items.Array() {
			tasks = append(tasks, parseTask(item))
		}

		offset = gjson.GetBytes(body, "data.next").String()
		if offset == "" {
			return tasks, nil
		}
	}
}

// ListComments returns a task's comments.
func (c *Client) ListComments(ctx context.Context, taskID string) ([]types.Comment, error) {
	body, err := c.get(ctx, "/tasks/"+url.PathEscape(taskID)+"/comments", nil)
	if err != nil {
		return nil, err
	}
	var comments []types.Comment
	for _, item := range gjson.GetBytes(body, "data.items").Array() {
		comments = append(comments, parseComment(item))
	}
	return comments, nil
}

// ListAttachments returns a task's attachment descriptors. Payloads are
// fetched separately via FetchAttachment.
func (c *Client) ListAttachments(ctx context.Context, taskID string) ([]types.Attachment, error) {
	body, err := c.get(ctx, "/tasks/"+url.PathEscape(taskID)+"/files", nil)
	if err != nil {
		return nil, err
	}
	var attachments []types.Attachment
	for _, item := range gjson.GetBytes(body, "data.items").Array() {
		attachments = append(attachments, parseAttachment(item))
	}
	return attachments, nil
}

// FetchAttachment streams an attachment payload. The caller owns the
// returned reader and must close it.
func (c *Client) FetchAttachment(ctx context.Context, attachmentID string) (io.ReadCloser, error) {
	endpoint := "/files/" + url.PathEscape(attachmentID) + "/download"
	resp, err := c.send(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return resp.Body, nil
}

// FetchUsers resolves user profiles by their Megaplan IDs.
func (c *Client) FetchUsers(ctx context.Context, ids []string) ([]types.User, error) {
	query := url.Values{"ids": {strings.Join(ids, ",")}}
	body, err := c.get(ctx, "/users", query)
	if err != nil {
		return nil, err
	}
	var users []types.User
	for _, item := range gjson.GetBytes(body, "data.items").Array() {
		users = append(users, parseUser(item))
	}
	return users, nil
}

// get performs a GET and returns the fully-read response body.
func (c *Client) get(ctx context.Context, endpoint string, query url.Values) ([]byte, error) {
	resp, err := c.send(ctx, http.MethodGet, endpoint, query)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading megaplan response for %s: %w", endpoint, err)
	}
	return body, nil
}

// send issues one request and maps non-2xx statuses to *types.APIError. On
// success the caller owns resp.Body.
func (c *Client) send(ctx context.Context, method, endpoint string, query url.Values) (*http.Response, error) {
	reqURL := c.baseURL + endpoint
	if len(query) > 0 {
		reqURL += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, nil)
	if err != nil {
		return nil, fmt.Errorf("building megaplan request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.APIError{Service: "megaplan", Method: method, URL: reqURL, Err: err}
	}
	if resp.StatusCode >= 400 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		resp.Body.Close()
		return nil, &types.APIError{
			Service: "megaplan",
			Method:  method,
			URL:     reqURL,
			Status:  resp.StatusCode,
			Body:    string(snippet),
		}
	}
	return resp, nil
}
