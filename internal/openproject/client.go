// Package openproject implements the target-tracker client against the
// OpenProject v3 API. Work-package fields that reference other resources
// (project, status, type, assignee, parent) travel as _links hrefs; this
// package owns that translation so the rest of the codebase deals only in
// plain identifiers.
package openproject

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
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

// Project is one row of the target's project listing.
type Project struct {
	ID         int64  `json:"id"`
	Identifier string `json:"identifier"`
	Name       string `json:"name"`
}

// Client talks to an OpenProject instance with Basic Auth (typically the
// "apikey" user and an API token).
type Client struct {
	baseURL       string
	username      string
	password      string
	defaultUserID int64
	http          *http.Client
	log           *slog.Logger
}

// New builds a Client from credentials.
func New(cfg types.OpenProjectConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	return &Client{
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		username:      cfg.Username,
		password:      cfg.Password,
		defaultUserID: cfg.DefaultUserID,
		http:          &http.Client{Timeout: requestTimeout},
		log:           log,
	}
}

// Verify checks that the credentials are accepted by requesting one page of
// projects.
func (c *Client) Verify(ctx context.Context) error {
	_, err := c.listProjectsPage(ctx, 1, 1)
	return err
}

// ListProjects returns every project visible to the configured account.
func (c *Client) ListProjects(ctx context.Context) ([]Project, error) {
	const pageSize = 50
	var projects []Project
	offset := 1
	for {
		page, err := c.listProjectsPage(ctx, offset, pageSize)
		if err != nil {
			return nil, err
		}
		projects = append(projects, page...)
		if len(page) < pageSize {
			return projects, nil
		}
		offset += len(page)
	}
}

func (c *Client) listProjectsPage(ctx context.Context, offset, pageSize int) ([]Project, error) {
	query := url.Values{
		"offset":   {fmt.Sprintf("%d", offset)},
		"pageSize": {fmt.Sprintf("%d", pageSize)},
	}
	body, err := c.request(ctx, http.MethodGet, "/api/v3/projects?"+query.Encode(), "", nil)
	if err != nil {
		return nil, err
	}
	var page []Project
	for _, el := range gjson.GetBytes(body, "_embedded.elements").Array() {
		page = append(page, Project{
			ID:         el.Get("id").Int(),
			Identifier: el.Get("identifier").String(),
			Name:       el.Get("name").String(),
		})
	}
	return page, nil
}

// CreateTask creates a work package and returns its new ID.
func (c *Client) CreateTask(ctx context.Context, wp *types.WorkPackage) (int64, error) {
	body, err := c.requestJSON(ctx, http.MethodPost, "/api/v3/work_packages", buildPayload(wp))
	if err != nil {
		return 0, err
	}
	return gjson.GetBytes(body, "id").Int(), nil
}

// UpdateTask patches an existing work package.
func (c *Client) UpdateTask(ctx context.Context, targetID int64, wp *types.WorkPackage) error {
	endpoint := fmt.Sprintf("/api/v3/work_packages/%d", targetID)
	_, err := c.requestJSON(ctx, http.MethodPatch, endpoint, buildPayload(wp))
	return err
}

// CreateComment posts a comment to a work package's activity stream.
func (c *Client) CreateComment(ctx context.Context, targetTaskID int64, body string) (int64, error) {
	endpoint := fmt.Sprintf("/api/v3/work_packages/%d/activities", targetTaskID)
	payload := map[string]any{"comment": map[string]string{"raw": body}}
	resp, err := c.requestJSON(ctx, http.MethodPost, endpoint, payload)
	if err != nil {
		return 0, err
	}
	return gjson.GetBytes(resp, "id").Int(), nil
}

// CreateAttachment uploads a file to a work package as a multipart request
// with a JSON metadata part, per the v3 attachments API.
func (c *Client) CreateAttachment(ctx context.Context, targetTaskID int64, filename string, payload io.Reader) (int64, error) {
	var buf bytes.Buffer
	form := multipart.NewWriter(&buf)

	meta, err := form.CreateFormField("metadata")
	if err != nil {
		return 0, fmt.Errorf("building attachment metadata: %w", err)
	}
	if err := json.NewEncoder(meta).Encode(map[string]string{"fileName": filename}); err != nil {
		return 0, fmt.Errorf("encoding attachment metadata: %w", err)
	}
	file, err := form.CreateFormFile("file", filename)
	if err != nil {
		return 0, fmt.Errorf("building attachment form: %w", err)
	}
	if _, err := io.Copy(file, payload); err != nil {
		return 0, fmt.Errorf("buffering attachment %s: %w", filename, err)
	}
	if err := form.Close(); err != nil {
		return 0, fmt.Errorf("finalizing attachment form: %w", err)
	}

	endpoint := fmt.Sprintf("/api/v3/work_packages/%d/attachments", targetTaskID)
	body, err := c.request(ctx, http.MethodPost, endpoint, form.FormDataContentType(), &buf)
	if err != nil {
		return 0, err
	}
	return gjson.GetBytes(body, "id").Int(), nil
}

// EnsureUser finds a target user by login or email, creating one when
// absent. Creation needs admin rights; when it is refused the configured
// default user stands in.
func (c *Client) EnsureUser(ctx context.Context, user types.User) (int64, error) {
	if id, err := c.findUser(ctx, user); err != nil {
		return 0, err
	} else if id != 0 {
		return id, nil
	}

	payload := map[string]string{
		"login":     user.Login,
		"email":     user.Email,
		"firstName": user.FirstName,
		"lastName":  user.LastName,
		"status":    "active",
	}
	body, err := c.requestJSON(ctx, http.MethodPost, "/api/v3/users", payload)
	if err != nil {
		var apiErr *types.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusForbidden && c.defaultUserID != 0 {
			c.log.Warn("user creation not permitted, using default user",
				"login", user.Login, "default_user", c.defaultUserID)
			return c.defaultUserID, nil
		}
		return 0, err
	}
	return gjson.GetBytes(body, "id").Int(), nil
}

func (c *Client) findUser(ctx context.Context, user types.User) (int64, error) {
	query := url.Values{}
	if user.Login != "" {
		query.Set("login", user.Login)
	}
	if user.Email != "" {
		query.Set("email", user.Email)
	}
	if len(query) == 0 {
		return 0, nil
	}

	body, err := c.request(ctx, http.MethodGet, "/api/v3/users?"+query.Encode(), "", nil)
	if err != nil {
		return 0, err
	}
	elements := gjson.GetBytes(body, "_embedded.elements").Array()
	if len(elements) == 0 {
		return 0, nil
	}
	return elements[0].Get("id").Int(), nil
}

// requestJSON marshals payload and performs one JSON request.
func (c *Client) requestJSON(ctx context.Context, method, endpoint string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encoding openproject payload: %w", err)
	}
	return c.request(ctx, method, endpoint, "application/json", bytes.NewReader(data))
}

// request performs one HTTP round trip and returns the response body.
// Non-2xx statuses map to *types.APIError.
func (c *Client) request(ctx context.Context, method, endpoint, contentType string, body io.Reader) ([]byte, error) {
	reqURL := c.baseURL + endpoint
	req, err := http.NewRequestWithContext(ctx, method, reqURL, body)
	if err != nil {
		return nil, fmt.Errorf("building openproject request: %w", err)
	}
	req.SetBasicAuth(c.username, c.password)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, &types.APIError{Service: "openproject", Method: method, URL: reqURL, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("reading openproject response for %s: %w", endpoint, err)
	}
	if resp.StatusCode >= 400 {
		snippet := respBody
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return nil, &types.APIError{
			Service: "openproject",
			Method:  method,
			URL:     reqURL,
			Status:  resp.StatusCode,
			Body:    string(snippet),
		}
	}
	return respBody, nil
}
