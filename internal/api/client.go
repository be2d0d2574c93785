package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"os"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/steveljko/timetick/internal/model"
)

const (
	defaultTimeout = 10 * time.Second
	maxErrorBody   = 4 << 10
)

// Client is the authenticated gateway to the remote API. Every call returns
// its data or one of ErrUnauthenticated, *NetworkError, *APIError or
// *DecodeError; none of them panic.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *slog.Logger

	online atomic.Bool
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithLogger(l *slog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

func NewClient(baseURL string, tokens TokenSource, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: defaultTimeout,
		},
		tokens: tokens,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	c.online.Store(true)
	return c
}

// Online reports whether the last request reached the server. It starts out
// true and only annotates the UI; requests are always attempted.
func (c *Client) Online() bool {
	return c.online.Load()
}

// +-----------------------+
// |                       |
// |    Project Methods    |
// |                       |
// +-----------------------+

func (c *Client) ListProjects(ctx context.Context, params PageParams) (Page[model.Project], error) {
	var res PageRecord[ProjectRecord]
	if err := c.do(ctx, "list projects", http.MethodGet, "/projects"+params.query(), nil, "", &res); err != nil {
		return Page[model.Project]{}, err
	}
	return convertPage(res, ProjectRecord.Model), nil
}

func (c *Client) CreateProject(ctx context.Context, params CreateProjectRequest) (model.Project, error) {
	var res ProjectRecord
	if err := c.doJSON(ctx, "create project", http.MethodPost, "/projects", params, &res); err != nil {
		return model.Project{}, err
	}
	return res.Model(), nil
}

func (c *Client) UpdateProject(ctx context.Context, id string, params UpdateProjectRequest) (model.Project, error) {
	var res ProjectRecord
	endpoint := "/projects/" + url.PathEscape(id)
	if err := c.doJSON(ctx, "update project", http.MethodPut, endpoint, params, &res); err != nil {
		return model.Project{}, err
	}
	return res.Model(), nil
}

func (c *Client) DeleteProject(ctx context.Context, id string) error {
	endpoint := "/projects/" + url.PathEscape(id)
	return c.do(ctx, "delete project", http.MethodDelete, endpoint, nil, "", nil)
}

// +--------------------------+
// |                          |
// |    Time Entry Methods    |
// |                          |
// +--------------------------+

func (c *Client) ListTimeEntries(ctx context.Context, params PageParams) (Page[model.TimeEntry], error) {
	var res PageRecord[EntryRecord]
	if err := c.do(ctx, "list time entries", http.MethodGet, "/time-entries"+params.query(), nil, "", &res); err != nil {
		return Page[model.TimeEntry]{}, err
	}
	return convertPage(res, EntryRecord.Model), nil
}

func (c *Client) CreateTimeEntry(ctx context.Context, params CreateTimeEntryRequest) (model.TimeEntry, error) {
	var res EntryRecord
	if err := c.doJSON(ctx, "create time entry", http.MethodPost, "/time-entries", params, &res); err != nil {
		return model.TimeEntry{}, err
	}
	return res.Model(), nil
}

func (c *Client) UpdateTimeEntry(ctx context.Context, id string, params UpdateTimeEntryRequest) (model.TimeEntry, error) {
	var res EntryRecord
	endpoint := "/time-entries/" + url.PathEscape(id)
	if err := c.doJSON(ctx, "update time entry", http.MethodPut, endpoint, params, &res); err != nil {
		return model.TimeEntry{}, err
	}
	return res.Model(), nil
}

// +-----------------------+
// |                       |
// |    Profile Methods    |
// |                       |
// +-----------------------+

func (c *Client) GetProfile(ctx context.Context) (model.Profile, error) {
	var res ProfileRecord
	if err := c.do(ctx, "get profile", http.MethodGet, "/profile", nil, "", &res); err != nil {
		return model.Profile{}, err
	}
	return res.Model(), nil
}

func (c *Client) CreateProfile(ctx context.Context, params CreateProfileRequest) (model.Profile, error) {
	var res ProfileRecord
	if err := c.doJSON(ctx, "create profile", http.MethodPost, "/profile", params, &res); err != nil {
		return model.Profile{}, err
	}
	return res.Model(), nil
}

// uploads the picked image as multipart form data under the "file" field
func (c *Client) UploadProfilePicture(ctx context.Context, asset ImageAsset) (model.Profile, error) {
	const op = "upload profile picture"
	if _, err := c.bearer(ctx, op); err != nil {
		return model.Profile{}, err
	}

	fileName := asset.FileName
	if fileName == "" {
		fileName = "image.jpg"
	}
	mimeType := asset.MimeType
	if mimeType == "" {
		mimeType = "image/jpeg"
	}

	f, err := os.Open(asset.URI)
	if err != nil {
		return model.Profile{}, fmt.Errorf("error opening image: %w", err)
	}
	defer f.Close()

	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, quoteEscaper.Replace(fileName)))
	header.Set("Content-Type", mimeType)

	part, err := mw.CreatePart(header)
	if err != nil {
		return model.Profile{}, fmt.Errorf("error creating form part: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return model.Profile{}, fmt.Errorf("error reading image: %w", err)
	}
	if err := mw.Close(); err != nil {
		return model.Profile{}, fmt.Errorf("error encoding form: %w", err)
	}

	var res ProfileRecord
	if err := c.do(ctx, op, http.MethodPost, "/profile/picture", &body, mw.FormDataContentType(), &res); err != nil {
		return model.Profile{}, err
	}
	return res.Model(), nil
}

// fetches the ranked leaderboard, best first
func (c *Client) GetLeaderboard(ctx context.Context) ([]model.LeaderboardEntry, error) {
	var res []LeaderboardRecord
	if err := c.do(ctx, "get leaderboard", http.MethodGet, "/leaderboard", nil, "", &res); err != nil {
		return nil, err
	}

	entries := make([]model.LeaderboardEntry, 0, len(res))
	for i, r := range res {
		entries = append(entries, r.Model(i+1))
	}
	return entries, nil
}

var quoteEscaper = strings.NewReplacer("\\", "\\\\", `"`, "\\\"")

func (p PageParams) query() string {
	q := url.Values{}
	if p.Limit > 0 {
		q.Set("limit", strconv.Itoa(p.Limit))
	}
	if p.Page > 0 {
		q.Set("page", strconv.Itoa(p.Page))
	}
	if len(q) == 0 {
		return ""
	}
	return "?" + q.Encode()
}

func (c *Client) doJSON(ctx context.Context, op, method, endpoint string, params any, out any) error {
	reqBody, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("error encoding request: %w", err)
	}
	return c.do(ctx, op, method, endpoint, bytes.NewReader(reqBody), "application/json", out)
}

// do sends one authenticated request and decodes a 2xx body into out. A nil
// out discards the body.
// bearer returns the session token, or ErrUnauthenticated when signed out.
func (c *Client) bearer(ctx context.Context, op string) (string, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return "", fmt.Errorf("%s: %w: %v", op, ErrUnauthenticated, err)
	}
	if token == "" {
		return "", fmt.Errorf("%s: %w", op, ErrUnauthenticated)
	}
	return token, nil
}

func (c *Client) do(ctx context.Context, op, method, endpoint string, body io.Reader, contentType string, out any) error {
	token, err := c.bearer(ctx, op)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, body)
	if err != nil {
		return fmt.Errorf("error creating request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Request-ID", uuid.NewString())
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	res, err := c.httpClient.Do(req)
	if err != nil {
		c.online.Store(false)
		c.logger.Debug("request failed", "op", op, "err", err)
		return &NetworkError{Op: op, Err: err}
	}
	defer res.Body.Close()
	c.online.Store(true)

	if res.StatusCode < 200 || res.StatusCode > 299 {
		errBody, _ := io.ReadAll(io.LimitReader(res.Body, maxErrorBody))
		c.logger.Debug("request rejected", "op", op, "status", res.StatusCode)
		return &APIError{Op: op, StatusCode: res.StatusCode, Body: strings.TrimSpace(string(errBody))}
	}

	if out == nil {
		_, _ = io.Copy(io.Discard, res.Body)
		return nil
	}

	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return &DecodeError{Op: op, Err: err}
	}
	return nil
}
