// Package api is the terminal client's view of the timeline HTTP API.
//
// Client sends JSON (and multipart for uploads), carries the bearer token and
// refreshes it once when the server reports it expired. Transport failures
// are returned as ErrUnavailable; error responses become *common.Error values
// holding the server message and the kind matching the status code.
package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/dmitrijs2005/timeline/internal/client/models"
	"github.com/dmitrijs2005/timeline/internal/common"
)

type Client struct {
	baseURL string
	http    *http.Client

	mu           sync.Mutex
	accessToken  string
	refreshToken string
	onRefresh    func(access, refresh string)
}

// New returns a client for the server at baseURL. A zero timeout means no
// per-request limit.
func New(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) SetTokens(access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.accessToken, c.refreshToken = access, refresh
}

func (c *Client) Tokens() (access, refresh string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.accessToken, c.refreshToken
}

// OnTokensRefreshed registers fn to be called after an automatic refresh.
func (c *Client) OnTokensRefreshed(fn func(access, refresh string)) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onRefresh = fn
}

type call struct {
	method      string
	path        string
	query       url.Values
	contentType string
	body        []byte
	authed      bool
}

func jsonCall(method, path string, in any, authed bool) (call, error) {
	c := call{method: method, path: path, authed: authed}
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return c, err
		}
		c.body = b
		c.contentType = "application/json"
	}
	return c, nil
}

func (c *Client) send(ctx context.Context, r call) (*http.Response, error) {
	u := c.baseURL + r.path
	if len(r.query) > 0 {
		u += "?" + r.query.Encode()
	}

	var body io.Reader
	if r.body != nil {
		body = bytes.NewReader(r.body)
	}
	req, err := http.NewRequestWithContext(ctx, r.method, u, body)
	if err != nil {
		return nil, err
	}
	if r.contentType != "" {
		req.Header.Set("Content-Type", r.contentType)
	}
	if r.authed {
		if token, _ := c.Tokens(); token != "" {
			req.Header.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
		}
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return resp, nil
}

// do performs r and returns a 2xx response; the caller closes its body.
// An expired access token is refreshed once and the call repeated.
func (c *Client) do(ctx context.Context, r call) (*http.Response, error) {
	resp, err := c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 300 {
		return resp, nil
	}

	apiErr := decodeError(resp)
	resp.Body.Close()

	_, refresh := c.Tokens()
	if !r.authed || refresh == "" || !errors.Is(apiErr, common.ErrTokenExpired) {
		return nil, apiErr
	}
	if err := c.Refresh(ctx); err != nil {
		return nil, err
	}

	resp, err = c.send(ctx, r)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer resp.Body.Close()
		return nil, decodeError(resp)
	}
	return resp, nil
}

func (c *Client) doJSON(ctx context.Context, r call, out any) error {
	resp, err := c.do(ctx, r)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if out == nil || resp.StatusCode == http.StatusNoContent {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s response: %w", r.method, r.path, err)
	}
	return nil
}

func (c *Client) postJSON(ctx context.Context, path string, in, out any, authed bool) error {
	r, err := jsonCall(http.MethodPost, path, in, authed)
	if err != nil {
		return err
	}
	return c.doJSON(ctx, r, out)
}

// Ping reports whether the server is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	resp, err := c.send(ctx, call{method: http.MethodGet, path: "/healthz"})
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return ErrUnavailable
	}
	return nil
}

func (c *Client) Register(ctx context.Context, in RegisterInput) (*User, error) {
	var u User
	if err := c.postJSON(ctx, "/api/auth/register", in, &u, false); err != nil {
		return nil, err
	}
	return &u, nil
}

// Login signs in and keeps the issued tokens for later calls.
func (c *Client) Login(ctx context.Context, email, password string) (*LoginResult, error) {
	var res LoginResult
	if err := c.postJSON(ctx, "/api/auth/login", loginRequest{Email: email, Password: password}, &res, false); err != nil {
		return nil, err
	}
	c.SetTokens(res.AccessToken, res.RefreshToken)
	return &res, nil
}

// Refresh exchanges the refresh token for a new pair.
func (c *Client) Refresh(ctx context.Context) error {
	_, refresh := c.Tokens()
	if refresh == "" {
		return common.Unauthorized("not logged in")
	}

	var pair tokenPair
	if err := c.postJSON(ctx, "/api/auth/refresh", refreshRequest{RefreshToken: refresh}, &pair, false); err != nil {
		return err
	}
	c.SetTokens(pair.AccessToken, pair.RefreshToken)

	c.mu.Lock()
	fn := c.onRefresh
	c.mu.Unlock()
	if fn != nil {
		fn(pair.AccessToken, pair.RefreshToken)
	}
	return nil
}

func (c *Client) Session(ctx context.Context) (*User, error) {
	var u User
	if err := c.doJSON(ctx, call{method: http.MethodGet, path: "/api/auth/session", authed: true}, &u); err != nil {
		return nil, err
	}
	return &u, nil
}

// ListEvents returns the caller's events, or those of userID when a lawyer
// asks for a client's timeline.
func (c *Client) ListEvents(ctx context.Context, userID string) ([]*models.Event, error) {
	r := call{method: http.MethodGet, path: "/api/events", authed: true}
	if userID != "" {
		r.query = url.Values{"userId": {userID}}
	}

	var out []eventResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, err
	}

	events := make([]*models.Event, 0, len(out))
	for _, e := range out {
		m, err := e.toModel()
		if err != nil {
			return nil, fmt.Errorf("event %s: %w", e.ID, err)
		}
		events = append(events, m)
	}
	return events, nil
}

func (c *Client) eventCall(ctx context.Context, r call) (*models.Event, error) {
	var out eventResponse
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, err
	}
	return out.toModel()
}

func eventPath(id string) string {
	return "/api/events/" + url.PathEscape(id)
}

func (c *Client) CreateEvent(ctx context.Context, in models.EventInput) (*models.Event, error) {
	r, err := jsonCall(http.MethodPost, "/api/events", map[string]string{
		"title":       in.Title,
		"description": in.Description,
		"date":        in.Date,
	}, true)
	if err != nil {
		return nil, err
	}
	return c.eventCall(ctx, r)
}

func (c *Client) GetEvent(ctx context.Context, id string) (*models.Event, error) {
	return c.eventCall(ctx, call{method: http.MethodGet, path: eventPath(id), authed: true})
}

func (c *Client) UpdateEvent(ctx context.Context, id string, upd models.EventUpdate) (*models.Event, error) {
	r, err := jsonCall(http.MethodPut, eventPath(id), eventUpdateRequest{
		Title:       upd.Title,
		Description: upd.Description,
		Date:        upd.Date,
	}, true)
	if err != nil {
		return nil, err
	}
	return c.eventCall(ctx, r)
}

func (c *Client) DeleteEvent(ctx context.Context, id string) error {
	return c.doJSON(ctx, call{method: http.MethodDelete, path: eventPath(id), authed: true}, nil)
}

func (c *Client) ListMedia(ctx context.Context, eventID string) ([]*models.Media, error) {
	var out []mediaResponse
	r := call{method: http.MethodGet, path: "/api/media", query: url.Values{"eventId": {eventID}}, authed: true}
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, err
	}

	items := make([]*models.Media, 0, len(out))
	for _, m := range out {
		items = append(items, m.toModel())
	}
	return items, nil
}

// GetMedia returns one attachment; its URL is a short-lived download link
// for uploaded files.
func (c *Client) GetMedia(ctx context.Context, id string) (*models.Media, error) {
	var out mediaResponse
	r := call{method: http.MethodGet, path: "/api/media", query: url.Values{"id": {id}}, authed: true}
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

// UploadMedia sends body as a multipart file of eventID. An empty mediaType
// lets the server infer it from contentType.
func (c *Client) UploadMedia(ctx context.Context, eventID string, mediaType models.MediaType, filename, contentType string, body io.Reader) (*models.Media, error) {
	var buf bytes.Buffer
	w := multipart.NewWriter(&buf)

	if err := w.WriteField("eventId", eventID); err != nil {
		return nil, err
	}
	if mediaType != "" {
		if err := w.WriteField("type", string(mediaType)); err != nil {
			return nil, err
		}
	}

	if contentType == "" {
		contentType = "application/octet-stream"
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, filename))
	h.Set("Content-Type", contentType)
	part, err := w.CreatePart(h)
	if err != nil {
		return nil, err
	}
	if _, err := io.Copy(part, body); err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	if err := w.Close(); err != nil {
		return nil, err
	}

	var out mediaResponse
	r := call{
		method:      http.MethodPost,
		path:        "/api/media",
		contentType: w.FormDataContentType(),
		body:        buf.Bytes(),
		authed:      true,
	}
	if err := c.doJSON(ctx, r, &out); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

func (c *Client) AddMediaLink(ctx context.Context, in LinkInput) (*models.Media, error) {
	var out mediaResponse
	if err := c.postJSON(ctx, "/api/media", in, &out, true); err != nil {
		return nil, err
	}
	return out.toModel(), nil
}

// DeleteMedia removes an uploaded attachment. Pending references never
// reach the server.
func (c *Client) DeleteMedia(ctx context.Context, ref models.MediaRef) error {
	switch ref := ref.(type) {
	case models.Persisted:
		r := call{method: http.MethodDelete, path: "/api/media", query: url.Values{"id": {ref.ID}}, authed: true}
		return c.doJSON(ctx, r, nil)
	case models.Pending:
		return common.Validation("media %s has not been uploaded yet", ref)
	default:
		return common.Validation("unknown media reference %v", ref)
	}
}

// Export renders the caller's timeline on the server.
func (c *Client) Export(ctx context.Context, req ExportRequest) (*ExportFile, error) {
	r, err := jsonCall(http.MethodPost, "/api/export", req, true)
	if err != nil {
		return nil, err
	}
	resp, err := c.do(ctx, r)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	file := &ExportFile{ContentType: resp.Header.Get("Content-Type"), Data: data}
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		file.Filename = params["filename"]
	}
	if file.Filename == "" {
		file.Filename = "timeline." + req.Format
	}
	return file, nil
}
