// Package matrix is a minimal Matrix client-server API client: password
// login, long-poll sync, joining and leaving rooms and sending messages.
package matrix

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/golangid/obsbot/candihelper"
	"github.com/golangid/obsbot/candiutils"
	"github.com/golangid/obsbot/chat"
)

const clientPath = "/_matrix/client/v3"

// OptionFunc type
type OptionFunc func(*Client)

// SetHTTPRequest option func, custom http client
func SetHTTPRequest(req candiutils.HTTPRequest) OptionFunc {
	return func(c *Client) {
		c.http = req
	}
}

// SetAccessToken option func, skip login
func SetAccessToken(userID, accessToken string) OptionFunc {
	return func(c *Client) {
		c.userID, c.accessToken = userID, accessToken
	}
}

// SetDeviceName option func, display name of the device created at login
func SetDeviceName(name string) OptionFunc {
	return func(c *Client) {
		c.deviceName = name
	}
}

// Client of one homeserver account, safe for concurrent use
type Client struct {
	baseURL    string
	http       candiutils.HTTPRequest
	deviceName string

	mu          sync.RWMutex
	userID      string
	accessToken string
}

var _ chat.Sender = (*Client)(nil)
var _ chat.RoomLeaver = (*Client)(nil)

// NewClient for homeserverURL, e.g. https://matrix.org
func NewClient(homeserverURL string, opts ...OptionFunc) (*Client, error) {
	u, err := url.Parse(homeserverURL)
	if err != nil {
		return nil, fmt.Errorf("matrix: invalid homeserver url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("matrix: homeserver url must be http or https, got %q", homeserverURL)
	}

	c := &Client{
		baseURL:    strings.TrimSuffix(homeserverURL, "/"),
		deviceName: "obsbot",
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.http == nil {
		c.http = candiutils.NewHTTPRequest(candiutils.HTTPRequestSetBreakerName("matrix"))
	}
	return c, nil
}

// UserID of the logged in account
func (c *Client) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.userID
}

// Login with user name and password, user may be a full @user:server id
func (c *Client) Login(ctx context.Context, user, password string) error {
	req := LoginRequest{
		Type:                     "m.login.password",
		Identifier:               UserIdentifier{Type: "m.id.user", User: user},
		Password:                 password,
		InitialDeviceDisplayName: c.deviceName,
	}

	var resp LoginResponse
	if err := c.do(ctx, http.MethodPost, "/login", nil, req, &resp, false); err != nil {
		return fmt.Errorf("matrix: login as %s: %w", user, err)
	}
	if resp.AccessToken == "" {
		return errors.New("matrix: login response without access token")
	}

	c.mu.Lock()
	c.userID, c.accessToken = resp.UserID, resp.AccessToken
	c.mu.Unlock()
	return nil
}

// SyncOptions of a sync request, an empty Since is an initial sync
type SyncOptions struct {
	Since   string
	Timeout time.Duration
}

// Sync long-poll the homeserver for new events
func (c *Client) Sync(ctx context.Context, opts SyncOptions) (*SyncResponse, error) {
	query := url.Values{}
	if opts.Since != "" {
		query.Set("since", opts.Since)
	}
	if opts.Timeout > 0 {
		query.Set("timeout", strconv.FormatInt(opts.Timeout.Milliseconds(), 10))
	}

	var resp SyncResponse
	if err := c.do(ctx, http.MethodGet, "/sync", query, nil, &resp, true); err != nil {
		return nil, fmt.Errorf("matrix: sync: %w", err)
	}
	return &resp, nil
}

// JoinRoom by id or alias
func (c *Client) JoinRoom(ctx context.Context, room chat.RoomID) error {
	if err := c.do(ctx, http.MethodPost, "/join/"+url.PathEscape(room.String()), nil, struct{}{}, nil, true); err != nil {
		return fmt.Errorf("matrix: join %s: %w", room, err)
	}
	return nil
}

// LeaveRoom implement chat.RoomLeaver
func (c *Client) LeaveRoom(ctx context.Context, room chat.RoomID) error {
	path := fmt.Sprintf("/rooms/%s/leave", url.PathEscape(room.String()))
	if err := c.do(ctx, http.MethodPost, path, nil, struct{}{}, nil, true); err != nil {
		return fmt.Errorf("matrix: leave %s: %w", room, err)
	}
	return nil
}

// SendText implement chat.Sender
func (c *Client) SendText(ctx context.Context, room chat.RoomID, text string) error {
	_, err := c.SendMessage(ctx, room, MessageContent{MsgType: MsgTypeText, Body: text})
	return err
}

// SendHTML implement chat.Sender, plain is the fallback body
func (c *Client) SendHTML(ctx context.Context, room chat.RoomID, plain, html string) error {
	_, err := c.SendMessage(ctx, room, MessageContent{
		MsgType:       MsgTypeText,
		Body:          plain,
		Format:        FormatHTML,
		FormattedBody: html,
	})
	return err
}

// SendNotice implement chat.Sender
func (c *Client) SendNotice(ctx context.Context, room chat.RoomID, text string) error {
	_, err := c.SendMessage(ctx, room, MessageContent{MsgType: MsgTypeNotice, Body: text})
	return err
}

// SendMessage send m.room.message, returns the event id. The transaction id
// is generated once so retries of the same call are idempotent.
func (c *Client) SendMessage(ctx context.Context, room chat.RoomID, content MessageContent) (string, error) {
	path := fmt.Sprintf("/rooms/%s/send/%s/%s",
		url.PathEscape(room.String()), url.PathEscape(EventTypeMessage), url.PathEscape(uuid.NewString()))

	var resp SendResponse
	if err := c.do(ctx, http.MethodPut, path, nil, content, &resp, true); err != nil {
		return "", fmt.Errorf("matrix: send to %s: %w", room, err)
	}
	return resp.EventID, nil
}

func (c *Client) do(ctx context.Context, method, path string, query url.Values, body, target any, auth bool) error {
	requestURL := c.baseURL + clientPath + path
	if len(query) > 0 {
		requestURL += "?" + query.Encode()
	}

	headers := map[string]string{}
	var reqBody []byte
	if body != nil {
		encoded, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("encode request body: %w", err)
		}
		reqBody = encoded
		headers["Content-Type"] = candihelper.HeaderMIMEApplicationJSON
	}
	if auth {
		c.mu.RLock()
		token := c.accessToken
		c.mu.RUnlock()
		if token == "" {
			return ErrNotLoggedIn
		}
		headers["Authorization"] = "Bearer " + token
	}

	respBody, _, err := c.http.Do(ctx, method, requestURL, reqBody, headers)
	if err != nil {
		var httpErr *candiutils.HTTPError
		if errors.As(err, &httpErr) {
			matrixErr := &MatrixError{StatusCode: httpErr.StatusCode}
			if jsonErr := json.Unmarshal(httpErr.Body, matrixErr); jsonErr != nil || matrixErr.Code == "" {
				return fmt.Errorf("unexpected %d response from %s %s: %s", httpErr.StatusCode, method, path, string(httpErr.Body))
			}
			return matrixErr
		}
		return err
	}

	if target == nil {
		return nil
	}
	if err := json.Unmarshal(respBody, target); err != nil {
		return fmt.Errorf("decode response of %s %s: %w", method, path, err)
	}
	return nil
}
