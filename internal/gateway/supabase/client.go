// Package supabase implements gateway.Gateway against a hosted Supabase project: GoTrue for
// password auth, PostgREST for rows and the Realtime websocket for the chat change feed.
package supabase

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/VULUxOMID/GoldGames/internal/gateway"
	"github.com/VULUxOMID/GoldGames/internal/models"

	"github.com/golang-jwt/jwt/v5"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

var _ gateway.Gateway = (*Client)(nil)

type Client struct {
	baseURL   *url.URL
	anonKey   string
	http      *http.Client
	dialer    *websocket.Dialer
	heartbeat time.Duration
}

// New returns a client for the project at baseURL. timeout bounds each HTTP call; heartbeat is
// the realtime keepalive period.
func New(baseURL, anonKey string, timeout, heartbeat time.Duration) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url: %w", err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url scheme %q", u.Scheme)
	}
	return &Client{
		baseURL: u,
		anonKey: anonKey,
		http:    &http.Client{Timeout: timeout},
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: timeout,
		},
		heartbeat: heartbeat,
	}, nil
}

type request struct {
	method string
	path   string
	query  url.Values
	body   any
	prefer string
}

// apiError is the union of the error bodies GoTrue and PostgREST send.
type apiError struct {
	Code             any    `json:"code"`
	ErrorCode        string `json:"error_code"`
	Msg              string `json:"msg"`
	Message          string `json:"message"`
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

var authErrorCodes = map[string]gateway.Code{
	"invalid_credentials":        gateway.CodeInvalidCredentials,
	"email_not_confirmed":        gateway.CodeEmailNotConfirmed,
	"over_request_rate_limit":    gateway.CodeRateLimited,
	"over_email_send_rate_limit": gateway.CodeRateLimited,
	"user_already_exists":        gateway.CodeUserExists,
	"email_exists":               gateway.CodeUserExists,
	"weak_password":              gateway.CodeWeakPassword,
	"session_not_found":          gateway.CodeUnauthenticated,
	"bad_jwt":                    gateway.CodeUnauthenticated,
}

// decodeError maps a failed response onto a gateway error. Codes the backend does not name are
// left as unknown with the raw message so callers can still inspect the text.
func decodeError(status int, body []byte) *gateway.Error {
	var e apiError
	_ = json.Unmarshal(body, &e)

	message := firstNonEmpty(e.Msg, e.Message, e.ErrorDescription, e.Error)
	if message == "" {
		message = strings.TrimSpace(string(body))
	}
	if message == "" {
		message = http.StatusText(status)
	}

	code := gateway.CodeUnknown
	pgCode, _ := e.Code.(string)
	switch {
	case authErrorCodes[e.ErrorCode] != "":
		code = authErrorCodes[e.ErrorCode]
	case pgCode == "23505":
		code = gateway.CodeUniqueViolation
	case pgCode == "PGRST116":
		code = gateway.CodeNotFound
	case status == http.StatusTooManyRequests:
		code = gateway.CodeRateLimited
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		code = gateway.CodeUnauthenticated
	case status == http.StatusNotFound:
		code = gateway.CodeNotFound
	}
	return &gateway.Error{Code: code, Message: message, Status: status}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// do sends req with the project key and the caller's token, returning the body of a 2xx reply.
func (c *Client) do(ctx context.Context, req request) ([]byte, error) {
	u := *c.baseURL
	u.Path = u.Path + req.path
	if req.query != nil {
		u.RawQuery = req.query.Encode()
	}

	var body io.Reader
	if req.body != nil {
		payload, err := json.Marshal(req.body)
		if err != nil {
			return nil, gateway.Wrap(gateway.CodeUnknown, fmt.Errorf("failed to encode request: %w", err))
		}
		body = bytes.NewReader(payload)
	}

	httpReq, err := http.NewRequestWithContext(ctx, req.method, u.String(), body)
	if err != nil {
		return nil, gateway.Wrap(gateway.CodeTransport, err)
	}
	bearer := gateway.AccessToken(ctx)
	if bearer == "" {
		bearer = c.anonKey
	}
	httpReq.Header.Set("apikey", c.anonKey)
	httpReq.Header.Set("Authorization", "Bearer "+bearer)
	httpReq.Header.Set("Accept", "application/json")
	if req.body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if req.prefer != "" {
		httpReq.Header.Set("Prefer", req.prefer)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, &gateway.Error{Code: gateway.CodeTransport, Message: err.Error(), Err: err}
	}
	defer resp.Body.Close()

	slurp, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &gateway.Error{Code: gateway.CodeTransport, Message: err.Error(), Err: err}
	}
	zap.L().Debug("Backend call",
		zap.String("method", req.method),
		zap.String("path", req.path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)))

	if resp.StatusCode >= 300 {
		return nil, decodeError(resp.StatusCode, slurp)
	}
	return slurp, nil
}

func (c *Client) rows(ctx context.Context, req request) ([]gateway.Row, error) {
	body, err := c.do(ctx, req)
	if err != nil {
		return nil, err
	}
	return gateway.DecodeRows(bytes.NewReader(body))
}

// single expects a one-row representation, reporting notFound when the array is empty.
func (c *Client) single(ctx context.Context, req request, notFound gateway.Code) (gateway.Row, error) {
	rows, err := c.rows(ctx, req)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, gateway.NewError(notFound, fmt.Sprintf("no row returned from %s", req.path))
	}
	return rows[0], nil
}

func parseOne[T any](row gateway.Row, parse func(gateway.Row) (T, error)) (*T, error) {
	v, err := parse(row)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

// Auth

type authSession struct {
	AccessToken string      `json:"access_token"`
	ExpiresIn   int64       `json:"expires_in"`
	ExpiresAt   int64       `json:"expires_at"`
	User        gateway.Row `json:"user"`
}

func (c *Client) parseAuthReply(body []byte) (*models.Session, error) {
	var reply authSession
	if err := json.Unmarshal(body, &reply); err != nil {
		return nil, gateway.Wrap(gateway.CodeParse, fmt.Errorf("failed to decode auth reply: %w", err))
	}
	userRow := reply.User
	if userRow == nil {
		// sign-up with confirmation pending answers with the bare user object
		row, err := gateway.DecodeRow(bytes.NewReader(body))
		if err != nil {
			return nil, err
		}
		userRow = row
	}
	user, err := gateway.ParseUser(userRow)
	if err != nil {
		return nil, err
	}

	sess := &models.Session{AccessToken: reply.AccessToken, User: user}
	switch {
	case reply.ExpiresAt > 0:
		sess.ExpiresAt = time.Unix(reply.ExpiresAt, 0).UTC()
	case reply.ExpiresIn > 0:
		sess.ExpiresAt = time.Now().Add(time.Duration(reply.ExpiresIn) * time.Second).UTC()
	}
	return sess, nil
}

func (c *Client) SignUp(ctx context.Context, email, password string) (*models.Session, error) {
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/signup",
		body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, err
	}
	return c.parseAuthReply(body)
}

func (c *Client) SignIn(ctx context.Context, email, password string) (*models.Session, error) {
	body, err := c.do(ctx, request{
		method: http.MethodPost,
		path:   "/auth/v1/token",
		query:  url.Values{"grant_type": {"password"}},
		body:   map[string]string{"email": email, "password": password},
	})
	if err != nil {
		return nil, err
	}
	return c.parseAuthReply(body)
}

func (c *Client) SignOut(ctx context.Context) error {
	if gateway.AccessToken(ctx) == "" {
		return nil
	}
	_, err := c.do(ctx, request{method: http.MethodPost, path: "/auth/v1/logout"})
	if gateway.CodeOf(err) == gateway.CodeUnauthenticated {
		// the token is already invalid
		return nil
	}
	return err
}

func (c *Client) GetSession(ctx context.Context) (*models.Session, error) {
	token := gateway.AccessToken(ctx)
	if token == "" {
		return nil, nil
	}
	body, err := c.do(ctx, request{method: http.MethodGet, path: "/auth/v1/user"})
	if gateway.CodeOf(err) == gateway.CodeUnauthenticated {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	row, err := gateway.DecodeRow(bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	user, err := gateway.ParseUser(row)
	if err != nil {
		return nil, err
	}
	return &models.Session{AccessToken: token, ExpiresAt: tokenExpiry(token), User: user}, nil
}

// tokenExpiry reads exp from an access token without verifying it; the backend already did.
func tokenExpiry(token string) time.Time {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil || claims.ExpiresAt == nil {
		return time.Time{}
	}
	return claims.ExpiresAt.Time.UTC()
}

// Rows

func eq(v string) string { return "eq." + v }

func (c *Client) GetProfile(ctx context.Context, id string) (*models.Profile, error) {
	row, err := c.single(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/profiles",
		query:  url.Values{"select": {"*"}, "id": {eq(id)}},
	}, gateway.CodeNotFound)
	if err != nil {
		return nil, err
	}
	return parseOne(row, gateway.ParseProfile)
}

func (c *Client) CreateProfile(ctx context.Context, profile models.Profile) (*models.Profile, error) {
	row, err := c.single(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/profiles",
		prefer: "return=representation",
		body: map[string]any{
			"id":           profile.ID,
			"username":     profile.Username,
			"avatar":       profile.Avatar,
			"total_gold":   profile.TotalGold,
			"games_played": profile.GamesPlayed,
			"win_rate":     profile.WinRate,
		},
	}, gateway.CodeUnknown)
	if err != nil {
		return nil, err
	}
	return parseOne(row, gateway.ParseProfile)
}

func (c *Client) UpdateProfile(ctx context.Context, id string, patch models.ProfilePatch, expectedUpdatedAt time.Time) (*models.Profile, error) {
	body := map[string]any{"updated_at": time.Now().UTC().Format(time.RFC3339Nano)}
	if patch.Username != nil {
		body["username"] = *patch.Username
	}
	if patch.Avatar != nil {
		body["avatar"] = *patch.Avatar
	}
	row, err := c.single(ctx, request{
		method: http.MethodPatch,
		path:   "/rest/v1/profiles",
		query: url.Values{
			"id":         {eq(id)},
			"updated_at": {eq(expectedUpdatedAt.UTC().Format(time.RFC3339Nano))},
		},
		prefer: "return=representation",
		body:   body,
	}, gateway.CodeConflict)
	if err != nil {
		return nil, err
	}
	return parseOne(row, gateway.ParseProfile)
}

func (c *Client) ListLeaderboard(ctx context.Context, limit int) ([]models.Profile, error) {
	rows, err := c.rows(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/profiles",
		query: url.Values{
			"select": {"*"},
			"order":  {"total_gold.desc,username.asc"},
			"limit":  {fmt.Sprint(limit)},
		},
	})
	if err != nil {
		return nil, err
	}
	return gateway.ParseRows(rows, gateway.ParseProfile)
}

// ilikePattern strips PostgREST filter syntax from user input.
func ilikePattern(query string) string {
	cleaned := strings.Map(func(r rune) rune {
		switch r {
		case '*', '%', ',', '(', ')', '"', '\\':
			return -1
		}
		return r
	}, query)
	return "ilike.*" + cleaned + "*"
}

func (c *Client) SearchProfiles(ctx context.Context, query string, limit int) ([]models.Profile, error) {
	rows, err := c.rows(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/profiles",
		query: url.Values{
			"select":   {"*"},
			"username": {ilikePattern(query)},
			"order":    {"username.asc"},
			"limit":    {fmt.Sprint(limit)},
		},
	})
	if err != nil {
		return nil, err
	}
	return gateway.ParseRows(rows, gateway.ParseProfile)
}

func (c *Client) CreateTransaction(ctx context.Context, entry models.NewTransaction) (*models.GoldTransaction, error) {
	row, err := c.single(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/gold_transactions",
		prefer: "return=representation",
		body:   entry,
	}, gateway.CodeUnknown)
	if err != nil {
		return nil, err
	}
	return parseOne(row, gateway.ParseTransaction)
}

func (c *Client) ListTransactions(ctx context.Context, userID string) ([]models.GoldTransaction, error) {
	rows, err := c.rows(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/gold_transactions",
		query: url.Values{
			"select":  {"*"},
			"user_id": {eq(userID)},
			"order":   {"created_at.desc"},
		},
	})
	if err != nil {
		return nil, err
	}
	return gateway.ParseRows(rows, gateway.ParseTransaction)
}

func (c *Client) ListSessions(ctx context.Context) ([]models.GamingSession, error) {
	rows, err := c.rows(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/gaming_sessions",
		query:  url.Values{"select": {"*"}, "order": {"start_time.desc"}},
	})
	if err != nil {
		return nil, err
	}
	return gateway.ParseRows(rows, gateway.ParseGamingSession)
}

const chatSelect = "*,profiles:user_id(username)"

func (c *Client) ListChatMessages(ctx context.Context) ([]models.ChatMessage, error) {
	rows, err := c.rows(ctx, request{
		method: http.MethodGet,
		path:   "/rest/v1/chat_messages",
		query:  url.Values{"select": {chatSelect}, "order": {"created_at.asc"}},
	})
	if err != nil {
		return nil, err
	}
	return gateway.ParseRows(rows, gateway.ParseChatMessage)
}

func (c *Client) InsertChatMessage(ctx context.Context, entry models.NewChatMessage) (*models.ChatMessage, error) {
	row, err := c.single(ctx, request{
		method: http.MethodPost,
		path:   "/rest/v1/chat_messages",
		query:  url.Values{"select": {chatSelect}},
		prefer: "return=representation",
		body:   entry,
	}, gateway.CodeUnknown)
	if err != nil {
		return nil, err
	}
	return parseOne(row, gateway.ParseChatMessage)
}
