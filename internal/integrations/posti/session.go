package posti

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"net"
	"net/http"
	"net/http/cookiejar"
	"net/url"
	"strings"
	"time"
)

// DefaultTimeout applies to every HTTP call when no timeout is configured.
const DefaultTimeout = 20 * time.Second

// TokenState is the decoded token endpoint response. It is replaced
// wholesale on every successful authentication, never field-by-field.
type TokenState struct {
	IDToken      string `json:"id_token"`
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type"`
	ExpiresIn    int    `json:"expires_in"`
}

// Session holds credentials for one Posti account and the bearer token
// obtained from the login handshake. A Session is not safe for concurrent
// use; callers must serialize calls per instance.
type Session struct {
	username string
	password string
	timeout  time.Duration

	authBaseURL string
	uasBaseURL  string
	graphAPIURL string

	tokens *TokenState
	httpc  *http.Client
}

func New(username, password string, timeout time.Duration) *Session {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Session{
		username:    username,
		password:    password,
		timeout:     timeout,
		authBaseURL: DefaultAuthServiceBaseURL,
		uasBaseURL:  DefaultUASBaseURL,
		graphAPIURL: DefaultGraphAPIURL,
		httpc:       &http.Client{Timeout: timeout},
	}
}

// WithEndpoints overrides the production URLs (used in tests).
func (s *Session) WithEndpoints(authBase, uasBase, graphAPI string) *Session {
	if authBase != "" {
		s.authBaseURL = authBase
	}
	if uasBase != "" {
		s.uasBaseURL = uasBase
	}
	if graphAPI != "" {
		s.graphAPIURL = graphAPI
	}
	return s
}

// Authenticate performs the four-hop login handshake and stores a fresh
// TokenState. All hops share one cookie jar: the provider sets cookies on
// the first two hops and expects them back on the rest. On any failure the
// previous token (if any) is left untouched.
func (s *Session) Authenticate(ctx context.Context) error {
	jar, err := cookiejar.New(nil)
	if err != nil {
		return &CommunicationError{Detail: "cookie jar", Err: err}
	}
	client := &http.Client{Jar: jar, Timeout: s.timeout}

	// Hop 1: login initiation. The provider redirects through one or more
	// hops; the session identifier sits on the final resolved URL.
	loginURL := s.authBaseURL + "/login?redirect_uri=" + url.QueryEscape(redirectURI) + "&locale=" + locale
	resp, _, err := s.roundTrip(ctx, client, http.MethodGet, loginURL, "", "", "login")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Hop: "login", Status: resp.StatusCode}
	}
	sessionID, err := extractSessionID(resp.Request.URL.String())
	if err != nil {
		return &AuthError{Hop: "login", Reason: err.Error()}
	}

	// Hop 2: credential submit. The response is an HTML page embedding the
	// code and state as hidden form fields.
	form := url.Values{}
	form.Set("username", s.username)
	form.Set("password", s.password)
	form.Set("method", authMethod)
	submitURL := s.uasBaseURL + "/authn/" + sessionID + "/submit?entityID=" + entityID + "&locale=" + locale
	resp, body, err := s.roundTrip(ctx, client, http.MethodPost, submitURL,
		"application/x-www-form-urlencoded", form.Encode(), "submit")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Hop: "submit", Status: resp.StatusCode}
	}
	code, err := extractHiddenField(string(body), "code")
	if err != nil {
		return &AuthError{Hop: "submit", Reason: err.Error()}
	}
	state, err := extractHiddenField(string(body), "state")
	if err != nil {
		return &AuthError{Hop: "submit", Reason: err.Error()}
	}

	// Hop 3: OIDC callback.
	cb := url.Values{}
	cb.Set("code", code)
	cb.Set("state", state)
	resp, _, err = s.roundTrip(ctx, client, http.MethodGet,
		s.authBaseURL+"/oidc_callback?"+cb.Encode(), "", "", "oidc_callback")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Hop: "oidc_callback", Status: resp.StatusCode}
	}

	// Hop 4: token exchange.
	resp, body, err = s.roundTrip(ctx, client, http.MethodPost, s.authBaseURL+"/token_v2",
		"application/x-www-form-urlencoded", cb.Encode(), "token")
	if err != nil {
		return err
	}
	if resp.StatusCode != http.StatusOK {
		return &AuthError{Hop: "token", Status: resp.StatusCode}
	}

	var tokens TokenState
	if err := json.Unmarshal(body, &tokens); err != nil {
		return &AuthError{Hop: "token", Reason: "decode token response: " + err.Error()}
	}
	s.tokens = &tokens
	return nil
}

// ExecuteQuery POSTs the payload to the GraphQL endpoint with the current
// bearer token and returns the "data" member of the response. A 401 on the
// first attempt triggers exactly one re-authentication and one retry; the
// loop is bounded by construction, so a second 401 surfaces as an error.
func (s *Session) ExecuteQuery(ctx context.Context, payload string) (json.RawMessage, error) {
	for attempt := 0; attempt < 2; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.graphAPIURL,
			bytes.NewReader([]byte(payload)))
		if err != nil {
			return nil, &CommunicationError{Detail: "new query request", Err: err}
		}
		req.Header.Set("Authorization", "Bearer "+s.bearerToken())
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("User-Agent", userAgent)

		resp, err := s.httpc.Do(req)
		if err != nil {
			return nil, transportError("query", err)
		}
		body, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			return nil, transportError("query", err)
		}

		if resp.StatusCode == http.StatusUnauthorized && attempt == 0 {
			if err := s.Authenticate(ctx); err != nil {
				return nil, err
			}
			continue
		}
		if resp.StatusCode != http.StatusOK {
			return nil, &APIError{Status: resp.StatusCode, Kind: APIErrorKindStatus}
		}

		var out struct {
			Data json.RawMessage `json:"data"`
		}
		if err := json.Unmarshal(body, &out); err != nil || out.Data == nil {
			return nil, &APIError{Status: resp.StatusCode, Kind: APIErrorKindParse}
		}
		return out.Data, nil
	}
	return nil, &APIError{Status: http.StatusUnauthorized, Kind: APIErrorKindStatus}
}

func (s *Session) bearerToken() string {
	if s.tokens == nil {
		return ""
	}
	return s.tokens.IDToken
}

func (s *Session) roundTrip(ctx context.Context, client *http.Client, method, rawURL, contentType, body, op string) (*http.Response, []byte, error) {
	var rd io.Reader
	if body != "" {
		rd = strings.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, rawURL, rd)
	if err != nil {
		return nil, nil, &CommunicationError{Detail: "new " + op + " request", Err: err}
	}
	req.Header.Set("User-Agent", userAgent)
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, nil, transportError(op, err)
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, nil, transportError(op, err)
	}
	return resp, b, nil
}

func transportError(op string, err error) error {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return &TimeoutError{Op: op}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return &TimeoutError{Op: op}
	}
	return &CommunicationError{Detail: op, Err: err}
}
