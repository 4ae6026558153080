package lmsauth

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/smartlms/remindbot/internal/logger"
	"github.com/smartlms/remindbot/internal/models"
)

const (
	defaultTimeout = 30 * time.Second

	// ADFS session cookie carrying the primary credential
	sessionCookieName = "MSISAuth"
)

// Error covers everything that may break the two-step login: network
// failures, unexpected statuses and missing fields in the proprietary
// response shapes. A missing field aborts the whole attempt, a token is
// never built from partial data.
type Error struct {
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("auth failed: %s: %v", e.Reason, e.Err)
	}
	return fmt.Sprintf("auth failed: %s", e.Reason)
}

func (e *Error) Unwrap() error {
	return e.Err
}

func newError(reason string, err error) *Error {
	return &Error{Reason: reason, Err: err}
}

type Config struct {
	// OAuth authorize URL of the identity provider
	// Serves the login form and, once the session cookie is set, answers
	// with a redirect carrying the access token in the URL fragment
	AuthorizeURL string

	// Host the login form's relative submit target is resolved against
	Host string

	Timeout time.Duration
}

// Client performs the two-step login against the identity provider:
// username/password form submission yields the primary session token,
// replaying it as a cookie yields the derived access token.
type Client struct {
	authorizeURL string
	host         string

	client *http.Client
	logger logger.Logger
}

func NewClient(cfg Config, logger logger.Logger) *Client {
	if cfg.Timeout == 0 {
		cfg.Timeout = defaultTimeout
	}

	return &Client{
		authorizeURL: cfg.AuthorizeURL,
		host:         cfg.Host,
		client: &http.Client{
			Timeout: cfg.Timeout,
			// The access token arrives on a 302 we must inspect ourselves
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				return http.ErrUseLastResponse
			},
		},
		logger: logger,
	}
}

// PrimaryToken logs in with the account credentials and returns the
// session token from the response cookie
func (c *Client) PrimaryToken(ctx context.Context, username string, password string) (models.Token, error) {
	var token models.Token

	action, err := c.loginFormAction(ctx)
	if err != nil {
		return token, err
	}

	form := url.Values{
		"UserName":   {username},
		"Password":   {password},
		"Kmsi":       {"true"},
		"AuthMethod": {"FormsAuthentication"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, action, strings.NewReader(form.Encode()))
	if err != nil {
		return token, newError("failed to create login request", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.client.Do(req)
	if err != nil {
		return token, newError("failed to submit login form", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	for _, cookie := range resp.Cookies() {
		if cookie.Name != sessionCookieName {
			continue
		}

		if cookie.Expires.IsZero() {
			return token, newError("session cookie has no expiration date", nil)
		}

		c.logger.Debug("Primary token obtained", "expires_at", cookie.Expires)
		return models.Token{
			Kind:      models.TokenPrimary,
			Value:     cookie.Value,
			ExpiresAt: cookie.Expires,
		}, nil
	}

	// Wrong credentials make the provider serve the form again, cookieless
	return token, newError("session cookie not found in login response", nil)
}

// AccessToken exchanges the primary session token for a short-lived
// bearer token embedded in the redirect's URL fragment
func (c *Client) AccessToken(ctx context.Context, primary models.Token) (models.Token, error) {
	var token models.Token

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authorizeURL, nil)
	if err != nil {
		return token, newError("failed to create authorize request", err)
	}
	req.AddCookie(&http.Cookie{Name: sessionCookieName, Value: primary.Value})

	resp, err := c.client.Do(req)
	if err != nil {
		return token, newError("authorize request failed", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusFound {
		return token, newError(fmt.Sprintf("unexpected authorize status: %d", resp.StatusCode), nil)
	}

	location := resp.Header.Get("Location")
	if location == "" {
		return token, newError("location header not found in authorize response", nil)
	}

	redirect, err := url.Parse(location)
	if err != nil {
		return token, newError("failed to parse redirect location", err)
	}

	fragment, err := url.ParseQuery(redirect.Fragment)
	if err != nil {
		return token, newError("failed to parse redirect fragment", err)
	}

	value := fragment.Get("access_token")
	if value == "" {
		return token, newError("access token not found in redirect fragment", nil)
	}

	expiresIn, err := strconv.Atoi(fragment.Get("expires_in"))
	if err != nil {
		return token, newError("token expiration not found in redirect fragment", err)
	}

	expiresAt := time.Now().Add(time.Duration(expiresIn) * time.Second)
	c.logger.Debug("Access token obtained", "expires_at", expiresAt)

	return models.Token{
		Kind:      models.TokenAccess,
		Value:     value,
		ExpiresAt: expiresAt,
	}, nil
}

// loginFormAction fetches the login page and extracts the form's submit
// target. Needed on every login: the target embeds a one-time request id.
func (c *Client) loginFormAction(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.authorizeURL, nil)
	if err != nil {
		return "", newError("failed to create login page request", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return "", newError("failed to fetch login page", err)
	}
	defer resp.Body.Close() // nolint:errcheck

	if resp.StatusCode != http.StatusOK {
		return "", newError(fmt.Sprintf("unexpected login page status: %d", resp.StatusCode), nil)
	}

	action, err := findLoginFormAction(resp.Body)
	if err != nil {
		return "", err
	}

	if strings.HasPrefix(action, "/") {
		action = c.host + action
	}

	return action, nil
}
