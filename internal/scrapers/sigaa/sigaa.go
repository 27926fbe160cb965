// Package sigaa scrapes the SIGAA academic records portal by replaying the forms its
// pages would submit from a browser, without running any of their scripts.
package sigaa

import (
	"context"
	"fmt"
	"strings"

	"github.com/alc0hen/espelho-ifal-sigaa/internal/components/telemetry"
)

const (
	report_client_login  = "client.login"
	report_client_resume = "client.resume"
)

// Client is the entry point: it owns the Session and logs into it.
type Client struct {
	session *Session
	login   *loginController
	tel     telemetry.API
}

// Connect prepares a client for the portal at opts.BaseUrl, no request is made yet.
func Connect(opts Options) (*Client, error) {
	session, err := NewSession(opts)
	if err != nil {
		return nil, err
	}
	return &Client{
		session: session,
		login:   newLoginController(session, session.tel),
		tel:     session.tel,
	}, nil
}

func (c *Client) Session() *Session {
	return c.session
}

// LoginState is the state the last Login call left the login flow in.
func (c *Client) LoginState() LoginState {
	return c.login.State()
}

// Login authenticates with username and password and reads the account off the
// landing page.
func (c *Client) Login(ctx context.Context, username, password string) (*Account, error) {
	page, err := c.login.Login(ctx, username, password)
	if err != nil {
		c.tel.ReportWarning(report_client_login, err)
		return nil, err
	}
	return NewAccount(c.session, page)
}

// Resume reads the account of a session restored through Options.Cookies, it fails
// with ErrSessionExpired when the portal no longer recognizes the session.
func (c *Client) Resume(ctx context.Context) (*Account, error) {
	page, err := c.session.Get(ctx, pathStudentHome)
	if err != nil {
		c.tel.ReportWarning(report_client_resume, err)
		return nil, err
	}
	if strings.Contains(strings.ToLower(page.URL.Path), "login") {
		return nil, fmt.Errorf("%w: redirected to %s", ErrSessionExpired, page.URL.Path)
	}
	return NewAccount(c.session, page)
}

// Cookies exports the session cookies so the session can be resumed later.
func (c *Client) Cookies() map[string]string {
	return c.session.Cookies()
}

func (c *Client) Close() error {
	return c.session.Close()
}
