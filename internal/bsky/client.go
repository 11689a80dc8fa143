// Package bsky wraps the indigo XRPC client for the Bluesky endpoints the bot
// needs: sessions, search, notifications, threads, blobs and posts.
// Docs: https://docs.bsky.app/docs/category/http-reference
package bsky

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"sync"
	"time"

	comatproto "github.com/bluesky-social/indigo/api/atproto"
	"github.com/bluesky-social/indigo/xrpc"
	"golang.org/x/time/rate"
)

// Config holds the account and connection settings.
type Config struct {
	Host       string // PDS or entryway, e.g. https://bsky.social
	Identifier string // handle or email
	Password   string // app password
	Timeout    time.Duration
	// MinInterval is the minimum spacing between two requests. All calls made
	// through one Client share it.
	MinInterval time.Duration
}

// Session is the authenticated state of a Client. It is created by Login and
// replaced by Refresh or a new Login.
type Session struct {
	DID        string `json:"did"`
	Handle     string `json:"handle"`
	AccessJwt  string `json:"accessJwt"`
	RefreshJwt string `json:"refreshJwt"`
}

// Client is safe for concurrent use. Requests are serialized by a shared
// limiter and every call gets its own xrpc.Client bound to the current session.
type Client struct {
	host       string
	identifier string
	password   string
	http       *http.Client
	limiter    *rate.Limiter

	mu      sync.RWMutex
	session *Session
}

// NewClient creates a client. No request is made until Login.
func NewClient(cfg Config) *Client {
	host := strings.TrimRight(strings.TrimSpace(cfg.Host), "/")
	if host == "" {
		host = "https://bsky.social"
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	limit := rate.Inf
	if cfg.MinInterval > 0 {
		limit = rate.Every(cfg.MinInterval)
	}
	return &Client{
		host:       host,
		identifier: cfg.Identifier,
		password:   cfg.Password,
		http:       &http.Client{Timeout: timeout},
		limiter:    rate.NewLimiter(limit, 1),
	}
}

type authMode int

const (
	authNone authMode = iota
	authAccess
	authRefresh
)

// xrpcClient returns an xrpc.Client for one call. authRefresh puts the
// refresh token in the bearer slot, as refreshSession expects.
func (c *Client) xrpcClient(auth authMode) (*xrpc.Client, error) {
	xc := &xrpc.Client{Client: c.http, Host: c.host}
	if auth == authNone {
		return xc, nil
	}
	s := c.Session()
	if s == nil {
		return nil, &AuthError{Code: "AuthMissing", Message: "not logged in"}
	}
	token := s.AccessJwt
	if auth == authRefresh {
		token = s.RefreshJwt
	}
	xc.Auth = &xrpc.AuthInfo{AccessJwt: token, RefreshJwt: s.RefreshJwt, Handle: s.Handle, Did: s.DID}
	return xc, nil
}

// call waits for the limiter, runs fn and maps XRPC failures to AuthError or
// APIError.
func (c *Client) call(ctx context.Context, nsid string, auth authMode, fn func(xc *xrpc.Client) error) error {
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	xc, err := c.xrpcClient(auth)
	if err != nil {
		return err
	}
	if err := fn(xc); err != nil {
		return wrapError(nsid, err)
	}
	return nil
}

// Session returns the current session or nil before Login.
func (c *Client) Session() *Session {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.session == nil {
		return nil
	}
	s := *c.session
	return &s
}

func (c *Client) setSession(s *Session) {
	c.mu.Lock()
	c.session = s
	c.mu.Unlock()
}

// Login creates a new session from the configured identifier and password.
func (c *Client) Login(ctx context.Context) error {
	if strings.TrimSpace(c.identifier) == "" || c.password == "" {
		return &AuthError{Code: "AuthMissing", Message: "handle and password are required"}
	}
	var out *comatproto.ServerCreateSession_Output
	err := c.call(ctx, "com.atproto.server.createSession", authNone, func(xc *xrpc.Client) (err error) {
		out, err = comatproto.ServerCreateSession(ctx, xc, &comatproto.ServerCreateSession_Input{
			Identifier: c.identifier,
			Password:   c.password,
		})
		return err
	})
	if err != nil {
		return err
	}
	if out.AccessJwt == "" {
		return &AuthError{Code: "InvalidToken", Message: "createSession returned no access token"}
	}
	c.setSession(&Session{DID: out.Did, Handle: out.Handle, AccessJwt: out.AccessJwt, RefreshJwt: out.RefreshJwt})
	return nil
}

// Refresh exchanges the refresh token for a new session.
func (c *Client) Refresh(ctx context.Context) error {
	var out *comatproto.ServerRefreshSession_Output
	err := c.call(ctx, "com.atproto.server.refreshSession", authRefresh, func(xc *xrpc.Client) (err error) {
		out, err = comatproto.ServerRefreshSession(ctx, xc)
		return err
	})
	if err != nil {
		return err
	}
	c.setSession(&Session{DID: out.Did, Handle: out.Handle, AccessJwt: out.AccessJwt, RefreshJwt: out.RefreshJwt})
	return nil
}

// Reauthenticate restores a usable session after an auth failure: it tries
// the refresh token first and falls back to a full login.
func (c *Client) Reauthenticate(ctx context.Context) error {
	if s := c.Session(); s != nil && s.RefreshJwt != "" {
		err := c.Refresh(ctx)
		if err == nil {
			return nil
		}
		if !errors.Is(err, ErrAuth) {
			return err
		}
	}
	return c.Login(ctx)
}

// Handle returns the logged-in handle, or the configured identifier before
// Login.
func (c *Client) Handle() string {
	if s := c.Session(); s != nil && s.Handle != "" {
		return s.Handle
	}
	return c.identifier
}
