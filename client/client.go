// Package client is the runtime of the context SDK: it connects an account,
// resolves or creates context configurations through the link registry and
// hands out per-context engine access.
package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/pilacorp/go-context-sdk/account"
	"github.com/pilacorp/go-context-sdk/auth"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
	"github.com/pilacorp/go-context-sdk/link"
)

// Client owns one account binding and the open contexts of this process.
// Contexts are cached by name, so the same (DID, context) pair is never
// double-instantiated.
type Client struct {
	links    *link.Registry
	authOpts []auth.Option

	mu       sync.Mutex
	acct     account.Account
	contexts map[string]*Context
}

// Option configures a Client.
type Option func(*Client)

// WithAuthenticator sets the root-session authenticator passed to every
// context's auth manager.
func WithAuthenticator(authenticate func(ctx context.Context) error) Option {
	return func(c *Client) {
		c.authOpts = append(c.authOpts, auth.WithAuthenticator(authenticate))
	}
}

// New creates a client over a link registry.
func New(links *link.Registry, options ...Option) (*Client, error) {
	if links == nil {
		return nil, fmt.Errorf("%w: link registry is required", errs.ErrInvalidInput)
	}

	c := &Client{
		links:    links,
		contexts: make(map[string]*Context),
	}
	for _, opt := range options {
		opt(c)
	}

	return c, nil
}

// Connect attaches an account. Engines opened afterwards authenticate as
// this identity.
func (c *Client) Connect(ctx context.Context, acct account.Account) error {
	if acct == nil {
		return fmt.Errorf("%w: account is required", errs.ErrInvalidInput)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.acct = acct

	return nil
}

// Account returns the connected account, or nil.
func (c *Client) Account() account.Account {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.acct
}

// DID returns the connected account's DID.
func (c *Client) DID() (string, error) {
	acct := c.Account()
	if acct == nil {
		return "", fmt.Errorf("%w: no account connected", errs.ErrNotAuthenticated)
	}

	return acct.DID()
}

// GetContextConfig resolves the configuration of (did, contextName). An
// empty did targets the connected account and fails with
// errs.ErrNotAuthenticated when none is connected. A missing context
// returns (nil, nil) unless forceCreate is set, in which case the connected
// account provisions and publishes a new configuration.
func (c *Client) GetContextConfig(ctx context.Context, did, contextName string, forceCreate bool) (*model.SecureContextConfig, error) {
	if did == "" {
		ownDID, err := c.DID()
		if err != nil {
			return nil, err
		}
		did = ownDID
	}
	did = strings.ToLower(did)

	config, err := c.links.GetLink(ctx, did, contextName)
	if err != nil {
		return nil, err
	}
	if config != nil || !forceCreate {
		return config, nil
	}

	acct := c.Account()
	if acct == nil {
		return nil, fmt.Errorf("%w: creating a context requires a connected account", errs.ErrNotAuthenticated)
	}
	ownDID, err := acct.DID()
	if err != nil {
		return nil, err
	}
	if strings.ToLower(ownDID) != did {
		return nil, fmt.Errorf("%w: cannot create a context for another identity", errs.ErrNotAuthenticated)
	}

	endpoints, err := acct.StorageConfig()
	if err != nil {
		return nil, err
	}

	config = &model.SecureContextConfig{
		ID:       contextName,
		Services: endpoints.Services(),
	}
	if err := acct.LinkStorage(ctx, config); err != nil {
		return nil, err
	}

	return config, nil
}

// OpenContext returns the context with this name, creating the in-process
// instance on first use. With forceCreate, the context configuration is
// provisioned for the connected account when absent.
func (c *Client) OpenContext(ctx context.Context, contextName string, forceCreate bool) (*Context, error) {
	if contextName == "" {
		return nil, fmt.Errorf("%w: context name is required", errs.ErrInvalidInput)
	}

	if forceCreate {
		if _, err := c.GetContextConfig(ctx, "", contextName, true); err != nil {
			return nil, err
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if open, ok := c.contexts[contextName]; ok {
		return open, nil
	}

	open := newContext(c, contextName)
	c.contexts[contextName] = open

	return open, nil
}
