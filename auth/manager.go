// Package auth caches per-context authentication results and mediates
// device-level disconnects. Handshake mechanics live in registered handlers,
// one per database service type.
package auth

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/bluele/gcache"
	"github.com/golang-jwt/jwt/v5"

	"github.com/pilacorp/go-context-sdk/account"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
)

// Handler performs the authentication handshake of one service type and
// revokes device access.
type Handler interface {
	AuthContext(ctx context.Context, config *model.SecureContextConfig, authConfig model.AuthConfig) (*model.AuthContext, error)
	DisconnectDevice(ctx context.Context, deviceID string) (bool, error)
}

// HandlerFactory constructs a handler bound to a context and account.
type HandlerFactory func(contextName string, acct account.Account) (Handler, error)

var (
	handlersMu       sync.RWMutex
	handlerFactories = make(map[string]HandlerFactory)
)

// RegisterHandler binds a handler factory to an auth type. Auth types match
// the database service type of the context configuration.
func RegisterHandler(authType string, factory HandlerFactory) {
	handlersMu.Lock()
	defer handlersMu.Unlock()
	handlerFactories[authType] = factory
}

func handlerByType(authType string) (HandlerFactory, error) {
	handlersMu.RLock()
	defer handlersMu.RUnlock()

	factory, ok := handlerFactories[authType]
	if !ok {
		return nil, fmt.Errorf("%w: %q", errs.ErrUnknownAuthContextType, authType)
	}

	return factory, nil
}

const defaultAuthCacheSize = 64

// Manager caches one AuthContext per context name until invalidated or the
// process restarts, and lazily authenticates the root session exactly once.
type Manager struct {
	acct         account.Account
	authenticate func(ctx context.Context) error

	mu            sync.Mutex
	authenticated bool
	cache         gcache.Cache
	handlers      map[string]Handler
}

// Option configures a Manager.
type Option func(*Manager)

// WithAuthenticator sets the root-session authenticator invoked once by
// EnsureAuthenticated.
func WithAuthenticator(authenticate func(ctx context.Context) error) Option {
	return func(m *Manager) { m.authenticate = authenticate }
}

// WithCacheSize overrides the auth context cache size.
func WithCacheSize(size int) Option {
	return func(m *Manager) { m.cache = gcache.New(size).LRU().Build() }
}

// NewManager creates a manager for an account.
func NewManager(acct account.Account, options ...Option) *Manager {
	m := &Manager{
		acct:     acct,
		cache:    gcache.New(defaultAuthCacheSize).LRU().Build(),
		handlers: make(map[string]Handler),
	}
	for _, opt := range options {
		opt(m)
	}

	return m
}

// GetAuthContext returns the cached AuthContext for a context name, or runs
// a fresh handshake when forced, expired or absent. The handler is selected
// by authType, defaulting to the configured database service type; an
// unregistered type fails with errs.ErrUnknownAuthContextType before any
// network call.
func (m *Manager) GetAuthContext(ctx context.Context, contextName string, config *model.SecureContextConfig, authConfig model.AuthConfig, authType string) (*model.AuthContext, error) {
	if config == nil {
		return nil, fmt.Errorf("%w: context config is required", errs.ErrInvalidInput)
	}
	if authType == "" {
		authType = config.Services.DatabaseServer.Type
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !authConfig.Force {
		if cached, err := m.cache.Get(contextName); err == nil {
			authContext := cached.(*model.AuthContext)
			if !tokenExpired(authContext.AccessToken) {
				return authContext, nil
			}
		}
	}

	factory, err := handlerByType(authType)
	if err != nil {
		return nil, err
	}

	if err := m.ensureAuthenticatedLocked(ctx); err != nil {
		return nil, err
	}

	handler, err := factory(contextName, m.acct)
	if err != nil {
		return nil, fmt.Errorf("failed to construct auth handler %q: %w", authType, err)
	}

	authContext, err := handler.AuthContext(ctx, config, authConfig)
	if err != nil {
		return nil, err
	}
	if authContext.ContextName == "" {
		authContext.ContextName = contextName
	}
	if authContext.AuthType == "" {
		authContext.AuthType = authType
	}

	m.cache.Set(contextName, authContext)
	m.handlers[contextName] = handler

	return authContext, nil
}

// InvalidateAuthContext drops the cached credential of a context, forcing
// the next GetAuthContext to perform a fresh handshake.
func (m *Manager) InvalidateAuthContext(contextName string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.cache.Remove(contextName)
}

// DisconnectDevice revokes a device's access to a context. The context must
// have been authenticated in this process.
func (m *Manager) DisconnectDevice(ctx context.Context, contextName, deviceID string) (bool, error) {
	m.mu.Lock()
	handler, ok := m.handlers[contextName]
	m.mu.Unlock()

	if !ok {
		return false, fmt.Errorf("%w: %q was never authenticated", errs.ErrContextNotConnected, contextName)
	}

	return handler.DisconnectDevice(ctx, deviceID)
}

// EnsureAuthenticated lazily authenticates the root session exactly once.
// Repeated calls are no-ops.
func (m *Manager) EnsureAuthenticated(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.ensureAuthenticatedLocked(ctx)
}

func (m *Manager) ensureAuthenticatedLocked(ctx context.Context) error {
	if m.authenticated {
		return nil
	}

	if m.authenticate != nil {
		if err := m.authenticate(ctx); err != nil {
			return fmt.Errorf("%w: %v", errs.ErrNotAuthenticated, err)
		}
	}
	m.authenticated = true

	return nil
}

// tokenExpired reports whether an access token is a JWT that has expired.
// Opaque (non-JWT) tokens never expire from the cache's point of view.
func tokenExpired(token string) bool {
	if token == "" {
		return false
	}

	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}

	expiry, err := claims.GetExpirationTime()
	if err != nil || expiry == nil {
		return false
	}

	return expiry.Before(time.Now())
}
