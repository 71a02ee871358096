package client

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"golang.org/x/sync/singleflight"

	"github.com/pilacorp/go-context-sdk/account"
	"github.com/pilacorp/go-context-sdk/auth"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
	"github.com/pilacorp/go-context-sdk/engine"
)

// Context is one application silo of the connected identity. It caches
// resolved configurations and engine instances per DID; concurrent
// first-time opens of the same (DID, context) pair are coalesced.
type Context struct {
	client *Client
	name   string

	group singleflight.Group

	mu           sync.Mutex
	auth         *auth.Manager
	configs      map[string]*model.SecureContextConfig
	dbEngines    map[string]engine.StorageEngine
	messaging    engine.MessagingEngine
	notification engine.NotificationEngine
}

func newContext(c *Client, contextName string) *Context {
	return &Context{
		client:    c,
		name:      contextName,
		configs:   make(map[string]*model.SecureContextConfig),
		dbEngines: make(map[string]engine.StorageEngine),
	}
}

// Name returns the plaintext context name.
func (c *Context) Name() string {
	return c.name
}

// Account returns the client's connected account, or nil.
func (c *Context) Account() account.Account {
	return c.client.Account()
}

// DID returns the connected account's DID.
func (c *Context) DID() (string, error) {
	return c.client.DID()
}

// Auth returns the context's authentication manager.
func (c *Context) Auth() *auth.Manager {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.authLocked()
}

func (c *Context) authLocked() *auth.Manager {
	if c.auth == nil {
		c.auth = auth.NewManager(c.client.Account(), c.client.authOpts...)
	}

	return c.auth
}

// AuthContext performs or reuses the authentication handshake of this
// context for an engine's service type.
func (c *Context) AuthContext(ctx context.Context, config *model.SecureContextConfig, authConfig model.AuthConfig, authType string) (*model.AuthContext, error) {
	return c.Auth().GetAuthContext(ctx, c.name, config, authConfig, authType)
}

// GetContextConfig resolves (and caches) the configuration of this context
// for a DID. An empty did targets the connected account; customName targets
// a sibling context without opening it.
func (c *Context) GetContextConfig(ctx context.Context, did string, forceCreate bool, customName string) (*model.SecureContextConfig, error) {
	contextName := c.name
	if customName != "" {
		contextName = customName
	}

	if did == "" {
		ownDID, err := c.client.DID()
		if err != nil {
			return nil, err
		}
		did = ownDID
	}
	did = strings.ToLower(did)
	cacheKey := did + "/" + contextName

	c.mu.Lock()
	if config, ok := c.configs[cacheKey]; ok {
		c.mu.Unlock()
		return config, nil
	}
	c.mu.Unlock()

	config, err := c.client.GetContextConfig(ctx, did, contextName, forceCreate)
	if err != nil || config == nil {
		return nil, err
	}

	c.mu.Lock()
	c.configs[cacheKey] = config
	c.mu.Unlock()

	return config, nil
}

// GetDatabaseEngine returns the storage engine of (did, context), building
// it on first use: the factory is selected by the configured database
// service type, bound to this context and endpoint, and account-connected
// when an account is attached. Instances are cached by DID.
func (c *Context) GetDatabaseEngine(ctx context.Context, did string, createContext bool) (engine.StorageEngine, error) {
	if did == "" {
		ownDID, err := c.client.DID()
		if err != nil {
			return nil, err
		}
		did = ownDID
	}
	did = strings.ToLower(did)

	c.mu.Lock()
	if cached, ok := c.dbEngines[did]; ok {
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	instance, err, _ := c.group.Do(did, func() (any, error) {
		c.mu.Lock()
		if cached, ok := c.dbEngines[did]; ok {
			c.mu.Unlock()
			return cached, nil
		}
		c.mu.Unlock()

		config, err := c.GetContextConfig(ctx, did, createContext, "")
		if err != nil {
			return nil, err
		}
		if config == nil {
			return nil, fmt.Errorf("no context configuration published for %s", did)
		}

		factory, err := engine.StorageEngineByType(config.Services.DatabaseServer.Type)
		if err != nil {
			return nil, err
		}

		built, err := factory(c.name, c, config.Services.DatabaseServer.EndpointURI)
		if err != nil {
			return nil, err
		}

		if acct := c.client.Account(); acct != nil {
			if err := built.ConnectAccount(ctx, acct); err != nil {
				return nil, err
			}
		}

		c.mu.Lock()
		c.dbEngines[did] = built
		c.mu.Unlock()

		return built, nil
	})
	if err != nil {
		return nil, err
	}

	return instance.(engine.StorageEngine), nil
}

// GetMessaging returns this context's messaging engine, constructing it on
// first use. Messaging needs a real endpoint, so the context configuration
// is force-created; when a notification server is configured, sends ping
// the recipient best effort.
func (c *Context) GetMessaging(ctx context.Context) (engine.MessagingEngine, error) {
	c.mu.Lock()
	if c.messaging != nil {
		cached := c.messaging
		c.mu.Unlock()
		return cached, nil
	}
	c.mu.Unlock()

	acct := c.client.Account()
	if acct == nil {
		return nil, fmt.Errorf("%w: messaging requires a connected account", errs.ErrNotAuthenticated)
	}

	config, err := c.GetContextConfig(ctx, "", true, "")
	if err != nil {
		return nil, err
	}

	factory, err := engine.MessagingEngineByType(config.Services.MessageServer.Type)
	if err != nil {
		return nil, err
	}

	built, err := factory(c.name, c, config.Services.MessageServer.EndpointURI)
	if err != nil {
		return nil, err
	}

	if err := built.ConnectAccount(ctx, acct); err != nil {
		return nil, err
	}

	notification, err := c.GetNotification(ctx, "", "")
	if err != nil {
		return nil, err
	}
	built = engine.WithNotification(built, notification, config.ID)

	c.mu.Lock()
	c.messaging = built
	c.mu.Unlock()

	return built, nil
}

// GetNotification returns the notification engine of (did, context), or
// (nil, nil) when no notification server is configured: notifications are
// an optional capability, not an error.
func (c *Context) GetNotification(ctx context.Context, did, contextName string) (engine.NotificationEngine, error) {
	own := did == "" && contextName == ""

	if own {
		c.mu.Lock()
		if c.notification != nil {
			cached := c.notification
			c.mu.Unlock()
			return cached, nil
		}
		c.mu.Unlock()
	}

	config, err := c.GetContextConfig(ctx, did, false, contextName)
	if err != nil {
		return nil, err
	}
	if config == nil || config.Services.NotificationServer == nil {
		return nil, nil
	}

	factory, err := engine.NotificationEngineByType(config.Services.NotificationServer.Type)
	if err != nil {
		return nil, err
	}

	name := c.name
	if contextName != "" {
		name = contextName
	}
	built, err := factory(name, c, config.Services.NotificationServer.EndpointURI)
	if err != nil {
		return nil, err
	}

	if own {
		c.mu.Lock()
		c.notification = built
		c.mu.Unlock()
	}

	return built, nil
}

// OpenDatabase opens a database in this context. A database belonging to a
// different context name opens that context first and delegates, so the
// same (DID, context) pair is never double-instantiated.
func (c *Context) OpenDatabase(ctx context.Context, name string, config engine.DatabaseConfig) (engine.Database, error) {
	if config.ContextName != "" && config.ContextName != c.name {
		external, err := c.client.OpenContext(ctx, config.ContextName, false)
		if err != nil {
			return nil, err
		}

		delegated := config
		delegated.ContextName = ""
		return external.OpenDatabase(ctx, name, delegated)
	}

	did := config.ExternalDID
	createContext := false
	if did == "" {
		ownDID, err := c.client.DID()
		if err != nil {
			return nil, err
		}
		did = ownDID
		createContext = true
	}

	storage, err := c.GetDatabaseEngine(ctx, did, createContext)
	if err != nil {
		return nil, err
	}

	return storage.OpenDatabase(ctx, name, config)
}

// OpenExternalDatabase opens a database owned by another identity.
func (c *Context) OpenExternalDatabase(ctx context.Context, name, did string, config engine.DatabaseConfig) (engine.Database, error) {
	config.ExternalDID = did

	return c.OpenDatabase(ctx, name, config)
}

// OpenDatastore opens the schema-backed datastore of this context. The
// backing database is named deterministically from the schema URI.
func (c *Context) OpenDatastore(ctx context.Context, schemaURI string, config engine.DatabaseConfig) (*engine.Datastore, error) {
	if schemaURI == "" {
		return nil, fmt.Errorf("%w: schema URI is required", errs.ErrInvalidInput)
	}

	config.SchemaURI = schemaURI
	db, err := c.OpenDatabase(ctx, engine.DatastoreDatabaseName(schemaURI), config)
	if err != nil {
		return nil, err
	}

	return &engine.Datastore{SchemaURI: schemaURI, Database: db}, nil
}

// OpenExternalDatastore opens a datastore owned by another identity.
func (c *Context) OpenExternalDatastore(ctx context.Context, schemaURI, did string, config engine.DatabaseConfig) (*engine.Datastore, error) {
	config.ExternalDID = did

	return c.OpenDatastore(ctx, schemaURI, config)
}

// Disconnect drops the active account's bindings in this context: its
// engine, configuration and auth caches. Cached engines for other DIDs
// persist.
func (c *Context) Disconnect(ctx context.Context) error {
	ownDID, err := c.client.DID()
	if err != nil {
		return err
	}
	ownDID = strings.ToLower(ownDID)

	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.dbEngines, ownDID)
	delete(c.configs, ownDID+"/"+c.name)
	c.messaging = nil
	c.notification = nil
	if c.auth != nil {
		c.auth.InvalidateAuthContext(c.name)
	}

	return nil
}
