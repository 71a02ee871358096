// Package engine defines the pluggable engine contracts of the context SDK
// and the type→factory tables that bind a resolved context configuration to
// concrete storage, messaging and notification implementations.
package engine

import (
	"context"

	"github.com/pilacorp/go-context-sdk/account"
	"github.com/pilacorp/go-context-sdk/common/model"
)

// ContextHandle is the view of an open context an engine receives at
// construction time.
type ContextHandle interface {
	// Name is the plaintext context name.
	Name() string

	// DID is the canonical DID of the active account.
	DID() (string, error)

	// Account is the active account, or nil for read-only access.
	Account() account.Account

	// AuthContext performs (or reuses) the per-context authentication
	// handshake for this engine's service type.
	AuthContext(ctx context.Context, config *model.SecureContextConfig, authConfig model.AuthConfig, authType string) (*model.AuthContext, error)
}

// Database is an opened database handle. Query and sync mechanics live in
// the engine implementation.
type Database interface {
	Name() string
	Close(ctx context.Context) error
}

// DatabaseConfig controls how a database is opened.
type DatabaseConfig struct {
	// ReadOnly opens the database without requesting write access.
	ReadOnly bool
	// SchemaURI marks the database as a schema-backed datastore.
	SchemaURI string
	// ContextName targets a database belonging to a different context.
	ContextName string
	// ExternalDID targets a database owned by a different identity.
	ExternalDID string
}

// StorageEngine provides database access for one (DID, context) pair.
type StorageEngine interface {
	// ConnectAccount authenticates the engine for an account.
	ConnectAccount(ctx context.Context, acct account.Account) error

	// OpenDatabase opens a named database.
	OpenDatabase(ctx context.Context, name string, config DatabaseConfig) (Database, error)
}

// MessageSendConfig controls a single send.
type MessageSendConfig struct {
	// Expiry unix-seconds after which the message may be dropped. Zero
	// means no expiry.
	Expiry int64
}

// MessageHandler receives inbound messages.
type MessageHandler func(message *model.Message)

// MessagingEngine provides the message channel of one context.
type MessagingEngine interface {
	ConnectAccount(ctx context.Context, acct account.Account) error

	// Send delivers a message to a DID's context inbox.
	Send(ctx context.Context, toDID, messageType string, data any, message string, config MessageSendConfig) (*model.Message, error)

	// OnMessage registers a handler for inbound messages.
	OnMessage(handler MessageHandler) error

	// GetMessages fetches stored messages matching a filter.
	GetMessages(ctx context.Context, filter model.MessageFilter) ([]model.Message, error)
}

// NotificationEngine pings a recipient's notification server so a device
// can wake up and fetch new messages.
type NotificationEngine interface {
	Ping(ctx context.Context, toDID, contextHash string) error
}

// Factory signatures. Every engine kind shares the same constructor shape:
// (contextName, contextHandle, endpointURI).
type (
	StorageEngineFactory      func(contextName string, handle ContextHandle, endpointURI string) (StorageEngine, error)
	MessagingEngineFactory    func(contextName string, handle ContextHandle, endpointURI string) (MessagingEngine, error)
	NotificationEngineFactory func(contextName string, handle ContextHandle, endpointURI string) (NotificationEngine, error)
)
