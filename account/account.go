// Package account models the identity that owns storage contexts: a DID, a
// root signing capability and the per-context keyrings derived from it.
//
// Two variants ship with the SDK: a Wallet that signs automatically with a
// local private key, and a SessionAccount created from a delegated external
// login. Operations a variant deliberately lacks return errs.ErrNotImplemented.
package account

import (
	"context"

	"github.com/pilacorp/go-context-sdk/account/keyring"
	"github.com/pilacorp/go-context-sdk/common/crypto"
	"github.com/pilacorp/go-context-sdk/common/model"
)

// Account is the identity attached to a client. Every method that a variant
// cannot serve returns errs.ErrNotImplemented.
type Account interface {
	// DID returns the canonical (lowercase) DID of this identity.
	DID() (string, error)

	// Sign signs a message with the root key and returns the hex signature.
	Sign(message []byte) (string, error)

	// Keyring derives the context-scoped key bundle for a context name by
	// signing the fixed consent message.
	Keyring(contextName string) (*keyring.Keyring, error)

	// StorageConfig returns the default service endpoints used when a new
	// context is provisioned for this account.
	StorageConfig() (model.ContextEndpoints, error)

	// LinkStorage publishes a context configuration into this account's DID
	// document.
	LinkStorage(ctx context.Context, config *model.SecureContextConfig) error

	// DisconnectDevice revokes a device's access to a context.
	DisconnectDevice(ctx context.Context, contextName, deviceID string) (bool, error)
}

// StorageLinker writes context records into a DID document and publishes the
// result. The link registry implements this; the indirection keeps account
// variants free of resolver plumbing.
type StorageLinker interface {
	SetLink(ctx context.Context, did string, config *model.SecureContextConfig, kr *keyring.Keyring, sign crypto.SignFunc) error
	Unlink(ctx context.Context, did, contextName string, sign crypto.SignFunc) (bool, error)
}
