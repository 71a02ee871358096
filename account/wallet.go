package account

import (
	"context"
	"fmt"
	"strings"

	"github.com/pilacorp/go-context-sdk/account/keyring"
	"github.com/pilacorp/go-context-sdk/common/crypto"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
	"github.com/pilacorp/go-context-sdk/diddoc"
)

// DefaultDIDMethod is the DID method prefix of wallet identities.
const DefaultDIDMethod = "did:vda"

// Wallet is the auto-signing account variant: it holds a secp256k1 private
// key and signs consent messages and document proofs without user
// interaction.
type Wallet struct {
	privateKey   []byte
	did          string
	publicKeyHex string
	endpoints    model.ContextEndpoints
	linker       StorageLinker
}

// WalletOption configures a Wallet.
type WalletOption func(*walletConfig)

type walletConfig struct {
	method    string
	endpoints model.ContextEndpoints
	linker    StorageLinker
}

// WithDIDMethod overrides the DID method prefix (default "did:vda").
func WithDIDMethod(method string) WalletOption {
	return func(c *walletConfig) { c.method = method }
}

// WithContextEndpoints sets the default service endpoints provisioned for
// new contexts of this account.
func WithContextEndpoints(endpoints model.ContextEndpoints) WalletOption {
	return func(c *walletConfig) { c.endpoints = endpoints }
}

// WithStorageLinker attaches the link registry used by LinkStorage.
func WithStorageLinker(linker StorageLinker) WalletOption {
	return func(c *walletConfig) { c.linker = linker }
}

// NewWallet creates a wallet account from a hex private key. The DID is
// derived from the key's address and canonicalized to lower case.
func NewWallet(privateKeyHex string, options ...WalletOption) (*Wallet, error) {
	cfg := walletConfig{method: DefaultDIDMethod}
	for _, opt := range options {
		opt(&cfg)
	}

	privateKey, err := crypto.KeyToBytes(privateKeyHex)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	address, err := crypto.AddressFromPrivateKey(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	publicKeyHex, err := crypto.CompressedPublicKeyHex(privateKey)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}

	return &Wallet{
		privateKey:   privateKey,
		did:          strings.ToLower(cfg.method + ":" + address),
		publicKeyHex: publicKeyHex,
		endpoints:    cfg.endpoints,
		linker:       cfg.linker,
	}, nil
}

// DID returns the wallet's DID.
func (w *Wallet) DID() (string, error) {
	return w.did, nil
}

// PublicKeyHex returns the 0x-prefixed compressed root public key.
func (w *Wallet) PublicKeyHex() string {
	return w.publicKeyHex
}

// Sign signs a message with the root key.
func (w *Wallet) Sign(message []byte) (string, error) {
	return crypto.SignMessage(w.privateKey, message)
}

// Keyring derives the context keyring by signing the consent message for
// the context name. The result is deterministic and never persisted.
func (w *Wallet) Keyring(contextName string) (*keyring.Keyring, error) {
	consent := keyring.ConsentMessage(contextName, w.did)

	signature, err := w.Sign([]byte(consent))
	if err != nil {
		return nil, fmt.Errorf("failed to sign consent message: %w", err)
	}

	return keyring.FromSignatureHex(signature)
}

// StorageConfig returns the default context endpoints of this wallet.
func (w *Wallet) StorageConfig() (model.ContextEndpoints, error) {
	if w.endpoints.Database.EndpointURI == "" || w.endpoints.Messaging.EndpointURI == "" {
		return model.ContextEndpoints{}, fmt.Errorf("%w: wallet has no default context endpoints", errs.ErrInvalidInput)
	}

	return w.endpoints, nil
}

// LinkStorage publishes a context configuration into the wallet's DID
// document. When the config id is still a human-readable context name, the
// keyring is derived so its public keys land in the document.
func (w *Wallet) LinkStorage(ctx context.Context, config *model.SecureContextConfig) error {
	if w.linker == nil {
		return fmt.Errorf("%w: wallet has no storage linker", errs.ErrNotImplemented)
	}
	if config == nil {
		return fmt.Errorf("%w: config is required", errs.ErrInvalidInput)
	}

	var kr *keyring.Keyring
	if !diddoc.IsContextHash(config.ID) {
		var err error
		kr, err = w.Keyring(config.ID)
		if err != nil {
			return err
		}
	}

	return w.linker.SetLink(ctx, w.did, config, kr, w.Sign)
}

// UnlinkStorage removes a context from the wallet's DID document.
func (w *Wallet) UnlinkStorage(ctx context.Context, contextName string) (bool, error) {
	if w.linker == nil {
		return false, fmt.Errorf("%w: wallet has no storage linker", errs.ErrNotImplemented)
	}

	return w.linker.Unlink(ctx, w.did, contextName, w.Sign)
}

// DisconnectDevice is not available on a wallet: device sessions only exist
// on the delegated-login variant.
func (w *Wallet) DisconnectDevice(ctx context.Context, contextName, deviceID string) (bool, error) {
	return false, fmt.Errorf("%w: wallet accounts have no device sessions", errs.ErrNotImplemented)
}
