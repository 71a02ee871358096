package account

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/pilacorp/go-context-sdk/account/keyring"
	"github.com/pilacorp/go-context-sdk/account/sessionstore"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
)

// Session is the state handed over by a delegated external login: the DID,
// the single context it unlocks, the consent signature seeding that
// context's keyring, and the endpoints the login server assigned.
type Session struct {
	DID              string                 `json:"did"`
	ContextName      string                 `json:"contextName"`
	ContextSignature string                 `json:"contextSignature"`
	Endpoints        model.ContextEndpoints `json:"endpoints"`
	DeviceID         string                 `json:"deviceId"`
}

// SessionAccount is the delegated-login account variant. It carries no root
// key: Sign and LinkStorage return errs.ErrNotImplemented, and Keyring only
// works for the one context the session unlocks.
type SessionAccount struct {
	store   sessionstore.Store
	session Session
}

func sessionKey(did, contextName string) string {
	return "context-session/" + strings.ToLower(did) + "/" + contextName
}

// NewSessionAccount validates and persists a session, generating a device id
// when the login server did not assign one.
func NewSessionAccount(ctx context.Context, store sessionstore.Store, session Session) (*SessionAccount, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: session store is required", errs.ErrInvalidInput)
	}
	if session.DID == "" || session.ContextName == "" || session.ContextSignature == "" {
		return nil, fmt.Errorf("%w: session is missing did, context name or signature", errs.ErrInvalidInput)
	}

	session.DID = strings.ToLower(session.DID)
	if session.DeviceID == "" {
		session.DeviceID = uuid.NewString()
	}

	encoded, err := json.Marshal(session)
	if err != nil {
		return nil, fmt.Errorf("failed to encode session: %w", err)
	}
	if err := store.Set(ctx, sessionKey(session.DID, session.ContextName), encoded); err != nil {
		return nil, err
	}

	return &SessionAccount{store: store, session: session}, nil
}

// LoadSessionAccount restores a previously persisted session.
func LoadSessionAccount(ctx context.Context, store sessionstore.Store, did, contextName string) (*SessionAccount, error) {
	if store == nil {
		return nil, fmt.Errorf("%w: session store is required", errs.ErrInvalidInput)
	}

	encoded, err := store.Get(ctx, sessionKey(strings.ToLower(did), contextName))
	if err != nil {
		return nil, err
	}
	if encoded == nil {
		return nil, fmt.Errorf("%w: no stored session for this context", errs.ErrNotAuthenticated)
	}

	var session Session
	if err := json.Unmarshal(encoded, &session); err != nil {
		return nil, fmt.Errorf("failed to decode session: %w", err)
	}

	return &SessionAccount{store: store, session: session}, nil
}

// DID returns the session's DID.
func (a *SessionAccount) DID() (string, error) {
	return a.session.DID, nil
}

// DeviceID returns the device id bound to this session.
func (a *SessionAccount) DeviceID() string {
	return a.session.DeviceID
}

// Sign is unavailable: the root key never leaves the external login.
func (a *SessionAccount) Sign(message []byte) (string, error) {
	return "", fmt.Errorf("%w: session accounts cannot sign with the root key", errs.ErrNotImplemented)
}

// Keyring derives the keyring of the session's context from the stored
// consent signature. Other contexts are not unlocked by this session.
func (a *SessionAccount) Keyring(contextName string) (*keyring.Keyring, error) {
	if contextName != a.session.ContextName {
		return nil, fmt.Errorf("%w: session only unlocks context %q", errs.ErrNotImplemented, a.session.ContextName)
	}

	return keyring.FromSignatureHex(a.session.ContextSignature)
}

// StorageConfig returns the endpoints assigned by the login server.
func (a *SessionAccount) StorageConfig() (model.ContextEndpoints, error) {
	return a.session.Endpoints, nil
}

// LinkStorage is unavailable: publishing document updates needs the root key.
func (a *SessionAccount) LinkStorage(ctx context.Context, config *model.SecureContextConfig) error {
	return fmt.Errorf("%w: session accounts cannot publish document updates", errs.ErrNotImplemented)
}

// DisconnectDevice clears the persisted session when the device matches,
// ending this delegated login.
func (a *SessionAccount) DisconnectDevice(ctx context.Context, contextName, deviceID string) (bool, error) {
	if contextName != a.session.ContextName || deviceID != a.session.DeviceID {
		return false, nil
	}

	if err := a.store.Delete(ctx, sessionKey(a.session.DID, a.session.ContextName)); err != nil {
		return false, err
	}

	return true, nil
}
