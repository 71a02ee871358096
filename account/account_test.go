package account

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-context-sdk/account/sessionstore"
	"github.com/pilacorp/go-context-sdk/common/crypto"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
)

const (
	testPrivateKeyHex = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
	testContextName   = "My App"
)

func testEndpoints() model.ContextEndpoints {
	return model.ContextEndpoints{
		Database:  model.ServiceEndpoint{Type: "ContextDatabase", EndpointURI: "https://db.example/"},
		Messaging: model.ServiceEndpoint{Type: "ContextMessaging", EndpointURI: "https://msg.example/"},
	}
}

func TestNewWallet(t *testing.T) {
	wallet, err := NewWallet(testPrivateKeyHex)
	require.NoError(t, err)

	did, err := wallet.DID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(did, "did:vda:0x"))
	assert.Equal(t, strings.ToLower(did), did, "DID is canonicalized to lower case")

	custom, err := NewWallet(testPrivateKeyHex, WithDIDMethod("did:test"))
	require.NoError(t, err)
	customDID, err := custom.DID()
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(customDID, "did:test:0x"))

	_, err = NewWallet("0xzz")
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestWalletSign(t *testing.T) {
	wallet, err := NewWallet(testPrivateKeyHex)
	require.NoError(t, err)

	message := []byte("document payload")
	signature, err := wallet.Sign(message)
	require.NoError(t, err)

	assert.True(t, crypto.VerifySignatureHex(wallet.PublicKeyHex(), message, signature))
}

func TestWalletKeyringDeterministic(t *testing.T) {
	wallet, err := NewWallet(testPrivateKeyHex)
	require.NoError(t, err)

	first, err := wallet.Keyring(testContextName)
	require.NoError(t, err)
	second, err := wallet.Keyring(testContextName)
	require.NoError(t, err)

	assert.Equal(t, first.SignPublicKeyHex(), second.SignPublicKeyHex())
	assert.Equal(t, first.AsymPublicKeyHex(), second.AsymPublicKeyHex())

	other, err := wallet.Keyring("Other App")
	require.NoError(t, err)
	assert.NotEqual(t, first.SignPublicKeyHex(), other.SignPublicKeyHex())
}

func TestWalletStorageConfig(t *testing.T) {
	bare, err := NewWallet(testPrivateKeyHex)
	require.NoError(t, err)
	_, err = bare.StorageConfig()
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	wallet, err := NewWallet(testPrivateKeyHex, WithContextEndpoints(testEndpoints()))
	require.NoError(t, err)
	endpoints, err := wallet.StorageConfig()
	require.NoError(t, err)
	assert.Equal(t, "https://db.example/", endpoints.Database.EndpointURI)
}

func TestWalletWithoutLinker(t *testing.T) {
	wallet, err := NewWallet(testPrivateKeyHex)
	require.NoError(t, err)
	ctx := context.Background()

	err = wallet.LinkStorage(ctx, &model.SecureContextConfig{ID: testContextName})
	assert.ErrorIs(t, err, errs.ErrNotImplemented)

	_, err = wallet.UnlinkStorage(ctx, testContextName)
	assert.ErrorIs(t, err, errs.ErrNotImplemented)
}

func TestWalletDisconnectDevice(t *testing.T) {
	wallet, err := NewWallet(testPrivateKeyHex)
	require.NoError(t, err)

	_, err = wallet.DisconnectDevice(context.Background(), testContextName, "device-1")
	assert.ErrorIs(t, err, errs.ErrNotImplemented)
}

func testSession(t *testing.T) Session {
	t.Helper()

	wallet, err := NewWallet(testPrivateKeyHex)
	require.NoError(t, err)
	did, err := wallet.DID()
	require.NoError(t, err)

	consent := keyringConsent(t, wallet)

	return Session{
		DID:              did,
		ContextName:      testContextName,
		ContextSignature: consent,
		Endpoints:        testEndpoints(),
	}
}

func keyringConsent(t *testing.T, wallet *Wallet) string {
	t.Helper()

	did, err := wallet.DID()
	require.NoError(t, err)

	signature, err := wallet.Sign([]byte("Do you wish to unlock this storage context: \"" + testContextName + "\"?\n\n" + did))
	require.NoError(t, err)

	return signature
}

func TestSessionAccountValidation(t *testing.T) {
	store := sessionstore.NewMemory()
	ctx := context.Background()

	_, err := NewSessionAccount(ctx, nil, testSession(t))
	assert.ErrorIs(t, err, errs.ErrInvalidInput)

	incomplete := testSession(t)
	incomplete.ContextSignature = ""
	_, err = NewSessionAccount(ctx, store, incomplete)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestSessionAccountRoundtrip(t *testing.T) {
	store := sessionstore.NewMemory()
	ctx := context.Background()
	session := testSession(t)

	created, err := NewSessionAccount(ctx, store, session)
	require.NoError(t, err)
	assert.NotEmpty(t, created.DeviceID(), "a device id is generated when the login did not assign one")

	loaded, err := LoadSessionAccount(ctx, store, strings.ToUpper(session.DID), testContextName)
	require.NoError(t, err)

	did, err := loaded.DID()
	require.NoError(t, err)
	assert.Equal(t, session.DID, did)
	assert.Equal(t, created.DeviceID(), loaded.DeviceID())

	endpoints, err := loaded.StorageConfig()
	require.NoError(t, err)
	assert.Equal(t, session.Endpoints, endpoints)
}

func TestLoadSessionAccountMissing(t *testing.T) {
	_, err := LoadSessionAccount(context.Background(), sessionstore.NewMemory(), "did:vda:0xabc", testContextName)
	assert.ErrorIs(t, err, errs.ErrNotAuthenticated)
}

func TestSessionAccountRestrictedOperations(t *testing.T) {
	acct, err := NewSessionAccount(context.Background(), sessionstore.NewMemory(), testSession(t))
	require.NoError(t, err)

	_, err = acct.Sign([]byte("anything"))
	assert.ErrorIs(t, err, errs.ErrNotImplemented)

	err = acct.LinkStorage(context.Background(), &model.SecureContextConfig{ID: testContextName})
	assert.ErrorIs(t, err, errs.ErrNotImplemented)
}

func TestSessionAccountKeyringScope(t *testing.T) {
	acct, err := NewSessionAccount(context.Background(), sessionstore.NewMemory(), testSession(t))
	require.NoError(t, err)

	kr, err := acct.Keyring(testContextName)
	require.NoError(t, err)
	assert.NotEmpty(t, kr.SignPublicKeyHex())

	_, err = acct.Keyring("Other App")
	assert.ErrorIs(t, err, errs.ErrNotImplemented)
}

func TestSessionAccountDisconnectDevice(t *testing.T) {
	store := sessionstore.NewMemory()
	ctx := context.Background()
	session := testSession(t)

	acct, err := NewSessionAccount(ctx, store, session)
	require.NoError(t, err)

	removed, err := acct.DisconnectDevice(ctx, testContextName, "wrong-device")
	require.NoError(t, err)
	assert.False(t, removed)

	removed, err = acct.DisconnectDevice(ctx, testContextName, acct.DeviceID())
	require.NoError(t, err)
	assert.True(t, removed)

	_, err = LoadSessionAccount(ctx, store, session.DID, testContextName)
	assert.ErrorIs(t, err, errs.ErrNotAuthenticated)
}
