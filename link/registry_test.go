package link

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/pilacorp/go-context-sdk/account/keyring"
	"github.com/pilacorp/go-context-sdk/common/crypto"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
	"github.com/pilacorp/go-context-sdk/diddoc"
)

const (
	testDID           = "did:vda:0xabc"
	testContextName   = "My App"
	testPrivateKeyHex = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"
)

type fakeResolver struct {
	mu        sync.Mutex
	docs      map[string]*diddoc.Document
	resolves  int
	publishes int
}

func newFakeResolver() *fakeResolver {
	return &fakeResolver{docs: make(map[string]*diddoc.Document)}
}

func (f *fakeResolver) Resolve(ctx context.Context, did string) (*diddoc.Document, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.resolves++
	doc, ok := f.docs[strings.ToLower(did)]
	if !ok {
		return nil, fmt.Errorf("DID document not found: %s", did)
	}

	return doc.Copy(), nil
}

func (f *fakeResolver) Publish(ctx context.Context, doc *diddoc.Document) error {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.publishes++
	f.docs[strings.ToLower(doc.ID)] = doc.Copy()

	return nil
}

func testSetup(t *testing.T) (*Registry, *fakeResolver, *keyring.Keyring, crypto.SignFunc) {
	t.Helper()

	privateKey, err := crypto.KeyToBytes(testPrivateKeyHex)
	require.NoError(t, err)
	publicKeyHex, err := crypto.CompressedPublicKeyHex(privateKey)
	require.NoError(t, err)

	manager, err := diddoc.NewManagerFromDID(testDID, publicKeyHex)
	require.NoError(t, err)

	resolver := newFakeResolver()
	require.NoError(t, resolver.Publish(context.Background(), manager.Document()))

	registry, err := NewRegistry(resolver)
	require.NoError(t, err)

	kr, err := keyring.FromSignature([]byte("consent signature"))
	require.NoError(t, err)

	sign := func(data []byte) (string, error) {
		return crypto.SignMessage(privateKey, data)
	}

	return registry, resolver, kr, sign
}

func testConfig() *model.SecureContextConfig {
	return &model.SecureContextConfig{
		ID: testContextName,
		Services: model.ContextServices{
			DatabaseServer: model.ServiceEndpoint{Type: "ContextDatabase", EndpointURI: "https://db.example/"},
			MessageServer:  model.ServiceEndpoint{Type: "ContextMessaging", EndpointURI: "https://msg.example/"},
		},
	}
}

func TestSetLinkThenGetLink(t *testing.T) {
	registry, resolver, kr, sign := testSetup(t)
	ctx := context.Background()

	config := testConfig()
	require.NoError(t, registry.SetLink(ctx, testDID, config, kr, sign))

	hash := diddoc.ContextHash(testDID, testContextName)
	assert.Equal(t, hash, config.ID, "config id is hashed in place")
	assert.Equal(t, 2, resolver.publishes, "one seed publish plus one SetLink publish")

	resolved, err := registry.GetLink(ctx, testDID, testContextName)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, hash, resolved.ID)
	assert.Equal(t, "https://db.example/", resolved.Services.DatabaseServer.EndpointURI)
	assert.Equal(t, "https://msg.example/", resolved.Services.MessageServer.EndpointURI)
	assert.Equal(t, kr.SignPublicKeyHex(), resolved.PublicKeys.SignKey.PublicKeyHex)
	assert.Nil(t, resolved.Services.StorageServer)

	// The published document carries a valid root proof.
	doc, err := resolver.Resolve(ctx, testDID)
	require.NoError(t, err)
	manager, err := diddoc.NewManager(doc)
	require.NoError(t, err)
	assert.True(t, manager.VerifyProof())
}

func TestGetLinkByHash(t *testing.T) {
	registry, _, kr, sign := testSetup(t)
	ctx := context.Background()

	require.NoError(t, registry.SetLink(ctx, testDID, testConfig(), kr, sign))

	hash := diddoc.ContextHash(testDID, testContextName)
	resolved, err := registry.GetLink(ctx, testDID, hash)
	require.NoError(t, err)
	require.NotNil(t, resolved)
	assert.Equal(t, hash, resolved.ID)
}

func TestGetLinkMissingContext(t *testing.T) {
	registry, _, _, _ := testSetup(t)

	resolved, err := registry.GetLink(context.Background(), testDID, "Never Linked")
	assert.NoError(t, err)
	assert.Nil(t, resolved)
}

func TestGetLinkResolverFailurePassesThrough(t *testing.T) {
	registry, _, _, _ := testSetup(t)

	_, err := registry.GetLink(context.Background(), "did:vda:0xother", testContextName)
	assert.Error(t, err)
}

func TestSetLinkIdempotent(t *testing.T) {
	registry, resolver, kr, sign := testSetup(t)
	ctx := context.Background()

	require.NoError(t, registry.SetLink(ctx, testDID, testConfig(), kr, sign))
	first, err := resolver.Resolve(ctx, testDID)
	require.NoError(t, err)

	require.NoError(t, registry.SetLink(ctx, testDID, testConfig(), kr, sign))
	second, err := resolver.Resolve(ctx, testDID)
	require.NoError(t, err)

	assert.Equal(t, len(first.Service), len(second.Service))
	assert.Equal(t, len(first.VerificationMethod), len(second.VerificationMethod))
}

func TestSetLinkValidation(t *testing.T) {
	registry, _, _, sign := testSetup(t)
	ctx := context.Background()

	config := testConfig()
	config.Services.DatabaseServer.EndpointURI = ""

	err := registry.SetLink(ctx, testDID, config, nil, sign)
	assert.ErrorIs(t, err, errs.ErrInvalidInput)
}

func TestUnlink(t *testing.T) {
	registry, _, kr, sign := testSetup(t)
	ctx := context.Background()

	require.NoError(t, registry.SetLink(ctx, testDID, testConfig(), kr, sign))

	removed, err := registry.Unlink(ctx, testDID, testContextName, sign)
	require.NoError(t, err)
	assert.True(t, removed)

	resolved, err := registry.GetLink(ctx, testDID, testContextName)
	require.NoError(t, err)
	assert.Nil(t, resolved)

	removed, err = registry.Unlink(ctx, testDID, testContextName, sign)
	require.NoError(t, err)
	assert.False(t, removed, "unlinking a never-linked context returns false without error")
}

func TestValidateConfig(t *testing.T) {
	hash := diddoc.ContextHash(testDID, testContextName)
	kr, err := keyring.FromSignature([]byte("consent signature"))
	require.NoError(t, err)

	valid := &model.SecureContextConfig{
		ID:         hash,
		PublicKeys: kr.PublicKeys(),
		Services: model.ContextServices{
			DatabaseServer: model.ServiceEndpoint{Type: "ContextDatabase", EndpointURI: "https://db.example/"},
			MessageServer:  model.ServiceEndpoint{Type: "ContextMessaging", EndpointURI: "https://msg.example/"},
		},
	}
	assert.NoError(t, ValidateConfig(valid))

	missingService := *valid
	missingService.Services.MessageServer = model.ServiceEndpoint{}
	assert.ErrorIs(t, ValidateConfig(&missingService), errs.ErrInvalidInput)

	badID := *valid
	badID.ID = "My App"
	assert.ErrorIs(t, ValidateConfig(&badID), errs.ErrInvalidInput)

	assert.ErrorIs(t, ValidateConfig(nil), errs.ErrInvalidInput)
}
