package link

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

// Registry resolves (DID, context name) pairs to secure context
// configurations and publishes new ones. A context exists iff GetLink
// returns a config whose id equals the computed hash and whose key and
// service entries are self-consistent.
type Registry struct {
	resolver Resolver
}

// NewRegistry creates a registry over a document resolver.
func NewRegistry(resolver Resolver) (*Registry, error) {
	if resolver == nil {
		return nil, fmt.Errorf("%w: resolver is required", errs.ErrInvalidInput)
	}

	return &Registry{resolver: resolver}, nil
}

// GetLink resolves the context configuration of (did, nameOrHash). A
// missing or inconsistent context returns (nil, nil); resolver failures
// pass through.
func (r *Registry) GetLink(ctx context.Context, did, nameOrHash string) (*model.SecureContextConfig, error) {
	did = strings.ToLower(did)

	doc, err := r.resolver.Resolve(ctx, did)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve %s: %w", did, err)
	}

	return configFromDocument(doc, diddoc.EnsureHash(did, nameOrHash)), nil
}

// SetLink publishes a context configuration into a DID document: it hashes
// the config's human-readable id if needed, rewrites the document's context
// records, signs the document proof with the root signer and publishes the
// result. The config is updated in place with the final id and keys.
// Identical input republishes identical records (remove-then-add).
func (r *Registry) SetLink(ctx context.Context, did string, config *model.SecureContextConfig, kr *keyring.Keyring, sign crypto.SignFunc) error {
	if config == nil {
		return fmt.Errorf("%w: config is required", errs.ErrInvalidInput)
	}
	if sign == nil {
		return fmt.Errorf("%w: root signer is required", errs.ErrInvalidInput)
	}

	did = strings.ToLower(did)
	config.ID = diddoc.EnsureHash(did, config.ID)
	if kr != nil {
		config.PublicKeys = kr.PublicKeys()
	}

	if err := ValidateConfig(config); err != nil {
		return err
	}

	doc, err := r.resolver.Resolve(ctx, did)
	if err != nil {
		return fmt.Errorf("failed to resolve %s: %w", did, err)
	}

	manager, err := diddoc.NewManager(doc)
	if err != nil {
		return err
	}

	endpoints := model.ContextEndpoints{
		Database:     config.Services.DatabaseServer,
		Messaging:    config.Services.MessageServer,
		Storage:      config.Services.StorageServer,
		Notification: config.Services.NotificationServer,
	}
	if _, err := manager.AddContext(config.ID, config.PublicKeys, endpoints); err != nil {
		return err
	}

	if err := manager.SignProof(sign); err != nil {
		return err
	}

	if err := r.resolver.Publish(ctx, manager.Document()); err != nil {
		return fmt.Errorf("failed to publish document: %w", err)
	}

	return nil
}

// Unlink removes a context from a DID document. When the context was
// recorded, the document is re-signed and republished and true is returned;
// unlinking a never-linked context returns false without error.
func (r *Registry) Unlink(ctx context.Context, did, contextName string, sign crypto.SignFunc) (bool, error) {
	did = strings.ToLower(did)

	doc, err := r.resolver.Resolve(ctx, did)
	if err != nil {
		return false, fmt.Errorf("failed to resolve %s: %w", did, err)
	}

	manager, err := diddoc.NewManager(doc)
	if err != nil {
		return false, err
	}

	if !manager.RemoveContext(contextName) {
		return false, nil
	}

	if err := manager.SignProof(sign); err != nil {
		return false, err
	}

	if err := r.resolver.Publish(ctx, manager.Document()); err != nil {
		return false, fmt.Errorf("failed to publish document: %w", err)
	}

	return true, nil
}

// configFromDocument reconstructs a context configuration from the
// document's records. Returns nil unless the sign/asym keys and the
// database/message services are all present.
func configFromDocument(doc *diddoc.Document, hash string) *model.SecureContextConfig {
	if doc == nil {
		return nil
	}

	var signKey, asymKey *model.PublicKeyInfo
	signID := diddoc.ContextID(doc.ID, hash, diddoc.FragmentSign)
	asymID := diddoc.ContextID(doc.ID, hash, diddoc.FragmentAsym)
	for _, vm := range doc.VerificationMethod {
		key := model.PublicKeyInfo{Type: vm.Type, PublicKeyHex: vm.PublicKeyHex}
		switch vm.ID {
		case signID:
			signKey = &key
		case asymID:
			asymKey = &key
		}
	}
	if signKey == nil || asymKey == nil {
		return nil
	}

	services := model.ContextServices{}
	for _, svc := range doc.Service {
		endpoint := model.ServiceEndpoint{Type: svc.Type, EndpointURI: svc.ServiceEndpoint}
		switch svc.ID {
		case diddoc.ContextID(doc.ID, hash, diddoc.FragmentDatabase):
			services.DatabaseServer = endpoint
		case diddoc.ContextID(doc.ID, hash, diddoc.FragmentMessaging):
			services.MessageServer = endpoint
		case diddoc.ContextID(doc.ID, hash, diddoc.FragmentStorage):
			storage := endpoint
			services.StorageServer = &storage
		case diddoc.ContextID(doc.ID, hash, diddoc.FragmentNotification):
			notification := endpoint
			services.NotificationServer = &notification
		}
	}
	if services.DatabaseServer.EndpointURI == "" || services.MessageServer.EndpointURI == "" {
		return nil
	}

	return &model.SecureContextConfig{
		ID:         hash,
		PublicKeys: model.ContextPublicKeys{SignKey: *signKey, AsymKey: *asymKey},
		Services:   services,
	}
}
