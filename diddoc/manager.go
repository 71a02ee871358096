package diddoc

import (
	"fmt"
	"strings"
	"sync"

	"github.com/pilacorp/go-context-sdk/common/crypto"
	"github.com/pilacorp/go-context-sdk/common/errs"
	"github.com/pilacorp/go-context-sdk/common/model"
)

// ProofType is the signature suite of document-level proofs.
const ProofType = "EcdsaSecp256k1Signature2019"

// Manager owns one DID document value. All mutations run under an exclusive
// lock so the four context collections update atomically relative to
// concurrent SignProof and Document calls.
type Manager struct {
	mu  sync.Mutex
	doc *Document
}

// NewManager wraps an existing document.
func NewManager(doc *Document) (*Manager, error) {
	if doc == nil || doc.ID == "" {
		return nil, fmt.Errorf("%w: document is missing an id", errs.ErrInvalidInput)
	}

	owned := doc.Copy()
	owned.ID = strings.ToLower(owned.ID)

	return &Manager{doc: owned}, nil
}

// NewManagerFromDID synthesizes a minimal document for a bare DID: one root
// verification method publishing the given compressed public key and one
// assertionMethod entry referencing it.
func NewManagerFromDID(did, publicKeyHex string) (*Manager, error) {
	if did == "" {
		return nil, fmt.Errorf("%w: did is required", errs.ErrInvalidInput)
	}
	if err := validatePublicKeyHex(publicKeyHex); err != nil {
		return nil, err
	}

	did = strings.ToLower(did)
	doc := &Document{
		ID:         did,
		Controller: did,
		VerificationMethod: []VerificationMethod{{
			ID:           did,
			Type:         ProofType,
			Controller:   did,
			PublicKeyHex: publicKeyHex,
		}},
		AssertionMethod: []string{did},
	}

	return &Manager{doc: doc}, nil
}

func validatePublicKeyHex(publicKeyHex string) error {
	if publicKeyHex == "" {
		return fmt.Errorf("%w: public key is required", errs.ErrInvalidInput)
	}

	raw, err := crypto.KeyToBytes(publicKeyHex)
	if err != nil {
		return fmt.Errorf("%w: %v", errs.ErrInvalidInput, err)
	}
	if len(raw) != crypto.CompressedKeyLength {
		return fmt.Errorf("%w: public key must be %d bytes, got %d",
			errs.ErrInvalidInput, crypto.CompressedKeyLength, len(raw))
	}

	return nil
}

// DID returns the canonical document id.
func (m *Manager) DID() string {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.doc.ID
}

// Document exports a deep copy of the current document value.
func (m *Manager) Document() *Document {
	m.mu.Lock()
	defer m.mu.Unlock()

	return m.doc.Copy()
}

// AddContext records a context inside the document: up to four service
// entries plus the sign/asym verification methods and their assertionMethod
// and keyAgreement references. Re-adding an existing context first removes
// its previous entries, so the call is idempotent. Returns the context hash.
func (m *Manager) AddContext(contextName string, keys model.ContextPublicKeys, endpoints model.ContextEndpoints) (string, error) {
	if err := validatePublicKeyHex(keys.SignKey.PublicKeyHex); err != nil {
		return "", fmt.Errorf("sign key: %w", err)
	}
	if err := validatePublicKeyHex(keys.AsymKey.PublicKeyHex); err != nil {
		return "", fmt.Errorf("asym key: %w", err)
	}
	if endpoints.Database.EndpointURI == "" || endpoints.Messaging.EndpointURI == "" {
		return "", fmt.Errorf("%w: database and messaging endpoints are required", errs.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	hash := EnsureHash(m.doc.ID, contextName)
	m.removeContextLocked(hash)

	m.doc.Service = append(m.doc.Service,
		Service{
			ID:              ContextID(m.doc.ID, hash, FragmentDatabase),
			Type:            endpoints.Database.Type,
			ServiceEndpoint: endpoints.Database.EndpointURI,
		},
		Service{
			ID:              ContextID(m.doc.ID, hash, FragmentMessaging),
			Type:            endpoints.Messaging.Type,
			ServiceEndpoint: endpoints.Messaging.EndpointURI,
		},
	)
	if endpoints.Storage != nil {
		m.doc.Service = append(m.doc.Service, Service{
			ID:              ContextID(m.doc.ID, hash, FragmentStorage),
			Type:            endpoints.Storage.Type,
			ServiceEndpoint: endpoints.Storage.EndpointURI,
		})
	}
	if endpoints.Notification != nil {
		m.doc.Service = append(m.doc.Service, Service{
			ID:              ContextID(m.doc.ID, hash, FragmentNotification),
			Type:            endpoints.Notification.Type,
			ServiceEndpoint: endpoints.Notification.EndpointURI,
		})
	}

	signID := ContextID(m.doc.ID, hash, FragmentSign)
	asymID := ContextID(m.doc.ID, hash, FragmentAsym)

	m.doc.VerificationMethod = append(m.doc.VerificationMethod,
		VerificationMethod{
			ID:           signID,
			Type:         keys.SignKey.Type,
			Controller:   m.doc.ID,
			PublicKeyHex: keys.SignKey.PublicKeyHex,
		},
		VerificationMethod{
			ID:           asymID,
			Type:         keys.AsymKey.Type,
			Controller:   m.doc.ID,
			PublicKeyHex: keys.AsymKey.PublicKeyHex,
		},
	)
	m.doc.AssertionMethod = append(m.doc.AssertionMethod, signID)
	m.doc.KeyAgreement = append(m.doc.KeyAgreement, asymID)

	return hash, nil
}

// RemoveContext removes every record referencing a context from all four
// collections. Returns false when the document has no verification methods
// or none match the context.
func (m *Manager) RemoveContext(nameOrHash string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if len(m.doc.VerificationMethod) == 0 {
		return false
	}

	hash := EnsureHash(m.doc.ID, nameOrHash)
	marker := "?context=" + hash

	found := false
	for _, vm := range m.doc.VerificationMethod {
		if strings.Contains(vm.ID, marker) {
			found = true
			break
		}
	}
	if !found {
		return false
	}

	m.removeContextLocked(hash)

	return true
}

// removeContextLocked filters matching entries out of the four collections
// in one pass. Callers hold the document lock.
func (m *Manager) removeContextLocked(hash string) {
	marker := "?context=" + hash

	methods := m.doc.VerificationMethod[:0:0]
	for _, vm := range m.doc.VerificationMethod {
		if !strings.Contains(vm.ID, marker) {
			methods = append(methods, vm)
		}
	}
	m.doc.VerificationMethod = methods

	assertions := m.doc.AssertionMethod[:0:0]
	for _, id := range m.doc.AssertionMethod {
		if !strings.Contains(id, marker) {
			assertions = append(assertions, id)
		}
	}
	m.doc.AssertionMethod = assertions

	agreements := m.doc.KeyAgreement[:0:0]
	for _, id := range m.doc.KeyAgreement {
		if !strings.Contains(id, marker) {
			agreements = append(agreements, id)
		}
	}
	m.doc.KeyAgreement = agreements

	services := m.doc.Service[:0:0]
	for _, svc := range m.doc.Service {
		if !strings.Contains(svc.ID, marker) {
			services = append(services, svc)
		}
	}
	m.doc.Service = services

	// Collections emptied by the filter revert to nil so a remove restores
	// the exact pre-add serialized form.
	if len(m.doc.VerificationMethod) == 0 {
		m.doc.VerificationMethod = nil
	}
	if len(m.doc.AssertionMethod) == 0 {
		m.doc.AssertionMethod = nil
	}
	if len(m.doc.KeyAgreement) == 0 {
		m.doc.KeyAgreement = nil
	}
	if len(m.doc.Service) == 0 {
		m.doc.Service = nil
	}
}

// SignProof signs the canonical form of the document (proof dropped) with
// the root signer and attaches the assertion proof.
func (m *Manager) SignProof(sign crypto.SignFunc) error {
	if sign == nil {
		return fmt.Errorf("%w: signer is required", errs.ErrInvalidInput)
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	canonical, err := m.doc.Canonical()
	if err != nil {
		return err
	}

	signature, err := sign(canonical)
	if err != nil {
		return fmt.Errorf("failed to sign document proof: %w", err)
	}

	m.doc.Proof = &Proof{
		Type:               ProofType,
		VerificationMethod: m.doc.ID,
		ProofPurpose:       "assertionMethod",
		ProofValue:         signature,
	}

	return nil
}

// VerifyProof checks the attached proof against the root verification
// method. Returns false when either is missing.
func (m *Manager) VerifyProof() bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.doc.Proof == nil {
		return false
	}

	var rootKey string
	for _, vm := range m.doc.VerificationMethod {
		if vm.ID == m.doc.ID {
			rootKey = vm.PublicKeyHex
			break
		}
	}
	if rootKey == "" {
		return false
	}

	canonical, err := m.doc.Canonical()
	if err != nil {
		return false
	}

	return crypto.VerifySignatureHex(rootKey, canonical, m.doc.Proof.ProofValue)
}

// VerifyContextSignature checks a signature against the #sign verification
// method of a context. Returns false when no such method exists.
func (m *Manager) VerifyContextSignature(data []byte, nameOrHash, signatureHex string) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	signID := ContextID(m.doc.ID, EnsureHash(m.doc.ID, nameOrHash), FragmentSign)
	for _, vm := range m.doc.VerificationMethod {
		if vm.ID == signID {
			return crypto.VerifySignatureHex(vm.PublicKeyHex, data, signatureHex)
		}
	}

	return false
}

// LocateServiceEndpoint returns the endpoint of the #<fragment> service
// entry of a context, or the empty string when absent.
func (m *Manager) LocateServiceEndpoint(nameOrHash, fragment string) string {
	m.mu.Lock()
	defer m.mu.Unlock()

	id := ContextID(m.doc.ID, EnsureHash(m.doc.ID, nameOrHash), fragment)
	for _, svc := range m.doc.Service {
		if svc.ID == id {
			return svc.ServiceEndpoint
		}
	}

	return ""
}
