// Package diddoc manages DID document values: per-context key and service
// records, document-level proofs and context signature checks.
package diddoc

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"

	"github.com/pilacorp/go-context-sdk/common/crypto"
)

// Fragments of context-scoped record ids inside a DID document.
const (
	FragmentDatabase     = "database"
	FragmentMessaging    = "messaging"
	FragmentStorage      = "storage"
	FragmentNotification = "notification"
	FragmentSign         = "sign"
	FragmentAsym         = "asym"
)

// VerificationMethod publishes a public key and its purpose. The root key
// carries the document id; context keys carry `<did>?context=<hash>#sign`
// or `#asym` ids.
type VerificationMethod struct {
	ID           string `json:"id"`
	Type         string `json:"type"`
	Controller   string `json:"controller"`
	PublicKeyHex string `json:"publicKeyHex"`
}

// Service declares a context service endpoint.
type Service struct {
	ID              string `json:"id"`
	Type            string `json:"type"`
	ServiceEndpoint string `json:"serviceEndpoint"`
}

// Proof is the document-level assertion proof signed by the root key.
type Proof struct {
	Type               string `json:"type"`
	VerificationMethod string `json:"verificationMethod"`
	ProofPurpose       string `json:"proofPurpose"`
	ProofValue         string `json:"proofValue"`
}

// Document is a DID document value. The four context collections
// (verificationMethod, assertionMethod, keyAgreement, service) are always
// mutated together as one unit.
type Document struct {
	ID                 string               `json:"id"`
	Controller         string               `json:"controller"`
	VerificationMethod []VerificationMethod `json:"verificationMethod"`
	AssertionMethod    []string             `json:"assertionMethod"`
	KeyAgreement       []string             `json:"keyAgreement"`
	Service            []Service            `json:"service"`
	Proof              *Proof               `json:"proof,omitempty"`
}

// Copy returns a deep copy of the document.
func (d *Document) Copy() *Document {
	out := &Document{
		ID:                 d.ID,
		Controller:         d.Controller,
		VerificationMethod: append([]VerificationMethod(nil), d.VerificationMethod...),
		AssertionMethod:    append([]string(nil), d.AssertionMethod...),
		KeyAgreement:       append([]string(nil), d.KeyAgreement...),
		Service:            append([]Service(nil), d.Service...),
	}
	if d.Proof != nil {
		proof := *d.Proof
		out.Proof = &proof
	}

	return out
}

// Canonical serializes the document for signing or verification, excluding
// the proof field.
func (d *Document) Canonical() ([]byte, error) {
	shadow := d.Copy()
	shadow.Proof = nil

	data, err := json.Marshal(shadow)
	if err != nil {
		return nil, fmt.Errorf("failed to canonicalize document: %w", err)
	}

	return data, nil
}

var contextHashPattern = regexp.MustCompile(`^0x[0-9a-fA-F]{64}$`)

// ContextHash computes the deterministic one-way hash binding a DID to a
// context name. The DID is canonicalized to lower case; the context name is
// case-preserved.
func ContextHash(did, contextName string) string {
	return crypto.Hash(strings.ToLower(did) + "/" + contextName)
}

// IsContextHash reports whether a value already has the context hash shape.
func IsContextHash(s string) bool {
	return contextHashPattern.MatchString(s)
}

// EnsureHash canonicalizes a context name or precomputed hash to a hash.
// A value that is already a hash is never re-hashed.
func EnsureHash(did, nameOrHash string) string {
	if IsContextHash(nameOrHash) {
		return nameOrHash
	}

	return ContextHash(did, nameOrHash)
}

// ContextID builds the id of a context-scoped record.
func ContextID(did, contextHash, fragment string) string {
	return fmt.Sprintf("%s?context=%s#%s", strings.ToLower(did), contextHash, fragment)
}
