// Package keyring derives the context-scoped key bundle of a storage
// context. The bundle is never persisted: it is regenerated from the root
// signer's consent signature whenever needed.
package keyring

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"

	"github.com/pilacorp/go-context-sdk/common/crypto"
	"github.com/pilacorp/go-context-sdk/common/model"
)

// Verification method types published for the two context keys.
const (
	SignKeyType = "EcdsaSecp256k1VerificationKey2019"
	AsymKeyType = "EcdsaSecp256k1AgreementKey2019"
)

// ConsentMessage builds the fixed message a root signer signs to unlock a
// storage context. The signature over this message seeds the keyring.
func ConsentMessage(contextName, did string) string {
	return fmt.Sprintf("Do you wish to unlock this storage context: \"%s\"?\n\n%s", contextName, did)
}

// Keyring is the context-scoped key bundle: a signing key and an asymmetric
// key agreement key, both deterministically derived from one consent
// signature.
type Keyring struct {
	signKey *secp256k1.PrivateKey
	asymKey *secp256k1.PrivateKey
}

// FromSignature derives a keyring from a consent signature. The same
// signature always yields the same keyring.
func FromSignature(signature []byte) (*Keyring, error) {
	if len(signature) == 0 {
		return nil, fmt.Errorf("consent signature is empty")
	}

	signSeed := sha256.Sum256(append(signature, []byte("/sign")...))
	asymSeed := sha256.Sum256(append(signature, []byte("/asym")...))

	return &Keyring{
		signKey: secp256k1.PrivKeyFromBytes(signSeed[:]),
		asymKey: secp256k1.PrivKeyFromBytes(asymSeed[:]),
	}, nil
}

// FromSignatureHex derives a keyring from a hex consent signature.
func FromSignatureHex(signatureHex string) (*Keyring, error) {
	signature, err := crypto.KeyToBytes(signatureHex)
	if err != nil {
		return nil, fmt.Errorf("invalid consent signature: %w", err)
	}

	return FromSignature(signature)
}

// SignPublicKeyHex returns the 0x-prefixed compressed signing public key.
func (k *Keyring) SignPublicKeyHex() string {
	return "0x" + hex.EncodeToString(k.signKey.PubKey().SerializeCompressed())
}

// AsymPublicKeyHex returns the 0x-prefixed compressed key agreement public key.
func (k *Keyring) AsymPublicKeyHex() string {
	return "0x" + hex.EncodeToString(k.asymKey.PubKey().SerializeCompressed())
}

// PublicKeys returns the publishable key pair of this keyring.
func (k *Keyring) PublicKeys() model.ContextPublicKeys {
	return model.ContextPublicKeys{
		SignKey: model.PublicKeyInfo{
			Type:         SignKeyType,
			PublicKeyHex: k.SignPublicKeyHex(),
		},
		AsymKey: model.PublicKeyInfo{
			Type:         AsymKeyType,
			PublicKeyHex: k.AsymPublicKeyHex(),
		},
	}
}

// Sign signs a message with the context signing key and returns the
// signature in hex format.
func (k *Keyring) Sign(message []byte) (string, error) {
	return crypto.SignMessage(k.signKey.Serialize(), message)
}

// SharedSecret computes the ECDH shared secret between this keyring's
// asymmetric key and a peer's compressed public key.
func (k *Keyring) SharedSecret(peerPublicKeyHex string) ([]byte, error) {
	peerBytes, err := crypto.KeyToBytes(peerPublicKeyHex)
	if err != nil {
		return nil, fmt.Errorf("failed to decode peer public key: %w", err)
	}

	peerKey, err := secp256k1.ParsePubKey(peerBytes)
	if err != nil {
		return nil, fmt.Errorf("failed to parse peer public key: %w", err)
	}

	secret := secp256k1.GenerateSharedSecret(k.asymKey, peerKey)

	return secret[:], nil
}
