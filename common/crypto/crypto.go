// Package crypto wraps the secp256k1 primitives used across the context
// SDK: keccak hashing, 65-byte [r, s, v] signatures and compressed hex
// public keys.
package crypto

import (
	"bytes"
	"crypto/ecdsa"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"

	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/ethereum/go-ethereum/crypto"
)

// CompressedKeyLength is the byte length of a compressed secp256k1 public key.
const CompressedKeyLength = 33

// SignFunc signs a message and returns the signature in hex format. Account
// variants and keyrings expose their signing capability through this shape.
type SignFunc func(message []byte) (string, error)

// KeyToBytes converts a hex key, with or without the 0x prefix, to bytes.
func KeyToBytes(key string) ([]byte, error) {
	raw, err := hex.DecodeString(strings.TrimPrefix(key, "0x"))
	if err != nil {
		return nil, fmt.Errorf("key is not in hex format: %w", err)
	}

	return raw, nil
}

// ParsePrivateKey parses a 32-byte secp256k1 private key.
func ParsePrivateKey(privateKeyBytes []byte) (*ecdsa.PrivateKey, error) {
	if len(privateKeyBytes) != 32 {
		return nil, errors.New("private key must be 32 bytes")
	}

	privKey, err := crypto.ToECDSA(privateKeyBytes)
	if err != nil {
		return nil, err
	}

	return privKey, nil
}

// ParsePublicKey parses a public key in compressed (33 bytes) or
// uncompressed (65 bytes) form and returns the compressed bytes.
func ParsePublicKey(publicKeyBytes []byte) ([]byte, error) {
	switch {
	case len(publicKeyBytes) == CompressedKeyLength &&
		(publicKeyBytes[0] == 0x02 || publicKeyBytes[0] == 0x03):
		pubKey, err := btcec.ParsePubKey(publicKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to parse compressed public key: %w", err)
		}
		return pubKey.SerializeCompressed(), nil
	case len(publicKeyBytes) == 65 && publicKeyBytes[0] == 0x04:
		pubKey, err := crypto.UnmarshalPubkey(publicKeyBytes)
		if err != nil {
			return nil, fmt.Errorf("failed to unmarshal public key: %w", err)
		}
		return crypto.CompressPubkey(pubKey), nil
	default:
		return nil, fmt.Errorf("unsupported public key format: expected 33 or 65 bytes, got %d", len(publicKeyBytes))
	}
}

// SignMessage signs a message using secp256k1 and returns the 65-byte
// [r, s, v] signature in hex format. The message is hashed with sha256
// before signing.
func SignMessage(privateKeyBytes, message []byte) (string, error) {
	hash := sha256.Sum256(message)

	privKey, err := ParsePrivateKey(privateKeyBytes)
	if err != nil {
		return "", err
	}

	signature, err := crypto.Sign(hash[:], privKey)
	if err != nil {
		return "", err
	}

	return hex.EncodeToString(signature), nil
}

// VerifySignature verifies a secp256k1 signature against a compressed public
// key. A 65-byte signature is checked by public key recovery; a 64-byte
// signature (no recovery byte) falls back to plain verification.
func VerifySignature(publicKey, message, signature []byte) bool {
	if len(publicKey) != CompressedKeyLength || len(message) == 0 {
		return false
	}

	hash := sha256.Sum256(message)

	if len(signature) == 64 {
		return crypto.VerifySignature(publicKey, hash[:], signature)
	}
	if len(signature) != 65 {
		return false
	}

	recovered, err := crypto.Ecrecover(hash[:], signature)
	if err != nil {
		return false
	}

	recoveredKey, err := crypto.UnmarshalPubkey(recovered)
	if err != nil {
		return false
	}

	return bytes.Equal(crypto.CompressPubkey(recoveredKey), publicKey)
}

// VerifySignatureHex verifies a hex signature against a hex-encoded
// compressed public key. Both values may carry a 0x prefix.
func VerifySignatureHex(publicKeyHex string, message []byte, signatureHex string) bool {
	publicKey, err := KeyToBytes(publicKeyHex)
	if err != nil {
		return false
	}

	signature, err := KeyToBytes(signatureHex)
	if err != nil {
		return false
	}

	return VerifySignature(publicKey, message, signature)
}

// CompressedPublicKeyHex derives the 0x-prefixed compressed public key of a
// 32-byte private key.
func CompressedPublicKeyHex(privateKeyBytes []byte) (string, error) {
	privKey, err := ParsePrivateKey(privateKeyBytes)
	if err != nil {
		return "", err
	}

	return "0x" + hex.EncodeToString(crypto.CompressPubkey(&privKey.PublicKey)), nil
}

// Hash computes the keccak256 hash of a string and returns it 0x-prefixed.
func Hash(s string) string {
	return "0x" + hex.EncodeToString(crypto.Keccak256([]byte(s)))
}

// AddressFromPrivateKey derives the lowercase hex address of a private key.
func AddressFromPrivateKey(privateKeyBytes []byte) (string, error) {
	privKey, err := ParsePrivateKey(privateKeyBytes)
	if err != nil {
		return "", err
	}

	return strings.ToLower(crypto.PubkeyToAddress(privKey.PublicKey).Hex()), nil
}
