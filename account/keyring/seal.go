package keyring

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"fmt"
)

// sealedMessage is the compact JWE-style wire form of an encrypted payload.
type sealedMessage struct {
	Protected  string `json:"protected"`
	IV         string `json:"iv"`
	Ciphertext string `json:"ciphertext"`
}

// sealHeader is the fixed protected header of sealed payloads.
const sealHeader = `{"alg":"ECDH-ES","enc":"A256GCM"}`

func sealKey(secret []byte) []byte {
	key := sha256.Sum256(secret)

	return key[:]
}

// Seal encrypts a payload for a peer context using AES-GCM over the ECDH
// shared secret of this keyring's asymmetric key and the peer's public key.
func (k *Keyring) Seal(peerPublicKeyHex string, plaintext []byte) (string, error) {
	secret, err := k.SharedSecret(peerPublicKeyHex)
	if err != nil {
		return "", err
	}

	block, err := aes.NewCipher(sealKey(secret))
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return "", fmt.Errorf("failed to initialize cipher: %w", err)
	}

	nonce := make([]byte, gcm.NonceSize())
	if _, err := rand.Read(nonce); err != nil {
		return "", fmt.Errorf("failed to generate nonce: %w", err)
	}

	ciphertext := gcm.Seal(nil, nonce, plaintext, nil)

	sealed, err := json.Marshal(sealedMessage{
		Protected:  base64.RawURLEncoding.EncodeToString([]byte(sealHeader)),
		IV:         base64.RawURLEncoding.EncodeToString(nonce),
		Ciphertext: base64.RawURLEncoding.EncodeToString(ciphertext),
	})
	if err != nil {
		return "", fmt.Errorf("failed to encode sealed message: %w", err)
	}

	return string(sealed), nil
}

// Open decrypts a payload sealed by a peer context for this keyring.
func (k *Keyring) Open(peerPublicKeyHex, sealed string) ([]byte, error) {
	var message sealedMessage
	if err := json.Unmarshal([]byte(sealed), &message); err != nil {
		return nil, fmt.Errorf("failed to decode sealed message: %w", err)
	}

	nonce, err := base64.RawURLEncoding.DecodeString(message.IV)
	if err != nil {
		return nil, fmt.Errorf("failed to decode nonce: %w", err)
	}
	ciphertext, err := base64.RawURLEncoding.DecodeString(message.Ciphertext)
	if err != nil {
		return nil, fmt.Errorf("failed to decode ciphertext: %w", err)
	}

	secret, err := k.SharedSecret(peerPublicKeyHex)
	if err != nil {
		return nil, err
	}

	block, err := aes.NewCipher(sealKey(secret))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	gcm, err := cipher.NewGCM(block)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize cipher: %w", err)
	}

	plaintext, err := gcm.Open(nil, nonce, ciphertext, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to decrypt message: %w", err)
	}

	return plaintext, nil
}
