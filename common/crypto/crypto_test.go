package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testPrivateKeyHex = "0x59c6995e998f97a5a0044966f0945389dc9e86dae88c7a8412f4603b6b78690d"

func TestKeyToBytes(t *testing.T) {
	tests := []struct {
		name        string
		key         string
		expectError bool
		length      int
	}{
		{name: "With 0x prefix", key: testPrivateKeyHex, length: 32},
		{name: "Without 0x prefix", key: strings.TrimPrefix(testPrivateKeyHex, "0x"), length: 32},
		{name: "Not hex", key: "0xzz", expectError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := KeyToBytes(tt.key)

			if tt.expectError {
				assert.Error(t, err)
				return
			}

			assert.NoError(t, err)
			assert.Len(t, raw, tt.length)
		})
	}
}

func TestSignAndVerify(t *testing.T) {
	privateKey, err := KeyToBytes(testPrivateKeyHex)
	require.NoError(t, err)

	publicKeyHex, err := CompressedPublicKeyHex(privateKey)
	require.NoError(t, err)

	message := []byte("hello context")
	signature, err := SignMessage(privateKey, message)
	require.NoError(t, err)
	assert.Len(t, signature, 130, "65-byte signature in hex")

	assert.True(t, VerifySignatureHex(publicKeyHex, message, signature))
	assert.False(t, VerifySignatureHex(publicKeyHex, []byte("tampered"), signature))
	assert.False(t, VerifySignatureHex(publicKeyHex, message, signature[:128]+"55"))
}

func TestParsePublicKey(t *testing.T) {
	privateKey, err := KeyToBytes(testPrivateKeyHex)
	require.NoError(t, err)

	publicKeyHex, err := CompressedPublicKeyHex(privateKey)
	require.NoError(t, err)
	compressed, err := KeyToBytes(publicKeyHex)
	require.NoError(t, err)

	parsed, err := ParsePublicKey(compressed)
	require.NoError(t, err)
	assert.Equal(t, compressed, parsed)

	_, err = ParsePublicKey([]byte{0x01, 0x02})
	assert.Error(t, err)
}

func TestHash(t *testing.T) {
	first := Hash("did:vda:0xabc/My App")
	second := Hash("did:vda:0xabc/My App")

	assert.Equal(t, first, second)
	assert.True(t, strings.HasPrefix(first, "0x"))
	assert.Len(t, first, 66)
	assert.NotEqual(t, first, Hash("did:vda:0xabc/Other App"))
}

func TestAddressFromPrivateKey(t *testing.T) {
	privateKey, err := KeyToBytes(testPrivateKeyHex)
	require.NoError(t, err)

	address, err := AddressFromPrivateKey(privateKey)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(address, "0x"))
	assert.Equal(t, strings.ToLower(address), address)
}
