package pkg

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestQRPayloadRoundTrip(t *testing.T) {
	hash, err := SecureToken(32)
	require.NoError(t, err)
	assert.Len(t, hash, 64)

	payload := BuildQRPayload(hash)
	assert.Equal(t, QRRedeemPrefix+hash, payload)
	assert.Equal(t, hash, StripQRPrefix(payload))
}

func TestStripQRPrefixToleratesBareHash(t *testing.T) {
	assert.Equal(t, "abcd1234", StripQRPrefix("abcd1234"))
}

func TestSecureTokenUnique(t *testing.T) {
	a, err := SecureToken(16)
	require.NoError(t, err)
	b, err := SecureToken(16)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}
