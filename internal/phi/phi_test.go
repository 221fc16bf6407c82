package phi

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

const testKey = "000102030405060708090a0b0c0d0e0f101112131415161718191a1b1c1d1e1f"

func TestXChaCha_SealOpen(t *testing.T) {
	c, err := NewXChaChaHex(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("Jane")
	require.NoError(t, err)
	require.False(t, bytes.Contains(sealed, []byte("Jane")))

	again, err := c.Encrypt("Jane")
	require.NoError(t, err)
	require.NotEqual(t, sealed, again, "nonce must differ per call")

	plain, err := c.Decrypt(sealed)
	require.NoError(t, err)
	require.Equal(t, "Jane", plain)
}

func TestXChaCha_EmptyStaysEmpty(t *testing.T) {
	c, err := NewXChaChaHex(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("")
	require.NoError(t, err)
	require.Empty(t, sealed)

	plain, err := c.Decrypt(nil)
	require.NoError(t, err)
	require.Empty(t, plain)
}

func TestXChaCha_TamperedCiphertext(t *testing.T) {
	c, err := NewXChaChaHex(testKey)
	require.NoError(t, err)

	sealed, err := c.Encrypt("1950-02-03")
	require.NoError(t, err)
	sealed[len(sealed)-1] ^= 0xff

	_, err = c.Decrypt(sealed)
	require.ErrorIs(t, err, ErrCiphertext)

	_, err = c.Decrypt([]byte("short"))
	require.ErrorIs(t, err, ErrCiphertext)
}

func TestNewXChaChaHex_BadKey(t *testing.T) {
	_, err := NewXChaChaHex("zz")
	require.Error(t, err)

	_, err = NewXChaChaHex(strings.Repeat("ab", 8))
	require.Error(t, err)
}
