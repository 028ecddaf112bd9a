package vault

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKey = "0123456789abcdef0123456789abcdef"

func newTestVault(t *testing.T) *Vault {
	t.Helper()
	v, err := New(testKey)
	require.NoError(t, err)
	return v
}

func TestNew(t *testing.T) {
	t.Run("accepts 32-byte key", func(t *testing.T) {
		v, err := New(testKey)
		assert.NoError(t, err)
		assert.NotNil(t, v)
	})

	t.Run("rejects short key", func(t *testing.T) {
		_, err := New("too short")
		assert.ErrorIs(t, err, ErrInvalidKeyLength)
	})

	t.Run("rejects long key", func(t *testing.T) {
		_, err := New(testKey + "extra")
		assert.ErrorIs(t, err, ErrInvalidKeyLength)
	})

	t.Run("rejects empty key", func(t *testing.T) {
		_, err := New("")
		assert.ErrorIs(t, err, ErrInvalidKeyLength)
	})
}

func TestRoundTrip(t *testing.T) {
	v := newTestVault(t)

	plaintexts := []string{
		"a",
		"ya29.a0AfH6SMBexampleaccesstoken",
		"exactly sixteen!",                 // one full block
		"exactly sixteen!exactly sixteen!", // two full blocks
		strings.Repeat("x", 1000),
		"unicode: héllo wörld ✓",
	}

	for _, p := range plaintexts {
		ct, err := v.Encrypt(p)
		require.NoError(t, err)
		assert.NotEqual(t, p, ct)
		assert.Contains(t, ct, ":")

		got, err := v.Decrypt(ct)
		require.NoError(t, err)
		assert.Equal(t, p, got)
	}
}

func TestEmptyStringFixedPoint(t *testing.T) {
	v := newTestVault(t)

	ct, err := v.Encrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", ct)

	pt, err := v.Decrypt("")
	require.NoError(t, err)
	assert.Equal(t, "", pt)
}

func TestEncryptUsesRandomIV(t *testing.T) {
	v := newTestVault(t)

	first, err := v.Encrypt("same plaintext")
	require.NoError(t, err)
	second, err := v.Encrypt("same plaintext")
	require.NoError(t, err)

	assert.NotEqual(t, first, second)
}

func TestDecryptMalformedInput(t *testing.T) {
	v := newTestVault(t)

	cases := map[string]string{
		"no separator":       "deadbeefdeadbeefdeadbeefdeadbeef",
		"non-hex iv":         "zzzz:deadbeefdeadbeefdeadbeefdeadbeef",
		"short iv":           "dead:deadbeefdeadbeefdeadbeefdeadbeef",
		"non-hex payload":    "deadbeefdeadbeefdeadbeefdeadbeef:nothex",
		"empty payload":      "deadbeefdeadbeefdeadbeefdeadbeef:",
		"unaligned payload":  "deadbeefdeadbeefdeadbeefdeadbeef:deadbeef",
		"plain garbage":      "not a ciphertext at all",
		"many separators":    "a:b:c:d",
	}

	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			out, err := v.Decrypt(input)
			assert.ErrorIs(t, err, ErrDecryptionFailed)
			assert.Equal(t, "", out)
		})
	}
}

func TestDecryptTamperedCiphertext(t *testing.T) {
	v := newTestVault(t)

	ct, err := v.Encrypt("sensitive token value")
	require.NoError(t, err)

	// Flip a character in the encrypted payload.
	tampered := []byte(ct)
	last := len(tampered) - 1
	if tampered[last] == '0' {
		tampered[last] = '1'
	} else {
		tampered[last] = '0'
	}

	_, err = v.Decrypt(string(tampered))
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestDecryptWithWrongKey(t *testing.T) {
	v := newTestVault(t)
	other, err := New("ffffffffffffffffffffffffffffffff")
	require.NoError(t, err)

	ct, err := v.Encrypt("secret")
	require.NoError(t, err)

	out, err := other.Decrypt(ct)
	if err == nil {
		// CBC padding can occasionally survive a wrong key; the plaintext
		// must still not match.
		assert.NotEqual(t, "secret", out)
	} else {
		assert.ErrorIs(t, err, ErrDecryptionFailed)
	}
}
