package secwcrypto_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/systmms/secwallet/internal/secwcrypto"
)

func TestWrapUnwrapRoundTrip(t *testing.T) {
	wrapped, err := secwcrypto.WrapString("12345678", "12345678")
	require.NoError(t, err)

	got, err := secwcrypto.UnwrapString(wrapped, "12345678")
	require.NoError(t, err)
	assert.Equal(t, "12345678", got)
}

func TestUnwrapWithWrongPassphraseFails(t *testing.T) {
	wrapped, err := secwcrypto.WrapString("12345678", "12345678")
	require.NoError(t, err)

	_, err = secwcrypto.UnwrapString(wrapped, "wrong-pass")
	assert.ErrorIs(t, err, secwcrypto.ErrBadPassphrase)
}

func TestWrapIsNonDeterministicButUnwrapsConsistently(t *testing.T) {
	a, err := secwcrypto.WrapString("secret-value", "passphrase")
	require.NoError(t, err)
	b, err := secwcrypto.WrapString("secret-value", "passphrase")
	require.NoError(t, err)

	assert.NotEqual(t, a, b, "each wrap uses a fresh salt/nonce")

	gotA, err := secwcrypto.UnwrapString(a, "passphrase")
	require.NoError(t, err)
	gotB, err := secwcrypto.UnwrapString(b, "passphrase")
	require.NoError(t, err)
	assert.Equal(t, "secret-value", gotA)
	assert.Equal(t, "secret-value", gotB)
}
