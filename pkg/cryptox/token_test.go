package cryptox

import (
	"encoding/base64"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestGenerateToken(t *testing.T) {
	tests := []struct {
		size    int
		wantLen int
	}{
		{TokenSize128, 22},
		{TokenSize256, 43},
		{24, 32},
	}

	for _, tt := range tests {
		seen := make(map[string]bool)
		for range 50 {
			token, err := GenerateToken(tt.size)
			require.NoError(t, err)
			require.Len(t, token, tt.wantLen)
			require.False(t, seen[token], "duplicate token")
			seen[token] = true

			raw, err := base64.RawURLEncoding.DecodeString(token)
			require.NoError(t, err)
			require.Len(t, raw, tt.size)
		}
	}

	for _, size := range []int{0, -1} {
		token, err := GenerateToken(size)
		require.Error(t, err)
		require.Empty(t, token)
	}

	require.Panics(t, func() { MustGenerateToken(0) })
}

func TestFingerprintToken(t *testing.T) {
	// sha256("abc"), base64url
	require.Equal(t, "ungWv48Bz-pBQUDeXa4iI7ADYaOWF3qctBD_YfIAFa0", FingerprintToken("abc"))

	token := MustGenerateToken(TokenSize256)
	require.Equal(t, FingerprintToken(token), FingerprintToken(token))
	require.NotEqual(t, token, FingerprintToken(token))
	require.NotEqual(t, FingerprintToken(token), FingerprintToken(token+"x"))
}
