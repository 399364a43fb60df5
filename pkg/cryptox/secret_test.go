package cryptox

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecodeSecret(t *testing.T) {
	raw := []byte(strings.Repeat("k", 32))

	tests := []struct {
		name  string
		input string
		want  []byte
	}{
		{"std base64", base64.StdEncoding.EncodeToString(raw), raw},
		{"raw url base64", base64.RawURLEncoding.EncodeToString(raw), raw},
		{"plain text", "this-is-a-plain-text-secret-of-40-chars!", []byte("this-is-a-plain-text-secret-of-40-chars!")},
		{"surrounding whitespace", "  " + base64.StdEncoding.EncodeToString(raw) + "\n", raw},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeSecret(tt.input)
			require.NoError(t, err)
			require.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeSecret_TooShort(t *testing.T) {
	for _, in := range []string{"", "short", base64.StdEncoding.EncodeToString([]byte("sixteen-bytes!!!"))} {
		_, err := DecodeSecret(in)
		require.ErrorIs(t, err, ErrWeakSecret, "input %q", in)
	}
}
