package cryptox

import (
	"encoding/base64"
	"errors"
	"strings"
)

// MinSecretBytes is the smallest HMAC secret we accept (HS256 wants >= 256 bits).
const MinSecretBytes = 32

var ErrWeakSecret = errors.New("cryptox: secret must be at least 32 bytes")

// DecodeSecret turns a configured signing secret into key bytes. Base64
// (standard or URL alphabet) is tried first since that is how secrets are
// usually generated; anything else is used as raw bytes.
func DecodeSecret(s string) ([]byte, error) {
	s = strings.TrimSpace(s)

	key := []byte(s)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.RawStdEncoding,
		base64.URLEncoding,
		base64.RawURLEncoding,
	} {
		if b, err := enc.DecodeString(s); err == nil {
			key = b
			break
		}
	}

	if len(key) < MinSecretBytes {
		return nil, ErrWeakSecret
	}
	return key, nil
}
