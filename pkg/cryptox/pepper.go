package cryptox

import (
	"bytes"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"
)

// DefaultPepperFile is used when SetPepperPath was never called.
var DefaultPepperFile = filepath.Join(os.TempDir(), "tollgate-pepper")

// pepperSize is the random byte count behind a generated pepper.
const pepperSize = 32

var pepperState struct {
	sync.Mutex
	path  string
	value []byte
}

// SetPepperPath sets the file the pepper is read from, or created at on
// first use. Changing the path drops any pepper already loaded.
func SetPepperPath(file string) {
	pepperState.Lock()
	defer pepperState.Unlock()

	pepperState.path = file
	pepperState.value = nil
}

// Pepper returns the server-side secret mixed into every password hash.
// Losing the pepper file makes every stored hash unverifiable.
func Pepper() ([]byte, error) {
	pepperState.Lock()
	defer pepperState.Unlock()

	if pepperState.value != nil {
		return pepperState.value, nil
	}

	path := pepperState.path
	if path == "" {
		path = DefaultPepperFile
	}

	v, err := readOrCreatePepper(filepath.Clean(path))
	if err != nil {
		return nil, err
	}
	pepperState.value = v
	return v, nil
}

func readOrCreatePepper(path string) ([]byte, error) {
	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		v := bytes.TrimSpace(data)
		if len(v) == 0 {
			return nil, fmt.Errorf("cryptox: pepper file %s is empty", path)
		}
		return v, nil
	case !errors.Is(err, fs.ErrNotExist):
		return nil, fmt.Errorf("cryptox: read pepper: %w", err)
	}

	if err := os.MkdirAll(filepath.Dir(path), 0o750); err != nil {
		return nil, fmt.Errorf("cryptox: pepper dir: %w", err)
	}

	v, err := GenerateToken(pepperSize)
	if err != nil {
		return nil, err
	}

	// O_EXCL so two processes sharing a volume agree on one pepper.
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if errors.Is(err, fs.ErrExist) {
		return readOrCreatePepper(path)
	}
	if err != nil {
		return nil, fmt.Errorf("cryptox: create pepper: %w", err)
	}
	defer f.Close()

	if _, err := f.WriteString(v); err != nil {
		return nil, fmt.Errorf("cryptox: write pepper: %w", err)
	}
	return []byte(v), nil
}
