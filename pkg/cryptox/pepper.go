package cryptox

import (
	"crypto/rand"
	"encoding/base64"
	"os"
	"path/filepath"
)

// LoadOrGeneratePepper loads the pepper from a file, generating and
// persisting a fresh one if the file does not exist yet. The caller
// hands the result to NewHasher; nothing in this package caches it.
func LoadOrGeneratePepper(file string) (string, error) {
	file = filepath.Clean(file)
	if err := os.MkdirAll(filepath.Dir(file), 0750); err != nil {
		return "", err
	}

	if _, err := os.Stat(file); os.IsNotExist(err) {
		pepperBytes := make([]byte, keyLength)
		if _, err := rand.Read(pepperBytes); err != nil {
			return "", err
		}
		pepper := base64.RawURLEncoding.EncodeToString(pepperBytes)

		if err := os.WriteFile(file, []byte(pepper), 0600); err != nil {
			return "", err
		}
		return pepper, nil
	}

	pepperBytes, err := os.ReadFile(file)
	if err != nil {
		return "", err
	}

	return string(pepperBytes), nil
}
