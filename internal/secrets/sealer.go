// Package secrets seals merchant credential secrets before they are
// written to the database.
package secrets

import (
	"crypto/rand"
	"encoding/base64"
	"encoding/hex"
	"io"
	"strings"

	"github.com/pkg/errors"
	"golang.org/x/crypto/nacl/secretbox"
)

const sealedPrefix = "sb1:"

const nonceSize = 24

// Sealer encrypts values with NaCl secretbox. A Sealer without a key
// passes values through unchanged.
type Sealer struct {
	key  *[32]byte
	rand io.Reader
}

// NewSealer parses a hex-encoded 32-byte key. An empty key yields a
// pass-through Sealer.
func NewSealer(hexKey string) (*Sealer, error) {
	hexKey = strings.TrimSpace(hexKey)
	if hexKey == "" {
		return &Sealer{rand: rand.Reader}, nil
	}
	raw, err := hex.DecodeString(hexKey)
	if err != nil {
		return nil, errors.Wrap(err, "decode credential key")
	}
	if len(raw) != 32 {
		return nil, errors.Errorf("credential key must be 32 bytes, got %d", len(raw))
	}
	var key [32]byte
	copy(key[:], raw)
	return &Sealer{key: &key, rand: rand.Reader}, nil
}

func (s *Sealer) Enabled() bool { return s != nil && s.key != nil }

func (s *Sealer) Seal(plain string) (string, error) {
	if !s.Enabled() {
		return plain, nil
	}
	var nonce [nonceSize]byte
	if _, err := io.ReadFull(s.rand, nonce[:]); err != nil {
		return "", errors.Wrap(err, "read nonce")
	}
	box := secretbox.Seal(nonce[:], []byte(plain), &nonce, s.key)
	return sealedPrefix + base64.StdEncoding.EncodeToString(box), nil
}

// Open reverses Seal. Values without the sealed prefix are returned as is,
// so rows written before a key was configured stay readable.
func (s *Sealer) Open(stored string) (string, error) {
	if !strings.HasPrefix(stored, sealedPrefix) {
		return stored, nil
	}
	if !s.Enabled() {
		return "", errors.New("sealed credential but no credential key configured")
	}
	box, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(stored, sealedPrefix))
	if err != nil {
		return "", errors.Wrap(err, "decode sealed credential")
	}
	if len(box) < nonceSize+secretbox.Overhead {
		return "", errors.New("sealed credential too short")
	}
	var nonce [nonceSize]byte
	copy(nonce[:], box[:nonceSize])
	plain, ok := secretbox.Open(nil, box[nonceSize:], &nonce, s.key)
	if !ok {
		return "", errors.New("sealed credential: authentication failed")
	}
	return string(plain), nil
}
