package secrets

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"errors"
	"io"
	"strings"

	"golang.org/x/crypto/hkdf"
)

// KeySize is the master key length (AES-256).
const KeySize = 32

// Prefix marks values produced by Seal so stored plaintext and ciphertext can
// coexist in the same field.
const Prefix = "enc:v1:"

const hkdfInfo = "builder-audit-v1"

// Sealer encrypts short strings with AES-GCM under a key derived per subject
// (a user id) from one master key, so a leaked row cannot be decrypted with
// another user's derived key.
type Sealer struct {
	master []byte
}

// New returns a Sealer for a 32-byte master key.
func New(master []byte) (*Sealer, error) {
	if len(master) != KeySize {
		return nil, ErrInvalidKey
	}
	return &Sealer{master: append([]byte(nil), master...)}, nil
}

// ParseKey decodes a standard or URL-safe base64 master key.
func ParseKey(encoded string) ([]byte, error) {
	encoded = strings.TrimSpace(encoded)
	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		key, err = base64.RawURLEncoding.DecodeString(strings.TrimRight(encoded, "="))
	}
	if err != nil {
		return nil, errors.Join(ErrInvalidKey, err)
	}
	if len(key) != KeySize {
		return nil, ErrInvalidKey
	}
	return key, nil
}

// GenerateKey returns a random master key.
func GenerateKey() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, err
	}
	return key, nil
}

// Seal encrypts plaintext for subject and returns Prefix + base64(nonce|ct|tag).
func (s *Sealer) Seal(subject, plaintext string) (string, error) {
	gcm, err := s.aead(subject)
	if err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	nonce := make([]byte, gcm.NonceSize())
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", errors.Join(ErrEncryptionFailed, err)
	}
	out := gcm.Seal(nonce, nonce, []byte(plaintext), []byte(subject))
	return Prefix + base64.StdEncoding.EncodeToString(out), nil
}

// Open reverses Seal. Values without Prefix are returned unchanged.
func (s *Sealer) Open(subject, value string) (string, error) {
	if !IsSealed(value) {
		return value, nil
	}
	raw, err := base64.StdEncoding.DecodeString(strings.TrimPrefix(value, Prefix))
	if err != nil {
		return "", errors.Join(ErrInvalidCiphertext, err)
	}
	gcm, err := s.aead(subject)
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	if len(raw) < gcm.NonceSize() {
		return "", ErrInvalidCiphertext
	}
	nonce, ct := raw[:gcm.NonceSize()], raw[gcm.NonceSize():]
	plain, err := gcm.Open(nil, nonce, ct, []byte(subject))
	if err != nil {
		return "", errors.Join(ErrDecryptionFailed, err)
	}
	return string(plain), nil
}

// IsSealed reports whether value carries the Seal prefix.
func IsSealed(value string) bool {
	return strings.HasPrefix(value, Prefix)
}

func (s *Sealer) aead(subject string) (cipher.AEAD, error) {
	if subject == "" {
		return nil, ErrEmptySubject
	}
	key := make([]byte, KeySize)
	if _, err := io.ReadFull(hkdf.New(sha256.New, s.master, []byte(subject), []byte(hkdfInfo)), key); err != nil {
		return nil, errors.Join(ErrKeyDerivationFailed, err)
	}
	defer clear(key)

	block, err := aes.NewCipher(key)
	if err != nil {
		return nil, err
	}
	return cipher.NewGCM(block)
}
