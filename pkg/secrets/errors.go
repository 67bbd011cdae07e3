package secrets

import "errors"

var (
	ErrInvalidKey          = errors.New("invalid key: must be 32 bytes")
	ErrEmptySubject        = errors.New("empty subject")
	ErrKeyDerivationFailed = errors.New("key derivation failed")
	ErrEncryptionFailed    = errors.New("encryption failed")
	ErrDecryptionFailed    = errors.New("decryption failed")
	ErrInvalidCiphertext   = errors.New("invalid ciphertext format")
)
