package secrets_test

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/byteai/builder/pkg/secrets"
)

func newSealer(t *testing.T) *secrets.Sealer {
	t.Helper()
	key, err := secrets.GenerateKey()
	require.NoError(t, err)
	s, err := secrets.New(key)
	require.NoError(t, err)
	return s
}

func TestSealOpen(t *testing.T) {
	t.Parallel()

	s := newSealer(t)
	for _, plain := range []string{"", "build me a todo app", "Привет 🌍", strings.Repeat("x", 4096)} {
		sealed, err := s.Seal("user_1", plain)
		require.NoError(t, err)
		assert.True(t, secrets.IsSealed(sealed))
		if plain != "" {
			assert.NotContains(t, sealed, plain)
		}

		opened, err := s.Open("user_1", sealed)
		require.NoError(t, err)
		assert.Equal(t, plain, opened)
	}
}

func TestSeal_NonceIsRandom(t *testing.T) {
	t.Parallel()

	s := newSealer(t)
	a, err := s.Seal("user_1", "same")
	require.NoError(t, err)
	b, err := s.Seal("user_1", "same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestOpen_WrongSubject(t *testing.T) {
	t.Parallel()

	s := newSealer(t)
	sealed, err := s.Seal("user_1", "secret prompt")
	require.NoError(t, err)

	_, err = s.Open("user_2", sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestOpen_WrongKey(t *testing.T) {
	t.Parallel()

	sealed, err := newSealer(t).Seal("user_1", "secret prompt")
	require.NoError(t, err)

	_, err = newSealer(t).Open("user_1", sealed)
	assert.ErrorIs(t, err, secrets.ErrDecryptionFailed)
}

func TestOpen_Plaintext(t *testing.T) {
	t.Parallel()

	out, err := newSealer(t).Open("user_1", "legacy prompt")
	require.NoError(t, err)
	assert.Equal(t, "legacy prompt", out)
}

func TestOpen_Malformed(t *testing.T) {
	t.Parallel()

	s := newSealer(t)
	_, err := s.Open("user_1", secrets.Prefix+"!!!")
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)

	_, err = s.Open("user_1", secrets.Prefix+base64.StdEncoding.EncodeToString([]byte("short")))
	assert.ErrorIs(t, err, secrets.ErrInvalidCiphertext)
}

func TestSeal_EmptySubject(t *testing.T) {
	t.Parallel()

	_, err := newSealer(t).Seal("", "x")
	assert.ErrorIs(t, err, secrets.ErrEmptySubject)
}

func TestNewAndParseKey(t *testing.T) {
	t.Parallel()

	_, err := secrets.New([]byte("short"))
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)

	key, err := secrets.GenerateKey()
	require.NoError(t, err)

	parsed, err := secrets.ParseKey(base64.StdEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	parsed, err = secrets.ParseKey(base64.RawURLEncoding.EncodeToString(key))
	require.NoError(t, err)
	assert.Equal(t, key, parsed)

	_, err = secrets.ParseKey(base64.StdEncoding.EncodeToString([]byte("too short")))
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)

	_, err = secrets.ParseKey("%%%")
	assert.ErrorIs(t, err, secrets.ErrInvalidKey)
}
