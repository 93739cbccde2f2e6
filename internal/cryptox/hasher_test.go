package cryptox

import (
	"strings"
	"testing"

	"github.com/dmitrijs2005/gophauth/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

var testArgon2Params = Argon2Params{Time: 1, Memory: 1024, Threads: 1, SaltLen: 16, KeyLen: 32}

func testHashers(t *testing.T) map[string]PasswordHasher {
	t.Helper()
	b, err := NewBcryptHasher(bcrypt.MinCost)
	require.NoError(t, err)
	return map[string]PasswordHasher{
		HasherBcrypt:   b,
		HasherArgon2id: NewArgon2idHasher(testArgon2Params),
	}
}

func TestHash_RoundTrip(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			digest, err := h.Hash("secret123")
			require.NoError(t, err)
			assert.NotContains(t, digest, "secret123")

			ok, err := h.Verify("secret123", digest)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = h.Verify("wrong", digest)
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestHash_FreshSaltEachCall(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			a, err := h.Hash("secret123")
			require.NoError(t, err)
			b, err := h.Hash("secret123")
			require.NoError(t, err)
			assert.NotEqual(t, a, b)
		})
	}
}

func TestHash_EmptyPassword(t *testing.T) {
	for name, h := range testHashers(t) {
		t.Run(name, func(t *testing.T) {
			_, err := h.Hash("")
			assert.ErrorIs(t, err, ErrEmptyPassword)
		})
	}
}

func TestVerify_MalformedDigestFailsClosed(t *testing.T) {
	h := testHashers(t)[HasherBcrypt]

	digests := []string{
		"",
		"plaintext",
		"$2a$10$short",
		"$argon2id$v=19$m=1024,t=1,p=1$onlyfive",
		"$argon2id$v=18$m=1024,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$m=x,t=1,p=1$AAAA$AAAA",
		"$argon2id$v=19$m=1024,t=1,p=0$AAAA$AAAA",
		"$argon2id$v=19$m=1024,t=1,p=1$!!!$AAAA",
		"$argon2id$v=19$m=1024,t=1,p=1$AAAA$",
	}

	for _, d := range digests {
		ok, err := h.Verify("secret123", d)
		assert.False(t, ok, "digest %q", d)
		assert.ErrorIs(t, err, common.ErrInvalidCredentialFormat, "digest %q", d)
	}
}

func TestVerify_CrossAlgorithm(t *testing.T) {
	hs := testHashers(t)

	argonDigest, err := hs[HasherArgon2id].Hash("secret123")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(argonDigest, "$argon2id$"))

	ok, err := hs[HasherBcrypt].Verify("secret123", argonDigest)
	require.NoError(t, err)
	assert.True(t, ok)

	bcryptDigest, err := hs[HasherBcrypt].Hash("secret123")
	require.NoError(t, err)

	ok, err = hs[HasherArgon2id].Verify("secret123", bcryptDigest)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestBcryptHasher_UsesConfiguredCost(t *testing.T) {
	h, err := NewBcryptHasher(5)
	require.NoError(t, err)

	digest, err := h.Hash("secret123")
	require.NoError(t, err)

	cost, err := bcrypt.Cost([]byte(digest))
	require.NoError(t, err)
	assert.Equal(t, 5, cost)
}

func TestNewHasher(t *testing.T) {
	h, err := NewHasher("", DefaultBcryptCost)
	require.NoError(t, err)
	assert.IsType(t, &BcryptHasher{}, h)

	h, err = NewHasher(HasherArgon2id, 0)
	require.NoError(t, err)
	assert.IsType(t, &Argon2idHasher{}, h)

	_, err = NewHasher("md5", DefaultBcryptCost)
	assert.Error(t, err)

	_, err = NewHasher(HasherBcrypt, 99)
	assert.Error(t, err)
}
