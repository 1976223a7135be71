package security

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/circlemart/circlemart-backend/pkg/config"
)

var fastParams = config.PasswordConfig{
	ArgonMemoryKB:    8 * 1024,
	ArgonTime:        1,
	ArgonParallelism: 1,
	ArgonSaltLen:     16,
	ArgonKeyLen:      32,
}

func TestHashRoundTrip(t *testing.T) {
	hash, err := HashPassword("circle4life", fastParams)
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(hash, "$argon2id$v=19$m=8192,t=1,p=1$"), hash)

	ok, err := VerifyPassword("circle4life", hash)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = VerifyPassword("circle4lif", hash)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashIsSalted(t *testing.T) {
	a, err := HashPassword("same-pass-1", fastParams)
	require.NoError(t, err)
	b, err := HashPassword("same-pass-1", fastParams)
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestHashRejectsEmpty(t *testing.T) {
	_, err := HashPassword("", fastParams)
	require.Error(t, err)
}

func TestParamsAreClamped(t *testing.T) {
	p := paramsFromConfig(config.PasswordConfig{ArgonParallelism: 1000, ArgonKeyLen: 4})
	assert.EqualValues(t, 8, p.Memory)
	assert.EqualValues(t, 1, p.Time)
	assert.EqualValues(t, 255, p.Parallelism)
	assert.EqualValues(t, 8, p.SaltLen)
	assert.EqualValues(t, 16, p.KeyLen)
}

func TestVerifyMalformedHash(t *testing.T) {
	for _, encoded := range []string{
		"not-a-hash",
		"$bcrypt$v=19$m=1,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=x,t=1,p=1$c2FsdA$a2V5",
		"$argon2id$v=19$m=8,t=1,p=1$%%%$a2V5",
	} {
		_, err := VerifyPassword("irrelevant", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, encoded)
	}
}

func TestCheckStrength(t *testing.T) {
	for _, weak := range []string{"short1", "onlyletters", "12345678", ""} {
		assert.ErrorIs(t, CheckStrength(weak), ErrWeakPassword, weak)
	}
	assert.NoError(t, CheckStrength("letters4ever"))
	assert.NoError(t, CheckStrength("übergröße9"))
}
