package crypto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestHashAndVerify(t *testing.T) {
	t.Parallel()

	enc, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	require.True(t, strings.HasPrefix(enc, "argon2id$"))

	require.True(t, VerifyPassword("Sup3rSecret", enc))
	require.False(t, VerifyPassword("sup3rsecret", enc))
	require.False(t, VerifyPassword("", enc))
}

func TestHash_SaltedPerCall(t *testing.T) {
	t.Parallel()

	a, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	b, err := HashPassword("Sup3rSecret")
	require.NoError(t, err)
	require.NotEqual(t, a, b)
}

func TestVerify_MalformedEncoding(t *testing.T) {
	t.Parallel()

	require.False(t, VerifyPassword("x", "not-a-hash"))
	require.False(t, VerifyPassword("x", "bcrypt$abc$def"))
	require.False(t, VerifyPassword("x", "argon2id$!!$!!"))
}

func TestValidatePasswordStrength(t *testing.T) {
	t.Parallel()

	require.NoError(t, ValidatePasswordStrength("Abcdefg1"))
	require.Error(t, ValidatePasswordStrength("Ab1"))
	require.Error(t, ValidatePasswordStrength("abcdefg1"))
	require.Error(t, ValidatePasswordStrength("ABCDEFG1"))
	require.Error(t, ValidatePasswordStrength("Abcdefgh"))
}
