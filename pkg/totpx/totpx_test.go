package totpx_test

import (
	"strings"
	"testing"
	"time"

	"github.com/relooptech/reloop/pkg/totpx"
	"github.com/stretchr/testify/require"
)

func TestGenerateSecret(t *testing.T) {
	t.Parallel()

	a, err := totpx.GenerateSecret()
	require.NoError(t, err)
	require.NotEmpty(t, a)

	b, err := totpx.GenerateSecret()
	require.NoError(t, err)
	require.NotEqual(t, a, b)

	// Base32 alphabet only, so authenticator apps accept it.
	require.NotContains(t, a, "=")
	require.Equal(t, strings.ToUpper(a), a)
}

func TestProvisioningURI(t *testing.T) {
	t.Parallel()

	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)

	uri, err := totpx.ProvisioningURI("Reloop", "alice@reloop.example", secret)
	require.NoError(t, err)

	require.True(t, strings.HasPrefix(uri, "otpauth://totp/"))
	require.Contains(t, uri, "issuer=Reloop")
	require.Contains(t, uri, "secret="+secret)
}

func TestVerifyRoundTrip(t *testing.T) {
	t.Parallel()

	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)

	// Simulate an authenticator deriving the code for the current step.
	code, err := totpx.CodeAt(secret, time.Now().UTC())
	require.NoError(t, err)

	ok, err := totpx.Verify(code, secret, totpx.DefaultSkew)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyAcceptsAdjacentStepWithinSkew(t *testing.T) {
	t.Parallel()

	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)

	// A code from the previous time step is still valid with skew 1.
	code, err := totpx.CodeAt(secret, time.Now().UTC().Add(-totpx.Period*time.Second))
	require.NoError(t, err)

	ok, err := totpx.Verify(code, secret, totpx.DefaultSkew)
	require.NoError(t, err)
	require.True(t, ok)

	// With zero skew the same drifted code may be rejected; verify the
	// current-step code still passes.
	current, err := totpx.CodeAt(secret, time.Now().UTC())
	require.NoError(t, err)
	ok, err = totpx.Verify(current, secret, 0)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyStripsWhitespace(t *testing.T) {
	t.Parallel()

	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)

	code, err := totpx.CodeAt(secret, time.Now().UTC())
	require.NoError(t, err)

	spaced := " " + code[:3] + " " + code[3:] + " "
	ok, err := totpx.Verify(spaced, secret, totpx.DefaultSkew)
	require.NoError(t, err)
	require.True(t, ok)
}

func TestVerifyRejectsMalformedCodes(t *testing.T) {
	t.Parallel()

	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)

	for _, code := range []string{"", "12345", "1234567", "12345a", "abcdef"} {
		_, err := totpx.Verify(code, secret, totpx.DefaultSkew)
		require.ErrorIs(t, err, totpx.ErrInvalidFormat, "code %q", code)
	}
}

func TestVerifyRejectsWrongCode(t *testing.T) {
	t.Parallel()

	secret, err := totpx.GenerateSecret()
	require.NoError(t, err)

	code, err := totpx.CodeAt(secret, time.Now().UTC())
	require.NoError(t, err)

	// Flip one digit to guarantee a mismatch.
	flipped := []byte(code)
	if flipped[0] == '9' {
		flipped[0] = '0'
	} else {
		flipped[0]++
	}

	ok, err := totpx.Verify(string(flipped), secret, totpx.DefaultSkew)
	require.NoError(t, err)
	require.False(t, ok)
}
