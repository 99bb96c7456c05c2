package xverify

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewToken(t *testing.T) {
	tok, err := NewToken()
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(tok, "clawhammer-verify-"))
	suffix := strings.TrimPrefix(tok, "clawhammer-verify-")
	assert.Len(t, suffix, 26, "16 bytes of base32 without padding")
	assert.Equal(t, strings.ToLower(tok), tok, "tokens are lowercase so post matching is predictable")
}
