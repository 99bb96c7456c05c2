package keys

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAPIKey(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 100; i++ {
		key, err := NewAPIKey()
		require.NoError(t, err)
		assert.True(t, HasAPIKeyPrefix(key))
		assert.Greater(t, len(key), len("clawhammer_")+40)
		require.False(t, seen[key], "duplicate key minted")
		seen[key] = true
	}
}

func TestHashAPIKey(t *testing.T) {
	h1 := HashAPIKey("pepper", "clawhammer_abc")
	h2 := HashAPIKey("pepper", "clawhammer_abc")
	assert.Equal(t, h1, h2, "hash is deterministic")
	assert.Len(t, h1, 64, "hex sha-256")

	assert.NotEqual(t, h1, HashAPIKey("pepper", "clawhammer_abd"))
	assert.NotEqual(t, h1, HashAPIKey("other-pepper", "clawhammer_abc"), "pepper must change the digest")
}

func TestHasAPIKeyPrefix(t *testing.T) {
	assert.True(t, HasAPIKeyPrefix("clawhammer_xyz"))
	assert.False(t, HasAPIKeyPrefix("xyz"))
	assert.False(t, HasAPIKeyPrefix(""))
}
