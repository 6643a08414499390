package cache

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestItineraryKeyIsDeterministicAndDistinct(t *testing.T) {
	k1 := ItineraryKey(56.24, 93.52, 56.23, 93.55, 43200, false)
	k2 := ItineraryKey(56.24, 93.52, 56.23, 93.55, 43200, false)
	assert.Equal(t, k1, k2)

	k3 := ItineraryKey(56.24, 93.52, 56.23, 93.55, 43200, true)
	assert.NotEqual(t, k1, k3, "wheelchair flag must affect the cache key")

	k4 := ItineraryKey(56.24, 93.52, 56.23, 93.55, 43201, false)
	assert.NotEqual(t, k1, k4, "t0 must affect the cache key")
}

func TestODMatrixKeyOrderSensitive(t *testing.T) {
	k1 := ODMatrixKey([]string{"a", "b", "c"}, 0)
	k2 := ODMatrixKey([]string{"a", "b", "c"}, 0)
	k3 := ODMatrixKey([]string{"c", "b", "a"}, 0)

	assert.Equal(t, k1, k2)
	assert.NotEqual(t, k1, k3)
}

func TestIsochroneKeyDistinctOnCutoffAndBuffer(t *testing.T) {
	base := IsochroneKey(56.24, 93.52, 0, 600, 0.001)
	diffCutoff := IsochroneKey(56.24, 93.52, 0, 1200, 0.001)
	diffBuffer := IsochroneKey(56.24, 93.52, 0, 600, 0.002)

	assert.NotEqual(t, base, diffCutoff)
	assert.NotEqual(t, base, diffBuffer)
}

func TestLockKeyWrapsUnderlyingKey(t *testing.T) {
	key := ItineraryKey(0, 0, 1, 1, 0, false)
	assert.Equal(t, "lock:"+key, LockKey(key))
}
