package decisioning

import (
	"testing"

	"github.com/matchday/matchday/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestGrabLock_PreventsDoubleAcquire(t *testing.T) {
	lock := NewGrabLock()
	assert.True(t, lock.TryAcquire(1))
	assert.False(t, lock.TryAcquire(1))

	lock.Release(1)
	assert.True(t, lock.TryAcquire(1))
}

func TestShouldBlocklist_ThresholdReached(t *testing.T) {
	assert.False(t, ShouldBlocklist(0))
	assert.False(t, ShouldBlocklist(2))
	assert.True(t, ShouldBlocklist(3))
}

func TestNextRetryDelay_ClampsAtLastEntry(t *testing.T) {
	assert.Equal(t, RetryBackoff[0], NextRetryDelay(0))
	assert.Equal(t, RetryBackoff[len(RetryBackoff)-1], NextRetryDelay(99))
}

func TestIsBlocklisted_MatchesEitherKey(t *testing.T) {
	entries := []domain.BlocklistEntry{{ReleaseGUID: "g1"}, {InfoHash: "h2"}}
	assert.True(t, IsBlocklisted(entries, "g1", ""))
	assert.True(t, IsBlocklisted(entries, "", "h2"))
	assert.False(t, IsBlocklisted(entries, "other", "other"))
}
