package slugpolicy

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChecker struct {
	taken map[string]bool
}

func newFakeChecker(taken ...string) *fakeChecker {
	m := make(map[string]bool, len(taken))
	for _, s := range taken {
		m[s] = true
	}
	return &fakeChecker{taken: m}
}

func (f *fakeChecker) SlugExists(_ context.Context, slug string, _ *int64) (bool, error) {
	return f.taken[slug], nil
}

func int64p(v int64) *int64 { return &v }

func TestManager_Resolve_ReturnsBaseWhenUnclaimed(t *testing.T) {
	m := NewManager(newFakeChecker(), nil)
	slug, err := m.Resolve(context.Background(), Input{Candidate: "Stellar Blade"})
	require.NoError(t, err)
	assert.Equal(t, "stellar-blade", slug)
}

func TestManager_Resolve_AppendsIncrementingSuffixOnCollision(t *testing.T) {
	m := NewManager(newFakeChecker("stellar-blade", "stellar-blade-2"), nil)
	slug, err := m.Resolve(context.Background(), Input{Candidate: "Stellar Blade"})
	require.NoError(t, err)
	assert.Equal(t, "stellar-blade-3", slug)
}

func TestManager_Resolve_FallsBackToStoreIDWhenNameEmpty(t *testing.T) {
	m := NewManager(newFakeChecker(), nil)
	slug, err := m.Resolve(context.Background(), Input{Fallbacks: Fallbacks{StoreID: int64p(264710)}})
	require.NoError(t, err)
	assert.Equal(t, "store-264710", slug)
}

func TestManager_Resolve_FallsBackToEpochAfterMaxAttempts(t *testing.T) {
	taken := make([]string, 0, maxCollisionAttempts)
	taken = append(taken, "dup")
	for i := 2; i <= maxCollisionAttempts; i++ {
		taken = append(taken, "dup-"+itoaForTest(i))
	}
	m := NewManager(newFakeChecker(taken...), func() time.Time {
		return time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	})

	slug, err := m.Resolve(context.Background(), Input{Candidate: "dup"})
	require.NoError(t, err)
	assert.Regexp(t, `^dup-\d+$`, slug)
	assert.NotContains(t, taken, slug)
}

func TestManager_Resolve_ErrorsWithNoCandidateOrFallback(t *testing.T) {
	m := NewManager(newFakeChecker(), nil)
	_, err := m.Resolve(context.Background(), Input{})
	assert.Error(t, err)
}

func itoaForTest(n int) string {
	if n == 0 {
		return "0"
	}
	var digits []byte
	for n > 0 {
		digits = append([]byte{byte('0' + n%10)}, digits...)
		n /= 10
	}
	return string(digits)
}
