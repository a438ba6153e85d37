package main

import (
	"context"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"smooday/quickcheck-api/nutrition"
)

func TestDocumentKey(t *testing.T) {
	id := uuid.MustParse("6f1c2a7e-4b0d-4a53-9d8e-2f5b8c1e0a11")

	key := nutrition.DocumentKey(id)
	assert.True(t, strings.HasPrefix(key, nutrition.DocumentKeyPrefix))
	assert.Len(t, key, len(nutrition.DocumentKeyPrefix)+64)
	assert.NotContains(t, key, id.String(), "device id is not stored in clear")
	assert.Equal(t, key, nutrition.DocumentKey(id))
	assert.NotEqual(t, key, nutrition.DocumentKey(uuid.New()))
}

// testStoreRoundTrip exercises any documentStore implementation.
func testStoreRoundTrip(t *testing.T, s documentStore) {
	t.Helper()
	ctx := context.Background()

	_, found, err := s.Get(ctx, "smooday_v1_quickcheck:missing")
	require.NoError(t, err)
	assert.False(t, found)

	require.NoError(t, s.Set(ctx, "smooday_v1_quickcheck:a", []byte(`{"targets":{"kcal":1}}`)))
	require.NoError(t, s.Set(ctx, "smooday_v1_quickcheck:a", []byte(`{"targets":{"kcal":2}}`)))

	doc, found, err := s.Get(ctx, "smooday_v1_quickcheck:a")
	require.NoError(t, err)
	require.True(t, found)
	assert.JSONEq(t, `{"targets":{"kcal":2}}`, string(doc))
}

func TestMemoryStore(t *testing.T) {
	testStoreRoundTrip(t, newMemoryStore())
}

func TestFileStore(t *testing.T) {
	dir := t.TempDir()
	s, err := newFileStore(dir)
	require.NoError(t, err)
	testStoreRoundTrip(t, s)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1, "temp files are cleaned up")
	assert.True(t, strings.HasSuffix(entries[0].Name(), ".json"))
}

func TestNewDocumentStore_UnknownDriver(t *testing.T) {
	_, err := newDocumentStore(context.Background(), config{StoreDriver: "redis"})
	assert.Error(t, err)
}

// failingStore fails every call.
type failingStore struct{}

func (failingStore) Get(context.Context, string) ([]byte, bool, error) {
	return nil, false, errors.New("backend down")
}

func (failingStore) Set(context.Context, string, []byte) error {
	return errors.New("backend down")
}

func TestSessionCache_SurvivesBackendFailure(t *testing.T) {
	ctx := context.Background()
	cache := newSessionCache(failingStore{}, zap.NewNop())

	doc := cache.Load(ctx, "k")
	assert.Len(t, doc.Meals, 3, "unreadable backend yields defaults")

	doc.AddExtraMeal()
	cache.Save(ctx, "k", doc)

	assert.Len(t, cache.Load(ctx, "k").Meals, 4, "state is kept for the session")
	assert.Equal(t, 1, cache.pendingCount())
}

func TestSessionCache_DropsDocumentsOnceWritten(t *testing.T) {
	ctx := context.Background()
	cache := newSessionCache(newMemoryStore(), zap.NewNop())

	for i := 0; i < 100; i++ {
		cache.Save(ctx, nutrition.DocumentKey(uuid.New()), nutrition.DefaultDailyLog())
	}
	assert.Equal(t, 0, cache.pendingCount(), "written documents are not held in memory")
}

// flakyStore wraps a memoryStore and fails writes while down is set.
type flakyStore struct {
	*memoryStore
	down bool
}

func (s *flakyStore) Set(ctx context.Context, key string, doc []byte) error {
	if s.down {
		return errors.New("backend down")
	}
	return s.memoryStore.Set(ctx, key, doc)
}

func TestSessionCache_HeldUntilBackendRecovers(t *testing.T) {
	ctx := context.Background()
	backend := &flakyStore{memoryStore: newMemoryStore(), down: true}
	cache := newSessionCache(backend, zap.NewNop())

	doc := nutrition.DefaultDailyLog()
	doc.Supplements.Zinc = true
	cache.Save(ctx, "k", doc)
	require.Equal(t, 1, cache.pendingCount())
	assert.True(t, cache.Load(ctx, "k").Supplements.Zinc)

	backend.down = false
	doc.Supplements.Omega3 = true
	cache.Save(ctx, "k", doc)
	assert.Equal(t, 0, cache.pendingCount())

	loaded := cache.Load(ctx, "k")
	assert.True(t, loaded.Supplements.Zinc)
	assert.True(t, loaded.Supplements.Omega3)
}

func TestSessionCache_PendingIsBounded(t *testing.T) {
	ctx := context.Background()
	cache := newSessionCache(failingStore{}, zap.NewNop())

	for i := 0; i < maxPendingDocs+50; i++ {
		cache.Save(ctx, nutrition.DocumentKey(uuid.New()), nutrition.DefaultDailyLog())
	}
	assert.Equal(t, maxPendingDocs, cache.pendingCount())
}

func TestSessionCache_EmptyMealsSurviveReload(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryStore()
	cache := newSessionCache(backend, zap.NewNop())

	doc := nutrition.DefaultDailyLog()
	for _, m := range append([]nutrition.Meal(nil), doc.Meals...) {
		require.True(t, doc.RemoveMeal(m.ID))
	}
	cache.Save(ctx, "k", doc)

	reloaded := newSessionCache(backend, zap.NewNop()).Load(ctx, "k")
	assert.Empty(t, reloaded.Meals)
	assert.Equal(t, nutrition.ComputeCoverage(doc), nutrition.ComputeCoverage(reloaded))
}

func TestSessionCache_WritesThroughAndDecodes(t *testing.T) {
	ctx := context.Background()
	backend := newMemoryStore()
	require.NoError(t, backend.Set(ctx, "corrupt", []byte("{not json")))
	require.NoError(t, backend.Set(ctx, "partial", []byte(`{"supplements":{"omega3":true}}`)))

	cache := newSessionCache(backend, zap.NewNop())

	assert.Equal(t, nutrition.DefaultTargets(), cache.Load(ctx, "corrupt").Targets)
	assert.True(t, cache.Load(ctx, "partial").Supplements.Omega3)

	doc := nutrition.DefaultDailyLog()
	doc.Targets.Kcal = 1900
	cache.Save(ctx, "fresh", doc)

	// A second cache over the same backend sees the write.
	other := newSessionCache(backend, zap.NewNop())
	assert.Equal(t, 1900, other.Load(ctx, "fresh").Targets.Kcal)
}

func TestSessionCache_DoesNotAliasMeals(t *testing.T) {
	ctx := context.Background()
	cache := newSessionCache(failingStore{}, zap.NewNop())

	doc := nutrition.DefaultDailyLog()
	cache.Save(ctx, "k", doc)
	doc.Meals[0].Note = "changed after save"

	assert.Empty(t, cache.Load(ctx, "k").Meals[0].Note)
}
