package rawcache

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"uefadata-backend/lib/telemetry"

	"github.com/stretchr/testify/require"
)

func testClock() func() time.Time {
	current := time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		current = current.Add(time.Second)
		return current
	}
}

func TestFSStore(t *testing.T) {
	cleanup := telemetry.SetupForTesting("test:rawcache")
	defer cleanup()

	store := NewFSWithClock(t.TempDir(), testClock())
	ctx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	_, err := store.Get(ctx, "kassiesa-matches", 2024)
	require.ErrorIs(t, err, ErrNotFound)

	prov := Provenance{
		URL:       "https://kassiesa.net/uefa/data/method5/match2024.html",
		Status:    200,
		FetchedAt: time.Date(2026, 8, 1, 12, 0, 1, 0, time.UTC),
	}
	first, err := store.Put(ctx, "kassiesa-matches", 2024, []byte("<html>v1</html>"), prov)
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "kassiesa-matches", 2024)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []byte("<html>v1</html>"), got.Payload)
	require.Equal(t, prov.URL, got.Provenance.URL)
	require.Equal(t, 200, got.Provenance.Status)

	// a second put must create a new entry, not overwrite
	second, err := store.Put(ctx, "kassiesa-matches", 2024, []byte("<html>v2</html>"), prov)
	if err != nil {
		t.Fatal(err)
	}
	require.NotEqual(t, first.Stamp, second.Stamp)

	got, err = store.Get(ctx, "kassiesa-matches", 2024)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []byte("<html>v2</html>"), got.Payload)

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, entries, 2)
}

func TestFSStoreKeysDoNotCollide(t *testing.T) {
	store := NewFSWithClock(t.TempDir(), testClock())
	ctx := context.Background()

	_, err := store.Put(ctx, "kassiesa-matches", 2024, []byte("matches"), Provenance{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Put(ctx, "uefa-club-coefficients", 2024, []byte("coefficients"), Provenance{})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Put(ctx, "kassiesa-matches", 2025, []byte("matches next year"), Provenance{})
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "kassiesa-matches", 2024)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []byte("matches"), got.Payload)

	got, err = store.Get(ctx, "uefa-club-coefficients", 2024)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []byte("coefficients"), got.Payload)
}

func TestFSStoreGetReportsUnreadableCache(t *testing.T) {
	root := t.TempDir()
	store := NewFSWithClock(root, testClock())
	ctx := context.Background()

	// a regular file where the source directory belongs makes the key
	// dir unreadable without it being absent
	err := os.WriteFile(filepath.Join(root, "kassiesa-matches"), []byte("junk"), 0644)
	if err != nil {
		t.Fatal(err)
	}

	_, err = store.Get(ctx, "kassiesa-matches", 2024)
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrNotFound,
		"an unreadable cache must not pass for a cache miss")
}

func TestMemoryStore(t *testing.T) {
	store := NewMemoryWithClock(testClock())
	ctx := context.Background()

	_, err := store.Get(ctx, "kassiesa-matches", 2020)
	require.ErrorIs(t, err, ErrNotFound)

	_, err = store.Put(ctx, "kassiesa-matches", 2020, []byte("one"), Provenance{Status: 200})
	if err != nil {
		t.Fatal(err)
	}
	_, err = store.Put(ctx, "kassiesa-matches", 2020, []byte("two"), Provenance{Status: 200})
	if err != nil {
		t.Fatal(err)
	}

	got, err := store.Get(ctx, "kassiesa-matches", 2020)
	if err != nil {
		t.Fatal(err)
	}
	require.Equal(t, []byte("two"), got.Payload)

	entries, err := store.List(ctx)
	if err != nil {
		t.Fatal(err)
	}
	require.Len(t, entries, 2)
	require.Nil(t, entries[0].Payload)
}
