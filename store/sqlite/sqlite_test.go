package sqlite_test

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bigtop/studio-engine/store/sqlite"
)

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func TestStore_SaveAndLoadLatest(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rev1, err := store.Save(ctx, []byte(`{"schemaVersion":2}`))
	require.NoError(t, err)
	rev2, err := store.Save(ctx, []byte(`{"schemaVersion":2,"students":[]}`))
	require.NoError(t, err)
	assert.Greater(t, rev2, rev1)

	doc, rev, err := store.LoadLatest(ctx)
	require.NoError(t, err)
	assert.Equal(t, rev2, rev)
	assert.JSONEq(t, `{"schemaVersion":2,"students":[]}`, string(doc))
}

func TestStore_Empty_ErrNoSnapshot(t *testing.T) {
	store := newTestStore(t)
	_, _, err := store.LoadLatest(context.Background())
	assert.ErrorIs(t, err, sqlite.ErrNoSnapshot)
}

func TestStore_RevisionHistoryPruned(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i := 0; i < sqlite.DefaultKeepRevisions+10; i++ {
		_, err := store.Save(ctx, []byte(fmt.Sprintf(`{"schemaVersion":2,"n":%d}`, i)))
		require.NoError(t, err)
	}

	infos, err := store.Revisions(ctx)
	require.NoError(t, err)
	assert.Len(t, infos, sqlite.DefaultKeepRevisions)
	assert.Greater(t, infos[0].Revision, infos[len(infos)-1].Revision, "newest first")
}

func TestStore_LoadRevision_ForRecovery(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	rev, err := store.Save(ctx, []byte(`{"schemaVersion":2,"marker":"old"}`))
	require.NoError(t, err)
	_, err = store.Save(ctx, []byte(`{"schemaVersion":2,"marker":"new"}`))
	require.NoError(t, err)

	doc, err := store.LoadRevision(ctx, rev)
	require.NoError(t, err)
	assert.Contains(t, string(doc), "old")

	_, err = store.LoadRevision(ctx, 9999)
	assert.ErrorIs(t, err, sqlite.ErrNoSnapshot)
}
