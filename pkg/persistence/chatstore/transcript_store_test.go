package chatstore

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/history"
	"github.com/go-go-golems/wizchat/pkg/store"
)

func stores(t *testing.T) map[string]TranscriptStore {
	t.Helper()
	sq, err := NewSQLiteTranscriptStore(filepath.Join(t.TempDir(), "transcript.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = sq.Close() })
	return map[string]TranscriptStore{
		"memory": NewInMemoryTranscriptStore(0),
		"sqlite": sq,
	}
}

func TestTranscriptStore_UpsertKeepsPosition(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			require.NoError(t, s.Upsert(ctx, "s1", store.Message{ID: "m1", Type: store.TypeText, Role: store.RoleUser, Body: "hello", CreatedAt: "t1"}))
			require.NoError(t, s.Upsert(ctx, "s1", store.Message{ID: "m2", Type: store.TypeText, Role: store.RoleAssistant, CreatedAt: "t2"}))
			require.NoError(t, s.Upsert(ctx, "s1", store.Message{ID: "m3", Type: store.TypeOption, Role: store.RoleAssistant, Metadata: []byte(`{"options":["a"]}`), CreatedAt: "t3"}))
			require.NoError(t, s.Upsert(ctx, "s1", store.Message{ID: "m2", Type: store.TypeText, Role: store.RoleAssistant, Body: "<p>Hi</p>"}))
			require.NoError(t, s.Upsert(ctx, "other", store.Message{ID: "x", Type: store.TypeText, Role: store.RoleUser}))

			recs, err := s.List(ctx, "s1", 0, 10)
			require.NoError(t, err)
			require.Len(t, recs, 3)
			require.Equal(t, []string{"m3", "m2", "m1"}, []string{recs[0].ID, recs[1].ID, recs[2].ID})
			require.Equal(t, "<p>Hi</p>", recs[1].Body)
			require.Equal(t, "t2", recs[1].CreatedAt)
			require.JSONEq(t, `{"options":["a"]}`, string(recs[0].Metadata))

			page, err := s.List(ctx, "s1", 1, 1)
			require.NoError(t, err)
			require.Len(t, page, 1)
			require.Equal(t, "m2", page[0].ID)

			require.NoError(t, s.DeleteSession(ctx, "s1"))
			recs, err = s.List(ctx, "s1", 0, 10)
			require.NoError(t, err)
			require.Empty(t, recs)
			recs, err = s.List(ctx, "other", 0, 10)
			require.NoError(t, err)
			require.Len(t, recs, 1)
		})
	}
}

func TestTranscriptStore_RejectsMissingKeys(t *testing.T) {
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			require.Error(t, s.Upsert(context.Background(), "", store.Message{ID: "m1"}))
			require.Error(t, s.Upsert(context.Background(), "s1", store.Message{}))
		})
	}
}

func TestInMemoryTranscriptStore_EvictsOldest(t *testing.T) {
	s := NewInMemoryTranscriptStore(2)
	ctx := context.Background()
	for _, id := range []string{"a", "b", "c"} {
		require.NoError(t, s.Upsert(ctx, "s1", store.Message{ID: id, Type: store.TypeText, Role: store.RoleUser}))
	}
	recs, err := s.List(ctx, "s1", 0, 0)
	require.NoError(t, err)
	require.Equal(t, []string{"c", "b"}, []string{recs[0].ID, recs[1].ID})
}

func TestLoader_SeedsStoreInDisplayOrder(t *testing.T) {
	s := NewInMemoryTranscriptStore(0)
	ctx := context.Background()
	require.NoError(t, s.Upsert(ctx, "s1", store.Message{ID: "m1", Type: store.TypeText, Role: store.RoleUser, Body: "q"}))
	require.NoError(t, s.Upsert(ctx, "s1", store.Message{ID: "m2", Type: store.TypeText, Role: store.RoleAssistant, Body: "a"}))

	st := store.New()
	n, err := history.Seed(ctx, &Loader{Store: s}, st, "s1", 50)
	require.NoError(t, err)
	require.Equal(t, 2, n)
	require.Equal(t, []string{"m1", "m2"}, st.IDs())
}
