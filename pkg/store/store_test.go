package store

import (
	"encoding/json"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func fixedNow() time.Time { return time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC) }

func TestStore_AppendAssignsIDAndTimestamp(t *testing.T) {
	s := New(WithNow(fixedNow))
	id := s.Append(Message{Type: TypeText, Role: RoleUser, Body: "hello"})
	require.NotEmpty(t, id)

	m, ok := s.Get(id)
	require.True(t, ok)
	require.Equal(t, "hello", m.Body)
	require.Equal(t, "2024-05-01T12:00:00Z", m.CreatedAt)
	require.NoError(t, s.Validate())
}

func TestStore_AppendKeepsExplicitIDAndIgnoresDuplicates(t *testing.T) {
	s := New()
	require.Equal(t, "m1", s.Append(Message{ID: "m1", Body: "a"}))
	require.Equal(t, "m1", s.Append(Message{ID: "m1", Body: "b"}))
	require.Equal(t, 1, s.Len())
	m, _ := s.Get("m1")
	require.Equal(t, "a", m.Body)
}

func TestStore_PatchMergesWithoutReordering(t *testing.T) {
	s := New()
	a := s.Append(Message{Body: "a"})
	b := s.Append(Message{Body: "b"})

	body := "A!"
	require.True(t, s.Patch(a, Patch{Body: &body, Metadata: json.RawMessage(`{"k":1}`)}))
	require.Equal(t, []string{a, b}, s.IDs())

	m, _ := s.Get(a)
	require.Equal(t, "A!", m.Body)
	require.JSONEq(t, `{"k":1}`, string(m.Metadata))

	require.False(t, s.Patch("missing", Patch{Body: &body}))
	require.Equal(t, 2, s.Len())
}

func TestStore_RemoveAndReset(t *testing.T) {
	s := New()
	a := s.Append(Message{Body: "a"})
	b := s.Append(Message{Body: "b"})
	c := s.Append(Message{Body: "c"})

	require.True(t, s.Remove(b))
	require.False(t, s.Remove(b))
	require.Equal(t, []string{a, c}, s.IDs())
	require.NoError(t, s.Validate())

	v := s.Version()
	s.Reset()
	require.Equal(t, 0, s.Len())
	require.Greater(t, s.Version(), v)
	require.NoError(t, s.Validate())
}

func TestStore_SeedSkipsKnownIDs(t *testing.T) {
	s := New()
	s.Append(Message{ID: "h2", Body: "already"})
	added := s.Seed([]Message{{ID: "h1", Body: "one"}, {ID: "h2", Body: "two"}, {ID: "h3", Body: "three"}})
	require.Equal(t, 2, added)
	require.Equal(t, []string{"h2", "h1", "h3"}, s.IDs())
}

func TestStore_SnapshotIsACopy(t *testing.T) {
	s := New()
	id := s.Append(Message{Body: "a", Metadata: json.RawMessage(`{"x":1}`)})
	snap := s.Snapshot()
	snap[0].Body = "mutated"
	snap[0].Metadata[2] = 'y'

	m, _ := s.Get(id)
	require.Equal(t, "a", m.Body)
	require.JSONEq(t, `{"x":1}`, string(m.Metadata))
}

func TestStore_InvariantHoldsUnderConcurrentMutation(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				id := s.Append(Message{Body: "x"})
				if i%3 == 0 {
					s.Remove(id)
				}
			}
		}()
	}
	errs := make(chan error, 1)
	go func() {
		defer close(errs)
		for i := 0; i < 500; i++ {
			if err := s.Validate(); err != nil {
				errs <- err
				return
			}
		}
	}()
	wg.Wait()
	require.NoError(t, <-errs)
	require.NoError(t, s.Validate())
}
