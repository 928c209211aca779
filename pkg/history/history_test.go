package history

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/store"
)

func TestHTTPLoader_SendsQueryAndDecodesArray(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "s-1", r.URL.Query().Get("session_id"))
		require.Equal(t, "0", r.URL.Query().Get("offset"))
		require.Equal(t, "20", r.URL.Query().Get("limit"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`[
			{"id":"m2","type":"text","role":"assistant","body":"newer","created_at":"2024-01-01T00:00:02Z"},
			{"id":"m1","type":"text","role":"user","body":"older","created_at":"2024-01-01T00:00:01Z"}
		]`))
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.URL+"/api/history", 0)
	recs, err := l.Load(context.Background(), "s-1", 0, 20)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	require.Equal(t, "m2", recs[0].ID)
}

func TestHTTPLoader_DecodesWrappedObjectAndReportsStatus(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("session_id") == "missing" {
			http.Error(w, "no such session", http.StatusNotFound)
			return
		}
		_, _ = w.Write([]byte(`{"messages":[{"id":"a","body":"x"}]}`))
	}))
	defer srv.Close()

	l := NewHTTPLoader(srv.URL, 0)
	recs, err := l.Load(context.Background(), "s", 0, 5)
	require.NoError(t, err)
	require.Len(t, recs, 1)

	_, err = l.Load(context.Background(), "missing", 0, 5)
	require.Error(t, err)
	require.Contains(t, err.Error(), "404")
}

func TestSeed_ReversesIntoDisplayOrder(t *testing.T) {
	loader := &StaticLoader{Records: []Record{
		{ID: "m3", Role: "assistant", Body: "third"},
		{ID: "m2", Role: "user", Body: "second"},
		{ID: "m1", Role: "assistant", Type: "option", Body: "first", Metadata: []byte(`{"k":1}`)},
	}}
	st := store.New()
	n, err := Seed(context.Background(), loader, st, "s", 50)
	require.NoError(t, err)
	require.Equal(t, 3, n)
	require.Equal(t, []string{"m1", "m2", "m3"}, st.IDs())

	first, _ := st.Get("m1")
	require.Equal(t, store.TypeOption, first.Type)
	second, _ := st.Get("m2")
	require.Equal(t, store.TypeText, second.Type)
	require.Equal(t, store.RoleUser, second.Role)
}

func TestStaticLoader_Pages(t *testing.T) {
	l := &StaticLoader{Records: []Record{{ID: "a"}, {ID: "b"}, {ID: "c"}}}
	recs, err := l.Load(context.Background(), "s", 1, 1)
	require.NoError(t, err)
	require.Equal(t, []Record{{ID: "b"}}, recs)

	recs, err = l.Load(context.Background(), "s", 5, 1)
	require.NoError(t, err)
	require.Empty(t, recs)
	require.Equal(t, 2, l.Calls)
}
