package ui

import (
	"testing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/store"
)

func transcript() []store.Message {
	return []store.Message{
		{ID: "m1", Type: store.TypeText, Role: store.RoleUser, Body: "set up my mail", CreatedAt: "2024-05-01T10:00:00Z"},
		{ID: "m2", Type: store.TypeOption, Role: store.RoleAssistant, Metadata: []byte(`{"title":"Pick","options":[{"id":"w1","label":"IMAP"}]}`)},
		{ID: "m3", Type: store.TypeText, Role: store.RoleAssistant, Body: "<p>Done, <b>IMAP</b> is configured.</p>"},
	}
}

func TestFormatDetail(t *testing.T) {
	out := FormatDetail(transcript()[1])
	require.Contains(t, out, "m2")
	require.Contains(t, out, "1) IMAP")
	require.Contains(t, out, `"options"`)
}

func TestBrowser_SelectsLatestAndFollowsCursor(t *testing.T) {
	b := NewBrowser("session s1", transcript())
	next, _ := b.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	b = next.(Browser)

	sel, ok := b.selected()
	require.True(t, ok)
	require.Equal(t, "m3", sel.ID)
	require.Contains(t, b.View(), "Done, IMAP is configured.")

	next, _ = b.Update(tea.KeyMsg{Type: tea.KeyUp})
	b = next.(Browser)
	sel, _ = b.selected()
	require.Equal(t, "m2", sel.ID)
	require.Contains(t, b.detail.View(), "Pick")

	next, _ = b.Update(tea.KeyMsg{Type: tea.KeyEnter})
	b = next.(Browser)
	require.True(t, b.expanded)
	next, _ = b.Update(tea.KeyMsg{Type: tea.KeyEsc})
	require.False(t, next.(Browser).expanded)
}

func TestBrowser_Empty(t *testing.T) {
	b := NewBrowser("empty", nil)
	next, _ := b.Update(tea.WindowSizeMsg{Width: 120, Height: 30})
	require.Contains(t, next.(Browser).View(), "no messages recorded")
}

func TestTranscriptItem(t *testing.T) {
	msgs := transcript()
	require.Equal(t, "user · 2024-05-01T10:00:00Z", transcriptItem{msg: msgs[0]}.Title())
	require.Equal(t, "assistant · option", transcriptItem{msg: msgs[1]}.Title())
	require.Equal(t, "Pick", transcriptItem{msg: msgs[1]}.Description())
}
