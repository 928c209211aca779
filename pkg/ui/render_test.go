package ui

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/go-go-golems/wizchat/pkg/store"
)

func TestHTMLToText(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want string
	}{
		{"plain", "Hi there!", "Hi there!"},
		{"inline", "Hello <b>world</b> &amp; friends", "Hello world & friends"},
		{"paragraphs", "<p>one</p><p>two</p>", "one\ntwo"},
		{"breaks", "a<br>b<br/>c", "a\nb\nc"},
		{"table", "<table><tbody><tr><th>H1</th><th>H2</th></tr><tr><td>a</td><td>b</td></tr></tbody></table>", "H1 | H2\na | b"},
		{"list", "<ul><li>one</li><li>two</li></ul>", "• one\n• two"},
		{"script stripped", "ok<script>alert(1)</script>", "ok"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, HTMLToText(tc.in))
		})
	}
}

func TestChoices_AcceptsSeveralShapes(t *testing.T) {
	require.Equal(t, []Choice{{ID: "w1", Label: "Setup"}, {ID: "w2", Label: "w2"}},
		Choices(json.RawMessage(`{"options":[{"id":"w1","label":"Setup"},{"wizard_id":"w2"}]}`)))
	require.Equal(t, []Choice{{ID: "mail", Label: "mail"}},
		Choices(json.RawMessage(`{"services":["mail",""]}`)))
	require.Nil(t, Choices(json.RawMessage(`{"title":"nothing to pick"}`)))
	require.Nil(t, Choices(nil))
	require.Nil(t, Choices(json.RawMessage(`not json`)))
}

func TestRenderMessage(t *testing.T) {
	opt := store.Message{Type: store.TypeOption, Metadata: json.RawMessage(`{"title":"Pick one","options":[{"id":"a","label":"Alpha"},{"id":"b","title":"Beta"}]}`)}
	require.Equal(t, "Pick one\n  1) Alpha\n  2) Beta", RenderMessage(opt))

	img := store.Message{Type: store.TypeImage, Metadata: json.RawMessage(`{"files":["a.png","b.png"]}`)}
	require.Equal(t, "[image] a.png, b.png", RenderMessage(img))

	txt := store.Message{Type: store.TypeText, Body: "<i>hi</i>"}
	require.Equal(t, "hi", RenderMessage(txt))
}
