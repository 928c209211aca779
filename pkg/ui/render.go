package ui

import (
	"encoding/json"
	"fmt"
	"html"
	"regexp"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/go-go-golems/wizchat/pkg/store"
)

var (
	textPolicy = bluemonday.StrictPolicy()

	rowEnd     = regexp.MustCompile(`(?i)</tr\s*>`)
	cellEnd    = regexp.MustCompile(`(?i)</t[dh]\s*>`)
	blockEnd   = regexp.MustCompile(`(?i)</(p|div|h[1-6]|pre|blockquote|ul|ol|table)\s*>|<br\s*/?>`)
	listItem   = regexp.MustCompile(`(?i)<li(\s[^>]*)?>`)
	blankLines = regexp.MustCompile(`\n{3,}`)
)

// HTMLToText flattens assistant HTML for a terminal: table rows become lines with
// " | " between cells, block elements become line breaks and every tag is stripped.
func HTMLToText(s string) string {
	s = rowEnd.ReplaceAllString(s, "\n")
	s = cellEnd.ReplaceAllString(s, " | ")
	s = blockEnd.ReplaceAllString(s, "\n")
	s = listItem.ReplaceAllString(s, "\n• ")
	s = html.UnescapeString(textPolicy.Sanitize(s))

	lines := strings.Split(s, "\n")
	for i, l := range lines {
		lines[i] = strings.TrimRight(strings.TrimSuffix(strings.TrimRight(l, " "), " |"), " ")
	}
	s = strings.Join(lines, "\n")
	return strings.TrimSpace(blankLines.ReplaceAllString(s, "\n\n"))
}

// Choice is one selectable entry of an option message.
type Choice struct {
	ID    string
	Label string
}

// Choices extracts selectable entries from option metadata. The backend is not
// consistent about key names, so several shapes are accepted.
func Choices(meta json.RawMessage) []Choice {
	if len(meta) == 0 {
		return nil
	}
	var payload map[string]json.RawMessage
	if err := json.Unmarshal(meta, &payload); err != nil {
		return nil
	}
	for _, key := range []string{"options", "wizards", "services", "items"} {
		raw, ok := payload[key]
		if !ok {
			continue
		}
		var entries []json.RawMessage
		if err := json.Unmarshal(raw, &entries); err != nil {
			continue
		}
		out := make([]Choice, 0, len(entries))
		for _, e := range entries {
			if c, ok := parseChoice(e); ok {
				out = append(out, c)
			}
		}
		return out
	}
	return nil
}

func parseChoice(raw json.RawMessage) (Choice, bool) {
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return Choice{ID: s, Label: s}, s != ""
	}
	var obj map[string]any
	if err := json.Unmarshal(raw, &obj); err != nil {
		return Choice{}, false
	}
	pick := func(keys ...string) string {
		for _, k := range keys {
			if v, ok := obj[k]; ok && v != nil {
				return fmt.Sprint(v)
			}
		}
		return ""
	}
	c := Choice{
		ID:    pick("wizard_id", "id", "name", "value"),
		Label: pick("label", "title", "name", "text"),
	}
	if c.Label == "" {
		c.Label = c.ID
	}
	return c, c.ID != ""
}

func optionTitle(meta json.RawMessage) string {
	var payload struct {
		Title   string `json:"title"`
		Message string `json:"message"`
	}
	_ = json.Unmarshal(meta, &payload)
	if payload.Title != "" {
		return payload.Title
	}
	return payload.Message
}

// RenderMessage renders one store message as terminal text, without role styling.
func RenderMessage(m store.Message) string {
	switch m.Type {
	case store.TypeOption:
		var b strings.Builder
		if title := optionTitle(m.Metadata); title != "" {
			b.WriteString(title)
			b.WriteString("\n")
		}
		for i, c := range Choices(m.Metadata) {
			fmt.Fprintf(&b, "  %d) %s\n", i+1, c.Label)
		}
		return strings.TrimRight(b.String(), "\n")
	case store.TypeImage:
		var meta struct {
			Files []string `json:"files"`
		}
		_ = json.Unmarshal(m.Metadata, &meta)
		return "[image] " + strings.Join(meta.Files, ", ")
	default:
		return HTMLToText(m.Body)
	}
}
