package ui

import (
	"encoding/json"
	"strings"

	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/go-go-golems/wizchat/pkg/store"
)

const browserListWidth = 48

var (
	browserTitleStyle = lipgloss.NewStyle().MarginLeft(2).Bold(true).Foreground(lipgloss.Color("#FFFDF5"))
	browserPane       = lipgloss.NewStyle().
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(lipgloss.Color("62")).
				Padding(0, 1)
	infoTitleStyle = lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("#FFFDF5"))
	infoKeyStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("#AFAFAF"))
	infoValueStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFDF5"))
	emptyStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#888888")).PaddingTop(1)
)

// transcriptItem is one stored message in the browser list.
type transcriptItem struct {
	msg store.Message
}

func (i transcriptItem) Title() string {
	t := string(i.msg.Role)
	if i.msg.Type != store.TypeText {
		t += " · " + string(i.msg.Type)
	}
	if i.msg.CreatedAt != "" {
		t += " · " + i.msg.CreatedAt
	}
	return t
}

func (i transcriptItem) Description() string {
	line, _, _ := strings.Cut(RenderMessage(i.msg), "\n")
	if r := []rune(line); len(r) > browserListWidth-8 {
		line = string(r[:browserListWidth-9]) + "…"
	}
	return line
}

func (i transcriptItem) FilterValue() string { return RenderMessage(i.msg) }

// FormatDetail renders every field of a stored message for the detail pane.
func FormatDetail(m store.Message) string {
	var sb strings.Builder
	sb.WriteString(infoTitleStyle.Render("Message"))
	sb.WriteString("\n\n")
	for _, kv := range [][2]string{
		{"ID", m.ID},
		{"Role", string(m.Role)},
		{"Type", string(m.Type)},
		{"Created", m.CreatedAt},
	} {
		if kv[1] == "" {
			continue
		}
		sb.WriteString(infoKeyStyle.Render(kv[0] + ": "))
		sb.WriteString(infoValueStyle.Render(kv[1]))
		sb.WriteString("\n")
	}
	sb.WriteString("\n")
	sb.WriteString(RenderMessage(m))
	sb.WriteString("\n")

	if len(m.Metadata) > 0 {
		var v any
		if err := json.Unmarshal(m.Metadata, &v); err == nil {
			if pretty, err := json.MarshalIndent(v, "", "  "); err == nil {
				sb.WriteString("\n")
				sb.WriteString(infoTitleStyle.Render("Metadata"))
				sb.WriteString("\n\n")
				sb.WriteString(string(pretty))
				sb.WriteString("\n")
			}
		}
	}
	return sb.String()
}

// Browser is a read-only two pane view over a stored transcript: messages on the
// left, the selected message on the right. Enter widens the detail pane.
type Browser struct {
	list     list.Model
	detail   viewport.Model
	width    int
	height   int
	ready    bool
	expanded bool
}

func NewBrowser(title string, msgs []store.Message) Browser {
	items := make([]list.Item, 0, len(msgs))
	for _, m := range msgs {
		items = append(items, transcriptItem{msg: m})
	}
	l := list.New(items, list.NewDefaultDelegate(), 0, 0)
	l.Title = title
	l.Styles.Title = browserTitleStyle
	l.SetShowStatusBar(false)
	l.SetFilteringEnabled(true)
	if len(items) > 0 {
		l.Select(len(items) - 1)
	}
	return Browser{list: l, detail: viewport.New(0, 0)}
}

func (b Browser) Init() tea.Cmd { return nil }

func (b Browser) selected() (store.Message, bool) {
	it, ok := b.list.SelectedItem().(transcriptItem)
	return it.msg, ok
}

func (b *Browser) showSelected() {
	if m, ok := b.selected(); ok {
		b.detail.SetContent(FormatDetail(m))
		b.detail.GotoTop()
	}
}

func (b *Browser) layout() {
	detailWidth := b.width - browserListWidth - 4
	if b.expanded {
		detailWidth = b.width - 4
	}
	b.list.SetSize(browserListWidth, max(3, b.height-2))
	b.detail.Width = max(10, detailWidth)
	b.detail.Height = max(3, b.height-2)
}

func (b Browser) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		b.width, b.height = msg.Width, msg.Height
		b.layout()
		if !b.ready {
			b.showSelected()
			b.ready = true
		}
		return b, nil

	case tea.KeyMsg:
		if b.list.SettingFilter() {
			break
		}
		switch msg.String() {
		case "q", "ctrl+c":
			return b, tea.Quit
		case "enter":
			b.expanded = !b.expanded
			b.layout()
			return b, nil
		case "esc":
			if b.expanded {
				b.expanded = false
				b.layout()
				return b, nil
			}
		}
		if b.expanded {
			var cmd tea.Cmd
			b.detail, cmd = b.detail.Update(msg)
			return b, cmd
		}
	}

	before := b.list.Index()
	var cmd tea.Cmd
	b.list, cmd = b.list.Update(msg)
	if b.list.Index() != before {
		b.showSelected()
	}
	return b, cmd
}

func (b Browser) View() string {
	if !b.ready {
		return "loading…"
	}
	detail := b.detail.View()
	if _, ok := b.selected(); !ok {
		detail = emptyStyle.Render("no messages recorded for this session")
	}
	if b.expanded {
		return browserPane.Render(detail)
	}
	return lipgloss.JoinHorizontal(lipgloss.Top,
		browserPane.Width(browserListWidth).Render(b.list.View()),
		browserPane.Render(detail),
	)
}
