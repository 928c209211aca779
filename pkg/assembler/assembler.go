// Package assembler rebuilds renderable HTML from arbitrarily fragmented streaming
// deltas. Partial tags are held back until they complete, and table markup is captured
// row by row so a half-built table is always rendered closed.
package assembler

import (
	"strings"
	"sync"

	"github.com/go-go-golems/wizchat/pkg/clock"
)

// Assembler is the per-turn reconstruction state machine. When built with a scheduler
// the owner serializes calls and frame callbacks (see clock.Serialized). When built
// with New(nil) the assembler locks itself, and the update callback must not call back
// into it.
type Assembler struct {
	// mu is set only for the default scheduler.
	mu        *sync.Mutex
	scheduler Scheduler
	onUpdate  func(html string)

	prefix strings.Builder

	inTable       bool
	tableOpenTag  string
	completedRows []string
	inRow         bool
	currentRow    strings.Builder
	inCell        bool
	cellTag       string
	currentCell   strings.Builder

	rawBuffer    string
	lastEmitted  string
	finalHTML    string
	cancelFrame  func()
	framePending bool
}

func New(scheduler Scheduler) *Assembler {
	if scheduler != nil {
		return &Assembler{scheduler: scheduler}
	}
	mu := &sync.Mutex{}
	return &Assembler{
		mu:        mu,
		scheduler: NewFrameScheduler(clock.Serialized(clock.Real(), mu), DefaultFrameInterval),
	}
}

func (a *Assembler) lock() {
	if a.mu != nil {
		a.mu.Lock()
	}
}

func (a *Assembler) unlock() {
	if a.mu != nil {
		a.mu.Unlock()
	}
}

// OnUpdate sets the callback receiving coalesced materializations. A later call
// replaces the previous callback.
func (a *Assembler) OnUpdate(cb func(html string)) {
	a.lock()
	defer a.unlock()
	a.onUpdate = cb
}

// ProcessDelta consumes the next fragment of streamed output and schedules a
// materialization for the next frame.
func (a *Assembler) ProcessDelta(fragment string) {
	if fragment == "" {
		return
	}
	a.lock()
	defer a.unlock()
	raw := a.rawBuffer + fragment
	i := 0
	for i < len(raw) {
		if raw[i] == '<' {
			end := strings.IndexByte(raw[i:], '>')
			if end < 0 {
				break
			}
			a.handleTag(raw[i : i+end+1])
			i += end + 1
			continue
		}
		next := strings.IndexByte(raw[i:], '<')
		if next < 0 {
			next = len(raw) - i
		}
		a.handleText(raw[i : i+next])
		i += next
	}
	a.rawBuffer = raw[i:]
	a.schedule()
}

// Pending returns the unconsumed tail held back because a tag is incomplete.
func (a *Assembler) Pending() string {
	a.lock()
	defer a.unlock()
	return a.rawBuffer
}

// InTable reports whether a table is currently being captured.
func (a *Assembler) InTable() bool {
	a.lock()
	defer a.unlock()
	return a.inTable
}

// StableHTML returns the safely renderable reconstruction at this instant.
func (a *Assembler) StableHTML() string {
	a.lock()
	defer a.unlock()
	return a.stableHTML()
}

func (a *Assembler) stableHTML() string {
	if a.finalHTML != "" {
		return a.finalHTML
	}
	var b strings.Builder
	b.WriteString(a.prefix.String())
	if a.inTable {
		b.WriteString(a.tableOpenTag)
		b.WriteString("<tbody>")
		for _, row := range a.completedRows {
			b.WriteString(row)
		}
		if a.inRow {
			b.WriteString(a.currentRow.String())
			if a.inCell {
				b.WriteString(a.currentCell.String())
				b.WriteString(closeTag(a.cellTag))
			}
			b.WriteString("</tr>")
		}
		b.WriteString("</tbody></table>")
	}
	return b.String()
}

// FinalHTML returns the committed table markup when a table has closed, and the
// stable reconstruction otherwise.
func (a *Assembler) FinalHTML() string {
	a.lock()
	defer a.unlock()
	return a.stableHTML()
}

// Flush cancels any pending frame and materializes immediately. The update callback
// fires only if the HTML changed since the last emission. Flush returns the HTML.
func (a *Assembler) Flush() string {
	a.lock()
	defer a.unlock()
	a.cancelPending()
	return a.emit()
}

// Reset clears all state and cancels any pending frame. It never fires the update
// callback.
func (a *Assembler) Reset() {
	a.lock()
	defer a.unlock()
	a.cancelPending()
	a.prefix.Reset()
	a.inTable = false
	a.tableOpenTag = ""
	a.completedRows = nil
	a.inRow = false
	a.currentRow.Reset()
	a.inCell = false
	a.cellTag = ""
	a.currentCell.Reset()
	a.rawBuffer = ""
	a.lastEmitted = ""
	a.finalHTML = ""
}

func (a *Assembler) schedule() {
	if a.framePending {
		return
	}
	a.framePending = true
	a.cancelFrame = a.scheduler.Schedule(func() {
		a.framePending = false
		a.cancelFrame = nil
		a.emit()
	})
}

func (a *Assembler) cancelPending() {
	if a.cancelFrame != nil {
		a.cancelFrame()
	}
	a.cancelFrame = nil
	a.framePending = false
}

func (a *Assembler) emit() string {
	html := a.stableHTML()
	if html == a.lastEmitted {
		return html
	}
	a.lastEmitted = html
	if a.onUpdate != nil {
		a.onUpdate(html)
	}
	return html
}

func (a *Assembler) handleText(text string) {
	switch {
	case a.inCell:
		a.currentCell.WriteString(text)
	case !a.inTable:
		a.prefix.WriteString(text)
	default:
		// table mode, outside any cell: dropped
	}
}

func (a *Assembler) handleTag(tag string) {
	name, closing := tagName(tag)
	switch name {
	case "table":
		if closing {
			a.closeTable()
		} else {
			a.openTable(tag)
		}
		return
	case "tr":
		if a.inTable {
			if closing {
				a.closeRow(tag)
			} else {
				a.finalizeRow()
				a.inRow = true
				a.currentRow.Reset()
				a.currentRow.WriteString(tag)
			}
			return
		}
	case "td", "th":
		if a.inTable {
			if closing {
				a.closeCell(tag)
			} else {
				a.openCell(name, tag)
			}
			return
		}
	case "thead", "tbody", "tfoot":
		if a.inTable {
			return
		}
	}
	a.routeTag(tag)
}

func (a *Assembler) routeTag(tag string) {
	switch {
	case a.inCell:
		a.currentCell.WriteString(tag)
	case a.inRow:
		a.currentRow.WriteString(tag)
	default:
		a.prefix.WriteString(tag)
	}
}

func (a *Assembler) openTable(tag string) {
	a.inTable = true
	a.tableOpenTag = tag
	a.completedRows = nil
	a.inRow = false
	a.currentRow.Reset()
	a.inCell = false
	a.cellTag = ""
	a.currentCell.Reset()
}

func (a *Assembler) closeTable() {
	if !a.inTable {
		return
	}
	a.finalizeRow()
	var b strings.Builder
	b.WriteString(a.tableOpenTag)
	b.WriteString("<tbody>")
	for _, row := range a.completedRows {
		b.WriteString(row)
	}
	b.WriteString("</tbody></table>")
	a.finalHTML = b.String()
	a.inTable = false
	a.tableOpenTag = ""
	a.completedRows = nil
}

func (a *Assembler) closeRow(tag string) {
	if a.inCell {
		a.finalizeCell()
	}
	if !a.inRow {
		return
	}
	a.currentRow.WriteString(tag)
	a.completedRows = append(a.completedRows, a.currentRow.String())
	a.currentRow.Reset()
	a.inRow = false
}

func (a *Assembler) openCell(name, tag string) {
	if a.inCell {
		a.finalizeCell()
	}
	if !a.inRow {
		a.inRow = true
		a.currentRow.Reset()
		a.currentRow.WriteString("<tr>")
	}
	a.inCell = true
	a.cellTag = name
	a.currentCell.Reset()
	a.currentCell.WriteString(tag)
}

func (a *Assembler) closeCell(tag string) {
	if !a.inCell {
		return
	}
	a.currentCell.WriteString(tag)
	a.currentRow.WriteString(a.currentCell.String())
	a.currentCell.Reset()
	a.inCell = false
	a.cellTag = ""
}

// finalizeCell closes the open cell with a synthesized closing tag.
func (a *Assembler) finalizeCell() {
	a.currentCell.WriteString(closeTag(a.cellTag))
	a.currentRow.WriteString(a.currentCell.String())
	a.currentCell.Reset()
	a.inCell = false
	a.cellTag = ""
}

// finalizeRow closes whatever row/cell is still open and pushes the row.
func (a *Assembler) finalizeRow() {
	if a.inCell {
		a.finalizeCell()
	}
	if a.inRow {
		a.currentRow.WriteString("</tr>")
		a.completedRows = append(a.completedRows, a.currentRow.String())
		a.currentRow.Reset()
		a.inRow = false
	}
}

func closeTag(name string) string {
	if name == "" {
		name = "td"
	}
	return "</" + name + ">"
}

// tagName extracts the lower-cased element name of a complete tag such as
// `<TD class="x">` or `</tr>`.
func tagName(tag string) (string, bool) {
	s := strings.TrimPrefix(tag, "<")
	s = strings.TrimSuffix(s, ">")
	closing := false
	if strings.HasPrefix(s, "/") {
		closing = true
		s = s[1:]
	}
	s = strings.TrimLeft(s, " \t\r\n")
	end := strings.IndexAny(s, " \t\r\n/")
	if end >= 0 {
		s = s[:end]
	}
	return strings.ToLower(s), closing
}
