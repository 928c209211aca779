package ui

import (
	"github.com/charmbracelet/bubbles/viewport"

	"github.com/go-go-golems/wizchat/pkg/scroll"
)

// scrollViewport lets the scroll controller drive a bubbles viewport. Distances are
// in lines. A terminal cannot animate, so both scroll kinds jump.
type scrollViewport struct {
	vp *viewport.Model
}

var _ scroll.Viewport = scrollViewport{}

func (s scrollViewport) DistanceFromBottom() int {
	d := s.vp.TotalLineCount() - s.vp.Height - s.vp.YOffset
	if d < 0 {
		return 0
	}
	return d
}

func (s scrollViewport) ScrollToBottom(bool) { s.vp.GotoBottom() }

func (s scrollViewport) ScrollToTop() { s.vp.GotoTop() }
