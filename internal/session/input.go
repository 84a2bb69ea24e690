package session

import (
	"fmt"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/wl"
)

// pointerListener turns a primary button press into an interactive move. The
// compositor owns the drag from there, so no state is kept here.
type pointerListener struct {
	s *Session
}

func (l *pointerListener) Enter(serial uint32, x, y float64) {
	logger.Debug("Pointer enter", "serial", serial, "x", x, "y", y)
}

func (l *pointerListener) Leave(serial uint32) {
	logger.Debug("Pointer leave", "serial", serial)
}

func (l *pointerListener) Motion(time uint32, x, y float64) {}

func (l *pointerListener) Button(serial, time, button uint32, state wl.ButtonState) {
	s := l.s
	if s.toplevel == nil || s.state == Closing {
		return
	}
	if button != wl.ButtonLeft || state != wl.ButtonStatePressed {
		return
	}
	if err := s.toplevel.Move(s.seat, serial); err != nil {
		s.fail(fmt.Errorf("failed to start move: %w", err))
		return
	}
	logger.Debug("Interactive move", "serial", serial)
}
