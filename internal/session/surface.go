package session

import (
	"fmt"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/wl"
)

type toplevelListener struct {
	s *Session
}

// Configure records the suggested size. A zero dimension means the compositor
// leaves that dimension to us, so the current size is kept.
func (l *toplevelListener) Configure(width, height int32, states []wl.ToplevelState) {
	logger.Debug("Toplevel configure", "width", width, "height", height, "states", states)
	if width <= 0 || height <= 0 {
		return
	}
	l.s.width, l.s.height = width, height
}

func (l *toplevelListener) Close() {
	logger.Info("Window closed by compositor")
	l.s.running = false
	l.s.state = Closing
}

type xdgSurfaceListener struct {
	s *Session
}

// Configure acknowledges serial and then commits a frame for it. The ack has to
// come first: content committed after it belongs to this configuration.
func (l *xdgSurfaceListener) Configure(serial uint32) {
	s := l.s
	if s.state == Closing {
		return
	}
	if err := s.xdgSurface.AckConfigure(serial); err != nil {
		s.fail(fmt.Errorf("failed to ack configure %d: %w", serial, err))
		return
	}
	s.serial = serial
	s.state = ConfigurePending
	logger.Debug("Acked configure", "serial", serial, "width", s.width, "height", s.height)

	s.submitFrame()
}

// submitFrame paints a new buffer at the current size, attaches it at (0,0) and
// commits. When no buffer can be produced the surface stays as it is until the
// next configure.
func (s *Session) submitFrame() {
	buf, err := s.producer.Produce(s.width, s.height)
	if err != nil {
		logger.Warn("Skipping frame", "width", s.width, "height", s.height, "error", err)
		return
	}

	// A buffer that never made it into a commit is still ours to destroy.
	abandon := func(err error) {
		if derr := buf.Discard(); derr != nil {
			logger.Debug("Failed to discard buffer", "error", derr)
		}
		s.fail(err)
	}

	if err := s.surface.Attach(buf.Object(), 0, 0); err != nil {
		abandon(fmt.Errorf("failed to attach buffer: %w", err))
		return
	}
	if err := s.surface.Damage(0, 0, buf.Width, buf.Height); err != nil {
		abandon(fmt.Errorf("failed to damage surface: %w", err))
		return
	}
	if err := s.surface.Commit(); err != nil {
		abandon(fmt.Errorf("failed to commit surface: %w", err))
		return
	}
	if err := buf.Submit(); err != nil {
		s.fail(err)
		return
	}

	s.current = buf
	s.frames++
	s.state = Committed
}

// DecorationPolicy selects who draws the window decorations.
type DecorationPolicy string

const (
	// DecorationsDefault requests nothing and accepts whatever the compositor does.
	DecorationsDefault DecorationPolicy = "default"
	DecorationsServer  DecorationPolicy = "server"
	DecorationsClient  DecorationPolicy = "client"
)

// ParseDecorationPolicy validates a policy name. Empty means default.
func ParseDecorationPolicy(s string) (DecorationPolicy, error) {
	switch p := DecorationPolicy(s); p {
	case "":
		return DecorationsDefault, nil
	case DecorationsDefault, DecorationsServer, DecorationsClient:
		return p, nil
	}
	return "", fmt.Errorf("unknown decoration policy %q (want default, server or client)", s)
}

func (p DecorationPolicy) mode() (wl.DecorationMode, bool) {
	switch p {
	case DecorationsServer:
		return wl.DecorationModeServerSide, true
	case DecorationsClient:
		return wl.DecorationModeClientSide, true
	}
	return 0, false
}

// requestDecorations asks for a decoration mode right after toplevel creation,
// before the initial commit.
func (s *Session) requestDecorations() error {
	mode, ok := s.opts.Decorations.mode()
	if !ok {
		return nil
	}
	if s.decorMgr == nil {
		logger.Info("Compositor has no decoration manager, using its defaults")
		return nil
	}
	deco, err := s.decorMgr.ToplevelDecoration(s.toplevel)
	if err != nil {
		return fmt.Errorf("failed to get toplevel decoration: %w", err)
	}
	s.decoration = deco
	deco.SetListener(&decorationListener{s: s})
	if err := deco.SetMode(mode); err != nil {
		return fmt.Errorf("failed to request %s decorations: %w", mode, err)
	}
	return nil
}

type decorationListener struct {
	s *Session
}

func (l *decorationListener) Configure(mode wl.DecorationMode) {
	logger.Info("Decoration mode", "mode", mode, "requested", l.s.opts.Decorations)
}
