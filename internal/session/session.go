// Package session drives one Wayland toplevel window: it resolves the globals it
// needs, runs the xdg configure/ack/commit cycle, routes pointer input and tears
// everything down in order when the window is closed.
//
// All listeners run on the goroutine that calls Run, one event at a time, so the
// session needs no locking.
package session

import (
	"errors"
	"fmt"

	"github.com/bnema/wayshm/internal/frame"
	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/shm"
	"github.com/bnema/wayshm/internal/wl"
	"go.uber.org/multierr"
)

const (
	AppID = "xyz.ydalton.WaylandTest"
	Title = "Example client"

	DefaultWidth  int32 = 640
	DefaultHeight int32 = 480
)

// ErrMissingGlobal is returned by Setup when the compositor lacks a global the
// window cannot exist without.
var ErrMissingGlobal = errors.New("required global not advertised")

// State is where the window is in the configure cycle.
type State int

const (
	// Unconfigured: the initial commit is out, no configure received yet.
	Unconfigured State = iota
	// ConfigurePending: a configure was acknowledged and its frame is not
	// committed yet.
	ConfigurePending
	// Committed: the frame for the last configure is on screen.
	Committed
	// Closing: the compositor asked us to close.
	Closing
)

func (s State) String() string {
	switch s {
	case Unconfigured:
		return "unconfigured"
	case ConfigurePending:
		return "configure-pending"
	case Committed:
		return "committed"
	case Closing:
		return "closing"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Options configures a session.
type Options struct {
	// Width and Height are the initial surface size; zero means 640x480.
	Width  int32
	Height int32
	// Decorations selects the decoration mode requested from the compositor.
	Decorations DecorationPolicy
	// Alloc provides shared memory for frames. Nil uses shm_open under /dev/shm.
	Alloc frame.AllocFunc
	// Painter fills every frame. Nil paints the stripe test pattern.
	Painter frame.Painter
}

// Session is the state of the single window client. Protocol objects are nil
// until bound and nil again once destroyed.
type Session struct {
	opts    Options
	display wl.Display

	registry   wl.Registry
	shm        wl.Shm
	compositor wl.Compositor
	seat       wl.Seat
	pointer    wl.Pointer
	wmBase     wl.WmBase
	decorMgr   wl.DecorationManager

	surface    wl.Surface
	xdgSurface wl.XdgSurface
	toplevel   wl.Toplevel
	decoration wl.ToplevelDecoration

	producer *frame.Producer

	width, height int32
	running       bool
	state         State
	serial        uint32
	current       *frame.Buffer
	frames        int
	err           error
	closed        bool
}

// New creates a session on an open display connection. Nothing is sent until
// Setup.
func New(display wl.Display, opts Options) *Session {
	if opts.Width <= 0 || opts.Height <= 0 {
		opts.Width, opts.Height = DefaultWidth, DefaultHeight
	}
	if opts.Alloc == nil {
		opts.Alloc = frame.FromAllocator(shm.NewAllocator())
	}
	return &Session{
		opts:    opts,
		display: display,
		width:   opts.Width,
		height:  opts.Height,
		state:   Unconfigured,
	}
}

// Setup discovers globals with one blocking round-trip, then creates the
// surface, its xdg role and the toplevel and makes the initial commit.
func (s *Session) Setup() error {
	registry, err := s.display.Registry()
	if err != nil {
		return fmt.Errorf("failed to get registry: %w", err)
	}
	s.registry = registry
	registry.SetListener(&registryListener{s: s})

	if err := s.display.Roundtrip(); err != nil {
		return fmt.Errorf("failed to enumerate globals: %w", err)
	}
	if s.err != nil {
		return s.err
	}
	if err := s.checkGlobals(); err != nil {
		return err
	}

	s.producer = frame.NewProducer(s.shm, s.opts.Alloc, s.opts.Painter)

	if s.seat != nil {
		pointer, err := s.seat.Pointer()
		if err != nil {
			return fmt.Errorf("failed to get pointer: %w", err)
		}
		s.pointer = pointer
		pointer.SetListener(&pointerListener{s: s})
	} else {
		logger.Warn("Compositor advertises no seat, window will not be movable")
	}

	surface, err := s.compositor.CreateSurface()
	if err != nil {
		return fmt.Errorf("failed to create surface: %w", err)
	}
	s.surface = surface

	xdgSurface, err := s.wmBase.XdgSurface(surface)
	if err != nil {
		return fmt.Errorf("failed to create xdg surface: %w", err)
	}
	s.xdgSurface = xdgSurface
	xdgSurface.SetListener(&xdgSurfaceListener{s: s})

	toplevel, err := xdgSurface.Toplevel()
	if err != nil {
		return fmt.Errorf("failed to create toplevel: %w", err)
	}
	s.toplevel = toplevel
	if err := toplevel.SetAppID(AppID); err != nil {
		return fmt.Errorf("failed to set app id: %w", err)
	}
	if err := toplevel.SetTitle(Title); err != nil {
		return fmt.Errorf("failed to set title: %w", err)
	}
	toplevel.SetListener(&toplevelListener{s: s})

	if err := s.requestDecorations(); err != nil {
		return err
	}

	// An empty commit asks the compositor for the first configure.
	if err := surface.Commit(); err != nil {
		return fmt.Errorf("failed to commit surface: %w", err)
	}
	s.state = Unconfigured
	s.running = true
	logger.Info("Window created", "app_id", AppID, "title", Title, "width", s.width, "height", s.height)
	return nil
}

func (s *Session) checkGlobals() error {
	var missing []string
	if s.compositor == nil {
		missing = append(missing, wl.InterfaceCompositor)
	}
	if s.shm == nil {
		missing = append(missing, wl.InterfaceShm)
	}
	if s.wmBase == nil {
		missing = append(missing, wl.InterfaceWmBase)
	}
	if len(missing) > 0 {
		return fmt.Errorf("%w: %v", ErrMissingGlobal, missing)
	}
	return nil
}

// Run dispatches events until the window is closed or the connection fails.
// The running flag is checked after each dispatched batch, so the batch that
// carries the close event always completes.
func (s *Session) Run() error {
	if s.toplevel == nil {
		return errors.New("session is not set up")
	}
	for {
		if err := s.display.Dispatch(); err != nil {
			s.running = false
			return fmt.Errorf("failed to dispatch events: %w", err)
		}
		if s.err != nil {
			return s.err
		}
		if !s.running {
			logger.Debug("Event loop finished", "frames", s.frames)
			return nil
		}
	}
}

// Close destroys every protocol object, innermost first, and disconnects.
// It is safe to call more than once and after a failed Setup.
func (s *Session) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	s.running = false

	var errs error
	destroy := func(what string, fn func() error) {
		if err := fn(); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("failed to destroy %s: %w", what, err))
		}
	}

	if s.decoration != nil {
		destroy("toplevel decoration", s.decoration.Destroy)
		s.decoration = nil
	}
	if s.decorMgr != nil {
		destroy("decoration manager", s.decorMgr.Destroy)
		s.decorMgr = nil
	}
	if s.toplevel != nil {
		destroy("toplevel", s.toplevel.Destroy)
		s.toplevel = nil
	}
	if s.xdgSurface != nil {
		destroy("xdg surface", s.xdgSurface.Destroy)
		s.xdgSurface = nil
	}
	if s.surface != nil {
		destroy("surface", s.surface.Destroy)
		s.surface = nil
	}
	if s.pointer != nil {
		destroy("pointer", s.pointer.Release)
		s.pointer = nil
	}
	if s.wmBase != nil {
		destroy("wm base", s.wmBase.Destroy)
		s.wmBase = nil
	}
	destroy("display connection", s.display.Close)

	return errs
}

// fail stops the loop on the first request that could not be sent.
func (s *Session) fail(err error) {
	if s.err == nil {
		s.err = err
		logger.Error("Protocol request failed", "error", err)
	}
	s.running = false
}

// Size returns the size the next frame will have.
func (s *Session) Size() (width, height int32) {
	return s.width, s.height
}

func (s *Session) State() State {
	return s.state
}

func (s *Session) Running() bool {
	return s.running
}

// Serial returns the last acknowledged configure serial.
func (s *Session) Serial() uint32 {
	return s.serial
}

// Current returns the most recently submitted buffer, if any.
func (s *Session) Current() *frame.Buffer {
	return s.current
}

// Frames counts committed frames.
func (s *Session) Frames() int {
	return s.frames
}
