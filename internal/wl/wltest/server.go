// Package wltest provides an in-process fake compositor implementing the wl
// interfaces. It records every request the client sends, in order, and lets
// tests script the events the compositor would send back.
package wltest

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"

	"github.com/bnema/wayshm/internal/wl"
	"golang.org/x/sys/unix"
)

// ErrNoEvents is returned by Dispatch once the scripted event queue is empty.
var ErrNoEvents = errors.New("wltest: no more events")

// Request is one client request as seen by the fake compositor.
type Request struct {
	Object string
	ID     uint32
	Op     string
	Args   []any
}

func (r Request) String() string {
	args := make([]string, len(r.Args))
	for i, a := range r.Args {
		args[i] = fmt.Sprint(a)
	}
	return fmt.Sprintf("%s@%d.%s(%s)", r.Object, r.ID, r.Op, strings.Join(args, ", "))
}

// Is reports whether the request targets object.op.
func (r Request) Is(object, op string) bool {
	return r.Object == object && r.Op == op
}

// Server is a fake compositor. It implements wl.Display.
type Server struct {
	globals []wl.Global
	nextID  uint32

	requests []Request
	events   []func()
	failures map[string]error
	closed   bool

	// Dispatches counts Dispatch calls that delivered an event.
	Dispatches int

	Reg        *Registry
	Shm        *Shm
	Compositor *Compositor
	Seat       *Seat
	WmBase     *WmBase
	DecorMgr   *DecorationManager
	Surface    *Surface
	XdgSurface *XdgSurface
	Toplevel   *Toplevel
	Pointer    *Pointer
	Decoration *ToplevelDecoration
	Pools      []*ShmPool
	Buffers    []*Buffer
	announced  bool
}

var _ wl.Display = (*Server)(nil)

// NewServer returns a fake compositor advertising globals.
func NewServer(t testing.TB, globals ...wl.Global) *Server {
	s := &Server{globals: globals, failures: make(map[string]error)}
	t.Cleanup(func() {
		for _, p := range s.Pools {
			p.file.Close()
		}
	})
	return s
}

// DefaultGlobals is the set a typical desktop compositor advertises.
func DefaultGlobals() []wl.Global {
	return []wl.Global{
		{Name: 1, Interface: wl.InterfaceCompositor, Version: 6},
		{Name: 2, Interface: "wl_subcompositor", Version: 1},
		{Name: 3, Interface: wl.InterfaceShm, Version: 1},
		{Name: 4, Interface: wl.InterfaceSeat, Version: 9},
		{Name: 5, Interface: "wl_output", Version: 4},
		{Name: 6, Interface: wl.InterfaceWmBase, Version: 6},
		{Name: 7, Interface: wl.InterfaceDecorationManager, Version: 1},
	}
}

// Fail makes the next object.op request return err.
func (s *Server) Fail(object, op string, err error) {
	s.failures[object+"."+op] = err
}

// Requests returns every request recorded so far.
func (s *Server) Requests() []Request {
	return append([]Request(nil), s.requests...)
}

// RequestsOn returns the requests sent to objects of the given interface.
func (s *Server) RequestsOn(object string) []Request {
	var out []Request
	for _, r := range s.requests {
		if r.Object == object {
			out = append(out, r)
		}
	}
	return out
}

// Count returns how many object.op requests were recorded.
func (s *Server) Count(object, op string) int {
	n := 0
	for _, r := range s.requests {
		if r.Is(object, op) {
			n++
		}
	}
	return n
}

// Index returns the position of the first object.op request, or -1.
func (s *Server) Index(object, op string) int {
	for i, r := range s.requests {
		if r.Is(object, op) {
			return i
		}
	}
	return -1
}

// Pending returns the number of queued events.
func (s *Server) Pending() int {
	return len(s.events)
}

func (s *Server) id() uint32 {
	s.nextID++
	return s.nextID
}

func (s *Server) record(object string, id uint32, op string, args ...any) error {
	if s.closed {
		return errors.New("wltest: connection closed")
	}
	s.requests = append(s.requests, Request{Object: object, ID: id, Op: op, Args: args})
	key := object + "." + op
	if err, ok := s.failures[key]; ok {
		delete(s.failures, key)
		return err
	}
	return nil
}

func (s *Server) queue(ev func()) {
	s.events = append(s.events, ev)
}

func (s *Server) Registry() (wl.Registry, error) {
	if err := s.record("wl_display", 1, "get_registry"); err != nil {
		return nil, err
	}
	s.Reg = &Registry{s: s, id: s.id()}
	return s.Reg, nil
}

// Roundtrip announces the globals the first time it runs and then drains every
// queued event, as a real sync callback would.
func (s *Server) Roundtrip() error {
	if err := s.record("wl_display", 1, "sync"); err != nil {
		return err
	}
	if s.Reg != nil && !s.announced {
		s.announced = true
		for _, g := range s.globals {
			if s.Reg.listener != nil {
				s.Reg.listener.Global(g)
			}
		}
	}
	for len(s.events) > 0 {
		ev := s.events[0]
		s.events = s.events[1:]
		ev()
	}
	return nil
}

func (s *Server) Dispatch() error {
	if s.closed {
		return errors.New("wltest: connection closed")
	}
	if len(s.events) == 0 {
		return ErrNoEvents
	}
	ev := s.events[0]
	s.events = s.events[1:]
	s.Dispatches++
	ev()
	return nil
}

func (s *Server) Close() error {
	if err := s.record("wl_display", 1, "disconnect"); err != nil {
		return err
	}
	s.closed = true
	return nil
}

// Closed reports whether the client disconnected.
func (s *Server) Closed() bool {
	return s.closed
}

// SendGlobalRemove queues a wl_registry.global_remove event.
func (s *Server) SendGlobalRemove(name uint32) {
	s.queue(func() {
		if s.Reg != nil && s.Reg.listener != nil {
			s.Reg.listener.GlobalRemove(name)
		}
	})
}

// SendPing queues an xdg_wm_base.ping event.
func (s *Server) SendPing(serial uint32) {
	s.queue(func() {
		if s.WmBase != nil && s.WmBase.listener != nil {
			s.WmBase.listener.Ping(serial)
		}
	})
}

// SendSurfaceConfigure queues an xdg_surface.configure event.
func (s *Server) SendSurfaceConfigure(serial uint32) {
	s.queue(func() {
		if s.XdgSurface != nil && s.XdgSurface.listener != nil {
			s.XdgSurface.listener.Configure(serial)
		}
	})
}

// SendToplevelConfigure queues an xdg_toplevel.configure event.
func (s *Server) SendToplevelConfigure(width, height int32, states ...wl.ToplevelState) {
	s.queue(func() {
		if s.Toplevel != nil && s.Toplevel.listener != nil {
			s.Toplevel.listener.Configure(width, height, states)
		}
	})
}

// SendToplevelClose queues an xdg_toplevel.close event.
func (s *Server) SendToplevelClose() {
	s.queue(func() {
		if s.Toplevel != nil && s.Toplevel.listener != nil {
			s.Toplevel.listener.Close()
		}
	})
}

// SendConfigure queues the usual toplevel configure followed by the xdg_surface
// configure that completes the sequence.
func (s *Server) SendConfigure(width, height int32, serial uint32) {
	s.SendToplevelConfigure(width, height)
	s.SendSurfaceConfigure(serial)
}

// SendEnter queues a wl_pointer.enter event.
func (s *Server) SendEnter(serial uint32, x, y float64) {
	s.queue(func() {
		if s.Pointer != nil && s.Pointer.listener != nil {
			s.Pointer.listener.Enter(serial, x, y)
		}
	})
}

// SendLeave queues a wl_pointer.leave event.
func (s *Server) SendLeave(serial uint32) {
	s.queue(func() {
		if s.Pointer != nil && s.Pointer.listener != nil {
			s.Pointer.listener.Leave(serial)
		}
	})
}

// SendMotion queues a wl_pointer.motion event.
func (s *Server) SendMotion(time uint32, x, y float64) {
	s.queue(func() {
		if s.Pointer != nil && s.Pointer.listener != nil {
			s.Pointer.listener.Motion(time, x, y)
		}
	})
}

// SendButton queues a wl_pointer.button event.
func (s *Server) SendButton(serial, time, button uint32, state wl.ButtonState) {
	s.queue(func() {
		if s.Pointer != nil && s.Pointer.listener != nil {
			s.Pointer.listener.Button(serial, time, button, state)
		}
	})
}

// SendRelease queues a wl_buffer.release event for b.
func (s *Server) SendRelease(b *Buffer) {
	s.queue(func() {
		if b.listener != nil {
			b.listener.Release()
		}
	})
}

// SendDecorationConfigure queues a zxdg_toplevel_decoration_v1.configure event.
func (s *Server) SendDecorationConfigure(mode wl.DecorationMode) {
	s.queue(func() {
		if s.Decoration != nil && s.Decoration.listener != nil {
			s.Decoration.listener.Configure(mode)
		}
	})
}

// ReleaseAll queues a release for every buffer not released yet.
func (s *Server) ReleaseAll() {
	for _, b := range s.Buffers {
		if !b.Destroyed {
			s.SendRelease(b)
		}
	}
}

// dupFile keeps the compositor's own reference to a pool fd, the way a real
// compositor maps the pool after receiving it.
func dupFile(fd int) (*os.File, error) {
	nfd, err := unix.Dup(fd)
	if err != nil {
		return nil, err
	}
	return os.NewFile(uintptr(nfd), "wltest-pool"), nil
}
