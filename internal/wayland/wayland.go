// Package wayland implements the wl protocol roles on top of go-wayland.
package wayland

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/wl"
	"github.com/rajveermalviya/go-wayland/wayland/client"
	xdg_shell "github.com/rajveermalviya/go-wayland/wayland/stable/xdg-shell"
	xdg_decoration "github.com/rajveermalviya/go-wayland/wayland/unstable/xdg-decoration-v1"
)

var (
	_ wl.Display            = (*Display)(nil)
	_ wl.Registry           = (*Registry)(nil)
	_ wl.Shm                = (*Shm)(nil)
	_ wl.ShmPool            = (*ShmPool)(nil)
	_ wl.Buffer             = (*Buffer)(nil)
	_ wl.Compositor         = (*Compositor)(nil)
	_ wl.Surface            = (*Surface)(nil)
	_ wl.Seat               = (*Seat)(nil)
	_ wl.Pointer            = (*Pointer)(nil)
	_ wl.WmBase             = (*WmBase)(nil)
	_ wl.XdgSurface         = (*XdgSurface)(nil)
	_ wl.Toplevel           = (*Toplevel)(nil)
	_ wl.DecorationManager  = (*DecorationManager)(nil)
	_ wl.ToplevelDecoration = (*ToplevelDecoration)(nil)
)

// Display is a connection to a Wayland compositor.
type Display struct {
	display *client.Display
}

// Connect opens the compositor socket. addr is a display name such as
// "wayland-1" or an absolute socket path; empty means $WAYLAND_DISPLAY, then
// "wayland-0".
func Connect(addr string) (*Display, error) {
	path, err := SocketPath(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	display, err := client.Connect(path)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		logger.Error("Compositor reported a protocol error", "code", e.Code, "message", e.Message)
	})
	logger.Debug("Connected to compositor", "socket", path)
	return &Display{display: display}, nil
}

// SocketPath resolves a display name the way libwayland does: absolute paths
// are used as they are, anything else is relative to $XDG_RUNTIME_DIR.
func SocketPath(addr string) (string, error) {
	if addr == "" {
		addr = os.Getenv("WAYLAND_DISPLAY")
	}
	if addr == "" {
		addr = "wayland-0"
	}
	if filepath.IsAbs(addr) {
		return addr, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", errors.New("XDG_RUNTIME_DIR is not set")
	}
	return filepath.Join(runtimeDir, addr), nil
}

func (d *Display) ctx() *client.Context {
	return d.display.Context()
}

// Registry requests wl_registry.
func (d *Display) Registry() (wl.Registry, error) {
	registry, err := d.display.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	return &Registry{ctx: d.ctx(), registry: registry}, nil
}

// Roundtrip sends wl_display.sync and dispatches until its callback fires.
func (d *Display) Roundtrip() error {
	callback, err := d.display.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync: %w", err)
	}
	defer func() {
		if err := callback.Destroy(); err != nil {
			logger.Debug("Failed to destroy sync callback", "error", err)
		}
	}()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		if err := d.Dispatch(); err != nil {
			return err
		}
	}
	return nil
}

// Dispatch reads and dispatches one event.
func (d *Display) Dispatch() error {
	return d.ctx().Dispatch()
}

// Close drops the connection.
func (d *Display) Close() error {
	return d.ctx().Close()
}

// Registry binds globals into go-wayland proxies.
type Registry struct {
	ctx      *client.Context
	registry *client.Registry
}

func (r *Registry) SetListener(l wl.RegistryListener) {
	r.registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		l.Global(wl.Global{Name: e.Name, Interface: e.Interface, Version: e.Version})
	})
	r.registry.SetGlobalRemoveHandler(func(e client.RegistryGlobalRemoveEvent) {
		l.GlobalRemove(e.Name)
	})
}

func (r *Registry) BindShm(name, version uint32) (wl.Shm, error) {
	shm := client.NewShm(r.ctx)
	if err := r.registry.Bind(name, wl.InterfaceShm, version, shm); err != nil {
		return nil, err
	}
	return &Shm{shm: shm}, nil
}

func (r *Registry) BindCompositor(name, version uint32) (wl.Compositor, error) {
	compositor := client.NewCompositor(r.ctx)
	if err := r.registry.Bind(name, wl.InterfaceCompositor, version, compositor); err != nil {
		return nil, err
	}
	return &Compositor{compositor: compositor}, nil
}

func (r *Registry) BindSeat(name, version uint32) (wl.Seat, error) {
	seat := client.NewSeat(r.ctx)
	if err := r.registry.Bind(name, wl.InterfaceSeat, version, seat); err != nil {
		return nil, err
	}
	return &Seat{seat: seat}, nil
}

func (r *Registry) BindWmBase(name, version uint32) (wl.WmBase, error) {
	base := xdg_shell.NewWmBase(r.ctx)
	if err := r.registry.Bind(name, wl.InterfaceWmBase, version, base); err != nil {
		return nil, err
	}
	return &WmBase{base: base}, nil
}

func (r *Registry) BindDecorationManager(name, version uint32) (wl.DecorationManager, error) {
	mgr := xdg_decoration.NewDecorationManager(r.ctx)
	if err := r.registry.Bind(name, wl.InterfaceDecorationManager, version, mgr); err != nil {
		return nil, err
	}
	return &DecorationManager{mgr: mgr}, nil
}

// Shm wraps wl_shm.
type Shm struct {
	shm *client.Shm
}

func (s *Shm) CreatePool(fd int, size int32) (wl.ShmPool, error) {
	pool, err := s.shm.CreatePool(fd, size)
	if err != nil {
		return nil, err
	}
	return &ShmPool{pool: pool}, nil
}

// ShmPool wraps wl_shm_pool.
type ShmPool struct {
	pool *client.ShmPool
}

func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format wl.Format) (wl.Buffer, error) {
	buf, err := p.pool.CreateBuffer(offset, width, height, stride, uint32(format))
	if err != nil {
		return nil, err
	}
	return &Buffer{buf: buf}, nil
}

func (p *ShmPool) Destroy() error {
	return p.pool.Destroy()
}

// Buffer wraps wl_buffer.
type Buffer struct {
	buf *client.Buffer
}

func (b *Buffer) SetListener(l wl.BufferListener) {
	b.buf.SetReleaseHandler(func(client.BufferReleaseEvent) {
		l.Release()
	})
}

func (b *Buffer) Destroy() error {
	return b.buf.Destroy()
}

// Compositor wraps wl_compositor.
type Compositor struct {
	compositor *client.Compositor
}

func (c *Compositor) CreateSurface() (wl.Surface, error) {
	surface, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, err
	}
	return &Surface{surface: surface}, nil
}

// Surface wraps wl_surface. It only attaches buffers created by this package.
type Surface struct {
	surface *client.Surface
}

func (s *Surface) Attach(b wl.Buffer, x, y int32) error {
	var buf *client.Buffer
	if b != nil {
		wb, ok := b.(*Buffer)
		if !ok {
			return fmt.Errorf("cannot attach foreign buffer %T", b)
		}
		buf = wb.buf
	}
	return s.surface.Attach(buf, x, y)
}

func (s *Surface) Damage(x, y, width, height int32) error {
	return s.surface.Damage(x, y, width, height)
}

func (s *Surface) Commit() error {
	return s.surface.Commit()
}

func (s *Surface) Destroy() error {
	return s.surface.Destroy()
}

// Seat wraps wl_seat.
type Seat struct {
	seat *client.Seat
}

func (s *Seat) Pointer() (wl.Pointer, error) {
	pointer, err := s.seat.GetPointer()
	if err != nil {
		return nil, err
	}
	return &Pointer{pointer: pointer}, nil
}

// Pointer wraps wl_pointer and converts its events for a wl.PointerListener.
type Pointer struct {
	pointer *client.Pointer
}

func (p *Pointer) SetListener(l wl.PointerListener) {
	p.pointer.SetEnterHandler(func(e client.PointerEnterEvent) {
		l.Enter(e.Serial, e.SurfaceX, e.SurfaceY)
	})
	p.pointer.SetLeaveHandler(func(e client.PointerLeaveEvent) {
		l.Leave(e.Serial)
	})
	p.pointer.SetMotionHandler(func(e client.PointerMotionEvent) {
		l.Motion(e.Time, e.SurfaceX, e.SurfaceY)
	})
	p.pointer.SetButtonHandler(func(e client.PointerButtonEvent) {
		l.Button(e.Serial, e.Time, e.Button, wl.ButtonState(e.State))
	})
}

func (p *Pointer) Release() error {
	return p.pointer.Release()
}

// WmBase wraps xdg_wm_base.
type WmBase struct {
	base *xdg_shell.WmBase
}

func (w *WmBase) SetListener(l wl.WmBaseListener) {
	w.base.SetPingHandler(func(e xdg_shell.WmBasePingEvent) {
		l.Ping(e.Serial)
	})
}

func (w *WmBase) Pong(serial uint32) error {
	return w.base.Pong(serial)
}

func (w *WmBase) XdgSurface(s wl.Surface) (wl.XdgSurface, error) {
	ws, ok := s.(*Surface)
	if !ok {
		return nil, fmt.Errorf("cannot wrap foreign surface %T", s)
	}
	xs, err := w.base.GetXdgSurface(ws.surface)
	if err != nil {
		return nil, err
	}
	return &XdgSurface{surface: xs}, nil
}

func (w *WmBase) Destroy() error {
	return w.base.Destroy()
}

// XdgSurface wraps xdg_surface.
type XdgSurface struct {
	surface *xdg_shell.Surface
}

func (s *XdgSurface) SetListener(l wl.XdgSurfaceListener) {
	s.surface.SetConfigureHandler(func(e xdg_shell.SurfaceConfigureEvent) {
		l.Configure(e.Serial)
	})
}

func (s *XdgSurface) AckConfigure(serial uint32) error {
	return s.surface.AckConfigure(serial)
}

func (s *XdgSurface) Toplevel() (wl.Toplevel, error) {
	toplevel, err := s.surface.GetToplevel()
	if err != nil {
		return nil, err
	}
	return &Toplevel{toplevel: toplevel}, nil
}

func (s *XdgSurface) Destroy() error {
	return s.surface.Destroy()
}

// Toplevel wraps xdg_toplevel.
type Toplevel struct {
	toplevel *xdg_shell.Toplevel
}

func (t *Toplevel) SetListener(l wl.ToplevelListener) {
	t.toplevel.SetConfigureHandler(func(e xdg_shell.ToplevelConfigureEvent) {
		l.Configure(e.Width, e.Height, wl.DecodeToplevelStates(e.States))
	})
	t.toplevel.SetCloseHandler(func(xdg_shell.ToplevelCloseEvent) {
		l.Close()
	})
}

func (t *Toplevel) SetAppID(id string) error {
	return t.toplevel.SetAppId(id)
}

func (t *Toplevel) SetTitle(title string) error {
	return t.toplevel.SetTitle(title)
}

func (t *Toplevel) Move(seat wl.Seat, serial uint32) error {
	ws, ok := seat.(*Seat)
	if !ok {
		return fmt.Errorf("cannot move with foreign seat %T", seat)
	}
	return t.toplevel.Move(ws.seat, serial)
}

func (t *Toplevel) Destroy() error {
	return t.toplevel.Destroy()
}

// DecorationManager wraps zxdg_decoration_manager_v1.
type DecorationManager struct {
	mgr *xdg_decoration.DecorationManager
}

func (m *DecorationManager) ToplevelDecoration(t wl.Toplevel) (wl.ToplevelDecoration, error) {
	wt, ok := t.(*Toplevel)
	if !ok {
		return nil, fmt.Errorf("cannot decorate foreign toplevel %T", t)
	}
	deco, err := m.mgr.GetToplevelDecoration(wt.toplevel)
	if err != nil {
		return nil, err
	}
	return &ToplevelDecoration{deco: deco}, nil
}

func (m *DecorationManager) Destroy() error {
	return m.mgr.Destroy()
}

// ToplevelDecoration wraps zxdg_toplevel_decoration_v1.
type ToplevelDecoration struct {
	deco *xdg_decoration.ToplevelDecoration
}

func (d *ToplevelDecoration) SetListener(l wl.DecorationListener) {
	d.deco.SetConfigureHandler(func(e xdg_decoration.ToplevelDecorationConfigureEvent) {
		l.Configure(wl.DecorationMode(e.Mode))
	})
}

func (d *ToplevelDecoration) SetMode(mode wl.DecorationMode) error {
	return d.deco.SetMode(uint32(mode))
}

func (d *ToplevelDecoration) Destroy() error {
	return d.deco.Destroy()
}
