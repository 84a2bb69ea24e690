package wltest

import (
	"fmt"
	"os"

	"github.com/bnema/wayshm/internal/wl"
)

type Registry struct {
	s        *Server
	id       uint32
	listener wl.RegistryListener
}

func (r *Registry) SetListener(l wl.RegistryListener) { r.listener = l }

func (r *Registry) bind(name, version uint32, iface string) (uint32, error) {
	id := r.s.id()
	if err := r.s.record("wl_registry", r.id, "bind", name, iface, version, id); err != nil {
		return 0, err
	}
	return id, nil
}

func (r *Registry) BindShm(name, version uint32) (wl.Shm, error) {
	id, err := r.bind(name, version, wl.InterfaceShm)
	if err != nil {
		return nil, err
	}
	r.s.Shm = &Shm{s: r.s, id: id, Version: version}
	return r.s.Shm, nil
}

func (r *Registry) BindCompositor(name, version uint32) (wl.Compositor, error) {
	id, err := r.bind(name, version, wl.InterfaceCompositor)
	if err != nil {
		return nil, err
	}
	r.s.Compositor = &Compositor{s: r.s, id: id, Version: version}
	return r.s.Compositor, nil
}

func (r *Registry) BindSeat(name, version uint32) (wl.Seat, error) {
	id, err := r.bind(name, version, wl.InterfaceSeat)
	if err != nil {
		return nil, err
	}
	r.s.Seat = &Seat{s: r.s, ID: id, Version: version}
	return r.s.Seat, nil
}

func (r *Registry) BindWmBase(name, version uint32) (wl.WmBase, error) {
	id, err := r.bind(name, version, wl.InterfaceWmBase)
	if err != nil {
		return nil, err
	}
	r.s.WmBase = &WmBase{s: r.s, id: id, Version: version}
	return r.s.WmBase, nil
}

func (r *Registry) BindDecorationManager(name, version uint32) (wl.DecorationManager, error) {
	id, err := r.bind(name, version, wl.InterfaceDecorationManager)
	if err != nil {
		return nil, err
	}
	r.s.DecorMgr = &DecorationManager{s: r.s, id: id, Version: version}
	return r.s.DecorMgr, nil
}

type Shm struct {
	s       *Server
	id      uint32
	Version uint32
}

func (o *Shm) CreatePool(fd int, size int32) (wl.ShmPool, error) {
	id := o.s.id()
	if err := o.s.record("wl_shm", o.id, "create_pool", id, size); err != nil {
		return nil, err
	}
	f, err := dupFile(fd)
	if err != nil {
		return nil, fmt.Errorf("wltest: bad pool fd %d: %w", fd, err)
	}
	p := &ShmPool{s: o.s, id: id, Size: size, file: f}
	o.s.Pools = append(o.s.Pools, p)
	return p, nil
}

// ShmPool keeps its own duplicate of the client's fd so tests can inspect the
// pixels after the client has closed and unmapped its side.
type ShmPool struct {
	s         *Server
	id        uint32
	file      *os.File
	Size      int32
	Destroyed bool
}

// Contents reads the whole pool.
func (p *ShmPool) Contents() ([]byte, error) {
	buf := make([]byte, p.Size)
	if _, err := p.file.ReadAt(buf, 0); err != nil {
		return nil, err
	}
	return buf, nil
}

func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format wl.Format) (wl.Buffer, error) {
	id := p.s.id()
	if err := p.s.record("wl_shm_pool", p.id, "create_buffer", id, offset, width, height, stride, format); err != nil {
		return nil, err
	}
	b := &Buffer{s: p.s, ID: id, Pool: p, Offset: offset, Width: width, Height: height, Stride: stride, Format: format}
	p.s.Buffers = append(p.s.Buffers, b)
	return b, nil
}

func (p *ShmPool) Destroy() error {
	p.Destroyed = true
	return p.s.record("wl_shm_pool", p.id, "destroy")
}

type Buffer struct {
	s        *Server
	listener wl.BufferListener

	ID        uint32
	Pool      *ShmPool
	Offset    int32
	Width     int32
	Height    int32
	Stride    int32
	Format    wl.Format
	Destroyed bool
}

func (b *Buffer) SetListener(l wl.BufferListener) { b.listener = l }

func (b *Buffer) Destroy() error {
	b.Destroyed = true
	return b.s.record("wl_buffer", b.ID, "destroy")
}

type Compositor struct {
	s       *Server
	id      uint32
	Version uint32
}

func (c *Compositor) CreateSurface() (wl.Surface, error) {
	id := c.s.id()
	if err := c.s.record("wl_compositor", c.id, "create_surface", id); err != nil {
		return nil, err
	}
	c.s.Surface = &Surface{s: c.s, ID: id}
	return c.s.Surface, nil
}

type Surface struct {
	s  *Server
	ID uint32

	// Attached is the buffer of the last attach request, nil after a null attach.
	Attached  *Buffer
	Commits   int
	Destroyed bool
}

func (o *Surface) Attach(b wl.Buffer, x, y int32) error {
	var id uint32
	fb, _ := b.(*Buffer)
	if fb != nil {
		id = fb.ID
	}
	if err := o.s.record("wl_surface", o.ID, "attach", id, x, y); err != nil {
		return err
	}
	o.Attached = fb
	return nil
}

func (o *Surface) Damage(x, y, width, height int32) error {
	return o.s.record("wl_surface", o.ID, "damage", x, y, width, height)
}

func (o *Surface) Commit() error {
	if err := o.s.record("wl_surface", o.ID, "commit"); err != nil {
		return err
	}
	o.Commits++
	return nil
}

func (o *Surface) Destroy() error {
	o.Destroyed = true
	return o.s.record("wl_surface", o.ID, "destroy")
}

type Seat struct {
	s       *Server
	ID      uint32
	Version uint32
}

func (o *Seat) Pointer() (wl.Pointer, error) {
	id := o.s.id()
	if err := o.s.record("wl_seat", o.ID, "get_pointer", id); err != nil {
		return nil, err
	}
	o.s.Pointer = &Pointer{s: o.s, id: id}
	return o.s.Pointer, nil
}

type Pointer struct {
	s        *Server
	id       uint32
	listener wl.PointerListener
	Released bool
}

func (o *Pointer) SetListener(l wl.PointerListener) { o.listener = l }

func (o *Pointer) Release() error {
	o.Released = true
	return o.s.record("wl_pointer", o.id, "release")
}

type WmBase struct {
	s        *Server
	id       uint32
	listener wl.WmBaseListener
	Version  uint32
}

func (o *WmBase) SetListener(l wl.WmBaseListener) { o.listener = l }

func (o *WmBase) Pong(serial uint32) error {
	return o.s.record("xdg_wm_base", o.id, "pong", serial)
}

func (o *WmBase) XdgSurface(surface wl.Surface) (wl.XdgSurface, error) {
	id := o.s.id()
	var sid uint32
	if fs, ok := surface.(*Surface); ok {
		sid = fs.ID
	}
	if err := o.s.record("xdg_wm_base", o.id, "get_xdg_surface", id, sid); err != nil {
		return nil, err
	}
	o.s.XdgSurface = &XdgSurface{s: o.s, id: id}
	return o.s.XdgSurface, nil
}

func (o *WmBase) Destroy() error {
	return o.s.record("xdg_wm_base", o.id, "destroy")
}

type XdgSurface struct {
	s        *Server
	id       uint32
	listener wl.XdgSurfaceListener
}

func (o *XdgSurface) SetListener(l wl.XdgSurfaceListener) { o.listener = l }

func (o *XdgSurface) AckConfigure(serial uint32) error {
	return o.s.record("xdg_surface", o.id, "ack_configure", serial)
}

func (o *XdgSurface) Toplevel() (wl.Toplevel, error) {
	id := o.s.id()
	if err := o.s.record("xdg_surface", o.id, "get_toplevel", id); err != nil {
		return nil, err
	}
	o.s.Toplevel = &Toplevel{s: o.s, id: id}
	return o.s.Toplevel, nil
}

func (o *XdgSurface) Destroy() error {
	return o.s.record("xdg_surface", o.id, "destroy")
}

type Toplevel struct {
	s        *Server
	id       uint32
	listener wl.ToplevelListener

	AppID string
	Title string
}

func (o *Toplevel) SetListener(l wl.ToplevelListener) { o.listener = l }

func (o *Toplevel) SetAppID(id string) error {
	o.AppID = id
	return o.s.record("xdg_toplevel", o.id, "set_app_id", id)
}

func (o *Toplevel) SetTitle(title string) error {
	o.Title = title
	return o.s.record("xdg_toplevel", o.id, "set_title", title)
}

func (o *Toplevel) Move(seat wl.Seat, serial uint32) error {
	var sid uint32
	if fs, ok := seat.(*Seat); ok {
		sid = fs.ID
	}
	return o.s.record("xdg_toplevel", o.id, "move", sid, serial)
}

func (o *Toplevel) Destroy() error {
	return o.s.record("xdg_toplevel", o.id, "destroy")
}

type DecorationManager struct {
	s       *Server
	id      uint32
	Version uint32
}

func (o *DecorationManager) ToplevelDecoration(t wl.Toplevel) (wl.ToplevelDecoration, error) {
	id := o.s.id()
	if err := o.s.record("zxdg_decoration_manager_v1", o.id, "get_toplevel_decoration", id); err != nil {
		return nil, err
	}
	o.s.Decoration = &ToplevelDecoration{s: o.s, id: id}
	return o.s.Decoration, nil
}

func (o *DecorationManager) Destroy() error {
	return o.s.record("zxdg_decoration_manager_v1", o.id, "destroy")
}

type ToplevelDecoration struct {
	s        *Server
	id       uint32
	listener wl.DecorationListener
}

func (o *ToplevelDecoration) SetListener(l wl.DecorationListener) { o.listener = l }

func (o *ToplevelDecoration) SetMode(mode wl.DecorationMode) error {
	return o.s.record("zxdg_toplevel_decoration_v1", o.id, "set_mode", mode)
}

func (o *ToplevelDecoration) Destroy() error {
	return o.s.record("zxdg_toplevel_decoration_v1", o.id, "destroy")
}
