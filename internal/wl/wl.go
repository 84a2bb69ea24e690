// Package wl defines the protocol roles the window client talks to.
//
// Each Wayland object the client uses is described by a small interface, and each
// event source takes a listener interface. The production implementation lives in
// internal/wayland; tests use the recording fake in internal/wl/wltest.
package wl

// Interface names advertised by the registry.
const (
	InterfaceShm               = "wl_shm"
	InterfaceCompositor        = "wl_compositor"
	InterfaceSeat              = "wl_seat"
	InterfaceWmBase            = "xdg_wm_base"
	InterfaceDecorationManager = "zxdg_decoration_manager_v1"
)

// Global is one object advertised by the registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Display is the connection to the compositor.
type Display interface {
	// Registry requests the global registry. Globals are announced to its
	// listener while subsequent events are dispatched.
	Registry() (Registry, error)
	// Roundtrip blocks until the server has processed every request sent so far,
	// dispatching events in the meantime.
	Roundtrip() error
	// Dispatch reads and dispatches the next batch of events, blocking until
	// one is available.
	Dispatch() error
	// Close disconnects from the compositor.
	Close() error
}

// RegistryListener receives global announcements and removals.
type RegistryListener interface {
	Global(g Global)
	GlobalRemove(name uint32)
}

// Registry is wl_registry: it binds advertised globals to client objects.
type Registry interface {
	SetListener(l RegistryListener)
	BindShm(name, version uint32) (Shm, error)
	BindCompositor(name, version uint32) (Compositor, error)
	BindSeat(name, version uint32) (Seat, error)
	BindWmBase(name, version uint32) (WmBase, error)
	BindDecorationManager(name, version uint32) (DecorationManager, error)
}

// Shm is wl_shm, the shared-memory buffer factory.
type Shm interface {
	// CreatePool shares fd with the compositor. The caller may close fd once
	// the request has been sent.
	CreatePool(fd int, size int32) (ShmPool, error)
}

// ShmPool is wl_shm_pool, a shared-memory region buffers are carved from.
type ShmPool interface {
	CreateBuffer(offset, width, height, stride int32, format Format) (Buffer, error)
	Destroy() error
}

// BufferListener receives wl_buffer events.
type BufferListener interface {
	// Release is sent when the compositor no longer reads from the buffer.
	Release()
}

// Buffer is wl_buffer, pixel content a surface can display.
type Buffer interface {
	SetListener(l BufferListener)
	Destroy() error
}

// Compositor is wl_compositor, the surface factory.
type Compositor interface {
	CreateSurface() (Surface, error)
}

// Surface is wl_surface, a rectangle of pixels on screen.
type Surface interface {
	Attach(b Buffer, x, y int32) error
	Damage(x, y, width, height int32) error
	Commit() error
	Destroy() error
}

// Seat is wl_seat, a group of input devices.
type Seat interface {
	Pointer() (Pointer, error)
}

// PointerListener receives wl_pointer events. Coordinates are surface-local.
type PointerListener interface {
	Enter(serial uint32, x, y float64)
	Leave(serial uint32)
	Motion(time uint32, x, y float64)
	Button(serial, time, button uint32, state ButtonState)
}

// Pointer is wl_pointer.
type Pointer interface {
	SetListener(l PointerListener)
	Release() error
}

// WmBaseListener receives xdg_wm_base liveness pings.
type WmBaseListener interface {
	Ping(serial uint32)
}

// WmBase is xdg_wm_base, which gives surfaces a desktop window role.
type WmBase interface {
	SetListener(l WmBaseListener)
	Pong(serial uint32) error
	XdgSurface(s Surface) (XdgSurface, error)
	Destroy() error
}

// XdgSurfaceListener receives the configure event that closes a configure sequence.
type XdgSurfaceListener interface {
	Configure(serial uint32)
}

// XdgSurface is xdg_surface, the window role wrapper around a surface.
type XdgSurface interface {
	SetListener(l XdgSurfaceListener)
	AckConfigure(serial uint32) error
	Toplevel() (Toplevel, error)
	Destroy() error
}

// ToplevelListener receives the suggested size and state, and close requests.
type ToplevelListener interface {
	Configure(width, height int32, states []ToplevelState)
	Close()
}

// Toplevel is xdg_toplevel, a regular desktop window.
type Toplevel interface {
	SetListener(l ToplevelListener)
	SetAppID(id string) error
	SetTitle(title string) error
	Move(seat Seat, serial uint32) error
	Destroy() error
}

// DecorationManager is zxdg_decoration_manager_v1.
type DecorationManager interface {
	ToplevelDecoration(t Toplevel) (ToplevelDecoration, error)
	Destroy() error
}

// DecorationListener receives the decoration mode the compositor chose.
type DecorationListener interface {
	Configure(mode DecorationMode)
}

// ToplevelDecoration is zxdg_toplevel_decoration_v1 for one toplevel.
type ToplevelDecoration interface {
	SetListener(l DecorationListener)
	SetMode(mode DecorationMode) error
	Destroy() error
}
