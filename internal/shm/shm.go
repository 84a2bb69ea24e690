// Package shm allocates anonymous shared-memory regions that can be handed to a
// Wayland compositor through wl_shm.
package shm

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/bnema/wayshm/internal/logger"
	"golang.org/x/sys/unix"
)

// ErrAllocation is wrapped by every error returned from Allocate.
var ErrAllocation = errors.New("shm allocation failed")

const (
	// DefaultRetries bounds how many fresh names are tried after a collision.
	DefaultRetries = 100
	// DefaultDir is where glibc's shm_open creates its objects.
	DefaultDir = "/dev/shm"

	namePrefix = "wl_shm-"
)

// Backend selects how regions are created.
type Backend string

const (
	// BackendShmOpen creates a uniquely named object under the shm directory and
	// unlinks it right away.
	BackendShmOpen Backend = "shm_open"
	// BackendMemfd uses memfd_create, which never touches a namespace.
	BackendMemfd Backend = "memfd"
)

// ParseBackend validates a backend name from configuration.
func ParseBackend(s string) (Backend, error) {
	switch b := Backend(s); b {
	case BackendShmOpen, BackendMemfd:
		return b, nil
	case "":
		return BackendShmOpen, nil
	}
	return "", fmt.Errorf("unknown shm backend %q (want %q or %q)", s, BackendShmOpen, BackendMemfd)
}

// Namer generates candidate object names.
type Namer func() string

// RandomName returns wl_shm-XXXXXX where each X is derived from the wall clock
// nanoseconds, five bits per character.
func RandomName() string {
	r := time.Now().UnixNano()
	buf := []byte(namePrefix + "XXXXXX")
	for i := len(namePrefix); i < len(buf); i++ {
		buf[i] = byte('A' + (r & 15) + (r&16)*2)
		r >>= 5
	}
	return string(buf)
}

// Allocator creates shared-memory regions.
type Allocator struct {
	backend Backend
	dir     string
	retries int
	namer   Namer
}

type Option func(*Allocator)

func WithBackend(b Backend) Option {
	return func(a *Allocator) { a.backend = b }
}

// WithDir overrides the directory used by the shm_open backend.
func WithDir(dir string) Option {
	return func(a *Allocator) { a.dir = dir }
}

func WithRetries(n int) Option {
	return func(a *Allocator) { a.retries = n }
}

func WithNamer(n Namer) Option {
	return func(a *Allocator) { a.namer = n }
}

// NewAllocator returns an allocator using the shm_open backend under /dev/shm
// unless options say otherwise.
func NewAllocator(opts ...Option) *Allocator {
	a := &Allocator{
		backend: BackendShmOpen,
		dir:     DefaultDir,
		retries: DefaultRetries,
		namer:   RandomName,
	}
	for _, opt := range opts {
		opt(a)
	}
	if a.retries < 1 {
		a.retries = 1
	}
	return a
}

// Allocate creates a region of exactly size bytes. The caller owns the returned
// region and must Close it once the compositor holds its own reference.
func (a *Allocator) Allocate(size int) (*Region, error) {
	if size <= 0 {
		return nil, fmt.Errorf("%w: invalid size %d", ErrAllocation, size)
	}

	var (
		fd   int
		name string
		err  error
	)
	switch a.backend {
	case BackendMemfd:
		fd, name, err = a.createMemfd()
	default:
		fd, name, err = a.createNamed()
	}
	if err != nil {
		return nil, err
	}

	for {
		err = unix.Ftruncate(fd, int64(size))
		if err != unix.EINTR {
			break
		}
	}
	if err != nil {
		unix.Close(fd)
		return nil, fmt.Errorf("%w: failed to resize region to %d bytes: %w", ErrAllocation, size, err)
	}

	return &Region{fd: fd, size: size, name: name}, nil
}

func (a *Allocator) createNamed() (int, string, error) {
	for attempt := 1; attempt <= a.retries; attempt++ {
		name := a.namer()
		path := filepath.Join(a.dir, name)
		fd, err := unix.Open(path, unix.O_RDWR|unix.O_CREAT|unix.O_EXCL|unix.O_CLOEXEC, 0o600)
		if err == nil {
			// Only the descriptor keeps the object alive from here on.
			if err := unix.Unlink(path); err != nil {
				logger.Warn("Failed to unlink shm object", "path", path, "error", err)
			}
			return fd, name, nil
		}
		if err != unix.EEXIST {
			return -1, "", fmt.Errorf("%w: failed to create %s: %w", ErrAllocation, path, err)
		}
		logger.Debug("shm name collision, retrying", "name", name, "attempt", attempt)
	}
	return -1, "", fmt.Errorf("%w: no free name in %s after %d attempts", ErrAllocation, a.dir, a.retries)
}

func (a *Allocator) createMemfd() (int, string, error) {
	fd, err := unix.MemfdCreate("wl_shm", unix.MFD_CLOEXEC)
	if err != nil {
		return -1, "", fmt.Errorf("%w: memfd_create: %w", ErrAllocation, err)
	}
	return fd, "memfd:wl_shm", nil
}

// Region is an open shared-memory object.
type Region struct {
	fd     int
	size   int
	name   string
	data   []byte
	closed bool
}

// Fd returns the descriptor, or -1 once closed.
func (r *Region) Fd() int {
	if r.closed {
		return -1
	}
	return r.fd
}

func (r *Region) Size() int    { return r.size }
func (r *Region) Name() string { return r.name }

// Map maps the region read-write and shared. Mapping twice returns the same view.
func (r *Region) Map() ([]byte, error) {
	if r.data != nil {
		return r.data, nil
	}
	if r.closed {
		return nil, fmt.Errorf("%w: region already closed", ErrAllocation)
	}
	data, err := unix.Mmap(r.fd, 0, r.size, unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to map %d bytes: %w", ErrAllocation, r.size, err)
	}
	r.data = data
	return data, nil
}

// Unmap drops the local view. It is a no-op when nothing is mapped.
func (r *Region) Unmap() error {
	if r.data == nil {
		return nil
	}
	data := r.data
	r.data = nil
	if err := unix.Munmap(data); err != nil {
		return fmt.Errorf("failed to unmap region: %w", err)
	}
	return nil
}

// Mapped reports whether a local view exists.
func (r *Region) Mapped() bool {
	return r.data != nil
}

// Close closes the local descriptor. Mappings stay valid until unmapped.
func (r *Region) Close() error {
	if r.closed {
		return nil
	}
	r.closed = true
	return unix.Close(r.fd)
}

func (r *Region) Closed() bool {
	return r.closed
}
