package frame

import (
	"fmt"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/wl"
)

// State tracks who owns a buffer's pixels.
type State int

const (
	// Local buffers have been painted but not handed to the compositor.
	Local State = iota
	// Submitted buffers are attached and committed; only the compositor reads them.
	Submitted
	// Released buffers were given back by the compositor.
	Released
	// Destroyed buffers have had their protocol object destroyed.
	Destroyed
)

func (s State) String() string {
	switch s {
	case Local:
		return "local"
	case Submitted:
		return "submitted"
	case Released:
		return "released"
	case Destroyed:
		return "destroyed"
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Buffer is one frame of pixels living in a shared-memory pool. The local
// mapping is gone by the time a Buffer is returned from Produce.
type Buffer struct {
	Width  int32
	Height int32
	Stride int32
	Format wl.Format
	// Size is the byte length of the backing region.
	Size int

	obj   wl.Buffer
	state State
}

// Object returns the protocol buffer to attach.
func (b *Buffer) Object() wl.Buffer {
	return b.obj
}

func (b *Buffer) State() State {
	return b.state
}

// Submit records that the buffer was attached and committed.
func (b *Buffer) Submit() error {
	if b.state != Local {
		return fmt.Errorf("cannot submit %s buffer", b.state)
	}
	b.state = Submitted
	return nil
}

// Discard destroys a buffer that never reached the compositor.
func (b *Buffer) Discard() error {
	if b.state != Local {
		return fmt.Errorf("cannot discard %s buffer", b.state)
	}
	return b.destroy()
}

func (b *Buffer) destroy() error {
	if b.state == Destroyed {
		return nil
	}
	b.state = Destroyed
	if err := b.obj.Destroy(); err != nil {
		return fmt.Errorf("failed to destroy buffer: %w", err)
	}
	return nil
}

// releaser is the buffer's wl_buffer listener. The release event is the only
// thing that destroys a submitted buffer.
type releaser struct {
	b *Buffer
}

func (r releaser) Release() {
	if r.b.state == Destroyed {
		return
	}
	r.b.state = Released
	if err := r.b.destroy(); err != nil {
		logger.Warn("Failed to destroy released buffer", "error", err)
		return
	}
	logger.Debug("Buffer released", "width", r.b.Width, "height", r.b.Height)
}
