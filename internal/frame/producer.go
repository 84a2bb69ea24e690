// Package frame produces wl_shm buffers: it allocates a shared-memory region,
// paints into it and wraps it as a protocol buffer whose lifetime is handed to
// the compositor.
package frame

import (
	"errors"
	"fmt"
	"math"

	"github.com/bnema/wayshm/internal/logger"
	"github.com/bnema/wayshm/internal/shm"
	"github.com/bnema/wayshm/internal/wl"
	"github.com/dustin/go-humanize"
)

// ErrInvalidSize is returned for non-positive or oversized dimensions.
var ErrInvalidSize = errors.New("invalid frame size")

// Region is a shared-memory object as the producer needs it.
type Region interface {
	Fd() int
	Size() int
	Map() ([]byte, error)
	Unmap() error
	Close() error
}

// AllocFunc allocates a region of the given byte size.
type AllocFunc func(size int) (Region, error)

// FromAllocator adapts an shm.Allocator.
func FromAllocator(a *shm.Allocator) AllocFunc {
	return func(size int) (Region, error) {
		r, err := a.Allocate(size)
		if err != nil {
			return nil, err
		}
		return r, nil
	}
}

// Producer creates painted buffers on demand.
type Producer struct {
	shm     wl.Shm
	alloc   AllocFunc
	painter Painter
	format  wl.Format
}

// NewProducer returns a producer painting with p, or the default stripes when p
// is nil.
func NewProducer(s wl.Shm, alloc AllocFunc, p Painter) *Producer {
	if p == nil {
		p = DefaultStripes()
	}
	return &Producer{shm: s, alloc: alloc, painter: p, format: wl.FormatXRGB8888}
}

// Produce allocates, paints and wraps a width x height XRGB8888 buffer. On
// success the local mapping and descriptor are already released; the returned
// buffer is destroyed when the compositor releases it.
func (p *Producer) Produce(width, height int32) (*Buffer, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("%w: %dx%d", ErrInvalidSize, width, height)
	}
	stride64 := int64(width) * wl.BytesPerPixel
	size64 := stride64 * int64(height)
	if size64 > math.MaxInt32 {
		return nil, fmt.Errorf("%w: %dx%d needs %d bytes", ErrInvalidSize, width, height, size64)
	}
	stride, size := int32(stride64), int(size64)

	region, err := p.alloc(size)
	if err != nil {
		return nil, fmt.Errorf("failed to allocate frame: %w", err)
	}

	data, err := region.Map()
	if err != nil {
		region.Close()
		return nil, fmt.Errorf("failed to map frame: %w", err)
	}

	// abandon releases everything local when the buffer cannot be built.
	abandon := func() {
		if err := region.Unmap(); err != nil {
			logger.Warn("Failed to unmap frame", "error", err)
		}
		region.Close()
	}

	pool, err := p.shm.CreatePool(region.Fd(), int32(size))
	if err != nil {
		abandon()
		return nil, fmt.Errorf("failed to create shm pool: %w", err)
	}
	obj, err := pool.CreateBuffer(0, width, height, stride, p.format)
	if err != nil {
		pool.Destroy()
		abandon()
		return nil, fmt.Errorf("failed to create buffer: %w", err)
	}

	// The buffer keeps the pool's memory alive on the compositor side, and
	// the compositor holds its own reference to the descriptor.
	if err := pool.Destroy(); err != nil {
		logger.Warn("Failed to destroy shm pool", "error", err)
	}
	if err := region.Close(); err != nil {
		logger.Warn("Failed to close shm descriptor", "error", err)
	}

	p.painter.Paint(data, int(width), int(height), int(stride))

	if err := region.Unmap(); err != nil {
		logger.Warn("Failed to unmap frame", "error", err)
	}

	b := &Buffer{
		Width:  width,
		Height: height,
		Stride: stride,
		Format: p.format,
		Size:   size,
		obj:    obj,
		state:  Local,
	}
	obj.SetListener(releaser{b: b})

	logger.Debug("Produced frame",
		"width", width,
		"height", height,
		"stride", stride,
		"size", humanize.IBytes(uint64(size)),
		"format", p.format)
	return b, nil
}
