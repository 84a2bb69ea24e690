package frame

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/bnema/wayshm/internal/shm"
	"github.com/bnema/wayshm/internal/wl"
	"github.com/bnema/wayshm/internal/wl/wltest"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// recordingAlloc hands out memfd regions and remembers them so tests can check
// that nothing stays mapped or open.
type recordingAlloc struct {
	a       *shm.Allocator
	regions []*shm.Region
}

func newRecordingAlloc() *recordingAlloc {
	return &recordingAlloc{a: shm.NewAllocator(shm.WithBackend(shm.BackendMemfd))}
}

func (r *recordingAlloc) alloc(size int) (Region, error) {
	reg, err := r.a.Allocate(size)
	if err != nil {
		return nil, err
	}
	r.regions = append(r.regions, reg)
	return reg, nil
}

func newProducer(t *testing.T) (*Producer, *wltest.Server, *recordingAlloc) {
	t.Helper()
	srv := wltest.NewServer(t, wltest.DefaultGlobals()...)
	reg, err := srv.Registry()
	require.NoError(t, err)
	s, err := reg.BindShm(3, 1)
	require.NoError(t, err)
	ra := newRecordingAlloc()
	return NewProducer(s, ra.alloc, nil), srv, ra
}

func pixel(pix []byte, stride, x, y int) uint32 {
	return binary.LittleEndian.Uint32(pix[y*stride+x*4:])
}

func TestProduce(t *testing.T) {
	p, srv, ra := newProducer(t)

	b, err := p.Produce(800, 600)
	require.NoError(t, err)

	assert.Equal(t, int32(800), b.Width)
	assert.Equal(t, int32(600), b.Height)
	assert.Equal(t, int32(3200), b.Stride)
	assert.Equal(t, 1920000, b.Size)
	assert.Equal(t, wl.FormatXRGB8888, b.Format)
	assert.Equal(t, Local, b.State())

	require.Len(t, srv.Pools, 1)
	assert.Equal(t, int32(1920000), srv.Pools[0].Size)
	assert.True(t, srv.Pools[0].Destroyed, "pool should be destroyed right after buffer creation")

	require.Len(t, srv.Buffers, 1)
	fb := srv.Buffers[0]
	assert.Equal(t, int32(0), fb.Offset)
	assert.Equal(t, int32(800), fb.Width)
	assert.Equal(t, int32(600), fb.Height)
	assert.Equal(t, int32(3200), fb.Stride)
	assert.Equal(t, wl.FormatXRGB8888, fb.Format)
	assert.Same(t, fb, b.Object())

	require.Len(t, ra.regions, 1)
	assert.Equal(t, 1920000, ra.regions[0].Size())
	assert.False(t, ra.regions[0].Mapped(), "local mapping must be released")
	assert.True(t, ra.regions[0].Closed(), "local descriptor must be closed")

	// pool created, buffer created, pool destroyed, nothing else
	var ops []string
	for _, r := range srv.Requests() {
		ops = append(ops, r.Object+"."+r.Op)
	}
	assert.Equal(t, []string{
		"wl_display.get_registry",
		"wl_registry.bind",
		"wl_shm.create_pool",
		"wl_shm_pool.create_buffer",
		"wl_shm_pool.destroy",
	}, ops)
}

func TestProduceWritesStripes(t *testing.T) {
	p, srv, _ := newProducer(t)

	_, err := p.Produce(80, 3)
	require.NoError(t, err)

	pix, err := srv.Pools[0].Contents()
	require.NoError(t, err)
	for y := 0; y < 3; y++ {
		for band, want := range DefaultPalette {
			assert.Equal(t, want, pixel(pix, 320, band*10, y), "band %d row %d", band, y)
			assert.Equal(t, want, pixel(pix, 320, band*10+9, y), "band %d row %d", band, y)
		}
	}
}

func TestBufferRelease(t *testing.T) {
	p, srv, _ := newProducer(t)

	b, err := p.Produce(4, 4)
	require.NoError(t, err)
	require.NoError(t, b.Submit())
	assert.Equal(t, Submitted, b.State())
	assert.Error(t, b.Submit())
	assert.Error(t, b.Discard())

	fb := srv.Buffers[0]
	assert.False(t, fb.Destroyed, "a submitted buffer belongs to the compositor until released")

	srv.SendRelease(fb)
	require.NoError(t, srv.Dispatch())

	assert.Equal(t, Destroyed, b.State())
	assert.True(t, fb.Destroyed)
	assert.Equal(t, 1, srv.Count("wl_buffer", "destroy"))

	// A duplicate release must not destroy twice.
	srv.SendRelease(fb)
	require.NoError(t, srv.Dispatch())
	assert.Equal(t, 1, srv.Count("wl_buffer", "destroy"))
}

func TestBufferDiscard(t *testing.T) {
	p, srv, _ := newProducer(t)

	b, err := p.Produce(4, 4)
	require.NoError(t, err)
	require.NoError(t, b.Discard())
	assert.Equal(t, Destroyed, b.State())
	assert.True(t, srv.Buffers[0].Destroyed)
}

func TestProduceFailures(t *testing.T) {
	t.Run("invalid size", func(t *testing.T) {
		p, srv, ra := newProducer(t)
		for _, dims := range [][2]int32{{0, 10}, {10, 0}, {-1, 5}, {70000, 70000}} {
			b, err := p.Produce(dims[0], dims[1])
			assert.Nil(t, b)
			assert.ErrorIs(t, err, ErrInvalidSize)
		}
		assert.Empty(t, ra.regions)
		assert.Equal(t, 0, srv.Count("wl_shm", "create_pool"))
	})

	t.Run("allocation fails", func(t *testing.T) {
		p, srv, _ := newProducer(t)
		p.alloc = func(int) (Region, error) {
			return nil, shm.ErrAllocation
		}
		b, err := p.Produce(10, 10)
		assert.Nil(t, b)
		assert.ErrorIs(t, err, shm.ErrAllocation)
		assert.Equal(t, 0, srv.Count("wl_shm", "create_pool"))
	})

	t.Run("mapping fails", func(t *testing.T) {
		p, srv, _ := newProducer(t)
		fr := &fakeRegion{size: 400, mapErr: errors.New("mmap: no memory")}
		p.alloc = func(int) (Region, error) { return fr, nil }

		b, err := p.Produce(10, 10)
		assert.Nil(t, b)
		assert.Error(t, err)
		assert.True(t, fr.closed)
		assert.Equal(t, 0, srv.Count("wl_shm", "create_pool"))
	})

	t.Run("pool creation fails", func(t *testing.T) {
		p, srv, ra := newProducer(t)
		srv.Fail("wl_shm", "create_pool", errors.New("broken pipe"))

		b, err := p.Produce(10, 10)
		assert.Nil(t, b)
		assert.Error(t, err)
		require.Len(t, ra.regions, 1)
		assert.False(t, ra.regions[0].Mapped())
		assert.True(t, ra.regions[0].Closed())
	})

	t.Run("buffer creation fails", func(t *testing.T) {
		p, srv, ra := newProducer(t)
		srv.Fail("wl_shm_pool", "create_buffer", errors.New("broken pipe"))

		b, err := p.Produce(10, 10)
		assert.Nil(t, b)
		assert.Error(t, err)
		assert.True(t, srv.Pools[0].Destroyed)
		assert.False(t, ra.regions[0].Mapped())
		assert.True(t, ra.regions[0].Closed())
	})
}

type fakeRegion struct {
	size   int
	mapErr error
	closed bool
}

func (f *fakeRegion) Fd() int              { return -1 }
func (f *fakeRegion) Size() int            { return f.size }
func (f *fakeRegion) Map() ([]byte, error) { return nil, f.mapErr }
func (f *fakeRegion) Unmap() error         { return nil }
func (f *fakeRegion) Close() error {
	f.closed = true
	return nil
}
