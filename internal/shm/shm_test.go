package shm

import (
	"os"
	"path/filepath"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/sys/unix"
)

func fixedNames(names ...string) (Namer, *int) {
	calls := 0
	return func() string {
		n := names[len(names)-1]
		if calls < len(names) {
			n = names[calls]
		}
		calls++
		return n
	}, &calls
}

func TestRandomName(t *testing.T) {
	re := regexp.MustCompile(`^wl_shm-[A-Pa-p]{6}$`)
	for i := 0; i < 50; i++ {
		assert.Regexp(t, re, RandomName())
	}
}

func TestAllocate(t *testing.T) {
	dir := t.TempDir()
	a := NewAllocator(WithDir(dir))

	r, err := a.Allocate(4096)
	require.NoError(t, err)
	defer r.Close()

	assert.Equal(t, 4096, r.Size())
	assert.GreaterOrEqual(t, r.Fd(), 0)

	var st unix.Stat_t
	require.NoError(t, unix.Fstat(r.Fd(), &st))
	assert.Equal(t, int64(4096), st.Size)

	// The name must be gone from the namespace right after creation.
	_, err = os.Stat(filepath.Join(dir, r.Name()))
	assert.True(t, os.IsNotExist(err), "expected %s to be unlinked", r.Name())
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestAllocateInvalidSize(t *testing.T) {
	a := NewAllocator(WithDir(t.TempDir()))
	for _, size := range []int{0, -1} {
		_, err := a.Allocate(size)
		assert.ErrorIs(t, err, ErrAllocation)
	}
}

func TestAllocateCollision(t *testing.T) {
	t.Run("fails after exactly the retry budget", func(t *testing.T) {
		dir := t.TempDir()
		taken := "wl_shm-AAAAAA"
		require.NoError(t, os.WriteFile(filepath.Join(dir, taken), nil, 0o600))

		namer, calls := fixedNames(taken)
		a := NewAllocator(WithDir(dir), WithNamer(namer))

		r, err := a.Allocate(64)
		assert.Nil(t, r)
		assert.ErrorIs(t, err, ErrAllocation)
		assert.Equal(t, DefaultRetries, *calls)
	})

	t.Run("honours a custom budget", func(t *testing.T) {
		dir := t.TempDir()
		taken := "wl_shm-BBBBBB"
		require.NoError(t, os.WriteFile(filepath.Join(dir, taken), nil, 0o600))

		namer, calls := fixedNames(taken)
		a := NewAllocator(WithDir(dir), WithNamer(namer), WithRetries(3))

		_, err := a.Allocate(64)
		assert.ErrorIs(t, err, ErrAllocation)
		assert.Equal(t, 3, *calls)
	})

	t.Run("retries with a fresh name and succeeds", func(t *testing.T) {
		dir := t.TempDir()
		taken := "wl_shm-CCCCCC"
		require.NoError(t, os.WriteFile(filepath.Join(dir, taken), nil, 0o600))

		namer, calls := fixedNames(taken, taken, "wl_shm-dddddd")
		a := NewAllocator(WithDir(dir), WithNamer(namer))

		r, err := a.Allocate(64)
		require.NoError(t, err)
		defer r.Close()
		assert.Equal(t, 3, *calls)
		assert.Equal(t, "wl_shm-dddddd", r.Name())

		// The colliding object belongs to someone else and is left alone.
		_, err = os.Stat(filepath.Join(dir, taken))
		assert.NoError(t, err)
	})

	t.Run("a reused name maps to a distinct object", func(t *testing.T) {
		dir := t.TempDir()
		namer, _ := fixedNames("wl_shm-eeeeee")
		a := NewAllocator(WithDir(dir), WithNamer(namer))

		first, err := a.Allocate(64)
		require.NoError(t, err)
		defer first.Close()

		// The first name was unlinked, so reusing it creates a distinct object.
		second, err := a.Allocate(64)
		require.NoError(t, err)
		defer second.Close()

		var st1, st2 unix.Stat_t
		require.NoError(t, unix.Fstat(first.Fd(), &st1))
		require.NoError(t, unix.Fstat(second.Fd(), &st2))
		assert.NotEqual(t, st1.Ino, st2.Ino)
	})
}

func TestAllocateOtherErrorsDoNotRetry(t *testing.T) {
	namer, calls := fixedNames("wl_shm-FFFFFF")
	a := NewAllocator(WithDir(filepath.Join(t.TempDir(), "missing")), WithNamer(namer))

	_, err := a.Allocate(64)
	assert.ErrorIs(t, err, ErrAllocation)
	assert.ErrorIs(t, err, unix.ENOENT)
	assert.Equal(t, 1, *calls)
}

func TestMemfdBackend(t *testing.T) {
	a := NewAllocator(WithBackend(BackendMemfd))
	r, err := a.Allocate(8192)
	require.NoError(t, err)
	defer r.Close()

	var st unix.Stat_t
	require.NoError(t, unix.Fstat(r.Fd(), &st))
	assert.Equal(t, int64(8192), st.Size)
}

func TestRegionMapping(t *testing.T) {
	a := NewAllocator(WithDir(t.TempDir()))
	r, err := a.Allocate(16)
	require.NoError(t, err)

	data, err := r.Map()
	require.NoError(t, err)
	assert.Len(t, data, 16)
	assert.True(t, r.Mapped())
	copy(data, "hello")

	again, err := r.Map()
	require.NoError(t, err)
	assert.Same(t, &data[0], &again[0])

	require.NoError(t, r.Unmap())
	assert.False(t, r.Mapped())
	assert.NoError(t, r.Unmap())

	buf := make([]byte, 5)
	_, err = unix.Pread(r.Fd(), buf, 0)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(buf))

	require.NoError(t, r.Close())
	assert.True(t, r.Closed())
	assert.Equal(t, -1, r.Fd())
	assert.NoError(t, r.Close())

	_, err = r.Map()
	assert.ErrorIs(t, err, ErrAllocation)
}

func TestParseBackend(t *testing.T) {
	tests := []struct {
		in      string
		want    Backend
		wantErr bool
	}{
		{"", BackendShmOpen, false},
		{"shm_open", BackendShmOpen, false},
		{"memfd", BackendMemfd, false},
		{"tmpfile", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseBackend(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
