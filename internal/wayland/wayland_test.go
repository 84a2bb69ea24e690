package wayland

import (
	"encoding/binary"
	"io"
	"net"
	"path/filepath"
	"testing"

	"github.com/bnema/wayshm/internal/session"
	"github.com/bnema/wayshm/internal/wl"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectWithoutCompositor(t *testing.T) {
	t.Setenv("XDG_RUNTIME_DIR", t.TempDir())
	t.Setenv("WAYLAND_DISPLAY", "wayland-missing")

	d, err := Connect("")
	assert.Nil(t, d)
	assert.ErrorContains(t, err, "failed to connect to Wayland display")
}

func TestSocketPath(t *testing.T) {
	tests := []struct {
		name       string
		addr       string
		env        string
		runtimeDir string
		want       string
		wantErr    bool
	}{
		{"default name", "", "", "/run/user/1000", "/run/user/1000/wayland-0", false},
		{"name from env", "", "wayland-1", "/run/user/1000", "/run/user/1000/wayland-1", false},
		{"explicit name wins", "wayland-2", "wayland-1", "/run/user/1000", "/run/user/1000/wayland-2", false},
		{"absolute env", "", "/tmp/compositor.sock", "/run/user/1000", "/tmp/compositor.sock", false},
		{"absolute addr without runtime dir", "/tmp/compositor.sock", "", "", "/tmp/compositor.sock", false},
		{"name without runtime dir", "wayland-1", "", "", "", true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Setenv("WAYLAND_DISPLAY", tt.env)
			t.Setenv("XDG_RUNTIME_DIR", tt.runtimeDir)

			got, err := SocketPath(tt.addr)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

// serve accepts one client on path, reads its first n request bytes and
// answers with reply. The connection stays open until the client hangs up.
func serve(t *testing.T, path string, n int, reply []byte) {
	t.Helper()
	ln, err := net.Listen("unix", path)
	require.NoError(t, err)

	done := make(chan struct{})
	t.Cleanup(func() {
		ln.Close()
		<-done
	})
	go func() {
		defer close(done)
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		if _, err := io.ReadFull(conn, make([]byte, n)); err != nil {
			return
		}
		if _, err := conn.Write(reply); err != nil {
			return
		}
		io.Copy(io.Discard, conn)
	}()
}

func u32(v uint32) []byte {
	return binary.NativeEndian.AppendUint32(nil, v)
}

// str encodes a wire string: length with the NUL, bytes, padding to 4.
func str(s string) []byte {
	b := u32(uint32(len(s) + 1))
	b = append(b, s...)
	b = append(b, 0)
	for len(b)%4 != 0 {
		b = append(b, 0)
	}
	return b
}

func event(sender, opcode uint32, args ...[]byte) []byte {
	var body []byte
	for _, a := range args {
		body = append(body, a...)
	}
	msg := u32(sender)
	msg = append(msg, u32(uint32(8+len(body))<<16|opcode)...)
	return append(msg, body...)
}

func TestConnectByName(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)
	t.Setenv("WAYLAND_DISPLAY", "")
	serve(t, filepath.Join(dir, "wayland-7"), 0, nil)

	d, err := Connect("wayland-7")
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}

func TestConnectAbsoluteWaylandDisplay(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "compositor.sock")
	t.Setenv("XDG_RUNTIME_DIR", filepath.Join(dir, "elsewhere"))
	t.Setenv("WAYLAND_DISPLAY", path)
	serve(t, path, 0, nil)

	d, err := Connect("")
	require.NoError(t, err)
	assert.NoError(t, d.Close())
}

func TestProbeOverSocket(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_RUNTIME_DIR", dir)

	// Object ids as the client allocates them: display 1, registry 2, sync callback 3.
	var reply []byte
	reply = append(reply, event(2, 0, u32(1), str(wl.InterfaceCompositor), u32(6))...)
	reply = append(reply, event(2, 0, u32(3), str(wl.InterfaceShm), u32(1))...)
	reply = append(reply, event(2, 0, u32(5), str("wl_output"), u32(4))...)
	reply = append(reply, event(2, 1, u32(5))...) // global_remove
	reply = append(reply, event(3, 0, u32(42))...) // wl_callback.done
	reply = append(reply, event(1, 1, u32(3))...)  // wl_display.delete_id

	// get_registry and sync are 12 bytes each.
	serve(t, filepath.Join(dir, "wayland-3"), 24, reply)

	d, err := Connect("wayland-3")
	require.NoError(t, err)
	defer d.Close()

	globals, err := session.Probe(d)
	require.NoError(t, err)
	require.Len(t, globals, 2)
	assert.Equal(t, wl.Global{Name: 1, Interface: wl.InterfaceCompositor, Version: 6}, globals[0].Global)
	assert.True(t, globals[0].Watched)
	assert.Equal(t, wl.Global{Name: 3, Interface: wl.InterfaceShm, Version: 1}, globals[1].Global)
	assert.True(t, globals[1].Watched)
}

type foreign struct{}

func (foreign) SetListener(wl.BufferListener) {}
func (foreign) Destroy() error                { return nil }
func (foreign) Pointer() (wl.Pointer, error)  { return nil, nil }

func TestForeignObjectsAreRejected(t *testing.T) {
	assert.Error(t, (&Surface{}).Attach(foreign{}, 0, 0))
	assert.Error(t, (&Toplevel{}).Move(foreign{}, 1))
}
