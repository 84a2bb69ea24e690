package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/bnema/wayshm/internal/frame"
	"github.com/bnema/wayshm/internal/session"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// isolate points every config search path at an empty temp dir.
func isolate(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	t.Setenv("HOME", dir)
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
	viper.Reset()
	SetConfigPath("")
	t.Cleanup(func() {
		viper.Reset()
		SetConfigPath("")
		Set(nil)
	})
	return dir
}

func writeConfig(t *testing.T, dir, body string) string {
	t.Helper()
	path := filepath.Join(dir, "wayshm.toml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0644))
	return path
}

func TestInit(t *testing.T) {
	t.Run("initializes with defaults when no config exists", func(t *testing.T) {
		isolate(t)

		require.NoError(t, Init())
		c := Get()
		require.NotNil(t, c)
		assert.Equal(t, int32(640), c.Window.Width)
		assert.Equal(t, int32(480), c.Window.Height)
		assert.Equal(t, "default", c.Window.Decorations)
		assert.Equal(t, "shm_open", c.Shm.Backend)
		assert.Equal(t, "/dev/shm", c.Shm.Dir)
		assert.Equal(t, PaintStripes, c.Paint.Mode)
		assert.Len(t, c.Paint.Palette, 8)
	})

	t.Run("reads an explicit config file", func(t *testing.T) {
		dir := isolate(t)
		SetConfigPath(writeConfig(t, dir, `
[window]
width = 800
height = 600
decorations = "server"

[shm]
backend = "memfd"

[paint]
mode = "solid"
color = "#336699"
`))

		require.NoError(t, Init())
		c := Get()
		assert.Equal(t, int32(800), c.Window.Width)
		assert.Equal(t, int32(600), c.Window.Height)
		assert.Equal(t, "server", c.Window.Decorations)
		assert.Equal(t, "memfd", c.Shm.Backend)
		assert.Equal(t, PaintSolid, c.Paint.Mode)
		assert.Equal(t, "#336699", c.Paint.Color)
	})

	t.Run("finds wayshm.toml in the current directory", func(t *testing.T) {
		dir := isolate(t)
		writeConfig(t, dir, "[window]\nwidth = 320\n")

		require.NoError(t, Init())
		assert.Equal(t, int32(320), Get().Window.Width)
		assert.Equal(t, int32(480), Get().Window.Height)
	})

	t.Run("handles invalid TOML", func(t *testing.T) {
		dir := isolate(t)
		SetConfigPath(writeConfig(t, dir, "[window\nwidth = 1"))
		assert.Error(t, Init())
	})

	t.Run("rejects invalid values", func(t *testing.T) {
		dir := isolate(t)
		SetConfigPath(writeConfig(t, dir, "[window]\ndecorations = \"fancy\"\n"))
		err := Init()
		assert.ErrorContains(t, err, "fancy")
	})
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(c *Config)
		wantErr bool
	}{
		{"defaults", func(c *Config) {}, false},
		{"negative width", func(c *Config) { c.Window.Width = -1 }, true},
		{"unknown decorations", func(c *Config) { c.Window.Decorations = "none" }, true},
		{"unknown backend", func(c *Config) { c.Shm.Backend = "tmpfile" }, true},
		{"bad palette", func(c *Config) { c.Paint.Palette = []string{"#fff", "pink"} }, true},
		{"solid with bad colour", func(c *Config) { c.Paint.Mode = PaintSolid; c.Paint.Color = "nope" }, true},
		{"image without path", func(c *Config) { c.Paint.Mode = PaintImage }, true},
		{"image with path", func(c *Config) { c.Paint.Mode = PaintImage; c.Paint.Image = "/tmp/x.png" }, false},
		{"unknown mode", func(c *Config) { c.Paint.Mode = "gradient" }, true},
		{"bad log level", func(c *Config) { c.Logging.LogLevel = "chatty" }, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := DefaultConfig
			c.Paint.Palette = append([]string(nil), DefaultConfig.Paint.Palette...)
			tt.mutate(&c)
			err := c.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestPainter(t *testing.T) {
	c := DefaultConfig
	p, err := c.Painter()
	require.NoError(t, err)
	stripes, ok := p.(*frame.Stripes)
	require.True(t, ok)
	assert.Equal(t, frame.DefaultPalette, stripes.Colors)

	c.Paint.Mode = PaintSolid
	c.Paint.Color = "#ff0000"
	p, err = c.Painter()
	require.NoError(t, err)
	assert.Equal(t, frame.Solid{Color: 0xFFFF0000}, p)

	c.Paint.Mode = PaintImage
	c.Paint.Image = filepath.Join(t.TempDir(), "missing.png")
	p, err = c.Painter()
	assert.Error(t, err)
	assert.Nil(t, p)
}

func TestSessionOptions(t *testing.T) {
	c := DefaultConfig
	c.Window.Width, c.Window.Height = 1024, 768
	c.Window.Decorations = "client"
	c.Shm.Backend = "memfd"

	opts, err := c.SessionOptions()
	require.NoError(t, err)
	assert.Equal(t, int32(1024), opts.Width)
	assert.Equal(t, int32(768), opts.Height)
	assert.Equal(t, session.DecorationsClient, opts.Decorations)
	assert.NotNil(t, opts.Alloc)
	assert.NotNil(t, opts.Painter)

	region, err := opts.Alloc(4096)
	require.NoError(t, err)
	assert.Equal(t, 4096, region.Size())
	assert.NoError(t, region.Close())
}

func TestConfigPathResolution(t *testing.T) {
	dir := isolate(t)
	assert.Equal(t, filepath.Join(dir, "wayshm", "wayshm.toml"), GetConfigPath())

	SetConfigPath("/tmp/custom.toml")
	assert.Equal(t, "/tmp/custom.toml", GetConfigPath())
}

func TestSave(t *testing.T) {
	dir := isolate(t)
	require.NoError(t, Init())

	path := filepath.Join(dir, "nested", "wayshm.toml")
	SetConfigPath(path)
	require.NoError(t, Save())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "decorations")
}
