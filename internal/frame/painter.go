package frame

import (
	"encoding/binary"
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/imaging"
	"github.com/lucasb-eyer/go-colorful"
	_ "golang.org/x/image/webp"
)

// Painter fills a mapped XRGB8888 frame. pix holds height rows of stride bytes.
type Painter interface {
	Paint(pix []byte, width, height, stride int)
}

// XRGB packs an opaque colour the way wl_shm expects it: a little-endian
// 0xXXRRGGBB word.
func XRGB(r, g, b uint8) uint32 {
	return 0xFF000000 | uint32(r)<<16 | uint32(g)<<8 | uint32(b)
}

// ParseColor parses a CSS-style hex colour such as "#ff8800".
func ParseColor(s string) (uint32, error) {
	c, err := colorful.Hex(strings.TrimSpace(s))
	if err != nil {
		return 0, fmt.Errorf("invalid colour %q: %w", s, err)
	}
	r, g, b := c.RGB255()
	return XRGB(r, g, b), nil
}

// ParsePalette parses a list of hex colours.
func ParsePalette(hex []string) ([]uint32, error) {
	out := make([]uint32, 0, len(hex))
	for _, h := range hex {
		c, err := ParseColor(h)
		if err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, nil
}

// DefaultPalette is the eight-band test pattern, left to right.
var DefaultPalette = []uint32{
	0xFFFFFFFF, // white
	0xFFFFFF00, // yellow
	0xFF00FFFF, // cyan
	0xFF00FF00, // green
	0xFFFF00FF, // magenta
	0xFFFF0000, // red
	0xFF0000FF, // blue
	0xFF000000, // black
}

// Stripes paints one vertical band per colour. Column x gets the last band k
// with x >= k*width/len(Colors).
type Stripes struct {
	Colors []uint32
}

func DefaultStripes() *Stripes {
	return &Stripes{Colors: append([]uint32(nil), DefaultPalette...)}
}

func (s *Stripes) Paint(pix []byte, width, height, stride int) {
	n := len(s.Colors)
	if n == 0 || width <= 0 {
		return
	}
	row := make([]byte, width*4)
	band := 0
	for x := 0; x < width; x++ {
		for band+1 < n && x >= (band+1)*width/n {
			band++
		}
		binary.LittleEndian.PutUint32(row[x*4:], s.Colors[band])
	}
	for y := 0; y < height; y++ {
		copy(pix[y*stride:], row)
	}
}

// Solid fills the whole frame with one colour.
type Solid struct {
	Color uint32
}

func (s Solid) Paint(pix []byte, width, height, stride int) {
	for y := 0; y < height; y++ {
		line := pix[y*stride : y*stride+width*4]
		for x := 0; x < width; x++ {
			binary.LittleEndian.PutUint32(line[x*4:], s.Color)
		}
	}
}

// Image scales a picture to cover the frame, cropping around the centre.
// Transparent areas are composited over black.
type Image struct {
	src image.Image

	cached *image.NRGBA
	cw, ch int
}

// LoadImage decodes any format registered with the image package (PNG, JPEG,
// GIF, BMP, TIFF, WebP).
func LoadImage(path string) (*Image, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("failed to load image %s: %w", path, err)
	}
	return NewImage(src), nil
}

func NewImage(src image.Image) *Image {
	return &Image{src: src}
}

func (im *Image) scaled(width, height int) *image.NRGBA {
	if im.cached == nil || im.cw != width || im.ch != height {
		im.cached = imaging.Fill(im.src, width, height, imaging.Center, imaging.Lanczos)
		im.cw, im.ch = width, height
	}
	return im.cached
}

func (im *Image) Paint(pix []byte, width, height, stride int) {
	img := im.scaled(width, height)
	for y := 0; y < height; y++ {
		src := img.Pix[y*img.Stride:]
		dst := pix[y*stride:]
		for x := 0; x < width; x++ {
			r, g, b, a := uint32(src[x*4]), uint32(src[x*4+1]), uint32(src[x*4+2]), uint32(src[x*4+3])
			r, g, b = r*a/255, g*a/255, b*a/255
			binary.LittleEndian.PutUint32(dst[x*4:], XRGB(uint8(r), uint8(g), uint8(b)))
		}
	}
}
