package wl

import (
	"encoding/binary"
	"fmt"
)

// Format is a wl_shm pixel format.
type Format uint32

const (
	FormatARGB8888 Format = 0
	FormatXRGB8888 Format = 1
)

func (f Format) String() string {
	switch f {
	case FormatARGB8888:
		return "argb8888"
	case FormatXRGB8888:
		return "xrgb8888"
	}
	return fmt.Sprintf("format(%#x)", uint32(f))
}

// BytesPerPixel of the packed 32-bit formats used by this client.
const BytesPerPixel = 4

type ButtonState uint32

const (
	ButtonStateReleased ButtonState = 0
	ButtonStatePressed  ButtonState = 1
)

func (s ButtonState) String() string {
	if s == ButtonStatePressed {
		return "pressed"
	}
	return "released"
}

// Linux evdev button codes (linux/input-event-codes.h).
const (
	ButtonLeft   uint32 = 0x110
	ButtonRight  uint32 = 0x111
	ButtonMiddle uint32 = 0x112
)

// ToplevelState is an entry of the xdg_toplevel configure states array.
type ToplevelState uint32

const (
	ToplevelStateMaximized   ToplevelState = 1
	ToplevelStateFullscreen  ToplevelState = 2
	ToplevelStateResizing    ToplevelState = 3
	ToplevelStateActivated   ToplevelState = 4
	ToplevelStateTiledLeft   ToplevelState = 5
	ToplevelStateTiledRight  ToplevelState = 6
	ToplevelStateTiledTop    ToplevelState = 7
	ToplevelStateTiledBottom ToplevelState = 8
)

var toplevelStateNames = map[ToplevelState]string{
	ToplevelStateMaximized:   "maximized",
	ToplevelStateFullscreen:  "fullscreen",
	ToplevelStateResizing:    "resizing",
	ToplevelStateActivated:   "activated",
	ToplevelStateTiledLeft:   "tiled_left",
	ToplevelStateTiledRight:  "tiled_right",
	ToplevelStateTiledTop:    "tiled_top",
	ToplevelStateTiledBottom: "tiled_bottom",
}

func (s ToplevelState) String() string {
	if name, ok := toplevelStateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", uint32(s))
}

// DecodeToplevelStates unpacks a wl_array of uint32 states in host byte order.
// Trailing bytes that do not form a full entry are ignored.
func DecodeToplevelStates(b []byte) []ToplevelState {
	states := make([]ToplevelState, 0, len(b)/4)
	for i := 0; i+4 <= len(b); i += 4 {
		states = append(states, ToplevelState(binary.NativeEndian.Uint32(b[i:i+4])))
	}
	return states
}

type DecorationMode uint32

const (
	DecorationModeClientSide DecorationMode = 1
	DecorationModeServerSide DecorationMode = 2
)

func (m DecorationMode) String() string {
	switch m {
	case DecorationModeClientSide:
		return "client_side"
	case DecorationModeServerSide:
		return "server_side"
	}
	return fmt.Sprintf("mode(%d)", uint32(m))
}
