package wl

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDecodeToplevelStates(t *testing.T) {
	b := make([]byte, 0, 12)
	b = binary.NativeEndian.AppendUint32(b, uint32(ToplevelStateMaximized))
	b = binary.NativeEndian.AppendUint32(b, uint32(ToplevelStateActivated))
	b = append(b, 0xFF, 0xFF) // partial entry

	assert.Equal(t, []ToplevelState{ToplevelStateMaximized, ToplevelStateActivated}, DecodeToplevelStates(b))
	assert.Empty(t, DecodeToplevelStates(nil))
}

func TestEnumStrings(t *testing.T) {
	assert.Equal(t, "xrgb8888", FormatXRGB8888.String())
	assert.Equal(t, "format(0x34325258)", Format(0x34325258).String())
	assert.Equal(t, "pressed", ButtonStatePressed.String())
	assert.Equal(t, "released", ButtonStateReleased.String())
	assert.Equal(t, "activated", ToplevelStateActivated.String())
	assert.Equal(t, "state(42)", ToplevelState(42).String())
	assert.Equal(t, "server_side", DecorationModeServerSide.String())
}
