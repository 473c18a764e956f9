// Package device samples real input devices into input.Frame values.
package device

import (
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/inpututil"

	"github.com/1siamBot/rts-orders/engine/input"
)

// EbitenSampler reads the mouse and keyboard through ebiten. It must be
// sampled from the game's Update.
type EbitenSampler struct {
	Primary   ebiten.MouseButton
	Secondary ebiten.MouseButton

	// Last frame, kept for HUD/debug drawing
	Last input.Frame
	// Wheel delta of the last sample, used by the camera only
	ScrollY float64
}

var _ input.Sampler = (*EbitenSampler)(nil)

func NewEbitenSampler() *EbitenSampler {
	return &EbitenSampler{
		Primary:   ebiten.MouseButtonLeft,
		Secondary: ebiten.MouseButtonRight,
	}
}

// Sample should be called every frame
func (s *EbitenSampler) Sample() input.Frame {
	x, y := ebiten.CursorPosition()
	_, s.ScrollY = ebiten.Wheel()
	s.Last = input.Frame{
		CursorX:          x,
		CursorY:          y,
		PrimaryPressed:   inpututil.IsMouseButtonJustPressed(s.Primary),
		PrimaryReleased:  inpututil.IsMouseButtonJustReleased(s.Primary),
		SecondaryPressed: inpututil.IsMouseButtonJustPressed(s.Secondary),
		Shift:            ebiten.IsKeyPressed(ebiten.KeyShift),
		Ctrl:             ebiten.IsKeyPressed(ebiten.KeyControl),
		Connected:        ebiten.IsFocused(),
	}
	return s.Last
}

// IsKeyJustPressed returns true if key was just pressed this frame
func (s *EbitenSampler) IsKeyJustPressed(key ebiten.Key) bool {
	return inpututil.IsKeyJustPressed(key)
}

// IsKeyPressed returns true while key is held
func (s *EbitenSampler) IsKeyPressed(key ebiten.Key) bool {
	return ebiten.IsKeyPressed(key)
}
