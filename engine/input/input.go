// Package input turns sampled pointer and keyboard frames into commands.
// Device backends live in input/device.
package input

// Frame is one tick's sample of a pointer/keyboard input source
type Frame struct {
	CursorX, CursorY int

	PrimaryPressed   bool // went down this frame
	PrimaryReleased  bool // went up this frame
	SecondaryPressed bool // went down this frame
	Shift, Ctrl      bool // held
	Connected        bool // false once the device is gone
}

// Sampler produces a Frame per tick
type Sampler interface {
	Sample() Frame
}
