package input

import (
	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/selection"
)

// Raycaster maps a screen position to the world surface under it
type Raycaster interface {
	SurfacePoint(sx, sy int) (geom.Point3, bool)
}

// Emitter takes commands produced from input. The dispatcher implements it.
type Emitter interface {
	Emit(c network.Command)
}

// DragState is the state of an input source's selection drag
type DragState uint8

const (
	StateIdle DragState = iota
	StateDragging
)

func (s DragState) String() string {
	if s == StateDragging {
		return "dragging"
	}
	return "idle"
}

// Capture turns sampled frames from one input source into commands.
// It never touches the world; it only emits.
type Capture struct {
	ray   Raycaster
	out   Emitter
	log   *zap.SugaredLogger
	state DragState
	// anchor is valid while dragging
	anchor geom.Point3
	// live is the pointer's last valid surface point while dragging
	live geom.Point3
}

// NewCapture creates an idle capture for one input source
func NewCapture(ray Raycaster, out Emitter, log *zap.SugaredLogger) *Capture {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Capture{ray: ray, out: out, log: log}
}

// State returns the current drag state
func (c *Capture) State() DragState { return c.state }

// Anchor returns the drag anchor and whether a drag is active
func (c *Capture) Anchor() (geom.Point3, bool) {
	return c.anchor, c.state == StateDragging
}

// Rectangle returns the live selection rectangle while dragging. It exists
// for presentation only.
func (c *Capture) Rectangle() (geom.Quad, bool) {
	if c.state != StateDragging {
		return geom.Quad{}, false
	}
	return geom.RectFromCorners(c.anchor, c.live), true
}

// Update feeds one frame. At most one command is emitted per discrete
// press or release.
func (c *Capture) Update(f Frame) {
	if !f.Connected {
		if c.state == StateDragging {
			c.log.Debugw("drag abandoned: input source lost")
			c.abandon()
		}
		return
	}

	switch c.state {
	case StateIdle:
		c.updateIdle(f)
	case StateDragging:
		c.updateDragging(f)
	}
}

func (c *Capture) updateIdle(f Frame) {
	if f.PrimaryPressed {
		p, ok := c.ray.SurfacePoint(f.CursorX, f.CursorY)
		if !ok {
			c.log.Debugw("press off surface", "x", f.CursorX, "y", f.CursorY)
			return
		}
		c.state = StateDragging
		c.anchor, c.live = p, p
		if f.PrimaryReleased {
			// press and release landed in the same frame
			c.release(f)
		}
		return
	}
	if f.SecondaryPressed {
		p, ok := c.ray.SurfacePoint(f.CursorX, f.CursorY)
		if !ok {
			return
		}
		c.out.Emit(network.MoveCommand{Target: p})
	}
}

func (c *Capture) updateDragging(f Frame) {
	// a second press while dragging is ignored
	if f.PrimaryReleased {
		c.release(f)
		return
	}
	if p, ok := c.ray.SurfacePoint(f.CursorX, f.CursorY); ok {
		c.live = p
	}
}

func (c *Capture) release(f Frame) {
	p, ok := c.ray.SurfacePoint(f.CursorX, f.CursorY)
	if !ok {
		c.log.Debugw("drag abandoned: release off surface", "x", f.CursorX, "y", f.CursorY)
		c.abandon()
		return
	}
	cmd := network.SelectCommand{
		From: c.anchor,
		To:   p,
		Mode: selection.ModeFromModifiers(f.Shift, f.Ctrl),
	}
	c.abandon()
	c.out.Emit(cmd)
}

func (c *Capture) abandon() {
	c.state = StateIdle
	c.anchor, c.live = geom.Point3{}, geom.Point3{}
}
