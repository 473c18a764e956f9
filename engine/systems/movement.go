package systems

import (
	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
)

// PositionIndex is the part of the spatial index movement keeps in sync
type PositionIndex interface {
	Move(id core.EntityID, pos geom.Point3)
}

// MovementSystem moves units in a straight line toward their order target.
// All arithmetic is integer so replicas stay in step.
type MovementSystem struct {
	Index  PositionIndex
	Events *core.EventBus
}

func (s *MovementSystem) Priority() int { return 10 }

func (s *MovementSystem) Update(w *core.World) {
	for _, id := range w.Query(core.CompPosition, core.CompMovable) {
		pos := w.Get(id, core.CompPosition).(*core.Position)
		mov := w.Get(id, core.CompMovable).(*core.Movable)
		if !mov.Moving {
			continue
		}

		next, arrived := Step(pos.Point3, mov.Target, mov.Speed)
		pos.X, pos.Z = next.X, next.Z
		if arrived {
			mov.Moving = false
			if s.Events != nil {
				s.Events.Emit(core.Event{Type: core.EvtUnitArrived, Tick: w.TickCount, Payload: id})
			}
		}
		if s.Index != nil {
			s.Index.Move(id, pos.Point3)
		}
	}
}

// Step advances from toward target by at most speed on the ground plane.
// Height is left to the caller.
func Step(from, target geom.Point3, speed geom.Scalar) (geom.Point3, bool) {
	distSq := geom.GroundDistSq(from, target)
	if distSq <= geom.RadiusSq(speed) {
		return geom.Point3{X: target.X, Y: from.Y, Z: target.Z}, true
	}
	dist := geom.ISqrt(distSq)
	dx := int64(target.X) - int64(from.X)
	dz := int64(target.Z) - int64(from.Z)
	return geom.Point3{
		X: from.X + geom.Scalar(dx*int64(speed)/dist),
		Y: from.Y,
		Z: from.Z + geom.Scalar(dz*int64(speed)/dist),
	}, false
}
