package systems

import (
	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
)

// UnitIndex is the part of the spatial index spawning writes to
type UnitIndex interface {
	Insert(id core.EntityID, pos geom.Point3, owner core.PlayerID, kind core.UnitKind)
	Remove(id core.EntityID)
}

// UnitSpec describes a unit to spawn
type UnitSpec struct {
	Owner core.PlayerID
	Kind  core.UnitKind
	Pos   geom.Point3
	Speed geom.Scalar
}

// SpawnUnit creates a selectable, movable unit and indexes it
func SpawnUnit(w *core.World, idx UnitIndex, spec UnitSpec) core.EntityID {
	id := w.Spawn()
	w.Attach(id, &core.Position{Point3: spec.Pos})
	w.Attach(id, &core.Selectable{Kind: spec.Kind})
	w.Attach(id, &core.Owner{PlayerID: spec.Owner})
	if spec.Speed > 0 {
		w.Attach(id, &core.Movable{Speed: spec.Speed})
	}
	if idx != nil {
		idx.Insert(id, spec.Pos, spec.Owner, spec.Kind)
	}
	return id
}

// DespawnUnit removes a unit from the world and the index. Selection groups
// still holding it prune it on their next read.
func DespawnUnit(w *core.World, idx UnitIndex, events *core.EventBus, id core.EntityID) {
	w.Destroy(id)
	if idx != nil {
		idx.Remove(id)
	}
	if events != nil {
		events.Emit(core.Event{Type: core.EvtUnitDestroyed, Tick: w.TickCount, Payload: id})
	}
}
