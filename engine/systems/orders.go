package systems

import (
	"encoding/binary"

	"github.com/cespare/xxhash/v2"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
)

// DefaultKeep is how many recent orders MoveOrders keeps when Keep is unset
const DefaultKeep = 64

// MoveOrders applies movement orders to the world: every unit in the order
// that can move gets the target. Every order is folded into a running hash;
// only the most recent ones are kept.
type MoveOrders struct {
	World  *core.World
	Events *core.EventBus
	Keep   int // recent orders kept in Issued, DefaultKeep if zero

	// Issued holds the most recent orders, oldest first
	Issued []MoveOrder

	count uint64
	sum   *xxhash.Digest
}

// IssueMove implements MoveSink
func (m *MoveOrders) IssueMove(order MoveOrder) {
	for _, id := range order.Units {
		mov, ok := m.World.Get(id, core.CompMovable).(*core.Movable)
		if !ok {
			continue
		}
		mov.Target = order.Target
		mov.Moving = true
	}
	m.fold(order)

	keep := m.Keep
	if keep <= 0 {
		keep = DefaultKeep
	}
	m.Issued = append(m.Issued, order)
	if n := len(m.Issued); n > keep {
		m.Issued = append(m.Issued[:0], m.Issued[n-keep:]...)
	}
	if m.Events != nil {
		m.Events.Emit(core.Event{Type: core.EvtUnitMoveOrder, Tick: order.Tick, Payload: order})
	}
}

// Count returns how many orders were ever issued
func (m *MoveOrders) Count() uint64 { return m.count }

// Sum returns the running hash over every order issued, in issue order
func (m *MoveOrders) Sum() uint64 {
	if m.sum == nil {
		return 0
	}
	return m.sum.Sum64()
}

func (m *MoveOrders) fold(o MoveOrder) {
	if m.sum == nil {
		m.sum = xxhash.New()
	}
	m.count++
	buf := make([]byte, 0, 8*(7+len(o.Units)))
	put := func(v uint64) { buf = binary.LittleEndian.AppendUint64(buf, v) }
	putPoint := func(p geom.Point3) {
		put(uint64(uint32(p.X)))
		put(uint64(uint32(p.Y)))
		put(uint64(uint32(p.Z)))
	}
	put(o.Tick)
	put(uint64(o.PlayerID))
	put(uint64(o.Kind))
	put(uint64(o.Victim))
	put(uint64(len(o.Units)))
	for _, id := range o.Units {
		put(uint64(id))
	}
	putPoint(o.Target)
	m.sum.Write(buf)
}
