package systems

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/selection"
	"github.com/1siamBot/rts-orders/engine/spatial"
)

type recordingSink struct {
	orders []MoveOrder
}

func (s *recordingSink) IssueMove(o MoveOrder) { s.orders = append(s.orders, o) }

type harness struct {
	world  *core.World
	grid   *spatial.Grid
	groups *selection.Manager
	sink   *recordingSink
	events *core.EventBus
	cmds   *Commands
}

func newHarness() *harness {
	h := &harness{
		world:  core.NewWorld(20),
		grid:   spatial.NewGrid(4 * geom.One),
		sink:   &recordingSink{},
		events: core.NewEventBus(),
	}
	players := core.NewPlayerManager()
	players.AddPlayer(&core.Player{ID: 0})
	players.AddPlayer(&core.Player{ID: 1})
	h.groups = selection.NewManager(h.world, nil)
	res := selection.NewResolver(h.grid, h.world, geom.One)
	h.cmds = NewCommands(h.world, players, res, h.groups, h.sink, h.events, nil)
	return h
}

func (h *harness) spawn(owner core.PlayerID, x, z int) core.EntityID {
	return SpawnUnit(h.world, h.grid, UnitSpec{Owner: owner, Kind: 1, Pos: geom.Pt(x, 0, z), Speed: geom.One})
}

func TestApplySelect_UnknownPlayer(t *testing.T) {
	h := newHarness()
	err := h.cmds.ApplySelect(7, network.SelectCommand{})
	assert.ErrorIs(t, err, ErrUnknownPlayer)
	assert.Empty(t, h.groups.Players())
}

func TestApplySelect_UpdatesGroupAndEmits(t *testing.T) {
	h := newHarness()
	a := h.spawn(0, 5, 5)
	h.spawn(1, 6, 6)

	require.NoError(t, h.cmds.ApplySelect(0, network.SelectCommand{From: geom.Pt(0, 0, 0), To: geom.Pt(10, 0, 10)}))
	assert.Equal(t, []core.EntityID{a}, h.groups.Selection(0))
	assert.Equal(t, 1, h.events.Pending())
}

func TestApplyMove_EmptySelectionIsNoOp(t *testing.T) {
	h := newHarness()
	require.NoError(t, h.cmds.ApplyMove(0, network.MoveCommand{Target: geom.Pt(3, 0, 3)}))
	assert.Empty(t, h.sink.orders)
}

func TestApplyMove_UnknownPlayer(t *testing.T) {
	h := newHarness()
	assert.ErrorIs(t, h.cmds.ApplyMove(9, network.MoveCommand{}), ErrUnknownPlayer)
}

func TestApplyMove_OneOrderForWholeSelection(t *testing.T) {
	h := newHarness()
	a := h.spawn(0, 1, 1)
	b := h.spawn(0, 2, 2)
	require.NoError(t, h.cmds.ApplySelect(0, network.SelectCommand{From: geom.Pt(0, 0, 0), To: geom.Pt(3, 0, 3)}))

	h.world.TickCount = 12
	target := geom.Pt(20, 0, 20)
	require.NoError(t, h.cmds.ApplyMove(0, network.MoveCommand{Target: target}))

	require.Len(t, h.sink.orders, 1)
	o := h.sink.orders[0]
	assert.Equal(t, []core.EntityID{a, b}, o.Units)
	assert.Equal(t, target, o.Target)
	assert.Equal(t, OrderMove, o.Kind)
	assert.Equal(t, uint64(12), o.Tick)
	assert.Equal(t, core.PlayerID(0), o.PlayerID)
}

func TestApplyMove_SkipsDestroyedUnits(t *testing.T) {
	h := newHarness()
	a := h.spawn(0, 1, 1)
	b := h.spawn(0, 2, 2)
	require.NoError(t, h.cmds.ApplySelect(0, network.SelectCommand{From: geom.Pt(0, 0, 0), To: geom.Pt(3, 0, 3)}))

	DespawnUnit(h.world, h.grid, h.events, a)
	require.NoError(t, h.cmds.ApplyMove(0, network.MoveCommand{Target: geom.Pt(9, 0, 9)}))
	require.Len(t, h.sink.orders, 1)
	assert.Equal(t, []core.EntityID{b}, h.sink.orders[0].Units)
}

func TestApplyMove_AttackResolver(t *testing.T) {
	h := newHarness()
	h.spawn(0, 1, 1)
	enemy := h.spawn(1, 9, 9)
	require.NoError(t, h.cmds.ApplySelect(0, network.SelectCommand{From: geom.Pt(0, 0, 0), To: geom.Pt(3, 0, 3)}))

	h.cmds.Attack = func(p *core.Player, target geom.Point3) (core.EntityID, bool) {
		return enemy, target == geom.Pt(9, 0, 9)
	}
	require.NoError(t, h.cmds.ApplyMove(0, network.MoveCommand{Target: geom.Pt(9, 0, 9)}))
	require.NoError(t, h.cmds.ApplyMove(0, network.MoveCommand{Target: geom.Pt(4, 0, 4)}))

	require.Len(t, h.sink.orders, 2)
	assert.Equal(t, OrderAttack, h.sink.orders[0].Kind)
	assert.Equal(t, enemy, h.sink.orders[0].Victim)
	assert.Equal(t, OrderMove, h.sink.orders[1].Kind)
}

func TestRegister_HandlersRunThroughDispatcher(t *testing.T) {
	h := newHarness()
	a := h.spawn(0, 1, 1)
	d, err := network.NewDispatcher(nil, nil, nil)
	require.NoError(t, err)
	h.cmds.Register(d)

	sel, err := network.Encode(network.SelectCommand{From: geom.Pt(0, 0, 0), To: geom.Pt(3, 0, 3)})
	require.NoError(t, err)
	mv, err := network.Encode(network.MoveCommand{Target: geom.Pt(8, 0, 8)})
	require.NoError(t, err)

	assert.True(t, d.Deliver(network.Envelope{PlayerID: 0, Handler: network.HandlerSelect, Payload: sel}))
	assert.True(t, d.Deliver(network.Envelope{PlayerID: 0, Handler: network.HandlerMove, Payload: mv}))
	assert.False(t, d.Deliver(network.Envelope{PlayerID: 5, Handler: network.HandlerMove, Payload: mv}))

	require.Len(t, h.sink.orders, 1)
	assert.Equal(t, []core.EntityID{a}, h.sink.orders[0].Units)
}

func TestMoveOrders_SetsTargets(t *testing.T) {
	w := core.NewWorld(20)
	events := core.NewEventBus()
	mover := SpawnUnit(w, nil, UnitSpec{Owner: 0, Kind: 1, Speed: geom.One})
	fixed := SpawnUnit(w, nil, UnitSpec{Owner: 0, Kind: 1})

	m := &MoveOrders{World: w, Events: events}
	m.IssueMove(MoveOrder{Units: []core.EntityID{mover, fixed}, Target: geom.Pt(4, 0, 0)})

	mov := w.Get(mover, core.CompMovable).(*core.Movable)
	assert.True(t, mov.Moving)
	assert.Equal(t, geom.Pt(4, 0, 0), mov.Target)
	assert.False(t, w.Has(fixed, core.CompMovable))
	assert.Len(t, m.Issued, 1)
	assert.Equal(t, 1, events.Pending())

	var ordered []MoveOrder
	events.On(core.EvtUnitMoveOrder, func(e core.Event) { ordered = append(ordered, e.Payload.(MoveOrder)) })
	events.Dispatch()
	require.Len(t, ordered, 1)
	assert.Equal(t, geom.Pt(4, 0, 0), ordered[0].Target)
}

func TestMoveOrders_KeepsRecentAndHashesAll(t *testing.T) {
	w := core.NewWorld(20)
	a := &MoveOrders{World: w, Keep: 3}
	b := &MoveOrders{World: w}
	assert.Zero(t, a.Sum())

	for i := 0; i < 10; i++ {
		o := MoveOrder{Tick: uint64(i), Target: geom.Pt(i, 0, 0)}
		a.IssueMove(o)
		b.IssueMove(o)
	}
	require.Len(t, a.Issued, 3)
	assert.Equal(t, uint64(7), a.Issued[0].Tick)
	assert.Equal(t, uint64(9), a.Issued[2].Tick)
	assert.Len(t, b.Issued, 10)

	// the hash covers every order, not just the kept ones
	assert.Equal(t, uint64(10), a.Count())
	assert.Equal(t, a.Sum(), b.Sum())

	b.IssueMove(MoveOrder{Tick: 10})
	assert.NotEqual(t, a.Sum(), b.Sum())
}

func TestStep(t *testing.T) {
	next, arrived := Step(geom.Pt(0, 2, 0), geom.Pt(10, 0, 0), geom.One)
	assert.False(t, arrived)
	assert.Equal(t, geom.Pt(1, 2, 0), next)

	next, arrived = Step(geom.Pt(0, 0, 0), geom.Pt(3, 0, 4), 5*geom.One)
	assert.True(t, arrived)
	assert.Equal(t, geom.Pt(3, 0, 4), next)

	next, _ = Step(geom.Pt(0, 0, 0), geom.Pt(30, 0, 40), 5*geom.One)
	assert.Equal(t, geom.Pt(3, 0, 4), next)
}

func TestMovementSystem_ArrivesAndReindexes(t *testing.T) {
	w := core.NewWorld(20)
	grid := spatial.NewGrid(geom.One)
	events := core.NewEventBus()
	w.AddSystem(&MovementSystem{Index: grid, Events: events})

	id := SpawnUnit(w, grid, UnitSpec{Owner: 0, Kind: 1, Speed: geom.One})
	(&MoveOrders{World: w}).IssueMove(MoveOrder{Units: []core.EntityID{id}, Target: geom.Pt(3, 0, 0)})

	var arrived []core.EntityID
	events.On(core.EvtUnitArrived, func(e core.Event) { arrived = append(arrived, e.Payload.(core.EntityID)) })
	for i := 0; i < 5; i++ {
		w.Tick()
	}
	events.Dispatch()

	pos := w.Get(id, core.CompPosition).(*core.Position)
	assert.Equal(t, geom.Pt(3, 0, 0), pos.Point3)
	assert.Equal(t, []core.EntityID{id}, arrived)
	all := spatial.Filter{Scope: core.SlotBit(0)}
	assert.Equal(t, []core.EntityID{id}, grid.QueryNearest(geom.Pt(3, 0, 0), 0, 0, all))
}
