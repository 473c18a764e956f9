package core

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSystem struct {
	prio  int
	calls *[]int
}

func (s countingSystem) Update(*World) { *s.calls = append(*s.calls, s.prio) }
func (s countingSystem) Priority() int { return s.prio }

func TestWorld_SpawnIDsArePerWorld(t *testing.T) {
	a, b := NewWorld(20), NewWorld(20)
	for i := 0; i < 3; i++ {
		assert.Equal(t, a.Spawn(), b.Spawn())
	}
	assert.Equal(t, EntityID(4), a.Spawn())
}

func TestWorld_QueryIsSorted(t *testing.T) {
	w := NewWorld(20)
	for i := 0; i < 50; i++ {
		id := w.Spawn()
		w.Attach(id, &Position{})
		if i%2 == 0 {
			w.Attach(id, &Selectable{Kind: 1})
		}
	}
	ids := w.Query(CompPosition, CompSelectable)
	require.Len(t, ids, 25)
	for i := 1; i < len(ids); i++ {
		assert.Less(t, ids[i-1], ids[i])
	}
}

func TestWorld_DestroyIsDeferred(t *testing.T) {
	w := NewWorld(20)
	id := w.Spawn()
	w.Attach(id, &Position{})

	w.Destroy(id)
	assert.False(t, w.Alive(id))
	assert.True(t, w.Has(id, CompPosition))
	assert.Equal(t, 1, w.EntityCount())

	w.Tick()
	assert.Nil(t, w.Get(id, CompPosition))
	assert.Equal(t, 0, w.EntityCount())
	assert.Equal(t, uint64(1), w.TickCount)
}

func TestWorld_SystemsRunByPriority(t *testing.T) {
	w := NewWorld(20)
	var calls []int
	w.AddSystem(countingSystem{prio: 30, calls: &calls})
	w.AddSystem(countingSystem{prio: 10, calls: &calls})
	w.AddSystem(countingSystem{prio: 20, calls: &calls})
	w.Tick()
	assert.Equal(t, []int{10, 20, 30}, calls)
}

func TestPlayerManager_DefaultScope(t *testing.T) {
	pm := NewPlayerManager()
	pm.AddPlayer(&Player{ID: 2, TeamID: 1})
	pm.AddPlayer(&Player{ID: 0, TeamID: 1, Scope: SlotBit(0) | SlotBit(2)})

	assert.Equal(t, PlayerID(0), pm.Players[0].ID)
	assert.Equal(t, SlotBit(2), pm.GetPlayer(2).Scope)
	assert.True(t, pm.GetPlayer(0).Scope.Includes(2))
	assert.False(t, pm.GetPlayer(2).Scope.Includes(0))
	assert.True(t, pm.AreAllies(0, 2))

	pm.RemovePlayer(2)
	assert.Nil(t, pm.GetPlayer(2))
	assert.False(t, pm.AreAllies(0, 2))
}

func TestSlotBit_OutOfRange(t *testing.T) {
	assert.Equal(t, ScopeMask(0), SlotBit(-1))
	assert.Equal(t, ScopeMask(0), SlotBit(64))
	assert.False(t, ScopeMask(^uint64(0)).Includes(64))
}

func TestEventBus_DispatchInOrder(t *testing.T) {
	eb := NewEventBus()
	var got []uint64
	eb.On(EvtUnitArrived, func(e Event) { got = append(got, e.Tick) })

	eb.Emit(Event{Type: EvtUnitArrived, Tick: 1})
	eb.Emit(Event{Type: EvtUnitCreated, Tick: 2})
	eb.Emit(Event{Type: EvtUnitArrived, Tick: 3})
	assert.Equal(t, 3, eb.Pending())

	eb.Dispatch()
	assert.Equal(t, []uint64{1, 3}, got)
	assert.Equal(t, 0, eb.Pending())
}

func TestSession_SetLocalPlayer(t *testing.T) {
	s := NewSession(0)
	assert.NotEqual(t, uuid.Nil, s.MatchID)

	assert.Equal(t, PlayerID(0), s.SetLocalPlayer(1))
	assert.Equal(t, PlayerID(1), s.LocalPlayer())
	assert.Equal(t, PlayerID(1), s.SetLocalPlayer(1))
	assert.Equal(t, 1, s.Switches())

	match := uuid.New()
	assert.Equal(t, match, JoinSession(match, 3).MatchID)
}

func TestGameLoop_StepBeforeWorldTick(t *testing.T) {
	w := NewWorld(10)
	var seen []uint64
	gl := NewGameLoop(w, func(tick uint64) {
		seen = append(seen, tick)
		assert.Equal(t, tick, w.TickCount)
	})
	start := time.Unix(0, 0)
	clock := start
	gl.now = func() time.Time { return clock }
	gl.Play()

	clock = start.Add(250 * time.Millisecond)
	gl.Update()
	assert.Equal(t, []uint64{0, 1}, seen)
	assert.Equal(t, uint64(2), gl.CurrentTick())

	gl.Pause()
	clock = clock.Add(time.Second)
	gl.Update()
	assert.Equal(t, uint64(2), gl.CurrentTick())
}

func TestGameLoop_GateHoldsTick(t *testing.T) {
	w := NewWorld(10)
	open := uint64(1)
	gl := NewGameLoop(w, nil)
	gl.Gate = func(tick uint64) bool { return tick < open }
	start := time.Unix(0, 0)
	clock := start
	gl.now = func() time.Time { return clock }
	gl.Play()

	clock = start.Add(250 * time.Millisecond)
	gl.Update()
	assert.Equal(t, uint64(1), gl.CurrentTick())
	assert.Equal(t, uint64(1), gl.Stalls)

	// the held tick runs on the next frame once input is in
	open = 2
	gl.Update()
	assert.Equal(t, uint64(2), gl.CurrentTick())
}
