package sim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/replaydb"
	"github.com/1siamBot/rts-orders/engine/selection"
)

func newDemo(t *testing.T, session *core.Session, outbox network.Outbox) *Replica {
	t.Helper()
	r, err := NewReplica(DemoLobby("test").Roster(), session, outbox, DefaultOptions(), nil)
	require.NoError(t, err)
	SpawnDemo(r)
	return r
}

func env(t *testing.T, tick uint64, seq uint32, pid core.PlayerID, c network.Command) network.Envelope {
	t.Helper()
	payload, err := network.Encode(c)
	require.NoError(t, err)
	return network.Envelope{Tick: tick, Seq: seq, PlayerID: pid, Handler: network.HandlerFor(c), Payload: payload}
}

func script(t *testing.T) []network.Envelope {
	return []network.Envelope{
		// player 0 box-selects the infantry and tanks
		env(t, 1, 0, 0, network.SelectCommand{From: geom.Pt(9, 0, 9), To: geom.Pt(13, 0, 13)}),
		// player 1 clicks its infantry
		env(t, 1, 0, 1, network.SelectCommand{From: geom.PtF(50.5, 0, 50.5), To: geom.PtF(50.5, 0, 50.5)}),
		env(t, 3, 1, 0, network.MoveCommand{Target: geom.Pt(20, 0, 20)}),
		// drop the tanks, keep the infantry
		env(t, 5, 2, 0, network.SelectCommand{From: geom.Pt(9, 0, 11), To: geom.Pt(13, 0, 13), Mode: selection.Remove}),
		env(t, 5, 1, 1, network.MoveCommand{Target: geom.Pt(40, 0, 40)}),
		env(t, 8, 3, 0, network.MoveCommand{Target: geom.Pt(5, 0, 25)}),
	}
}

func TestReplica_DemoSetup(t *testing.T) {
	r := newDemo(t, nil, nil)
	assert.Equal(t, 10, r.World.EntityCount())
	assert.Equal(t, 10, r.Grid.Len())
	require.NotNil(t, r.Players.GetPlayer(1))
	assert.Equal(t, core.SlotBit(1), r.Players.GetPlayer(1).Scope)
}

func TestReplica_ScriptOutcome(t *testing.T) {
	r := newDemo(t, nil, nil)
	Playback(r, script(t), 0)

	// infantry are ids 1-3, tanks 4-5; player 1's click picks both infantry
	assert.Equal(t, []core.EntityID{1, 2, 3}, r.Groups.Selection(0))
	assert.Equal(t, []core.EntityID{7, 8}, r.Groups.Selection(1))

	require.Len(t, r.Orders.Issued, 3)
	assert.Equal(t, []core.EntityID{1, 2, 3, 4, 5}, r.Orders.Issued[0].Units)
	assert.Equal(t, uint64(3), r.Orders.Issued[0].Tick)
	assert.Equal(t, core.PlayerID(1), r.Orders.Issued[1].PlayerID)
	assert.Equal(t, []core.EntityID{1, 2, 3}, r.Orders.Issued[2].Units)
}

func TestReplica_SameInputSameDigest(t *testing.T) {
	a := newDemo(t, nil, nil)
	b := newDemo(t, nil, nil)
	assert.Equal(t, a.Digest(), b.Digest())

	Playback(a, script(t), 100)
	Playback(b, script(t), 100)
	assert.Equal(t, a.World.TickCount, b.World.TickCount)
	assert.Equal(t, a.Digest(), b.Digest())

	c := newDemo(t, nil, nil)
	Playback(c, script(t)[:5], 100)
	assert.NotEqual(t, a.Digest(), c.Digest())
}

func TestReplica_UnitsReachTarget(t *testing.T) {
	r := newDemo(t, nil, nil)
	Playback(r, script(t)[:3], 400)
	for _, id := range []core.EntityID{1, 2, 3, 4, 5} {
		pos := r.World.Get(id, core.CompPosition).(*core.Position)
		assert.Equal(t, geom.Pt(20, 0, 20), pos.Point3, "unit %d", id)
	}
}

func TestReplica_DropsCommandsOfDepartedPlayer(t *testing.T) {
	r := newDemo(t, nil, nil)
	var dropped, left int
	r.Events.On(core.EvtCommandDropped, func(core.Event) { dropped++ })
	r.Events.On(core.EvtPlayerLeft, func(core.Event) { left++ })

	r.Step([]network.Envelope{env(t, 0, 0, 1, network.SelectCommand{From: geom.Pt(49, 0, 49), To: geom.Pt(54, 0, 54)})})
	require.NotEmpty(t, r.Groups.Selection(1))

	r.PlayerLeft(1)
	r.PlayerLeft(1)
	r.Step([]network.Envelope{env(t, 1, 1, 1, network.MoveCommand{Target: geom.Pt(0, 0, 0)})})

	assert.Nil(t, r.Groups.Selection(1))
	assert.Empty(t, r.Orders.Issued)
	assert.Equal(t, 1, dropped)
	assert.Equal(t, 1, left)
}

func TestReplica_LocalCommandsRoundTripThroughLockstep(t *testing.T) {
	session := core.NewSession(0)
	lm := network.NewLockstepManager(2, nil)
	r := newDemo(t, session, lm)
	loop := core.NewGameLoop(r.World, func(tick uint64) { r.Apply(lm.CommandsForTick(tick)) })

	r.Dispatcher.Emit(network.SelectCommand{From: geom.Pt(9, 0, 9), To: geom.Pt(13, 0, 13)})
	assert.Empty(t, r.Groups.Selection(0), "nothing applies before the scheduled tick")

	for i := 0; i < 3; i++ {
		loop.RunTick()
	}
	assert.Equal(t, []core.EntityID{1, 2, 3, 4, 5}, r.Groups.Selection(0))

	// switching the local player changes the issuing identity only
	session.SetLocalPlayer(1)
	r.Dispatcher.Emit(network.SelectCommand{From: geom.Pt(9, 0, 9), To: geom.Pt(13, 0, 13)})
	for i := 0; i < 3; i++ {
		loop.RunTick()
	}
	assert.Empty(t, r.Groups.Selection(1))
	assert.Equal(t, []core.EntityID{1, 2, 3, 4, 5}, r.Groups.Selection(0))
}

func TestReplica_ArchivedMatchReplaysIdentically(t *testing.T) {
	archive, err := replaydb.Open("")
	require.NoError(t, err)
	defer archive.Close()

	session := core.NewSession(0)
	rec, err := archive.Begin(session.MatchID)
	require.NoError(t, err)

	live := newDemo(t, nil, nil)
	live.AddRecorder(rec)
	Playback(live, script(t), 50)

	cmds, err := archive.Load(session.MatchID)
	require.NoError(t, err)
	require.Len(t, cmds, len(script(t)))

	replayed := newDemo(t, nil, nil)
	Playback(replayed, cmds, 50)
	assert.Equal(t, live.Digest(), replayed.Digest())
}
