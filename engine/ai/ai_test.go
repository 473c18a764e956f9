package ai

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/selection"
	"github.com/1siamBot/rts-orders/engine/systems"
)

type outbox struct {
	envs []network.Envelope
}

func (o *outbox) Submit(env network.Envelope) { o.envs = append(o.envs, env) }

func (o *outbox) commands(t *testing.T) []network.Command {
	t.Helper()
	var out []network.Command
	for _, e := range o.envs {
		c, err := network.Decode(e.Payload)
		require.NoError(t, err)
		assert.Equal(t, network.HandlerFor(c), e.Handler)
		out = append(out, c)
	}
	return out
}

func setup() (*core.World, *core.PlayerManager) {
	w := core.NewWorld(20)
	pm := core.NewPlayerManager()
	pm.AddPlayer(&core.Player{ID: 0, TeamID: 0})
	pm.AddPlayer(&core.Player{ID: 1, TeamID: 1, IsAI: true})
	systems.SpawnUnit(w, nil, systems.UnitSpec{Owner: 1, Kind: 1, Pos: geom.Pt(10, 0, 10), Speed: geom.One})
	systems.SpawnUnit(w, nil, systems.UnitSpec{Owner: 1, Kind: 1, Pos: geom.Pt(12, 0, 14), Speed: geom.One})
	systems.SpawnUnit(w, nil, systems.UnitSpec{Owner: 0, Kind: 1, Pos: geom.Pt(40, 0, 40), Speed: geom.One})
	return w, pm
}

func TestAIController_SelectsOwnUnitsThenMoves(t *testing.T) {
	w, pm := setup()
	out := &outbox{}
	ai := NewAIController(1, DiffMedium, out, 7, nil)

	ai.Think(w, pm)
	cmds := out.commands(t)
	require.Len(t, cmds, 2)
	for _, e := range out.envs {
		assert.Equal(t, core.PlayerID(1), e.PlayerID)
	}

	sel := cmds[0].(network.SelectCommand)
	assert.Equal(t, selection.Replace, sel.Mode)
	q := geom.RectFromCorners(sel.From, sel.To)
	assert.True(t, q.Contains(geom.Pt(10, 0, 10)))
	assert.True(t, q.Contains(geom.Pt(12, 0, 14)))
	assert.False(t, q.Contains(geom.Pt(40, 0, 40)))

	// regroup near the centroid (11, 12)
	mv := cmds[1].(network.MoveCommand)
	assert.InDelta(t, 11, geom.ToFloat(mv.Target.X), 3)
	assert.InDelta(t, 12, geom.ToFloat(mv.Target.Z), 3)
}

func TestAIController_AttackWave(t *testing.T) {
	w, pm := setup()
	out := &outbox{}
	ai := NewAIController(1, DiffHard, out, 7, nil)

	ai.Think(w, pm)
	ai.Think(w, pm)
	assert.Equal(t, 1, ai.Waves())

	cmds := out.commands(t)
	require.Len(t, cmds, 4)
	mv := cmds[3].(network.MoveCommand)
	assert.InDelta(t, 40, geom.ToFloat(mv.Target.X), 2)
	assert.InDelta(t, 40, geom.ToFloat(mv.Target.Z), 2)
}

func TestAIController_SameSeedSameCommands(t *testing.T) {
	w, pm := setup()
	a, b := &outbox{}, &outbox{}
	ca := NewAIController(1, DiffEasy, a, 42, nil)
	cb := NewAIController(1, DiffEasy, b, 42, nil)
	for tick := uint64(0); tick <= 800; tick++ {
		ca.Update(tick, w, pm)
		cb.Update(tick, w, pm)
	}
	require.NotEmpty(t, a.envs)
	assert.Equal(t, a.envs, b.envs)
}

func TestAIController_IdleWithoutUnitsOrPlayer(t *testing.T) {
	w, pm := setup()
	out := &outbox{}
	NewAIController(3, DiffMedium, out, 1, nil).Think(w, pm)

	pm.GetPlayer(1).Defeated = true
	NewAIController(1, DiffMedium, out, 1, nil).Think(w, pm)
	assert.Empty(t, out.envs)
}
