package sim

import (
	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/systems"
)

// Unit kinds used by the demo skirmish
const (
	KindInfantry core.UnitKind = iota + 1
	KindTank
	KindHarvester
)

// DemoLobby is the two-player lobby the client and the replayer share
func DemoLobby(matchID string) *network.Lobby {
	l := network.NewLobby(matchID, "Player 1", "Demo Battlefield", 2, 7777)
	l.AddPlayer("Player 2", "Soviet", false)
	return l
}

// SpawnDemo places the opening units. Every replica must call it before the
// first tick so entity ids line up.
func SpawnDemo(r *Replica) {
	layout := []struct {
		owner core.PlayerID
		kind  core.UnitKind
		x, z  int
	}{
		{0, KindInfantry, 10, 10}, {0, KindInfantry, 11, 10}, {0, KindInfantry, 12, 10},
		{0, KindTank, 10, 12}, {0, KindTank, 11, 12},
		{0, KindHarvester, 14, 14},
		{1, KindInfantry, 50, 50}, {1, KindInfantry, 51, 50},
		{1, KindTank, 52, 52}, {1, KindTank, 53, 52},
	}
	for _, u := range layout {
		speed := geom.One / 8
		if u.kind == KindTank {
			speed = geom.One / 5
		}
		r.SpawnUnit(systems.UnitSpec{
			Owner: u.owner,
			Kind:  u.kind,
			Pos:   geom.Point3{X: geom.One*geom.Scalar(u.x) + geom.One/2, Z: geom.One*geom.Scalar(u.z) + geom.One/2},
			Speed: speed,
		})
	}
}
