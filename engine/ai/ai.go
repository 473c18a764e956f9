// Package ai drives computer players by issuing the same select and move
// commands a human would, through the lockstep outbox.
package ai

import (
	"math/rand"

	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/selection"
)

// Difficulty controls AI behavior
type Difficulty int

const (
	DiffEasy Difficulty = iota
	DiffMedium
	DiffHard
)

// AIController manages one AI player. It runs on a single peer only; the
// commands it submits reach every replica through lockstep.
type AIController struct {
	PlayerID   core.PlayerID
	Difficulty Difficulty

	out           network.Outbox
	rng           *rand.Rand
	log           *zap.SugaredLogger
	thinkInterval uint64 // ticks
	attackEvery   int    // thinks between attack waves
	thinks        int
	waveCount     int
}

func NewAIController(playerID core.PlayerID, diff Difficulty, out network.Outbox, seed int64, log *zap.SugaredLogger) *AIController {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	interval, attack := uint64(100), 3
	switch diff {
	case DiffEasy:
		interval, attack = 160, 4
	case DiffHard:
		interval, attack = 60, 2
	}
	return &AIController{
		PlayerID:      playerID,
		Difficulty:    diff,
		out:           out,
		rng:           rand.New(rand.NewSource(seed)),
		log:           log,
		thinkInterval: interval,
		attackEvery:   attack,
	}
}

// Waves returns how many attack waves were launched
func (ai *AIController) Waves() int { return ai.waveCount }

// Update runs the controller for one tick. It only reads the world.
func (ai *AIController) Update(tick uint64, w *core.World, pm *core.PlayerManager) {
	if tick == 0 || tick%ai.thinkInterval != 0 {
		return
	}
	ai.Think(w, pm)
}

// Think is the main AI decision loop: gather own units, and every few thinks
// send them at the nearest enemy; otherwise regroup around their centroid.
func (ai *AIController) Think(w *core.World, pm *core.PlayerManager) {
	player := pm.GetPlayer(ai.PlayerID)
	if player == nil || player.Defeated {
		return
	}
	mine := ai.ownUnits(w)
	if len(mine) == 0 {
		return
	}
	ai.thinks++

	lo, hi := mine[0], mine[0]
	var sumX, sumZ int64
	for _, p := range mine {
		lo.X, lo.Z = min(lo.X, p.X), min(lo.Z, p.Z)
		hi.X, hi.Z = max(hi.X, p.X), max(hi.Z, p.Z)
		sumX += int64(p.X)
		sumZ += int64(p.Z)
	}
	n := int64(len(mine))
	centroid := geom.Point3{X: geom.Scalar(sumX / n), Z: geom.Scalar(sumZ / n)}

	// box-select everything we own, padded so edge units are inside
	pad := geom.One / 2
	ai.issue(network.SelectCommand{
		From: geom.Point3{X: lo.X - pad, Z: lo.Z - pad},
		To:   geom.Point3{X: hi.X + pad, Z: hi.Z + pad},
		Mode: selection.Replace,
	})

	if ai.thinks%ai.attackEvery == 0 {
		if target, ok := ai.nearestEnemy(w, pm, centroid); ok {
			ai.waveCount++
			ai.log.Infow("ai attack wave", "player", ai.PlayerID, "wave", ai.waveCount, "target", target)
			ai.issue(network.MoveCommand{Target: ai.jitter(target, 2)})
			return
		}
	}
	ai.issue(network.MoveCommand{Target: ai.jitter(centroid, 3)})
}

func (ai *AIController) issue(c network.Command) {
	payload, err := network.Encode(c)
	if err != nil {
		ai.log.Errorw("ai command not encodable", "error", err)
		return
	}
	ai.out.Submit(network.Envelope{
		PlayerID: ai.PlayerID,
		Handler:  network.HandlerFor(c),
		Payload:  payload,
	})
}

// jitter offsets p by up to spread whole units on each ground axis
func (ai *AIController) jitter(p geom.Point3, spread int) geom.Point3 {
	p.X += geom.Scalar(ai.rng.Intn(2*spread+1)-spread) * geom.One
	p.Z += geom.Scalar(ai.rng.Intn(2*spread+1)-spread) * geom.One
	return p
}

func (ai *AIController) ownUnits(w *core.World) []geom.Point3 {
	var out []geom.Point3
	for _, id := range w.Query(core.CompPosition, core.CompOwner, core.CompSelectable) {
		own := w.Get(id, core.CompOwner).(*core.Owner)
		if own.PlayerID != ai.PlayerID || !w.Alive(id) {
			continue
		}
		out = append(out, w.Get(id, core.CompPosition).(*core.Position).Point3)
	}
	return out
}

func (ai *AIController) nearestEnemy(w *core.World, pm *core.PlayerManager, from geom.Point3) (geom.Point3, bool) {
	var best geom.Point3
	bestD := int64(-1)
	for _, id := range w.Query(core.CompPosition, core.CompOwner) {
		own := w.Get(id, core.CompOwner).(*core.Owner)
		if own.PlayerID == ai.PlayerID || pm.AreAllies(ai.PlayerID, own.PlayerID) || !w.Alive(id) {
			continue
		}
		pos := w.Get(id, core.CompPosition).(*core.Position).Point3
		if d := geom.GroundDistSq(from, pos); bestD < 0 || d < bestD {
			best, bestD = pos, d
		}
	}
	return best, bestD >= 0
}
