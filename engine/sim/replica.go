// Package sim assembles one simulation replica: world, spatial index,
// selection state and the command handlers, fed by ordered envelopes.
package sim

import (
	"encoding/binary"
	"fmt"

	"github.com/cespare/xxhash/v2"
	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/selection"
	"github.com/1siamBot/rts-orders/engine/spatial"
	"github.com/1siamBot/rts-orders/engine/systems"
)

// Options tunes a replica. Every replica of a match must use the same values.
type Options struct {
	TickRate       float64
	PointRadius    geom.Scalar
	PointCap       int
	ClickEpsilonSq float64
	CellSize       geom.Scalar
}

// DefaultOptions returns the stock tuning
func DefaultOptions() Options {
	return Options{
		TickRate:       20,
		PointRadius:    geom.One,
		PointCap:       selection.DefaultPointCap,
		ClickEpsilonSq: selection.DefaultClickEpsilonSq,
		CellSize:       4 * geom.One,
	}
}

// Recorder receives every envelope a replica applies, in order
type Recorder interface {
	Record(env network.Envelope) error
}

// Replica is one deterministic execution of the match
type Replica struct {
	World      *core.World
	Players    *core.PlayerManager
	Events     *core.EventBus
	Grid       *spatial.Grid
	Groups     *selection.Manager
	Resolver   *selection.Resolver
	Orders     *systems.MoveOrders
	Commands   *systems.Commands
	Dispatcher *network.Dispatcher

	recorders []Recorder
	log       *zap.SugaredLogger
}

// NewReplica builds a replica. session and outbox may be nil for replicas
// that only apply commands (replay, authoritative re-simulation).
func NewReplica(players *core.PlayerManager, session *core.Session, outbox network.Outbox,
	opts Options, log *zap.SugaredLogger) (*Replica, error) {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	world := core.NewWorld(opts.TickRate)
	events := core.NewEventBus()
	grid := spatial.NewGrid(opts.CellSize)
	groups := selection.NewManager(world, log)

	resolver := selection.NewResolver(grid, world, opts.PointRadius)
	resolver.PointCap = opts.PointCap
	resolver.SetClickEpsilonSq(opts.ClickEpsilonSq)

	orders := &systems.MoveOrders{World: world, Events: events}
	cmds := systems.NewCommands(world, players, resolver, groups, orders, events, log)

	d, err := network.NewDispatcher(session, outbox, log)
	if err != nil {
		return nil, fmt.Errorf("dispatcher: %w", err)
	}
	cmds.Register(d, network.Logged())

	world.AddSystem(&systems.MovementSystem{Index: grid, Events: events})

	return &Replica{
		World:      world,
		Players:    players,
		Events:     events,
		Grid:       grid,
		Groups:     groups,
		Resolver:   resolver,
		Orders:     orders,
		Commands:   cmds,
		Dispatcher: d,
		log:        log,
	}, nil
}

// AddRecorder appends a sink for applied envelopes
func (r *Replica) AddRecorder(rec Recorder) {
	r.recorders = append(r.recorders, rec)
}

// SpawnUnit creates and indexes a unit
func (r *Replica) SpawnUnit(spec systems.UnitSpec) core.EntityID {
	id := systems.SpawnUnit(r.World, r.Grid, spec)
	r.Events.Emit(core.Event{Type: core.EvtUnitCreated, Tick: r.World.TickCount, Payload: id})
	return id
}

// Despawn removes a unit; selections drop it on their next read
func (r *Replica) Despawn(id core.EntityID) {
	systems.DespawnUnit(r.World, r.Grid, r.Events, id)
}

// Apply delivers one tick's envelopes in the given order. Recording happens
// for every envelope, applied or dropped, so a replay sees the same input.
func (r *Replica) Apply(cmds []network.Envelope) {
	for _, env := range cmds {
		for _, rec := range r.recorders {
			if err := rec.Record(env); err != nil {
				r.log.Warnw("record failed", "tick", env.Tick, "error", err)
			}
		}
		if !r.Dispatcher.Deliver(env) {
			r.Events.Emit(core.Event{Type: core.EvtCommandDropped, Tick: env.Tick, Payload: env})
		}
	}
}

// PlayerLeft removes a disconnected player. Their selection is discarded and
// commands still in flight for them are dropped on delivery.
func (r *Replica) PlayerLeft(pid core.PlayerID) {
	if r.Players.GetPlayer(pid) == nil {
		return
	}
	r.Players.RemovePlayer(pid)
	r.Groups.Forget(pid)
	r.Events.Emit(core.Event{Type: core.EvtPlayerLeft, Tick: r.World.TickCount, Payload: pid})
}

// Step applies cmds, advances the world one tick and flushes events
func (r *Replica) Step(cmds []network.Envelope) {
	r.Apply(cmds)
	r.World.Tick()
	r.Events.Dispatch()
}

// Digest hashes every persistent selection, the running hash of issued
// orders and every unit position. Equal digests mean the replicas agree.
func (r *Replica) Digest() uint64 {
	h := xxhash.New()
	var buf [8]byte
	put := func(v uint64) {
		binary.LittleEndian.PutUint64(buf[:], v)
		h.Write(buf[:])
	}
	putPoint := func(p geom.Point3) {
		put(uint64(uint32(p.X)))
		put(uint64(uint32(p.Y)))
		put(uint64(uint32(p.Z)))
	}

	put(r.World.TickCount)
	for _, pid := range r.Groups.Players() {
		sel := r.Groups.Selection(pid)
		put(uint64(pid))
		put(uint64(len(sel)))
		for _, id := range sel {
			put(uint64(id))
		}
	}
	put(r.Orders.Count())
	put(r.Orders.Sum())
	for _, id := range r.World.Query(core.CompPosition) {
		put(uint64(id))
		putPoint(r.World.Get(id, core.CompPosition).(*core.Position).Point3)
	}
	return h.Sum64()
}
