package systems

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/selection"
)

// ErrUnknownPlayer is returned for a command whose player is not in the match.
// It happens legitimately for a disconnected player's in-flight commands.
var ErrUnknownPlayer = errors.New("unknown player")

// OrderKind distinguishes plain moves from attack moves
type OrderKind uint8

const (
	OrderMove OrderKind = iota
	OrderAttack
)

// MoveOrder is one order addressed to a whole selection at once
type MoveOrder struct {
	Tick     uint64
	PlayerID core.PlayerID
	Kind     OrderKind
	Units    []core.EntityID
	Target   geom.Point3
	Victim   core.EntityID // set for OrderAttack
}

// MoveSink receives movement orders. Issuing is fire and forget.
type MoveSink interface {
	IssueMove(order MoveOrder)
}

// AttackResolver decides whether a move target should become an attack order.
// Leave it nil for plain move semantics.
type AttackResolver func(player *core.Player, target geom.Point3) (core.EntityID, bool)

// Commands applies delivered select and move commands to the simulation
type Commands struct {
	World    *core.World
	Players  *core.PlayerManager
	Resolver *selection.Resolver
	Groups   *selection.Manager
	Sink     MoveSink
	Events   *core.EventBus
	Attack   AttackResolver
	log      *zap.SugaredLogger
}

// NewCommands wires the command handlers
func NewCommands(world *core.World, players *core.PlayerManager, resolver *selection.Resolver,
	groups *selection.Manager, sink MoveSink, events *core.EventBus, log *zap.SugaredLogger) *Commands {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Commands{
		World:    world,
		Players:  players,
		Resolver: resolver,
		Groups:   groups,
		Sink:     sink,
		Events:   events,
		log:      log,
	}
}

// Register binds the select and move handlers on d
func (c *Commands) Register(d *network.Dispatcher, opts ...network.Option) {
	d.Register(network.HandlerSelect, func(p core.PlayerID, cmd network.Command) error {
		sel, ok := cmd.(network.SelectCommand)
		if !ok {
			return fmt.Errorf("select handler got %T", cmd)
		}
		return c.ApplySelect(p, sel)
	}, opts...)
	d.Register(network.HandlerMove, func(p core.PlayerID, cmd network.Command) error {
		mv, ok := cmd.(network.MoveCommand)
		if !ok {
			return fmt.Errorf("move handler got %T", cmd)
		}
		return c.ApplyMove(p, mv)
	}, opts...)
}

// ApplySelect resolves the command's area and folds it into the player's
// selection.
func (c *Commands) ApplySelect(pid core.PlayerID, cmd network.SelectCommand) error {
	player := c.Players.GetPlayer(pid)
	if player == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, pid)
	}
	incoming := c.Resolver.Resolve(player, cmd.From, cmd.To)
	c.Groups.Apply(pid, incoming, cmd.Mode)
	if c.Events != nil {
		c.Events.Emit(core.Event{Type: core.EvtSelectionChanged, Tick: c.tick(), Payload: pid})
	}
	return nil
}

// ApplyMove issues one order to the player's whole selection. An empty
// selection is a no-op.
func (c *Commands) ApplyMove(pid core.PlayerID, cmd network.MoveCommand) error {
	player := c.Players.GetPlayer(pid)
	if player == nil {
		return fmt.Errorf("%w: %d", ErrUnknownPlayer, pid)
	}
	units := c.Groups.Selection(pid)
	if len(units) == 0 {
		c.log.Debugw("move with empty selection", "player", pid)
		return nil
	}
	order := MoveOrder{
		Tick:     c.tick(),
		PlayerID: pid,
		Kind:     OrderMove,
		Units:    units,
		Target:   cmd.Target,
	}
	if c.Attack != nil {
		if victim, ok := c.Attack(player, cmd.Target); ok {
			order.Kind = OrderAttack
			order.Victim = victim
		}
	}
	c.Sink.IssueMove(order)
	return nil
}

func (c *Commands) tick() uint64 {
	if c.World == nil {
		return 0
	}
	return c.World.TickCount
}
