package selection

import (
	"sort"

	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/core"
)

// Liveness answers whether a unit still exists
type Liveness interface {
	Alive(id core.EntityID) bool
}

// Manager owns every player's persistent selection group. It is the only
// writer of those groups.
type Manager struct {
	groups map[core.PlayerID]*Group
	live   Liveness
	log    *zap.SugaredLogger
}

// NewManager creates an empty manager; live is used to prune destroyed units
func NewManager(live Liveness, log *zap.SugaredLogger) *Manager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Manager{
		groups: make(map[core.PlayerID]*Group),
		live:   live,
		log:    log,
	}
}

// Apply combines incoming into the player's persistent group according to mode
func (m *Manager) Apply(player core.PlayerID, incoming *Group, mode Mode) {
	cur := m.group(player)
	switch mode {
	case Remove:
		for _, id := range incoming.Units() {
			cur.remove(id)
		}
	case Add:
		for _, id := range incoming.Units() {
			cur.add(id)
		}
	default:
		m.groups[player] = NewGroup(incoming.Units()...)
	}
	m.log.Debugw("selection applied", "player", player, "mode", mode, "incoming", incoming.Len(), "size", m.groups[player].Len())
}

// ApplyModifiers is Apply with the raw modifier flags; remove takes precedence
func (m *Manager) ApplyModifiers(player core.PlayerID, incoming *Group, add, remove bool) {
	m.Apply(player, incoming, ModeFromModifiers(add, remove))
}

// Selection returns the player's live selection in order. Destroyed units are
// pruned from the stored group before it is read.
func (m *Manager) Selection(player core.PlayerID) []core.EntityID {
	g, ok := m.groups[player]
	if !ok {
		return nil
	}
	if m.live != nil {
		if n := g.retain(m.live.Alive); n > 0 {
			m.log.Debugw("pruned stale units", "player", player, "count", n)
		}
	}
	return g.Units()
}

// Peek returns the player's live selection without touching the stored
// group. Presentation code reads through Peek.
func (m *Manager) Peek(player core.PlayerID) []core.EntityID {
	g, ok := m.groups[player]
	if !ok {
		return nil
	}
	units := g.Units()
	if m.live == nil {
		return units
	}
	out := units[:0]
	for _, id := range units {
		if m.live.Alive(id) {
			out = append(out, id)
		}
	}
	return out
}

// Forget drops a player's group, e.g. when the player leaves
func (m *Manager) Forget(player core.PlayerID) {
	delete(m.groups, player)
}

// Players returns the ids holding a group, ascending
func (m *Manager) Players() []core.PlayerID {
	ids := make([]core.PlayerID, 0, len(m.groups))
	for id := range m.groups {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func (m *Manager) group(player core.PlayerID) *Group {
	g, ok := m.groups[player]
	if !ok {
		g = NewGroup()
		m.groups[player] = g
	}
	return g
}
