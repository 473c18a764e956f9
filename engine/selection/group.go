// Package selection resolves which units a select command picks and keeps
// each player's persistent selection.
package selection

import "github.com/1siamBot/rts-orders/engine/core"

// Group is an ordered set of units: insertion order is kept and no unit
// appears twice.
type Group struct {
	units []core.EntityID
	index map[core.EntityID]int
}

// NewGroup builds a group from ids, dropping repeats
func NewGroup(ids ...core.EntityID) *Group {
	g := &Group{index: make(map[core.EntityID]int, len(ids))}
	for _, id := range ids {
		g.add(id)
	}
	return g
}

// Len returns the number of units
func (g *Group) Len() int {
	if g == nil {
		return 0
	}
	return len(g.units)
}

// Empty reports whether the group holds no units
func (g *Group) Empty() bool { return g.Len() == 0 }

// Contains reports whether id is in the group
func (g *Group) Contains(id core.EntityID) bool {
	if g == nil {
		return false
	}
	_, ok := g.index[id]
	return ok
}

// Units returns a copy of the members in order
func (g *Group) Units() []core.EntityID {
	if g == nil {
		return nil
	}
	out := make([]core.EntityID, len(g.units))
	copy(out, g.units)
	return out
}

func (g *Group) add(id core.EntityID) bool {
	if _, ok := g.index[id]; ok {
		return false
	}
	g.index[id] = len(g.units)
	g.units = append(g.units, id)
	return true
}

func (g *Group) remove(id core.EntityID) bool {
	i, ok := g.index[id]
	if !ok {
		return false
	}
	copy(g.units[i:], g.units[i+1:])
	g.units = g.units[:len(g.units)-1]
	delete(g.index, id)
	for j := i; j < len(g.units); j++ {
		g.index[g.units[j]] = j
	}
	return true
}

// retain keeps only the units for which keep returns true; returns how many were dropped
func (g *Group) retain(keep func(core.EntityID) bool) int {
	kept := g.units[:0]
	for _, id := range g.units {
		if keep(id) {
			kept = append(kept, id)
		} else {
			delete(g.index, id)
		}
	}
	dropped := len(g.units) - len(kept)
	g.units = kept
	if dropped > 0 {
		for i, id := range g.units {
			g.index[id] = i
		}
	}
	return dropped
}
