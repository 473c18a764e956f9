// Package spatial indexes unit ground positions for selection queries.
package spatial

import (
	"sort"
	"sync"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
)

// Filter scopes a query to the units a player may select
type Filter struct {
	Scope core.ScopeMask
	Kind  core.UnitKind // core.AnyKind matches all
}

func (f Filter) match(e *entry) bool {
	if !f.Scope.Includes(e.owner) {
		return false
	}
	return f.Kind == core.AnyKind || f.Kind == e.kind
}

// Index answers radius and quad queries. Implementations must return results
// in a deterministic order regardless of insertion history.
type Index interface {
	// QueryNearest returns up to maxCount units within radius of origin, nearest
	// first, ties broken by ascending id. maxCount <= 0 means no limit.
	QueryNearest(origin geom.Point3, radius geom.Scalar, maxCount int, f Filter) []core.EntityID
	// QueryInQuad returns every unit inside quad, ascending id.
	QueryInQuad(q geom.Quad, f Filter) []core.EntityID
	// KindOf returns the selectable kind recorded for a unit
	KindOf(id core.EntityID) (core.UnitKind, bool)
}

type cellKey struct {
	cx, cz int64
}

type entry struct {
	id    core.EntityID
	pos   geom.Point3
	owner core.PlayerID
	kind  core.UnitKind
}

// Grid is a sparse uniform grid over the ground plane.
// Reads take a shared lock so several players may query within one tick.
type Grid struct {
	mu       sync.RWMutex
	cellSize int64
	cells    map[cellKey][]*entry
	byID     map[core.EntityID]*entry
}

// NewGrid creates a grid with the given cell edge length
func NewGrid(cellSize geom.Scalar) *Grid {
	if cellSize <= 0 {
		cellSize = 4 * geom.One
	}
	return &Grid{
		cellSize: int64(cellSize),
		cells:    make(map[cellKey][]*entry),
		byID:     make(map[core.EntityID]*entry),
	}
}

func floorDiv(a, b int64) int64 {
	q := a / b
	if (a%b != 0) && ((a < 0) != (b < 0)) {
		q--
	}
	return q
}

func (g *Grid) keyOf(p geom.Point3) cellKey {
	return cellKey{cx: floorDiv(int64(p.X), g.cellSize), cz: floorDiv(int64(p.Z), g.cellSize)}
}

// Insert adds or replaces a unit
func (g *Grid) Insert(id core.EntityID, pos geom.Point3, owner core.PlayerID, kind core.UnitKind) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if old, ok := g.byID[id]; ok {
		g.unlink(old)
	}
	e := &entry{id: id, pos: pos, owner: owner, kind: kind}
	g.byID[id] = e
	k := g.keyOf(pos)
	g.cells[k] = append(g.cells[k], e)
}

// Move updates a unit's position. Unknown ids are ignored.
func (g *Grid) Move(id core.EntityID, pos geom.Point3) {
	g.mu.Lock()
	defer g.mu.Unlock()
	e, ok := g.byID[id]
	if !ok {
		return
	}
	if g.keyOf(e.pos) == g.keyOf(pos) {
		e.pos = pos
		return
	}
	g.unlink(e)
	e.pos = pos
	k := g.keyOf(pos)
	g.cells[k] = append(g.cells[k], e)
}

// Remove deletes a unit
func (g *Grid) Remove(id core.EntityID) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if e, ok := g.byID[id]; ok {
		g.unlink(e)
		delete(g.byID, id)
	}
}

// Len returns the number of indexed units
func (g *Grid) Len() int {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return len(g.byID)
}

// KindOf returns the selectable kind recorded for a unit
func (g *Grid) KindOf(id core.EntityID) (core.UnitKind, bool) {
	g.mu.RLock()
	defer g.mu.RUnlock()
	e, ok := g.byID[id]
	if !ok {
		return 0, false
	}
	return e.kind, true
}

// unlink swap-removes e from its cell; caller holds the write lock
func (g *Grid) unlink(e *entry) {
	k := g.keyOf(e.pos)
	cell := g.cells[k]
	for i, c := range cell {
		if c == e {
			last := len(cell) - 1
			cell[i] = cell[last]
			cell[last] = nil
			cell = cell[:last]
			break
		}
	}
	if len(cell) == 0 {
		delete(g.cells, k)
	} else {
		g.cells[k] = cell
	}
}

// scan visits every entry in the cells overlapping the box [lo, hi]
func (g *Grid) scan(lo, hi geom.Point3, visit func(e *entry)) {
	k0, k1 := g.keyOf(lo), g.keyOf(hi)
	span := (k1.cx - k0.cx + 1) * (k1.cz - k0.cz + 1)
	if span > int64(len(g.cells)) {
		// box covers more cells than are occupied: walk the occupied ones
		for k, cell := range g.cells {
			if k.cx < k0.cx || k.cx > k1.cx || k.cz < k0.cz || k.cz > k1.cz {
				continue
			}
			for _, e := range cell {
				visit(e)
			}
		}
		return
	}
	for cz := k0.cz; cz <= k1.cz; cz++ {
		for cx := k0.cx; cx <= k1.cx; cx++ {
			for _, e := range g.cells[cellKey{cx: cx, cz: cz}] {
				visit(e)
			}
		}
	}
}

type candidate struct {
	id     core.EntityID
	distSq int64
}

// QueryNearest returns up to maxCount units within radius of origin on the ground
// plane, ordered by ascending distance then ascending id.
func (g *Grid) QueryNearest(origin geom.Point3, radius geom.Scalar, maxCount int, f Filter) []core.EntityID {
	if radius < 0 {
		return nil
	}
	g.mu.RLock()
	defer g.mu.RUnlock()

	limit := geom.RadiusSq(radius)
	lo := geom.Point3{X: origin.X - radius, Z: origin.Z - radius}
	hi := geom.Point3{X: origin.X + radius, Z: origin.Z + radius}

	var found []candidate
	g.scan(lo, hi, func(e *entry) {
		if !f.match(e) {
			return
		}
		d := geom.GroundDistSq(origin, e.pos)
		if d <= limit {
			found = append(found, candidate{id: e.id, distSq: d})
		}
	})
	sort.Slice(found, func(i, j int) bool {
		if found[i].distSq != found[j].distSq {
			return found[i].distSq < found[j].distSq
		}
		return found[i].id < found[j].id
	})
	if maxCount > 0 && len(found) > maxCount {
		found = found[:maxCount]
	}
	out := make([]core.EntityID, len(found))
	for i, c := range found {
		out[i] = c.id
	}
	return out
}

// QueryInQuad returns every unit whose ground position lies in q, ascending id
func (g *Grid) QueryInQuad(q geom.Quad, f Filter) []core.EntityID {
	g.mu.RLock()
	defer g.mu.RUnlock()

	lo, hi := q.Bounds()
	var out []core.EntityID
	g.scan(lo, hi, func(e *entry) {
		if f.match(e) && q.Contains(e.pos) {
			out = append(out, e.id)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
