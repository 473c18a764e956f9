package selection

import (
	"sort"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/spatial"
)

const (
	// DefaultPointCap bounds how many units a single click can pick
	DefaultPointCap = 5
	// DefaultClickEpsilonSq is the squared drag length (world units) under
	// which a drag counts as a click
	DefaultClickEpsilonSq = 0.01
)

// Resolver turns a select command's corners into a temporary group
type Resolver struct {
	Index          spatial.Index
	Live           Liveness
	MaxPointRadius geom.Scalar
	PointCap       int
	clickEpsSq     int64
}

// NewResolver creates a resolver with the default cap and click epsilon
func NewResolver(idx spatial.Index, live Liveness, pointRadius geom.Scalar) *Resolver {
	return &Resolver{
		Index:          idx,
		Live:           live,
		MaxPointRadius: pointRadius,
		PointCap:       DefaultPointCap,
		clickEpsSq:     geom.SqUnits(DefaultClickEpsilonSq),
	}
}

// SetClickEpsilonSq overrides the click threshold (squared world units)
func (r *Resolver) SetClickEpsilonSq(eps float64) {
	r.clickEpsSq = geom.SqUnits(eps)
}

// IsClick reports whether from/to are close enough to resolve as a point
func (r *Resolver) IsClick(from, to geom.Point3) bool {
	return geom.GroundDistSq(from, to) <= r.clickEpsSq
}

// Resolve returns the units owner's command selects, ascending by id. An
// empty result is an empty group, never nil.
func (r *Resolver) Resolve(owner *core.Player, from, to geom.Point3) *Group {
	var ids []core.EntityID
	if r.IsClick(from, to) {
		ids = r.resolvePoint(owner.Scope, to)
	} else {
		ids = r.Index.QueryInQuad(geom.RectFromCorners(from, to), spatial.Filter{Scope: owner.Scope})
	}

	out := ids[:0]
	for _, id := range ids {
		if r.Live == nil || r.Live.Alive(id) {
			out = append(out, id)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return NewGroup(out...)
}

// resolvePoint samples the kind of the nearest unit at p and returns the
// nearest units of that kind up to the cap.
func (r *Resolver) resolvePoint(scope core.ScopeMask, p geom.Point3) []core.EntityID {
	nearest := r.Index.QueryNearest(p, r.MaxPointRadius, 1, spatial.Filter{Scope: scope})
	if len(nearest) == 0 {
		return nil
	}
	kind, ok := r.Index.KindOf(nearest[0])
	if !ok {
		return nil
	}
	limit := r.PointCap
	if limit <= 0 {
		limit = DefaultPointCap
	}
	return r.Index.QueryNearest(p, r.MaxPointRadius, limit, spatial.Filter{Scope: scope, Kind: kind})
}
