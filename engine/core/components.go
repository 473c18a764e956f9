package core

import "github.com/1siamBot/rts-orders/engine/geom"

// ---- Position ----

// Position is a world position; Y is height
type Position struct {
	geom.Point3
}

func (p *Position) Type() ComponentType { return CompPosition }

// ---- Movement ----

// Movable represents movement capability
type Movable struct {
	Speed  geom.Scalar // world units per tick
	Target geom.Point3
	Moving bool
}

func (m *Movable) Type() ComponentType { return CompMovable }

// ---- Selection ----

// UnitKind is the selectable type of a unit. Point selection only ever picks
// units of a single kind.
type UnitKind uint16

// AnyKind matches every unit kind in spatial filters
const AnyKind UnitKind = 0

// Selectable marks an entity as selectable by a player
type Selectable struct {
	Kind UnitKind
}

func (s *Selectable) Type() ComponentType { return CompSelectable }

// ---- Ownership ----

// Owner identifies which player owns this entity
type Owner struct {
	PlayerID PlayerID
}

func (o *Owner) Type() ComponentType { return CompOwner }
