package core

import "sort"

// PlayerID is the stable identity of a player slot. It doubles as the bit
// index in a ScopeMask, so it must stay below 64.
type PlayerID int32

// ScopeMask is the set of owner slots whose units a player may select
type ScopeMask uint64

// SlotBit returns the mask containing only the given slot
func SlotBit(id PlayerID) ScopeMask {
	if id < 0 || id >= 64 {
		return 0
	}
	return 1 << uint(id)
}

// Includes reports whether units owned by id fall inside the mask
func (m ScopeMask) Includes(id PlayerID) bool {
	return m&SlotBit(id) != 0
}

// Player represents a game player
type Player struct {
	ID       PlayerID
	Name     string
	TeamID   int
	Faction  string
	Color    uint32 // RGBA
	Scope    ScopeMask
	IsAI     bool
	Defeated bool
}

// PlayerManager manages all players in a game
type PlayerManager struct {
	Players []*Player
}

func NewPlayerManager() *PlayerManager {
	return &PlayerManager{}
}

// AddPlayer registers a player. A zero Scope defaults to the player's own slot.
func (pm *PlayerManager) AddPlayer(p *Player) {
	if p.Scope == 0 {
		p.Scope = SlotBit(p.ID)
	}
	pm.Players = append(pm.Players, p)
	sort.Slice(pm.Players, func(i, j int) bool { return pm.Players[i].ID < pm.Players[j].ID })
}

// GetPlayer returns the player with the given id, or nil
func (pm *PlayerManager) GetPlayer(id PlayerID) *Player {
	for _, p := range pm.Players {
		if p.ID == id {
			return p
		}
	}
	return nil
}

// RemovePlayer drops a player, e.g. after a disconnect. In-flight commands
// for the id are then dropped by the handlers.
func (pm *PlayerManager) RemovePlayer(id PlayerID) {
	for i, p := range pm.Players {
		if p.ID == id {
			pm.Players = append(pm.Players[:i], pm.Players[i+1:]...)
			return
		}
	}
}

// AreAllies checks if two players are allied
func (pm *PlayerManager) AreAllies(a, b PlayerID) bool {
	pa := pm.GetPlayer(a)
	pb := pm.GetPlayer(b)
	if pa == nil || pb == nil {
		return false
	}
	return pa.TeamID == pb.TeamID
}
