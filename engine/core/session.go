package core

import (
	"sync"

	"github.com/google/uuid"
)

// Session is the process-wide context of the local client: which match it is
// in and which player slot local input is issued as. It is created once at
// startup; the local player only changes through SetLocalPlayer.
type Session struct {
	MatchID uuid.UUID

	mu          sync.RWMutex
	localPlayer PlayerID
	switches    int
}

// NewSession starts a session for a new match
func NewSession(local PlayerID) *Session {
	return &Session{MatchID: uuid.New(), localPlayer: local}
}

// JoinSession starts a session for an existing match id
func JoinSession(match uuid.UUID, local PlayerID) *Session {
	return &Session{MatchID: match, localPlayer: local}
}

// LocalPlayer returns the identity local commands are issued as
func (s *Session) LocalPlayer() PlayerID {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.localPlayer
}

// SetLocalPlayer rebinds local input to another player slot (debug hotkey).
// Returns the previous identity.
func (s *Session) SetLocalPlayer(id PlayerID) PlayerID {
	s.mu.Lock()
	defer s.mu.Unlock()
	prev := s.localPlayer
	if prev != id {
		s.localPlayer = id
		s.switches++
	}
	return prev
}

// Switches returns how many times the local player was rebound
func (s *Session) Switches() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.switches
}
