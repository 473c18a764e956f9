package network

import (
	"encoding/json"
	"fmt"

	"github.com/1siamBot/rts-orders/engine/core"
)

// LobbyState represents the state of a game lobby
type LobbyState struct {
	MatchID    string      `json:"match_id"`
	HostName   string      `json:"host_name"`
	MapName    string      `json:"map_name"`
	MaxPlayers int         `json:"max_players"`
	Players    []LobbySlot `json:"players"`
	Started    bool        `json:"started"`
	Port       int         `json:"port"`
}

// LobbySlot represents a player slot in the lobby
type LobbySlot struct {
	PlayerID core.PlayerID `json:"player_id"`
	Name     string        `json:"name"`
	Faction  string        `json:"faction"`
	Team     int           `json:"team"`
	Ready    bool          `json:"ready"`
	IsAI     bool          `json:"is_ai"`
	// SharedControl lets this player select allied units too
	SharedControl bool `json:"shared_control"`
}

// Lobby manages pre-game setup
type Lobby struct {
	State   LobbyState
	IsHost  bool
	ChatLog []string
}

// NewLobby creates a new lobby as host
func NewLobby(matchID, hostName, mapName string, maxPlayers, port int) *Lobby {
	return &Lobby{
		State: LobbyState{
			MatchID:    matchID,
			HostName:   hostName,
			MapName:    mapName,
			MaxPlayers: maxPlayers,
			Port:       port,
			Players: []LobbySlot{
				{PlayerID: 0, Name: hostName, Faction: "Allied", Team: 0},
			},
		},
		IsHost: true,
	}
}

// AddPlayer adds a player to the lobby
func (l *Lobby) AddPlayer(name, faction string, isAI bool) core.PlayerID {
	id := len(l.State.Players)
	if id >= l.State.MaxPlayers || id >= 64 {
		return -1
	}
	l.State.Players = append(l.State.Players, LobbySlot{
		PlayerID: core.PlayerID(id),
		Name:     name,
		Faction:  faction,
		Team:     id,
		IsAI:     isAI,
	})
	return core.PlayerID(id)
}

// SetTeam moves a player to a team
func (l *Lobby) SetTeam(playerID core.PlayerID, team int) {
	for i := range l.State.Players {
		if l.State.Players[i].PlayerID == playerID {
			l.State.Players[i].Team = team
		}
	}
}

// SetReady marks a player as ready
func (l *Lobby) SetReady(playerID core.PlayerID, ready bool) {
	for i := range l.State.Players {
		if l.State.Players[i].PlayerID == playerID {
			l.State.Players[i].Ready = ready
		}
	}
}

// AllReady checks if all players are ready
func (l *Lobby) AllReady() bool {
	for _, p := range l.State.Players {
		if !p.Ready && !p.IsAI {
			return false
		}
	}
	return len(l.State.Players) >= 2
}

// Chat adds a chat message
func (l *Lobby) Chat(playerName, msg string) {
	l.ChatLog = append(l.ChatLog, fmt.Sprintf("[%s] %s", playerName, msg))
}

// Roster builds the match's players. Each player's scope is its own slot,
// widened to its whole team when SharedControl is set.
func (l *Lobby) Roster() *core.PlayerManager {
	pm := core.NewPlayerManager()
	for _, s := range l.State.Players {
		scope := core.SlotBit(s.PlayerID)
		if s.SharedControl {
			for _, o := range l.State.Players {
				if o.Team == s.Team {
					scope |= core.SlotBit(o.PlayerID)
				}
			}
		}
		pm.AddPlayer(&core.Player{
			ID:      s.PlayerID,
			Name:    s.Name,
			TeamID:  s.Team,
			Faction: s.Faction,
			Scope:   scope,
			IsAI:    s.IsAI,
		})
	}
	return pm
}

// Marshal returns JSON of the lobby state
func (l *Lobby) Marshal() ([]byte, error) {
	return json.Marshal(l.State)
}

// UnmarshalLobby restores a lobby received from the host
func UnmarshalLobby(data []byte) (*Lobby, error) {
	var st LobbyState
	if err := json.Unmarshal(data, &st); err != nil {
		return nil, err
	}
	return &Lobby{State: st}, nil
}
