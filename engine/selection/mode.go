package selection

// Mode is how an incoming group combines with a player's current selection
type Mode uint8

const (
	Replace Mode = iota
	Add
	Remove
)

func (m Mode) String() string {
	switch m {
	case Replace:
		return "replace"
	case Add:
		return "add"
	case Remove:
		return "remove"
	default:
		return "unknown"
	}
}

// Valid reports whether m is one of the three defined modes
func (m Mode) Valid() bool { return m <= Remove }

// ModeFromModifiers folds the modifier keys into a mode. Remove wins when both
// are held.
func ModeFromModifiers(add, remove bool) Mode {
	switch {
	case remove:
		return Remove
	case add:
		return Add
	default:
		return Replace
	}
}

// Modifiers is the inverse of ModeFromModifiers
func (m Mode) Modifiers() (add, remove bool) {
	switch m {
	case Add:
		return true, false
	case Remove:
		return false, true
	default:
		return false, false
	}
}
