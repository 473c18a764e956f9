package core

import "time"

// GameState represents the overall game state
type GameState uint8

const (
	StateMenu GameState = iota
	StatePlaying
	StatePaused
	StateGameOver
	StateLoading
)

// StepFunc runs one deterministic simulation tick
type StepFunc func(tick uint64)

// GateFunc reports whether a tick may run yet
type GateFunc func(tick uint64) bool

// GameLoop manages the fixed-timestep game loop for deterministic simulation
type GameLoop struct {
	World       *World
	State       GameState
	TickRate    float64 // fixed ticks per second
	Step        StepFunc
	Gate        GateFunc // nil runs every tick on time
	Stalls      uint64   // ticks held back by Gate
	accumulator float64
	lastTime    time.Time
	now         func() time.Time
}

// NewGameLoop creates a game loop with fixed tick rate. Each tick calls step
// (command application) and then advances the world.
func NewGameLoop(world *World, step StepFunc) *GameLoop {
	return &GameLoop{
		World:    world,
		TickRate: world.TickRate,
		Step:     step,
		lastTime: time.Now(),
		now:      time.Now,
	}
}

// Update should be called every render frame. It runs the simulation
// at fixed timestep. Returns the interpolation alpha for smooth rendering.
func (gl *GameLoop) Update() float64 {
	now := gl.now()
	frameTime := now.Sub(gl.lastTime).Seconds()
	gl.lastTime = now

	// Cap frame time to avoid spiral of death
	if frameTime > 0.25 {
		frameTime = 0.25
	}

	dt := 1.0 / gl.TickRate
	gl.accumulator += frameTime

	for gl.accumulator >= dt {
		if gl.State == StatePlaying {
			if gl.Gate != nil && !gl.Gate(gl.World.TickCount) {
				// waiting on peers; keep at most one frame of backlog
				gl.Stalls++
				if gl.accumulator > 0.25 {
					gl.accumulator = 0.25
				}
				break
			}
			gl.RunTick()
		}
		gl.accumulator -= dt
	}

	return gl.accumulator / dt
}

// RunTick applies the commands for the current tick and advances the world once
func (gl *GameLoop) RunTick() {
	if gl.Step != nil {
		gl.Step(gl.World.TickCount)
	}
	gl.World.Tick()
}

// Play starts or resumes the game
func (gl *GameLoop) Play() {
	gl.State = StatePlaying
	gl.lastTime = gl.now()
}

// Pause pauses the game
func (gl *GameLoop) Pause() {
	gl.State = StatePaused
}

// CurrentTick returns the current simulation tick
func (gl *GameLoop) CurrentTick() uint64 {
	return gl.World.TickCount
}
