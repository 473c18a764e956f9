package network

import (
	"bytes"
	"encoding/binary"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/core"
)

// Transport moves encoded envelopes between replicas. Delivery order across
// players is restored by the lockstep manager, not the transport.
type Transport interface {
	Send(frame []byte) error
	// Listen starts delivering received frames to fn on a background goroutine
	Listen(fn func(frame []byte))
	Close() error
}

type seqKey struct {
	player core.PlayerID
	seq    uint32
}

// LockstepManager schedules commands onto future ticks and hands each tick's
// commands back in the order every replica agrees on.
//
// Once a tick can no longer receive local input the manager sends an input
// frame for it, carrying how many commands it sent for that tick. Ready holds
// a tick until every expected peer's frame and all the commands it counts
// have arrived.
type LockstepManager struct {
	mu          sync.Mutex
	pendingCmds map[uint64][]Envelope // tick -> commands
	seen        map[seqKey]struct{}
	nextSeq     map[core.PlayerID]uint32
	nextTick    uint64 // local input lands on nextTick+inputDelay
	consumed    uint64 // first tick not yet handed out
	inputDelay  int    // ticks of input delay (typically 2-3)
	transport   Transport
	log         *zap.SugaredLogger

	self     core.PlayerID
	remotes  []core.PlayerID
	sent     map[uint64]uint32                   // tick -> local commands sent
	frames   map[uint64]map[core.PlayerID]uint32 // tick -> peer -> commands it sent
	received map[uint64]uint32                   // tick -> remote commands stored
	late     int
}

func NewLockstepManager(inputDelay int, log *zap.SugaredLogger) *LockstepManager {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	if inputDelay < 0 {
		inputDelay = 0
	}
	return &LockstepManager{
		pendingCmds: make(map[uint64][]Envelope),
		seen:        make(map[seqKey]struct{}),
		nextSeq:     make(map[core.PlayerID]uint32),
		inputDelay:  inputDelay,
		log:         log,
		sent:        make(map[uint64]uint32),
		frames:      make(map[uint64]map[core.PlayerID]uint32),
		received:    make(map[uint64]uint32),
	}
}

// Expect names the local peer and the remote peers whose input frames every
// tick waits for. With no remotes every tick is ready at once.
func (lm *LockstepManager) Expect(self core.PlayerID, remotes ...core.PlayerID) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.self = self
	lm.remotes = append([]core.PlayerID(nil), remotes...)
}

// Attach connects a transport and starts receiving remote envelopes
func (lm *LockstepManager) Attach(t Transport) {
	lm.mu.Lock()
	lm.transport = t
	lm.mu.Unlock()
	t.Listen(lm.receive)
}

// Submit schedules a local envelope inputDelay ticks after the next tick, stamps its
// sequence number and sends it to the other replicas.
func (lm *LockstepManager) Submit(env Envelope) {
	lm.mu.Lock()
	env.Tick = lm.nextTick + uint64(lm.inputDelay)
	env.Seq = lm.nextSeq[env.PlayerID]
	lm.nextSeq[env.PlayerID]++
	lm.sent[env.Tick]++
	lm.store(env, false)
	t := lm.transport
	lm.mu.Unlock()

	if t != nil {
		if err := t.Send(env.Bytes()); err != nil {
			lm.log.Warnw("send failed", "tick", env.Tick, "seq", env.Seq, "error", err)
		}
	}
}

// Inject stores an envelope that already carries its tick and sequence,
// e.g. one read back from a replay.
func (lm *LockstepManager) Inject(env Envelope) {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	lm.store(env, false)
}

// Ready reports whether tick may run: every expected peer's input frame for
// it has arrived along with the commands the frame counts. It also closes
// local input for tick and sends this peer's frames for the ticks that just
// became closed.
func (lm *LockstepManager) Ready(tick uint64) bool {
	lm.mu.Lock()
	frames := lm.seal(tick)
	ready := lm.ready(tick)
	t := lm.transport
	lm.mu.Unlock()

	lm.sendFrames(t, frames)
	return ready
}

// CommandsForTick removes and returns the commands scheduled for tick,
// ordered by player id then sequence. It also advances the local clock so
// later submissions land after this tick.
func (lm *LockstepManager) CommandsForTick(tick uint64) []Envelope {
	lm.mu.Lock()
	frames := lm.seal(tick)
	t := lm.transport
	if tick+1 > lm.consumed {
		lm.consumed = tick + 1
	}
	cmds := lm.pendingCmds[tick]
	delete(lm.pendingCmds, tick)
	delete(lm.frames, tick)
	delete(lm.received, tick)
	lm.mu.Unlock()

	lm.sendFrames(t, frames)
	sort.SliceStable(cmds, func(i, j int) bool {
		if cmds[i].PlayerID != cmds[j].PlayerID {
			return cmds[i].PlayerID < cmds[j].PlayerID
		}
		return cmds[i].Seq < cmds[j].Seq
	})
	return cmds
}

// Pending returns the number of scheduled commands not yet taken
func (lm *LockstepManager) Pending() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	n := 0
	for _, cmds := range lm.pendingCmds {
		n += len(cmds)
	}
	return n
}

// Late returns how many remote commands arrived after their tick had run.
// Any late command means this replica has diverged from its sender.
func (lm *LockstepManager) Late() int {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.late
}

// IsConnected returns true if a transport is attached
func (lm *LockstepManager) IsConnected() bool {
	lm.mu.Lock()
	defer lm.mu.Unlock()
	return lm.transport != nil
}

// seal closes local input for every tick up to tick+inputDelay and returns
// the input frames to send for the newly closed ticks; caller holds mu
func (lm *LockstepManager) seal(tick uint64) []Envelope {
	if tick+1 <= lm.nextTick {
		return nil
	}
	delay := uint64(lm.inputDelay)
	from, to := lm.nextTick+delay, tick+1+delay
	lm.nextTick = tick + 1

	if lm.transport == nil {
		for t := range lm.sent {
			if t < to {
				delete(lm.sent, t)
			}
		}
		return nil
	}
	frames := make([]Envelope, 0, to-from)
	for t := from; t < to; t++ {
		frames = append(frames, Envelope{
			Tick:     t,
			PlayerID: lm.self,
			Handler:  HandlerFrame,
			Payload:  binary.LittleEndian.AppendUint32(nil, lm.sent[t]),
		})
		delete(lm.sent, t)
	}
	return frames
}

// ready reports whether all remote input for tick is in; caller holds mu
func (lm *LockstepManager) ready(tick uint64) bool {
	// no peer can schedule input before its first delayed tick
	if len(lm.remotes) == 0 || tick < uint64(lm.inputDelay) {
		return true
	}
	got := lm.frames[tick]
	var want uint32
	for _, p := range lm.remotes {
		n, ok := got[p]
		if !ok {
			return false
		}
		want += n
	}
	return lm.received[tick] == want
}

func (lm *LockstepManager) sendFrames(t Transport, frames []Envelope) {
	if t == nil {
		return
	}
	for _, f := range frames {
		if err := t.Send(f.Bytes()); err != nil {
			lm.log.Warnw("frame send failed", "tick", f.Tick, "error", err)
		}
	}
}

// store keeps env unless it is a duplicate or late; caller holds mu
func (lm *LockstepManager) store(env Envelope, remote bool) {
	if env.Handler == HandlerFrame {
		if env.Tick < lm.consumed || len(env.Payload) != 4 {
			return
		}
		if lm.frames[env.Tick] == nil {
			lm.frames[env.Tick] = make(map[core.PlayerID]uint32)
		}
		lm.frames[env.Tick][env.PlayerID] = binary.LittleEndian.Uint32(env.Payload)
		return
	}
	k := seqKey{player: env.PlayerID, seq: env.Seq}
	if _, dup := lm.seen[k]; dup {
		return
	}
	if env.Tick < lm.consumed {
		lm.late++
		lm.log.Errorw("late command, replica out of sync", "tick", env.Tick, "next", lm.consumed, "player", env.PlayerID, "seq", env.Seq)
		return
	}
	lm.seen[k] = struct{}{}
	lm.pendingCmds[env.Tick] = append(lm.pendingCmds[env.Tick], env)
	if remote {
		lm.received[env.Tick]++
	}
}

func (lm *LockstepManager) receive(frame []byte) {
	var env Envelope
	if err := env.Decode(bytes.NewReader(frame)); err != nil {
		lm.log.Debugw("bad frame", "error", err)
		return
	}
	lm.mu.Lock()
	lm.store(env, true)
	lm.mu.Unlock()
}

// Close shuts down the network connection
func (lm *LockstepManager) Close() {
	lm.mu.Lock()
	t := lm.transport
	lm.transport = nil
	lm.mu.Unlock()
	if t != nil {
		t.Close()
	}
}
