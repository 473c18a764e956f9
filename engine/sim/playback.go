package sim

import "github.com/1siamBot/rts-orders/engine/network"

// Playback steps r through recorded envelopes, which must be in application
// order. It runs until the last recorded tick plus extra, so movement issued
// late in the match can settle. Returns the final tick count.
func Playback(r *Replica, cmds []network.Envelope, extra uint64) uint64 {
	var last uint64
	for _, env := range cmds {
		if env.Tick > last {
			last = env.Tick
		}
	}
	i := 0
	for tick := r.World.TickCount; tick <= last+extra; tick++ {
		j := i
		for j < len(cmds) && cmds[j].Tick == tick {
			j++
		}
		r.Step(cmds[i:j])
		i = j
		// envelopes before the replica's start tick are skipped
		for i < len(cmds) && cmds[i].Tick <= tick {
			i++
		}
	}
	return r.World.TickCount
}
