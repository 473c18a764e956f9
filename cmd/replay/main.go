// Command replay re-simulates a recorded match on two independent replicas
// and reports whether they end in the same state.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/google/uuid"

	"github.com/1siamBot/rts-orders/engine/config"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/logging"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/replaydb"
	"github.com/1siamBot/rts-orders/engine/sim"
)

func main() {
	file := flag.String("file", "", "replay file written by the game")
	archive := flag.String("archive", "", "match archive database")
	match := flag.String("match", "", "match id inside the archive (default: latest)")
	extra := flag.Uint64("settle", 200, "ticks to run past the last command")
	flag.Parse()

	if err := config.Load("."); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	cfg, err := config.Get()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log, err := logging.New(logging.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	defer log.Sync()

	matchID, cmds, err := load(*file, *archive, *match)
	if err != nil {
		log.Fatalw("loading match", "error", err)
	}

	opts := sim.DefaultOptions()
	opts.TickRate = cfg.TickRate
	opts.PointRadius = geom.FromFloat(cfg.Selection.PointRadius)
	opts.PointCap = cfg.Selection.PointCap
	opts.ClickEpsilonSq = cfg.Selection.ClickEpsilonSq

	var digests [2]uint64
	var ticks uint64
	for i := range digests {
		r, err := sim.NewReplica(sim.DemoLobby(matchID.String()).Roster(), nil, nil, opts, log)
		if err != nil {
			log.Fatalw("building replica", "error", err)
		}
		sim.SpawnDemo(r)
		ticks = sim.Playback(r, cmds, *extra)
		digests[i] = r.Digest()
	}

	fmt.Printf("match %s: %d commands, %d ticks\n", matchID, len(cmds), ticks)
	fmt.Printf("digest A %016x\ndigest B %016x\n", digests[0], digests[1])
	if digests[0] != digests[1] {
		log.Errorw("replicas diverged", "match", matchID)
		os.Exit(2)
	}
	fmt.Println("replicas agree")
}

func load(file, archive, match string) (uuid.UUID, []network.Envelope, error) {
	switch {
	case file != "":
		rep, err := network.LoadReplay(file)
		if err != nil {
			return uuid.Nil, nil, err
		}
		return rep.MatchID, rep.Commands, nil
	case archive != "":
		a, err := replaydb.Open(archive)
		if err != nil {
			return uuid.Nil, nil, err
		}
		defer a.Close()
		id, err := pickMatch(a, match)
		if err != nil {
			return uuid.Nil, nil, err
		}
		cmds, err := a.Load(id)
		return id, cmds, err
	}
	return uuid.Nil, nil, fmt.Errorf("one of -file or -archive is required")
}

func pickMatch(a *replaydb.Archive, match string) (uuid.UUID, error) {
	if match != "" {
		return uuid.Parse(match)
	}
	ids, err := a.Matches()
	if err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, fmt.Errorf("archive is empty")
	}
	return ids[len(ids)-1], nil
}
