package main

import (
	"errors"
	"fmt"
	"image/color"
	"log"
	"math"
	"net/http"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"

	"github.com/1siamBot/rts-orders/engine/ai"
	"github.com/1siamBot/rts-orders/engine/config"
	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/input"
	"github.com/1siamBot/rts-orders/engine/input/device"
	"github.com/1siamBot/rts-orders/engine/logging"
	"github.com/1siamBot/rts-orders/engine/maplib"
	"github.com/1siamBot/rts-orders/engine/network"
	"github.com/1siamBot/rts-orders/engine/render"
	"github.com/1siamBot/rts-orders/engine/replaydb"
	"github.com/1siamBot/rts-orders/engine/sim"
)

const (
	ScreenWidth  = 1280
	ScreenHeight = 720
	MapSize      = 64
)

// Game implements ebiten.Game interface
type Game struct {
	renderer *render.IsoRenderer
	tileMap  *maplib.TileMap
	gameLoop *core.GameLoop
	sampler  *device.EbitenSampler
	capture  *input.Capture
	session  *core.Session
	replica  *sim.Replica
	lockstep *network.LockstepManager
	bots     []*ai.AIController
	log      *zap.SugaredLogger

	closers []func() error
}

func NewGame(cfg config.Config, logger *zap.SugaredLogger) (*Game, error) {
	session := core.NewSession(core.PlayerID(cfg.LocalPlayer))
	lobby := sim.DemoLobby(session.MatchID.String())

	tileMap := generateDemoMap()
	if cfg.MapPath != "" {
		loaded, err := maplib.LoadJSON(cfg.MapPath)
		if err != nil {
			return nil, fmt.Errorf("map: %w", err)
		}
		tileMap = loaded
	}

	g := &Game{
		renderer: render.NewIsoRenderer(ScreenWidth, ScreenHeight),
		tileMap:  tileMap,
		sampler:  device.NewEbitenSampler(),
		session:  session,
		lockstep: network.NewLockstepManager(cfg.InputDelay, logger),
		log:      logger,
	}
	g.renderer.Camera.Fit(tileMap)

	if err := g.connect(cfg.Net); err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}

	opts := sim.DefaultOptions()
	opts.TickRate = cfg.TickRate
	opts.PointRadius = geom.FromFloat(cfg.Selection.PointRadius)
	opts.PointCap = cfg.Selection.PointCap
	opts.ClickEpsilonSq = cfg.Selection.ClickEpsilonSq

	replica, err := sim.NewReplica(lobby.Roster(), session, g.lockstep, opts, logger)
	if err != nil {
		return nil, err
	}
	g.replica = replica
	if err := g.record(cfg); err != nil {
		return nil, err
	}
	sim.SpawnDemo(replica)

	if cfg.Net.Mode == "" && cfg.AI {
		for i, p := range replica.Players.Players {
			if p.ID == session.LocalPlayer() {
				continue
			}
			g.bots = append(g.bots, ai.NewAIController(p.ID, ai.DiffMedium, g.lockstep, int64(i)+1, logger))
		}
	}

	g.capture = input.NewCapture(&render.Surface{Camera: g.renderer.Camera, Map: g.tileMap}, replica.Dispatcher, logger)

	// The loop advances the world itself, the step only feeds the tick's commands
	g.gameLoop = core.NewGameLoop(replica.World, func(tick uint64) {
		replica.Apply(g.lockstep.CommandsForTick(tick))
		for _, bot := range g.bots {
			bot.Update(tick, replica.World, replica.Players)
		}
	})
	g.gameLoop.TickRate = cfg.TickRate
	if cfg.Net.Mode != "" {
		// every other seat is a remote peer whose input each tick waits for
		var remotes []core.PlayerID
		for _, p := range replica.Players.Players {
			if p.ID != session.LocalPlayer() {
				remotes = append(remotes, p.ID)
			}
		}
		g.lockstep.Expect(session.LocalPlayer(), remotes...)
		g.gameLoop.Gate = g.lockstep.Ready
	}

	g.renderer.Camera.LookAt(geom.Pt(MapSize/4, 0, MapSize/4))
	g.gameLoop.Play()
	return g, nil
}

// connect attaches the configured transport. Without one the game runs
// single-player and lockstep just echoes local commands.
func (g *Game) connect(nc config.NetConfig) error {
	switch nc.Mode {
	case "udp":
		var t *network.UDPTransport
		var err error
		if nc.Serve {
			t, err = network.HostUDP(nc.Port)
		} else {
			t, err = network.JoinUDP(nc.Host, nc.Port)
		}
		if err != nil {
			return err
		}
		g.lockstep.Attach(t)
		g.log.Infow("udp transport ready", "addr", t.LocalAddr(), "host", nc.Serve)
	case "ws":
		if nc.Serve {
			mux := http.NewServeMux()
			mux.Handle("/relay", network.NewRelay(g.log))
			srv := &http.Server{Addr: fmt.Sprintf(":%d", nc.Port), Handler: mux}
			go func() {
				if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					g.log.Errorw("relay stopped", "error", err)
				}
			}()
			g.closers = append(g.closers, srv.Close)
		}
		t, err := network.DialWS(fmt.Sprintf("ws://%s:%d/relay", nc.Host, nc.Port))
		if err != nil {
			return err
		}
		g.lockstep.Attach(t)
		g.log.Infow("websocket transport ready", "host", nc.Host, "port", nc.Port, "relay", nc.Serve)
	}
	return nil
}

// record wires the replay file and the match archive, when configured
func (g *Game) record(cfg config.Config) error {
	if cfg.ReplayPath != "" {
		rep, err := network.NewReplayRecorder(cfg.ReplayPath, g.session.MatchID)
		if err != nil {
			return fmt.Errorf("replay: %w", err)
		}
		g.replica.AddRecorder(rep)
		g.closers = append(g.closers, rep.Close)
	}
	if cfg.ArchivePath != "" {
		archive, err := replaydb.Open(cfg.ArchivePath)
		if err != nil {
			return fmt.Errorf("archive: %w", err)
		}
		rec, err := archive.Begin(g.session.MatchID)
		if err != nil {
			archive.Close()
			return fmt.Errorf("archive: %w", err)
		}
		g.replica.AddRecorder(rec)
		g.closers = append(g.closers, archive.Close)
	}
	return nil
}

func (g *Game) Update() error {
	frame := g.sampler.Sample()

	g.handleCamera(frame)

	// Debug: switch the locally controlled player
	for i, key := range []ebiten.Key{ebiten.KeyF1, ebiten.KeyF2, ebiten.KeyF3, ebiten.KeyF4} {
		if g.sampler.IsKeyJustPressed(key) {
			prev := g.session.SetLocalPlayer(core.PlayerID(i))
			g.log.Infow("local player switched", "from", prev, "to", i)
		}
	}

	g.capture.Update(frame)

	// Game simulation tick
	g.gameLoop.Update()
	g.replica.Events.Dispatch()

	return nil
}

func (g *Game) handleCamera(f input.Frame) {
	cam := g.renderer.Camera
	speed := cam.Speed / 60.0 // per frame at 60fps

	if g.sampler.IsKeyPressed(ebiten.KeyW) || g.sampler.IsKeyPressed(ebiten.KeyUp) {
		cam.Pan(0, -speed)
	}
	if g.sampler.IsKeyPressed(ebiten.KeyS) || g.sampler.IsKeyPressed(ebiten.KeyDown) {
		cam.Pan(0, speed)
	}
	if g.sampler.IsKeyPressed(ebiten.KeyA) || g.sampler.IsKeyPressed(ebiten.KeyLeft) {
		cam.Pan(-speed, 0)
	}
	if g.sampler.IsKeyPressed(ebiten.KeyD) || g.sampler.IsKeyPressed(ebiten.KeyRight) {
		cam.Pan(speed, 0)
	}

	// Edge scrolling, only while focused
	if cam.EdgeScroll && f.Connected {
		edge := cam.EdgeSize
		if f.CursorX < edge {
			cam.Pan(-speed, 0)
		}
		if f.CursorX > ScreenWidth-edge {
			cam.Pan(speed, 0)
		}
		if f.CursorY < edge {
			cam.Pan(0, -speed)
		}
		if f.CursorY > ScreenHeight-edge {
			cam.Pan(0, speed)
		}
	}

	// Space: center on the local selection
	if g.sampler.IsKeyJustPressed(ebiten.KeySpace) {
		var pts []geom.Point3
		for _, id := range g.replica.Groups.Peek(g.session.LocalPlayer()) {
			if pos, ok := g.replica.World.Get(id, core.CompPosition).(*core.Position); ok {
				pts = append(pts, pos.Point3)
			}
		}
		cam.FocusOn(pts)
	}

	if g.sampler.ScrollY != 0 {
		cam.ZoomAt(g.sampler.ScrollY*0.1, f.CursorX, f.CursorY)
	}
}

func (g *Game) Draw(screen *ebiten.Image) {
	screen.Fill(color.RGBA{20, 20, 30, 255})

	g.renderer.DrawMap(screen, g.tileMap)

	selected := make(map[core.EntityID]bool)
	for _, id := range g.replica.Groups.Peek(g.session.LocalPlayer()) {
		selected[id] = true
	}
	g.renderer.DrawUnits(screen, g.replica.World, selected)

	if q, ok := g.capture.Rectangle(); ok {
		g.renderer.DrawSelectionQuad(screen, q)
	}

	g.drawHUD(screen, len(selected))
}

func (g *Game) drawHUD(screen *ebiten.Image, selected int) {
	info := fmt.Sprintf(
		"RTS Orders | FPS: %.0f | Tick: %d | Pending: %d | Stalls: %d | Late: %d\n"+
			"Player: %d | Selected: %d | Entities: %d | Drag: %s\n"+
			"[LDrag] Select [Shift] Add [Ctrl] Remove [RClick] Move [Space] Focus [F1-F4] Switch player",
		ebiten.ActualFPS(),
		g.gameLoop.CurrentTick(),
		g.lockstep.Pending(),
		g.gameLoop.Stalls,
		g.lockstep.Late(),
		g.session.LocalPlayer(),
		selected,
		g.replica.World.EntityCount(),
		g.capture.State(),
	)
	ebitenutil.DebugPrint(screen, info)
}

func (g *Game) Layout(outsideWidth, outsideHeight int) (int, int) {
	return ScreenWidth, ScreenHeight
}

// Close stops networking and flushes recorders
func (g *Game) Close() {
	g.lockstep.Close()
	for i := len(g.closers) - 1; i >= 0; i-- {
		if err := g.closers[i](); err != nil {
			g.log.Warnw("shutdown", "error", err)
		}
	}
}

// generateDemoMap creates a demo map with varied terrain
func generateDemoMap() *maplib.TileMap {
	tm := maplib.NewTileMap("Demo Battlefield", MapSize, MapSize)

	tm.SetTerrain(0, 0, MapSize-1, MapSize-1, maplib.TerrainGrass)

	// River through the middle
	for x := 0; x < MapSize; x++ {
		y := MapSize/2 + int(3*math.Sin(float64(x)*0.15))
		tm.SetTerrain(x, y-1, x, y+1, maplib.TerrainWater)
	}

	forests := [][4]int{
		{5, 5, 8, 7}, {45, 8, 55, 15}, {20, 45, 30, 52},
	}
	for _, f := range forests {
		tm.SetTerrain(f[0], f[1], f[2], f[3], maplib.TerrainForest)
	}

	// Raised plateau
	tm.SetTerrain(30, 10, 35, 14, maplib.TerrainRock)
	tm.SetHeight(30, 10, 35, 14, 2)

	for x := 0; x < MapSize; x++ {
		tm.SetTerrain(x, MapSize/4, x, MapSize/4, maplib.TerrainRoad)
	}
	tm.SetTerrain(50, 50, 60, 60, maplib.TerrainSand)

	tm.StartPositions = []maplib.StartPos{
		{PlayerSlot: 0, X: 10, Y: 10},
		{PlayerSlot: 1, X: 50, Y: 50},
	}
	return tm
}

func main() {
	if err := config.Load("."); err != nil {
		log.Fatal(err)
	}
	cfg, err := config.Get()
	if err != nil {
		log.Fatal(err)
	}
	logger, err := logging.New(logging.Options{
		File:       cfg.Log.File,
		Level:      cfg.Log.Level,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	game, err := NewGame(cfg, logger)
	if err != nil {
		logger.Fatalw("startup failed", "error", err)
	}
	defer game.Close()

	ebiten.SetWindowSize(ScreenWidth, ScreenHeight)
	ebiten.SetWindowTitle("RTS Orders")
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	if err := ebiten.RunGame(game); err != nil {
		logger.Errorw("game exited", "error", err)
	}
}
