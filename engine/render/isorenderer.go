package render

import (
	"image/color"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/vector"

	"github.com/1siamBot/rts-orders/engine/core"
	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/maplib"
)

// TerrainColors maps terrain types to colors
var TerrainColors = map[maplib.TerrainType]color.RGBA{
	maplib.TerrainGrass:  {34, 139, 34, 255},   // forest green
	maplib.TerrainDirt:   {139, 119, 101, 255}, // brown
	maplib.TerrainSand:   {238, 214, 175, 255}, // sandy
	maplib.TerrainWater:  {30, 144, 255, 255},  // blue
	maplib.TerrainRock:   {128, 128, 128, 255}, // gray
	maplib.TerrainRoad:   {169, 169, 169, 255}, // light gray
	maplib.TerrainForest: {0, 100, 0, 255},     // dark green
}

// PlayerColors indexes unit colors by player slot
var PlayerColors = []color.RGBA{
	{60, 120, 255, 255},
	{230, 60, 60, 255},
	{240, 200, 40, 255},
	{160, 80, 220, 255},
}

// IsoRenderer handles isometric map rendering
type IsoRenderer struct {
	Camera    *Camera
	TileCache map[maplib.TerrainType]*ebiten.Image
}

// NewIsoRenderer creates a new isometric renderer
func NewIsoRenderer(screenW, screenH int) *IsoRenderer {
	return &IsoRenderer{
		Camera:    NewCamera(screenW, screenH),
		TileCache: make(map[maplib.TerrainType]*ebiten.Image),
	}
}

// GetTileImage returns (or creates) a cached colored diamond for a terrain type
func (r *IsoRenderer) GetTileImage(terrain maplib.TerrainType, tw, th int) *ebiten.Image {
	if img, ok := r.TileCache[terrain]; ok {
		return img
	}

	img := ebiten.NewImage(tw, th)
	clr, ok := TerrainColors[terrain]
	if !ok {
		clr = color.RGBA{255, 0, 255, 255}
	}

	hw := float32(tw) / 2
	hh := float32(th) / 2

	var path vector.Path
	path.MoveTo(hw, 0)
	path.LineTo(float32(tw), hh)
	path.LineTo(hw, float32(th))
	path.LineTo(0, hh)
	path.Close()

	vs, is := path.AppendVerticesAndIndicesForFilling(nil, nil)
	for i := range vs {
		vs[i].SrcX = 1
		vs[i].SrcY = 1
		vs[i].ColorR = float32(clr.R) / 255
		vs[i].ColorG = float32(clr.G) / 255
		vs[i].ColorB = float32(clr.B) / 255
		vs[i].ColorA = float32(clr.A) / 255
	}

	whiteImg := ebiten.NewImage(3, 3)
	whiteImg.Fill(color.White)
	img.DrawTriangles(vs, is, whiteImg, nil)

	vector.StrokeLine(img, hw, 0, float32(tw), hh, 1, color.RGBA{0, 0, 0, 80}, false)
	vector.StrokeLine(img, float32(tw), hh, hw, float32(th), 1, color.RGBA{0, 0, 0, 80}, false)
	vector.StrokeLine(img, hw, float32(th), 0, hh, 1, color.RGBA{0, 0, 0, 80}, false)
	vector.StrokeLine(img, 0, hh, hw, 0, 1, color.RGBA{0, 0, 0, 80}, false)

	r.TileCache[terrain] = img
	return img
}

// DrawMap renders the visible portion of the tile map
func (r *IsoRenderer) DrawMap(screen *ebiten.Image, tm *maplib.TileMap) {
	tw, th := tm.TileWidth, tm.TileHeight
	r.Camera.Fit(tm)

	vis := r.Camera.VisibleTiles()
	for y := vis.Min.Y; y < vis.Max.Y; y++ {
		for x := vis.Min.X; x < vis.Max.X; x++ {
			tile := tm.At(x, y)
			if tile == nil {
				continue
			}
			// top corner of the tile diamond, lifted by elevation
			at := r.Camera.Project(geom.PtF(float64(x), float64(tile.Height), float64(y)))

			op := &ebiten.DrawImageOptions{}
			op.GeoM.Translate(float64(at.X-tw/2), float64(at.Y))
			screen.DrawImage(r.GetTileImage(tile.Terrain, tw, th), op)
		}
	}
}

// DrawUnits draws every owned unit, ringing the ones in selected
func (r *IsoRenderer) DrawUnits(screen *ebiten.Image, w *core.World, selected map[core.EntityID]bool) {
	for _, id := range w.Query(core.CompPosition, core.CompOwner) {
		pos := w.Get(id, core.CompPosition).(*core.Position)
		owner := w.Get(id, core.CompOwner).(*core.Owner)
		at := r.Camera.Project(pos.Point3)
		sx, sy := float32(at.X), float32(at.Y)

		if selected[id] {
			vector.DrawFilledCircle(screen, sx, sy, 16, color.RGBA{0, 255, 0, 60}, false)
			vector.StrokeCircle(screen, sx, sy, 16, 2, color.RGBA{0, 255, 0, 200}, false)
		}
		clr := color.RGBA{200, 200, 200, 255}
		if int(owner.PlayerID) < len(PlayerColors) && owner.PlayerID >= 0 {
			clr = PlayerColors[owner.PlayerID]
		}
		vector.DrawFilledCircle(screen, sx, sy, 10, clr, false)
		vector.StrokeCircle(screen, sx, sy, 10, 1, color.RGBA{255, 255, 255, 180}, false)
	}
}

// DrawSelectionQuad outlines a ground-plane selection rectangle. On an iso
// view the rectangle appears as a diamond.
func (r *IsoRenderer) DrawSelectionQuad(screen *ebiten.Image, q geom.Quad) {
	selColor := color.RGBA{0, 255, 0, 160}
	for i := 0; i < 4; i++ {
		a := r.Camera.Project(q[i].Ground())
		b := r.Camera.Project(q[(i+1)%4].Ground())
		vector.StrokeLine(screen, float32(a.X), float32(a.Y), float32(b.X), float32(b.Y), 1, selColor, false)
	}
}
