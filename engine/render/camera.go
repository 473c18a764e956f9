package render

import (
	"image"
	"math"

	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/maplib"
)

// Camera projects the ground plane onto the screen as an isometric diamond
// grid. Ground X runs down-right, ground Z down-left, and each unit of height
// lifts a point by a quarter tile.
type Camera struct {
	Viewport image.Point // screen size in pixels
	Tile     image.Point // tile diamond size in pixels

	Zoom, MinZoom, MaxZoom float64

	Speed      float64 // pan speed, pixels per second
	EdgeScroll bool
	EdgeSize   int // pixels

	// screen center in projected pixels at zoom 1
	focusX, focusY float64
	// map size in tiles; zero disables clamping
	mapSize image.Point
}

func NewCamera(screenW, screenH int) *Camera {
	return &Camera{
		Viewport:   image.Pt(screenW, screenH),
		Tile:       image.Pt(64, 32),
		Zoom:       1,
		MinZoom:    0.25,
		MaxZoom:    3,
		Speed:      500,
		EdgeScroll: true,
		EdgeSize:   20,
	}
}

// Fit adopts a map's size and tile shape
func (c *Camera) Fit(tm *maplib.TileMap) {
	c.mapSize = image.Pt(tm.Width, tm.Height)
	c.Tile = image.Pt(tm.TileWidth, tm.TileHeight)
	c.clamp()
}

// Pan moves the view by a screen-pixel delta
func (c *Camera) Pan(dx, dy float64) {
	c.focusX += dx / c.Zoom
	c.focusY += dy / c.Zoom
	c.clamp()
}

// ZoomAt changes zoom by delta, keeping the ground under the cursor in place
func (c *Camera) ZoomAt(delta float64, sx, sy int) {
	x0, z0 := c.Unproject(sx, sy)
	c.Zoom = math.Max(c.MinZoom, math.Min(c.MaxZoom, c.Zoom+delta))
	x1, z1 := c.Unproject(sx, sy)
	dx, dy := c.iso(x0-x1, z0-z1)
	c.focusX += dx
	c.focusY += dy
	c.clamp()
}

// LookAt centers the view on a ground point
func (c *Camera) LookAt(p geom.Point3) {
	c.focusX, c.focusY = c.iso(geom.ToFloat(p.X), geom.ToFloat(p.Z))
	c.clamp()
}

// FocusOn centers the view on the centroid of pts. It reports false and
// leaves the view alone when pts is empty.
func (c *Camera) FocusOn(pts []geom.Point3) bool {
	if len(pts) == 0 {
		return false
	}
	var sx, sz int64
	for _, p := range pts {
		sx += int64(p.X)
		sz += int64(p.Z)
	}
	n := int64(len(pts))
	c.LookAt(geom.Point3{X: geom.Scalar(sx / n), Z: geom.Scalar(sz / n)})
	return true
}

// Project returns the screen position of a world point
func (c *Camera) Project(p geom.Point3) image.Point {
	ix, iy := c.iso(geom.ToFloat(p.X), geom.ToFloat(p.Z))
	iy -= geom.ToFloat(p.Y) * float64(c.Tile.Y) / 4
	sx := (ix-c.focusX)*c.Zoom + float64(c.Viewport.X)/2
	sy := (iy-c.focusY)*c.Zoom + float64(c.Viewport.Y)/2
	return image.Pt(int(math.Floor(sx)), int(math.Floor(sy)))
}

// Unproject returns the ground coordinates, in tiles, under a screen
// position. Height is ignored.
func (c *Camera) Unproject(sx, sy int) (x, z float64) {
	ix := (float64(sx)-float64(c.Viewport.X)/2)/c.Zoom + c.focusX
	iy := (float64(sy)-float64(c.Viewport.Y)/2)/c.Zoom + c.focusY
	tw, th := float64(c.Tile.X), float64(c.Tile.Y)
	return ix/tw + iy/th, iy/th - ix/tw
}

// VisibleTiles returns the tiles that may touch the viewport, padded and
// cut to the map. Max is exclusive.
func (c *Camera) VisibleTiles() image.Rectangle {
	corners := [4]image.Point{{}, {X: c.Viewport.X}, {Y: c.Viewport.Y}, c.Viewport}
	minX, minZ := math.Inf(1), math.Inf(1)
	maxX, maxZ := math.Inf(-1), math.Inf(-1)
	for _, s := range corners {
		x, z := c.Unproject(s.X, s.Y)
		minX, maxX = math.Min(minX, x), math.Max(maxX, x)
		minZ, maxZ = math.Min(minZ, z), math.Max(maxZ, z)
	}
	const pad = 2
	r := image.Rect(
		int(math.Floor(minX))-pad, int(math.Floor(minZ))-pad,
		int(math.Ceil(maxX))+pad+1, int(math.Ceil(maxZ))+pad+1,
	)
	if c.mapSize != (image.Point{}) {
		r = r.Intersect(image.Rectangle{Max: c.mapSize})
	}
	return r
}

func (c *Camera) iso(x, z float64) (float64, float64) {
	return (x - z) * float64(c.Tile.X) / 2, (x + z) * float64(c.Tile.Y) / 2
}

// clamp keeps the view center over the map's diamond footprint
func (c *Camera) clamp() {
	if c.mapSize == (image.Point{}) {
		return
	}
	tw, th := float64(c.Tile.X), float64(c.Tile.Y)
	w, h := float64(c.mapSize.X), float64(c.mapSize.Y)
	c.focusX = math.Max(-h*tw/2, math.Min(w*tw/2, c.focusX))
	c.focusY = math.Max(0, math.Min((w+h)*th/2, c.focusY))
}
