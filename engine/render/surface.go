package render

import (
	"math"

	"github.com/1siamBot/rts-orders/engine/geom"
	"github.com/1siamBot/rts-orders/engine/maplib"
)

// Surface casts screen positions onto the tile map's ground. World tile X/Y
// map to geom X/Z; tile elevation becomes geom Y.
type Surface struct {
	Camera *Camera
	Map    *maplib.TileMap
}

// SurfacePoint returns the ground point under a screen position, or false
// when the position is off the map.
func (s *Surface) SurfacePoint(sx, sy int) (geom.Point3, bool) {
	x, z := s.Camera.Unproject(sx, sy)
	tile := s.Map.At(int(math.Floor(x)), int(math.Floor(z)))
	if tile == nil {
		return geom.Point3{}, false
	}
	return geom.PtF(x, float64(tile.Height), z), true
}
