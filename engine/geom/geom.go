// Package geom holds the fixed-point world geometry shared by every replica.
// Coordinates are 26.6 fixed point; Y is height and the ground plane is X/Z.
// Nothing here touches floating point after a value has been quantized, so two
// replicas fed the same commands compute the same answers bit for bit.
package geom

import (
	"fmt"
	"math"

	"golang.org/x/image/math/fixed"
)

// Scalar is a world-space length in 26.6 fixed point
type Scalar = fixed.Int26_6

// One is a single world unit
const One Scalar = 1 << 6

// FromFloat quantizes a float to the nearest 1/64 unit.
// Only call this at the input edge, never during command application.
func FromFloat(f float64) Scalar {
	return Scalar(math.Round(f * float64(One)))
}

// ToFloat converts back for presentation
func ToFloat(s Scalar) float64 {
	return float64(s) / float64(One)
}

// Point3 is a world position
type Point3 struct {
	X, Y, Z Scalar
}

// Pt builds a Point3 from whole units
func Pt(x, y, z int) Point3 {
	return Point3{X: fixed.I(x), Y: fixed.I(y), Z: fixed.I(z)}
}

// PtF builds a Point3 from floats (input edge only)
func PtF(x, y, z float64) Point3 {
	return Point3{X: FromFloat(x), Y: FromFloat(y), Z: FromFloat(z)}
}

func (p Point3) String() string {
	return fmt.Sprintf("(%v, %v, %v)", p.X, p.Y, p.Z)
}

// Ground drops the height component
func (p Point3) Ground() Point3 {
	return Point3{X: p.X, Z: p.Z}
}

// GroundDistSq returns the squared X/Z distance in raw 26.6 units squared
// (1 world unit squared == 4096).
func GroundDistSq(a, b Point3) int64 {
	dx := int64(a.X) - int64(b.X)
	dz := int64(a.Z) - int64(b.Z)
	return dx*dx + dz*dz
}

// SqUnits converts a squared world-unit quantity into the raw scale used by GroundDistSq
func SqUnits(f float64) int64 {
	return int64(math.Round(f * float64(One) * float64(One)))
}

// RadiusSq squares a radius into the raw scale used by GroundDistSq
func RadiusSq(r Scalar) int64 {
	return int64(r) * int64(r)
}

// ISqrt returns floor(sqrt(n)) for n >= 0 using integer Newton iteration
func ISqrt(n int64) int64 {
	if n <= 0 {
		return 0
	}
	x := n
	y := (x + 1) / 2
	for y < x {
		x = y
		y = (x + n/x) / 2
	}
	return x
}
