package geom

// Quad is a selection rectangle on the ground plane, four ordered corners
type Quad [4]Point3

// RectFromCorners projects two opposite drag corners onto the ground plane:
// p1=from, p2=(from.x,0,to.z), p3=to, p4=(to.x,0,from.z).
func RectFromCorners(from, to Point3) Quad {
	return Quad{
		from,
		{X: from.X, Z: to.Z},
		to,
		{X: to.X, Z: from.Z},
	}
}

// Contains reports whether p lies inside or on the edge of the quad,
// using the X/Z projection only. The quad must be convex, which every
// RectFromCorners result is; winding may be either direction.
func (q Quad) Contains(p Point3) bool {
	var pos, neg bool
	for i := 0; i < 4; i++ {
		a, b := q[i], q[(i+1)%4]
		c := cross(a, b, p)
		switch {
		case c > 0:
			pos = true
		case c < 0:
			neg = true
		}
		if pos && neg {
			return false
		}
	}
	if !pos && !neg {
		// degenerate quad (zero area): only a point on the segment hull counts
		return q.bounds().inside(p)
	}
	return true
}

// Bounds returns the axis-aligned X/Z bounding box of the quad
func (q Quad) Bounds() (min, max Point3) {
	b := q.bounds()
	return Point3{X: b.minX, Z: b.minZ}, Point3{X: b.maxX, Z: b.maxZ}
}

type box struct {
	minX, minZ, maxX, maxZ Scalar
}

func (q Quad) bounds() box {
	b := box{minX: q[0].X, maxX: q[0].X, minZ: q[0].Z, maxZ: q[0].Z}
	for _, p := range q[1:] {
		b.minX = min(b.minX, p.X)
		b.maxX = max(b.maxX, p.X)
		b.minZ = min(b.minZ, p.Z)
		b.maxZ = max(b.maxZ, p.Z)
	}
	return b
}

func (b box) inside(p Point3) bool {
	return p.X >= b.minX && p.X <= b.maxX && p.Z >= b.minZ && p.Z <= b.maxZ
}

// cross is the z of (b-a) x (p-a) on the X/Z plane
func cross(a, b, p Point3) int64 {
	abx := int64(b.X) - int64(a.X)
	abz := int64(b.Z) - int64(a.Z)
	apx := int64(p.X) - int64(a.X)
	apz := int64(p.Z) - int64(a.Z)
	return abx*apz - abz*apx
}
