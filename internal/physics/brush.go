package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// Plane is a boundary with an outward unit Normal; points with
// Normal·x < Dist are on the solid side.
type Plane struct {
	Normal mgl32.Vec3
	Dist   float32
}

// PlaneThrough builds a plane from an outward normal and a point on it.
func PlaneThrough(normal, point mgl32.Vec3) Plane {
	n := normal.Normalize()
	return Plane{Normal: n, Dist: n.Dot(point)}
}

// Brush is a convex solid: the intersection of its planes' solid sides.
type Brush struct {
	Name   string
	Planes []Plane
}

// penetration reports whether a hull at feet position p overlaps the brush and,
// if so, the plane to push out along and by how much. Each plane is expanded
// by the hull support, so p can be treated as a point.
func (b *Brush) penetration(p mgl32.Vec3, h Hull) (mgl32.Vec3, float32, bool) {
	if len(b.Planes) == 0 {
		return mgl32.Vec3{}, 0, false
	}
	best := -1
	bestDepth := float32(math32.MaxFloat32)
	for i, pl := range b.Planes {
		depth := pl.Dist + h.support(pl.Normal) - pl.Normal.Dot(p)
		if depth <= 0 {
			return mgl32.Vec3{}, 0, false
		}
		if depth < bestDepth {
			best, bestDepth = i, depth
		}
	}
	return b.Planes[best].Normal, bestDepth, true
}

// Contains reports whether a point lies strictly inside the unexpanded brush.
func (b *Brush) Contains(p mgl32.Vec3) bool {
	_, _, inside := b.penetration(p, Hull{})
	return inside
}

// GroundPlane is the solid half-space below z.
func GroundPlane(z float32) Brush {
	return Brush{
		Name:   "ground",
		Planes: []Plane{{Normal: mgl32.Vec3{0, 0, 1}, Dist: z}},
	}
}

// NewBox is an axis-aligned box between min and max.
func NewBox(min, max mgl32.Vec3) Brush {
	return Brush{
		Name: "box",
		Planes: []Plane{
			PlaneThrough(mgl32.Vec3{1, 0, 0}, max),
			PlaneThrough(mgl32.Vec3{-1, 0, 0}, min),
			PlaneThrough(mgl32.Vec3{0, 1, 0}, max),
			PlaneThrough(mgl32.Vec3{0, -1, 0}, min),
			PlaneThrough(mgl32.Vec3{0, 0, 1}, max),
			PlaneThrough(mgl32.Vec3{0, 0, -1}, min),
		},
	}
}

// RampDir is the horizontal direction a ramp rises toward.
type RampDir uint8

const (
	RisePosX RampDir = iota
	RiseNegX
	RisePosY
	RiseNegY
)

// NewRamp is a wedge filling the box min..max: its height is zero at the low
// edge and max.z - min.z at the high edge.
func NewRamp(min, max mgl32.Vec3, dir RampDir) Brush {
	var (
		axis      int
		sign      float32
		low, high float32
	)
	switch dir {
	case RisePosX:
		axis, sign, low, high = 0, 1, min[0], max[0]
	case RiseNegX:
		axis, sign, low, high = 0, -1, max[0], min[0]
	case RisePosY:
		axis, sign, low, high = 1, 1, min[1], max[1]
	default:
		axis, sign, low, high = 1, -1, max[1], min[1]
	}
	run := math32.Abs(high - low)
	rise := max[2] - min[2]

	var slope mgl32.Vec3
	slope[axis] = -sign * rise
	slope[2] = run

	lowEdge := min
	lowEdge[axis] = low
	highFace := mgl32.Vec3{}
	highFace[axis] = sign

	planes := []Plane{
		PlaneThrough(slope, lowEdge),
		PlaneThrough(mgl32.Vec3{0, 0, -1}, min),
		{Normal: highFace, Dist: sign * high},
		{Normal: highFace.Mul(-1), Dist: -sign * low},
	}
	side := 1 - axis
	var sideNormal mgl32.Vec3
	sideNormal[side] = 1
	planes = append(planes,
		PlaneThrough(sideNormal, max),
		PlaneThrough(sideNormal.Mul(-1), min),
	)
	return Brush{Name: "ramp", Planes: planes}
}

// SlopeAngle is the angle between the ramp surface and the horizontal.
func SlopeAngle(n mgl32.Vec3) float32 {
	return math32.Acos(mgl32.Clamp(n[2], -1, 1))
}
