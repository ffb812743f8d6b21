package physics

import (
	"errors"

	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const (
	pushOutPasses   = 4
	maxSubsteps     = 1024
	contactEpsilon  = 1e-6
	normalDedupeDot = 0.9999
)

var (
	ErrNonFinite = errors.New("physics: non-finite position")
	// ErrRunaway is returned for a displacement needing more than maxSubsteps
	// substeps. Only absurd constants get there.
	ErrRunaway   = errors.New("physics: displacement too large to resolve")
)

// Resolver keeps the player out of static geometry.
type Resolver interface {
	Resolve(q Query) (Result, error)
}

type Query struct {
	Origin       mgl32.Vec3
	Displacement mgl32.Vec3
	Hull         Hull
	// Probe is how far below the feet ground is still detected.
	Probe          float32
	SlopeTolerance float32
}

type Result struct {
	// Displacement is the corrected move; Origin+Displacement is the new
	// position.
	Displacement mgl32.Vec3
	Contact      bool
	// Normal is the most upward-facing contact normal.
	Normal       mgl32.Vec3
	Ground       bool
	GroundNormal mgl32.Vec3
	// Normals holds every distinct surface touched during the move.
	Normals []mgl32.Vec3
	Wrapped bool
}

// Hull is the player's box, anchored at the feet: [-R,R]x[-R,R]x[0,H].
type Hull struct {
	Radius float32
	Height float32
}

// support is how far the hull reaches against a plane normal.
func (h Hull) support(n mgl32.Vec3) float32 {
	return h.Radius*(math32.Abs(n[0])+math32.Abs(n[1])) + math32.Max(0, -n[2])*h.Height
}

// Bounds optionally wrap the player around the edges of a map.
type Bounds struct {
	Min   mgl32.Vec2
	Max   mgl32.Vec2
	WrapX bool
	WrapY bool
}

func (b Bounds) wrap(p mgl32.Vec3) (mgl32.Vec3, bool) {
	wrapped := false
	axes := [2]bool{b.WrapX, b.WrapY}
	for i, on := range axes {
		if !on {
			continue
		}
		size := b.Max[i] - b.Min[i]
		if size <= 0 {
			continue
		}
		if p[i] < b.Min[i] {
			p[i] += size
			wrapped = true
		} else if p[i] > b.Max[i] {
			p[i] -= size
			wrapped = true
		}
	}
	return p, wrapped
}

// World is a brute-force collision world: every brush is checked on every
// query, which is fine for the handful of shapes a training map holds.
type World struct {
	brushes []Brush
	bounds  *Bounds
}

func NewWorld(brushes ...Brush) *World {
	return &World{brushes: append([]Brush(nil), brushes...)}
}

func (w *World) Add(b Brush) {
	w.brushes = append(w.brushes, b)
}

func (w *World) SetBounds(b Bounds) {
	w.bounds = &b
}

func (w *World) Bounds() (Bounds, bool) {
	if w.bounds == nil {
		return Bounds{}, false
	}
	return *w.bounds, true
}

func (w *World) Brushes() []Brush {
	return w.brushes
}

// Resolve moves Origin by Displacement in substeps no longer than half the
// hull radius, pushing out of penetrated brushes after each substep. More than
// maxSubsteps substeps fails with ErrRunaway.
func (w *World) Resolve(q Query) (Result, error) {
	if !finiteVec3(q.Origin) || !finiteVec3(q.Displacement) {
		return Result{}, ErrNonFinite
	}

	minGroundZ := math32.Cos(q.SlopeTolerance)
	var res Result
	pos := q.Origin

	steps := 1
	if maxStep := q.Hull.Radius / 2; maxStep > 0 {
		n := math32.Ceil(q.Displacement.Len() / maxStep)
		if n > maxSubsteps {
			return Result{}, ErrRunaway
		}
		if int(n) > steps {
			steps = int(n)
		}
	}
	sub := q.Displacement.Mul(1 / float32(steps))

	for i := 0; i < steps; i++ {
		pos = pos.Add(sub)
		for pass := 0; pass < pushOutPasses; pass++ {
			moved := false
			for bi := range w.brushes {
				n, depth, inside := w.brushes[bi].penetration(pos, q.Hull)
				if !inside {
					continue
				}
				pos = pos.Add(n.Mul(depth))
				res.touch(n, minGroundZ)
				moved = true
			}
			if !moved {
				break
			}
		}
	}

	if !res.Ground && q.Probe > 0 {
		probe := pos.Sub(mgl32.Vec3{0, 0, q.Probe})
		for bi := range w.brushes {
			n, _, inside := w.brushes[bi].penetration(probe, q.Hull)
			if !inside || n[2] < minGroundZ {
				continue
			}
			// Moving away from the surface (a jump) is not contact.
			if q.Displacement.Dot(n) > contactEpsilon {
				continue
			}
			res.touch(n, minGroundZ)
		}
	}

	if w.bounds != nil {
		pos, res.Wrapped = w.bounds.wrap(pos)
	}
	if !finiteVec3(pos) {
		return Result{}, ErrNonFinite
	}
	res.Displacement = pos.Sub(q.Origin)
	return res, nil
}

func (r *Result) touch(n mgl32.Vec3, minGroundZ float32) {
	seen := false
	for _, have := range r.Normals {
		if have.Dot(n) > normalDedupeDot {
			seen = true
			break
		}
	}
	if !seen {
		r.Normals = append(r.Normals, n)
	}
	if !r.Contact || n[2] > r.Normal[2] {
		r.Normal = n
	}
	r.Contact = true
	if n[2] >= minGroundZ && (!r.Ground || n[2] > r.GroundNormal[2]) {
		r.Ground = true
		r.GroundNormal = n
	}
}
