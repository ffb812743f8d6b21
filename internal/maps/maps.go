// Package maps builds the training arenas as collision worlds.
package maps

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"strings"

	"github.com/Versifine/strafe/internal/physics"
	"github.com/chewxy/math32"
	"github.com/elliotchance/orderedmap/v2"
	"github.com/go-gl/mathgl/mgl32"
)

// Sizes in reference units; Build multiplies them by the unit scale.
const (
	WallThickness = 8.0
	WallHeight    = 128.0
	BoxWidth      = 128.0

	RunwayLength = 16384.0
	RunwayWidth  = 2048.0

	FreestyleSize    = 8192.0
	freestyleDensity = 0.0015
	freestyleRamps   = 12

	DefaultSeed = uint64(0x5f3759df)
)

var ErrUnknownMap = errors.New("unknown map")

// Map is a built arena.
type Map struct {
	Name     string
	World    *physics.World
	Spawn    mgl32.Vec3
	SpawnYaw float32
	// Extent is the playable XY area, used to frame the top-down view.
	Extent physics.Bounds
}

type entry struct {
	description string
	build       func(scale float32, rng *rand.Rand) *Map
}

var registry = func() *orderedmap.OrderedMap[string, entry] {
	m := orderedmap.NewOrderedMap[string, entry]()
	m.Set("flat", entry{"endless flat ground", buildFlat})
	m.Set("runway", entry{"long walled strip that wraps end to end", buildRunway})
	m.Set("freestyle", entry{"open field of scattered boxes and ramps, wraps on both axes", buildFreestyle})
	return m
}()

func Names() []string {
	return registry.Keys()
}

func Describe(name string) string {
	e, ok := registry.Get(strings.ToLower(name))
	if !ok {
		return ""
	}
	return e.description
}

// Build constructs the named map at the given unit scale. The same seed always
// yields the same layout.
func Build(name string, scale float32, seed uint64) (*Map, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	e, ok := registry.Get(key)
	if !ok {
		return nil, fmt.Errorf("%w %q (have %s)", ErrUnknownMap, name, strings.Join(Names(), ", "))
	}
	if !(scale > 0) {
		return nil, fmt.Errorf("map %s: unit scale must be > 0, got %v", key, scale)
	}
	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	m := e.build(scale, rng)
	m.Name = key
	return m, nil
}

func buildFlat(scale float32, _ *rand.Rand) *Map {
	half := float32(FreestyleSize) / 2 * scale
	return &Map{
		World: physics.NewWorld(physics.GroundPlane(0)),
		Extent: physics.Bounds{
			Min: mgl32.Vec2{-half, -half},
			Max: mgl32.Vec2{half, half},
		},
	}
}

func buildRunway(scale float32, _ *rand.Rand) *Map {
	length := float32(RunwayLength) * scale
	width := float32(RunwayWidth) * scale
	wall := float32(WallThickness) * scale
	height := float32(WallHeight) * scale

	w := physics.NewWorld(physics.GroundPlane(0))
	left := physics.NewBox(
		mgl32.Vec3{-width/2 - wall, -length, 0},
		mgl32.Vec3{-width / 2, length, height},
	)
	left.Name = "wall"
	right := physics.NewBox(
		mgl32.Vec3{width / 2, -length, 0},
		mgl32.Vec3{width/2 + wall, length, height},
	)
	right.Name = "wall"
	w.Add(left)
	w.Add(right)

	bounds := physics.Bounds{
		Min:   mgl32.Vec2{-width / 2, -length / 2},
		Max:   mgl32.Vec2{width / 2, length / 2},
		WrapY: true,
	}
	w.SetBounds(bounds)
	return &Map{
		World:  w,
		Spawn:  mgl32.Vec3{0, -length / 2 * 0.9, 0},
		Extent: bounds,
	}
}

type placement struct {
	center mgl32.Vec2
	size   float32
}

func buildFreestyle(scale float32, rng *rand.Rand) *Map {
	size := float32(FreestyleSize)
	count := int(size * size * freestyleDensity * freestyleDensity)

	placed := make([]placement, 0, count)
	for attempts := 0; len(placed) < count && attempts < count*50; attempts++ {
		p := placement{
			center: mgl32.Vec2{
				(rng.Float32() - 0.5) * size,
				(rng.Float32() - 0.5) * size,
			},
			size: BoxWidth * (1.5 + 1.5*rng.Float32()),
		}
		if p.center.Len() < 1.414*p.size+physics.PlayerRadius {
			continue
		}
		if overlaps(placed, p) {
			continue
		}
		placed = append(placed, p)
	}

	w := physics.NewWorld(physics.GroundPlane(0))
	for i, p := range placed {
		center := p.center.Mul(scale)
		half := p.size / 2 * scale
		if i < freestyleRamps {
			dir := physics.RampDir(rng.IntN(4))
			ramp := physics.NewRamp(
				mgl32.Vec3{center[0] - half, center[1] - half, 0},
				mgl32.Vec3{center[0] + half, center[1] + half, p.size / 4 * scale},
				dir,
			)
			w.Add(ramp)
			continue
		}
		angle := rng.Float32() * 2 * math32.Pi
		w.Add(OrientedBox(center, half, angle, 2*p.size*scale))
	}

	half := size / 2 * scale
	bounds := physics.Bounds{
		Min:   mgl32.Vec2{-half, -half},
		Max:   mgl32.Vec2{half, half},
		WrapX: true,
		WrapY: true,
	}
	w.SetBounds(bounds)
	return &Map{World: w, Extent: bounds}
}

func overlaps(placed []placement, p placement) bool {
	for _, other := range placed {
		if other.center.Sub(p.center).Len() <= (p.size+other.size)/2 {
			return true
		}
	}
	return false
}

// OrientedBox is a square pillar centered on center, rotated by angle about Z,
// standing from z=0 to height.
func OrientedBox(center mgl32.Vec2, half, angle, height float32) physics.Brush {
	s, c := math32.Sincos(angle)
	axes := [2]mgl32.Vec3{{c, s, 0}, {-s, c, 0}}
	base := mgl32.Vec3{center[0], center[1], 0}

	planes := make([]physics.Plane, 0, 6)
	for _, axis := range axes {
		planes = append(planes,
			physics.PlaneThrough(axis, base.Add(axis.Mul(half))),
			physics.PlaneThrough(axis.Mul(-1), base.Sub(axis.Mul(half))),
		)
	}
	planes = append(planes,
		physics.PlaneThrough(mgl32.Vec3{0, 0, 1}, mgl32.Vec3{0, 0, height}),
		physics.PlaneThrough(mgl32.Vec3{0, 0, -1}, base),
	)
	return physics.Brush{Name: "box", Planes: planes}
}
