package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

const twoPi = 2 * math32.Pi

func horizontal(v mgl32.Vec3) mgl32.Vec2 {
	return mgl32.Vec2{v[0], v[1]}
}

func finite(f float32) bool {
	return !math32.IsNaN(f) && !math32.IsInf(f, 0)
}

func finiteVec3(v mgl32.Vec3) bool {
	return finite(v[0]) && finite(v[1]) && finite(v[2])
}

// RotateYaw turns a player-local XY vector (x = right, y = forward) into world
// space. Yaw 0 faces +Y; positive yaw turns counter-clockwise seen from above.
func RotateYaw(local mgl32.Vec2, yaw float32) mgl32.Vec2 {
	s, c := math32.Sincos(yaw)
	return mgl32.Vec2{
		local[0]*c - local[1]*s,
		local[0]*s + local[1]*c,
	}
}

// Heading is the yaw that faces the given world XY direction.
func Heading(dir mgl32.Vec2) float32 {
	return WrapYaw(math32.Atan2(dir[1], dir[0]) - math32.Pi/2)
}

// WrapYaw maps any angle into [0, 2π).
func WrapYaw(yaw float32) float32 {
	yaw = math32.Mod(yaw, twoPi)
	if yaw < 0 {
		yaw += twoPi
	}
	if yaw >= twoPi {
		yaw = 0
	}
	return yaw
}

// WrapSigned maps any angle into [-π, π).
func WrapSigned(a float32) float32 {
	a = WrapYaw(a + math32.Pi)
	return a - math32.Pi
}

func ClampPitch(pitch float32) float32 {
	return mgl32.Clamp(pitch, -MaxPitch, MaxPitch)
}
