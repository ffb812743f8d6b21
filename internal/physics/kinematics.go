package physics

import (
	"github.com/chewxy/math32"
	"github.com/go-gl/mathgl/mgl32"
)

// applyFriction slows ground velocity. Speed is measured horizontally and the
// whole vector is scaled, so motion along a slope stops with it. Below
// StopSpeed the drop is computed as if moving at StopSpeed, so the player
// comes to a full stop in a bounded number of ticks.
func applyFriction(vel *mgl32.Vec3, c Constants, dt float32) {
	speed := horizontal(*vel).Len()
	if speed < StallSpeed {
		*vel = mgl32.Vec3{}
		return
	}

	control := math32.Max(speed, c.StopSpeed)
	newSpeed := speed - control*c.Friction*dt
	if newSpeed <= 0 {
		*vel = mgl32.Vec3{}
		return
	}
	*vel = vel.Mul(newSpeed / speed)
}

// accelerate is the shared Quake rule: speed along wish may grow by at most
// m.Accel*dt and only while it is below m.SpeedCap. Total speed is not capped,
// which is what lets strafing outrun the cap.
func accelerate(vel *mgl32.Vec3, wish mgl32.Vec2, m Movement, dt float32) {
	projected := horizontal(*vel).Dot(wish)
	addSpeed := m.SpeedCap - projected
	if addSpeed <= 0 {
		return
	}
	accelSpeed := math32.Min(m.Accel*dt, addSpeed)
	vel[0] += accelSpeed * wish[0]
	vel[1] += accelSpeed * wish[1]
}

// groundAccelerate is accelerate plus the ground limit: the result never
// exceeds max(GroundSpeedCap, speed before accelerating).
func groundAccelerate(vel *mgl32.Vec3, wish mgl32.Vec2, c Constants, dt float32) {
	before := horizontal(*vel).Len()
	accelerate(vel, wish, c.Ground(), dt)

	limit := math32.Max(c.GroundSpeedCap, before)
	after := horizontal(*vel).Len()
	if after > limit {
		scale := limit / after
		vel[0] *= scale
		vel[1] *= scale
	}
}

// clipVelocity removes the component of vel pointing into a surface.
func clipVelocity(vel *mgl32.Vec3, normal mgl32.Vec3) {
	into := vel.Dot(normal)
	if into >= 0 {
		return
	}
	*vel = vel.Sub(normal.Mul(into))
}

// projectOntoPlane removes the whole normal component of vel, keeping a
// grounded player moving along the surface. A zero normal leaves vel as is.
func projectOntoPlane(vel *mgl32.Vec3, normal mgl32.Vec3) {
	*vel = vel.Sub(normal.Mul(vel.Dot(normal)))
}
