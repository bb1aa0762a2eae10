package astro

import "github.com/Oregon-Tech-Rocketry-and-Aerospace/space-debris-card/model"

// DirectionFromOffset converts a centre-relative pixel offset into a unit
// direction in the camera frame under a gnomonic (pinhole) projection.
// Scale is radians per pixel at the image centre.
func DirectionFromOffset(x, y, scale float64) model.Vec3 {
	return model.Vec3{X: x * scale, Y: y * scale, Z: 1}.Normalized()
}

// OffsetFromDirection is the inverse projection. The direction must have a
// positive Z component, i.e. lie in front of the camera.
func OffsetFromDirection(v model.Vec3, scale float64) (x, y float64) {
	return v.X / v.Z / scale, v.Y / v.Z / scale
}
