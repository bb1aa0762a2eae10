package model

import "math"

// Vec3 is a unit-agnostic 3-vector on the celestial sphere or in the camera
// frame (+Z along the boresight, +X to the image right, +Y down the image).
type Vec3 struct {
	X, Y, Z float64
}

// Dot returns the scalar product.
func (v Vec3) Dot(o Vec3) float64 {
	return v.X*o.X + v.Y*o.Y + v.Z*o.Z
}

// Cross returns the vector product v x o.
func (v Vec3) Cross(o Vec3) Vec3 {
	return Vec3{
		X: v.Y*o.Z - v.Z*o.Y,
		Y: v.Z*o.X - v.X*o.Z,
		Z: v.X*o.Y - v.Y*o.X,
	}
}

// Norm returns the Euclidean length.
func (v Vec3) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Normalized returns v scaled to unit length. The zero vector is returned
// unchanged.
func (v Vec3) Normalized() Vec3 {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return Vec3{X: v.X / n, Y: v.Y / n, Z: v.Z / n}
}

// Angle returns the angle in radians between v and o, both assumed unit.
func (v Vec3) Angle(o Vec3) float64 {
	d := v.Dot(o)
	if d > 1 {
		d = 1
	} else if d < -1 {
		d = -1
	}
	return math.Acos(d)
}

// UnitFromRADec converts right ascension and declination (radians) to a unit
// vector in the celestial frame.
func UnitFromRADec(ra, dec float64) Vec3 {
	cd := math.Cos(dec)
	return Vec3{
		X: cd * math.Cos(ra),
		Y: cd * math.Sin(ra),
		Z: math.Sin(dec),
	}
}

// Rotation is a 3x3 rotation matrix taking camera-frame vectors into the
// celestial frame: u_celestial = R * v_camera. Columns are the camera axes
// expressed in celestial coordinates.
type Rotation [3][3]float64

// Apply rotates a camera-frame vector into the celestial frame.
func (r Rotation) Apply(v Vec3) Vec3 {
	return Vec3{
		X: r[0][0]*v.X + r[0][1]*v.Y + r[0][2]*v.Z,
		Y: r[1][0]*v.X + r[1][1]*v.Y + r[1][2]*v.Z,
		Z: r[2][0]*v.X + r[2][1]*v.Y + r[2][2]*v.Z,
	}
}

// ApplyInverse rotates a celestial-frame vector into the camera frame.
func (r Rotation) ApplyInverse(u Vec3) Vec3 {
	return Vec3{
		X: r[0][0]*u.X + r[1][0]*u.Y + r[2][0]*u.Z,
		Y: r[0][1]*u.X + r[1][1]*u.Y + r[2][1]*u.Z,
		Z: r[0][2]*u.X + r[1][2]*u.Y + r[2][2]*u.Z,
	}
}

// Boresight returns the celestial direction of the camera +Z axis.
func (r Rotation) Boresight() Vec3 {
	return Vec3{X: r[0][2], Y: r[1][2], Z: r[2][2]}
}

// RotationFromAngles builds the attitude rotation for a boresight at
// (ra, dec) with roll ori about the boresight. Inverse of AnglesFromRotation.
func RotationFromAngles(dec, ra, ori float64) Rotation {
	b := UnitFromRADec(ra, dec)
	east := Vec3{X: -math.Sin(ra), Y: math.Cos(ra), Z: 0}
	north := b.Cross(east)

	// Camera +X rolled by ori inside the tangent plane at the boresight.
	xc := Vec3{
		X: math.Sin(ori)*east.X + math.Cos(ori)*north.X,
		Y: math.Sin(ori)*east.Y + math.Cos(ori)*north.Y,
		Z: math.Sin(ori)*east.Z + math.Cos(ori)*north.Z,
	}
	yc := b.Cross(xc)

	return Rotation{
		{xc.X, yc.X, b.X},
		{xc.Y, yc.Y, b.Y},
		{xc.Z, yc.Z, b.Z},
	}
}

// AnglesFromRotation recovers (dec, ra, ori) from an attitude rotation.
// RA is normalised to [0, 2pi), ori to (-pi, pi]. At the celestial poles the
// roll reference degenerates; callers operating there get ra = 0.
func AnglesFromRotation(r Rotation) (dec, ra, ori float64) {
	b := r.Boresight()

	z := b.Z
	if z > 1 {
		z = 1
	} else if z < -1 {
		z = -1
	}
	dec = math.Asin(z)
	if b.X != 0 || b.Y != 0 {
		ra = math.Atan2(b.Y, b.X)
	}
	if ra < 0 {
		ra += 2 * math.Pi
	}

	east := Vec3{X: -math.Sin(ra), Y: math.Cos(ra), Z: 0}
	north := b.Cross(east)
	xc := Vec3{X: r[0][0], Y: r[1][0], Z: r[2][0]}
	ori = math.Atan2(xc.Dot(east), xc.Dot(north))
	return dec, ra, ori
}
