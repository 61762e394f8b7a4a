package loader

import (
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/go-gl/mathgl/mgl32"
)

// composeTRS builds a node's local transform as T * R * S and returns it in the import
// (row-major) convention. A zero-length rotation is treated as the identity rotation and a
// zero scale vector as unit scale, matching the defaults of formats that omit those fields.
//
// Parameters:
//   - t: translation
//   - r: rotation quaternion as (x, y, z, w)
//   - s: per-axis scale
//
// Returns:
//   - model.ImportMatrix: the composed local transform
func composeTRS(t [3]float32, r [4]float32, s [3]float32) model.ImportMatrix {
	if s == ([3]float32{}) {
		s = [3]float32{1, 1, 1}
	}
	q := mgl32.Quat{W: r[3], V: mgl32.Vec3{r[0], r[1], r[2]}}
	if q.Len() == 0 {
		q = mgl32.QuatIdent()
	} else {
		q = q.Normalize()
	}

	m := mgl32.Translate3D(t[0], t[1], t[2]).
		Mul4(q.Mat4()).
		Mul4(mgl32.Scale3D(s[0], s[1], s[2]))
	return model.FromEngine([16]float32(m))
}

// isZeroOrIdentity reports whether a column-major matrix is unset or the identity,
// in which case a node's TRS fields define its transform.
func isZeroOrIdentity(m [16]float32) bool {
	return m == [16]float32{} || m == [16]float32(mgl32.Ident4())
}
