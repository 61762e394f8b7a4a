package common

import (
	"github.com/chewxy/math32"
)

// Identity4 returns the 4x4 identity matrix.
// All matrices in this package are [16]float32 stored in column-major order (WebGPU convention),
// so element (row r, column c) lives at index c*4+r.
//
// Returns:
//   - [16]float32: the identity matrix
func Identity4() [16]float32 {
	return [16]float32{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// Mul4 multiplies two column-major 4x4 matrices.
// Result: a * b, so b is applied to a point first.
//
// Parameters:
//   - a: left-hand matrix
//   - b: right-hand matrix
//
// Returns:
//   - [16]float32: the product a * b
func Mul4(a, b [16]float32) [16]float32 {
	var out [16]float32
	for col := 0; col < 4; col++ {
		for row := 0; row < 4; row++ {
			var sum float32
			for k := 0; k < 4; k++ {
				sum += a[k*4+row] * b[col*4+k]
			}
			out[col*4+row] = sum
		}
	}
	return out
}

// Transpose4 swaps rows and columns of a 4x4 matrix.
//
// Parameters:
//   - m: the source matrix
//
// Returns:
//   - [16]float32: the transposed matrix
func Transpose4(m [16]float32) [16]float32 {
	var out [16]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = m[r*4+c]
		}
	}
	return out
}

// Invert4 computes the inverse of a column-major 4x4 matrix using cofactor expansion over
// 2x2 sub-determinants. Singular matrices (zero or non-finite determinant) are reported
// through the second return value and the returned matrix is the zero matrix.
//
// Parameters:
//   - m: the matrix to invert
//
// Returns:
//   - [16]float32: the inverse of m, or the zero matrix if m is singular
//   - bool: true if m was invertible
func Invert4(m [16]float32) ([16]float32, bool) {
	s0 := m[0]*m[5] - m[4]*m[1]
	s1 := m[0]*m[6] - m[4]*m[2]
	s2 := m[0]*m[7] - m[4]*m[3]
	s3 := m[1]*m[6] - m[5]*m[2]
	s4 := m[1]*m[7] - m[5]*m[3]
	s5 := m[2]*m[7] - m[6]*m[3]

	c5 := m[10]*m[15] - m[14]*m[11]
	c4 := m[9]*m[15] - m[13]*m[11]
	c3 := m[9]*m[14] - m[13]*m[10]
	c2 := m[8]*m[15] - m[12]*m[11]
	c1 := m[8]*m[14] - m[12]*m[10]
	c0 := m[8]*m[13] - m[12]*m[9]

	det := s0*c5 - s1*c4 + s2*c3 + s3*c2 - s4*c1 + s5*c0
	if det == 0 || math32.IsNaN(det) || math32.IsInf(det, 0) {
		return [16]float32{}, false
	}
	inv := 1 / det

	return [16]float32{
		(m[5]*c5 - m[6]*c4 + m[7]*c3) * inv,
		(-m[1]*c5 + m[2]*c4 - m[3]*c3) * inv,
		(m[13]*s5 - m[14]*s4 + m[15]*s3) * inv,
		(-m[9]*s5 + m[10]*s4 - m[11]*s3) * inv,

		(-m[4]*c5 + m[6]*c2 - m[7]*c1) * inv,
		(m[0]*c5 - m[2]*c2 + m[3]*c1) * inv,
		(-m[12]*s5 + m[14]*s2 - m[15]*s1) * inv,
		(m[8]*s5 - m[10]*s2 + m[11]*s1) * inv,

		(m[4]*c4 - m[5]*c2 + m[7]*c0) * inv,
		(-m[0]*c4 + m[1]*c2 - m[3]*c0) * inv,
		(m[12]*s4 - m[13]*s2 + m[15]*s0) * inv,
		(-m[8]*s4 + m[9]*s2 - m[11]*s0) * inv,

		(-m[4]*c3 + m[5]*c1 - m[6]*c0) * inv,
		(m[0]*c3 - m[1]*c1 + m[2]*c0) * inv,
		(-m[12]*s3 + m[13]*s1 - m[14]*s0) * inv,
		(m[8]*s3 - m[9]*s1 + m[10]*s0) * inv,
	}, true
}

// ApproxEqual4 reports whether every component of a and b differs by at most epsilon.
//
// Parameters:
//   - a, b: the matrices to compare
//   - epsilon: the absolute per-component tolerance
//
// Returns:
//   - bool: true if the matrices are equal within tolerance
func ApproxEqual4(a, b [16]float32, epsilon float32) bool {
	for i := range a {
		if math32.Abs(a[i]-b[i]) > epsilon {
			return false
		}
	}
	return true
}

// TransformPoint applies a column-major 4x4 matrix to a point (w = 1) and performs the
// perspective divide when w is not 1.
//
// Parameters:
//   - m: the transform
//   - p: the point to transform
//
// Returns:
//   - [3]float32: the transformed point
func TransformPoint(m [16]float32, p [3]float32) [3]float32 {
	x := m[0]*p[0] + m[4]*p[1] + m[8]*p[2] + m[12]
	y := m[1]*p[0] + m[5]*p[1] + m[9]*p[2] + m[13]
	z := m[2]*p[0] + m[6]*p[1] + m[10]*p[2] + m[14]
	w := m[3]*p[0] + m[7]*p[1] + m[11]*p[2] + m[15]
	if w != 0 && w != 1 {
		x, y, z = x/w, y/w, z/w
	}
	return [3]float32{x, y, z}
}

// TranslateScale builds a model matrix that scales then translates.
//
// Parameters:
//   - pos: the translation
//   - scale: per-axis scale factors
//
// Returns:
//   - [16]float32: the model matrix
func TranslateScale(pos, scale [3]float32) [16]float32 {
	return [16]float32{
		scale[0], 0, 0, 0,
		0, scale[1], 0, 0,
		0, 0, scale[2], 0,
		pos[0], pos[1], pos[2], 1,
	}
}

// Perspective creates a right-handed perspective projection matrix that maps depth into
// the WebGPU clip range [0, 1].
//
// Parameters:
//   - fovY: vertical field of view in radians
//   - aspect: viewport aspect ratio (width/height)
//   - near: near clipping plane distance (must be > 0)
//   - far: far clipping plane distance (must be > near)
//
// Returns:
//   - [16]float32: the projection matrix
func Perspective(fovY, aspect, near, far float32) [16]float32 {
	f := 1 / math32.Tan(fovY/2)
	var out [16]float32
	out[0] = f / aspect
	out[5] = f
	out[10] = far / (near - far)
	out[11] = -1
	out[14] = (near * far) / (near - far)
	return out
}

// LookAt creates a view matrix for a camera at eye looking toward center.
//
// Parameters:
//   - eye: the camera position in world space
//   - center: the point the camera looks at
//   - up: the up direction (typically 0,1,0)
//
// Returns:
//   - [16]float32: the view matrix
func LookAt(eye, center, up [3]float32) [16]float32 {
	z := normalize([3]float32{eye[0] - center[0], eye[1] - center[1], eye[2] - center[2]})
	x := normalize(cross(up, z))
	y := cross(z, x)

	return [16]float32{
		x[0], y[0], z[0], 0,
		x[1], y[1], z[1], 0,
		x[2], y[2], z[2], 0,
		-dot(x, eye), -dot(y, eye), -dot(z, eye), 1,
	}
}

func cross(a, b [3]float32) [3]float32 {
	return [3]float32{
		a[1]*b[2] - a[2]*b[1],
		a[2]*b[0] - a[0]*b[2],
		a[0]*b[1] - a[1]*b[0],
	}
}

func dot(a, b [3]float32) float32 {
	return a[0]*b[0] + a[1]*b[1] + a[2]*b[2]
}

// normalize leaves zero-length vectors untouched.
func normalize(v [3]float32) [3]float32 {
	l := math32.Sqrt(dot(v, v))
	if l == 0 {
		return v
	}
	return [3]float32{v[0] / l, v[1] / l, v[2] / l}
}
