package model

// ImportMatrix is a 4x4 transform as delivered by scene importers: row-major, so element
// (row r, column c) lives at index r*4+c and translation occupies indices 3, 7 and 11.
type ImportMatrix [16]float32

// IdentityImportMatrix returns the identity transform in the import convention.
//
// Returns:
//   - ImportMatrix: the identity matrix
func IdentityImportMatrix() ImportMatrix {
	return ImportMatrix{
		1, 0, 0, 0,
		0, 1, 0, 0,
		0, 0, 1, 0,
		0, 0, 0, 1,
	}
}

// ToEngine converts an imported row-major matrix into the engine's column-major convention.
// The conversion is a fixed re-indexing of the 16 components, so it is exact and total:
// applying the result to a point yields the same geometric result as the source matrix.
//
// Returns:
//   - [16]float32: the equivalent column-major matrix
func (m ImportMatrix) ToEngine() [16]float32 {
	var out [16]float32
	for r := 0; r < 4; r++ {
		for c := 0; c < 4; c++ {
			out[c*4+r] = m[r*4+c]
		}
	}
	return out
}

// FromEngine converts an engine column-major matrix back into the import convention.
// FromEngine(m.ToEngine()) reproduces m exactly.
//
// Parameters:
//   - m: the column-major engine matrix
//
// Returns:
//   - ImportMatrix: the equivalent row-major matrix
func FromEngine(m [16]float32) ImportMatrix {
	var out ImportMatrix
	for c := 0; c < 4; c++ {
		for r := 0; r < 4; r++ {
			out[r*4+c] = m[c*4+r]
		}
	}
	return out
}
