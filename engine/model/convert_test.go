package model

import (
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
)

func TestToEngineIdentity(t *testing.T) {
	if got := IdentityImportMatrix().ToEngine(); got != common.Identity4() {
		t.Fatalf("ToEngine(identity) = %v, want identity", got)
	}
}

func TestToEngineRoundTripIsExact(t *testing.T) {
	tests := []struct {
		name string
		m    ImportMatrix
	}{
		{"sequence", ImportMatrix{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11, 12, 13, 14, 15, 16}},
		{"awkward floats", ImportMatrix{
			0.1, -0.2, 1e-30, 3.4e38,
			math.SmallestNonzeroFloat32, 1.0 / 3.0, -7, 0,
			2.5e-7, 9999.999, -1e-12, 42,
			0, 0, 0, 1,
		}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FromEngine(tt.m.ToEngine()); got != tt.m {
				t.Fatalf("round trip changed matrix:\n got %v\nwant %v", got, tt.m)
			}
		})
	}
}

func TestToEngineMovesTranslation(t *testing.T) {
	m := IdentityImportMatrix()
	m[3], m[7], m[11] = 1, 2, 3

	e := m.ToEngine()
	if e[12] != 1 || e[13] != 2 || e[14] != 3 {
		t.Fatalf("translation not in column 3: %v", e)
	}
}

// A row-major matrix applied as M*p must give the same point as the converted matrix.
func TestToEnginePreservesGeometry(t *testing.T) {
	m := ImportMatrix{
		0, -1, 0, 5,
		1, 0, 0, -2,
		0, 0, 2, 1,
		0, 0, 0, 1,
	}
	p := [3]float32{1, 2, 3}

	var want [3]float32
	for r := 0; r < 3; r++ {
		want[r] = m[r*4+0]*p[0] + m[r*4+1]*p[1] + m[r*4+2]*p[2] + m[r*4+3]
	}
	if got := common.TransformPoint(m.ToEngine(), p); got != want {
		t.Fatalf("TransformPoint = %v, want %v", got, want)
	}
}
