package camera

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
)

func TestCameraProjectsTargetToCenter(t *testing.T) {
	c := NewCamera(WithEye(0, 2, 6), WithTarget(0, 1, 0), WithAspect(16.0/9.0))

	vp := c.ViewProjectionMatrix()
	// Homogeneous clip position of the target: x and y are zero before the divide.
	target := c.Target()
	var clip [4]float32
	for r := 0; r < 4; r++ {
		clip[r] = vp[0*4+r]*target[0] + vp[1*4+r]*target[1] + vp[2*4+r]*target[2] + vp[3*4+r]
	}
	if math.Abs(float64(clip[0])) > 1e-5 || math.Abs(float64(clip[1])) > 1e-5 {
		t.Errorf("target clip xy = (%v, %v), want (0, 0)", clip[0], clip[1])
	}
	if clip[3] <= 0 {
		t.Errorf("target clip w = %v, want in front of the camera", clip[3])
	}
	depth := clip[2] / clip[3]
	if depth < 0 || depth > 1 {
		t.Errorf("target depth = %v, want inside [0, 1]", depth)
	}
}

func TestCameraSetters(t *testing.T) {
	c := NewCamera()
	before := c.ProjectionMatrix()

	c.SetAspect(0)
	if c.Aspect() != 1 || c.ProjectionMatrix() != before {
		t.Error("SetAspect(0) changed the projection")
	}

	c.SetAspect(2)
	if c.ProjectionMatrix() == before {
		t.Error("SetAspect(2) did not update the projection")
	}

	c.LookAt([3]float32{3, 0, 0}, [3]float32{0, 0, 0})
	want := common.Mul4(c.ProjectionMatrix(), common.LookAt([3]float32{3, 0, 0}, [3]float32{0, 0, 0}, c.Up()))
	if c.ViewProjectionMatrix() != want {
		t.Error("LookAt did not recompute the view-projection matrix")
	}
}

func TestCameraWithUpLooksStraightDown(t *testing.T) {
	eye, target, up := [3]float32{0, 5, 0}, [3]float32{0, 0, 0}, [3]float32{0, 0, -1}
	c := NewCamera(WithEye(eye[0], eye[1], eye[2]), WithTarget(0, 0, 0), WithUp(up[0], up[1], up[2]))

	if c.Up() != up {
		t.Fatalf("Up = %v, want %v", c.Up(), up)
	}
	if c.ViewMatrix() != common.LookAt(eye, target, up) {
		t.Error("view matrix does not use the configured up vector")
	}
	// A point ahead on the up axis stays on screen, above the center.
	p := common.TransformPoint(c.ViewMatrix(), [3]float32{0, 0, -1})
	if p[1] <= 0 {
		t.Errorf("view-space y of the up point = %v, want positive", p[1])
	}
}

func TestUniformMarshal(t *testing.T) {
	c := NewCamera()
	model := common.TranslateScale([3]float32{1, 2, 3}, [3]float32{2, 2, 2})
	u := c.Uniform(model)
	if u.Size() != 128 {
		t.Fatalf("Size = %d, want 128", u.Size())
	}

	buf := u.Marshal(nil)
	if len(buf) != 128 {
		t.Fatalf("Marshal produced %d bytes, want 128", len(buf))
	}
	vp := c.ViewProjectionMatrix()
	for i := 0; i < 16; i++ {
		if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[i*4:])); got != vp[i] {
			t.Fatalf("view_proj[%d] = %v, want %v", i, got, vp[i])
		}
		if got := math.Float32frombits(binary.LittleEndian.Uint32(buf[64+i*4:])); got != model[i] {
			t.Fatalf("model[%d] = %v, want %v", i, got, model[i])
		}
	}

	reused := u.Marshal(buf[:0])
	if &reused[0] != &buf[0] {
		t.Error("Marshal did not reuse a large enough buffer")
	}
}
