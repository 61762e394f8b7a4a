package model

import (
	"encoding/binary"
	"math"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
)

type countingWriter struct {
	calls   int
	indices []int
}

func (w *countingWriter) SetBoneMatrix(index int, _ [16]float32) {
	w.calls++
	w.indices = append(w.indices, index)
}

// withBindPoseOffsets replaces every bone offset with the inverse of that bone's world transform,
// which is what exporters store for a mesh bound in the rest pose.
func withBindPoseOffsets(t *testing.T, scene *ImportedScene) *ImportedScene {
	t.Helper()
	h := mustBuild(t, scene)
	for mi := range scene.Meshes {
		for bi, b := range scene.Meshes[mi].Bones {
			n := mustNode(t, h, b.Name)
			inv, ok := common.Invert4(n.WorldTransform)
			if !ok {
				t.Fatalf("bone %q not invertible", b.Name)
			}
			scene.Meshes[mi].Bones[bi].Offset = FromEngine(inv)
		}
	}
	return scene
}

func TestEvaluateSkinningBindPose(t *testing.T) {
	h := mustBuild(t, withBindPoseOffsets(t, humanoid()))

	mats := make(BoneMatrices, h.BoneCount())
	if n := EvaluateSkinning(h, mats); n != h.BoneCount() {
		t.Fatalf("EvaluateSkinning = %d, want %d", n, h.BoneCount())
	}

	// world * offset cancels in the rest pose, leaving only the global inverse.
	inv, _ := h.GlobalInverseTransform()
	for i, m := range mats {
		if !common.ApproxEqual4(m, inv, 1e-3) {
			t.Fatalf("bone %d skinning = %v, want global inverse %v", i, m, inv)
		}
	}
}

func TestSkinningMatrixComposition(t *testing.T) {
	scene := rig(node("root", translate(0, 0, 2),
		node("A", translate(0, 1, 0),
			node("B", translate(1, 0, 0)),
		),
	), "A", "B")
	scene.Meshes[0].Bones[1].Offset = translate(0, 0, -5)
	h := mustBuild(t, scene)

	// B's world is T(1,1,2); global inverse is T(0,-1,-2); offset moves z by -5.
	got := common.TransformPoint(SkinningMatrix(h, 1), [3]float32{})
	want := [3]float32{1, 0, -5}
	if got != want {
		t.Fatalf("bone B origin = %v, want %v", got, want)
	}

	b := mustNode(t, h, "B")
	inv, _ := h.GlobalInverseTransform()
	if SkinningMatrix(h, 1) != common.Mul4(common.Mul4(inv, b.WorldTransform), b.Bone.Offset) {
		t.Fatal("SkinningMatrix must equal globalInverse * world * offset")
	}
}

func TestEvaluateSkinningWritesEveryIndexInOrder(t *testing.T) {
	h := mustBuild(t, humanoid())
	w := &countingWriter{}
	EvaluateSkinning(h, w)

	if w.calls != h.BoneCount() {
		t.Fatalf("calls = %d, want %d", w.calls, h.BoneCount())
	}
	for i, idx := range w.indices {
		if idx != i {
			t.Fatalf("write %d went to index %d", i, idx)
		}
	}
}

func TestEvaluateSkinningZeroBones(t *testing.T) {
	h := mustBuild(t, rig(node("root", IdentityImportMatrix())))
	w := &countingWriter{}
	if n := EvaluateSkinning(h, w); n != 0 || w.calls != 0 {
		t.Fatalf("EvaluateSkinning = %d with %d calls, want 0", n, w.calls)
	}
	if n := EvaluateSkinning(nil, w); n != 0 || w.calls != 0 {
		t.Fatalf("nil hierarchy: EvaluateSkinning = %d with %d calls, want 0", n, w.calls)
	}
}

func TestBoneMatricesIgnoresOutOfRange(t *testing.T) {
	mats := make(BoneMatrices, 1)
	mats.SetBoneMatrix(-1, common.Identity4())
	mats.SetBoneMatrix(1, common.Identity4())
	if mats[0] != ([16]float32{}) {
		t.Fatal("out-of-range writes must be ignored")
	}
}

func TestSkeletonGeometryData(t *testing.T) {
	h := mustBuild(t, humanoid())
	g := BuildSkeletonGeometry(h)

	vb := g.VertexData()
	if len(vb) != g.VertexCount()*16 {
		t.Fatalf("vertex bytes = %d, want %d", len(vb), g.VertexCount()*16)
	}
	for i := 0; i < g.VertexCount(); i++ {
		base := i * 16
		if idx := int32(binary.LittleEndian.Uint32(vb[base+12:])); idx != int32(i) {
			t.Fatalf("vertex %d carries bone index %d", i, idx)
		}
		for c := 0; c < 3; c++ {
			if v := math.Float32frombits(binary.LittleEndian.Uint32(vb[base+c*4:])); v != 0 {
				t.Fatalf("vertex %d position component %d = %v, want 0", i, c, v)
			}
		}
	}

	ib := g.IndexData()
	if len(ib) != len(g.Indices)*4 {
		t.Fatalf("index bytes = %d, want %d", len(ib), len(g.Indices)*4)
	}
	for i := 0; i < g.EdgeCount(); i++ {
		child := binary.LittleEndian.Uint32(ib[i*8:])
		parent := binary.LittleEndian.Uint32(ib[i*8+4:])
		n, _ := h.Node(h.BoneNode(int(child)))
		p, _ := h.Node(n.ParentBone)
		if p.Bone.Index != int(parent) {
			t.Fatalf("edge %d = (%d,%d), want parent %d", i, child, parent, p.Bone.Index)
		}
	}
}

func TestMarshalBoneMatrices(t *testing.T) {
	mats := [][16]float32{common.Identity4(), common.TranslateScale([3]float32{1, 2, 3}, [3]float32{1, 1, 1})}
	buf := MarshalBoneMatrices(mats, nil)
	if len(buf) != 2*GPUBoneMatrixSize {
		t.Fatalf("len = %d, want %d", len(buf), 2*GPUBoneMatrixSize)
	}
	if v := math.Float32frombits(binary.LittleEndian.Uint32(buf[GPUBoneMatrixSize+13*4:])); v != 2 {
		t.Fatalf("matrix 1 element 13 = %v, want 2", v)
	}

	reused := MarshalBoneMatrices(mats[:1], buf)
	if len(reused) != GPUBoneMatrixSize || &reused[0] != &buf[0] {
		t.Fatal("MarshalBoneMatrices should reuse a large enough buffer")
	}
}

func TestModelLifecycle(t *testing.T) {
	h := mustBuild(t, humanoid())
	m := NewModel(WithName("humanoid"), WithPath("humanoid.gltf"), WithHierarchy(h))

	if !m.Loaded() || m.BoneCount() != 7 || m.Geometry().VertexCount() != 7 {
		t.Fatalf("loaded=%v bones=%d vertices=%d", m.Loaded(), m.BoneCount(), m.Geometry().VertexCount())
	}
	m.Release()
	if m.Loaded() || m.BoneCount() != 0 || m.Geometry().VertexCount() != 0 {
		t.Fatal("released model should be empty")
	}

	if NewModel(WithName("broken")).Loaded() {
		t.Fatal("model without hierarchy should not be loaded")
	}
}
