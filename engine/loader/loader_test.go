package loader

import (
	"bytes"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/qmuntal/gltf"
)

func fixture(name string) string {
	return filepath.Join("testdata", name)
}

func origin(t *testing.T, h *model.Hierarchy, name string) [3]float32 {
	t.Helper()
	id, ok := h.Lookup(name)
	if !ok {
		t.Fatalf("node %q not found", name)
	}
	n, _ := h.Node(id)
	return common.TransformPoint(n.WorldTransform, [3]float32{})
}

func approx3(a, b [3]float32) bool {
	for i := range a {
		d := a[i] - b[i]
		if d < -1e-4 || d > 1e-4 {
			return false
		}
	}
	return true
}

func TestLoadGLTF(t *testing.T) {
	l := NewLoader()
	m, err := l.Load(fixture("arm.gltf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if !m.Loaded() {
		t.Fatal("model not loaded")
	}
	if m.Name() != "arm" || m.Path() != fixture("arm.gltf") {
		t.Fatalf("name/path = %q/%q", m.Name(), m.Path())
	}

	h := m.Hierarchy()
	if h.NodeCount() != 5 {
		t.Fatalf("NodeCount = %d, want 5", h.NodeCount())
	}
	if h.BoneCount() != 2 {
		t.Fatalf("BoneCount = %d, want 2", h.BoneCount())
	}
	if _, ok := h.Lookup("node_4"); !ok {
		t.Fatal("unnamed node should be named node_4")
	}

	tests := []struct {
		node string
		want [3]float32
	}{
		{"Armature", [3]float32{1, 0, 0}},
		{"Upper", [3]float32{1, 1, 0}},
		{"Lower", [3]float32{1, 2, 0}},
		{"node_4", [3]float32{1, 0, 1}},
	}
	for _, tt := range tests {
		if got := origin(t, h, tt.node); !approx3(got, tt.want) {
			t.Errorf("%s origin = %v, want %v", tt.node, got, tt.want)
		}
	}

	// The file stores exact inverse bind matrices, so every bone skins to the global inverse.
	inv, _ := h.GlobalInverseTransform()
	mats := make(model.BoneMatrices, h.BoneCount())
	model.EvaluateSkinning(h, mats)
	for i, mat := range mats {
		if !common.ApproxEqual4(mat, inv, 1e-4) {
			t.Errorf("bone %d skinning = %v, want %v", i, mat, inv)
		}
	}

	geo := m.Geometry()
	if geo.VertexCount() != 2 || geo.EdgeCount() != 1 {
		t.Fatalf("geometry = %d vertices, %d edges; want 2, 1", geo.VertexCount(), geo.EdgeCount())
	}
}

func TestGLTFSkinExtraction(t *testing.T) {
	scene, err := newGLTFLoaderBackend().Import(fixture("arm.gltf"), ImportOptions{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if len(scene.Meshes) != 1 {
		t.Fatalf("meshes = %d, want 1", len(scene.Meshes))
	}
	mesh := scene.Meshes[0]
	if mesh.Name != "ArmMesh" || mesh.VertexCount != 3 || mesh.MaxInfluences != 2 {
		t.Fatalf("mesh = %q, %d vertices, %d influences", mesh.Name, mesh.VertexCount, mesh.MaxInfluences)
	}

	wantWeights := map[string][]model.VertexWeight{
		"Upper": {{Vertex: 0, Weight: 1}, {Vertex: 1, Weight: 0.5}},
		"Lower": {{Vertex: 1, Weight: 0.5}, {Vertex: 2, Weight: 1}},
	}
	for _, b := range mesh.Bones {
		want := wantWeights[b.Name]
		if len(b.Weights) != len(want) {
			t.Fatalf("bone %q weights = %v, want %v", b.Name, b.Weights, want)
		}
		for i := range want {
			if b.Weights[i] != want[i] {
				t.Errorf("bone %q weight %d = %v, want %v", b.Name, i, b.Weights[i], want[i])
			}
		}
	}

	// Offsets are column-major in the file; translation lands in the last row-major column.
	upper := mesh.Bones[0].Offset
	if upper[3] != -1 || upper[7] != -1 || upper[15] != 1 {
		t.Fatalf("Upper offset = %v", upper)
	}
}

// Inverse bind matrices undo each joint's bind-time world transform.
func TestGLTFBindPoseCancels(t *testing.T) {
	m, err := NewLoader().Load(fixture("arm.gltf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	h := m.Hierarchy()
	for i := 0; i < h.BoneCount(); i++ {
		n, _ := h.Node(h.BoneNode(i))
		got := common.Mul4(n.WorldTransform, n.Bone.Offset)
		if !common.ApproxEqual4(got, common.Identity4(), 1e-4) {
			t.Errorf("%s: world * offset = %v, want identity", n.Name, got)
		}
	}
}

func TestLoadReaderGLB(t *testing.T) {
	doc, err := gltf.Open(fixture("arm.gltf"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	// Move the embedded buffer into the binary chunk.
	doc.Buffers[0].URI = ""
	var glb bytes.Buffer
	enc := gltf.NewEncoder(&glb)
	enc.AsBinary = true
	if err := enc.Encode(doc); err != nil {
		t.Fatalf("Encode: %v", err)
	}
	if !bytes.HasPrefix(glb.Bytes(), []byte("glTF")) {
		t.Fatal("encoder did not produce a binary container")
	}

	l := NewLoader()
	fromText, err := l.Load(fixture("arm.gltf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	fromBinary, err := l.LoadReader("arm.glb", &glb, BackendTypeGLTF)
	if err != nil {
		t.Fatalf("LoadReader: %v", err)
	}
	if !fromBinary.Loaded() || fromBinary == fromText {
		t.Fatal("binary stream should load into its own model")
	}

	want, got := fromText.Hierarchy(), fromBinary.Hierarchy()
	if got.NodeCount() != want.NodeCount() || got.BoneCount() != want.BoneCount() {
		t.Fatalf("binary load has %d nodes, %d bones; want %d, %d",
			got.NodeCount(), got.BoneCount(), want.NodeCount(), want.BoneCount())
	}
	wantMats := make(model.BoneMatrices, want.BoneCount())
	gotMats := make(model.BoneMatrices, got.BoneCount())
	model.EvaluateSkinning(want, wantMats)
	model.EvaluateSkinning(got, gotMats)
	for i := range wantMats {
		if !common.ApproxEqual4(gotMats[i], wantMats[i], 1e-6) {
			t.Errorf("bone %d skinning = %v, want %v", i, gotMats[i], wantMats[i])
		}
	}
}

func TestGLTFMultipleRootsAndMissingInverseBindMatrices(t *testing.T) {
	scene, err := newGLTFLoaderBackend().Import(fixture("two_roots.gltf"), DefaultImportOptions())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if scene.Root == nil || scene.Root.Name != gltfRootName || len(scene.Root.Children) != 2 {
		t.Fatalf("root = %+v, want synthesized %q with 2 children", scene.Root, gltfRootName)
	}

	mesh := scene.Meshes[0]
	if mesh.Name != "skin_0" {
		t.Fatalf("mesh name = %q, want skin_0", mesh.Name)
	}
	for _, b := range mesh.Bones {
		if b.Offset != model.IdentityImportMatrix() {
			t.Errorf("bone %q offset = %v, want identity", b.Name, b.Offset)
		}
	}
	if mesh.Bones[1].Name != "node_2" {
		t.Fatalf("unnamed joint = %q, want node_2", mesh.Bones[1].Name)
	}

	h, err := model.BuildHierarchy(scene)
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	inv, _ := h.GlobalInverseTransform()
	if got := common.TransformPoint(inv, [3]float32{-1, 0, 0}); got != ([3]float32{}) {
		t.Fatalf("global inverse maps Left origin to %v", got)
	}
}

func TestSkeletonExtractorWithoutSkins(t *testing.T) {
	doc := `{"asset":{"version":"2.0"},"nodes":[{"name":"Solo"}]}`
	scene, err := newGLTFLoaderBackend().ImportReader("solo", strings.NewReader(doc), ImportOptions{})
	if err != nil {
		t.Fatalf("ImportReader: %v", err)
	}
	if scene.Root == nil || scene.Root.Name != "Solo" {
		t.Fatalf("root = %+v, want Solo from the scene-less fallback", scene.Root)
	}
	if len(scene.Meshes) != 0 {
		t.Fatalf("meshes = %d, want 0", len(scene.Meshes))
	}

	h, err := model.BuildHierarchy(scene)
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	if h.BoneCount() != 0 {
		t.Fatalf("BoneCount = %d, want 0", h.BoneCount())
	}
}

func TestGLTFNodeCycle(t *testing.T) {
	doc := `{"asset":{"version":"2.0"},"scenes":[{"nodes":[0]}],"nodes":[{"name":"a","children":[1]},{"name":"b","children":[0]}]}`
	if _, err := newGLTFLoaderBackend().ImportReader("cycle", strings.NewReader(doc), ImportOptions{}); err == nil {
		t.Fatal("expected error for cyclic node graph")
	}
}

func TestLoadYAMLRig(t *testing.T) {
	l := NewLoader()
	m, err := l.Load(fixture("biped.rig.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if m.Name() != "biped" {
		t.Fatalf("Name = %q, want biped", m.Name())
	}

	h := m.Hierarchy()
	if h.NodeCount() != 6 || h.BoneCount() != 4 {
		t.Fatalf("nodes/bones = %d/%d, want 6/4", h.NodeCount(), h.BoneCount())
	}

	tests := []struct {
		node string
		want [3]float32
	}{
		{"Hips", [3]float32{0, 2, 0}},
		{"Spine", [3]float32{0, 3, 0}},
		{"Leg.L", [3]float32{0.4, 2, 0}},
		{"Marker", [3]float32{6, 0, 0}},
	}
	for _, tt := range tests {
		if got := origin(t, h, tt.node); !approx3(got, tt.want) {
			t.Errorf("%s origin = %v, want %v", tt.node, got, tt.want)
		}
	}

	// Hips carries its exact inverse bind matrix, so it skins to the global inverse.
	inv, _ := h.GlobalInverseTransform()
	if !common.ApproxEqual4(model.SkinningMatrix(h, 0), inv, 1e-5) {
		t.Fatalf("Hips skinning = %v, want %v", model.SkinningMatrix(h, 0), inv)
	}
}

func TestYAMLLimitBoneWeights(t *testing.T) {
	scene, err := newYAMLLoaderBackend().Import(fixture("biped.rig.yaml"), DefaultImportOptions())
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	mesh := scene.Meshes[0]
	if mesh.MaxInfluences != 4 {
		t.Fatalf("MaxInfluences = %d, want 4", mesh.MaxInfluences)
	}

	// Vertex 3 has five influences; the weakest (Hips) is dropped and the rest renormalized.
	var sum float32
	for _, b := range mesh.Bones {
		for _, w := range b.Weights {
			if w.Vertex != 3 {
				continue
			}
			if b.Name == "Hips" {
				t.Fatal("Hips influence on vertex 3 should have been dropped")
			}
			sum += w.Weight
		}
	}
	if sum < 0.9999 || sum > 1.0001 {
		t.Fatalf("vertex 3 weights sum to %v, want 1", sum)
	}

	unlimited, err := newYAMLLoaderBackend().Import(fixture("biped.rig.yaml"), ImportOptions{})
	if err != nil {
		t.Fatalf("Import: %v", err)
	}
	if unlimited.Meshes[0].MaxInfluences != 5 {
		t.Fatalf("unlimited MaxInfluences = %d, want 5", unlimited.Meshes[0].MaxInfluences)
	}
}

func TestLoadFailures(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr error
	}{
		{"unsupported extension", "testdata/arm.fbx", ErrUnsupportedFormat},
		{"missing file", "testdata/missing.gltf", nil},
		{"malformed gltf", "testdata/broken.gltf", nil},
		{"position accessor out of range", "testdata/bad_accessor.gltf", nil},
		{"joint accessors out of range", "testdata/bad_joints.gltf", nil},
		{"bad matrix", "testdata/bad_matrix.rig.yaml", nil},
		{"unknown field", "testdata/unknown_field.rig.yaml", nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			l := NewLoader()
			m, err := l.Load(tt.path)
			if err == nil {
				t.Fatal("expected error")
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("err = %v, want %v", err, tt.wantErr)
			}
			if m == nil || m.Loaded() || m.Hierarchy() != nil || m.Geometry().VertexCount() != 0 {
				t.Fatal("failed load should return an unloaded model")
			}
			if l.Get(tt.path) != nil {
				t.Fatal("failed load must not be cached")
			}
		})
	}
}

func TestLoadReaderNoRoot(t *testing.T) {
	l := NewLoader()
	_, err := l.LoadReader("empty", strings.NewReader("name: empty\n"), BackendTypeYAML)
	if !errors.Is(err, model.ErrNoRootNode) {
		t.Fatalf("err = %v, want ErrNoRootNode", err)
	}
}

func TestLoadReaderSingularBindPose(t *testing.T) {
	rig := `
root:
  name: Root
  children:
    - name: Flat
      scale: [1, 0.000000001, 0]
meshes:
  - bones:
      - name: Flat
`
	_, err := NewLoader().LoadReader("flat", strings.NewReader(rig), BackendTypeYAML)
	if !errors.Is(err, model.ErrSingularBindPose) {
		t.Fatalf("err = %v, want ErrSingularBindPose", err)
	}
}

func TestLoaderCache(t *testing.T) {
	l := NewLoader()
	a, err := l.Load(fixture("arm.gltf"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	b, _ := l.Load(fixture("arm.gltf"))
	if a != b {
		t.Fatal("second Load should return the cached model")
	}
	if l.Get(fixture("arm.gltf")) != a || len(l.Models()) != 1 {
		t.Fatal("cache should hold exactly the loaded model")
	}

	if !l.Release(fixture("arm.gltf")) {
		t.Fatal("Release of cached model returned false")
	}
	if a.Loaded() {
		t.Fatal("released model still loaded")
	}
	if l.Get(fixture("arm.gltf")) != nil || l.Release(fixture("arm.gltf")) {
		t.Fatal("released model should leave the cache")
	}

	pre := model.NewModel(model.WithName("pre"))
	if NewLoader(WithModel("pre", pre)).Get("pre") != pre {
		t.Fatal("WithModel should seed the cache")
	}
}

func TestLoadAll(t *testing.T) {
	l := NewLoader(WithWorkers(2))
	paths := []string{
		fixture("arm.gltf"),
		fixture("biped.rig.yaml"),
		fixture("broken.gltf"),
		fixture("two_roots.gltf"),
	}

	models, err := l.LoadAll(paths)
	if err == nil {
		t.Fatal("expected joined error for broken.gltf")
	}
	if len(models) != len(paths) {
		t.Fatalf("got %d models, want %d", len(models), len(paths))
	}

	wantLoaded := []bool{true, true, false, true}
	for i, m := range models {
		if m.Loaded() != wantLoaded[i] {
			t.Errorf("%s loaded = %v, want %v", paths[i], m.Loaded(), wantLoaded[i])
		}
	}
	if len(l.Models()) != 3 {
		t.Fatalf("cache holds %d models, want 3", len(l.Models()))
	}

	// Independent builds of the same asset yield the same bone numbering.
	again, err := NewLoader().Load(fixture("biped.rig.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	for i := 0; i < again.BoneCount(); i++ {
		x, _ := models[1].Hierarchy().Node(models[1].Hierarchy().BoneNode(i))
		y, _ := again.Hierarchy().Node(again.Hierarchy().BoneNode(i))
		if x.Name != y.Name {
			t.Fatalf("bone %d = %q vs %q", i, x.Name, y.Name)
		}
	}
}

func TestPostProcessStepString(t *testing.T) {
	if got := (StepTriangulate | StepLimitBoneWeights).String(); !strings.Contains(got, "LimitBoneWeights") {
		t.Fatalf("String = %q", got)
	}
	if !DefaultImportOptions().Steps.Has(StepFlipUVs) {
		t.Fatal("default options should flip UVs")
	}
}
