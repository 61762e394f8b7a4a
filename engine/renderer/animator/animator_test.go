package animator

import (
	"bytes"
	"log"
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// recordingRenderer satisfies renderer.Renderer for the calls the animator makes and records them.
// Any other method panics through the nil embedded interface.
type recordingRenderer struct {
	renderer.Renderer

	meshIndexCount int
	vertexBytes    int
	bindGroupSizes map[int]uint64
	bindGroupDesc  wgpu.BindGroupLayoutDescriptor
	writes         []bind_group_provider.BufferWrite
	draws          []recordedDraw
}

type recordedDraw struct {
	pipelineKey string
	instances   uint32
	bindGroups  []bind_group_provider.BindGroupProvider
}

func (r *recordingRenderer) InitMeshBuffers(_ bind_group_provider.BindGroupProvider, vertexData, _ []byte, indexCount int) error {
	r.vertexBytes = len(vertexData)
	r.meshIndexCount = indexCount
	return nil
}

func (r *recordingRenderer) InitBindGroup(_ bind_group_provider.BindGroupProvider, descriptor wgpu.BindGroupLayoutDescriptor, sizes map[int]uint64) error {
	r.bindGroupDesc = descriptor
	r.bindGroupSizes = sizes
	return nil
}

func (r *recordingRenderer) WriteBuffers(writes []bind_group_provider.BufferWrite) {
	r.writes = append(r.writes, writes...)
}

func (r *recordingRenderer) DrawCall(key string, _ bind_group_provider.BindGroupProvider, instances uint32, bindGroups []bind_group_provider.BindGroupProvider) error {
	r.draws = append(r.draws, recordedDraw{pipelineKey: key, instances: instances, bindGroups: bindGroups})
	return nil
}

func translate(x, y, z float32) model.ImportMatrix {
	return model.FromEngine(common.TranslateScale([3]float32{x, y, z}, [3]float32{1, 1, 1}))
}

// spineRig is Scene -> Hips(0,1,0) -> Spine(0,1,0) with Hips and Spine as bones.
func spineRig(t *testing.T) model.Model {
	t.Helper()
	scene := &model.ImportedScene{
		Name: "rig",
		Root: &model.ImportedNode{
			Name:      "Scene",
			Transform: model.IdentityImportMatrix(),
			Children: []*model.ImportedNode{{
				Name:      "Hips",
				Transform: translate(0, 1, 0),
				Children: []*model.ImportedNode{{
					Name:      "Spine",
					Transform: translate(0, 1, 0),
				}},
			}},
		},
		Meshes: []model.ImportedMesh{{
			Name: "Body",
			Bones: []model.ImportedBone{
				{Name: "Hips", Offset: model.IdentityImportMatrix()},
				{Name: "Spine", Offset: model.IdentityImportMatrix()},
			},
		}},
	}
	h, err := model.BuildHierarchy(scene)
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	return model.NewModel(model.WithName(scene.Name), model.WithHierarchy(h))
}

func boneless(t *testing.T) model.Model {
	t.Helper()
	scene := &model.ImportedScene{
		Name: "empty",
		Root: &model.ImportedNode{Name: "Scene", Transform: model.IdentityImportMatrix()},
	}
	h, err := model.BuildHierarchy(scene)
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	return model.NewModel(model.WithName(scene.Name), model.WithHierarchy(h))
}

func captureLog(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prevOut, prevFlags := log.Writer(), log.Flags()
	log.SetOutput(&buf)
	log.SetFlags(0)
	t.Cleanup(func() {
		log.SetOutput(prevOut)
		log.SetFlags(prevFlags)
	})
	return &buf
}

func TestPrepareFrameStagesBoneMatrices(t *testing.T) {
	a := NewAnimator(WithModel(spineRig(t)))

	if n := a.PrepareFrame(); n != 2 {
		t.Fatalf("PrepareFrame = %d, want 2", n)
	}

	// Hips is the first bone, so its skinning matrix is the identity and Spine keeps one unit of lift.
	want := model.BoneMatrices{
		common.Identity4(),
		common.TranslateScale([3]float32{0, 1, 0}, [3]float32{1, 1, 1}),
	}
	got := a.BoneMatrices()
	for i := range want {
		if !common.ApproxEqual4(got[i], want[i], 1e-5) {
			t.Errorf("bone %d = %v, want %v", i, got[i], want[i])
		}
	}

	writes := a.StagedWriteData()
	if len(writes) != 1 {
		t.Fatalf("staged %d writes, want 1", len(writes))
	}
	w := writes[0]
	if w.Provider != a.BoneBindGroupProvider() || w.Binding != BoneBinding || w.Offset != 0 {
		t.Errorf("write target = (%v, %d, %d), want bone provider binding %d offset 0", w.Provider.Label(), w.Binding, w.Offset, BoneBinding)
	}
	if !bytes.Equal(w.Data, model.MarshalBoneMatrices(want, nil)) {
		t.Errorf("write data does not match the marshaled bone matrices")
	}
	if len(w.Data) != 2*model.GPUBoneMatrixSize {
		t.Errorf("write is %d bytes, want %d", len(w.Data), 2*model.GPUBoneMatrixSize)
	}

	if again := a.StagedWriteData(); len(again) != 0 {
		t.Errorf("StagedWriteData did not clear, %d writes left", len(again))
	}
}

func TestPrepareFrameReplacesUndrainedWrite(t *testing.T) {
	a := NewAnimator(WithModel(spineRig(t)))
	a.PrepareFrame()
	a.PrepareFrame()
	a.PrepareFrame()

	if writes := a.StagedWriteData(); len(writes) != 1 {
		t.Fatalf("staged %d writes after three updates, want 1", len(writes))
	}
}

func TestInitAndDraw(t *testing.T) {
	p := NewSkeletonPipeline("skeleton")
	r := &recordingRenderer{}
	camera := bind_group_provider.NewBindGroupProvider("Camera")

	a := NewAnimator(WithModel(spineRig(t)), WithLabel("rig"))
	if err := a.Draw(r, p.PipelineKey(), camera); err != nil || len(r.draws) != 0 {
		t.Fatalf("Draw before Init = (%v, %d draws), want no draw", err, len(r.draws))
	}

	if err := a.Init(r, p); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if !a.Initialized() {
		t.Fatal("Initialized = false after Init")
	}
	if r.vertexBytes != 2*16 || r.meshIndexCount != 2 {
		t.Errorf("mesh upload = (%d bytes, %d indices), want (32, 2)", r.vertexBytes, r.meshIndexCount)
	}
	if got := r.bindGroupSizes[BoneBinding]; got != 2*model.GPUBoneMatrixSize {
		t.Errorf("bone buffer size = %d, want %d", got, 2*model.GPUBoneMatrixSize)
	}
	if len(r.bindGroupDesc.Entries) != 1 || r.bindGroupDesc.Entries[0].Buffer.Type != wgpu.BufferBindingTypeReadOnlyStorage {
		t.Errorf("bone bind group descriptor = %+v, want one read-only storage entry", r.bindGroupDesc.Entries)
	}

	a.PrepareFrame()
	if n := a.Flush(r); n != 1 || len(r.writes) != 1 {
		t.Errorf("Flush = %d (%d recorded), want 1", n, len(r.writes))
	}

	if err := a.Draw(r, p.PipelineKey(), camera); err != nil {
		t.Fatalf("Draw: %v", err)
	}
	if len(r.draws) != 1 {
		t.Fatalf("recorded %d draws, want 1", len(r.draws))
	}
	d := r.draws[0]
	if d.pipelineKey != "skeleton" || d.instances != 1 {
		t.Errorf("draw = (%q, %d), want (skeleton, 1)", d.pipelineKey, d.instances)
	}
	if len(d.bindGroups) != 2 || d.bindGroups[CameraGroup] != camera || d.bindGroups[BoneGroup] != a.BoneBindGroupProvider() {
		t.Errorf("draw bind groups are not [camera, bones]")
	}
}

func TestDrawAfterRelease(t *testing.T) {
	tests := []struct {
		name    string
		release func(a Animator, m model.Model)
	}{
		{name: "animator released", release: func(a Animator, _ model.Model) { a.Release() }},
		{name: "model released", release: func(_ Animator, m model.Model) { m.Release() }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			logs := captureLog(t)
			p := NewSkeletonPipeline("skeleton")
			r := &recordingRenderer{}
			m := spineRig(t)
			a := NewAnimator(WithModel(m))
			if err := a.Init(r, p); err != nil {
				t.Fatalf("Init: %v", err)
			}

			tt.release(a, m)

			if err := a.Draw(r, p.PipelineKey(), bind_group_provider.NewBindGroupProvider("Camera")); err != nil {
				t.Fatalf("Draw: %v", err)
			}
			if len(r.draws) != 0 {
				t.Errorf("recorded %d draws after release, want 0", len(r.draws))
			}
			if !strings.Contains(logs.String(), `draw called on released skeleton "rig"`) {
				t.Errorf("log = %q, want released skeleton diagnostic", logs.String())
			}
			if n := a.PrepareFrame(); n != 0 {
				t.Errorf("PrepareFrame after release = %d, want 0", n)
			}
			if w := a.StagedWriteData(); len(w) != 0 {
				t.Errorf("staged %d writes after release, want 0", len(w))
			}
		})
	}
}

func TestBonelessModel(t *testing.T) {
	r := &recordingRenderer{}
	a := NewAnimator(WithModel(boneless(t)))

	if err := a.Init(r, NewSkeletonPipeline("skeleton")); err != nil {
		t.Fatalf("Init: %v", err)
	}
	if r.bindGroupSizes != nil || r.meshIndexCount != 0 {
		t.Error("Init created GPU resources for a model without bones")
	}
	if n := a.PrepareFrame(); n != 0 {
		t.Errorf("PrepareFrame = %d, want 0", n)
	}
	if err := a.Draw(r, "skeleton", nil); err != nil || len(r.draws) != 0 {
		t.Errorf("Draw = (%v, %d draws), want no draw", err, len(r.draws))
	}
}

func TestInitWithoutModel(t *testing.T) {
	a := NewAnimator()
	if err := a.Init(&recordingRenderer{}, NewSkeletonPipeline("skeleton")); err == nil {
		t.Error("Init without a model returned nil error")
	}
}

func TestSkeletonPipeline(t *testing.T) {
	p := NewSkeletonPipeline("skeleton")
	if err := p.Validate(); err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if p.Topology() != wgpu.PrimitiveTopologyLineList {
		t.Errorf("Topology = %v, want LineList", p.Topology())
	}
	if p.DepthTestEnabled() {
		t.Error("DepthTestEnabled = true, want false")
	}

	vs := p.Shader(shader.ShaderTypeVertex)
	layouts := vs.VertexLayouts()
	if len(layouts) != 1 || layouts[0].ArrayStride != 16 {
		t.Fatalf("vertex layouts = %+v, want one 16-byte layout", layouts)
	}
	if vs.EntryPoint() != "vs_main" || p.Shader(shader.ShaderTypeFragment).EntryPoint() != "fs_main" {
		t.Errorf("entry points = (%q, %q)", vs.EntryPoint(), p.Shader(shader.ShaderTypeFragment).EntryPoint())
	}
	if b, ok := vs.BindingFromVarName(BoneGroup, "bones"); !ok || b != BoneBinding {
		t.Errorf("bones binding = (%d, %v), want (%d, true)", b, ok, BoneBinding)
	}
	cam := vs.BindGroupLayoutDescriptor(CameraGroup)
	if len(cam.Entries) != 1 || cam.Entries[0].Buffer.MinBindingSize != 128 {
		t.Errorf("camera layout = %+v, want one 128-byte uniform", cam.Entries)
	}
}
