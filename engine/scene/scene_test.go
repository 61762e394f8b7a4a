package scene

import (
	"strings"
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/camera"
	"github.com/Carmen-Shannon/oxy-rig/engine/game_object"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/pipeline"
	"github.com/cogentcore/webgpu/wgpu"
)

type fakeRenderer struct {
	renderer.Renderer

	pipelines  map[string]pipeline.Pipeline
	writeCalls int
	writes     int
	draws      int
}

func newFakeRenderer() *fakeRenderer {
	return &fakeRenderer{pipelines: make(map[string]pipeline.Pipeline)}
}

func (r *fakeRenderer) Pipeline(key string) pipeline.Pipeline { return r.pipelines[key] }

func (r *fakeRenderer) RegisterPipelines(ps ...pipeline.Pipeline) error {
	for _, p := range ps {
		if err := p.Validate(); err != nil {
			return err
		}
		r.pipelines[p.PipelineKey()] = p
	}
	return nil
}

func (r *fakeRenderer) InitMeshBuffers(bind_group_provider.BindGroupProvider, []byte, []byte, int) error {
	return nil
}

func (r *fakeRenderer) InitBindGroup(bind_group_provider.BindGroupProvider, wgpu.BindGroupLayoutDescriptor, map[int]uint64) error {
	return nil
}

func (r *fakeRenderer) WriteBuffers(w []bind_group_provider.BufferWrite) {
	r.writeCalls++
	r.writes += len(w)
}

func (r *fakeRenderer) DrawCall(string, bind_group_provider.BindGroupProvider, uint32, []bind_group_provider.BindGroupProvider) error {
	r.draws++
	return nil
}

func chain(t *testing.T, name string, bones ...string) model.Model {
	t.Helper()
	root := &model.ImportedNode{Name: "Scene", Transform: model.IdentityImportMatrix()}
	mesh := model.ImportedMesh{Name: name}
	parent := root
	for _, b := range bones {
		n := &model.ImportedNode{
			Name:      b,
			Transform: model.FromEngine(common.TranslateScale([3]float32{0, 1, 0}, [3]float32{1, 1, 1})),
		}
		parent.Children = append(parent.Children, n)
		parent = n
		mesh.Bones = append(mesh.Bones, model.ImportedBone{Name: b, Offset: model.IdentityImportMatrix()})
	}
	h, err := model.BuildHierarchy(&model.ImportedScene{Name: name, Root: root, Meshes: []model.ImportedMesh{mesh}})
	if err != nil {
		t.Fatalf("BuildHierarchy: %v", err)
	}
	return model.NewModel(model.WithName(name), model.WithHierarchy(h))
}

func TestNewSceneRegistersPipeline(t *testing.T) {
	r := newFakeRenderer()
	s := NewScene("main", camera.NewCamera(), r, WithPipelineKey("bones"))
	if s.PipelineKey() != "bones" {
		t.Errorf("PipelineKey = %q, want bones", s.PipelineKey())
	}
	p, ok := r.pipelines["bones"]
	if !ok {
		t.Fatal("skeleton pipeline was not registered")
	}
	if p.Topology() != wgpu.PrimitiveTopologyLineList {
		t.Errorf("registered topology = %v, want LineList", p.Topology())
	}

	// A second scene reuses the registered pipeline.
	NewScene("other", camera.NewCamera(), r, WithPipelineKey("bones"))
	if r.pipelines["bones"] != p {
		t.Error("second scene replaced the registered pipeline")
	}
}

func TestNewScenePanicsWithoutDependencies(t *testing.T) {
	tests := []struct {
		name string
		fn   func()
		want string
	}{
		{name: "nil camera", fn: func() { NewScene("s", nil, newFakeRenderer()) }, want: "Camera"},
		{name: "nil renderer", fn: func() { NewScene("s", camera.NewCamera(), nil) }, want: "Renderer"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			defer func() {
				rec := recover()
				msg, _ := rec.(string)
				if !strings.Contains(msg, tt.want) {
					t.Errorf("panic = %v, want mention of %s", rec, tt.want)
				}
			}()
			tt.fn()
		})
	}
}

func TestSceneFrame(t *testing.T) {
	r := newFakeRenderer()
	arm := game_object.NewGameObject(game_object.WithModel(chain(t, "arm", "Upper", "Lower")))
	leg := game_object.NewGameObject(game_object.WithModel(chain(t, "leg", "Thigh", "Shin", "Foot")), game_object.WithPosition(2, 0, 0))
	hidden := game_object.NewGameObject(game_object.WithModel(chain(t, "tail", "Tail")), game_object.WithEnabled(false))

	s := NewScene("main", camera.NewCamera(), r, WithObjects(arm, leg), WithPrepWorkers(2))
	if _, err := s.Add(hidden); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if s.Count() != 3 {
		t.Fatalf("Count = %d, want 3", s.Count())
	}
	ids := []uint64{arm.ID(), leg.ID(), hidden.ID()}
	if ids[0] != 1 || ids[1] != 2 || ids[2] != 3 {
		t.Errorf("assigned ids = %v, want [1 2 3]", ids)
	}

	s.Update()
	// Two enabled objects stage a uniform write and a bone write each.
	if n := s.Flush(); n != 4 {
		t.Errorf("Flush = %d, want 4", n)
	}
	if r.writeCalls != 1 || r.writes != 4 {
		t.Errorf("WriteBuffers called %d times with %d writes, want 1 call with 4", r.writeCalls, r.writes)
	}
	if n := s.Flush(); n != 0 {
		t.Errorf("second Flush = %d, want 0", n)
	}

	if err := s.DrawCalls(); err != nil {
		t.Fatalf("DrawCalls: %v", err)
	}
	if r.draws != 2 {
		t.Errorf("draws = %d, want 2", r.draws)
	}

	s.Remove(arm.ID())
	if s.Get(arm.ID()) != nil || !arm.Animator().Released() {
		t.Error("Remove did not release and drop the object")
	}

	s.Clear()
	if s.Count() != 0 || !leg.Animator().Released() {
		t.Error("Clear did not release every object")
	}
}

func TestAddDuplicateID(t *testing.T) {
	s := NewScene("main", camera.NewCamera(), newFakeRenderer())
	m := chain(t, "arm", "Upper")
	if _, err := s.Add(game_object.NewGameObject(game_object.WithID(5), game_object.WithModel(m))); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if _, err := s.Add(game_object.NewGameObject(game_object.WithID(5), game_object.WithModel(m))); err == nil {
		t.Error("Add with a duplicate id returned nil error")
	}
	if id, err := s.Add(game_object.NewGameObject(game_object.WithModel(m))); err != nil || id != 6 {
		t.Errorf("Add = (%d, %v), want the id after 5", id, err)
	}
}

func TestResizeUpdatesAspect(t *testing.T) {
	cam := camera.NewCamera()
	s := NewScene("main", cam, newFakeRenderer())
	s.Resize(1600, 800)
	if cam.Aspect() != 2 {
		t.Errorf("Aspect = %v, want 2", cam.Aspect())
	}
	s.Resize(0, 800)
	if cam.Aspect() != 2 {
		t.Errorf("Aspect after zero-width resize = %v, want 2", cam.Aspect())
	}
}
