package game_object

import (
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"

	"github.com/Carmen-Shannon/oxy-rig/common"
	"github.com/Carmen-Shannon/oxy-rig/engine/camera"
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/animator"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/shader"
)

// objectCount is an atomic counter used to generate unique bind group provider names for each object.
var objectCount atomic.Uint64

type gameObject struct {
	mu *sync.Mutex

	id       uint64
	enabled  atomic.Bool
	animator animator.Animator

	position [3]float32
	scale    [3]float32

	// objectProvider holds the camera uniform (view-projection plus this object's model matrix)
	// bound at animator.CameraGroup when the object's skeleton is drawn.
	objectProvider  bind_group_provider.BindGroupProvider
	uniform         camera.GPUCameraUniform
	stagingUniform  []byte
	stagedWriteData []bind_group_provider.BufferWrite
}

// GameObject defines the interface for a scene entity that places one rig in the world.
// The object owns the Animator driving its skeleton and the uniform buffer that carries the
// camera view-projection and the object's model matrix to the skeleton shader.
type GameObject interface {
	// ID returns the object's unique identifier.
	//
	// Returns:
	//   - uint64: the object ID
	ID() uint64

	// Enabled returns whether this object is enabled for rendering.
	//
	// Returns:
	//   - bool: true if enabled
	Enabled() bool

	// Model returns the Model drawn by this object, or nil if no animator is set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// Animator returns the Animator associated with this object.
	//
	// Returns:
	//   - animator.Animator: the associated Animator, or nil
	Animator() animator.Animator

	// Position returns the object's world position.
	//
	// Returns:
	//   - [3]float32: the position
	Position() [3]float32

	// Scale returns the object's per-axis scale.
	//
	// Returns:
	//   - [3]float32: the scale
	Scale() [3]float32

	// ModelMatrix returns the translate-scale matrix placing the rig in the world.
	//
	// Returns:
	//   - [16]float32: the column-major model matrix
	ModelMatrix() [16]float32

	// ObjectBindGroupProvider returns the provider holding the object's camera uniform buffer.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the object provider
	ObjectBindGroupProvider() bind_group_provider.BindGroupProvider

	// SetID sets the object's identifier.
	//
	// Parameters:
	//   - id: the new identifier
	SetID(id uint64)

	// SetEnabled sets whether the object is updated and drawn.
	//
	// Parameters:
	//   - enabled: true to render the object
	SetEnabled(enabled bool)

	// SetAnimator replaces the object's Animator.
	//
	// Parameters:
	//   - anim: the Animator to use
	SetAnimator(anim animator.Animator)

	// SetPosition moves the object.
	//
	// Parameters:
	//   - x, y, z: the world position
	SetPosition(x, y, z float32)

	// SetScale sets the object's per-axis scale.
	//
	// Parameters:
	//   - sx, sy, sz: the scale factors
	SetScale(sx, sy, sz float32)

	// Init creates the object's uniform buffer and the animator's skeleton resources for pipeline p.
	//
	// Parameters:
	//   - r: the Renderer creating the GPU resources
	//   - p: the skeleton pipeline
	//
	// Returns:
	//   - error: an error if the object has no animator or resource creation fails
	Init(r renderer.Renderer, p pipeline.Pipeline) error

	// PrepareFrame evaluates the skeleton and stages the object's uniform and bone matrix writes.
	// Writes from an earlier call that were not yet drained are replaced.
	//
	// Parameters:
	//   - cam: the camera the frame is rendered from
	PrepareFrame(cam camera.Camera)

	// StagedWriteData returns and clears the object's pending writes, including the animator's.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the pending writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Draw draws the object's skeleton with the given pipeline.
	//
	// Parameters:
	//   - r: the Renderer to draw with
	//   - pipelineKey: the registered skeleton pipeline key
	//
	// Returns:
	//   - error: an error if the draw is rejected
	Draw(r renderer.Renderer, pipelineKey string) error

	// Release frees the object's GPU resources and releases its animator.
	Release()
}

var _ GameObject = &gameObject{}

// NewGameObject creates an enabled GameObject at the origin with unit scale.
//
// Parameters:
//   - options: functional options to configure the object
//
// Returns:
//   - GameObject: the new object
func NewGameObject(options ...GameObjectBuilderOption) GameObject {
	obj := &gameObject{
		mu:    &sync.Mutex{},
		scale: [3]float32{1, 1, 1},
		objectProvider: bind_group_provider.NewBindGroupProvider(
			"object_" + strconv.FormatUint(objectCount.Add(1), 10),
		),
	}
	obj.enabled.Store(true)
	for _, option := range options {
		option(obj)
	}
	return obj
}

func (g *gameObject) ID() uint64 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.id
}

func (g *gameObject) Enabled() bool {
	return g.enabled.Load()
}

func (g *gameObject) Model() model.Model {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.animator == nil {
		return nil
	}
	return g.animator.Model()
}

func (g *gameObject) Animator() animator.Animator {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.animator
}

func (g *gameObject) Position() [3]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.position
}

func (g *gameObject) Scale() [3]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.scale
}

func (g *gameObject) ModelMatrix() [16]float32 {
	g.mu.Lock()
	defer g.mu.Unlock()
	return common.TranslateScale(g.position, g.scale)
}

func (g *gameObject) ObjectBindGroupProvider() bind_group_provider.BindGroupProvider {
	return g.objectProvider
}

func (g *gameObject) SetID(id uint64) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.id = id
}

func (g *gameObject) SetEnabled(enabled bool) {
	g.enabled.Store(enabled)
}

func (g *gameObject) SetAnimator(anim animator.Animator) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.animator = anim
}

func (g *gameObject) SetPosition(x, y, z float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.position = [3]float32{x, y, z}
}

func (g *gameObject) SetScale(sx, sy, sz float32) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.scale = [3]float32{sx, sy, sz}
}

func (g *gameObject) Init(r renderer.Renderer, p pipeline.Pipeline) error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.animator == nil {
		return fmt.Errorf("object %d has no animator", g.id)
	}
	if err := g.animator.Init(r, p); err != nil {
		return err
	}
	if g.objectProvider.Buffer(animator.CameraGroupBinding) != nil {
		return nil
	}

	vs := p.Shader(shader.ShaderTypeVertex)
	if vs == nil {
		return fmt.Errorf("object %d: pipeline %q has no vertex shader", g.id, p.PipelineKey())
	}
	return r.InitBindGroup(g.objectProvider, vs.BindGroupLayoutDescriptor(animator.CameraGroup), nil)
}

func (g *gameObject) PrepareFrame(cam camera.Camera) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.animator == nil || !g.enabled.Load() {
		return
	}
	g.animator.PrepareFrame()

	g.uniform = cam.Uniform(common.TranslateScale(g.position, g.scale))
	g.stagingUniform = g.uniform.Marshal(g.stagingUniform)
	g.stagedWriteData = append(g.stagedWriteData[:0], bind_group_provider.BufferWrite{
		Provider: g.objectProvider,
		Binding:  animator.CameraGroupBinding,
		Offset:   0,
		Data:     g.stagingUniform,
	})
}

func (g *gameObject) StagedWriteData() []bind_group_provider.BufferWrite {
	g.mu.Lock()
	defer g.mu.Unlock()

	w := g.stagedWriteData
	g.stagedWriteData = nil
	if g.animator != nil {
		w = append(w, g.animator.StagedWriteData()...)
	}
	return w
}

func (g *gameObject) Draw(r renderer.Renderer, pipelineKey string) error {
	g.mu.Lock()
	anim := g.animator
	g.mu.Unlock()

	if anim == nil || !g.enabled.Load() {
		return nil
	}
	return anim.Draw(r, pipelineKey, g.objectProvider)
}

func (g *gameObject) Release() {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.objectProvider.Release()
	g.stagedWriteData = nil
	if g.animator != nil {
		g.animator.Release()
	}
}
