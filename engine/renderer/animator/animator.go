package animator

import (
	"fmt"
	"log"
	"sync"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/bind_group_provider"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/shader"
)

// animator is the implementation of the Animator interface.
type animator struct {
	mu *sync.Mutex

	model model.Model

	meshProvider, boneProvider bind_group_provider.BindGroupProvider

	boneMatrices    model.BoneMatrices
	stagingBones    []byte
	stagedWriteData []bind_group_provider.BufferWrite

	initialized, released bool
}

// Animator drives the skeleton of a single Model on the GPU.
//
// Each frame PrepareFrame evaluates the skinning matrix of every bone and stages one write of
// the whole bone matrix array; the owner drains the staged writes with StagedWriteData and
// submits them through Renderer.WriteBuffers before calling Draw. The bone line geometry is
// static and uploaded once by Init.
type Animator interface {
	// Model retrieves the Model associated with this animator, or nil if not set.
	//
	// Returns:
	//   - model.Model: the associated model or nil
	Model() model.Model

	// SetModel assigns a Model and sizes the bone matrix array for its skeleton.
	// Any GPU resources from a previous model are released, so Init must be called again.
	//
	// Parameters:
	//   - m: the Model to associate with this animator
	SetModel(m model.Model)

	// Init uploads the skeleton line geometry and creates the bone matrix storage buffer and its
	// bind group, using the layout the pipeline's vertex shader declares for BoneGroup.
	// Models with no bones need no GPU resources and Init returns nil.
	//
	// Parameters:
	//   - r: the Renderer creating the GPU resources
	//   - p: the skeleton pipeline the animator will draw with
	//
	// Returns:
	//   - error: an error if the model is not loaded or resource creation fails
	Init(r renderer.Renderer, p pipeline.Pipeline) error

	// Initialized reports whether Init has completed for the current model.
	//
	// Returns:
	//   - bool: true if the GPU resources exist
	Initialized() bool

	// MeshBindGroupProvider returns the provider holding the skeleton vertex and index buffers.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the mesh provider
	MeshBindGroupProvider() bind_group_provider.BindGroupProvider

	// BoneBindGroupProvider returns the provider holding the bone matrix storage buffer.
	//
	// Returns:
	//   - bind_group_provider.BindGroupProvider: the bone provider
	BoneBindGroupProvider() bind_group_provider.BindGroupProvider

	// BoneMatrices returns the skinning matrices computed by the last PrepareFrame.
	//
	// Returns:
	//   - model.BoneMatrices: the matrices in bone index order
	BoneMatrices() model.BoneMatrices

	// PrepareFrame evaluates every bone's skinning matrix and stages the bone buffer write,
	// replacing a write staged earlier that was not yet drained.
	// Nothing is staged after Release or for a model without bones.
	//
	// Returns:
	//   - int: the number of bone matrices updated
	PrepareFrame() int

	// StagedWriteData returns and clears the pending GPU buffer writes.
	//
	// Returns:
	//   - []bind_group_provider.BufferWrite: the pending writes
	StagedWriteData() []bind_group_provider.BufferWrite

	// Flush submits the pending writes through r.
	//
	// Parameters:
	//   - r: the Renderer receiving the writes
	//
	// Returns:
	//   - int: the number of writes submitted
	Flush(r renderer.Renderer) int

	// Draw issues one line-list draw of the skeleton. Skeletons without bones or without line
	// segments draw nothing. Drawing after Release logs a diagnostic and draws nothing.
	//
	// Parameters:
	//   - r: the Renderer to draw with, between BeginFrame and EndFrame
	//   - pipelineKey: the registered skeleton pipeline key
	//   - cameraProvider: the provider whose bind group holds the camera uniform
	//
	// Returns:
	//   - error: an error if the renderer rejects the draw
	Draw(r renderer.Renderer, pipelineKey string, cameraProvider bind_group_provider.BindGroupProvider) error

	// Released reports whether Release has been called.
	//
	// Returns:
	//   - bool: true after Release
	Released() bool

	// Release frees all GPU resources held by this animator and its providers.
	Release()
}

var _ Animator = &animator{}

// NewAnimator creates a new Animator configured with the provided options.
//
// Parameters:
//   - options: variadic list of AnimatorBuilderOption functions to configure the Animator
//
// Returns:
//   - Animator: a new instance of Animator
func NewAnimator(options ...AnimatorBuilderOption) Animator {
	a := &animator{
		mu:           &sync.Mutex{},
		meshProvider: bind_group_provider.NewBindGroupProvider("Skeleton Mesh", bind_group_provider.WithKind(bind_group_provider.KindMesh)),
		boneProvider: bind_group_provider.NewBindGroupProvider("Skeleton Bones"),
	}
	for _, opt := range options {
		opt(a)
	}
	return a
}

func (a *animator) Model() model.Model {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.model
}

func (a *animator) SetModel(m model.Model) {
	a.mu.Lock()
	defer a.mu.Unlock()

	a.meshProvider.Release()
	a.boneProvider.Release()
	a.initialized = false
	a.released = false
	a.stagedWriteData = a.stagedWriteData[:0]

	a.model = m
	n := 0
	if m != nil {
		n = m.BoneCount()
	}
	a.boneMatrices = make(model.BoneMatrices, n)
	a.stagingBones = make([]byte, 0, n*model.GPUBoneMatrixSize)
}

func (a *animator) Init(r renderer.Renderer, p pipeline.Pipeline) error {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.model == nil || !a.model.Loaded() {
		return fmt.Errorf("animator: no loaded model to initialize")
	}
	if a.initialized {
		return nil
	}

	n := len(a.boneMatrices)
	if n == 0 {
		a.initialized = true
		return nil
	}

	geom := a.model.Geometry()
	if err := r.InitMeshBuffers(a.meshProvider, geom.VertexData(), geom.IndexData(), len(geom.Indices)); err != nil {
		return fmt.Errorf("skeleton %q mesh buffers: %w", a.model.Name(), err)
	}

	vs := p.Shader(shader.ShaderTypeVertex)
	if vs == nil {
		return fmt.Errorf("skeleton %q: pipeline %q has no vertex shader", a.model.Name(), p.PipelineKey())
	}
	descriptor := vs.BindGroupLayoutDescriptor(BoneGroup)
	sizes := map[int]uint64{BoneBinding: uint64(n * model.GPUBoneMatrixSize)}
	if err := r.InitBindGroup(a.boneProvider, descriptor, sizes); err != nil {
		return fmt.Errorf("skeleton %q bone buffer: %w", a.model.Name(), err)
	}

	a.initialized = true
	return nil
}

func (a *animator) Initialized() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.initialized
}

func (a *animator) MeshBindGroupProvider() bind_group_provider.BindGroupProvider {
	return a.meshProvider
}

func (a *animator) BoneBindGroupProvider() bind_group_provider.BindGroupProvider {
	return a.boneProvider
}

func (a *animator) BoneMatrices() model.BoneMatrices {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.boneMatrices
}

func (a *animator) PrepareFrame() int {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.released || a.model == nil || len(a.boneMatrices) == 0 {
		return 0
	}

	n := model.EvaluateSkinning(a.model.Hierarchy(), a.boneMatrices)
	if n == 0 {
		return 0
	}

	// The renderer copies the data when it is written to the queue, so the staging slice is reused.
	a.stagingBones = model.MarshalBoneMatrices(a.boneMatrices[:n], a.stagingBones)
	a.stagedWriteData = append(a.stagedWriteData[:0], bind_group_provider.BufferWrite{
		Provider: a.boneProvider,
		Binding:  BoneBinding,
		Offset:   0,
		Data:     a.stagingBones,
	})
	return n
}

func (a *animator) StagedWriteData() []bind_group_provider.BufferWrite {
	a.mu.Lock()
	defer a.mu.Unlock()
	w := a.stagedWriteData
	a.stagedWriteData = nil
	return w
}

func (a *animator) Flush(r renderer.Renderer) int {
	writes := a.StagedWriteData()
	if len(writes) == 0 {
		return 0
	}
	r.WriteBuffers(writes)
	return len(writes)
}

func (a *animator) Draw(r renderer.Renderer, pipelineKey string, cameraProvider bind_group_provider.BindGroupProvider) error {
	a.mu.Lock()
	released := a.released
	ready := a.initialized
	var name string
	var edges int
	if a.model != nil {
		name = a.model.Name()
		edges = a.model.Geometry().EdgeCount()
		// The loader can release the model out from under an initialized animator.
		released = released || (ready && !a.model.Loaded())
	}
	bones := len(a.boneMatrices)
	a.mu.Unlock()

	if released {
		log.Printf("draw called on released skeleton %q", name)
		return nil
	}
	if bones == 0 || edges == 0 || !ready {
		return nil
	}

	return r.DrawCall(pipelineKey, a.meshProvider, 1, []bind_group_provider.BindGroupProvider{cameraProvider, a.boneProvider})
}

func (a *animator) Released() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.released
}

func (a *animator) Release() {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.released {
		return
	}
	a.meshProvider.Release()
	a.boneProvider.Release()
	a.stagedWriteData = nil
	a.stagingBones = nil
	a.initialized = false
	a.released = true
}
