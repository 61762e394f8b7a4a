package bind_group_provider

import (
	"sync"

	"github.com/cogentcore/webgpu/wgpu"
)

// Kind is the role a provider plays in a draw call.
type Kind int

const (
	// KindBindGroup providers own uniform or storage buffers bound through a bind group.
	KindBindGroup Kind = iota
	// KindMesh providers own the vertex and index buffers a draw call reads geometry from.
	KindMesh
)

func (k Kind) String() string {
	switch k {
	case KindBindGroup:
		return "bind group"
	case KindMesh:
		return "mesh"
	default:
		return "unknown"
	}
}

// Mesh holds the GPU geometry of a mesh provider.
type Mesh struct {
	VertexBuffer *wgpu.Buffer
	IndexBuffer  *wgpu.Buffer
	IndexCount   int

	vertexBytes, indexBytes uint64
}

// NewMesh describes geometry buffers created by a renderer. Byte sizes feed AllocatedBytes.
func NewMesh(vertexBuffer, indexBuffer *wgpu.Buffer, indexCount int, vertexBytes, indexBytes uint64) Mesh {
	return Mesh{
		VertexBuffer: vertexBuffer,
		IndexBuffer:  indexBuffer,
		IndexCount:   indexCount,
		vertexBytes:  vertexBytes,
		indexBytes:   indexBytes,
	}
}

type binding struct {
	buffer *wgpu.Buffer
	size   uint64
}

// bindGroupProvider is the unexported implementation of BindGroupProvider.
// GPU objects are populated by the renderer, never by the owner, and are guarded by mu because
// owners may release them from another goroutine than the one drawing.
type bindGroupProvider struct {
	mu sync.RWMutex

	label string
	kind  Kind

	bindGroup *wgpu.BindGroup
	layout    *wgpu.BindGroupLayout
	bindings  map[int]binding

	mesh Mesh
}

// BindGroupProvider is the GPU resource handle held by a component (a skeleton's bone palette,
// its line geometry, an object's camera uniform). The component describes what it needs and
// stages BufferWrites against the provider; the renderer allocates the GPU objects and binds them.
//
// Usage pattern:
//  1. Component creates a provider with a unique label (and KindMesh for geometry)
//  2. Renderer.InitBindGroup or Renderer.InitMeshBuffers allocates the GPU resources
//  3. Component stages BufferWrites targeting the provider each frame
//  4. Renderer.WriteBuffers uploads the staged data
//  5. Renderer.DrawCall binds the provider for the draw
type BindGroupProvider interface {
	// Label returns the debug label used to name the provider's GPU objects.
	//
	// Returns:
	//   - string: the debug label
	Label() string

	// Kind returns whether the provider holds bind group buffers or mesh geometry.
	Kind() Kind

	// Initialized reports whether the renderer has created GPU resources for this provider.
	//
	// Returns:
	//   - bool: true once a bind group or mesh buffers exist
	Initialized() bool

	// BindGroup returns the created bind group, or nil before initialization.
	BindGroup() *wgpu.BindGroup

	// Layout returns the bind group layout the group was created with, or nil before initialization.
	Layout() *wgpu.BindGroupLayout

	// Buffer returns the buffer at a binding, or nil if there is none.
	//
	// Parameters:
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - *wgpu.Buffer: the buffer or nil
	Buffer(binding int) *wgpu.Buffer

	// BufferSize returns the byte size of the buffer at a binding, or 0 if there is none.
	//
	// Parameters:
	//   - binding: the binding index within the group
	//
	// Returns:
	//   - uint64: the buffer size in bytes
	BufferSize(binding int) uint64

	// AllocatedBytes sums the sizes of every buffer the provider owns.
	AllocatedBytes() uint64

	// Mesh returns the geometry buffers of a mesh provider.
	Mesh() Mesh

	// SetBindGroup stores the layout and bind group created by the renderer, releasing a
	// previously stored group that is being replaced.
	//
	// Parameters:
	//   - layout: the bind group layout
	//   - bg: the created bind group
	SetBindGroup(layout *wgpu.BindGroupLayout, bg *wgpu.BindGroup)

	// SetBuffer records a buffer and its size at a binding.
	//
	// Parameters:
	//   - binding: the binding index
	//   - buf: the created buffer
	//   - size: the buffer size in bytes
	SetBuffer(binding int, buf *wgpu.Buffer, size uint64)

	// SetMesh stores the geometry buffers created by the renderer.
	SetMesh(m Mesh)

	// Release releases every GPU object held by this provider and returns it to the
	// uninitialized state. Safe to call more than once.
	Release()
}

var _ BindGroupProvider = &bindGroupProvider{}

// NewBindGroupProvider creates a new BindGroupProvider with the provided label and options.
// Providers are KindBindGroup unless WithKind says otherwise.
//
// Parameters:
//   - label: the debug label for the provider
//   - options: a variadic list of options to configure the provider
//
// Returns:
//   - BindGroupProvider: a new, uninitialized provider
func NewBindGroupProvider(label string, options ...BindGroupProviderOption) BindGroupProvider {
	p := &bindGroupProvider{
		label:    label,
		kind:     KindBindGroup,
		bindings: make(map[int]binding),
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

func (p *bindGroupProvider) Label() string {
	return p.label
}

func (p *bindGroupProvider) Kind() Kind {
	return p.kind
}

func (p *bindGroupProvider) Initialized() bool {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.kind == KindMesh {
		return p.mesh.VertexBuffer != nil
	}
	return p.bindGroup != nil
}

func (p *bindGroupProvider) BindGroup() *wgpu.BindGroup {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bindGroup
}

func (p *bindGroupProvider) Layout() *wgpu.BindGroupLayout {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.layout
}

func (p *bindGroupProvider) Buffer(binding int) *wgpu.Buffer {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bindings[binding].buffer
}

func (p *bindGroupProvider) BufferSize(binding int) uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.bindings[binding].size
}

func (p *bindGroupProvider) AllocatedBytes() uint64 {
	p.mu.RLock()
	defer p.mu.RUnlock()
	total := p.mesh.vertexBytes + p.mesh.indexBytes
	for _, b := range p.bindings {
		total += b.size
	}
	return total
}

func (p *bindGroupProvider) Mesh() Mesh {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.mesh
}

func (p *bindGroupProvider) SetBindGroup(layout *wgpu.BindGroupLayout, bg *wgpu.BindGroup) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindGroup != nil && p.bindGroup != bg {
		p.bindGroup.Release()
	}
	if p.layout != nil && p.layout != layout {
		p.layout.Release()
	}
	p.layout = layout
	p.bindGroup = bg
}

func (p *bindGroupProvider) SetBuffer(index int, buf *wgpu.Buffer, size uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.bindings == nil {
		p.bindings = make(map[int]binding)
	}
	p.bindings[index] = binding{buffer: buf, size: size}
}

func (p *bindGroupProvider) SetMesh(m Mesh) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.mesh = m
}

func (p *bindGroupProvider) Release() {
	p.mu.Lock()
	defer p.mu.Unlock()

	for i, b := range p.bindings {
		if b.buffer != nil {
			b.buffer.Release()
		}
		delete(p.bindings, i)
	}
	if p.bindGroup != nil {
		p.bindGroup.Release()
		p.bindGroup = nil
	}
	if p.layout != nil {
		p.layout.Release()
		p.layout = nil
	}
	if p.mesh.VertexBuffer != nil {
		p.mesh.VertexBuffer.Release()
	}
	if p.mesh.IndexBuffer != nil {
		p.mesh.IndexBuffer.Release()
	}
	p.mesh = Mesh{}
}
