package pipeline

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

// ErrUnsupportedTopology is returned by Validate for topologies the line renderer cannot draw.
var ErrUnsupportedTopology = errors.New("unsupported primitive topology")

// pipeline is the implementation of the Pipeline interface.
type pipeline struct {
	pipelineKey string

	vertexShader, fragmentShader shader.Shader

	// renderPipeline is nil until the renderer registers the pipeline.
	renderPipeline *wgpu.RenderPipeline

	topology          wgpu.PrimitiveTopology
	depthTestEnabled  bool
	depthWriteEnabled bool
	blend             *wgpu.BlendState
}

// Pipeline describes a GPU render pipeline for line and point geometry: a vertex and fragment
// shader pair plus the fixed-function state the renderer needs to create it.
// Skeletons are drawn as indexed line lists; strips and point lists are accepted for debug views.
type Pipeline interface {
	// PipelineKey returns the unique key associated with this pipeline, used for caching and lookups.
	//
	// Returns:
	//   - string: the unique key for this pipeline
	PipelineKey() string

	// Shader retrieves the shader associated with the specified type if it exists, nil otherwise.
	//
	// Parameters:
	//   - shaderType: the type of shader to retrieve (vertex or fragment)
	//
	// Returns:
	//   - shader.Shader: the shader associated with the specified type, or nil if not set
	Shader(shaderType shader.ShaderType) shader.Shader

	// RenderPipeline returns the created GPU pipeline, or nil if the pipeline is not registered.
	RenderPipeline() *wgpu.RenderPipeline

	// SetRenderPipeline stores the GPU pipeline created by the renderer.
	SetRenderPipeline(p *wgpu.RenderPipeline)

	// Topology returns the primitive topology.
	Topology() wgpu.PrimitiveTopology

	// PrimitiveState returns the primitive state for pipeline creation. Strip topologies get a
	// uint32 strip index format to match the renderer's index buffers; nothing is culled.
	//
	// Returns:
	//   - wgpu.PrimitiveState: the primitive state
	PrimitiveState() wgpu.PrimitiveState

	// DepthTestEnabled returns whether fragments are tested against the depth buffer.
	DepthTestEnabled() bool

	// DepthWriteEnabled returns whether fragments write the depth buffer.
	DepthWriteEnabled() bool

	// DepthCompare returns LessEqual when depth testing is on and Always when it is off.
	DepthCompare() wgpu.CompareFunction

	// Blend returns the color blend state, or nil for opaque output.
	Blend() *wgpu.BlendState

	// WriteMask returns the color write mask. Every channel is written.
	WriteMask() wgpu.ColorWriteMask

	// Validate checks that the pipeline can be created: both shaders must be set, the vertex
	// shader must declare a vertex input layout, and the topology must be a line or point topology.
	//
	// Returns:
	//   - error: a description of the first problem found, or nil
	Validate() error

	// Release frees the GPU pipeline if one was created. The description stays usable and can be
	// registered again.
	Release()
}

var _ Pipeline = &pipeline{}

// NewPipeline is the entry point to create a new render Pipeline.
// Defaults are an opaque, depth-tested, depth-written line list.
//
// Parameters:
//   - pipelineKey: the unique key for this pipeline
//   - opts: a variadic list of PipelineBuilderOption functions to configure the pipeline
//
// Returns:
//   - Pipeline: a new Pipeline instance with the specified configuration
func NewPipeline(pipelineKey string, opts ...PipelineBuilderOption) Pipeline {
	p := &pipeline{
		pipelineKey:       pipelineKey,
		topology:          wgpu.PrimitiveTopologyLineList,
		depthTestEnabled:  true,
		depthWriteEnabled: true,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *pipeline) PipelineKey() string {
	return p.pipelineKey
}

func (p *pipeline) Shader(shaderType shader.ShaderType) shader.Shader {
	switch shaderType {
	case shader.ShaderTypeVertex:
		return p.vertexShader
	case shader.ShaderTypeFragment:
		return p.fragmentShader
	default:
		return nil
	}
}

func (p *pipeline) RenderPipeline() *wgpu.RenderPipeline {
	return p.renderPipeline
}

func (p *pipeline) SetRenderPipeline(rp *wgpu.RenderPipeline) {
	p.renderPipeline = rp
}

func (p *pipeline) Topology() wgpu.PrimitiveTopology {
	return p.topology
}

func (p *pipeline) PrimitiveState() wgpu.PrimitiveState {
	state := wgpu.PrimitiveState{
		Topology:  p.topology,
		FrontFace: wgpu.FrontFaceCCW,
		CullMode:  wgpu.CullModeNone,
	}
	if p.topology == wgpu.PrimitiveTopologyLineStrip {
		state.StripIndexFormat = wgpu.IndexFormatUint32
	}
	return state
}

func (p *pipeline) DepthTestEnabled() bool {
	return p.depthTestEnabled
}

func (p *pipeline) DepthWriteEnabled() bool {
	return p.depthWriteEnabled
}

func (p *pipeline) DepthCompare() wgpu.CompareFunction {
	if !p.depthTestEnabled {
		return wgpu.CompareFunctionAlways
	}
	return wgpu.CompareFunctionLessEqual
}

func (p *pipeline) Blend() *wgpu.BlendState {
	return p.blend
}

func (p *pipeline) WriteMask() wgpu.ColorWriteMask {
	return wgpu.ColorWriteMaskAll
}

func (p *pipeline) Validate() error {
	if p.vertexShader == nil || p.fragmentShader == nil {
		return errors.New("both vertex and fragment shaders must be set to create a render pipeline")
	}
	if len(p.vertexShader.VertexLayouts()) == 0 {
		return fmt.Errorf("vertex shader %q declares no vertex input layout", p.vertexShader.Key())
	}
	switch p.topology {
	case wgpu.PrimitiveTopologyLineList, wgpu.PrimitiveTopologyLineStrip, wgpu.PrimitiveTopologyPointList:
	default:
		return fmt.Errorf("pipeline %q: %w: %v", p.pipelineKey, ErrUnsupportedTopology, p.topology)
	}
	return nil
}

func (p *pipeline) Release() {
	if p.renderPipeline != nil {
		p.renderPipeline.Release()
		p.renderPipeline = nil
	}
}
