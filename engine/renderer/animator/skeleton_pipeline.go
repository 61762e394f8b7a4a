package animator

import (
	_ "embed"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/pipeline"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

//go:embed assets/skeleton.wgsl
var skeletonShaderBody string

const (
	// CameraGroup is the bind group index of the camera uniform in the skeleton shader.
	CameraGroup = 0

	// CameraGroupBinding is the binding of the camera uniform within CameraGroup.
	CameraGroupBinding = 0

	// BoneGroup is the bind group index of the bone matrix storage buffer.
	BoneGroup = 1

	// BoneBinding is the binding of the bone matrix array within BoneGroup.
	BoneBinding = 0
)

// SkeletonShaderSource returns the complete WGSL source of the bone line shader: the shared
// vertex input definition followed by the vertex and fragment stages.
//
// Returns:
//   - string: the WGSL source
func SkeletonShaderSource() string {
	return model.GPUBoneVertexSource + "\n" + skeletonShaderBody
}

// NewSkeletonPipeline creates the line-list pipeline that draws bone segments.
// Depth testing is off so bones stay visible through any other geometry.
//
// Parameters:
//   - key: the pipeline key used to register and draw with the pipeline
//
// Returns:
//   - pipeline.Pipeline: the unregistered pipeline
func NewSkeletonPipeline(key string) pipeline.Pipeline {
	src := SkeletonShaderSource()
	return pipeline.NewPipeline(key,
		pipeline.WithVertexShader(shader.NewShader(key+"_vs", shader.ShaderTypeVertex, src)),
		pipeline.WithFragmentShader(shader.NewShader(key+"_fs", shader.ShaderTypeFragment, src)),
		pipeline.WithTopology(wgpu.PrimitiveTopologyLineList),
		pipeline.WithDepthTestEnabled(false),
		pipeline.WithDepthWriteEnabled(false),
	)
}
