package pipeline

import (
	"testing"

	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/shader"
	"github.com/cogentcore/webgpu/wgpu"
)

const lineSource = `
struct VertexInput {
    @location(0) position: vec3<f32>,
};

struct VertexOutput {
    @builtin(position) clip_position: vec4<f32>,
};

@vertex
fn vs_main(in: VertexInput) -> VertexOutput {
    var out: VertexOutput;
    out.clip_position = vec4<f32>(in.position, 1.0);
    return out;
}

@fragment
fn fs_main() -> @location(0) vec4<f32> {
    return vec4<f32>(1.0);
}
`

const noInputSource = `
@vertex
fn vs_main() -> @builtin(position) vec4<f32> {
    return vec4<f32>(0.0);
}
`

func TestNewPipelineDefaults(t *testing.T) {
	p := NewPipeline("default")
	if !p.DepthTestEnabled() || !p.DepthWriteEnabled() || p.Blend() != nil {
		t.Fatal("default pipeline should depth test, depth write and not blend")
	}
	if p.Topology() != wgpu.PrimitiveTopologyLineList {
		t.Fatalf("topology = %v, want LineList", p.Topology())
	}
	if p.DepthCompare() != wgpu.CompareFunctionLessEqual {
		t.Fatalf("depth compare = %v, want LessEqual", p.DepthCompare())
	}
	if p.RenderPipeline() != nil {
		t.Fatal("unregistered pipeline has no GPU pipeline")
	}
	p.Release()
}

func TestFixedFunctionState(t *testing.T) {
	tests := []struct {
		name        string
		opts        []PipelineBuilderOption
		wantCompare wgpu.CompareFunction
		wantStrip   wgpu.IndexFormat
		wantBlend   bool
	}{
		{"line list", nil, wgpu.CompareFunctionLessEqual, wgpu.IndexFormatUndefined, false},
		{"overlay", []PipelineBuilderOption{WithDepthTestEnabled(false)}, wgpu.CompareFunctionAlways, wgpu.IndexFormatUndefined, false},
		{"strip", []PipelineBuilderOption{WithTopology(wgpu.PrimitiveTopologyLineStrip)}, wgpu.CompareFunctionLessEqual, wgpu.IndexFormatUint32, false},
		{"blended", []PipelineBuilderOption{WithAlphaBlend(true)}, wgpu.CompareFunctionLessEqual, wgpu.IndexFormatUndefined, true},
		{"blend toggled off", []PipelineBuilderOption{WithAlphaBlend(true), WithAlphaBlend(false)}, wgpu.CompareFunctionLessEqual, wgpu.IndexFormatUndefined, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := NewPipeline(tt.name, tt.opts...)
			if got := p.DepthCompare(); got != tt.wantCompare {
				t.Errorf("DepthCompare = %v, want %v", got, tt.wantCompare)
			}
			state := p.PrimitiveState()
			if state.StripIndexFormat != tt.wantStrip {
				t.Errorf("StripIndexFormat = %v, want %v", state.StripIndexFormat, tt.wantStrip)
			}
			if state.CullMode != wgpu.CullModeNone {
				t.Errorf("CullMode = %v, want None", state.CullMode)
			}
			if (p.Blend() != nil) != tt.wantBlend {
				t.Errorf("Blend = %v, want blending %v", p.Blend(), tt.wantBlend)
			}
		})
	}
}

func TestValidate(t *testing.T) {
	vs := shader.NewShader("vs", shader.ShaderTypeVertex, lineSource)
	fs := shader.NewShader("fs", shader.ShaderTypeFragment, lineSource)
	bare := shader.NewShader("bare", shader.ShaderTypeVertex, noInputSource)

	tests := []struct {
		name    string
		opts    []PipelineBuilderOption
		wantErr bool
	}{
		{"missing shaders", nil, true},
		{"missing fragment", []PipelineBuilderOption{WithVertexShader(vs)}, true},
		{"no vertex input", []PipelineBuilderOption{WithVertexShader(bare), WithFragmentShader(fs)}, true},
		{"triangles", []PipelineBuilderOption{
			WithVertexShader(vs), WithFragmentShader(fs),
			WithTopology(wgpu.PrimitiveTopologyTriangleList),
		}, true},
		{"points", []PipelineBuilderOption{
			WithVertexShader(vs), WithFragmentShader(fs),
			WithTopology(wgpu.PrimitiveTopologyPointList),
		}, false},
		{"lines without depth test", []PipelineBuilderOption{
			WithVertexShader(vs), WithFragmentShader(fs),
			WithTopology(wgpu.PrimitiveTopologyLineList), WithDepthTestEnabled(false),
		}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := NewPipeline(tt.name, tt.opts...).Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestShaderLookup(t *testing.T) {
	vs := shader.NewShader("vs", shader.ShaderTypeVertex, lineSource)
	p := NewPipeline("lookup", WithVertexShader(vs))
	if p.Shader(shader.ShaderTypeVertex) != vs {
		t.Fatal("vertex shader lookup failed")
	}
	if p.Shader(shader.ShaderTypeFragment) != nil {
		t.Fatal("unset fragment shader should be nil")
	}
}
