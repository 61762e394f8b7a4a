package shader

import "github.com/cogentcore/webgpu/wgpu"

// ShaderBuilderOption is a functional option used to configure a Shader during construction.
type ShaderBuilderOption func(*shader)

// WithEntryPoint overrides the reflected entry point, for sources declaring several entry
// points of the same stage.
//
// Parameters:
//   - name: the entry point function name
//
// Returns:
//   - ShaderBuilderOption: a function that sets the entry point
func WithEntryPoint(name string) ShaderBuilderOption {
	return func(s *shader) {
		s.entryPoint = name
	}
}

// WithVisibility adds shader stages to the visibility of every reflected binding, so a
// resource declared once can be shared by both stages of a pipeline.
//
// Parameters:
//   - stages: the additional stages
//
// Returns:
//   - ShaderBuilderOption: a function that widens binding visibility
func WithVisibility(stages wgpu.ShaderStage) ShaderBuilderOption {
	return func(s *shader) {
		for g, desc := range s.bindGroupLayoutDescriptors {
			for i := range desc.Entries {
				desc.Entries[i].Visibility |= stages
			}
			s.bindGroupLayoutDescriptors[g] = desc
		}
	}
}
