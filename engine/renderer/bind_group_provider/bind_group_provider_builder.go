package bind_group_provider

// BindGroupProviderOption is a functional option used to configure a BindGroupProvider during construction.
type BindGroupProviderOption func(*bindGroupProvider)

// WithKind sets the provider's role.
//
// Parameters:
//   - kind: KindMesh for vertex/index geometry, KindBindGroup for uniform and storage buffers
//
// Returns:
//   - BindGroupProviderOption: a function that sets the provider kind
func WithKind(kind Kind) BindGroupProviderOption {
	return func(p *bindGroupProvider) {
		p.kind = kind
	}
}
