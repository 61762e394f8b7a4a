package animator

import (
	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/Carmen-Shannon/oxy-rig/engine/renderer/bind_group_provider"
)

// AnimatorBuilderOption is a functional option for configuring an Animator during construction.
type AnimatorBuilderOption func(*animator)

// WithModel is an option builder that assigns a Model to the Animator during construction.
// This calls SetModel internally, which sizes the bone matrix array for the model's skeleton.
//
// Parameters:
//   - m: the Model to associate with this animator
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the model option to an animator
func WithModel(m model.Model) AnimatorBuilderOption {
	return func(a *animator) {
		a.SetModel(m)
	}
}

// WithLabel names the animator's GPU resources, which shows up in backend validation messages.
//
// Parameters:
//   - label: the prefix for the mesh and bone provider labels
//
// Returns:
//   - AnimatorBuilderOption: a function that applies the label option to an animator
func WithLabel(label string) AnimatorBuilderOption {
	return func(a *animator) {
		a.meshProvider = bind_group_provider.NewBindGroupProvider(label+" Mesh", bind_group_provider.WithKind(bind_group_provider.KindMesh))
		a.boneProvider = bind_group_provider.NewBindGroupProvider(label + " Bones")
	}
}
