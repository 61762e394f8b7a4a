package model

// ModelBuilderOption is a functional option for configuring a Model via NewModel.
type ModelBuilderOption func(*model)

// WithName is an option builder that sets the name of the Model.
//
// Parameters:
//   - name: the model identifier
//
// Returns:
//   - ModelBuilderOption: a function that applies the name option to a model
func WithName(name string) ModelBuilderOption {
	return func(m *model) {
		m.name = name
	}
}

// WithPath is an option builder that records the source file of the Model.
//
// Parameters:
//   - path: the file the model was loaded from
//
// Returns:
//   - ModelBuilderOption: a function that applies the path option to a model
func WithPath(path string) ModelBuilderOption {
	return func(m *model) {
		m.path = path
	}
}

// WithHierarchy is an option builder that assigns a built hierarchy to the Model and derives
// its skeleton geometry. A nil hierarchy leaves the model unloaded.
//
// Parameters:
//   - h: the built hierarchy
//
// Returns:
//   - ModelBuilderOption: a function that applies the hierarchy option to a model
func WithHierarchy(h *Hierarchy) ModelBuilderOption {
	return func(m *model) {
		m.hierarchy = h
		if h != nil {
			m.geometry = BuildSkeletonGeometry(h)
		}
	}
}
