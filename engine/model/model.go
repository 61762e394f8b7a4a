package model

// model is the implementation of the Model interface.
type model struct {
	name      string
	path      string
	hierarchy *Hierarchy
	geometry  SkeletonGeometry
}

// Model defines the interface for a loaded rigged asset.
// A Model is produced by the Loader after importing a scene and building its skeleton.
// A Model whose import or skeleton build failed is still valid but reports Loaded() == false
// and exposes no hierarchy or geometry.
type Model interface {
	// Name retrieves the model identifier.
	//
	// Returns:
	//   - string: the model name
	Name() string

	// Path retrieves the source file the model was loaded from.
	//
	// Returns:
	//   - string: the source path, or empty for models built in memory
	Path() string

	// Loaded reports whether the model holds a usable skeleton.
	//
	// Returns:
	//   - bool: true if a hierarchy was built and the model has not been released
	Loaded() bool

	// Hierarchy retrieves the built node table.
	//
	// Returns:
	//   - *Hierarchy: the hierarchy, or nil if the model is not loaded
	Hierarchy() *Hierarchy

	// Geometry retrieves the static skeleton line geometry.
	//
	// Returns:
	//   - SkeletonGeometry: the geometry, empty if the model is not loaded
	Geometry() SkeletonGeometry

	// BoneCount returns the number of bones in the skeleton.
	//
	// Returns:
	//   - int: the bone count, 0 if the model is not loaded
	BoneCount() int

	// Release drops the hierarchy and geometry. The model reports Loaded() == false afterwards.
	Release()
}

var _ Model = &model{}

// NewModel creates a new Model instance with the specified options applied.
//
// Parameters:
//   - options: a variadic list of ModelBuilderOption functions to configure the Model
//
// Returns:
//   - Model: a new instance of Model configured with the provided options
func NewModel(options ...ModelBuilderOption) Model {
	m := &model{}
	for _, opt := range options {
		opt(m)
	}
	return m
}

func (m *model) Name() string {
	return m.name
}

func (m *model) Path() string {
	return m.path
}

func (m *model) Loaded() bool {
	return m.hierarchy != nil
}

func (m *model) Hierarchy() *Hierarchy {
	return m.hierarchy
}

func (m *model) Geometry() SkeletonGeometry {
	return m.geometry
}

func (m *model) BoneCount() int {
	return m.hierarchy.BoneCount()
}

func (m *model) Release() {
	m.hierarchy = nil
	m.geometry = SkeletonGeometry{}
}
