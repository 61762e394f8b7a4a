package model

// --- Import Types ---
//
// The import types are the neutral scene description produced by loader backends (glTF, YAML rigs).
// Matrices arrive in the import convention (row-major, see ImportMatrix) and are converted
// into engine matrices when the hierarchy is built.

// ImportedScene represents a scene graph loaded from an external format.
// This is the universal format that importers produce and that BuildHierarchy consumes.
type ImportedScene struct {
	// Name is the scene identifier, usually derived from the source file name.
	Name string

	// Root is the top of the imported node tree. A nil Root means the import produced no scene.
	Root *ImportedNode

	// Meshes contains every mesh in the scene along with the bones that deform it.
	Meshes []ImportedMesh
}

// ImportedNode represents one node of the imported scene graph.
type ImportedNode struct {
	// Name identifies the node. Bones are matched to nodes by this name.
	Name string

	// Transform is the node's transform relative to its parent, in the import convention.
	Transform ImportMatrix

	// Children are the node's child nodes in declaration order.
	Children []*ImportedNode
}

// ImportedMesh represents a single mesh within an imported scene.
// Only its bone list is consumed by the skeleton builder.
type ImportedMesh struct {
	// Name is the mesh identifier.
	Name string

	// VertexCount is the number of vertices in the mesh after import post-processing.
	VertexCount int

	// MaxInfluences is the largest number of bones affecting any single vertex.
	MaxInfluences int

	// Bones are the bones that deform this mesh.
	Bones []ImportedBone
}

// ImportedBone is a named bone definition attached to a mesh.
type ImportedBone struct {
	// Name matches the scene node that drives this bone.
	Name string

	// Offset maps mesh bind space into the bone's local space (the inverse bind matrix),
	// in the import convention.
	Offset ImportMatrix

	// Weights lists the vertices this bone influences.
	Weights []VertexWeight
}

// VertexWeight is a single bone influence on a mesh vertex.
type VertexWeight struct {
	// Vertex is the index of the influenced vertex within its mesh.
	Vertex uint32

	// Weight is the influence strength in [0, 1].
	Weight float32
}

// NodeCount returns the number of nodes reachable from the scene root.
//
// Returns:
//   - int: the node count, or 0 if the scene has no root
func (s *ImportedScene) NodeCount() int {
	if s == nil || s.Root == nil {
		return 0
	}
	count := 0
	stack := []*ImportedNode{s.Root}
	for len(stack) > 0 {
		n := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if n == nil {
			continue
		}
		count++
		stack = append(stack, n.Children...)
	}
	return count
}

// BoneCount returns the total number of bone definitions across all meshes, counting duplicates.
//
// Returns:
//   - int: the bone definition count
func (s *ImportedScene) BoneCount() int {
	if s == nil {
		return 0
	}
	count := 0
	for _, m := range s.Meshes {
		count += len(m.Bones)
	}
	return count
}
