package model

// NodeID addresses a Node inside a Hierarchy's node table.
type NodeID int

// NoNode is the NodeID used for absent links (the root's parent, a node with no ancestor bone).
const NoNode NodeID = -1

// Bone holds the data a Node carries only when it is a bone.
// Index and Offset are valid together, so a Node is either plain (Bone == nil) or a bone.
type Bone struct {
	// Index is the dense bone index, assigned in depth-first pre-order starting at 0.
	Index int

	// Offset maps mesh bind space into this bone's local space (column-major).
	Offset [16]float32
}

// Node is one imported scene node after classification.
type Node struct {
	// Name is the scene node's name.
	Name string

	// Parent is the enclosing node, or NoNode for the root.
	Parent NodeID

	// ParentBone is the nearest strict ancestor that is a bone, or NoNode.
	ParentBone NodeID

	// WorldTransform is the composed root-to-node transform (column-major).
	WorldTransform [16]float32

	// Bone is non-nil iff this node is a bone.
	Bone *Bone

	// Children are the child nodes in scene order.
	Children []NodeID
}

// IsBone reports whether the node is classified as a bone.
//
// Returns:
//   - bool: true if the node carries bone data
func (n Node) IsBone() bool {
	return n.Bone != nil
}

// Hierarchy is the immutable node table produced by BuildHierarchy.
// Nodes live in a single slice and reference each other by NodeID, so the tree has no
// pointer cycles. The root is always NodeID 0 when the hierarchy is non-empty.
type Hierarchy struct {
	nodes         []Node
	byName        map[string]NodeID
	bones         []NodeID
	globalInverse [16]float32
}

// Root returns the id of the root node.
//
// Returns:
//   - NodeID: the root id, or NoNode for an empty hierarchy
func (h *Hierarchy) Root() NodeID {
	if h == nil || len(h.nodes) == 0 {
		return NoNode
	}
	return 0
}

// Node returns a copy of the node with the given id. The bone data is copied too.
// The Children slice is shared with the hierarchy and must not be modified.
//
// Parameters:
//   - id: the node id
//
// Returns:
//   - Node: the node
//   - bool: false if id is out of range
func (h *Hierarchy) Node(id NodeID) (Node, bool) {
	if h == nil || id < 0 || int(id) >= len(h.nodes) {
		return Node{}, false
	}
	n := h.nodes[id]
	if n.Bone != nil {
		b := *n.Bone
		n.Bone = &b
	}
	return n, true
}

// Lookup finds a node by name.
//
// Parameters:
//   - name: the scene node name
//
// Returns:
//   - NodeID: the node id, or NoNode if not found
//   - bool: true if the name is known
func (h *Hierarchy) Lookup(name string) (NodeID, bool) {
	if h == nil {
		return NoNode, false
	}
	id, ok := h.byName[name]
	if !ok {
		return NoNode, false
	}
	return id, true
}

// NodeCount returns the number of nodes in the hierarchy.
//
// Returns:
//   - int: the node count
func (h *Hierarchy) NodeCount() int {
	if h == nil {
		return 0
	}
	return len(h.nodes)
}

// BoneCount returns the number of bone nodes.
//
// Returns:
//   - int: the bone count
func (h *Hierarchy) BoneCount() int {
	if h == nil {
		return 0
	}
	return len(h.bones)
}

// BoneNode returns the node that was assigned the given bone index.
//
// Parameters:
//   - index: the bone index in [0, BoneCount())
//
// Returns:
//   - NodeID: the bone's node id, or NoNode if index is out of range
func (h *Hierarchy) BoneNode(index int) NodeID {
	if h == nil || index < 0 || index >= len(h.bones) {
		return NoNode
	}
	return h.bones[index]
}

// GlobalInverseTransform returns the inverse of bone 0's world transform.
// Every skinning matrix is expressed relative to this frame.
//
// Returns:
//   - [16]float32: the global inverse transform
//   - bool: false when the hierarchy has no bones
func (h *Hierarchy) GlobalInverseTransform() ([16]float32, bool) {
	if h.BoneCount() == 0 {
		return [16]float32{}, false
	}
	return h.globalInverse, true
}

// Walk visits every node in depth-first pre-order, the same order used for bone indexing.
// Returning false from fn skips that node's subtree.
//
// Parameters:
//   - fn: called with each node id and its depth (root depth is 0)
func (h *Hierarchy) Walk(fn func(id NodeID, depth int) bool) {
	root := h.Root()
	if root == NoNode {
		return
	}
	h.walk(root, 0, fn)
}

func (h *Hierarchy) walk(id NodeID, depth int, fn func(id NodeID, depth int) bool) {
	if !fn(id, depth) {
		return
	}
	for _, child := range h.nodes[id].Children {
		h.walk(child, depth+1, fn)
	}
}
