package model

import "encoding/binary"

// SkeletonGeometry is the static line-list geometry for drawing a skeleton.
// Vertices are ordered by ascending bone index, so a bone index is also its vertex index.
type SkeletonGeometry struct {
	// Vertices holds one origin vertex per bone.
	Vertices []GPUBoneVertex

	// Indices holds (bone, parent bone) pairs, one pair per line segment.
	Indices []uint32
}

// BuildSkeletonGeometry emits one vertex per bone and one line segment for every bone that has
// an ancestor bone. Bones without an ancestor bone contribute a vertex but no segment.
//
// Parameters:
//   - h: the built hierarchy
//
// Returns:
//   - SkeletonGeometry: the skeleton's vertices and line indices (both empty for zero bones)
func BuildSkeletonGeometry(h *Hierarchy) SkeletonGeometry {
	n := h.BoneCount()
	g := SkeletonGeometry{
		Vertices: make([]GPUBoneVertex, 0, n),
		Indices:  make([]uint32, 0, 2*n),
	}
	for i := 0; i < n; i++ {
		g.Vertices = append(g.Vertices, GPUBoneVertex{BoneIndex: int32(i)})

		node := h.nodes[h.bones[i]]
		if node.ParentBone == NoNode {
			continue
		}
		parent := h.nodes[node.ParentBone]
		g.Indices = append(g.Indices, uint32(i), uint32(parent.Bone.Index))
	}
	return g
}

// VertexCount returns the number of skeleton vertices.
//
// Returns:
//   - int: the vertex count
func (g SkeletonGeometry) VertexCount() int {
	return len(g.Vertices)
}

// EdgeCount returns the number of line segments.
//
// Returns:
//   - int: the edge count
func (g SkeletonGeometry) EdgeCount() int {
	return len(g.Indices) / 2
}

// VertexData serializes the vertices for upload to a vertex buffer.
//
// Returns:
//   - []byte: the vertex bytes, or nil if there are no vertices
func (g SkeletonGeometry) VertexData() []byte {
	if len(g.Vertices) == 0 {
		return nil
	}
	buf := make([]byte, 0, len(g.Vertices)*16)
	for i := range g.Vertices {
		buf = append(buf, g.Vertices[i].Marshal()...)
	}
	return buf
}

// IndexData serializes the indices as little-endian uint32 for upload to an index buffer.
//
// Returns:
//   - []byte: the index bytes, or nil if there are no indices
func (g SkeletonGeometry) IndexData() []byte {
	if len(g.Indices) == 0 {
		return nil
	}
	buf := make([]byte, len(g.Indices)*4)
	for i, idx := range g.Indices {
		binary.LittleEndian.PutUint32(buf[i*4:], idx)
	}
	return buf
}
