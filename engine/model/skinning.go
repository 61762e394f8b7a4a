package model

import "github.com/Carmen-Shannon/oxy-rig/common"

// BoneMatrixWriter receives skinning matrices addressed by bone index.
type BoneMatrixWriter interface {
	// SetBoneMatrix stores the matrix for the bone with the given index.
	//
	// Parameters:
	//   - index: the dense bone index
	//   - m: the column-major skinning matrix
	SetBoneMatrix(index int, m [16]float32)
}

// BoneMatrices is a BoneMatrixWriter backed by a slice indexed by bone index.
type BoneMatrices [][16]float32

// SetBoneMatrix stores m at index. Out-of-range indices are ignored.
func (b BoneMatrices) SetBoneMatrix(index int, m [16]float32) {
	if index < 0 || index >= len(b) {
		return
	}
	b[index] = m
}

// SkinningMatrix computes globalInverse * world * offset for one bone: the offset is applied
// first, then the bone's world transform, then the global inverse.
//
// Parameters:
//   - h: the built hierarchy
//   - index: the bone index
//
// Returns:
//   - [16]float32: the skinning matrix, or identity if index is out of range
func SkinningMatrix(h *Hierarchy, index int) [16]float32 {
	id := h.BoneNode(index)
	if id == NoNode {
		return common.Identity4()
	}
	node := h.nodes[id]
	return common.Mul4(common.Mul4(h.globalInverse, node.WorldTransform), node.Bone.Offset)
}

// EvaluateSkinning computes the skinning matrix of every bone in ascending index order and
// hands each to w. The hierarchy is only read, so this is safe to call every frame.
//
// Parameters:
//   - h: the built hierarchy (nil is treated as empty)
//   - w: the destination for the matrices
//
// Returns:
//   - int: the number of matrices written
func EvaluateSkinning(h *Hierarchy, w BoneMatrixWriter) int {
	n := h.BoneCount()
	for i := 0; i < n; i++ {
		w.SetBoneMatrix(i, SkinningMatrix(h, i))
	}
	return n
}
