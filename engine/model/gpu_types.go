package model

import (
	_ "embed"
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUBoneVertexSource is the canonical WGSL definition of the VertexInput struct for skeleton line pipelines.
// Matches GPUBoneVertex layout exactly (16 bytes).
//
//go:embed assets/bone_vertex.wgsl
var GPUBoneVertexSource string

// GPUBoneVertex is the GPU representation of one skeleton vertex.
// The position is a placeholder at the origin; the bone's skinning matrix places it each frame.
// Size: 16 bytes.
type GPUBoneVertex struct {
	Position  [3]float32 // offset  0: local position, always the origin (12 bytes)
	BoneIndex int32      // offset 12: index into the bone matrix array (4 bytes)
}

// Size returns the size of the GPUBoneVertex struct in bytes.
//
// Returns:
//   - int: the size of the struct in bytes.
func (g *GPUBoneVertex) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUBoneVertex into a little-endian byte buffer suitable for GPU upload.
//
// Returns:
//   - []byte: 16-byte buffer ready for GPU upload.
func (g *GPUBoneVertex) Marshal() []byte {
	buf := make([]byte, 16)
	binary.LittleEndian.PutUint32(buf[0:4], math.Float32bits(g.Position[0]))
	binary.LittleEndian.PutUint32(buf[4:8], math.Float32bits(g.Position[1]))
	binary.LittleEndian.PutUint32(buf[8:12], math.Float32bits(g.Position[2]))
	binary.LittleEndian.PutUint32(buf[12:16], uint32(g.BoneIndex))
	return buf
}

// GPUBoneMatrixSize is the byte size of one mat4x4<f32> entry in the bone matrix buffer.
const GPUBoneMatrixSize = 64

// MarshalBoneMatrices serializes bone matrices into a little-endian byte buffer laid out as a
// WGSL array<mat4x4<f32>>, so matrix i starts at byte i*GPUBoneMatrixSize.
//
// Parameters:
//   - matrices: the column-major bone matrices in bone index order
//   - dst: an optional buffer to reuse; it is grown if too small
//
// Returns:
//   - []byte: the serialized matrices
func MarshalBoneMatrices(matrices [][16]float32, dst []byte) []byte {
	size := len(matrices) * GPUBoneMatrixSize
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	for i, m := range matrices {
		base := i * GPUBoneMatrixSize
		for j, v := range m {
			binary.LittleEndian.PutUint32(dst[base+j*4:base+j*4+4], math.Float32bits(v))
		}
	}
	return dst
}
