package camera

import (
	"encoding/binary"
	"math"
	"unsafe"
)

// GPUCameraUniform is the GPU-aligned representation of the camera uniform buffer.
// Matches the WGSL CameraUniform struct of the skeleton shader.
// Size: 128 bytes.
type GPUCameraUniform struct {
	ViewProj [16]float32 // offset  0: combined view-projection matrix (mat4x4<f32>)
	Model    [16]float32 // offset 64: the drawn object's model matrix (mat4x4<f32>)
}

// Size returns the size of the GPUCameraUniform struct in bytes.
//
// Returns:
//   - int: the struct size in bytes (128)
func (g *GPUCameraUniform) Size() int {
	return int(unsafe.Sizeof(*g))
}

// Marshal serializes the GPUCameraUniform struct into a byte buffer suitable for GPU upload.
//
// Parameters:
//   - dst: an optional buffer to reuse; it is grown if too small
//
// Returns:
//   - []byte: the serialized byte buffer
func (g *GPUCameraUniform) Marshal(dst []byte) []byte {
	size := g.Size()
	if cap(dst) < size {
		dst = make([]byte, size)
	}
	dst = dst[:size]
	for i := range 16 {
		binary.LittleEndian.PutUint32(dst[i*4:], math.Float32bits(g.ViewProj[i]))
		binary.LittleEndian.PutUint32(dst[64+i*4:], math.Float32bits(g.Model[i]))
	}
	return dst
}
