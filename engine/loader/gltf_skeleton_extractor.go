package loader

import (
	"errors"
	"fmt"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"
)

// ErrNoSkin is returned by ExtractSkin for documents without skins.
var ErrNoSkin = errors.New("document has no skin")

// gltfSkeletonExtractorImpl is the implementation of the gltfSkeletonExtractor interface.
type gltfSkeletonExtractorImpl struct {
	doc *gltf.Document
}

// gltfSkeletonExtractor extracts bone definitions from glTF skins.
// Each skin becomes one model.ImportedMesh whose bones are the skin's joints, named after
// their joint nodes, with the skin's inverse bind matrices as offsets.
type gltfSkeletonExtractor interface {
	// ExtractMeshes extracts one mesh per skin in the document.
	//
	// Returns:
	//   - []model.ImportedMesh: the extracted meshes in skin order
	//   - error: error if joint or accessor data is malformed
	ExtractMeshes() ([]model.ImportedMesh, error)

	// ExtractSkin extracts the mesh for a single skin.
	//
	// Parameters:
	//   - skinIndex: the index of the skin to extract
	//
	// Returns:
	//   - model.ImportedMesh: the skin's bones and their vertex weights
	//   - error: ErrNoSkin or an error if the skin data is malformed
	ExtractSkin(skinIndex int) (model.ImportedMesh, error)

	// FindMeshesForSkin finds the meshes deformed by a skin, in node order without repeats.
	//
	// Parameters:
	//   - skinIndex: the skin index
	//
	// Returns:
	//   - []int: the mesh indices
	FindMeshesForSkin(skinIndex int) []int
}

var _ gltfSkeletonExtractor = &gltfSkeletonExtractorImpl{}

// newGLTFSkeletonExtractor creates a new skeleton extractor for a decoded document.
//
// Parameters:
//   - doc: the decoded glTF document
//
// Returns:
//   - gltfSkeletonExtractor: the skeleton extractor
func newGLTFSkeletonExtractor(doc *gltf.Document) gltfSkeletonExtractor {
	return &gltfSkeletonExtractorImpl{doc: doc}
}

func (e *gltfSkeletonExtractorImpl) ExtractMeshes() ([]model.ImportedMesh, error) {
	meshes := make([]model.ImportedMesh, 0, len(e.doc.Skins))
	for i := range e.doc.Skins {
		mesh, err := e.ExtractSkin(i)
		if err != nil {
			return nil, fmt.Errorf("skin %d: %w", i, err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}

func (e *gltfSkeletonExtractorImpl) FindMeshesForSkin(skinIndex int) []int {
	seen := make(map[int]bool)
	var meshes []int
	for _, node := range e.doc.Nodes {
		if node.Mesh == nil || node.Skin == nil || int(*node.Skin) != skinIndex {
			continue
		}
		m := int(*node.Mesh)
		if seen[m] {
			continue
		}
		seen[m] = true
		meshes = append(meshes, m)
	}
	return meshes
}

func (e *gltfSkeletonExtractorImpl) ExtractSkin(skinIndex int) (model.ImportedMesh, error) {
	if len(e.doc.Skins) == 0 {
		return model.ImportedMesh{}, ErrNoSkin
	}
	if skinIndex < 0 || skinIndex >= len(e.doc.Skins) {
		return model.ImportedMesh{}, fmt.Errorf("skin index %d out of range", skinIndex)
	}
	skin := e.doc.Skins[skinIndex]

	offsets, err := e.readInverseBindMatrices(skin)
	if err != nil {
		return model.ImportedMesh{}, err
	}

	mesh := model.ImportedMesh{Bones: make([]model.ImportedBone, len(skin.Joints))}
	for i, joint := range skin.Joints {
		j := int(joint)
		if j < 0 || j >= len(e.doc.Nodes) {
			return model.ImportedMesh{}, fmt.Errorf("joint %d: invalid node index %d", i, j)
		}
		mesh.Bones[i] = model.ImportedBone{
			Name:   gltfNodeName(e.doc, j),
			Offset: model.IdentityImportMatrix(),
		}
		if i < len(offsets) {
			mesh.Bones[i].Offset = model.FromEngine(offsets[i])
		}
	}

	meshIndices := e.FindMeshesForSkin(skinIndex)
	for _, mi := range meshIndices {
		if mi < 0 || mi >= len(e.doc.Meshes) {
			return model.ImportedMesh{}, fmt.Errorf("mesh index %d out of range", mi)
		}
		if mesh.Name == "" {
			mesh.Name = e.doc.Meshes[mi].Name
		}
		if err := e.readWeights(mi, &mesh); err != nil {
			return model.ImportedMesh{}, fmt.Errorf("mesh %d: %w", mi, err)
		}
	}

	if mesh.Name == "" {
		mesh.Name = skin.Name
	}
	if mesh.Name == "" {
		mesh.Name = fmt.Sprintf("skin_%d", skinIndex)
	}
	return mesh, nil
}

// readInverseBindMatrices returns the skin's inverse bind matrices in column-major order,
// or nil when the skin omits them (glTF then implies identity).
// The modeler hands matrices back indexed [row][col].
func (e *gltfSkeletonExtractorImpl) readInverseBindMatrices(skin *gltf.Skin) ([][16]float32, error) {
	if skin.InverseBindMatrices == nil {
		return nil, nil
	}
	acr, err := e.accessor(int(*skin.InverseBindMatrices))
	if err != nil {
		return nil, fmt.Errorf("inverse bind matrices: %w", err)
	}

	data, err := modeler.ReadAccessor(e.doc, acr, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to read inverse bind matrices: %w", err)
	}
	mats, ok := data.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("inverse bind matrices: unexpected accessor data %T", data)
	}

	out := make([][16]float32, len(mats))
	for i, m := range mats {
		for c := 0; c < 4; c++ {
			for r := 0; r < 4; r++ {
				out[i][c*4+r] = m[r][c]
			}
		}
	}
	return out, nil
}

// readWeights appends the per-vertex joint influences of every primitive in mesh mi.
// Vertex numbering continues across primitives in declaration order.
func (e *gltfSkeletonExtractorImpl) readWeights(mi int, mesh *model.ImportedMesh) error {
	for pi, prim := range e.doc.Meshes[mi].Primitives {
		base := uint32(mesh.VertexCount)
		if pos, ok := prim.Attributes[gltf.POSITION]; ok {
			acr, err := e.accessor(int(pos))
			if err != nil {
				return fmt.Errorf("primitive %d: POSITION: %w", pi, err)
			}
			mesh.VertexCount += int(acr.Count)
		}

		for set := 0; ; set++ {
			jIdx, hasJoints := prim.Attributes[fmt.Sprintf("JOINTS_%d", set)]
			wIdx, hasWeights := prim.Attributes[fmt.Sprintf("WEIGHTS_%d", set)]
			if !hasJoints || !hasWeights {
				break
			}
			jAcr, err := e.accessor(int(jIdx))
			if err != nil {
				return fmt.Errorf("primitive %d: JOINTS_%d: %w", pi, set, err)
			}
			wAcr, err := e.accessor(int(wIdx))
			if err != nil {
				return fmt.Errorf("primitive %d: WEIGHTS_%d: %w", pi, set, err)
			}
			joints, err := modeler.ReadJoints(e.doc, jAcr, nil)
			if err != nil {
				return fmt.Errorf("primitive %d: failed to read JOINTS_%d: %w", pi, set, err)
			}
			weights, err := modeler.ReadWeights(e.doc, wAcr, nil)
			if err != nil {
				return fmt.Errorf("primitive %d: failed to read WEIGHTS_%d: %w", pi, set, err)
			}
			if len(joints) != len(weights) {
				return fmt.Errorf("primitive %d: JOINTS_%d has %d entries, WEIGHTS_%d has %d", pi, set, len(joints), set, len(weights))
			}

			for v := range joints {
				for k := 0; k < 4; k++ {
					w := weights[v][k]
					if w == 0 {
						continue
					}
					b := int(joints[v][k])
					if b >= len(mesh.Bones) {
						return fmt.Errorf("primitive %d: vertex %d references joint %d of %d", pi, v, b, len(mesh.Bones))
					}
					mesh.Bones[b].Weights = append(mesh.Bones[b].Weights, model.VertexWeight{
						Vertex: base + uint32(v),
						Weight: w,
					})
				}
			}
		}
	}
	return nil
}

// accessor returns accessor idx, or an error when the file references one it does not declare.
func (e *gltfSkeletonExtractorImpl) accessor(idx int) (*gltf.Accessor, error) {
	if idx < 0 || idx >= len(e.doc.Accessors) {
		return nil, fmt.Errorf("accessor %d out of range (%d declared)", idx, len(e.doc.Accessors))
	}
	return e.doc.Accessors[idx], nil
}
