package loader

import (
	"fmt"
	"log"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"github.com/qmuntal/gltf"
)

// gltfRootName names the synthesized root when a glTF scene has several top-level nodes.
const gltfRootName = "RootNode"

// gltfImporterImpl is the implementation of the gltfImporter interface.
type gltfImporterImpl struct{}

// gltfImporter converts a decoded glTF document into the neutral imported scene.
// It combines the node tree with the meshes produced by the skeleton extractor.
type gltfImporter interface {
	// Import converts the document's default scene.
	//
	// Parameters:
	//   - doc: the decoded glTF document
	//   - name: the scene name to record
	//   - opts: the import post-processing options
	//
	// Returns:
	//   - *model.ImportedScene: the imported scene
	//   - error: error if the node graph or skin data is malformed
	Import(doc *gltf.Document, name string, opts ImportOptions) (*model.ImportedScene, error)
}

var _ gltfImporter = &gltfImporterImpl{}

// newGLTFImporter creates a new glTF importer.
//
// Returns:
//   - gltfImporter: the importer
func newGLTFImporter() gltfImporter {
	return &gltfImporterImpl{}
}

func (imp *gltfImporterImpl) Import(doc *gltf.Document, name string, opts ImportOptions) (*model.ImportedScene, error) {
	if doc == nil {
		return nil, fmt.Errorf("no document after parsing")
	}

	roots, err := gltfSceneRoots(doc)
	if err != nil {
		return nil, err
	}

	scene := &model.ImportedScene{Name: name}

	visited := make(map[int]bool, len(doc.Nodes))
	var top []*model.ImportedNode
	for _, r := range roots {
		n, err := gltfConvertNode(doc, r, visited)
		if err != nil {
			return nil, err
		}
		top = append(top, n)
	}
	switch len(top) {
	case 0:
		log.Printf("gltf %q: scene has no nodes", name)
	case 1:
		scene.Root = top[0]
	default:
		scene.Root = &model.ImportedNode{
			Name:      gltfRootName,
			Transform: model.IdentityImportMatrix(),
			Children:  top,
		}
	}

	meshes, err := newGLTFSkeletonExtractor(doc).ExtractMeshes()
	if err != nil {
		return nil, fmt.Errorf("skin extraction failed: %w", err)
	}
	scene.Meshes = meshes

	applyPostProcess(scene, opts)
	return scene, nil
}

// gltfSceneRoots returns the top-level node indices of the document's default scene.
// Documents without scenes fall back to every node that is nobody's child.
func gltfSceneRoots(doc *gltf.Document) ([]int, error) {
	if len(doc.Scenes) > 0 {
		idx := 0
		if doc.Scene != nil {
			idx = int(*doc.Scene)
		}
		if idx < 0 || idx >= len(doc.Scenes) {
			return nil, fmt.Errorf("default scene %d out of range", idx)
		}
		roots := make([]int, 0, len(doc.Scenes[idx].Nodes))
		for _, n := range doc.Scenes[idx].Nodes {
			roots = append(roots, int(n))
		}
		return roots, nil
	}

	isChild := make(map[int]bool)
	for _, n := range doc.Nodes {
		for _, c := range n.Children {
			isChild[int(c)] = true
		}
	}
	var roots []int
	for i := range doc.Nodes {
		if !isChild[i] {
			roots = append(roots, i)
		}
	}
	return roots, nil
}

// gltfConvertNode converts node idx and its subtree.
func gltfConvertNode(doc *gltf.Document, idx int, visited map[int]bool) (*model.ImportedNode, error) {
	if idx < 0 || idx >= len(doc.Nodes) {
		return nil, fmt.Errorf("node index %d out of range", idx)
	}
	if visited[idx] {
		return nil, fmt.Errorf("node %d appears more than once in the scene graph", idx)
	}
	visited[idx] = true

	src := doc.Nodes[idx]
	out := &model.ImportedNode{
		Name:      gltfNodeName(doc, idx),
		Transform: gltfLocalTransform(src),
		Children:  make([]*model.ImportedNode, 0, len(src.Children)),
	}
	for _, c := range src.Children {
		child, err := gltfConvertNode(doc, int(c), visited)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

// gltfNodeName returns the node's name, or a stable generated name for unnamed nodes so
// joints and scene nodes still match up.
func gltfNodeName(doc *gltf.Document, idx int) string {
	if name := doc.Nodes[idx].Name; name != "" {
		return name
	}
	return fmt.Sprintf("node_%d", idx)
}

// gltfLocalTransform returns the node's local transform in the import convention.
// glTF stores matrices column-major; a non-identity matrix takes precedence over TRS.
func gltfLocalTransform(n *gltf.Node) model.ImportMatrix {
	var m [16]float32
	for i, v := range n.Matrix {
		m[i] = float32(v)
	}
	if !isZeroOrIdentity(m) {
		return model.FromEngine(m)
	}

	var t, s [3]float32
	var r [4]float32
	for i, v := range n.Translation {
		t[i] = float32(v)
	}
	for i, v := range n.Rotation {
		r[i] = float32(v)
	}
	for i, v := range n.Scale {
		s[i] = float32(v)
	}
	return composeTRS(t, r, s)
}
