package loader

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
	"gopkg.in/yaml.v3"
)

// yamlRig is the on-disk layout of a .rig.yaml file.
type yamlRig struct {
	Name   string     `yaml:"name"`
	Root   *yamlNode  `yaml:"root"`
	Meshes []yamlMesh `yaml:"meshes"`
}

// yamlNode is one scene node. Matrix, when present, is 16 row-major values and overrides TRS.
// Rotation is a quaternion in x, y, z, w order.
type yamlNode struct {
	Name        string      `yaml:"name"`
	Translation [3]float32  `yaml:"translation"`
	Rotation    [4]float32  `yaml:"rotation"`
	Scale       [3]float32  `yaml:"scale"`
	Matrix      []float32   `yaml:"matrix"`
	Children    []*yamlNode `yaml:"children"`
}

type yamlMesh struct {
	Name        string     `yaml:"name"`
	VertexCount int        `yaml:"vertex_count"`
	Bones       []yamlBone `yaml:"bones"`
}

// yamlBone is a bone definition. Offset is 16 row-major values; omitted means identity.
// Weights are [vertex, weight] pairs.
type yamlBone struct {
	Name    string       `yaml:"name"`
	Offset  []float32    `yaml:"offset"`
	Weights [][2]float32 `yaml:"weights"`
}

// yamlLoaderBackendImpl is the implementation of yamlLoaderBackend.
type yamlLoaderBackendImpl struct{}

// yamlLoaderBackend is a loaderBackend implementation for hand-authored rig descriptions.
// It lets skeletons be described and tested without a modelling tool.
type yamlLoaderBackend interface {
	loaderBackend
}

var _ yamlLoaderBackend = &yamlLoaderBackendImpl{}

// newYAMLLoaderBackend creates a new YAML rig loader backend.
//
// Returns:
//   - yamlLoaderBackend: the loader backend for .rig.yaml files
func newYAMLLoaderBackend() yamlLoaderBackend {
	return &yamlLoaderBackendImpl{}
}

func (b *yamlLoaderBackendImpl) Import(path string, opts ImportOptions) (*model.ImportedScene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s: %w", path, err)
	}
	defer f.Close()

	return b.ImportReader(sceneName(path), f, opts)
}

func (b *yamlLoaderBackendImpl) ImportReader(name string, r io.Reader, opts ImportOptions) (*model.ImportedScene, error) {
	var rig yamlRig
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&rig); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse rig %q: %w", name, err)
	}

	scene := &model.ImportedScene{Name: name}
	if rig.Name != "" {
		scene.Name = rig.Name
	}

	if rig.Root != nil {
		root, err := convertYAMLNode(rig.Root, 0)
		if err != nil {
			return nil, fmt.Errorf("rig %q: %w", scene.Name, err)
		}
		scene.Root = root
	}

	for mi, m := range rig.Meshes {
		mesh, err := convertYAMLMesh(m, mi)
		if err != nil {
			return nil, fmt.Errorf("rig %q: %w", scene.Name, err)
		}
		scene.Meshes = append(scene.Meshes, mesh)
	}

	applyPostProcess(scene, opts)
	return scene, nil
}

func convertYAMLNode(n *yamlNode, depth int) (*model.ImportedNode, error) {
	if n.Name == "" {
		return nil, fmt.Errorf("node at depth %d has no name", depth)
	}

	out := &model.ImportedNode{Name: n.Name}
	switch len(n.Matrix) {
	case 0:
		out.Transform = composeTRS(n.Translation, n.Rotation, n.Scale)
	case 16:
		copy(out.Transform[:], n.Matrix)
	default:
		return nil, fmt.Errorf("node %q: matrix has %d values, want 16", n.Name, len(n.Matrix))
	}

	for _, c := range n.Children {
		if c == nil {
			continue
		}
		child, err := convertYAMLNode(c, depth+1)
		if err != nil {
			return nil, err
		}
		out.Children = append(out.Children, child)
	}
	return out, nil
}

func convertYAMLMesh(m yamlMesh, index int) (model.ImportedMesh, error) {
	mesh := model.ImportedMesh{
		Name:        m.Name,
		VertexCount: m.VertexCount,
		Bones:       make([]model.ImportedBone, 0, len(m.Bones)),
	}
	if mesh.Name == "" {
		mesh.Name = fmt.Sprintf("mesh_%d", index)
	}

	for _, b := range m.Bones {
		bone := model.ImportedBone{Name: b.Name, Offset: model.IdentityImportMatrix()}
		if b.Name == "" {
			return model.ImportedMesh{}, fmt.Errorf("mesh %q: bone has no name", mesh.Name)
		}
		switch len(b.Offset) {
		case 0:
		case 16:
			copy(bone.Offset[:], b.Offset)
		default:
			return model.ImportedMesh{}, fmt.Errorf("bone %q: offset has %d values, want 16", b.Name, len(b.Offset))
		}

		for _, w := range b.Weights {
			if w[0] < 0 || w[0] != float32(uint32(w[0])) {
				return model.ImportedMesh{}, fmt.Errorf("bone %q: invalid vertex index %v", b.Name, w[0])
			}
			bone.Weights = append(bone.Weights, model.VertexWeight{Vertex: uint32(w[0]), Weight: w[1]})
		}
		mesh.Bones = append(mesh.Bones, bone)
	}
	return mesh, nil
}
