package loader

import (
	"sort"
	"strings"

	"github.com/Carmen-Shannon/oxy-rig/engine/model"
)

// PostProcessStep is a bit flag requesting an import-time normalization step.
type PostProcessStep uint32

const (
	// StepTriangulate splits polygons into triangles.
	StepTriangulate PostProcessStep = 1 << iota

	// StepLimitBoneWeights keeps at most ImportOptions.MaxBoneWeights influences per vertex,
	// dropping the weakest and renormalizing the rest.
	StepLimitBoneWeights

	// StepGenerateSmoothNormals computes per-vertex normals where the source has none.
	StepGenerateSmoothNormals

	// StepFlipUVs flips the vertical texture coordinate axis.
	StepFlipUVs

	// StepJoinIdenticalVertices merges vertices with identical attributes.
	StepJoinIdenticalVertices

	// StepSortByPrimitiveType splits meshes so each holds a single primitive type.
	StepSortByPrimitiveType
)

// DefaultMaxBoneWeights is the per-vertex influence limit used by StepLimitBoneWeights.
const DefaultMaxBoneWeights = 4

var stepNames = map[PostProcessStep]string{
	StepTriangulate:           "Triangulate",
	StepLimitBoneWeights:      "LimitBoneWeights",
	StepGenerateSmoothNormals: "GenerateSmoothNormals",
	StepFlipUVs:               "FlipUVs",
	StepJoinIdenticalVertices: "JoinIdenticalVertices",
	StepSortByPrimitiveType:   "SortByPrimitiveType",
}

// Has reports whether every flag in step is set.
//
// Parameters:
//   - step: the flag or flags to test
//
// Returns:
//   - bool: true if all flags in step are present
func (p PostProcessStep) Has(step PostProcessStep) bool {
	return p&step == step
}

func (p PostProcessStep) String() string {
	if p == 0 {
		return "None"
	}
	names := make([]string, 0, len(stepNames))
	for flag, name := range stepNames {
		if p.Has(flag) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return strings.Join(names, "|")
}

// ImportOptions configures the import-time processing applied by loader backends.
// Only StepLimitBoneWeights changes the neutral scene description; the remaining steps act on
// vertex attributes, which the skeleton import does not retain, and are accepted for parity
// with full mesh importers.
type ImportOptions struct {
	// Steps are the requested post-process steps.
	Steps PostProcessStep

	// MaxBoneWeights is the per-vertex influence limit; 0 means DefaultMaxBoneWeights.
	MaxBoneWeights int
}

// DefaultImportOptions returns the processing used for rigged assets: triangulate, limit bone
// influences to 4, generate smooth normals, flip UVs, join identical vertices and sort by
// primitive type.
//
// Returns:
//   - ImportOptions: the default options
func DefaultImportOptions() ImportOptions {
	return ImportOptions{
		Steps: StepTriangulate | StepLimitBoneWeights | StepGenerateSmoothNormals |
			StepFlipUVs | StepJoinIdenticalVertices | StepSortByPrimitiveType,
		MaxBoneWeights: DefaultMaxBoneWeights,
	}
}

// applyPostProcess runs the scene-level post-process steps in place.
func applyPostProcess(scene *model.ImportedScene, opts ImportOptions) {
	for i := range scene.Meshes {
		mesh := &scene.Meshes[i]
		if opts.Steps.Has(StepLimitBoneWeights) {
			limitBoneWeights(mesh, max(opts.MaxBoneWeights, 0))
		}
		mesh.MaxInfluences = maxInfluences(mesh)
	}
}

type influence struct {
	bone   int
	weight float32
}

// limitBoneWeights keeps the limit strongest influences per vertex and renormalizes them to sum to 1.
// A limit of 0 selects DefaultMaxBoneWeights.
func limitBoneWeights(mesh *model.ImportedMesh, limit int) {
	if limit == 0 {
		limit = DefaultMaxBoneWeights
	}

	perVertex := make(map[uint32][]influence)
	for b, bone := range mesh.Bones {
		for _, w := range bone.Weights {
			perVertex[w.Vertex] = append(perVertex[w.Vertex], influence{bone: b, weight: w.Weight})
		}
	}

	for b := range mesh.Bones {
		mesh.Bones[b].Weights = mesh.Bones[b].Weights[:0]
	}

	vertices := make([]uint32, 0, len(perVertex))
	for v := range perVertex {
		vertices = append(vertices, v)
	}
	sort.Slice(vertices, func(i, j int) bool { return vertices[i] < vertices[j] })

	for _, v := range vertices {
		infl := perVertex[v]
		sort.SliceStable(infl, func(i, j int) bool { return infl[i].weight > infl[j].weight })
		if len(infl) > limit {
			infl = infl[:limit]
		}

		var total float32
		for _, in := range infl {
			total += in.weight
		}
		for _, in := range infl {
			w := in.weight
			if total > 0 {
				w /= total
			}
			mesh.Bones[in.bone].Weights = append(mesh.Bones[in.bone].Weights, model.VertexWeight{Vertex: v, Weight: w})
		}
	}
}

// maxInfluences counts the largest number of non-zero bone weights on any single vertex.
func maxInfluences(mesh *model.ImportedMesh) int {
	counts := make(map[uint32]int)
	most := 0
	for _, bone := range mesh.Bones {
		for _, w := range bone.Weights {
			if w.Weight == 0 {
				continue
			}
			counts[w.Vertex]++
			most = max(most, counts[w.Vertex])
		}
	}
	return most
}
