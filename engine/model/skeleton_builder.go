package model

import (
	"errors"
	"fmt"
	"log"
	"strings"

	"github.com/Carmen-Shannon/oxy-rig/common"
)

var (
	// ErrNoRootNode is returned when an imported scene has no root node to build from.
	ErrNoRootNode = errors.New("imported scene has no root node")

	// ErrSingularBindPose is returned when the world transform of bone 0 cannot be inverted,
	// which leaves the skeleton without a usable inverse-bind frame.
	ErrSingularBindPose = errors.New("bind pose of first bone is not invertible")
)

// SkeletonBuilderOption is a functional option for configuring a BuildHierarchy call.
type SkeletonBuilderOption func(*skeletonBuilder)

// WithNodeLog is an option builder that logs every visited node, indented by depth, while the
// hierarchy is built.
//
// Parameters:
//   - enabled: true to log the node tree
//
// Returns:
//   - SkeletonBuilderOption: a function that applies the node log option to a builder
func WithNodeLog(enabled bool) SkeletonBuilderOption {
	return func(b *skeletonBuilder) {
		b.logNodes = enabled
	}
}

// skeletonBuilder holds the state of a single BuildHierarchy invocation.
// nextBone is only ever touched by the goroutine running that invocation.
type skeletonBuilder struct {
	logNodes bool
	boneDefs map[string]ImportedBone
	nextBone int
	h        *Hierarchy
}

// BuildHierarchy walks an imported scene graph depth-first (pre-order) and produces the
// classified node table. Nodes whose names match a bone definition in any mesh become bones
// and receive dense indices in visiting order. Each node's world transform is its parent's
// world transform composed with its own converted local transform, and the inverse of bone 0's
// world transform becomes the hierarchy's global inverse.
//
// Parameters:
//   - scene: the imported scene to build from
//   - options: variadic SkeletonBuilderOption functions
//
// Returns:
//   - *Hierarchy: the built hierarchy
//   - error: ErrNoRootNode if the scene is empty, or a wrapped ErrSingularBindPose
func BuildHierarchy(scene *ImportedScene, options ...SkeletonBuilderOption) (*Hierarchy, error) {
	if scene == nil || scene.Root == nil {
		return nil, ErrNoRootNode
	}

	b := &skeletonBuilder{
		boneDefs: make(map[string]ImportedBone, scene.BoneCount()),
		h: &Hierarchy{
			nodes:  make([]Node, 0, scene.NodeCount()),
			byName: make(map[string]NodeID),
		},
	}
	for _, opt := range options {
		opt(b)
	}

	for _, mesh := range scene.Meshes {
		for _, bone := range mesh.Bones {
			if _, dup := b.boneDefs[bone.Name]; dup {
				log.Printf("skeleton %q: duplicate bone definition %q in mesh %q, keeping the last one", scene.Name, bone.Name, mesh.Name)
			}
			b.boneDefs[bone.Name] = bone
		}
	}

	if _, err := b.visit(scene.Root, common.Identity4(), NoNode, NoNode, 0); err != nil {
		return nil, fmt.Errorf("skeleton %q: %w", scene.Name, err)
	}

	if b.logNodes {
		log.Printf("skeleton %q: %d nodes, %d bones", scene.Name, len(b.h.nodes), len(b.h.bones))
	}
	return b.h, nil
}

// visit builds the node for src, then its subtree, and returns src's id.
func (b *skeletonBuilder) visit(src *ImportedNode, parentWorld [16]float32, parent, parentBone NodeID, depth int) (NodeID, error) {
	id := NodeID(len(b.h.nodes))
	node := Node{
		Name:           src.Name,
		Parent:         parent,
		ParentBone:     parentBone,
		WorldTransform: common.Mul4(parentWorld, src.Transform.ToEngine()),
	}

	if def, ok := b.boneDefs[src.Name]; ok {
		node.Bone = &Bone{
			Index:  b.nextBone,
			Offset: def.Offset.ToEngine(),
		}
		b.nextBone++

		if node.Bone.Index == 0 {
			inv, ok := common.Invert4(node.WorldTransform)
			if !ok {
				return NoNode, fmt.Errorf("bone %q: %w", src.Name, ErrSingularBindPose)
			}
			b.h.globalInverse = inv
		}
		b.h.bones = append(b.h.bones, id)
	}

	if prev, dup := b.h.byName[src.Name]; dup {
		log.Printf("skeleton: node name %q reused (node %d replaces %d in name lookup)", src.Name, id, prev)
	}
	b.h.byName[src.Name] = id
	b.h.nodes = append(b.h.nodes, node)
	if parent != NoNode {
		b.h.nodes[parent].Children = append(b.h.nodes[parent].Children, id)
	}

	if b.logNodes {
		b.logNode(node, depth)
	}

	childParentBone := parentBone
	if node.Bone != nil {
		childParentBone = id
	}
	for _, child := range src.Children {
		if child == nil {
			continue
		}
		if _, err := b.visit(child, node.WorldTransform, id, childParentBone, depth+1); err != nil {
			return NoNode, err
		}
	}
	return id, nil
}

func (b *skeletonBuilder) logNode(n Node, depth int) {
	indent := strings.Repeat("  ", depth)
	if n.Bone != nil {
		log.Printf("%s%s [bone %d]", indent, n.Name, n.Bone.Index)
		return
	}
	log.Printf("%s%s", indent, n.Name)
}
