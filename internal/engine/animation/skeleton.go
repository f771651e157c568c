// Package animation implements skeletal animation: keyframe clip sampling,
// bone hierarchy composition, playback states and cross-faded state machines.
//
// Matrices use pkg/math conventions (column-major, column vectors). A child's
// global transform is parentGlobal.Mul(local) and a skinning matrix is
// global.Mul(offset), so the offset is applied to a vertex first, then the
// bone's local transform, then its ancestors outward to the root.
package animation

import (
	"errors"
	"fmt"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// MaxBones is the largest skeleton the runtime accepts.
const MaxBones = 256

// InvalidBoneIndex marks a root bone's parent and failed lookups.
const InvalidBoneIndex = -1

// Skeleton construction errors.
var (
	ErrBoneParentOrder = errors.New("bone parent must precede the bone")
	ErrDuplicateBone   = errors.New("duplicate bone name")
	ErrTooManyBones    = errors.New("skeleton exceeds MaxBones")
	ErrEmptyBoneName   = errors.New("empty bone name")
)

// Bone is a single joint of a skeleton.
type Bone struct {
	Name          string
	ParentIndex   int       // InvalidBoneIndex for roots
	OffsetMatrix  math.Mat4 // mesh space -> bone rest space (inverse bind pose)
	LocalBindPose math.Mat4 // rest transform relative to the parent
}

// BoneMatrixPair holds a skinning matrix and its inverse-transpose for
// transforming normals.
type BoneMatrixPair struct {
	Skinning         math.Mat4
	InverseTranspose math.Mat4
}

// Skeleton is a bone hierarchy stored as a flat array where every parent
// precedes its children. It is built once and then shared read-only by any
// number of animators.
type Skeleton struct {
	bones                  []Bone
	boneIndex              map[string]int
	globalInverseTransform math.Mat4
}

// NewSkeleton creates an empty skeleton.
func NewSkeleton() *Skeleton {
	return &Skeleton{
		boneIndex:              make(map[string]int),
		globalInverseTransform: math.Identity(),
	}
}

// AddBone appends a bone and returns its index. parentIndex must be
// InvalidBoneIndex or refer to a bone that was added earlier.
func (s *Skeleton) AddBone(name string, parentIndex int, offset, localBindPose math.Mat4) (int, error) {
	index := len(s.bones)

	switch {
	case name == "":
		return InvalidBoneIndex, ErrEmptyBoneName
	case index >= MaxBones:
		return InvalidBoneIndex, fmt.Errorf("bone %q: %w", name, ErrTooManyBones)
	case parentIndex != InvalidBoneIndex && (parentIndex < 0 || parentIndex >= index):
		return InvalidBoneIndex, fmt.Errorf("bone %q (index %d, parent %d): %w", name, index, parentIndex, ErrBoneParentOrder)
	}
	if _, exists := s.boneIndex[name]; exists {
		return InvalidBoneIndex, fmt.Errorf("bone %q: %w", name, ErrDuplicateBone)
	}

	s.bones = append(s.bones, Bone{
		Name:          name,
		ParentIndex:   parentIndex,
		OffsetMatrix:  offset,
		LocalBindPose: localBindPose,
	})
	s.boneIndex[name] = index
	return index, nil
}

// SetGlobalInverseTransform stores the inverse of the scene root's world
// transform at bind time.
func (s *Skeleton) SetGlobalInverseTransform(m math.Mat4) {
	s.globalInverseTransform = m
}

// GlobalInverseTransform returns the inverse scene root transform.
func (s *Skeleton) GlobalInverseTransform() math.Mat4 {
	return s.globalInverseTransform
}

// BoneIndex returns the index of the named bone, or InvalidBoneIndex.
func (s *Skeleton) BoneIndex(name string) int {
	if index, ok := s.boneIndex[name]; ok {
		return index
	}
	return InvalidBoneIndex
}

// Bone returns the bone at index, or nil when out of range.
func (s *Skeleton) Bone(index int) *Bone {
	if index < 0 || index >= len(s.bones) {
		return nil
	}
	return &s.bones[index]
}

// BoneByName returns the named bone, or nil.
func (s *Skeleton) BoneByName(name string) *Bone {
	return s.Bone(s.BoneIndex(name))
}

// BoneCount returns the number of bones.
func (s *Skeleton) BoneCount() int {
	return len(s.bones)
}

// Bones returns the bone array. Callers must not modify it.
func (s *Skeleton) Bones() []Bone {
	return s.bones
}

// ComputeBoneMatrices composes local transforms (indexed by bone) into final
// skinning matrices in a single parent-before-child pass. out is reused when
// it has enough capacity. A locals slice shorter than the bone count falls
// back to the bind pose for the missing bones.
func (s *Skeleton) ComputeBoneMatrices(locals []math.Mat4, out []math.Mat4) []math.Mat4 {
	globals := make([]math.Mat4, len(s.bones))
	return s.computeInto(locals, globals, out)
}

// computeInto is ComputeBoneMatrices with a caller-owned globals buffer so
// animators sharing a skeleton never write to it.
func (s *Skeleton) computeInto(locals, globals, out []math.Mat4) []math.Mat4 {
	n := len(s.bones)
	out = resizeMatrices(out, n)
	globals = resizeMatrices(globals, n)

	for i := range s.bones {
		bone := &s.bones[i]

		local := bone.LocalBindPose
		if i < len(locals) {
			local = locals[i]
		}

		if bone.ParentIndex == InvalidBoneIndex {
			globals[i] = local
		} else {
			globals[i] = globals[bone.ParentIndex].Mul(local)
		}

		out[i] = globals[i].Mul(bone.OffsetMatrix)
	}
	return out
}

// ComputeBoneMatricesWithInverseTranspose is ComputeBoneMatrices that also
// derives the inverse-transpose of every skinning matrix.
func (s *Skeleton) ComputeBoneMatricesWithInverseTranspose(locals []math.Mat4, out []BoneMatrixPair) []BoneMatrixPair {
	finals := s.ComputeBoneMatrices(locals, nil)
	return pairsFrom(finals, out)
}

// ComputeBindPoseMatrices runs the pipeline with every bone at its bind
// pose. With offsets that invert the bind pose this yields identities.
func (s *Skeleton) ComputeBindPoseMatrices(out []math.Mat4) []math.Mat4 {
	return s.ComputeBoneMatrices(s.bindPoseLocals(nil), out)
}

// bindPoseLocals fills dst with every bone's local bind pose.
func (s *Skeleton) bindPoseLocals(dst []math.Mat4) []math.Mat4 {
	dst = resizeMatrices(dst, len(s.bones))
	for i := range s.bones {
		dst[i] = s.bones[i].LocalBindPose
	}
	return dst
}

// pairsFrom derives skinning/inverse-transpose pairs from final matrices.
func pairsFrom(finals []math.Mat4, out []BoneMatrixPair) []BoneMatrixPair {
	if cap(out) < len(finals) {
		out = make([]BoneMatrixPair, len(finals))
	}
	out = out[:len(finals)]
	for i, m := range finals {
		out[i] = BoneMatrixPair{Skinning: m, InverseTranspose: m.InverseTranspose()}
	}
	return out
}

func resizeMatrices(m []math.Mat4, n int) []math.Mat4 {
	if cap(m) < n {
		return make([]math.Mat4, n)
	}
	return m[:n]
}
