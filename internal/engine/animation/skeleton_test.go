package animation

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// chainSkeleton builds root -> mid -> tip with offsets that invert the bind
// pose, so the bind pose skins to identity.
func chainSkeleton(t *testing.T) *Skeleton {
	t.Helper()

	binds := []math.Mat4{
		math.Compose(math.Vec3{X: 0, Y: 1, Z: 0}, math.QuatIdentity(), math.Vec3One()),
		math.Compose(math.Vec3{X: 0, Y: 2, Z: 0}, math.QuatFromAxisAngle(math.Vec3{Z: 1}, 0.5), math.Vec3One()),
		math.Compose(math.Vec3{X: 1, Y: 0, Z: 0}, math.QuatIdentity(), math.Vec3{X: 2, Y: 2, Z: 2}),
	}

	s := NewSkeleton()
	global := math.Identity()
	parent := InvalidBoneIndex
	for i, name := range []string{"root", "mid", "tip"} {
		global = global.Mul(binds[i])
		idx, err := s.AddBone(name, parent, global.Inverse(), binds[i])
		require.NoError(t, err)
		require.Equal(t, i, idx)
		parent = idx
	}
	return s
}

func TestAddBoneValidation(t *testing.T) {
	t.Run("EmptyName", func(t *testing.T) {
		s := NewSkeleton()
		_, err := s.AddBone("", InvalidBoneIndex, math.Identity(), math.Identity())
		require.ErrorIs(t, err, ErrEmptyBoneName)
	})

	t.Run("ParentMustPrecede", func(t *testing.T) {
		s := NewSkeleton()
		_, err := s.AddBone("root", 0, math.Identity(), math.Identity())
		require.ErrorIs(t, err, ErrBoneParentOrder)

		_, err = s.AddBone("root", InvalidBoneIndex, math.Identity(), math.Identity())
		require.NoError(t, err)
		_, err = s.AddBone("child", 3, math.Identity(), math.Identity())
		require.ErrorIs(t, err, ErrBoneParentOrder)
		_, err = s.AddBone("child", -7, math.Identity(), math.Identity())
		require.ErrorIs(t, err, ErrBoneParentOrder)
		require.Equal(t, 1, s.BoneCount())
	})

	t.Run("Duplicate", func(t *testing.T) {
		s := NewSkeleton()
		_, err := s.AddBone("root", InvalidBoneIndex, math.Identity(), math.Identity())
		require.NoError(t, err)
		_, err = s.AddBone("root", 0, math.Identity(), math.Identity())
		require.ErrorIs(t, err, ErrDuplicateBone)
	})

	t.Run("TooMany", func(t *testing.T) {
		s := NewSkeleton()
		for i := 0; i < MaxBones; i++ {
			_, err := s.AddBone(fmt.Sprintf("b%d", i), i-1, math.Identity(), math.Identity())
			require.NoError(t, err)
		}
		_, err := s.AddBone("overflow", 0, math.Identity(), math.Identity())
		require.ErrorIs(t, err, ErrTooManyBones)
		require.Equal(t, MaxBones, s.BoneCount())
	})
}

func TestSkeletonLookup(t *testing.T) {
	s := chainSkeleton(t)

	assert.Equal(t, 1, s.BoneIndex("mid"))
	assert.Equal(t, InvalidBoneIndex, s.BoneIndex("missing"))
	assert.Nil(t, s.BoneByName("missing"))
	assert.Nil(t, s.Bone(-1))
	assert.Nil(t, s.Bone(3))
	require.NotNil(t, s.BoneByName("tip"))
	assert.Equal(t, 1, s.BoneByName("tip").ParentIndex)
	assert.Equal(t, math.Identity(), s.GlobalInverseTransform())
}

func TestComputeBoneMatricesHierarchy(t *testing.T) {
	s := chainSkeleton(t)

	locals := []math.Mat4{
		math.Compose(math.Vec3{X: 1, Y: 0, Z: 0}, math.QuatFromAxisAngle(math.Vec3{Z: 1}, 0.3), math.Vec3One()),
		math.Compose(math.Vec3{X: 0, Y: 2, Z: 0}, math.QuatFromAxisAngle(math.Vec3{X: 1}, -0.7), math.Vec3{X: 1, Y: 2, Z: 1}),
		math.Compose(math.Vec3{X: 0, Y: 0, Z: 3}, math.QuatFromAxisAngle(math.Vec3{Y: 1}, 1.1), math.Vec3One()),
	}

	out := s.ComputeBoneMatrices(locals, nil)
	require.Len(t, out, 3)

	globalTip := locals[0].Mul(locals[1]).Mul(locals[2])
	require.Equal(t, globalTip.Mul(s.Bone(2).OffsetMatrix), out[2])
	require.Equal(t, locals[0].Mul(s.Bone(0).OffsetMatrix), out[0])
}

func TestComputeBindPoseMatrices(t *testing.T) {
	s := chainSkeleton(t)

	first := s.ComputeBindPoseMatrices(nil)
	second := s.ComputeBindPoseMatrices(nil)
	require.Equal(t, first, second)

	for i, m := range first {
		assert.True(t, m.ApproxEqual(math.Identity(), 1e-5), "bone %d: %v", i, m)
	}
}

func TestShortLocalsFallBackToBindPose(t *testing.T) {
	s := chainSkeleton(t)

	bind := s.ComputeBindPoseMatrices(nil)
	out := s.ComputeBoneMatrices([]math.Mat4{s.Bone(0).LocalBindPose}, nil)
	require.Equal(t, bind, out)
}

func TestComputeReusesOutput(t *testing.T) {
	s := chainSkeleton(t)

	buf := make([]math.Mat4, 8)
	out := s.ComputeBindPoseMatrices(buf)
	require.Len(t, out, 3)
	assert.Same(t, &buf[0], &out[0])
}

func TestComputeWithInverseTranspose(t *testing.T) {
	s := chainSkeleton(t)

	locals := []math.Mat4{
		math.Translate(1, 2, 3),
		math.Scale(2, 1, 1),
		math.RotateY(0.4),
	}
	finals := s.ComputeBoneMatrices(locals, nil)
	pairs := s.ComputeBoneMatricesWithInverseTranspose(locals, nil)

	require.Len(t, pairs, 3)
	for i := range pairs {
		assert.Equal(t, finals[i], pairs[i].Skinning)
		assert.Equal(t, finals[i].InverseTranspose(), pairs[i].InverseTranspose)
	}
}
