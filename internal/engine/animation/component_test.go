package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

func rootSkeleton(t *testing.T) *Skeleton {
	t.Helper()
	s := NewSkeleton()
	_, err := s.AddBone("root", InvalidBoneIndex, math.Identity(), math.Identity())
	require.NoError(t, err)
	return s
}

func TestComponentInitialize(t *testing.T) {
	c := NewAnimatorComponent()
	assert.True(t, c.Enabled())
	assert.False(t, c.Initialized())

	c.Initialize(rootSkeleton(t), []*AnimationClip{
		slideClip("walk"),
		poseClip("", math.Vec3{Y: 1}),
		nil,
	})

	require.True(t, c.Initialized())
	assert.Equal(t, 1, c.BoneCount())
	assert.Equal(t, []string{"Animation_1", "walk"}, c.Animator().StateNames())
	assert.Len(t, c.BoneMatrices(), 1)
}

func TestComponentInitializeWithoutSkeleton(t *testing.T) {
	c := NewAnimatorComponent()
	c.Initialize(nil, []*AnimationClip{slideClip("walk")})

	assert.False(t, c.Initialized())
	c.Play("walk", true)
	assert.False(t, c.IsPlaying())
}

func TestComponentAttach(t *testing.T) {
	c := NewAnimatorComponent()
	c.Attach(NewAnimator())
	assert.False(t, c.Initialized(), "animator without skeleton")
	c.Attach(nil)
	assert.False(t, c.Initialized())

	a := NewAnimator()
	a.SetSkeleton(rootSkeleton(t))
	a.AddClip("walk", slideClip("walk"))
	a.AddState("stride", "walk")

	c.Attach(a)
	require.True(t, c.Initialized())
	assert.Same(t, a, c.Animator())
	assert.Equal(t, []string{"stride"}, c.Animator().StateNames())
}

func TestComponentPlay(t *testing.T) {
	c := NewAnimatorComponent()
	c.Initialize(rootSkeleton(t), []*AnimationClip{slideClip("walk")})

	c.Play("walk", false)
	require.True(t, c.IsPlaying())
	assert.Equal(t, WrapOnce, c.Animator().State("walk").WrapMode())

	c.UpdateAnimation(2)
	assert.True(t, c.Animator().State("walk").IsFinished())
	assert.InDelta(t, 10, c.BoneMatrices()[0].Translation().X, 1e-5)

	c.Play("walk", true)
	assert.Equal(t, WrapLoop, c.Animator().State("walk").WrapMode())
	assert.False(t, c.Animator().State("walk").IsFinished())

	c.Stop()
	assert.False(t, c.IsPlaying())
}

func TestComponentDisabled(t *testing.T) {
	c := NewAnimatorComponent()
	c.Initialize(rootSkeleton(t), []*AnimationClip{slideClip("walk")})
	c.Play("walk", true)

	c.SetEnabled(false)
	c.UpdateAnimation(0.5)
	assert.Equal(t, float32(0), c.Animator().NormalizedTime())

	c.SetEnabled(true)
	c.UpdateAnimation(0.5)
	assert.InDelta(t, 0.5, c.Animator().NormalizedTime(), 1e-6)
	assert.Len(t, c.BoneMatrixPairs(), 1)
}
