package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tanema/gween/ease"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// poseClip holds the root bone at a fixed position.
func poseClip(name string, pos math.Vec3) *AnimationClip {
	c := NewAnimationClip(name, 10, 10)
	c.AddBoneAnimation(BoneAnimation{
		BoneName:     "root",
		PositionKeys: []Keyframe[math.Vec3]{{Time: 0, Value: pos}},
	})
	return c
}

// slideClip moves the root bone from the origin to (10,0,0) over one second.
func slideClip(name string) *AnimationClip {
	c := NewAnimationClip(name, 10, 10)
	c.AddBoneAnimation(BoneAnimation{
		BoneName: "root",
		PositionKeys: []Keyframe[math.Vec3]{
			{Time: 0, Value: math.Vec3{}},
			{Time: 10, Value: math.Vec3{X: 10}},
		},
	})
	return c
}

func newTestAnimator(t *testing.T) *Animator {
	t.Helper()

	s := NewSkeleton()
	_, err := s.AddBone("root", InvalidBoneIndex, math.Identity(), math.Identity())
	require.NoError(t, err)

	a := NewAnimator()
	a.SetSkeleton(s)
	a.AddClip("origin", poseClip("origin", math.Vec3{}))
	a.AddClip("raised", poseClip("raised", math.Vec3{Y: 4}))
	a.AddClip("slide", slideClip("slide"))
	require.NotNil(t, a.AddState("origin", "origin"))
	require.NotNil(t, a.AddState("raised", "raised"))
	require.NotNil(t, a.AddState("slide", "slide"))
	return a
}

func rootPosition(a *Animator) math.Vec3 {
	return a.BoneMatrices()[0].Translation()
}

func TestSetSkeletonStartsAtBindPose(t *testing.T) {
	s := NewSkeleton()
	_, err := s.AddBone("root", InvalidBoneIndex, math.Identity(), math.Translate(1, 2, 3))
	require.NoError(t, err)

	a := NewAnimator()
	a.SetSkeleton(s)

	require.Len(t, a.BoneMatrices(), 1)
	assert.Equal(t, math.Translate(1, 2, 3), a.BoneMatrices()[0])
	assert.Equal(t, PhaseStopped, a.Phase())

	a.SetSkeleton(nil)
	assert.Empty(t, a.BoneMatrices())
	assert.Equal(t, 0, a.BoneCount())
}

func TestPlayCutsImmediately(t *testing.T) {
	a := newTestAnimator(t)

	a.Play("raised", 0)

	assert.True(t, a.IsPlaying())
	assert.False(t, a.IsTransitioning())
	assert.Equal(t, "raised", a.CurrentState().Name())
	assert.InDelta(t, 4, rootPosition(a).Y, 1e-6)
}

func TestUpdateAdvancesPlayback(t *testing.T) {
	a := newTestAnimator(t)
	a.Play("slide", 0)

	a.Update(0.25)

	assert.InDelta(t, 0.25, a.NormalizedTime(), 1e-6)
	assert.InDelta(t, 2.5, a.CurrentTime(), 1e-5)
	assert.InDelta(t, 2.5, rootPosition(a).X, 1e-5)
}

func TestCrossFadeCompletesAtDuration(t *testing.T) {
	a := newTestAnimator(t)
	a.Play("origin", 0)
	a.CrossFade("raised", 0.5)

	require.True(t, a.IsTransitioning())
	assert.Equal(t, PhaseTransitioning, a.Phase())
	assert.Equal(t, "raised", a.NextState().Name())

	a.Update(0.25)
	assert.True(t, a.IsTransitioning())
	assert.InDelta(t, 0.5, a.BlendFactor(), 1e-6)
	assert.InDelta(t, 2, rootPosition(a).Y, 1e-5)

	a.Update(0.25)
	assert.False(t, a.IsTransitioning())
	assert.Nil(t, a.NextState())
	assert.Equal(t, "raised", a.CurrentState().Name())
	assert.Equal(t, float32(0), a.TransitionTime())
	assert.InDelta(t, 4, rootPosition(a).Y, 1e-6)
}

func TestPlayWithDurationCrossFades(t *testing.T) {
	a := newTestAnimator(t)

	// Nothing is current yet, so this is a cut.
	a.Play("origin", 0.3)
	assert.False(t, a.IsTransitioning())

	a.Play("raised", 0.3)
	assert.True(t, a.IsTransitioning())
	assert.Equal(t, "origin", a.CurrentState().Name())
	assert.Equal(t, float32(0.3), a.TransitionDuration())
}

func TestCrossFadeFromNothingBlendsBindPose(t *testing.T) {
	a := newTestAnimator(t)

	a.CrossFade("raised", 1)
	assert.True(t, a.IsPlaying())
	assert.Nil(t, a.CurrentState())

	a.Update(0.5)
	assert.InDelta(t, 2, rootPosition(a).Y, 1e-5)

	a.Update(0.5)
	assert.Equal(t, "raised", a.CurrentState().Name())
	assert.InDelta(t, 4, rootPosition(a).Y, 1e-6)
}

func TestZeroDurationCrossFadeCompletesOnNextUpdate(t *testing.T) {
	a := newTestAnimator(t)
	a.Play("origin", 0)
	a.CrossFade("raised", 0)

	assert.Equal(t, float32(1), a.BlendFactor())
	a.Update(0.01)
	assert.False(t, a.IsTransitioning())
	assert.Equal(t, "raised", a.CurrentState().Name())
}

func TestBlendCurve(t *testing.T) {
	a := newTestAnimator(t)
	a.SetBlendCurve(ease.InQuad)
	a.Play("origin", 0)
	a.CrossFade("raised", 1)

	a.Update(0.5)
	assert.InDelta(t, 1, rootPosition(a).Y, 1e-5)

	a.SetBlendCurve(nil)
	a.Update(0.25)
	assert.InDelta(t, 3, rootPosition(a).Y, 1e-5)
}

func TestUnknownNamesAreIgnored(t *testing.T) {
	a := newTestAnimator(t)
	a.Play("origin", 0)
	a.CrossFade("raised", 1)
	a.SetFloat("speed", 2)

	current, next := a.CurrentState(), a.NextState()
	before := append([]math.Mat4(nil), a.BoneMatrices()...)

	a.Play("missing", 0)
	a.CrossFade("missing", 0.5)
	a.AddClip("nil", nil)
	assert.Nil(t, a.AddState("ghost", "missing"))
	assert.Nil(t, a.State("ghost"))
	assert.Nil(t, a.Clip("nil"))

	assert.Same(t, current, a.CurrentState())
	assert.Same(t, next, a.NextState())
	assert.True(t, a.IsTransitioning())
	assert.Equal(t, float32(2), a.Float("speed"))
	assert.Equal(t, before, a.BoneMatrices())
}

func TestCrossFadeToCurrentIsIgnored(t *testing.T) {
	a := newTestAnimator(t)
	a.Play("slide", 0)
	a.Update(0.5)

	a.CrossFade("slide", 0.2)
	assert.False(t, a.IsTransitioning())
	assert.InDelta(t, 0.5, a.NormalizedTime(), 1e-6)
}

func TestAutomaticTransition(t *testing.T) {
	a := newTestAnimator(t)
	a.State("origin").AddTransition(AnimationTransition{
		TargetStateName: "raised",
		Duration:        0.2,
		Condition:       ParamCondition{Name: "speed", Kind: ParamFloat, Op: OpGreater, Value: 0.5},
	})
	a.State("origin").AddTransition(AnimationTransition{
		TargetStateName: "slide",
		Condition:       ParamCondition{Name: "speed", Kind: ParamFloat, Op: OpGreater, Value: 0.1},
	})

	a.Play("origin", 0)
	a.Update(0.1)
	assert.False(t, a.IsTransitioning())

	a.SetFloat("speed", 1)
	a.Update(0.1)
	require.True(t, a.IsTransitioning())
	assert.Equal(t, "raised", a.NextState().Name())

	a.Update(0.2)
	assert.False(t, a.IsTransitioning())
	assert.Equal(t, "raised", a.CurrentState().Name())
}

func TestStop(t *testing.T) {
	a := newTestAnimator(t)
	a.Play("slide", 0)
	a.Update(0.5)
	pose := append([]math.Mat4(nil), a.BoneMatrices()...)

	a.Stop()
	assert.False(t, a.IsPlaying())
	assert.Nil(t, a.CurrentState())
	assert.Equal(t, PhaseStopped, a.Phase())

	a.Update(0.5)
	assert.Equal(t, pose, a.BoneMatrices())
}

func TestUpdateWithoutSkeleton(t *testing.T) {
	a := NewAnimator()
	a.AddClip("raised", poseClip("raised", math.Vec3{Y: 4}))
	a.AddState("raised", "raised")
	a.Play("raised", 0)

	a.Update(0.1)
	assert.Empty(t, a.BoneMatrices())
	assert.Equal(t, PoseChecksum(nil), a.PoseChecksum())
}

func TestBoneMatrixPairs(t *testing.T) {
	a := newTestAnimator(t)
	a.Play("raised", 0)

	pairs := a.BoneMatrixPairs()
	require.Len(t, pairs, 1)
	assert.Equal(t, a.BoneMatrices()[0], pairs[0].Skinning)
	assert.Equal(t, a.BoneMatrices()[0].InverseTranspose(), pairs[0].InverseTranspose)

	a.Play("origin", 0)
	assert.Equal(t, a.BoneMatrices()[0], a.BoneMatrixPairs()[0].Skinning)
}

func TestParameters(t *testing.T) {
	a := NewAnimator()
	a.SetFloat("f", 1.5)
	a.SetInt("i", -3)
	a.SetBool("b", true)

	assert.Equal(t, float32(1.5), a.Float("f"))
	assert.Equal(t, int32(-3), a.Int("i"))
	assert.True(t, a.Bool("b"))
	assert.Equal(t, float32(0), a.Float("unset"))
	assert.Equal(t, int32(-3), a.Params().Int("i"))
}

func TestStateNamesSorted(t *testing.T) {
	a := newTestAnimator(t)
	assert.Equal(t, []string{"origin", "raised", "slide"}, a.StateNames())
}

func TestPhaseString(t *testing.T) {
	assert.Equal(t, "stopped", PhaseStopped.String())
	assert.Equal(t, "playing", PhasePlaying.String())
	assert.Equal(t, "transitioning", PhaseTransitioning.String())
	assert.Equal(t, "unknown", Phase(9).String())
}
