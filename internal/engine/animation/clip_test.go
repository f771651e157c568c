package animation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

func vkeys(pairs ...any) []Keyframe[math.Vec3] {
	keys := make([]Keyframe[math.Vec3], 0, len(pairs)/2)
	for i := 0; i < len(pairs); i += 2 {
		keys = append(keys, Keyframe[math.Vec3]{Time: float32(pairs[i].(float64)), Value: pairs[i+1].(math.Vec3)})
	}
	return keys
}

func TestInterpolateEmptyTracks(t *testing.T) {
	var b BoneAnimation

	assert.Equal(t, math.Vec3{}, b.InterpolatePosition(3))
	assert.Equal(t, math.QuatIdentity(), b.InterpolateRotation(3))
	assert.Equal(t, math.Vec3One(), b.InterpolateScale(3))
	assert.Equal(t, math.Identity(), b.LocalTransform(3))
}

func TestInterpolateSingleKey(t *testing.T) {
	v := math.Vec3{X: 1, Y: 2, Z: 3}
	b := BoneAnimation{PositionKeys: vkeys(4.0, v)}

	for _, time := range []float32{-10, 0, 4, 1000} {
		assert.Equal(t, v, b.InterpolatePosition(time), "time %v", time)
	}
}

func TestInterpolateBoundaries(t *testing.T) {
	first := math.Vec3{X: 0, Y: 0, Z: 0}
	mid := math.Vec3{X: 10, Y: 0, Z: 0}
	last := math.Vec3{X: 10, Y: 20, Z: 0}
	b := BoneAnimation{PositionKeys: vkeys(2.0, first, 4.0, mid, 6.0, last)}

	assert.Equal(t, first, b.InterpolatePosition(-5))
	assert.Equal(t, first, b.InterpolatePosition(2))
	assert.Equal(t, last, b.InterpolatePosition(6))
	assert.Equal(t, last, b.InterpolatePosition(60))

	p := b.InterpolatePosition(3)
	assert.InDelta(t, 5, p.X, 1e-5)

	p = b.InterpolatePosition(5)
	assert.InDelta(t, 10, p.X, 1e-5)
	assert.InDelta(t, 10, p.Y, 1e-5)
}

func TestInterpolateCoincidentKeys(t *testing.T) {
	a := math.Vec3{X: 1}
	b := BoneAnimation{PositionKeys: vkeys(1.0, a, 1.00001, math.Vec3{X: 9})}

	p := b.InterpolatePosition(1.000005)
	assert.Equal(t, a, p)
}

func TestInterpolateRotationStaysNormalized(t *testing.T) {
	b := BoneAnimation{RotationKeys: []Keyframe[math.Quat]{
		{Time: 0, Value: math.QuatIdentity()},
		{Time: 1, Value: math.QuatFromAxisAngle(math.Vec3{Y: 1}, 2.5)},
	}}

	for _, time := range []float32{0.1, 0.33, 0.5, 0.9} {
		assert.InDelta(t, 1, b.InterpolateRotation(time).Length(), 1e-5)
	}
}

func TestSortKeys(t *testing.T) {
	b := BoneAnimation{PositionKeys: vkeys(3.0, math.Vec3{X: 3}, 1.0, math.Vec3{X: 1}, 2.0, math.Vec3{X: 2})}
	b.SortKeys()

	for i, k := range b.PositionKeys {
		assert.Equal(t, float32(i+1), k.Time)
	}
	assert.True(t, b.IsAnimated())
}

func TestNewAnimationClipDefaults(t *testing.T) {
	c := NewAnimationClip("idle", 50, 0)
	assert.Equal(t, "idle", c.Name())
	assert.Equal(t, float32(DefaultTicksPerSecond), c.TicksPerSecond())
	assert.InDelta(t, 2, c.DurationSeconds(), 1e-6)
	assert.False(t, c.HasAnimation())
}

func TestClipBoneAnimations(t *testing.T) {
	c := NewAnimationClip("walk", 10, 10)
	c.AddBoneAnimation(BoneAnimation{BoneName: "root", PositionKeys: vkeys(0.0, math.Vec3{X: 1})})
	c.AddBoneAnimation(BoneAnimation{BoneName: "tip"})
	c.AddBoneAnimation(BoneAnimation{BoneName: "root", PositionKeys: vkeys(0.0, math.Vec3{X: 2}, 5.0, math.Vec3{X: 3})})

	require.Len(t, c.BoneAnimations(), 2)
	require.NotNil(t, c.BoneAnimation("root"))
	assert.Len(t, c.BoneAnimation("root").PositionKeys, 2)
	assert.Nil(t, c.BoneAnimation("missing"))
	assert.True(t, c.HasAnimation())
}

func TestClipSample(t *testing.T) {
	s := chainSkeleton(t)

	c := NewAnimationClip("wave", 10, 10)
	c.AddBoneAnimation(BoneAnimation{BoneName: "mid", PositionKeys: vkeys(0.0, math.Vec3{}, 10.0, math.Vec3{X: 10})})
	c.AddBoneAnimation(BoneAnimation{BoneName: "not-in-skeleton", PositionKeys: vkeys(0.0, math.Vec3{Y: 1})})

	out := c.Sample(5, s, nil)
	require.Len(t, out, 3)
	assert.Equal(t, s.Bone(0).LocalBindPose, out[0])
	assert.Equal(t, s.Bone(2).LocalBindPose, out[2])
	assert.InDelta(t, 5, out[1].Translation().X, 1e-5)

	assert.Empty(t, c.Sample(5, nil, out))
}
