package animation

import (
	"sort"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// DefaultTicksPerSecond is used when a clip does not specify a tick rate.
const DefaultTicksPerSecond = 25

// keyTimeEpsilon is the smallest key spacing that is interpolated; closer
// keys snap to the earlier one.
const keyTimeEpsilon = 1e-4

// Keyframe is a single timed sample on a track. Time is in clip ticks.
type Keyframe[T any] struct {
	Time  float32
	Value T
}

// BoneAnimation holds independent position, rotation and scale tracks for
// one bone. Each track must be sorted by time.
type BoneAnimation struct {
	BoneName     string
	PositionKeys []Keyframe[math.Vec3]
	RotationKeys []Keyframe[math.Quat]
	ScaleKeys    []Keyframe[math.Vec3]
}

// InterpolatePosition samples the position track. An empty track yields the
// origin.
func (b *BoneAnimation) InterpolatePosition(time float32) math.Vec3 {
	return interpolate(b.PositionKeys, time, math.Vec3{}, math.Vec3.Lerp)
}

// InterpolateRotation samples the rotation track with shortest-arc slerp.
// An empty track yields the identity rotation.
func (b *BoneAnimation) InterpolateRotation(time float32) math.Quat {
	return interpolate(b.RotationKeys, time, math.QuatIdentity(), math.Quat.Slerp)
}

// InterpolateScale samples the scale track. An empty track yields unit
// scale.
func (b *BoneAnimation) InterpolateScale(time float32) math.Vec3 {
	return interpolate(b.ScaleKeys, time, math.Vec3One(), math.Vec3.Lerp)
}

// LocalTransform returns the bone's local transform at time: scale first,
// then rotation, then translation.
func (b *BoneAnimation) LocalTransform(time float32) math.Mat4 {
	return math.Compose(
		b.InterpolatePosition(time),
		b.InterpolateRotation(time),
		b.InterpolateScale(time),
	)
}

// SortKeys orders every track by time. Importers call this; sampling
// assumes sorted tracks and never sorts on its own.
func (b *BoneAnimation) SortKeys() {
	sortKeys(b.PositionKeys)
	sortKeys(b.RotationKeys)
	sortKeys(b.ScaleKeys)
}

// IsAnimated reports whether any track changes over time.
func (b *BoneAnimation) IsAnimated() bool {
	return len(b.PositionKeys) > 1 || len(b.RotationKeys) > 1 || len(b.ScaleKeys) > 1
}

// interpolate implements the shared track lookup: empty -> fallback, single
// key -> constant, otherwise the first pair with time < keys[i+1].Time,
// clamped to the last pair. Times outside the track hold the end keys.
func interpolate[T any](keys []Keyframe[T], time float32, fallback T, mix func(a, b T, t float32) T) T {
	switch len(keys) {
	case 0:
		return fallback
	case 1:
		return keys[0].Value
	}

	i := findKeyIndex(keys, time)
	k0, k1 := keys[i], keys[i+1]
	switch t := blendFactor(time, k0.Time, k1.Time); {
	case t <= 0:
		return k0.Value
	case t >= 1:
		return k1.Value
	default:
		return mix(k0.Value, k1.Value, t)
	}
}

func findKeyIndex[T any](keys []Keyframe[T], time float32) int {
	for i := 0; i < len(keys)-1; i++ {
		if time < keys[i+1].Time {
			return i
		}
	}
	return len(keys) - 2
}

func blendFactor(time, t0, t1 float32) float32 {
	delta := t1 - t0
	if delta < keyTimeEpsilon {
		return 0
	}
	return (time - t0) / delta
}

func sortKeys[T any](keys []Keyframe[T]) {
	sort.SliceStable(keys, func(i, j int) bool { return keys[i].Time < keys[j].Time })
}

// AnimationClip is a named set of bone tracks. Duration is in ticks and
// TicksPerSecond converts playback seconds into ticks. Clips are immutable
// once loaded and may be sampled concurrently.
type AnimationClip struct {
	name           string
	duration       float32
	ticksPerSecond float32

	boneAnimations []BoneAnimation
	boneAnimIndex  map[string]int
}

// NewAnimationClip creates an empty clip. A non-positive ticksPerSecond
// selects DefaultTicksPerSecond.
func NewAnimationClip(name string, duration, ticksPerSecond float32) *AnimationClip {
	if ticksPerSecond <= 0 {
		ticksPerSecond = DefaultTicksPerSecond
	}
	return &AnimationClip{
		name:           name,
		duration:       duration,
		ticksPerSecond: ticksPerSecond,
		boneAnimIndex:  make(map[string]int),
	}
}

// Name returns the clip name.
func (c *AnimationClip) Name() string { return c.name }

// Duration returns the clip length in ticks.
func (c *AnimationClip) Duration() float32 { return c.duration }

// TicksPerSecond returns the tick rate.
func (c *AnimationClip) TicksPerSecond() float32 { return c.ticksPerSecond }

// DurationSeconds returns the clip length in seconds at speed 1.
func (c *AnimationClip) DurationSeconds() float32 {
	return c.duration / c.ticksPerSecond
}

// AddBoneAnimation registers a bone track set. A second set for the same
// bone replaces the first.
func (c *AnimationClip) AddBoneAnimation(anim BoneAnimation) {
	if i, ok := c.boneAnimIndex[anim.BoneName]; ok {
		c.boneAnimations[i] = anim
		return
	}
	c.boneAnimIndex[anim.BoneName] = len(c.boneAnimations)
	c.boneAnimations = append(c.boneAnimations, anim)
}

// BoneAnimation returns the tracks for the named bone, or nil.
func (c *AnimationClip) BoneAnimation(boneName string) *BoneAnimation {
	if i, ok := c.boneAnimIndex[boneName]; ok {
		return &c.boneAnimations[i]
	}
	return nil
}

// BoneAnimations returns every track set in insertion order.
func (c *AnimationClip) BoneAnimations() []BoneAnimation {
	return c.boneAnimations
}

// HasAnimation reports whether any bone actually moves.
// Clips whose tracks hold a single key are static poses.
func (c *AnimationClip) HasAnimation() bool {
	if c.duration <= 0 {
		return false
	}
	for i := range c.boneAnimations {
		if c.boneAnimations[i].IsAnimated() {
			return true
		}
	}
	return false
}

// Sample evaluates every skeleton bone at time (ticks) and writes local
// transforms into out, indexed by bone. Bones without tracks keep their bind
// pose. out is reused when it has enough capacity.
func (c *AnimationClip) Sample(time float32, skeleton *Skeleton, out []math.Mat4) []math.Mat4 {
	if skeleton == nil {
		return out[:0]
	}

	bones := skeleton.Bones()
	out = resizeMatrices(out, len(bones))
	for i := range bones {
		if anim := c.BoneAnimation(bones[i].Name); anim != nil {
			out[i] = anim.LocalTransform(time)
		} else {
			out[i] = bones[i].LocalBindPose
		}
	}
	return out
}
