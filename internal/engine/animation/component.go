package animation

import (
	"fmt"

	"github.com/Faultbox/midgard-anim/pkg/math"
)

// AnimatorComponent attaches an Animator to an entity and exposes the
// lifecycle hooks an entity framework calls into.
type AnimatorComponent struct {
	animator    *Animator
	initialized bool
	enabled     bool
}

// NewAnimatorComponent creates an enabled, uninitialized component.
func NewAnimatorComponent() *AnimatorComponent {
	return &AnimatorComponent{
		animator: NewAnimator(),
		enabled:  true,
	}
}

// Initialize binds the skeleton and registers every clip together with a
// state of the same name. Unnamed clips are registered as Animation_<i>.
// A nil skeleton leaves the component uninitialized.
func (c *AnimatorComponent) Initialize(skeleton *Skeleton, clips []*AnimationClip) {
	if skeleton == nil {
		return
	}

	c.animator.SetSkeleton(skeleton)
	for i, clip := range clips {
		if clip == nil {
			continue
		}
		name := clip.Name()
		if name == "" {
			name = fmt.Sprintf("Animation_%d", i)
		}
		c.animator.AddClip(name, clip)
		c.animator.AddState(name, name)
	}

	c.initialized = true
}

// Attach replaces the component's animator with one that is already set
// up. An animator without a skeleton leaves the component uninitialized.
func (c *AnimatorComponent) Attach(animator *Animator) {
	if animator == nil || animator.Skeleton() == nil {
		return
	}
	c.animator = animator
	c.initialized = true
}

// Initialized reports whether Initialize or Attach succeeded.
func (c *AnimatorComponent) Initialized() bool { return c.initialized }

// Play cuts to the named animation, looping or playing it once.
func (c *AnimatorComponent) Play(name string, loop bool) {
	if !c.initialized {
		return
	}

	if state := c.animator.State(name); state != nil {
		if loop {
			state.SetWrapMode(WrapLoop)
		} else {
			state.SetWrapMode(WrapOnce)
		}
	}
	c.animator.Play(name, 0)
}

// Stop stops playback.
func (c *AnimatorComponent) Stop() { c.animator.Stop() }

// IsPlaying reports whether the animator is playing.
func (c *AnimatorComponent) IsPlaying() bool { return c.animator.IsPlaying() }

// SetEnabled toggles per-frame updates.
func (c *AnimatorComponent) SetEnabled(enabled bool) { c.enabled = enabled }

// Enabled reports whether per-frame updates run.
func (c *AnimatorComponent) Enabled() bool { return c.enabled }

// Animator exposes the underlying animator for state machine setup.
func (c *AnimatorComponent) Animator() *Animator { return c.animator }

// BoneCount returns the skeleton's bone count.
func (c *AnimatorComponent) BoneCount() int { return c.animator.BoneCount() }

// BoneMatrices returns the skinning matrices for rendering.
func (c *AnimatorComponent) BoneMatrices() []math.Mat4 { return c.animator.BoneMatrices() }

// BoneMatrixPairs returns skinning matrices with their inverse-transposes.
func (c *AnimatorComponent) BoneMatrixPairs() []BoneMatrixPair {
	return c.animator.BoneMatrixPairs()
}

// UpdateAnimation advances the animator. It is a no-op until initialized
// and while disabled.
func (c *AnimatorComponent) UpdateAnimation(deltaTime float32) {
	if !c.initialized || !c.enabled {
		return
	}
	c.animator.Update(deltaTime)
}
