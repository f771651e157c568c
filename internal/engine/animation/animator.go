package animation

import (
	"sort"

	"github.com/tanema/gween/ease"
	"go.uber.org/zap"

	"github.com/Faultbox/midgard-anim/internal/logger"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// Phase is the animator's playback state.
type Phase int

const (
	PhaseStopped Phase = iota
	PhasePlaying
	PhaseTransitioning
)

// String returns a human-readable phase name.
func (p Phase) String() string {
	switch p {
	case PhaseStopped:
		return "stopped"
	case PhasePlaying:
		return "playing"
	case PhaseTransitioning:
		return "transitioning"
	default:
		return "unknown"
	}
}

// Animator plays named states against a skeleton and produces per-bone
// skinning matrices once per frame. Commands naming unknown states or clips
// are ignored.
//
// An Animator is not safe for concurrent use. The skeleton and clips it
// references may be shared with other animators.
type Animator struct {
	skeleton *Skeleton
	clips    map[string]*AnimationClip
	states   map[string]*AnimationState

	current *AnimationState
	next    *AnimationState

	transitionDuration float32
	transitionTime     float32
	transitioning      bool
	playing            bool

	// Reused every frame; sized on SetSkeleton.
	currentLocals []math.Mat4
	nextLocals    []math.Mat4
	blendedLocals []math.Mat4
	globals       []math.Mat4
	finals        []math.Mat4
	pairs         []BoneMatrixPair
	pairsDirty    bool

	params     parameters
	blendCurve ease.TweenFunc

	log *zap.Logger
}

// NewAnimator creates a stopped animator with no skeleton.
func NewAnimator() *Animator {
	return &Animator{
		clips:      make(map[string]*AnimationClip),
		states:     make(map[string]*AnimationState),
		params:     newParameters(),
		blendCurve: ease.Linear,
		log:        logger.Named("animation"),
	}
}

// SetLogger replaces the animator's logger. nil installs a no-op logger.
func (a *Animator) SetLogger(l *zap.Logger) {
	if l == nil {
		l = zap.NewNop()
	}
	a.log = l
}

// SetBlendCurve shapes the weight used to mix poses during a cross-fade.
// The curve is called as curve(progress, 0, 1, 1). Completion is still
// decided on linear progress. nil restores ease.Linear.
func (a *Animator) SetBlendCurve(curve ease.TweenFunc) {
	if curve == nil {
		curve = ease.Linear
	}
	a.blendCurve = curve
}

// SetSkeleton binds a skeleton, resizes the pose buffers and initializes the
// output to the bind pose so the first rendered frame is valid. A nil
// skeleton disables updates.
func (a *Animator) SetSkeleton(skeleton *Skeleton) {
	a.skeleton = skeleton
	if skeleton == nil {
		a.currentLocals = a.currentLocals[:0]
		a.nextLocals = a.nextLocals[:0]
		a.blendedLocals = a.blendedLocals[:0]
		a.finals = a.finals[:0]
		a.pairs = a.pairs[:0]
		return
	}

	n := skeleton.BoneCount()
	a.currentLocals = skeleton.bindPoseLocals(a.currentLocals)
	a.nextLocals = skeleton.bindPoseLocals(a.nextLocals)
	a.blendedLocals = resizeMatrices(a.blendedLocals, n)
	a.globals = resizeMatrices(a.globals, n)
	a.finals = skeleton.computeInto(a.currentLocals, a.globals, a.finals)
	a.pairsDirty = true
}

// Skeleton returns the bound skeleton.
func (a *Animator) Skeleton() *Skeleton { return a.skeleton }

// AddClip registers a clip under name, replacing any previous clip. A nil
// clip is ignored.
func (a *Animator) AddClip(name string, clip *AnimationClip) {
	if clip == nil {
		a.log.Debug("ignoring nil clip", zap.String("clip", name))
		return
	}
	a.clips[name] = clip
}

// Clip returns the named clip, or nil.
func (a *Animator) Clip(name string) *AnimationClip {
	return a.clips[name]
}

// AddState creates a state playing the named clip. It returns nil when the
// clip is not registered. An existing state with the same name is replaced.
func (a *Animator) AddState(stateName, clipName string) *AnimationState {
	clip, ok := a.clips[clipName]
	if !ok {
		a.log.Debug("state references unknown clip",
			zap.String("state", stateName), zap.String("clip", clipName))
		return nil
	}
	state := NewAnimationState(stateName, clip)
	a.states[stateName] = state
	return state
}

// State returns the named state, or nil.
func (a *Animator) State(name string) *AnimationState {
	return a.states[name]
}

// StateNames returns the registered state names, sorted.
func (a *Animator) StateNames() []string {
	names := make([]string, 0, len(a.states))
	for name := range a.states {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CurrentState returns the active state, or nil when stopped.
func (a *Animator) CurrentState() *AnimationState { return a.current }

// NextState returns the state being faded in, or nil.
func (a *Animator) NextState() *AnimationState { return a.next }

// Play starts the named state. With transitionDuration > 0 and a state
// already active it cross-fades; otherwise it cuts immediately and
// recomputes the bone matrices.
func (a *Animator) Play(stateName string, transitionDuration float32) {
	state := a.states[stateName]
	if state == nil {
		a.log.Debug("play: unknown state", zap.String("state", stateName))
		return
	}

	if transitionDuration > 0 && a.current != nil {
		a.CrossFade(stateName, transitionDuration)
		return
	}

	state.Reset()
	a.current = state
	a.next = nil
	a.playing = true
	a.transitioning = false
	a.transitionTime = 0

	a.updateBoneMatrices()
}

// CrossFade blends from the current state to the named state over duration
// seconds. It is ignored when the state is unknown or already current.
// Without a current state the fade starts from the bind pose.
func (a *Animator) CrossFade(stateName string, duration float32) {
	state := a.states[stateName]
	if state == nil {
		a.log.Debug("crossfade: unknown state", zap.String("state", stateName))
		return
	}
	if state == a.current {
		return
	}

	state.Reset()
	a.next = state
	a.transitionDuration = duration
	a.transitionTime = 0
	a.transitioning = true
	a.playing = true

	a.log.Debug("crossfade started",
		zap.String("from", a.currentName()),
		zap.String("to", stateName),
		zap.Float32("duration", duration))
}

// Stop clears the current and next states. The last computed matrices stay
// readable.
func (a *Animator) Stop() {
	a.playing = false
	a.transitioning = false
	a.transitionTime = 0
	a.current = nil
	a.next = nil
}

// Update advances playback by deltaTime seconds and recomputes the bone
// matrices. It does nothing while stopped or without a skeleton.
func (a *Animator) Update(deltaTime float32) {
	if !a.playing || a.skeleton == nil {
		return
	}

	if a.transitioning && a.next != nil {
		a.transitionTime += deltaTime
		progress := a.BlendFactor()

		if progress >= 1 {
			a.log.Debug("crossfade complete", zap.String("state", a.next.Name()))
			a.current = a.next
			a.next = nil
			a.transitioning = false
			a.transitionTime = 0
			// fall through: the new state plays alone this frame
		} else {
			if a.current != nil {
				a.current.Update(deltaTime)
			}
			a.next.Update(deltaTime)
			a.blendAnimations(progress)
			return
		}
	}

	if a.current != nil {
		a.current.Update(deltaTime)
		a.checkTransitions()
	}

	a.updateBoneMatrices()
}

// IsPlaying reports whether a state is active.
func (a *Animator) IsPlaying() bool { return a.playing }

// IsTransitioning reports whether a cross-fade is in progress.
func (a *Animator) IsTransitioning() bool { return a.transitioning }

// Phase returns the playback phase.
func (a *Animator) Phase() Phase {
	switch {
	case !a.playing:
		return PhaseStopped
	case a.transitioning:
		return PhaseTransitioning
	default:
		return PhasePlaying
	}
}

// BlendFactor returns cross-fade progress in [0,1]. It is 0 when no fade is
// running and 1 for a fade with non-positive duration.
func (a *Animator) BlendFactor() float32 {
	if !a.transitioning {
		return 0
	}
	if a.transitionDuration <= 0 {
		return 1
	}
	return a.transitionTime / a.transitionDuration
}

// TransitionTime returns the seconds elapsed in the running cross-fade.
func (a *Animator) TransitionTime() float32 { return a.transitionTime }

// TransitionDuration returns the length of the last started cross-fade.
func (a *Animator) TransitionDuration() float32 { return a.transitionDuration }

// CurrentTime returns the current state's playhead in clip ticks.
func (a *Animator) CurrentTime() float32 {
	if a.current == nil {
		return 0
	}
	return a.current.CurrentTime()
}

// NormalizedTime returns the current state's normalized playhead.
func (a *Animator) NormalizedTime() float32 {
	if a.current == nil {
		return 0
	}
	return a.current.NormalizedTime()
}

// BoneCount returns the bound skeleton's bone count, or 0.
func (a *Animator) BoneCount() int {
	if a.skeleton == nil {
		return 0
	}
	return a.skeleton.BoneCount()
}

// BoneMatrices returns the final skinning matrices indexed by bone. The
// slice is owned by the animator and overwritten by the next Update.
func (a *Animator) BoneMatrices() []math.Mat4 {
	return a.finals
}

// BoneMatrixPairs returns the skinning matrices together with their
// inverse-transposes. They are derived on demand from BoneMatrices.
func (a *Animator) BoneMatrixPairs() []BoneMatrixPair {
	if a.pairsDirty {
		a.pairs = pairsFrom(a.finals, a.pairs)
		a.pairsDirty = false
	}
	return a.pairs
}

// PoseChecksum hashes the current skinning matrices.
func (a *Animator) PoseChecksum() uint64 {
	return PoseChecksum(a.finals)
}

// SetFloat stores a float parameter.
func (a *Animator) SetFloat(name string, value float32) { a.params.floats[name] = value }

// SetInt stores an int parameter.
func (a *Animator) SetInt(name string, value int32) { a.params.ints[name] = value }

// SetBool stores a bool parameter.
func (a *Animator) SetBool(name string, value bool) { a.params.bools[name] = value }

// Float returns a float parameter, 0 when unset.
func (a *Animator) Float(name string) float32 { return a.params.Float(name) }

// Int returns an int parameter, 0 when unset.
func (a *Animator) Int(name string) int32 { return a.params.Int(name) }

// Bool returns a bool parameter, false when unset.
func (a *Animator) Bool(name string) bool { return a.params.Bool(name) }

// Params exposes the parameter store to conditions and tools.
func (a *Animator) Params() Params { return &a.params }

func (a *Animator) currentName() string {
	if a.current == nil {
		return ""
	}
	return a.current.Name()
}

// checkTransitions fires the first transition whose condition holds.
func (a *Animator) checkTransitions() {
	if a.current == nil || a.transitioning {
		return
	}
	for _, t := range a.current.Transitions() {
		if t.Condition != nil && t.Condition.Evaluate(&a.params) {
			a.CrossFade(t.TargetStateName, t.Duration)
			break
		}
	}
}

func (a *Animator) updateBoneMatrices() {
	if a.skeleton == nil || a.current == nil || a.current.Clip() == nil {
		return
	}

	a.currentLocals = a.current.Clip().Sample(a.current.CurrentTime(), a.skeleton, a.currentLocals)
	a.finals = a.skeleton.computeInto(a.currentLocals, a.globals, a.finals)
	a.pairsDirty = true
}

// blendAnimations samples both states, mixes their local transforms element
// by element and composes the hierarchy from the mixed pose. Whole matrices
// are mixed, not decomposed TRS, so large rotation differences shear.
func (a *Animator) blendAnimations(progress float32) {
	if a.skeleton == nil || a.next == nil {
		return
	}

	if a.current != nil && a.current.Clip() != nil {
		a.currentLocals = a.current.Clip().Sample(a.current.CurrentTime(), a.skeleton, a.currentLocals)
	} else {
		a.currentLocals = a.skeleton.bindPoseLocals(a.currentLocals)
	}
	if a.next.Clip() != nil {
		a.nextLocals = a.next.Clip().Sample(a.next.CurrentTime(), a.skeleton, a.nextLocals)
	} else {
		a.nextLocals = a.skeleton.bindPoseLocals(a.nextLocals)
	}

	weight := a.blendWeight(progress)
	a.blendedLocals = resizeMatrices(a.blendedLocals, len(a.currentLocals))
	for i := range a.currentLocals {
		a.blendedLocals[i] = a.currentLocals[i].Lerp(a.nextLocals[i], weight)
	}

	a.finals = a.skeleton.computeInto(a.blendedLocals, a.globals, a.finals)
	a.pairsDirty = true
}

func (a *Animator) blendWeight(progress float32) float32 {
	w := a.blendCurve(progress, 0, 1, 1)
	switch {
	case w < 0:
		return 0
	case w > 1:
		return 1
	}
	return w
}
