package animation

import (
	"fmt"
	gomath "math"
	"strings"
)

// WrapMode controls how normalized time behaves past the end of a clip.
type WrapMode int

const (
	WrapLoop         WrapMode = iota // wrap into [0,1)
	WrapOnce                         // stop at the end and report finished
	WrapPingPong                     // play forward then backward
	WrapClampForever                 // hold the last frame without finishing
)

// String returns the lowercase name used in config and rig files.
func (w WrapMode) String() string {
	switch w {
	case WrapLoop:
		return "loop"
	case WrapOnce:
		return "once"
	case WrapPingPong:
		return "pingpong"
	case WrapClampForever:
		return "clamp"
	default:
		return fmt.Sprintf("WrapMode(%d)", int(w))
	}
}

// ParseWrapMode converts a name into a WrapMode. Matching ignores case,
// dashes and underscores.
func ParseWrapMode(s string) (WrapMode, error) {
	key := strings.NewReplacer("-", "", "_", "", " ", "").Replace(strings.ToLower(s))
	switch key {
	case "loop", "":
		return WrapLoop, nil
	case "once":
		return WrapOnce, nil
	case "pingpong":
		return WrapPingPong, nil
	case "clamp", "clampforever":
		return WrapClampForever, nil
	default:
		return WrapLoop, fmt.Errorf("unknown wrap mode %q", s)
	}
}

// DefaultTransitionDuration is the cross-fade length, in seconds, used by
// transitions that leave Duration at zero.
const DefaultTransitionDuration = 0.2

// AnimationTransition is an outgoing edge of a state. When Condition holds
// while the state plays alone, the animator cross-fades to TargetStateName.
type AnimationTransition struct {
	TargetStateName string
	Duration        float32 // seconds
	Condition       Condition
}

// AnimationState is per-animator playback of one clip.
type AnimationState struct {
	name     string
	clip     *AnimationClip
	wrapMode WrapMode
	speed    float32

	normalizedTime float32
	finished       bool

	transitions []AnimationTransition
}

// NewAnimationState creates a looping state at speed 1.
func NewAnimationState(name string, clip *AnimationClip) *AnimationState {
	return &AnimationState{
		name:     name,
		clip:     clip,
		wrapMode: WrapLoop,
		speed:    1,
	}
}

// Name returns the state name.
func (s *AnimationState) Name() string { return s.name }

// Clip returns the played clip, which may be nil.
func (s *AnimationState) Clip() *AnimationClip { return s.clip }

// WrapMode returns the wrap policy.
func (s *AnimationState) WrapMode() WrapMode { return s.wrapMode }

// SetWrapMode changes the wrap policy.
func (s *AnimationState) SetWrapMode(mode WrapMode) { s.wrapMode = mode }

// Speed returns the playback speed multiplier.
func (s *AnimationState) Speed() float32 { return s.speed }

// SetSpeed changes the playback speed multiplier. Negative speeds play
// backwards.
func (s *AnimationState) SetSpeed(speed float32) { s.speed = speed }

// NormalizedTime returns the playhead as a fraction of the clip.
func (s *AnimationState) NormalizedTime() float32 { return s.normalizedTime }

// SetNormalizedTime moves the playhead without applying the wrap mode.
func (s *AnimationState) SetNormalizedTime(t float32) { s.normalizedTime = t }

// IsFinished reports whether a WrapOnce state reached its end.
func (s *AnimationState) IsFinished() bool { return s.finished }

// AddTransition appends an outgoing transition. Transitions are evaluated
// in the order they were added. A zero Duration selects
// DefaultTransitionDuration.
func (s *AnimationState) AddTransition(t AnimationTransition) {
	if t.Duration == 0 {
		t.Duration = DefaultTransitionDuration
	}
	s.transitions = append(s.transitions, t)
}

// Transitions returns the outgoing transitions.
func (s *AnimationState) Transitions() []AnimationTransition {
	return s.transitions
}

// Reset rewinds the playhead and clears the finished flag.
func (s *AnimationState) Reset() {
	s.normalizedTime = 0
	s.finished = false
}

// Update advances the playhead by deltaTime seconds.
func (s *AnimationState) Update(deltaTime float32) {
	if s.clip == nil || s.finished {
		return
	}

	duration := s.clip.Duration()
	if duration <= 0 {
		return
	}

	deltaTicks := deltaTime * s.speed * s.clip.TicksPerSecond()
	s.normalizedTime += deltaTicks / duration

	switch s.wrapMode {
	case WrapOnce:
		if s.normalizedTime >= 1 {
			s.normalizedTime = 1
			s.finished = true
		}

	case WrapLoop:
		s.normalizedTime = float32(gomath.Mod(float64(s.normalizedTime), 1))
		if s.normalizedTime < 0 {
			s.normalizedTime += 1
		}

	case WrapPingPong:
		t := float32(gomath.Mod(float64(s.normalizedTime), 2))
		if t < 0 {
			t += 2
		}
		if t > 1 {
			t = 2 - t
		}
		s.normalizedTime = t

	case WrapClampForever:
		if s.normalizedTime >= 1 {
			s.normalizedTime = 1
		} else if s.normalizedTime < 0 {
			s.normalizedTime = 0
		}
	}
}

// CurrentTime returns the playhead in clip ticks, the value Sample expects.
func (s *AnimationState) CurrentTime() float32 {
	if s.clip == nil {
		return 0
	}
	return s.normalizedTime * s.clip.Duration()
}
