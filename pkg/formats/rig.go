// Package formats provides parsers for animation asset formats.
// Rig (YAML) format parser for skeletons, clips and state machines.
package formats

import (
	"bytes"
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Rig format errors.
var (
	ErrEmptyRigData     = errors.New("empty rig data")
	ErrRigNoBones       = errors.New("rig has no bones")
	ErrRigMissingName   = errors.New("rig entry has no name")
	ErrRigDuplicateName = errors.New("duplicate rig name")
	ErrRigUnknownRef    = errors.New("unknown rig reference")
	ErrRigBadVector     = errors.New("wrong rig vector length")
	ErrRigBadClip       = errors.New("invalid rig clip")
	ErrRigBadTransition = errors.New("invalid rig transition")
)

// Rig is a complete animation asset: a skeleton, the clips that drive it and
// an optional state machine.
//
// Vectors are lists: translation and scale have 3 elements, rotations are
// quaternions [x, y, z, w], and matrices are 16 elements in column-major
// order.
type Rig struct {
	Name         string      `yaml:"name"`
	Skeleton     RigSkeleton `yaml:"skeleton"`
	Clips        []RigClip   `yaml:"clips"`
	States       []RigState  `yaml:"states,omitempty"`
	DefaultState string      `yaml:"default_state,omitempty"`
}

// RigSkeleton lists the bones. Parents may appear after their children.
type RigSkeleton struct {
	GlobalInverse []float32 `yaml:"global_inverse,omitempty"`
	Bones         []RigBone `yaml:"bones"`
}

// RigBone is one joint. Missing TRS components default to identity and a
// missing offset is derived from the bind pose.
type RigBone struct {
	Name        string    `yaml:"name"`
	Parent      string    `yaml:"parent,omitempty"`
	Translation []float32 `yaml:"translation,omitempty"`
	Rotation    []float32 `yaml:"rotation,omitempty"`
	Scale       []float32 `yaml:"scale,omitempty"`
	Offset      []float32 `yaml:"offset,omitempty"`
}

// RigClip is a keyframed clip. Times are in ticks.
type RigClip struct {
	Name           string     `yaml:"name"`
	Duration       float32    `yaml:"duration,omitempty"`
	TicksPerSecond float32    `yaml:"ticks_per_second,omitempty"`
	Tracks         []RigTrack `yaml:"tracks"`
}

// RigTrack holds the keys for one bone.
type RigTrack struct {
	Bone     string   `yaml:"bone"`
	Position []RigKey `yaml:"position,omitempty"`
	Rotation []RigKey `yaml:"rotation,omitempty"`
	Scale    []RigKey `yaml:"scale,omitempty"`
}

// RigKey is a single keyframe.
type RigKey struct {
	Time  float32   `yaml:"time"`
	Value []float32 `yaml:"value,flow"`
}

// RigState is a state machine node.
type RigState struct {
	Name        string          `yaml:"name"`
	Clip        string          `yaml:"clip"`
	Speed       *float32        `yaml:"speed,omitempty"`
	Wrap        string          `yaml:"wrap,omitempty"`
	Transitions []RigTransition `yaml:"transitions,omitempty"`
}

// RigTransition fires when every condition in When holds.
type RigTransition struct {
	To       string         `yaml:"to"`
	Duration float32        `yaml:"duration,omitempty"`
	When     []RigCondition `yaml:"when"`
}

// RigCondition compares a parameter against Value. Type is float, int or
// bool; Op is one of == != > >= < <=.
type RigCondition struct {
	Param string  `yaml:"param"`
	Type  string  `yaml:"type,omitempty"`
	Op    string  `yaml:"op"`
	Value float64 `yaml:"value"`
}

// ParseRig decodes and validates a YAML rig.
func ParseRig(data []byte) (*Rig, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyRigData
	}

	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var rig Rig
	if err := dec.Decode(&rig); err != nil {
		return nil, fmt.Errorf("decoding rig: %w", err)
	}
	if err := rig.Validate(); err != nil {
		return nil, err
	}
	return &rig, nil
}

// LoadRigFile reads and parses a rig file.
func LoadRigFile(path string) (*Rig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading rig file: %w", err)
	}
	rig, err := ParseRig(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return rig, nil
}

// Marshal encodes the rig as YAML.
func (r *Rig) Marshal() ([]byte, error) {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(r); err != nil {
		return nil, fmt.Errorf("encoding rig: %w", err)
	}
	if err := enc.Close(); err != nil {
		return nil, fmt.Errorf("encoding rig: %w", err)
	}
	return buf.Bytes(), nil
}

// Validate checks names, references and vector sizes. Operators, wrap modes
// and parent cycles are left to the loader.
func (r *Rig) Validate() error {
	if len(r.Skeleton.Bones) == 0 {
		return ErrRigNoBones
	}
	if err := checkLen("global_inverse", r.Skeleton.GlobalInverse, 16); err != nil {
		return err
	}

	bones := make(map[string]bool, len(r.Skeleton.Bones))
	for i, b := range r.Skeleton.Bones {
		if b.Name == "" {
			return fmt.Errorf("bone %d: %w", i, ErrRigMissingName)
		}
		if bones[b.Name] {
			return fmt.Errorf("bone %q: %w", b.Name, ErrRigDuplicateName)
		}
		bones[b.Name] = true
	}
	for _, b := range r.Skeleton.Bones {
		if b.Parent != "" && !bones[b.Parent] {
			return fmt.Errorf("bone %q parent %q: %w", b.Name, b.Parent, ErrRigUnknownRef)
		}
		if b.Parent == b.Name {
			return fmt.Errorf("bone %q is its own parent: %w", b.Name, ErrRigUnknownRef)
		}
		for _, v := range []struct {
			field string
			value []float32
			n     int
		}{
			{"translation", b.Translation, 3},
			{"rotation", b.Rotation, 4},
			{"scale", b.Scale, 3},
			{"offset", b.Offset, 16},
		} {
			if err := checkLen(b.Name+" "+v.field, v.value, v.n); err != nil {
				return err
			}
		}
	}

	clips := make(map[string]bool, len(r.Clips))
	for i, c := range r.Clips {
		if c.Name == "" {
			return fmt.Errorf("clip %d: %w", i, ErrRigMissingName)
		}
		if clips[c.Name] {
			return fmt.Errorf("clip %q: %w", c.Name, ErrRigDuplicateName)
		}
		clips[c.Name] = true
		if c.Duration < 0 || c.TicksPerSecond < 0 {
			return fmt.Errorf("clip %q: negative duration or tick rate: %w", c.Name, ErrRigBadClip)
		}
		for _, tr := range c.Tracks {
			if !bones[tr.Bone] {
				return fmt.Errorf("clip %q track bone %q: %w", c.Name, tr.Bone, ErrRigUnknownRef)
			}
			if err := checkKeys(c.Name, tr.Bone, "position", tr.Position, 3); err != nil {
				return err
			}
			if err := checkKeys(c.Name, tr.Bone, "rotation", tr.Rotation, 4); err != nil {
				return err
			}
			if err := checkKeys(c.Name, tr.Bone, "scale", tr.Scale, 3); err != nil {
				return err
			}
		}
	}

	states := make(map[string]bool, len(r.States))
	for i, s := range r.States {
		if s.Name == "" {
			return fmt.Errorf("state %d: %w", i, ErrRigMissingName)
		}
		if states[s.Name] {
			return fmt.Errorf("state %q: %w", s.Name, ErrRigDuplicateName)
		}
		states[s.Name] = true
		if !clips[s.Clip] {
			return fmt.Errorf("state %q clip %q: %w", s.Name, s.Clip, ErrRigUnknownRef)
		}
	}
	for _, s := range r.States {
		for _, t := range s.Transitions {
			if !states[t.To] {
				return fmt.Errorf("state %q transition to %q: %w", s.Name, t.To, ErrRigUnknownRef)
			}
			if len(t.When) == 0 {
				return fmt.Errorf("state %q transition to %q has no conditions: %w", s.Name, t.To, ErrRigBadTransition)
			}
			if t.Duration < 0 {
				return fmt.Errorf("state %q transition to %q: negative duration: %w", s.Name, t.To, ErrRigBadTransition)
			}
			for _, c := range t.When {
				if c.Param == "" {
					return fmt.Errorf("state %q transition to %q: condition without param: %w", s.Name, t.To, ErrRigBadTransition)
				}
			}
		}
	}

	if r.DefaultState != "" && !states[r.DefaultState] {
		return fmt.Errorf("default state %q: %w", r.DefaultState, ErrRigUnknownRef)
	}
	return nil
}

func checkLen(field string, v []float32, n int) error {
	if v != nil && len(v) != n {
		return fmt.Errorf("%s: got %d values, want %d: %w", field, len(v), n, ErrRigBadVector)
	}
	return nil
}

func checkKeys(clip, bone, track string, keys []RigKey, n int) error {
	for i, k := range keys {
		if len(k.Value) != n {
			return fmt.Errorf("clip %q bone %q %s key %d: got %d values, want %d: %w",
				clip, bone, track, i, len(k.Value), n, ErrRigBadVector)
		}
	}
	return nil
}
