// Package loader turns rig and glTF files into animation runtime objects.
package loader

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Faultbox/midgard-anim/internal/engine/animation"
	"github.com/Faultbox/midgard-anim/internal/logger"
)

// Loader errors.
var (
	ErrJointCycle        = errors.New("joint hierarchy contains a cycle")
	ErrUnsupportedFormat = errors.New("unsupported asset format")
	ErrAssetNotFound     = errors.New("asset not found")
)

// StateDef describes a state to create on every animator built from an
// Asset.
type StateDef struct {
	Name        string
	Clip        string
	Speed       float32
	WrapMode    animation.WrapMode
	Transitions []animation.AnimationTransition
}

// Asset is a loaded skeleton with its clips and state machine. The skeleton
// and clips are shared by every animator created from it.
type Asset struct {
	Name         string
	Skeleton     *animation.Skeleton
	Clips        []*animation.AnimationClip
	States       []StateDef
	DefaultState string
}

// Clip returns the named clip, or nil.
func (a *Asset) Clip(name string) *animation.AnimationClip {
	for _, c := range a.Clips {
		if c.Name() == name {
			return c
		}
	}
	return nil
}

// NewAnimator returns an animator bound to the asset's skeleton with every
// clip registered. Without explicit states, each clip gets a looping state of
// the same name. The default state, if any, is already playing.
func (a *Asset) NewAnimator() *animation.Animator {
	an := animation.NewAnimator()
	an.SetSkeleton(a.Skeleton)
	for _, c := range a.Clips {
		an.AddClip(c.Name(), c)
	}
	if len(a.States) == 0 {
		for _, c := range a.Clips {
			an.AddState(c.Name(), c.Name())
		}
	}
	a.configure(an)
	return an
}

// NewComponent returns an initialized component wrapping NewAnimator, so
// both carry the same states.
func (a *Asset) NewComponent() *animation.AnimatorComponent {
	c := animation.NewAnimatorComponent()
	c.Attach(a.NewAnimator())
	return c
}

func (a *Asset) configure(an *animation.Animator) {
	for _, def := range a.States {
		state := an.AddState(def.Name, def.Clip)
		if state == nil {
			continue
		}
		state.SetSpeed(def.Speed)
		state.SetWrapMode(def.WrapMode)
		for _, t := range def.Transitions {
			state.AddTransition(t)
		}
	}
	if a.DefaultState != "" {
		an.Play(a.DefaultState, 0)
	}
}

// Load picks an importer by file extension.
func Load(path string) (*Asset, error) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return LoadRigFile(path)
	case ".gltf", ".glb":
		return LoadGLTFFile(path, GLTFOptions{})
	default:
		return nil, fmt.Errorf("%s: %w", path, ErrUnsupportedFormat)
	}
}

// Find resolves name against the search paths when it does not exist as
// given. Absolute paths are never searched.
func Find(name string, searchPaths []string) (string, error) {
	if _, err := os.Stat(name); err == nil {
		return name, nil
	}
	if !filepath.IsAbs(name) {
		for _, dir := range searchPaths {
			candidate := filepath.Join(dir, name)
			if _, err := os.Stat(candidate); err == nil {
				return candidate, nil
			}
		}
	}
	return "", fmt.Errorf("%s: %w", name, ErrAssetNotFound)
}

// parentFirst returns an order in which every node follows its parent.
// parents[i] is the parent of node i or animation.InvalidBoneIndex. Nodes
// already in a valid order keep it.
func parentFirst(parents []int) ([]int, error) {
	order := make([]int, 0, len(parents))
	placed := make([]bool, len(parents))

	for len(order) < len(parents) {
		progress := false
		for i, p := range parents {
			if placed[i] {
				continue
			}
			if p == animation.InvalidBoneIndex || (p >= 0 && p < len(parents) && placed[p]) {
				placed[i] = true
				order = append(order, i)
				progress = true
			}
		}
		if !progress {
			return nil, ErrJointCycle
		}
	}
	return order, nil
}

func logLoaded(kind string, a *Asset) {
	logger.Named("loader").Sugar().Infow("asset loaded",
		"kind", kind,
		"name", a.Name,
		"bones", a.Skeleton.BoneCount(),
		"clips", len(a.Clips),
		"states", len(a.States))
}
