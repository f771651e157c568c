package loader

import (
	"fmt"

	"github.com/Faultbox/midgard-anim/internal/engine/animation"
	"github.com/Faultbox/midgard-anim/pkg/formats"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// LoadRigFile reads a YAML rig and builds an Asset from it.
func LoadRigFile(path string) (*Asset, error) {
	doc, err := formats.LoadRigFile(path)
	if err != nil {
		return nil, err
	}
	return LoadRig(doc)
}

// LoadRig builds an Asset from a parsed rig. Bones are reordered parent
// first; bones without an explicit offset get the inverse of their global
// bind pose.
func LoadRig(doc *formats.Rig) (*Asset, error) {
	if err := doc.Validate(); err != nil {
		return nil, err
	}

	skeleton, err := rigSkeleton(doc.Skeleton)
	if err != nil {
		return nil, err
	}

	asset := &Asset{
		Name:         doc.Name,
		Skeleton:     skeleton,
		DefaultState: doc.DefaultState,
	}
	for _, rc := range doc.Clips {
		asset.Clips = append(asset.Clips, rigClip(rc))
	}
	for _, rs := range doc.States {
		def, err := rigState(rs)
		if err != nil {
			return nil, err
		}
		asset.States = append(asset.States, def)
	}

	logLoaded("rig", asset)
	return asset, nil
}

func rigSkeleton(rs formats.RigSkeleton) (*animation.Skeleton, error) {
	byName := make(map[string]int, len(rs.Bones))
	for i, b := range rs.Bones {
		byName[b.Name] = i
	}
	parents := make([]int, len(rs.Bones))
	for i, b := range rs.Bones {
		parents[i] = animation.InvalidBoneIndex
		if b.Parent != "" {
			parents[i] = byName[b.Parent]
		}
	}

	order, err := parentFirst(parents)
	if err != nil {
		return nil, fmt.Errorf("rig skeleton: %w", err)
	}

	skeleton := animation.NewSkeleton()
	if rs.GlobalInverse != nil {
		skeleton.SetGlobalInverseTransform(mat4FromSlice(rs.GlobalInverse))
	}

	newIndex := make([]int, len(rs.Bones))
	globals := make([]math.Mat4, len(rs.Bones))
	for _, src := range order {
		b := rs.Bones[src]
		local := math.Compose(vec3Or(b.Translation, math.Vec3{}), quatOr(b.Rotation), vec3Or(b.Scale, math.Vec3One()))

		parent := animation.InvalidBoneIndex
		global := local
		if p := parents[src]; p != animation.InvalidBoneIndex {
			parent = newIndex[p]
			global = globals[p].Mul(local)
		}
		globals[src] = global

		offset := global.Inverse()
		if b.Offset != nil {
			offset = mat4FromSlice(b.Offset)
		}

		idx, err := skeleton.AddBone(b.Name, parent, offset, local)
		if err != nil {
			return nil, fmt.Errorf("rig skeleton: %w", err)
		}
		newIndex[src] = idx
	}
	return skeleton, nil
}

func rigClip(rc formats.RigClip) *animation.AnimationClip {
	duration := rc.Duration
	if duration == 0 {
		duration = lastKeyTime(rc.Tracks)
	}

	clip := animation.NewAnimationClip(rc.Name, duration, rc.TicksPerSecond)
	for _, tr := range rc.Tracks {
		anim := animation.BoneAnimation{BoneName: tr.Bone}
		for _, k := range tr.Position {
			anim.PositionKeys = append(anim.PositionKeys, animation.Keyframe[math.Vec3]{Time: k.Time, Value: vec3Or(k.Value, math.Vec3{})})
		}
		for _, k := range tr.Rotation {
			anim.RotationKeys = append(anim.RotationKeys, animation.Keyframe[math.Quat]{Time: k.Time, Value: quatOr(k.Value)})
		}
		for _, k := range tr.Scale {
			anim.ScaleKeys = append(anim.ScaleKeys, animation.Keyframe[math.Vec3]{Time: k.Time, Value: vec3Or(k.Value, math.Vec3One())})
		}
		anim.SortKeys()
		clip.AddBoneAnimation(anim)
	}
	return clip
}

func rigState(rs formats.RigState) (StateDef, error) {
	wrap, err := animation.ParseWrapMode(rs.Wrap)
	if err != nil {
		return StateDef{}, fmt.Errorf("state %q: %w", rs.Name, err)
	}

	def := StateDef{
		Name:     rs.Name,
		Clip:     rs.Clip,
		Speed:    1,
		WrapMode: wrap,
	}
	if rs.Speed != nil {
		def.Speed = *rs.Speed
	}

	for _, rt := range rs.Transitions {
		cond, err := rigCondition(rt.When)
		if err != nil {
			return StateDef{}, fmt.Errorf("state %q transition to %q: %w", rs.Name, rt.To, err)
		}
		def.Transitions = append(def.Transitions, animation.AnimationTransition{
			TargetStateName: rt.To,
			Duration:        rt.Duration,
			Condition:       cond,
		})
	}
	return def, nil
}

func rigCondition(when []formats.RigCondition) (animation.Condition, error) {
	all := make(animation.AllOf, 0, len(when))
	for _, c := range when {
		op, err := animation.ParseCompareOp(c.Op)
		if err != nil {
			return nil, err
		}
		var kind animation.ParamKind
		switch c.Type {
		case "", "float":
			kind = animation.ParamFloat
		case "int":
			kind = animation.ParamInt
		case "bool":
			kind = animation.ParamBool
		default:
			return nil, fmt.Errorf("unknown parameter type %q", c.Type)
		}
		all = append(all, animation.ParamCondition{Name: c.Param, Kind: kind, Op: op, Value: c.Value})
	}
	if len(all) == 1 {
		return all[0], nil
	}
	return all, nil
}

func lastKeyTime(tracks []formats.RigTrack) float32 {
	var last float32
	for _, tr := range tracks {
		for _, keys := range [][]formats.RigKey{tr.Position, tr.Rotation, tr.Scale} {
			for _, k := range keys {
				if k.Time > last {
					last = k.Time
				}
			}
		}
	}
	return last
}

func vec3Or(v []float32, def math.Vec3) math.Vec3 {
	if len(v) != 3 {
		return def
	}
	return math.Vec3{X: v[0], Y: v[1], Z: v[2]}
}

func quatOr(v []float32) math.Quat {
	if len(v) != 4 {
		return math.QuatIdentity()
	}
	return math.Quat{X: v[0], Y: v[1], Z: v[2], W: v[3]}.Normalize()
}

func mat4FromSlice(v []float32) math.Mat4 {
	var m math.Mat4
	copy(m[:], v)
	return m
}
