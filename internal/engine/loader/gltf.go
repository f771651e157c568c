package loader

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/qmuntal/gltf"
	"github.com/qmuntal/gltf/modeler"

	"github.com/Faultbox/midgard-anim/internal/engine/animation"
	"github.com/Faultbox/midgard-anim/internal/logger"
	"github.com/Faultbox/midgard-anim/pkg/math"
)

// glTF import errors.
var (
	ErrNoSkin          = errors.New("glTF document has no skin")
	ErrSkinIndex       = errors.New("glTF skin index out of range")
	ErrAccessorType    = errors.New("unexpected glTF accessor type")
	ErrAccessorMissing = errors.New("glTF accessor missing")
)

// GLTFOptions controls glTF import.
type GLTFOptions struct {
	// SkinIndex selects the skin that becomes the skeleton.
	SkinIndex int
}

// LoadGLTFFile opens a .gltf or .glb file and imports its skin and
// animations.
func LoadGLTFFile(path string, opts GLTFOptions) (*Asset, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening glTF: %w", err)
	}
	return LoadGLTF(doc, opts)
}

// LoadGLTFData decodes a self-contained glTF or GLB document from memory.
func LoadGLTFData(data []byte, opts GLTFOptions) (*Asset, error) {
	doc := new(gltf.Document)
	if err := gltf.NewDecoder(bytes.NewReader(data)).Decode(doc); err != nil {
		return nil, fmt.Errorf("decoding glTF: %w", err)
	}
	return LoadGLTF(doc, opts)
}

// LoadGLTF imports one skin as a skeleton and every animation as a clip.
//
// Joints are reordered so parents precede children; a joint whose node
// parent is not itself a joint becomes a root. Inverse bind matrices become
// bone offsets and node transforms the bind pose. glTF keys are in seconds,
// so clips use one tick per second. Channels targeting nodes outside the
// skin are dropped, and properties a clip leaves unanimated hold the node's
// rest value.
func LoadGLTF(doc *gltf.Document, opts GLTFOptions) (*Asset, error) {
	if len(doc.Skins) == 0 {
		return nil, ErrNoSkin
	}
	if opts.SkinIndex < 0 || opts.SkinIndex >= len(doc.Skins) {
		return nil, fmt.Errorf("skin %d of %d: %w", opts.SkinIndex, len(doc.Skins), ErrSkinIndex)
	}
	skin := doc.Skins[opts.SkinIndex]

	log := logger.Named("loader.gltf")

	skeleton, boneNames, err := gltfSkeleton(doc, skin)
	if err != nil {
		return nil, err
	}

	asset := &Asset{Name: skin.Name, Skeleton: skeleton}
	for i, ga := range doc.Animations {
		clip, err := gltfClip(doc, ga, i, boneNames, func(msg string, channel int) {
			log.Sugar().Warnw(msg, "animation", ga.Name, "channel", channel)
		})
		if err != nil {
			return nil, fmt.Errorf("animation %d: %w", i, err)
		}
		asset.Clips = append(asset.Clips, clip)
	}

	logLoaded("gltf", asset)
	return asset, nil
}

// gltfSkeleton builds the skeleton and returns the bone name of every joint
// node, keyed by node index.
func gltfSkeleton(doc *gltf.Document, skin *gltf.Skin) (*animation.Skeleton, map[int]string, error) {
	jointOf := make(map[int]int, len(skin.Joints))
	for j, node := range skin.Joints {
		if node < 0 || node >= len(doc.Nodes) {
			return nil, nil, fmt.Errorf("joint %d references node %d: %w", j, node, ErrAccessorMissing)
		}
		jointOf[node] = j
	}

	nodeParent := make(map[int]int, len(doc.Nodes))
	for i, n := range doc.Nodes {
		for _, child := range n.Children {
			nodeParent[child] = i
		}
	}

	parents := make([]int, len(skin.Joints))
	for j, node := range skin.Joints {
		parents[j] = animation.InvalidBoneIndex
		if p, ok := nodeParent[node]; ok {
			if pj, isJoint := jointOf[p]; isJoint {
				parents[j] = pj
			}
		}
	}

	offsets, err := inverseBindMatrices(doc, skin)
	if err != nil {
		return nil, nil, err
	}

	order, err := parentFirst(parents)
	if err != nil {
		return nil, nil, fmt.Errorf("skin %q: %w", skin.Name, err)
	}

	skeleton := animation.NewSkeleton()
	names := make(map[int]string, len(skin.Joints))
	newIndex := make([]int, len(skin.Joints))
	for _, j := range order {
		node := doc.Nodes[skin.Joints[j]]
		name := node.Name
		if name == "" {
			name = fmt.Sprintf("joint_%d", skin.Joints[j])
		}

		parent := animation.InvalidBoneIndex
		if parents[j] != animation.InvalidBoneIndex {
			parent = newIndex[parents[j]]
		}

		idx, err := skeleton.AddBone(name, parent, offsets[j], nodeLocal(node))
		if err != nil {
			return nil, nil, fmt.Errorf("skin %q: %w", skin.Name, err)
		}
		newIndex[j] = idx
		names[skin.Joints[j]] = name
	}
	return skeleton, names, nil
}

func inverseBindMatrices(doc *gltf.Document, skin *gltf.Skin) ([]math.Mat4, error) {
	out := make([]math.Mat4, len(skin.Joints))
	if skin.InverseBindMatrices == nil {
		for i := range out {
			out[i] = math.Identity()
		}
		return out, nil
	}

	data, err := readAccessor(doc, *skin.InverseBindMatrices)
	if err != nil {
		return nil, err
	}
	matrices, ok := data.([][4][4]float32)
	if !ok {
		return nil, fmt.Errorf("inverse bind matrices are %T: %w", data, ErrAccessorType)
	}
	if len(matrices) < len(out) {
		return nil, fmt.Errorf("%d inverse bind matrices for %d joints: %w", len(matrices), len(out), ErrAccessorMissing)
	}
	for i := range out {
		out[i] = math.Mat4FromColumns(matrices[i])
	}
	return out, nil
}

// nodeLocal returns the node's transform relative to its parent. An explicit
// matrix wins over TRS.
func nodeLocal(n *gltf.Node) math.Mat4 {
	if m := n.MatrixOrDefault(); m != gltf.DefaultMatrix {
		var out math.Mat4
		for i, v := range m {
			out[i] = float32(v)
		}
		return out
	}

	t := n.TranslationOrDefault()
	r := n.RotationOrDefault()
	s := n.ScaleOrDefault()
	return math.Compose(
		math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])},
		math.Quat{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}.Normalize(),
		math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])},
	)
}

func gltfClip(doc *gltf.Document, ga *gltf.Animation, index int, boneNames map[int]string, warn func(string, int)) (*animation.AnimationClip, error) {
	name := ga.Name
	if name == "" {
		name = fmt.Sprintf("Animation_%d", index)
	}

	nodeOf := make(map[string]int, len(boneNames))
	for node, bone := range boneNames {
		nodeOf[bone] = node
	}

	tracks := make(map[string]*animation.BoneAnimation)
	var order []string
	var duration float32

	for ci, ch := range ga.Channels {
		if ch.Target.Node == nil || ch.Sampler < 0 || ch.Sampler >= len(ga.Samplers) {
			continue
		}
		bone, ok := boneNames[*ch.Target.Node]
		if !ok {
			continue
		}
		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSRotation, gltf.TRSScale:
		default:
			warn("unsupported channel path", ci)
			continue
		}
		sampler := ga.Samplers[ch.Sampler]

		stride := 1
		switch sampler.Interpolation {
		case gltf.InterpolationCubicSpline:
			stride = 3
			warn("cubic spline channel sampled linearly", ci)
		case gltf.InterpolationStep:
			warn("step channel sampled linearly", ci)
		}

		times, err := readFloats(doc, sampler.Input)
		if err != nil {
			return nil, err
		}
		for _, t := range times {
			if t > duration {
				duration = t
			}
		}

		track := tracks[bone]
		if track == nil {
			track = &animation.BoneAnimation{BoneName: bone}
			tracks[bone] = track
			order = append(order, bone)
		}

		data, err := readAccessor(doc, sampler.Output)
		if err != nil {
			return nil, err
		}

		switch ch.Target.Path {
		case gltf.TRSTranslation, gltf.TRSScale:
			values, ok := data.([][3]float32)
			if !ok {
				return nil, fmt.Errorf("channel %d output is %T: %w", ci, data, ErrAccessorType)
			}
			keys := make([]animation.Keyframe[math.Vec3], 0, len(times))
			for i, t := range times {
				k := i*stride + stride/2
				if k >= len(values) {
					break
				}
				keys = append(keys, animation.Keyframe[math.Vec3]{Time: t, Value: math.Vec3FromArray(values[k])})
			}
			if ch.Target.Path == gltf.TRSTranslation {
				track.PositionKeys = keys
			} else {
				track.ScaleKeys = keys
			}

		case gltf.TRSRotation:
			values, ok := data.([][4]float32)
			if !ok {
				return nil, fmt.Errorf("channel %d output is %T: %w", ci, data, ErrAccessorType)
			}
			keys := make([]animation.Keyframe[math.Quat], 0, len(times))
			for i, t := range times {
				k := i*stride + stride/2
				if k >= len(values) {
					break
				}
				keys = append(keys, animation.Keyframe[math.Quat]{Time: t, Value: math.QuatFromArray(values[k]).Normalize()})
			}
			track.RotationKeys = keys
		}
	}

	clip := animation.NewAnimationClip(name, duration, 1)
	for _, bone := range order {
		track := tracks[bone]
		holdRestPose(track, doc.Nodes[nodeOf[bone]])
		track.SortKeys()
		clip.AddBoneAnimation(*track)
	}
	return clip, nil
}

// holdRestPose gives every unanimated channel of a track a single key with
// the node's own value, since glTF leaves unanimated properties at rest.
func holdRestPose(track *animation.BoneAnimation, n *gltf.Node) {
	if len(track.PositionKeys) == 0 {
		t := n.TranslationOrDefault()
		track.PositionKeys = []animation.Keyframe[math.Vec3]{{
			Value: math.Vec3{X: float32(t[0]), Y: float32(t[1]), Z: float32(t[2])},
		}}
	}
	if len(track.RotationKeys) == 0 {
		r := n.RotationOrDefault()
		track.RotationKeys = []animation.Keyframe[math.Quat]{{
			Value: math.Quat{X: float32(r[0]), Y: float32(r[1]), Z: float32(r[2]), W: float32(r[3])}.Normalize(),
		}}
	}
	if len(track.ScaleKeys) == 0 {
		s := n.ScaleOrDefault()
		track.ScaleKeys = []animation.Keyframe[math.Vec3]{{
			Value: math.Vec3{X: float32(s[0]), Y: float32(s[1]), Z: float32(s[2])},
		}}
	}
}

func readAccessor(doc *gltf.Document, index int) (any, error) {
	if index < 0 || index >= len(doc.Accessors) {
		return nil, fmt.Errorf("accessor %d: %w", index, ErrAccessorMissing)
	}
	data, err := modeler.ReadAccessor(doc, doc.Accessors[index], nil)
	if err != nil {
		return nil, fmt.Errorf("reading accessor %d: %w", index, err)
	}
	return data, nil
}

func readFloats(doc *gltf.Document, index int) ([]float32, error) {
	data, err := readAccessor(doc, index)
	if err != nil {
		return nil, err
	}
	times, ok := data.([]float32)
	if !ok {
		return nil, fmt.Errorf("accessor %d is %T: %w", index, data, ErrAccessorType)
	}
	return times, nil
}
