package anm

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"

	dquat "github.com/flywave/go3d/float64/quaternion"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/qmuntal/gltf"
	"github.com/tiendc/go-deepcopy"
)

// 未设置焦距信息时按 36mm 传感器换算
const defaultSensorWidth = 36.0

type GltfOptions struct {
	ChunkPath string
	FPS       float64
	Loop      bool
}

// GltfToAnm 从 glTF 文档提取骨架、相机与动作
type GltfToAnm struct {
	doc  *gltf.Document
	opts GltfOptions

	parents map[int]int
	// 节点 -> (skin, 关节序号)
	joints  map[int][2]int
	clumps  []*AnimatedClump
	cameras map[int]*CameraObject
}

func LoadGltfAnimations(path string, opts GltfOptions) ([]*Animation, error) {
	doc, err := gltf.Open(path)
	if err != nil {
		return nil, err
	}
	return NewGltfToAnm(doc, opts).Convert()
}

func NewGltfToAnm(doc *gltf.Document, opts GltfOptions) *GltfToAnm {
	if opts.FPS <= 0 {
		opts.FPS = 30
	}
	return &GltfToAnm{
		doc:     doc,
		opts:    opts,
		parents: make(map[int]int),
		joints:  make(map[int][2]int),
		cameras: make(map[int]*CameraObject),
	}
}

func (g *GltfToAnm) nodeName(i int) string {
	if n := g.doc.Nodes[i].Name; n != "" {
		return n
	}
	return fmt.Sprintf("node%d", i)
}

func nodeBind(nd *gltf.Node) BindPose {
	b := BindPose{
		Translation: dvec3.T{float64(nd.Translation[0]), float64(nd.Translation[1]), float64(nd.Translation[2])},
		Rotation:    dquat.T{float64(nd.Rotation[0]), float64(nd.Rotation[1]), float64(nd.Rotation[2]), float64(nd.Rotation[3])},
		Scale:       dvec3.T{float64(nd.Scale[0]), float64(nd.Scale[1]), float64(nd.Scale[2])},
	}
	if b.Rotation == (dquat.T{}) {
		b.Rotation = dquat.Ident
	}
	if b.Scale == (dvec3.T{}) {
		b.Scale = dvec3.T{1, 1, 1}
	}
	return b
}

// Convert 每个 glTF 动作生成一个 Animation，各自带独立的场景
func (g *GltfToAnm) Convert() ([]*Animation, error) {
	for pi, nd := range g.doc.Nodes {
		for _, c := range nd.Children {
			g.parents[int(c)] = pi
		}
	}
	g.transSkins()
	for ni, nd := range g.doc.Nodes {
		if nd.Camera == nil {
			continue
		}
		g.cameras[ni] = &CameraObject{Name: g.nodeName(ni), Path: g.opts.ChunkPath}
	}

	if len(g.doc.Animations) == 0 {
		return nil, errNoAnimations
	}
	var anims []*Animation
	for ai, an := range g.doc.Animations {
		a, err := g.transAnimation(ai, an)
		if err != nil {
			return nil, err
		}
		anims = append(anims, a)
	}
	return anims, nil
}

func (g *GltfToAnm) transSkins() {
	for si, skin := range g.doc.Skins {
		name := skin.Name
		if name == "" {
			name = fmt.Sprintf("clump%d", si)
		}
		c := &AnimatedClump{Name: name, Path: g.opts.ChunkPath}
		for ji, j := range skin.Joints {
			g.joints[int(j)] = [2]int{si, ji}
		}
		for _, j := range skin.Joints {
			parent := -1
			if p, ok := g.parents[int(j)]; ok {
				if pj, ok := g.joints[p]; ok && pj[0] == si {
					parent = pj[1]
				}
			}
			c.Bones = append(c.Bones, &Bone{
				Name:   g.nodeName(int(j)),
				Parent: parent,
				Bind:   nodeBind(g.doc.Nodes[int(j)]),
			})
		}
		seenMat := make(map[string]bool)
		for ni, nd := range g.doc.Nodes {
			if nd.Mesh == nil || nd.Skin == nil || int(*nd.Skin) != si {
				continue
			}
			c.Models = append(c.Models, g.nodeName(ni))
			for _, ps := range g.doc.Meshes[int(*nd.Mesh)].Primitives {
				if ps.Material == nil {
					continue
				}
				mn := g.doc.Materials[int(*ps.Material)].Name
				if mn != "" && !seenMat[mn] {
					seenMat[mn] = true
					c.Materials = append(c.Materials, mn)
				}
			}
		}
		g.clumps = append(g.clumps, c)
	}
}

func (g *GltfToAnm) readAccessor(idx int) ([]float64, int, error) {
	if idx < 0 || idx >= len(g.doc.Accessors) {
		return nil, 0, fmt.Errorf("accessor %d out of range", idx)
	}
	acc := g.doc.Accessors[idx]
	if acc.BufferView == nil {
		return nil, 0, fmt.Errorf("accessor %d has no buffer view", idx)
	}
	if acc.ComponentType != gltf.ComponentFloat {
		return nil, 0, fmt.Errorf("accessor %d: only float components are supported", idx)
	}
	comps := 0
	switch acc.Type {
	case gltf.AccessorScalar:
		comps = 1
	case gltf.AccessorVec2:
		comps = 2
	case gltf.AccessorVec3:
		comps = 3
	case gltf.AccessorVec4:
		comps = 4
	default:
		return nil, 0, fmt.Errorf("accessor %d: unsupported type", idx)
	}
	view := g.doc.BufferViews[int(*acc.BufferView)]
	data := g.doc.Buffers[int(view.Buffer)].Data
	stride := int(view.ByteStride)
	if stride == 0 {
		stride = comps * 4
	}
	start := int(view.ByteOffset) + int(acc.ByteOffset)
	out := make([]float64, 0, int(acc.Count)*comps)
	for i := 0; i < int(acc.Count); i++ {
		for c := 0; c < comps; c++ {
			off := start + i*stride + c*4
			if off+4 > len(data) {
				return nil, 0, fmt.Errorf("accessor %d exceeds buffer", idx)
			}
			out = append(out, float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:]))))
		}
	}
	return out, comps, nil
}

func (g *GltfToAnm) toFrame(t float64) int {
	return int(math.Round(t * g.opts.FPS))
}

func (g *GltfToAnm) transAnimation(ai int, an *gltf.Animation) (*Animation, error) {
	name := an.Name
	if name == "" {
		name = fmt.Sprintf("anim%d", ai)
	}
	scene := NewMemoryScene()
	curves := make([]*ChannelSet, len(g.clumps))
	// 每个动作的场景持有独立的骨骼副本
	for i, c := range g.clumps {
		clump := &AnimatedClump{}
		if err := deepcopy.Copy(clump, c); err != nil {
			return nil, fmt.Errorf("animation %s: copy clump %s: %w", name, c.Name, err)
		}
		curves[i] = NewChannelSet()
		clump.Curves = curves[i]
		clump.MaterialCurves = curves[i]
		scene.AddClump(clump)
	}
	for ni, cam := range g.cameras {
		scene.AddCamera(cam)
		g.setCameraRest(scene, ni)
	}

	anim := &Animation{Name: name, Path: g.opts.ChunkPath, Loop: g.opts.Loop, Scene: scene}
	usedClumps := make(map[int]bool)
	usedCameras := make(map[int]bool)
	lastFrame := 0
	for ci, ch := range an.Channels {
		if ch.Sampler == nil || ch.Target.Node == nil {
			continue
		}
		sampler := an.Samplers[int(*ch.Sampler)]
		if sampler.Input == nil || sampler.Output == nil {
			return nil, fmt.Errorf("animation %s channel %d: sampler has no accessors", name, ci)
		}
		times, _, err := g.readAccessor(int(*sampler.Input))
		if err != nil {
			return nil, fmt.Errorf("animation %s channel %d: %w", name, ci, err)
		}
		values, comps, err := g.readAccessor(int(*sampler.Output))
		if err != nil {
			return nil, fmt.Errorf("animation %s channel %d: %w", name, ci, err)
		}
		if len(values) < len(times)*comps {
			return nil, fmt.Errorf("animation %s channel %d: %d values for %d keys", name, ci, len(values)/comps, len(times))
		}
		frames := make([]int, len(times))
		for i, t := range times {
			frames[i] = g.toFrame(t)
			if frames[i] > lastFrame {
				lastFrame = frames[i]
			}
		}
		node := int(*ch.Target.Node)
		if j, ok := g.joints[node]; ok {
			usedClumps[j[0]] = true
			bone := g.clumps[j[0]].Bones[j[1]]
			if pc := poseChannel(ch.Target.Path, &bone.Bind, frames, values, comps); pc != nil {
				curves[j[0]].Add(bone.Name, pc)
			}
			continue
		}
		if cam, ok := g.cameras[node]; ok {
			usedCameras[node] = true
			setObjectSamples(scene.FrameSampler, cam.Name, ch.Target.Path, frames, values, comps)
		}
	}

	for i, c := range g.clumps {
		if usedClumps[i] {
			anim.Clumps = append(anim.Clumps, c.Name)
		}
	}
	for ni := range g.doc.Nodes {
		if usedCameras[ni] {
			anim.Cameras = append(anim.Cameras, g.cameras[ni].Name)
		}
	}
	anim.FrameCount = lastFrame + 1
	return anim, nil
}

// poseChannel 把 glTF 的局部变换转换为相对静止姿态的偏移
func poseChannel(path gltf.TRSProperty, bind *BindPose, frames []int, values []float64, comps int) *Channel {
	rot := bind.rotation()
	inv := rot.Inverted()
	switch path {
	case gltf.TRSTranslation:
		ch := &Channel{Path: PATH_LOCATION, Axes: make([][]Keyframe, 3)}
		for i, f := range frames {
			v := vec3Of(values[i*comps:])
			t := bind.translation()
			d := dvec3.Sub(&v, &t)
			local := inv.RotatedVec3(&d)
			for a := 0; a < 3; a++ {
				ch.Axes[a] = append(ch.Axes[a], Keyframe{Frame: f, Value: local[a]})
			}
		}
		return ch
	case gltf.TRSRotation:
		ch := &Channel{Path: PATH_ROTATION_QUATERNION, Axes: make([][]Keyframe, 4)}
		for i, f := range frames {
			v := values[i*comps:]
			q := dquat.T{v[0], v[1], v[2], v[3]}
			local := dquat.Mul(&inv, &q)
			wxyz := [4]float64{local[3], local[0], local[1], local[2]}
			for a := 0; a < 4; a++ {
				ch.Axes[a] = append(ch.Axes[a], Keyframe{Frame: f, Value: wxyz[a]})
			}
		}
		return ch
	case gltf.TRSScale:
		ch := &Channel{Path: PATH_SCALE, Axes: make([][]Keyframe, 3)}
		bs := bind.scale()
		for i, f := range frames {
			v := values[i*comps:]
			for a := 0; a < 3; a++ {
				s := v[a]
				if bs[a] != 0 {
					s /= bs[a]
				}
				ch.Axes[a] = append(ch.Axes[a], Keyframe{Frame: f, Value: s})
			}
		}
		return ch
	}
	return nil
}

func setObjectSamples(s *FrameSampler, object string, path gltf.TRSProperty, frames []int, values []float64, comps int) {
	for i, f := range frames {
		v := values[i*comps : (i+1)*comps]
		switch path {
		case gltf.TRSTranslation:
			s.Set(object, PATH_LOCATION, f, v...)
		case gltf.TRSRotation:
			s.Set(object, PATH_ROTATION_QUATERNION, f, v[3], v[0], v[1], v[2])
		}
	}
}

// setCameraRest 相机的静态位置、朝向与焦距
func (g *GltfToAnm) setCameraRest(scene *MemoryScene, ni int) {
	nd := g.doc.Nodes[ni]
	name := g.cameras[ni].Name
	b := nodeBind(nd)
	scene.SetConstant(name, PATH_LOCATION, b.Translation[0], b.Translation[1], b.Translation[2])
	scene.SetConstant(name, PATH_ROTATION_QUATERNION, b.Rotation[3], b.Rotation[0], b.Rotation[1], b.Rotation[2])
	scene.SetConstant(name, PATH_SENSOR_WIDTH, defaultSensorWidth)
	lens := 50.0
	cam := g.doc.Cameras[int(*nd.Camera)]
	if cam.Perspective != nil && cam.Perspective.Yfov > 0 {
		lens = 0.5 * defaultSensorWidth / math.Tan(float64(cam.Perspective.Yfov)/2)
	}
	scene.SetConstant(name, PATH_LENS, lens)
}

var errNoAnimations = errors.New("no animations in glTF document")
