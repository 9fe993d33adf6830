package anm

import (
	"errors"
	"fmt"
	"log"

	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
)

// assembler 把一个 Animation 组装成 Anm 与所在页面
type assembler struct {
	scene  SceneSource
	anim   *Animation
	opts   Options
	logger *log.Logger

	refs   *StructReferenceTable
	tables []*ClumpTable
	anm    *Anm
	page   *Page
	others []*Entry
}

// AssemblePage 解析对象、建立引用表并生成全部条目
func AssemblePage(scene SceneSource, anim *Animation, opts Options, logger *log.Logger) (*Page, error) {
	if logger == nil {
		logger = log.Default()
	}
	a := &assembler{
		scene:  scene,
		anim:   anim,
		opts:   opts,
		logger: logger,
		refs:   NewStructReferenceTable(),
		page:   NewPage(),
		anm: &Anm{
			Info:       StructInfo{Name: anim.Name, Type: CHUNK_TYPE_ANM, Path: anim.Path},
			FrameCount: uint32(anim.FrameCount),
			FrameSize:  1,
			Loop:       anim.Loop,
		},
	}
	steps := []func() error{
		a.buildClumps,
		a.buildCoordParents,
		a.buildBoneEntries,
		a.buildMaterialEntries,
		a.buildCameraEntries,
		a.buildLightEntries,
		a.buildFog,
	}
	for _, step := range steps {
		if err := step(); err != nil {
			return nil, fmt.Errorf("animation %s: %w", anim.Name, err)
		}
	}
	a.anm.Entries = append(a.anm.Entries, a.others...)
	a.page.StructReferences = a.refs.References()
	chunks := a.page.Chunks
	a.page.Chunks = nil
	a.page.AddChunk(a.anm)
	a.page.Chunks = append(a.page.Chunks, chunks...)
	return a.page, nil
}

func (a *assembler) warnf(format string, args ...interface{}) {
	a.logger.Printf("warning: "+format, args...)
}

func (a *assembler) buildClumps() error {
	for _, name := range a.anim.Clumps {
		c, ok := a.scene.Clump(name)
		if !ok {
			a.warnf("clump %q not found in scene, skipped", name)
			continue
		}
		t, err := c.Build()
		if err != nil {
			return err
		}
		a.tables = append(a.tables, t)
		a.refs.RegisterAll(t.References())
		for _, si := range t.StructInfos() {
			a.page.AddStructInfo(si)
		}
	}
	for _, t := range a.tables {
		clump := &AnmClump{}
		idx, err := a.refs.IndexOf(t.Reference)
		if err != nil {
			return err
		}
		clump.ClumpIndex = uint32(idx)
		for _, group := range [][]StructReference{t.Coords, t.Materials} {
			for _, r := range group {
				i, err := a.refs.IndexOf(r)
				if err != nil {
					return err
				}
				clump.BoneMaterialIndices = append(clump.BoneMaterialIndices, uint32(i))
			}
		}
		for _, r := range t.Models {
			i, err := a.refs.IndexOf(r)
			if err != nil {
				return err
			}
			clump.ModelIndices = append(clump.ModelIndices, uint32(i))
		}
		a.anm.Clumps = append(a.anm.Clumps, clump)
	}
	return nil
}

func (a *assembler) tableIndex(clump string) int {
	for i, t := range a.tables {
		if t.Source.Name == clump {
			return i
		}
	}
	return -1
}

// coordIndex 通过引用表找到 ref 在 clump 骨骼+材质下标表中的位置
func (a *assembler) coordIndex(clumpIndex int, ref StructReference) (uint16, error) {
	idx, err := a.refs.IndexOf(ref)
	if err != nil {
		return 0, err
	}
	for i, v := range a.anm.Clumps[clumpIndex].BoneMaterialIndices {
		if int(v) == idx {
			return uint16(i), nil
		}
	}
	return 0, &MissingReferenceError{Reference: ref}
}

func (a *assembler) buildCoordParents() error {
	for ti, t := range a.tables {
		for _, b := range t.Bones {
			child, _ := t.CoordSlot(b.Name)
			if b.Parent >= 0 && b.Parent < len(t.Source.Bones) {
				if parent, ok := t.CoordSlot(t.Source.Bones[b.Parent].Name); ok {
					a.anm.CoordParents = append(a.anm.CoordParents, CoordParent{
						Parent: AnmCoord{ClumpIndex: int16(ti), CoordIndex: uint16(parent)},
						Child:  AnmCoord{ClumpIndex: int16(ti), CoordIndex: uint16(child)},
					})
				}
			}
		}
	}
	for ti, t := range a.tables {
		for _, b := range t.Bones {
			if b.CopyTransforms == nil {
				continue
			}
			child, _ := t.CoordSlot(b.Name)
			tj := a.tableIndex(b.CopyTransforms.Clump)
			if tj < 0 {
				a.warnf("copy transforms target clump %q of bone %q not exported, skipped", b.CopyTransforms.Clump, b.Name)
				continue
			}
			parent, ok := a.tables[tj].CoordSlot(b.CopyTransforms.Bone)
			if !ok {
				a.warnf("copy transforms target bone %q not found in clump %q, skipped", b.CopyTransforms.Bone, b.CopyTransforms.Clump)
				continue
			}
			a.anm.CoordParents = append(a.anm.CoordParents, CoordParent{
				Parent: AnmCoord{ClumpIndex: int16(tj), CoordIndex: uint16(parent)},
				Child:  AnmCoord{ClumpIndex: int16(ti), CoordIndex: uint16(child)},
			})
		}
	}
	return nil
}

func channelsByPath(chs []*Channel) map[string]*Channel {
	out := make(map[string]*Channel, len(chs))
	for _, ch := range chs {
		if ch != nil {
			out[ch.Path] = ch
		}
	}
	return out
}

func axesOf(ch *Channel) [][]Keyframe {
	if ch == nil {
		return nil
	}
	return ch.Axes
}

// BoneEntry 骨骼条目：位置、旋转、缩放、显示，没有曲线的轨道写默认值
func BoneEntry(coord AnmCoord, bone *Bone, channels []*Channel, span FrameRange) (*Entry, error) {
	e := &Entry{Coord: coord, Format: ENTRY_FORMAT_COORD}
	byPath := channelsByPath(channels)
	bind := &bone.Bind

	type trackPlan struct {
		track    int
		kind     ChannelKind
		ch       *Channel
		defaults []float64
	}
	plans := []trackPlan{{TRACK_COORD_LOCATION, CHANNEL_LOCATION, byPath[PATH_LOCATION], []float64{0, 0, 0}}}
	if q, ok := byPath[PATH_ROTATION_QUATERNION]; ok {
		plans = append(plans, trackPlan{TRACK_COORD_ROTATION, CHANNEL_ROTATION_QUATERNION, q, []float64{1, 0, 0, 0}})
	} else if eu, ok := byPath[PATH_ROTATION_EULER]; ok {
		plans = append(plans, trackPlan{TRACK_COORD_ROTATION, CHANNEL_ROTATION_EULER, eu, []float64{0, 0, 0}})
	} else {
		plans = append(plans, trackPlan{TRACK_COORD_ROTATION, CHANNEL_ROTATION_QUATERNION, nil, []float64{1, 0, 0, 0}})
	}
	plans = append(plans,
		trackPlan{TRACK_COORD_SCALE, CHANNEL_SCALE, byPath[PATH_SCALE], []float64{1, 1, 1}},
		trackPlan{TRACK_COORD_TOGGLE, CHANNEL_TOGGLE, byPath[PATH_TOGGLE], []float64{1}},
	)
	for _, s := range plans {
		h, t, err := EncodeChannelRange(s.track, s.kind, axesOf(s.ch), s.defaults, bind, span)
		if err != nil {
			return nil, fmt.Errorf("bone %s: %w", bone.Name, err)
		}
		e.addTrack(h, t)
	}
	return e, nil
}

func (a *assembler) buildBoneEntries() error {
	for ti, t := range a.tables {
		src := t.Source.Curves
		if src == nil {
			continue
		}
		for _, name := range src.AnimatedBones() {
			bone, ok := t.Bone(name)
			if !ok {
				if t.Source.BoneIndex(name) < 0 {
					a.warnf("animated bone %q not found in clump %q, skipped", name, t.Source.Name)
				}
				continue
			}
			slot, _ := t.CoordSlot(name)
			ci, err := a.coordIndex(ti, t.Coords[slot])
			if err != nil {
				return err
			}
			e, err := BoneEntry(AnmCoord{ClumpIndex: int16(ti), CoordIndex: ci}, bone, src.BoneChannels(name), a.anim.Range())
			if err != nil {
				return err
			}
			a.anm.Entries = append(a.anm.Entries, e)
		}
	}
	return nil
}

// MaterialEntry 22 个材质槽位；无曲线的槽位写静态常量，两者都没有则省略
func MaterialEntry(coord AnmCoord, material string, src MaterialCurveSource) (*Entry, error) {
	e := &Entry{Coord: coord, Format: ENTRY_FORMAT_MATERIAL}
	slots := materialSlotAxes(src.MaterialChannels(material))
	for slot := 0; slot < MATERIAL_SLOT_COUNT; slot++ {
		constant, hasConstant := src.MaterialConstant(material, slot)
		axes, animated := slots[slot]
		if !animated && !hasConstant {
			continue
		}
		var axis [][]Keyframe
		if animated {
			axis = [][]Keyframe{axes}
		}
		h, t, err := EncodeChannel(slot, CHANNEL_FLOAT, axis, []float64{constant}, nil)
		if err != nil {
			return nil, fmt.Errorf("material %s: %w", material, err)
		}
		e.addTrack(h, t)
	}
	return e, nil
}

func (a *assembler) buildMaterialEntries() error {
	if !a.opts.ExportMaterialAnimations {
		return nil
	}
	for ti, t := range a.tables {
		src := t.Source.MaterialCurves
		if src == nil {
			continue
		}
		for _, ref := range t.Materials {
			ci, err := a.coordIndex(ti, ref)
			if err != nil {
				return err
			}
			e, err := MaterialEntry(AnmCoord{ClumpIndex: int16(ti), CoordIndex: ci}, ref.Name, src)
			if err != nil {
				return err
			}
			if len(e.Headers) > 0 {
				a.anm.Entries = append(a.anm.Entries, e)
			}
		}
	}
	return nil
}

func (a *assembler) nextOther(format EntryFormat) *Entry {
	e := &Entry{Coord: AnmCoord{ClumpIndex: -1, CoordIndex: uint16(len(a.others))}, Format: format}
	a.others = append(a.others, e)
	return e
}

func (a *assembler) chunkPath(path string) string {
	if path != "" {
		return path
	}
	return a.anim.Path
}

// sampleDense 逐帧采样一个属性
func sampleDense(s Sampler, objectID, path string, frames []int) ([][]float64, error) {
	out := make([][]float64, 0, len(frames))
	for _, f := range frames {
		v, err := s.Sample(objectID, path, f)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

// denseAxes 逐帧数据转为按轴的关键帧，帧号相对动作起点
func denseAxes(values [][]float64) [][]Keyframe {
	if len(values) == 0 {
		return nil
	}
	axes := make([][]Keyframe, len(values[0]))
	for f, v := range values {
		for i := range axes {
			if i < len(v) {
				axes[i] = append(axes[i], Keyframe{Frame: f, Value: v[i]})
			}
		}
	}
	return axes
}

// encodeDenseRotation 少于两帧时写欧拉角 Fixed，否则写压缩四元数表
func encodeDenseRotation(track int, values [][]float64) (TrackHeader, Track, error) {
	if len(values) < 2 {
		v := []float64{1, 0, 0, 0}
		if len(values) == 1 {
			v = values[0]
		}
		key, err := convertKey(CHANNEL_OBJECT_ROTATION, KEY_FORMAT_EULER_XYZ_FIXED, nil, v)
		if err != nil {
			return TrackHeader{}, Track{}, err
		}
		return newTrack(track, KEY_FORMAT_EULER_XYZ_FIXED, []Key{key})
	}
	return EncodeTable(track, CHANNEL_OBJECT_ROTATION, KEY_FORMAT_QUATERNION_SHORT_TABLE, values, nil)
}

func (a *assembler) buildCameraEntries() error {
	frames := a.anim.frames()
	for _, name := range a.anim.Cameras {
		cam, ok := a.scene.Camera(name)
		if !ok {
			a.warnf("camera %q not found in scene, skipped", name)
			continue
		}
		loc, err := sampleDense(a.scene, cam.Name, PATH_LOCATION, frames)
		if err != nil {
			return err
		}
		rot, err := sampleDense(a.scene, cam.Name, PATH_ROTATION_QUATERNION, frames)
		if err != nil {
			return err
		}
		lens, err := sampleDense(a.scene, cam.Name, PATH_LENS, frames)
		if err != nil {
			return err
		}
		sensor, err := sampleDense(a.scene, cam.Name, PATH_SENSOR_WIDTH, frames)
		if err != nil {
			return err
		}
		fov := make([][]float64, len(lens))
		for i := range lens {
			fov[i] = []float64{CameraFOV(first(sensor[i], 36), first(lens[i], 50))}
		}

		e := a.nextOther(ENTRY_FORMAT_CAMERA)
		h, t, err := EncodeChannel(TRACK_CAMERA_LOCATION, CHANNEL_OBJECT_LOCATION, denseAxes(loc), []float64{0, 0, 0}, nil)
		if err != nil {
			return err
		}
		e.addTrack(h, t)
		if h, t, err = encodeDenseRotation(TRACK_CAMERA_ROTATION, rot); err != nil {
			return err
		}
		e.addTrack(h, t)
		if h, t, err = EncodeChannel(TRACK_CAMERA_FOV, CHANNEL_FOV, denseAxes(fov), []float64{45}, nil); err != nil {
			return err
		}
		e.addTrack(h, t)

		chunk := NewNuccCamera(cam.Name, a.chunkPath(cam.Path))
		if len(fov) > 0 {
			chunk.FOV = float32(fov[0][0])
		}
		a.page.AddChunk(chunk)
	}
	return nil
}

// optionalDense 属性不存在时返回 nil
func optionalDense(s Sampler, objectID, path string, frames []int) ([][]float64, error) {
	v, err := sampleDense(s, objectID, path, frames)
	if errors.Is(err, ErrNoSample) {
		return nil, nil
	}
	return v, err
}

func (a *assembler) colorStrength(e *Entry, light *LightObject, frames []int) ([][]float64, [][]float64, error) {
	color, err := sampleDense(a.scene, light.Name, PATH_COLOR, frames)
	if err != nil {
		return nil, nil, err
	}
	energy, err := sampleDense(a.scene, light.Name, PATH_ENERGY, frames)
	if err != nil {
		return nil, nil, err
	}
	h, t, err := EncodeTable(0, CHANNEL_COLOR, KEY_FORMAT_COLOR_RGB_TABLE, color, nil)
	if err != nil {
		return nil, nil, err
	}
	e.addTrack(h, t)
	if h, t, err = EncodeTable(1, CHANNEL_FLOAT, KEY_FORMAT_FLOAT_TABLE, energy, nil); err != nil {
		return nil, nil, err
	}
	e.addTrack(h, t)
	return color, energy, nil
}

func rgb(v [][]float64) vec3.T {
	var out vec3.T
	if len(v) == 0 {
		return out
	}
	for i := 0; i < 3 && i < len(v[0]); i++ {
		out[i] = float32(v[0][i])
	}
	return out
}

func firstOf(v [][]float64, def float64) float32 {
	if len(v) == 0 {
		return float32(def)
	}
	return float32(first(v[0], def))
}

func (a *assembler) buildLightEntries() error {
	frames := a.anim.frames()
	var suns, points, areas []*LightObject
	for _, name := range a.anim.Lights {
		l, ok := a.scene.Light(name)
		if !ok {
			a.warnf("light %q not found in scene, skipped", name)
			continue
		}
		switch l.Kind {
		case LIGHT_SUN:
			suns = append(suns, l)
		case LIGHT_POINT:
			points = append(points, l)
		case LIGHT_AREA:
			if a.opts.ExportAmbient {
				areas = append(areas, l)
			}
		}
	}

	for _, l := range suns {
		e := a.nextOther(ENTRY_FORMAT_LIGHT_DIRC)
		color, energy, err := a.colorStrength(e, l, frames)
		if err != nil {
			return err
		}
		rot, err := sampleDense(a.scene, l.Name, PATH_ROTATION_QUATERNION, frames)
		if err != nil {
			return err
		}
		h, t, err := encodeDenseRotation(TRACK_LIGHT_DIRC_DIRECTION, rot)
		if err != nil {
			return err
		}
		e.addTrack(h, t)

		chunk := NewNuccLightDirc(l.Name, a.chunkPath(l.Path))
		chunk.Color = rgb(color)
		chunk.Strength = firstOf(energy, 1)
		if len(rot) > 0 {
			chunk.Direction = float32Quat(ConvertObjectRotation(rot[0]))
		}
		a.page.AddChunk(chunk)
	}

	for _, l := range points {
		e := a.nextOther(ENTRY_FORMAT_LIGHT_POINT)
		color, energy, err := a.colorStrength(e, l, frames)
		if err != nil {
			return err
		}
		loc, err := sampleDense(a.scene, l.Name, PATH_LOCATION, frames)
		if err != nil {
			return err
		}
		h, t, err := EncodeChannel(TRACK_LIGHT_POINT_POSITION, CHANNEL_OBJECT_LOCATION, denseAxes(loc), []float64{0, 0, 0}, nil)
		if err != nil {
			return err
		}
		e.addTrack(h, t)

		chunk := NewNuccLightPoint(l.Name, a.chunkPath(l.Path))
		chunk.Color = rgb(color)
		chunk.Strength = firstOf(energy, 0)
		if len(loc) > 0 {
			chunk.Position = float32Vec3(ConvertObjectLocation(loc[0]))
		}
		for _, r := range []struct {
			track int
			path  string
			dst   *float32
		}{
			{TRACK_LIGHT_POINT_RADIUS, PATH_RADIUS, &chunk.Radius},
			{TRACK_LIGHT_POINT_CUTOFF, PATH_CUTOFF, &chunk.Cutoff},
		} {
			v, err := optionalDense(a.scene, l.Name, r.path, frames)
			if err != nil {
				return err
			}
			if len(v) == 0 {
				continue
			}
			h, t, err := EncodeTable(r.track, CHANNEL_FLOAT, KEY_FORMAT_FLOAT_TABLE, v, nil)
			if err != nil {
				return err
			}
			e.addTrack(h, t)
			*r.dst = firstOf(v, float64(*r.dst))
		}
		a.page.AddChunk(chunk)
	}

	for _, l := range areas {
		e := a.nextOther(ENTRY_FORMAT_AMBIENT)
		color, _, err := a.colorStrength(e, l, frames)
		if err != nil {
			return err
		}
		chunk := NewNuccAmbient(l.Name, a.chunkPath(l.Path))
		c := rgb(color)
		if len(color) > 0 {
			chunk.Color = vec4.FromVec3(&c)
		}
		a.page.AddChunk(chunk)
	}
	return nil
}

// buildFog 雾的颜色与起止距离并入环境光条目
func (a *assembler) buildFog() error {
	if !a.opts.ExportFog || a.anim.Fog == "" {
		return nil
	}
	fog, ok := a.scene.Fog(a.anim.Fog)
	if !ok {
		a.warnf("fog %q not found in scene, skipped", a.anim.Fog)
		return nil
	}
	frames := a.anim.frames()
	var target *Entry
	for _, e := range a.others {
		if e.Format == ENTRY_FORMAT_AMBIENT {
			target = e
			break
		}
	}
	if target == nil {
		target = a.nextOther(ENTRY_FORMAT_AMBIENT)
		a.page.AddChunk(NewNuccAmbient(fog.Name, a.anim.Path))
	}

	color, err := optionalDense(a.scene, fog.Name, PATH_FOG_COLOR, frames)
	if err != nil {
		return err
	}
	if len(color) > 0 {
		h, t, err := EncodeTable(TRACK_AMBIENT_FOG_COLOR, CHANNEL_COLOR, KEY_FORMAT_COLOR_RGB_TABLE, color, nil)
		if err != nil {
			return err
		}
		target.addTrack(h, t)
	}
	for _, r := range []struct {
		track int
		path  string
	}{
		{TRACK_AMBIENT_FOG_NEAR, PATH_FOG_START},
		{TRACK_AMBIENT_FOG_FAR, PATH_FOG_END},
	} {
		v, err := optionalDense(a.scene, fog.Name, r.path, frames)
		if err != nil {
			return err
		}
		if len(v) == 0 {
			continue
		}
		h, t, err := EncodeTable(r.track, CHANNEL_FLOAT, KEY_FORMAT_FLOAT_TABLE, v, nil)
		if err != nil {
			return err
		}
		target.addTrack(h, t)
	}
	return nil
}
