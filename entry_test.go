package anm

import (
	"bytes"
	"errors"
	"log"
	"strings"
	"testing"

	"github.com/flywave/go3d/vec3"
)

const testChunkPath = "c/1nrt/max/1nrt.max"

func testScene() *MemoryScene {
	scene := NewMemoryScene()

	bones := NewChannelSet()
	bones.Add("hip", &Channel{Path: PATH_LOCATION, Axes: [][]Keyframe{
		nil, nil, {{Frame: 0, Value: 0}, {Frame: 10, Value: 5}},
	}})
	bones.Add("root", &Channel{Path: PATH_ROTATION_QUATERNION, Axes: [][]Keyframe{
		{{Frame: 0, Value: 1}}, {{Frame: 0, Value: 0}}, {{Frame: 0, Value: 0}}, {{Frame: 0, Value: 0}},
	}})
	mats := NewChannelSet()
	mats.Add("skin", &Channel{Path: "uv_offset_0", Axes: [][]Keyframe{
		{{Frame: 0, Value: 0}, {Frame: 5, Value: 0.5}},
	}})
	mats.SetConstant("skin", MATERIAL_SLOT_ALPHA, 1)

	scene.AddClump(&AnimatedClump{
		Name: "1nrtbod1",
		Path: testChunkPath,
		Bones: []*Bone{
			{Name: "root", Parent: -1, Bind: IdentityBindPose()},
			{Name: "hip", Parent: 0, Bind: IdentityBindPose()},
			{Name: "hip_lod1", Parent: 1, Bind: IdentityBindPose()},
		},
		Models:         []string{"body"},
		Materials:      []string{"skin"},
		Curves:         bones,
		MaterialCurves: mats,
	})

	scene.AddCamera(&CameraObject{Name: "cam"})
	scene.SetConstant("cam", PATH_ROTATION_QUATERNION, 1, 0, 0, 0)
	scene.SetConstant("cam", PATH_LENS, 18)
	scene.SetConstant("cam", PATH_SENSOR_WIDTH, 36)
	for f := 0; f < 11; f++ {
		scene.Set("cam", PATH_LOCATION, f, 0, 0, float64(f))
	}

	scene.AddLight(&LightObject{Name: "sun", Kind: LIGHT_SUN})
	scene.SetConstant("sun", PATH_COLOR, 1, 1, 1)
	scene.SetConstant("sun", PATH_ENERGY, 2)
	scene.SetConstant("sun", PATH_ROTATION_QUATERNION, 1, 0, 0, 0)

	scene.AddLight(&LightObject{Name: "lamp", Kind: LIGHT_POINT})
	scene.SetConstant("lamp", PATH_COLOR, 1, 0, 0)
	scene.SetConstant("lamp", PATH_ENERGY, 3)
	scene.SetConstant("lamp", PATH_LOCATION, 1, 2, 3)
	scene.SetConstant("lamp", PATH_RADIUS, 50)

	scene.AddLight(&LightObject{Name: "area", Kind: LIGHT_AREA})
	scene.SetConstant("area", PATH_COLOR, 0, 0, 1)
	scene.SetConstant("area", PATH_ENERGY, 1)

	scene.AddFog(&FogObject{Name: "mist"})
	scene.SetConstant("mist", PATH_FOG_COLOR, 0.5, 0.5, 0.5)
	scene.SetConstant("mist", PATH_FOG_START, 10)
	return scene
}

func testAnimation() *Animation {
	return &Animation{
		Name:       "Walk",
		Path:       testChunkPath,
		Loop:       true,
		FrameCount: 11,
		Clumps:     []string{"1nrtbod1", "ghost"},
		Cameras:    []string{"cam"},
		Lights:     []string{"lamp", "sun", "area"},
		Fog:        "mist",
	}
}

var allOptions = Options{ExportMaterialAnimations: true, ExportAmbient: true, ExportFog: true}

// TestAssemblePage 测试完整页面组装
func TestAssemblePage(t *testing.T) {
	var logs bytes.Buffer
	p, err := AssemblePage(testScene(), testAnimation(), allOptions, log.New(&logs, "", 0))
	if err != nil {
		t.Fatalf("AssemblePage failed: %v", err)
	}
	if !strings.Contains(logs.String(), `"ghost"`) {
		t.Errorf("Expected warning for missing clump, got %q", logs.String())
	}

	a := p.Anm()
	if a == nil {
		t.Fatal("Page has no anm chunk")
	}
	if p.Chunks[0] != Chunk(a) {
		t.Error("Anm chunk should come first")
	}
	if a.FrameCount != 11 || !a.Loop || a.Info.Name != "Walk" {
		t.Errorf("Unexpected anm header %+v", a.Info)
	}

	// 引用表: 代表模型, 骨骼, 模型, 材质
	names := []string{"body", "root", "hip", "body", "skin"}
	if len(p.StructReferences) != len(names) {
		t.Fatalf("Expected %d references, got %d", len(names), len(p.StructReferences))
	}
	for i, n := range names {
		if p.StructReferences[i].Name != n {
			t.Errorf("Reference %d: expected %s, got %s", i, n, p.StructReferences[i].Name)
		}
	}
	if p.StructReferences[0].Info.Type != CHUNK_TYPE_CLUMP {
		t.Errorf("Representative reference should point at the clump, got %s", p.StructReferences[0].Info.Type)
	}

	if len(a.Clumps) != 1 {
		t.Fatalf("Expected 1 clump, got %d", len(a.Clumps))
	}
	c := a.Clumps[0]
	if c.ClumpIndex != 0 || len(c.BoneMaterialIndices) != 3 || c.BoneMaterialIndices[2] != 4 || c.ModelIndices[0] != 3 {
		t.Errorf("Unexpected clump %+v", c)
	}
	if len(a.CoordParents) != 1 || a.CoordParents[0].Parent.CoordIndex != 0 || a.CoordParents[0].Child.CoordIndex != 1 {
		t.Errorf("Unexpected coord parents %+v", a.CoordParents)
	}

	wantFormats := []EntryFormat{
		ENTRY_FORMAT_COORD, ENTRY_FORMAT_COORD, ENTRY_FORMAT_MATERIAL,
		ENTRY_FORMAT_CAMERA, ENTRY_FORMAT_LIGHT_DIRC, ENTRY_FORMAT_LIGHT_POINT, ENTRY_FORMAT_AMBIENT,
	}
	if len(a.Entries) != len(wantFormats) {
		t.Fatalf("Expected %d entries, got %d", len(wantFormats), len(a.Entries))
	}
	for i, f := range wantFormats {
		if a.Entries[i].Format != f {
			t.Errorf("Entry %d: expected format %d, got %d", i, f, a.Entries[i].Format)
		}
	}
	if a.OtherEntryCount() != 4 {
		t.Errorf("Expected 4 other entries, got %d", a.OtherEntryCount())
	}
	for i, e := range a.Entries[3:] {
		if e.Coord.ClumpIndex != -1 || int(e.Coord.CoordIndex) != i {
			t.Errorf("Other entry %d has coord %+v", i, e.Coord)
		}
	}

	hip := a.Entries[0]
	if hip.Coord.CoordIndex != 1 || len(hip.Headers) != 4 {
		t.Errorf("Unexpected hip entry coord=%+v tracks=%d", hip.Coord, len(hip.Headers))
	}
	h, tr := hip.Track(TRACK_COORD_LOCATION)
	if h == nil || h.Format != KEY_FORMAT_VECTOR3_LINEAR || tr.Keys[1].Frame != 1000 || tr.Keys[1].Values[2] != 500 {
		t.Errorf("Unexpected hip location track")
	}
	root := a.Entries[1]
	if h, _ := root.Track(TRACK_COORD_ROTATION); h == nil || h.Format != KEY_FORMAT_EULER_XYZ_FIXED {
		t.Errorf("Expected fixed euler rotation on root")
	}

	mat := a.Entries[2]
	if mat.Coord.CoordIndex != 2 || len(mat.Headers) != 2 {
		t.Errorf("Unexpected material entry coord=%+v tracks=%d", mat.Coord, len(mat.Headers))
	}
	if h, _ := mat.Track(MATERIAL_SLOT_ALPHA); h == nil || h.Format != KEY_FORMAT_FLOAT_FIXED {
		t.Errorf("Expected constant alpha track")
	}

	cam := a.Entries[3]
	if h, _ := cam.Track(TRACK_CAMERA_ROTATION); h == nil || h.Format != KEY_FORMAT_QUATERNION_SHORT_TABLE {
		t.Errorf("Expected quaternion short table for camera rotation")
	}
	if h, tr := cam.Track(TRACK_CAMERA_FOV); h == nil || !near(float64(tr.Keys[0].Values[0]), 90) {
		t.Errorf("Expected camera fov 90")
	}

	point := a.Entries[5]
	if h, _ := point.Track(TRACK_LIGHT_POINT_RADIUS); h == nil {
		t.Error("Expected radius track on point light")
	}
	if h, _ := point.Track(TRACK_LIGHT_POINT_CUTOFF); h != nil {
		t.Error("Unexpected cutoff track on point light")
	}

	ambient := a.Entries[6]
	for _, idx := range []int{TRACK_AMBIENT_COLOR, TRACK_AMBIENT_STRENGTH, TRACK_AMBIENT_FOG_COLOR, TRACK_AMBIENT_FOG_NEAR} {
		if h, _ := ambient.Track(idx); h == nil {
			t.Errorf("Expected ambient track %d", idx)
		}
	}
	if h, _ := ambient.Track(TRACK_AMBIENT_FOG_FAR); h != nil {
		t.Error("Unexpected fog far track")
	}

	if len(p.Chunks) != 5 {
		t.Fatalf("Expected 5 chunks, got %d", len(p.Chunks))
	}
	if cc, ok := p.Chunks[1].(*NuccCamera); !ok || !near(float64(cc.FOV), 90) || cc.Info.Path != testChunkPath {
		t.Errorf("Unexpected camera chunk %#v", p.Chunks[1])
	}
	if lp, ok := p.Chunks[3].(*NuccLightPoint); !ok || lp.Radius != 50 || lp.Cutoff != 400 || lp.Position != (vec3.T{100, 200, 300}) {
		t.Errorf("Unexpected point light chunk %#v", p.Chunks[3])
	}

	// 组装结果可写入容器
	var buf bytes.Buffer
	x := NewXfbin()
	x.AddPage(p)
	if err := XfbinMarshal(&buf, x); err != nil {
		t.Fatalf("XfbinMarshal failed: %v", err)
	}
}

// TestBoneEntryTracks 测试骨骼条目的轨道顺序与默认值
func TestBoneEntryTracks(t *testing.T) {
	loc := &Channel{Path: PATH_LOCATION, Axes: [][]Keyframe{
		nil, nil, {{Frame: 0, Value: 0}, {Frame: 10, Value: 5}},
	}}
	euler := &Channel{Path: PATH_ROTATION_EULER, Axes: axesOf3([]int{1, 3}, []float64{0, 0}, []float64{0, 0}, []float64{0, 1})}

	tests := []struct {
		name     string
		channels []*Channel
		rotation KeyFormat
	}{
		{"LocationOnly", []*Channel{loc}, KEY_FORMAT_EULER_XYZ_FIXED},
		{"NoChannels", nil, KEY_FORMAT_EULER_XYZ_FIXED},
		{"Euler", []*Channel{loc, euler}, KEY_FORMAT_VECTOR3_TABLE},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			bone := &Bone{Name: "Root", Parent: -1, Bind: IdentityBindPose()}
			e, err := BoneEntry(AnmCoord{}, bone, tt.channels, FrameRange{Start: 0, Count: 6})
			if err != nil {
				t.Fatalf("BoneEntry failed: %v", err)
			}
			want := []uint16{TRACK_COORD_LOCATION, TRACK_COORD_ROTATION, TRACK_COORD_SCALE, TRACK_COORD_TOGGLE}
			if len(e.Headers) != len(want) {
				t.Fatalf("Expected %d tracks, got %d", len(want), len(e.Headers))
			}
			for i, w := range want {
				if e.Headers[i].TrackIndex != w {
					t.Errorf("Track %d: expected index %d, got %d", i, w, e.Headers[i].TrackIndex)
				}
			}
			h, tr := e.Track(TRACK_COORD_ROTATION)
			if h == nil || h.Format != tt.rotation {
				t.Fatalf("Expected rotation format %d, got %+v", tt.rotation, h)
			}
			if tt.rotation == KEY_FORMAT_EULER_XYZ_FIXED {
				for _, v := range tr.Keys[0].Values {
					if v != 0 {
						t.Errorf("Expected identity rotation, got %v", tr.Keys[0].Values)
					}
				}
			} else if len(tr.Keys) != 6 {
				t.Errorf("Expected euler table to cover 6 frames, got %d", len(tr.Keys))
			}
		})
	}
}

// TestAssemblePageOptions 测试导出开关
func TestAssemblePageOptions(t *testing.T) {
	anim := testAnimation()
	p, err := AssemblePage(testScene(), anim, Options{ExportFog: true}, log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("AssemblePage failed: %v", err)
	}
	a := p.Anm()
	for _, e := range a.Entries {
		if e.Format == ENTRY_FORMAT_MATERIAL {
			t.Error("Material entries should be skipped")
		}
	}
	// 雾单独生成环境光条目
	last := a.Entries[len(a.Entries)-1]
	if last.Format != ENTRY_FORMAT_AMBIENT {
		t.Fatalf("Expected ambient entry for fog, got %d", last.Format)
	}
	if h, _ := last.Track(TRACK_AMBIENT_COLOR); h != nil {
		t.Error("Fog-only ambient entry should not carry light color")
	}
	amb, ok := p.Chunks[len(p.Chunks)-1].(*NuccAmbient)
	if !ok || amb.Info.Name != "mist" {
		t.Errorf("Expected ambient chunk for fog, got %#v", p.Chunks[len(p.Chunks)-1])
	}

	p, err = AssemblePage(testScene(), anim, Options{}, log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("AssemblePage failed: %v", err)
	}
	for _, e := range p.Anm().Entries {
		if e.Format == ENTRY_FORMAT_AMBIENT {
			t.Error("Ambient entries should be skipped")
		}
	}
}

// TestAssemblePageCopyTransforms 测试跨 clump 复制变换
func TestAssemblePageCopyTransforms(t *testing.T) {
	scene := testScene()
	scene.AddClump(&AnimatedClump{
		Name:  "2sword",
		Path:  testChunkPath,
		Bones: []*Bone{{Name: "blade", Parent: -1, CopyTransforms: &BoneTarget{Clump: "1nrtbod1", Bone: "hip"}}},
	})
	anim := &Animation{Name: "Attack", Path: testChunkPath, FrameCount: 2, Clumps: []string{"1nrtbod1", "2sword"}}
	p, err := AssemblePage(scene, anim, Options{}, log.New(&bytes.Buffer{}, "", 0))
	if err != nil {
		t.Fatalf("AssemblePage failed: %v", err)
	}
	a := p.Anm()
	if len(a.Clumps) != 2 {
		t.Fatalf("Expected 2 clumps, got %d", len(a.Clumps))
	}
	last := a.CoordParents[len(a.CoordParents)-1]
	want := CoordParent{Parent: AnmCoord{ClumpIndex: 0, CoordIndex: 1}, Child: AnmCoord{ClumpIndex: 1, CoordIndex: 0}}
	if last != want {
		t.Errorf("Expected %+v, got %+v", want, last)
	}

	var logs bytes.Buffer
	anim.Clumps = []string{"2sword"}
	if _, err := AssemblePage(scene, anim, Options{}, log.New(&logs, "", 0)); err != nil {
		t.Fatalf("AssemblePage failed: %v", err)
	}
	if !strings.Contains(logs.String(), "copy transforms") {
		t.Errorf("Expected copy transforms warning, got %q", logs.String())
	}
}

// TestAssemblePageMissingSample 测试必需属性缺失
func TestAssemblePageMissingSample(t *testing.T) {
	scene := testScene()
	scene.AddCamera(&CameraObject{Name: "empty"})
	anim := &Animation{Name: "Cut", FrameCount: 1, Cameras: []string{"empty"}}
	_, err := AssemblePage(scene, anim, Options{}, log.New(&bytes.Buffer{}, "", 0))
	if !errors.Is(err, ErrNoSample) {
		t.Errorf("Expected ErrNoSample, got %v", err)
	}
}

// TestFrameSampler 测试逐帧取值
func TestFrameSampler(t *testing.T) {
	s := NewFrameSampler()
	s.Set("obj", PATH_LOCATION, 2, 1, 1, 1)
	s.Set("obj", PATH_LOCATION, 5, 2, 2, 2)
	s.SetConstant("obj", PATH_ENERGY, 4)

	tests := []struct {
		name  string
		path  string
		frame int
		want  float64
	}{
		{"Exact", PATH_LOCATION, 5, 2},
		{"Hold", PATH_LOCATION, 4, 1},
		{"BeforeFirst", PATH_LOCATION, 0, 1},
		{"After", PATH_LOCATION, 9, 2},
		{"Constant", PATH_ENERGY, 3, 4},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v, err := s.Sample("obj", tt.path, tt.frame)
			if err != nil {
				t.Fatalf("Sample failed: %v", err)
			}
			if v[0] != tt.want {
				t.Errorf("Expected %f, got %f", tt.want, v[0])
			}
		})
	}

	if !s.Has("obj", PATH_ENERGY) || s.Has("obj", PATH_COLOR) {
		t.Error("Has returned wrong result")
	}
	if _, err := s.Sample("obj", PATH_COLOR, 0); !errors.Is(err, ErrNoSample) {
		t.Errorf("Expected ErrNoSample, got %v", err)
	}
}
