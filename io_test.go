package anm

import (
	"bytes"
	"errors"
	"testing"
)

func sampleAnm() *Anm {
	bone := &Entry{Coord: AnmCoord{ClumpIndex: 0, CoordIndex: 1}, Format: ENTRY_FORMAT_COORD}
	bone.addTrack(TrackHeader{TrackIndex: TRACK_COORD_LOCATION, Format: KEY_FORMAT_VECTOR3_LINEAR, FrameCount: 3}, Track{Keys: []Key{
		LinearKey(0, 0, 0, 0), LinearKey(1000, 0, 0, 500), LinearKey(-1, 0, 0, 500),
	}})
	bone.addTrack(TrackHeader{TrackIndex: TRACK_COORD_ROTATION, Format: KEY_FORMAT_QUATERNION_SHORT_TABLE, FrameCount: 1}, Track{Keys: []Key{
		ShortKey(0, 0, 0, 0x4000),
	}})
	bone.addTrack(TrackHeader{TrackIndex: TRACK_COORD_TOGGLE, Format: KEY_FORMAT_FLOAT_FIXED, FrameCount: 1}, Track{Keys: []Key{FixedKey(1)}})

	light := &Entry{Coord: AnmCoord{ClumpIndex: -1, CoordIndex: 4}, Format: ENTRY_FORMAT_LIGHT_DIRC}
	light.addTrack(TrackHeader{TrackIndex: TRACK_LIGHT_DIRC_COLOR, Format: KEY_FORMAT_COLOR_RGB_TABLE, FrameCount: 4}, Track{Keys: []Key{
		ColorKey([3]uint8{255, 0, 0}), ColorKey([3]uint8{0, 255, 0}), ColorKey([3]uint8{0, 0, 255}), ColorKey([3]uint8{0, 0, 255}),
	}})
	light.addTrack(TrackHeader{TrackIndex: TRACK_LIGHT_DIRC_STRENGTH, Format: KEY_FORMAT_FLOAT_TABLE, FrameCount: 2}, Track{Keys: []Key{
		TableKey(1), TableKey(0.5),
	}})

	return &Anm{
		Info:       StructInfo{Name: "Walk", Type: CHUNK_TYPE_ANM, Path: "c/1nrt/max/1nrt.max"},
		FrameCount: 11,
		FrameSize:  1,
		Loop:       true,
		Clumps: []*AnmClump{
			{ClumpIndex: 0, BoneMaterialIndices: []uint32{1, 2}, ModelIndices: []uint32{3}},
		},
		CoordParents: []CoordParent{
			{Parent: AnmCoord{0, 0}, Child: AnmCoord{0, 1}},
		},
		Entries: []*Entry{bone, light},
	}
}

// TestAnmMarshalUnmarshal 测试 anm chunk 序列化往返
func TestAnmMarshalUnmarshal(t *testing.T) {
	a := sampleAnm()
	var buf bytes.Buffer
	if err := AnmMarshal(&buf, a); err != nil {
		t.Fatalf("AnmMarshal failed: %v", err)
	}
	if buf.Len()%4 != 0 {
		t.Errorf("Expected 4-byte aligned payload, got %d bytes", buf.Len())
	}

	got, err := AnmUnMarshal(bytes.NewReader(buf.Bytes()))
	if err != nil {
		t.Fatalf("AnmUnMarshal failed: %v", err)
	}
	if got.FrameCount != a.FrameCount || got.FrameSize != a.FrameSize || got.Loop != a.Loop {
		t.Errorf("Header mismatch: %+v", got)
	}
	if len(got.Clumps) != 1 || len(got.Clumps[0].BoneMaterialIndices) != 2 || got.Clumps[0].ModelIndices[0] != 3 {
		t.Errorf("Clump mismatch: %+v", got.Clumps)
	}
	if len(got.CoordParents) != 1 || got.CoordParents[0].Child.CoordIndex != 1 {
		t.Errorf("Coord parent mismatch: %+v", got.CoordParents)
	}
	if len(got.Entries) != 2 {
		t.Fatalf("Expected 2 entries, got %d", len(got.Entries))
	}
	if got.OtherEntryCount() != 1 {
		t.Errorf("Expected 1 other entry, got %d", got.OtherEntryCount())
	}

	h, tr := got.Entries[0].Track(TRACK_COORD_LOCATION)
	if h == nil || h.FrameCount != 3 {
		t.Fatalf("Location track missing")
	}
	if tr.Keys[1].Frame != 1000 || tr.Keys[1].Values[2] != 500 || tr.Keys[2].Frame != -1 {
		t.Errorf("Location keys mismatch: %+v", tr.Keys)
	}
	_, tr = got.Entries[0].Track(TRACK_COORD_ROTATION)
	if tr.Keys[0].Shorts[3] != 0x4000 {
		t.Errorf("Expected w=0x4000, got %v", tr.Keys[0].Shorts)
	}
	_, tr = got.Entries[1].Track(TRACK_LIGHT_DIRC_COLOR)
	if !bytes.Equal(tr.Keys[2].Bytes, []byte{0, 0, 255}) {
		t.Errorf("Color keys mismatch: %v", tr.Keys[2].Bytes)
	}

	// 再次序列化字节一致
	var again bytes.Buffer
	if err := AnmMarshal(&again, got); err != nil {
		t.Fatalf("AnmMarshal failed: %v", err)
	}
	if !bytes.Equal(again.Bytes(), buf.Bytes()) {
		t.Error("Re-encoded anm differs")
	}
}

// TestAnmHeader 测试头部字段
func TestAnmHeader(t *testing.T) {
	a := sampleAnm()
	var buf bytes.Buffer
	if err := AnmMarshal(&buf, a); err != nil {
		t.Fatalf("AnmMarshal failed: %v", err)
	}
	b := buf.Bytes()
	want := []byte{
		0, 0, 0x04, 0x4C, // 11*100
		0, 0, 0, 100,
		0, 2, // entries
		0, 1, // loop
		0, 1, // clumps
		0, 1, // other
		0, 0, 0, 1, // coord parents
	}
	if !bytes.Equal(b[:len(want)], want) {
		t.Errorf("Expected header % X, got % X", want, b[:len(want)])
	}
}

// TestTrackPadding 测试关键帧负载补齐
func TestTrackPadding(t *testing.T) {
	tests := []struct {
		name   string
		header TrackHeader
		keys   []Key
		size   int
	}{
		{"OpacityShort", TrackHeader{Format: KEY_FORMAT_OPACITY_SHORT_TABLE, FrameCount: 1}, []Key{ShortKey(7)}, 4},
		{"ColorOne", TrackHeader{Format: KEY_FORMAT_COLOR_RGB_TABLE, FrameCount: 1}, []Key{ColorKey([3]uint8{1, 2, 3})}, 4},
		{"ColorFour", TrackHeader{Format: KEY_FORMAT_COLOR_RGB_TABLE, FrameCount: 4}, []Key{
			ColorKey([3]uint8{1, 2, 3}), ColorKey([3]uint8{1, 2, 3}), ColorKey([3]uint8{1, 2, 3}), ColorKey([3]uint8{1, 2, 3}),
		}, 12},
		{"ScaleShort", TrackHeader{Format: KEY_FORMAT_SCALE_SHORT_TABLE, FrameCount: 1}, []Key{ShortKey(1, 2, 3)}, 8},
		{"FloatLinear", TrackHeader{Format: KEY_FORMAT_FLOAT_LINEAR, FrameCount: 1}, []Key{LinearKey(0, 1)}, 8},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			if err := TrackMarshal(&buf, tt.header, &Track{Keys: tt.keys}); err != nil {
				t.Fatalf("TrackMarshal failed: %v", err)
			}
			if buf.Len() != tt.size {
				t.Errorf("Expected %d bytes, got %d", tt.size, buf.Len())
			}
			rd := bytes.NewReader(buf.Bytes())
			tr, err := TrackUnMarshal(rd, tt.header)
			if err != nil {
				t.Fatalf("TrackUnMarshal failed: %v", err)
			}
			if rd.Len() != 0 {
				t.Errorf("Expected all bytes consumed, %d left", rd.Len())
			}
			if len(tr.Keys) != len(tt.keys) {
				t.Errorf("Expected %d keys, got %d", len(tt.keys), len(tr.Keys))
			}
		})
	}
}

// TestTrackMarshalErrors 测试关键帧数量与分量校验
func TestTrackMarshalErrors(t *testing.T) {
	var buf bytes.Buffer
	if err := TrackMarshal(&buf, TrackHeader{Format: KEY_FORMAT_FLOAT_FIXED, FrameCount: 2}, &Track{Keys: []Key{FixedKey(1)}}); err == nil {
		t.Error("Expected frame count mismatch error")
	}
	if err := TrackMarshal(&buf, TrackHeader{Format: KEY_FORMAT_VECTOR3_FIXED, FrameCount: 1}, &Track{Keys: []Key{FixedKey(1)}}); err == nil {
		t.Error("Expected component count error")
	}
	if err := TrackMarshal(&buf, TrackHeader{Format: KEY_FORMAT_VECTOR3_BEZIER, FrameCount: 0}, &Track{}); err == nil {
		t.Error("Expected unsupported format error")
	}
}

// TestAnmOtherCountMismatch 测试 other 计数与条目不一致
func TestAnmOtherCountMismatch(t *testing.T) {
	a := sampleAnm()
	var buf bytes.Buffer
	if err := AnmMarshal(&buf, a); err != nil {
		t.Fatalf("AnmMarshal failed: %v", err)
	}
	b := buf.Bytes()
	// other 计数位于偏移 14
	b[15] = 2
	if _, err := AnmUnMarshal(bytes.NewReader(b)); !errors.Is(err, ErrInvalidAnm) {
		t.Errorf("Expected ErrInvalidAnm, got %v", err)
	}
}

// TestAnmUnMarshalCorrupt 测试头部计数超出数据长度
func TestAnmUnMarshalCorrupt(t *testing.T) {
	head := []byte{
		0, 0, 0x04, 0x4C,
		0, 0, 0, 100,
		0, 0, // entries
		0, 0, // loop
		0, 0, // clumps
		0, 0, // other
		0xFF, 0xFF, 0xFF, 0xF0, // coord parents
	}
	if _, err := AnmUnMarshal(bytes.NewReader(head)); !errors.Is(err, ErrInvalidAnm) {
		t.Errorf("Expected ErrInvalidAnm, got %v", err)
	}

	// chunk 解码失败时保留原始数据
	info := StructInfo{Name: "Walk", Type: CHUNK_TYPE_ANM}
	if c, ok := decodeChunk(info, head).(*NuccBinary); !ok || !bytes.Equal(c.Data, head) {
		t.Errorf("Expected raw chunk, got %#v", c)
	}
}

type failWriter struct{}

func (failWriter) Write(p []byte) (int, error) { return 0, errors.New("disk full") }

// TestAnmMarshalLimits 测试 16 位计数上限与写入错误
func TestAnmMarshalLimits(t *testing.T) {
	tests := []struct {
		name string
		edit func(a *Anm)
	}{
		{"Entries", func(a *Anm) { a.Entries = make([]*Entry, 1<<16) }},
		{"BoneMaterialIndices", func(a *Anm) { a.Clumps[0].BoneMaterialIndices = make([]uint32, 1<<16) }},
		{"Tracks", func(a *Anm) {
			a.Entries[0].Headers = make([]TrackHeader, 1<<16)
			a.Entries[0].Tracks = make([]Track, 1<<16)
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			a := sampleAnm()
			tt.edit(a)
			var buf bytes.Buffer
			if err := AnmMarshal(&buf, a); err == nil {
				t.Error("Expected count limit error")
			}
		})
	}

	if err := AnmMarshal(failWriter{}, sampleAnm()); err == nil {
		t.Error("Expected write error")
	}
}
