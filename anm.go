package anm

import "io"

// AnmCoord 指向某个 clump 中的骨骼或材质，ClumpIndex 为 -1 时指向其他条目
type AnmCoord struct {
	ClumpIndex int16
	CoordIndex uint16
}

type CoordParent struct {
	Parent AnmCoord
	Child  AnmCoord
}

// AnmClump BoneMaterialIndices 中骨骼在前、材质在后
type AnmClump struct {
	ClumpIndex          uint32
	BoneMaterialIndices []uint32
	ModelIndices        []uint32
}

type Entry struct {
	Coord   AnmCoord
	Format  EntryFormat
	Headers []TrackHeader
	Tracks  []Track
}

func (e *Entry) IsOther() bool {
	return e.Coord.ClumpIndex < 0
}

func (e *Entry) addTrack(h TrackHeader, t Track) {
	e.Headers = append(e.Headers, h)
	e.Tracks = append(e.Tracks, t)
}

func (e *Entry) Track(index int) (*TrackHeader, *Track) {
	for i := range e.Headers {
		if int(e.Headers[i].TrackIndex) == index {
			return &e.Headers[i], &e.Tracks[i]
		}
	}
	return nil, nil
}

// Anm nuccChunkAnm 的内容
type Anm struct {
	Info         StructInfo
	FrameCount   uint32
	FrameSize    uint32
	Loop         bool
	Clumps       []*AnmClump
	CoordParents []CoordParent
	Entries      []*Entry
}

func (a *Anm) ChunkInfo() StructInfo {
	return a.Info
}

func (a *Anm) MarshalChunk(wt io.Writer) error {
	return AnmMarshal(wt, a)
}

func (a *Anm) OtherEntryCount() int {
	n := 0
	for _, e := range a.Entries {
		if e.IsOther() {
			n++
		}
	}
	return n
}
