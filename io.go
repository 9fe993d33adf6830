package anm

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"math"
)

func toBigByteOrder(v interface{}) ([]byte, error) {
	b := &bytes.Buffer{}
	if e := binary.Write(b, binary.BigEndian, v); e != nil {
		return nil, e
	}
	return b.Bytes(), nil
}

func writeBigByte(wt io.Writer, v interface{}) error {
	buf, err := toBigByteOrder(v)
	if err != nil {
		return fmt.Errorf("encode %T: %w", v, err)
	}
	_, err = wt.Write(buf)
	return err
}

func writeAll(wt io.Writer, vs ...interface{}) error {
	for _, v := range vs {
		if err := writeBigByte(wt, v); err != nil {
			return err
		}
	}
	return nil
}

func readBigByte(rd io.Reader, v interface{}) error {
	return binary.Read(rd, binary.BigEndian, v)
}

// count16 头部中 16 位的计数
func count16(what string, n int) (uint16, error) {
	if n > math.MaxUint16 {
		return 0, fmt.Errorf("%d %s exceed the 16-bit count limit", n, what)
	}
	return uint16(n), nil
}

// fits 读取 count 个 size 字节的元素前检查剩余长度，无法得知长度的 reader 直接放行
func fits(rd io.Reader, count uint64, size int) bool {
	lr, ok := rd.(interface{ Len() int })
	if !ok {
		return true
	}
	return count*uint64(size) <= uint64(lr.Len())
}

func writePadding(wt io.Writer, n int) error {
	if pad := (4 - n%4) % 4; pad > 0 {
		_, err := wt.Write(make([]byte, pad))
		return err
	}
	return nil
}

func skipPadding(rd io.Reader, n int) error {
	if pad := (4 - n%4) % 4; pad > 0 {
		_, err := io.ReadFull(rd, make([]byte, pad))
		return err
	}
	return nil
}

func AnmCoordMarshal(wt io.Writer, c AnmCoord) error {
	return writeAll(wt, c.ClumpIndex, c.CoordIndex)
}

func AnmCoordUnMarshal(rd io.Reader) (AnmCoord, error) {
	c := AnmCoord{}
	if err := readBigByte(rd, &c.ClumpIndex); err != nil {
		return c, err
	}
	err := readBigByte(rd, &c.CoordIndex)
	return c, err
}

func AnmClumpMarshal(wt io.Writer, c *AnmClump) error {
	bmCount, err := count16("bone/material indices", len(c.BoneMaterialIndices))
	if err != nil {
		return err
	}
	modelCount, err := count16("model indices", len(c.ModelIndices))
	if err != nil {
		return err
	}
	return writeAll(wt, c.ClumpIndex, bmCount, modelCount, c.BoneMaterialIndices, c.ModelIndices)
}

func AnmClumpUnMarshal(rd io.Reader) (*AnmClump, error) {
	c := &AnmClump{}
	var bmCount, modelCount uint16
	if err := readBigByte(rd, &c.ClumpIndex); err != nil {
		return nil, err
	}
	if err := readBigByte(rd, &bmCount); err != nil {
		return nil, err
	}
	if err := readBigByte(rd, &modelCount); err != nil {
		return nil, err
	}
	c.BoneMaterialIndices = make([]uint32, bmCount)
	c.ModelIndices = make([]uint32, modelCount)
	if err := readBigByte(rd, c.BoneMaterialIndices); err != nil {
		return nil, err
	}
	if err := readBigByte(rd, c.ModelIndices); err != nil {
		return nil, err
	}
	return c, nil
}

func TrackHeaderMarshal(wt io.Writer, h TrackHeader) error {
	return writeAll(wt, h.TrackIndex, uint16(h.Format), h.FrameCount, h.Flags)
}

func TrackHeaderUnMarshal(rd io.Reader) (TrackHeader, error) {
	var raw [4]uint16
	if err := readBigByte(rd, raw[:]); err != nil {
		return TrackHeader{}, err
	}
	return TrackHeader{TrackIndex: raw[0], Format: KeyFormat(raw[1]), FrameCount: raw[2], Flags: raw[3]}, nil
}

// TrackMarshal 按格式写出关键帧，负载补齐到 4 字节
func TrackMarshal(wt io.Writer, h TrackHeader, t *Track) error {
	layout, ok := layoutOf(h.Format)
	if !ok {
		return fmt.Errorf("track %d: unsupported key format 0x%02X", h.TrackIndex, uint16(h.Format))
	}
	if int(h.FrameCount) != len(t.Keys) {
		return fmt.Errorf("track %d: frame count %d but %d keys", h.TrackIndex, h.FrameCount, len(t.Keys))
	}
	for i := range t.Keys {
		k := &t.Keys[i]
		if layout.kind == KEY_LINEAR {
			if err := writeBigByte(wt, k.Frame); err != nil {
				return err
			}
		}
		var v interface{}
		switch layout.component {
		case COMPONENT_FLOAT32:
			if len(k.Values) != layout.components {
				return fmt.Errorf("track %d key %d: want %d floats, got %d", h.TrackIndex, i, layout.components, len(k.Values))
			}
			v = k.Values
		case COMPONENT_INT16:
			if len(k.Shorts) != layout.components {
				return fmt.Errorf("track %d key %d: want %d shorts, got %d", h.TrackIndex, i, layout.components, len(k.Shorts))
			}
			v = k.Shorts
		case COMPONENT_UINT8:
			if len(k.Bytes) != layout.components {
				return fmt.Errorf("track %d key %d: want %d bytes, got %d", h.TrackIndex, i, layout.components, len(k.Bytes))
			}
			v = k.Bytes
		}
		if err := writeBigByte(wt, v); err != nil {
			return err
		}
	}
	return writePadding(wt, layout.size()*len(t.Keys))
}

func TrackUnMarshal(rd io.Reader, h TrackHeader) (*Track, error) {
	layout, ok := layoutOf(h.Format)
	if !ok {
		return nil, fmt.Errorf("track %d: unsupported key format 0x%02X: %w", h.TrackIndex, uint16(h.Format), ErrInvalidAnm)
	}
	t := &Track{Keys: make([]Key, h.FrameCount)}
	for i := range t.Keys {
		k := Key{Kind: layout.kind}
		if layout.kind == KEY_LINEAR {
			if err := readBigByte(rd, &k.Frame); err != nil {
				return nil, err
			}
		}
		switch layout.component {
		case COMPONENT_FLOAT32:
			k.Values = make([]float32, layout.components)
			if err := readBigByte(rd, k.Values); err != nil {
				return nil, err
			}
		case COMPONENT_INT16:
			k.Shorts = make([]int16, layout.components)
			if err := readBigByte(rd, k.Shorts); err != nil {
				return nil, err
			}
		case COMPONENT_UINT8:
			k.Bytes = make([]uint8, layout.components)
			if _, err := io.ReadFull(rd, k.Bytes); err != nil {
				return nil, err
			}
		}
		t.Keys[i] = k
	}
	if err := skipPadding(rd, layout.size()*len(t.Keys)); err != nil {
		return nil, err
	}
	return t, nil
}

func EntryMarshal(wt io.Writer, e *Entry) error {
	if len(e.Headers) != len(e.Tracks) {
		return fmt.Errorf("entry %d/%d: %d headers but %d tracks", e.Coord.ClumpIndex, e.Coord.CoordIndex, len(e.Headers), len(e.Tracks))
	}
	count, err := count16("tracks", len(e.Headers))
	if err != nil {
		return fmt.Errorf("entry %d/%d: %w", e.Coord.ClumpIndex, e.Coord.CoordIndex, err)
	}
	if err := AnmCoordMarshal(wt, e.Coord); err != nil {
		return err
	}
	if err := writeAll(wt, uint16(e.Format), count); err != nil {
		return err
	}
	for _, h := range e.Headers {
		if err := TrackHeaderMarshal(wt, h); err != nil {
			return err
		}
	}
	for i := range e.Tracks {
		if err := TrackMarshal(wt, e.Headers[i], &e.Tracks[i]); err != nil {
			return err
		}
	}
	return nil
}

func EntryUnMarshal(rd io.Reader) (*Entry, error) {
	e := &Entry{}
	var err error
	if e.Coord, err = AnmCoordUnMarshal(rd); err != nil {
		return nil, err
	}
	var format, count uint16
	if err := readBigByte(rd, &format); err != nil {
		return nil, err
	}
	if err := readBigByte(rd, &count); err != nil {
		return nil, err
	}
	e.Format = EntryFormat(format)
	e.Headers = make([]TrackHeader, count)
	for i := range e.Headers {
		if e.Headers[i], err = TrackHeaderUnMarshal(rd); err != nil {
			return nil, err
		}
	}
	e.Tracks = make([]Track, count)
	for i := range e.Tracks {
		t, err := TrackUnMarshal(rd, e.Headers[i])
		if err != nil {
			return nil, err
		}
		e.Tracks[i] = *t
	}
	return e, nil
}

// AnmMarshal 写出 nuccChunkAnm 负载(大端)
func AnmMarshal(wt io.Writer, a *Anm) error {
	entryCount, err := count16("entries", len(a.Entries))
	if err != nil {
		return err
	}
	clumpCount, err := count16("clumps", len(a.Clumps))
	if err != nil {
		return err
	}
	other := a.OtherEntryCount()
	var loop uint16
	if a.Loop {
		loop = 1
	}
	if err := writeAll(wt, a.FrameCount*FRAME_SCALE, a.FrameSize*FRAME_SCALE, entryCount, loop,
		clumpCount, uint16(other), uint32(len(a.CoordParents))); err != nil {
		return err
	}
	for i, c := range a.Clumps {
		if err := AnmClumpMarshal(wt, c); err != nil {
			return fmt.Errorf("clump %d: %w", i, err)
		}
	}
	if other > 0 {
		if err := writeBigByte(wt, uint32(1)); err != nil {
			return err
		}
	}
	for _, cp := range a.CoordParents {
		if err := writeAll(wt, cp.Parent, cp.Child); err != nil {
			return err
		}
	}
	for _, e := range a.Entries {
		if err := EntryMarshal(wt, e); err != nil {
			return err
		}
	}
	return nil
}

func AnmUnMarshal(rd io.Reader) (*Anm, error) {
	a := &Anm{}
	var head struct {
		FrameCount uint32
		FrameSize  uint32
		EntryCount uint16
		Loop       uint16
		ClumpCount uint16
		OtherCount uint16
		CoordCount uint32
	}
	if err := readBigByte(rd, &head); err != nil {
		return nil, fmt.Errorf("read anm header: %w", err)
	}
	a.FrameCount = head.FrameCount / FRAME_SCALE
	a.FrameSize = head.FrameSize / FRAME_SCALE
	a.Loop = head.Loop != 0
	a.Clumps = make([]*AnmClump, head.ClumpCount)
	for i := range a.Clumps {
		c, err := AnmClumpUnMarshal(rd)
		if err != nil {
			return nil, fmt.Errorf("read clump %d: %w", i, err)
		}
		a.Clumps[i] = c
	}
	if head.OtherCount > 0 {
		var sentinel uint32
		if err := readBigByte(rd, &sentinel); err != nil {
			return nil, err
		}
	}
	if !fits(rd, uint64(head.CoordCount), 8) {
		return nil, fmt.Errorf("%d coord parents exceed chunk data: %w", head.CoordCount, ErrInvalidAnm)
	}
	for i := uint32(0); i < head.CoordCount; i++ {
		p, err := AnmCoordUnMarshal(rd)
		if err != nil {
			return nil, err
		}
		c, err := AnmCoordUnMarshal(rd)
		if err != nil {
			return nil, err
		}
		a.CoordParents = append(a.CoordParents, CoordParent{Parent: p, Child: c})
	}
	a.Entries = make([]*Entry, head.EntryCount)
	for i := range a.Entries {
		e, err := EntryUnMarshal(rd)
		if err != nil {
			return nil, fmt.Errorf("read entry %d: %w", i, err)
		}
		a.Entries[i] = e
	}
	if int(head.OtherCount) != a.OtherEntryCount() {
		return nil, fmt.Errorf("other entry count %d does not match entries: %w", head.OtherCount, ErrInvalidAnm)
	}
	return a, nil
}
