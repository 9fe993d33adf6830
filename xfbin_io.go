package anm

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

const chunkHeaderSize = 12

type chunkTableHeader struct {
	TableSize       uint32
	MinPageSize     uint32
	Version         uint16
	Unknown         uint16
	TypeCount       uint32
	TypeSize        uint32
	PathCount       uint32
	PathSize        uint32
	NameCount       uint32
	NameSize        uint32
	MapCount        uint32
	MapSize         uint32
	MapIndicesCount uint32
	ReferenceCount  uint32
}

type chunkMap struct {
	Type uint32
	Path uint32
	Name uint32
}

type chunkReference struct {
	Name uint32
	Map  uint32
}

type stringTable struct {
	values []string
	index  map[string]uint32
}

func newStringTable() *stringTable {
	return &stringTable{index: make(map[string]uint32)}
}

func (t *stringTable) add(s string) uint32 {
	if i, ok := t.index[s]; ok {
		return i
	}
	i := uint32(len(t.values))
	t.values = append(t.values, s)
	t.index[s] = i
	return i
}

func (t *stringTable) bytes() []byte {
	var buf bytes.Buffer
	for _, s := range t.values {
		buf.WriteString(s)
		buf.WriteByte(0)
	}
	return buf.Bytes()
}

type tableBuilder struct {
	types, paths, names *stringTable
	maps                []chunkMap
	mapIndex            map[chunkMap]uint32
	references          []chunkReference
	mapIndices          []uint32
}

func newTableBuilder() *tableBuilder {
	return &tableBuilder{
		types:    newStringTable(),
		paths:    newStringTable(),
		names:    newStringTable(),
		mapIndex: make(map[chunkMap]uint32),
	}
}

func (b *tableBuilder) addMap(si StructInfo) uint32 {
	m := chunkMap{Type: b.types.add(si.Type), Path: b.paths.add(si.Path), Name: b.names.add(si.Name)}
	if i, ok := b.mapIndex[m]; ok {
		return i
	}
	i := uint32(len(b.maps))
	b.maps = append(b.maps, m)
	b.mapIndex[m] = i
	return i
}

// pageInfos 页面的本地映射表：StructInfos，补上 chunk 与引用用到的项，最后是 page 与 index
func pageInfos(p *Page) []StructInfo {
	infos := make([]StructInfo, 0, len(p.StructInfos)+2)
	seen := make(map[StructInfo]bool)
	add := func(si StructInfo) {
		if !seen[si] {
			seen[si] = true
			infos = append(infos, si)
		}
	}
	add(NullStructInfo())
	for _, si := range p.StructInfos {
		add(si)
	}
	for _, c := range p.Chunks {
		add(c.ChunkInfo())
	}
	for _, r := range p.StructReferences {
		add(r.Info)
	}
	add(StructInfo{Type: CHUNK_TYPE_PAGE})
	add(StructInfo{Name: "index", Type: CHUNK_TYPE_INDEX})
	return infos
}

func writeChunkHeader(wt io.Writer, size, mapIndex uint32) error {
	return writeAll(wt, size, mapIndex, CHUNK_VERSION, uint16(0))
}

// XfbinMarshal 写出完整容器
func XfbinMarshal(wt io.Writer, x *Xfbin) error {
	b := newTableBuilder()
	var body bytes.Buffer
	for pi, p := range x.Pages {
		infos := pageInfos(p)
		local := make(map[StructInfo]uint32, len(infos))
		for i, si := range infos {
			local[si] = uint32(i)
			b.mapIndices = append(b.mapIndices, b.addMap(si))
		}
		for _, r := range p.StructReferences {
			b.references = append(b.references, chunkReference{
				Name: b.names.add(r.Name),
				Map:  b.addMap(r.Info),
			})
		}

		if err := writeChunkHeader(&body, 0, local[NullStructInfo()]); err != nil {
			return err
		}
		for _, c := range p.Chunks {
			data, err := chunkBytes(c)
			if err != nil {
				return fmt.Errorf("page %d: %w", pi, err)
			}
			if err := writeChunkHeader(&body, uint32(len(data)), local[c.ChunkInfo()]); err != nil {
				return err
			}
			body.Write(data)
		}
		if err := writeChunkHeader(&body, 8, local[StructInfo{Type: CHUNK_TYPE_PAGE}]); err != nil {
			return err
		}
		if err := writeAll(&body, uint32(len(infos)), uint32(len(p.StructReferences))); err != nil {
			return err
		}
	}

	typeBytes := b.types.bytes()
	pathBytes := b.paths.bytes()
	nameBytes := b.names.bytes()
	var table bytes.Buffer
	table.Write(typeBytes)
	table.Write(pathBytes)
	table.Write(nameBytes)
	if err := writePadding(&table, table.Len()); err != nil {
		return err
	}
	if err := writeAll(&table, b.maps, b.references, b.mapIndices); err != nil {
		return err
	}

	head := chunkTableHeader{
		TableSize:       uint32(table.Len()),
		MinPageSize:     3,
		Version:         CHUNK_VERSION,
		TypeCount:       uint32(len(b.types.values)),
		TypeSize:        uint32(len(typeBytes)),
		PathCount:       uint32(len(b.paths.values)),
		PathSize:        uint32(len(pathBytes)),
		NameCount:       uint32(len(b.names.values)),
		NameSize:        uint32(len(nameBytes)),
		MapCount:        uint32(len(b.maps)),
		MapSize:         uint32(len(b.maps) * 12),
		MapIndicesCount: uint32(len(b.mapIndices)),
		ReferenceCount:  uint32(len(b.references)),
	}

	if _, err := wt.Write([]byte(XFBIN_SIGNATURE)); err != nil {
		return err
	}
	version := x.Version
	if version == 0 {
		version = XFBIN_VERSION
	}
	if err := writeAll(wt, version, uint64(0), &head); err != nil {
		return err
	}
	if _, err := wt.Write(table.Bytes()); err != nil {
		return err
	}
	_, err := wt.Write(body.Bytes())
	return err
}

func invalid(format string, args ...interface{}) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidContainer)
}

func splitStrings(data []byte, count uint32) ([]string, error) {
	if uint64(count) > uint64(len(data)) {
		return nil, invalid("%d strings exceed %d table bytes", count, len(data))
	}
	out := make([]string, 0, count)
	for len(out) < int(count) {
		i := bytes.IndexByte(data, 0)
		if i < 0 {
			return nil, invalid("string table truncated at %d of %d", len(out), count)
		}
		out = append(out, string(data[:i]))
		data = data[i+1:]
	}
	return out, nil
}

// XfbinUnMarshal 解析容器，未知 chunk 保留为 NuccBinary。所有长度与计数先与剩余字节比较再分配
func XfbinUnMarshal(r io.Reader) (*Xfbin, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	rd := bytes.NewReader(raw)
	sig := make([]byte, 4)
	if _, err := io.ReadFull(rd, sig); err != nil {
		return nil, invalid("read signature: %v", err)
	}
	if string(sig) != XFBIN_SIGNATURE {
		return nil, invalid("bad signature %q", sig)
	}
	x := &Xfbin{}
	if err := readBigByte(rd, &x.Version); err != nil {
		return nil, invalid("read version: %v", err)
	}
	var reserved uint64
	if err := readBigByte(rd, &reserved); err != nil {
		return nil, invalid("read header: %v", err)
	}
	head := chunkTableHeader{}
	if err := readBigByte(rd, &head); err != nil {
		return nil, invalid("read chunk table header: %v", err)
	}
	if uint64(head.TableSize) > uint64(rd.Len()) {
		return nil, invalid("chunk table size %d exceeds %d remaining bytes", head.TableSize, rd.Len())
	}
	table := make([]byte, head.TableSize)
	if _, err := io.ReadFull(rd, table); err != nil {
		return nil, invalid("read chunk table: %v", err)
	}
	strSize := int(head.TypeSize) + int(head.PathSize) + int(head.NameSize)
	if strSize > len(table) {
		return nil, invalid("string tables exceed chunk table")
	}
	types, err := splitStrings(table[:head.TypeSize], head.TypeCount)
	if err != nil {
		return nil, err
	}
	paths, err := splitStrings(table[head.TypeSize:int(head.TypeSize)+int(head.PathSize)], head.PathCount)
	if err != nil {
		return nil, err
	}
	names, err := splitStrings(table[int(head.TypeSize)+int(head.PathSize):strSize], head.NameCount)
	if err != nil {
		return nil, err
	}
	strSize += (4 - strSize%4) % 4
	if strSize > len(table) {
		return nil, invalid("string tables exceed chunk table")
	}
	trd := bytes.NewReader(table[strSize:])
	if !fits(trd, uint64(head.MapCount)*3+uint64(head.ReferenceCount)*2+uint64(head.MapIndicesCount), 4) {
		return nil, invalid("chunk maps exceed chunk table")
	}
	maps := make([]chunkMap, head.MapCount)
	refs := make([]chunkReference, head.ReferenceCount)
	mapIndices := make([]uint32, head.MapIndicesCount)
	for _, v := range []interface{}{maps, refs, mapIndices} {
		if err := readBigByte(trd, v); err != nil {
			return nil, invalid("read chunk maps: %v", err)
		}
	}

	infoOf := func(m uint32) (StructInfo, error) {
		if int(m) >= len(maps) {
			return StructInfo{}, invalid("chunk map %d out of range", m)
		}
		cm := maps[m]
		if int(cm.Type) >= len(types) || int(cm.Path) >= len(paths) || int(cm.Name) >= len(names) {
			return StructInfo{}, invalid("chunk map %d has bad string index", m)
		}
		return StructInfo{Name: names[cm.Name], Type: types[cm.Type], Path: paths[cm.Path]}, nil
	}

	mapOffset, refOffset := 0, 0
	var chunks []Chunk
	for {
		var ch struct {
			Size     uint32
			MapIndex uint32
			Version  uint16
			Unknown  uint16
		}
		if err := readBigByte(rd, &ch); err != nil {
			if errors.Is(err, io.EOF) {
				break
			}
			return nil, invalid("read chunk header: %v", err)
		}
		if uint64(ch.Size) > uint64(rd.Len()) {
			return nil, invalid("chunk size %d exceeds %d remaining bytes", ch.Size, rd.Len())
		}
		data := make([]byte, ch.Size)
		if _, err := io.ReadFull(rd, data); err != nil {
			return nil, invalid("read chunk data: %v", err)
		}
		li := mapOffset + int(ch.MapIndex)
		if li >= len(mapIndices) {
			return nil, invalid("chunk map index %d out of range", li)
		}
		info, err := infoOf(mapIndices[li])
		if err != nil {
			return nil, err
		}
		switch info.Type {
		case CHUNK_TYPE_NULL, CHUNK_TYPE_INDEX:
		case CHUNK_TYPE_PAGE:
			if len(data) < 8 {
				return nil, invalid("page chunk too short")
			}
			var pageSize, refCount uint32
			prd := bytes.NewReader(data)
			readBigByte(prd, &pageSize)
			readBigByte(prd, &refCount)
			if mapOffset+int(pageSize) > len(mapIndices) || refOffset+int(refCount) > len(refs) {
				return nil, invalid("page exceeds chunk table")
			}
			p := &Page{Chunks: chunks}
			for _, m := range mapIndices[mapOffset : mapOffset+int(pageSize)] {
				si, err := infoOf(m)
				if err != nil {
					return nil, err
				}
				if si.Type == CHUNK_TYPE_PAGE || si.Type == CHUNK_TYPE_INDEX {
					continue
				}
				p.StructInfos = append(p.StructInfos, si)
			}
			for _, r := range refs[refOffset : refOffset+int(refCount)] {
				si, err := infoOf(r.Map)
				if err != nil {
					return nil, err
				}
				if int(r.Name) >= len(names) {
					return nil, invalid("reference name %d out of range", r.Name)
				}
				p.StructReferences = append(p.StructReferences, StructReference{Name: names[r.Name], Info: si})
			}
			x.Pages = append(x.Pages, p)
			mapOffset += int(pageSize)
			refOffset += int(refCount)
			chunks = nil
		default:
			chunks = append(chunks, decodeChunk(info, data))
		}
	}
	if len(chunks) > 0 {
		return nil, invalid("%d chunks after the last page", len(chunks))
	}
	return x, nil
}

func XfbinReadFrom(path string) (*Xfbin, error) {
	f, e := os.Open(path)
	if e != nil {
		return nil, e
	}
	defer f.Close()
	return XfbinUnMarshal(f)
}

// XfbinWriteTo 先写临时文件再改名
func XfbinWriteTo(path string, x *Xfbin) error {
	var buf bytes.Buffer
	if err := XfbinMarshal(&buf, x); err != nil {
		return err
	}
	return writeFileAtomic(path, buf.Bytes())
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	f, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	tmp := f.Name()
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return err
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return err
	}
	return nil
}
