package anm

import (
	"encoding/json"
	"os"
	"path/filepath"
)

const PAGE_MANIFEST_NAME = "_page.json"

type manifestReference struct {
	Name  string     `json:"Name"`
	Chunk StructInfo `json:"Chunk"`
}

type manifestChunk struct {
	FileName string     `json:"File Name"`
	Chunk    StructInfo `json:"Chunk"`
}

// PageManifest 解包后的页面描述
type PageManifest struct {
	ChunkMaps       []StructInfo        `json:"Chunk Maps"`
	ChunkReferences []manifestReference `json:"Chunk References"`
	Chunks          []manifestChunk     `json:"Chunks"`
}

func chunkFileName(si StructInfo) string {
	switch si.Type {
	case CHUNK_TYPE_ANM:
		return si.Name + ".anm"
	case CHUNK_TYPE_CAMERA:
		return si.Name + ".camera"
	}
	return ""
}

func NewPageManifest(p *Page) *PageManifest {
	m := &PageManifest{
		ChunkMaps:       pageInfos(p),
		ChunkReferences: []manifestReference{},
		Chunks:          []manifestChunk{},
	}
	for _, r := range p.StructReferences {
		m.ChunkReferences = append(m.ChunkReferences, manifestReference{Name: r.Name, Chunk: r.Info})
	}
	for _, c := range p.Chunks {
		m.Chunks = append(m.Chunks, manifestChunk{FileName: chunkFileName(c.ChunkInfo()), Chunk: c.ChunkInfo()})
	}
	return m
}

// WritePageManifest 写出 _page.json 以及带文件名的 chunk 数据
func WritePageManifest(path string, p *Page) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, os.ModePerm); err != nil {
		return err
	}
	m := NewPageManifest(p)
	data, err := json.MarshalIndent(m, "", "    ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return err
	}
	for i, c := range p.Chunks {
		name := m.Chunks[i].FileName
		if name == "" {
			continue
		}
		raw, err := chunkBytes(c)
		if err != nil {
			return err
		}
		if err := os.WriteFile(filepath.Join(dir, name), raw, 0644); err != nil {
			return err
		}
	}
	return nil
}
