package anm

import (
	"bytes"
	"fmt"
	"io"

	"github.com/flywave/go3d/quaternion"
	"github.com/flywave/go3d/vec3"
	"github.com/flywave/go3d/vec4"
)

// Chunk 页面中的一个 chunk
type Chunk interface {
	ChunkInfo() StructInfo
	MarshalChunk(wt io.Writer) error
}

// NuccBinary 未解析的 chunk，原样保留
type NuccBinary struct {
	Info StructInfo
	Data []byte
}

func (c *NuccBinary) ChunkInfo() StructInfo { return c.Info }

func (c *NuccBinary) MarshalChunk(wt io.Writer) error {
	_, err := wt.Write(c.Data)
	return err
}

// NuccCamera 相机 chunk，只记录视角
type NuccCamera struct {
	Info  StructInfo
	Flags uint32
	FOV   float32
}

func NewNuccCamera(name, path string) *NuccCamera {
	return &NuccCamera{Info: StructInfo{Name: name, Type: CHUNK_TYPE_CAMERA, Path: path}, FOV: 45}
}

func (c *NuccCamera) ChunkInfo() StructInfo { return c.Info }

func (c *NuccCamera) MarshalChunk(wt io.Writer) error {
	return writeAll(wt, c.Flags, c.FOV)
}

type NuccLightDirc struct {
	Info      StructInfo
	Flags     [4]uint32
	Color     vec3.T
	Strength  float32
	Unknown   [4]float32
	Direction quaternion.T
}

func NewNuccLightDirc(name, path string) *NuccLightDirc {
	return &NuccLightDirc{
		Info:      StructInfo{Name: name, Type: CHUNK_TYPE_LIGHT_DIRC, Path: path},
		Color:     vec3.T{0.521569, 0.827451, 1},
		Strength:  1,
		Direction: quaternion.T{-0.185349, 0.438735, -0.181711, 0.860313},
	}
}

func (c *NuccLightDirc) ChunkInfo() StructInfo { return c.Info }

func (c *NuccLightDirc) MarshalChunk(wt io.Writer) error {
	return writeAll(wt, c.Flags, c.Color, c.Strength, c.Unknown, c.Direction)
}

type NuccLightPoint struct {
	Info     StructInfo
	Flags    [4]uint32
	Color    vec3.T
	Strength float32
	Unknown  float32
	Position vec3.T
	Radius   float32
	Cutoff   float32
	Padding  [2]float32
}

func NewNuccLightPoint(name, path string) *NuccLightPoint {
	return &NuccLightPoint{
		Info:     StructInfo{Name: name, Type: CHUNK_TYPE_LIGHT_POINT, Path: path},
		Color:    vec3.T{0.0392157, 0.117647, 1},
		Position: vec3.T{-23.2275, -183.9, 111.04},
		Radius:   100,
		Cutoff:   400,
	}
}

func (c *NuccLightPoint) ChunkInfo() StructInfo { return c.Info }

func (c *NuccLightPoint) MarshalChunk(wt io.Writer) error {
	return writeAll(wt, c.Flags, c.Color, c.Strength, c.Unknown, c.Position, c.Radius, c.Cutoff, c.Padding)
}

type NuccAmbient struct {
	Info  StructInfo
	Color vec4.T
}

func NewNuccAmbient(name, path string) *NuccAmbient {
	return &NuccAmbient{
		Info:  StructInfo{Name: name, Type: CHUNK_TYPE_AMBIENT, Path: path},
		Color: vec4.T{0.290196, 0.494118, 0.611765, 1},
	}
}

func (c *NuccAmbient) ChunkInfo() StructInfo { return c.Info }

func (c *NuccAmbient) MarshalChunk(wt io.Writer) error {
	return writeBigByte(wt, c.Color)
}

type chunkDecoder func(info StructInfo, data []byte) (Chunk, error)

var chunkDecoders = map[string]chunkDecoder{
	CHUNK_TYPE_ANM: func(info StructInfo, data []byte) (Chunk, error) {
		a, err := AnmUnMarshal(bytes.NewReader(data))
		if err != nil {
			return nil, err
		}
		a.Info = info
		return a, nil
	},
	CHUNK_TYPE_CAMERA: func(info StructInfo, data []byte) (Chunk, error) {
		c := &NuccCamera{Info: info}
		rd := bytes.NewReader(data)
		if err := readBigByte(rd, &c.Flags); err != nil {
			return nil, err
		}
		if err := readBigByte(rd, &c.FOV); err != nil {
			return nil, err
		}
		return c, nil
	},
	CHUNK_TYPE_LIGHT_DIRC: func(info StructInfo, data []byte) (Chunk, error) {
		c := &NuccLightDirc{Info: info}
		rd := bytes.NewReader(data)
		for _, v := range []interface{}{&c.Flags, &c.Color, &c.Strength, &c.Unknown, &c.Direction} {
			if err := readBigByte(rd, v); err != nil {
				return nil, err
			}
		}
		return c, nil
	},
	CHUNK_TYPE_LIGHT_POINT: func(info StructInfo, data []byte) (Chunk, error) {
		c := &NuccLightPoint{Info: info}
		rd := bytes.NewReader(data)
		for _, v := range []interface{}{&c.Flags, &c.Color, &c.Strength, &c.Unknown, &c.Position, &c.Radius, &c.Cutoff, &c.Padding} {
			if err := readBigByte(rd, v); err != nil {
				return nil, err
			}
		}
		return c, nil
	},
	CHUNK_TYPE_AMBIENT: func(info StructInfo, data []byte) (Chunk, error) {
		c := &NuccAmbient{Info: info}
		if err := readBigByte(bytes.NewReader(data), &c.Color); err != nil {
			return nil, err
		}
		return c, nil
	},
}

// decodeChunk 已知类型解码，解码失败或重新编码后字节不一致时保留原始数据
func decodeChunk(info StructInfo, data []byte) Chunk {
	raw := &NuccBinary{Info: info, Data: data}
	dec, ok := chunkDecoders[info.Type]
	if !ok {
		return raw
	}
	c, err := dec(info, data)
	if err != nil {
		return raw
	}
	var buf bytes.Buffer
	if err := c.MarshalChunk(&buf); err != nil || !bytes.Equal(buf.Bytes(), data) {
		return raw
	}
	return c
}

func chunkBytes(c Chunk) ([]byte, error) {
	var buf bytes.Buffer
	if err := c.MarshalChunk(&buf); err != nil {
		return nil, fmt.Errorf("marshal %s %q: %w", c.ChunkInfo().Type, c.ChunkInfo().Name, err)
	}
	return buf.Bytes(), nil
}
