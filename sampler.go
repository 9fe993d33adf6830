package anm

import (
	"fmt"
	"sort"
)

type sampleKey struct {
	object string
	path   string
}

// FrameSampler 内存中的逐帧属性表。缺帧时取之前最近的一帧
type FrameSampler struct {
	frames    map[sampleKey]map[int][]float64
	constants map[sampleKey][]float64
}

func NewFrameSampler() *FrameSampler {
	return &FrameSampler{
		frames:    make(map[sampleKey]map[int][]float64),
		constants: make(map[sampleKey][]float64),
	}
}

func (s *FrameSampler) Set(objectID, path string, frame int, values ...float64) {
	k := sampleKey{objectID, path}
	m, ok := s.frames[k]
	if !ok {
		m = make(map[int][]float64)
		s.frames[k] = m
	}
	m[frame] = append([]float64(nil), values...)
}

// SetConstant 与帧无关的属性
func (s *FrameSampler) SetConstant(objectID, path string, values ...float64) {
	s.constants[sampleKey{objectID, path}] = append([]float64(nil), values...)
}

func (s *FrameSampler) Has(objectID, path string) bool {
	k := sampleKey{objectID, path}
	if _, ok := s.frames[k]; ok {
		return true
	}
	_, ok := s.constants[k]
	return ok
}

func (s *FrameSampler) Sample(objectID, path string, frame int) ([]float64, error) {
	k := sampleKey{objectID, path}
	if m, ok := s.frames[k]; ok && len(m) > 0 {
		if v, ok := m[frame]; ok {
			return v, nil
		}
		keys := make([]int, 0, len(m))
		for f := range m {
			keys = append(keys, f)
		}
		sort.Ints(keys)
		best := keys[0]
		for _, f := range keys {
			if f > frame {
				break
			}
			best = f
		}
		return m[best], nil
	}
	if v, ok := s.constants[k]; ok {
		return v, nil
	}
	return nil, fmt.Errorf("%s.%s at frame %d: %w", objectID, path, frame, ErrNoSample)
}

// ChannelSet 以对象名分组的曲线集合，同时充当骨骼与材质曲线源
type ChannelSet struct {
	order     []string
	channels  map[string][]*Channel
	constants map[string]map[int]float64
}

func NewChannelSet() *ChannelSet {
	return &ChannelSet{
		channels:  make(map[string][]*Channel),
		constants: make(map[string]map[int]float64),
	}
}

func (c *ChannelSet) Add(name string, ch *Channel) {
	if _, ok := c.channels[name]; !ok {
		c.order = append(c.order, name)
	}
	c.channels[name] = append(c.channels[name], ch)
}

func (c *ChannelSet) SetConstant(material string, slot int, v float64) {
	m, ok := c.constants[material]
	if !ok {
		m = make(map[int]float64)
		c.constants[material] = m
	}
	m[slot] = v
}

func (c *ChannelSet) AnimatedBones() []string {
	return append([]string(nil), c.order...)
}

func (c *ChannelSet) BoneChannels(bone string) []*Channel {
	return c.channels[bone]
}

func (c *ChannelSet) MaterialChannels(material string) []*Channel {
	return c.channels[material]
}

func (c *ChannelSet) MaterialConstant(material string, slot int) (float64, bool) {
	v, ok := c.constants[material][slot]
	return v, ok
}

// MemoryScene 内存场景，供测试与 glTF 提取使用
type MemoryScene struct {
	*FrameSampler
	Clumps  map[string]*AnimatedClump
	Cameras map[string]*CameraObject
	Lights  map[string]*LightObject
	Fogs    map[string]*FogObject
}

func NewMemoryScene() *MemoryScene {
	return &MemoryScene{
		FrameSampler: NewFrameSampler(),
		Clumps:       make(map[string]*AnimatedClump),
		Cameras:      make(map[string]*CameraObject),
		Lights:       make(map[string]*LightObject),
		Fogs:         make(map[string]*FogObject),
	}
}

func (s *MemoryScene) AddClump(c *AnimatedClump) { s.Clumps[c.Name] = c }

func (s *MemoryScene) AddCamera(c *CameraObject) { s.Cameras[c.Name] = c }

func (s *MemoryScene) AddLight(l *LightObject) { s.Lights[l.Name] = l }

func (s *MemoryScene) AddFog(f *FogObject) { s.Fogs[f.Name] = f }

func (s *MemoryScene) Clump(name string) (*AnimatedClump, bool) {
	c, ok := s.Clumps[name]
	return c, ok
}

func (s *MemoryScene) Camera(name string) (*CameraObject, bool) {
	c, ok := s.Cameras[name]
	return c, ok
}

func (s *MemoryScene) Light(name string) (*LightObject, bool) {
	l, ok := s.Lights[name]
	return l, ok
}

func (s *MemoryScene) Fog(name string) (*FogObject, bool) {
	f, ok := s.Fogs[name]
	return f, ok
}
