package anm

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// Bone 骨骼，Parent 为同一 clump 中父骨骼下标，根骨骼为 -1
type Bone struct {
	Name   string   `json:"name"`
	Parent int      `json:"parent"`
	Bind   BindPose `json:"bind"`
	// CopyTransforms 复制变换约束的目标，可跨 clump
	CopyTransforms *BoneTarget `json:"copyTransforms,omitempty"`
}

type BoneTarget struct {
	Clump string `json:"clump"`
	Bone  string `json:"bone"`
}

// AnimatedClump 一个参与动画的骨架
type AnimatedClump struct {
	Name           string              `json:"name"`
	Path           string              `json:"path"`
	Bones          []*Bone             `json:"bones"`
	Models         []string            `json:"models,omitempty"`
	Materials      []string            `json:"materials,omitempty"`
	Curves         BoneCurveSource     `json:"-"`
	MaterialCurves MaterialCurveSource `json:"-"`
}

func (c *AnimatedClump) BoneIndex(name string) int {
	for i, b := range c.Bones {
		if b.Name == name {
			return i
		}
	}
	return -1
}

// ClumpTable 由 AnimatedClump 一次性构建的只读索引
type ClumpTable struct {
	Source    *AnimatedClump
	Info      StructInfo
	Reference StructReference
	Bones     []*Bone
	Coords    []StructReference
	Models    []StructReference
	Materials []StructReference

	boneSlot     map[string]int
	materialSlot map[string]int
}

func isLod(name string) bool {
	return strings.Contains(strings.ToLower(name), "lod")
}

// Build 过滤 lod 对象、排序材质并生成引用
func (c *AnimatedClump) Build() (*ClumpTable, error) {
	if c.Name == "" {
		return nil, errors.New("clump has no name")
	}
	t := &ClumpTable{
		Source:       c,
		Info:         StructInfo{Name: c.Name, Type: CHUNK_TYPE_CLUMP, Path: c.Path},
		boneSlot:     make(map[string]int),
		materialSlot: make(map[string]int),
	}
	for _, b := range c.Bones {
		if isLod(b.Name) {
			continue
		}
		if _, dup := t.boneSlot[b.Name]; dup {
			return nil, fmt.Errorf("clump %s: duplicate bone %q", c.Name, b.Name)
		}
		t.boneSlot[b.Name] = len(t.Coords)
		t.Bones = append(t.Bones, b)
		t.Coords = append(t.Coords, StructReference{
			Name: b.Name,
			Info: StructInfo{Name: b.Name, Type: CHUNK_TYPE_COORD, Path: c.Path},
		})
	}
	for _, m := range c.Models {
		if isLod(m) {
			continue
		}
		t.Models = append(t.Models, StructReference{
			Name: m,
			Info: StructInfo{Name: m, Type: CHUNK_TYPE_MODEL, Path: c.Path},
		})
	}
	mats := make([]string, 0, len(c.Materials))
	for _, m := range c.Materials {
		if !isLod(m) {
			mats = append(mats, m)
		}
	}
	sort.Strings(mats)
	for _, m := range mats {
		if _, dup := t.materialSlot[m]; dup {
			continue
		}
		t.materialSlot[m] = len(t.Coords) + len(t.Materials)
		t.Materials = append(t.Materials, StructReference{
			Name: m,
			Info: StructInfo{Name: m, Type: CHUNK_TYPE_MATERIAL, Path: c.Path},
		})
	}

	repr := ""
	switch {
	case len(t.Models) > 0:
		repr = t.Models[0].Name
	case len(t.Coords) > 0:
		repr = t.Coords[0].Name
	default:
		return nil, fmt.Errorf("clump %s has neither bones nor models", c.Name)
	}
	t.Reference = StructReference{Name: repr, Info: t.Info}
	return t, nil
}

// StructInfos 顺序: clump, 骨骼, 模型, 材质
func (t *ClumpTable) StructInfos() []StructInfo {
	out := []StructInfo{t.Info}
	for _, group := range [][]StructReference{t.Coords, t.Models, t.Materials} {
		for _, r := range group {
			out = append(out, r.Info)
		}
	}
	return out
}

// References 首项为 clump 的代表引用
func (t *ClumpTable) References() []StructReference {
	out := []StructReference{t.Reference}
	out = append(out, t.Coords...)
	out = append(out, t.Models...)
	out = append(out, t.Materials...)
	return out
}

// CoordSlot 骨骼在 clump 的骨骼+材质下标表中的位置
func (t *ClumpTable) CoordSlot(bone string) (int, bool) {
	i, ok := t.boneSlot[bone]
	return i, ok
}

func (t *ClumpTable) MaterialSlot(material string) (int, bool) {
	i, ok := t.materialSlot[material]
	return i, ok
}

func (t *ClumpTable) Bone(name string) (*Bone, bool) {
	i, ok := t.boneSlot[name]
	if !ok {
		return nil, false
	}
	return t.Bones[i], true
}
