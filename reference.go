package anm

// StructInfo 描述一个 nucc chunk 的身份
type StructInfo struct {
	Name string `json:"Name"`
	Type string `json:"Type"`
	Path string `json:"Path"`
}

// StructReference 指向 StructInfo 的命名引用
type StructReference struct {
	Name string     `json:"Name"`
	Info StructInfo `json:"Info"`
}

func NullStructInfo() StructInfo {
	return StructInfo{Type: CHUNK_TYPE_NULL}
}

func (s StructInfo) IsNull() bool {
	return s.Type == CHUNK_TYPE_NULL
}

// StructReferenceTable 页面共享的引用表，只追加，按 (name,type,path) 去重
type StructReferenceTable struct {
	refs  []StructReference
	index map[StructInfo]int
}

func NewStructReferenceTable() *StructReferenceTable {
	return &StructReferenceTable{index: make(map[StructInfo]int)}
}

// Register 注册引用并返回其下标，重复注册返回原下标
func (t *StructReferenceTable) Register(ref StructReference) int {
	if t.index == nil {
		t.index = make(map[StructInfo]int)
	}
	if i, ok := t.index[ref.Info]; ok {
		return i
	}
	i := len(t.refs)
	t.refs = append(t.refs, ref)
	t.index[ref.Info] = i
	return i
}

func (t *StructReferenceTable) RegisterAll(refs []StructReference) {
	for _, r := range refs {
		t.Register(r)
	}
}

func (t *StructReferenceTable) IndexOf(ref StructReference) (int, error) {
	if i, ok := t.index[ref.Info]; ok {
		return i, nil
	}
	return -1, &MissingReferenceError{Reference: ref}
}

func (t *StructReferenceTable) Len() int {
	return len(t.refs)
}

func (t *StructReferenceTable) References() []StructReference {
	out := make([]StructReference, len(t.refs))
	copy(out, t.refs)
	return out
}

func (t *StructReferenceTable) Infos() []StructInfo {
	out := make([]StructInfo, len(t.refs))
	for i := range t.refs {
		out[i] = t.refs[i].Info
	}
	return out
}
