package anm

// Page 容器中的一页：chunk 映射表、引用表与 chunk 本身
type Page struct {
	StructInfos      []StructInfo
	StructReferences []StructReference
	Chunks           []Chunk
}

func NewPage() *Page {
	return &Page{StructInfos: []StructInfo{NullStructInfo()}}
}

// Matches 页面是否包含名为 name 的 chunk
func (p *Page) Matches(name string) bool {
	for _, si := range p.StructInfos {
		if si.Name == name && !si.IsNull() {
			return true
		}
	}
	return false
}

func (p *Page) AddStructInfo(si StructInfo) {
	for _, s := range p.StructInfos {
		if s == si {
			return
		}
	}
	p.StructInfos = append(p.StructInfos, si)
}

func (p *Page) AddChunk(c Chunk) {
	p.AddStructInfo(c.ChunkInfo())
	p.Chunks = append(p.Chunks, c)
}

func (p *Page) Anm() *Anm {
	for _, c := range p.Chunks {
		if a, ok := c.(*Anm); ok {
			return a
		}
	}
	return nil
}

// Xfbin NUCC 容器
type Xfbin struct {
	Version uint32
	Pages   []*Page
}

func NewXfbin() *Xfbin {
	return &Xfbin{Version: XFBIN_VERSION}
}

func (x *Xfbin) AddPage(p *Page) {
	x.Pages = append(x.Pages, p)
}

// ReplaceOrAppend 替换第一个包含 name 的页，没有则追加
func (x *Xfbin) ReplaceOrAppend(name string, p *Page) bool {
	for i, old := range x.Pages {
		if old.Matches(name) {
			x.Pages[i] = p
			return true
		}
	}
	x.Pages = append(x.Pages, p)
	return false
}
