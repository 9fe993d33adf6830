package anm

// 材质条目的轨道槽位
const (
	MATERIAL_SLOT_UV_OFFSET    = 0  // 0..7: 四组 (u, v) 偏移
	MATERIAL_SLOT_UV_SCALE     = 8  // 8..15: 四组 (u, v) 缩放
	MATERIAL_SLOT_BLEND_RATE_1 = 16 // 混合率 1
	MATERIAL_SLOT_BLEND_RATE_2 = 17
	MATERIAL_SLOT_FALLOFF      = 18
	MATERIAL_SLOT_GLARE        = 19
	MATERIAL_SLOT_ALPHA        = 20
	MATERIAL_SLOT_OUTLINE_ID   = 21
	MATERIAL_SLOT_COUNT        = 22
)

// 材质曲线路径到起始槽位，多轴曲线依次占用后续槽位
var materialPaths = map[string]int{
	"uv_offset_0":  MATERIAL_SLOT_UV_OFFSET,
	"uv_offset_1":  MATERIAL_SLOT_UV_OFFSET + 2,
	"uv_offset_2":  MATERIAL_SLOT_UV_OFFSET + 4,
	"uv_offset_3":  MATERIAL_SLOT_UV_OFFSET + 6,
	"uv_scale_0":   MATERIAL_SLOT_UV_SCALE,
	"uv_scale_1":   MATERIAL_SLOT_UV_SCALE + 2,
	"uv_scale_2":   MATERIAL_SLOT_UV_SCALE + 4,
	"uv_scale_3":   MATERIAL_SLOT_UV_SCALE + 6,
	"blend_rate_1": MATERIAL_SLOT_BLEND_RATE_1,
	"blend_rate_2": MATERIAL_SLOT_BLEND_RATE_2,
	"falloff":      MATERIAL_SLOT_FALLOFF,
	"glare":        MATERIAL_SLOT_GLARE,
	"alpha":        MATERIAL_SLOT_ALPHA,
	"outline_id":   MATERIAL_SLOT_OUTLINE_ID,
}

func MaterialSlotOf(path string) (int, bool) {
	s, ok := materialPaths[path]
	return s, ok
}

// materialSlotAxes 把材质曲线拆成每个槽位一条单轴曲线
func materialSlotAxes(channels []*Channel) map[int][]Keyframe {
	out := make(map[int][]Keyframe)
	for _, ch := range channels {
		base, ok := materialPaths[ch.Path]
		if !ok {
			continue
		}
		for i, ax := range ch.Axes {
			slot := base + i
			if slot >= MATERIAL_SLOT_COUNT {
				break
			}
			if len(ax) == 0 {
				continue
			}
			out[slot] = ax
		}
	}
	return out
}
