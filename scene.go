package anm

// Channel 一条动画曲线，各轴的关键帧相互独立
type Channel struct {
	Path string       `json:"path"`
	Axes [][]Keyframe `json:"axes"`
}

// Sampler 按帧求值。同一次导出中只从一个 goroutine 按帧序调用
type Sampler interface {
	Sample(objectID, path string, frame int) ([]float64, error)
}

// BoneCurveSource 骨骼曲线，AnimatedBones 按动作分组顺序返回有曲线的骨骼
type BoneCurveSource interface {
	AnimatedBones() []string
	BoneChannels(bone string) []*Channel
}

// MaterialCurveSource 材质曲线及静态常量
type MaterialCurveSource interface {
	MaterialChannels(material string) []*Channel
	MaterialConstant(material string, slot int) (float64, bool)
}

type CameraCurveSource interface {
	Sampler
	Camera(name string) (*CameraObject, bool)
}

type LightCurveSource interface {
	Sampler
	Light(name string) (*LightObject, bool)
	Fog(name string) (*FogObject, bool)
}

// SceneSource 场景提取器对外的全部接口
type SceneSource interface {
	Clump(name string) (*AnimatedClump, bool)
	CameraCurveSource
	LightCurveSource
}

type LightKind int

const (
	LIGHT_SUN LightKind = iota
	LIGHT_POINT
	LIGHT_AREA
)

func (k LightKind) String() string {
	switch k {
	case LIGHT_SUN:
		return "sun"
	case LIGHT_POINT:
		return "point"
	case LIGHT_AREA:
		return "area"
	}
	return "unknown"
}

// CameraObject 相机，属性通过 Sampler 以 Name 为对象 ID 取值
type CameraObject struct {
	Name string `json:"name"`
	Path string `json:"path"`
}

type LightObject struct {
	Name string    `json:"name"`
	Path string    `json:"path"`
	Kind LightKind `json:"kind"`
}

type FogObject struct {
	Name string `json:"name"`
}

// Animation 一次导出选中的动作，对应容器中的一页
type Animation struct {
	Name       string   `json:"name"`
	Path       string   `json:"path"`
	Loop       bool     `json:"loop"`
	FrameStart int      `json:"frameStart"`
	FrameCount int      `json:"frameCount"`
	Clumps     []string `json:"clumps"`
	Cameras    []string `json:"cameras,omitempty"`
	Lights     []string `json:"lights,omitempty"`
	Fog        string   `json:"fog,omitempty"`
	// Scene 不为空时覆盖导出器的场景
	Scene SceneSource `json:"-"`
}

func (a *Animation) Range() FrameRange {
	return FrameRange{Start: a.FrameStart, Count: a.FrameCount}
}

func (a *Animation) frames() []int {
	out := make([]int, 0, a.FrameCount)
	for i := 0; i < a.FrameCount; i++ {
		out = append(out, a.FrameStart+i)
	}
	return out
}

// Options 导出开关
type Options struct {
	ExportMaterialAnimations bool `json:"exportMaterialAnimations"`
	ExportAmbient            bool `json:"exportAmbient"`
	ExportFog                bool `json:"exportFog"`
}
