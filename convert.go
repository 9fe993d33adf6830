package anm

import (
	"math"

	dquat "github.com/flywave/go3d/float64/quaternion"
	dvec3 "github.com/flywave/go3d/float64/vec3"
	"github.com/flywave/go3d/quaternion"
	"github.com/flywave/go3d/vec3"
)

// BindPose 骨骼的静止姿态(父空间)，长度单位为米
type BindPose struct {
	Translation dvec3.T `json:"translation"`
	Rotation    dquat.T `json:"rotation"`
	Scale       dvec3.T `json:"scale"`
}

func IdentityBindPose() BindPose {
	return BindPose{
		Rotation: dquat.Ident,
		Scale:    dvec3.T{1, 1, 1},
	}
}

func (b *BindPose) rotation() dquat.T {
	if b == nil || b.Rotation == (dquat.T{}) {
		return dquat.Ident
	}
	return b.Rotation.Normalized()
}

func (b *BindPose) scale() dvec3.T {
	if b == nil || b.Scale == (dvec3.T{}) {
		return dvec3.T{1, 1, 1}
	}
	return b.Scale
}

func (b *BindPose) translation() dvec3.T {
	if b == nil {
		return dvec3.T{}
	}
	return b.Translation
}

// ConvertLocation 以静止姿态旋转、平移，并由米转为厘米
func ConvertLocation(bind *BindPose, v []float64) [3]float64 {
	loc := vec3Of(v)
	rot := bind.rotation()
	t := bind.translation()
	moved := rot.RotatedVec3(&loc)
	moved = dvec3.Add(&moved, &t)
	scaled := moved.Scaled(100)
	return [3]float64{scaled[0], scaled[1], scaled[2]}
}

// ConvertObjectLocation 相机、灯光的世界坐标，仅做单位换算
func ConvertObjectLocation(v []float64) [3]float64 {
	return ConvertLocation(nil, v)
}

// ConvertRotation 输入 (w,x,y,z)，与静止姿态复合后求逆，输出 (x,y,z,w)
func ConvertRotation(bind *BindPose, wxyz []float64) [4]float64 {
	q := quatOfWXYZ(wxyz)
	rot := bind.rotation()
	composed := dquat.Mul(&rot, &q)
	composed = composed.Normalized()
	inv := composed.Inverted()
	return [4]float64{inv[0], inv[1], inv[2], inv[3]}
}

func ConvertObjectRotation(wxyz []float64) [4]float64 {
	return ConvertRotation(nil, wxyz)
}

// float32Vec3 chunk 中的坐标与颜色按 float32 存储
func float32Vec3(v [3]float64) vec3.T {
	return vec3.T{float32(v[0]), float32(v[1]), float32(v[2])}
}

func float32Quat(xyzw [4]float64) quaternion.T {
	return quaternion.T{float32(xyzw[0]), float32(xyzw[1]), float32(xyzw[2]), float32(xyzw[3])}
}

// QuantizeQuaternion 乘以 0x4000 并截断到 int16 范围
func QuantizeQuaternion(xyzw [4]float64) [4]int16 {
	var out [4]int16
	for i := range xyzw {
		out[i] = quantize(xyzw[i], QUAT_COMPRESS)
	}
	return out
}

func DequantizeQuaternion(q [4]int16) [4]float64 {
	var out [4]float64
	for i := range q {
		out[i] = float64(q[i]) / QUAT_COMPRESS
	}
	return out
}

func quantize(v, factor float64) int16 {
	r := math.Round(v * factor)
	if r > math.MaxInt16 {
		return math.MaxInt16
	}
	if r < math.MinInt16 {
		return math.MinInt16
	}
	return int16(r)
}

// ConvertEuler 弧度转角度，不与静止姿态复合
func ConvertEuler(radians []float64) [3]float64 {
	var out [3]float64
	for i := 0; i < 3 && i < len(radians); i++ {
		out[i] = radians[i] * 180 / math.Pi
	}
	return out
}

// QuaternionToEuler (x,y,z,w) 转 XYZ 欧拉角(度)
func QuaternionToEuler(xyzw [4]float64) [3]float64 {
	x, y, z, w := xyzw[0], xyzw[1], xyzw[2], xyzw[3]
	ex := math.Atan2(2*(w*x+y*z), 1-2*(x*x+y*y))
	sy := 2 * (w*y - z*x)
	if sy > 1 {
		sy = 1
	} else if sy < -1 {
		sy = -1
	}
	ey := math.Asin(sy)
	ez := math.Atan2(2*(w*z+x*y), 1-2*(y*y+z*z))
	return ConvertEuler([]float64{ex, ey, ez})
}

// EulerToQuaternion XYZ 欧拉角(弧度) 转 (w,x,y,z)
func EulerToQuaternion(radians []float64) [4]float64 {
	e := vec3Of(radians)
	qx := dquat.FromXAxisAngle(e[0])
	qy := dquat.FromYAxisAngle(e[1])
	qz := dquat.FromZAxisAngle(e[2])
	zy := dquat.Mul(&qz, &qy)
	q := dquat.Mul(&zy, &qx)
	return [4]float64{q[3], q[0], q[1], q[2]}
}

// ConvertScale 取绝对值后乘以静止姿态缩放
func ConvertScale(bind *BindPose, v []float64) [3]float64 {
	s := vec3Of(v)
	bs := bind.scale()
	var out [3]float64
	for i := range out {
		out[i] = math.Abs(s[i]) * bs[i]
	}
	return out
}

// CameraFOV 由传感器宽度与焦距求视角(度)
func CameraFOV(sensorWidth, lens float64) float64 {
	if lens == 0 {
		return 0
	}
	return 2 * math.Atan(0.5*sensorWidth/lens) * 180 / math.Pi
}

func ConvertColor(v []float64) [3]uint8 {
	var out [3]uint8
	for i := 0; i < 3 && i < len(v); i++ {
		c := math.Round(v[i] * 255)
		if c < 0 {
			c = 0
		} else if c > 255 {
			c = 255
		}
		out[i] = uint8(c)
	}
	return out
}

func vec3Of(v []float64) dvec3.T {
	var out dvec3.T
	for i := 0; i < 3 && i < len(v); i++ {
		out[i] = v[i]
	}
	return out
}

func quatOfWXYZ(v []float64) dquat.T {
	if len(v) < 4 {
		return dquat.Ident
	}
	q := dquat.T{v[1], v[2], v[3], v[0]}
	if q == (dquat.T{}) {
		return dquat.Ident
	}
	return q.Normalized()
}
