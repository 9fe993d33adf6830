package anm

// KeyKind 关键帧的形态
type KeyKind uint8

const (
	KEY_FIXED KeyKind = iota
	KEY_LINEAR
	KEY_TABLE
	KEY_SHORT
)

// Key 单个关键帧。Frame 仅 Linear 使用；Values/Shorts/Bytes 按格式三选一
type Key struct {
	Kind   KeyKind
	Frame  int32
	Values []float32
	Shorts []int16
	Bytes  []uint8
}

func FixedKey(v ...float64) Key {
	return Key{Kind: KEY_FIXED, Values: toFloat32s(v)}
}

func LinearKey(frame int32, v ...float64) Key {
	return Key{Kind: KEY_LINEAR, Frame: frame, Values: toFloat32s(v)}
}

func TableKey(v ...float64) Key {
	return Key{Kind: KEY_TABLE, Values: toFloat32s(v)}
}

func ShortKey(v ...int16) Key {
	return Key{Kind: KEY_SHORT, Shorts: append([]int16(nil), v...)}
}

func ColorKey(c [3]uint8) Key {
	return Key{Kind: KEY_TABLE, Bytes: []uint8{c[0], c[1], c[2]}}
}

// withFrame 复制值并改写帧号
func (k Key) withFrame(frame int32) Key {
	out := Key{Kind: KEY_LINEAR, Frame: frame}
	out.Values = append([]float32(nil), k.Values...)
	out.Shorts = append([]int16(nil), k.Shorts...)
	return out
}

func toFloat32s(v []float64) []float32 {
	out := make([]float32, len(v))
	for i := range v {
		out[i] = float32(v[i])
	}
	return out
}

type componentType uint8

const (
	COMPONENT_FLOAT32 componentType = iota
	COMPONENT_INT16
	COMPONENT_UINT8
)

// keyLayout 描述一种格式的关键帧负载
type keyLayout struct {
	kind       KeyKind
	components int
	component  componentType
}

func (l keyLayout) size() int {
	n := l.components
	switch l.component {
	case COMPONENT_FLOAT32:
		n *= 4
	case COMPONENT_INT16:
		n *= 2
	}
	if l.kind == KEY_LINEAR {
		n += 4
	}
	return n
}

var keyLayouts = map[KeyFormat]keyLayout{
	KEY_FORMAT_VECTOR3_FIXED:                    {KEY_FIXED, 3, COMPONENT_FLOAT32},
	KEY_FORMAT_VECTOR3_LINEAR:                   {KEY_LINEAR, 3, COMPONENT_FLOAT32},
	KEY_FORMAT_EULER_XYZ_FIXED:                  {KEY_FIXED, 3, COMPONENT_FLOAT32},
	KEY_FORMAT_QUATERNION_LINEAR:                {KEY_LINEAR, 4, COMPONENT_FLOAT32},
	KEY_FORMAT_FLOAT_FIXED:                      {KEY_FIXED, 1, COMPONENT_FLOAT32},
	KEY_FORMAT_FLOAT_LINEAR:                     {KEY_LINEAR, 1, COMPONENT_FLOAT32},
	KEY_FORMAT_VECTOR2_FIXED:                    {KEY_FIXED, 2, COMPONENT_FLOAT32},
	KEY_FORMAT_VECTOR2_LINEAR:                   {KEY_LINEAR, 2, COMPONENT_FLOAT32},
	KEY_FORMAT_OPACITY_SHORT_TABLE:              {KEY_SHORT, 1, COMPONENT_INT16},
	KEY_FORMAT_SCALE_SHORT_TABLE:                {KEY_SHORT, 3, COMPONENT_INT16},
	KEY_FORMAT_QUATERNION_SHORT_TABLE:           {KEY_SHORT, 4, COMPONENT_INT16},
	KEY_FORMAT_COLOR_RGB_TABLE:                  {KEY_TABLE, 3, COMPONENT_UINT8},
	KEY_FORMAT_VECTOR3_TABLE:                    {KEY_TABLE, 3, COMPONENT_FLOAT32},
	KEY_FORMAT_FLOAT_TABLE:                      {KEY_TABLE, 1, COMPONENT_FLOAT32},
	KEY_FORMAT_QUATERNION_TABLE:                 {KEY_TABLE, 4, COMPONENT_FLOAT32},
	KEY_FORMAT_FLOAT_TABLE_NO_INTERP:            {KEY_TABLE, 1, COMPONENT_FLOAT32},
	KEY_FORMAT_VECTOR3_SHORT_LINEAR:             {KEY_LINEAR, 3, COMPONENT_INT16},
	KEY_FORMAT_VECTOR3_TABLE_NO_INTERP:          {KEY_TABLE, 3, COMPONENT_FLOAT32},
	KEY_FORMAT_QUATERNION_SHORT_TABLE_NO_INTERP: {KEY_SHORT, 4, COMPONENT_INT16},
	KEY_FORMAT_OPACITY_SHORT_TABLE_NO_INTERP:    {KEY_SHORT, 1, COMPONENT_INT16},
}

func layoutOf(f KeyFormat) (keyLayout, bool) {
	l, ok := keyLayouts[f]
	return l, ok
}

// convertFunc 把场景值转换为一个关键帧(不含帧号)
type convertFunc func(bind *BindPose, v []float64) Key

type conversion struct {
	kind   ChannelKind
	format KeyFormat
}

var conversions = map[conversion]convertFunc{
	{CHANNEL_LOCATION, KEY_FORMAT_VECTOR3_FIXED}: func(b *BindPose, v []float64) Key {
		l := ConvertLocation(b, v)
		return FixedKey(l[:]...)
	},
	{CHANNEL_LOCATION, KEY_FORMAT_VECTOR3_LINEAR}: func(b *BindPose, v []float64) Key {
		l := ConvertLocation(b, v)
		return LinearKey(0, l[:]...)
	},
	{CHANNEL_OBJECT_LOCATION, KEY_FORMAT_VECTOR3_FIXED}: func(_ *BindPose, v []float64) Key {
		l := ConvertObjectLocation(v)
		return FixedKey(l[:]...)
	},
	{CHANNEL_OBJECT_LOCATION, KEY_FORMAT_VECTOR3_LINEAR}: func(_ *BindPose, v []float64) Key {
		l := ConvertObjectLocation(v)
		return LinearKey(0, l[:]...)
	},
	{CHANNEL_ROTATION_QUATERNION, KEY_FORMAT_QUATERNION_LINEAR}: func(b *BindPose, v []float64) Key {
		q := ConvertRotation(b, v)
		return LinearKey(0, q[:]...)
	},
	{CHANNEL_ROTATION_QUATERNION, KEY_FORMAT_EULER_XYZ_FIXED}: func(b *BindPose, v []float64) Key {
		e := QuaternionToEuler(ConvertRotation(b, v))
		return FixedKey(e[:]...)
	},
	{CHANNEL_ROTATION_QUATERNION, KEY_FORMAT_QUATERNION_SHORT_TABLE}: func(b *BindPose, v []float64) Key {
		q := QuantizeQuaternion(ConvertRotation(b, v))
		return ShortKey(q[:]...)
	},
	{CHANNEL_OBJECT_ROTATION, KEY_FORMAT_QUATERNION_SHORT_TABLE}: func(_ *BindPose, v []float64) Key {
		q := QuantizeQuaternion(ConvertObjectRotation(v))
		return ShortKey(q[:]...)
	},
	{CHANNEL_OBJECT_ROTATION, KEY_FORMAT_EULER_XYZ_FIXED}: func(_ *BindPose, v []float64) Key {
		e := QuaternionToEuler(ConvertObjectRotation(v))
		return FixedKey(e[:]...)
	},
	{CHANNEL_ROTATION_EULER, KEY_FORMAT_EULER_XYZ_FIXED}: func(_ *BindPose, v []float64) Key {
		e := ConvertEuler(v)
		return FixedKey(e[:]...)
	},
	{CHANNEL_ROTATION_EULER, KEY_FORMAT_VECTOR3_TABLE}: func(_ *BindPose, v []float64) Key {
		e := ConvertEuler(v)
		return TableKey(e[:]...)
	},
	{CHANNEL_SCALE, KEY_FORMAT_VECTOR3_FIXED}: func(b *BindPose, v []float64) Key {
		s := ConvertScale(b, v)
		return FixedKey(s[:]...)
	},
	{CHANNEL_SCALE, KEY_FORMAT_VECTOR3_LINEAR}: func(b *BindPose, v []float64) Key {
		s := ConvertScale(b, v)
		return LinearKey(0, s[:]...)
	},
	{CHANNEL_TOGGLE, KEY_FORMAT_FLOAT_FIXED}: func(_ *BindPose, v []float64) Key {
		return FixedKey(first(v, 1))
	},
	{CHANNEL_TOGGLE, KEY_FORMAT_FLOAT_LINEAR}: func(_ *BindPose, v []float64) Key {
		return LinearKey(0, first(v, 1))
	},
	{CHANNEL_FOV, KEY_FORMAT_FLOAT_FIXED}: func(_ *BindPose, v []float64) Key {
		return FixedKey(first(v, 0))
	},
	{CHANNEL_FOV, KEY_FORMAT_FLOAT_LINEAR}: func(_ *BindPose, v []float64) Key {
		return LinearKey(0, first(v, 0))
	},
	{CHANNEL_COLOR, KEY_FORMAT_COLOR_RGB_TABLE}: func(_ *BindPose, v []float64) Key {
		return ColorKey(ConvertColor(v))
	},
	{CHANNEL_FLOAT, KEY_FORMAT_FLOAT_FIXED}: func(_ *BindPose, v []float64) Key {
		return FixedKey(first(v, 0))
	},
	{CHANNEL_FLOAT, KEY_FORMAT_FLOAT_LINEAR}: func(_ *BindPose, v []float64) Key {
		return LinearKey(0, first(v, 0))
	},
	{CHANNEL_FLOAT, KEY_FORMAT_FLOAT_TABLE}: func(_ *BindPose, v []float64) Key {
		return TableKey(first(v, 0))
	},
}

// convertKey 查表转换，表中没有的组合返回 UnsupportedChannelError
func convertKey(kind ChannelKind, format KeyFormat, bind *BindPose, v []float64) (Key, error) {
	fn, ok := conversions[conversion{kind, format}]
	if !ok {
		return Key{}, &UnsupportedChannelError{Kind: kind, Format: format}
	}
	return fn(bind, v), nil
}

func first(v []float64, def float64) float64 {
	if len(v) == 0 {
		return def
	}
	return v[0]
}
