package anm

const XFBIN_SIGNATURE string = "NUCC"
const XFBIN_EXT string = ".xfbin"
const XFBIN_VERSION uint32 = 121
const CHUNK_VERSION uint16 = 121

// 旋转、缩放压缩系数
const QUAT_COMPRESS float64 = 0x4000
const SCALE_COMPRESS float64 = 0x1000

// 帧号在文件中以 1/100 帧为单位
const FRAME_SCALE = 100

// Linear 轨道末尾的终止帧
const TERMINAL_FRAME int32 = -1

const (
	CHUNK_TYPE_NULL        = "nuccChunkNull"
	CHUNK_TYPE_PAGE        = "nuccChunkPage"
	CHUNK_TYPE_INDEX       = "nuccChunkIndex"
	CHUNK_TYPE_ANM         = "nuccChunkAnm"
	CHUNK_TYPE_CLUMP       = "nuccChunkClump"
	CHUNK_TYPE_COORD       = "nuccChunkCoord"
	CHUNK_TYPE_MODEL       = "nuccChunkModel"
	CHUNK_TYPE_MATERIAL    = "nuccChunkMaterial"
	CHUNK_TYPE_CAMERA      = "nuccChunkCamera"
	CHUNK_TYPE_LIGHT_DIRC  = "nuccChunkLightDirc"
	CHUNK_TYPE_LIGHT_POINT = "nuccChunkLightPoint"
	CHUNK_TYPE_AMBIENT     = "nuccChunkAmbient"
)

// KeyFormat 关键帧编码格式
type KeyFormat uint16

const (
	KEY_FORMAT_VECTOR3_FIXED                    KeyFormat = 0x05
	KEY_FORMAT_VECTOR3_LINEAR                   KeyFormat = 0x06
	KEY_FORMAT_VECTOR3_BEZIER                   KeyFormat = 0x07
	KEY_FORMAT_EULER_XYZ_FIXED                  KeyFormat = 0x08
	KEY_FORMAT_EULER_INTERPOLATED               KeyFormat = 0x09
	KEY_FORMAT_QUATERNION_LINEAR                KeyFormat = 0x0A
	KEY_FORMAT_FLOAT_FIXED                      KeyFormat = 0x0B
	KEY_FORMAT_FLOAT_LINEAR                     KeyFormat = 0x0C
	KEY_FORMAT_VECTOR2_FIXED                    KeyFormat = 0x0D
	KEY_FORMAT_VECTOR2_LINEAR                   KeyFormat = 0x0E
	KEY_FORMAT_OPACITY_SHORT_TABLE              KeyFormat = 0x0F
	KEY_FORMAT_SCALE_SHORT_TABLE                KeyFormat = 0x10
	KEY_FORMAT_QUATERNION_SHORT_TABLE           KeyFormat = 0x11
	KEY_FORMAT_COLOR_RGB_TABLE                  KeyFormat = 0x14
	KEY_FORMAT_VECTOR3_TABLE                    KeyFormat = 0x15
	KEY_FORMAT_FLOAT_TABLE                      KeyFormat = 0x16
	KEY_FORMAT_QUATERNION_TABLE                 KeyFormat = 0x17
	KEY_FORMAT_FLOAT_TABLE_NO_INTERP            KeyFormat = 0x18
	KEY_FORMAT_VECTOR3_SHORT_LINEAR             KeyFormat = 0x19
	KEY_FORMAT_VECTOR3_TABLE_NO_INTERP          KeyFormat = 0x1A
	KEY_FORMAT_QUATERNION_SHORT_TABLE_NO_INTERP KeyFormat = 0x1B
	KEY_FORMAT_OPACITY_SHORT_TABLE_NO_INTERP    KeyFormat = 0x1D
)

// EntryFormat 条目类型
type EntryFormat uint16

const (
	ENTRY_FORMAT_COORD       EntryFormat = 1
	ENTRY_FORMAT_CAMERA      EntryFormat = 2
	ENTRY_FORMAT_MATERIAL    EntryFormat = 4
	ENTRY_FORMAT_LIGHT_DIRC  EntryFormat = 5
	ENTRY_FORMAT_LIGHT_POINT EntryFormat = 6
	ENTRY_FORMAT_AMBIENT     EntryFormat = 8
)

// 骨骼条目的轨道编号
const (
	TRACK_COORD_LOCATION = 0
	TRACK_COORD_ROTATION = 1
	TRACK_COORD_SCALE    = 2
	TRACK_COORD_TOGGLE   = 3
)

const (
	TRACK_CAMERA_LOCATION = 0
	TRACK_CAMERA_ROTATION = 1
	TRACK_CAMERA_FOV      = 2
)

const (
	TRACK_LIGHT_DIRC_COLOR     = 0
	TRACK_LIGHT_DIRC_STRENGTH  = 1
	TRACK_LIGHT_DIRC_DIRECTION = 2
)

const (
	TRACK_LIGHT_POINT_COLOR    = 0
	TRACK_LIGHT_POINT_STRENGTH = 1
	TRACK_LIGHT_POINT_POSITION = 2
	TRACK_LIGHT_POINT_RADIUS   = 3
	TRACK_LIGHT_POINT_CUTOFF   = 4
)

const (
	TRACK_AMBIENT_COLOR     = 0
	TRACK_AMBIENT_STRENGTH  = 1
	TRACK_AMBIENT_FOG_COLOR = 2
	TRACK_AMBIENT_FOG_NEAR  = 3
	TRACK_AMBIENT_FOG_FAR   = 4
)

// ChannelKind 通道的语义类别，决定坐标转换方式
type ChannelKind int

const (
	CHANNEL_LOCATION ChannelKind = iota
	CHANNEL_ROTATION_QUATERNION
	CHANNEL_ROTATION_EULER
	CHANNEL_SCALE
	CHANNEL_TOGGLE
	CHANNEL_OBJECT_LOCATION
	CHANNEL_OBJECT_ROTATION
	CHANNEL_FOV
	CHANNEL_COLOR
	CHANNEL_FLOAT
)

var channelKindNames = map[ChannelKind]string{
	CHANNEL_LOCATION:            "location",
	CHANNEL_ROTATION_QUATERNION: "rotation_quaternion",
	CHANNEL_ROTATION_EULER:      "rotation_euler",
	CHANNEL_SCALE:               "scale",
	CHANNEL_TOGGLE:              "toggle",
	CHANNEL_OBJECT_LOCATION:     "object_location",
	CHANNEL_OBJECT_ROTATION:     "object_rotation",
	CHANNEL_FOV:                 "fov",
	CHANNEL_COLOR:               "color",
	CHANNEL_FLOAT:               "float",
}

func (k ChannelKind) String() string {
	if s, ok := channelKindNames[k]; ok {
		return s
	}
	return "unknown"
}

// 场景属性路径
const (
	PATH_LOCATION            = "location"
	PATH_ROTATION_QUATERNION = "rotation_quaternion"
	PATH_ROTATION_EULER      = "rotation_euler"
	PATH_SCALE               = "scale"
	PATH_TOGGLE              = "toggle"
	PATH_LENS                = "lens"
	PATH_SENSOR_WIDTH        = "sensor_width"
	PATH_COLOR               = "color"
	PATH_ENERGY              = "energy"
	PATH_RADIUS              = "shadow_soft_size"
	PATH_CUTOFF              = "cutoff_distance"
	PATH_FOG_COLOR           = "fog_color"
	PATH_FOG_START           = "fog_start"
	PATH_FOG_END             = "fog_end"
)
