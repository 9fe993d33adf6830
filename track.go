package anm

import (
	"fmt"
	"math"
	"sort"
)

// Keyframe 单轴关键帧
type Keyframe struct {
	Frame int     `json:"frame"`
	Value float64 `json:"value"`
}

// Sample 合并后的多轴采样
type Sample struct {
	Frame  int
	Values []float64
}

type TrackHeader struct {
	TrackIndex uint16
	Format     KeyFormat
	FrameCount uint16
	Flags      uint16
}

type Track struct {
	Keys []Key
}

// FrameRange 动作的帧区间，Count 为 0 时逐帧表只覆盖到最后一个采样
type FrameRange struct {
	Start int
	Count int
}

// MergeAxes 取各轴帧号并集，缺少采样的轴沿用上一个值，之前没有值的轴使用默认值
func MergeAxes(axes [][]Keyframe, defaults []float64) []Sample {
	n := len(axes)
	if len(defaults) > n {
		n = len(defaults)
	}
	sorted := make([][]Keyframe, len(axes))
	seen := make(map[int]struct{})
	var frames []int
	for i, ax := range axes {
		s := append([]Keyframe(nil), ax...)
		sort.SliceStable(s, func(a, b int) bool { return s[a].Frame < s[b].Frame })
		sorted[i] = s
		for _, k := range s {
			if _, ok := seen[k.Frame]; !ok {
				seen[k.Frame] = struct{}{}
				frames = append(frames, k.Frame)
			}
		}
	}
	sort.Ints(frames)

	current := make([]float64, n)
	copy(current, defaults)
	cursor := make([]int, len(sorted))
	samples := make([]Sample, 0, len(frames))
	for _, f := range frames {
		for i, ax := range sorted {
			for cursor[i] < len(ax) && ax[cursor[i]].Frame <= f {
				current[i] = ax[cursor[i]].Value
				cursor[i]++
			}
		}
		samples = append(samples, Sample{Frame: f, Values: append([]float64(nil), current...)})
	}
	return samples
}

type formatPair struct {
	fixed  KeyFormat
	linear KeyFormat
}

var channelFormats = map[ChannelKind]formatPair{
	CHANNEL_LOCATION:            {KEY_FORMAT_VECTOR3_FIXED, KEY_FORMAT_VECTOR3_LINEAR},
	CHANNEL_OBJECT_LOCATION:     {KEY_FORMAT_VECTOR3_FIXED, KEY_FORMAT_VECTOR3_LINEAR},
	CHANNEL_SCALE:               {KEY_FORMAT_VECTOR3_FIXED, KEY_FORMAT_VECTOR3_LINEAR},
	CHANNEL_ROTATION_QUATERNION: {KEY_FORMAT_EULER_XYZ_FIXED, KEY_FORMAT_QUATERNION_LINEAR},
	CHANNEL_ROTATION_EULER:      {KEY_FORMAT_EULER_XYZ_FIXED, KEY_FORMAT_VECTOR3_TABLE},
	CHANNEL_TOGGLE:              {KEY_FORMAT_FLOAT_FIXED, KEY_FORMAT_FLOAT_LINEAR},
	CHANNEL_FOV:                 {KEY_FORMAT_FLOAT_FIXED, KEY_FORMAT_FLOAT_LINEAR},
	CHANNEL_FLOAT:               {KEY_FORMAT_FLOAT_FIXED, KEY_FORMAT_FLOAT_LINEAR},
}

// EncodeChannel 按采样数选择表示：0/1 个采样写一个 Fixed 关键帧，
// 多个采样写 Linear 关键帧(帧号×100)并追加帧号 -1 的终止帧
func EncodeChannel(trackIndex int, kind ChannelKind, axes [][]Keyframe, defaults []float64, bind *BindPose) (TrackHeader, Track, error) {
	return EncodeChannelRange(trackIndex, kind, axes, defaults, bind, FrameRange{})
}

// EncodeChannelRange 同 EncodeChannel，逐帧表按 span 对齐到动作的帧区间
func EncodeChannelRange(trackIndex int, kind ChannelKind, axes [][]Keyframe, defaults []float64, bind *BindPose, span FrameRange) (TrackHeader, Track, error) {
	formats, ok := channelFormats[kind]
	if !ok {
		return TrackHeader{}, Track{}, &UnsupportedChannelError{Kind: kind}
	}
	samples := MergeAxes(axes, defaults)
	if len(samples) <= 1 {
		values := defaults
		if len(samples) == 1 {
			values = samples[0].Values
		}
		key, err := convertKey(kind, formats.fixed, bind, values)
		if err != nil {
			return TrackHeader{}, Track{}, err
		}
		return newTrack(trackIndex, formats.fixed, []Key{key})
	}
	if kind == CHANNEL_ROTATION_EULER {
		return encodeHeldTable(trackIndex, kind, formats.linear, samples, bind, span)
	}

	keys := make([]Key, 0, len(samples)+1)
	for _, s := range samples {
		key, err := convertKey(kind, formats.linear, bind, s.Values)
		if err != nil {
			return TrackHeader{}, Track{}, err
		}
		key.Frame = int32(s.Frame * FRAME_SCALE)
		keys = append(keys, key)
	}
	keys = append(keys, keys[len(keys)-1].withFrame(TERMINAL_FRAME))
	return newTrack(trackIndex, formats.linear, keys)
}

// encodeHeldTable 把稀疏采样展开成逐帧表，两个采样之间保持前值，首个采样之前沿用首个采样
func encodeHeldTable(trackIndex int, kind ChannelKind, format KeyFormat, samples []Sample, bind *BindPose, span FrameRange) (TrackHeader, Track, error) {
	start, count := span.Start, span.Count
	if count <= 0 {
		start = 0
		count = samples[len(samples)-1].Frame + 1
		if count < 1 {
			count = 1
		}
	}
	dense := make([][]float64, 0, count)
	cur := 0
	for f := start; f < start+count; f++ {
		for cur+1 < len(samples) && samples[cur+1].Frame <= f {
			cur++
		}
		dense = append(dense, samples[cur].Values)
	}
	return EncodeTable(trackIndex, kind, format, dense, bind)
}

// EncodeTable 逐帧表编码，颜色表重复最后一个值补齐到 4 的倍数
func EncodeTable(trackIndex int, kind ChannelKind, format KeyFormat, values [][]float64, bind *BindPose) (TrackHeader, Track, error) {
	if len(values) == 0 {
		return TrackHeader{}, Track{}, fmt.Errorf("encode %s table: no samples", kind)
	}
	keys := make([]Key, 0, len(values)+3)
	for _, v := range values {
		key, err := convertKey(kind, format, bind, v)
		if err != nil {
			return TrackHeader{}, Track{}, err
		}
		keys = append(keys, key)
	}
	if format == KEY_FORMAT_COLOR_RGB_TABLE {
		for len(keys)%4 != 0 {
			keys = append(keys, keys[len(keys)-1])
		}
	}
	return newTrack(trackIndex, format, keys)
}

func newTrack(trackIndex int, format KeyFormat, keys []Key) (TrackHeader, Track, error) {
	if len(keys) > math.MaxUint16 {
		return TrackHeader{}, Track{}, fmt.Errorf("track %d: %d keys exceed the frame count limit", trackIndex, len(keys))
	}
	h := TrackHeader{
		TrackIndex: uint16(trackIndex),
		Format:     format,
		FrameCount: uint16(len(keys)),
	}
	return h, Track{Keys: keys}, nil
}
