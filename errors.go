package anm

import (
	"errors"
	"fmt"
)

var (
	ErrMissingFile      = errors.New("target file does not exist")
	ErrNoSample         = errors.New("no sample for property")
	ErrInvalidContainer = errors.New("invalid xfbin container")
	ErrInvalidAnm       = errors.New("invalid anm chunk")
)

// MissingFileError 注入模式下目标文件不存在
type MissingFileError struct {
	Path string
}

func (e *MissingFileError) Error() string {
	return fmt.Sprintf("inject into %q: %v", e.Path, ErrMissingFile)
}

func (e *MissingFileError) Unwrap() error { return ErrMissingFile }

// MissingReferenceError 引用未注册
type MissingReferenceError struct {
	Reference StructReference
}

func (e *MissingReferenceError) Error() string {
	return fmt.Sprintf("struct reference %q (%s %s %s) is not registered",
		e.Reference.Name, e.Reference.Info.Type, e.Reference.Info.Path, e.Reference.Info.Name)
}

// UnsupportedChannelError 通道类别与关键帧格式无对应转换
type UnsupportedChannelError struct {
	Kind   ChannelKind
	Format KeyFormat
}

func (e *UnsupportedChannelError) Error() string {
	return fmt.Sprintf("no conversion for channel %s with key format 0x%02X", e.Kind, uint16(e.Format))
}
