package kernel

import (
	"errors"
	"fmt"
)

// ErrorCode 标识一种链数据访问错误。
type ErrorCode int

const (
	// ErrNotLoaded 表示在 LoadChainstate 成功之前访问了链状态管理器。
	ErrNotLoaded ErrorCode = iota

	// ErrNoTip 表示链状态中没有最佳区块。
	ErrNoTip

	// ErrHeightOutOfRange 表示请求的高度不在活动链上。
	ErrHeightOutOfRange

	// ErrDiskRead 表示区块或撤销数据无法从磁盘读取，包括已被修剪的区块。
	ErrDiskRead

	// ErrCorruptData 表示磁盘上的数据与索引或校验和不一致。
	ErrCorruptData

	// ErrHandleReleased 表示使用了已经释放的句柄。
	ErrHandleReleased

	numErrorCodes
)

var errorCodeStrings = map[ErrorCode]string{
	ErrNotLoaded:        "ErrNotLoaded",
	ErrNoTip:            "ErrNoTip",
	ErrHeightOutOfRange: "ErrHeightOutOfRange",
	ErrDiskRead:         "ErrDiskRead",
	ErrCorruptData:      "ErrCorruptData",
	ErrHandleReleased:   "ErrHandleReleased",
}

// String 返回错误码的可读名称。
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error 是本包返回的错误类型。Err 保存底层错误（如果有）。
type Error struct {
	Code        ErrorCode
	Description string
	Err         error
}

// Error 满足 error 接口。
func (e Error) Error() string {
	if e.Err != nil {
		return e.Description + ": " + e.Err.Error()
	}
	return e.Description
}

// Unwrap 返回底层错误。
func (e Error) Unwrap() error {
	return e.Err
}

func kernelError(c ErrorCode, desc string, err error) Error {
	return Error{Code: c, Description: desc, Err: err}
}

// IsErrorCode 返回 err 链中是否存在带有该错误码的 Error。
func IsErrorCode(err error, c ErrorCode) bool {
	var kerr Error
	return errors.As(err, &kerr) && kerr.Code == c
}
