// 定义了脚本处理过程中可能遇到的错误类型。

package txscript

import (
	"errors"
	"fmt"
)

// ErrorCode 标识一种脚本错误。
type ErrorCode int

// 这些常量用于标识特定的 Error。
const (
	// ErrMalformedPush 表示数据推送操作码声明的长度超出了脚本剩余的字节。
	ErrMalformedPush ErrorCode = iota

	// ErrControlBlockTooSmall 表示控制块短于 33 字节的基本长度。
	ErrControlBlockTooSmall

	// ErrControlBlockTooLarge 表示控制块超过了最大深度 Merkle 证明所允许的长度。
	ErrControlBlockTooLarge

	// ErrControlBlockInvalidLength 表示控制块的证明部分不是 32 字节的整数倍。
	ErrControlBlockInvalidLength

	// numErrorCodes 是错误码的最大值，仅用于测试中的完整性检查。
	numErrorCodes
)

// errorCodeStrings 将错误码映射为人类可读的名称。
var errorCodeStrings = map[ErrorCode]string{
	ErrMalformedPush:             "ErrMalformedPush",
	ErrControlBlockTooSmall:      "ErrControlBlockTooSmall",
	ErrControlBlockTooLarge:      "ErrControlBlockTooLarge",
	ErrControlBlockInvalidLength: "ErrControlBlockInvalidLength",
}

// String 返回错误码的可读名称。
func (e ErrorCode) String() string {
	if s := errorCodeStrings[e]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorCode (%d)", int(e))
}

// Error 标识脚本相关的错误。调用方可以通过类型断言检查 ErrorCode 字段以编程方式识别错误，
// Description 字段则提供带有上下文信息的描述。
type Error struct {
	ErrorCode   ErrorCode
	Description string
}

// Error 满足 error 接口并打印人类可读的错误。
func (e Error) Error() string {
	return e.Description
}

// scriptError 使用给定的错误码和描述创建一个 Error。
func scriptError(c ErrorCode, desc string) Error {
	return Error{ErrorCode: c, Description: desc}
}

// IsErrorCode 返回所提供的错误是否为带有该错误码的脚本错误。
func IsErrorCode(err error, c ErrorCode) bool {
	var serr Error
	return errors.As(err, &serr) && serr.ErrorCode == c
}
