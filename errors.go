package tapfreq

import (
	"context"
	"errors"
	"fmt"

	"github.com/qinglongcn/tapfreq/kernel"
)

// ErrorKind 标识扫描流程中的一类错误。
type ErrorKind int

const (
	// ErrConfiguration 表示选项无效，例如数据目录不存在或网络名称未知。
	ErrConfiguration ErrorKind = iota

	// ErrInvalidRange 表示规范化后的起始高度大于结束高度，或起始高度小于 0。
	ErrInvalidRange

	// ErrMalformedBlock 表示区块字节无法解码为区块。
	ErrMalformedBlock

	// ErrUndoMismatch 表示撤销数据的交易数量与区块不一致。
	ErrUndoMismatch

	// ErrPrevoutCountMismatch 表示交易输入数量与其被花费输出的数量不一致。
	ErrPrevoutCountMismatch

	numErrorKinds
)

var errorKindStrings = map[ErrorKind]string{
	ErrConfiguration:        "ErrConfiguration",
	ErrInvalidRange:         "ErrInvalidRange",
	ErrMalformedBlock:       "ErrMalformedBlock",
	ErrUndoMismatch:         "ErrUndoMismatch",
	ErrPrevoutCountMismatch: "ErrPrevoutCountMismatch",
}

// String 返回错误类别的可读名称。
func (k ErrorKind) String() string {
	if s := errorKindStrings[k]; s != "" {
		return s
	}
	return fmt.Sprintf("Unknown ErrorKind (%d)", int(k))
}

// Error 是本包返回的错误类型。
type Error struct {
	Kind        ErrorKind
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

func scanError(k ErrorKind, desc string) Error {
	return Error{Kind: k, Description: desc}
}

// IsErrorKind 返回 err 链中是否存在该类别的 Error。
func IsErrorKind(err error, k ErrorKind) bool {
	var serr Error
	return errors.As(err, &serr) && serr.Kind == k
}

// ErrorCategory 是面向命令行退出状态的错误分类。
type ErrorCategory int

const (
	CategoryNone ErrorCategory = iota
	CategoryConfiguration
	CategoryRange
	CategoryAccessor
	CategoryStructural
	CategoryUnknown
)

// ExitCode 返回分类对应的进程退出状态。
func (c ErrorCategory) ExitCode() int {
	switch c {
	case CategoryNone:
		return 0
	case CategoryConfiguration:
		return 2
	case CategoryRange:
		return 3
	case CategoryAccessor:
		return 4
	case CategoryStructural:
		return 5
	default:
		return 1
	}
}

// Category 将错误归入命令行可以区分的类别。取消与未知错误都归入 CategoryUnknown。
func Category(err error) ErrorCategory {
	if err == nil {
		return CategoryNone
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return CategoryUnknown
	}

	var serr Error
	if errors.As(err, &serr) {
		switch serr.Kind {
		case ErrConfiguration:
			return CategoryConfiguration
		case ErrInvalidRange:
			return CategoryRange
		case ErrMalformedBlock, ErrUndoMismatch, ErrPrevoutCountMismatch:
			return CategoryStructural
		}
	}

	var kerr kernel.Error
	if errors.As(err, &kerr) {
		return CategoryAccessor
	}
	return CategoryUnknown
}
