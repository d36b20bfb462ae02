// 包含测试 error.go 中定义的错误类型的代码。
package txscript

import (
	"fmt"
	"testing"

	"github.com/pkg/errors"
)

// TestErrorCodeStringer 测试 ErrorCode 类型的字符串化输出。
func TestErrorCodeStringer(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   ErrorCode
		want string
	}{
		{ErrMalformedPush, "ErrMalformedPush"},
		{ErrControlBlockTooSmall, "ErrControlBlockTooSmall"},
		{ErrControlBlockTooLarge, "ErrControlBlockTooLarge"},
		{ErrControlBlockInvalidLength, "ErrControlBlockInvalidLength"},
		{0xffff, "Unknown ErrorCode (65535)"},
	}

	// 检测未添加字符串化测试的其他错误代码。
	if len(tests)-1 != int(numErrorCodes) {
		t.Errorf("It appears an error code was added without adding an " +
			"associated stringer test")
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.String()
		if result != test.want {
			t.Errorf("String #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestError 测试错误类型的错误输出。
func TestError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   Error
		want string
	}{
		{
			Error{Description: "some error"},
			"some error",
		},
		{
			Error{Description: "human-readable error"},
			"human-readable error",
		},
	}

	t.Logf("Running %d tests", len(tests))
	for i, test := range tests {
		result := test.in.Error()
		if result != test.want {
			t.Errorf("Error #%d\n got: %s want: %s", i, result,
				test.want)
			continue
		}
	}
}

// TestIsErrorCode 确保包装后的脚本错误仍能按错误码识别。
func TestIsErrorCode(t *testing.T) {
	t.Parallel()

	err := scriptError(ErrMalformedPush, "short push")
	if !IsErrorCode(err, ErrMalformedPush) {
		t.Fatalf("IsErrorCode did not match bare error")
	}
	if !IsErrorCode(errors.Wrap(err, "tapscript"), ErrMalformedPush) {
		t.Fatalf("IsErrorCode did not match wrapped error")
	}
	if IsErrorCode(err, ErrControlBlockTooSmall) {
		t.Fatalf("IsErrorCode matched the wrong code")
	}
	if IsErrorCode(fmt.Errorf("plain"), ErrMalformedPush) {
		t.Fatalf("IsErrorCode matched a non-script error")
	}
}
