// 包含测试操作码助记符表与分类的代码。

package txscript

import (
	"fmt"
	"strings"
	"testing"

	btctxscript "github.com/btcsuite/btcd/txscript"
	"github.com/stretchr/testify/require"
)

// TestOpcodeNamesMatchBtcd 确保助记符表与 btcd 登记的操作码名称一致。
func TestOpcodeNamesMatchBtcd(t *testing.T) {
	t.Parallel()

	for name, value := range btctxscript.OpcodeByName {
		if value < FirstNonPushOpcode {
			continue
		}
		if strings.HasPrefix(name, "OP_UNKNOWN") {
			_, ok := OpcodeName(value)
			require.False(t, ok, "%s should not be registered", name)
			require.Equal(t, fmt.Sprintf("OP_UNKNOWN(%d)", value),
				OpcodeLabel(value))
			continue
		}

		got, ok := OpcodeName(value)
		require.True(t, ok, "%s (0x%02x) missing", name, value)
		require.Equal(t, value, btctxscript.OpcodeByName[got],
			"%s resolves to a different value", got)
	}

	for op := 0; op < 256; op++ {
		name, ok := OpcodeName(byte(op))
		if !ok {
			continue
		}
		require.GreaterOrEqual(t, op, FirstNonPushOpcode, "push opcode %s named", name)
		require.Equal(t, byte(op), btctxscript.OpcodeByName[name], name)
	}
}

// TestOpcodeLabel 测试统计标签的生成。
func TestOpcodeLabel(t *testing.T) {
	t.Parallel()

	tests := []struct {
		op   byte
		want string
	}{
		{OP_NOP, "OP_NOP"},
		{OP_CHECKSIG, "OP_CHECKSIG"},
		{OP_CHECKSIGADD, "OP_CHECKSIGADD"},
		{OP_CHECKLOCKTIMEVERIFY, "OP_CHECKLOCKTIMEVERIFY"},
		{OP_INVALIDOPCODE, "OP_INVALIDOPCODE"},
		{0xbb, "OP_UNKNOWN(187)"},
		{0xfc, "OP_UNKNOWN(252)"},
	}

	for _, test := range tests {
		require.Equal(t, test.want, OpcodeLabel(test.op), "opcode 0x%02x", test.op)
	}
}

// TestIsDataPush 确保数据推送区间的边界正确。
func TestIsDataPush(t *testing.T) {
	t.Parallel()

	require.True(t, IsDataPush(OP_0))
	require.True(t, IsDataPush(OP_PUSHDATA4))
	require.True(t, IsDataPush(OP_1NEGATE))
	require.True(t, IsDataPush(OP_RESERVED))
	require.True(t, IsDataPush(OP_16))
	require.False(t, IsDataPush(OP_NOP))
	require.False(t, IsDataPush(OP_INVALIDOPCODE))
}

// TestSmallInt 测试小整数操作码的识别与取值。
func TestSmallInt(t *testing.T) {
	t.Parallel()

	require.True(t, IsSmallInt(OP_0))
	require.Equal(t, 0, AsSmallInt(OP_0))
	for n := 1; n <= 16; n++ {
		op := byte(OP_1 + n - 1)
		require.True(t, IsSmallInt(op))
		require.Equal(t, n, AsSmallInt(op))
	}
	require.False(t, IsSmallInt(OP_1NEGATE))
	require.False(t, IsSmallInt(OP_DATA_1))
	require.False(t, IsSmallInt(OP_NOP))
}
