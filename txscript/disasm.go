package txscript

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// disasmOpcode 将单个操作码写入 buf：小整数写为十进制数值，其余数据推送写为十六进制数据，
// 其他操作码写为统计标签。
func disasmOpcode(buf *strings.Builder, op byte, data []byte) {
	switch {
	case op == OP_1NEGATE:
		buf.WriteString("-1")
	case IsSmallInt(op):
		buf.WriteString(strconv.Itoa(AsSmallInt(op)))
	case op == OP_RESERVED:
		buf.WriteString("OP_RESERVED")
	case IsDataPush(op):
		buf.WriteString(hex.EncodeToString(data))
	default:
		buf.WriteString(OpcodeLabel(op))
	}
}

// DisasmString 返回脚本的单行反汇编文本，各操作码之间以空格分隔。
//
// 脚本在某个推送处截断时，返回截断前的文本加上 "[error]"，以及分解时遇到的错误。
func DisasmString(script []byte) (string, error) {
	var buf strings.Builder

	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		disasmOpcode(&buf, tokenizer.Opcode(), tokenizer.Data())
	}

	if err := tokenizer.Err(); err != nil {
		if buf.Len() > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString("[error]")
		return buf.String(), err
	}
	return buf.String(), nil
}
