// 实现了一个零分配的脚本令牌生成器。

package txscript

import (
	"encoding/binary"
	"fmt"
)

// ScriptTokenizer 从左到右依次解析脚本中的操作码及其数据，不执行任何操作码。
//
// 典型用法：
//
//	tokenizer := MakeScriptTokenizer(script)
//	for tokenizer.Next() {
//		// 使用 tokenizer.Opcode() 与 tokenizer.Data()
//	}
//	if err := tokenizer.Err(); err != nil {
//		// 脚本在某处格式错误
//	}
type ScriptTokenizer struct {
	script []byte
	offset int32
	op     byte
	data   []byte
	err    error
}

// MakeScriptTokenizer 返回一个针对所提供脚本的令牌生成器。
func MakeScriptTokenizer(script []byte) ScriptTokenizer {
	return ScriptTokenizer{script: script}
}

// Done 返回令牌生成器是否已结束，包括到达脚本末尾和遇到解析错误两种情况。
func (t *ScriptTokenizer) Done() bool {
	return t.err != nil || t.offset >= int32(len(t.script))
}

// Next 尝试解析下一个操作码，成功时返回 true。
// 到达脚本末尾或遇到解析错误时返回 false，此后可通过 Err 区分两种情况。
func (t *ScriptTokenizer) Next() bool {
	if t.Done() {
		return false
	}

	op := t.script[t.offset]
	switch n := pushDataLength(op); {
	case n == 0:
		// 没有操作数的操作码，包括 OP_0、OP_1NEGATE、OP_1..OP_16 以及全部具名操作码。
		t.offset++
		t.op, t.data = op, nil
		return true

	case n > 0:
		script := t.script[t.offset:]
		if len(script) < 1+n {
			t.err = scriptError(ErrMalformedPush, fmt.Sprintf("opcode 0x%02x "+
				"requires %d bytes, but script only has %d remaining",
				op, n, len(script)-1))
			return false
		}
		t.offset += int32(1 + n)
		t.op, t.data = op, script[1:1+n]
		return true

	default:
		// OP_PUSHDATA{1,2,4}：先读取小端序的长度前缀。
		prefix := -n
		script := t.script[t.offset+1:]
		if len(script) < prefix {
			t.err = scriptError(ErrMalformedPush, fmt.Sprintf("opcode 0x%02x "+
				"requires %d bytes for data length, but script only has %d "+
				"remaining", op, prefix, len(script)))
			return false
		}

		var dataLen uint32
		switch prefix {
		case 1:
			dataLen = uint32(script[0])
		case 2:
			dataLen = uint32(binary.LittleEndian.Uint16(script[:2]))
		case 4:
			dataLen = binary.LittleEndian.Uint32(script[:4])
		}

		script = script[prefix:]
		if uint64(len(script)) < uint64(dataLen) {
			t.err = scriptError(ErrMalformedPush, fmt.Sprintf("opcode 0x%02x "+
				"pushes %d bytes, but script only has %d remaining",
				op, dataLen, len(script)))
			return false
		}

		t.offset += int32(1 + prefix + int(dataLen))
		t.op, t.data = op, script[:dataLen]
		return true
	}
}

// Script 返回正在解析的完整脚本。
func (t *ScriptTokenizer) Script() []byte {
	return t.script
}

// ByteIndex 返回下一个待解析操作码在脚本中的偏移量。
func (t *ScriptTokenizer) ByteIndex() int32 {
	return t.offset
}

// Opcode 返回最近一次成功解析的操作码。
func (t *ScriptTokenizer) Opcode() byte {
	return t.op
}

// Data 返回最近一次成功解析的操作码所推送的数据，没有数据时为 nil。
func (t *ScriptTokenizer) Data() []byte {
	return t.data
}

// Err 返回解析过程中遇到的错误，正常结束时为 nil。
func (t *ScriptTokenizer) Err() error {
	return t.err
}
