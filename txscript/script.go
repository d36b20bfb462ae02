// 包含识别见证程序的基本函数。

package txscript

const (
	// TaprootAnnexTag 是附件的标签。如果见证堆栈中至少有两个元素，并且最后一个元素的第一个字节与此标记匹配，
	// 那么该元素就是附件，不参与脚本执行。
	TaprootAnnexTag = 0x50

	// TaprootLeafMask 是应用于控制块首字节的掩码，用于提取叶子版本。
	TaprootLeafMask = 0xfe
)

// 见证程序的长度限制。最小的程序是见证版本加 2 字节的数据推送，最大的程序推送 40 字节。
const (
	minWitnessProgramScriptLen = 4
	maxWitnessProgramScriptLen = 42
	minWitnessProgramLen       = 2
	maxWitnessProgramLen       = 40
)

// WitnessVersionTaproot 是 Taproot 输出使用的见证版本。
const WitnessVersionTaproot = 1

// IsPayToTaproot 返回脚本是否为见证版本 1 的见证程序。
func IsPayToTaproot(script []byte) bool {
	version, _, valid := extractWitnessProgramInfo(script)
	return valid && version == WitnessVersionTaproot
}

// extractWitnessProgramInfo 返回见证版本和程序，最后一个返回值表示脚本是否为有效的见证程序。
func extractWitnessProgramInfo(script []byte) (int, []byte, bool) {
	if len(script) < minWitnessProgramScriptLen ||
		len(script) > maxWitnessProgramScriptLen {

		return 0, nil, false
	}

	tokenizer := MakeScriptTokenizer(script)

	// The first opcode must be a small int.
	if !tokenizer.Next() || !IsSmallInt(tokenizer.Opcode()) {
		return 0, nil, false
	}
	version := AsSmallInt(tokenizer.Opcode())

	// The second opcode must be a canonical data push.
	if !tokenizer.Next() ||
		!isCanonicalPush(tokenizer.Opcode(), tokenizer.Data()) {

		return 0, nil, false
	}
	program := tokenizer.Data()
	if len(program) < minWitnessProgramLen || len(program) > maxWitnessProgramLen {
		return 0, nil, false
	}

	valid := tokenizer.Done() && tokenizer.Err() == nil
	return version, program, valid
}

// isCanonicalPush 在操作码不是推送指令，或者推送所用的指令是完成该推送的最小指令时返回 true。
//
// 例如，值 1 可以以 "OP_1"、"OP_DATA_1 0x01"、"OP_PUSHDATA1 0x01 0x01" 等形式压入堆栈，只有第一种被视为规范形式。
func isCanonicalPush(opcode byte, data []byte) bool {
	dataLen := len(data)
	if opcode > OP_16 {
		return true
	}

	if opcode < OP_PUSHDATA1 && opcode > OP_0 && (dataLen == 1 && data[0] <= 16) {
		return false
	}
	if opcode == OP_PUSHDATA1 && dataLen < OP_PUSHDATA1 {
		return false
	}
	if opcode == OP_PUSHDATA2 && dataLen <= 0xff {
		return false
	}
	if opcode == OP_PUSHDATA4 && dataLen <= 0xffff {
		return false
	}
	return true
}
