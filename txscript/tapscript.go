// 从 Taproot 脚本路径支出的见证堆栈中提取 tapscript，并将其分解为操作码标签。

package txscript

import (
	"github.com/btcsuite/btcd/wire"
)

// isAnnexedWitness 在见证堆栈至少有两个元素且最后一个元素以附件标签开头时返回 true。
func isAnnexedWitness(witness wire.TxWitness) bool {
	if len(witness) < 2 {
		return false
	}

	lastElement := witness[len(witness)-1]
	return len(lastElement) > 0 && lastElement[0] == TaprootAnnexTag
}

// StripAnnex 返回去掉附件后的见证堆栈以及附件本身，没有附件时附件为 nil。
func StripAnnex(witness wire.TxWitness) (wire.TxWitness, []byte) {
	if !isAnnexedWitness(witness) {
		return witness, nil
	}
	return witness[:len(witness)-1], witness[len(witness)-1]
}

// ExtractTapLeaf 从见证堆栈中取出脚本路径支出揭示的叶子。
//
// 只有见证版本 1 的前序输出才可能揭示 tapscript。去掉附件后，堆栈布局为
// [..., script, controlBlock]，叶子版本取自控制块首字节。控制块本身不做校验。
func ExtractTapLeaf(witness wire.TxWitness, prevoutScript []byte) (TapLeaf, bool) {
	if !IsPayToTaproot(prevoutScript) {
		return TapLeaf{}, false
	}
	if len(witness) < 2 {
		return TapLeaf{}, false
	}

	stack, _ := StripAnnex(witness)
	if len(stack) < 2 {
		return TapLeaf{}, false
	}

	controlBlock := stack[len(stack)-1]
	leaf := TapLeaf{Script: stack[len(stack)-2]}
	if len(controlBlock) > 0 {
		leaf.LeafVersion = TapscriptLeafVersion(controlBlock[0] & TaprootLeafMask)
	}
	return leaf, true
}

// ExtractTapscript 返回见证堆栈中揭示的 tapscript。前序输出不是见证版本 1 或者堆栈中没有揭示脚本时返回 false。
func ExtractTapscript(witness wire.TxWitness, prevoutScript []byte) ([]byte, bool) {
	leaf, ok := ExtractTapLeaf(witness, prevoutScript)
	if !ok {
		return nil, false
	}
	return leaf.Script, true
}

// ParseOpcodes 从左到右分解脚本，返回其中每个非数据推送操作码的标签。
//
// 数据推送连同其操作数一起跳过。推送长度超出脚本末尾时停止解析，返回截断前已识别的标签以及
// ErrMalformedPush 错误，调用方可以选择继续使用这些标签。
func ParseOpcodes(script []byte) ([]string, error) {
	var labels []string

	tokenizer := MakeScriptTokenizer(script)
	for tokenizer.Next() {
		op := tokenizer.Opcode()
		if IsDataPush(op) {
			continue
		}
		labels = append(labels, OpcodeLabel(op))
	}

	if err := tokenizer.Err(); err != nil {
		log.Debugf("Tapscript truncated at offset %d of %d: %v",
			tokenizer.ByteIndex(), len(script), err)
		return labels, err
	}
	return labels, nil
}
