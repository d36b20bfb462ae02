package tapfreq

import (
	"fmt"

	"github.com/pkg/errors"
	"github.com/qinglongcn/tapfreq/kernel"
)

// PrevoutSet 保存区块中每笔交易的每个输入所花费输出的脚本。下标 0 对应 coinbase，总是为空。
type PrevoutSet [][][]byte

// ReconstructPrevouts 从撤销数据中取出每个被花费输出的脚本。undo 在返回前总会被释放。
func ReconstructPrevouts(undo *kernel.BlockUndo, txCount int) (PrevoutSet, error) {
	defer undo.Destroy()

	if undo.Size() != txCount-1 {
		return nil, scanError(ErrUndoMismatch, fmt.Sprintf(
			"undo data covers %d transactions, block has %d non-coinbase transactions",
			undo.Size(), txCount-1))
	}

	prevouts := make(PrevoutSet, txCount)
	prevouts[0] = [][]byte{}
	for i := 0; i < undo.Size(); i++ {
		n := undo.TransactionUndoSize(i)
		scripts := make([][]byte, n)
		for j := 0; j < n; j++ {
			script, err := outputScript(undo, i, j)
			if err != nil {
				return nil, errors.Wrapf(err, "spent output %d of transaction %d", j, i+1)
			}
			scripts[j] = script
		}
		prevouts[i+1] = scripts
	}
	return prevouts, nil
}

// outputScript 复制一个输出脚本并立即释放输出句柄。
func outputScript(undo *kernel.BlockUndo, i, j int) ([]byte, error) {
	out, err := undo.OutputByIndex(i, j)
	if err != nil {
		return nil, err
	}
	defer out.Destroy()

	return out.ScriptPubkey()
}
