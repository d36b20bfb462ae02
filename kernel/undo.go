package kernel

import (
	"fmt"

	"github.com/btcsuite/btcd/wire"
)

// BlockUndo 是一个区块撤销数据的句柄：按顺序保存每个非 coinbase 交易所花费的输出。
type BlockUndo struct {
	handle
	txs [][]*wire.TxOut
}

// NewBlockUndo 使用每笔交易花费的输出创建撤销数据句柄。
func NewBlockUndo(tracker *Tracker, txs [][]*wire.TxOut) *BlockUndo {
	return &BlockUndo{handle: newHandle(tracker), txs: txs}
}

// Size 返回撤销数据中的交易数量，即区块中非 coinbase 交易的数量。
func (u *BlockUndo) Size() int {
	return len(u.txs)
}

// TransactionUndoSize 返回第 i 笔交易花费的输出数量。
func (u *BlockUndo) TransactionUndoSize(i int) int {
	if i < 0 || i >= len(u.txs) {
		return 0
	}
	return len(u.txs[i])
}

// OutputByIndex 返回第 i 笔交易花费的第 j 个输出。返回的句柄需要调用方释放。
func (u *BlockUndo) OutputByIndex(i, j int) (*TransactionOutput, error) {
	if err := u.alive("block undo"); err != nil {
		return nil, err
	}
	if i < 0 || i >= len(u.txs) || j < 0 || j >= len(u.txs[i]) {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"undo output %d:%d out of range", i, j), nil)
	}

	out := u.txs[i][j]
	return &TransactionOutput{
		handle: newHandle(u.tracker),
		value:  out.Value,
		script: out.PkScript,
	}, nil
}

// Destroy 释放句柄，重复调用无效。
func (u *BlockUndo) Destroy() {
	u.destroy()
	u.txs = nil
}

// TransactionOutput 是一个被花费输出的句柄。
type TransactionOutput struct {
	handle
	value  int64
	script []byte
}

// ScriptPubkey 返回输出脚本的副本。
func (o *TransactionOutput) ScriptPubkey() ([]byte, error) {
	if err := o.alive("transaction output"); err != nil {
		return nil, err
	}
	return append([]byte(nil), o.script...), nil
}

// Value 返回输出金额（聪）。
func (o *TransactionOutput) Value() int64 {
	return o.value
}

// Destroy 释放句柄，重复调用无效。
func (o *TransactionOutput) Destroy() {
	o.destroy()
}
