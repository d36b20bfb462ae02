package tapfreq

import (
	"context"

	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/sirupsen/logrus"
)

// Snapshot 将 src 中 [start, end] 范围内的区块与撤销数据复制到 dst，返回复制的区块数量。
func Snapshot(ctx context.Context, src kernel.Engine, dst *Blockchain, start, end int64) (int, error) {
	it := NewBlockIndexIterator(src, start, end)
	defer it.Close()

	copied := 0
	for {
		if err := ctx.Err(); err != nil {
			return copied, err
		}
		if !it.Next() {
			break
		}

		idx := it.BlockIndex()
		if err := snapshotBlock(src, dst, idx); err != nil {
			return copied, errors.Wrapf(err, "snapshot block %s at height %d", idx.Hash(), idx.Height())
		}
		copied++

		if copied%1000 == 0 {
			logrus.Infof("Snapshot copied %d blocks, at height %d", copied, idx.Height())
		}
	}
	if err := it.Err(); err != nil {
		return copied, errors.Wrap(err, "iterate blocks")
	}

	logrus.Infof("Snapshot copied %d blocks", copied)
	return copied, nil
}

func snapshotBlock(src kernel.Engine, dst *Blockchain, idx *kernel.BlockIndex) error {
	raw, err := readBlockBytes(src, idx)
	if err != nil {
		return err
	}

	undo, err := src.ReadBlockUndo(idx)
	if err != nil {
		return err
	}
	txs, err := undoOutputs(undo)
	if err != nil {
		return err
	}

	return dst.AddBlock(idx.Height(), raw, txs)
}

// undoOutputs 复制撤销数据中的全部输出。undo 在返回前总会被释放。
func undoOutputs(undo *kernel.BlockUndo) ([][]*wire.TxOut, error) {
	defer undo.Destroy()

	txs := make([][]*wire.TxOut, undo.Size())
	for i := range txs {
		outs := make([]*wire.TxOut, undo.TransactionUndoSize(i))
		for j := range outs {
			out, err := copyOutput(undo, i, j)
			if err != nil {
				return nil, err
			}
			outs[j] = out
		}
		txs[i] = outs
	}
	return txs, nil
}

func copyOutput(undo *kernel.BlockUndo, i, j int) (*wire.TxOut, error) {
	out, err := undo.OutputByIndex(i, j)
	if err != nil {
		return nil, err
	}
	defer out.Destroy()

	script, err := out.ScriptPubkey()
	if err != nil {
		return nil, err
	}
	return wire.NewTxOut(out.Value(), script), nil
}
