// 打印

package tapfreq

import (
	"fmt"
	"io"
	"time"

	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/qinglongcn/tapfreq/txscript"
)

// PrintBlock 打印区块头以及区块中每个 tapscript 的反汇编。height 为负数时表示距链末端的偏移。
func PrintBlock(w io.Writer, engine kernel.Engine, height int64, verifyMerkle bool) error {
	tip, err := tipHeight(engine)
	if err != nil {
		return err
	}
	h, err := resolveHeight(height, tip)
	if err != nil {
		return err
	}
	if h < 0 {
		return scanError(ErrInvalidRange, fmt.Sprintf("height %d resolves to %d, below genesis", height, h))
	}

	idx, err := engine.BlockIndexFromHeight(h)
	if err != nil {
		return err
	}
	defer idx.Destroy()

	raw, err := readBlockBytes(engine, idx)
	if err != nil {
		return err
	}
	block, err := DeserializeBlock(raw, verifyMerkle)
	if err != nil {
		return err
	}
	undo, err := engine.ReadBlockUndo(idx)
	if err != nil {
		return err
	}
	prevouts, err := ReconstructPrevouts(undo, len(block.Transactions()))
	if err != nil {
		return err
	}

	header := block.MsgBlock().Header
	fmt.Fprintf(w, "Height:\t\t%d\n", h)
	fmt.Fprintf(w, "Hash:\t\t%s\n", block.Hash())
	fmt.Fprintf(w, "PrevHash:\t%s\n", header.PrevBlock)
	fmt.Fprintf(w, "Timestamp:\t%s\n", header.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(w, "MerkleRoot:\t%s\n", header.MerkleRoot)
	fmt.Fprintf(w, "Bits:\t\t%08x\n", header.Bits)
	fmt.Fprintf(w, "Nonce:\t\t%d\n", header.Nonce)
	fmt.Fprintf(w, "TxCount:\t%d\n", len(block.Transactions()))

	for i, tx := range block.Transactions() {
		if i == 0 {
			continue
		}
		txIns := tx.MsgTx().TxIn
		if len(txIns) != len(prevouts[i]) {
			return scanError(ErrPrevoutCountMismatch, fmt.Sprintf(
				"transaction %s has %d inputs but %d spent outputs", tx.Hash(), len(txIns), len(prevouts[i])))
		}

		for j, txIn := range txIns {
			leaf, ok := txscript.ExtractTapLeaf(txIn.Witness, prevouts[i][j])
			if !ok {
				continue
			}
			stack, annex := txscript.StripAnnex(txIn.Witness)
			disasm, err := txscript.DisasmString(leaf.Script)

			fmt.Fprintf(w, "\tTx %s input %d\n", tx.Hash(), j)
			fmt.Fprintf(w, "\t\tLeafVersion\t%#02x\n", byte(leaf.LeafVersion))
			fmt.Fprintf(w, "\t\tAnnex\t\t%x\n", annex)
			fmt.Fprintf(w, "\t\tScript\t\t%s\n", disasm)
			if err != nil {
				fmt.Fprintf(w, "\t\tTruncated\t%v\n", err)
			}
			printControlBlock(w, stack[len(stack)-1], leaf.Script)
		}
	}
	return nil
}

// printControlBlock 打印控制块中的内部公钥、输出公钥的奇偶性、叶子哈希以及由证明重建的 Merkle 根。
func printControlBlock(w io.Writer, raw, script []byte) {
	ctrlBlock, err := txscript.ParseControlBlock(raw)
	if err != nil {
		fmt.Fprintf(w, "\t\tControlBlock\t%v\n", err)
		return
	}

	leafHash := txscript.NewTapLeaf(ctrlBlock.LeafVersion, script).TapHash()
	fmt.Fprintf(w, "\t\tInternalKey\t%x\n", schnorr.SerializePubKey(ctrlBlock.InternalKey))
	fmt.Fprintf(w, "\t\tOutputKeyOdd\t%v\n", ctrlBlock.OutputKeyYIsOdd)
	fmt.Fprintf(w, "\t\tLeafHash\t%x\n", leafHash[:])
	fmt.Fprintf(w, "\t\tTapRoot\t\t%x\n", ctrlBlock.RootHash(script))
}
