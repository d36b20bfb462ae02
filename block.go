package tapfreq

import (
	"bytes"
	"fmt"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
)

// DeserializeBlock 将序列化的区块（包含见证数据）解码为区块。
// verifyMerkle 为 true 时还会检查区块头中的 Merkle 根。
func DeserializeBlock(raw []byte, verifyMerkle bool) (*btcutil.Block, error) {
	var msg wire.MsgBlock
	r := bytes.NewReader(raw)
	if err := msg.Deserialize(r); err != nil {
		return nil, Error{Kind: ErrMalformedBlock, Description: "decode block", Err: err}
	}
	if r.Len() != 0 {
		return nil, scanError(ErrMalformedBlock, fmt.Sprintf(
			"%d trailing bytes after block", r.Len()))
	}
	if len(msg.Transactions) == 0 {
		return nil, scanError(ErrMalformedBlock, "block has no transactions")
	}
	if !blockchain.IsCoinBaseTx(msg.Transactions[0]) {
		return nil, scanError(ErrMalformedBlock, "first transaction is not a coinbase")
	}

	if verifyMerkle {
		if err := checkMerkleRoot(&msg); err != nil {
			return nil, err
		}
	}

	return btcutil.NewBlockFromBlockAndBytes(&msg, raw), nil
}

// checkMerkleRoot 比较区块头中的 Merkle 根与交易计算出的根。
func checkMerkleRoot(msg *wire.MsgBlock) error {
	leaves := make([]chainhash.Hash, len(msg.Transactions))
	for i, tx := range msg.Transactions {
		leaves[i] = tx.TxHash()
	}

	tree, err := NewMerkleTree(leaves)
	if err != nil {
		return Error{Kind: ErrMalformedBlock, Description: "merkle tree", Err: err}
	}
	if root := tree.Root(); !root.IsEqual(&msg.Header.MerkleRoot) {
		return scanError(ErrMalformedBlock, fmt.Sprintf(
			"merkle root mismatch: header %s, computed %s", msg.Header.MerkleRoot, root))
	}
	return nil
}
