// Package kerneltest 构建合成的区块链并将其写成内存中的 Bitcoin Core 数据目录，供测试使用。
package kerneltest

import (
	"crypto/rand"
	"time"

	"github.com/btcsuite/btcd/blockchain"
	"github.com/btcsuite/btcd/btcec/v2"
	"github.com/btcsuite/btcd/btcec/v2/schnorr"
	"github.com/btcsuite/btcd/btcutil"
	"github.com/btcsuite/btcd/chaincfg"
	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/txscript"
	"github.com/btcsuite/btcd/wire"
)

// Spend 是一笔非 coinbase 交易及其每个输入所花费的输出。
type Spend struct {
	Tx       *wire.MsgTx
	Prevouts []*wire.TxOut
}

// ChainBuilder 依次生成首尾相连的区块，并记录每个区块的撤销数据。
type ChainBuilder struct {
	params *chaincfg.Params
	blocks []*wire.MsgBlock
	undo   [][][]*wire.TxOut
	time   time.Time
}

// NewChainBuilder 创建一个只包含创世区块的链。
func NewChainBuilder(params *chaincfg.Params) *ChainBuilder {
	b := &ChainBuilder{
		params: params,
		time:   time.Unix(1700000000, 0),
	}
	b.AddBlock()
	return b
}

// Params 返回链参数。
func (b *ChainBuilder) Params() *chaincfg.Params {
	return b.params
}

// AddBlock 在链末端追加一个包含 coinbase 与给定交易的区块。
func (b *ChainBuilder) AddBlock(spends ...Spend) *wire.MsgBlock {
	height := int32(len(b.blocks))

	var prev chainhash.Hash
	if height > 0 {
		prev = b.blocks[height-1].BlockHash()
	}

	txs := []*wire.MsgTx{coinbaseTx(height)}
	var undo [][]*wire.TxOut
	for _, s := range spends {
		txs = append(txs, s.Tx)
		undo = append(undo, s.Prevouts)
	}

	utxs := make([]*btcutil.Tx, len(txs))
	for i, tx := range txs {
		utxs[i] = btcutil.NewTx(tx)
	}
	merkles := blockchain.BuildMerkleTreeStore(utxs, false)

	b.time = b.time.Add(10 * time.Minute)
	block := &wire.MsgBlock{
		Header: wire.BlockHeader{
			Version:    0x20000000,
			PrevBlock:  prev,
			MerkleRoot: *merkles[len(merkles)-1],
			Timestamp:  b.time,
			Bits:       b.params.PowLimitBits,
		},
		Transactions: txs,
	}

	b.blocks = append(b.blocks, block)
	b.undo = append(b.undo, undo)
	return block
}

// Blocks 返回全部区块，下标即高度。
func (b *ChainBuilder) Blocks() []*wire.MsgBlock {
	return b.blocks
}

// Undo 返回每个区块的撤销数据，下标即高度。
func (b *ChainBuilder) Undo() [][][]*wire.TxOut {
	return b.undo
}

// coinbaseTx 创建一个在签名脚本中携带高度的 coinbase 交易。
func coinbaseTx(height int32) *wire.MsgTx {
	sigScript, _ := txscript.NewScriptBuilder().
		AddInt64(int64(height)).
		AddData([]byte("tapfreq")).
		Script()

	tx := wire.NewMsgTx(wire.TxVersion)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&chainhash.Hash{}, wire.MaxPrevOutIndex),
		SignatureScript:  sigScript,
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(wire.NewTxOut(50*btcutil.SatoshiPerBitcoin, []byte{txscript.OP_TRUE}))
	return tx
}

// TapscriptInput 描述一个脚本路径支出的输入。
type TapscriptInput struct {
	// Script 是揭示的 tapscript。
	Script []byte

	// Annex 非空时作为附件追加到见证堆栈末尾，必须以 0x50 开头。
	Annex []byte
}

// NewTapscriptSpend 创建一笔交易，每个输入都通过脚本路径花费一个承诺了对应脚本的 P2TR 输出。
func NewTapscriptSpend(inputs ...TapscriptInput) (Spend, error) {
	internalKey, err := btcec.NewPrivateKey()
	if err != nil {
		return Spend{}, err
	}

	tx := wire.NewMsgTx(2)
	prevouts := make([]*wire.TxOut, 0, len(inputs))
	for i, in := range inputs {
		leaf := txscript.NewBaseTapLeaf(in.Script)
		tree := txscript.AssembleTaprootScriptTree(leaf)
		rootHash := tree.RootNode.TapHash()

		outputKey := txscript.ComputeTaprootOutputKey(internalKey.PubKey(), rootHash[:])
		pkScript := append([]byte{txscript.OP_1, txscript.OP_DATA_32}, schnorr.SerializePubKey(outputKey)...)

		ctrlBlock := tree.LeafMerkleProofs[0].ToControlBlock(internalKey.PubKey())
		ctrlBytes, err := ctrlBlock.ToBytes()
		if err != nil {
			return Spend{}, err
		}

		sig := make([]byte, 64)
		if _, err := rand.Read(sig); err != nil {
			return Spend{}, err
		}

		witness := wire.TxWitness{sig, in.Script, ctrlBytes}
		if len(in.Annex) > 0 {
			witness = append(witness, in.Annex)
		}

		var prevHash chainhash.Hash
		if _, err := rand.Read(prevHash[:]); err != nil {
			return Spend{}, err
		}
		tx.AddTxIn(&wire.TxIn{
			PreviousOutPoint: *wire.NewOutPoint(&prevHash, uint32(i)),
			Witness:          witness,
			Sequence:         wire.MaxTxInSequenceNum,
		})
		prevouts = append(prevouts, wire.NewTxOut(10000, pkScript))
	}
	tx.AddTxOut(wire.NewTxOut(9000, []byte{txscript.OP_TRUE}))

	return Spend{Tx: tx, Prevouts: prevouts}, nil
}

// NewLegacySpend 创建一笔花费 P2PKH 输出且不带见证数据的交易。
func NewLegacySpend() (Spend, error) {
	var prevHash chainhash.Hash
	if _, err := rand.Read(prevHash[:]); err != nil {
		return Spend{}, err
	}
	pkHash := make([]byte, 20)
	if _, err := rand.Read(pkHash); err != nil {
		return Spend{}, err
	}
	pkScript, err := txscript.NewScriptBuilder().
		AddOp(txscript.OP_DUP).AddOp(txscript.OP_HASH160).
		AddData(pkHash).
		AddOp(txscript.OP_EQUALVERIFY).AddOp(txscript.OP_CHECKSIG).
		Script()
	if err != nil {
		return Spend{}, err
	}

	tx := wire.NewMsgTx(1)
	tx.AddTxIn(&wire.TxIn{
		PreviousOutPoint: *wire.NewOutPoint(&prevHash, 0),
		SignatureScript:  []byte{txscript.OP_TRUE},
		Sequence:         wire.MaxTxInSequenceNum,
	})
	tx.AddTxOut(wire.NewTxOut(4000, []byte{txscript.OP_TRUE}))

	return Spend{Tx: tx, Prevouts: []*wire.TxOut{wire.NewTxOut(5000, pkScript)}}, nil
}
