package kernel

import (
	"bytes"
	"io"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/pkg/errors"
)

// 区块索引记录中的状态位。
const (
	blockHaveData = 8
	blockHaveUndo = 16
)

// diskBlockIndex 是 blocks/index 中一条 'b' 记录的内容。
type diskBlockIndex struct {
	hash    chainhash.Hash
	height  int32
	status  uint64
	txCount uint64
	file    uint64
	dataPos uint64
	undoPos uint64
	header  wire.BlockHeader
}

func (d *diskBlockIndex) haveData() bool { return d.status&blockHaveData != 0 }
func (d *diskBlockIndex) haveUndo() bool { return d.status&blockHaveUndo != 0 }

// deserializeBlockIndex 解析区块索引记录：
// VARINT(version) VARINT(height) VARINT(status) VARINT(nTx) [VARINT(file)] [VARINT(dataPos)] [VARINT(undoPos)] header
func deserializeBlockIndex(hash chainhash.Hash, value []byte) (*diskBlockIndex, error) {
	r := bytes.NewReader(value)

	fields := make([]uint64, 4)
	for i := range fields {
		v, err := readVarInt(r)
		if err != nil {
			return nil, errors.Wrapf(err, "block index %s", hash)
		}
		fields[i] = v
	}

	d := &diskBlockIndex{
		hash:    hash,
		height:  int32(fields[1]),
		status:  fields[2],
		txCount: fields[3],
	}

	var err error
	if d.status&(blockHaveData|blockHaveUndo) != 0 {
		if d.file, err = readVarInt(r); err != nil {
			return nil, errors.Wrapf(err, "block index %s file", hash)
		}
	}
	if d.haveData() {
		if d.dataPos, err = readVarInt(r); err != nil {
			return nil, errors.Wrapf(err, "block index %s data pos", hash)
		}
	}
	if d.haveUndo() {
		if d.undoPos, err = readVarInt(r); err != nil {
			return nil, errors.Wrapf(err, "block index %s undo pos", hash)
		}
	}

	if err := d.header.Deserialize(r); err != nil {
		return nil, errors.Wrapf(err, "block index %s header", hash)
	}
	return d, nil
}

// deserializeBlockUndo 解析 CBlockUndo：每笔非 coinbase 交易一组被花费的输出。
func deserializeBlockUndo(data []byte) ([][]*wire.TxOut, error) {
	r := bytes.NewReader(data)

	txCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, errors.Wrap(err, "undo tx count")
	}
	if txCount > uint64(len(data)) {
		return nil, errors.Errorf("undo tx count %d exceeds record size", txCount)
	}

	txs := make([][]*wire.TxOut, 0, txCount)
	for i := uint64(0); i < txCount; i++ {
		coinCount, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, errors.Wrapf(err, "undo tx %d coin count", i)
		}
		if coinCount > uint64(r.Len()) {
			return nil, errors.Errorf("undo tx %d coin count %d exceeds record size", i, coinCount)
		}

		outs := make([]*wire.TxOut, 0, coinCount)
		for j := uint64(0); j < coinCount; j++ {
			out, err := readUndoCoin(r)
			if err != nil {
				return nil, errors.Wrapf(err, "undo tx %d coin %d", i, j)
			}
			outs = append(outs, out)
		}
		txs = append(txs, outs)
	}

	if r.Len() != 0 {
		return nil, errors.Errorf("%d trailing bytes after undo data", r.Len())
	}
	return txs, nil
}

// readUndoCoin 读取一个被花费的输出：VARINT(height*2+coinbase) [VARINT(version)] 压缩金额 压缩脚本。
func readUndoCoin(r *bytes.Reader) (*wire.TxOut, error) {
	code, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	if code>>1 > 0 {
		// 旧版本遗留的交易版本号，始终为 0。
		if _, err := readVarInt(r); err != nil {
			return nil, err
		}
	}

	amount, err := readVarInt(r)
	if err != nil {
		return nil, err
	}
	script, err := readCompressedScript(r)
	if err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return nil, err
	}
	return wire.NewTxOut(int64(decompressAmount(amount)), script), nil
}
