package kerneltest

import (
	"bytes"
	"encoding/binary"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/spf13/afero"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/storage"
)

// 区块索引状态：脚本已验证，数据与撤销数据都在磁盘上。
const (
	statusValidScripts = 5
	statusHaveData     = 8
	statusHaveUndo     = 16
)

// DataDirConfig 控制合成数据目录的细节。
type DataDirConfig struct {
	// Dir 是数据目录路径，默认为 /datadir。
	Dir string

	// XorKey 非空时写入 blocks/xor.dat 并混淆 blk/rev 文件。
	XorKey []byte

	// ObfuscateKey 非空时写入链状态混淆密钥并混淆最佳区块记录。
	ObfuscateKey []byte

	// Pruned 中的高度在索引中没有数据与撤销数据标记。
	Pruned map[int32]bool

	// NoTip 为 true 时不写入最佳区块记录。
	NoTip bool
}

// DataDir 是写好的内存数据目录。
type DataDir struct {
	Dir               string
	Fs                afero.Fs
	IndexStorage      storage.Storage
	ChainstateStorage storage.Storage

	// UndoPos 记录每个高度的撤销记录在 rev00000.dat 中的位置（记录头之后）。
	UndoPos map[int32]int64
}

// BlocksDir 返回区块目录路径。
func (d *DataDir) BlocksDir() string {
	return filepath.Join(d.Dir, "blocks")
}

// WriteDataDir 将链写成 Bitcoin Core 数据目录：blk/rev 文件写入内存文件系统，区块索引与链状态写入内存 LevelDB。
func (b *ChainBuilder) WriteDataDir(cfg DataDirConfig) (*DataDir, error) {
	if cfg.Dir == "" {
		cfg.Dir = "/datadir"
	}
	d := &DataDir{
		Dir:               cfg.Dir,
		Fs:                afero.NewMemMapFs(),
		IndexStorage:      storage.NewMemStorage(),
		ChainstateStorage: storage.NewMemStorage(),
		UndoPos:           make(map[int32]int64),
	}
	if err := d.Fs.MkdirAll(filepath.Join(d.BlocksDir(), "index"), 0o755); err != nil {
		return nil, err
	}
	if err := d.Fs.MkdirAll(filepath.Join(cfg.Dir, "chainstate"), 0o755); err != nil {
		return nil, err
	}

	magic := uint32(b.params.Net)
	var blk, rev bytes.Buffer
	index, err := leveldb.Open(d.IndexStorage, nil)
	if err != nil {
		return nil, err
	}

	for height, block := range b.blocks {
		var raw bytes.Buffer
		if err := block.Serialize(&raw); err != nil {
			index.Close()
			return nil, err
		}
		dataPos := writeRecord(&blk, magic, raw.Bytes(), nil)

		var undoPos int64
		if height > 0 {
			undo := SerializeBlockUndo(b.undo[height], uint32(height-1))
			prev := block.Header.PrevBlock
			checksum := chainhash.DoubleHashB(append(prev[:], undo...))
			undoPos = writeRecord(&rev, magic, undo, checksum)
			d.UndoPos[int32(height)] = undoPos
		}

		status := uint64(statusValidScripts)
		if !cfg.Pruned[int32(height)] {
			status |= statusHaveData
			if height > 0 {
				status |= statusHaveUndo
			}
		}

		value := AppendVarInt(nil, 259900)
		value = AppendVarInt(value, uint64(height))
		value = AppendVarInt(value, status)
		value = AppendVarInt(value, uint64(len(block.Transactions)))
		if status&(statusHaveData|statusHaveUndo) != 0 {
			value = AppendVarInt(value, 0)
		}
		if status&statusHaveData != 0 {
			value = AppendVarInt(value, uint64(dataPos))
		}
		if status&statusHaveUndo != 0 {
			value = AppendVarInt(value, uint64(undoPos))
		}
		var header bytes.Buffer
		if err := block.Header.Serialize(&header); err != nil {
			index.Close()
			return nil, err
		}
		value = append(value, header.Bytes()...)

		hash := block.BlockHash()
		if err := index.Put(append([]byte("b"), hash[:]...), value, nil); err != nil {
			index.Close()
			return nil, err
		}
	}

	// 一个不在活动链上的孤块，只有索引记录。
	if len(b.blocks) > 1 {
		stale := b.blocks[1].Header
		stale.Nonce++
		hash := stale.BlockHash()
		value := AppendVarInt(nil, 259900)
		value = AppendVarInt(value, 1)
		value = AppendVarInt(value, 2)
		value = AppendVarInt(value, 1)
		var header bytes.Buffer
		_ = stale.Serialize(&header)
		value = append(value, header.Bytes()...)
		if err := index.Put(append([]byte("b"), hash[:]...), value, nil); err != nil {
			index.Close()
			return nil, err
		}
	}
	if err := index.Close(); err != nil {
		return nil, err
	}

	if err := d.writeChainstate(b, cfg); err != nil {
		return nil, err
	}

	blkData, revData := blk.Bytes(), rev.Bytes()
	if len(cfg.XorKey) > 0 {
		if err := afero.WriteFile(d.Fs, filepath.Join(d.BlocksDir(), "xor.dat"), cfg.XorKey, 0o644); err != nil {
			return nil, err
		}
		xorBytes(blkData, cfg.XorKey)
		xorBytes(revData, cfg.XorKey)
	}
	if err := afero.WriteFile(d.Fs, filepath.Join(d.BlocksDir(), "blk00000.dat"), blkData, 0o644); err != nil {
		return nil, err
	}
	if err := afero.WriteFile(d.Fs, filepath.Join(d.BlocksDir(), "rev00000.dat"), revData, 0o644); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *DataDir) writeChainstate(b *ChainBuilder, cfg DataDirConfig) error {
	db, err := leveldb.Open(d.ChainstateStorage, nil)
	if err != nil {
		return err
	}
	defer db.Close()

	if len(cfg.ObfuscateKey) > 0 {
		key := append([]byte{0x0e, 0x00}, "obfuscate_key"...)
		value := append([]byte{byte(len(cfg.ObfuscateKey))}, cfg.ObfuscateKey...)
		if err := db.Put(key, value, nil); err != nil {
			return err
		}
	}
	if cfg.NoTip || len(b.blocks) == 0 {
		return nil
	}

	tip := b.blocks[len(b.blocks)-1].BlockHash()
	value := append([]byte(nil), tip[:]...)
	if len(cfg.ObfuscateKey) > 0 {
		xorBytes(value, cfg.ObfuscateKey)
	}
	return db.Put([]byte("B"), value, nil)
}

// writeRecord 追加一条 magic | size | payload | trailer 记录，返回记录头之后的位置。size 不包括 trailer。
func writeRecord(buf *bytes.Buffer, magic uint32, payload, trailer []byte) int64 {
	var header [8]byte
	binary.LittleEndian.PutUint32(header[:4], magic)
	binary.LittleEndian.PutUint32(header[4:], uint32(len(payload)))
	buf.Write(header[:])
	pos := int64(buf.Len())
	buf.Write(payload)
	buf.Write(trailer)
	return pos
}

func xorBytes(data, key []byte) {
	for i := range data {
		data[i] ^= key[i%len(key)]
	}
}
