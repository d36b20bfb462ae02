package kernel

import (
	"fmt"
	"path/filepath"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/syndtr/goleveldb/leveldb"
	"github.com/syndtr/goleveldb/leveldb/opt"
	"github.com/syndtr/goleveldb/leveldb/storage"
	"github.com/syndtr/goleveldb/leveldb/util"
)

var (
	// obfuscateKeyKey 是链状态数据库中混淆密钥的键：序列化的字符串 "\x00obfuscate_key"。
	obfuscateKeyKey = append([]byte{0x0e, 0x00}, "obfuscate_key"...)

	// bestBlockKey 是链状态数据库中最佳区块哈希的键。
	bestBlockKey = []byte("B")

	// blockIndexPrefix 是区块索引数据库中区块记录的键前缀。
	blockIndexPrefix = []byte("b")
)

// ChainstateManagerOptions 指定 Bitcoin Core 数据目录的位置。
type ChainstateManagerOptions struct {
	// DataDir 是包含 blocks/ 与 chainstate/ 的网络数据目录。
	DataDir string

	// BlocksDir 默认为 DataDir/blocks。
	BlocksDir string

	// Fs 用于读取 blk/rev 文件，默认为操作系统文件系统。
	Fs afero.Fs

	// IndexStorage 与 ChainstateStorage 非空时代替磁盘上的 LevelDB 目录。
	IndexStorage      storage.Storage
	ChainstateStorage storage.Storage
}

// ChainstateManager 以只读方式访问 Bitcoin Core 数据目录中的活动链、区块与撤销数据。
type ChainstateManager struct {
	ctx        *Context
	index      *leveldb.DB
	chainstate *leveldb.DB
	files      *flatFileStore
	tracker    *Tracker

	chain  []*diskBlockIndex
	byHash map[chainhash.Hash]*diskBlockIndex
	loaded bool
}

// NewChainstateManager 打开区块索引与链状态数据库。调用方需要在使用前调用 LoadChainstate，用完后调用 Destroy。
func NewChainstateManager(ctx *Context, opts *ChainstateManagerOptions) (*ChainstateManager, error) {
	blocksDir := opts.BlocksDir
	if blocksDir == "" {
		blocksDir = filepath.Join(opts.DataDir, "blocks")
	}
	fs := opts.Fs
	if fs == nil {
		fs = afero.NewOsFs()
	}

	files, err := newFlatFileStore(fs, blocksDir, ctx.Params().Net)
	if err != nil {
		return nil, err
	}

	index, err := openLevelDB(opts.IndexStorage, filepath.Join(blocksDir, "index"))
	if err != nil {
		return nil, errors.Wrap(err, "open block index")
	}
	chainstate, err := openLevelDB(opts.ChainstateStorage, filepath.Join(opts.DataDir, "chainstate"))
	if err != nil {
		index.Close()
		return nil, errors.Wrap(err, "open chainstate")
	}

	return &ChainstateManager{
		ctx:        ctx,
		index:      index,
		chainstate: chainstate,
		files:      files,
		tracker:    NewTracker(),
	}, nil
}

// openLevelDB 以只读方式打开数据库。
func openLevelDB(stor storage.Storage, path string) (*leveldb.DB, error) {
	o := &opt.Options{
		ReadOnly:       true,
		ErrorIfMissing: true,
		Compression:    opt.NoCompression,
	}
	if stor != nil {
		return leveldb.Open(stor, o)
	}
	return leveldb.OpenFile(path, o)
}

// LoadChainstate 读取最佳区块并沿 prev 链接构建从创世区块到最佳区块的活动链。
func (c *ChainstateManager) LoadChainstate() error {
	tip, err := c.bestBlock()
	if err != nil {
		return err
	}

	byHash := make(map[chainhash.Hash]*diskBlockIndex)
	iter := c.index.NewIterator(util.BytesPrefix(blockIndexPrefix), nil)
	for iter.Next() {
		key := iter.Key()
		if len(key) != 1+chainhash.HashSize {
			continue
		}
		var hash chainhash.Hash
		copy(hash[:], key[1:])

		d, err := deserializeBlockIndex(hash, iter.Value())
		if err != nil {
			iter.Release()
			return kernelError(ErrCorruptData, "block index record", err)
		}
		byHash[hash] = d
	}
	iter.Release()
	if err := iter.Error(); err != nil {
		return kernelError(ErrDiskRead, "iterate block index", err)
	}

	tipIndex, ok := byHash[tip]
	if !ok {
		return kernelError(ErrCorruptData, fmt.Sprintf(
			"best block %s not found in block index", tip), nil)
	}

	chain := make([]*diskBlockIndex, tipIndex.height+1)
	for d := tipIndex; ; {
		if d.height < 0 || int(d.height) >= len(chain) || chain[d.height] != nil {
			return kernelError(ErrCorruptData, fmt.Sprintf(
				"block %s has inconsistent height %d", d.hash, d.height), nil)
		}
		chain[d.height] = d
		if d.height == 0 {
			break
		}

		prev, ok := byHash[d.header.PrevBlock]
		if !ok || prev.height != d.height-1 {
			return kernelError(ErrCorruptData, fmt.Sprintf(
				"missing parent %s of block %s at height %d",
				d.header.PrevBlock, d.hash, d.height), nil)
		}
		d = prev
	}

	c.chain = chain
	c.byHash = byHash
	c.loaded = true

	logrus.Infof("Loaded %s chainstate: tip %s at height %d, %d block index records",
		c.ctx.ChainType(), tip, tipIndex.height, len(byHash))
	return nil
}

// bestBlock 读取并去混淆链状态中的最佳区块哈希。
func (c *ChainstateManager) bestBlock() (chainhash.Hash, error) {
	var tip chainhash.Hash

	var obfuscation []byte
	value, err := c.chainstate.Get(obfuscateKeyKey, nil)
	switch {
	case err == leveldb.ErrNotFound:
	case err != nil:
		return tip, kernelError(ErrDiskRead, "read obfuscation key", err)
	case len(value) < 1 || int(value[0]) != len(value)-1:
		return tip, kernelError(ErrCorruptData, "malformed obfuscation key", nil)
	default:
		obfuscation = value[1:]
	}

	value, err = c.chainstate.Get(bestBlockKey, nil)
	switch {
	case err == leveldb.ErrNotFound:
		return tip, kernelError(ErrNoTip, "chainstate has no best block", nil)
	case err != nil:
		return tip, kernelError(ErrDiskRead, "read best block", err)
	}

	if len(obfuscation) > 0 {
		for i := range value {
			value[i] ^= obfuscation[i%len(obfuscation)]
		}
	}
	if len(value) != chainhash.HashSize {
		return tip, kernelError(ErrCorruptData, fmt.Sprintf(
			"best block record has %d bytes", len(value)), nil)
	}
	copy(tip[:], value)
	return tip, nil
}

// Tracker 返回本管理器的句柄计数器。
func (c *ChainstateManager) Tracker() *Tracker {
	return c.tracker
}

// BlockIndexFromTip 返回活动链末端区块的句柄。
func (c *ChainstateManager) BlockIndexFromTip() (*BlockIndex, error) {
	if !c.loaded {
		return nil, kernelError(ErrNotLoaded, "chainstate not loaded", nil)
	}
	if len(c.chain) == 0 {
		return nil, kernelError(ErrNoTip, "active chain is empty", nil)
	}
	d := c.chain[len(c.chain)-1]
	return NewBlockIndex(c.tracker, d.height, d.hash), nil
}

// BlockIndexFromHeight 返回活动链上指定高度区块的句柄。
func (c *ChainstateManager) BlockIndexFromHeight(height int32) (*BlockIndex, error) {
	if !c.loaded {
		return nil, kernelError(ErrNotLoaded, "chainstate not loaded", nil)
	}
	if height < 0 || int(height) >= len(c.chain) {
		return nil, kernelError(ErrHeightOutOfRange, fmt.Sprintf(
			"height %d outside active chain [0, %d]", height, len(c.chain)-1), nil)
	}
	d := c.chain[height]
	return NewBlockIndex(c.tracker, d.height, d.hash), nil
}

// NextBlockIndex 返回 idx 之后的区块句柄，已到链末端时返回 (nil, nil)。
func (c *ChainstateManager) NextBlockIndex(idx *BlockIndex) (*BlockIndex, error) {
	if _, err := c.lookup(idx); err != nil {
		return nil, err
	}
	next := int(idx.Height()) + 1
	if next >= len(c.chain) {
		return nil, nil
	}
	d := c.chain[next]
	return NewBlockIndex(c.tracker, d.height, d.hash), nil
}

// lookup 返回句柄在活动链上对应的索引记录。
func (c *ChainstateManager) lookup(idx *BlockIndex) (*diskBlockIndex, error) {
	if !c.loaded {
		return nil, kernelError(ErrNotLoaded, "chainstate not loaded", nil)
	}
	if err := idx.alive("block index"); err != nil {
		return nil, err
	}
	d, ok := c.byHash[idx.Hash()]
	if !ok {
		return nil, kernelError(ErrHeightOutOfRange, fmt.Sprintf(
			"block %s not in block index", idx.Hash()), nil)
	}
	return d, nil
}

// ReadBlock 从 blk 文件读取序列化区块，并校验其头部哈希与索引一致。
func (c *ChainstateManager) ReadBlock(idx *BlockIndex) (*Block, error) {
	d, err := c.lookup(idx)
	if err != nil {
		return nil, err
	}
	if !d.haveData() {
		return nil, kernelError(ErrDiskRead, fmt.Sprintf(
			"block %s at height %d has no data on disk (pruned?)", d.hash, d.height), nil)
	}

	data, err := c.files.readRecord("blk", d.file, d.dataPos, 0)
	if err != nil {
		return nil, err
	}
	if len(data) < 80 {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"block %s record is only %d bytes", d.hash, len(data)), nil)
	}
	if got := chainhash.DoubleHashH(data[:80]); got != d.hash {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"block at height %d has hash %s, index says %s", d.height, got, d.hash), nil)
	}
	return NewBlock(c.tracker, data), nil
}

// ReadBlockUndo 从 rev 文件读取撤销数据并校验其校验和。创世区块没有撤销数据，返回空的 BlockUndo。
func (c *ChainstateManager) ReadBlockUndo(idx *BlockIndex) (*BlockUndo, error) {
	d, err := c.lookup(idx)
	if err != nil {
		return nil, err
	}
	if d.height == 0 {
		return NewBlockUndo(c.tracker, nil), nil
	}
	if !d.haveUndo() {
		return nil, kernelError(ErrDiskRead, fmt.Sprintf(
			"block %s at height %d has no undo data on disk (pruned?)", d.hash, d.height), nil)
	}

	data, err := c.files.readRecord("rev", d.file, d.undoPos, chainhash.HashSize)
	if err != nil {
		return nil, err
	}
	undo, checksum := data[:len(data)-chainhash.HashSize], data[len(data)-chainhash.HashSize:]

	preimage := make([]byte, 0, chainhash.HashSize+len(undo))
	preimage = append(preimage, d.header.PrevBlock[:]...)
	preimage = append(preimage, undo...)
	if got := chainhash.DoubleHashH(preimage); string(got[:]) != string(checksum) {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"undo checksum mismatch for block %s at height %d", d.hash, d.height), nil)
	}

	txs, err := deserializeBlockUndo(undo)
	if err != nil {
		return nil, kernelError(ErrCorruptData, fmt.Sprintf(
			"undo data for block %s at height %d", d.hash, d.height), err)
	}
	return NewBlockUndo(c.tracker, txs), nil
}

// Destroy 关闭数据库。仍未释放的句柄会被记录下来。
func (c *ChainstateManager) Destroy() {
	if live := c.tracker.Live(); live != 0 {
		logrus.Warnf("Chainstate manager destroyed with %d live handles", live)
	}
	if err := c.index.Close(); err != nil {
		logrus.Errorf("Close block index: %v", err)
	}
	if err := c.chainstate.Close(); err != nil {
		logrus.Errorf("Close chainstate: %v", err)
	}
	c.loaded = false
}

var _ Engine = (*ChainstateManager)(nil)
