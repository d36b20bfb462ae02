package tapfreq

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/btcsuite/btcd/chaincfg/chainhash"
	"github.com/btcsuite/btcd/wire"
	"github.com/dgraph-io/badger/v4"
	"github.com/pkg/errors"
	"github.com/qinglongcn/tapfreq/kernel"
	"github.com/sirupsen/logrus"
)

var (
	lastHashKey     = []byte("lh") // 最后一个区块的哈希
	heightKeyPrefix = []byte("h")  // h<高度> -> 区块哈希
	hashKeyPrefix   = []byte("i")  // i<哈希> -> 高度
	blockKeyPrefix  = []byte("b")  // b<哈希> -> 序列化区块
	undoKeyPrefix   = []byte("u")  // u<哈希> -> 撤销数据
)

// Blockchain 是保存在 badger 中的区块范围，同时也是一个链数据引擎
type Blockchain struct {
	mutex    sync.Mutex     // 串行化写入
	LastHash chainhash.Hash // 链上最后一个块的哈希
	Database *badger.DB     // 区块链数据库的句柄

	tracker *kernel.Tracker
}

// CreateBlockchain 在 path 创建一个新的空存储，path 已存在时返回错误
func CreateBlockchain(path string) (*Blockchain, error) {
	if dbExists(path) {
		return nil, fmt.Errorf("store %s already exists", path)
	}
	if err := os.MkdirAll(path, 0755); err != nil {
		return nil, err
	}

	db, err := openDB(path, badgerOptions(path))
	if err != nil {
		return nil, err
	}
	return &Blockchain{Database: db, tracker: kernel.NewTracker()}, nil
}

// OpenBlockchain 打开 path 处已有的存储
func OpenBlockchain(path string) (*Blockchain, error) {
	if !dbExists(path) {
		return nil, fmt.Errorf("store %s does not exist", path)
	}

	db, err := openDB(path, badgerOptions(path))
	if err != nil {
		return nil, err
	}
	chain := &Blockchain{Database: db, tracker: kernel.NewTracker()}

	err = db.View(func(txn *badger.Txn) error {
		hash, err := getValue(txn, lastHashKey)
		if err != nil {
			return err
		}
		copy(chain.LastHash[:], hash)
		return nil
	})
	if err != nil && !errors.Is(err, badger.ErrKeyNotFound) {
		db.Close()
		return nil, err
	}
	return chain, nil
}

// NewMemoryBlockchain 创建一个只存在于内存中的存储
func NewMemoryBlockchain() (*Blockchain, error) {
	opts := badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	db, err := badger.Open(opts)
	if err != nil {
		return nil, err
	}
	return &Blockchain{Database: db, tracker: kernel.NewTracker()}, nil
}

func badgerOptions(path string) badger.Options {
	opts := badger.DefaultOptions(path)
	opts.ValueDir = path
	opts.Logger = badgerLogger{logrus.StandardLogger()}
	return opts
}

// AddBlock 追加一个区块及其撤销数据。
// 空存储接受任意高度的第一个区块，之后只接受高度为末端加一且 PrevBlock 指向末端的区块。
func (chain *Blockchain) AddBlock(height int32, raw []byte, undo [][]*wire.TxOut) error {
	chain.mutex.Lock()
	defer chain.mutex.Unlock()

	if len(raw) < wire.MaxBlockHeaderPayload {
		return fmt.Errorf("block at height %d is only %d bytes", height, len(raw))
	}
	var header wire.BlockHeader
	if err := header.Deserialize(bytes.NewReader(raw[:wire.MaxBlockHeaderPayload])); err != nil {
		return errors.Wrapf(err, "decode header at height %d", height)
	}
	hash := header.BlockHash()

	added := false
	err := chain.Database.Update(func(txn *badger.Txn) error {
		if _, err := txn.Get(prefixed(blockKeyPrefix, hash[:])); err == nil {
			return nil // 区块已存在
		}

		lastHash, err := getValue(txn, lastHashKey)
		switch {
		case errors.Is(err, badger.ErrKeyNotFound):
		case err != nil:
			return err
		default:
			lastHeight, err := getValue(txn, prefixed(hashKeyPrefix, lastHash))
			if err != nil {
				return err
			}
			if want := int32(binary.BigEndian.Uint32(lastHeight)) + 1; height != want {
				return fmt.Errorf("block %s has height %d, expected %d", hash, height, want)
			}
			if !bytes.Equal(header.PrevBlock[:], lastHash) {
				return fmt.Errorf("block %s at height %d does not extend tip %x",
					hash, height, lastHash)
			}
		}

		entries := []struct{ key, value []byte }{
			{prefixed(blockKeyPrefix, hash[:]), raw},
			{prefixed(undoKeyPrefix, hash[:]), serializeUndo(undo)},
			{heightKey(height), hash[:]},
			{prefixed(hashKeyPrefix, hash[:]), heightKey(height)[1:]},
			{lastHashKey, hash[:]},
		}
		for _, e := range entries {
			if err := txn.Set(e.key, e.value); err != nil {
				return err
			}
		}
		added = true
		return nil
	})
	if err != nil {
		return err
	}

	if added {
		chain.LastHash = hash
	}
	return nil
}

// Tracker 返回句柄计数器。
func (chain *Blockchain) Tracker() *kernel.Tracker {
	return chain.tracker
}

// BlockIndexFromTip 返回最后一个区块的句柄。
func (chain *Blockchain) BlockIndexFromTip() (*kernel.BlockIndex, error) {
	var (
		height int32
		hash   chainhash.Hash
	)
	err := chain.Database.View(func(txn *badger.Txn) error {
		last, err := getValue(txn, lastHashKey)
		if err != nil {
			return err
		}
		h, err := getValue(txn, prefixed(hashKeyPrefix, last))
		if err != nil {
			return err
		}
		copy(hash[:], last)
		height = int32(binary.BigEndian.Uint32(h))
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, kernel.Error{Code: kernel.ErrNoTip, Description: "store is empty"}
	}
	if err != nil {
		return nil, readError(err, "read tip")
	}
	return kernel.NewBlockIndex(chain.tracker, height, hash), nil
}

// BlockIndexFromHeight 返回指定高度区块的句柄。
func (chain *Blockchain) BlockIndexFromHeight(height int32) (*kernel.BlockIndex, error) {
	idx, err := chain.indexAt(height)
	if err != nil {
		return nil, err
	}
	if idx == nil {
		return nil, kernel.Error{Code: kernel.ErrHeightOutOfRange,
			Description: fmt.Sprintf("height %d not in store", height)}
	}
	return idx, nil
}

// NextBlockIndex 返回下一个区块的句柄，已到末端时返回 (nil, nil)。
func (chain *Blockchain) NextBlockIndex(idx *kernel.BlockIndex) (*kernel.BlockIndex, error) {
	if err := idx.Check(); err != nil {
		return nil, err
	}
	return chain.indexAt(idx.Height() + 1)
}

func (chain *Blockchain) indexAt(height int32) (*kernel.BlockIndex, error) {
	if height < 0 {
		return nil, nil
	}

	var hash chainhash.Hash
	err := chain.Database.View(func(txn *badger.Txn) error {
		value, err := getValue(txn, heightKey(height))
		if err != nil {
			return err
		}
		copy(hash[:], value)
		return nil
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, readError(err, fmt.Sprintf("read height %d", height))
	}
	return kernel.NewBlockIndex(chain.tracker, height, hash), nil
}

// ReadBlock 读取序列化区块。
func (chain *Blockchain) ReadBlock(idx *kernel.BlockIndex) (*kernel.Block, error) {
	if err := idx.Check(); err != nil {
		return nil, err
	}
	hash := idx.Hash()

	data, err := chain.get(prefixed(blockKeyPrefix, hash[:]))
	if err != nil {
		return nil, readError(err, fmt.Sprintf("read block %s", hash))
	}
	if len(data) < wire.MaxBlockHeaderPayload ||
		chainhash.DoubleHashH(data[:wire.MaxBlockHeaderPayload]) != hash {
		return nil, kernel.Error{Code: kernel.ErrCorruptData,
			Description: fmt.Sprintf("stored block at height %d does not hash to %s", idx.Height(), hash)}
	}
	return kernel.NewBlock(chain.tracker, data), nil
}

// ReadBlockUndo 读取区块的撤销数据。
func (chain *Blockchain) ReadBlockUndo(idx *kernel.BlockIndex) (*kernel.BlockUndo, error) {
	if err := idx.Check(); err != nil {
		return nil, err
	}
	hash := idx.Hash()

	data, err := chain.get(prefixed(undoKeyPrefix, hash[:]))
	if err != nil {
		return nil, readError(err, fmt.Sprintf("read undo %s", hash))
	}
	txs, err := deserializeUndo(data)
	if err != nil {
		return nil, kernel.Error{Code: kernel.ErrCorruptData,
			Description: fmt.Sprintf("undo data for block %s", hash), Err: err}
	}
	return kernel.NewBlockUndo(chain.tracker, txs), nil
}

// Close 关闭数据库。仍未释放的句柄会被记录下来。
func (chain *Blockchain) Close() error {
	if live := chain.tracker.Live(); live != 0 {
		logrus.Warnf("Block store closed with %d live handles", live)
	}
	return chain.Database.Close()
}

var _ kernel.Engine = (*Blockchain)(nil)

func (chain *Blockchain) get(key []byte) ([]byte, error) {
	var value []byte
	err := chain.Database.View(func(txn *badger.Txn) error {
		var err error
		value, err = getValue(txn, key)
		return err
	})
	return value, err
}

func getValue(txn *badger.Txn, key []byte) ([]byte, error) {
	item, err := txn.Get(key)
	if err != nil {
		return nil, err
	}
	return item.ValueCopy(nil)
}

// readError 将存储错误映射为磁盘读取错误。
func readError(err error, desc string) error {
	if errors.Is(err, badger.ErrKeyNotFound) {
		return kernel.Error{Code: kernel.ErrDiskRead, Description: desc + ": not found"}
	}
	return kernel.Error{Code: kernel.ErrDiskRead, Description: desc, Err: err}
}

func prefixed(prefix, key []byte) []byte {
	out := make([]byte, 0, len(prefix)+len(key))
	out = append(out, prefix...)
	return append(out, key...)
}

// heightKey 使用大端序，使键按高度排序。
func heightKey(height int32) []byte {
	key := make([]byte, 5)
	key[0] = heightKeyPrefix[0]
	binary.BigEndian.PutUint32(key[1:], uint32(height))
	return key
}

// serializeUndo 依次写出交易数量、每笔交易的输出数量与各个输出。
func serializeUndo(txs [][]*wire.TxOut) []byte {
	var buf bytes.Buffer
	_ = wire.WriteVarInt(&buf, 0, uint64(len(txs)))
	for _, outs := range txs {
		_ = wire.WriteVarInt(&buf, 0, uint64(len(outs)))
		for _, out := range outs {
			_ = wire.WriteTxOut(&buf, 0, 0, out)
		}
	}
	return buf.Bytes()
}

func deserializeUndo(data []byte) ([][]*wire.TxOut, error) {
	r := bytes.NewReader(data)
	txCount, err := wire.ReadVarInt(r, 0)
	if err != nil {
		return nil, err
	}
	if txCount > uint64(len(data)) {
		return nil, fmt.Errorf("undo claims %d transactions in %d bytes", txCount, len(data))
	}

	txs := make([][]*wire.TxOut, txCount)
	for i := range txs {
		outCount, err := wire.ReadVarInt(r, 0)
		if err != nil {
			return nil, err
		}
		if outCount > uint64(r.Len()) {
			return nil, fmt.Errorf("undo claims %d outputs in %d bytes", outCount, r.Len())
		}
		outs := make([]*wire.TxOut, outCount)
		for j := range outs {
			var value [8]byte
			if _, err := io.ReadFull(r, value[:]); err != nil {
				return nil, err
			}
			script, err := wire.ReadVarBytes(r, 0, wire.MaxBlockPayload, "pkScript")
			if err != nil {
				return nil, err
			}
			outs[j] = wire.NewTxOut(int64(binary.LittleEndian.Uint64(value[:])), script)
		}
		txs[i] = outs
	}
	if r.Len() != 0 {
		return nil, fmt.Errorf("%d trailing bytes after undo data", r.Len())
	}
	return txs, nil
}

// badgerLogger 将 badger 的日志转到 logrus，并把 Info 降为 Debug。
type badgerLogger struct {
	*logrus.Logger
}

func (l badgerLogger) Infof(format string, args ...interface{}) {
	l.Logger.Debugf(format, args...)
}

// dbExists 检查数据库是否存在
func dbExists(path string) bool {
	if _, err := os.Stat(filepath.Join(path, "MANIFEST")); os.IsNotExist(err) {
		return false
	}
	return true
}

// openDB 打开数据库，如果因为存在 LOCK 文件打开失败，执行 retry 确保打开
func openDB(path string, opts badger.Options) (*badger.DB, error) {
	db, err := badger.Open(opts)
	if err != nil && strings.Contains(err.Error(), "LOCK") {
		db, err = retry(path, opts)
		if err != nil {
			return nil, errors.Wrap(err, "unlock store")
		}
		return db, nil
	} else if err != nil {
		return nil, err
	}
	return db, nil
}

// retry 删除 LOCK 文件，并再次尝试打开数据库
func retry(path string, opts badger.Options) (*badger.DB, error) {
	lockPath := filepath.Join(path, "LOCK")

	// 检查锁文件是否可以安全删除
	if err := checkLock(lockPath); err != nil {
		return nil, err
	}
	if err := os.Remove(lockPath); err != nil {
		return nil, errors.Wrap(err, "remove LOCK")
	}

	var db *badger.DB
	var err error
	for i := 0; i < 3; i++ {
		db, err = badger.Open(opts)
		if err == nil {
			return db, nil
		}
		logrus.Errorf("Open store failed, retrying in %d seconds", i+1)
		time.Sleep(time.Duration(i+1) * time.Second)
	}

	return nil, errors.Wrap(err, "open store")
}

// checkLock 检查锁文件是否可以安全删除
func checkLock(path string) error {
	file, err := os.Open(path)
	if err != nil {
		return errors.Wrap(err, "open LOCK")
	}
	defer file.Close()

	// 尝试获取文件锁
	if err := syscall.Flock(int(file.Fd()), syscall.LOCK_EX|syscall.LOCK_NB); err != nil {
		return errors.Wrap(err, "store is in use by another process")
	}
	defer syscall.Flock(int(file.Fd()), syscall.LOCK_UN)

	return nil
}
