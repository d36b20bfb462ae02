package kernel

import (
	"github.com/btcsuite/btcd/chaincfg/chainhash"
)

// BlockIndex 是指向活动链上某个区块位置的句柄，必须且只能释放一次。
type BlockIndex struct {
	handle
	height int32
	hash   chainhash.Hash
}

// NewBlockIndex 为指定高度和哈希创建一个由 tracker 计数的句柄。
func NewBlockIndex(tracker *Tracker, height int32, hash chainhash.Hash) *BlockIndex {
	return &BlockIndex{handle: newHandle(tracker), height: height, hash: hash}
}

// Height 返回区块高度。
func (b *BlockIndex) Height() int32 {
	return b.height
}

// Hash 返回区块哈希。
func (b *BlockIndex) Hash() chainhash.Hash {
	return b.hash
}

// Check 在句柄已释放时返回 ErrHandleReleased。供其他 Engine 实现使用。
func (b *BlockIndex) Check() error {
	return b.alive("block index")
}

// Destroy 释放句柄，重复调用无效。
func (b *BlockIndex) Destroy() {
	b.destroy()
}

// Block 是一个已读取的序列化区块的句柄。
type Block struct {
	handle
	data []byte
}

// NewBlock 使用序列化的区块数据创建句柄。
func NewBlock(tracker *Tracker, data []byte) *Block {
	return &Block{handle: newHandle(tracker), data: data}
}

// Data 返回序列化区块的副本，句柄释放后返回 ErrHandleReleased。
func (b *Block) Data() ([]byte, error) {
	if err := b.alive("block"); err != nil {
		return nil, err
	}
	return append([]byte(nil), b.data...), nil
}

// Destroy 释放句柄，重复调用无效。
func (b *Block) Destroy() {
	b.destroy()
	b.data = nil
}
