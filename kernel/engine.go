package kernel

// Engine 是扫描流程所依赖的链数据访问接口。返回的每个句柄都由调用方负责释放。
type Engine interface {
	// BlockIndexFromTip 返回活动链末端区块的句柄。
	BlockIndexFromTip() (*BlockIndex, error)

	// BlockIndexFromHeight 返回活动链上指定高度区块的句柄。
	BlockIndexFromHeight(height int32) (*BlockIndex, error)

	// NextBlockIndex 返回 idx 之后的区块句柄，已到链末端时返回 (nil, nil)。idx 不会被释放。
	NextBlockIndex(idx *BlockIndex) (*BlockIndex, error)

	// ReadBlock 读取 idx 指向的序列化区块。
	ReadBlock(idx *BlockIndex) (*Block, error)

	// ReadBlockUndo 读取 idx 指向区块的撤销数据。
	ReadBlockUndo(idx *BlockIndex) (*BlockUndo, error)

	// Tracker 返回统计该引擎句柄的计数器。
	Tracker() *Tracker
}
