package tapfreq

import (
	"github.com/qinglongcn/tapfreq/kernel"
)

type iterState int

const (
	iterIdle iterState = iota
	iterPositioned
	iterExhausted
	iterFailed
)

// BlockIndexIterator 按高度递增依次给出 [start, end] 内的区块句柄。
// 当前句柄归迭代器所有：前进时释放上一个，Close 释放当前持有的一个。
type BlockIndexIterator struct {
	engine     kernel.Engine
	start, end int64

	state   iterState
	endAbs  int32
	current *kernel.BlockIndex
	err     error
}

// NewBlockIndexIterator 创建迭代器。范围在第一次调用 Next 时才被规范化。
func NewBlockIndexIterator(engine kernel.Engine, start, end int64) *BlockIndexIterator {
	return &BlockIndexIterator{engine: engine, start: start, end: end}
}

// Next 前进到下一个区块，没有更多区块或出错时返回 false。
func (it *BlockIndexIterator) Next() bool {
	switch it.state {
	case iterIdle:
		from, to, err := normalizeRange(it.engine, it.start, it.end)
		if err != nil {
			return it.fail(err)
		}
		idx, err := it.engine.BlockIndexFromHeight(from)
		if err != nil {
			return it.fail(err)
		}
		it.endAbs = to
		it.current = idx
		it.state = iterPositioned
		return true

	case iterPositioned:
		next, err := it.engine.NextBlockIndex(it.current)
		it.current.Destroy()
		it.current = nil
		if err != nil {
			return it.fail(err)
		}
		if next == nil {
			it.state = iterExhausted
			return false
		}
		if next.Height() > it.endAbs {
			next.Destroy()
			it.state = iterExhausted
			return false
		}
		it.current = next
		return true

	default:
		return false
	}
}

func (it *BlockIndexIterator) fail(err error) bool {
	it.err = err
	it.state = iterFailed
	return false
}

// BlockIndex 返回当前区块句柄。调用方不得释放它。
func (it *BlockIndexIterator) BlockIndex() *kernel.BlockIndex {
	return it.current
}

// Err 返回导致迭代终止的错误。
func (it *BlockIndexIterator) Err() error {
	return it.err
}

// Close 释放当前持有的句柄。可以重复调用。
func (it *BlockIndexIterator) Close() {
	if it.current != nil {
		it.current.Destroy()
		it.current = nil
	}
	if it.state == iterIdle || it.state == iterPositioned {
		it.state = iterExhausted
	}
}
