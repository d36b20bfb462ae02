package kernel

import (
	"sync/atomic"
)

// Tracker 统计一个引擎发放和回收的句柄数量。
type Tracker struct {
	acquired atomic.Int64
	released atomic.Int64
}

// NewTracker 创建一个新的句柄计数器。
func NewTracker() *Tracker {
	return &Tracker{}
}

// Acquired 返回已发放的句柄数量。
func (t *Tracker) Acquired() int64 { return t.acquired.Load() }

// Released 返回已释放的句柄数量。
func (t *Tracker) Released() int64 { return t.released.Load() }

// Live 返回尚未释放的句柄数量。
func (t *Tracker) Live() int64 { return t.Acquired() - t.Released() }

// handle 是所有句柄类型共用的释放状态。句柄只在创建它的 goroutine 中使用。
type handle struct {
	tracker  *Tracker
	released bool
}

func newHandle(t *Tracker) handle {
	t.acquired.Add(1)
	return handle{tracker: t}
}

// destroy 释放句柄，只有第一次调用会计数。
func (h *handle) destroy() {
	if h.released {
		return
	}
	h.released = true
	h.tracker.released.Add(1)
}

// alive 在句柄已释放时返回 ErrHandleReleased。
func (h *handle) alive(what string) error {
	if h.released {
		return kernelError(ErrHandleReleased, what+" handle used after release", nil)
	}
	return nil
}
